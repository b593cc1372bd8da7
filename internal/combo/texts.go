package combo

// Texts holds the authored markup of every user facing message. Placeholders
// in braces are substituted by format.Render and escaped for their span.
type Texts struct {
	Welcome       string `yaml:"welcome"`
	Help          string `yaml:"help"`
	ComboHeader   string `yaml:"combo_header"`
	Paywall       string `yaml:"paywall"`
	Invoice       string `yaml:"invoice"`
	Unavailable   string `yaml:"unavailable"`
	Paid          string `yaml:"paid"`
	Reconfirmed   string `yaml:"reconfirmed"`
	Pending       string `yaml:"pending"`
	Expired       string `yaml:"expired"`
	OtherStatus   string `yaml:"other_status"`
	BadInvoice    string `yaml:"bad_invoice"`
	Status        string `yaml:"status"`
	PaidReturn    string `yaml:"paid_return"`
	AdminOnly     string `yaml:"admin_only"`
	AdminPanel    string `yaml:"admin_panel"`
	ActiveOn      string `yaml:"active_on"`
	ActiveOff     string `yaml:"active_off"`
	AskCombo      string `yaml:"ask_combo"`
	ComboSaved    string `yaml:"combo_saved"`
	AskURL        string `yaml:"ask_url"`
	URLSaved      string `yaml:"url_saved"`
	URLCleared    string `yaml:"url_cleared"`
	BadURL        string `yaml:"bad_url"`
	Refreshed     string `yaml:"refreshed"`
	GrantUsage    string `yaml:"grant_usage"`
	Granted       string `yaml:"granted"`
	AlreadyGrant  string `yaml:"already_grant"`
	Stats         string `yaml:"stats"`
	SaveFailed    string `yaml:"save_failed"`
	ButtonCombo   string `yaml:"button_combo"`
	ButtonBuy     string `yaml:"button_buy"`
	ButtonPay     string `yaml:"button_pay"`
	ButtonCheck   string `yaml:"button_check"`
	ButtonRetry   string `yaml:"button_retry"`
	ButtonNew     string `yaml:"button_new"`
	ButtonOn      string `yaml:"button_on"`
	ButtonOff     string `yaml:"button_off"`
	ButtonRefresh string `yaml:"button_refresh"`
	ButtonPreview string `yaml:"button_preview"`
	ButtonStats   string `yaml:"button_stats"`
}

// DefaultTexts returns the built-in English messages.
func DefaultTexts() Texts {
	return Texts{
		Welcome:       "👋 **Welcome!**\nFresh combo codes every day.\nLifetime access costs **{price} {asset}**.",
		Help:          "**How it works**\n/combo shows today's combo\n/buy unlocks access for {price} {asset}\n/status shows your access",
		ComboHeader:   "🗓 **Combo for {date}**",
		Paywall:       "🔒 Today's combo is for subscribers.\nUnlock it for **{price} {asset}**.",
		Invoice:       "💳 Invoice #{invoice} for **{price} {asset}** is ready.\nPay with the button below, then press **Check payment**.",
		Unavailable:   "😔 Sorry, the payment service is unavailable right now. Please try again later.",
		Paid:          "✅ **Payment received!** Your access is unlocked.",
		Reconfirmed:   "✅ This invoice is paid and your access is active.",
		Pending:       "⏳ Payment is still processing. Check again in a moment.",
		Expired:       "⌛ This invoice has expired. Create a new one to continue.",
		OtherStatus:   "Invoice status: {status}",
		BadInvoice:    "This invoice is not recognised. Use /buy to create a new one.",
		Status:        "Your access: **{access}**\nOpen for everyone: **{active}**",
		PaidReturn:    "Thanks! Press **Check payment** on your invoice message to confirm it.",
		AdminOnly:     "⛔ This command is for the administrator.",
		AdminPanel:    "🛠 **Admin panel**\nOpen for everyone: **{active}**\nSubscribers: **{subscribers}**\nSource: {source}",
		ActiveOn:      "🔓 Combo is now open for everyone.",
		ActiveOff:     "🔒 Combo is now for subscribers only.",
		AskCombo:      "Send the new combo text. Use **bold**, `code` and {date}.",
		ComboSaved:    "✅ Combo saved.",
		AskURL:        "Send the source URL, or off to disable auto refresh.",
		URLSaved:      "✅ Auto refresh source set to {source}",
		URLCleared:    "Auto refresh disabled.",
		BadURL:        "That does not look like an http(s) URL.",
		Refreshed:     "Refresh finished: **{outcome}**",
		GrantUsage:    "Usage: /grant <user_id>",
		Granted:       "✅ Access granted to `{user}`.",
		AlreadyGrant:  "User `{user}` already has access.",
		Stats:         "📊 **Stats**\nSubscribers: **{subscribers}**\nOpen for everyone: **{active}**\nSource: {source}\nCombo length: {length}",
		SaveFailed:    "⚠️ Saved in memory only, persisting failed. Check the logs.",
		ButtonCombo:   "🎯 Show combo",
		ButtonBuy:     "💳 Buy access",
		ButtonPay:     "Pay {price} {asset}",
		ButtonCheck:   "🔄 Check payment",
		ButtonRetry:   "🔁 Try again",
		ButtonNew:     "🧾 New invoice",
		ButtonOn:      "🔓 Open",
		ButtonOff:     "🔒 Close",
		ButtonRefresh: "♻️ Refresh",
		ButtonPreview: "👁 Preview",
		ButtonStats:   "📊 Stats",
	}
}

// merge overrides defaults with the non-empty fields of custom texts.
func (t Texts) merge(custom Texts) Texts {
	pick := func(def, over string) string {
		if over != "" {
			return over
		}
		return def
	}
	return Texts{
		Welcome:       pick(t.Welcome, custom.Welcome),
		Help:          pick(t.Help, custom.Help),
		ComboHeader:   pick(t.ComboHeader, custom.ComboHeader),
		Paywall:       pick(t.Paywall, custom.Paywall),
		Invoice:       pick(t.Invoice, custom.Invoice),
		Unavailable:   pick(t.Unavailable, custom.Unavailable),
		Paid:          pick(t.Paid, custom.Paid),
		Reconfirmed:   pick(t.Reconfirmed, custom.Reconfirmed),
		Pending:       pick(t.Pending, custom.Pending),
		Expired:       pick(t.Expired, custom.Expired),
		OtherStatus:   pick(t.OtherStatus, custom.OtherStatus),
		BadInvoice:    pick(t.BadInvoice, custom.BadInvoice),
		Status:        pick(t.Status, custom.Status),
		PaidReturn:    pick(t.PaidReturn, custom.PaidReturn),
		AdminOnly:     pick(t.AdminOnly, custom.AdminOnly),
		AdminPanel:    pick(t.AdminPanel, custom.AdminPanel),
		ActiveOn:      pick(t.ActiveOn, custom.ActiveOn),
		ActiveOff:     pick(t.ActiveOff, custom.ActiveOff),
		AskCombo:      pick(t.AskCombo, custom.AskCombo),
		ComboSaved:    pick(t.ComboSaved, custom.ComboSaved),
		AskURL:        pick(t.AskURL, custom.AskURL),
		URLSaved:      pick(t.URLSaved, custom.URLSaved),
		URLCleared:    pick(t.URLCleared, custom.URLCleared),
		BadURL:        pick(t.BadURL, custom.BadURL),
		Refreshed:     pick(t.Refreshed, custom.Refreshed),
		GrantUsage:    pick(t.GrantUsage, custom.GrantUsage),
		Granted:       pick(t.Granted, custom.Granted),
		AlreadyGrant:  pick(t.AlreadyGrant, custom.AlreadyGrant),
		Stats:         pick(t.Stats, custom.Stats),
		SaveFailed:    pick(t.SaveFailed, custom.SaveFailed),
		ButtonCombo:   pick(t.ButtonCombo, custom.ButtonCombo),
		ButtonBuy:     pick(t.ButtonBuy, custom.ButtonBuy),
		ButtonPay:     pick(t.ButtonPay, custom.ButtonPay),
		ButtonCheck:   pick(t.ButtonCheck, custom.ButtonCheck),
		ButtonRetry:   pick(t.ButtonRetry, custom.ButtonRetry),
		ButtonNew:     pick(t.ButtonNew, custom.ButtonNew),
		ButtonOn:      pick(t.ButtonOn, custom.ButtonOn),
		ButtonOff:     pick(t.ButtonOff, custom.ButtonOff),
		ButtonRefresh: pick(t.ButtonRefresh, custom.ButtonRefresh),
		ButtonPreview: pick(t.ButtonPreview, custom.ButtonPreview),
		ButtonStats:   pick(t.ButtonStats, custom.ButtonStats),
	}
}
