package combo

import "strings"

// Commands and callback actions understood by the service.
const (
	CmdStart  = "start"
	CmdHelp   = "help"
	CmdCombo  = "combo"
	CmdBuy    = "buy"
	CmdCheck  = "check"
	CmdStatus = "status"

	CmdAdmin    = "admin"
	CmdOn       = "on"
	CmdOff      = "off"
	CmdSetCombo = "setcombo"
	CmdSetURL   = "seturl"
	CmdRefresh  = "refresh"
	CmdGrant    = "grant"
	CmdStats    = "stats"
	CmdPreview  = "preview"
)

// UserCommands are visible to everyone, in menu order.
var UserCommands = []string{CmdStart, CmdCombo, CmdBuy, CmdStatus, CmdHelp}

// AdminCommands are rejected for everyone but the administrator.
var AdminCommands = []string{CmdAdmin, CmdOn, CmdOff, CmdSetCombo, CmdSetURL, CmdRefresh, CmdGrant, CmdStats, CmdPreview}

// Callbacks are the button actions the service emits.
var Callbacks = []string{CmdCombo, CmdBuy, CmdCheck, CmdStatus, CmdAdmin, CmdOn, CmdOff, CmdRefresh, CmdStats, CmdPreview}

// Descriptions feed the transport's command menu.
var Descriptions = map[string]string{
	CmdStart:    "Start the bot",
	CmdHelp:     "How it works",
	CmdCombo:    "Today's combo",
	CmdBuy:      "Unlock access",
	CmdStatus:   "Your access status",
	CmdAdmin:    "Admin panel",
	CmdOn:       "Open content for everyone",
	CmdOff:      "Close content for non-subscribers",
	CmdSetCombo: "Replace the combo text",
	CmdSetURL:   "Set the auto refresh URL or off",
	CmdRefresh:  "Refresh the combo now",
	CmdGrant:    "Grant access to a user id",
	CmdStats:    "Bot statistics",
	CmdPreview:  "Preview the combo as users see it",
}

func isAdminCommand(cmd string) bool {
	for _, c := range AdminCommands {
		if c == cmd {
			return true
		}
	}
	return false
}

// NormalizeCommand strips the slash and any @bot suffix and lowercases the name.
func NormalizeCommand(cmd string) string {
	cmd = strings.TrimSpace(cmd)
	cmd = strings.TrimPrefix(cmd, "/")
	if i := strings.IndexByte(cmd, '@'); i >= 0 {
		cmd = cmd[:i]
	}
	return strings.ToLower(cmd)
}
