package combo

// Event is one inbound chat action: a command, a callback button or a text
// reply to a pending prompt.
type Event struct {
	UserID  int64
	IsAdmin bool
	Command string
	Payload string
}

// Button is either a callback button (Action, Data) or a link (URL).
type Button struct {
	Text   string
	Action string
	Data   string
	URL    string
}

// Keyboard is an inline keyboard layout.
type Keyboard struct {
	Rows [][]Button
}

// Response is what the transport renders. Text is MarkdownV2.
type Response struct {
	Text     string
	Keyboard *Keyboard
	// Await names the command that should receive the user's next text message.
	Await string
}

func keyboard(rows ...[]Button) *Keyboard {
	return &Keyboard{Rows: rows}
}

func row(buttons ...Button) []Button {
	return buttons
}

func action(text, name string) Button {
	return Button{Text: text, Action: name}
}

func actionData(text, name, data string) Button {
	return Button{Text: text, Action: name, Data: data}
}

func link(text, url string) Button {
	return Button{Text: text, URL: url}
}
