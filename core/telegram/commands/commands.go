// Package commands describes slash commands and how users may type them.
package commands

import (
	"sort"
	"strings"

	tele "gopkg.in/telebot.v4"
)

// Command is one slash command.
type Command struct {
	Handler     tele.HandlerFunc
	Description string
	// AdminOnly commands are rejected for other users and listed only in
	// the administrator's command menu.
	AdminOnly bool
}

// Canonical reduces a typed command such as "/Start@combo_bot" to "/start".
// It returns "" when token is not a command.
func Canonical(token string) string {
	token = strings.TrimSpace(token)
	if len(token) < 2 || token[0] != '/' {
		return ""
	}
	name, _, _ := strings.Cut(token, "@")
	return strings.ToLower(name)
}

// Menu lists cmds as Telegram menu entries sorted by name. Admin entries are
// included only when withAdmin is set.
func Menu(cmds map[string]Command, withAdmin bool) []tele.Command {
	menu := make([]tele.Command, 0, len(cmds))
	for name, c := range cmds {
		if c.AdminOnly && !withAdmin {
			continue
		}
		menu = append(menu, tele.Command{Text: strings.TrimPrefix(name, "/"), Description: c.Description})
	}
	sort.Slice(menu, func(i, j int) bool { return menu[i].Text < menu[j].Text })
	return menu
}
