package telegram

import (
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"sync"

	"github.com/m3rciful/combogate/core/logger"
	"github.com/m3rciful/combogate/core/telegram/commands"

	tele "gopkg.in/telebot.v4"
)

// Registry maps command names and callback keys to handlers.
type Registry struct {
	mu        sync.RWMutex
	commands  map[string]commands.Command
	callbacks map[string]tele.HandlerFunc

	callbackNotFound tele.HandlerFunc
	textFallback     tele.HandlerFunc
}

// NewRegistry returns an empty registry whose unknown callbacks get a short
// toast.
func NewRegistry() *Registry {
	return &Registry{
		commands:  make(map[string]commands.Command),
		callbacks: make(map[string]tele.HandlerFunc),
		callbackNotFound: func(c tele.Context) error {
			return c.Respond(&tele.CallbackResponse{Text: "This button is no longer supported."})
		},
	}
}

// RegisterCommand adds cmd under name, which must be a "/command".
func (r *Registry) RegisterCommand(name string, cmd commands.Command) error {
	key := commands.Canonical(name)
	switch {
	case key == "" || key != name:
		return fmt.Errorf("register command %q: want a lowercase /command", name)
	case cmd.Handler == nil || cmd.Description == "":
		return fmt.Errorf("register command %s: handler and description are required", name)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, dup := r.commands[key]; dup {
		return fmt.Errorf("register command %s: already registered", name)
	}
	r.commands[key] = cmd
	logger.TWire.Debug("command registered",
		slog.String("event", "register.command"),
		slog.String("command", key),
		slog.Bool("admin", cmd.AdminOnly),
	)
	return nil
}

// Command finds a command by the token a user typed.
func (r *Registry) Command(token string) (string, commands.Command, bool) {
	key := commands.Canonical(token)
	r.mu.RLock()
	defer r.mu.RUnlock()
	cmd, ok := r.commands[key]
	return key, cmd, ok
}

// Commands returns a copy of the registered commands.
func (r *Registry) Commands() map[string]commands.Command {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return maps.Clone(r.commands)
}

// RegisterCallback adds the handler for callback key.
func (r *Registry) RegisterCallback(key string, h tele.HandlerFunc) error {
	if key == "" || h == nil {
		return errors.New("register callback: key and handler are required")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, dup := r.callbacks[key]; dup {
		return fmt.Errorf("register callback %s: already registered", key)
	}
	r.callbacks[key] = h
	return nil
}

// Callback returns the handler for key.
func (r *Registry) Callback(key string) (tele.HandlerFunc, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.callbacks[key]
	return h, ok
}

// CallbackKeys lists registered keys in order.
func (r *Registry) CallbackKeys() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Sorted(maps.Keys(r.callbacks))
}

// SetCallbackNotFound replaces the handler for unknown callback keys.
func (r *Registry) SetCallbackNotFound(h tele.HandlerFunc) {
	if h == nil {
		return
	}
	r.mu.Lock()
	r.callbackNotFound = h
	r.mu.Unlock()
}

// CallbackNotFound returns the handler for unknown callback keys.
func (r *Registry) CallbackNotFound() tele.HandlerFunc {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.callbackNotFound
}

// SetTextFallback sets the handler for text that is neither a command nor
// an awaited answer.
func (r *Registry) SetTextFallback(h tele.HandlerFunc) {
	r.mu.Lock()
	r.textFallback = h
	r.mu.Unlock()
}

// TextFallback returns the handler set by SetTextFallback.
func (r *Registry) TextFallback() tele.HandlerFunc {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.textFallback
}

// CommandSetter is the part of *tele.Bot that publishes command menus.
type CommandSetter interface {
	SetCommands(opts ...interface{}) error
}

// PublishCommands sets the public command menu and, when adminID is set, a
// chat scoped menu for the administrator that includes admin commands.
func PublishCommands(bot CommandSetter, reg *Registry, adminID int64) error {
	cmds := reg.Commands()
	err := bot.SetCommands(commands.Menu(cmds, false))
	if err == nil && adminID != 0 {
		err = bot.SetCommands(commands.Menu(cmds, true), tele.CommandScope{Type: tele.CommandScopeChat, ChatID: adminID})
	}
	if err != nil {
		return fmt.Errorf("publish commands: %w", err)
	}
	logger.TWire.Info("command menu published",
		slog.String("event", "register.menu"),
		slog.Int("count", len(cmds)),
	)
	return nil
}
