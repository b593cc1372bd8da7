package telegram

import (
	"testing"

	"github.com/stretchr/testify/require"
	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/combogate/core/telegram/commands"
)

func noop(tele.Context) error { return nil }

func TestRegistryCommands(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.RegisterCommand("/start", commands.Command{Handler: noop, Description: "Start"}))
	require.NoError(t, reg.RegisterCommand("/setcombo", commands.Command{Handler: noop, Description: "Set", AdminOnly: true}))

	require.Error(t, reg.RegisterCommand("/start", commands.Command{Handler: noop, Description: "again"}))
	require.Error(t, reg.RegisterCommand("start", commands.Command{Handler: noop, Description: "x"}))
	require.Error(t, reg.RegisterCommand("/Help", commands.Command{Handler: noop, Description: "x"}))
	require.Error(t, reg.RegisterCommand("/help", commands.Command{Handler: noop}))

	key, cmd, ok := reg.Command("/SetCombo@combo_bot")
	require.True(t, ok)
	require.Equal(t, "/setcombo", key)
	require.True(t, cmd.AdminOnly)

	_, _, ok = reg.Command("hello")
	require.False(t, ok)
	require.Len(t, reg.Commands(), 2)
}

func TestRegistryCallbacks(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.RegisterCallback("buy", noop))
	require.NoError(t, reg.RegisterCallback("check", noop))
	require.Error(t, reg.RegisterCallback("buy", noop))
	require.Error(t, reg.RegisterCallback("", noop))

	_, ok := reg.Callback("buy")
	require.True(t, ok)
	require.Equal(t, []string{"buy", "check"}, reg.CallbackKeys())
	require.NotNil(t, reg.CallbackNotFound())

	reg.SetCallbackNotFound(nil)
	require.NotNil(t, reg.CallbackNotFound())
}

type recordingSetter struct {
	calls [][]interface{}
}

func (r *recordingSetter) SetCommands(opts ...interface{}) error {
	r.calls = append(r.calls, opts)
	return nil
}

func TestPublishCommands(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.RegisterCommand("/start", commands.Command{Handler: noop, Description: "Start"}))
	require.NoError(t, reg.RegisterCommand("/setcombo", commands.Command{Handler: noop, Description: "Set", AdminOnly: true}))

	bot := &recordingSetter{}
	require.NoError(t, PublishCommands(bot, reg, 42))
	require.Len(t, bot.calls, 2)
	require.Len(t, bot.calls[0][0], 1)
	require.Len(t, bot.calls[1][0], 2)
	require.Equal(t, tele.CommandScope{Type: tele.CommandScopeChat, ChatID: 42}, bot.calls[1][1])
}
