package callbacks

import (
	"testing"

	"github.com/stretchr/testify/require"
	tele "gopkg.in/telebot.v4"
)

func TestParseCallbackData(t *testing.T) {
	cases := []struct {
		name    string
		cb      *tele.Callback
		key     string
		payload string
	}{
		{"nil", nil, "", ""},
		{"raw with payload", &tele.Callback{Data: "\fcheck|inv-7"}, "check", "inv-7"},
		{"raw without payload", &tele.Callback{Data: "\fcombo"}, "combo", ""},
		{"payload keeps separators", &tele.Callback{Data: "\fcheck|a|b"}, "check", "a|b"},
		{"routed", &tele.Callback{Unique: "buy", Data: "x"}, "buy", "x"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			key, payload := ParseCallbackData(tc.cb)
			require.Equal(t, tc.key, key)
			require.Equal(t, tc.payload, payload)
		})
	}
}
