package combo

import (
	"testing"

	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestTextsYAMLKeys(t *testing.T) {
	var custom Texts
	err := yaml.Unmarshal([]byte(`
ask_url: "Send a page"
url_saved: "Saved {source}"
url_cleared: "Cleared"
bad_url: "Bad"
`), &custom)
	require.NoError(t, err)

	texts := DefaultTexts().merge(custom)
	require.Equal(t, "Send a page", texts.AskURL)
	require.Equal(t, "Saved {source}", texts.URLSaved)
	require.Equal(t, "Cleared", texts.URLCleared)
	require.Equal(t, "Bad", texts.BadURL)
	require.Equal(t, DefaultTexts().Welcome, texts.Welcome)
}
