package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{Telegram: TelegramConfig{Token: " 123:abc ", AdminID: 9, Username: "@combo_bot"}}
}

func TestNormalizeDefaults(t *testing.T) {
	cfg := validConfig()
	cfg.RateLimit.ExcludeUpdates = []string{" Callback ", ""}
	require.NoError(t, Normalize(cfg))

	require.Equal(t, "123:abc", cfg.Telegram.Token)
	require.Equal(t, "combo_bot", cfg.Telegram.Username)
	require.Equal(t, RunModeLongpoll, cfg.Telegram.RunMode)
	require.Equal(t, 10*time.Second, cfg.Telegram.PollTimeout())
	require.Equal(t, []string{UpdateCallback}, cfg.RateLimit.ExcludeUpdates)
}

func TestNormalizeAcceptsPollingAlias(t *testing.T) {
	cfg := validConfig()
	cfg.Telegram.RunMode = "Polling"
	cfg.Telegram.LongPollTimeoutSeconds = 25
	require.NoError(t, Normalize(cfg))
	require.Equal(t, RunModeLongpoll, cfg.Telegram.RunMode)
	require.Equal(t, 25*time.Second, cfg.Telegram.PollTimeout())
}

func TestNormalizeWebhook(t *testing.T) {
	cfg := validConfig()
	cfg.Telegram.RunMode = "WEBHOOK"
	cfg.Webhook = WebhookConfig{URL: "https://bot.example/hook", Listen: "0.0.0.0", Port: 8443}
	require.NoError(t, Normalize(cfg))
	require.Equal(t, RunModeWebhook, cfg.Telegram.RunMode)
	require.Equal(t, "0.0.0.0:8443", cfg.Webhook.Address())
}

func TestNormalizeReportsAllProblems(t *testing.T) {
	cfg := &Config{
		Telegram:  TelegramConfig{RunMode: "webhook"},
		Webhook:   WebhookConfig{URL: "http://plain.example", Port: 0},
		RateLimit: RateLimitConfig{ExcludeUpdates: []string{"poll"}},
	}
	err := Normalize(cfg)
	require.Error(t, err)
	for _, want := range []string{
		"telegram.token",
		"telegram.admin_id",
		"webhook.url",
		"webhook.listen",
		"webhook.port",
		"rate_limit.exclude_updates",
	} {
		require.ErrorContains(t, err, want)
	}
}

func TestNormalizeRejectsBadValues(t *testing.T) {
	cases := map[string]func(*Config){
		"run mode":      func(c *Config) { c.Telegram.RunMode = "push" },
		"poll timeout":  func(c *Config) { c.Telegram.LongPollTimeoutSeconds = -1 },
		"api url":       func(c *Config) { c.Telegram.APIURL = "localhost" },
		"rotation":      func(c *Config) { c.Logging.MaxBackups = -1 },
		"rate interval": func(c *Config) { c.RateLimit.IntervalMS = -5 },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := validConfig()
			mutate(cfg)
			require.Error(t, Normalize(cfg))
		})
	}
	require.Error(t, Normalize(nil))
}
