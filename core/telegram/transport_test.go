package telegram

import (
	"bytes"
	"context"
	"io"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	tele "gopkg.in/telebot.v4"

	coreconfig "github.com/m3rciful/combogate/core/config"
	"github.com/m3rciful/combogate/core/netutil"
)

func TestNewPoller(t *testing.T) {
	cfg := &coreconfig.Config{Telegram: coreconfig.TelegramConfig{RunMode: coreconfig.RunModeLongpoll, LongPollTimeoutSeconds: 20}}
	lp, ok := NewPoller(cfg).(*tele.LongPoller)
	require.True(t, ok)
	require.Equal(t, 20*time.Second, lp.Timeout)
	require.Equal(t, AllowedUpdates, lp.AllowedUpdates)

	cfg.Telegram.RunMode = coreconfig.RunModeWebhook
	cfg.Webhook = coreconfig.WebhookConfig{URL: "https://bot.example/hook", Listen: "0.0.0.0", Port: 8443, Secret: "s3"}
	wh, ok := NewPoller(cfg).(*tele.Webhook)
	require.True(t, ok)
	require.Equal(t, "0.0.0.0:8443", wh.Listen)
	require.Equal(t, "s3", wh.SecretToken)
	require.Equal(t, "https://bot.example/hook", wh.Endpoint.PublicURL)
}

func TestNewHTTPClientOutlastsPolling(t *testing.T) {
	c := NewHTTPClient(30 * time.Second)
	require.Greater(t, c.Timeout, 30*time.Second)
}

type flakyTripper struct {
	fails  int
	calls  int
	bodies []string
}

func (f *flakyTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	f.calls++
	if req.Body != nil {
		b, _ := io.ReadAll(req.Body)
		f.bodies = append(f.bodies, string(b))
	}
	if f.calls <= f.fails {
		return nil, &net.OpError{Op: "dial", Err: io.ErrUnexpectedEOF}
	}
	return &http.Response{StatusCode: http.StatusOK, Body: io.NopCloser(bytes.NewReader(nil))}, nil
}

func noSleep(context.Context, time.Duration) error { return nil }

func TestRetryTransportReplaysBody(t *testing.T) {
	next := &flakyTripper{fails: 2}
	rt := &retryTransport{next: next, policy: netutil.Policy{Attempts: 3, Retryable: netutil.ShouldRetry, Sleep: noSleep}}

	req, err := http.NewRequest(http.MethodPost, "https://api.telegram.org/botX/sendMessage", bytes.NewBufferString(`{"text":"hi"}`))
	require.NoError(t, err)
	resp, err := rt.RoundTrip(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, 3, next.calls)
	require.Equal(t, []string{`{"text":"hi"}`, `{"text":"hi"}`, `{"text":"hi"}`}, next.bodies)
}

func TestRetryTransportSingleShotForStreams(t *testing.T) {
	next := &flakyTripper{fails: 1}
	rt := &retryTransport{next: next, policy: netutil.Policy{Attempts: 3, Retryable: netutil.ShouldRetry, Sleep: noSleep}}

	req, err := http.NewRequest(http.MethodPost, "https://api.telegram.org/botX/sendDocument", io.NopCloser(bytes.NewBufferString("file")))
	require.NoError(t, err)
	_, err = rt.RoundTrip(req)
	require.Error(t, err)
	require.Equal(t, 1, next.calls)
}
