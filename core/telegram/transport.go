package telegram

import (
	"context"
	"net"
	"net/http"
	"time"

	coreconfig "github.com/m3rciful/combogate/core/config"
	"github.com/m3rciful/combogate/core/netutil"

	tele "gopkg.in/telebot.v4"
)

// AllowedUpdates are the update types the bot subscribes to.
var AllowedUpdates = []string{"message", "callback_query"}

// NewPoller returns a webhook listener or a long poller for the run mode.
func NewPoller(cfg *coreconfig.Config) tele.Poller {
	if cfg.Telegram.RunMode == coreconfig.RunModeWebhook {
		return &tele.Webhook{
			Listen:         cfg.Webhook.Address(),
			SecretToken:    cfg.Webhook.Secret,
			AllowedUpdates: AllowedUpdates,
			Endpoint:       &tele.WebhookEndpoint{PublicURL: cfg.Webhook.URL},
		}
	}
	return &tele.LongPoller{
		Timeout:        cfg.Telegram.PollTimeout(),
		AllowedUpdates: AllowedUpdates,
	}
}

// NewHTTPClient returns the Bot API client. Its deadlines leave room for a
// getUpdates call that waits pollWait for updates.
func NewHTTPClient(pollWait time.Duration) *http.Client {
	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           (&net.Dialer{Timeout: 5 * time.Second, KeepAlive: 30 * time.Second}).DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          20,
		MaxIdleConnsPerHost:   10,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   5 * time.Second,
		ResponseHeaderTimeout: pollWait + 10*time.Second,
		ExpectContinueTimeout: time.Second,
	}
	return &http.Client{
		Timeout: pollWait + 20*time.Second,
		Transport: &retryTransport{
			next: transport,
			policy: netutil.Policy{
				Attempts:  3,
				BaseDelay: 500 * time.Millisecond,
				Retryable: netutil.ShouldRetry,
			},
		},
	}
}

// retryTransport repeats requests that failed before a response arrived.
// Requests whose body cannot be replayed get a single attempt.
type retryTransport struct {
	next   http.RoundTripper
	policy netutil.Policy
}

func (t *retryTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	policy := t.policy
	if req.Body != nil && req.GetBody == nil {
		policy.Attempts = 1
	}
	var resp *http.Response
	err := policy.Do(req.Context(), func(ctx context.Context, attempt int) error {
		r := req
		if attempt > 1 {
			r = req.Clone(ctx)
			if req.GetBody != nil {
				body, err := req.GetBody()
				if err != nil {
					return err
				}
				r.Body = body
			}
		}
		var err error
		resp, err = t.next.RoundTrip(r)
		return err
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}
