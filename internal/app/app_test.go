package app

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/m3rciful/combogate/core/bootstrap"
	coreconfig "github.com/m3rciful/combogate/core/config"
	tg "github.com/m3rciful/combogate/core/telegram"
	"github.com/m3rciful/combogate/internal/combo"
	"github.com/m3rciful/combogate/internal/metrics"
	"github.com/m3rciful/combogate/internal/payment"
	"github.com/m3rciful/combogate/internal/refresh"
	"github.com/m3rciful/combogate/internal/state"
)

type staticSource struct {
	mu    sync.Mutex
	text  string
	calls int
}

func (s *staticSource) Fetch(context.Context, string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	return s.text, nil
}

type paidClient struct{}

func (paidClient) CreateInvoice(_ context.Context, req payment.InvoiceRequest) (payment.Invoice, error) {
	return payment.Invoice{ID: 5, Status: payment.StatusPending, Payload: req.Payload, PayURL: "https://pay.example/5"}, nil
}

func (paidClient) GetInvoice(_ context.Context, id int64) (payment.Invoice, error) {
	return payment.Invoice{ID: id, Status: payment.StatusPaid, Payload: "42"}, nil
}

func noInfra(context.Context, bootstrap.Options) (*bootstrap.Result, error) {
	return &bootstrap.Result{}, nil
}

func testConfig(t *testing.T) *Config {
	t.Helper()
	cfg := &Config{
		Config: coreconfig.Config{
			Telegram: coreconfig.TelegramConfig{Token: "t", AdminID: 1, Username: "combo_bot"},
		},
		Storage: StorageConfig{Path: filepath.Join(t.TempDir(), "state.json")},
		Refresh: RefreshConfig{SourceURL: "https://codes.example/today"},
		Payment: PaymentConfig{Token: "pay"},
	}
	require.NoError(t, coreconfig.Normalize(&cfg.Config))
	require.NoError(t, Normalize(cfg))
	return cfg
}

func TestNewSeedsSourceURLAndServesCommands(t *testing.T) {
	cfg := testConfig(t)
	a, err := New(context.Background(), cfg, Deps{
		Bootstrap: noInfra,
		Source:    &staticSource{text: "**A** `B`"},
		Payments:  paidClient{},
	})
	require.NoError(t, err)
	require.Equal(t, "https://codes.example/today", a.Store().Snapshot().SourceURL)
	require.Equal(t, state.DefaultContent, a.Store().Snapshot().Content)

	resp := a.Service().Handle(context.Background(), combo.Event{UserID: 42, Command: combo.CmdCheck, Payload: "5"})
	require.NotEmpty(t, resp.Text)
	require.True(t, a.Store().IsEntitled(42))

	rep := a.Scheduler().RunOnce(context.Background())
	require.Equal(t, "**A** `B`", a.Store().Snapshot().Content)
	require.NoError(t, rep.Err)
	require.Equal(t, refresh.OutcomeUpdated, rep.Outcome)
	// the notifier is only bound once the bot runs
	require.False(t, rep.Notified)

	require.NoError(t, a.Close(context.Background()))
	_, err = os.Stat(cfg.Storage.Path)
	require.NoError(t, err)
}

func TestClearedSourceURLSurvivesRestart(t *testing.T) {
	cfg := testConfig(t)
	deps := Deps{Bootstrap: noInfra, Source: &staticSource{text: "x"}, Payments: paidClient{}}

	a, err := New(context.Background(), cfg, deps)
	require.NoError(t, err)
	require.NoError(t, a.Store().SetSourceURL(context.Background(), ""))
	require.NoError(t, a.Close(context.Background()))

	a, err = New(context.Background(), cfg, deps)
	require.NoError(t, err)
	require.Empty(t, a.Store().Snapshot().SourceURL)
	require.NoError(t, a.Close(context.Background()))
}

func TestLifecycleHooks(t *testing.T) {
	cfg := testConfig(t)
	cfg.Metrics.Addr = "127.0.0.1:0"
	src := &staticSource{text: "fresh"}
	a, err := New(context.Background(), cfg, Deps{Bootstrap: noInfra, Source: src, Payments: paidClient{}})
	require.NoError(t, err)

	opts, err := a.TelegramRunOptions()
	require.NoError(t, err)
	require.NotEmpty(t, opts.Routes)
	require.Same(t, &cfg.Config, opts.Config)

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, opts.OnStart(ctx, tg.Runtime{}))
	require.NotNil(t, a.metricsSrv)
	cancel()
	require.NoError(t, opts.OnStop(ctx, tg.Runtime{}))

	doc, err := state.NewFileBackend(cfg.Storage.Path).Load(context.Background())
	require.NoError(t, err)
	require.Equal(t, "fresh", doc.Content)
}

func TestNewUsesInjectedBackend(t *testing.T) {
	cfg := testConfig(t)
	cfg.Storage.Backend = StorageRedis
	backend := state.NewFileBackend(filepath.Join(t.TempDir(), "other.json"))

	var seen bootstrap.Options
	a, err := New(context.Background(), cfg, Deps{
		Bootstrap: func(_ context.Context, opts bootstrap.Options) (*bootstrap.Result, error) {
			seen = opts
			return &bootstrap.Result{}, nil
		},
		Backend:  backend,
		Source:   &staticSource{text: "x"},
		Payments: paidClient{},
	})
	require.NoError(t, err)
	require.Nil(t, seen.Redis)
	require.Same(t, backend, a.Store().Backend())
}

func TestObserveOutbound(t *testing.T) {
	before := testutil.ToFloat64(metrics.OutboundCalls.WithLabelValues("send", "timeout"))
	observeOutbound("send", context.DeadlineExceeded)
	observeOutbound("send", nil)
	require.Equal(t, before+1, testutil.ToFloat64(metrics.OutboundCalls.WithLabelValues("send", "timeout")))
}
