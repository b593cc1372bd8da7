// Package app assembles the combo bot from configuration: state backend,
// refresh scheduler, payment workflow, command service and telegram adapter.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"

	"github.com/m3rciful/combogate/core/bootstrap"
	"github.com/m3rciful/combogate/core/logger"
	tg "github.com/m3rciful/combogate/core/telegram"
	"github.com/m3rciful/combogate/core/telegram/sender"
	"github.com/m3rciful/combogate/internal/bot"
	"github.com/m3rciful/combogate/internal/combo"
	"github.com/m3rciful/combogate/internal/metrics"
	"github.com/m3rciful/combogate/internal/payment"
	"github.com/m3rciful/combogate/internal/refresh"
	"github.com/m3rciful/combogate/internal/state"
)

const shutdownTimeout = 10 * time.Second

// Deps overrides infrastructure, mainly in tests.
type Deps struct {
	// Bootstrap replaces bootstrap.Run.
	Bootstrap func(context.Context, bootstrap.Options) (*bootstrap.Result, error)
	// Backend bypasses storage selection entirely.
	Backend  state.Backend
	Source   refresh.Source
	Payments payment.Client
	Clock    refresh.Clock
}

// App owns every long-lived component of the bot.
type App struct {
	cfg *Config

	store     *state.Controller
	scheduler *refresh.Scheduler
	workflow  *payment.Workflow
	service   *combo.Service
	notifier  *bot.Notifier
	adapter   *bot.Adapter
	registry  *tg.Registry

	metricsReg *prometheus.Registry
	metricsSrv *metrics.Server
}

// New initializes logging and storage and wires the components.
func New(ctx context.Context, cfg *Config, deps Deps) (*App, error) {
	if cfg == nil {
		return nil, errors.New("app: nil config")
	}
	backend, err := openBackend(ctx, cfg, deps)
	if err != nil {
		return nil, err
	}

	a := &App{cfg: cfg}
	a.store = state.Open(ctx, backend)
	if u := cfg.Refresh.SourceURL; u != "" && a.store.Fresh() {
		if err := a.store.SetSourceURL(ctx, u); err != nil {
			logger.Warn(ctx, "app", "source_url.seed_failed", slog.String("err", err.Error()))
		}
	}

	loc, err := cfg.Refresh.Location()
	if err != nil {
		_ = backend.Close()
		return nil, err
	}
	schedule, err := refresh.ParseSchedule(cfg.Refresh.ScheduleSpec())
	if err != nil {
		_ = backend.Close()
		return nil, err
	}

	a.notifier = bot.NewNotifier(cfg.Telegram.AdminID)
	source := deps.Source
	if source == nil {
		source = buildSource(cfg.Refresh)
	}
	a.scheduler, err = refresh.NewScheduler(refresh.Options{
		Store:      a.store,
		Source:     source,
		Notifier:   a.notifier,
		Schedule:   schedule,
		RunOnStart: !cfg.Refresh.SkipInitialRun,
		Clock:      deps.Clock,
		Location:   loc,
	})
	if err != nil {
		_ = backend.Close()
		return nil, err
	}

	client := deps.Payments
	if client == nil {
		cp := payment.NewCryptoPayClient(cfg.Payment.BaseURL, cfg.Payment.Token, nil)
		if cfg.Payment.TimeoutSeconds > 0 {
			cp.Timeout = time.Duration(cfg.Payment.TimeoutSeconds) * time.Second
		}
		client = cp
	}
	a.workflow = payment.NewWorkflow(client, a.store, payment.Config{
		Asset:       cfg.Payment.Asset,
		Amount:      cfg.Payment.Amount,
		Description: cfg.Payment.Description,
		BotUsername: cfg.Telegram.Username,
		AdminID:     cfg.Telegram.AdminID,
	})

	a.service = combo.NewService(combo.Options{
		Store:     a.store,
		Payments:  a.workflow,
		Refresher: a.scheduler,
		Texts:     cfg.Content.Texts,
		Location:  loc,
	})
	a.adapter = bot.New(bot.Options{
		Service:      a.service,
		AdminID:      cfg.Telegram.AdminID,
		PromptTTL:    cfg.Content.PromptTTL(),
		CancelButton: cfg.Content.CancelButton,
		Cancelled:    cfg.Content.Cancelled,
	})
	a.registry = tg.NewRegistry()
	if err := a.adapter.Register(a.registry); err != nil {
		_ = backend.Close()
		return nil, fmt.Errorf("app: register handlers: %w", err)
	}

	a.metricsReg = prometheus.NewRegistry()
	a.metricsReg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics.RegisterCollectors(a.metricsReg)

	logger.Info(ctx, "app", "wired",
		slog.String("storage", backend.Name()),
		slog.String("source", cfg.Refresh.Source),
		slog.String("schedule", cfg.Refresh.ScheduleSpec()),
		slog.Int("subscribers", a.store.Subscribers()),
	)
	return a, nil
}

// openBackend initializes the logger and the connection the selected storage needs.
func openBackend(ctx context.Context, cfg *Config, deps Deps) (state.Backend, error) {
	opts := bootstrap.Options{Config: &cfg.Config}
	switch cfg.Storage.Backend {
	case StoragePostgres:
		db := cfg.Storage.Database
		opts.Database = &db
	case StorageRedis:
		opts.Redis = &redis.Options{
			Addr:     cfg.Storage.Redis.Addr,
			Password: cfg.Storage.Redis.Password,
			DB:       cfg.Storage.Redis.DB,
		}
	}
	if deps.Backend != nil {
		opts.Database, opts.Redis = nil, nil
	}

	run := deps.Bootstrap
	if run == nil {
		run = bootstrap.Run
	}
	infra, err := run(ctx, opts)
	if err != nil {
		return nil, err
	}
	if deps.Backend != nil {
		return deps.Backend, nil
	}

	switch cfg.Storage.Backend {
	case StoragePostgres:
		backend, err := state.NewPostgresBackend(ctx, infra.DB)
		if err != nil {
			_ = infra.Close()
			return nil, err
		}
		return backend, nil
	case StorageRedis:
		return state.NewRedisBackend(infra.Redis, cfg.Storage.Redis.Key), nil
	}
	return state.NewFileBackend(cfg.Storage.Path), nil
}

func buildSource(cfg RefreshConfig) refresh.Source {
	httpSource := refresh.NewHTTPSource(nil)
	if cfg.TimeoutSeconds > 0 {
		httpSource.Timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	if cfg.Source != SourceCards {
		return httpSource
	}
	cards := refresh.NewCardsSource(httpSource)
	if cfg.CardClass != "" {
		cards.CardClass = cfg.CardClass
	}
	if cfg.CardLimit > 0 {
		cards.Limit = cfg.CardLimit
	}
	return cards
}

// Config returns the effective configuration.
func (a *App) Config() *Config { return a.cfg }

// Store exposes the state controller.
func (a *App) Store() *state.Controller { return a.store }

// Scheduler exposes the refresh scheduler.
func (a *App) Scheduler() *refresh.Scheduler { return a.scheduler }

// Service exposes the command service.
func (a *App) Service() *combo.Service { return a.service }

// Notifier exposes the admin notifier; it must be bound before it can send.
func (a *App) Notifier() *bot.Notifier { return a.notifier }

// Gatherer exposes the metrics registry.
func (a *App) Gatherer() prometheus.Gatherer { return a.metricsReg }

// TelegramRunOptions assembles the runtime options for the telegram core.
func (a *App) TelegramRunOptions() (tg.RunOptions, error) {
	core := &a.cfg.Config
	return tg.RunOptions{
		Config:            core,
		Registry:          a.registry,
		DispatcherOptions: sender.Options{Observe: observeOutbound},
		Middlewares:       tg.DefaultMiddlewares(core, nil),
		Routes:            a.adapter.Routes(a.registry),
		OnStart:           a.onStart,
		OnStop:            a.onStop,
	}, nil
}

func observeOutbound(action string, err error) {
	result := "ok"
	if err != nil {
		result = sender.Kind(err)
	}
	metrics.OutboundCalls.WithLabelValues(action, result).Inc()
}

func (a *App) onStart(ctx context.Context, rt tg.Runtime) error {
	if rt.Bot != nil {
		a.notifier.Bind(rt.Bot)
	}
	if addr := a.cfg.Metrics.Addr; addr != "" {
		srv, err := metrics.Listen(addr, a.metricsReg)
		if err != nil {
			return fmt.Errorf("app: metrics listen: %w", err)
		}
		a.metricsSrv = srv
		go srv.Serve()
	}
	a.scheduler.Start(ctx)
	return nil
}

func (a *App) onStop(ctx context.Context, _ tg.Runtime) error {
	a.scheduler.Wait()
	a.notifier.Bind(nil)

	stopCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()

	var errs []error
	if a.metricsSrv != nil {
		errs = append(errs, a.metricsSrv.Shutdown(stopCtx))
		a.metricsSrv = nil
	}
	errs = append(errs, a.Close(stopCtx))
	return errors.Join(errs...)
}

// Close flushes the state document and releases the backend.
func (a *App) Close(ctx context.Context) error {
	flushErr := a.store.Flush(ctx)
	closeErr := a.store.Backend().Close()
	if flushErr != nil {
		return fmt.Errorf("app: flush state: %w", flushErr)
	}
	return closeErr
}
