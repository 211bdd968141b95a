// Package app wires the daemon together: config, logging, ledger,
// channels, generator, pipeline, HTTP server, and background workers.
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"

	"jobcaster/internal/channel"
	"jobcaster/internal/config"
	"jobcaster/internal/dispatch"
	"jobcaster/internal/eventbus"
	"jobcaster/internal/generate"
	"jobcaster/internal/health"
	"jobcaster/internal/observability/pprof"
	"jobcaster/internal/process"
	"jobcaster/internal/publish"
	"jobcaster/internal/runtime/supervisor"
	"jobcaster/internal/server"
	"jobcaster/internal/webhook"
	logx "jobcaster/pkg/logx"
)

type App struct {
	cfgMgr *config.Manager
	logSvc *logx.Service
	log    logx.Logger

	bus     eventbus.Bus
	ledger  publish.Ledger
	handler *webhook.Handler
	prober  *health.Prober
	server  *server.Server
	debug   *pprof.Service
	sup     *supervisor.Supervisor
}

// New loads and validates the config, then builds every component. The
// returned App owns the ledger and log service until Run returns.
func New(ctx context.Context, configPath string) (*App, error) {
	mgr := config.NewManager(configPath)
	mgr.SetValidator(config.Validate)
	cfg, err := mgr.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := config.Validate(ctx, cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	logSvc, log := logx.New(logx.Config{
		Level:   cfg.Logging.Level,
		Console: cfg.Logging.Console,
		File: logx.FileConfig{
			Enabled: cfg.Logging.File.Enabled,
			Path:    cfg.Logging.File.Path,
		},
		Chat: logx.ChatConfig{
			Enabled:    cfg.Logging.Chat.Enabled,
			MinLevel:   cfg.Logging.Chat.MinLevel,
			RatePerSec: cfg.Logging.Chat.RatePerSec,
		},
	}, nil)
	mgr.SetLogger(log.With(logx.String("svc", "config")))

	a := &App{cfgMgr: mgr, logSvc: logSvc, log: log}
	if err := a.build(ctx, cfg); err != nil {
		_ = logSvc.Close()
		return nil, err
	}
	return a, nil
}

func (a *App) build(ctx context.Context, cfg *config.Config) error {
	a.bus = eventbus.New()

	busyTimeout, _ := config.ParseDurationField("ledger.busy_timeout", cfg.Ledger.BusyTimeout)
	ledger, err := publish.Open(ctx, publish.Config{
		Driver:      cfg.Ledger.Driver,
		Path:        cfg.Ledger.Path,
		RedisURL:    cfg.Ledger.RedisURL,
		BusyTimeout: busyTimeout.Milliseconds(),
	}, a.log.With(logx.String("svc", "ledger")))
	if err != nil {
		return fmt.Errorf("open ledger: %w", err)
	}
	a.ledger = ledger

	adapters, chat, err := a.buildChannels(cfg)
	if err != nil {
		return err
	}
	if chat != nil {
		// Chat room doubles as the warn+ log sink.
		a.logSvc.SetSender(chat)
	}

	gen, err := a.buildGenerator(cfg)
	if err != nil {
		return err
	}

	coord := dispatch.NewCoordinator(adapters, a.log.With(logx.String("svc", "dispatch")))
	proc := process.New(process.Site{
		BaseURL:            cfg.Site.BaseURL,
		DefaultCompanySlug: cfg.Site.DefaultCompanySlug,
	}, gen, coord, a.bus, a.log.With(logx.String("svc", "process")))

	healthTimeout, _ := config.ParseDurationOrDefault("health.timeout", cfg.Health.Timeout, 30*time.Second)
	if cfg.Health.Enabled {
		a.prober = health.NewProber(adapters, healthTimeout, a.bus, a.log.With(logx.String("svc", "health")))
	}

	// The supervisor hosts both the long-running workers and the detached
	// per-event dispatch tasks, so one panicking event cannot take down
	// unrelated in-flight work.
	a.sup = supervisor.New(ctx, supervisor.WithLogger(a.log.With(logx.String("svc", "supervisor"))))

	spawn := webhook.Spawn(func(name string, fn func(ctx context.Context)) {
		a.sup.Go0(name, fn)
	})
	run := func(ctx context.Context, job webhook.Job) {
		_, _ = proc.Process(ctx, job)
	}
	a.handler = webhook.NewHandler(handlerOptions(cfg), ledger, spawn, run, a.log.With(logx.String("svc", "webhook")))

	shutdownTimeout, _ := config.ParseDurationOrDefault("server.shutdown_timeout", cfg.Server.ShutdownTimeout, 10*time.Second)
	a.server = server.New(server.Config{
		Address:         cfg.Server.Address,
		WebhookPath:     cfg.Server.WebhookPath,
		ShutdownTimeout: shutdownTimeout,
	}, a.handler, a.prober, a.log.With(logx.String("svc", "http")))

	a.debug = pprof.New(debugConfig(cfg), a.log)
	return nil
}

func debugConfig(cfg *config.Config) pprof.Config {
	return pprof.Config{
		Enabled:       cfg.Debug.Enabled,
		Addr:          cfg.Debug.Address,
		Token:         cfg.Debug.Token,
		AllowInsecure: cfg.Debug.AllowInsecure,
	}
}

func (a *App) buildChannels(cfg *config.Config) ([]channel.Adapter, *channel.GoogleChat, error) {
	var adapters []channel.Adapter
	var chat *channel.GoogleChat
	ch := cfg.Channels

	if c := ch.LinkedIn; c != nil && c.Enabled {
		timeout, _ := config.ParseDurationField("channels.linkedin.timeout", c.Timeout)
		adapters = append(adapters, channel.NewLinkedIn(channel.LinkedInConfig{
			AccessToken:    c.AccessToken,
			OrganizationID: c.OrganizationID,
			BaseURL:        c.BaseURL,
			Timeout:        timeout,
		}, a.log))
	}
	if c := ch.Facebook; c != nil && c.Enabled {
		timeout, _ := config.ParseDurationField("channels.facebook.timeout", c.Timeout)
		adapters = append(adapters, channel.NewFacebook(channel.FacebookConfig{
			AccessToken: c.AccessToken,
			PageID:      c.PageID,
			BaseURL:     c.BaseURL,
			Timeout:     timeout,
		}, a.log))
	}
	if c := ch.GoogleChat; c != nil && c.Enabled {
		timeout, _ := config.ParseDurationField("channels.google_chat.timeout", c.Timeout)
		chat = channel.NewGoogleChat(channel.GoogleChatConfig{
			WebhookURL: c.WebhookURL,
			Timeout:    timeout,
		}, a.log)
		adapters = append(adapters, chat)
	}
	if c := ch.Telegram; c != nil && c.Enabled {
		timeout, _ := config.ParseDurationField("channels.telegram.timeout", c.Timeout)
		tg, err := channel.NewTelegram(channel.TelegramConfig{
			Token:   c.Token,
			ChatID:  c.ChatID,
			Timeout: timeout,
		}, a.log)
		if err != nil {
			return nil, nil, fmt.Errorf("telegram channel: %w", err)
		}
		adapters = append(adapters, tg)
	}
	return adapters, chat, nil
}

func (a *App) buildGenerator(cfg *config.Config) (*generate.Generator, error) {
	timeout, _ := config.ParseDurationOrDefault("generator.timeout", cfg.Generator.Timeout, generate.DefaultTimeout)
	log := a.log.With(logx.String("svc", "generate"))

	if cfg.Generator.APIKey == "" {
		a.log.Info("no generator api key, using template copy")
		return generate.New(nil, timeout, log), nil
	}
	backend, err := generate.NewOpenAI(generate.OpenAIConfig{
		APIKey:  cfg.Generator.APIKey,
		Model:   cfg.Generator.Model,
		BaseURL: cfg.Generator.BaseURL,
	})
	if err != nil {
		return nil, fmt.Errorf("generator backend: %w", err)
	}
	return generate.New(backend, timeout, log), nil
}

func handlerOptions(cfg *config.Config) webhook.Options {
	maxAge, _ := config.ParseDurationField("signature.max_age", cfg.Signature.MaxAge)
	return webhook.Options{
		Secret:  cfg.Signature.Secret,
		Headers: cfg.Signature.Headers,
		MaxAge:  maxAge,
	}
}

// Run serves until ctx is canceled, then shuts everything down.
func (a *App) Run(ctx context.Context) error {
	defer a.close()

	sup := a.sup
	sup.GoRestart("config.watch", a.cfgMgr.Watch)
	sup.Go0("config.apply", a.applyLoop)
	sup.Go0("alerts", a.alertLoop)

	a.debug.Start()
	defer a.debug.Stop(nil)

	if a.prober != nil {
		schedule := a.cfgMgr.Get().Health.Schedule
		if err := a.prober.Start(sup.Context(), schedule); err != nil {
			return fmt.Errorf("health prober: %w", err)
		}
	}

	// A listener failure (port in use, bad address) should stop the
	// daemon, not leave it running without its only ingress.
	httpErr := make(chan error, 1)
	sup.Go("http", func(ctx context.Context) error {
		err := a.server.Run(ctx)
		if err != nil {
			httpErr <- err
		}
		return err
	})

	sent, err := daemon.SdNotify(false, daemon.SdNotifyReady)
	if err != nil {
		a.log.Warn("sd_notify failed", logx.Err(err))
	} else if sent {
		a.log.Debug("sd_notify ready sent")
	}
	a.log.Info("jobcaster started")

	var runErr error
	select {
	case <-ctx.Done():
	case runErr = <-httpErr:
		a.log.Error("http server failed", logx.Err(runErr))
	}
	a.log.Info("shutting down")
	_, _ = daemon.SdNotify(false, daemon.SdNotifyStopping)

	stopCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := sup.Stop(stopCtx); err != nil && runErr == nil {
		runErr = err
	}
	return runErr
}

// applyLoop reacts to committed config reloads: logging knobs and
// signature options take effect live, everything else needs a restart.
func (a *App) applyLoop(ctx context.Context) {
	sub := a.cfgMgr.Subscribe(1)
	defer a.cfgMgr.Unsubscribe(sub)

	for {
		select {
		case <-ctx.Done():
			return
		case cfg, ok := <-sub:
			if !ok || cfg == nil {
				return
			}
			a.logSvc.Apply(logx.Config{
				Level:   cfg.Logging.Level,
				Console: cfg.Logging.Console,
				File: logx.FileConfig{
					Enabled: cfg.Logging.File.Enabled,
					Path:    cfg.Logging.File.Path,
				},
				Chat: logx.ChatConfig{
					Enabled:    cfg.Logging.Chat.Enabled,
					MinLevel:   cfg.Logging.Chat.MinLevel,
					RatePerSec: cfg.Logging.Chat.RatePerSec,
				},
			})
			a.handler.SetOptions(handlerOptions(cfg))
			a.debug.Reconfigure(ctx, debugConfig(cfg))
			a.bus.Publish(eventbus.Event{Type: eventbus.TypeConfigReload})
			a.log.Info("config applied")
		}
	}
}

// alertLoop surfaces degraded dispatches. Full failures are logged at
// error by the processor; partial failures only show up here, and the
// warn level routes them into the chat sink when that is enabled.
func (a *App) alertLoop(ctx context.Context) {
	sub, unsub := a.bus.Subscribe(16)
	defer unsub()

	for {
		select {
		case <-ctx.Done():
			return
		case e, ok := <-sub:
			if !ok {
				return
			}
			if e.Type != eventbus.TypeDispatchReport {
				continue
			}
			report, ok := e.Data.(dispatch.Report)
			if !ok {
				continue
			}
			if failed := report.Failed(); report.OverallSuccess && len(failed) > 0 {
				a.log.Warn("announcement reached only some channels",
					logx.String("job_id", report.JobID),
					logx.String("job_title", report.JobTitle),
					logx.Any("failed", failed),
					logx.Any("succeeded", report.Succeeded()))
			}
		}
	}
}

func (a *App) close() {
	if a.ledger != nil {
		if err := a.ledger.Close(); err != nil {
			a.log.Warn("ledger close failed", logx.Err(err))
		}
	}
	if a.logSvc != nil {
		_ = a.logSvc.Close()
	}
}
