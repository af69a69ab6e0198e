package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/afero"
	cli "github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"

	"github.com/lmittmann/tint"
	log "log/slog"

	"gpthome/internal/config"
	"gpthome/internal/display"
	"gpthome/internal/eventlog"
	"gpthome/internal/ipc"
	"gpthome/internal/llm"
	"gpthome/internal/narrate"
	"gpthome/internal/netcheck"
	"gpthome/internal/observe"
	"gpthome/internal/session"
	"gpthome/internal/wake"
	"gpthome/internal/web"
	"gpthome/pkg/stt"
)

var version = "dev"

func setLogger(level log.Level) {
	log.SetDefault(log.New(tint.NewHandler(os.Stdout, &tint.Options{
		Level: level,
	})))
}

func fatal(msg string, args ...any) {
	log.Error(msg, args...)
	os.Exit(1)
}

func main() {
	configPath := cli.StringP("config", "c", "", "Config file path")
	envFile := cli.StringP("env", "e", ".env", "Env file path")
	logLevel := cli.StringP("log", "l", "", "Log level (overrides log_level)")
	cli.Parse()

	setLogger(config.LogLevel(*logLevel).Level())

	log.Info("Booting up", "version", version)

	if err := godotenv.Load(*envFile); err != nil {
		log.Debug("No env file loaded", "path", *envFile, "err", err)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fatal("Failed to load config", "err", err)
	}
	if *logLevel == "" {
		setLogger(cfg.LogLevel.Level())
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	metricsHandler, shutdownMetrics, err := observe.InitProvider(ctx, observe.ProviderConfig{ServiceVersion: version})
	if err != nil {
		fatal("Failed to init metrics", "err", err)
	}
	defer shutdownMetrics(context.WithoutCancel(ctx))
	metrics := observe.DefaultMetrics()

	reporter, err := openDisplay(cfg.Display)
	if err != nil {
		fatal("Failed to init display", "driver", cfg.Display.Driver, "err", err)
	}
	defer reporter.Close()

	prober := netcheck.NewProber()
	ip, err := prober.LocalIP(ctx)
	if err != nil {
		log.Warn("No local address yet", "err", err)
		ip = "-"
	}
	if err := reporter.Init(ctx, ip); err != nil {
		fatal("Failed to init display", "err", err)
	}
	if err := reporter.SetStatus("Initializing"); err != nil {
		log.Warn("Failed to show status", "err", err)
	}

	log.Debug("Loaded display", "driver", cfg.Display.Driver, "ip", ip)

	elog, err := eventlog.Open(afero.NewOsFs(), cfg.EventLog)
	if err != nil {
		fatal("Failed to open event log", "err", err)
	}
	defer elog.Close()

	log.Debug("Loaded event log", "path", elog.Path())

	client, err := newOpenAIClient(cfg.OpenAI)
	if err != nil {
		fatal("Failed to init OpenAI client", "err", err)
	}

	log.Debug("Loaded OpenAI client")

	player := newPlayer(cfg.Audio)
	speaker, err := newSpeaker(cfg, client, player)
	if err != nil {
		fatal("Failed to init speech synthesis", "backend", cfg.TTS.Backend, "err", err)
	}
	narrator := narrate.New(speaker, reporter)

	log.Debug("Loaded speaker", "backend", cfg.TTS.Backend)

	src, closeSrc, err := newSource(cfg.Audio)
	if err != nil {
		fatal("Failed to init audio", "source", cfg.Audio.Source, "err", err)
	}
	defer closeSrc()

	rec, closeRec, err := newRecognizer(cfg.STT, client)
	if err != nil {
		fatal("Failed to init speech recognition", "backend", cfg.STT.Backend, "err", err)
	}
	defer closeRec()

	listener, err := stt.NewListener(src, rec)
	if err != nil {
		fatal("Failed to init listener", "err", err)
	}

	log.Debug("Loaded listener", "source", cfg.Audio.Source, "backend", cfg.STT.Backend)

	scfg := &session.Config{
		Transcriber: listener,
		Completer: llm.New(client, llm.Options{
			Model:        cfg.LLM.Model,
			SystemPrompt: cfg.LLM.SystemPrompt,
			MaxTokens:    cfg.LLM.MaxTokens,
		}),
		Narrator: narrator,
		Status:   reporter,
		Log:      elog,
		Wake: wake.Matcher{
			Keyword:    cfg.Wake.Keyword,
			IgnoreCase: cfg.Wake.IgnoreCase,
			Phonetic:   cfg.Wake.Phonetic,
		},
		Metrics: metrics,
	}
	if chime := newChime(cfg.Audio, player); chime != nil {
		scfg.Chime = chime
	}
	loop, err := session.New(scfg)
	if err != nil {
		fatal("Failed to init session", "err", err)
	}

	log.Info("Boot up - successful")

	g, gctx := errgroup.WithContext(ctx)

	if cfg.Web.Listen != "" {
		srv, err := web.New(web.Options{
			Log: elog,
			Ready: func(ctx context.Context) error {
				if !prober.Connected(ctx) {
					return errors.New(netcheck.NotConnected)
				}
				return nil
			},
			Metrics: metricsHandler,
		})
		if err != nil {
			fatal("Failed to init dashboard API", "err", err)
		}
		g.Go(func() error { return srv.Serve(gctx, cfg.Web.Listen) })
	}

	if cfg.IPC.Socket != "" {
		backend := ipc.Backend{Status: reporter.Status, Tail: elog.Tail}
		g.Go(func() error { return ipc.Serve(gctx, cfg.IPC.Socket, backend.Handle) })
	}

	g.Go(func() error {
		gate := &netcheck.Gate{
			Probe:    &countingProbe{Probe: prober, metrics: metrics},
			Alert:    narrator,
			Log:      elog,
			Interval: cfg.Network.PollInterval,
		}
		if err := gate.Wait(gctx); err != nil {
			return err
		}
		log.Info("Network connected")
		return loop.Run(gctx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		log.Error("Stopped", "err", err)
		os.Exit(1)
	}
	log.Info("Shutting down")
}
