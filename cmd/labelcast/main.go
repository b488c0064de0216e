package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "labelcast/docs"
	"labelcast/internal/archive"
	"labelcast/internal/chat"
	"labelcast/internal/clock"
	"labelcast/internal/config"
	"labelcast/internal/countdown"
	"labelcast/internal/extract"
	"labelcast/internal/handlers"
	"labelcast/internal/logger"
	"labelcast/internal/niimbot"
	"labelcast/internal/notify"
	"labelcast/internal/placement"
	"labelcast/internal/render"
	"labelcast/internal/repository"
	"labelcast/internal/repository/db"
	"labelcast/internal/server"
	"labelcast/internal/service"

	"github.com/spf13/pflag"
)

const shutdownTimeout = 10 * time.Second

func main() {
	fs := config.NewFlagSet(os.Args[0])
	if err := fs.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		os.Exit(2)
	}
	cfg, err := config.Load(fs)
	if err != nil {
		logger.Get(logger.InfoLevel).Fatalw("error reading config", "err", err)
	}
	log := logger.Get(cfg.Log.Level)

	sqlDB, err := openDB(cfg, log)
	if err != nil {
		log.Fatalw("failed to init sqlite", "err", err)
	}

	if err := run(cfg, sqlDB, log); err != nil {
		log.Errorw("labelcast_stopped", "err", err)
		_ = sqlDB.Close()
		os.Exit(1)
	}
	if err := sqlDB.Close(); err != nil {
		log.Errorw("failed to close sqlite", "err", err)
	}
}

func run(cfg *config.Config, sqlDB *sql.DB, log *logger.Logger) error {
	clk := clock.Real()
	repos := repository.NewRepository(sqlDB)

	icons, err := loadIcons(cfg, log)
	if err != nil {
		return err
	}

	notifier := notify.NewNtfy(cfg.Notify.URL, log.Named("notify"))

	session, err := openPrinter(cfg, clk, notifier, log)
	if err != nil {
		return err
	}
	if session != nil {
		defer func() { _ = session.Close() }()
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sd := service.NewShutdown()
	cmds := service.NewCommands(log.Named("commands"))
	queue := service.NewPrintQueue(cfg.Pipeline.QueueSize)
	hub := countdown.NewHub()
	injector := chat.NewInjector()
	defer func() { _ = injector.Close() }()
	settings := service.JobSettings{
		Quantity:  cfg.Printer.Quantity,
		Density:   cfg.Printer.Density,
		LabelType: cfg.Printer.LabelType,
	}

	sources := []service.ChatSource{injector}
	if cfg.Chat.Enabled {
		tw := chat.NewTwitch(chat.TwitchConfig{
			URL:      cfg.Chat.URL,
			Channel:  cfg.Chat.Channel,
			Username: cfg.Chat.Username,
			Token:    cfg.Chat.Token,
			Admins:   cfg.Chat.Admins,
		}, clk, log.Named("chat"))
		go tw.Run(ctx)
		defer func() { _ = tw.Close() }()
		sources = append(sources, tw)
	}

	var extractor service.Extractor
	if cfg.ExtractorEnabled() {
		extractor = extract.NewOpenAI(cfg.Extractor.URL, cfg.Extractor.OpenAIAPIKey, cfg.Extractor.Model, cfg.Extractor.Prompt, cfg.Extractor.Timeout)
	}
	bounds := placement.Bounds{Width: cfg.Canvas.Width, Height: cfg.Canvas.Height, MaxSize: cfg.Canvas.MaxSize}

	var printer service.Printer
	if session != nil {
		printer = session
	}
	pipeline := &service.Pipeline{
		Orchestrator: service.NewOrchestrator(service.OrchestratorConfig{
			AutoShutdown: cfg.Printer.AutoShutdown,
			Disabled:     cfg.Printer.Disabled,
		}, service.OrchestratorDeps{
			Printer:   printer,
			Queue:     queue,
			Shutdown:  sd,
			Clock:     clk,
			Log:       log.Named("orchestrator"),
			Notifier:  notifier,
			StateRepo: repos.StateRepo,
			EventRepo: repos.EventRepo,
			JobRepo:   repos.JobRepo,
		}),
		Render: service.NewRenderLoop(cfg.Canvas.Width, cfg.Canvas.Height, settings, service.RenderDeps{
			Commands: cmds,
			Queue:    queue,
			Placer:   render.New(icons, cfg.Canvas.InvertOverlappingText),
			Archiver: archiver(cfg),
			Shutdown: sd,
			Clock:    clk,
			Log:      log.Named("render"),
		}),
		Countdown: service.NewCountdownWorker(cfg.Countdown.ClockTime, cfg.Countdown.Prefix, service.CountdownDeps{
			Sink:      statusSink(cfg),
			Publisher: hub,
			Commands:  cmds,
			Shutdown:  sd,
			Clock:     clk,
			Log:       log.Named("countdown"),
		}),
		Ingest: service.NewIngestWorker(service.IngestDeps{
			Sources:   sources,
			Moderator: service.NewModerator(cfg.Moderation.Enabled, cfg.Moderation.BannedWords),
			Resolver:  service.NewPlacementResolver(extractor, bounds, log.Named("placement")),
			Commands:  cmds,
			Shutdown:  sd,
			EventRepo: repos.EventRepo,
			Notifier:  notifier,
			Clock:     clk,
			Log:       log.Named("ingest"),
		}),
		Shutdown: sd,
		Log:      log,
	}

	services := service.NewService(repos, service.Deps{
		Commands:  cmds,
		Queue:     queue,
		Injector:  injector,
		Hub:       hub,
		Settings:  settings,
		JWTSecret: cfg.Auth.JWTSecret,
		TokenTTL:  cfg.Auth.TokenTTL,
	})
	srv := &server.Server{}
	runHTTPServer(srv, cfg.Port, handlers.NewHandler(services, log.Named("http")), log)
	defer shutdownHTTP(srv, log)

	go waitForSignal(ctx, sd, log)

	return pipeline.Run(ctx)
}

// archiver and statusSink return untyped nils so the workers see the
// optional dependency as absent.
func archiver(cfg *config.Config) service.Archiver {
	if cfg.Archive.Path == "" {
		return nil
	}
	return archive.New(cfg.Archive.Path)
}

func statusSink(cfg *config.Config) service.StatusSink {
	if cfg.Countdown.File == "" {
		return nil
	}
	return countdown.NewFileSink(cfg.Countdown.File)
}

// openDB initializes the SQLite database using configuration.
func openDB(cfg *config.Config, log *logger.Logger) (*sql.DB, error) {
	path := cfg.DB.Path
	if path == "" {
		log.Infow("db.path not set in config; using default file", "default", "app.db")
		path = "app.db"
	}
	return db.InitDB(path)
}

func loadIcons(cfg *config.Config, log *logger.Logger) (*render.Icons, error) {
	if cfg.Icons.Path == "" {
		return render.NoIcons(), nil
	}
	icons, err := render.LoadIcons(cfg.Icons.Path)
	if errors.Is(err, os.ErrNotExist) {
		log.Warnw("icon_library_missing", "path", cfg.Icons.Path)
		return render.NoIcons(), nil
	}
	if err != nil {
		return nil, err
	}
	log.Infow("icon_library_loaded", "path", cfg.Icons.Path, "icons", icons.Len())
	return icons, nil
}

// openPrinter returns nil when the printer is disabled. A transport that
// won't open is alerted before the error is returned.
func openPrinter(cfg *config.Config, clk clock.Clock, n service.Notifier, log *logger.Logger) (*niimbot.Session, error) {
	if cfg.Printer.Disabled {
		return nil, nil
	}
	tr, err := niimbot.OpenTransport(niimbot.TransportConfig{
		Kind:         cfg.Printer.Transport,
		SerialDevice: cfg.Printer.SerialDevice,
	})
	if err != nil {
		err = fmt.Errorf("open printer: %w", err)
		service.Alert(context.Background(), n, log, notify.Message{
			Title:    "Label printer unavailable",
			Body:     err.Error(),
			Priority: notify.PriorityUrgent,
			Tags:     []string{"warning", "printer"},
		})
		return nil, err
	}
	log.Infow("printer_transport_open", "transport", cfg.Printer.Transport)
	return niimbot.NewSession(tr, clk, log.Named("niimbot")), nil
}

func runHTTPServer(srv *server.Server, port string, h *handlers.Handler, log *logger.Logger) {
	go func() {
		if err := srv.Run(port, h.InitRoutes()); err != nil {
			log.Errorw("http_server_failed", "err", err)
		}
	}()
}

func shutdownHTTP(srv *server.Server, log *logger.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Errorw("server forced to shutdown", "err", err)
	}
}

// waitForSignal turns SIGINT/SIGTERM into a cooperative shutdown.
func waitForSignal(ctx context.Context, sd *service.Shutdown, log *logger.Logger) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)
	select {
	case s := <-quit:
		log.Infow("shutting down", "signal", s.String())
		sd.Trip("signal " + s.String())
	case <-ctx.Done():
	case <-sd.Done():
	}
}
