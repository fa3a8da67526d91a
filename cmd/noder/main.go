package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/noder-app/noder/pkg/bus"
	"github.com/noder-app/noder/pkg/config"
	"github.com/noder-app/noder/pkg/dashboard"
	"github.com/noder-app/noder/pkg/logger"
	"github.com/noder-app/noder/pkg/scheduler"
	"github.com/noder-app/noder/pkg/storage"
	"github.com/noder-app/noder/pkg/whatsapp"
)

// version is set at build time via -ldflags "-X main.version=...".
var version = "dev"

func main() {
	// Subcommands run before flag parsing so they keep their own args
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "migrate":
			migrateDataCommand()
			return
		case "export":
			if len(os.Args) < 3 {
				fmt.Println("Usage: noder export <output-dir>")
				os.Exit(1)
			}
			exportDataCommand(os.Args[2])
			return
		}
	}

	var (
		configPath  = flag.String("config", "", "path to the config database (defaults to the app data directory)")
		logLevel    = flag.String("log-level", "info", "log level (debug, info, warn, error)")
		jsonLogs    = flag.Bool("json-logs", false, "emit logs as JSON instead of console format")
		noConsole   = flag.Bool("no-console", false, "run headless without the interactive console")
		showVersion = flag.Bool("version", false, "print version and exit")
	)
	flag.Parse()

	if *showVersion {
		fmt.Println("noder", version)
		return
	}

	logger.Init(*logLevel, *jsonLogs)

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.ErrorCF("main", "Failed to load config", map[string]interface{}{
			"error": err.Error(),
		})
		os.Exit(1)
	}

	dataDir, err := config.AppDataDir()
	if err != nil {
		logger.ErrorCF("main", "Failed to resolve app data directory", map[string]interface{}{
			"error": err.Error(),
		})
		os.Exit(1)
	}

	mailboxDir := cfg.WhatsApp.MailboxDir
	if mailboxDir == "" {
		mailboxDir, err = whatsapp.DefaultMailboxDir("noder")
		if err != nil {
			logger.ErrorCF("main", "Failed to resolve mailbox directory", map[string]interface{}{
				"error": err.Error(),
			})
			os.Exit(1)
		}
	}
	mailbox, err := whatsapp.NewMailbox(mailboxDir)
	if err != nil {
		logger.ErrorCF("main", "Failed to open mailbox", map[string]interface{}{
			"error": err.Error(),
			"dir":   mailboxDir,
		})
		os.Exit(1)
	}

	events := bus.NewEventBus()
	monitor, dispatcher, registry := bootstrapBridge(mailbox, events)

	store, err := openStorage(cfg, dataDir)
	if err != nil {
		logger.ErrorCF("main", "Failed to open storage", map[string]interface{}{
			"error": err.Error(),
			"type":  cfg.Storage.Type,
		})
		os.Exit(1)
	}
	defer store.Close()

	sched, err := scheduler.NewScheduler(dataDir, dispatcher)
	if err != nil {
		logger.ErrorCF("main", "Failed to start scheduler", map[string]interface{}{
			"error": err.Error(),
		})
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	monitor.Start(ctx)
	sched.Start(ctx)
	defer sched.Stop()
	defer registry.Stop()

	var dash *dashboard.Server
	if cfg.Dashboard.Enabled {
		if _, generated, err := cfg.EnsureDashboardToken(); err != nil {
			logger.WarnCF("dashboard", "Failed to ensure dashboard token", map[string]interface{}{
				"error": err.Error(),
			})
		} else if generated {
			if err := cfg.Save(); err != nil {
				logger.WarnCF("dashboard", "Failed to persist dashboard token", map[string]interface{}{
					"error": err.Error(),
				})
			}
			logger.InfoC("dashboard", "Generated new dashboard token")
		}

		dash = dashboard.NewServer(
			cfg.Dashboard, cfg, monitor, dispatcher, registry, store, sched, events, version,
		)
		if err := dash.Start(ctx); err != nil {
			logger.ErrorCF("dashboard", "Failed to start dashboard", map[string]interface{}{
				"error": err.Error(),
			})
			os.Exit(1)
		}
		defer dash.Stop()
	}

	logger.InfoCF("main", "noder started", map[string]interface{}{
		"version": version,
		"mailbox": mailboxDir,
		"storage": cfg.Storage.Type,
	})

	if *noConsole {
		<-ctx.Done()
		logger.InfoC("main", "Shutting down")
		return
	}

	runConsole(ctx, consoleDeps{
		cfg:        cfg,
		monitor:    monitor,
		dispatcher: dispatcher,
		registry:   registry,
		sched:      sched,
		store:      store,
		events:     events,
	})
}

// bootstrapBridge wires the mailbox bridge. The cache starts as
// initializing and the session is initialized right away, so status queries
// before the first poll report initializing rather than disconnected. An
// Init failure is logged and the monitor recovers the real state on its
// first successful poll.
func bootstrapBridge(mailbox *whatsapp.Mailbox, events *bus.EventBus) (*whatsapp.Monitor, *whatsapp.Dispatcher, *whatsapp.Registry) {
	cache := whatsapp.NewStatusCache(whatsapp.InitializingStatus())
	monitor := whatsapp.NewMonitor(mailbox, cache, events)
	dispatcher := whatsapp.NewDispatcher(mailbox, cache)
	registry := whatsapp.NewRegistry(mailbox, events)

	if err := monitor.Init(); err != nil {
		logger.WarnCF("whatsapp", "Failed to initialize session", map[string]interface{}{
			"error": err.Error(),
		})
	}

	return monitor, dispatcher, registry
}

func openStorage(cfg *config.Config, dataDir string) (storage.Storage, error) {
	storeCfg := storage.DefaultConfig(cfg.Storage.Type)
	storeCfg.DatabaseURL = cfg.Storage.DatabaseURL
	storeCfg.SSLEnabled = cfg.Storage.SSLEnabled
	storeCfg.FilePath = cfg.Storage.FilePath
	if storeCfg.FilePath == "" {
		storeCfg.FilePath = filepath.Join(dataDir, "data")
	}

	store, err := storage.NewStorage(storeCfg)
	if err != nil {
		return nil, err
	}
	if err := store.Connect(context.Background()); err != nil {
		return nil, err
	}
	return store, nil
}
