package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"notifyd/internal/config"
	"notifyd/internal/correlate"
	"notifyd/internal/dispatch"
	"notifyd/internal/domain"
	"notifyd/internal/ingest"
	"notifyd/internal/notifier"
	"notifyd/internal/platform"
	"notifyd/internal/server"

	"github.com/spf13/cobra"
)

var (
	version    = "0.1.0"
	logger     = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
	configPath string // overridable via --config flag
)

func main() {
	root := &cobra.Command{
		Use:   "notifyd",
		Short: "notifyd: notification dispatch server",
		Long:  "notifyd accepts notification requests over HTTP, shows them on the configured backend and routes activation callbacks to side effects.",
	}

	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to config file (default: ~/.notifyd/config.json)")

	root.AddCommand(initCmd())
	root.AddCommand(serveCmd())
	root.AddCommand(configCmd())
	root.AddCommand(versionCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

// resolveConfigPath returns the config path from --config flag or default.
func resolveConfigPath() string {
	if configPath != "" {
		return configPath
	}
	return config.DefaultConfigPath()
}

func initCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Write a default config file",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgPath := resolveConfigPath()
			if _, err := os.Stat(cfgPath); err == nil {
				return fmt.Errorf("config already exists: %s", cfgPath)
			}
			if err := os.MkdirAll(config.DefaultConfigDir(), 0o755); err != nil {
				return err
			}
			if err := config.Save(cfgPath, config.Defaults()); err != nil {
				return err
			}
			logger.Info("initialized", "config", cfgPath)
			return nil
		},
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the notification server",
		RunE:  runServe,
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadServeConfig(resolveConfigPath())
	if err != nil {
		return err
	}

	logger = newLogger(cfg.General)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Identity first: notifications shown under an unregistered app ID are
	// silently dropped on some surfaces.
	registrar := platform.NewRegistrar(config.ExpandPath(cfg.Platform.RegistrationDir), logger)
	if err := registrar.EnsureRegistered(cfg.Platform.AppID, cfg.Platform.DisplayName); err != nil {
		return fmt.Errorf("register application identity: %w", err)
	}

	scratch := ingest.NewScratchDirs(
		config.ExpandPath(cfg.Ingest.ScratchDir),
		time.Duration(cfg.Ingest.ScratchTTLHours)*time.Hour,
		logger,
	)
	if err := scratch.StartSweeper(cfg.Ingest.SweepSchedule); err != nil {
		return fmt.Errorf("start scratch sweeper: %w", err)
	}
	defer scratch.StopSweeper()

	store := correlate.NewStore(time.Duration(cfg.Correlation.TTLMinutes) * time.Minute)
	router := correlate.NewRouter(
		store,
		platform.NewLauncher(cfg.Platform.Shell, logger),
		platform.NewClipboard(logger),
		platform.NewFolderOpener(logger),
		logger,
	)

	backend, err := buildNotifier(cfg, logger)
	if err != nil {
		return err
	}
	backend.Subscribe(router)
	if runner, ok := backend.(notifier.Runner); ok {
		go func() {
			if err := runner.Run(ctx); err != nil {
				logger.Error("notifier backend stopped", "err", err)
				stop()
			}
		}()
	}

	dispatcher := dispatch.New(
		store,
		backend,
		time.Duration(cfg.Notifier.ShowTimeoutSeconds)*time.Second,
		logger,
	)
	ingestor := ingest.New(scratch, logger)

	srv := server.New(cfg, ingestor, dispatcher, logger, version)
	return srv.Run(ctx)
}

// loadServeConfig loads the config file, falling back to defaults only when
// no file exists. A present-but-broken file is a hard error, never silently
// replaced with defaults.
func loadServeConfig(path string) (*config.Config, error) {
	cfg, err := config.Load(path)
	switch {
	case err == nil:
		return cfg, nil
	case errors.Is(err, os.ErrNotExist):
		logger.Warn("config not found, using defaults", "path", path)
		return config.Defaults(), nil
	default:
		return nil, fmt.Errorf("load config %s: %w", path, err)
	}
}

func buildNotifier(cfg *config.Config, logger *slog.Logger) (domain.Notifier, error) {
	switch cfg.Notifier.Backend {
	case "telegram":
		return notifier.NewTelegram(cfg.Notifier.Telegram.Token, cfg.Notifier.Telegram.ChatID, logger), nil
	case "log", "":
		return notifier.NewLog(logger), nil
	default:
		return nil, fmt.Errorf("unknown notifier backend: %s", cfg.Notifier.Backend)
	}
}

func newLogger(cfg config.GeneralConfig) *slog.Logger {
	var level slog.Level
	switch cfg.LogLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	out := os.Stderr
	if cfg.LogFile != "" {
		if f, err := os.OpenFile(config.ExpandPath(cfg.LogFile), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644); err == nil {
			out = f
		} else {
			logger.Warn("cannot open log file, logging to stderr", "path", cfg.LogFile, "err", err)
		}
	}
	return slog.New(slog.NewTextHandler(out, &slog.HandlerOptions{Level: level}))
}

func configCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "View and modify configuration",
		Long:  "Get, set, and list configuration values. Changes are saved to the config file.",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "get [path]",
		Short: "Get a config value (e.g. server.port)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(resolveConfigPath())
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			val, err := config.GetByPath(cfg, args[0])
			if err != nil {
				return err
			}
			data, _ := json.MarshalIndent(val, "", "  ")
			fmt.Println(string(data))
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "set [path] [value]",
		Short: "Set a config value (e.g. server.port 3000)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgPath := resolveConfigPath()
			cfg, err := config.Load(cfgPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if err := config.SetByPath(cfg, args[0], args[1]); err != nil {
				return fmt.Errorf("set value: %w", err)
			}
			if err := config.Validate(cfg); err != nil {
				return fmt.Errorf("invalid config: %w", err)
			}
			if err := config.Save(cfgPath, cfg); err != nil {
				return fmt.Errorf("save config: %w", err)
			}
			logger.Info("config updated", "path", args[0], "value", args[1], "file", cfgPath)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List all config values",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(resolveConfigPath())
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			data, _ := json.MarshalIndent(config.Sanitize(cfg), "", "  ")
			fmt.Println(string(data))
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Show config file path",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println(resolveConfigPath())
		},
	})

	return cmd
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println("notifyd " + version)
		},
	}
}
