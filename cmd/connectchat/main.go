package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"connectchat/internal/ai"
	"connectchat/internal/channel"
	"connectchat/internal/chat"
	"connectchat/internal/config"
	"connectchat/internal/connect"
	"connectchat/internal/store"

	"github.com/spf13/cobra"
)

var (
	version    = "0.1.0"
	logger     *slog.Logger
	configPath string // overridable via --config flag
)

func main() {
	logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))

	root := &cobra.Command{
		Use:   "connectchat",
		Short: "Customer service chat client with AI assistant and agent handover",
		Long: "connectchat talks to an AI assistant through a provider proxy and can hand " +
			"the conversation over to a human agent in a contact center.",
	}

	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to config file (default: ~/.connectchat/config.json)")

	root.AddCommand(initCmd())
	root.AddCommand(chatCmd())
	root.AddCommand(doctorCmd())
	root.AddCommand(versionCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func initCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Initialize default configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgPath := config.DefaultConfigPath()
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

func chatCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "chat",
		Short: "Start an interactive chat session",
		RunE:  runChat,
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, args []string) {
			cmd.Printf("connectchat v%s\n", version)
		},
	}
}

// resolveConfigPath returns the config path from --config flag or default.
func resolveConfigPath() string {
	if configPath != "" {
		return configPath
	}
	return config.DefaultConfigPath()
}

func logLevel(name string) slog.Level {
	switch name {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func runChat(cmd *cobra.Command, args []string) error {
	cfgPath := resolveConfigPath()
	cfg, err := config.Load(cfgPath)
	if err != nil {
		logger.Warn("config not found, using defaults", "path", cfgPath, "err", err)
		cfg = config.Defaults()
	}
	logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel(cfg.General.LogLevel),
	}))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	chatStore := store.New(ctx, logger)
	defer chatStore.Close()

	agent := ai.NewClient(ai.Config{
		ProxyBaseURL:     cfg.AI.ProxyBaseURL,
		PrimaryProvider:  cfg.AI.PrimaryProvider,
		FallbackProvider: cfg.AI.FallbackProvider,
		MaxTokens:        cfg.AI.MaxTokens,
		Temperature:      cfg.AI.Temperature,
		SystemPrompt:     cfg.AI.SystemPrompt,
		Logger:           logger,
	})

	connectClient := connect.NewClient(connect.Config{
		Region:            cfg.Connect.Region,
		HeartbeatInterval: time.Duration(cfg.Connect.HeartbeatIntervalSeconds) * time.Second,
		ConnectTimeout:    time.Duration(cfg.Connect.ConnectionTimeoutSeconds) * time.Second,
		Logger:            logger,
	})
	defer connectClient.Disconnect(context.Background())

	coordinator := chat.New(chatStore, agent, connectClient, chat.Config{
		AuthAPIURL:   cfg.Connect.AuthAPIURL,
		Region:       cfg.Connect.Region,
		CustomerID:   cfg.General.CustomerID,
		CustomerName: cfg.General.CustomerName,
		Logger:       logger,
	})
	go coordinator.Start(ctx)

	cli := channel.NewCLI(channel.CLIConfig{
		Store:       chatStore,
		Coordinator: coordinator,
		Logger:      logger,
	})
	return cli.Start(ctx)
}

// healthHTTPClient is shared by doctor checks.
var healthHTTPClient = &http.Client{Timeout: 5 * time.Second}
