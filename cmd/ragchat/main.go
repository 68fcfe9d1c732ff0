package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"ragchat/internal/app"
	"ragchat/internal/chunker"
	"ragchat/internal/config"
	"ragchat/internal/index"
	"ragchat/internal/loader"
	"ragchat/internal/provider"
	"ragchat/internal/server"
	"ragchat/internal/tui"
	"ragchat/internal/vectorindex"
)

type runtime struct {
	cfg   *config.Config
	log   *zap.Logger
	store *index.Store
	app   *app.App
}

// wire assembles the component graph from configuration.
func wire(configPath string, quiet bool) (*runtime, error) {
	_ = godotenv.Load()

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	log, err := newLogger(cfg.LogLevel, quiet)
	if err != nil {
		return nil, err
	}

	registry := index.NewModelRegistry(provider.NewFactory(cfg), log)
	retriever := vectorindex.NewRetriever(registry, log)
	store := index.NewStore(cfg, registry,
		loader.NewDirectory(log),
		chunker.NewSentenceSplitter(cfg.ChunkSize, cfg.ChunkOverlap),
		retriever, log)

	return &runtime{
		cfg:   cfg,
		log:   log,
		store: store,
		app:   app.New(cfg, store, log),
	}, nil
}

func newLogger(level string, quiet bool) (*zap.Logger, error) {
	if quiet {
		return zap.NewNop(), nil
	}
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("log level %q: %w", level, err)
	}
	zcfg := zap.NewProductionConfig()
	zcfg.Level = zap.NewAtomicLevelAt(lvl)
	zcfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	return zcfg.Build()
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

func main() {
	var configPath string

	rootCmd := &cobra.Command{
		Use:           "ragchat",
		Short:         "Retrieval-augmented Q&A over a private document corpus",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "config.yaml", "path to config YAML")

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := wire(configPath, false)
			if err != nil {
				return err
			}
			defer rt.log.Sync()
			ctx, cancel := signalContext()
			defer cancel()
			return server.New(rt.app, rt.cfg.ListenAddr, rt.log).Run(ctx)
		},
	}

	chatCmd := &cobra.Command{
		Use:   "chat",
		Short: "Start an interactive chat session",
		RunE: func(cmd *cobra.Command, args []string) error {
			// The TUI owns the terminal, so logging is suppressed.
			rt, err := wire(configPath, true)
			if err != nil {
				return err
			}
			ctx, cancel := signalContext()
			defer cancel()
			if err := rt.app.Start(ctx); err != nil {
				return err
			}
			defer rt.app.Shutdown()
			_, err = tea.NewProgram(tui.New(rt.app), tea.WithAltScreen()).Run()
			return err
		},
	}

	askCmd := &cobra.Command{
		Use:   "ask <question>",
		Short: "Answer a single question and exit",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := wire(configPath, true)
			if err != nil {
				return err
			}
			ctx, cancel := signalContext()
			defer cancel()
			question := ""
			for i, a := range args {
				if i > 0 {
					question += " "
				}
				question += a
			}
			result := rt.app.ProcessQuery(ctx, question)
			if result.Failed() {
				return fmt.Errorf("%s", result.Error)
			}
			fmt.Println(result.Answer)
			for i, src := range result.Sources {
				name, _ := src.Metadata["file_name"].(string)
				fmt.Printf("  [%d] %s\n", i+1, name)
			}
			fmt.Printf("(%.2fs)\n", result.ProcessingTime)
			return nil
		},
	}

	indexCmd := &cobra.Command{
		Use:   "index",
		Short: "Build the vector index from the corpus and persist it",
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := wire(configPath, false)
			if err != nil {
				return err
			}
			defer rt.log.Sync()
			ctx, cancel := signalContext()
			defer cancel()
			ix, err := rt.store.BuildIndex(ctx, nil, true)
			if err != nil {
				return err
			}
			fmt.Printf("indexed %d chunks into %s\n", ix.Size(), rt.cfg.IndexCacheDir)
			return nil
		},
	}

	rootCmd.AddCommand(serveCmd, chatCmd, askCmd, indexCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
