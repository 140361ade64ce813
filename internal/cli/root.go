package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/kirillkom/mcq-rag-assistant/internal/bootstrap"
	"github.com/kirillkom/mcq-rag-assistant/internal/config"
	"github.com/kirillkom/mcq-rag-assistant/internal/core/domain"
	"github.com/kirillkom/mcq-rag-assistant/internal/core/ports"
	"github.com/kirillkom/mcq-rag-assistant/internal/observability/logging"
)

// services is what the commands need from a bootstrapped application.
type services struct {
	answerer ports.QuestionAnswerer
	searcher ports.KnowledgeSearcher
	builder  ports.IndexBuilder
	storage  ports.ObjectStorage
	ensure   func(context.Context) (domain.IndexStats, error)
	close    func()
}

type flags struct {
	configFile string
	envFile    string
	jsonOutput bool
	logLevel   string
}

// loadServices is replaced in tests.
var loadServices = func(_ context.Context, f flags) (*services, error) {
	if f.envFile != "" {
		if err := godotenv.Load(f.envFile); err != nil {
			return nil, fmt.Errorf("load env file: %w", err)
		}
	} else {
		_ = godotenv.Load()
	}
	if f.configFile != "" {
		if err := os.Setenv("CONFIG_FILE", f.configFile); err != nil {
			return nil, err
		}
	}
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	level := cfg.LogLevel
	if f.logLevel != "" {
		level = f.logLevel
	}
	setDefaultLogger(logging.NewJSONLoggerTo(os.Stderr, "ragctl", level))

	app, err := bootstrap.New(context.Background(), cfg)
	if err != nil {
		return nil, err
	}
	return &services{
		answerer: app.PipelineUC,
		searcher: app.Index,
		builder:  app.BuildUC,
		storage:  app.Storage,
		ensure:   app.EnsureIndex,
		close:    app.Close,
	}, nil
}

func NewRootCommand() *cobra.Command {
	f := &flags{}
	root := &cobra.Command{
		Use:           "ragctl",
		Short:         "Answer multiple-choice questions from a local knowledge base",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&f.configFile, "config", "c", "", "YAML config overlay (sets CONFIG_FILE)")
	root.PersistentFlags().StringVar(&f.envFile, "env-file", "", "dotenv file to load instead of ./.env")
	root.PersistentFlags().BoolVar(&f.jsonOutput, "json", false, "print JSON instead of formatted text")
	root.PersistentFlags().StringVar(&f.logLevel, "log-level", "", "override LOG_LEVEL (logs go to stderr)")

	root.AddCommand(
		newIndexCommand(f),
		newAskCommand(f),
		newSearchCommand(f),
		newStatsCommand(f),
	)
	return root
}

func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := NewRootCommand().ExecuteContext(ctx); err != nil {
		printError(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}

func withServices(cmd *cobra.Command, f *flags, loadIndex bool, run func(*services) error) error {
	svc, err := loadServices(cmd.Context(), *f)
	if err != nil {
		return err
	}
	defer svc.close()

	if loadIndex {
		if _, err := svc.ensure(cmd.Context()); err != nil {
			return err
		}
	}
	return run(svc)
}

func storageKeyFor(path string) string {
	return filepath.Base(path)
}
