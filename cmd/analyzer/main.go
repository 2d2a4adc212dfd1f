package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/cuongbtq/tube-insights/internal/app"
	"github.com/cuongbtq/tube-insights/internal/config"
	"github.com/cuongbtq/tube-insights/internal/domain"
	"github.com/cuongbtq/tube-insights/internal/jobstore"
	"github.com/cuongbtq/tube-insights/shared/logger"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables or flags")
	}

	defaultConfigPath := os.Getenv("ANALYZER_CONFIG_PATH")
	if defaultConfigPath == "" {
		defaultConfigPath = "configs/analyzer/config.yaml"
	}
	configPath := flag.String("config", defaultConfigPath, "Path to configuration file")
	channel := flag.String("channel", "", "Channel name, @handle or channel id to analyse")
	email := flag.String("email", "", "Address that receives the report email")
	services := flag.String("services", strings.Join(domain.KnownServiceIDs, ","), "Comma separated service ids")
	storePath := flag.String("store", "", "Badger directory; overrides store.badger_path")
	flag.Parse()

	if strings.TrimSpace(*channel) == "" {
		flag.Usage()
		return errors.New("-channel is required")
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if *storePath != "" {
		cfg.Store.BadgerPath = *storePath
	}

	if err := cfg.ValidateAnalyzerConfig(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	appLogger, err := logger.New(&logger.Config{
		Level:        cfg.Logging.Level,
		Format:       cfg.Logging.Format,
		Output:       cfg.Logging.Output,
		EnableSource: cfg.Logging.EnableCaller,
		TimeFormat:   time.RFC3339,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer appLogger.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, closeStore, err := openStore(cfg.Store.BadgerPath, appLogger.Logger)
	if err != nil {
		return err
	}
	defer closeStore()

	p, err := app.NewPipeline(ctx, cfg, store, nil, appLogger.Logger)
	if err != nil {
		return fmt.Errorf("failed to build pipeline: %w", err)
	}

	job := domain.NewJob(uuid.New().String(), strings.TrimSpace(*channel), *email, splitServices(*services), time.Now().UTC())
	jobID, err := store.CreateJob(ctx, job)
	if err != nil {
		return err
	}

	appLogger.Info("Running analysis",
		slog.String("job_id", jobID),
		slog.String("channel_name", job.ChannelName),
		slog.Any("services", job.Services),
	)

	if err := p.Run(ctx, jobID); err != nil {
		return fmt.Errorf("failed to run job: %w", err)
	}

	result, err := store.GetJob(context.WithoutCancel(ctx), jobID)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(result); err != nil {
		return fmt.Errorf("failed to write job: %w", err)
	}

	if result.Status == domain.JobStatusFailed {
		return fmt.Errorf("job %s failed: %s", jobID, *result.Error)
	}
	return nil
}

// openStore opens the Badger store at path, or an in-memory store when path is empty
func openStore(path string, logger *slog.Logger) (jobstore.Store, func(), error) {
	if path == "" {
		logger.Info("No store path configured, jobs are kept in memory")
		return jobstore.NewMemoryStore(), func() {}, nil
	}

	store, err := jobstore.OpenBadgerStore(path, logger)
	if err != nil {
		return nil, nil, err
	}
	return store, func() { _ = store.Close() }, nil
}

func splitServices(s string) []string {
	services := []string{}
	for _, id := range strings.Split(s, ",") {
		if id = strings.TrimSpace(id); id != "" {
			services = append(services, id)
		}
	}
	return services
}
