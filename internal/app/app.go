// Package app wires configured collaborators into a pipeline for the worker service and the analyzer CLI.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/cuongbtq/tube-insights/internal/analysis"
	"github.com/cuongbtq/tube-insights/internal/config"
	"github.com/cuongbtq/tube-insights/internal/jobstore"
	"github.com/cuongbtq/tube-insights/internal/notify"
	"github.com/cuongbtq/tube-insights/internal/pipeline"
	"github.com/cuongbtq/tube-insights/internal/youtube"
)

// NewYouTubeClient builds the channel resolver and content fetcher
func NewYouTubeClient(cfg config.YouTubeConfig, logger *slog.Logger) *youtube.Client {
	opts := []youtube.ClientOption{
		youtube.WithMaxResults(cfg.MaxResults),
		youtube.WithRateLimit(cfg.RateLimit),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, youtube.WithBaseURL(cfg.BaseURL))
	}
	if cfg.Timeout > 0 {
		opts = append(opts, youtube.WithHTTPClient(&http.Client{Timeout: cfg.Timeout}))
	}

	if cfg.APIKey == "" {
		logger.Warn("YouTube API key not configured, channel pages and feeds will be scraped")
	}

	return youtube.NewClient(cfg.APIKey, logger.With(slog.String("component", "youtube")), opts...)
}

// NewAnalyzer builds the dispatcher around the configured provider
func NewAnalyzer(ctx context.Context, cfg config.AnalysisConfig, logger *slog.Logger) (*analysis.Dispatcher, error) {
	provider, err := analysis.NewProvider(ctx, analysis.ProviderConfig{
		Provider: analysis.ProviderType(cfg.Provider),
		Gemini: analysis.GeminiConfig{
			APIKey:      cfg.Gemini.APIKey,
			Model:       cfg.Gemini.Model,
			Temperature: cfg.Gemini.Temperature,
		},
		Claude: analysis.ClaudeConfig{
			APIKey:      cfg.Claude.APIKey,
			Model:       cfg.Claude.Model,
			Temperature: cfg.Claude.Temperature,
			MaxTokens:   cfg.Claude.MaxTokens,
		},
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create analysis provider: %w", err)
	}

	return analysis.NewDispatcher(provider, cfg.Timeout, logger.With(slog.String("component", "analysis"))), nil
}

// NewNotifier builds the SMTP notifier, or a log-only notifier when no host is configured
func NewNotifier(cfg config.SMTPConfig, logger *slog.Logger) notify.Notifier {
	return notify.New(notify.Config{
		Host:            cfg.Host,
		Port:            cfg.Port,
		Username:        cfg.Username,
		Password:        cfg.Password,
		From:            cfg.From,
		FromName:        cfg.FromName,
		Security:        notify.Security(cfg.Security),
		HTMLAlternative: cfg.HTMLAlternative,
		Timeout:         cfg.Timeout,
	}, logger.With(slog.String("component", "notify")))
}

// NewPipeline wires the YouTube client, analyzer and notifier over store. A nil locker runs with a process-local lock.
func NewPipeline(ctx context.Context, cfg *config.Config, store jobstore.Store, locker pipeline.Locker, logger *slog.Logger) (*pipeline.Pipeline, error) {
	analyzer, err := NewAnalyzer(ctx, cfg.Analysis, logger)
	if err != nil {
		return nil, err
	}

	yt := NewYouTubeClient(cfg.YouTube, logger)

	return pipeline.New(&pipeline.Dependencies{
		Logger:   logger.With(slog.String("component", "pipeline")),
		Store:    store,
		Resolver: yt,
		Fetcher:  yt,
		Analyzer: analyzer,
		Notifier: NewNotifier(cfg.SMTP, logger),
		Locker:   locker,
	}, pipeline.Config{
		StageTimeout: cfg.Pipeline.StageTimeout,
		LockTTL:      cfg.Pipeline.LockTTL,
		EmailSubject: cfg.Pipeline.EmailSubject,
	}), nil
}
