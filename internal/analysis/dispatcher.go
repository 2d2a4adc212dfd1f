package analysis

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/cuongbtq/tube-insights/internal/domain"
)

// Dispatcher turns videos and requested service ids into a validated AnalysisResult.
// Provider failures of any kind fall back to canned output and are never returned.
type Dispatcher struct {
	provider Provider
	logger   *slog.Logger
	timeout  time.Duration
}

// NewDispatcher creates a Dispatcher. A nil provider means every call uses the fallback.
// timeout bounds each provider call; zero leaves it to the caller's context.
func NewDispatcher(provider Provider, timeout time.Duration, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{
		provider: provider,
		logger:   logger,
		timeout:  timeout,
	}
}

// Analyse runs the requested capabilities over the videos. The returned result's service keys
// are exactly the known capabilities among services. An error is returned only when the
// fallback itself produces an invalid result.
func (d *Dispatcher) Analyse(ctx context.Context, videos []domain.ContentItem, services []string) (*domain.AnalysisResult, error) {
	capabilities := domain.ResolveCapabilities(services)

	if result, ok := d.tryProvider(ctx, videos, capabilities); ok {
		return result, nil
	}
	return d.orElse(videos, capabilities)
}

func (d *Dispatcher) tryProvider(ctx context.Context, videos []domain.ContentItem, capabilities []domain.Capability) (*domain.AnalysisResult, bool) {
	if d.provider == nil {
		return nil, false
	}

	if d.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.timeout)
		defer cancel()
	}

	started := time.Now()
	text, err := d.provider.Generate(ctx, Request{
		System: systemInstruction,
		Prompt: buildPrompt(videos, capabilities),
		JSON:   true,
	})
	if err != nil {
		d.logger.Warn("Analysis provider failed, using fallback",
			slog.String("provider", string(d.provider.Type())),
			slog.Duration("elapsed", time.Since(started)),
			slog.Any("error", err),
		)
		return nil, false
	}

	result, err := parseResponse(text, capabilities)
	if err == nil {
		err = validateResult(result, capabilities)
	}
	if err != nil {
		d.logger.Warn("Analysis provider returned an invalid result, using fallback",
			slog.String("provider", string(d.provider.Type())),
			slog.Int("response_length", len(text)),
			slog.Any("error", err),
		)
		return nil, false
	}

	d.logger.Debug("Analysis provider succeeded",
		slog.String("provider", string(d.provider.Type())),
		slog.Int("services", len(capabilities)),
		slog.Duration("elapsed", time.Since(started)),
	)
	return result, true
}

func (d *Dispatcher) orElse(videos []domain.ContentItem, capabilities []domain.Capability) (*domain.AnalysisResult, error) {
	result := Fallback(videos, capabilities)
	if err := validateResult(result, capabilities); err != nil {
		return nil, &domain.AnalysisError{Err: fmt.Errorf("fallback result rejected: %w", err)}
	}
	return result, nil
}
