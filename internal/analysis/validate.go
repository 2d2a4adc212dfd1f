package analysis

import (
	"fmt"
	"slices"

	"github.com/cuongbtq/tube-insights/internal/domain"
	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// validateResult checks field constraints and that the service key set equals the requested capabilities
func validateResult(result *domain.AnalysisResult, capabilities []domain.Capability) error {
	want := slices.Clone(capabilities)
	slices.Sort(want)
	got := result.Services.Names()

	if !slices.Equal(want, got) {
		return fmt.Errorf("%w: want %v, got %v", errUnexpectedResult, want, got)
	}

	if err := validate.Struct(result); err != nil {
		return fmt.Errorf("invalid analysis result: %w", err)
	}
	return nil
}
