package analysis

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/cuongbtq/tube-insights/internal/domain"
)

var (
	errNoJSONObject     = errors.New("response contains no JSON object")
	errMissingSummary   = errors.New("response has no email_summary")
	errMissingService   = errors.New("response is missing a requested service")
	errUnexpectedResult = errors.New("result does not match the requested services")
)

type rawResult struct {
	EmailSummary *domain.EmailSummary       `json:"email_summary"`
	Services     map[string]json.RawMessage `json:"services"`
}

// parseResponse repairs and decodes provider output. Keys for unrequested services are dropped;
// a missing or undecodable requested service rejects the whole response.
func parseResponse(text string, capabilities []domain.Capability) (*domain.AnalysisResult, error) {
	body, err := extractJSON(text)
	if err != nil {
		return nil, err
	}

	var raw rawResult
	if err := json.Unmarshal([]byte(body), &raw); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	if raw.EmailSummary == nil {
		return nil, errMissingSummary
	}

	result := &domain.AnalysisResult{EmailSummary: *raw.EmailSummary}
	for _, c := range capabilities {
		payload, ok := raw.Services[string(c)]
		if !ok || isNull(payload) {
			return nil, fmt.Errorf("%w: %s", errMissingService, c)
		}
		if err := decodeService(&result.Services, c, payload); err != nil {
			return nil, fmt.Errorf("failed to decode %s: %w", c, err)
		}
	}

	return result, nil
}

// extractJSON strips markdown fences and cuts the text to its outermost braces
func extractJSON(text string) (string, error) {
	cleaned := strings.TrimSpace(text)
	cleaned = strings.TrimPrefix(cleaned, "```json")
	cleaned = strings.TrimPrefix(cleaned, "```JSON")
	cleaned = strings.TrimPrefix(cleaned, "```")
	cleaned = strings.TrimSuffix(strings.TrimSpace(cleaned), "```")

	start := strings.Index(cleaned, "{")
	end := strings.LastIndex(cleaned, "}")
	if start < 0 || end <= start {
		return "", errNoJSONObject
	}
	return cleaned[start : end+1], nil
}

func isNull(raw json.RawMessage) bool {
	return strings.TrimSpace(string(raw)) == "null"
}

func decodeService(results *domain.ServiceResults, c domain.Capability, raw json.RawMessage) error {
	switch c {
	case domain.CapabilitySemanticTitleEngine:
		results.SemanticTitleEngine = &domain.SemanticTitleEngine{}
		return json.Unmarshal(raw, results.SemanticTitleEngine)
	case domain.CapabilityPredictiveCTRAnalysis:
		results.PredictiveCTRAnalysis = &domain.PredictiveCTRAnalysis{}
		return json.Unmarshal(raw, results.PredictiveCTRAnalysis)
	case domain.CapabilityMultiPlatformMastery:
		results.MultiPlatformMastery = &domain.MultiPlatformMastery{}
		return json.Unmarshal(raw, results.MultiPlatformMastery)
	case domain.CapabilityCopyrightProtection:
		results.CopyrightProtection = &domain.CopyrightProtection{}
		return json.Unmarshal(raw, results.CopyrightProtection)
	case domain.CapabilityFairUseAnalysis:
		results.FairUseAnalysis = &domain.FairUseAnalysis{}
		return json.Unmarshal(raw, results.FairUseAnalysis)
	case domain.CapabilityTrendIntelligence:
		results.TrendIntelligence = &domain.TrendIntelligence{}
		return json.Unmarshal(raw, results.TrendIntelligence)
	default:
		return fmt.Errorf("unknown capability %s", c)
	}
}
