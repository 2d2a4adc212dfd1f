package domain

// Capability is the internal name of one selectable analysis dimension
type Capability string

// Capability names, keyed in AnalysisResult.Services
const (
	CapabilitySemanticTitleEngine   Capability = "semantic_title_engine"
	CapabilityPredictiveCTRAnalysis Capability = "predictive_ctr_analysis"
	CapabilityMultiPlatformMastery  Capability = "multi_platform_mastery"
	CapabilityCopyrightProtection   Capability = "copyright_protection"
	CapabilityFairUseAnalysis       Capability = "fair_use_analysis"
	CapabilityTrendIntelligence     Capability = "trend_intelligence"
)

// capabilityTable maps caller-facing service ids to capability names
var capabilityTable = map[string]Capability{
	"1":  CapabilitySemanticTitleEngine,
	"2":  CapabilityPredictiveCTRAnalysis,
	"3":  CapabilityMultiPlatformMastery,
	"7":  CapabilityCopyrightProtection,
	"8":  CapabilityFairUseAnalysis,
	"10": CapabilityTrendIntelligence,
}

// KnownServiceIDs lists every supported service id in ascending order
var KnownServiceIDs = []string{"1", "2", "3", "7", "8", "10"}

// CapabilityFor maps a service id to its capability name
func CapabilityFor(serviceID string) (Capability, bool) {
	c, ok := capabilityTable[serviceID]
	return c, ok
}

// ResolveCapabilities maps service ids to capabilities in caller order.
// Unknown ids are ignored and repeated ids collapse to their first occurrence.
func ResolveCapabilities(serviceIDs []string) []Capability {
	seen := make(map[Capability]bool, len(serviceIDs))
	out := make([]Capability, 0, len(serviceIDs))
	for _, id := range serviceIDs {
		c, ok := capabilityTable[id]
		if !ok || seen[c] {
			continue
		}
		seen[c] = true
		out = append(out, c)
	}
	return out
}
