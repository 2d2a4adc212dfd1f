package analysis

import "github.com/cuongbtq/tube-insights/internal/domain"

const (
	fallbackHeadline     = "Your channel has untapped growth potential"
	fallbackVideoTitle   = "Video 1"
	fallbackRiskAnalysis = "No immediate copyright risks detected based on the available metadata."
)

// Fallback builds the canned result for the given capabilities. It performs no I/O and
// returns freshly allocated values on every call.
func Fallback(videos []domain.ContentItem, capabilities []domain.Capability) *domain.AnalysisResult {
	result := &domain.AnalysisResult{
		EmailSummary: domain.EmailSummary{
			Headline: fallbackHeadline,
			Teaser:   "We reviewed your recent videos and found title, click-through and visibility gaps that are quietly limiting your reach.",
			KeyInsights: []string{
				"Your titles describe the content but leave curiosity on the table",
				"Click-through signals trail typical benchmarks for your category",
				"Short-window trends in your niche are going unused",
			},
			CTA: "Open your full AI report to see what to fix first",
		},
	}

	for _, c := range capabilities {
		switch c {
		case domain.CapabilitySemanticTitleEngine:
			result.Services.SemanticTitleEngine = fallbackTitleEngine(videos)
		case domain.CapabilityPredictiveCTRAnalysis:
			result.Services.PredictiveCTRAnalysis = fallbackCTRAnalysis()
		case domain.CapabilityMultiPlatformMastery:
			result.Services.MultiPlatformMastery = fallbackMultiPlatform()
		case domain.CapabilityCopyrightProtection:
			result.Services.CopyrightProtection = fallbackCopyright()
		case domain.CapabilityFairUseAnalysis:
			result.Services.FairUseAnalysis = fallbackFairUse()
		case domain.CapabilityTrendIntelligence:
			result.Services.TrendIntelligence = fallbackTrends()
		}
	}

	return result
}

func fallbackTitleEngine(videos []domain.ContentItem) *domain.SemanticTitleEngine {
	original := fallbackVideoTitle
	if len(videos) > 0 && videos[0].Title != "" {
		original = videos[0].Title
	}

	return &domain.SemanticTitleEngine{
		ChannelAnalysis: domain.ChannelAnalysis{
			OverallAssessment: "The channel favors clarity and depth, but its titles describe topics instead of selling outcomes, which limits discovery despite solid content.",
		},
		Suggestions: []domain.TitleSuggestion{
			{
				OriginalTitle: original,
				CurrentIssues: []string{
					"No curiosity gap or emotional trigger",
					"Explains the topic instead of the payoff",
					"Missing urgency and viewer-centric framing",
				},
				AlternativeTitles: []domain.AlternativeTitle{
					{
						NewSuggestedTitle:  "This Mistake Is Costing You Views",
						CTRPotentialRating: domain.Float64Ptr(8),
						WhyEffective:       "Loss aversion plus curiosity: the viewer suspects they are hurting their own growth.",
					},
					{
						NewSuggestedTitle:  "What Top Creators Do That You Don't",
						CTRPotentialRating: domain.Float64Ptr(8),
						WhyEffective:       "Authority contrast invites comparison and intrigue.",
					},
					{
						NewSuggestedTitle:  "I Tried This for 30 Days and the Results Surprised Me",
						CTRPotentialRating: domain.Float64Ptr(7),
						WhyEffective:       "A time-boxed experiment builds credibility and suspense.",
					},
				},
			},
		},
		GrowthTips: []string{
			"Frame titles around outcomes, not topics",
			"Use contrast words such as stop, avoid, secret or proven",
			"Test curiosity-first titles against descriptive ones",
		},
	}
}

func fallbackCTRAnalysis() *domain.PredictiveCTRAnalysis {
	return &domain.PredictiveCTRAnalysis{
		Score:                       domain.Float64Ptr(4.5),
		Reasoning:                   "Titles are informative but lack emotional pull, lowering click probability against similar channels.",
		ComparisonToIndustryAverage: "Below the average click-through rate for channels in the same category.",
		WhatIsWorkingOrMissing: domain.WorkingOrMissing{
			Working: "Clear topic communication and consistent formatting.",
			Missing: "Emotional hooks, curiosity gaps and alignment between thumbnail and title.",
		},
		Recommendations: []string{
			"Add numbers, timeframes or bold claims to titles",
			"Give each thumbnail one dominant emotion",
			"Replace neutral wording with benefit-driven phrasing",
		},
		PotentialIncrease: "30-60%",
		PsychologicalTriggers: []string{
			"Curiosity gap",
			"Fear of missing out",
			"Authority comparison",
		},
	}
}

func fallbackMultiPlatform() *domain.MultiPlatformMastery {
	return &domain.MultiPlatformMastery{
		Platforms: domain.Platforms{
			YouTube: domain.PlatformAssessment{
				Score:            domain.Float64Ptr(7),
				Reasoning:        "Strong long-form potential with a weak opening hook.",
				Strategy:         "Optimize the first 30 seconds for retention and keep title and thumbnail cohesive.",
				OptimizationTips: []string{"Shorten intros", "Deliver on the title promise immediately"},
			},
			XTwitter: domain.PlatformAssessment{
				Score:            domain.Float64Ptr(6),
				Reasoning:        "Content is not adapted to fast-scroll behavior.",
				Strategy:         "Turn key insights into sharp, opinion-led threads.",
				OptimizationTips: []string{"Lead with a bold claim", "Use numbered hooks"},
			},
			LinkedIn: domain.PlatformAssessment{
				Score:            domain.Float64Ptr(7),
				Reasoning:        "The educational tone matches platform expectations.",
				Strategy:         "Package content as lessons learned or reusable frameworks.",
				OptimizationTips: []string{"Share behind-the-scenes context", "Tie insights to professional outcomes"},
			},
		},
	}
}

func fallbackCopyright() *domain.CopyrightProtection {
	return &domain.CopyrightProtection{
		RiskLevel:  domain.RiskLevelLow,
		Flags:      []string{},
		Assessment: fallbackRiskAnalysis,
		Recommendations: []string{
			"Use royalty-free music only",
			"Avoid unlicensed third-party clips",
		},
	}
}

func fallbackFairUse() *domain.FairUseAnalysis {
	return &domain.FairUseAnalysis{
		Score:      domain.Float64Ptr(78),
		Reasoning:  "The content appears educational and sufficiently transformative.",
		Assessment: "Likely to qualify as fair use when paired with original commentary.",
		FairUseFactorsBreakdown: domain.FairUseFactors{
			PurposeAndCharacter: domain.FactorScore{Score: domain.Float64Ptr(8), Reasoning: "Educational intent strengthens fair use."},
			NatureOfWork:        domain.FactorScore{Score: domain.Float64Ptr(7), Reasoning: "Mostly factual material."},
			AmountUsed:          domain.FactorScore{Score: domain.Float64Ptr(6), Reasoning: "Usage length is unknown and worth reviewing."},
			MarketEffect:        domain.FactorScore{Score: domain.Float64Ptr(8), Reasoning: "Unlikely to replace demand for the original."},
		},
		RecommendationForLegalSafety: "Add explicit commentary and avoid long unaltered clips.",
	}
}

func fallbackTrends() *domain.TrendIntelligence {
	return &domain.TrendIntelligence{
		TrendingTopics: []domain.TrendingTopic{
			{
				Name:             "AI tools creators are not using yet",
				GrowthPercentage: "120%",
				RelevanceRating:  domain.Float64Ptr(9),
				Reasoning:        "High curiosity with little saturation so far.",
			},
		},
		Predictions: []string{
			"Hands-on AI workflows will outperform generic tool lists",
			"Short experiment-driven videos will gain momentum",
		},
		ActionableContentIdeas: []string{
			"Test one underrated AI tool live",
			"Break down why most creators misuse AI",
		},
	}
}
