package domain

import "sort"

// AnalysisResult is the structured output of the analysis stage
type AnalysisResult struct {
	EmailSummary EmailSummary   `json:"email_summary"`
	Services     ServiceResults `json:"services"`
}

// EmailSummary is the teaser content used for the notification email
type EmailSummary struct {
	Headline    string   `json:"headline" validate:"required"`
	Teaser      string   `json:"teaser"`
	KeyInsights []string `json:"key_insights"`
	CTA         string   `json:"cta"`
}

// ServiceResults holds one payload per requested capability. Absent capabilities stay nil
// and are omitted from JSON, so the serialized key set is exactly the requested set.
type ServiceResults struct {
	SemanticTitleEngine   *SemanticTitleEngine   `json:"semantic_title_engine,omitempty"`
	PredictiveCTRAnalysis *PredictiveCTRAnalysis `json:"predictive_ctr_analysis,omitempty"`
	MultiPlatformMastery  *MultiPlatformMastery  `json:"multi_platform_mastery,omitempty"`
	CopyrightProtection   *CopyrightProtection   `json:"copyright_protection,omitempty"`
	FairUseAnalysis       *FairUseAnalysis       `json:"fair_use_analysis,omitempty"`
	TrendIntelligence     *TrendIntelligence     `json:"trend_intelligence,omitempty"`
}

// Names returns the capability names present in the result, sorted
func (s ServiceResults) Names() []Capability {
	var names []Capability
	if s.SemanticTitleEngine != nil {
		names = append(names, CapabilitySemanticTitleEngine)
	}
	if s.PredictiveCTRAnalysis != nil {
		names = append(names, CapabilityPredictiveCTRAnalysis)
	}
	if s.MultiPlatformMastery != nil {
		names = append(names, CapabilityMultiPlatformMastery)
	}
	if s.CopyrightProtection != nil {
		names = append(names, CapabilityCopyrightProtection)
	}
	if s.FairUseAnalysis != nil {
		names = append(names, CapabilityFairUseAnalysis)
	}
	if s.TrendIntelligence != nil {
		names = append(names, CapabilityTrendIntelligence)
	}
	sort.Slice(names, func(i, j int) bool { return names[i] < names[j] })
	return names
}

// Scores and ratings are pointers so an omitted value fails validation instead of reading as zero.

// SemanticTitleEngine is the payload of the title optimization capability
type SemanticTitleEngine struct {
	ChannelAnalysis ChannelAnalysis   `json:"channel_analysis"`
	Suggestions     []TitleSuggestion `json:"suggestions" validate:"required,min=1,dive"`
	GrowthTips      []string          `json:"growth_tips" validate:"required"`
}

// ChannelAnalysis summarizes the channel's title strategy
type ChannelAnalysis struct {
	OverallAssessment string `json:"overall_assessment" validate:"required"`
}

// TitleSuggestion pairs a current title with rewrites
type TitleSuggestion struct {
	OriginalTitle     string             `json:"original_title" validate:"required"`
	CurrentIssues     []string           `json:"current_issues" validate:"required"`
	AlternativeTitles []AlternativeTitle `json:"alternative_titles" validate:"required,min=1,dive"`
}

// AlternativeTitle is one proposed rewrite with its expected click-through potential
type AlternativeTitle struct {
	NewSuggestedTitle  string   `json:"new_suggested_title" validate:"required"`
	CTRPotentialRating *float64 `json:"ctr_potential_rating" validate:"required,gte=0,lte=10"`
	WhyEffective       string   `json:"why_effective" validate:"required"`
}

// PredictiveCTRAnalysis is the payload of the click-through prediction capability
type PredictiveCTRAnalysis struct {
	Score                       *float64         `json:"score" validate:"required,gte=0,lte=10"`
	Reasoning                   string           `json:"reasoning" validate:"required"`
	ComparisonToIndustryAverage string           `json:"comparison_to_industry_average" validate:"required"`
	WhatIsWorkingOrMissing      WorkingOrMissing `json:"what_is_working_or_missing"`
	Recommendations             []string         `json:"recommendations" validate:"required"`
	PotentialIncrease           string           `json:"potential_increase" validate:"required"`
	PsychologicalTriggers       []string         `json:"psychological_triggers" validate:"required"`
}

// WorkingOrMissing splits observations into strengths and gaps
type WorkingOrMissing struct {
	Working string `json:"working" validate:"required"`
	Missing string `json:"missing" validate:"required"`
}

// MultiPlatformMastery is the payload of the cross-platform capability
type MultiPlatformMastery struct {
	Platforms Platforms `json:"platforms"`
}

// Platforms holds one assessment per supported platform
type Platforms struct {
	YouTube  PlatformAssessment `json:"youtube"`
	XTwitter PlatformAssessment `json:"x_twitter"`
	LinkedIn PlatformAssessment `json:"linkedin"`
}

// PlatformAssessment scores the content's fit for one platform
type PlatformAssessment struct {
	Score            *float64 `json:"score" validate:"required,gte=0,lte=10"`
	Reasoning        string   `json:"reasoning" validate:"required"`
	Strategy         string   `json:"strategy" validate:"required"`
	OptimizationTips []string `json:"optimization_tips" validate:"required"`
}

// Copyright risk levels
const (
	RiskLevelLow    = "LOW"
	RiskLevelMedium = "MEDIUM"
	RiskLevelHigh   = "HIGH"
)

// CopyrightProtection is the payload of the copyright risk capability
type CopyrightProtection struct {
	RiskLevel       string   `json:"risk_level" validate:"required,oneof=LOW MEDIUM HIGH"`
	Flags           []string `json:"flags" validate:"required"`
	Assessment      string   `json:"assessment" validate:"required"`
	Recommendations []string `json:"recommendations" validate:"required"`
}

// FairUseAnalysis is the payload of the fair use capability
type FairUseAnalysis struct {
	Score                        *float64       `json:"score" validate:"required,gte=0,lte=100"`
	Reasoning                    string         `json:"reasoning" validate:"required"`
	Assessment                   string         `json:"assessment" validate:"required"`
	FairUseFactorsBreakdown      FairUseFactors `json:"fair_use_factors_breakdown"`
	RecommendationForLegalSafety string         `json:"recommendation_for_legal_safety" validate:"required"`
}

// FairUseFactors scores the four statutory fair use factors
type FairUseFactors struct {
	PurposeAndCharacter FactorScore `json:"purpose_and_character"`
	NatureOfWork        FactorScore `json:"nature_of_work"`
	AmountUsed          FactorScore `json:"amount_used"`
	MarketEffect        FactorScore `json:"market_effect"`
}

// FactorScore is a single scored factor
type FactorScore struct {
	Score     *float64 `json:"score" validate:"required,gte=0,lte=10"`
	Reasoning string   `json:"reasoning" validate:"required"`
}

// TrendIntelligence is the payload of the trend detection capability
type TrendIntelligence struct {
	TrendingTopics         []TrendingTopic `json:"trending_topics" validate:"required,min=1,dive"`
	Predictions            []string        `json:"predictions" validate:"required"`
	ActionableContentIdeas []string        `json:"actionable_content_ideas" validate:"required"`
}

// TrendingTopic is one emerging topic relevant to the channel
type TrendingTopic struct {
	Name             string   `json:"name" validate:"required"`
	GrowthPercentage string   `json:"growth_percentage" validate:"required"`
	RelevanceRating  *float64 `json:"relevance_rating" validate:"required,gte=0,lte=10"`
	Reasoning        string   `json:"reasoning" validate:"required"`
}
