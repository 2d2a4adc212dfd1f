package analysis

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/cuongbtq/tube-insights/internal/domain"
)

const (
	promptVideoLimit       = 3
	descriptionRuneLimit   = 200
	generalOverviewRequest = "No specific analyses were requested. Give a general overview of the channel and a short list of basic recommendations in the email summary, and return an empty services object."
)

const systemInstruction = "You are an expert YouTube content strategist. Respond with a single valid JSON document and nothing else."

const rolePreamble = `You are the analysis engine of a creator intelligence product used by professional creators and growth teams.
Produce specific, executable insights that can be shown directly in a dashboard. Avoid generic advice.`

const executionRules = `RULES
- Run only the analyses listed above and return only their keys under "services".
- Every score, rating or risk level needs a concrete reason.
- Be decisive and specific; avoid phrases like "could be improved".
- Scores are JSON numbers, never strings. risk_level is one of LOW, MEDIUM, HIGH.
- Keep the email summary a teaser: hint at gaps and upside without giving away the full report.`

// capabilityInstructions are the per-capability analysis directives
var capabilityInstructions = map[domain.Capability]string{
	domain.CapabilitySemanticTitleEngine: `SEMANTIC TITLE ENGINE
- Assess the channel's overall title strategy.
- For each video, quote the current title, list 2-4 concrete problems and propose 3 rewrites.
- Rate each rewrite's click-through potential from 0 to 10 and explain the psychology behind it.
- Finish with 3-5 growth tips specific to this channel's niche.`,

	domain.CapabilityPredictiveCTRAnalysis: `PREDICTIVE CTR ANALYSIS
- Score the channel's click-through appeal from 0 to 10 and justify the score.
- Compare it with the category average and split observations into what works and what is missing.
- Give 4-6 specific recommendations, an estimated potential increase and the psychological triggers to use.`,

	domain.CapabilityMultiPlatformMastery: `MULTI-PLATFORM MASTERY
- Score how the content would perform on YouTube, X/Twitter and LinkedIn (0 to 10 each).
- For each platform give the reasoning, a platform-native strategy and concrete optimization tips.
- Do not repeat the same advice across platforms; suggest adaptations, not reposts.`,

	domain.CapabilityCopyrightProtection: `COPYRIGHT PROTECTION
- Flag only material that automated content matching would catch: third-party music, clips, images or logos.
- Do not flag original commentary, tutorials or technical terms.
- Return a risk level (LOW, MEDIUM or HIGH), the flags found, a short assessment and safe alternatives.`,

	domain.CapabilityFairUseAnalysis: `FAIR USE ANALYSIS
- Score how transformative the content is from 0 to 100 and explain why.
- Score the four fair use factors from 0 to 10 each: purpose and character, nature of the work, amount used, market effect.
- End with one actionable recommendation for legal safety.`,

	domain.CapabilityTrendIntelligence: `TREND INTELLIGENCE
- Identify 3-5 early-stage topics relevant to this niche with a growth estimate and a 0-10 relevance rating.
- Predict what will happen in the next 24-72 hours.
- Suggest 3-5 concrete next-video ideas aligned with those signals.`,
}

// outputContracts are the JSON shapes the provider must return, keyed by capability
var outputContracts = map[domain.Capability]string{
	domain.CapabilitySemanticTitleEngine: `"semantic_title_engine": {
  "channel_analysis": {"overall_assessment": "string"},
  "suggestions": [{
    "original_title": "string",
    "current_issues": ["string"],
    "alternative_titles": [{"new_suggested_title": "string", "ctr_potential_rating": 8, "why_effective": "string"}]
  }],
  "growth_tips": ["string"]
}`,
	domain.CapabilityPredictiveCTRAnalysis: `"predictive_ctr_analysis": {
  "score": 5.5,
  "reasoning": "string",
  "comparison_to_industry_average": "string",
  "what_is_working_or_missing": {"working": "string", "missing": "string"},
  "recommendations": ["string"],
  "potential_increase": "30-50%",
  "psychological_triggers": ["string"]
}`,
	domain.CapabilityMultiPlatformMastery: `"multi_platform_mastery": {
  "platforms": {
    "youtube":   {"score": 8, "reasoning": "string", "strategy": "string", "optimization_tips": ["string"]},
    "x_twitter": {"score": 6, "reasoning": "string", "strategy": "string", "optimization_tips": ["string"]},
    "linkedin":  {"score": 7, "reasoning": "string", "strategy": "string", "optimization_tips": ["string"]}
  }
}`,
	domain.CapabilityCopyrightProtection: `"copyright_protection": {
  "risk_level": "LOW",
  "flags": ["string"],
  "assessment": "string",
  "recommendations": ["string"]
}`,
	domain.CapabilityFairUseAnalysis: `"fair_use_analysis": {
  "score": 80,
  "reasoning": "string",
  "assessment": "string",
  "fair_use_factors_breakdown": {
    "purpose_and_character": {"score": 8, "reasoning": "string"},
    "nature_of_work": {"score": 7, "reasoning": "string"},
    "amount_used": {"score": 6, "reasoning": "string"},
    "market_effect": {"score": 8, "reasoning": "string"}
  },
  "recommendation_for_legal_safety": "string"
}`,
	domain.CapabilityTrendIntelligence: `"trend_intelligence": {
  "trending_topics": [{"name": "string", "growth_percentage": "12%", "relevance_rating": 9, "reasoning": "string"}],
  "predictions": ["string"],
  "actionable_content_ideas": ["string"]
}`,
}

const emailSummaryContract = `"email_summary": {
  "headline": "string, at most 12 words",
  "teaser": "string, 2-3 lines",
  "key_insights": ["string", "string", "string"],
  "cta": "string"
}`

// buildPrompt renders the full provider prompt for the given videos and resolved capabilities
func buildPrompt(videos []domain.ContentItem, capabilities []domain.Capability) string {
	var b strings.Builder

	b.WriteString(rolePreamble)
	b.WriteString("\n\nCHANNEL VIDEOS\n")
	b.WriteString(summarizeVideos(videos))

	b.WriteString("\nREQUESTED ANALYSES\n")
	b.WriteString(combinedInstructions(capabilities))

	b.WriteString("\n\n")
	b.WriteString(executionRules)

	b.WriteString("\n\nOUTPUT\nReturn JSON only, no markdown, with exactly this structure:\n")
	b.WriteString(outputContract(capabilities))
	b.WriteString("\n")

	return b.String()
}

func summarizeVideos(videos []domain.ContentItem) string {
	if len(videos) == 0 {
		return "No recent videos were found for this channel.\n"
	}

	if len(videos) > promptVideoLimit {
		videos = videos[:promptVideoLimit]
	}

	var b strings.Builder
	for i, v := range videos {
		fmt.Fprintf(&b, "VIDEO %d\n", i+1)
		fmt.Fprintf(&b, "- Title: %q\n", v.Title)
		fmt.Fprintf(&b, "- Description: %s\n", truncateRunes(v.Description, descriptionRuneLimit))
		fmt.Fprintf(&b, "- Views: %s\n", countOrNA(v.Statistics.ViewCount))
		fmt.Fprintf(&b, "- Likes: %s\n", countOrNA(v.Statistics.LikeCount))
		fmt.Fprintf(&b, "- Comments: %s\n", countOrNA(v.Statistics.CommentCount))
	}
	return b.String()
}

// combinedInstructions joins the directives of each capability in caller order
func combinedInstructions(capabilities []domain.Capability) string {
	if len(capabilities) == 0 {
		return generalOverviewRequest
	}

	parts := make([]string, 0, len(capabilities))
	for i, c := range capabilities {
		parts = append(parts, fmt.Sprintf("%d. %s", i+1, capabilityInstructions[c]))
	}
	return strings.Join(parts, "\n\n")
}

func outputContract(capabilities []domain.Capability) string {
	services := make([]string, 0, len(capabilities))
	for _, c := range capabilities {
		services = append(services, indent(outputContracts[c], "    "))
	}

	var b strings.Builder
	b.WriteString("{\n")
	b.WriteString(indent(emailSummaryContract, "  "))
	b.WriteString(",\n  \"services\": {")
	if len(services) > 0 {
		b.WriteString("\n")
		b.WriteString(strings.Join(services, ",\n"))
		b.WriteString("\n  ")
	}
	b.WriteString("}\n}")
	return b.String()
}

func indent(s, prefix string) string {
	lines := strings.Split(s, "\n")
	for i, l := range lines {
		lines[i] = prefix + l
	}
	return strings.Join(lines, "\n")
}

func truncateRunes(s string, limit int) string {
	r := []rune(s)
	if len(r) <= limit {
		return s
	}
	return string(r[:limit]) + "..."
}

func countOrNA(n *int64) string {
	if n == nil {
		return "N/A"
	}
	return strconv.FormatInt(*n, 10)
}
