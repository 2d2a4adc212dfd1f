package pipeline

import (
	"strings"

	"github.com/cuongbtq/tube-insights/internal/domain"
)

const (
	// DefaultEmailSubject is used when no subject is configured
	DefaultEmailSubject = "Your AI Analysis Report by TubeIntelligence is here!"

	emailIntro = "Your AI analysis report is ready 🎉\n\n" +
		"Please log in to your dashboard to view the full report.\n\n" +
		"— TubeIntelligence"

	maxEmailInsights = 3
)

// EmailBody renders the notification text. Empty summary sections are left out.
func EmailBody(summary domain.EmailSummary) string {
	var b strings.Builder
	b.WriteString(emailIntro)

	if summary.Headline != "" {
		b.WriteString("\n\n")
		b.WriteString(summary.Headline)
	}
	if summary.Teaser != "" {
		b.WriteString("\n")
		b.WriteString(summary.Teaser)
	}
	if len(summary.KeyInsights) > 0 {
		b.WriteString("\n\nKey insights:")
		for _, insight := range summary.KeyInsights[:min(len(summary.KeyInsights), maxEmailInsights)] {
			b.WriteString("\n- ")
			b.WriteString(insight)
		}
	}
	if summary.CTA != "" {
		b.WriteString("\n\n")
		b.WriteString(summary.CTA)
	}

	return b.String()
}
