package reporting

import (
	"fmt"
	"strings"
	"time"
)

// RenderMarkdown renders report as Markdown string.
func RenderMarkdown(r *Report) string {
	var sb strings.Builder

	// Header
	title := r.Mint
	if r.Symbol != "" {
		title = fmt.Sprintf("%s (%s)", r.Symbol, r.Mint)
	}
	sb.WriteString(fmt.Sprintf("# Risk Report: %s\n\n", title))
	sb.WriteString(fmt.Sprintf("Generated: %s\n\n", r.GeneratedAt.Format(time.RFC3339)))
	if r.AssessmentID != "" {
		sb.WriteString(fmt.Sprintf("Assessment: %s (assessed %s)\n\n", r.AssessmentID, r.AssessedAt.Format(time.RFC3339)))
	}

	// Verdict
	sb.WriteString("## Verdict\n\n")
	sb.WriteString(fmt.Sprintf("**%s**: score %d/100\n\n", r.Level, r.Score))
	sb.WriteString(r.Recommendation + "\n\n")
	if r.Summary != "" {
		sb.WriteString(fmt.Sprintf("> %s\n\n", r.Summary))
	}

	// Flags
	sb.WriteString("## Flags\n\n")
	if len(r.Flags) > 0 {
		sb.WriteString("| Severity | Type | Detail |\n")
		sb.WriteString("|----------|------|--------|\n")
		for _, f := range r.Flags {
			sb.WriteString(fmt.Sprintf("| %s | %s | %s |\n", f.Severity, f.Type, escapeCell(f.Message)))
		}
	} else {
		sb.WriteString("No flags raised.\n")
	}
	sb.WriteString("\n")

	// Token Metrics
	sb.WriteString("## Token Metrics\n\n")
	sb.WriteString("| Metric | Value |\n")
	sb.WriteString("|--------|-------|\n")
	for _, m := range r.Metrics {
		sb.WriteString(fmt.Sprintf("| %s | %s |\n", m.Name, m.Value))
	}
	sb.WriteString("\n")

	// Bundle
	sb.WriteString("## Bundle Analysis\n\n")
	if r.Bundle.Detected {
		sb.WriteString("| Metric | Value |\n")
		sb.WriteString("|--------|-------|\n")
		sb.WriteString(fmt.Sprintf("| Confidence | %s |\n", r.Bundle.Confidence))
		sb.WriteString(fmt.Sprintf("| Wallets | %d |\n", r.Bundle.Wallets))
		sb.WriteString(fmt.Sprintf("| Wash Trading | %.1f%% |\n", r.Bundle.WashPercent))
		if r.Bundle.Quality != "" {
			sb.WriteString(fmt.Sprintf("| Quality | %s |\n", r.Bundle.Quality))
		}
	} else {
		sb.WriteString("No bundle detected.\n")
	}
	sb.WriteString("\n")

	// Holders
	sb.WriteString("## Top Holders\n\n")
	if len(r.TopHolders) > 0 {
		sb.WriteString("| # | Address | Supply % | Role |\n")
		sb.WriteString("|---|---------|----------|------|\n")
		for _, h := range r.TopHolders {
			sb.WriteString(fmt.Sprintf("| %d | `%s` | %.2f | %s |\n", h.Rank, h.Address, h.Percent, h.Role))
		}
	} else {
		sb.WriteString("No holder data available.\n")
	}
	sb.WriteString("\n")

	// Data quality
	if len(r.Degraded) > 0 {
		sb.WriteString("## Data Quality\n\n")
		sb.WriteString("The following signals could not be fetched and were treated as absent:\n\n")
		for _, d := range r.Degraded {
			sb.WriteString(fmt.Sprintf("- %s\n", d))
		}
		sb.WriteString("\n")
	}

	// History
	if len(r.History) > 0 {
		sb.WriteString("## Previous Assessments\n\n")
		sb.WriteString("| Assessed | Score | Level |\n")
		sb.WriteString("|----------|-------|-------|\n")
		for _, h := range r.History {
			sb.WriteString(fmt.Sprintf("| %s | %d | %s |\n", h.AssessedAt.Format(time.RFC3339), h.Score, h.Level))
		}
		sb.WriteString("\n")
	}

	return sb.String()
}

func escapeCell(s string) string {
	return strings.ReplaceAll(s, "|", "\\|")
}
