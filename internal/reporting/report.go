package reporting

import (
	"time"

	"solana-token-risk/internal/domain"
)

// Report is the rendered view of one assessment.
type Report struct {
	// Metadata
	GeneratedAt  time.Time
	AssessedAt   time.Time
	AssessmentID string

	// Token
	Mint   string
	Name   string
	Symbol string

	// Verdict
	Score          int
	Level          domain.RiskLevel
	Recommendation string
	Summary        string

	// Flags ordered by severity, CRITICAL first
	Flags []FlagRow

	Metrics    []MetricRow
	Bundle     BundleSection
	TopHolders []HolderRow

	// Signals that could not be fetched and were treated as absent
	Degraded []string

	// Earlier assessments, newest first
	History []HistoryRow
}

// FlagRow is one explanatory flag.
type FlagRow struct {
	Severity domain.Severity
	Type     domain.FlagType
	Message  string
}

// MetricRow is a labelled token metric.
type MetricRow struct {
	Name  string
	Value string
}

// BundleSection summarizes coordinated-wallet evidence.
type BundleSection struct {
	Detected    bool
	Confidence  domain.Confidence
	Wallets     int
	WashPercent float64
	Quality     domain.QualityAssessment // empty when not assessed
}

// HolderRow is one of the largest holders.
type HolderRow struct {
	Rank    int
	Address string
	Percent float64
	Role    domain.HolderRole
}

// HistoryRow is one earlier assessment.
type HistoryRow struct {
	AssessedAt time.Time
	Score      int
	Level      domain.RiskLevel
}
