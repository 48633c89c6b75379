package domain

import "time"

// RiskLevel is the categorical risk outcome.
type RiskLevel string

const (
	LevelSafe       RiskLevel = "SAFE"
	LevelSuspicious RiskLevel = "SUSPICIOUS"
	LevelDangerous  RiskLevel = "DANGEROUS"
	LevelScam       RiskLevel = "SCAM"
)

// Severity grades a flag.
type Severity string

const (
	SeverityLow      Severity = "LOW"
	SeverityMedium   Severity = "MEDIUM"
	SeverityHigh     Severity = "HIGH"
	SeverityCritical Severity = "CRITICAL"
)

// FlagType groups flags by the evidence that raised them.
type FlagType string

const (
	FlagDeployer      FlagType = "DEPLOYER"
	FlagLiquidity     FlagType = "LIQUIDITY"
	FlagConcentration FlagType = "CONCENTRATION"
	FlagBundle        FlagType = "BUNDLE"
	FlagWashTrading   FlagType = "WASH_TRADING"
	FlagDevActivity   FlagType = "DEV_ACTIVITY"
	FlagPrice         FlagType = "PRICE"
	FlagAuthority     FlagType = "AUTHORITY"
	FlagMaturity      FlagType = "MATURITY"
	FlagPattern       FlagType = "PATTERN"
	FlagData          FlagType = "DATA"
	FlagNarrative     FlagType = "NARRATIVE"
)

// Flag is one piece of explanatory evidence.
type Flag struct {
	Type     FlagType `json:"type"`
	Severity Severity `json:"severity"`
	Message  string   `json:"message"`
}

// RiskAssessment is the scorer output.
type RiskAssessment struct {
	Score          int       `json:"score"`
	Level          RiskLevel `json:"level"`
	Flags          []Flag    `json:"flags"`
	Recommendation string    `json:"recommendation"`
}

// Baseline is an optional pre-computed starting point from a narrative generator.
type Baseline struct {
	Score   int
	Flags   []Flag
	Summary string
}

// AssessmentRecord wraps an assessment with the evidence summary persisted by
// the reputation store and returned by the API.
type AssessmentRecord struct {
	ID              string               `json:"id"`
	Mint            string               `json:"mint"`
	Assessment      RiskAssessment       `json:"assessment"`
	Snapshot        TokenSnapshot        `json:"snapshot"`
	CreatorAddress  string               `json:"creator_address,omitempty"`
	BundleDetected  bool                 `json:"bundle_detected"`
	BundleConf      Confidence           `json:"bundle_confidence"`
	BundleWallets   int                  `json:"bundle_wallets"`
	WashPercent     float64              `json:"wash_percent"`
	QualityVerdict  QualityAssessment    `json:"bundle_quality,omitempty"`
	DegradedSignals []string             `json:"degraded_signals,omitempty"`
	Summary         string               `json:"summary,omitempty"`
	AssessedAt      time.Time            `json:"assessed_at"`
	ExpiresAt       time.Time            `json:"expires_at"`
	Holders         []HolderRecord       `json:"-"`
	Wash            *WashTradingEvidence `json:"-"`
}
