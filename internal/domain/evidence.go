package domain

import (
	"fmt"
	"sort"
)

// Confidence is a totally ordered bundle confidence level.
type Confidence int

const (
	ConfidenceNone Confidence = iota
	ConfidenceLow
	ConfidenceMedium
	ConfidenceHigh
)

// String returns the confidence name.
func (c Confidence) String() string {
	switch c {
	case ConfidenceLow:
		return "LOW"
	case ConfidenceMedium:
		return "MEDIUM"
	case ConfidenceHigh:
		return "HIGH"
	default:
		return "NONE"
	}
}

// MarshalText encodes the confidence by name.
func (c Confidence) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// UnmarshalText decodes a confidence name.
func (c *Confidence) UnmarshalText(text []byte) error {
	switch string(text) {
	case "NONE", "":
		*c = ConfidenceNone
	case "LOW":
		*c = ConfidenceLow
	case "MEDIUM":
		*c = ConfidenceMedium
	case "HIGH":
		*c = ConfidenceHigh
	default:
		return fmt.Errorf("unknown confidence %q", text)
	}
	return nil
}

// BundleEvidence describes coordinated-wallet activity around a token.
type BundleEvidence struct {
	Detected                bool
	Confidence              Confidence
	Wallets                 map[string]struct{}
	SameBlockTxCount        int
	PercentSupplyControlled float64 // clamped to [0,100]
	Patterns                []string
}

// NewBundleEvidence returns an empty, undetected evidence value.
func NewBundleEvidence() BundleEvidence {
	return BundleEvidence{Wallets: make(map[string]struct{})}
}

// HasWallet reports whether addr is part of the bundle.
func (b BundleEvidence) HasWallet(addr string) bool {
	_, ok := b.Wallets[addr]
	return ok
}

// WalletList returns bundle wallets sorted for deterministic iteration.
func (b BundleEvidence) WalletList() []string {
	out := make([]string, 0, len(b.Wallets))
	for w := range b.Wallets {
		out = append(out, w)
	}
	sort.Strings(out)
	return out
}

// WashTradingEvidence estimates how much buy demand is self-trading.
// Only computed when bundle wallets exist.
type WashTradingEvidence struct {
	Detected              bool
	BundleBuyCount        int
	OrganicBuyCount       int
	WashPercent           float64
	EstimatedRealBuyCount int
	DewashedBuySellRatio  float64
}

// TotalBuys returns the sampled buy count.
func (w WashTradingEvidence) TotalBuys() int {
	return w.BundleBuyCount + w.OrganicBuyCount
}

// QualityAssessment categorizes a detected bundle.
type QualityAssessment string

const (
	QualityLikelyLegit    QualityAssessment = "LIKELY_LEGIT"
	QualityNeutral        QualityAssessment = "NEUTRAL"
	QualitySuspicious     QualityAssessment = "SUSPICIOUS"
	QualityVerySuspicious QualityAssessment = "VERY_SUSPICIOUS"
)

// BundleQuality is an opinion on whether a bundle is a team allocation or a rug setup.
// Higher LegitimacyScore means more suspicious.
type BundleQuality struct {
	LegitimacyScore int
	Assessment      QualityAssessment
	PositiveSignals []string
	NegativeSignals []string
}
