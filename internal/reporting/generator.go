package reporting

import (
	"fmt"
	"sort"
	"time"

	"solana-token-risk/internal/domain"
)

const maxHolderRows = 10

var severityRank = map[domain.Severity]int{
	domain.SeverityCritical: 0,
	domain.SeverityHigh:     1,
	domain.SeverityMedium:   2,
	domain.SeverityLow:      3,
}

// Build creates a Report from rec and its earlier assessments.
// history may include rec itself; it is skipped.
func Build(rec *domain.AssessmentRecord, history []*domain.AssessmentRecord, now time.Time) *Report {
	a := rec.Assessment
	s := rec.Snapshot

	r := &Report{
		GeneratedAt:    now,
		AssessedAt:     rec.AssessedAt,
		AssessmentID:   rec.ID,
		Mint:           rec.Mint,
		Name:           s.Name,
		Symbol:         s.Symbol,
		Score:          a.Score,
		Level:          a.Level,
		Recommendation: a.Recommendation,
		Summary:        rec.Summary,
		Degraded:       append([]string(nil), rec.DegradedSignals...),
		Bundle: BundleSection{
			Detected:    rec.BundleDetected,
			Confidence:  rec.BundleConf,
			Wallets:     rec.BundleWallets,
			WashPercent: rec.WashPercent,
			Quality:     rec.QualityVerdict,
		},
	}

	for _, f := range a.Flags {
		r.Flags = append(r.Flags, FlagRow{Severity: f.Severity, Type: f.Type, Message: f.Message})
	}
	sort.SliceStable(r.Flags, func(i, j int) bool {
		return severityRank[r.Flags[i].Severity] < severityRank[r.Flags[j].Severity]
	})

	r.Metrics = tokenMetrics(s)

	for i, h := range rec.Holders {
		if i == maxHolderRows {
			break
		}
		r.TopHolders = append(r.TopHolders, HolderRow{
			Rank:    i + 1,
			Address: h.Address,
			Percent: h.PercentOfSupply,
			Role:    h.Role,
		})
	}

	for _, h := range history {
		if h.ID == rec.ID {
			continue
		}
		r.History = append(r.History, HistoryRow{
			AssessedAt: h.AssessedAt,
			Score:      h.Assessment.Score,
			Level:      h.Assessment.Level,
		})
	}

	return r
}

func tokenMetrics(s domain.TokenSnapshot) []MetricRow {
	age := "unknown"
	if s.AgeHours > 0 {
		age = formatAge(s.AgeHours)
	}
	holders := "unknown"
	if s.HolderCount > 0 {
		holders = fmt.Sprintf("%d", s.HolderCount)
	}

	rows := []MetricRow{
		{"Age", age},
		{"Liquidity", fmt.Sprintf("$%.0f", s.LiquidityUSD)},
		{"Market Cap", fmt.Sprintf("$%.0f", s.MarketCapUSD)},
		{"Volume 24h", fmt.Sprintf("$%.0f", s.Volume24h)},
		{"Price Change 24h", fmt.Sprintf("%+.1f%%", s.PriceChange24h)},
		{"Buys / Sells 24h", fmt.Sprintf("%d / %d", s.Txns24h.Buys, s.Txns24h.Sells)},
		{"Holders", holders},
		{"Mint Authority", activeLabel(s.MintAuthorityActive)},
		{"Freeze Authority", activeLabel(s.FreezeAuthorityActive)},
	}
	if s.OnBondingCurve {
		rows = append(rows, MetricRow{"Bonding Curve", fmt.Sprintf("%.1f%% complete", s.BondingCurveProgress)})
	}
	return rows
}

func formatAge(hours float64) string {
	if hours < 48 {
		return fmt.Sprintf("%.1fh", hours)
	}
	return fmt.Sprintf("%.0fd", hours/24)
}

func activeLabel(active bool) string {
	if active {
		return "active"
	}
	return "revoked"
}
