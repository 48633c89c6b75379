package reporting

import (
	"fmt"
	"strings"
	"time"

	"solana-token-risk/internal/domain"
)

// RenderHistoryCSV renders assessments as CSV string, one row per assessment.
func RenderHistoryCSV(records []*domain.AssessmentRecord) string {
	var sb strings.Builder

	// Header
	sb.WriteString("assessment_id,mint,assessed_at,score,level,flags,")
	sb.WriteString("bundle_detected,bundle_confidence,bundle_wallets,wash_percent,")
	sb.WriteString("liquidity_usd,market_cap_usd,age_hours\n")

	// Rows
	for _, r := range records {
		sb.WriteString(fmt.Sprintf("%s,%s,%s,%d,%s,%d,%t,%s,%d,%.2f,%.2f,%.2f,%.2f\n",
			r.ID,
			r.Mint,
			r.AssessedAt.UTC().Format(time.RFC3339),
			r.Assessment.Score,
			r.Assessment.Level,
			len(r.Assessment.Flags),
			r.BundleDetected,
			r.BundleConf,
			r.BundleWallets,
			r.WashPercent,
			r.Snapshot.LiquidityUSD,
			r.Snapshot.MarketCapUSD,
			r.Snapshot.AgeHours,
		))
	}

	return sb.String()
}
