package scoring

import (
	"fmt"
	"strings"

	"solana-token-risk/internal/domain"
)

// indicator is one moderate risk signal counted by combo escalation.
type indicator struct {
	name string
	on   func(ev Evidence) bool
}

var moderateIndicators = []indicator{
	{"token under 24h old", func(ev Evidence) bool { return ev.Token.AgeHours < 24 }},
	{"thin liquidity", func(ev Evidence) bool { return ev.Token.LiquidityUSD < 10_000 }},
	{"sell-heavy trading", func(ev Evidence) bool {
		t := ev.Token.Txns24h
		return t.Sells > 0 && float64(t.Buys) < 0.8*float64(t.Sells)
	}},
	{"fewer than 50 holders", func(ev Evidence) bool {
		// zero means the count is unknown
		return ev.Token.HolderCount > 0 && ev.Token.HolderCount < 50
	}},
	{"bundle present", func(ev Evidence) bool { return ev.Bundle.Detected }},
	{"unverified or young creator", func(ev Evidence) bool {
		return ev.Creator == nil || ev.Creator.WalletAge.YoungerThan(7)
	}},
	{"price down over 30%", func(ev Evidence) bool { return ev.Token.PriceChange24h < -30 }},
	{"developer sold 20%+", func(ev Evidence) bool { return ev.Dev != nil && ev.Dev.PercentSold >= 20 }},
}

// comboFloors maps an indicator count to a floor, highest first.
var comboFloors = []struct {
	count int
	floor int
	sev   domain.Severity
}{
	{5, 75, domain.SeverityHigh},
	{4, 70, domain.SeverityHigh},
	{3, 60, domain.SeverityMedium},
}

// positiveOffset counts bullish counter-signals, at most 2. It is zero when
// those signals could be manufactured by the coordinated wallets themselves.
func positiveOffset(ev Evidence) int {
	t := ev.Token
	if ev.Bundle.Confidence == domain.ConfidenceHigh || t.LiquidityUSD < 2_000 || t.AgeHours < 1 {
		return 0
	}

	n := 0
	if ratio := t.BuySellRatio(); ratio > 1.3 {
		n++
	}
	if t.PriceChange24h > 50 {
		n++
	}
	if t.LiquidityUSD > 0 && t.Volume24h/t.LiquidityUSD > 2 && t.Txns24h.Buys > t.Txns24h.Sells {
		n++
	}
	return min(n, 2)
}

func comboEscalation(ev Evidence, a acc) acc {
	var hits []string
	for _, ind := range moderateIndicators {
		if ind.on(ev) {
			hits = append(hits, ind.name)
		}
	}

	count := max(0, len(hits)-positiveOffset(ev))
	for _, c := range comboFloors {
		if count < c.count {
			continue
		}
		a = a.floor(c.floor)
		return a.flag(domain.FlagPattern, c.sev,
			fmt.Sprintf("%d moderate risk indicators combined: %s", count, strings.Join(hits, ", ")))
	}
	return a
}
