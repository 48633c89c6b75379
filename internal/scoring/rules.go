package scoring

import (
	"fmt"
	"strings"

	"solana-token-risk/internal/domain"
)

const (
	creatorUnknownFloor   = 65
	creatorNewWalletFloor = 65
	zeroLiquidityFloor    = 90
	whalePercent          = 30.0
	whaleFloor            = 80
	whaleMinimum          = 75
	creatorHoldsPercent   = 20.0
	creatorHoldsFloor     = 70
	mintAuthorityFloor    = 60
	freezeAuthorityFloor  = 70
	washHeavyPercent      = 70.0
	washHeavyFloor        = 85
	washDetectedFloor     = 65
	devDumpPercent        = 50.0
	devDumpFloor          = 70
	crashPercent          = -80.0
	crashFloor            = 75
	activeDevPenalty      = 15
)

// bundleFloors is monotone in confidence.
var bundleFloors = map[domain.Confidence]int{
	domain.ConfidenceLow:    55,
	domain.ConfidenceMedium: 75,
	domain.ConfidenceHigh:   80,
}

func rugHistory(ev Evidence, a acc) acc {
	if ev.Creator == nil || ev.Creator.RuggedTokens <= 0 {
		return a
	}
	n := ev.Creator.RuggedTokens
	a = a.hardFloor(min(95, 70+10*min(n, 5)))
	return a.flag(domain.FlagDeployer, domain.SeverityCritical,
		fmt.Sprintf("Creator has %d previously rugged %s out of %d created", n, plural(n, "token", "tokens"), max(n, ev.Creator.TokensCreated)))
}

func creatorUnknown(ev Evidence, a acc) acc {
	if ev.Creator == nil {
		a = a.floor(creatorUnknownFloor)
		return a.flag(domain.FlagData, domain.SeverityHigh, "Token creator could not be determined")
	}
	days, known := ev.Creator.WalletAge.Days()
	switch {
	case !known:
		a = a.floor(creatorNewWalletFloor)
		return a.flag(domain.FlagDeployer, domain.SeverityHigh, "Creator wallet age could not be verified")
	case days == 0:
		a = a.floor(creatorNewWalletFloor)
		return a.flag(domain.FlagDeployer, domain.SeverityHigh, "Creator wallet was created today")
	case days < 7:
		return a.flag(domain.FlagDeployer, domain.SeverityMedium, fmt.Sprintf("Creator wallet is only %d days old", days))
	}
	return a
}

func zeroLiquidity(ev Evidence, a acc) acc {
	if ev.Token.LiquidityUSD > 0 || ev.Token.OnBondingCurve {
		return a
	}
	a = a.hardFloor(zeroLiquidityFloor)
	return a.flag(domain.FlagLiquidity, domain.SeverityCritical, "No liquidity: holders cannot sell (possible honeypot or pulled liquidity)")
}

func holderConcentration(ev Evidence, a acc) acc {
	pct, addr := domain.LargestNonPoolPercent(ev.Holders)
	if pct >= whalePercent {
		a = a.floor(whaleFloor).hardFloor(whaleMinimum)
		a = a.flag(domain.FlagConcentration, domain.SeverityCritical,
			fmt.Sprintf("Single wallet %s holds %.1f%% of supply", shortAddr(addr), pct))
	}

	var top float64
	for i, h := range domain.NonPoolHolders(ev.Holders) {
		if i == 10 {
			break
		}
		top += h.PercentOfSupply
	}
	if top > 50 {
		a = a.flag(domain.FlagConcentration, domain.SeverityHigh,
			fmt.Sprintf("Top 10 non-pool holders control %.1f%% of supply", min(top, 100)))
	}
	return a
}

func creatorHoldings(ev Evidence, a acc) acc {
	if ev.Creator == nil || ev.Creator.CurrentHoldingsPercent <= creatorHoldsPercent {
		return a
	}
	a = a.floor(creatorHoldsFloor)
	return a.flag(domain.FlagDeployer, domain.SeverityHigh,
		fmt.Sprintf("Creator still holds %.1f%% of supply", ev.Creator.CurrentHoldingsPercent))
}

func authorities(ev Evidence, a acc) acc {
	if ev.Token.MintAuthorityActive {
		a = a.floor(mintAuthorityFloor)
		a = a.flag(domain.FlagAuthority, domain.SeverityHigh, "Mint authority is active: supply can be inflated")
	}
	if ev.Token.FreezeAuthorityActive {
		a = a.floor(freezeAuthorityFloor)
		a = a.flag(domain.FlagAuthority, domain.SeverityHigh, "Freeze authority is active: holder accounts can be frozen")
	}
	return a
}

func bundleConfidence(ev Evidence, a acc) acc {
	b := ev.Bundle
	threshold, ok := bundleFloors[b.Confidence]
	if !ok {
		return a
	}
	sev := domain.SeverityMedium
	switch b.Confidence {
	case domain.ConfidenceHigh:
		sev = domain.SeverityCritical
	case domain.ConfidenceMedium:
		sev = domain.SeverityHigh
	}
	a = a.floor(threshold)
	msg := fmt.Sprintf("Bundle detected (%s confidence): %d coordinated wallets control %.1f%% of supply",
		b.Confidence, len(b.Wallets), b.PercentSupplyControlled)
	if !b.Detected {
		msg = fmt.Sprintf("Coordinated buying (%s confidence): %d same-slot transactions from %d %s",
			b.Confidence, b.SameBlockTxCount, len(b.Wallets), plural(len(b.Wallets), "wallet", "wallets"))
	}
	if len(b.Patterns) > 0 {
		msg += "; " + strings.Join(b.Patterns, "; ")
	}
	return a.flag(domain.FlagBundle, sev, msg)
}

func bundleQuality(ev Evidence, a acc) acc {
	q := ev.Quality
	if q == nil {
		return a
	}
	switch q.Assessment {
	case domain.QualityVerySuspicious:
		a = a.floor(75)
		return a.flag(domain.FlagBundle, domain.SeverityHigh,
			fmt.Sprintf("Bundle looks like a rug setup (suspicion %d/100)", q.LegitimacyScore))
	case domain.QualitySuspicious:
		a = a.floor(65)
		return a.flag(domain.FlagBundle, domain.SeverityMedium,
			fmt.Sprintf("Bundle wallets show suspicious traits (suspicion %d/100)", q.LegitimacyScore))
	case domain.QualityLikelyLegit:
		return a.flag(domain.FlagBundle, domain.SeverityLow, "Bundle resembles a team or investor allocation")
	}
	return a
}

func washTrading(ev Evidence, a acc) acc {
	w := ev.Wash
	if w == nil {
		return a
	}
	switch {
	case w.WashPercent >= washHeavyPercent:
		a = a.floor(washHeavyFloor)
		return a.flag(domain.FlagWashTrading, domain.SeverityCritical,
			fmt.Sprintf("%.0f%% of sampled buys come from bundle wallets", w.WashPercent))
	case w.Detected:
		a = a.floor(washDetectedFloor)
		return a.flag(domain.FlagWashTrading, domain.SeverityHigh,
			fmt.Sprintf("Wash trading: %.0f%% of sampled buys come from bundle wallets", w.WashPercent))
	}
	return a
}

func devSold(ev Evidence, a acc) acc {
	d := ev.Dev
	if d == nil || !d.HasSold {
		return a
	}
	if d.FullyExited() {
		a = a.flag(domain.FlagDevActivity, domain.SeverityMedium, "Developer has sold their entire position")
	}
	if d.PercentSold >= devDumpPercent {
		a = a.floor(devDumpFloor)
		return a.flag(domain.FlagDevActivity, domain.SeverityHigh,
			fmt.Sprintf("Developer sold %.0f%% of their tokens in %d %s", d.PercentSold, d.SellCount, plural(d.SellCount, "sale", "sales")))
	}
	return a
}

func priceCrash(ev Evidence, a acc) acc {
	if ev.Token.PriceChange24h >= crashPercent {
		return a
	}
	a = a.hardFloor(crashFloor)
	return a.flag(domain.FlagPrice, domain.SeverityCritical,
		fmt.Sprintf("Price crashed %.0f%% in 24h", ev.Token.PriceChange24h))
}

// informational adds context flags that do not move the score.
func informational(ev Evidence, a acc) acc {
	t := ev.Token
	if t.OnBondingCurve {
		a = a.flag(domain.FlagLiquidity, domain.SeverityLow,
			fmt.Sprintf("Token is still on its bonding curve (%.0f%% complete)", t.BondingCurveProgress))
	}
	if t.LPLockedPercent >= 90 {
		a = a.flag(domain.FlagLiquidity, domain.SeverityLow, fmt.Sprintf("%.0f%% of LP tokens are locked or burned", t.LPLockedPercent))
	}
	if !t.HasWebsite && !t.HasTwitter {
		a = a.flag(domain.FlagNarrative, domain.SeverityLow, "No website or social links")
	}
	return a
}

func bundleWithActiveDev(ev Evidence, a acc) acc {
	if !ev.Bundle.Detected {
		return a
	}
	if ev.Dev != nil && ev.Dev.FullyExited() {
		return a
	}
	a = a.add(activeDevPenalty)
	return a.flag(domain.FlagDevActivity, domain.SeverityHigh, "Bundle present while developer wallet is still active")
}

// maturity caps apply to large, long-lived tokens, strongest first.
func maturity(ev Evidence, a acc) acc {
	t := ev.Token
	ageDays := t.AgeHours / 24
	switch {
	case t.MarketCapUSD >= 100_000_000 && ageDays >= 30:
		a = a.ceiling(35)
	case t.MarketCapUSD >= 10_000_000 && ageDays >= 14 && t.LiquidityUSD >= 250_000:
		a = a.ceiling(50)
	case ageDays >= 7 && t.LiquidityUSD >= 100_000 && t.HolderCount >= 1000:
		a = a.ceiling(60)
	default:
		return a
	}
	return a.flag(domain.FlagMaturity, domain.SeverityLow,
		fmt.Sprintf("Established token: %.0f days old, $%s market cap", ageDays, compactUSD(t.MarketCapUSD)))
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}

func shortAddr(addr string) string {
	if len(addr) <= 10 {
		return addr
	}
	return addr[:4] + "..." + addr[len(addr)-4:]
}

func compactUSD(v float64) string {
	switch {
	case v >= 1e9:
		return fmt.Sprintf("%.1fB", v/1e9)
	case v >= 1e6:
		return fmt.Sprintf("%.1fM", v/1e6)
	case v >= 1e3:
		return fmt.Sprintf("%.1fK", v/1e3)
	default:
		return fmt.Sprintf("%.0f", v)
	}
}
