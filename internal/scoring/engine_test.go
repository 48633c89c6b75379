package scoring

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solana-token-risk/internal/domain"
)

func veteranCreator() *domain.CreatorProfile {
	return &domain.CreatorProfile{Address: "dev", WalletAge: domain.KnownAge(400), TokensCreated: 1}
}

// healthyToken is a mid-size token with no risk indicators.
func healthyToken() domain.TokenSnapshot {
	return domain.TokenSnapshot{
		Address:        "mint",
		AgeHours:       72,
		LiquidityUSD:   80_000,
		MarketCapUSD:   600_000,
		Volume24h:      40_000,
		Txns24h:        domain.TxnCounts{Buys: 200, Sells: 180},
		HolderCount:    900,
		HasWebsite:     true,
		HasTwitter:     true,
		PriceChange24h: 5,
	}
}

func matureToken() domain.TokenSnapshot {
	t := healthyToken()
	t.AgeHours = 45 * 24
	t.MarketCapUSD = 150_000_000
	t.LiquidityUSD = 5_000_000
	t.HolderCount = 50_000
	return t
}

func detectedBundle(c domain.Confidence, wallets int) domain.BundleEvidence {
	b := domain.NewBundleEvidence()
	b.Detected = true
	b.Confidence = c
	for i := 0; i < wallets; i++ {
		b.Wallets[string(rune('a'+i))] = struct{}{}
	}
	return b
}

func hasFlag(flags []domain.Flag, t domain.FlagType, s domain.Severity) bool {
	for _, f := range flags {
		if f.Type == t && f.Severity == s {
			return true
		}
	}
	return false
}

func TestScore_HealthyTokenIsSafe(t *testing.T) {
	got := Score(Evidence{Token: healthyToken(), Creator: veteranCreator(), Bundle: domain.NewBundleEvidence()})
	assert.Equal(t, DefaultBaselineScore, got.Score)
	assert.Equal(t, domain.LevelSafe, got.Level)
	assert.NotEmpty(t, got.Recommendation)
}

func TestScore_SerialRuggerWithNoLiquidity(t *testing.T) {
	tok := healthyToken()
	tok.AgeHours = 0.4
	tok.LiquidityUSD = 0

	got := Score(Evidence{
		Token:   tok,
		Creator: &domain.CreatorProfile{Address: "dev", WalletAge: domain.KnownAge(3), TokensCreated: 5, RuggedTokens: 2},
		Bundle:  domain.NewBundleEvidence(),
	})

	assert.GreaterOrEqual(t, got.Score, 90)
	assert.Equal(t, domain.LevelScam, got.Level)
	assert.True(t, hasFlag(got.Flags, domain.FlagDeployer, domain.SeverityCritical))
	assert.True(t, hasFlag(got.Flags, domain.FlagLiquidity, domain.SeverityCritical))
}

func TestScore_HighBundleWithActiveDev(t *testing.T) {
	tok := healthyToken()
	tok.AgeHours = 2
	tok.LiquidityUSD = 50_000

	b := detectedBundle(domain.ConfidenceHigh, 12)
	b.SameBlockTxCount = 30
	b.PercentSupplyControlled = 18

	got := Score(Evidence{
		Token:   tok,
		Creator: veteranCreator(),
		Bundle:  b,
		Dev:     &domain.DevActivity{CurrentHoldingsPercent: 8, HoldingsKnown: true},
	})

	assert.GreaterOrEqual(t, got.Score, 95)
	assert.LessOrEqual(t, got.Score, 100)
	assert.Equal(t, domain.LevelScam, got.Level)
	assert.True(t, hasFlag(got.Flags, domain.FlagBundle, domain.SeverityCritical))
}

func TestScore_HighBundleDevHoldingsUnknown(t *testing.T) {
	tok := healthyToken()
	tok.AgeHours = 2
	tok.LiquidityUSD = 50_000

	b := detectedBundle(domain.ConfidenceHigh, 12)
	b.SameBlockTxCount = 30

	unknown := Score(Evidence{
		Token:   tok,
		Creator: veteranCreator(),
		Bundle:  b,
		Dev:     &domain.DevActivity{HasSold: true, PercentSold: 25, SellCount: 1},
	})

	assert.GreaterOrEqual(t, unknown.Score, 95)
	assert.True(t, hasFlag(unknown.Flags, domain.FlagDevActivity, domain.SeverityHigh))
	assert.False(t, hasFlag(unknown.Flags, domain.FlagDevActivity, domain.SeverityMedium))
}

func TestScore_ConfidenceFloorWithoutDetection(t *testing.T) {
	tok := healthyToken()
	tok.AgeHours = 2

	b := domain.NewBundleEvidence()
	b.Confidence = domain.ConfidenceMedium
	b.SameBlockTxCount = 8
	b.Wallets["sniper"] = struct{}{}

	got := Score(Evidence{Token: tok, Creator: veteranCreator(), Bundle: b})

	assert.Equal(t, 75, got.Score, "MEDIUM floor applies, no active-developer penalty without a bundle")
	assert.True(t, hasFlag(got.Flags, domain.FlagBundle, domain.SeverityHigh))
	assert.False(t, hasFlag(got.Flags, domain.FlagDevActivity, domain.SeverityHigh))
}

func TestScore_HighBundleClampedAt100(t *testing.T) {
	tok := healthyToken()
	tok.AgeHours = 2
	tok.FreezeAuthorityActive = true

	got := Score(Evidence{
		Token:    tok,
		Creator:  veteranCreator(),
		Bundle:   detectedBundle(domain.ConfidenceHigh, 12),
		Wash:     &domain.WashTradingEvidence{Detected: true, BundleBuyCount: 15, OrganicBuyCount: 2, WashPercent: 88},
		Baseline: &domain.Baseline{Score: 60},
	})
	// wash floor 85 + active dev 15
	assert.Equal(t, 100, got.Score)
}

func TestScore_MatureTokenCapped(t *testing.T) {
	got := Score(Evidence{Token: matureToken(), Creator: veteranCreator(), Bundle: domain.NewBundleEvidence()})
	assert.LessOrEqual(t, got.Score, 35)

	// weaker floors set earlier are pulled back down
	tok := matureToken()
	tok.FreezeAuthorityActive = true
	got = Score(Evidence{
		Token:   tok,
		Creator: veteranCreator(),
		Bundle:  detectedBundle(domain.ConfidenceMedium, 6),
	})
	assert.Equal(t, 35, got.Score)
	assert.True(t, hasFlag(got.Flags, domain.FlagMaturity, domain.SeverityLow))
}

func TestScore_HardMinimumsSurviveCaps(t *testing.T) {
	t.Run("rug history", func(t *testing.T) {
		c := veteranCreator()
		c.RuggedTokens = 1
		got := Score(Evidence{Token: matureToken(), Creator: c, Bundle: domain.NewBundleEvidence()})
		assert.GreaterOrEqual(t, got.Score, 70)
	})

	t.Run("zero liquidity", func(t *testing.T) {
		tok := matureToken()
		tok.LiquidityUSD = 0
		got := Score(Evidence{Token: tok, Creator: veteranCreator(), Bundle: domain.NewBundleEvidence()})
		assert.GreaterOrEqual(t, got.Score, 90)
		assert.Equal(t, domain.LevelScam, got.Level)
	})

	t.Run("whale", func(t *testing.T) {
		got := Score(Evidence{
			Token:   matureToken(),
			Creator: veteranCreator(),
			Holders: []domain.HolderRecord{
				{Address: "pool", PercentOfSupply: 60, IsLiquidityPool: true},
				{Address: "whale", PercentOfSupply: 31},
			},
			Bundle: domain.NewBundleEvidence(),
		})
		assert.GreaterOrEqual(t, got.Score, 75)
	})

	t.Run("price crash", func(t *testing.T) {
		tok := matureToken()
		tok.PriceChange24h = -85
		got := Score(Evidence{Token: tok, Creator: veteranCreator(), Bundle: domain.NewBundleEvidence()})
		assert.GreaterOrEqual(t, got.Score, 75)
	})
}

func TestScore_PoolHoldingsIgnoredForConcentration(t *testing.T) {
	got := Score(Evidence{
		Token:   healthyToken(),
		Creator: veteranCreator(),
		Holders: []domain.HolderRecord{{Address: "pool", PercentOfSupply: 80, IsLiquidityPool: true}},
		Bundle:  domain.NewBundleEvidence(),
	})
	assert.Equal(t, domain.LevelSafe, got.Level)
}

func TestScore_ConfidenceMonotonic(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	levels := []domain.Confidence{domain.ConfidenceNone, domain.ConfidenceLow, domain.ConfidenceMedium, domain.ConfidenceHigh}

	for i := 0; i < 200; i++ {
		ev := randomEvidence(rng)
		ev.Bundle = detectedBundle(domain.ConfidenceNone, 5)

		prev := -1
		for _, c := range levels {
			ev.Bundle.Confidence = c
			s := Score(ev).Score
			require.GreaterOrEqual(t, s, prev, "confidence %s lowered the score (case %d)", c, i)
			prev = s
		}
	}
}

func TestScore_BoundsAndPurity(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	for i := 0; i < 500; i++ {
		ev := randomEvidence(rng)
		first := Score(ev)
		second := Score(ev)

		if first.Score < 0 || first.Score > 100 {
			t.Fatalf("score out of range: %d", first.Score)
		}
		if first.Level != Classify(first.Score) {
			t.Errorf("level %s does not match score %d", first.Level, first.Score)
		}
		assert.Equal(t, first, second, "repeated scoring differs (case %d)", i)
	}
}

func TestScore_BaselineFlagsMerged(t *testing.T) {
	tok := healthyToken()
	tok.LiquidityUSD = 0
	baseline := &domain.Baseline{
		Score: 40,
		Flags: []domain.Flag{
			{Type: domain.FlagNarrative, Severity: domain.SeverityLow, Message: "Meme token with copied branding"},
			{Type: domain.FlagLiquidity, Severity: domain.SeverityHigh, Message: "No liquidity: holders cannot sell (possible honeypot or pulled liquidity)"},
		},
	}

	got := Score(Evidence{Token: tok, Creator: veteranCreator(), Bundle: domain.NewBundleEvidence(), Baseline: baseline})

	require.NotEmpty(t, got.Flags)
	assert.Equal(t, domain.SeverityCritical, got.Flags[0].Severity, "fresh flags come first")
	assert.Equal(t, "Meme token with copied branding", got.Flags[len(got.Flags)-1].Message)

	seen := map[string]int{}
	for _, f := range got.Flags {
		seen[f.Message]++
	}
	for msg, n := range seen {
		assert.Equal(t, 1, n, "duplicate flag %q", msg)
	}
	assert.Len(t, baseline.Flags, 2, "baseline must not be modified")
}

func TestScore_BaselineIsStartingPoint(t *testing.T) {
	got := Score(Evidence{
		Token:    healthyToken(),
		Creator:  veteranCreator(),
		Bundle:   domain.NewBundleEvidence(),
		Baseline: &domain.Baseline{Score: 68},
	})
	assert.Equal(t, 68, got.Score)
	assert.Equal(t, domain.LevelDangerous, got.Level)
}

func TestScore_IncompleteCreatorData(t *testing.T) {
	undetermined := Score(Evidence{Token: healthyToken(), Bundle: domain.NewBundleEvidence()})
	assert.Equal(t, 65, undetermined.Score)
	assert.Equal(t, domain.LevelDangerous, undetermined.Level)
	assert.True(t, hasFlag(undetermined.Flags, domain.FlagData, domain.SeverityHigh))

	unknownAge := &domain.CreatorProfile{Address: "dev", WalletAge: domain.UnknownAge()}
	got := Score(Evidence{Token: healthyToken(), Creator: unknownAge, Bundle: domain.NewBundleEvidence()})
	assert.Equal(t, 65, got.Score)
	assert.GreaterOrEqual(t, undetermined.Score, got.Score, "knowing less about the creator never lowers the score")

	fresh := &domain.CreatorProfile{Address: "dev", WalletAge: domain.KnownAge(0)}
	got = Score(Evidence{Token: healthyToken(), Creator: fresh, Bundle: domain.NewBundleEvidence()})
	assert.Equal(t, 65, got.Score)
}

func TestComboEscalation_PositiveOffset(t *testing.T) {
	base := domain.TokenSnapshot{
		AgeHours:     5,
		LiquidityUSD: 5_000,
		MarketCapUSD: 20_000,
		HolderCount:  30,
		HasWebsite:   true,
		Txns24h:      domain.TxnCounts{Buys: 100, Sells: 100},
	}
	young := &domain.CreatorProfile{Address: "dev", WalletAge: domain.KnownAge(3)}

	// young token, thin liquidity, few holders, young creator
	got := Score(Evidence{Token: base, Creator: young, Bundle: domain.NewBundleEvidence()})
	assert.Equal(t, 70, got.Score)
	assert.True(t, hasFlag(got.Flags, domain.FlagPattern, domain.SeverityHigh))

	bullish := base
	bullish.Txns24h = domain.TxnCounts{Buys: 300, Sells: 100}
	bullish.PriceChange24h = 80
	got = Score(Evidence{Token: bullish, Creator: young, Bundle: domain.NewBundleEvidence()})
	assert.Equal(t, DefaultBaselineScore, got.Score)

	// offset disabled under $2,000 liquidity
	illiquid := bullish
	illiquid.LiquidityUSD = 1_500
	got = Score(Evidence{Token: illiquid, Creator: young, Bundle: domain.NewBundleEvidence()})
	assert.Equal(t, 70, got.Score)

	// offset disabled in the first hour
	newborn := bullish
	newborn.AgeHours = 0.5
	got = Score(Evidence{Token: newborn, Creator: young, Bundle: domain.NewBundleEvidence()})
	assert.Equal(t, 70, got.Score)
}

func TestComboEscalation_FiveIndicators(t *testing.T) {
	tok := domain.TokenSnapshot{
		AgeHours:       3,
		LiquidityUSD:   4_000,
		HolderCount:    20,
		PriceChange24h: -40,
		Txns24h:        domain.TxnCounts{Buys: 50, Sells: 120},
		HasTwitter:     true,
	}
	got := Score(Evidence{Token: tok, Creator: veteranCreator(), Bundle: domain.NewBundleEvidence()})
	assert.Equal(t, 75, got.Score)
}

func TestClassify(t *testing.T) {
	tests := []struct {
		score int
		want  domain.RiskLevel
	}{
		{100, domain.LevelScam},
		{80, domain.LevelScam},
		{79, domain.LevelDangerous},
		{65, domain.LevelDangerous},
		{64, domain.LevelSuspicious},
		{55, domain.LevelSuspicious},
		{54, domain.LevelSafe},
		{0, domain.LevelSafe},
	}
	for _, tt := range tests {
		if got := Classify(tt.score); got != tt.want {
			t.Errorf("Classify(%d) = %s, want %s", tt.score, got, tt.want)
		}
	}
}

func randomEvidence(rng *rand.Rand) Evidence {
	tok := domain.TokenSnapshot{
		AgeHours:              rng.Float64() * 24 * 90,
		LiquidityUSD:          float64(rng.Intn(3)) * rng.Float64() * 1_000_000,
		MarketCapUSD:          rng.Float64() * 300_000_000,
		Volume24h:             rng.Float64() * 2_000_000,
		PriceChange24h:        rng.Float64()*200 - 95,
		Txns24h:               domain.TxnCounts{Buys: rng.Intn(500), Sells: rng.Intn(500)},
		HolderCount:           rng.Intn(5000),
		MintAuthorityActive:   rng.Intn(4) == 0,
		FreezeAuthorityActive: rng.Intn(4) == 0,
		OnBondingCurve:        rng.Intn(3) == 0,
		HasWebsite:            rng.Intn(2) == 0,
	}

	ev := Evidence{Token: tok, Bundle: domain.NewBundleEvidence()}
	if rng.Intn(4) != 0 {
		age := domain.UnknownAge()
		if rng.Intn(3) != 0 {
			age = domain.KnownAge(rng.Intn(500))
		}
		ev.Creator = &domain.CreatorProfile{
			Address:                "dev",
			WalletAge:              age,
			RuggedTokens:           rng.Intn(3) * rng.Intn(2),
			CurrentHoldingsPercent: rng.Float64() * 40,
		}
	}
	if rng.Intn(2) == 0 {
		ev.Dev = &domain.DevActivity{
			HasSold:                rng.Intn(2) == 0,
			PercentSold:            rng.Float64() * 100,
			CurrentHoldingsPercent: rng.Float64() * 20,
			HoldingsKnown:          rng.Intn(2) == 0,
		}
	}
	for i, n := 0, rng.Intn(8); i < n; i++ {
		ev.Holders = append(ev.Holders, domain.HolderRecord{
			Address:         string(rune('a' + i)),
			PercentOfSupply: rng.Float64() * 40,
			IsLiquidityPool: rng.Intn(5) == 0,
		})
	}
	if rng.Intn(3) == 0 {
		ev.Bundle = detectedBundle(domain.Confidence(rng.Intn(4)), 3+rng.Intn(10))
		ev.Bundle.PercentSupplyControlled = rng.Float64() * 100
		ev.Quality = &domain.BundleQuality{
			LegitimacyScore: rng.Intn(101),
			Assessment:      []domain.QualityAssessment{domain.QualityLikelyLegit, domain.QualityNeutral, domain.QualitySuspicious, domain.QualityVerySuspicious}[rng.Intn(4)],
		}
		ev.Wash = &domain.WashTradingEvidence{WashPercent: rng.Float64() * 100, BundleBuyCount: rng.Intn(10)}
		ev.Wash.Detected = ev.Wash.WashPercent >= 30 && ev.Wash.BundleBuyCount >= 3
	}
	if rng.Intn(3) == 0 {
		ev.Baseline = &domain.Baseline{Score: rng.Intn(101), Flags: []domain.Flag{{Type: domain.FlagNarrative, Message: "narrative"}}}
	}
	return ev
}
