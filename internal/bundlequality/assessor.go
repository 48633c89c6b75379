// Package bundlequality judges whether a detected bundle looks like a team
// allocation or a rug setup.
package bundlequality

import (
	"context"
	"fmt"
	"math"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"solana-token-risk/internal/domain"
	"solana-token-risk/internal/holders"
)

const (
	neutralScore      = 50
	maxSampledWallets = 8
	lookupConcurrency = 4
)

// ChainReader is the chain surface the assessor needs.
type ChainReader interface {
	GetWalletAge(ctx context.Context, wallet string) (domain.WalletAge, error)
	GetFirstFunder(ctx context.Context, wallet string) (string, error)
	GetTokenBalance(ctx context.Context, owner, mint string) (float64, error)
}

// Input is what the assessor inspects.
type Input struct {
	Mint     string
	Bundle   domain.BundleEvidence
	Holders  []domain.HolderRecord
	Creator  string
	AgeHours float64
}

// Assessor scores bundle legitimacy. Higher scores are more suspicious.
type Assessor struct {
	chain ChainReader
	log   logrus.FieldLogger
}

// NewAssessor creates an Assessor.
func NewAssessor(cr ChainReader, log logrus.FieldLogger) *Assessor {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Assessor{chain: cr, log: log.WithField("component", "bundlequality")}
}

// walletFacts are the sampled per-wallet lookups.
type walletFacts struct {
	age     domain.WalletAge
	funder  string
	holding bool
	checked bool // holding was determined
}

// result accumulates the score and explanations.
type result struct {
	score    int
	positive []string
	negative []string
}

func (r *result) legit(delta int, format string, args ...any) {
	r.score -= delta
	r.positive = append(r.positive, fmt.Sprintf(format, args...))
}

func (r *result) suspicious(delta int, format string, args ...any) {
	r.score += delta
	r.negative = append(r.negative, fmt.Sprintf(format, args...))
}

// Assess returns nil when the bundle was not detected.
func (a *Assessor) Assess(ctx context.Context, in Input) *domain.BundleQuality {
	if !in.Bundle.Detected {
		return nil
	}

	sample := in.Bundle.WalletList()
	if len(sample) > maxSampledWallets {
		sample = sample[:maxSampledWallets]
	}
	facts := a.lookup(ctx, in.Mint, sample, in.Holders, in.AgeHours > 24)

	r := &result{score: neutralScore}
	scoreWalletAge(r, facts)
	scoreFunding(r, facts)
	scoreBalanceVariance(r, in.Bundle, in.Holders)
	if in.AgeHours > 24 {
		scorePersistence(r, facts)
	}
	if in.Creator != "" && in.Bundle.HasWallet(in.Creator) {
		r.suspicious(20, "creator wallet is part of the bundle")
	}
	switch pct := in.Bundle.PercentSupplyControlled; {
	case pct > 40:
		r.suspicious(15, "bundle controls %.1f%% of supply", pct)
	case pct < 10:
		r.legit(5, "bundle controls only %.1f%% of supply", pct)
	}

	score := max(0, min(100, r.score))
	return &domain.BundleQuality{
		LegitimacyScore: score,
		Assessment:      categorize(score),
		PositiveSignals: r.positive,
		NegativeSignals: r.negative,
	}
}

func categorize(score int) domain.QualityAssessment {
	switch {
	case score >= 70:
		return domain.QualityVerySuspicious
	case score >= 50:
		return domain.QualitySuspicious
	case score >= 30:
		return domain.QualityNeutral
	default:
		return domain.QualityLikelyLegit
	}
}

func (a *Assessor) lookup(ctx context.Context, mint string, wallets []string, recs []domain.HolderRecord, needHolding bool) []walletFacts {
	facts := make([]walletFacts, len(wallets))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(lookupConcurrency)
	for i, w := range wallets {
		i, w := i, w
		g.Go(func() error {
			f := &facts[i]
			log := a.log.WithField("wallet", w)

			if age, err := a.chain.GetWalletAge(gctx, w); err != nil {
				log.WithError(err).Debug("wallet age lookup failed")
			} else {
				f.age = age
			}

			if funder, err := a.chain.GetFirstFunder(gctx, w); err != nil {
				log.WithError(err).Debug("funder lookup failed")
			} else {
				f.funder = funder
			}

			if !needHolding {
				return nil
			}
			if h := holders.Find(recs, w); h != nil {
				f.holding, f.checked = h.Balance > 0, true
				return nil
			}
			if bal, err := a.chain.GetTokenBalance(gctx, w, mint); err != nil {
				log.WithError(err).Debug("balance lookup failed")
			} else {
				f.holding, f.checked = bal > 0, true
			}
			return nil
		})
	}
	_ = g.Wait()
	return facts
}

func scoreWalletAge(r *result, facts []walletFacts) {
	sum, n := 0, 0
	for _, f := range facts {
		if days, ok := f.age.Days(); ok {
			sum += days
			n++
		}
	}
	if n == 0 {
		r.negative = append(r.negative, "bundle wallet ages could not be determined")
		return
	}
	avg := float64(sum) / float64(n)
	switch {
	case avg > 180:
		r.legit(20, "bundle wallets average %.0f days old", avg)
	case avg > 90:
		r.legit(10, "bundle wallets average %.0f days old", avg)
	case avg > 30:
		r.legit(5, "bundle wallets average %.0f days old", avg)
	case avg < 7:
		r.suspicious(20, "bundle wallets average only %.1f days old", avg)
	case avg < 14:
		r.suspicious(10, "bundle wallets average %.1f days old", avg)
	}
}

func scoreFunding(r *result, facts []walletFacts) {
	counts := make(map[string]int)
	known := 0
	for _, f := range facts {
		if f.funder != "" {
			counts[f.funder]++
			known++
		}
	}
	if known < 2 {
		return
	}
	if len(counts) == 1 {
		r.suspicious(25, "%d sampled wallets share a single funder", known)
		return
	}
	if float64(len(counts))/float64(known) > 0.7 {
		r.legit(10, "%d of %d sampled wallets have independent funders", len(counts), known)
	}
}

func scoreBalanceVariance(r *result, ev domain.BundleEvidence, recs []domain.HolderRecord) {
	var balances []float64
	for _, h := range recs {
		if ev.HasWallet(h.Address) && h.Balance > 0 {
			balances = append(balances, h.Balance)
		}
	}
	cv, ok := coefficientOfVariation(balances)
	if !ok {
		return
	}
	switch {
	case cv < 0.05:
		r.suspicious(20, "bundle balances are near-identical (CoV %.2f)", cv)
	case cv < 0.15:
		r.suspicious(10, "bundle balances are similar (CoV %.2f)", cv)
	case cv > 0.4:
		r.legit(10, "bundle balances vary widely (CoV %.2f)", cv)
	}
}

func scorePersistence(r *result, facts []walletFacts) {
	checked, holding := 0, 0
	for _, f := range facts {
		if f.checked {
			checked++
			if f.holding {
				holding++
			}
		}
	}
	if checked == 0 {
		return
	}
	frac := float64(holding) / float64(checked)
	switch {
	case frac > 0.9:
		r.legit(20, "%.0f%% of bundle wallets still hold after 24h", frac*100)
	case frac < 0.3:
		r.suspicious(25, "only %.0f%% of bundle wallets still hold after 24h", frac*100)
	}
}

// coefficientOfVariation returns stddev/mean; it needs at least two values and a positive mean.
func coefficientOfVariation(values []float64) (float64, bool) {
	if len(values) < 2 {
		return 0, false
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	mean := sum / float64(len(values))
	if mean <= 0 {
		return 0, false
	}
	var sq float64
	for _, v := range values {
		sq += (v - mean) * (v - mean)
	}
	return math.Sqrt(sq/float64(len(values))) / mean, true
}
