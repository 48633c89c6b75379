package analyzer

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"solana-token-risk/internal/bundle"
	"solana-token-risk/internal/bundlequality"
	"solana-token-risk/internal/chain"
	"solana-token-risk/internal/creator"
	"solana-token-risk/internal/domain"
	"solana-token-risk/internal/holders"
	"solana-token-risk/internal/market"
	"solana-token-risk/internal/traces"
	"solana-token-risk/internal/washtrading"
)

// pass is the state of one analysis. Each field is written by a single
// goroutine of one phase and read only after that phase's Wait.
type pass struct {
	mint string
	info *chain.MintInfo
	now  time.Time
	log  logrus.FieldLogger

	// phase 2
	raw         []chain.RawHolder
	holderCount int
	market      *market.TokenMarket
	recent      []chain.TxRef
	curve       *chain.BondingCurveState
	solPrice    float64

	snapshot domain.TokenSnapshot
	pools    *holders.ProgramTable
	holders  []domain.HolderRecord

	// phase 3
	bundle   domain.BundleEvidence
	creator  *creator.Result
	baseline *domain.Baseline

	// phase 4
	quality *domain.BundleQuality
	wash    domain.WashTradingEvidence

	mu       sync.Mutex
	degraded []string
}

// degrade records that signal fell back to its absent value.
func (p *pass) degrade(signal string, err error) {
	p.log.WithError(err).WithField("signal", signal).Warn("signal unavailable")
	p.mu.Lock()
	p.degraded = append(p.degraded, signal)
	p.mu.Unlock()
}

// fetch runs the independent reads concurrently. No read aborts the others.
func (a *Analyzer) fetch(ctx context.Context, p *pass) {
	var g errgroup.Group

	step := func(name string, fn func(ctx context.Context) error) {
		g.Go(func() error {
			ctx, span := traces.StartSpan(ctx, "fetch."+name, traces.Extractor(name))
			defer span.End()
			if err := fn(ctx); err != nil {
				traces.Fail(span, err)
				p.degrade(name, err)
			}
			return nil
		})
	}

	step("holders", func(ctx context.Context) error {
		raw, err := a.chain.GetLargestHolders(ctx, p.mint)
		p.raw = raw
		return err
	})
	step("holder_count", func(ctx context.Context) error {
		n, err := a.chain.GetHolderCount(ctx, p.mint, p.info.Program)
		p.holderCount = n
		return err
	})
	step("market", func(ctx context.Context) error {
		m, err := a.market.GetTokenMarket(ctx, p.mint)
		p.market = m
		return err
	})
	step("recent_transactions", func(ctx context.Context) error {
		refs, err := a.chain.GetRecentTransactions(ctx, p.mint, bundle.RecentTxLimit)
		p.recent = refs
		return err
	})
	step("bonding_curve", func(ctx context.Context) error {
		c, err := a.chain.GetBondingCurve(ctx, p.mint)
		p.curve = c
		return err
	})
	g.Go(func() error {
		price, fresh := a.prices.Get(ctx)
		if !fresh {
			p.log.WithField("price", price).Debug("using stale or missing quote price")
		}
		p.solPrice = price
		return nil
	})

	_ = g.Wait()
}

// buildSnapshot merges mint, market and curve data into the scorer's token metrics.
func (p *pass) buildSnapshot() {
	s := domain.TokenSnapshot{
		Address:               p.mint,
		HolderCount:           p.holderCount,
		MintAuthorityActive:   p.info.MintAuthority != nil,
		FreezeAuthorityActive: p.info.FreezeAuthority != nil,
	}

	var pools []string
	if m := p.market; m != nil {
		s.Name = m.Name
		s.Symbol = m.Symbol
		s.AgeHours = m.AgeHours(p.now)
		s.LiquidityUSD = m.LiquidityUSD
		s.MarketCapUSD = m.MarketCapUSD
		s.Volume24h = m.Volume24h
		s.PriceChange24h = m.PriceChange24h
		s.Txns24h = domain.TxnCounts{Buys: m.Buys24h, Sells: m.Sells24h}
		s.HasWebsite = m.HasWebsite
		s.HasTwitter = m.HasTwitter
		pools = append(pools, m.PoolAddresses...)
	}

	if c := p.curve; c != nil {
		pools = append(pools, c.Address)
		if !c.Complete {
			s.OnBondingCurve = true
			s.BondingCurveProgress = c.Progress()
			if s.LiquidityUSD <= 0 && p.solPrice > 0 {
				s.LiquidityUSD = c.LiquidityUSD(p.solPrice)
			}
		}
	}

	p.snapshot = s
	p.pools = holders.NewProgramTable(pools...)
}

// classifyHolders labels the raw holder snapshot, marking creatorAddr when known.
func (p *pass) classifyHolders(creatorAddr string) {
	p.holders = holders.NewClassifier(p.pools).Classify(holders.Input{
		Holders:     p.raw,
		TotalSupply: p.info.Supply,
		Creator:     creatorAddr,
	})
}

// refineAge fills an unknown token age from the creation transaction, or from the
// oldest recent signature when the recent page reaches back to the first activity.
func (p *pass) refineAge() {
	if p.snapshot.AgeHours > 0 {
		return
	}
	var first int64
	switch {
	case p.creator != nil && p.creator.Creation != nil && p.creator.Creation.BlockTime > 0:
		first = p.creator.Creation.BlockTime
	case len(p.recent) > 0 && len(p.recent) < bundle.RecentTxLimit:
		if bt := p.recent[len(p.recent)-1].BlockTime; bt != nil {
			first = *bt
		}
	}
	if first == 0 {
		return
	}
	if h := p.now.Sub(time.Unix(first, 0)).Hours(); h > 0 {
		p.snapshot.AgeHours = h
	}
}

// extract runs bundle detection, creator profiling and the optional narrative concurrently.
func (a *Analyzer) extract(ctx context.Context, p *pass) {
	var g errgroup.Group

	g.Go(func() error {
		ctx, span := traces.StartSpan(ctx, "extract.bundle", traces.Extractor("bundle"))
		defer span.End()
		p.bundle = a.bundles.Detect(ctx, bundle.Input{
			Mint:     p.mint,
			Holders:  p.holders,
			Snapshot: p.snapshot,
			Recent:   p.recent,
		})
		return nil
	})

	g.Go(func() error {
		ctx, span := traces.StartSpan(ctx, "extract.creator", traces.Extractor("creator"))
		defer span.End()
		in := creator.Input{
			Mint:        p.mint,
			Holders:     p.holders,
			TotalSupply: p.info.Supply,
		}
		if p.market != nil {
			in.CreatedAt = p.market.PairCreatedAt
		}
		res, err := a.creators.Build(ctx, in)
		if err != nil {
			traces.Fail(span, err)
			p.degrade("creator", err)
		}
		p.creator = res
		return nil
	})

	if a.narrative != nil {
		g.Go(func() error {
			ctx, span := traces.StartSpan(ctx, "extract.narrative", traces.Extractor("narrative"))
			defer span.End()
			b, err := a.narrative.Generate(ctx, p.snapshot)
			if err != nil {
				traces.Fail(span, err)
				p.degrade("narrative", err)
				return nil
			}
			p.baseline = b
			return nil
		})
	}

	_ = g.Wait()
}

// hasSuspects reports whether the bundle detector named any wallet.
func (p *pass) hasSuspects() bool {
	return len(p.bundle.Wallets) > 0
}

// fanIn runs the bundle-dependent extractors. Wash trading needs suspect
// wallets; bundle quality needs a detected bundle.
func (a *Analyzer) fanIn(ctx context.Context, p *pass) {
	if !p.hasSuspects() {
		return
	}

	var creatorAddr string
	if p.creator != nil && p.creator.Profile != nil {
		creatorAddr = p.creator.Profile.Address
	}

	var g errgroup.Group
	if p.bundle.Detected {
		g.Go(func() error {
			ctx, span := traces.StartSpan(ctx, "extract.bundle_quality", traces.Extractor("bundle_quality"))
			defer span.End()
			p.quality = a.quality.Assess(ctx, bundlequality.Input{
				Mint:     p.mint,
				Bundle:   p.bundle,
				Holders:  p.holders,
				Creator:  creatorAddr,
				AgeHours: p.snapshot.AgeHours,
			})
			return nil
		})
	}
	g.Go(func() error {
		ctx, span := traces.StartSpan(ctx, "extract.wash_trading", traces.Extractor("wash_trading"))
		defer span.End()
		p.wash = a.wash.Detect(ctx, washtrading.Input{
			Mint:         p.mint,
			Wallets:      p.bundle.Wallets,
			Recent:       p.recent,
			ReportedBuys: p.snapshot.Txns24h.Buys,
			ReportedSell: p.snapshot.Txns24h.Sells,
			Pools:        p.pools,
		})
		return nil
	})
	_ = g.Wait()
}

// record assembles the persisted assessment.
func (p *pass) record(id string, assessment domain.RiskAssessment, ttl time.Duration) *domain.AssessmentRecord {
	rec := &domain.AssessmentRecord{
		ID:              id,
		Mint:            p.mint,
		Assessment:      assessment,
		Snapshot:        p.snapshot,
		BundleDetected:  p.bundle.Detected,
		BundleConf:      p.bundle.Confidence,
		BundleWallets:   len(p.bundle.Wallets),
		DegradedSignals: p.degraded,
		AssessedAt:      p.now,
		ExpiresAt:       p.now.Add(ttl),
		Holders:         p.holders,
	}
	if p.creator != nil && p.creator.Profile != nil {
		rec.CreatorAddress = p.creator.Profile.Address
	}
	if p.quality != nil {
		rec.QualityVerdict = p.quality.Assessment
	}
	if p.hasSuspects() {
		rec.WashPercent = p.wash.WashPercent
		wash := p.wash
		rec.Wash = &wash
	}
	if p.baseline != nil {
		rec.Summary = p.baseline.Summary
	}
	return rec
}
