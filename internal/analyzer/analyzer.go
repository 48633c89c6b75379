// Package analyzer runs the per-request risk pipeline.
// It coordinates: mint lookup → fetch fan-out → bundle/creator → quality/wash → scoring
package analyzer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"solana-token-risk/internal/bundle"
	"solana-token-risk/internal/bundlequality"
	"solana-token-risk/internal/chain"
	"solana-token-risk/internal/creator"
	"solana-token-risk/internal/domain"
	"solana-token-risk/internal/market"
	"solana-token-risk/internal/observability"
	"solana-token-risk/internal/pricecache"
	"solana-token-risk/internal/scoring"
	"solana-token-risk/internal/storage"
	"solana-token-risk/internal/traces"
	"solana-token-risk/internal/washtrading"
)

// DefaultCacheTTL is how long a completed assessment is served from cache.
const DefaultCacheTTL = 5 * time.Minute

var (
	// ErrTokenNotFound is returned when the mint does not exist on chain.
	ErrTokenNotFound = errors.New("token not found")

	// ErrInvalidMint is returned for malformed mint addresses.
	ErrInvalidMint = errors.New("invalid mint address")
)

// NarrativeGenerator produces an optional baseline score and flags from token metadata.
type NarrativeGenerator interface {
	Generate(ctx context.Context, snapshot domain.TokenSnapshot) (*domain.Baseline, error)
}

// Analyzer produces risk assessments.
type Analyzer struct {
	chain     chain.Provider
	market    market.Provider
	prices    pricecache.Cache
	narrative NarrativeGenerator

	cache   storage.AssessmentCache
	history storage.AssessmentHistoryStore

	bundles  *bundle.Detector
	wash     *washtrading.Detector
	quality  *bundlequality.Assessor
	creators *creator.Builder

	cacheTTL time.Duration
	now      func() time.Time
	log      logrus.FieldLogger
}

// Options for creating an Analyzer.
type Options struct {
	// Required providers
	Chain  chain.Provider
	Market market.Provider

	// Prices defaults to a TTL cache over Market.GetQuotePriceUSD.
	Prices pricecache.Cache

	// Optional stores
	Creators storage.CreatorStore
	Cache    storage.AssessmentCache
	History  storage.AssessmentHistoryStore

	Narrative NarrativeGenerator

	CacheTTL      time.Duration // <= 0 uses DefaultCacheTTL
	ReputationTTL time.Duration // <= 0 uses creator.DefaultReputationTTL
	Now           func() time.Time
	Logger        logrus.FieldLogger
}

// New creates an Analyzer.
func New(opts Options) (*Analyzer, error) {
	if opts.Chain == nil || opts.Market == nil {
		return nil, errors.New("analyzer: chain and market providers are required")
	}
	log := opts.Logger
	if log == nil {
		log = logrus.StandardLogger()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	prices := opts.Prices
	if prices == nil {
		prices = pricecache.New(opts.Market.GetQuotePriceUSD, pricecache.DefaultTTL,
			pricecache.WithClock(now), pricecache.WithLogger(log))
	}
	cacheTTL := opts.CacheTTL
	if cacheTTL <= 0 {
		cacheTTL = DefaultCacheTTL
	}

	creatorOpts := []creator.Option{
		creator.WithMarket(opts.Market),
		creator.WithClock(now),
		creator.WithLogger(log),
	}
	if opts.Creators != nil {
		creatorOpts = append(creatorOpts, creator.WithStore(opts.Creators))
	}
	if opts.ReputationTTL > 0 {
		creatorOpts = append(creatorOpts, creator.WithReputationTTL(opts.ReputationTTL))
	}

	return &Analyzer{
		chain:     opts.Chain,
		market:    opts.Market,
		prices:    prices,
		narrative: opts.Narrative,
		cache:     opts.Cache,
		history:   opts.History,
		bundles:   bundle.NewDetector(opts.Chain, log),
		wash:      washtrading.NewDetector(opts.Chain, log),
		quality:   bundlequality.NewAssessor(opts.Chain, log),
		creators:  creator.NewBuilder(opts.Chain, creatorOpts...),
		cacheTTL:  cacheTTL,
		now:       now,
		log:       log.WithField("component", "analyzer"),
	}, nil
}

// Analyze returns the risk assessment of mint, from cache when a fresh one exists.
// Returns ErrInvalidMint or ErrTokenNotFound when the mint cannot be analyzed at all;
// every other failed fetch degrades to an absent signal.
func (a *Analyzer) Analyze(ctx context.Context, mint string) (*domain.AssessmentRecord, error) {
	if err := chain.ValidateAddress(mint); err != nil {
		observability.RecordAssessmentError("invalid_mint")
		return nil, fmt.Errorf("%w: %v", ErrInvalidMint, err)
	}

	if rec := a.cached(ctx, mint); rec != nil {
		return rec, nil
	}

	ctx, span := traces.StartSpan(ctx, "analyzer.Analyze", traces.Mint(mint))
	defer span.End()

	start := a.now()
	rec, err := a.run(ctx, mint)
	if err != nil {
		traces.Fail(span, err)
		if errors.Is(err, ErrTokenNotFound) {
			observability.RecordAssessmentError("not_found")
		} else {
			observability.RecordAssessmentError("mint_lookup")
		}
		return nil, err
	}
	span.SetAttributes(traces.RiskScore(rec.Assessment.Score), traces.RiskLevel(string(rec.Assessment.Level)))

	observability.RecordAssessment(string(rec.Assessment.Level), rec.Assessment.Score, a.now().Sub(start).Seconds())
	for _, f := range rec.Assessment.Flags {
		observability.RecordFlag(string(f.Type), string(f.Severity))
	}

	a.persist(ctx, rec)
	return rec, nil
}

// History returns up to limit past assessments of mint, newest first.
func (a *Analyzer) History(ctx context.Context, mint string, limit int) ([]*domain.AssessmentRecord, error) {
	if err := chain.ValidateAddress(mint); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidMint, err)
	}
	if a.history == nil {
		return nil, nil
	}
	return a.history.ListByMint(ctx, mint, limit)
}

func (a *Analyzer) cached(ctx context.Context, mint string) *domain.AssessmentRecord {
	if a.cache == nil {
		return nil
	}
	rec, err := a.cache.Get(ctx, mint, a.now())
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			a.log.WithError(err).WithField("mint", mint).Warn("assessment cache read failed")
		}
		observability.RecordCacheLookup("assessment", false)
		return nil
	}
	observability.RecordCacheLookup("assessment", true)
	return rec
}

// persist writes rec to the cache and history log. Failures are logged only.
// Degraded assessments go to history but are never cached, so a provider
// outage does not pin its conservative score for the whole TTL.
func (a *Analyzer) persist(ctx context.Context, rec *domain.AssessmentRecord) {
	log := a.log.WithFields(logrus.Fields{"mint": rec.Mint, "assessment_id": rec.ID})
	if a.cache != nil && len(rec.DegradedSignals) == 0 {
		if err := a.cache.Put(ctx, rec); err != nil {
			log.WithError(err).Warn("assessment cache write failed")
		}
	}
	if a.history != nil {
		if err := a.history.Append(ctx, rec); err != nil {
			log.WithError(err).Warn("assessment history append failed")
		}
	}
}

// run executes the pipeline phases.
//  1. Mint lookup (mandatory)
//  2. Fetch fan-out: holders, holder count, market, recent txs, bonding curve, quote price
//  3. Bundle detection, creator profile and narrative, concurrently
//  4. Bundle quality and wash trading, concurrently
//  5. Scoring
func (a *Analyzer) run(ctx context.Context, mint string) (*domain.AssessmentRecord, error) {
	now := a.now()
	log := a.log.WithField("mint", mint)

	// Phase 1: mint lookup
	info, err := a.chain.GetMintInfo(ctx, mint)
	if err != nil {
		if errors.Is(err, chain.ErrAccountNotFound) || errors.Is(err, chain.ErrNotAMint) {
			return nil, fmt.Errorf("%w: %s", ErrTokenNotFound, mint)
		}
		return nil, fmt.Errorf("phase 1 (mint lookup) failed: %w", err)
	}

	p := &pass{mint: mint, info: info, now: now, log: log}

	// Phase 2: fetch fan-out
	a.fetch(ctx, p)
	p.buildSnapshot()
	p.classifyHolders("")

	// Phase 3: bundle, creator, narrative
	a.extract(ctx, p)
	p.refineAge()
	if p.creator != nil && p.creator.Profile != nil {
		p.classifyHolders(p.creator.Profile.Address)
	}

	// Phase 4: quality, wash trading
	a.fanIn(ctx, p)

	// Phase 5: scoring
	ev := scoring.Evidence{
		Token:    p.snapshot,
		Holders:  p.holders,
		Bundle:   p.bundle,
		Quality:  p.quality,
		Baseline: p.baseline,
	}
	if p.hasSuspects() {
		ev.Wash = &p.wash
	}
	if p.creator != nil {
		ev.Creator = p.creator.Profile
		ev.Dev = p.creator.Dev
	}
	assessment := scoring.Score(ev)

	if p.bundle.Detected {
		observability.RecordBundleDetection(p.bundle.Confidence.String())
	}
	for _, s := range p.degraded {
		observability.RecordDegradedSignal(s)
	}

	log.WithFields(logrus.Fields{
		"score":    assessment.Score,
		"level":    assessment.Level,
		"flags":    len(assessment.Flags),
		"degraded": p.degraded,
	}).Info("assessment complete")

	return p.record(uuid.NewString(), assessment, a.cacheTTL), nil
}
