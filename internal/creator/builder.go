package creator

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"solana-token-risk/internal/chain"
	"solana-token-risk/internal/domain"
	"solana-token-risk/internal/holders"
	"solana-token-risk/internal/market"
	"solana-token-risk/internal/observability"
	"solana-token-risk/internal/slotlocator"
	"solana-token-risk/internal/solana"
	"solana-token-risk/internal/storage"
)

const (
	historyLimit      = 100 // recent creator signatures inspected
	maxDetailFetches  = 30
	maxRugChecks      = 5
	detailConcurrency = 5
	inactiveAfter     = 72 * time.Hour
	rugLiquidityUSD   = 100.0
)

// DefaultReputationTTL is how long a stored rug history is reused.
const DefaultReputationTTL = 6 * time.Hour

// ChainReader is the chain surface the builder needs.
type ChainReader interface {
	GetOldestTransaction(ctx context.Context, address string) (*chain.TxRef, error)
	GetRecentTransactions(ctx context.Context, address string, limit int) ([]chain.TxRef, error)
	GetTransactionDetail(ctx context.Context, signature string) (*chain.TxDetail, error)
	GetWalletAge(ctx context.Context, wallet string) (domain.WalletAge, error)
	GetTokenBalance(ctx context.Context, owner, mint string) (float64, error)
	GetCurrentSlot(ctx context.Context) (int64, error)
	GetBlockTime(ctx context.Context, slot int64) (*int64, error)
	GetBlock(ctx context.Context, slot int64) (*solana.Block, error)
}

// MarketReader looks up market data of previously created tokens.
type MarketReader interface {
	GetTokenMarket(ctx context.Context, mint string) (*market.TokenMarket, error)
}

// Builder derives CreatorProfile and DevActivity.
type Builder struct {
	chain   ChainReader
	market  MarketReader
	store   storage.CreatorStore
	locator *slotlocator.Locator
	ttl     time.Duration
	now     func() time.Time
	log     logrus.FieldLogger
}

// Option configures a Builder.
type Option func(*Builder)

// WithMarket enables liquidity checks on prior tokens.
func WithMarket(m MarketReader) Option {
	return func(b *Builder) { b.market = m }
}

// WithStore memoizes rug history in store for the reputation TTL.
func WithStore(s storage.CreatorStore) Option {
	return func(b *Builder) { b.store = s }
}

// WithReputationTTL sets how long a stored rug history is reused.
func WithReputationTTL(d time.Duration) Option {
	return func(b *Builder) { b.ttl = d }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(b *Builder) { b.now = now }
}

// WithLogger sets the logger.
func WithLogger(log logrus.FieldLogger) Option {
	return func(b *Builder) { b.log = log }
}

// NewBuilder creates a Builder reading from cr.
func NewBuilder(cr ChainReader, opts ...Option) *Builder {
	b := &Builder{
		chain: cr,
		ttl:   DefaultReputationTTL,
		now:   time.Now,
		log:   logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(b)
	}
	b.log = b.log.WithField("component", "creator")
	b.locator = slotlocator.New(cr, slotlocator.WithClock(b.now), slotlocator.WithLogger(b.log))
	return b
}

// Input is what Build needs about the token.
type Input struct {
	Mint        string
	Creator     string     // skips resolution when set
	CreatedAt   *time.Time // creation time hint, e.g. pair creation
	Holders     []domain.HolderRecord
	TotalSupply float64
}

// Result bundles the creator evidence. Profile and Dev are nil when the
// creator could not be determined.
type Result struct {
	Creation *Creation
	Profile  *domain.CreatorProfile
	Dev      *domain.DevActivity
}

// Build resolves the creator and derives its profile and activity in this token.
// Individual lookups degrade to unknown values; only resolution errors are returned.
func (b *Builder) Build(ctx context.Context, in Input) (*Result, error) {
	res := &Result{}
	address := in.Creator
	if address == "" {
		c, err := b.Resolve(ctx, in.Mint, in.CreatedAt)
		if err != nil {
			return res, err
		}
		if c == nil {
			return res, nil
		}
		res.Creation = c
		address = c.Address
	}
	log := b.log.WithFields(logrus.Fields{"mint": in.Mint, "creator": address})

	var (
		age     = domain.UnknownAge()
		balance float64
		details []*chain.TxDetail
		haveBal bool
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		a, err := b.chain.GetWalletAge(gctx, address)
		if err != nil {
			log.WithError(err).Warn("creator wallet age lookup failed")
			return nil
		}
		age = a
		return nil
	})
	g.Go(func() error {
		if h := holders.Find(in.Holders, address); h != nil {
			balance, haveBal = h.Balance, true
			return nil
		}
		bal, err := b.chain.GetTokenBalance(gctx, address, in.Mint)
		if err != nil {
			log.WithError(err).Warn("creator balance lookup failed")
			return nil
		}
		balance, haveBal = bal, true
		return nil
	})
	g.Go(func() error {
		details = b.history(gctx, address)
		return nil
	})
	_ = g.Wait()

	rep := b.reputation(ctx, address, in.Mint, age, details)

	profile := &domain.CreatorProfile{
		Address:       address,
		WalletAge:     age,
		TokensCreated: rep.TokensCreated,
		RuggedTokens:  rep.RuggedTokens,
	}
	if haveBal {
		profile.CurrentHoldingsPercent = percentOf(balance, in.TotalSupply)
	}
	initial := 0.0
	if res.Creation != nil {
		initial = res.Creation.InitialAmount
		profile.InitialHoldingsPercent = percentOf(initial, in.TotalSupply)
	}

	res.Profile = profile
	res.Dev = devActivity(details, in.Mint, address, initial, balance, in.TotalSupply, haveBal)
	return res, nil
}

// history fetches decoded recent transactions of address, bounded by maxDetailFetches.
func (b *Builder) history(ctx context.Context, address string) []*chain.TxDetail {
	refs, err := b.chain.GetRecentTransactions(ctx, address, historyLimit)
	if err != nil {
		b.log.WithError(err).WithField("creator", address).Warn("creator history lookup failed")
		return nil
	}

	var sample []chain.TxRef
	for _, r := range refs {
		if !r.Failed {
			sample = append(sample, r)
		}
		if len(sample) == maxDetailFetches {
			break
		}
	}

	out := make([]*chain.TxDetail, len(sample))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(detailConcurrency)
	for i, r := range sample {
		i, r := i, r
		g.Go(func() error {
			d, err := b.chain.GetTransactionDetail(gctx, r.Signature)
			if err != nil {
				b.log.WithError(err).WithField("signature", r.Signature).Debug("creator tx detail failed")
				return nil
			}
			out[i] = d
			return nil
		})
	}
	_ = g.Wait()

	details := out[:0]
	for _, d := range out {
		if d != nil {
			details = append(details, d)
		}
	}
	return details
}

// reputation returns the creator's rug history, from the store when fresh.
func (b *Builder) reputation(ctx context.Context, address, mint string, age domain.WalletAge, details []*chain.TxDetail) *domain.CreatorRecord {
	now := b.now()
	if b.store != nil {
		rec, err := b.store.Get(ctx, address)
		switch {
		case err == nil && now.Sub(rec.FetchedAt) < b.ttl:
			observability.RecordCacheLookup("creator", true)
			return rec
		case err != nil && !errors.Is(err, storage.ErrNotFound):
			b.log.WithError(err).Warn("creator store read failed")
		}
		observability.RecordCacheLookup("creator", false)
	}

	prior := priorMints(details, address, mint)
	rec := &domain.CreatorRecord{
		Address:       address,
		TokensCreated: len(prior),
		RuggedTokens:  b.countRugs(ctx, prior),
		CreatedMints:  prior,
		FetchedAt:     now,
	}
	if days, ok := age.Days(); ok {
		first := now.AddDate(0, 0, -days)
		rec.FirstSeenAt = &first
	}

	if b.store != nil {
		if err := b.store.Upsert(ctx, rec); err != nil {
			b.log.WithError(err).Warn("creator store write failed")
		}
	}
	return rec
}

// priorMints lists mints address created in details, other than mint.
func priorMints(details []*chain.TxDetail, address, mint string) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, d := range details {
		if d.Failed || !d.CreatesMint || d.FeePayer != address {
			continue
		}
		for _, m := range d.NewMints {
			if m == mint {
				continue
			}
			if _, ok := seen[m]; ok {
				continue
			}
			seen[m] = struct{}{}
			out = append(out, m)
		}
	}
	return out
}

// countRugs checks a sample of prior mints; a mint is rugged when its
// liquidity fell below rugLiquidityUSD or it has been inactive for inactiveAfter.
func (b *Builder) countRugs(ctx context.Context, mints []string) int {
	if len(mints) > maxRugChecks {
		mints = mints[:maxRugChecks]
	}

	rugged := make([]bool, len(mints))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(detailConcurrency)
	for i, m := range mints {
		i, m := i, m
		g.Go(func() error {
			rugged[i] = b.isRugged(gctx, m)
			return nil
		})
	}
	_ = g.Wait()

	n := 0
	for _, r := range rugged {
		if r {
			n++
		}
	}
	return n
}

func (b *Builder) isRugged(ctx context.Context, mint string) bool {
	log := b.log.WithField("prior_mint", mint)

	if b.market != nil {
		m, err := b.market.GetTokenMarket(ctx, mint)
		if err != nil {
			log.WithError(err).Debug("prior token market lookup failed")
		} else if !m.HasPools() || m.LiquidityUSD < rugLiquidityUSD {
			return true
		}
	}

	refs, err := b.chain.GetRecentTransactions(ctx, mint, 1)
	if err != nil {
		log.WithError(err).Debug("prior token activity lookup failed")
		return false
	}
	if len(refs) == 0 || refs[0].BlockTime == nil {
		return false
	}
	last := time.Unix(*refs[0].BlockTime, 0)
	return b.now().Sub(last) > inactiveAfter
}

func percentOf(amount, supply float64) float64 {
	if supply <= 0 || amount <= 0 {
		return 0
	}
	return min(100, amount/supply*100)
}
