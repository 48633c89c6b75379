package creator

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solana-token-risk/internal/chain"
	"solana-token-risk/internal/domain"
	"solana-token-risk/internal/market"
	"solana-token-risk/internal/solana"
	"solana-token-risk/internal/storage/memory"
)

var now = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

type fakeChain struct {
	mu       sync.Mutex
	oldest   map[string]*chain.TxRef
	recent   map[string][]chain.TxRef
	details  map[string]*chain.TxDetail
	ages     map[string]domain.WalletAge
	balances map[string]float64
	balErr   map[string]error
	blocks   map[int64]*solana.Block
	slot     int64
	recentN  map[string]int
}

func newFakeChain() *fakeChain {
	return &fakeChain{
		oldest:   map[string]*chain.TxRef{},
		recent:   map[string][]chain.TxRef{},
		details:  map[string]*chain.TxDetail{},
		ages:     map[string]domain.WalletAge{},
		balances: map[string]float64{},
		balErr:   map[string]error{},
		blocks:   map[int64]*solana.Block{},
		recentN:  map[string]int{},
	}
}

func (f *fakeChain) GetOldestTransaction(_ context.Context, addr string) (*chain.TxRef, error) {
	return f.oldest[addr], nil
}

func (f *fakeChain) GetRecentTransactions(_ context.Context, addr string, limit int) ([]chain.TxRef, error) {
	f.mu.Lock()
	f.recentN[addr]++
	f.mu.Unlock()
	refs := f.recent[addr]
	if len(refs) > limit {
		refs = refs[:limit]
	}
	return refs, nil
}

func (f *fakeChain) GetTransactionDetail(_ context.Context, sig string) (*chain.TxDetail, error) {
	d, ok := f.details[sig]
	if !ok {
		return nil, errors.New("not found")
	}
	return d, nil
}

func (f *fakeChain) GetWalletAge(_ context.Context, w string) (domain.WalletAge, error) {
	return f.ages[w], nil
}

func (f *fakeChain) GetTokenBalance(_ context.Context, owner, _ string) (float64, error) {
	if err := f.balErr[owner]; err != nil {
		return 0, err
	}
	return f.balances[owner], nil
}

func (f *fakeChain) GetCurrentSlot(context.Context) (int64, error) { return f.slot, nil }

// one slot per second ending at now
func (f *fakeChain) GetBlockTime(_ context.Context, slot int64) (*int64, error) {
	bt := now.Unix() - (f.slot - slot)
	return &bt, nil
}

func (f *fakeChain) GetBlock(_ context.Context, slot int64) (*solana.Block, error) {
	return f.blocks[slot], nil
}

type fakeMarket map[string]*market.TokenMarket

func (m fakeMarket) GetTokenMarket(_ context.Context, mint string) (*market.TokenMarket, error) {
	tm, ok := m[mint]
	if !ok {
		return &market.TokenMarket{}, nil
	}
	return tm, nil
}

func unix(t time.Time) *int64 {
	v := t.Unix()
	return &v
}

// deployerFixture: "dev" created "mint" with a 200-token buy, created two
// earlier tokens and sold 50 of "mint" since.
func deployerFixture() (*fakeChain, fakeMarket) {
	fc := newFakeChain()
	fc.oldest["mint"] = &chain.TxRef{Signature: "create", Slot: 10, BlockTime: unix(now.Add(-2 * time.Hour))}
	fc.details["create"] = &chain.TxDetail{
		Signature:   "create",
		Slot:        10,
		FeePayer:    "dev",
		CreatesMint: true,
		NewMints:    []string{"mint"},
		AccountKeys: []string{"dev", "mint"},
		Changes:     []chain.BalanceChange{{Owner: "dev", Mint: "mint", Pre: 0, Post: 200}},
	}
	fc.details["old1"] = &chain.TxDetail{Signature: "old1", FeePayer: "dev", CreatesMint: true, NewMints: []string{"prior1"}}
	fc.details["old2"] = &chain.TxDetail{Signature: "old2", FeePayer: "dev", CreatesMint: true, NewMints: []string{"prior2"}}
	fc.details["sell1"] = &chain.TxDetail{
		Signature: "sell1",
		FeePayer:  "dev",
		IsSwap:    true,
		Changes:   []chain.BalanceChange{{Owner: "dev", Mint: "mint", Pre: 200, Post: 150}},
	}
	fc.recent["dev"] = []chain.TxRef{{Signature: "sell1"}, {Signature: "create"}, {Signature: "old2"}, {Signature: "old1"}}
	fc.recent["prior2"] = []chain.TxRef{{Signature: "p2", BlockTime: unix(now.Add(-time.Hour))}}
	fc.ages["dev"] = domain.KnownAge(3)

	mk := fakeMarket{
		"prior1": {LiquidityUSD: 0},
		"prior2": {LiquidityUSD: 5_000, PoolAddresses: []string{"pool"}},
	}
	return fc, mk
}

func TestBuild_FullProfile(t *testing.T) {
	fc, mk := deployerFixture()
	b := NewBuilder(fc, WithMarket(mk), WithClock(func() time.Time { return now }))

	res, err := b.Build(context.Background(), Input{
		Mint:        "mint",
		Holders:     []domain.HolderRecord{{Address: "dev", Balance: 150, PercentOfSupply: 15}},
		TotalSupply: 1000,
	})
	require.NoError(t, err)
	require.NotNil(t, res.Creation)
	assert.Equal(t, "dev", res.Creation.Address)

	p := res.Profile
	require.NotNil(t, p)
	days, known := p.WalletAge.Days()
	assert.True(t, known)
	assert.Equal(t, 3, days)
	assert.Equal(t, 2, p.TokensCreated)
	assert.Equal(t, 1, p.RuggedTokens)
	assert.InDelta(t, 15, p.CurrentHoldingsPercent, 1e-9)
	assert.InDelta(t, 20, p.InitialHoldingsPercent, 1e-9)

	d := res.Dev
	require.NotNil(t, d)
	assert.True(t, d.HasSold)
	assert.Equal(t, 1, d.SellCount)
	assert.InDelta(t, 25, d.PercentSold, 1e-9)
	assert.False(t, d.FullyExited())
}

func TestBuild_BalanceLookupFailure(t *testing.T) {
	fc, mk := deployerFixture()
	fc.balErr["dev"] = errors.New("rpc timeout")
	b := NewBuilder(fc, WithMarket(mk), WithClock(func() time.Time { return now }))

	res, err := b.Build(context.Background(), Input{Mint: "mint", TotalSupply: 1000})
	require.NoError(t, err)
	require.NotNil(t, res.Profile)
	assert.Zero(t, res.Profile.CurrentHoldingsPercent)

	d := res.Dev
	require.NotNil(t, d)
	assert.True(t, d.HasSold)
	assert.InDelta(t, 25, d.PercentSold, 1e-9)
	assert.False(t, d.HoldingsKnown)
	assert.False(t, d.FullyExited(), "unknown balance must not read as an exit")

	none := devActivity(nil, "m", "dev", 100, 0, 1000, false)
	assert.False(t, none.HoldingsKnown)
	assert.Zero(t, none.CurrentHoldingsPercent)
}

func TestBuild_UnknownCreator(t *testing.T) {
	fc := newFakeChain()
	res, err := NewBuilder(fc).Build(context.Background(), Input{Mint: "mint", TotalSupply: 1000})
	require.NoError(t, err)
	assert.Nil(t, res.Profile)
	assert.Nil(t, res.Dev)
}

func TestBuild_ExplicitCreatorSkipsResolution(t *testing.T) {
	fc := newFakeChain()
	fc.balances["dev"] = 0
	res, err := NewBuilder(fc).Build(context.Background(), Input{Mint: "mint", Creator: "dev", TotalSupply: 1000})
	require.NoError(t, err)
	require.NotNil(t, res.Profile)
	assert.Nil(t, res.Creation)
	assert.False(t, res.Profile.WalletAge.Known())
	assert.Equal(t, 0, res.Profile.TokensCreated)
}

func TestBuild_ReputationFromStore(t *testing.T) {
	fc, mk := deployerFixture()
	store := memory.NewCreatorStore()
	ctx := context.Background()
	require.NoError(t, store.Upsert(ctx, &domain.CreatorRecord{
		Address:       "dev",
		TokensCreated: 7,
		RuggedTokens:  4,
		FetchedAt:     now.Add(-time.Hour),
	}))

	b := NewBuilder(fc, WithMarket(mk), WithStore(store), WithClock(func() time.Time { return now }))
	res, err := b.Build(ctx, Input{Mint: "mint", TotalSupply: 1000})
	require.NoError(t, err)
	assert.Equal(t, 7, res.Profile.TokensCreated)
	assert.Equal(t, 4, res.Profile.RuggedTokens)
	assert.Zero(t, fc.recentN["prior2"], "cached history must not trigger rug checks")
}

func TestBuild_StaleStoreIsRefreshed(t *testing.T) {
	fc, mk := deployerFixture()
	store := memory.NewCreatorStore()
	ctx := context.Background()
	require.NoError(t, store.Upsert(ctx, &domain.CreatorRecord{
		Address:      "dev",
		RuggedTokens: 4,
		FetchedAt:    now.Add(-2 * DefaultReputationTTL),
	}))

	b := NewBuilder(fc, WithMarket(mk), WithStore(store), WithClock(func() time.Time { return now }))
	res, err := b.Build(ctx, Input{Mint: "mint", TotalSupply: 1000})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Profile.RuggedTokens)

	rec, err := store.Get(ctx, "dev")
	require.NoError(t, err)
	assert.Equal(t, []string{"prior2", "prior1"}, rec.CreatedMints)
	assert.Equal(t, now, rec.FetchedAt)
	require.NotNil(t, rec.FirstSeenAt)
	assert.Equal(t, now.AddDate(0, 0, -3), *rec.FirstSeenAt)
}

func TestResolve_ViaSlotLocator(t *testing.T) {
	fc := newFakeChain()
	fc.slot = 1_000_000
	createSlot := fc.slot - 2_000
	createdAt := now.Add(-2_000 * time.Second)

	// the oldest reachable signature is not the creation
	fc.oldest["mint"] = &chain.TxRef{Signature: "later", BlockTime: unix(now.Add(-time.Minute))}
	fc.details["later"] = &chain.TxDetail{Signature: "later", IsSwap: true, AccountKeys: []string{"mint"}}

	bt := createdAt.Unix()
	fc.blocks[createSlot] = &solana.Block{Slot: createSlot, BlockTime: &bt, Transactions: []solana.Transaction{{
		Signature: "genesis",
		Meta:      &solana.TransactionMeta{LogMessages: []string{"Program log: Instruction: InitializeMint2"}},
		Message:   &solana.TransactionMessage{AccountKeys: []string{"deployer", "mint"}},
	}}}

	b := NewBuilder(fc, WithClock(func() time.Time { return now }))
	c, err := b.Resolve(context.Background(), "mint", &createdAt)
	require.NoError(t, err)
	require.NotNil(t, c)
	assert.Equal(t, "deployer", c.Address)
	assert.Equal(t, "genesis", c.Signature)
	assert.Equal(t, createSlot, c.Slot)
}

func TestDevActivity(t *testing.T) {
	sells := []*chain.TxDetail{
		{IsSwap: true, Changes: []chain.BalanceChange{{Owner: "dev", Mint: "m", Pre: 100, Post: 40}}},
		{IsSwap: true, Changes: []chain.BalanceChange{{Owner: "dev", Mint: "m", Pre: 40, Post: 0}}},
		{IsSwap: true, Changes: []chain.BalanceChange{{Owner: "other", Mint: "m", Pre: 10, Post: 0}}},
		{IsSwap: false, Changes: []chain.BalanceChange{{Owner: "dev", Mint: "m", Pre: 5, Post: 0}}}, // transfer
		{Failed: true, IsSwap: true, Changes: []chain.BalanceChange{{Owner: "dev", Mint: "m", Pre: 5, Post: 0}}},
	}

	act := devActivity(sells, "m", "dev", 0, 0, 1000, true)
	assert.True(t, act.HasSold)
	assert.Equal(t, 2, act.SellCount)
	assert.InDelta(t, 100, act.PercentSold, 1e-9)
	assert.True(t, act.FullyExited())

	none := devActivity(nil, "m", "dev", 100, 100, 1000, true)
	assert.False(t, none.HasSold)
	assert.Zero(t, none.PercentSold)
	assert.InDelta(t, 10, none.CurrentHoldingsPercent, 1e-9)
}

func TestPercentOf(t *testing.T) {
	assert.Zero(t, percentOf(10, 0))
	assert.Equal(t, 100.0, percentOf(2000, 1000))
	assert.InDelta(t, 12.5, percentOf(125, 1000), 1e-9)
}
