package bundle

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solana-token-risk/internal/chain"
	"solana-token-risk/internal/domain"
)

type fakeChain struct {
	payers  map[string]string // signature -> fee payer
	funders map[string]string // wallet -> funder
}

func (f *fakeChain) GetTransactionDetail(_ context.Context, sig string) (*chain.TxDetail, error) {
	p, ok := f.payers[sig]
	if !ok {
		return nil, errors.New("not found")
	}
	return &chain.TxDetail{Signature: sig, FeePayer: p}, nil
}

func (f *fakeChain) GetFirstFunder(_ context.Context, wallet string) (string, error) {
	return f.funders[wallet], nil
}

func newToken() domain.TokenSnapshot {
	return domain.TokenSnapshot{AgeHours: 2, LiquidityUSD: 20_000, MarketCapUSD: 50_000}
}

func established() domain.TokenSnapshot {
	return domain.TokenSnapshot{AgeHours: 24 * 30, LiquidityUSD: 500_000, MarketCapUSD: 5_000_000}
}

// crowdedSlot returns n signatures in slot with distinct fee payers registered in fc.
func crowdedSlot(fc *fakeChain, slot int64, n int) []chain.TxRef {
	var refs []chain.TxRef
	for i := 0; i < n; i++ {
		sig := fmt.Sprintf("s%d-%d", slot, i)
		fc.payers[sig] = fmt.Sprintf("payer%d-%d", slot, i)
		refs = append(refs, chain.TxRef{Signature: sig, Slot: slot})
	}
	return refs
}

func TestDetect_SameSlotNewToken(t *testing.T) {
	fc := &fakeChain{payers: map[string]string{}, funders: map[string]string{}}
	var recent []chain.TxRef
	recent = append(recent, crowdedSlot(fc, 10, 4)...)
	recent = append(recent, crowdedSlot(fc, 11, 2)...) // below threshold
	recent = append(recent, chain.TxRef{Signature: "failed", Slot: 10, Failed: true})

	ev := NewDetector(fc, nil).Detect(context.Background(), Input{
		Mint:     "mint",
		Snapshot: newToken(),
		Recent:   recent,
	})

	assert.Equal(t, 4, ev.SameBlockTxCount)
	assert.Len(t, ev.Wallets, 3, "three fee payers sampled from the crowded slot")
	assert.True(t, ev.Detected)
	assert.Equal(t, domain.ConfidenceLow, ev.Confidence)
}

func TestDetect_EstablishedIgnoresSmallClusters(t *testing.T) {
	fc := &fakeChain{payers: map[string]string{}, funders: map[string]string{}}
	recent := crowdedSlot(fc, 10, 5)

	ev := NewDetector(fc, nil).Detect(context.Background(), Input{
		Snapshot: established(),
		Recent:   recent,
	})

	assert.Zero(t, ev.SameBlockTxCount)
	assert.False(t, ev.Detected)
	assert.Equal(t, domain.ConfidenceNone, ev.Confidence)
}

func TestDetect_SingleSniperKeepsConfidence(t *testing.T) {
	fc := &fakeChain{payers: map[string]string{}, funders: map[string]string{}}
	var recent []chain.TxRef
	for i := 0; i < 8; i++ {
		sig := fmt.Sprintf("snipe-%d", i)
		fc.payers[sig] = "sniper"
		recent = append(recent, chain.TxRef{Signature: sig, Slot: 42})
	}

	ev := NewDetector(fc, nil).Detect(context.Background(), Input{
		Mint:     "mint",
		Snapshot: newToken(),
		Recent:   recent,
	})

	assert.Equal(t, 8, ev.SameBlockTxCount)
	assert.Equal(t, []string{"sniper"}, ev.WalletList())
	assert.False(t, ev.Detected, "one wallet is not a bundle")
	assert.Equal(t, domain.ConfidenceMedium, ev.Confidence, "five or more same-slot transactions on a new token")
}

func TestDetect_SimilarHoldings(t *testing.T) {
	fc := &fakeChain{payers: map[string]string{}, funders: map[string]string{
		"w0": "funder", "w1": "funder", "w2": "elsewhere",
	}}
	holders := []domain.HolderRecord{
		{Address: "pool", PercentOfSupply: 40, IsLiquidityPool: true},
		{Address: "w0", PercentOfSupply: 2.04},
		{Address: "w1", PercentOfSupply: 1.96},
		{Address: "w2", PercentOfSupply: 2.0},
		{Address: "x", PercentOfSupply: 0.05},
	}

	ev := NewDetector(fc, nil).Detect(context.Background(), Input{
		Holders:  holders,
		Snapshot: newToken(),
	})

	assert.True(t, ev.Detected)
	assert.Equal(t, []string{"w0", "w1", "w2"}, ev.WalletList())
	assert.InDelta(t, 6.0, ev.PercentSupplyControlled, 1e-9)
	assert.Contains(t, ev.Patterns, "3 wallets each hold ~2.0% of supply")
	assert.Contains(t, ev.Patterns, "2 suspect wallets funded by funder")
}

func TestDetect_MaterialityOnEstablished(t *testing.T) {
	var holders []domain.HolderRecord
	for i := 0; i < 6; i++ {
		holders = append(holders, domain.HolderRecord{Address: fmt.Sprintf("w%d", i), PercentOfSupply: 0.5})
	}

	det := NewDetector(&fakeChain{}, nil)
	ev := det.Detect(context.Background(), Input{Holders: holders, Snapshot: established()})
	assert.False(t, ev.Detected, "half-percent holdings are below established materiality")

	ev = det.Detect(context.Background(), Input{Holders: holders, Snapshot: newToken()})
	assert.True(t, ev.Detected)
}

func TestDetect_PercentClamped(t *testing.T) {
	holders := []domain.HolderRecord{
		{Address: "a", PercentOfSupply: 60},
		{Address: "b", PercentOfSupply: 60},
		{Address: "c", PercentOfSupply: 60},
	}
	ev := NewDetector(&fakeChain{}, nil).Detect(context.Background(), Input{Holders: holders, Snapshot: newToken()})
	assert.True(t, ev.Detected)
	assert.Equal(t, 100.0, ev.PercentSupplyControlled)
}

func TestConfidenceTable(t *testing.T) {
	cases := []struct {
		established   bool
		txns, wallets int
		want          domain.Confidence
	}{
		{true, 15, 8, domain.ConfidenceHigh},
		{true, 14, 8, domain.ConfidenceMedium},
		{true, 10, 6, domain.ConfidenceMedium},
		{true, 9, 6, domain.ConfidenceLow},
		{true, 0, 5, domain.ConfidenceLow},
		{true, 20, 4, domain.ConfidenceNone},
		{false, 10, 5, domain.ConfidenceHigh},
		{false, 9, 5, domain.ConfidenceMedium},
		{false, 5, 0, domain.ConfidenceMedium},
		{false, 0, 3, domain.ConfidenceLow},
		{false, 2, 2, domain.ConfidenceNone},
	}
	for _, tc := range cases {
		got := confidence(tc.established, tc.txns, tc.wallets)
		assert.Equal(t, tc.want, got, "established=%v txns=%d wallets=%d", tc.established, tc.txns, tc.wallets)
	}
}

func TestConfidenceMonotonicInEvidence(t *testing.T) {
	for _, est := range []bool{true, false} {
		for tx := 0; tx < 25; tx++ {
			for w := 0; w < 15; w++ {
				c := confidence(est, tx, w)
				require.LessOrEqual(t, c, confidence(est, tx+1, w))
				require.LessOrEqual(t, c, confidence(est, tx, w+1))
			}
		}
	}
}

func TestMostCommon(t *testing.T) {
	v, n := mostCommon([]string{"", "b", "a", "b", "a", ""})
	assert.Equal(t, "a", v)
	assert.Equal(t, 2, n)

	_, n = mostCommon([]string{"", ""})
	assert.Zero(t, n)
}
