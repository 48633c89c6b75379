// Package creator builds deployer reputation and trading activity for a token.
package creator

import (
	"context"
	"fmt"
	"time"

	"solana-token-risk/internal/chain"
	"solana-token-risk/internal/slotlocator"
)

// Creation identifies the transaction that created a mint.
type Creation struct {
	Address   string // fee payer of the creation transaction
	Signature string
	Slot      int64
	BlockTime int64

	// InitialAmount is the creator's balance gain in the creation transaction,
	// non-zero when the deployer bought in the same transaction.
	InitialAmount float64
}

// Resolve finds the creation transaction of mint. It first inspects the oldest
// reachable signature of the mint; when that is not the creation (busy tokens
// exceed the signature page budget) it locates the slot nearest createdAt, or
// the oldest block time, and scans the surrounding blocks.
// Returns nil when the creator cannot be determined.
func (b *Builder) Resolve(ctx context.Context, mint string, createdAt *time.Time) (*Creation, error) {
	log := b.log.WithField("mint", mint)

	oldest, err := b.chain.GetOldestTransaction(ctx, mint)
	if err != nil {
		log.WithError(err).Warn("oldest transaction lookup failed")
	}
	if oldest != nil && !oldest.Failed {
		d, err := b.chain.GetTransactionDetail(ctx, oldest.Signature)
		if err != nil {
			log.WithError(err).Debug("oldest transaction detail failed")
		}
		if c := creationFrom(d, mint); c != nil {
			return c, nil
		}
	}

	hint := createdAt
	if hint == nil && oldest != nil && oldest.BlockTime != nil {
		t := time.Unix(*oldest.BlockTime, 0)
		hint = &t
	}
	if hint == nil {
		return nil, nil
	}

	current, err := b.chain.GetCurrentSlot(ctx)
	if err != nil {
		return nil, fmt.Errorf("get current slot: %w", err)
	}
	slot, ok := b.locator.Locate(ctx, *hint, current)
	if !ok {
		return nil, nil
	}

	ev, err := slotlocator.FindCreationEvent(ctx, b.chain, mint, slot)
	if err != nil {
		return nil, fmt.Errorf("find creation event: %w", err)
	}
	if ev == nil {
		log.WithField("slot", slot).Debug("no creation event near located slot")
		return nil, nil
	}

	c := &Creation{
		Address:   ev.Creator,
		Signature: ev.Signature,
		Slot:      ev.Slot,
		BlockTime: ev.BlockTime,
	}
	if d, err := b.chain.GetTransactionDetail(ctx, ev.Signature); err == nil && d != nil {
		c.InitialAmount = gained(d, mint, c.Address)
	}
	return c, nil
}

func creationFrom(d *chain.TxDetail, mint string) *Creation {
	if d == nil || d.Failed || !d.CreatesMint || !d.Mentions(mint) {
		return nil
	}
	return &Creation{
		Address:       d.FeePayer,
		Signature:     d.Signature,
		Slot:          d.Slot,
		BlockTime:     d.BlockTime,
		InitialAmount: gained(d, mint, d.FeePayer),
	}
}

// gained sums owner's positive balance movement of mint in d.
func gained(d *chain.TxDetail, mint, owner string) float64 {
	var total float64
	for _, c := range d.ChangesFor(mint) {
		if c.Owner == owner && c.Delta() > 0 {
			total += c.Delta()
		}
	}
	return total
}
