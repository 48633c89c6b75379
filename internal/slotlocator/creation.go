package slotlocator

import (
	"context"
	"fmt"

	"solana-token-risk/internal/chain"
	"solana-token-risk/internal/solana"
)

// creationScanRadius is how many slots either side of the located slot are scanned.
const creationScanRadius = 10

// BlockSource returns full blocks. A nil block means the slot was skipped.
type BlockSource interface {
	GetBlock(ctx context.Context, slot int64) (*solana.Block, error)
}

// CreationEvent is the transaction that initialized a mint.
type CreationEvent struct {
	Slot      int64
	Signature string
	Creator   string
	BlockTime int64
}

// FindCreationEvent scans slots around center, nearest first, for a transaction
// that mentions mint and initializes or creates it. Returns nil if none is found.
func FindCreationEvent(ctx context.Context, src BlockSource, mint string, center int64) (*CreationEvent, error) {
	var lastErr error
	scanned := 0
	for _, slot := range scanOrder(center, creationScanRadius) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		block, err := src.GetBlock(ctx, slot)
		if err != nil {
			lastErr = err
			continue
		}
		scanned++
		if block == nil {
			continue
		}
		for i := range block.Transactions {
			d := chain.DetailFromTransaction(&block.Transactions[i])
			if d.Failed || !d.CreatesMint || !d.Mentions(mint) {
				continue
			}
			ev := &CreationEvent{
				Slot:      slot,
				Signature: d.Signature,
				Creator:   d.FeePayer,
			}
			if block.BlockTime != nil {
				ev.BlockTime = *block.BlockTime
			}
			return ev, nil
		}
	}
	if scanned == 0 && lastErr != nil {
		return nil, fmt.Errorf("scan blocks around %d: %w", center, lastErr)
	}
	return nil, nil
}

func scanOrder(center, radius int64) []int64 {
	out := []int64{center}
	for d := int64(1); d <= radius; d++ {
		if center-d >= 0 {
			out = append(out, center-d)
		}
		out = append(out, center+d)
	}
	return out
}
