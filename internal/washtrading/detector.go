// Package washtrading estimates how much buy demand comes from bundle wallets.
package washtrading

import (
	"context"
	"math"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"solana-token-risk/internal/chain"
	"solana-token-risk/internal/domain"
)

const (
	maxSampledBuys     = 20
	maxFetchedTxs      = 40
	fetchConcurrency   = 5
	washPercentTrigger = 30.0
	minBundleBuys      = 3
)

// TxReader fetches decoded transactions.
type TxReader interface {
	GetTransactionDetail(ctx context.Context, signature string) (*chain.TxDetail, error)
}

// PoolMatcher reports liquidity addresses so pool-side balance increases are not read as buys.
type PoolMatcher interface {
	ClassifyAddress(owner, tokenAccount string) bool
}

// Input is what the detector inspects.
type Input struct {
	Mint         string
	Wallets      map[string]struct{}
	Recent       []chain.TxRef
	ReportedBuys int
	ReportedSell int
	Pools        PoolMatcher // optional
}

// Detector cross-references bundle wallets with recent buys.
type Detector struct {
	txs TxReader
	log logrus.FieldLogger
}

// NewDetector creates a Detector.
func NewDetector(txs TxReader, log logrus.FieldLogger) *Detector {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Detector{txs: txs, log: log.WithField("component", "washtrading")}
}

// Detect samples recent buys and partitions them into bundle and organic.
// No wallets or no buys yields a zero result.
func (d *Detector) Detect(ctx context.Context, in Input) domain.WashTradingEvidence {
	if len(in.Wallets) == 0 {
		return domain.WashTradingEvidence{}
	}

	buyers := d.sampleBuys(ctx, in)
	var ev domain.WashTradingEvidence
	for _, buyer := range buyers {
		if _, ok := in.Wallets[buyer]; ok {
			ev.BundleBuyCount++
		} else {
			ev.OrganicBuyCount++
		}
	}

	total := ev.TotalBuys()
	if total == 0 {
		return domain.WashTradingEvidence{}
	}

	ev.WashPercent = float64(ev.BundleBuyCount) / float64(total) * 100
	ev.Detected = ev.WashPercent >= washPercentTrigger && ev.BundleBuyCount >= minBundleBuys
	organicShare := float64(ev.OrganicBuyCount) / float64(total)
	ev.EstimatedRealBuyCount = int(math.Round(float64(in.ReportedBuys) * organicShare))
	if in.ReportedSell > 0 {
		ev.DewashedBuySellRatio = float64(ev.EstimatedRealBuyCount) / float64(in.ReportedSell)
	}
	return ev
}

// sampleBuys returns the buyer of each distinct buy transaction, in recency order,
// capped at maxSampledBuys.
func (d *Detector) sampleBuys(ctx context.Context, in Input) []string {
	seen := make(map[string]bool)
	var sigs []string
	for _, tx := range in.Recent {
		if tx.Failed || seen[tx.Signature] {
			continue
		}
		seen[tx.Signature] = true
		sigs = append(sigs, tx.Signature)
		if len(sigs) == maxFetchedTxs {
			break
		}
	}

	buyers := make([]string, len(sigs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(fetchConcurrency)
	for i, sig := range sigs {
		i, sig := i, sig
		g.Go(func() error {
			detail, err := d.txs.GetTransactionDetail(gctx, sig)
			if err != nil {
				d.log.WithError(err).WithField("signature", sig).Debug("buy lookup failed")
				return nil
			}
			if detail != nil {
				buyers[i] = buyerOf(detail, in.Mint, in.Pools)
			}
			return nil
		})
	}
	_ = g.Wait()

	var out []string
	for _, b := range buyers {
		if b == "" {
			continue
		}
		out = append(out, b)
		if len(out) == maxSampledBuys {
			break
		}
	}
	return out
}

// buyerOf returns the non-pool owner whose mint balance grew in a swap, "" otherwise.
func buyerOf(d *chain.TxDetail, mint string, pools PoolMatcher) string {
	if d.Failed || !d.IsSwap {
		return ""
	}
	for _, c := range d.ChangesFor(mint) {
		if c.Delta() <= 0 {
			continue
		}
		if pools != nil && pools.ClassifyAddress(c.Owner, "") {
			continue
		}
		return c.Owner
	}
	return ""
}
