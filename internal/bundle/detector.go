// Package bundle detects coordinated wallet clusters around a token.
package bundle

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"solana-token-risk/internal/chain"
	"solana-token-risk/internal/domain"
)

// RecentTxLimit is how many recent mint signatures the caller should supply.
const RecentTxLimit = 200

const (
	sampledSlots       = 5
	sampledTxsPerSlot  = 3
	minFundingWallets  = 3
	maxFundingWallets  = 10
	lookupConcurrency  = 4
	holdingRoundFactor = 10 // round to 0.1%
)

// thresholds are the maturity-dependent detection parameters.
type thresholds struct {
	sameSlot    int
	minWallets  int
	materiality float64
}

var (
	establishedThresholds = thresholds{sameSlot: 8, minWallets: 5, materiality: 1.0}
	newThresholds         = thresholds{sameSlot: 3, minWallets: 3, materiality: 0.1}
)

// ChainReader is the chain surface the detector needs.
type ChainReader interface {
	GetTransactionDetail(ctx context.Context, signature string) (*chain.TxDetail, error)
	GetFirstFunder(ctx context.Context, wallet string) (string, error)
}

// Input is what the detector inspects.
type Input struct {
	Mint     string
	Holders  []domain.HolderRecord
	Snapshot domain.TokenSnapshot
	Recent   []chain.TxRef // recent mint signatures, newest first
}

// Detector finds bundles.
type Detector struct {
	chain ChainReader
	log   logrus.FieldLogger
}

// NewDetector creates a Detector.
func NewDetector(cr ChainReader, log logrus.FieldLogger) *Detector {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Detector{chain: cr, log: log.WithField("component", "bundle")}
}

// Detect evaluates same-slot clustering and similar holdings, then looks for
// shared funders among the suspects.
func (d *Detector) Detect(ctx context.Context, in Input) domain.BundleEvidence {
	established := in.Snapshot.Established()
	th := newThresholds
	if established {
		th = establishedThresholds
	}

	ev := domain.NewBundleEvidence()

	slotWallets, sameSlotCount, flaggedSlots := d.sameSlot(ctx, in.Recent, th.sameSlot)
	ev.SameBlockTxCount = sameSlotCount
	for _, w := range slotWallets {
		ev.Wallets[w] = struct{}{}
	}
	if flaggedSlots > 0 {
		ev.Patterns = append(ev.Patterns,
			fmt.Sprintf("%d transactions landed in %d crowded slots", sameSlotCount, flaggedSlots))
	}

	for _, group := range similarHoldings(in.Holders, th) {
		for _, h := range group.members {
			ev.Wallets[h] = struct{}{}
		}
		ev.Patterns = append(ev.Patterns,
			fmt.Sprintf("%d wallets each hold ~%.1f%% of supply", len(group.members), group.percent))
	}

	wallets := ev.WalletList()
	if len(wallets) >= minFundingWallets && len(wallets) <= maxFundingWallets {
		if funder, n := d.sharedFunder(ctx, wallets); n >= 2 {
			ev.Patterns = append(ev.Patterns,
				fmt.Sprintf("%d suspect wallets funded by %s", n, funder))
		}
	}

	// Confidence and detection are independent: a single wallet crowding
	// one slot has MEDIUM confidence on a new token without being a bundle.
	ev.Confidence = confidence(established, ev.SameBlockTxCount, len(ev.Wallets))
	ev.Detected = len(ev.Wallets) >= th.minWallets

	var pct float64
	for _, h := range in.Holders {
		if ev.HasWallet(h.Address) {
			pct += h.PercentOfSupply
		}
	}
	ev.PercentSupplyControlled = math.Max(0, math.Min(100, pct))

	return ev
}

// confidence applies the maturity-dependent confidence table.
func confidence(established bool, txns, wallets int) domain.Confidence {
	if established {
		switch {
		case txns >= 15 && wallets >= 8:
			return domain.ConfidenceHigh
		case txns >= 10 && wallets >= 6:
			return domain.ConfidenceMedium
		case wallets >= 5:
			return domain.ConfidenceLow
		}
		return domain.ConfidenceNone
	}
	switch {
	case txns >= 10 && wallets >= 5:
		return domain.ConfidenceHigh
	case txns >= 5 || wallets >= 5:
		return domain.ConfidenceMedium
	case wallets >= 3:
		return domain.ConfidenceLow
	}
	return domain.ConfidenceNone
}

type slotGroup struct {
	slot int64
	sigs []string
}

// sameSlot groups successful signatures by slot and samples fee payers of crowded slots.
func (d *Detector) sameSlot(ctx context.Context, recent []chain.TxRef, threshold int) ([]string, int, int) {
	bySlot := make(map[int64]*slotGroup)
	for _, tx := range recent {
		if tx.Failed {
			continue
		}
		g, ok := bySlot[tx.Slot]
		if !ok {
			g = &slotGroup{slot: tx.Slot}
			bySlot[tx.Slot] = g
		}
		g.sigs = append(g.sigs, tx.Signature)
	}

	var flagged []*slotGroup
	total := 0
	for _, g := range bySlot {
		if len(g.sigs) >= threshold {
			flagged = append(flagged, g)
			total += len(g.sigs)
		}
	}
	if len(flagged) == 0 {
		return nil, 0, 0
	}
	sort.Slice(flagged, func(i, j int) bool {
		if len(flagged[i].sigs) != len(flagged[j].sigs) {
			return len(flagged[i].sigs) > len(flagged[j].sigs)
		}
		return flagged[i].slot < flagged[j].slot
	})

	var sample []string
	for i, g := range flagged {
		if i >= sampledSlots {
			break
		}
		n := min(len(g.sigs), sampledTxsPerSlot)
		sample = append(sample, g.sigs[:n]...)
	}

	var mu sync.Mutex
	payers := make(map[string]struct{})
	grp, gctx := errgroup.WithContext(ctx)
	grp.SetLimit(lookupConcurrency)
	for _, sig := range sample {
		sig := sig
		grp.Go(func() error {
			detail, err := d.chain.GetTransactionDetail(gctx, sig)
			if err != nil {
				d.log.WithError(err).WithField("signature", sig).Debug("fee payer lookup failed")
				return nil
			}
			if detail == nil || detail.FeePayer == "" {
				return nil
			}
			mu.Lock()
			payers[detail.FeePayer] = struct{}{}
			mu.Unlock()
			return nil
		})
	}
	_ = grp.Wait()

	out := make([]string, 0, len(payers))
	for p := range payers {
		out = append(out, p)
	}
	sort.Strings(out)
	return out, total, len(flagged)
}

type holdingGroup struct {
	percent float64
	members []string
}

// similarHoldings groups non-LP holders by percent rounded to 0.1.
func similarHoldings(holders []domain.HolderRecord, th thresholds) []holdingGroup {
	groups := make(map[int64][]string)
	for _, h := range domain.NonPoolHolders(holders) {
		key := int64(math.Round(h.PercentOfSupply * holdingRoundFactor))
		groups[key] = append(groups[key], h.Address)
	}

	var out []holdingGroup
	for key, members := range groups {
		pct := float64(key) / holdingRoundFactor
		if len(members) >= th.minWallets && pct >= th.materiality {
			out = append(out, holdingGroup{percent: pct, members: members})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].percent > out[j].percent })
	return out
}

// sharedFunder returns the most common first funder among wallets and how many share it.
func (d *Detector) sharedFunder(ctx context.Context, wallets []string) (string, int) {
	funders := make([]string, len(wallets))
	grp, gctx := errgroup.WithContext(ctx)
	grp.SetLimit(lookupConcurrency)
	for i, w := range wallets {
		i, w := i, w
		grp.Go(func() error {
			f, err := d.chain.GetFirstFunder(gctx, w)
			if err != nil {
				d.log.WithError(err).WithField("wallet", w).Debug("funder lookup failed")
				return nil
			}
			funders[i] = f
			return nil
		})
	}
	_ = grp.Wait()

	return mostCommon(funders)
}

// mostCommon returns the most frequent non-empty value; ties pick the smallest value.
func mostCommon(values []string) (string, int) {
	counts := make(map[string]int)
	for _, v := range values {
		if v != "" {
			counts[v]++
		}
	}
	best, bestN := "", 0
	for v, n := range counts {
		if n > bestN || (n == bestN && v < best) {
			best, bestN = v, n
		}
	}
	return best, bestN
}
