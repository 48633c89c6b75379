// Package slotlocator maps wall-clock timestamps to slots.
package slotlocator

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"solana-token-risk/internal/observability"
)

const (
	// SlotsPerSecond is the approximate slot production rate.
	SlotsPerSecond = 2.5

	defaultWindow        = 10_000
	defaultMaxIterations = 20
	defaultTolerance     = 5 // seconds
	skipProbe            = 3
)

// BlockTimeSource returns block production times. A nil time means the slot has no block.
type BlockTimeSource interface {
	GetBlockTime(ctx context.Context, slot int64) (*int64, error)
}

// Locator binary-searches slot history for the slot nearest a timestamp.
type Locator struct {
	src           BlockTimeSource
	now           func() time.Time
	log           logrus.FieldLogger
	window        int64
	maxIterations int
	tolerance     int64
}

// Option configures a Locator.
type Option func(*Locator)

// WithClock overrides the time source used to estimate the starting slot.
func WithClock(now func() time.Time) Option {
	return func(l *Locator) { l.now = now }
}

// WithLogger sets the logger.
func WithLogger(log logrus.FieldLogger) Option {
	return func(l *Locator) { l.log = log }
}

// New creates a Locator reading block times from src.
func New(src BlockTimeSource, opts ...Option) *Locator {
	l := &Locator{
		src:           src,
		now:           time.Now,
		log:           logrus.StandardLogger(),
		window:        defaultWindow,
		maxIterations: defaultMaxIterations,
		tolerance:     defaultTolerance,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

type probe struct {
	slot      int64
	blockTime int64
}

// Locate returns the slot whose block time is closest to target.
// ok is false only when no probe returned a block time.
func (l *Locator) Locate(ctx context.Context, target time.Time, currentSlot int64) (int64, bool) {
	targetTS := target.Unix()
	elapsed := l.now().Sub(target).Seconds()
	estimate := currentSlot - int64(elapsed*SlotsPerSecond)

	low := clamp(estimate-l.window, 0, currentSlot)
	high := clamp(estimate+l.window, 0, currentSlot)

	var best *probe
	var bestDelta int64
	probes := 0
	defer func() { observability.RecordSlotLocate(probes) }()

	for i := 0; i < l.maxIterations && low <= high; i++ {
		if ctx.Err() != nil {
			break
		}
		mid := low + (high-low)/2

		p, n := l.probeNear(ctx, mid, high)
		probes += n
		if p == nil {
			high = mid - 1
			continue
		}

		delta := p.blockTime - targetTS
		if best == nil || abs(delta) < bestDelta {
			best = p
			bestDelta = abs(delta)
		}
		if abs(delta) <= l.tolerance {
			return p.slot, true
		}
		if delta < 0 {
			low = p.slot + 1
		} else {
			high = mid - 1
		}
	}

	if best == nil {
		l.log.WithFields(logrus.Fields{
			"target": targetTS,
			"slot":   currentSlot,
		}).Warn("slot search found no block times")
		return 0, false
	}
	return best.slot, true
}

// probeNear returns the first slot in [slot, limit] with a block time, trying a few
// slots past a skipped one.
func (l *Locator) probeNear(ctx context.Context, slot, limit int64) (*probe, int) {
	n := 0
	for s := slot; s <= limit && s < slot+skipProbe; s++ {
		n++
		bt, err := l.src.GetBlockTime(ctx, s)
		if err != nil {
			l.log.WithError(err).WithField("slot", s).Debug("block time probe failed")
			continue
		}
		if bt != nil {
			return &probe{slot: s, blockTime: *bt}, n
		}
	}
	return nil, n
}

func clamp(v, lo, hi int64) int64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func abs(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}
