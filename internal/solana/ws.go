package solana

import "time"

// SlotSource reports the most recently observed chain slot.
type SlotSource interface {
	// LatestSlot returns the last slot seen and when it was seen.
	// ok is false until the first notification arrives.
	LatestSlot() (slot int64, observedAt time.Time, ok bool)

	// Close stops the source.
	Close() error
}
