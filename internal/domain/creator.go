package domain

import "time"

// WalletAge is either a known age in days or unknown.
// The zero value is unknown.
type WalletAge struct {
	days  int
	known bool
}

// KnownAge returns a known wallet age. Negative values are clamped to 0.
func KnownAge(days int) WalletAge {
	if days < 0 {
		days = 0
	}
	return WalletAge{days: days, known: true}
}

// UnknownAge returns an age that could not be determined.
func UnknownAge() WalletAge {
	return WalletAge{}
}

// AgeFromTime returns the whole days between first and now.
func AgeFromTime(first, now time.Time) WalletAge {
	return KnownAge(int(now.Sub(first).Hours() / 24))
}

// Days returns the age and whether it is known.
func (a WalletAge) Days() (int, bool) {
	return a.days, a.known
}

// Known reports whether the age was determined.
func (a WalletAge) Known() bool {
	return a.known
}

// YoungerThan reports whether the wallet is known to be younger than days,
// or its age is unknown.
func (a WalletAge) YoungerThan(days int) bool {
	return !a.known || a.days < days
}

// CreatorProfile is a reputation snapshot of the token deployer.
type CreatorProfile struct {
	Address                string
	WalletAge              WalletAge
	TokensCreated          int
	RuggedTokens           int
	CurrentHoldingsPercent float64
	InitialHoldingsPercent float64
}

// DevActivity summarizes the deployer's trading in this token.
type DevActivity struct {
	HasSold                bool
	PercentSold            float64
	SellCount              int
	CurrentHoldingsPercent float64
	// HoldingsKnown is false when the current balance could not be read.
	HoldingsKnown bool
}

// FullyExited reports whether the deployer sold and is known to hold nothing.
func (d DevActivity) FullyExited() bool {
	return d.HasSold && d.HoldingsKnown && d.CurrentHoldingsPercent <= 0
}

// CreatorRecord is the persisted creator history used by the reputation store.
type CreatorRecord struct {
	Address       string
	FirstSeenAt   *time.Time
	TokensCreated int
	RuggedTokens  int
	CreatedMints  []string
	FetchedAt     time.Time
}
