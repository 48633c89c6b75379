// Package scoring folds extracted evidence into a risk score, level and flags.
//
// Score is a pure function: an ordered list of rules is applied to an
// immutable accumulator. Floors run first, then additive penalties, then
// maturity caps, then combo escalation. Caps never pull the score below a
// hard minimum set by rug history, zero liquidity, whale concentration or a
// price crash; otherwise the later rule wins.
package scoring

import (
	"slices"

	"solana-token-risk/internal/domain"
)

// DefaultBaselineScore is the starting score when no narrative baseline is supplied.
const DefaultBaselineScore = 20

// Level thresholds.
const (
	scamThreshold       = 80
	dangerousThreshold  = 65
	suspiciousThreshold = 55
)

// Evidence is everything the engine scores. Nil pointers mean the signal is absent.
type Evidence struct {
	Token    domain.TokenSnapshot
	Holders  []domain.HolderRecord
	Creator  *domain.CreatorProfile
	Bundle   domain.BundleEvidence
	Quality  *domain.BundleQuality
	Wash     *domain.WashTradingEvidence
	Dev      *domain.DevActivity
	Baseline *domain.Baseline
}

// acc is the fold state. Rules return a new acc and never modify the one they receive.
type acc struct {
	score   int
	minimum int // hard minimum, survives caps
	flags   []domain.Flag
}

func (a acc) floor(threshold int) acc {
	a.score = max(a.score, threshold)
	return a
}

func (a acc) hardFloor(threshold int) acc {
	a = a.floor(threshold)
	a.minimum = max(a.minimum, threshold)
	return a
}

func (a acc) ceiling(threshold int) acc {
	a.score = max(min(a.score, threshold), a.minimum)
	return a
}

func (a acc) add(delta int) acc {
	a.score += delta
	return a
}

func (a acc) flag(t domain.FlagType, s domain.Severity, msg string) acc {
	a.flags = append(slices.Clip(a.flags), domain.Flag{Type: t, Severity: s, Message: msg})
	return a
}

// rule is one step of the cascade.
type rule func(ev Evidence, a acc) acc

// cascade is the ordered rule list. Order is part of the scoring contract.
var cascade = []rule{
	// floors
	rugHistory,
	creatorUnknown,
	zeroLiquidity,
	holderConcentration,
	creatorHoldings,
	authorities,
	bundleConfidence,
	bundleQuality,
	washTrading,
	devSold,
	priceCrash,
	informational,
	// additive
	bundleWithActiveDev,
	// caps
	maturity,
	// escalation
	comboEscalation,
}

// Score applies the rule cascade to ev.
func Score(ev Evidence) domain.RiskAssessment {
	a := acc{score: DefaultBaselineScore}
	if ev.Baseline != nil {
		a.score = ev.Baseline.Score
	}

	for _, r := range cascade {
		a = r(ev, a)
	}

	score := min(100, max(0, max(a.score, a.minimum)))
	level := Classify(score)

	var prior []domain.Flag
	if ev.Baseline != nil {
		prior = ev.Baseline.Flags
	}

	return domain.RiskAssessment{
		Score:          score,
		Level:          level,
		Flags:          mergeFlags(a.flags, prior),
		Recommendation: Recommendation(level),
	}
}

// Classify maps a clamped score to a level.
func Classify(score int) domain.RiskLevel {
	switch {
	case score >= scamThreshold:
		return domain.LevelScam
	case score >= dangerousThreshold:
		return domain.LevelDangerous
	case score >= suspiciousThreshold:
		return domain.LevelSuspicious
	default:
		return domain.LevelSafe
	}
}

// Recommendation returns the user-facing advice for a level.
func Recommendation(level domain.RiskLevel) string {
	switch level {
	case domain.LevelScam:
		return "Avoid. Multiple critical indicators match known rug-pull and scam patterns."
	case domain.LevelDangerous:
		return "High risk. Do not buy unless you fully understand and accept the flagged risks."
	case domain.LevelSuspicious:
		return "Caution. Some risk indicators are present; size positions accordingly."
	default:
		return "No major risk indicators found. This is not a guarantee of safety."
	}
}

// mergeFlags returns fresh flags followed by prior flags, keeping the first
// occurrence of each message.
func mergeFlags(fresh, prior []domain.Flag) []domain.Flag {
	seen := make(map[string]struct{}, len(fresh)+len(prior))
	out := make([]domain.Flag, 0, len(fresh)+len(prior))
	for _, list := range [][]domain.Flag{fresh, prior} {
		for _, f := range list {
			if _, dup := seen[f.Message]; dup {
				continue
			}
			seen[f.Message] = struct{}{}
			out = append(out, f)
		}
	}
	return out
}
