// Package game implements the whack-a-mole session state machine
package game

import "time"

// Tier identifies how aggressively the mole relocates
type Tier string

// The three difficulty tiers, from slowest to fastest respawn
const (
	TierEasy   Tier = "EASY"
	TierMedium Tier = "MEDIUM"
	TierHard   Tier = "HARD"
)

// Tiers maps each difficulty tier to its respawn interval
type Tiers struct {
	Easy   time.Duration
	Medium time.Duration
	Hard   time.Duration
}

// Interval returns the respawn interval for a tier
func (t Tiers) Interval(tier Tier) time.Duration {
	switch tier {
	case TierHard:
		return t.Hard
	case TierMedium:
		return t.Medium
	default:
		return t.Easy
	}
}

// Decision is the outcome of one difficulty evaluation
type Decision struct {
	Respawn bool
	Tier    Tier
}

// EvaluateDifficulty decides whether the mole should relocate on this tick.
//
// Tiers are checked HARD -> MEDIUM -> EASY and the first match wins. A tier
// applies when the match has progressed far enough (HARD in the last half,
// MEDIUM in the last three quarters, EASY always), the remaining time is
// aligned to the tier's interval, and at least one tier interval has passed
// since the last score. Remaining times and the last-score mark are in
// milliseconds of match clock.
func EvaluateDifficulty(remainingMs, lastScoreAtMs int64, duration time.Duration, tiers Tiers) Decision {
	durationMs := duration.Milliseconds()
	sinceScore := lastScoreAtMs - remainingMs

	hard := tiers.Hard.Milliseconds()
	if remainingMs < durationMs/2 && remainingMs%hard == 0 && sinceScore >= hard {
		return Decision{Respawn: true, Tier: TierHard}
	}

	medium := tiers.Medium.Milliseconds()
	if remainingMs < durationMs*3/4 && remainingMs%medium == 0 && sinceScore >= medium {
		return Decision{Respawn: true, Tier: TierMedium}
	}

	easy := tiers.Easy.Milliseconds()
	if remainingMs%easy == 0 && sinceScore >= easy {
		return Decision{Respawn: true, Tier: TierEasy}
	}

	return Decision{}
}
