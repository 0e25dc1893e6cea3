package rewards

import (
	"fmt"
	"math"
	"time"
)

// tierMultipliers maps tier level to accrual multiplier.
var tierMultipliers = [MaxTier + 1]float64{1.0, 3.0, 5.0, 10.0, 25.0, 50.0}

// TierMultiplier returns the accrual multiplier for tier, or 1.0 for a tier
// outside 0..MaxTier.
func TierMultiplier(tier int) float64 {
	m, _ := tierMultiplier(tier)
	return m
}

// tierMultiplier is TierMultiplier plus whether the tier was in range.
func tierMultiplier(tier int) (float64, bool) {
	if tier < 0 || tier > MaxTier {
		return 1.0, false
	}
	return tierMultipliers[tier], true
}

// ValidTier reports whether tier is a known tier level.
func ValidTier(tier int) bool {
	_, ok := tierMultiplier(tier)
	return ok
}

// RatePerSecond is the accrual rate for the given tier and stake multiplier.
func RatePerSecond(tier int, stakeMultiplier float64) float64 {
	return baseRatePerSecond * TierMultiplier(tier) * stakeMultiplier
}

// SessionRemaining returns the time left in a session started at
// sessionStart, or zero when no session is active.
func SessionRemaining(now, sessionStart time.Time, active bool) time.Duration {
	if !active {
		return 0
	}
	left := sessionStart.Add(SessionDuration).Sub(now)
	if left < 0 {
		return 0
	}
	return left
}

// SessionProgress returns the elapsed fraction of the session in [0,1].
func SessionProgress(now, sessionStart time.Time, active bool) float64 {
	if !active {
		return 0
	}
	elapsed := now.Sub(sessionStart)
	if elapsed <= 0 {
		return 0
	}
	ratio := float64(elapsed) / float64(SessionDuration)
	return math.Min(1, ratio)
}

// ProjectedSessionEarnings estimates the points a session earns at the given
// progress ratio.
func ProjectedSessionEarnings(tier int, stakeMultiplier, progress float64) float64 {
	return BasePointsPerSession * TierMultiplier(tier) * stakeMultiplier * progress
}

// DisplayPoints floors a balance for display.
func DisplayPoints(points float64) int64 {
	return int64(math.Floor(points))
}

// FormatCountdown renders d as HH:MM:SS. Negative durations render as zero.
func FormatCountdown(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	total := int64(d / time.Second)
	return fmt.Sprintf("%02d:%02d:%02d", total/3600, (total%3600)/60, total%60)
}
