// Package rewards implements the mining session and rewards ledger.
//
// A Ledger owns the points balance, the 24-hour mining session, the tier
// level and the staking multiplier. Every mutating operation first settles
// accrued points for the time elapsed since the last settlement, then applies
// its own effect, persists the full snapshot and notifies subscribers. The
// ledger owns no timer: callers poll Settle, and session expiry is detected
// on the next settlement after the session window closes.
package rewards

import "time"

const (
	// SessionDuration is the fixed length of a mining session.
	SessionDuration = 24 * time.Hour

	// BasePointsPerSession is the accrual of a full session at 1x.
	BasePointsPerSession = 100.0

	// MaxTier is the highest tier level.
	MaxTier = 5

	// DefaultKey is the storage key the snapshot is persisted under.
	DefaultKey = "minerState"
)

// baseRatePerSecond is BasePointsPerSession spread over a session.
const baseRatePerSecond = BasePointsPerSession / 86400.0
