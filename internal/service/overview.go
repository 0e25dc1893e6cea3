package service

import (
	"time"

	"github.com/jmerrifield20/SignalMiner/internal/rewards"
)

// Overview is the ledger state plus the values a dashboard derives from it.
type Overview struct {
	Points            float64         `json:"points"`
	DisplayPoints     int64           `json:"display_points"`
	Tier              int             `json:"tier"`
	TierMultiplier    float64         `json:"tier_multiplier"`
	IsStaked          bool            `json:"is_staked"`
	StakeAmount       float64         `json:"stake_amount"`
	StakeMultiplier   float64         `json:"stake_multiplier"`
	StakeUnlockTime   *time.Time      `json:"stake_unlock_time,omitempty"`
	MiningActive      bool            `json:"mining_active"`
	SessionStart      *time.Time      `json:"session_start,omitempty"`
	RatePerSecond     float64         `json:"rate_per_second"`
	SessionRemaining  string          `json:"session_remaining"`
	SessionProgress   float64         `json:"session_progress"`
	ProjectedEarnings float64         `json:"projected_session_earnings"`
	CompletedTasks    map[string]bool `json:"completed_tasks"`
	TotalSwapped      int64           `json:"total_swapped"`
	Degraded          bool            `json:"degraded"`
	At                time.Time       `json:"at"`
}

// Overview returns the current state with derived values. It does not settle.
func (s *Service) Overview() Overview {
	return s.OverviewOf(s.ledger.State())
}

// OverviewOf derives an Overview from a state snapshot, such as one delivered
// to a ledger listener.
func (s *Service) OverviewOf(st rewards.State) Overview {
	o := BuildOverview(st, s.ledger.Now(), s.ledger.Degraded())
	o.TotalSwapped = s.swapped.value()
	return o
}

// BuildOverview derives an Overview from a state snapshot at now.
func BuildOverview(st rewards.State, now time.Time, degraded bool) Overview {
	progress := rewards.SessionProgress(now, st.SessionStart, st.MiningActive)
	o := Overview{
		Points:            st.Points,
		DisplayPoints:     rewards.DisplayPoints(st.Points),
		Tier:              st.Tier,
		TierMultiplier:    rewards.TierMultiplier(st.Tier),
		IsStaked:          st.IsStaked,
		StakeAmount:       st.StakeAmount,
		StakeMultiplier:   st.StakeMultiplier,
		MiningActive:      st.MiningActive,
		RatePerSecond:     rewards.RatePerSecond(st.Tier, st.StakeMultiplier),
		SessionRemaining:  rewards.FormatCountdown(rewards.SessionRemaining(now, st.SessionStart, st.MiningActive)),
		SessionProgress:   progress,
		ProjectedEarnings: rewards.ProjectedSessionEarnings(st.Tier, st.StakeMultiplier, progress),
		CompletedTasks:    st.CompletedTasks,
		Degraded:          degraded,
		At:                now,
	}
	if !st.StakeUnlockTime.IsZero() {
		t := st.StakeUnlockTime
		o.StakeUnlockTime = &t
	}
	if !st.SessionStart.IsZero() {
		t := st.SessionStart
		o.SessionStart = &t
	}
	return o
}
