package rewards

import (
	"encoding/json"
	"fmt"
	"math"
	"time"
)

// State is a point-in-time copy of the ledger. Mutating a State has no
// effect on the ledger it came from.
type State struct {
	Points          float64         `json:"points"`
	Tier            int             `json:"tier"`
	IsStaked        bool            `json:"is_staked"`
	StakeAmount     float64         `json:"stake_amount"`
	StakeMultiplier float64         `json:"stake_multiplier"`
	StakeUnlockTime time.Time       `json:"stake_unlock_time"` // zero = none
	MiningActive    bool            `json:"mining_active"`
	SessionStart    time.Time       `json:"session_start"` // zero = none
	CompletedTasks  map[string]bool `json:"completed_tasks"`
}

// DefaultState returns the state of a ledger that has never been persisted.
func DefaultState() State {
	return State{
		StakeMultiplier: 1,
		CompletedTasks:  make(map[string]bool),
	}
}

// AccumulatedPoints is the legacy alias of Points kept in the snapshot.
func (s State) AccumulatedPoints() float64 { return s.Points }

// TaskCompleted reports whether taskID has already awarded its reward.
func (s State) TaskCompleted(taskID string) bool { return s.CompletedTasks[taskID] }

// clone returns a deep copy.
func (s State) clone() State {
	out := s
	out.CompletedTasks = make(map[string]bool, len(s.CompletedTasks))
	for id := range s.CompletedTasks {
		out.CompletedTasks[id] = true
	}
	return out
}

// snapshot is the persisted record. Field names and units match the
// mini-app's local storage format: timestamps are epoch milliseconds with 0
// meaning unset. Pointer fields distinguish absent keys from zero values.
type snapshot struct {
	Points            *float64        `json:"points,omitempty"`
	AccumulatedPoints *float64        `json:"accumulatedPoints,omitempty"`
	Tier              int             `json:"tier"`
	IsStaked          bool            `json:"isStaked"`
	StakeAmount       float64         `json:"stakeAmount"`
	StakeMultiplier   float64         `json:"stakeMultiplier"`
	StakeUnlockTime   int64           `json:"stakeUnlockTime"`
	MiningActive      bool            `json:"miningActive"`
	LastActivation    int64           `json:"lastActivation"`
	Tasks             map[string]bool `json:"tasks"`
}

// EncodeState serialises s into the persisted snapshot format.
func EncodeState(s State) ([]byte, error) {
	points := s.Points
	tasks := make(map[string]bool, len(s.CompletedTasks))
	for id := range s.CompletedTasks {
		tasks[id] = true
	}
	return json.Marshal(snapshot{
		Points:            &points,
		AccumulatedPoints: &points,
		Tier:              s.Tier,
		IsStaked:          s.IsStaked,
		StakeAmount:       s.StakeAmount,
		StakeMultiplier:   s.StakeMultiplier,
		StakeUnlockTime:   toMillis(s.StakeUnlockTime),
		MiningActive:      s.MiningActive,
		LastActivation:    toMillis(s.SessionStart),
		Tasks:             tasks,
	})
}

// DecodeState parses a persisted snapshot. Absent fields take their
// defaults. A snapshot that is not valid JSON or that violates the balance
// invariant is reported as an error; the caller falls back to DefaultState.
//
// The returned warnings describe fields that were repaired rather than
// rejected.
func DecodeState(data []byte) (State, []string, error) {
	var snap snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return State{}, nil, fmt.Errorf("decode snapshot: %w", err)
	}

	s := DefaultState()
	switch {
	case snap.Points != nil:
		s.Points = *snap.Points
	case snap.AccumulatedPoints != nil:
		s.Points = *snap.AccumulatedPoints
	}
	if math.IsNaN(s.Points) || math.IsInf(s.Points, 0) || s.Points < 0 {
		return State{}, nil, fmt.Errorf("decode snapshot: invalid points %v", s.Points)
	}

	var warnings []string

	s.Tier = snap.Tier
	if s.Tier < 0 || s.Tier > MaxTier {
		warnings = append(warnings, fmt.Sprintf("tier %d out of range, reset to 0", s.Tier))
		s.Tier = 0
	}

	s.IsStaked = snap.IsStaked
	if s.IsStaked {
		s.StakeAmount = snap.StakeAmount
		s.StakeMultiplier = snap.StakeMultiplier
		s.StakeUnlockTime = fromMillis(snap.StakeUnlockTime)
		if !validMultiplier(s.StakeMultiplier) {
			warnings = append(warnings, fmt.Sprintf("stake multiplier %v invalid, reset to 1", snap.StakeMultiplier))
			s.StakeMultiplier = 1
		}
	} else if snap.StakeMultiplier != 0 && snap.StakeMultiplier != 1 {
		warnings = append(warnings, fmt.Sprintf("stake multiplier %v without stake, reset to 1", snap.StakeMultiplier))
	}

	s.SessionStart = fromMillis(snap.LastActivation)
	s.MiningActive = snap.MiningActive
	if s.MiningActive && s.SessionStart.IsZero() {
		warnings = append(warnings, "mining active without session start, session closed")
		s.MiningActive = false
	}

	for id, done := range snap.Tasks {
		if done {
			s.CompletedTasks[id] = true
		}
	}
	return s, warnings, nil
}

func validMultiplier(m float64) bool {
	return m > 0 && !math.IsNaN(m) && !math.IsInf(m, 0)
}

func toMillis(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixMilli()
}

func fromMillis(ms int64) time.Time {
	if ms <= 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms).UTC()
}
