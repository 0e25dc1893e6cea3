// Package catalog holds the static product tables of the miner: hardware
// tiers, stake lock periods, the points-to-SIGNAL swap rate and the social
// task list.
package catalog

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/jmerrifield20/SignalMiner/internal/rewards"
)

// Tier is a purchasable mining rig.
type Tier struct {
	ID          int     `json:"id"`
	Name        string  `json:"name"`
	PriceSignal int64   `json:"price_signal"`
	Multiplier  float64 `json:"multiplier"`
}

var tierPrices = [rewards.MaxTier + 1]int64{0, 1000, 3000, 5000, 8000, 100000}

// Tiers returns every tier in ascending order.
func Tiers() []Tier {
	out := make([]Tier, 0, len(tierPrices))
	for id := range tierPrices {
		t, _ := LookupTier(id)
		out = append(out, t)
	}
	return out
}

// LookupTier returns the tier with the given id.
func LookupTier(id int) (Tier, bool) {
	if !rewards.ValidTier(id) {
		return Tier{}, false
	}
	mult := rewards.TierMultiplier(id)
	name := "Base Rig"
	if id > 0 {
		name = fmt.Sprintf("Tier %d • x%g", id, mult)
	}
	return Tier{ID: id, Name: name, PriceSignal: tierPrices[id], Multiplier: mult}, true
}

// StakeOption is a lock period and the multiplier it grants.
type StakeOption struct {
	Days       int     `json:"days"`
	Multiplier float64 `json:"multiplier"`
}

// Lock returns the option's lock period.
func (o StakeOption) Lock() time.Duration {
	return time.Duration(o.Days) * 24 * time.Hour
}

var stakeOptions = []StakeOption{
	{Days: 7, Multiplier: 1.10},
	{Days: 14, Multiplier: 1.25},
	{Days: 21, Multiplier: 1.50},
}

// StakeOptions returns the available lock periods.
func StakeOptions() []StakeOption {
	out := make([]StakeOption, len(stakeOptions))
	copy(out, stakeOptions)
	return out
}

// LookupStake returns the option for a lock period in days.
func LookupStake(days int) (StakeOption, bool) {
	for _, o := range stakeOptions {
		if o.Days == days {
			return o, true
		}
	}
	return StakeOption{}, false
}

const (
	// SwapLot is the smallest swappable amount of points.
	SwapLot = 1000
	// SignalPerLot is the SIGNAL paid per lot before the stake multiplier.
	SignalPerLot = 100
)

// ErrSwapAmount is returned for a swap that is not a positive multiple of
// SwapLot.
var ErrSwapAmount = errors.New("swap amount must be a positive multiple of 1000 points")

// SwapQuote is the outcome of swapping Points at the current multiplier.
type SwapQuote struct {
	Points          int64   `json:"points"`
	StakeMultiplier float64 `json:"stake_multiplier"`
	BaseSignal      int64   `json:"base_signal"`
	Signal          int64   `json:"signal"`
}

// QuoteSwap prices a swap of points at stakeMultiplier. The multiplied
// output is floored to whole SIGNAL.
func QuoteSwap(points int64, stakeMultiplier float64) (SwapQuote, error) {
	if points <= 0 || points%SwapLot != 0 {
		return SwapQuote{}, ErrSwapAmount
	}
	if stakeMultiplier <= 0 || math.IsNaN(stakeMultiplier) || math.IsInf(stakeMultiplier, 0) {
		stakeMultiplier = 1
	}
	base := points / SwapLot * SignalPerLot
	return SwapQuote{
		Points:          points,
		StakeMultiplier: stakeMultiplier,
		BaseSignal:      base,
		Signal:          int64(math.Floor(float64(base) * stakeMultiplier)),
	}, nil
}
