package rewards_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/jmerrifield20/SignalMiner/internal/rewards"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecode_roundTrip(t *testing.T) {
	s := rewards.DefaultState()
	s.Points = 1234.5678
	s.Tier = 4
	s.IsStaked = true
	s.StakeAmount = 300
	s.StakeMultiplier = 1.1
	s.StakeUnlockTime = time.UnixMilli(1_780_000_000_123).UTC()
	s.MiningActive = true
	s.SessionStart = time.UnixMilli(1_779_990_000_456).UTC()
	s.CompletedTasks["x_follow"] = true
	s.CompletedTasks["base_tx"] = true

	data, err := rewards.EncodeState(s)
	require.NoError(t, err)

	got, warnings, err := rewards.DecodeState(data)
	require.NoError(t, err)
	assert.Empty(t, warnings)
	assert.Equal(t, s, got)
}

func TestEncodeState_wireFormat(t *testing.T) {
	s := rewards.DefaultState()
	s.Points = 42
	s.MiningActive = true
	s.SessionStart = time.UnixMilli(1_700_000_000_000).UTC()
	s.CompletedTasks["fc_follow"] = true

	data, err := rewards.EncodeState(s)
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.Equal(t, 42.0, raw["points"])
	assert.Equal(t, 42.0, raw["accumulatedPoints"])
	assert.Equal(t, 1_700_000_000_000.0, raw["lastActivation"])
	assert.Equal(t, 0.0, raw["stakeUnlockTime"])
	assert.Equal(t, true, raw["miningActive"])
	assert.Equal(t, map[string]any{"fc_follow": true}, raw["tasks"])
}

func TestDecodeState_legacyAccumulatedPoints(t *testing.T) {
	s, _, err := rewards.DecodeState([]byte(`{"accumulatedPoints": 777, "tier": 1}`))
	require.NoError(t, err)
	assert.Equal(t, 777.0, s.Points)
	assert.Equal(t, 1, s.Tier)
}

func TestDecodeState_pointsWinsOverAlias(t *testing.T) {
	s, _, err := rewards.DecodeState([]byte(`{"points": 10, "accumulatedPoints": 99}`))
	require.NoError(t, err)
	assert.Equal(t, 10.0, s.Points)
}

func TestDecodeState_absentFieldsDefault(t *testing.T) {
	s, warnings, err := rewards.DecodeState([]byte(`{}`))
	require.NoError(t, err)
	assert.Empty(t, warnings)
	assert.Equal(t, rewards.DefaultState(), s)
}

func TestDecodeState_rejectsCorruptData(t *testing.T) {
	for name, input := range map[string]string{
		"not json":        `{"points":`,
		"wrong type":      `{"points": "lots"}`,
		"negative points": `{"points": -1}`,
		"array":           `[1,2,3]`,
	} {
		t.Run(name, func(t *testing.T) {
			_, _, err := rewards.DecodeState([]byte(input))
			assert.Error(t, err)
		})
	}
}

func TestDecodeState_repairsOutOfRangeFields(t *testing.T) {
	s, warnings, err := rewards.DecodeState([]byte(`{
		"points": 5,
		"tier": 9,
		"isStaked": true,
		"stakeAmount": 100,
		"stakeMultiplier": 0,
		"miningActive": true,
		"lastActivation": 0
	}`))
	require.NoError(t, err)

	assert.Len(t, warnings, 3)
	assert.Equal(t, 0, s.Tier)
	assert.True(t, s.IsStaked)
	assert.Equal(t, 1.0, s.StakeMultiplier)
	assert.False(t, s.MiningActive)
}

func TestDecodeState_multiplierWithoutStakeIsReset(t *testing.T) {
	s, warnings, err := rewards.DecodeState([]byte(`{"isStaked": false, "stakeMultiplier": 1.5, "stakeAmount": 20}`))
	require.NoError(t, err)

	assert.Len(t, warnings, 1)
	assert.Equal(t, 1.0, s.StakeMultiplier)
	assert.Zero(t, s.StakeAmount)
}

func TestDecodeState_dropsFalseTasks(t *testing.T) {
	s, _, err := rewards.DecodeState([]byte(`{"tasks": {"fc_follow": true, "x_like": false}}`))
	require.NoError(t, err)

	assert.True(t, s.TaskCompleted("fc_follow"))
	assert.False(t, s.TaskCompleted("x_like"))
	assert.Len(t, s.CompletedTasks, 1)
}
