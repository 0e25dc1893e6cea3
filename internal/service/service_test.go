package service_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jmerrifield20/SignalMiner/internal/kvstore"
	"github.com/jmerrifield20/SignalMiner/internal/rewards"
	"github.com/jmerrifield20/SignalMiner/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type transfer struct {
	direction string
	amount    int64
}

// stubTreasury records transfers and fails while err is set. When gate is
// set, Collect signals entered and waits for gate to close.
type stubTreasury struct {
	mu        sync.Mutex
	err       error
	transfers []transfer

	entered chan struct{}
	gate    chan struct{}
}

func (s *stubTreasury) Collect(_ context.Context, amount int64, _ string) (string, error) {
	if s.gate != nil {
		close(s.entered)
		<-s.gate
	}
	return s.record("collect", amount)
}

func (s *stubTreasury) Pay(_ context.Context, token string, amount int64, _ string) (string, error) {
	return s.record("pay:"+token, amount)
}

func (s *stubTreasury) Payout(_ context.Context, amount int64, _ string) (string, error) {
	return s.record("payout", amount)
}

func (s *stubTreasury) record(dir string, amount int64) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return "", s.err
	}
	s.transfers = append(s.transfers, transfer{dir, amount})
	return "0xabc", nil
}

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

var ctx = context.Background()

func newService(t *testing.T) (*service.Service, *stubTreasury, *clock) {
	t.Helper()
	svc, tr, c, _ := newServiceWithStore(t, kvstore.NewMemoryStore())
	return svc, tr, c
}

func newServiceWithStore(t *testing.T, store kvstore.Store) (*service.Service, *stubTreasury, *clock, *rewards.Ledger) {
	t.Helper()
	c := &clock{now: time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)}
	l := rewards.Open(ctx, store, rewards.WithClock(c))
	tr := &stubTreasury{}
	return service.New(ctx, l, tr, store, zap.NewNop()), tr, c, l
}

// earn claims each task in ids.
func earn(t *testing.T, svc *service.Service, ids ...string) {
	t.Helper()
	for _, id := range ids {
		_, err := svc.ClaimTask(id)
		require.NoError(t, err)
	}
}

func TestClaimTask(t *testing.T) {
	svc, _, _ := newService(t)

	task, err := svc.ClaimTask("fc_follow")
	require.NoError(t, err)
	assert.Equal(t, 250.0, task.Reward)

	_, err = svc.ClaimTask("fc_follow")
	assert.ErrorIs(t, err, service.ErrTaskAlreadyClaimed)

	_, err = svc.ClaimTask("bogus")
	assert.ErrorIs(t, err, service.ErrTaskUnknown)

	assert.Equal(t, 250.0, svc.Ledger().Points())
}

func TestPurchaseTier(t *testing.T) {
	svc, tr, _ := newService(t)

	r, err := svc.PurchaseTier(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, 2, r.Tier)
	assert.Equal(t, "tier", r.Kind)
	assert.Equal(t, []transfer{{"collect", 3000}}, tr.transfers)
	assert.Equal(t, 2, svc.Ledger().Tier())
}

func TestPurchaseTier_onlyUpgrades(t *testing.T) {
	svc, tr, _ := newService(t)
	_, err := svc.PurchaseTier(ctx, 3)
	require.NoError(t, err)

	_, err = svc.PurchaseTier(ctx, 3)
	assert.ErrorIs(t, err, service.ErrTierNotUpgrade)
	_, err = svc.PurchaseTier(ctx, 1)
	assert.ErrorIs(t, err, service.ErrTierNotUpgrade)
	_, err = svc.PurchaseTier(ctx, 0)
	assert.ErrorIs(t, err, service.ErrTierNotUpgrade)
	_, err = svc.PurchaseTier(ctx, 7)
	assert.ErrorIs(t, err, service.ErrTierUnknown)

	assert.Len(t, tr.transfers, 1)
	assert.Equal(t, 3, svc.Ledger().Tier())
}

func TestPurchaseTier_treasuryFailureKeepsTier(t *testing.T) {
	svc, tr, _ := newService(t)
	tr.err = errors.New("user rejected")

	_, err := svc.PurchaseTier(ctx, 1)
	assert.ErrorIs(t, err, service.ErrTreasury)
	assert.Equal(t, 0, svc.Ledger().Tier())
}

func TestSwap(t *testing.T) {
	svc, tr, _ := newService(t)
	earn(t, svc, "x_login", "x_follow", "x_like", "base_tx") // 2000

	r, err := svc.Swap(ctx, 2000)
	require.NoError(t, err)
	assert.Equal(t, int64(200), r.Signal)
	assert.Equal(t, []transfer{{"payout", 200}}, tr.transfers)
	assert.Zero(t, svc.Ledger().Points())

	_, err = svc.Swap(ctx, 1000)
	assert.ErrorIs(t, err, service.ErrInsufficientBalance)
	assert.Len(t, tr.transfers, 1, "no payout without a successful deduction")
}

func TestSwap_appliesStakeMultiplier(t *testing.T) {
	svc, _, _ := newService(t)
	earn(t, svc, "x_login", "x_follow")
	_, err := svc.Stake(ctx, 50, 21)
	require.NoError(t, err)

	q, err := svc.QuoteSwap(1000)
	require.NoError(t, err)
	assert.Equal(t, int64(150), q.Signal)

	r, err := svc.Swap(ctx, 1000)
	require.NoError(t, err)
	assert.Equal(t, int64(150), r.Signal)
}

func TestSwap_payoutFailureRefunds(t *testing.T) {
	svc, tr, _ := newService(t)
	earn(t, svc, "x_login", "x_follow")
	tr.err = errors.New("rpc unavailable")

	_, err := svc.Swap(ctx, 1000)
	assert.ErrorIs(t, err, service.ErrTreasury)
	assert.Equal(t, 1000.0, svc.Ledger().Points())
}

func TestSwap_rejectsOddAmounts(t *testing.T) {
	svc, _, _ := newService(t)
	earn(t, svc, "x_login", "x_follow", "x_like")

	_, err := svc.Swap(ctx, 1500)
	assert.Error(t, err)
	assert.Equal(t, 1500.0, svc.Ledger().Points())
}

func TestStakeAndUnstake(t *testing.T) {
	svc, tr, c := newService(t)

	_, err := svc.Unstake(ctx)
	assert.ErrorIs(t, err, service.ErrNotStaked)

	_, err = svc.Stake(ctx, 100, 10)
	assert.ErrorIs(t, err, service.ErrStakeOption)
	_, err = svc.Stake(ctx, 0, 7)
	assert.ErrorIs(t, err, service.ErrInvalidAmount)

	_, err = svc.Stake(ctx, 100, 7)
	require.NoError(t, err)
	st := svc.Ledger().State()
	assert.True(t, st.IsStaked)
	assert.Equal(t, 1.1, st.StakeMultiplier)
	assert.True(t, st.StakeUnlockTime.Equal(c.Now().Add(7*24*time.Hour)))

	_, err = svc.Stake(ctx, 100, 14)
	assert.ErrorIs(t, err, service.ErrAlreadyStaked)

	c.advance(6 * 24 * time.Hour)
	_, err = svc.Unstake(ctx)
	assert.ErrorIs(t, err, service.ErrStakeLocked)

	c.advance(24 * time.Hour)
	r, err := svc.Unstake(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(100), r.Signal)
	assert.False(t, svc.Ledger().State().IsStaked)
	assert.Equal(t, 1.0, svc.Ledger().State().StakeMultiplier)
	assert.Equal(t, []transfer{{"collect", 100}, {"payout", 100}}, tr.transfers)
}

func TestOverview(t *testing.T) {
	svc, _, c := newService(t)
	svc.StartMining()
	c.advance(6 * time.Hour)

	o := svc.Overview()
	assert.True(t, o.MiningActive)
	assert.Equal(t, "18:00:00", o.SessionRemaining)
	assert.InDelta(t, 0.25, o.SessionProgress, 1e-9)
	assert.InDelta(t, 25.0, o.ProjectedEarnings, 1e-9)
	assert.Nil(t, o.StakeUnlockTime)
	require.NotNil(t, o.SessionStart)

	svc.Settle()
	assert.InDelta(t, 25.0, svc.Overview().Points, 1e-9)
}

func TestSwap_waitsForStakeInFlight(t *testing.T) {
	svc, tr, _ := newService(t)
	earn(t, svc, "x_login", "x_follow")
	tr.entered = make(chan struct{})
	tr.gate = make(chan struct{})

	stakeErr := make(chan error, 1)
	go func() {
		_, err := svc.Stake(ctx, 100, 7)
		stakeErr <- err
	}()
	<-tr.entered

	type result struct {
		r   service.Receipt
		err error
	}
	swapped := make(chan result, 1)
	go func() {
		r, err := svc.Swap(ctx, 1000)
		swapped <- result{r, err}
	}()

	// Give the swap time to reach the spend lock before the stake completes.
	time.Sleep(50 * time.Millisecond)
	close(tr.gate)

	require.NoError(t, <-stakeErr)
	res := <-swapped
	require.NoError(t, res.err)
	assert.Equal(t, int64(110), res.r.Signal, "swap priced at the multiplier of the completed stake")
}

func TestTotalSwapped(t *testing.T) {
	store := kvstore.NewMemoryStore()
	svc, tr, _, _ := newServiceWithStore(t, store)
	earn(t, svc, "x_login", "x_follow", "x_like", "base_connect", "base_tx", "base_swap") // 3000

	_, err := svc.Swap(ctx, 1000)
	require.NoError(t, err)
	_, err = svc.Swap(ctx, 1000)
	require.NoError(t, err)
	assert.Equal(t, int64(200), svc.TotalSwapped())
	assert.Equal(t, int64(200), svc.Overview().TotalSwapped)

	tr.err = errors.New("rpc unavailable")
	_, err = svc.Swap(ctx, 1000)
	require.Error(t, err)
	assert.Equal(t, int64(200), svc.TotalSwapped(), "failed payouts are not counted")

	reopened, _, _, _ := newServiceWithStore(t, store)
	assert.Equal(t, int64(200), reopened.TotalSwapped())
}

func TestTotalSwapped_legacyFractionalValue(t *testing.T) {
	store := kvstore.NewMemoryStore()
	require.NoError(t, store.Set(ctx, "totalSwapped", []byte("412.5")))

	svc, _, _, _ := newServiceWithStore(t, store)
	assert.Equal(t, int64(412), svc.TotalSwapped())
}

func TestBoost(t *testing.T) {
	store := kvstore.NewMemoryStore()
	svc, tr, c, _ := newServiceWithStore(t, store)

	r, err := svc.Boost(ctx, "https://warpcast.com/alice/0x1", "")
	require.NoError(t, err)
	assert.Equal(t, "boost", r.Kind)
	assert.Equal(t, "eth", r.Token)
	assert.Equal(t, int64(600_000_000_000_000), r.Amount)

	c.advance(time.Minute)
	_, err = svc.Boost(ctx, "https://x.com/alice/status/2", "USDC")
	require.NoError(t, err)

	assert.Equal(t, []transfer{{"pay:eth", 600_000_000_000_000}, {"pay:usdc", 2_000_000}}, tr.transfers)

	posts := svc.Boosts()
	require.Len(t, posts, 2)
	assert.Equal(t, "https://x.com/alice/status/2", posts[0].URL)
	assert.Equal(t, "Twitter / X", posts[0].Platform)
	assert.Equal(t, "0xabc", posts[0].TxHash)

	reopened, _, _, _ := newServiceWithStore(t, store)
	assert.Len(t, reopened.Boosts(), 2)
}

func TestBoost_rejects(t *testing.T) {
	svc, tr, _ := newService(t)

	_, err := svc.Boost(ctx, "warpcast.com/alice", "eth")
	assert.ErrorIs(t, err, service.ErrBoostURL)
	_, err = svc.Boost(ctx, "https://warpcast.com/alice", "doge")
	assert.ErrorIs(t, err, service.ErrBoostToken)

	tr.err = errors.New("user rejected")
	_, err = svc.Boost(ctx, "https://warpcast.com/alice", "eth")
	assert.ErrorIs(t, err, service.ErrTreasury)

	assert.Empty(t, svc.Boosts())
	assert.Empty(t, tr.transfers)
}
