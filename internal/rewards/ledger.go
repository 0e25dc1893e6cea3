package rewards

import (
	"context"
	"errors"
	"math"
	"sync"
	"time"

	"github.com/jmerrifield20/SignalMiner/internal/kvstore"
	"github.com/jmerrifield20/SignalMiner/internal/metrics"
	"go.uber.org/zap"
)

const defaultPersistTimeout = 2 * time.Second

// StakeTerms describes an active stake lock.
type StakeTerms struct {
	Amount     float64
	Multiplier float64
	UnlockTime time.Time
}

// Ledger is the single writer of the rewards state. All methods are safe for
// concurrent use; each mutation (settle, apply, persist) runs as one critical
// section, and subscribers are notified in mutation order after it.
type Ledger struct {
	mu             sync.Mutex
	state          State
	degraded       bool
	store          kvstore.Store
	key            string
	clock          Clock
	persistTimeout time.Duration
	logger         *zap.Logger

	// notifyMu serialises writers and keeps broadcasts in mutation order.
	// Lock order is notifyMu then mu; mu is released before listeners run,
	// so listeners may read the ledger but must not mutate it.
	notifyMu sync.Mutex
	subs     *hub
}

// Option configures a Ledger.
type Option func(*Ledger)

// WithClock sets the ledger's time source. Defaults to SystemClock.
func WithClock(c Clock) Option {
	return func(l *Ledger) { l.clock = c }
}

// WithLogger sets the ledger's logger. Defaults to a no-op logger.
func WithLogger(logger *zap.Logger) Option {
	return func(l *Ledger) { l.logger = logger }
}

// WithKey sets the storage key of the snapshot. Defaults to DefaultKey.
func WithKey(key string) Option {
	return func(l *Ledger) { l.key = key }
}

// WithPersistTimeout bounds each snapshot write.
func WithPersistTimeout(d time.Duration) Option {
	return func(l *Ledger) { l.persistTimeout = d }
}

// Open loads the ledger from store. A missing, unreadable or malformed
// snapshot yields the default state; Open never fails.
func Open(ctx context.Context, store kvstore.Store, opts ...Option) *Ledger {
	l := &Ledger{
		store:          store,
		key:            DefaultKey,
		clock:          SystemClock{},
		persistTimeout: defaultPersistTimeout,
		logger:         zap.NewNop(),
		subs:           newHub(),
	}
	for _, o := range opts {
		o(l)
	}
	l.state = l.load(ctx)
	return l
}

func (l *Ledger) load(ctx context.Context) State {
	data, err := l.store.Get(ctx, l.key)
	if err != nil {
		if errors.Is(err, kvstore.ErrNotFound) {
			l.logger.Info("no ledger snapshot found, starting fresh", zap.String("key", l.key))
		} else {
			l.logger.Warn("ledger snapshot unreadable, starting fresh",
				zap.String("key", l.key),
				zap.Error(err),
			)
		}
		return DefaultState()
	}

	s, warnings, err := DecodeState(data)
	if err != nil {
		l.logger.Warn("ledger snapshot corrupt, starting fresh",
			zap.String("key", l.key),
			zap.Error(err),
		)
		return DefaultState()
	}
	for _, w := range warnings {
		l.logger.Warn("ledger snapshot repaired", zap.String("detail", w))
	}

	l.logger.Info("ledger snapshot loaded",
		zap.Float64("points", s.Points),
		zap.Int("tier", s.Tier),
		zap.Bool("mining_active", s.MiningActive),
		zap.Int("completed_tasks", len(s.CompletedTasks)),
	)
	return s
}

// now reads the clock at the snapshot's millisecond resolution so that the
// in-memory state always equals what a reload would produce.
func (l *Ledger) now() time.Time {
	return l.clock.Now().UTC().Truncate(time.Millisecond)
}

// Settle credits the points accrued since the last settlement and closes the
// session once its 24 hours have elapsed. It returns the points credited.
// Calling Settle again at the same instant credits nothing.
func (l *Ledger) Settle() float64 {
	l.lock()
	earned, changed := l.settleLocked(l.now())
	l.releaseLocked(changed)
	return earned
}

// settleLocked is the accrual step every operation begins with.
func (l *Ledger) settleLocked(now time.Time) (float64, bool) {
	if !l.state.MiningActive {
		return 0, false
	}

	start := l.state.SessionStart
	end := start.Add(SessionDuration)
	effective := now
	if effective.After(end) {
		effective = end
	}
	if !effective.After(start) {
		// Zero elapsed, or the clock went backwards.
		return 0, false
	}

	mult, ok := tierMultiplier(l.state.Tier)
	if !ok {
		l.logger.Warn("tier out of range, accruing at 1x", zap.Int("tier", l.state.Tier))
	}
	elapsed := effective.Sub(start).Seconds()
	earned := elapsed * baseRatePerSecond * mult * l.state.StakeMultiplier

	l.state.Points += earned
	l.state.SessionStart = effective
	metrics.RecordCredit("mining", earned)

	if effective.Equal(end) {
		l.state.MiningActive = false
		l.logger.Info("mining session expired",
			zap.Time("ended_at", end),
			zap.Float64("points", l.state.Points),
		)
	}
	return earned, true
}

// Start opens a new 24-hour session at the current time. Any unsettled
// accrual of a running session is credited first, so restarting never loses
// points.
func (l *Ledger) Start() {
	l.lock()
	now := l.now()
	l.settleLocked(now)
	l.state.MiningActive = true
	l.state.SessionStart = now
	l.logger.Info("mining session started", zap.Time("session_start", now))
	l.releaseLocked(true)
}

// CompleteTask credits reward for taskID once. It reports false, changing
// nothing, when the task was already completed or the input is invalid.
func (l *Ledger) CompleteTask(taskID string, reward float64) bool {
	if taskID == "" || !validAmount(reward) {
		return false
	}

	l.lock()
	if l.state.CompletedTasks[taskID] {
		l.releaseLocked(false)
		return false
	}
	l.settleLocked(l.now())
	l.state.Points += reward
	l.state.CompletedTasks[taskID] = true
	metrics.RecordCredit("task", reward)
	l.releaseLocked(true)
	return true
}

// UpgradeTier settles at the old rate, then sets the tier. The ledger does
// not require tiers to increase; it only rejects unknown tier levels.
func (l *Ledger) UpgradeTier(tier int) bool {
	if !ValidTier(tier) {
		l.logger.Warn("rejected unknown tier", zap.Int("tier", tier))
		return false
	}

	l.lock()
	_, settled := l.settleLocked(l.now())
	prev := l.state.Tier
	l.state.Tier = tier
	if prev != tier {
		l.logger.Info("tier changed", zap.Int("from", prev), zap.Int("to", tier))
	}
	l.releaseLocked(settled || prev != tier)
	return true
}

// DeductPoints settles, then removes amount from the balance. It reports
// false, changing nothing beyond the settlement, when the balance is
// insufficient or amount is invalid. This is the only gate for spending
// points.
func (l *Ledger) DeductPoints(amount float64) bool {
	if !validAmount(amount) {
		return false
	}

	l.lock()
	_, settled := l.settleLocked(l.now())
	if l.state.Points < amount {
		l.logger.Debug("deduct rejected: insufficient balance",
			zap.Float64("amount", amount),
			zap.Float64("points", l.state.Points),
		)
		l.releaseLocked(settled)
		return false
	}
	l.state.Points -= amount
	l.releaseLocked(true)
	return true
}

// Refund settles, then credits amount back. Callers use it to compensate a
// DeductPoints whose follow-up external action failed.
func (l *Ledger) Refund(amount float64) bool {
	if !validAmount(amount) || amount == 0 {
		return false
	}

	l.lock()
	l.settleLocked(l.now())
	l.state.Points += amount
	metrics.RecordCredit("refund", amount)
	l.releaseLocked(true)
	return true
}

// SetStake settles at the old multiplier, then records the stake. With
// staked false the stake is cleared and the multiplier returns to 1. It
// reports false, changing nothing, when staked terms are invalid.
func (l *Ledger) SetStake(staked bool, terms StakeTerms) bool {
	if staked && (!validMultiplier(terms.Multiplier) || !validAmount(terms.Amount)) {
		l.logger.Warn("rejected invalid stake terms",
			zap.Float64("amount", terms.Amount),
			zap.Float64("multiplier", terms.Multiplier),
		)
		return false
	}

	l.lock()
	l.settleLocked(l.now())
	if staked {
		l.state.IsStaked = true
		l.state.StakeAmount = terms.Amount
		l.state.StakeMultiplier = terms.Multiplier
		l.state.StakeUnlockTime = fromMillis(toMillis(terms.UnlockTime))
	} else {
		l.state.IsStaked = false
		l.state.StakeAmount = 0
		l.state.StakeMultiplier = 1
		l.state.StakeUnlockTime = time.Time{}
	}
	l.releaseLocked(true)
	return true
}

// lock begins a mutating critical section.
func (l *Ledger) lock() {
	l.notifyMu.Lock()
	l.mu.Lock()
}

// releaseLocked ends a critical section begun with lock. When the state
// changed it persists the snapshot and notifies subscribers after releasing
// l.mu; notifyMu is held until the broadcast is done.
func (l *Ledger) releaseLocked(changed bool) {
	defer l.notifyMu.Unlock()
	if !changed {
		l.mu.Unlock()
		return
	}

	l.persistLocked()
	snap := l.state.clone()
	l.mu.Unlock()
	l.subs.broadcast(snap)
}

// persistLocked writes the snapshot. Failures leave the in-memory state
// authoritative and are logged once until a write succeeds again.
func (l *Ledger) persistLocked() {
	data, err := EncodeState(l.state)
	if err != nil {
		l.logger.Error("encode ledger snapshot", zap.Error(err))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), l.persistTimeout)
	defer cancel()

	if err := l.store.Set(ctx, l.key, data); err != nil {
		metrics.RecordPersistFailure()
		if !l.degraded {
			l.logger.Error("persist ledger snapshot failed, continuing in memory",
				zap.String("key", l.key),
				zap.Error(err),
			)
		}
		l.degraded = true
		return
	}
	if l.degraded {
		l.logger.Info("ledger persistence recovered", zap.String("key", l.key))
		l.degraded = false
	}
}

// Subscribe registers fn to be called after every state change and returns
// a func that unregisters it.
func (l *Ledger) Subscribe(fn Listener) (unsubscribe func()) {
	return l.subs.subscribe(fn)
}

// State returns a copy of the current state. It does not settle.
func (l *Ledger) State() State {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state.clone()
}

// Points returns the current balance without settling.
func (l *Ledger) Points() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state.Points
}

// Tier returns the current tier level.
func (l *Ledger) Tier() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state.Tier
}

// MiningActive reports whether a session is open as of the last settlement.
func (l *Ledger) MiningActive() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state.MiningActive
}

// Degraded reports whether the most recent snapshot write failed.
func (l *Ledger) Degraded() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.degraded
}

// Now returns the ledger's current time.
func (l *Ledger) Now() time.Time {
	return l.now()
}

func validAmount(v float64) bool {
	return v >= 0 && !math.IsNaN(v) && !math.IsInf(v, 0)
}
