// Package service implements the miner's spend flows on top of the rewards
// ledger: claiming tasks, buying tiers, swapping points for SIGNAL, staking
// and paying for post boosts. It owns the ordering between ledger mutations and irreversible
// treasury transfers.
package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jmerrifield20/SignalMiner/internal/boost"
	"github.com/jmerrifield20/SignalMiner/internal/catalog"
	"github.com/jmerrifield20/SignalMiner/internal/kvstore"
	"github.com/jmerrifield20/SignalMiner/internal/metrics"
	"github.com/jmerrifield20/SignalMiner/internal/rewards"
	"github.com/jmerrifield20/SignalMiner/internal/treasury"
	"go.uber.org/zap"
)

var (
	ErrTaskUnknown         = errors.New("unknown task")
	ErrTaskAlreadyClaimed  = errors.New("task already claimed")
	ErrTierUnknown         = errors.New("unknown tier")
	ErrTierNotUpgrade      = errors.New("tier is not above the current tier")
	ErrInsufficientBalance = errors.New("insufficient points balance")
	ErrStakeOption         = errors.New("lock period must be 7, 14 or 21 days")
	ErrInvalidAmount       = errors.New("amount must be positive")
	ErrAlreadyStaked       = errors.New("a stake is already active")
	ErrNotStaked           = errors.New("no active stake")
	ErrStakeLocked         = errors.New("stake is still locked")
	ErrTreasury            = errors.New("treasury transfer failed")
	ErrBoostToken          = errors.New("boost token must be eth or usdc")

	// ErrBoostURL is returned for a post URL that cannot be boosted.
	ErrBoostURL = boost.ErrURL
)

// Receipt records a completed spend flow.
type Receipt struct {
	ID     uuid.UUID `json:"id"`
	Kind   string    `json:"kind"`
	TxHash string    `json:"tx_hash,omitempty"`
	Points float64   `json:"points,omitempty"`
	Signal int64     `json:"signal,omitempty"`
	Tier   int       `json:"tier,omitempty"`
	URL    string    `json:"url,omitempty"`
	Token  string    `json:"token,omitempty"`
	Amount int64     `json:"amount,omitempty"`
	At     time.Time `json:"at"`
}

// Service coordinates the ledger and the treasury.
type Service struct {
	ledger   *rewards.Ledger
	treasury treasury.Treasury
	boosts   *boost.History
	swapped  *swapTally
	logger   *zap.Logger

	// spendMu serialises flows that check ledger state, call the treasury
	// and then mutate the ledger.
	spendMu sync.Mutex
}

// New creates a Service. The boost history and the lifetime swap total are
// loaded from store.
func New(ctx context.Context, ledger *rewards.Ledger, tr treasury.Treasury, store kvstore.Store, logger *zap.Logger) *Service {
	return &Service{
		ledger:   ledger,
		treasury: tr,
		boosts:   boost.OpenHistory(ctx, store, boost.DefaultKey, logger),
		swapped:  loadSwapTally(ctx, store, logger),
		logger:   logger,
	}
}

// Ledger returns the underlying ledger.
func (s *Service) Ledger() *rewards.Ledger { return s.ledger }

// StartMining opens a new 24-hour session.
func (s *Service) StartMining() Overview {
	s.ledger.Start()
	return s.Overview()
}

// Settle credits accrued points and returns the amount credited.
func (s *Service) Settle() float64 {
	return s.ledger.Settle()
}

// ClaimTask credits the catalog reward for taskID.
func (s *Service) ClaimTask(taskID string) (catalog.Task, error) {
	task, ok := catalog.LookupTask(taskID)
	if !ok {
		return catalog.Task{}, ErrTaskUnknown
	}
	if !s.ledger.CompleteTask(task.ID, task.Reward) {
		return catalog.Task{}, ErrTaskAlreadyClaimed
	}
	s.logger.Info("task claimed", zap.String("task", task.ID), zap.Float64("reward", task.Reward))
	return task, nil
}

// PurchaseTier pays the tier price to the treasury, then raises the tier.
// Tiers only increase.
func (s *Service) PurchaseTier(ctx context.Context, id int) (r Receipt, err error) {
	defer func() { metrics.RecordSpend("tier", err == nil) }()

	tier, ok := catalog.LookupTier(id)
	if !ok {
		return Receipt{}, ErrTierUnknown
	}

	s.spendMu.Lock()
	defer s.spendMu.Unlock()

	if current := s.ledger.Tier(); tier.ID <= current {
		return Receipt{}, fmt.Errorf("%w: current tier %d", ErrTierNotUpgrade, current)
	}

	var hash string
	if tier.PriceSignal > 0 {
		hash, err = s.treasury.Collect(ctx, tier.PriceSignal, fmt.Sprintf("tier %d", tier.ID))
		if err != nil {
			return Receipt{}, fmt.Errorf("%w: collect tier price: %v", ErrTreasury, err)
		}
	}
	// The payment is final; the upgrade cannot fail for a catalog tier.
	s.ledger.UpgradeTier(tier.ID)

	s.logger.Info("tier purchased",
		zap.Int("tier", tier.ID),
		zap.Int64("price_signal", tier.PriceSignal),
		zap.String("tx_hash", hash),
	)
	return s.receipt("tier", func(r *Receipt) {
		r.TxHash = hash
		r.Signal = tier.PriceSignal
		r.Tier = tier.ID
	}), nil
}

// QuoteSwap prices a swap at the current stake multiplier.
func (s *Service) QuoteSwap(points int64) (catalog.SwapQuote, error) {
	return catalog.QuoteSwap(points, s.ledger.State().StakeMultiplier)
}

// Swap converts points to SIGNAL. The deduction is the authorisation gate;
// a failed payout re-credits the points. The quote and the deduction happen
// under spendMu so a concurrent stake change cannot alter the rate.
func (s *Service) Swap(ctx context.Context, points int64) (r Receipt, err error) {
	defer func() { metrics.RecordSpend("swap", err == nil) }()

	s.spendMu.Lock()
	defer s.spendMu.Unlock()

	quote, err := s.QuoteSwap(points)
	if err != nil {
		return Receipt{}, err
	}
	if !s.ledger.DeductPoints(float64(points)) {
		return Receipt{}, ErrInsufficientBalance
	}

	hash, err := s.treasury.Payout(ctx, quote.Signal, fmt.Sprintf("swap %d points", points))
	if err != nil {
		s.ledger.Refund(float64(points))
		s.logger.Warn("swap payout failed, points refunded",
			zap.Int64("points", points),
			zap.Error(err),
		)
		return Receipt{}, fmt.Errorf("%w: payout: %v", ErrTreasury, err)
	}
	if err := s.swapped.add(ctx, quote.Signal); err != nil {
		s.logger.Warn("swap total not persisted", zap.Error(err))
	}

	s.logger.Info("swap completed",
		zap.Int64("points", points),
		zap.Int64("signal", quote.Signal),
		zap.String("tx_hash", hash),
	)
	return s.receipt("swap", func(r *Receipt) {
		r.TxHash = hash
		r.Points = float64(points)
		r.Signal = quote.Signal
	}), nil
}

// Stake locks amount SIGNAL for lockDays and applies the option's multiplier.
func (s *Service) Stake(ctx context.Context, amount int64, lockDays int) (r Receipt, err error) {
	defer func() { metrics.RecordSpend("stake", err == nil) }()

	if amount <= 0 {
		return Receipt{}, ErrInvalidAmount
	}
	opt, ok := catalog.LookupStake(lockDays)
	if !ok {
		return Receipt{}, ErrStakeOption
	}

	s.spendMu.Lock()
	defer s.spendMu.Unlock()

	if s.ledger.State().IsStaked {
		return Receipt{}, ErrAlreadyStaked
	}

	hash, err := s.treasury.Collect(ctx, amount, fmt.Sprintf("stake %d days", lockDays))
	if err != nil {
		return Receipt{}, fmt.Errorf("%w: collect stake: %v", ErrTreasury, err)
	}
	unlock := s.ledger.Now().Add(opt.Lock())
	s.ledger.SetStake(true, rewards.StakeTerms{
		Amount:     float64(amount),
		Multiplier: opt.Multiplier,
		UnlockTime: unlock,
	})

	s.logger.Info("stake locked",
		zap.Int64("amount", amount),
		zap.Float64("multiplier", opt.Multiplier),
		zap.Time("unlock_time", unlock),
	)
	return s.receipt("stake", func(r *Receipt) {
		r.TxHash = hash
		r.Signal = amount
	}), nil
}

// Unstake returns the staked SIGNAL once the lock has expired.
func (s *Service) Unstake(ctx context.Context) (r Receipt, err error) {
	defer func() { metrics.RecordSpend("unstake", err == nil) }()

	s.spendMu.Lock()
	defer s.spendMu.Unlock()

	st := s.ledger.State()
	if !st.IsStaked {
		return Receipt{}, ErrNotStaked
	}
	if s.ledger.Now().Before(st.StakeUnlockTime) {
		return Receipt{}, fmt.Errorf("%w until %s", ErrStakeLocked, st.StakeUnlockTime.Format(time.RFC3339))
	}

	amount := int64(st.StakeAmount)
	var hash string
	if amount > 0 {
		hash, err = s.treasury.Payout(ctx, amount, "unstake")
		if err != nil {
			return Receipt{}, fmt.Errorf("%w: return stake: %v", ErrTreasury, err)
		}
	}
	s.ledger.SetStake(false, rewards.StakeTerms{})

	s.logger.Info("stake released", zap.Int64("amount", amount), zap.String("tx_hash", hash))
	return s.receipt("unstake", func(r *Receipt) {
		r.TxHash = hash
		r.Signal = amount
	}), nil
}

// TotalSwapped returns the lifetime SIGNAL received from swaps.
func (s *Service) TotalSwapped() int64 {
	return s.swapped.value()
}

// Boost pays the fixed boost price in token and records the post in the
// boost history.
func (s *Service) Boost(ctx context.Context, rawURL, token string) (r Receipt, err error) {
	defer func() { metrics.RecordSpend("boost", err == nil) }()

	post, err := boost.ParseURL(rawURL)
	if err != nil {
		return Receipt{}, err
	}
	price, ok := catalog.LookupBoostPrice(token)
	if !ok {
		return Receipt{}, fmt.Errorf("%w: %q", ErrBoostToken, token)
	}

	hash, err := s.treasury.Pay(ctx, price.Token, price.Amount, "boost "+post.URL)
	if err != nil {
		return Receipt{}, fmt.Errorf("%w: boost payment: %v", ErrTreasury, err)
	}

	post.Token = price.Token
	post.TxHash = hash
	post.At = s.ledger.Now()
	if err := s.boosts.Add(ctx, post); err != nil {
		s.logger.Warn("boost history not persisted", zap.Error(err))
	}

	s.logger.Info("post boosted",
		zap.String("url", post.URL),
		zap.String("platform", post.Platform),
		zap.String("token", price.Token),
		zap.String("tx_hash", hash),
	)
	return s.receipt("boost", func(r *Receipt) {
		r.TxHash = hash
		r.URL = post.URL
		r.Token = price.Token
		r.Amount = price.Amount
	}), nil
}

// Boosts returns the recent boosts, newest first.
func (s *Service) Boosts() []boost.Post {
	return s.boosts.List()
}

func (s *Service) receipt(kind string, fill func(*Receipt)) Receipt {
	r := Receipt{ID: uuid.New(), Kind: kind, At: s.ledger.Now()}
	fill(&r)
	return r
}
