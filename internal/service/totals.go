package service

import (
	"context"
	"errors"
	"math"
	"strconv"
	"strings"
	"sync/atomic"

	"github.com/jmerrifield20/SignalMiner/internal/kvstore"
	"go.uber.org/zap"
)

// totalSwappedKey stores the lifetime SIGNAL received from swaps as a decimal
// string.
const totalSwappedKey = "totalSwapped"

// swapTally is the lifetime SIGNAL paid out by swaps.
type swapTally struct {
	store kvstore.Store
	total atomic.Int64
}

func loadSwapTally(ctx context.Context, store kvstore.Store, logger *zap.Logger) *swapTally {
	t := &swapTally{store: store}
	data, err := store.Get(ctx, totalSwappedKey)
	if err != nil {
		if !errors.Is(err, kvstore.ErrNotFound) {
			logger.Warn("swap total unreadable, starting at zero", zap.Error(err))
		}
		return t
	}
	// Older values may carry a fractional part.
	v, err := strconv.ParseFloat(strings.TrimSpace(string(data)), 64)
	if err != nil || v < 0 || math.IsInf(v, 0) || math.IsNaN(v) {
		logger.Warn("swap total corrupt, starting at zero", zap.String("value", string(data)))
		return t
	}
	t.total.Store(int64(v))
	return t
}

// add records a completed swap and persists the new total.
func (t *swapTally) add(ctx context.Context, signal int64) error {
	total := t.total.Add(signal)
	return t.store.Set(ctx, totalSwappedKey, []byte(strconv.FormatInt(total, 10)))
}

func (t *swapTally) value() int64 {
	return t.total.Load()
}
