package treasury

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ErrInvalidAmount is returned for a non-positive transfer.
var ErrInvalidAmount = errors.New("transfer amount must be positive")

// NoopTreasury logs transfers to zap instead of submitting them.
// Use in development or when no wallet is configured.
type NoopTreasury struct {
	logger *zap.Logger
}

// NewNoopTreasury creates a NoopTreasury backed by the given logger.
func NewNoopTreasury(logger *zap.Logger) *NoopTreasury {
	return &NoopTreasury{logger: logger}
}

// Collect logs the transfer and returns a synthetic transaction hash.
func (n *NoopTreasury) Collect(_ context.Context, amount int64, memo string) (string, error) {
	return n.transfer("collect", amount, memo)
}

// Payout logs the transfer and returns a synthetic transaction hash.
func (n *NoopTreasury) Payout(_ context.Context, amount int64, memo string) (string, error) {
	return n.transfer("payout", amount, memo)
}

// Pay logs the boost payment and returns a synthetic transaction hash.
func (n *NoopTreasury) Pay(_ context.Context, token string, amount int64, memo string) (string, error) {
	return n.transfer("pay:"+token, amount, memo)
}

func (n *NoopTreasury) transfer(direction string, amount int64, memo string) (string, error) {
	if amount <= 0 {
		return "", ErrInvalidAmount
	}
	hash := syntheticHash()
	n.logger.Info("treasury transfer (noop, not submitted)",
		zap.String("direction", direction),
		zap.Int64("amount", amount),
		zap.String("memo", memo),
		zap.String("tx_hash", hash),
	)
	return hash, nil
}

// syntheticHash returns a 32-byte hex string shaped like an EVM tx hash.
func syntheticHash() string {
	a, b := uuid.New(), uuid.New()
	return "0x" + strings.ReplaceAll(a.String()+b.String(), "-", "")
}
