// Package treasury is the boundary to the on-chain token contracts. Transfers
// are irreversible, so callers perform them before or after a ledger
// mutation according to which side can be compensated.
package treasury

import "context"

// Treasury moves SIGNAL between the user's wallet and the project treasury.
type Treasury interface {
	// Collect transfers amount from the user to the treasury.
	Collect(ctx context.Context, amount int64, memo string) (txHash string, err error)
	// Payout transfers amount from the treasury to the user.
	Payout(ctx context.Context, amount int64, memo string) (txHash string, err error)
	// Pay transfers amount base units of token ("eth", "usdc") from the user
	// to the boost receiver.
	Pay(ctx context.Context, token string, amount int64, memo string) (txHash string, err error)
}
