package catalog

import "strings"

// BoostPrice is the fixed price of one post boost, in the token's base units.
type BoostPrice struct {
	Token    string `json:"token"`
	Amount   int64  `json:"amount"`
	Decimals int    `json:"decimals"`
	Display  string `json:"display"`
}

var boostPrices = []BoostPrice{
	{Token: "eth", Amount: 600_000_000_000_000, Decimals: 18, Display: "0.0006 ETH"},
	{Token: "usdc", Amount: 2_000_000, Decimals: 6, Display: "2 USDC"},
}

// BoostPrices returns the accepted boost payments.
func BoostPrices() []BoostPrice {
	out := make([]BoostPrice, len(boostPrices))
	copy(out, boostPrices)
	return out
}

// LookupBoostPrice returns the price for token, matched case-insensitively.
// An empty token selects ETH.
func LookupBoostPrice(token string) (BoostPrice, bool) {
	token = strings.ToLower(strings.TrimSpace(token))
	if token == "" {
		token = "eth"
	}
	for _, p := range boostPrices {
		if p.Token == token {
			return p, true
		}
	}
	return BoostPrice{}, false
}
