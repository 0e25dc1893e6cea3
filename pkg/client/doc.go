// Package client is the Go SDK for the miner daemon.
//
// Reads are public; mutating calls need a device token when the daemon has
// auth enabled:
//
//	c, err := client.New("http://localhost:8080",
//	    client.WithBearerToken(os.Getenv("MINER_TOKEN")),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	ledger, err := c.StartSession(ctx)
//	fmt.Println(ledger.SessionRemaining) // 24:00:00
//
// Spend failures come back as *APIError; use IsStatus to branch on them:
//
//	if _, err := c.Swap(ctx, 1000); client.IsStatus(err, http.StatusUnprocessableEntity) {
//	    fmt.Println("not enough points")
//	}
//
// Boosts are paid in ETH or USDC and kept in a short history:
//
//	res, err := c.Boost(ctx, "https://warpcast.com/alice/0x1", "usdc")
//	fmt.Println(res.Receipt.TxHash, len(res.Boosts))
package client
