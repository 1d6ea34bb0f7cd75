// Prints the treasury wallet's on-chain USDC balance.
//
// Usage:
//
//	TREASURY_WALLET_ADDRESS=0x... ETHERSCAN_API_KEY=... go run ./cmd/wallet-balance
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/shieldnetlabs/shieldnet_backend/locus"
)

func main() {
	client, err := locus.NewWalletClient()
	if err != nil {
		fmt.Fprintln(os.Stderr, "wallet-balance:", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	result := client.QueryBalance(ctx)
	if !result.Success {
		fmt.Fprintln(os.Stderr, "wallet-balance:", result.Message)
		os.Exit(1)
	}
	fmt.Printf("%s %s\n", result.Balance.StringFixed(2), result.Currency)
}
