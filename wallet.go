package main

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// walletBalanceHandler combines the ledger's monthly accumulators with the
// live on-chain balance. When the chain query is unavailable or fails, the
// ledger's own running balance answers instead, marked accordingly.
func walletBalanceHandler(a *app) gin.HandlerFunc {
	return func(c *gin.Context) {
		snapshot := a.ledger.Snapshot()

		balance := snapshot.Balance
		success := false
		message := "On-chain balance unavailable; showing ledger balance"
		if a.wallet != nil {
			result := a.wallet.QueryBalance(c.Request.Context())
			if result.Success {
				balance = result.Balance
			}
			success = result.Success
			message = result.Message
		}

		c.JSON(http.StatusOK, gin.H{
			"balance":           balance,
			"currency":          snapshot.Currency,
			"autoPaidThisMonth": snapshot.AutoPaidThisMonth,
			"blockedThisMonth":  snapshot.BlockedThisMonth,
			"success":           success,
			"message":           message,
		})
	}
}
