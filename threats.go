package main

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shieldnetlabs/shieldnet_backend/config"
	"github.com/shieldnetlabs/shieldnet_backend/models"
	"github.com/shopspring/decimal"
)

// rewardPerThreat is the flat network reward credited per registry record.
var rewardPerThreat = decimal.NewFromInt(25)

// threatAnalyticsHandler aggregates the registry plus this node's blocked
// transactions for the dashboard.
func threatAnalyticsHandler(a *app) gin.HandlerFunc {
	return func(c *gin.Context) {
		blocked := a.store.Transactions(models.TransactionFilter{Status: models.TransactionStatusBlocked})

		totalBlocked := decimal.Zero
		for _, t := range blocked {
			totalBlocked = totalBlocked.Add(t.Amount)
		}

		threats := a.registry.All()
		analytics := models.ThreatAnalytics{
			TotalBlockedAmount:   totalBlocked,
			TotalBlockedInvoices: len(blocked),
			TotalThreatsDetected: len(threats),
			RewardsEarned:        rewardPerThreat.Mul(decimal.NewFromInt(int64(len(threats)))),
			Threats:              threats,
		}
		c.JSON(http.StatusOK, analytics)
	}
}

func reportThreatHandler(a *app) gin.HandlerFunc {
	return func(c *gin.Context) {
		var input models.NewThreatReport
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		record, err := a.pipeline.ReportThreat(c.Request.Context(), &input)
		if err != nil {
			config.LogError(a.logger, "server", "reportThreatHandler", "pipeline.ReportThreat", input.Vendor, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

		c.JSON(http.StatusOK, models.ThreatReportResponse{
			Success:  true,
			ThreatId: record.Id,
		})
	}
}
