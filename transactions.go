package main

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/shieldnetlabs/shieldnet_backend/models"
	"github.com/xuri/excelize/v2"
)

// parseTransactionFilter reads status/limit/offset query params. An invalid
// status yields an error; malformed numbers fall back to no constraint.
func parseTransactionFilter(c *gin.Context) (models.TransactionFilter, error) {
	var filter models.TransactionFilter

	if raw := strings.TrimSpace(c.Query("status")); raw != "" {
		status := models.TransactionStatus(raw)
		if !status.Valid() {
			return filter, fmt.Errorf("invalid status %q; expected paid, held or blocked", raw)
		}
		filter.Status = status
	}
	if raw := strings.TrimSpace(c.Query("limit")); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			filter.Limit = n
		}
	}
	if raw := strings.TrimSpace(c.Query("offset")); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			filter.Offset = n
		}
	}
	return filter, nil
}

func listTransactionsHandler(a *app) gin.HandlerFunc {
	return func(c *gin.Context) {
		filter, err := parseTransactionFilter(c)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		txns := a.store.Transactions(filter)
		if txns == nil {
			txns = []*models.Transaction{}
		}
		c.JSON(http.StatusOK, gin.H{"transactions": txns})
	}
}

// exportTransactionsHandler downloads the filtered transaction list as an
// xlsx workbook.
func exportTransactionsHandler(a *app) gin.HandlerFunc {
	return func(c *gin.Context) {
		filter, err := parseTransactionFilter(c)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		txns := a.store.Transactions(filter)

		f := excelize.NewFile()
		sheet := "Sheet1"

		// Add headers
		f.SetCellValue(sheet, "A1", "Id")
		f.SetCellValue(sheet, "B1", "Status")
		f.SetCellValue(sheet, "C1", "Vendor")
		f.SetCellValue(sheet, "D1", "Amount")
		f.SetCellValue(sheet, "E1", "Currency")
		f.SetCellValue(sheet, "F1", "Date")
		f.SetCellValue(sheet, "G1", "Reason")
		f.SetCellValue(sheet, "H1", "InvoiceId")

		// Add data
		for i, t := range txns {
			row := fmt.Sprint(i + 2)
			f.SetCellValue(sheet, "A"+row, t.Id)
			f.SetCellValue(sheet, "B"+row, string(t.Status))
			f.SetCellValue(sheet, "C"+row, t.Vendor)
			f.SetCellValue(sheet, "D"+row, t.Amount.InexactFloat64())
			f.SetCellValue(sheet, "E"+row, t.Currency)
			f.SetCellValue(sheet, "F"+row, t.Date)
			f.SetCellValue(sheet, "G"+row, t.Reason)
			f.SetCellValue(sheet, "H"+row, t.InvoiceId)
		}

		c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		c.Header("Content-Disposition", "attachment; filename=transactions.xlsx")
		if err := f.Write(c.Writer); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to write file"})
		}
	}
}
