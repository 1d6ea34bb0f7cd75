// Seeds a running backend with a handful of known-fraudulent vendors via the
// threat-report endpoint. Dev convenience only; the registry is in-memory, so
// re-run after every restart.
//
// Usage:
//
//	go run ./cmd/seed-threats [-base http://localhost:8080]
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"time"
)

type seedReport struct {
	InvoiceId  string  `json:"invoiceId"`
	Vendor     string  `json:"vendor"`
	FraudScore int     `json:"fraudScore"`
	Reason     string  `json:"reason"`
	Amount     float64 `json:"amount"`
}

var seeds = []seedReport{
	{
		InvoiceId:  "INV-SEED-001",
		Vendor:     "Quantum Consulting Group",
		FraudScore: 95,
		Reason:     "Invoice mill; no verifiable business address",
		Amount:     12000,
	},
	{
		InvoiceId:  "INV-SEED-002",
		Vendor:     "Apex Digital Services LLC",
		FraudScore: 88,
		Reason:     "Duplicate billing across member companies",
		Amount:     7500,
	},
	{
		InvoiceId:  "INV-SEED-003",
		Vendor:     "Global Tech Solutions Inc",
		FraudScore: 91,
		Reason:     "Impersonates a legitimate vendor's letterhead",
		Amount:     23400,
	},
}

func main() {
	base := flag.String("base", envOr("API_BASE_URL", "http://localhost:8080"), "backend base URL")
	flag.Parse()

	client := &http.Client{Timeout: 10 * time.Second}
	for _, seed := range seeds {
		body, err := json.Marshal(seed)
		if err != nil {
			fmt.Fprintln(os.Stderr, "seed-threats:", err)
			os.Exit(1)
		}
		resp, err := client.Post(*base+"/api/threats/report", "application/json", bytes.NewReader(body))
		if err != nil {
			fmt.Fprintln(os.Stderr, "seed-threats:", err)
			os.Exit(1)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			fmt.Fprintf(os.Stderr, "seed-threats: %s: unexpected status %d\n", seed.Vendor, resp.StatusCode)
			os.Exit(1)
		}
		fmt.Printf("seeded %s\n", seed.Vendor)
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
