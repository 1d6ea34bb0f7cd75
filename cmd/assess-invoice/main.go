// One-shot harness: assesses a single invoice document from the command
// line and prints the normalized result, without starting the server or
// touching any store. Useful for prompt and model tuning.
//
// Usage:
//
//	GEMINI_API_KEY=... go run ./cmd/assess-invoice path/to/invoice.pdf
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/shieldnetlabs/shieldnet_backend/analyzer"
	"github.com/shieldnetlabs/shieldnet_backend/config"
	"github.com/shieldnetlabs/shieldnet_backend/workflow"
)

func main() {
	if len(os.Args) != 2 {
		fmt.Fprintln(os.Stderr, "usage: assess-invoice <file>")
		os.Exit(2)
	}
	path := os.Args[1]

	data, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintln(os.Stderr, "assess-invoice:", err)
		os.Exit(1)
	}
	if err := workflow.ValidateUpload(path, int64(len(data))); err != nil {
		fmt.Fprintln(os.Stderr, "assess-invoice:", err)
		os.Exit(1)
	}

	ctx := context.Background()
	oracle, err := analyzer.NewGeminiOracle(ctx, config.OracleModel(), config.OracleTimeout())
	if err != nil {
		fmt.Fprintln(os.Stderr, "assess-invoice:", err)
		os.Exit(1)
	}

	raw, err := oracle.Assess(ctx, analyzer.Document{
		Data:      data,
		MediaType: analyzer.MediaTypeFor(path),
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, "assess-invoice:", err)
		os.Exit(1)
	}

	assessment, err := analyzer.Normalize(raw)
	if err != nil {
		fmt.Fprintln(os.Stderr, "assess-invoice: raw response follows")
		fmt.Fprintln(os.Stderr, raw)
		fmt.Fprintln(os.Stderr, "assess-invoice:", err)
		os.Exit(1)
	}

	out, err := json.MarshalIndent(assessment, "", "  ")
	if err != nil {
		fmt.Fprintln(os.Stderr, "assess-invoice:", err)
		os.Exit(1)
	}
	fmt.Println(string(out))
}
