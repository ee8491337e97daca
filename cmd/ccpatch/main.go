// Command ccpatch drives the scenario-script translation-patching pipeline:
// decompress, compress, extract, inject, import-to-image, and the composite
// all. All the actual work lives in internal/patch; this file only parses
// flags, builds an App, runs it, and reports the outcome.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/aikika/ccpatch/internal/patch/app"
	"github.com/aikika/ccpatch/internal/patch/config"
)

func main() {
	cfg := config.ParseFlags()
	if cfg.HandleVersion() {
		return
	}

	if cfg.Operation == "" {
		fmt.Fprintln(os.Stderr, "ccpatch: missing operation")
		fmt.Fprintln(os.Stderr, "usage: ccpatch [flags] decompress|compress|extract|inject|import-to-image|archive-texts|restore-texts|all")
		os.Exit(1)
	}

	summary, err := app.New(cfg).Run(context.Background())
	for _, r := range summary.Reports {
		switch {
		case r.Kind != "" && r.Partial:
			fmt.Printf("PARTIAL %s: %s (skipped=%d overflow=%d)\n", r.File, r.Kind, r.SkippedRecords, r.OverflowBytes)
		case r.Kind != "":
			fmt.Printf("FAILED  %s: %s\n", r.File, r.Kind)
		case r.Partial:
			fmt.Printf("PARTIAL %s (skipped=%d overflow=%d)\n", r.File, r.SkippedRecords, r.OverflowBytes)
		default:
			fmt.Printf("OK      %s\n", r.File)
		}
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "ccpatch: %v\n", err)
		os.Exit(1)
	}
	if summary.Failed() {
		os.Exit(1)
	}
}
