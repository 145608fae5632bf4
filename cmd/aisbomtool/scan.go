package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/Lab700xOrg/aisbom"
	"github.com/Lab700xOrg/aisbom/metrics"
	"github.com/Lab700xOrg/aisbom/store"
	"github.com/Lab700xOrg/aisbom/walker"
)

// Scan is the "scan" subcommand: it walks a root and writes the
// resulting inventory as JSON to stdout, then sets the process exit
// code per spec.md §6's contract.
func Scan(ctx context.Context, cfg *commonConfig, args []string) error {
	fs := flag.NewFlagSet("aisbomtool scan", flag.ExitOnError)
	out := fs.String("o", "", "write the inventory to this file instead of stdout")
	db := fs.String("db", "", "record this run in the named scan-history database (skipped if empty)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		fs.Usage()
		return &exitError{code: 99}
	}
	root := fs.Arg(0)

	m := metrics.New(prometheus.DefaultRegisterer)

	w := walker.New(walker.Options{
		StrictSafety: cfg.StrictSafety,
		Lint:         cfg.Lint,
	})
	start := time.Now()
	inv, err := w.Scan(ctx, root)
	elapsed := time.Since(start)
	if err != nil {
		return fmt.Errorf("aisbomtool: scan %s: %w", root, err)
	}
	observe(m, inv, elapsed)

	if *db != "" {
		if err := recordHistory(ctx, *db, root, inv); err != nil {
			inv.Errors = append(inv.Errors, aisbom.ScanError{File: *db, Error: err.Error()})
		}
	}

	dst := os.Stdout
	if *out != "" {
		f, err := os.Create(*out)
		if err != nil {
			return err
		}
		defer f.Close()
		dst = f
	}
	enc := json.NewEncoder(dst)
	enc.SetIndent("", "  ")
	if err := enc.Encode(inv); err != nil {
		return err
	}

	switch {
	case cfg.FailOnRisk && inv.HasCritical():
		return &exitError{code: 2}
	case len(inv.Errors) > 0:
		return &exitError{code: 1}
	default:
		return nil
	}
}

// observe feeds a completed scan's results into m: one ObserveArtifact
// per artifact (duration approximated as the scan's total elapsed time
// divided evenly across artifacts, since Scan doesn't expose per-file
// timing at this boundary), one ObserveThreat per threat recorded in an
// artifact's Details (see format/pytorch's renderThreats), and one
// ObserveScanError per peripheral failure.
func observe(m *metrics.Metrics, inv *aisbom.Inventory, elapsed time.Duration) {
	if len(inv.Artifacts) == 0 {
		return
	}
	perArtifact := elapsed / time.Duration(len(inv.Artifacts))
	for _, a := range inv.Artifacts {
		m.ObserveArtifact(string(a.Framework), a.Risk().String(), perArtifact)
		threats, _ := a.Details["threats"].([]string)
		for _, t := range threats {
			if strings.HasPrefix(t, "UNSAFE_IMPORT:") {
				m.ObserveThreat(string(aisbom.ThreatUnsafeImport))
			} else {
				m.ObserveThreat(string(aisbom.ThreatDangerousSymbol))
			}
		}
	}
	for range inv.Errors {
		m.ObserveScanError()
	}
}

// recordHistory opens (or creates) the scan-history database at dbPath
// and records inv against root, stamped at the current time. A failure
// here is folded into the inventory's Errors rather than aborting the
// scan — a history write is a peripheral concern, not part of the scan
// contract itself.
func recordHistory(ctx context.Context, dbPath, root string, inv *aisbom.Inventory) error {
	s, err := store.Open(ctx, dbPath)
	if err != nil {
		return err
	}
	defer s.Close()
	_, err = s.Record(ctx, root, time.Now().Unix(), inv)
	return err
}
