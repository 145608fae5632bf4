package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/Lab700xOrg/aisbom/diff"
	"github.com/Lab700xOrg/aisbom/store"
)

// Diff is the "diff" subcommand: it compares two CycloneDX-ish inventory
// documents and writes a diff result as JSON to stdout. Given a single
// path, it instead diffs that document against the most recently
// recorded scan of -root in -db.
func Diff(ctx context.Context, cfg *commonConfig, args []string) error {
	fs := flag.NewFlagSet("aisbomtool diff", flag.ExitOnError)
	db := fs.String("db", "", "scan-history database to resolve the old side from, when only one document is given")
	root := fs.String("root", "", "scan root whose last recorded run is the old side, when only one document is given")
	if err := fs.Parse(args); err != nil {
		return err
	}

	var oldDoc, newDoc diff.Document
	switch fs.NArg() {
	case 1:
		if *db == "" || *root == "" {
			fmt.Fprintln(os.Stderr, "aisbomtool diff: -db and -root are required when only one document is given")
			return &exitError{code: 99}
		}
		old, err := lastRecordedDocument(ctx, *db, *root)
		if err != nil {
			return fmt.Errorf("aisbomtool: resolving last run for %s: %w", *root, err)
		}
		oldDoc = old
		newDoc, err = readDocument(fs.Arg(0))
		if err != nil {
			return fmt.Errorf("aisbomtool: reading %s: %w", fs.Arg(0), err)
		}
	case 2:
		var err error
		oldDoc, err = readDocument(fs.Arg(0))
		if err != nil {
			return fmt.Errorf("aisbomtool: reading %s: %w", fs.Arg(0), err)
		}
		newDoc, err = readDocument(fs.Arg(1))
		if err != nil {
			return fmt.Errorf("aisbomtool: reading %s: %w", fs.Arg(1), err)
		}
	default:
		fs.Usage()
		return &exitError{code: 99}
	}

	result := diff.Compare(oldDoc, newDoc)

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(result); err != nil {
		return err
	}

	if cfg.FailOnRisk && result.RiskIncreased {
		return &exitError{code: 2}
	}
	return nil
}

func readDocument(path string) (diff.Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return diff.Document{}, err
	}
	return diff.ParseDocument(data)
}

// lastRecordedDocument resolves root's most recently recorded inventory
// in the database at dbPath into a diff Document, erroring if no run
// has ever been recorded for root.
func lastRecordedDocument(ctx context.Context, dbPath, root string) (diff.Document, error) {
	s, err := store.Open(ctx, dbPath)
	if err != nil {
		return diff.Document{}, err
	}
	defer s.Close()
	inv, err := s.Latest(ctx, root)
	if err != nil {
		return diff.Document{}, err
	}
	if inv == nil {
		return diff.Document{}, fmt.Errorf("no recorded run for %s in %s", root, dbPath)
	}
	return diff.FromInventory(inv), nil
}
