// Command aisbomtool is the CLI front end for the engine: a "scan"
// subcommand that walks a root and emits an inventory, and a "diff"
// subcommand that reconciles two previously emitted inventories.
// Structured the way the teacher's cctool does subcommand dispatch
// (cmd/cctool/main.go): a shared flag set parsed up front, a subcommand
// switch, signal-driven cancellation, and an explicit exit code.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"
)

var cleanup sync.WaitGroup

type commonConfig struct {
	StrictSafety bool
	Lint         bool
	FailOnRisk   bool
}

type subcmd func(context.Context, *commonConfig, []string) error

func main() {
	var exit int
	defer func() {
		if exit != 0 {
			os.Exit(exit)
		}
	}()
	ctx, done := context.WithCancel(context.Background())
	go func() {
		ch := make(chan os.Signal, 1)
		signal.Notify(ch, syscall.SIGTERM, syscall.SIGINT)
		<-ch
		done()
	}()

	var cfg commonConfig
	fs := flag.NewFlagSet("aisbomtool", flag.ExitOnError)
	fs.Usage = func() {
		out := fs.Output()
		fmt.Fprintf(out, "Usage of %s:\n", os.Args[0])
		fs.PrintDefaults()
		fmt.Fprintf(out, "\nSubcommands\n\n")
		fmt.Fprintln(out, "scan <root>")
		fmt.Fprintln(out, "\tinspect a local path or http(s)/hf:// root and emit an inventory as JSON")
		fmt.Fprintln(out, "diff <old.json> <new.json>")
		fmt.Fprintln(out, "\tcompare two inventory documents and emit a diff result as JSON")
		fmt.Fprintln(out)
	}
	fs.BoolVar(&cfg.StrictSafety, "strict", false, "use strict allowlist-mode safety scanning instead of the blocklist")
	fs.BoolVar(&cfg.Lint, "lint", false, "attach migration-lint diagnostics to pickle-bearing artifacts")
	fs.BoolVar(&cfg.FailOnRisk, "fail-on-risk", false, "exit 2 when any artifact is CRITICAL risk")

	if err := fs.Parse(os.Args[1:]); err != nil {
		log.Fatal(err)
	}

	var cmd subcmd
	switch n := fs.Arg(0); n {
	case "scan":
		cmd = Scan
	case "diff":
		cmd = Diff
	case "":
		fs.Usage()
		os.Exit(99)
	default:
		fs.Usage()
		fmt.Fprintf(os.Stderr, "\nunknown subcommand %q\n", n)
		os.Exit(99)
	}

	var cmdErr error
	cmdctx, cmddone := context.WithCancel(ctx)
	go func() {
		defer cmddone()
		cmdErr = cmd(cmdctx, &cfg, fs.Args()[1:])
	}()

	select {
	case <-ctx.Done():
		log.Print(ctx.Err())
		exit = 1
	case <-cmdctx.Done():
		if cmdErr != nil {
			if ce, ok := cmdErr.(*exitError); ok {
				exit = ce.code
			} else {
				log.Print(cmdErr)
				exit = 1
			}
		}
	}
	cleanup.Wait()
}

// exitError carries an explicit exit code through the subcmd return
// path, for the scan subcommand's CRITICAL/error distinctions (spec.md
// §6's exit-code contract).
type exitError struct {
	code int
}

func (e *exitError) Error() string { return fmt.Sprintf("exit %d", e.code) }
