// Command submit-plan sends a flight plan file to a running relay using the
// same JSON-then-form strategy as the planning page.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"github.com/okian/flightrelay/internal/planclient"
	"github.com/okian/flightrelay/pkg/logger"
)

const (
	defaultURL     = "http://localhost:8080"
	defaultTimeout = 30 * time.Second
)

// Exit codes.
const (
	exitOK       = 0
	exitRejected = 1
	exitUsage    = 2
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	flags := pflag.NewFlagSet("submit-plan", pflag.ContinueOnError)
	flags.SetOutput(stderr)
	var (
		url     = flags.StringP("url", "u", defaultURL, "relay URL")
		timeout = flags.DurationP("timeout", "t", defaultTimeout, "timeout per attempt")
		verbose = flags.BoolP("verbose", "v", false, "log each attempt")
		help    = flags.BoolP("help", "h", false, "show help")
	)
	flags.Usage = func() { showHelp(stderr, flags) }

	if err := flags.Parse(args); err != nil {
		return exitUsage
	}
	if *help {
		showHelp(stdout, flags)
		return exitOK
	}
	if flags.NArg() != 1 {
		showHelp(stderr, flags)
		return exitUsage
	}

	if err := logger.Init(logger.WithWriter(stderr)); err != nil {
		fmt.Fprintf(stderr, "failed to initialize logger: %v\n", err)
		return exitUsage
	}
	defer func() { _ = logger.Sync() }()
	level := "warn"
	if *verbose {
		level = "debug"
	}
	_ = logger.SetLevelString(level)

	plan, err := planclient.LoadPlan(flags.Arg(0))
	if err != nil {
		fmt.Fprintf(stderr, "%v\n", err)
		return exitUsage
	}

	client := planclient.New(*url,
		planclient.WithTimeout(*timeout),
		planclient.WithLogger(logger.Named("submit-plan")),
	)
	res, err := client.Submit(ctx, plan)
	if res.StatusCode != 0 {
		fmt.Fprintf(stdout, "%s %d\n%s\n", res.Strategy, res.StatusCode, res.Body)
	}
	if err != nil {
		fmt.Fprintf(stderr, "%v\n", err)
		return exitRejected
	}
	return exitOK
}

func showHelp(w io.Writer, flags *pflag.FlagSet) {
	fmt.Fprintf(w, `Flight Plan Submitter
=====================

Sends a plan to the relay as JSON, falling back once to a multipart form.

Usage:
  submit-plan [options] <plan.json|plan.jsonc|plan.yaml|plan.gpx>

Options:
%s
Examples:
  submit-plan --url http://localhost:8080 plan.json
  submit-plan -v route.gpx
`, flags.FlagUsages())
}
