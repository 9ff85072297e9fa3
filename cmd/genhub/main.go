// GenHub - local multi-provider chat core
//
// Usage:
//
//	genhub serve      start the HTTP command surface
//	genhub migrate    apply database migrations and exit
//	genhub token      print a session token for the UI shell
//	genhub version    print version information
package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	flag "github.com/spf13/pflag"

	"github.com/matiasleandrokruk/genhub/internal/infra/config"
	"github.com/matiasleandrokruk/genhub/internal/version"
)

// Exit codes.
const (
	ExitOK      = 0
	ExitError   = 1
	ExitUsage   = 2
	ExitConfig  = 3
	ExitStorage = 4
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, out, errOut io.Writer) int {
	fs := flag.NewFlagSet("genhub", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.SetInterspersed(false)

	showVersion := fs.Bool("version", false, "Show version information")
	showHelp := fs.BoolP("help", "h", false, "Show help")

	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(errOut, "Error: %v\n\n", err) //nolint:errcheck
		printHelp(errOut)
		return ExitUsage
	}

	if *showVersion {
		fmt.Fprintln(out, version.String()) //nolint:errcheck
		return ExitOK
	}
	if *showHelp {
		printHelp(out)
		return ExitOK
	}

	rest := fs.Args()
	if len(rest) == 0 {
		printHelp(out)
		return ExitOK
	}

	cmd, cmdArgs := rest[0], rest[1:]
	switch cmd {
	case "version":
		fmt.Fprintln(out, version.String()) //nolint:errcheck
		return ExitOK
	case "help":
		printHelp(out)
		return ExitOK
	case "serve", "migrate", "token":
	default:
		fmt.Fprintf(errOut, "Error: unknown command %q\n\n", cmd) //nolint:errcheck
		printHelp(errOut)
		return ExitUsage
	}

	cfg, cfgErr := config.Load()
	logger := newLogger(errOut, cfg.LogLevel)
	if cfgErr != nil {
		// cfg still holds defaults for the bad keys
		logger.Warn("configuration problems, using defaults", "error", cfgErr)
	}

	switch cmd {
	case "serve":
		return runServe(cmdArgs, cfg, logger, out, errOut)
	case "migrate":
		return runMigrate(cmdArgs, cfg, logger, out, errOut)
	default:
		return runToken(cmdArgs, cfg, logger, out, errOut)
	}
}

func newLogger(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

func printHelp(out io.Writer) {
	helpText := `GenHub - local multi-provider chat core

Usage:
  genhub [options] <command> [command options]

Options:
  --version    Show version information
  -h, --help   Show this help message

Commands:
  serve        Start the HTTP command surface
  migrate      Apply database migrations and exit
  token        Print a session token for the UI shell
  version      Show version information

Environment:
  GENHUB_DATA_DIR, GENHUB_ADDR, GENHUB_API_SECRET, GENHUB_TOKEN_TTL,
  GENHUB_DISPATCH_TIMEOUT, GENHUB_LOG_LEVEL, OLLAMA_BASE_URL, DEVELOPMENT

Examples:
  genhub serve --addr 127.0.0.1:7450
  genhub migrate --status
  genhub token --client desktop`
	fmt.Fprintln(out, helpText) //nolint:errcheck
}
