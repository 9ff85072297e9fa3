package main

import (
	"fmt"
	"io"
	"log/slog"

	flag "github.com/spf13/pflag"

	"github.com/matiasleandrokruk/genhub/internal/infra/config"
)

func runToken(args []string, cfg config.Config, logger *slog.Logger, out, errOut io.Writer) int {
	fs := flag.NewFlagSet("token", flag.ContinueOnError)
	fs.SetOutput(errOut)
	client := fs.String("client", "desktop", "Client label written into the token")
	if err := fs.Parse(args); err != nil {
		return ExitUsage
	}

	issuer, err := newIssuer(cfg)
	if err != nil {
		logger.Error("token issuer", "error", err)
		return ExitConfig
	}
	token, err := issuer.GenerateToken(*client)
	if err != nil {
		logger.Error("mint token", "error", err)
		return ExitError
	}
	fmt.Fprintln(out, token) //nolint:errcheck
	return ExitOK
}
