package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	flag "github.com/spf13/pflag"

	"github.com/matiasleandrokruk/genhub/internal/infra/config"
	"github.com/matiasleandrokruk/genhub/internal/server"
)

const shutdownGrace = 10 * time.Second

func runServe(args []string, cfg config.Config, logger *slog.Logger, out, errOut io.Writer) int {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	fs.SetOutput(errOut)
	addr := fs.String("addr", cfg.Addr, "Listen address")
	printToken := fs.Bool("print-token", false, "Print a session token before serving")
	fs.Usage = func() {
		fmt.Fprintf(errOut, "Usage: genhub serve [options]\n\nOptions:\n%s", fs.FlagUsages()) //nolint:errcheck
	}
	if err := fs.Parse(args); err != nil {
		return ExitUsage
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := buildApp(ctx, cfg, logger)
	if err != nil {
		logger.Error("startup failed", "error", err)
		return ExitStorage
	}

	if *printToken {
		token, err := a.issuer.GenerateToken("cli")
		if err != nil {
			logger.Error("mint token", "error", err)
			a.db.Close()
			return ExitError
		}
		fmt.Fprintln(out, token) //nolint:errcheck
	}

	srvCfg := server.DefaultConfig()
	srvCfg.Addr = *addr
	srvCfg.WriteTimeout = server.WriteTimeoutFor(cfg.DispatchTimeout)
	srv := server.NewServer(a.handler, a.db, srvCfg, logger)

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start(ctx) }()

	select {
	case err := <-errCh:
		if err != nil {
			logger.Error("http server stopped", "error", err)
			a.db.Close()
			return ExitError
		}
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown", "error", err)
		return ExitError
	}
	return ExitOK
}
