package cmd

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/etnz/tradeledger/logger"
	"github.com/etnz/tradeledger/server"
	"github.com/google/subcommands"
	"go.uber.org/zap"
)

// serveCmd runs the HTTP API.
type serveCmd struct {
	addr string
}

func (*serveCmd) Name() string     { return "serve" }
func (*serveCmd) Synopsis() string { return "serve the ledger over HTTP" }
func (*serveCmd) Usage() string {
	return `tl serve [-addr <host:port>]

  Serves the ledger JSON API until interrupted. See 'tl topic server'.

`
}

func (c *serveCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.addr, "addr", "", "Listen address. Defaults to server.addr of the configuration.")
}

func (c *serveCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	return withSession(ctx, func(s *session) subcommands.ExitStatus {
		addr := c.addr
		if addr == "" {
			addr = s.cfg.Server.Addr
		}
		// a server logs JSON lines
		log, err := logger.New(s.cfg.Log.Level)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return subcommands.ExitFailure
		}
		defer log.Sync()

		srv := &http.Server{
			Addr:              addr,
			Handler:           server.NewRouter(s.book, log),
			ReadHeaderTimeout: 10 * time.Second,
		}
		errc := make(chan error, 1)
		go func() { errc <- srv.ListenAndServe() }()
		log.Info("listening", zap.String("addr", addr))

		select {
		case err := <-errc:
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return subcommands.ExitFailure
		case <-ctx.Done():
		}

		shutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdown); err != nil && !errors.Is(err, http.ErrServerClosed) {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return subcommands.ExitFailure
		}
		log.Info("stopped")
		return subcommands.ExitSuccess
	})
}
