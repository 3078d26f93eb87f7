// Package cmd implements the tl command line application.
package cmd

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/charmbracelet/glamour"
	"github.com/etnz/tradeledger"
	"github.com/etnz/tradeledger/config"
	"github.com/etnz/tradeledger/logger"
	"github.com/etnz/tradeledger/store"
	"github.com/google/subcommands"
	"go.uber.org/zap"
)

// as a CLI application, it has a very short lived lifecycle, so it is ok to use global variables.

var configPath = flag.String("config", "", "Path to the YAML configuration file. Defaults to $"+config.EnvPath)
var rawMarkdown = flag.Bool("raw", false, "Print markdown as is, without terminal rendering")

// Verbose turns on debug logging.
var Verbose = flag.Bool("v", false, "Verbose logging")

// stdout is where commands print their result.
var stdout io.Writer = os.Stdout

// groups lists the subcommands by group, in display order.
func groups() []struct {
	name     string
	commands []subcommands.Command
} {
	return []struct {
		name     string
		commands []subcommands.Command
	}{
		{"trades", []subcommands.Command{
			&tradeCmd{side: tradeledger.Buy},
			&tradeCmd{side: tradeledger.Sell},
			&editCmd{},
			&rmCmd{},
			&importCmd{},
		}},
		{"reports", []subcommands.Command{
			&holdingsCmd{},
			&timelineCmd{},
			&logCmd{},
			&queryCmd{},
		}},
		{"ledger", []subcommands.Command{
			&exportCmd{},
			&restoreCmd{},
			&serveCmd{},
		}},
		{"help", []subcommands.Command{
			&topicCmd{},
		}},
	}
}

// Register the subcommands.
// A main package will call Register() to allow subcommands, and Execute() on the user-selected one.
func Register(c *subcommands.Commander) {
	c.Register(c.HelpCommand(), "help")
	c.Register(c.FlagsCommand(), "help")
	c.Register(c.CommandsCommand(), "help")
	for _, g := range groups() {
		for _, cmd := range g.commands {
			c.Register(cmd, g.name)
		}
	}
}

// session holds what a command needs to work on the ledger.
type session struct {
	cfg     *config.Config
	log     *zap.Logger
	book    *store.Book
	closers []func() error
}

// openSession reads the configuration and opens the ledger storage.
func openSession(ctx context.Context) (*session, error) {
	cfg, err := config.Load(*configPath)
	if err != nil {
		return nil, err
	}
	level := cfg.Log.Level
	if *Verbose {
		level = "debug"
	}
	log, err := logger.NewConsole(level)
	if err != nil {
		return nil, fmt.Errorf("cannot create logger: %w", err)
	}
	markets, err := cfg.MarketRegistry()
	if err != nil {
		return nil, err
	}

	s := &session{cfg: cfg, log: log}
	if err := os.MkdirAll(filepath.Dir(cfg.Storage.Path), 0o755); err != nil {
		return nil, fmt.Errorf("cannot create ledger directory: %w", err)
	}
	db, err := store.NewSQLite(cfg.Storage.Path)
	if err != nil {
		return nil, err
	}
	s.closers = append(s.closers, db.Close)

	opts := []store.Option{
		store.WithLogger(log),
		store.WithMarkets(markets),
		store.WithDefaultImportTime(cfg.Import.DefaultTime),
	}
	switch {
	case cfg.Storage.BackupURL != "":
		pg, err := store.NewPostgres(ctx, cfg.Storage.BackupURL)
		if err != nil {
			s.Close()
			return nil, err
		}
		s.closers = append(s.closers, pg.Close)
		opts = append(opts, store.WithBackup(pg))
	case cfg.Storage.BackupDir != "":
		fb, err := store.NewFileBackup(cfg.Storage.BackupDir)
		if err != nil {
			s.Close()
			return nil, err
		}
		opts = append(opts, store.WithBackup(fb))
	}

	s.book = store.NewBook(db, cfg.Storage.Key, opts...)
	// the book waits for its backups before the stores are closed
	s.closers = append(s.closers, s.book.Close)
	return s, nil
}

// Close releases the storage in reverse opening order.
func (s *session) Close() error {
	var first error
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil && first == nil {
			first = err
		}
	}
	_ = s.log.Sync()
	return first
}

// load reads the ledger, warning about unusual load outcomes.
func (s *session) load(ctx context.Context) (tradeledger.Ledger, error) {
	l, status, err := s.book.Load(ctx)
	if err != nil {
		return l, err
	}
	switch status {
	case store.Malformed:
		fmt.Fprintln(os.Stderr, "Warning: the stored ledger is malformed and was set aside. Changes are refused until 'tl restore -backup' or 'tl restore <file>'.")
	case store.Restored:
		fmt.Fprintln(os.Stderr, "Warning: the ledger was missing and has been restored from the backup.")
	}
	return l, nil
}

// withSession opens a session, runs f and closes the session.
func withSession(ctx context.Context, f func(*session) subcommands.ExitStatus) subcommands.ExitStatus {
	s, err := openSession(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	status := f(s)
	if err := s.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "Error closing the ledger: %v\n", err)
		return subcommands.ExitFailure
	}
	return status
}

// printMarkdown renders md for the terminal.
func printMarkdown(md string) {
	if *rawMarkdown {
		fmt.Fprint(stdout, md)
		return
	}
	r, err := glamour.NewTermRenderer(glamour.WithAutoStyle(), glamour.WithWordWrap(120))
	if err != nil {
		fmt.Fprint(stdout, md)
		return
	}
	out, err := r.Render(md)
	if err != nil {
		fmt.Fprint(stdout, md)
		return
	}
	fmt.Fprint(stdout, out)
}
