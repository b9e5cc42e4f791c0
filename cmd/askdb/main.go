// askdb loads a tabular dataset and answers questions about it, either in a
// full-screen terminal UI or through one-shot subcommands.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
)

const usage = `askdb - ask questions about your data

Usage:
  askdb [ui] [flags] [file]           interactive mode (default)
  askdb ingest [-o out.db] <file>      convert a csv/xlsx/xls/db file into a SQLite database
  askdb tables [flags]                 list tables
  askdb schema [flags] [table]         describe tables (--mermaid for an ER diagram)
  askdb query [flags] <sql>            run SQL (--chart bar|line|scatter --x col --y col --csv out.csv)
  askdb ask [flags] <question>         ask in plain language (--report out.html)
  askdb key set [key] | delete | show  manage the API key in the OS keyring
  askdb config init [--force]          write a default config file

Common flags:
  --db <file|dsn>   data file or database (sqlite:///x.db, mysql://..., postgres://...)
  --demo            use the configured demo database
  --config <path>   config file (default ~/.askdb/config.yaml)
  --log-level <l>   debug | info | warn | error
`

// errUsage marks errors already explained to the user with usage text.
var errUsage = errors.New("usage")

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		if errors.Is(err, errUsage) {
			os.Exit(2)
		}
		color.New(color.FgRed).Fprintf(os.Stderr, "✗ %v\n", err)
		os.Exit(1)
	}
}

// run dispatches to a subcommand. Output goes to stdout, diagnostics and
// logs to stderr.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	cmd := "ui"
	if len(args) > 0 && len(args[0]) > 0 && args[0][0] != '-' {
		if _, ok := commands[args[0]]; ok {
			cmd, args = args[0], args[1:]
		}
	}
	if cmd == "help" {
		fmt.Fprint(stdout, usage)
		return nil
	}
	return commands[cmd](ctx, args, stdout, stderr)
}

type command func(ctx context.Context, args []string, stdout, stderr io.Writer) error

var commands map[string]command

func init() {
	commands = map[string]command{
		"ui":     runUI,
		"ingest": runIngest,
		"tables": runTables,
		"schema": runSchema,
		"query":  runQuery,
		"ask":    runAsk,
		"key":    runKey,
		"config": runConfig,
		"help":   nil,
	}
}

// commonFlags are accepted by every command that needs a store.
type commonFlags struct {
	db       string
	demo     bool
	config   string
	logLevel string
}

func newFlagSet(name string, stderr io.Writer, common *commonFlags) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() { fmt.Fprint(stderr, usage) }
	if common != nil {
		fs.StringVar(&common.db, "db", "", "data file or database DSN")
		fs.BoolVar(&common.demo, "demo", false, "use the configured demo database")
		fs.StringVar(&common.config, "config", "", "config file (default ~/.askdb/config.yaml)")
		fs.StringVar(&common.logLevel, "log-level", "", "log level: debug | info | warn | error")
	}
	return fs
}

// parse wraps FlagSet.Parse so that -h and bad flags become errUsage.
func parse(fs *flag.FlagSet, args []string) error {
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return errUsage
		}
		return fmt.Errorf("%w: %v", errUsage, err)
	}
	return nil
}
