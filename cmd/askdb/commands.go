package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/fatih/color"

	"askdb/internal/adapter"
	"askdb/internal/config"
	"askdb/internal/ingest"
	"askdb/internal/llm"
	"askdb/internal/report"
	"askdb/internal/tui"
	"askdb/internal/viz"
)

var (
	ok    = color.New(color.FgGreen)
	warn  = color.New(color.FgYellow)
	faint = color.New(color.FgHiBlack)
	bold  = color.New(color.Bold)
)

func runUI(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	var common commonFlags
	fs := newFlagSet("ui", stderr, &common)
	if err := parse(fs, args); err != nil {
		return err
	}

	e, err := newEnv(common, stderr, true)
	if err != nil {
		return err
	}
	defer e.Close()

	src := tui.Source{Demo: common.demo}
	switch {
	case common.db != "" && isDSN(common.db):
		src.DSN = common.db
	case common.db != "":
		src.Path = common.db
	case fs.NArg() > 0:
		src.Path = fs.Arg(0)
	}

	p := tea.NewProgram(tui.NewModel(e.session, src, e.logger), tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return fmt.Errorf("ui: %w", err)
	}
	return nil
}

func runIngest(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	fs := newFlagSet("ingest", stderr, nil)
	out := fs.String("o", "", "output database (default: a new file in the ingest dir)")
	cfgPath := fs.String("config", "", "config file")
	if err := parse(fs, args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		fs.Usage()
		return errUsage
	}
	src := fs.Arg(0)

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		return err
	}
	dir := cfg.Ingest.Dir
	if *out != "" {
		// same directory so the final rename cannot cross devices
		dir = filepath.Dir(*out)
	}

	began := time.Now()
	path, err := ingest.IngestFile(ctx, src, dir)
	if err != nil {
		return err
	}
	if *out != "" {
		if err := os.Rename(path, *out); err != nil {
			os.Remove(path)
			return fmt.Errorf("move %s: %w", path, err)
		}
		path = *out
	}

	ok.Fprint(stdout, "✓ ")
	fmt.Fprintf(stdout, "%s → %s ", src, path)
	faint.Fprintf(stdout, "(%s)\n", time.Since(began).Round(time.Millisecond))
	return nil
}

func runTables(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	var common commonFlags
	fs := newFlagSet("tables", stderr, &common)
	if err := parse(fs, args); err != nil {
		return err
	}
	e, err := start(ctx, common, stderr)
	if err != nil {
		return err
	}
	defer e.Close()

	tables, err := e.session.ListTables(ctx)
	if err != nil {
		return err
	}
	for _, t := range tables {
		fmt.Fprintln(stdout, t)
	}
	return nil
}

func runSchema(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	var common commonFlags
	fs := newFlagSet("schema", stderr, &common)
	mermaid := fs.Bool("mermaid", false, "print a Mermaid ER diagram instead")
	if err := parse(fs, args); err != nil {
		return err
	}
	e, err := start(ctx, common, stderr)
	if err != nil {
		return err
	}
	defer e.Close()

	var tables []*adapter.TableDescriptor
	if fs.NArg() > 0 {
		for _, name := range fs.Args() {
			t, err := e.session.DescribeTable(ctx, name)
			if err != nil {
				return fmt.Errorf("%s: %w", name, err)
			}
			tables = append(tables, t)
		}
	} else {
		tables, err = e.session.DescribeAll(ctx)
		if err != nil {
			return err
		}
	}

	if *mermaid {
		fmt.Fprint(stdout, report.MermaidER(tables))
		return nil
	}
	for i, t := range tables {
		if i > 0 {
			fmt.Fprintln(stdout)
		}
		printTable(stdout, t)
	}
	return nil
}

func printTable(w io.Writer, t *adapter.TableDescriptor) {
	bold.Fprintln(w, t.Name)
	for _, c := range t.Columns {
		var flags []string
		if c.PrimaryKey {
			flags = append(flags, "PK")
		}
		if c.NotNull {
			flags = append(flags, "NOT NULL")
		}
		if c.Default != "" {
			flags = append(flags, "DEFAULT "+c.Default)
		}
		fmt.Fprintf(w, "  %-24s %-12s", c.Name, c.Type)
		faint.Fprintln(w, strings.Join(flags, " "))
	}
	for _, fk := range t.ForeignKeys {
		fmt.Fprintf(w, "  %s %s → %s.%s\n", faint.Sprint("fk"), fk.Column, fk.RefTable, fk.RefColumn)
	}
}

// outputFlags control how a result is shown.
type outputFlags struct {
	chart string
	x, y  string
	csv   string
	width int
	rows  int
}

func (o *outputFlags) register(fs interface {
	StringVar(*string, string, string, string)
	IntVar(*int, string, int, string)
}) {
	fs.StringVar(&o.chart, "chart", "table", "table | bar | line | scatter")
	fs.StringVar(&o.x, "x", "", "x column (default: first)")
	fs.StringVar(&o.y, "y", "", "y column (default: second)")
	fs.StringVar(&o.csv, "csv", "", "also write the result to this CSV file")
	fs.IntVar(&o.width, "width", 100, "chart width")
	fs.IntVar(&o.rows, "rows", 20, "chart height, or rows shown for tables (0 = all)")
}

func (o *outputFlags) show(w io.Writer, result *adapter.QueryResult) error {
	kind, err := viz.ParseKind(o.chart)
	if err != nil {
		return err
	}
	spec, err := viz.NewSpec(result, kind, o.x, o.y)
	if err != nil {
		return err
	}

	if len(result.Columns) == 0 {
		ok.Fprintln(w, "✓ Query executed successfully")
	} else if spec.Kind == viz.KindTable {
		fmt.Fprintln(w, viz.RenderTable(result, 0, o.rows))
		if o.rows > 0 && len(result.Rows) > o.rows {
			faint.Fprintf(w, "… %d more row(s)\n", len(result.Rows)-o.rows)
		}
	} else {
		fmt.Fprintln(w, viz.Render(result, spec, o.width, o.rows))
	}
	faint.Fprintf(w, "%d row(s) in %s\n", result.RowCount, result.ExecutionTime.Round(time.Microsecond))

	if o.csv != "" {
		path, err := viz.ExportCSV(o.csv, result)
		if err != nil {
			return fmt.Errorf("export: %w", err)
		}
		ok.Fprint(w, "✓ ")
		fmt.Fprintf(w, "wrote %s\n", path)
	}
	return nil
}

func runQuery(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	var (
		common commonFlags
		out    outputFlags
	)
	fs := newFlagSet("query", stderr, &common)
	out.register(fs)
	if err := parse(fs, args); err != nil {
		return err
	}
	sql := strings.TrimSpace(strings.Join(fs.Args(), " "))
	if sql == "" {
		fs.Usage()
		return errUsage
	}

	e, err := start(ctx, common, stderr)
	if err != nil {
		return err
	}
	defer e.Close()

	result, err := e.session.RunQuery(ctx, sql)
	if err != nil {
		return queryFailed(err)
	}
	return out.show(stdout, result)
}

func runAsk(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	var (
		common commonFlags
		out    outputFlags
	)
	fs := newFlagSet("ask", stderr, &common)
	out.register(fs)
	reportPath := fs.String("report", "", "write an HTML report to this file")
	if err := parse(fs, args); err != nil {
		return err
	}
	question := strings.TrimSpace(strings.Join(fs.Args(), " "))
	if question == "" {
		fs.Usage()
		return errUsage
	}

	e, err := start(ctx, common, stderr)
	if err != nil {
		return err
	}
	defer e.Close()

	answer, err := e.session.Ask(ctx, question)
	if err != nil {
		if errors.Is(err, llm.ErrMissingToken) {
			return err
		}
		return fmt.Errorf("the assistant could not answer, please try again: %w", err)
	}

	fmt.Fprintln(stdout, answer.Output)
	faint.Fprintf(stdout, "\n%s, %d statement(s), ~%d tokens\n", answer.Duration.Round(time.Millisecond), len(answer.Transcript), answer.Tokens)

	var result *adapter.QueryResult
	if answer.SQL != "" {
		fmt.Fprintln(stdout)
		bold.Fprintln(stdout, "SQL")
		fmt.Fprintln(stdout, answer.SQL)
		fmt.Fprintln(stdout)

		result, err = e.session.RunQuery(ctx, answer.SQL)
		if err != nil {
			warn.Fprintln(stdout, "Query error, please try again")
			e.logger.Warn("running answer SQL", "error", err)
		} else if err := out.show(stdout, result); err != nil {
			return err
		}
	}

	if *reportPath != "" {
		source := ""
		if h := e.session.State().Handle; h != nil {
			source = h.Source
		}
		r := report.Report{Source: source, Answer: answer, Result: result, Generated: time.Now()}
		if schema, err := e.session.DescribeAll(ctx); err == nil {
			r.Schema = schema
		}
		if err := report.WriteFile(*reportPath, r); err != nil {
			return fmt.Errorf("report: %w", err)
		}
		ok.Fprint(stdout, "✓ ")
		fmt.Fprintf(stdout, "report written to %s\n", *reportPath)
	}
	return nil
}

func queryFailed(err error) error {
	var qe *adapter.QueryError
	if errors.As(err, &qe) {
		return fmt.Errorf("query error: %s", qe.Message)
	}
	return err
}

func runKey(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	fs := newFlagSet("key", stderr, nil)
	cfgPath := fs.String("config", "", "config file")
	if err := parse(fs, args); err != nil {
		return err
	}

	switch fs.Arg(0) {
	case "set":
		key := fs.Arg(1)
		if key == "" {
			fmt.Fprint(stdout, "API key: ")
			line, err := bufio.NewReader(os.Stdin).ReadString('\n')
			if err != nil && !errors.Is(err, io.EOF) {
				return err
			}
			key = line
		}
		if err := config.SetAPIKey(key); err != nil {
			return err
		}
		ok.Fprintln(stdout, "✓ API key stored in the OS keyring")
	case "delete":
		if err := config.DeleteAPIKey(); err != nil {
			return err
		}
		ok.Fprintln(stdout, "✓ API key removed from the OS keyring")
	case "show":
		cfg, err := config.Load(*cfgPath)
		if err != nil {
			return err
		}
		key, source, err := config.APIKey(cfg)
		if err != nil {
			return err
		}
		if key == "" {
			warn.Fprintln(stdout, "no API key configured")
			return nil
		}
		fmt.Fprintf(stdout, "%s (from %s)\n", mask(key), source)
	default:
		fs.Usage()
		return errUsage
	}
	return nil
}

func runConfig(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	fs := newFlagSet("config", stderr, nil)
	path := fs.String("config", "", "config file (default ~/.askdb/config.yaml)")
	force := fs.Bool("force", false, "overwrite an existing file")
	if err := parse(fs, args); err != nil {
		return err
	}
	if fs.Arg(0) != "init" {
		fs.Usage()
		return errUsage
	}
	// flags may also follow the subcommand
	if err := parse(fs, fs.Args()[1:]); err != nil {
		return err
	}
	if fs.NArg() > 0 {
		fs.Usage()
		return errUsage
	}

	target := *path
	if target == "" {
		var err error
		if target, err = config.Path(); err != nil {
			return err
		}
	}
	if _, err := os.Stat(target); err == nil && !*force {
		return fmt.Errorf("%s already exists, use --force to overwrite", target)
	}
	if err := config.Save(config.Default(), target); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	ok.Fprint(stdout, "✓ ")
	fmt.Fprintf(stdout, "wrote %s\n", target)
	return nil
}

// mask keeps the first and last four characters of a secret.
func mask(s string) string {
	if len(s) <= 8 {
		return strings.Repeat("*", len(s))
	}
	return s[:4] + strings.Repeat("*", len(s)-8) + s[len(s)-4:]
}

// start builds the env for a one-shot command and loads its store.
func start(ctx context.Context, common commonFlags, stderr io.Writer) (*env, error) {
	e, err := newEnv(common, stderr, false)
	if err != nil {
		return nil, err
	}
	if _, err := e.load(ctx, common); err != nil {
		e.Close()
		return nil, err
	}
	return e, nil
}
