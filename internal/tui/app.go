// Package tui is the interactive askdb terminal UI.
package tui

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"askdb/internal/adapter"
	"askdb/internal/inference"
	"askdb/internal/ingest"
	"askdb/internal/session"
	"askdb/internal/tui/editor"
	"askdb/internal/tui/explorer"
	"askdb/internal/tui/results"
	"askdb/internal/tui/statusbar"
)

// Session is what the UI needs from session.Service.
type Session interface {
	UploadFile(ctx context.Context, path string) (*session.Handle, error)
	OpenDemo(ctx context.Context) (*session.Handle, error)
	Open(ctx context.Context, dsn string) (*session.Handle, error)
	Reset() error
	ClearQuery()
	DescribeAll(ctx context.Context) ([]*adapter.TableDescriptor, error)
	RunQuery(ctx context.Context, sql string) (*adapter.QueryResult, error)
	Ask(ctx context.Context, prompt string) (*inference.Answer, error)
}

// Pane identifies a focusable area.
type Pane int

const (
	PaneExplorer Pane = iota
	PaneEditor
	PanePrompt
	PaneResults
)

var paneNames = [...]string{"tables", "sql", "ask", "results"}

func (p Pane) String() string {
	if p < 0 || int(p) >= len(paneNames) {
		return "unknown"
	}
	return paneNames[p]
}

// Mode is the screen on display.
type Mode int

const (
	ModeUpload Mode = iota // choose a file, DSN or the demo
	ModeMain
)

// Source selects what to load when the UI starts.
type Source struct {
	Path string // file to ingest
	DSN  string // database opened in place
	Demo bool
}

const (
	loadTimeout  = time.Minute
	queryTimeout = 30 * time.Second
)

type (
	loadedMsg struct {
		handle *session.Handle
		err    error
	}
	// gen is the store generation the request was made against
	schemaLoadedMsg struct {
		gen    int
		tables []*adapter.TableDescriptor
		err    error
	}
	queryExecutedMsg struct {
		gen    int
		sql    string
		result *adapter.QueryResult
		err    error
	}
	answeredMsg struct {
		gen    int
		prompt string
		answer *inference.Answer
		err    error
	}
	resetMsg struct {
		err error
	}
)

// Model is the top-level bubbletea model.
type Model struct {
	session Session
	logger  *slog.Logger
	initial Source

	explorer  explorer.Model
	editor    editor.Model
	results   results.Model
	statusbar statusbar.Model
	pathInput textinput.Model
	prompt    textinput.Model

	mode       Mode
	activePane Pane
	width      int
	height     int
	err        error
	showHelp   bool
	asking     bool
	source     string
	gen        int // bumped whenever the store is loaded or reset
}

// NewModel creates the UI over s. A non-empty initial source is loaded by Init.
func NewModel(s Session, initial Source, logger *slog.Logger) Model {
	if logger == nil {
		logger = slog.Default()
	}

	path := textinput.New()
	path.Placeholder = "sales.csv, report.xlsx, chinook.db or postgres://..."
	path.CharLimit = 1024
	path.Width = 70
	path.Focus()

	prompt := textinput.New()
	prompt.Placeholder = "Ask a question about your data..."
	prompt.CharLimit = 2000
	prompt.Prompt = "? "

	return Model{
		session:   s,
		logger:    logger.With("component", "tui"),
		initial:   initial,
		explorer:  explorer.New(),
		editor:    editor.New(),
		results:   results.New(),
		statusbar: statusbar.New(),
		pathInput: path,
		prompt:    prompt,
		mode:      ModeUpload,
	}
}

// Init starts loading the initial source, if any.
func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{textinput.Blink}
	switch {
	case m.initial.Demo:
		cmds = append(cmds, m.demoCmd())
	case m.initial.DSN != "":
		cmds = append(cmds, m.openCmd(m.initial.DSN))
	case m.initial.Path != "":
		cmds = append(cmds, m.uploadCmd(m.initial.Path))
	}
	return tea.Batch(cmds...)
}

// Update handles all messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.layout()
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.statusbar, cmd = m.statusbar.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
		if m.showHelp {
			m.showHelp = false
			return m, nil
		}
		if m.mode == ModeUpload {
			return m.updateUpload(msg)
		}
		return m.updateMain(msg)

	case loadedMsg:
		return m.handleLoaded(msg)

	case schemaLoadedMsg:
		if msg.gen != m.gen {
			return m, nil
		}
		if msg.err != nil {
			m.explorer.SetLoading(false)
			m.logger.Error("loading schema", "error", msg.err)
			m.statusbar.SetMessage("Failed to load schema: " + msg.err.Error())
			return m, nil
		}
		m.explorer.SetSchema(msg.tables)
		return m, nil

	case queryExecutedMsg:
		return m.handleQueryExecuted(msg)

	case answeredMsg:
		return m.handleAnswered(msg)

	case resetMsg:
		if msg.err != nil {
			m.logger.Warn("closing store on reset", "error", msg.err)
		}
		m.toUpload()
		m.statusbar.SetMessage("Session reset")
		return m, textinput.Blink

	case explorer.QuickQueryMsg:
		m.editor.SetQuery(msg.Query)
		m.results.SetAnswer("")
		cmd := m.runQuery(msg.Query)
		return m, cmd

	case editor.ExecuteQueryMsg:
		m.results.SetAnswer("")
		cmd := m.runQuery(msg.Query)
		return m, cmd

	case editor.ClearQueryMsg:
		m.session.ClearQuery()
		m.results.Clear()
		m.statusbar.SetMessage("Query cleared")
		return m, nil

	case editor.NotifyMsg:
		m.statusbar.SetMessage(msg.Message)
		return m, nil

	case results.StatusNotifyMsg:
		m.statusbar.SetMessage(msg.Message)
		return m, nil
	}

	if m.mode == ModeMain {
		return m.updateComponents(msg)
	}
	var cmd tea.Cmd
	m.pathInput, cmd = m.pathInput.Update(msg)
	return m, cmd
}

func (m Model) updateUpload(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		value := strings.TrimSpace(m.pathInput.Value())
		if value == "" {
			return m, nil
		}
		m.err = nil
		if strings.Contains(value, "://") {
			busy := m.statusbar.StartBusy("Connecting...")
			return m, tea.Batch(busy, m.openCmd(value))
		}
		busy := m.statusbar.StartBusy("Loading " + value + "...")
		return m, tea.Batch(busy, m.uploadCmd(value))
	case "ctrl+d":
		m.err = nil
		busy := m.statusbar.StartBusy("Loading demo database...")
		return m, tea.Batch(busy, m.demoCmd())
	case "esc":
		if m.source != "" {
			m.mode = ModeMain
			m.setFocus(m.activePane)
			return m, nil
		}
	}

	var cmd tea.Cmd
	m.pathInput, cmd = m.pathInput.Update(msg)
	return m, cmd
}

func (m Model) updateMain(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	typing := m.activePane == PaneEditor || m.activePane == PanePrompt

	switch msg.String() {
	case "tab":
		m.setFocus((m.activePane + 1) % 4)
		return m, nil
	case "shift+tab":
		m.setFocus((m.activePane + 3) % 4)
		return m, nil
	case "ctrl+r":
		// in-flight answers and results belong to the dropped store
		m.gen++
		return m, m.resetCmd()
	case "ctrl+o":
		m.mode = ModeUpload
		m.pathInput.Focus()
		return m, textinput.Blink
	case "q":
		if !typing {
			return m, tea.Quit
		}
	case "?":
		if !typing {
			m.showHelp = true
			return m, nil
		}
	}

	if m.activePane == PanePrompt && msg.String() == "enter" {
		return m.submitPrompt()
	}
	return m.updateComponents(msg)
}

func (m Model) updateComponents(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch m.activePane {
	case PaneExplorer:
		m.explorer, cmd = m.explorer.Update(msg)
	case PaneEditor:
		m.editor, cmd = m.editor.Update(msg)
	case PanePrompt:
		m.prompt, cmd = m.prompt.Update(msg)
	case PaneResults:
		m.results, cmd = m.results.Update(msg)
	}
	return m, cmd
}

func (m Model) submitPrompt() (tea.Model, tea.Cmd) {
	prompt := strings.TrimSpace(m.prompt.Value())
	if prompt == "" || m.asking {
		return m, nil
	}
	m.asking = true
	m.results.SetLoading(true)
	busy := m.statusbar.StartBusy("Thinking...")
	return m, tea.Batch(busy, m.askCmd(prompt))
}

func (m Model) handleLoaded(msg loadedMsg) (tea.Model, tea.Cmd) {
	if msg.err != nil {
		m.err = msg.err
		m.logger.Error("loading data", "error", msg.err)
		m.statusbar.StopBusy("")
		if m.mode == ModeMain {
			m.mode = ModeUpload
		}
		return m, nil
	}

	m.err = nil
	m.gen++
	m.mode = ModeMain
	m.source = msg.handle.Source
	m.pathInput.Reset()
	m.prompt.Reset()
	m.editor.Clear()
	m.results.Clear()
	m.explorer.SetLoading(true)
	m.statusbar.SetSource(m.source)
	m.statusbar.StopBusy("Loaded " + m.source)
	m.asking = false
	m.setFocus(PanePrompt)
	m.layout()
	return m, m.loadSchemaCmd()
}

func (m Model) handleQueryExecuted(msg queryExecutedMsg) (tea.Model, tea.Cmd) {
	if msg.gen != m.gen {
		m.logger.Debug("dropping stale query result", "sql", msg.sql)
		return m, nil
	}
	m.statusbar.StopBusy("")
	if errors.Is(msg.err, session.ErrStoreChanged) {
		// a reset is on its way and will clear the pane
		m.results.SetLoading(false)
		return m, nil
	}
	if msg.err != nil {
		m.logger.Warn("query failed", "sql", msg.sql, "error", msg.err)
		m.results.SetError(msg.err)
		return m, nil
	}
	m.results.SetResult(msg.result)
	return m, nil
}

func (m Model) handleAnswered(msg answeredMsg) (tea.Model, tea.Cmd) {
	if msg.gen != m.gen {
		m.logger.Debug("dropping stale answer", "prompt", msg.prompt)
		return m, nil
	}
	m.asking = false
	if errors.Is(msg.err, session.ErrStoreChanged) {
		m.results.SetLoading(false)
		m.statusbar.StopBusy("")
		return m, nil
	}
	if msg.err != nil {
		m.logger.Error("agent failed", "prompt", msg.prompt, "error", msg.err)
		m.results.SetLoading(false)
		m.prompt.Reset()
		text := "The assistant could not answer, please try again"
		if errors.Is(msg.err, context.DeadlineExceeded) {
			text = "The assistant timed out, please try again"
		}
		m.statusbar.StopBusy(text)
		return m, nil
	}

	a := msg.answer
	m.logger.Info("answered", "sql", a.SQL, "statements", len(a.Transcript), "tokens", a.Tokens, "duration", a.Duration)
	m.results.SetAnswer(a.Output)
	if a.SQL == "" {
		m.results.SetLoading(false)
		m.statusbar.StopBusy(fmt.Sprintf("Answered in %s", a.Duration.Round(time.Millisecond)))
		return m, nil
	}
	m.editor.SetQuery(a.SQL)
	m.statusbar.StopBusy("")
	cmd := m.runQuery(a.SQL)
	return m, cmd
}

func (m *Model) toUpload() {
	m.gen++
	m.mode = ModeUpload
	m.source = ""
	m.err = nil
	m.asking = false
	m.explorer.Clear()
	m.editor.Clear()
	m.results.Clear()
	m.prompt.Reset()
	m.statusbar.SetSource("")
	m.statusbar.StopBusy("")
	m.pathInput.Reset()
	m.pathInput.Focus()
}

func (m *Model) setFocus(p Pane) {
	m.activePane = p
	m.explorer.SetFocused(p == PaneExplorer)
	m.editor.SetFocused(p == PaneEditor)
	m.results.SetFocused(p == PaneResults)
	if p == PanePrompt {
		m.prompt.Focus()
	} else {
		m.prompt.Blur()
	}
	m.statusbar.SetActivePane(p.String())
}

// Async commands

func (m *Model) runQuery(sql string) tea.Cmd {
	m.results.SetLoading(true)
	busy := m.statusbar.StartBusy("Running query...")
	s, gen := m.session, m.gen
	return tea.Batch(busy, func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), queryTimeout)
		defer cancel()
		result, err := s.RunQuery(ctx, sql)
		return queryExecutedMsg{gen: gen, sql: sql, result: result, err: err}
	})
}

func (m Model) loadCmd(load func(context.Context) (*session.Handle, error)) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), loadTimeout)
		defer cancel()
		h, err := load(ctx)
		return loadedMsg{handle: h, err: err}
	}
}

func (m Model) uploadCmd(path string) tea.Cmd {
	s := m.session
	return m.loadCmd(func(ctx context.Context) (*session.Handle, error) {
		return s.UploadFile(ctx, path)
	})
}

func (m Model) demoCmd() tea.Cmd {
	s := m.session
	return m.loadCmd(func(ctx context.Context) (*session.Handle, error) {
		return s.OpenDemo(ctx)
	})
}

func (m Model) openCmd(dsn string) tea.Cmd {
	s := m.session
	return m.loadCmd(func(ctx context.Context) (*session.Handle, error) {
		return s.Open(ctx, dsn)
	})
}

func (m Model) loadSchemaCmd() tea.Cmd {
	s, gen := m.session, m.gen
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), queryTimeout)
		defer cancel()
		tables, err := s.DescribeAll(ctx)
		return schemaLoadedMsg{gen: gen, tables: tables, err: err}
	}
}

func (m Model) askCmd(prompt string) tea.Cmd {
	s, gen := m.session, m.gen
	return func() tea.Msg {
		// the orchestrator applies its own timeout
		answer, err := s.Ask(context.Background(), prompt)
		return answeredMsg{gen: gen, prompt: prompt, answer: answer, err: err}
	}
}

func (m Model) resetCmd() tea.Cmd {
	s := m.session
	return func() tea.Msg {
		return resetMsg{err: s.Reset()}
	}
}

// UploadHint lists the accepted file types.
func UploadHint() string {
	return "Accepted: " + strings.Join(ingest.Extensions, " ") + " (optionally .gz .zst .xz .bz2)"
}
