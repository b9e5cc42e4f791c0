package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/uuid"

	"askdb/internal/adapter"
	"askdb/internal/inference"
	"askdb/internal/ingest"
	"askdb/internal/llm"
)

var (
	// ErrNoDemo is returned by OpenDemo when no demo database is configured.
	ErrNoDemo = errors.New("session: no demo database configured")

	// ErrStoreChanged is returned by RunQuery and Ask when the store was reset
	// or replaced while they ran. Their result is discarded.
	ErrStoreChanged = errors.New("session: store changed while the request was running")
)

// AgentFactory builds the agent that answers prompts about db.
type AgentFactory func(db adapter.DBAdapter) (inference.Agent, error)

// Options configures a Service.
type Options struct {
	IngestDir string // where uploads are converted, os temp dir when empty
	DemoDB    string
	NewAgent  AgentFactory
	Inference inference.Config
	Tokens    *llm.TokenCounter
	Logger    *slog.Logger
}

// Service coordinates ingestion, the store and the orchestrator for one
// session.
type Service struct {
	id     string
	opts   Options
	base   *slog.Logger // session attrs only, for child components
	logger *slog.Logger

	mu    sync.Mutex
	state State
}

// NewService creates a session with no store loaded.
func NewService(opts Options) *Service {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Inference == (inference.Config{}) {
		opts.Inference = inference.DefaultConfig()
	}
	id := uuid.NewString()
	base := opts.Logger.With("session", id)
	return &Service{
		id:     id,
		opts:   opts,
		base:   base,
		logger: base.With("component", "session"),
	}
}

// ID returns the session ID.
func (s *Service) ID() string {
	return s.id
}

// State returns a snapshot of the session state.
func (s *Service) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Upload ingests an artifact named name and makes it the active store.
func (s *Service) Upload(ctx context.Context, name string, r io.Reader) (*Handle, error) {
	path, err := ingest.Ingest(ctx, name, r, s.opts.IngestDir)
	if err != nil {
		return nil, err
	}
	s.logger.Info("ingested upload", "source", name, "path", path)
	return s.openFile(ctx, path, name)
}

// UploadFile is Upload for a file on disk.
func (s *Service) UploadFile(ctx context.Context, path string) (*Handle, error) {
	out, err := ingest.IngestFile(ctx, path, s.opts.IngestDir)
	if err != nil {
		return nil, err
	}
	s.logger.Info("ingested file", "source", path, "path", out)
	return s.openFile(ctx, out, filepath.Base(path))
}

// OpenDemo loads a private copy of the configured demo database.
func (s *Service) OpenDemo(ctx context.Context) (*Handle, error) {
	if s.opts.DemoDB == "" {
		return nil, ErrNoDemo
	}
	return s.UploadFile(ctx, s.opts.DemoDB)
}

// Open connects to an existing database by DSN or path without copying it.
func (s *Service) Open(ctx context.Context, dsn string) (*Handle, error) {
	db, err := adapter.Open(ctx, dsn)
	if err != nil {
		return nil, err
	}
	h := &Handle{Path: dsn, Source: displaySource(dsn), Adapter: db}
	s.load(h)
	return h, nil
}

func (s *Service) openFile(ctx context.Context, path, source string) (*Handle, error) {
	db, err := adapter.OpenSQLite(ctx, path)
	if err != nil {
		return nil, err
	}
	h := &Handle{Path: path, Source: source, Adapter: db, Temporary: true}
	s.load(h)
	return h, nil
}

func (s *Service) load(h *Handle) {
	s.mu.Lock()
	prev := s.state.Load(h)
	s.mu.Unlock()

	if err := prev.Close(); err != nil {
		s.logger.Warn("closing previous store", "error", err)
	}
	s.logger.Info("store loaded", "source", h.Source, "type", h.Adapter.GetDatabaseType())
}

// Reset drops the active store and everything derived from it. Temporary
// files are left on disk.
func (s *Service) Reset() error {
	s.mu.Lock()
	prev := s.state.Reset()
	s.mu.Unlock()

	if prev != nil {
		s.logger.Info("session reset", "source", prev.Source)
	}
	return prev.Close()
}

// Close releases the active store.
func (s *Service) Close() error {
	return s.Reset()
}

// current returns the active handle.
func (s *Service) current() (*Handle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.Handle == nil {
		return nil, adapter.ErrStoreUnavailable
	}
	return s.state.Handle, nil
}

func (s *Service) store() (adapter.DBAdapter, error) {
	h, err := s.current()
	if err != nil {
		return nil, err
	}
	return h.Adapter, nil
}

// record applies fn to the state if h is still the active store.
func (s *Service) record(h *Handle, fn func(*State)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.Handle != h {
		return ErrStoreChanged
	}
	fn(&s.state)
	return nil
}

// ClearQuery forgets the current query, answer and result. The store stays
// loaded.
func (s *Service) ClearQuery() {
	s.mu.Lock()
	s.state.ClearQuery()
	s.mu.Unlock()
}

// ListTables lists the tables of the active store.
func (s *Service) ListTables(ctx context.Context) ([]string, error) {
	db, err := s.store()
	if err != nil {
		return nil, err
	}
	return db.ListTables(ctx)
}

// DescribeTable describes one table of the active store.
func (s *Service) DescribeTable(ctx context.Context, table string) (*adapter.TableDescriptor, error) {
	db, err := s.store()
	if err != nil {
		return nil, err
	}
	return db.DescribeTable(ctx, table)
}

// DescribeAll describes every table, in ListTables order.
func (s *Service) DescribeAll(ctx context.Context) ([]*adapter.TableDescriptor, error) {
	tables, err := s.ListTables(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]*adapter.TableDescriptor, 0, len(tables))
	for _, t := range tables {
		desc, err := s.DescribeTable(ctx, t)
		if err != nil {
			return nil, fmt.Errorf("describing %s: %w", t, err)
		}
		out = append(out, desc)
	}
	return out, nil
}

// RunQuery executes sql against the active store. On success the query and
// its result become the session's current pair; a failed query leaves the
// state untouched. Failures are *adapter.QueryError, ErrStoreChanged, or
// adapter.ErrStoreUnavailable before any store is loaded.
func (s *Service) RunQuery(ctx context.Context, sql string) (*adapter.QueryResult, error) {
	h, err := s.current()
	if err != nil {
		return nil, err
	}

	result, err := h.Adapter.ExecuteQuery(ctx, sql)
	if err != nil {
		s.logger.Warn("query failed", "sql", sql, "error", err)
		return nil, err
	}

	if err := s.record(h, func(st *State) { st.RecordResult(sql, result) }); err != nil {
		s.logger.Info("dropping stale query result", "sql", sql)
		return nil, err
	}
	s.logger.Debug("query executed", "rows", result.RowCount, "duration", result.ExecutionTime)
	return result, nil
}

// Ask routes a prompt through the orchestrator. On failure the prompt is
// discarded and the state is left untouched.
func (s *Service) Ask(ctx context.Context, prompt string) (*inference.Answer, error) {
	h, err := s.current()
	if err != nil {
		return nil, err
	}
	if s.opts.NewAgent == nil {
		return nil, &inference.AgentError{Prompt: prompt, Err: errors.New("no language model configured")}
	}
	agent, err := s.opts.NewAgent(h.Adapter)
	if err != nil {
		return nil, &inference.AgentError{Prompt: prompt, Err: err}
	}

	orchestrator := inference.NewOrchestrator(agent,
		inference.WithConfig(s.opts.Inference),
		inference.WithLogger(s.base),
		inference.WithTokenCounter(s.opts.Tokens),
	)
	answer, err := orchestrator.Ask(ctx, prompt)
	if err != nil {
		return nil, err
	}

	if err := s.record(h, func(st *State) { st.RecordAnswer(answer) }); err != nil {
		s.logger.Info("dropping stale answer", "prompt", prompt)
		return nil, err
	}
	return answer, nil
}

// displaySource hides credentials in a DSN.
func displaySource(dsn string) string {
	at := strings.LastIndex(dsn, "@")
	scheme := strings.Index(dsn, "://")
	if at < 0 || scheme < 0 || at < scheme {
		return dsn
	}
	return dsn[:scheme+3] + "***" + dsn[at:]
}
