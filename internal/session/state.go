// Package session holds the per-user state of an askdb session and the
// service that moves it between states.
package session

import (
	"askdb/internal/adapter"
	"askdb/internal/inference"
)

// Handle is the one store backing a session.
type Handle struct {
	Path      string // file path, or the DSN for external databases
	Source    string // what the user loaded, e.g. "sales.csv"
	Adapter   adapter.DBAdapter
	Temporary bool // created by ingestion
}

// Close closes the handle's connection.
func (h *Handle) Close() error {
	if h == nil || h.Adapter == nil {
		return nil
	}
	return h.Adapter.Close()
}

// State is the typed session state. Zero value is a fresh session with no
// store loaded. Fields are only changed through the transition methods.
type State struct {
	Handle          *Handle
	LastQuery       string
	LastAgentOutput string
	LastTranscript  inference.Transcript
	LastResult      *adapter.QueryResult
}

// Loaded reports whether a store is available.
func (s State) Loaded() bool {
	return s.Handle != nil
}

// Load makes h the active store and discards everything derived from the
// previous one, which is returned.
func (s *State) Load(h *Handle) *Handle {
	prev := s.Handle
	*s = State{Handle: h}
	return prev
}

// Reset returns to a fresh session and returns the dropped handle.
func (s *State) Reset() *Handle {
	return s.Load(nil)
}

// RecordAnswer stores an agent answer; its surfaced SQL becomes the current
// query when there is one, dropping a result that belonged to another query.
func (s *State) RecordAnswer(a *inference.Answer) {
	if a == nil {
		return
	}
	s.LastAgentOutput = a.Output
	s.LastTranscript = a.Transcript
	if a.SQL != "" && a.SQL != s.LastQuery {
		s.LastQuery = a.SQL
		s.LastResult = nil
	}
}

// RecordResult stores a query that ran successfully together with its
// result, so LastResult always belongs to LastQuery.
func (s *State) RecordResult(sql string, r *adapter.QueryResult) {
	s.LastQuery = sql
	s.LastResult = r
}

// ClearQuery forgets the query, answer and result but keeps the store.
func (s *State) ClearQuery() {
	s.Load(s.Handle)
}
