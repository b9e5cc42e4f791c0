package inference

// TranscriptEntry is one SQL statement the agent submitted to a SQL tool.
type TranscriptEntry struct {
	Tool string `json:"tool"`
	SQL  string `json:"sql"`
}

// Executed reports whether the statement was run rather than only checked.
func (e TranscriptEntry) Executed() bool {
	return e.Tool == ToolQuery
}

// Transcript is the ordered SQL history of one prompt.
type Transcript []TranscriptEntry

// SQL returns the statements in submission order.
func (t Transcript) SQL() []string {
	out := make([]string, len(t))
	for i, e := range t {
		out[i] = e.SQL
	}
	return out
}

// LastSQL is the statement surfaced to the user: the last executed one, or
// the last validated one when the agent never executed anything.
func (t Transcript) LastSQL() string {
	validated := ""
	for i := len(t) - 1; i >= 0; i-- {
		if t[i].Executed() {
			return t[i].SQL
		}
		if validated == "" {
			validated = t[i].SQL
		}
	}
	return validated
}

// recordsSQL reports whether a tool takes SQL as its input.
func recordsSQL(tool string) bool {
	return tool == ToolQuery || tool == ToolQueryChecker
}

// collect drains events into a transcript until the channel is closed.
func collect(events <-chan ToolInvoked) Transcript {
	var t Transcript
	for ev := range events {
		if !recordsSQL(ev.Tool) {
			continue
		}
		t = append(t, TranscriptEntry{Tool: ev.Tool, SQL: ev.Input})
	}
	return t
}
