// Package report renders an answered question as a standalone HTML page.
package report

import (
	"bytes"
	"embed"
	"html/template"
	"io"
	"os"
	"time"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"askdb/internal/adapter"
	"askdb/internal/inference"
)

//go:embed templates/*.html
var templateFS embed.FS

var tmpl = template.Must(template.ParseFS(templateFS, "templates/report.html"))

// MaxRows caps the rows written to a report.
const MaxRows = 500

// markdown renders agent answers; raw HTML in the answer is not passed through.
var markdown = goldmark.New(goldmark.WithExtensions(extension.GFM))

// Report is one answered question.
type Report struct {
	Source    string
	Answer    *inference.Answer
	Result    *adapter.QueryResult
	Schema    []*adapter.TableDescriptor // optional, drawn as an ER diagram
	Generated time.Time
}

type cell struct {
	Text string
	Null bool
}

type pageData struct {
	Question  string
	Source    string
	Generated time.Time
	Duration  time.Duration
	Answer    template.HTML
	SQL       string
	Steps     inference.Transcript
	Columns   []string
	Rows      [][]cell
	RowCount  int
	Truncated bool
	Schema    string
}

// RenderMarkdown converts markdown to HTML.
func RenderMarkdown(md string) (template.HTML, error) {
	var buf bytes.Buffer
	if err := markdown.Convert([]byte(md), &buf); err != nil {
		return "", err
	}
	return template.HTML(buf.String()), nil
}

// Write renders r as HTML to w.
func Write(w io.Writer, r Report) error {
	data := pageData{
		Source:    r.Source,
		Generated: r.Generated,
	}
	if data.Generated.IsZero() {
		data.Generated = time.Now()
	}

	if a := r.Answer; a != nil {
		html, err := RenderMarkdown(a.Output)
		if err != nil {
			return err
		}
		data.Question = a.Prompt
		data.Answer = html
		data.SQL = a.SQL
		data.Duration = a.Duration.Round(time.Millisecond)
		if len(a.Transcript) > 1 {
			data.Steps = a.Transcript
		}
	}

	if res := r.Result; res != nil {
		data.Columns = res.Columns
		data.RowCount = len(res.Rows)
		rows := res.Rows
		if len(rows) > MaxRows {
			rows = rows[:MaxRows]
			data.Truncated = true
		}
		data.Rows = make([][]cell, len(rows))
		for i, row := range rows {
			data.Rows[i] = make([]cell, len(row))
			for j, v := range row {
				data.Rows[i][j] = cell{Text: adapter.FormatValue(v), Null: v == nil}
			}
		}
	}

	if len(r.Schema) > 0 {
		data.Schema = MermaidER(r.Schema)
	}

	return tmpl.Execute(w, data)
}

// WriteFile renders r to path.
func WriteFile(path string, r Report) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := Write(f, r); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
