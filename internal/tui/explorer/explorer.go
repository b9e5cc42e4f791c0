// Package explorer is the schema pane: tables, their columns and foreign keys.
package explorer

import (
	"fmt"
	"regexp"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"askdb/internal/adapter"
	"askdb/internal/tui/theme"
)

// NodeKind identifies the type of a tree node.
type NodeKind int

const (
	NodeTable NodeKind = iota
	NodeColumn
	NodeForeignKey
)

// TreeNode is one line of the schema tree.
type TreeNode struct {
	Kind     NodeKind
	Name     string
	Detail   string // column type, or the referenced table.column
	Table    string
	Children []*TreeNode
	Expanded bool
}

type flatItem struct {
	node  *TreeNode
	depth int
}

// QuickQueryMsg asks the app to run a generated query.
type QuickQueryMsg struct {
	Query string
}

// Model is the explorer component.
type Model struct {
	tables  []*TreeNode
	items   []flatItem
	cursor  int
	width   int
	height  int
	focused bool
	loading bool
}

// New creates an empty explorer.
func New() Model {
	return Model{}
}

func (m *Model) SetSize(w, h int) {
	m.width = w
	m.height = h
}

func (m *Model) SetFocused(f bool) {
	m.focused = f
}

func (m *Model) SetLoading(l bool) {
	m.loading = l
}

// SetSchema rebuilds the tree from table descriptors.
func (m *Model) SetSchema(tables []*adapter.TableDescriptor) {
	m.tables = m.tables[:0]
	for _, t := range tables {
		if t == nil {
			continue
		}
		node := &TreeNode{Kind: NodeTable, Name: t.Name, Table: t.Name}
		for _, c := range t.Columns {
			detail := c.Type
			if c.PrimaryKey {
				detail = strings.TrimSpace(detail + " PK")
			}
			node.Children = append(node.Children, &TreeNode{
				Kind: NodeColumn, Name: c.Name, Detail: detail, Table: t.Name,
			})
		}
		for _, fk := range t.ForeignKeys {
			node.Children = append(node.Children, &TreeNode{
				Kind: NodeForeignKey, Name: fk.Column, Detail: fk.RefTable + "." + fk.RefColumn, Table: t.Name,
			})
		}
		m.tables = append(m.tables, node)
	}
	m.cursor = 0
	m.loading = false
	m.flatten()
}

// Clear drops the schema.
func (m *Model) Clear() {
	m.tables = nil
	m.items = nil
	m.cursor = 0
}

// TableNames returns the table names in display order.
func (m Model) TableNames() []string {
	names := make([]string, len(m.tables))
	for i, t := range m.tables {
		names[i] = t.Name
	}
	return names
}

// SelectedTable returns the table under the cursor, or of the column under it.
func (m Model) SelectedTable() (string, bool) {
	if m.cursor < 0 || m.cursor >= len(m.items) {
		return "", false
	}
	return m.items[m.cursor].node.Table, true
}

func (m *Model) flatten() {
	m.items = m.items[:0]
	for _, t := range m.tables {
		m.items = append(m.items, flatItem{node: t})
		if t.Expanded {
			for _, c := range t.Children {
				m.items = append(m.items, flatItem{node: c, depth: 1})
			}
		}
	}
	if m.cursor >= len(m.items) {
		m.cursor = max(0, len(m.items)-1)
	}
}

// Update handles keys while focused.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	if !m.focused {
		return m, nil
	}
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}

	switch key.String() {
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(m.items)-1 {
			m.cursor++
		}
	case "enter", "right", "l":
		m.toggle(true)
	case "left", "h":
		m.toggle(false)
	case "s":
		if table, ok := m.SelectedTable(); ok {
			return m, quickQuery(fmt.Sprintf("SELECT * FROM %s LIMIT 100", quoteIdent(table)))
		}
	case "d":
		if table, ok := m.SelectedTable(); ok {
			return m, quickQuery(fmt.Sprintf("SELECT COUNT(*) AS row_count FROM %s", quoteIdent(table)))
		}
	}
	return m, nil
}

func (m *Model) toggle(expand bool) {
	if m.cursor < 0 || m.cursor >= len(m.items) {
		return
	}
	node := m.items[m.cursor].node
	if node.Kind != NodeTable {
		if !expand {
			// collapse the parent and land on it
			for i := m.cursor; i >= 0; i-- {
				if m.items[i].node.Kind == NodeTable {
					m.cursor = i
					m.items[i].node.Expanded = false
					break
				}
			}
			m.flatten()
		}
		return
	}
	if expand {
		node.Expanded = !node.Expanded
	} else {
		node.Expanded = false
	}
	m.flatten()
}

func quickQuery(q string) tea.Cmd {
	return func() tea.Msg { return QuickQueryMsg{Query: q} }
}

var plainIdent = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// quoteIdent double-quotes names that would not parse bare.
func quoteIdent(name string) string {
	if plainIdent.MatchString(name) {
		return name
	}
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// View renders the explorer.
func (m Model) View() string {
	title := theme.StyleTitle.Render("Tables")

	if m.loading {
		return title + "\n" + theme.StyleMuted.Render("  Loading...")
	}
	if len(m.tables) == 0 {
		return title + "\n" + theme.StyleMuted.Render("  No tables")
	}

	var b strings.Builder
	b.WriteString(title)

	visible := max(1, m.height-2)
	offset := 0
	if m.cursor >= visible {
		offset = m.cursor - visible + 1
	}
	for i := offset; i < len(m.items) && i < offset+visible; i++ {
		b.WriteString("\n")
		b.WriteString(m.renderNode(m.items[i], i == m.cursor))
	}
	return b.String()
}

func (m Model) renderNode(item flatItem, selected bool) string {
	node := item.node
	indent := strings.Repeat("  ", item.depth)

	var line string
	switch node.Kind {
	case NodeTable:
		icon := "▶ "
		if node.Expanded {
			icon = "▼ "
		}
		line = indent + icon + node.Name
	case NodeColumn:
		line = indent + "  " + node.Name + " " + theme.StyleMuted.Render(node.Detail)
	case NodeForeignKey:
		line = indent + "  " + theme.StyleMuted.Render("fk ") + node.Name + " → " + node.Detail
	}

	if m.width > 4 && lipgloss.Width(line) > m.width-2 {
		runes := []rune(node.Name)
		if len(runes) > m.width-6 && m.width > 8 {
			runes = runes[:m.width-8]
		}
		line = indent + "  " + string(runes) + ".."
	}

	if selected && m.focused {
		return theme.StyleSelected.Render(line)
	}
	return line
}
