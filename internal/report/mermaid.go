package report

import (
	"fmt"
	"strings"
	"unicode"

	"askdb/internal/adapter"
)

// MermaidER renders tables as a Mermaid erDiagram. Relationships come from
// declared foreign keys; ingested files have none, so they only get entities.
func MermaidER(tables []*adapter.TableDescriptor) string {
	var sb strings.Builder
	sb.WriteString("erDiagram\n")

	seen := make(map[string]bool) // dedup
	for _, t := range tables {
		for _, fk := range t.ForeignKeys {
			key := fk.RefTable + "|" + t.Name + "|" + fk.Column
			if seen[key] {
				continue
			}
			seen[key] = true
			// ||--o{ 一对多
			fmt.Fprintf(&sb, "    %s ||--o{ %s : %q\n", entity(fk.RefTable), entity(t.Name), fk.Column)
		}
	}

	for _, t := range tables {
		fks := make(map[string]bool, len(t.ForeignKeys))
		for _, fk := range t.ForeignKeys {
			fks[fk.Column] = true
		}

		fmt.Fprintf(&sb, "    %s {\n", entity(t.Name))
		for _, c := range t.Columns {
			var tags []string
			if c.PrimaryKey {
				tags = append(tags, "PK")
			}
			if fks[c.Name] {
				tags = append(tags, "FK")
			}
			line := simplifyType(c.Type) + " " + entity(c.Name)
			if len(tags) > 0 {
				line += " " + strings.Join(tags, ",")
			}
			fmt.Fprintf(&sb, "        %s\n", line)
		}
		sb.WriteString("    }\n")
	}
	return sb.String()
}

// entity makes a name safe for Mermaid, which only accepts word characters
// and hyphens in identifiers.
func entity(name string) string {
	out := []rune(name)
	for i, r := range out {
		if r != '-' && r != '_' && !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			out[i] = '_'
		}
	}
	if len(out) == 0 {
		return "_"
	}
	return string(out)
}

// simplifyType maps a declared column type onto a short Mermaid attribute type.
func simplifyType(declared string) string {
	t := strings.ToLower(declared)
	switch {
	case t == "":
		return "any"
	case strings.Contains(t, "int"):
		return "int"
	case strings.Contains(t, "char"), strings.Contains(t, "clob"):
		return "string"
	case strings.Contains(t, "text"):
		return "text"
	case strings.Contains(t, "real"), strings.Contains(t, "floa"), strings.Contains(t, "doub"),
		strings.Contains(t, "numeric"), strings.Contains(t, "decimal"):
		return "float"
	case strings.Contains(t, "date"), strings.Contains(t, "time"):
		return "datetime"
	case strings.Contains(t, "bool"):
		return "boolean"
	case strings.Contains(t, "blob"), strings.Contains(t, "binary"), strings.Contains(t, "bytea"):
		return "blob"
	}
	return "string"
}
