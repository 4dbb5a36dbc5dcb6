package table

import (
	"fmt"
	"html"
	"sort"
	"strconv"
	"strings"
)

// EmptyPlaceholder is rendered instead of a table when no rows are left
const EmptyPlaceholder = "<p>Нет данных для отображения</p>"

// RenderHTML renders the filtered rows as an HTML table. Labels and values
// are escaped. With addNumbering a leading "#" column holds the row position.
func (t *Table) RenderHTML(addNumbering bool) string {
	if len(t.filtered) == 0 {
		return EmptyPlaceholder
	}

	lines := make([]string, 0, len(t.filtered)+6)
	lines = append(lines, `<table class="data-table">`)

	var head strings.Builder
	head.WriteString("<thead><tr>")
	if addNumbering {
		head.WriteString(`<th class="number-col">#</th>`)
	}
	for _, f := range t.fields {
		head.WriteString("<th>" + html.EscapeString(f.Label) + "</th>")
	}
	head.WriteString("</tr></thead>")
	lines = append(lines, head.String(), "<tbody>")

	for i, row := range t.filtered {
		var tr strings.Builder
		tr.WriteString("<tr>")
		if addNumbering {
			tr.WriteString(`<td class="number-col">` + strconv.Itoa(i+1) + "</td>")
		}
		for _, f := range t.fields {
			tr.WriteString("<td>" + html.EscapeString(row.Value(f.Name)) + "</td>")
		}
		tr.WriteString("</tr>")
		lines = append(lines, tr.String())
	}

	lines = append(lines, "</tbody>", "</table>")

	return strings.Join(lines, "\n")
}

// Describe summarizes the active search and date filters, e.g.
// `Поиск: "abc"; Дата окончания: 01.06.2024 - 31.12.2024`. Filters are listed
// in field order. It returns an empty string when nothing is active.
func (t *Table) Describe() string {
	var parts []string

	if t.searchQuery != "" {
		parts = append(parts, fmt.Sprintf("Поиск: %q", t.searchQuery))
	}

	for _, f := range t.fields {
		filter, ok := t.filters[f.Name]
		if !ok {
			continue
		}

		parts = append(parts, describeFilter(f.Label, filter))
	}

	// Filters on fields outside the schema are still reported
	var unknown []string
	for name := range t.filters {
		if _, ok := lookupField(t.fields, name); !ok {
			unknown = append(unknown, name)
		}
	}
	sort.Strings(unknown)

	for _, name := range unknown {
		parts = append(parts, describeFilter(name, t.filters[name]))
	}

	return strings.Join(parts, "; ")
}

func describeFilter(label string, f Filter) string {
	if f.Type == FilterRange {
		return fmt.Sprintf("%s: %s - %s", label, f.Start, f.End)
	}

	return fmt.Sprintf("%s: %s", label, f.Value)
}
