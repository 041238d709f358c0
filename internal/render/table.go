package render

import (
	"fmt"
	"html"
	"io"
	"strings"

	"github.com/EO-DataHub/eodhp-groupmatrix/internal/matrix"
)

// TableClass is always set on rendered tables so the wiki's table styles apply.
const TableClass = "inline"

// GroupCellClass centers the membership marker in group columns.
const GroupCellClass = "centeralign"

// Table writes m as an HTML table to w. Headers are written as configured by
// the page author; cell values come from the directory and are escaped.
func Table(w io.Writer, m matrix.Matrix, class string) error {
	var b strings.Builder

	b.WriteString(`<table class="`)
	b.WriteString(tableClass(class))
	b.WriteString(`">`)

	b.WriteString("<thead><tr>")
	for _, header := range m.Headers {
		b.WriteString("<th>")
		b.WriteString(header)
		b.WriteString("</th>")
	}
	b.WriteString("</tr></thead>")

	b.WriteString("<tbody>")
	for _, row := range m.Rows {
		b.WriteString("<tr>")
		for _, attribute := range m.Attributes {
			b.WriteString("<td>")
			b.WriteString(esc(row.Attributes[attribute]))
			b.WriteString("</td>")
		}
		for _, group := range m.Groups {
			b.WriteString(`<td class="` + GroupCellClass + `">`)
			b.WriteString(esc(row.Groups[group]))
			b.WriteString("</td>")
		}
		b.WriteString("</tr>")
	}
	b.WriteString("</tbody>")
	b.WriteString("</table>")

	if _, err := io.WriteString(w, b.String()); err != nil {
		return fmt.Errorf("failed to write table: %w", err)
	}
	return nil
}

func tableClass(extra string) string {
	extra = strings.TrimSpace(extra)
	if extra == "" {
		return TableClass
	}
	return TableClass + " " + esc(extra)
}

func esc(s string) string {
	return html.EscapeString(s)
}
