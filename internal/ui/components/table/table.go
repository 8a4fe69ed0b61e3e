package table

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	bbtable "github.com/evertras/bubble-table/table"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/nhath/ezmongo/internal/db"
)

// Nord colors (matching OpenCode theme)
const (
	ColorForeground = "#D8DEE9" // Nord4: Light gray
	ColorComment    = "#4C566A" // Nord3: Dark gray
	ColorCyan       = "#88C0D0" // Nord8: Cyan blue
	ColorGreen      = "#A3BE8C" // Nord14: Green
	ColorOrange     = "#D08770" // Nord12: Orange
	ColorPink       = "#B48EAD" // Nord15: Pink
	ColorPurple     = "#B48EAD" // Nord15: Purple
	ColorRed        = "#BF616A" // Nord11: Red
	ColorYellow     = "#EBCB8B" // Nord13: Yellow
	ColorTeal       = "#8FBCBB" // Nord7: Teal
)

// RowIndexKey holds the position of a row's document in the result set.
// It is not a column, so it is never rendered.
const RowIndexKey = "__index"

// maxColumnWidth caps a column so one long field cannot push the rest off
// screen.
const maxColumnWidth = 40

// New creates a new bubble-table with Nord theme (no background)
func New(cols []bbtable.Column) bbtable.Model {
	return bbtable.New(cols).
		WithBaseStyle(lipgloss.NewStyle().
			Foreground(lipgloss.Color(ColorForeground))).
		HeaderStyle(lipgloss.NewStyle().
			Foreground(lipgloss.Color(ColorTeal)).
			Bold(true)).
		HighlightStyle(lipgloss.NewStyle().
			Foreground(lipgloss.Color(ColorGreen)).
			Bold(true)).
		Focused(true).
		BorderRounded()
}

// Columns returns the union of the top-level keys of docs in first-seen
// order, with _id always first when present.
func Columns(docs []db.Document) []string {
	seen := map[string]bool{}
	var cols []string
	for _, doc := range docs {
		for _, e := range doc {
			if !seen[e.Key] {
				seen[e.Key] = true
				cols = append(cols, e.Key)
			}
		}
	}
	if seen["_id"] && cols[0] != "_id" {
		out := []string{"_id"}
		for _, c := range cols {
			if c != "_id" {
				out = append(out, c)
			}
		}
		cols = out
	}
	return cols
}

// FromDocuments builds a table with one row per document and one column per
// top-level field. Fields a document lacks render empty.
func FromDocuments(docs []db.Document, pageSize int) bbtable.Model {
	headers := Columns(docs)
	if len(headers) == 0 {
		headers = []string{"result"}
	}

	rendered := make([][]string, len(docs))
	for i, doc := range docs {
		values := make(map[string]string, len(doc))
		for _, e := range doc {
			values[e.Key] = strings.ReplaceAll(db.RenderValue(e.Value), "\n", " ")
		}
		row := make([]string, len(headers))
		for j, h := range headers {
			row[j] = values[h]
		}
		rendered[i] = row
	}

	widths := calculateColumnWidths(headers, rendered)
	var cols []bbtable.Column
	for _, h := range headers {
		w := widths[h]
		if w > maxColumnWidth {
			w = maxColumnWidth
		}
		cols = append(cols, bbtable.NewColumn(h, h, w))
	}

	var rows []bbtable.Row
	for i, doc := range docs {
		rowData := bbtable.RowData{RowIndexKey: i}
		raw := make(map[string]interface{}, len(doc))
		for _, e := range doc {
			raw[e.Key] = e.Value
		}
		for j, h := range headers {
			v, ok := raw[h]
			if !ok {
				continue
			}
			rowData[h] = bbtable.NewStyledCell(rendered[i][j], ValueStyle(v))
		}
		rows = append(rows, bbtable.NewRow(rowData))
	}

	if pageSize <= 0 {
		pageSize = 20
	}
	return New(cols).
		WithRows(rows).
		WithPageSize(pageSize).
		WithHorizontalFreezeColumnCount(1)
}

// RowIndex returns the document position stored in row, or -1.
func RowIndex(row bbtable.Row) int {
	if i, ok := row.Data[RowIndexKey].(int); ok {
		return i
	}
	return -1
}

func calculateColumnWidths(headers []string, rows [][]string) map[string]int {
	widths := make(map[string]int)
	for _, h := range headers {
		widths[h] = lipgloss.Width(h)
	}

	for _, row := range rows {
		for i, val := range row {
			if i < len(headers) {
				if w := lipgloss.Width(val); w > widths[headers[i]] {
					widths[headers[i]] = w
				}
			}
		}
	}

	// Add padding
	for h := range widths {
		widths[h] += 2
	}

	return widths
}

// ValueStyle returns a lipgloss style for a BSON value based on its type.
func ValueStyle(v interface{}) lipgloss.Style {
	switch v.(type) {
	case nil, primitive.Null, primitive.Undefined:
		return lipgloss.NewStyle().Foreground(lipgloss.Color(ColorPink)).Italic(true)
	case primitive.ObjectID:
		return lipgloss.NewStyle().Foreground(lipgloss.Color(ColorCyan))
	case int32, int64, float64, primitive.Decimal128:
		return lipgloss.NewStyle().Foreground(lipgloss.Color(ColorPurple))
	case bool:
		return lipgloss.NewStyle().Foreground(lipgloss.Color(ColorOrange))
	case primitive.DateTime, primitive.Timestamp, time.Time:
		return lipgloss.NewStyle().Foreground(lipgloss.Color(ColorTeal))
	case primitive.D, primitive.M, primitive.A:
		return lipgloss.NewStyle().Foreground(lipgloss.Color(ColorComment))
	case string:
		return lipgloss.NewStyle().Foreground(lipgloss.Color(ColorYellow))
	}
	return GetValueStyle(fmt.Sprint(v))
}

// GetValueStyle returns a lipgloss style based on value content
func GetValueStyle(val string) lipgloss.Style {
	if val == "" || strings.ToLower(val) == "null" || val == "<nil>" {
		return lipgloss.NewStyle().Foreground(lipgloss.Color(ColorPink)).Italic(true)
	}
	if _, err := fmt.Sscanf(val, "%f", new(float64)); err == nil {
		return lipgloss.NewStyle().Foreground(lipgloss.Color(ColorPurple))
	}
	lower := strings.ToLower(val)
	if lower == "true" || lower == "false" {
		return lipgloss.NewStyle().Foreground(lipgloss.Color(ColorOrange))
	}
	return lipgloss.NewStyle().Foreground(lipgloss.Color(ColorYellow))
}
