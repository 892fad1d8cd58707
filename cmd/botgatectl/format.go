package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"
)

const (
	ansiReset  = "\x1b[0m"
	ansiGreen  = "\x1b[32m"
	ansiRed    = "\x1b[31m"
	ansiYellow = "\x1b[33m"
)

// Gateway states the CLI prints, grouped by colour.
var stateColors = map[string]string{
	"ok":       ansiGreen,
	"running":  ansiGreen,
	"replied":  ansiGreen,
	"routable": ansiGreen,
	"invalid":  ansiRed,
	"rejected": ansiRed,
	"down":     ansiRed,
	"apology":  ansiYellow,
	"ignored":  ansiYellow,
	"open":     ansiYellow,
	"off":      ansiYellow,
}

// ColorState paints a gateway state word. Unknown words are left plain.
func ColorState(state string) string {
	if c, ok := stateColors[strings.ToLower(state)]; ok {
		return c + state + ansiReset
	}
	return state
}

// table collects rows and prints them with columns padded to the widest
// visible cell. Colour escapes do not count towards width.
type table struct {
	headers []string
	rows    [][]string
}

func newTable(headers ...string) *table {
	return &table{headers: headers}
}

func (t *table) add(cells ...string) {
	t.rows = append(t.rows, cells)
}

func (t *table) write(out io.Writer) {
	widths := make([]int, len(t.headers))
	for i, h := range t.headers {
		widths[i] = len(h)
	}
	for _, row := range t.rows {
		for i := 0; i < len(row) && i < len(widths); i++ {
			widths[i] = max(widths[i], visibleLen(row[i]))
		}
	}

	rule := make([]string, len(widths))
	for i, w := range widths {
		rule[i] = strings.Repeat("-", w)
	}
	writeCells(out, t.headers, widths)
	fmt.Fprintln(out, strings.Join(rule, "  "))
	for _, row := range t.rows {
		writeCells(out, row, widths)
	}
}

func writeCells(out io.Writer, cells []string, widths []int) {
	var b strings.Builder
	for i, w := range widths {
		cell := ""
		if i < len(cells) {
			cell = cells[i]
		}
		if i > 0 {
			b.WriteString("  ")
		}
		b.WriteString(cell)
		if i < len(widths)-1 {
			b.WriteString(strings.Repeat(" ", max(0, w-visibleLen(cell))))
		}
	}
	fmt.Fprintln(out, b.String())
}

// visibleLen counts runes outside ANSI escape sequences.
func visibleLen(s string) int {
	n := 0
	inEscape := false
	for _, r := range s {
		switch {
		case inEscape:
			inEscape = r != 'm'
		case r == '\x1b':
			inEscape = true
		default:
			n++
		}
	}
	return n
}

// PrintJSON writes v indented, for --json output.
func PrintJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// Truncate shortens s to max runes, marking the cut with an ellipsis.
func Truncate(s string, max int) string {
	if max <= 0 {
		return ""
	}
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	if max == 1 {
		return string(r[:1])
	}
	return string(r[:max-1]) + "…"
}

// FormatMillis renders a status timestamp; Bot API dates go through FormatUnix.
func FormatMillis(ms int64) string {
	if ms <= 0 {
		return "-"
	}
	return time.UnixMilli(ms).UTC().Format(time.DateTime)
}

func FormatUnix(sec int64) string {
	if sec <= 0 {
		return "-"
	}
	return time.Unix(sec, 0).UTC().Format(time.DateTime)
}

// idOrDash prints a Telegram ID. Telegram never issues 0, so it means absent.
func idOrDash(id int64) string {
	if id == 0 {
		return "-"
	}
	return strconv.FormatInt(id, 10)
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
