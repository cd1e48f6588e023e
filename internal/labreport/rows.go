package labreport

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// columnGap is the delimiter between cells: two or more spaces.
var columnGap = regexp.MustCompile(` {2,}`)

// columnSep joins wrapped physical lines; a wrap always ends a cell.
const columnSep = "  "

// ExtractRows groups the physical lines of the analysis zone into logical
// rows and splits each one into exactly schema.Width() cells.
func ExtractRows(text string, schema Schema) []Row {
	rows := make([]Row, 0)
	for _, logical := range groupLines(text, schema.Width()) {
		cells := columnGap.Split(logical, -1)
		if schema.isHeading(cells) {
			continue
		}
		rows = append(rows, schema.fit(cells))
	}
	return rows
}

// groupLines joins continuation lines onto the open row. An uppercase first
// letter always opens a row. A lowercase one continues the open row while it
// is still short of width cells and opens a new row otherwise. Any other
// line continues; lines before the first row are orphans.
func groupLines(text string, width int) []string {
	var (
		out   []string
		buf   []string
		cells int
	)
	flush := func() {
		if len(buf) > 0 {
			out = append(out, strings.Join(buf, columnSep))
			buf = buf[:0]
			cells = 0
		}
	}
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		switch r, _ := utf8.DecodeRuneInString(line); {
		case unicode.IsUpper(r):
			flush()
		case unicode.IsLower(r):
			if len(buf) > 0 && cells < width {
				break
			}
			flush()
		default:
			if len(buf) == 0 {
				continue
			}
		}
		buf = append(buf, line)
		cells += len(columnGap.Split(line, -1))
	}
	flush()
	return out
}

// anchoredRows runs an anchor pass over each zone in turn. Every match
// becomes its own row with the captured values placed at the pass offset.
func anchoredRows(pass anchorPass, width int, zones ...string) []Row {
	var rows []Row
	for _, zone := range zones {
		for _, m := range pass.re.FindAllStringSubmatch(zone, -1) {
			values := make(Row, 0, len(m)-1)
			for _, v := range m[1:] {
				values = append(values, strings.Join(strings.Fields(v), " "))
			}
			rows = append(rows, values.place(width, pass.offset))
		}
	}
	return rows
}
