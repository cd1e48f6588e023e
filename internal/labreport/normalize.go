package labreport

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"

	"github.com/joseph-ayodele/labex-extractor/constants"
)

// artifacts are encoding leftovers that fuse with unit text.
var artifacts = strings.NewReplacer(
	"\u00b0", " ",
	"\u00ba", " ",
	"\u00a0", " ",
	"\u00ad", " ",
	"\t", "  ",
	"\r\n", "\n",
	"\r", "\n",
)

var (
	caseBoundary  = regexp.MustCompile(`([\p{Ll}\p{Nd}])(\p{Lu})`)
	trailingSpace = regexp.MustCompile(`[ \t]+(\n|$)`)
	blankRuns     = regexp.MustCompile(`\n{2,}`)
)

// Normalize repairs the whitespace and line-break damage of PDF text
// extraction using the rules of the given family. It never fails: labels
// missing from raw are simply not moved.
func Normalize(raw string, family constants.Family) string {
	return normalizeWith(raw, ProfileFor(family))
}

func normalizeWith(raw string, p *Profile) string {
	s := norm.NFC.String(raw)
	s = artifacts.Replace(s)
	s = caseBoundary.ReplaceAllString(s, "$1\n$2")
	s = trailingSpace.ReplaceAllString(s, "$1")
	s = blankRuns.ReplaceAllString(s, "\n")
	for _, re := range p.lineLabels {
		s = breakBefore(s, re)
	}
	return s
}

// breakBefore moves every match of label to the start of its own line,
// dropping the horizontal space in front of it. Matches glued to a
// preceding letter belong to a longer word and are left alone.
func breakBefore(s string, label *regexp.Regexp) string {
	locs := label.FindAllStringIndex(s, -1)
	if len(locs) == 0 {
		return s
	}

	var b strings.Builder
	b.Grow(len(s) + len(locs))
	last := 0
	for _, loc := range locs {
		start := loc[0]
		if gluedToWord(s[:start]) {
			continue
		}
		ws := start
		for ws > last && (s[ws-1] == ' ' || s[ws-1] == '\t') {
			ws--
		}
		b.WriteString(s[last:ws])
		if ws > 0 && s[ws-1] != '\n' {
			b.WriteByte('\n')
		}
		last = start
	}
	b.WriteString(s[last:])
	return b.String()
}

func gluedToWord(prefix string) bool {
	if prefix == "" {
		return false
	}
	r, _ := utf8.DecodeLastRuneInString(prefix)
	return unicode.IsLetter(r)
}
