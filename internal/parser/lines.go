package parser

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

var (
	reEnumerator  = regexp.MustCompile(`^\d+[.)]\s*`)
	reEnumComma   = regexp.MustCompile(`^\d+,\s*`)
	reLeadingDash = regexp.MustCompile(`^\s*[—\-]\s*`)
	rePureNumeral = regexp.MustCompile(`^\d+[.)]?\s*$`)
	reSpaces      = regexp.MustCompile(`\s+`)
	reNewline     = regexp.MustCompile(`\r?\n`)
)

// lineSet records which line indices have been committed to an item.
type lineSet map[int]struct{}

func (s lineSet) has(i int) bool {
	_, ok := s[i]
	return ok
}

func (s lineSet) add(from, to int) {
	for i := from; i <= to; i++ {
		s[i] = struct{}{}
	}
}

func (s lineSet) merge(o lineSet) {
	for i := range o {
		s[i] = struct{}{}
	}
}

// cursor is the fixed line array one Parse call works on. lines are trimmed
// and corrected; low holds their lower-case forms. consumed is shared by the
// service strategies and grows only when an item is committed. pending is the
// unfinished item the marker scan hands to the total rescue.
type cursor struct {
	lines    []string
	low      []string
	consumed lineSet
	pending  *pendingItem
}

func newCursor(raw []string) *cursor {
	c := &cursor{
		lines:    make([]string, len(raw)),
		low:      make([]string, len(raw)),
		consumed: lineSet{},
	}
	for i, l := range raw {
		l = Correct(ScopeLine, strings.TrimSpace(l))
		c.lines[i] = l
		c.low[i] = strings.ToLower(l)
	}
	return c
}

func (c *cursor) len() int { return len(c.lines) }

func (c *cursor) line(i int) string {
	if i < 0 || i >= len(c.lines) {
		return ""
	}
	return c.lines[i]
}

func (c *cursor) lower(i int) string {
	if i < 0 || i >= len(c.low) {
		return ""
	}
	return c.low[i]
}

// SplitLines breaks recognized text into the line array Parse expects.
func SplitLines(text string) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	return reNewline.Split(text, -1)
}

func containsAny(s string, words ...string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}

func runeLen(s string) int { return utf8.RuneCountInString(s) }

func stripEnumerator(s string) string {
	s = reEnumerator.ReplaceAllString(s, "")
	s = reEnumComma.ReplaceAllString(s, "")
	return strings.TrimSpace(s)
}

func collapseSpaces(s string) string {
	return strings.TrimSpace(reSpaces.ReplaceAllString(s, " "))
}
