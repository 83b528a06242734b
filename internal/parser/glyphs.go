package parser

import "strings"

// GlyphTableVersion identifies the correction table below. Bump it whenever an
// entry is added, removed or reordered so stored records can be re-parsed.
const GlyphTableVersion = 3

// Scope selects which text a glyph correction applies to.
type Scope uint8

const (
	// ScopeLine corrections run on every input line before classification.
	ScopeLine Scope = 1 << iota
	// ScopeService corrections run on reconstructed service names.
	ScopeService
	// ScopePlatform corrections run on the issuing-platform value.
	ScopePlatform
)

// Glyph is one garbled-token to canonical-token substitution.
type Glyph struct {
	From  string
	To    string
	Scope Scope
}

// GlyphTable is applied in order; earlier entries win on overlapping input.
var GlyphTable = []Glyph{
	{From: "усЛ;г", To: "услуг", Scope: ScopeLine | ScopeService},
	{From: "еTхТ", To: "еТXT", Scope: ScopeLine | ScopeService},
	{From: "еTXT", To: "еТXT", Scope: ScopeLine | ScopeService},
	{From: "Cymma", To: "Сумма", Scope: ScopeLine | ScopeService},
	{From: "cymma", To: "Сумма", Scope: ScopeLine | ScopeService},
	{From: "работи", To: "работ", Scope: ScopeService},
	{From: "‣", To: "и", Scope: ScopeService},
	{From: "£", To: "", Scope: ScopeService},
	{From: ";", To: "", Scope: ScopeService},
	{From: "mопеу", To: "money", Scope: ScopePlatform},
	{From: "Mопеу", To: "Money", Scope: ScopePlatform},
	{From: "mонеу", To: "money", Scope: ScopePlatform},
	{From: "Mонеу", To: "Money", Scope: ScopePlatform},
}

var replacers = map[Scope]*strings.Replacer{
	ScopeLine:     buildReplacer(ScopeLine),
	ScopeService:  buildReplacer(ScopeService),
	ScopePlatform: buildReplacer(ScopePlatform),
}

func buildReplacer(scope Scope) *strings.Replacer {
	var pairs []string
	for _, g := range GlyphTable {
		if g.Scope&scope != 0 {
			pairs = append(pairs, g.From, g.To)
		}
	}
	return strings.NewReplacer(pairs...)
}

// Correct applies every table entry registered for scope to s.
func Correct(scope Scope, s string) string {
	r, ok := replacers[scope]
	if !ok {
		return s
	}
	return r.Replace(s)
}
