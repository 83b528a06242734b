package parser

import (
	"regexp"
	"strconv"
	"strings"
)

const (
	// amountNumber accepts "1 234,56" style thousand groups before plain "1234.56".
	amountNumber = `(\d{1,3}(?:[ \x{00A0}\x{202F}]\d{3})+(?:[.,]\d{1,2})?|\d+(?:[.,]\d{1,2})?)`
	currencyMark = `(?:₽|руб|£|®)`

	minServiceAmount = 0.01
	maxServiceAmount = 1_000_000
)

var (
	reAmountCurrency = regexp.MustCompile(amountNumber + `\s*` + currencyMark)
	reAmountLabeled  = regexp.MustCompile(`(?i)(?:сумма|итого)[:\s;]+(\d{1,3}(?:[ \x{00A0}\x{202F}]\d{3})+(?:[.,]\d{1,2})?|\d+[.,]\d{1,2}|\d{2,}\s*$)`)
	reAmountBare     = regexp.MustCompile(`(\d{1,3}(?:[ \x{00A0}\x{202F}]\d{3})+[.,]\d{2}|\d+[.,]\d{2})(?:[^.,\d]|$)`)

	// reLeadingAmount marks lines that open with a figure, which never continue a name.
	reLeadingAmount = regexp.MustCompile(`^\d+[,.\d]*\s*` + currencyMark)
	// reNameAmount strips figures left inside reconstructed names.
	reNameAmount = regexp.MustCompile(`\s*\d+(?:[ \x{00A0}]\d{3})*(?:[.,]\d{1,2})?\s*` + currencyMark + `\.?`)
	reTrailingBare = regexp.MustCompile(`\s*\d{3,}[.,]\d{2}\s*$`)
	reTotalLabel   = regexp.MustCompile(`(?i)итого[:\s;]+` + amountNumber)

	reAmountShape = regexp.MustCompile(`^\d+(?:\.\d+)?$`)
	amountSpaces  = strings.NewReplacer(" ", "", "\u00a0", "", "\u202f", "")
)

// DefaultAmountPatterns is the ordered table used for totals and line items
// when the caller does not supply one. Every pattern captures the figure in group 1.
func DefaultAmountPatterns() []*regexp.Regexp {
	return []*regexp.Regexp{reAmountCurrency, reAmountLabeled, reAmountBare}
}

// NormalizeAmount turns an OCR figure into a dot-separated decimal string.
// Thousand-group spaces are dropped and a comma separator becomes a dot.
func NormalizeAmount(raw string) (string, bool) {
	s := amountSpaces.Replace(strings.TrimSpace(raw))
	s = strings.TrimRight(s, "₽руб.£®")
	s = strings.ReplaceAll(s, ",", ".")
	if s == "" || !reAmountShape.MatchString(s) {
		return "", false
	}
	return s, true
}

// amountHit is a normalized figure and the byte span of the whole match.
type amountHit struct {
	value      string
	start, end int
}

// matchAmount tries table in order and returns the first figure that normalizes.
func matchAmount(line string, table []*regexp.Regexp) (amountHit, bool) {
	for _, re := range table {
		loc := re.FindStringSubmatchIndex(line)
		if loc == nil || len(loc) < 4 || loc[2] < 0 {
			continue
		}
		if a, ok := NormalizeAmount(line[loc[2]:loc[3]]); ok {
			return amountHit{value: a, start: loc[0], end: loc[1]}, true
		}
	}
	return amountHit{}, false
}

// matchServiceAmount is matchAmount restricted to plausible line-item values.
func matchServiceAmount(line string, table []*regexp.Regexp) (amountHit, bool) {
	hit, ok := matchAmount(line, table)
	if !ok || !serviceAmountInRange(hit.value) {
		return amountHit{}, false
	}
	return hit, true
}

func serviceAmountInRange(a string) bool {
	v, err := strconv.ParseFloat(a, 64)
	if err != nil {
		return false
	}
	return v >= minServiceAmount && v < maxServiceAmount
}
