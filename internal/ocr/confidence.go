package ocr

import (
	"regexp"
	"strings"
)

var (
	reDate   = regexp.MustCompile(`\d{1,2}[.,]\d{1,2}[.,]\d{2,4}`)
	reCurr   = regexp.MustCompile(`₽|руб`)
	reAmount = regexp.MustCompile(`\d+[.,]\d{2}`)
	reTaxID  = regexp.MustCompile(`инн|\d{12}`)
	reTotal  = regexp.MustCompile(`итого|всего`)
)

// heuristicConfidence scores decoded text by the artifacts every fiscal
// receipt carries. It is a rough 0..1 signal, not a probability.
func heuristicConfidence(txt string) float32 {
	txtL := strings.ToLower(txt)
	score := float32(0.2) // base
	if reDate.MatchString(txtL) {
		score += 0.2
	}
	if reCurr.MatchString(txtL) {
		score += 0.1
	}
	if reAmount.MatchString(txtL) {
		score += 0.15
	}
	if reTaxID.MatchString(txtL) {
		score += 0.15
	}
	if reTotal.MatchString(txtL) {
		score += 0.1
	}
	if len([]rune(txt)) > 120 {
		score += 0.1
	}
	if score > 1.0 {
		score = 1.0
	}
	return score
}
