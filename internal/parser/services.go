package parser

import (
	"regexp"
	"strings"
)

// sectionState is the walk state of the sectioned strategy.
type sectionState int

const (
	stateIdle sectionState = iota
	stateInSection
	stateAccumulating
)

const (
	maxItemParts     = 5
	maxFollowLines   = 3
	shortLineRunes   = 20
	shortNameRunes   = 10
	partialNameRunes = 20
)

var (
	reWorkDash       = regexp.MustCompile(`(?i)\s+работ\s*[—\-‣]\s*`)
	reDoubleIn       = regexp.MustCompile(`(?i)\s+в\s+в\s+`)
	reServiceWord    = regexp.MustCompile(`(?i)\s+сервисе\s+`)
	reTrailingJoiner = regexp.MustCompile(`(?:\s+и|\s*[—\-‣])\s*$`)
	reLeadingNumber  = regexp.MustCompile(`^\d+\s+`)
)

var (
	stopWords     = []string{"итого", "режим", "инн", "покупател", "формировател"}
	partyWords    = []string{"покупател", "продавец", "формировател", "инн", "режим", "итого"}
	continuations = []string{"оказание", "услуг", "сервисе", "etxt", "етxt"}
)

func isSectionHeader(low string) bool {
	return strings.Contains(low, "наименование") ||
		(strings.Contains(low, "услуга") && !strings.Contains(low, "товар"))
}

func isSectionEnd(low string) bool {
	return strings.Contains(low, "итого") || strings.Contains(low, "всего")
}

func isWorkMarker(low string) bool {
	return strings.Contains(low, "выполнение") && strings.Contains(low, "работ")
}

func isHeaderLine(low string) bool {
	return low == "сумма" || low == "наименование" || strings.Contains(low, "наименование сумма")
}

// isContinuation reports whether low reads as the next fragment of an item
// whose last collected part is prev.
func isContinuation(low, prev string) bool {
	if containsAny(low, continuations...) {
		return true
	}
	prev = strings.ToLower(prev)
	return strings.Contains(low, "в") && containsAny(prev, "оказание", "услуг")
}

// isTrailingFragment matches the short "оказание услуг в" / "сервисе eTXT"
// pieces that belong to a work item started on the previous line.
func (c *cursor) isTrailingFragment(i int) bool {
	low := c.lower(i)
	short := runeLen(low) < shortLineRunes
	fragment := (strings.Contains(low, "сервисе") && strings.Contains(low, "etxt") && short) ||
		(strings.Contains(low, "оказание") && strings.Contains(low, "услуг") && strings.Contains(low, "в") && short)
	return fragment && isWorkMarker(c.lower(i-1))
}

// CleanServiceName applies the name corrections shared by every strategy.
func CleanServiceName(s string) string {
	s = stripEnumerator(s)
	s = reLeadingDash.ReplaceAllString(s, "")
	s = Correct(ScopeService, s)
	s = reWorkDash.ReplaceAllString(s, " работ и ")
	s = reDoubleIn.ReplaceAllString(s, " в ")
	s = reDoubleIn.ReplaceAllString(s, " в ")
	if !strings.Contains(s, "в сервисе") && strings.Contains(s, "сервисе") {
		s = reServiceWord.ReplaceAllString(s, " в сервисе ")
	}
	s = reNameAmount.ReplaceAllString(s, "")
	s = reTrailingBare.ReplaceAllString(s, "")
	s = collapseSpaces(s)
	return strings.TrimSpace(reTrailingJoiner.ReplaceAllString(s, ""))
}

// strategy reconstructs items from the cursor, committing the lines it uses.
type strategy struct {
	name string
	run  func(c *cursor, table []*regexp.Regexp) []Service
}

// serviceStrategies run in order; the first non-empty result wins.
var serviceStrategies = []strategy{
	{name: "section", run: sectionWalk},
	{name: "marker", run: markerScan},
	{name: "total-rescue", run: totalRescue},
	{name: "keyword", run: keywordPairing},
}

// sectionWalk is the primary strategy: a left-to-right pass that only reads
// lines inside a line-items section.
func sectionWalk(c *cursor, table []*regexp.Regexp) []Service {
	var out []Service
	state := stateIdle
	for i := 0; i < c.len(); {
		low := c.lower(i)
		if isSectionHeader(low) {
			state = stateInSection
			i++
			continue
		}
		if isWorkMarker(low) {
			state = stateAccumulating
		}
		if isSectionEnd(low) {
			state = stateIdle
			i++
			continue
		}
		if state == stateIdle || low == "" || isHeaderLine(low) || c.consumed.has(i) {
			if state == stateAccumulating {
				state = stateInSection
			}
			i++
			continue
		}

		// An accumulated item, or a marker line that failed to accumulate,
		// leaves the walk inside the section.
		if state == stateAccumulating {
			item, next, ok := c.accumulateWork(i, table)
			state = stateInSection
			if ok {
				out = append(out, item)
				i = next
				continue
			}
		}

		if strings.HasPrefix(low, "сумма") {
			item, next, ok := c.labelThenValue(i, table)
			if ok {
				out = append(out, item)
			}
			i = next
			continue
		}

		if strings.HasPrefix(low, "наименование") || c.isTrailingFragment(i) {
			i++
			continue
		}

		item, next, ok := c.lineItem(i, table)
		if ok {
			out = append(out, item)
		}
		i = next
	}
	return out
}

// accumulateWork builds a multi-line "performance of work" item starting at
// start. It returns the item and the index after the last line it used.
func (c *cursor) accumulateWork(start int, table []*regexp.Regexp) (Service, int, bool) {
	used := lineSet{}
	used.add(start, start)

	head := stripEnumerator(c.line(start))
	var amount string
	hit, found := matchServiceAmount(head, table)
	if found {
		amount = hit.value
		head = strings.TrimSpace(reTrailingJoiner.ReplaceAllString(head[:hit.start], ""))
	}
	var parts []string
	if head != "" {
		parts = append(parts, head)
	} else if fallback := CleanServiceName(c.line(start)); strings.Contains(strings.ToLower(fallback), "выполнение") {
		parts = append(parts, fallback)
	}

	j := start + 1
	for j < c.len() && len(parts) < maxItemParts {
		next, low := c.line(j), c.lower(j)
		if containsAny(low, stopWords...) {
			break
		}
		if next == "" || rePureNumeral.MatchString(next) {
			j++
			continue
		}
		if len(parts) > 0 && isContinuation(low, parts[len(parts)-1]) {
			parts = append(parts, next)
			used.add(j, j)
			j++
			continue
		}
		if !found {
			if h, ok := matchServiceAmount(next, []*regexp.Regexp{reAmountCurrency}); ok {
				amount, found = h.value, true
				used.add(j, j)
				j++
			}
			break
		}
		if len(parts) > 0 && runeLen(next) < shortLineRunes && !reLeadingAmount.MatchString(next) {
			parts = append(parts, next)
			used.add(j, j)
			j++
			continue
		}
		break
	}

	if !found {
		amount, found = c.totalNear(j, maxFollowLines, table)
	}
	name := CleanServiceName(strings.Join(parts, " "))
	if !found || runeLen(name) <= 5 {
		return Service{}, start + 1, false
	}
	c.consumed.merge(used)
	return Service{Name: name, Amount: amount}, j, true
}

// totalNear looks for a total line in [from, from+span) and returns its figure.
func (c *cursor) totalNear(from, span int, table []*regexp.Regexp) (string, bool) {
	for k := from; k < from+span && k < c.len(); k++ {
		if !strings.Contains(c.lower(k), "итого") {
			continue
		}
		if h, ok := matchServiceAmount(c.line(k), table); ok {
			return h.value, true
		}
	}
	return "", false
}

// labelThenValue handles an "amount:" label followed by the figure within
// three lines. Lines between the label and the figure, and after the figure
// up to the next total, form the name.
func (c *cursor) labelThenValue(i int, table []*regexp.Regexp) (Service, int, bool) {
	amountLine, amount := -1, ""
	for j := i + 1; j <= i+maxFollowLines && j < c.len(); j++ {
		if h, ok := matchAmount(c.line(j), table); ok {
			amountLine, amount = j, h.value
			break
		}
	}
	if amountLine < 0 {
		return Service{}, i + 1, false
	}

	used := lineSet{}
	var parts []string
	for j := i + 1; j < amountLine; j++ {
		l, low := c.line(j), c.lower(j)
		if l != "" && !strings.HasPrefix(low, "сумма") && !reLeadingAmount.MatchString(l) {
			parts = append(parts, l)
			used.add(j, j)
		}
	}
	for j := amountLine + 1; j < c.len(); j++ {
		l, low := c.line(j), c.lower(j)
		if isSectionEnd(low) {
			break
		}
		if l == "" || rePureNumeral.MatchString(l) || reLeadingAmount.MatchString(l) {
			continue
		}
		if !strings.HasPrefix(low, "сумма") && !strings.HasPrefix(low, "наименование") {
			parts = append(parts, l)
			used.add(j, j)
		}
	}
	if len(parts) == 0 {
		return Service{}, i + 1, false
	}

	name := CleanServiceName(reLeadingNumber.ReplaceAllString(strings.Join(parts, " "), ""))
	low := strings.ToLower(name)
	if runeLen(name) <= 3 || containsAny(low, partyWords...) || strings.Contains(low, "сумма") {
		return Service{}, i + 1, false
	}
	used.add(i, amountLine)
	c.consumed.merge(used)
	return Service{Name: name, Amount: amount}, amountLine + 1, true
}

// lineItem handles any other in-section line: an inline figure, or a figure
// on the following line.
func (c *cursor) lineItem(i int, table []*regexp.Regexp) (Service, int, bool) {
	line := c.line(i)
	if hit, ok := matchAmount(line, table); ok {
		amount := hit.value
		name := strings.TrimSpace(reLeadingDash.ReplaceAllString(stripEnumerator(line[:hit.start]), ""))
		used := lineSet{}
		used.add(i, i)
		if isWorkMarker(strings.ToLower(name)) {
			name = c.followContinuations(i, name, used, "наименование")
		} else {
			name = c.mergeNeighbours(i, name, used)
		}
		if !plausibleName(name) || !serviceAmountInRange(amount) {
			return Service{}, i + 1, false
		}
		c.consumed.merge(used)
		return Service{Name: CleanServiceName(name), Amount: amount}, i + 1, true
	}

	hit, ok := matchAmount(c.line(i+1), table)
	if !ok {
		return Service{}, i + 1, false
	}
	amount := hit.value
	// A figure on the total line pairs with this name but still closes the section.
	next := i + 2
	closing := isSectionEnd(c.lower(i + 1))
	if closing {
		next = i + 1
	}
	name := stripEnumerator(line)
	used := lineSet{}
	used.add(i, i+1)
	if !closing && containsAny(c.lower(i+2), "оказание", "услуг", "сервисе", "etxt") && !isSectionEnd(c.lower(i+2)) {
		name += " " + c.line(i+2)
		used.add(i+2, i+2)
	}
	if !plausibleName(name) || strings.Contains(strings.ToLower(name), "сумма") || !serviceAmountInRange(amount) {
		return Service{}, next, false
	}
	c.consumed.merge(used)
	return Service{Name: CleanServiceName(name), Amount: amount}, next, true
}

func plausibleName(name string) bool {
	low := strings.ToLower(name)
	return runeLen(name) > 3 && !strings.HasPrefix(low, "сумма") && !containsAny(low, partyWords...)
}

// followContinuations appends continuation lines after i to name until a stop
// line or the part limit.
func (c *cursor) followContinuations(i int, name string, used lineSet, extraStops ...string) string {
	parts := []string{name}
	stops := append(append([]string{}, stopWords...), extraStops...)
	for j := i + 1; j < c.len() && len(parts) < maxItemParts; j++ {
		next, low := c.line(j), c.lower(j)
		if containsAny(low, stops...) {
			break
		}
		if next == "" || rePureNumeral.MatchString(next) {
			continue
		}
		if isContinuation(low, parts[len(parts)-1]) ||
			(runeLen(next) < shortLineRunes && !reLeadingAmount.MatchString(next)) {
			parts = append(parts, next)
			used.add(j, j)
			continue
		}
		break
	}
	return strings.Join(parts, " ")
}

// mergeNeighbours completes a suspiciously short name from adjacent lines that
// carry work or service markers.
func (c *cursor) mergeNeighbours(i int, name string, used lineSet) string {
	if runeLen(name) < shortNameRunes && containsAny(c.lower(i-1), "выполнение", "работ", "оказание", "услуг") && !c.consumed.has(i-1) {
		name = c.line(i-1) + " " + name
		used.add(i-1, i-1)
		if containsAny(c.lower(i-2), "выполнение", "работ") && !c.consumed.has(i-2) {
			name = c.line(i-2) + " " + name
			used.add(i-2, i-2)
		}
	}
	if runeLen(name) < partialNameRunes && containsAny(c.lower(i+1), continuations...) && !isSectionEnd(c.lower(i+1)) {
		name += " " + c.line(i+1)
		used.add(i+1, i+1)
		if containsAny(c.lower(i+2), "сервисе", "etxt", "етxt") && !isSectionEnd(c.lower(i+2)) {
			name += " " + c.line(i+2)
			used.add(i+2, i+2)
		}
	}
	return name
}
