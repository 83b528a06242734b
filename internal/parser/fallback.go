package parser

import (
	"regexp"
	"strings"
)

// markerAmounts is the figure table the marker scan reads inline amounts with.
var markerAmounts = []*regexp.Regexp{reAmountCurrency, reAmountBare}

var markerStops = []string{"итого", "всего", "режим", "инн", "покупател", "формировател"}

// pendingItem is a service the marker scan is still assembling.
type pendingItem struct {
	parts  []string
	amount string
	used   lineSet
	closed bool
}

func (p *pendingItem) name() string {
	return CleanServiceName(strings.Join(p.parts, " "))
}

// next is the first line after the last one the item used.
func (p *pendingItem) next() int {
	n := 0
	for i := range p.used {
		if i >= n {
			n = i + 1
		}
	}
	return n
}

// markerScan is used when no line-items section is found. It starts an item
// at every "выполнение"/"оказание" line and closes it at the first figure.
// An item still missing its figure at a stop line is left in c.pending.
func markerScan(c *cursor, _ []*regexp.Regexp) []Service {
	var out []Service
	var p *pendingItem
	for i := 0; i < c.len(); i++ {
		if c.consumed.has(i) {
			continue
		}
		line, low := c.line(i), c.lower(i)
		opens := containsAny(low, "выполнение", "оказание")

		if p == nil || p.closed || (isWorkMarker(low) && len(p.parts) > 0) {
			if !opens {
				continue
			}
			p = startPending(line, i)
			if p.amount != "" {
				c.extendPending(p, i+1)
				out = c.commitPending(out, p)
				p = nil
			}
			continue
		}

		switch {
		case containsAny(low, markerStops...):
			p.closed = true
		case line == "" || rePureNumeral.MatchString(line):
		default:
			if hit, ok := matchServiceAmount(line, markerAmounts); ok {
				p.amount = hit.value
				p.used.add(i, i)
				if rest := strings.TrimSpace(line[:hit.start]); rest != "" && !reLeadingAmount.MatchString(line) {
					p.parts = append(p.parts, rest)
				}
				c.extendPending(p, i+1)
				out = c.commitPending(out, p)
				p = nil
				continue
			}
			p.parts = append(p.parts, line)
			p.used.add(i, i)
		}
	}
	if p != nil && p.amount == "" && len(p.parts) > 0 {
		c.pending = p
	}
	return out
}

func startPending(line string, i int) *pendingItem {
	p := &pendingItem{used: lineSet{}}
	p.used.add(i, i)
	line = stripEnumerator(line)
	if hit, ok := matchServiceAmount(line, markerAmounts); ok {
		p.amount = hit.value
		line = line[:hit.start] + " " + line[hit.end:]
	}
	line = strings.TrimSpace(reTrailingJoiner.ReplaceAllString(strings.TrimSpace(line), ""))
	line = strings.TrimSpace(reLeadingDash.ReplaceAllString(line, ""))
	if line != "" {
		p.parts = append(p.parts, line)
	}
	return p
}

// extendPending collects up to maxFollowLines continuation lines from i on.
func (c *cursor) extendPending(p *pendingItem, i int) {
	for j := i; j < c.len() && j < i+maxFollowLines; j++ {
		line, low := c.line(j), c.lower(j)
		if c.consumed.has(j) || isSectionEnd(low) || strings.Contains(low, "режим") {
			return
		}
		if _, ok := matchAmount(line, markerAmounts); ok {
			return
		}
		if !containsAny(low, "оказание", "сервисе", "выполнение", "работ", "услуг", "etxt", "етxt") {
			return
		}
		p.parts = append(p.parts, line)
		p.used.add(j, j)
	}
}

// commitPending appends p to out, folding it into an earlier item with the
// same figure whose name contains or is contained in p's.
func (c *cursor) commitPending(out []Service, p *pendingItem) []Service {
	name := p.name()
	if runeLen(name) <= 5 || !serviceAmountInRange(p.amount) {
		return out
	}
	c.consumed.merge(p.used)
	return mergeService(out, Service{Name: name, Amount: p.amount})
}

// totalRescue completes the item the marker scan left open with the figure on
// the first total line after it that carries one.
func totalRescue(c *cursor, table []*regexp.Regexp) []Service {
	p := c.pending
	if p == nil || p.amount != "" || len(p.parts) == 0 {
		return nil
	}
	c.pending = nil
	rescue := []*regexp.Regexp{reAmountCurrency, reTotalLabel}
	for i := p.next(); i < c.len(); i++ {
		if !isSectionEnd(c.lower(i)) {
			continue
		}
		hit, ok := matchServiceAmount(c.line(i), rescue)
		if !ok {
			continue
		}
		name := p.name()
		if runeLen(name) <= 5 {
			return nil
		}
		c.consumed.merge(p.used)
		return []Service{{Name: name, Amount: hit.value}}
	}
	return nil
}

var serviceKeywords = []string{"выполнение работ", "оказание услуг", "етxt", "etxt", "сервис"}

// keywordPairing is the last resort: any line with a service keyword pairs
// with an inline figure or the figure on the next line.
func keywordPairing(c *cursor, table []*regexp.Regexp) []Service {
	var out []Service
	for i := 0; i < c.len(); i++ {
		if c.consumed.has(i) {
			continue
		}
		line, low := c.line(i), c.lower(i)
		if !containsAny(low, serviceKeywords...) || c.isTrailingFragment(i) {
			continue
		}

		used := lineSet{}
		used.add(i, i)
		var name, amount string
		if hit, ok := matchAmount(line, table); ok {
			name, amount = stripEnumerator(line[:hit.start]), hit.value
			if isWorkMarker(strings.ToLower(name)) {
				name = c.followContinuations(i, name, used)
			}
		} else if hit, ok := matchAmount(c.line(i+1), table); ok && !c.consumed.has(i+1) {
			name, amount = stripEnumerator(line), hit.value
			used.add(i+1, i+1)
		} else {
			continue
		}

		name = CleanServiceName(name)
		if name == "" || !serviceAmountInRange(amount) {
			continue
		}
		c.consumed.merge(used)
		out = append(out, Service{Name: name, Amount: amount})
	}
	return out
}
