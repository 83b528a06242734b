package parser

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

const canonicalPlatform = "ЮMoney"

var reTrailingNoise = regexp.MustCompile(`[^A-Za-z0-9]+$`)

var receiptNumberRules = []rule{
	{pattern: regexp.MustCompile(`(?i)Чек\s*№?\s*([A-Za-z0-9]{8,20})`), value: receiptNumberValue, valid: minLen(8)},
	{pattern: regexp.MustCompile(`(?i)Чек\s+([A-Za-z0-9]{8,20})`), value: receiptNumberValue, valid: minLen(8)},
	{pattern: regexp.MustCompile(`(?i)Чек\s*№?\s*(\d{2,3}[A-Za-z0-9]{5,15})`), value: receiptNumberValue, valid: minLen(8)},
	{pattern: regexp.MustCompile(`(?i)Чек№\s*([A-Za-z0-9]{8,20})`), value: receiptNumberValue, valid: minLen(8)},
}

func receiptNumberValue(m []string) string {
	return reTrailingNoise.ReplaceAllString(m[1], "")
}

func minLen(n int) func(string, string) bool {
	return func(_, v string) bool { return len(v) >= n }
}

var reDate = regexp.MustCompile(`^(\d{1,2})[.\s,]+(\d{1,2})[.\s,]+(\d{2,4})`)

var dateRules = []rule{{
	pattern: reDate,
	value: func(m []string) string {
		day, _ := strconv.Atoi(m[1])
		month, _ := strconv.Atoi(m[2])
		if day < 1 || day > 31 || month < 1 || month > 12 {
			return ""
		}
		return fmt.Sprintf("%02d.%02d.%s", day, month, m[3])
	},
}}

var reClock = regexp.MustCompile(`(?:^|[^\d.])(\d{1,2})[:,\s]+(\d{2})(?:\D|$)`)

func clockValue(m []string) string {
	hour, _ := strconv.Atoi(m[1])
	minute, _ := strconv.Atoi(m[2])
	if hour > 23 || minute > 59 {
		return ""
	}
	return fmt.Sprintf("%02d:%s", hour, m[2])
}

// receiptTime returns the first accepted clock reading, top to bottom.
func receiptTime(c *cursor) *string {
	for _, line := range c.lines {
		if v, ok := lineTime(line); ok {
			return ptr(v)
		}
	}
	return nil
}

// lineTime separates real timestamps from other digit pairs: a 24h-only hour,
// the brace/plus artifacts OCR leaves around printed clocks, or a clock that
// follows the receipt date on the same line. A dated line is only searched
// after the date, so the date's own day and month never read as a time.
// Lines with money on them never hold the time.
func lineTime(line string) (string, bool) {
	if reAmountCurrency.MatchString(line) || strings.Contains(strings.ToLower(line), "итого") {
		return "", false
	}
	rest, dated := line, false
	if loc := reDate.FindStringIndex(line); loc != nil {
		rest, dated = line[loc[1]:], true
	}
	artifacts := strings.ContainsAny(line, "{+")
	r := rule{pattern: reClock, value: clockValue, valid: func(_, v string) bool {
		hour, _ := strconv.Atoi(v[:2])
		return hour > 12 || dated || artifacts
	}}
	return r.apply(rest)
}

var (
	reFuzzyINN    = regexp.MustCompile(`(?i)[иin][нh][нh]`)
	reTwelveDigit = regexp.MustCompile(`(?:^|\D)(\d{12})(?:\D|$)`)
	reTenDigit    = regexp.MustCompile(`(?:^|\D)(\d{10})(?:\D|$)`)
)

func innOf(lengths ...int) func(string, string) bool {
	return func(_, v string) bool { return digitsOfLen(v, lengths...) }
}

// sellerINNOnly rejects lines that name another party's tax ID.
func sellerINNOnly(line, v string) bool {
	low := strings.ToLower(line)
	return digitsOfLen(v, 10, 12) && !containsAny(low, "покупател", "формировател")
}

var sellerINNRules = []rule{
	{pattern: regexp.MustCompile(`(?i)ИНН\s*(?:продавца|исполнителя|НПД)[\s:()]*(\d{10,12})(?:\D|$)`), valid: innOf(10, 12)},
	{pattern: regexp.MustCompile(`(?i)ИНН\s*продавца[\s/]*\(?\s*НПД\s*\)?[\s:]*(\d{10,12})(?:\D|$)`), valid: innOf(10, 12)},
	{pattern: regexp.MustCompile(`(?i)ИНН\s*НПД[\s:]*(\d{10,12})(?:\D|$)`), valid: innOf(10, 12)},
	{pattern: regexp.MustCompile(`(?i)ИНН[\s:;]*(\d{12})(?:\D|$)`), valid: sellerINNOnly},
	{pattern: regexp.MustCompile(`(?i)(?:NHH|ИНН|инНн)[\s:;]*(\d{12})(?:\D|$)`), valid: sellerINNOnly},
}

func sellerINN(c *cursor) *string {
	if v, ok := firstMatch(c.lines, sellerINNRules); ok {
		return ptr(v)
	}
	// Fuzzy marker: take a 12-digit run from the marker line or the one after it.
	for i, low := range c.low {
		if containsAny(low, "покупател", "формировател") {
			continue
		}
		if !strings.Contains(low, "инн") && !strings.Contains(low, "nhh") && !reFuzzyINN.MatchString(c.lines[i]) {
			continue
		}
		for _, l := range []string{c.line(i), c.line(i + 1)} {
			if m := reTwelveDigit.FindStringSubmatch(l); m != nil {
				return ptr(m[1])
			}
		}
	}
	return nil
}

var buyerMarkerRules = []rule{
	{pattern: regexp.MustCompile(`(?i)ИНН\s*покупателя[\s:;]*(\d{10})(?:\D|$)`), valid: innOf(10)},
	{pattern: regexp.MustCompile(`(?i)Покупатель[:\s;]+(?:.*?\D)?(\d{10})(?:\D|$)`), valid: innOf(10)},
}

var buyerWindowRules = []rule{
	{pattern: regexp.MustCompile(`(?i)инн[:\s;]*(\d{10})(?:\D|$)`), valid: innOf(10)},
	{pattern: reTenDigit, valid: func(line, v string) bool {
		return strings.Contains(strings.ToLower(line), "инн") && digitsOfLen(v, 10)
	}},
	{pattern: regexp.MustCompile(`^[\s:;]*(\d{10})[\s:;]*$`), valid: innOf(10)},
	{pattern: regexp.MustCompile(`(?i)[иi][нh][нh][:\s;]*(\d{10})(?:\D|$)`), valid: innOf(10)},
}

const buyerWindow = 3

func buyerINN(c *cursor) *string {
	for i, low := range c.low {
		if !strings.Contains(low, "покупател") {
			continue
		}
		if v, ok := applyRules(c.lines[i], buyerMarkerRules); ok {
			return ptr(v)
		}
		for j := i + 1; j <= i+buyerWindow && j < c.len(); j++ {
			if v, ok := applyRules(c.lines[j], buyerWindowRules); ok {
				return ptr(v)
			}
		}
	}
	return nil
}

var nameMarkerWords = map[string]struct{}{
	"Продавец": {}, "Покупатель": {}, "Чек": {}, "Итого": {}, "Наименование": {},
	"Сумма": {}, "Режим": {}, "Выполнение": {}, "Оказание": {}, "Кассовый": {},
}

func personName(_, v string) bool {
	parts := strings.Fields(v)
	if len(parts) < 2 || len(parts) > 3 {
		return false
	}
	for _, p := range parts {
		if _, marker := nameMarkerWords[p]; marker {
			return false
		}
	}
	return true
}

var sellerNameRules = []rule{
	{pattern: regexp.MustCompile(`Продавец[:\s]+([А-ЯЁ][а-яё]+(?:\s+[А-ЯЁ][а-яё]+){1,2})`), valid: personName},
	{pattern: regexp.MustCompile(`([А-ЯЁ][а-яё]+\s+[А-ЯЁ][а-яё]+\s+[А-ЯЁ][а-яё]+)`), valid: personName},
}

var reRegimeToken = regexp.MustCompile(`(?i)(?:^|[^\p{L}])(?:но|ho)(?:[^\p{L}]|$)`)

func taxMode(c *cursor) *string {
	for i, low := range c.low {
		if !strings.Contains(low, "режим") && !reRegimeToken.MatchString(low) {
			continue
		}
		if strings.Contains(low, "нпд") || strings.Contains(c.lower(i+1), "нпд") {
			return ptr("НПД")
		}
	}
	return nil
}

var platformRules = []rule{
	{pattern: regexp.MustCompile(`(?i)Чек\s+сформировал\s+([А-ЯЁA-Za-z0-9\s.]+)`), value: platformValue, valid: platformValid},
	{pattern: regexp.MustCompile(`(?i)сформировал\s+([А-ЯЁA-Za-z0-9\s.]+)`), value: platformValue, valid: platformValid},
	{pattern: regexp.MustCompile(`(?i)([А-ЯЁA-Za-z]+money)`), value: platformValue, valid: platformValid},
	{pattern: regexp.MustCompile(`(?i)([А-ЯЁA-Za-z]+mопеу)`), value: platformValue, valid: platformValid},
	{pattern: regexp.MustCompile(`(?i)([А-ЯЁA-Za-z]+\.?[Дд]еньги)`), value: platformValue, valid: platformValid},
}

var reINNTail = regexp.MustCompile(`(?i)\s+ИНН.*$`)

func platformValue(m []string) string {
	v := reINNTail.ReplaceAllString(m[1], "")
	return CanonicalPlatform(strings.TrimSpace(v))
}

func platformValid(_, v string) bool { return runeLen(v) > 1 }

// platformSubstrings mark the brand even when the rest of the token is garbled.
var platformSubstrings = []string{"топеу", "томопеу", "томонеу", "tomопеу", "tomoney"}

var platformExact = map[string]struct{}{
	"ютопеу": {}, "юютопеу": {}, "юmoney": {}, "юmопеу": {}, "юmонеу": {},
}

var platformShapes = []*regexp.Regexp{
	regexp.MustCompile(`(?i)^юто(пеу|money|mопеу|mонеу)$`),
	regexp.MustCompile(`(?i)^[юЮ][юЮ][тТоO][оОпП][еЕмМ][уУеЕйЙ]$`),
	regexp.MustCompile(`(?i)^(to|ю)(money|mопеу|пеу|mонеу)$`),
	regexp.MustCompile(`(?i)^ю(money|mопеу|пеу|mонеу)$`),
	regexp.MustCompile(`(?i)^(томопеу|томонеу|томoney)$`),
	regexp.MustCompile(`(?i)^[юЮтТоO][тТоO]?[оОпП][еЕмМ][уУеЕйЙ]$`),
	regexp.MustCompile(`(?i)^[юЮ][тТоO]?[оОпП][еЕмМ][уУеЕйЙ]`),
}

// CanonicalPlatform maps known garbled spellings of the payment platform to its
// canonical name and returns other values after glyph correction only.
func CanonicalPlatform(v string) string {
	v = Correct(ScopePlatform, v)
	low := strings.ToLower(v)
	if containsAny(low, platformSubstrings...) || (strings.Contains(low, "money") && strings.Contains(low, "ю")) {
		return canonicalPlatform
	}
	if _, ok := platformExact[low]; ok {
		return canonicalPlatform
	}
	for _, re := range platformShapes {
		if re.MatchString(v) {
			return canonicalPlatform
		}
	}
	return v
}

func checkFormer(c *cursor) *string {
	for i, low := range c.low {
		if !containsAny(low, "сформировал", "money", "mопеу", "деньги") {
			continue
		}
		if v, ok := applyRules(c.lines[i], platformRules); ok {
			return ptr(v)
		}
	}
	return nil
}

var formerMarkerRules = []rule{
	{pattern: regexp.MustCompile(`(?i)ИНН\s+формирователя\s+чека[\s:;]*(\d{10,12})(?:\D|$)`), valid: innOf(10, 12)},
	{pattern: regexp.MustCompile(`(?i)ИНН\s+формирователя[\s:;]*(\d{10,12})(?:\D|$)`), valid: innOf(10, 12)},
	{pattern: regexp.MustCompile(`(?i)ИНН\s+формирователя\s*\([^)]+\)[\s:;]*(\d{10,12})(?:\D|$)`), valid: innOf(10, 12)},
	{pattern: regexp.MustCompile(`(?i)формирователя(?:.*?\D)?(\d{10,12})(?:\D|$)`), valid: innOf(10, 12)},
}

var formerWindowRules = []rule{
	{pattern: regexp.MustCompile(`(?i)инн[:\s;]*(\d{10,12})(?:\D|$)`), valid: innOf(10, 12)},
	{pattern: regexp.MustCompile(`(?i)[иi][нh][нh][:\s;]*(\d{10,12})(?:\D|$)`), valid: innOf(10, 12)},
	{pattern: regexp.MustCompile(`^[\s:;]*(\d{10}|\d{12})[\s:;]*$`), valid: innOf(10, 12)},
}

const formerWindow = 5

func checkFormerINN(c *cursor) *string {
	for i, low := range c.low {
		if !containsAny(low, "формировател", "сформировал") {
			continue
		}
		if v, ok := applyRules(c.lines[i], formerMarkerRules); ok {
			return ptr(v)
		}
		for j := i; j <= i+formerWindow && j < c.len(); j++ {
			next := c.lower(j)
			if j > i && containsAny(next, "покупател", "продав") {
				break
			}
			if v, ok := applyRules(c.lines[j], formerWindowRules); ok {
				return ptr(v)
			}
			// A bare marker line carries the ID on the following line.
			if strings.HasPrefix(next, "инн") && runeLen(next) < 10 {
				if m := reTenDigit.FindStringSubmatch(c.line(j + 1)); m != nil {
					return ptr(m[1])
				}
				if m := reTwelveDigit.FindStringSubmatch(c.line(j + 1)); m != nil {
					return ptr(m[1])
				}
			}
		}
	}
	return nil
}

func totalAmount(c *cursor, table []*regexp.Regexp) *string {
	for i, low := range c.low {
		if !strings.Contains(low, "итого") {
			continue
		}
		for _, l := range []string{c.line(i), c.line(i + 1)} {
			if h, ok := matchAmount(l, table); ok {
				return ptr(h.value)
			}
		}
	}
	return nil
}
