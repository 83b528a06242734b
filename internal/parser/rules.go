package parser

import "regexp"

// rule is one entry of a field's ordered recognizer table.
type rule struct {
	pattern *regexp.Regexp
	// value builds the candidate from the submatches; nil means group 1.
	value func(m []string) string
	// valid sees the whole line and the candidate; nil accepts everything.
	valid func(line, v string) bool
}

// apply returns the first candidate on line that passes validation.
func (r rule) apply(line string) (string, bool) {
	for _, m := range r.pattern.FindAllStringSubmatch(line, -1) {
		v := ""
		if r.value != nil {
			v = r.value(m)
		} else if len(m) > 1 {
			v = m[1]
		}
		if v == "" {
			continue
		}
		if r.valid == nil || r.valid(line, v) {
			return v, true
		}
	}
	return "", false
}

// applyRules tries rules in priority order on a single line.
func applyRules(line string, rules []rule) (string, bool) {
	for _, r := range rules {
		if v, ok := r.apply(line); ok {
			return v, true
		}
	}
	return "", false
}

// firstMatch scans lines top to bottom and commits the first accepted value.
func firstMatch(lines []string, rules []rule) (string, bool) {
	for _, line := range lines {
		if v, ok := applyRules(line, rules); ok {
			return v, true
		}
	}
	return "", false
}

func digitsOfLen(v string, lengths ...int) bool {
	for _, r := range v {
		if r < '0' || r > '9' {
			return false
		}
	}
	for _, n := range lengths {
		if len(v) == n {
			return true
		}
	}
	return false
}
