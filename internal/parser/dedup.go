package parser

import "strings"

// normalizeServiceName is the comparison form used when merging duplicates.
func normalizeServiceName(s string) string {
	s = stripEnumerator(s)
	s = reLeadingDash.ReplaceAllString(s, "")
	s = Correct(ScopeService, s)
	s = reDoubleIn.ReplaceAllString(s, " в ")
	s = reDoubleIn.ReplaceAllString(s, " в ")
	return collapseSpaces(s)
}

// sameService reports whether a and b name the same item: equal figures and
// one lower-case name equal to or contained in the other.
func sameService(a, b Service) bool {
	if a.Amount != b.Amount {
		return false
	}
	x := strings.ToLower(normalizeServiceName(a.Name))
	y := strings.ToLower(normalizeServiceName(b.Name))
	return x == y || strings.Contains(x, y) || strings.Contains(y, x)
}

// mergeService adds s to items unless a duplicate exists, in which case the
// longer name is kept in the earlier position.
func mergeService(items []Service, s Service) []Service {
	for i, it := range items {
		if !sameService(it, s) {
			continue
		}
		if runeLen(normalizeServiceName(s.Name)) > runeLen(normalizeServiceName(it.Name)) {
			items[i].Name = normalizeServiceName(s.Name)
		}
		return items
	}
	return append(items, s)
}

// dedupServices collapses duplicates until no pair merges. Order of first
// appearance is kept and empty names are dropped.
func dedupServices(items []Service) []Service {
	out := make([]Service, 0, len(items))
	for {
		out = out[:0]
		for _, it := range items {
			it.Name = normalizeServiceName(it.Name)
			if it.Name == "" {
				continue
			}
			out = mergeService(out, it)
		}
		if len(out) == len(items) {
			return out
		}
		items = append([]Service(nil), out...)
	}
}
