package regatta

import "github.com/joseph-ayodele/regatta-tracker/internal/core/document"

// Rule is one named extraction attempt. Apply reports ok=false when the rule
// does not match; that is never an error.
type Rule struct {
	Name  string
	Apply func(lines []string) (string, bool)
}

// FirstMatch evaluates rules in order and returns the first match together
// with the name of the rule that produced it.
func FirstMatch(rules []Rule, lines []string) (value, rule string, ok bool) {
	for _, r := range rules {
		if v, ok := r.Apply(lines); ok {
			return v, r.Name, true
		}
	}
	return "", "", false
}

// lineRule lifts a single-line matcher to a Rule scanning at most limit
// lines (0 = all), skipping page markers.
func lineRule(name string, limit int, match func(line string) (string, bool)) Rule {
	return Rule{
		Name: name,
		Apply: func(lines []string) (string, bool) {
			for i, ln := range lines {
				if limit > 0 && i >= limit {
					break
				}
				if isMarker(ln) {
					continue
				}
				if v, ok := match(ln); ok {
					return v, true
				}
			}
			return "", false
		},
	}
}

func isMarker(line string) bool { return document.IsPageMarker(line) }
