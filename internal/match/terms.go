package match

import (
	"regexp"
	"strings"
)

// ContainsWord reports whether term appears in segment as a whole word, so
// "wheat" matches "wheat flour" but not "wheaten". It compiles the pattern on
// every call; hot paths hold a Term instead.
func ContainsWord(segment, term string) bool {
	if term == "" {
		return false
	}
	return NewTerm(term).Matches(segment)
}

// ContainsSubstring is a plain substring test with no boundary checks.
func ContainsSubstring(segment, term string) bool {
	if term == "" {
		return false
	}
	return strings.Contains(segment, term)
}

// Term is a vocabulary entry with its word-boundary pattern compiled once.
type Term struct {
	Name    string
	pattern *regexp.Regexp
}

// NewTerm compiles the whole-word matcher for name.
func NewTerm(name string) Term {
	return Term{Name: name, pattern: wordPattern(name)}
}

// Matches reports whether the term occurs as a whole word in segment.
func (t Term) Matches(segment string) bool {
	if t.pattern == nil || t.Name == "" || segment == "" {
		return false
	}
	return t.pattern.MatchString(segment)
}

// MatchAny reports whether the term occurs as a whole word in any segment
// of any variant.
func (t Term) MatchAny(segments [][]string) bool {
	for _, variant := range segments {
		for _, segment := range variant {
			if t.Matches(segment) {
				return true
			}
		}
	}
	return false
}

// ContainsAnySubstring reports whether any of terms is a substring of any segment.
func ContainsAnySubstring(segments [][]string, terms []string) bool {
	for _, variant := range segments {
		for _, segment := range variant {
			for _, term := range terms {
				if ContainsSubstring(segment, term) {
					return true
				}
			}
		}
	}
	return false
}

// wordPattern treats any Unicode letter, digit or underscore as part of a
// word, so "wheat" does not match inside "wheatà" or "ñwheat".
func wordPattern(term string) *regexp.Regexp {
	return regexp.MustCompile(`(?:^|[^\pL\pN_])` + regexp.QuoteMeta(term) + `(?:[^\pL\pN_]|$)`)
}
