package forumlocator

import (
	"strings"

	"github.com/dalemusser/waffle/pantry/text"
)

// MatchRules is an ordered list of case-insensitive substring rules used to
// pick a course forum by name. Earlier rules take precedence.
type MatchRules []string

// ParseMatchRules splits a comma-separated setting into rules, trimming
// whitespace and dropping empty entries. Order is preserved.
func ParseMatchRules(s string) MatchRules {
	var rules MatchRules
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			rules = append(rules, p)
		}
	}
	return rules
}

// NewMatchRules normalizes an already split list the same way
// ParseMatchRules does.
func NewMatchRules(patterns []string) MatchRules {
	var rules MatchRules
	for _, p := range patterns {
		if p = strings.TrimSpace(p); p != "" {
			rules = append(rules, p)
		}
	}
	return rules
}

// Matches reports whether name contains pattern, ignoring case.
func Matches(pattern, name string) bool {
	return strings.Contains(text.Fold(name), text.Fold(pattern))
}
