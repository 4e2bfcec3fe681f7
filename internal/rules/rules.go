// Package rules applies substring-based auto-categorization to imported
// transactions that the user has not categorized yet.
package rules

import (
	"strings"

	"tributary/internal/model"
)

// Rule tags uncategorized expenses whose merchant or note contains any of
// the trigger substrings.
type Rule struct {
	Category string
	Triggers []string
}

// DefaultRules mirror the built-in drink tagging most users start from.
var DefaultRules = []Rule{
	{
		Category: "Drink",
		Triggers: []string{
			"coffee", "starbucks", "costa", "luckin", "heytea",
			"milk tea", "bubble tea", "tea house",
		},
	},
}

// Matcher applies a rule set to transactions.
type Matcher struct {
	rules []Rule
}

// NewMatcher builds a matcher from a rule set, lower-casing all triggers.
func NewMatcher(rules []Rule) *Matcher {
	normalized := make([]Rule, 0, len(rules))
	for _, r := range rules {
		if r.Category == "" || len(r.Triggers) == 0 {
			continue
		}
		triggers := make([]string, 0, len(r.Triggers))
		for _, t := range r.Triggers {
			t = strings.ToLower(strings.TrimSpace(t))
			if t != "" {
				triggers = append(triggers, t)
			}
		}
		normalized = append(normalized, Rule{Category: r.Category, Triggers: triggers})
	}
	return &Matcher{rules: normalized}
}

// Apply tags matching transactions in the slice and returns how many were
// tagged. Only expenses (negative amounts) without an explicit category are
// considered; user-assigned categories are never overwritten.
func (m *Matcher) Apply(txns []model.Transaction) int {
	tagged := 0
	for i := range txns {
		txn := &txns[i]
		if txn.Amount >= 0 || txn.TrimmedCategory() != "" {
			continue
		}
		haystack := strings.ToLower(txn.MerchantName + " " + txn.Name + " " + txn.Note)
		if cat, ok := m.match(haystack); ok {
			txn.Category = cat
			tagged++
		}
	}
	return tagged
}

func (m *Matcher) match(haystack string) (string, bool) {
	for _, r := range m.rules {
		for _, trigger := range r.Triggers {
			if strings.Contains(haystack, trigger) {
				return r.Category, true
			}
		}
	}
	return "", false
}
