// Package guardrails evaluates assistant output before it reaches the user.
// The moderation guardrail classifies text into a small set of categories
// using built-in heuristics; anything outside NONE trips the guardrail.
package guardrails

import (
	"regexp"
	"strings"
)

// Category is the moderation outcome for a piece of output text.
type Category string

const (
	CategoryNone      Category = "NONE"
	CategoryOffensive Category = "OFFENSIVE"
	CategoryViolence  Category = "VIOLENCE"
	CategoryOffBrand  Category = "OFF_BRAND"
)

// Verdict is one moderation decision. Tripped verdicts carry the category
// and the phrase that triggered them.
type Verdict struct {
	Category Category
	Tripped  bool
	Matched  string
}

// Moderation checks assistant output on behalf of a named company. The
// company name appears in user-facing guardrail messages, so it is carried
// explicitly rather than derived from a scenario key.
type Moderation struct {
	companyName string
}

func NewModeration(companyName string) *Moderation {
	return &Moderation{companyName: companyName}
}

func (m *Moderation) CompanyName() string { return m.companyName }

var (
	offensivePhrases = []string{
		"idiot", "stupid", "moron", "shut up", "worthless",
	}
	violencePhrases = []string{
		"kill you", "hurt you", "destroy you", "attack you",
	}
	competitorRe = regexp.MustCompile(`(?i)\b(switch to|better than us|cancel your (account|service))\b`)
)

// Check classifies text. Evaluation is ordered: violence beats offensive
// beats off-brand, and the first hit wins.
func (m *Moderation) Check(text string) Verdict {
	lower := strings.ToLower(text)
	for _, phrase := range violencePhrases {
		if strings.Contains(lower, phrase) {
			return Verdict{Category: CategoryViolence, Tripped: true, Matched: phrase}
		}
	}
	for _, phrase := range offensivePhrases {
		if strings.Contains(lower, phrase) {
			return Verdict{Category: CategoryOffensive, Tripped: true, Matched: phrase}
		}
	}
	if match := competitorRe.FindString(text); match != "" {
		return Verdict{Category: CategoryOffBrand, Tripped: true, Matched: match}
	}
	return Verdict{Category: CategoryNone}
}

// Blocked reports whether text must be withheld, and with what message.
func (m *Moderation) Blocked(text string) (string, bool) {
	v := m.Check(text)
	if !v.Tripped {
		return "", false
	}
	return m.Message(v), true
}

// Message is the user-facing line shown when a verdict trips.
func (m *Moderation) Message(v Verdict) string {
	if !v.Tripped {
		return ""
	}
	return "Response withheld by the " + m.companyName + " moderation policy (" + string(v.Category) + ")."
}
