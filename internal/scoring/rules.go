package scoring

import (
	"regexp"

	"gluten-check/internal/match"
)

var (
	containsStatement = regexp.MustCompile(`(?i)contains\s*:.*?(wheat|barley|rye|gluten)`)
	glutenFreeClaim   = regexp.MustCompile(`(?i)gluten[\s-]*free`)
)

// AllergenStatement is the synthetic entry reported when the label carries a
// "contains: wheat" style statement.
var AllergenStatement = IngredientRule{
	Name:       "Allergen statement",
	Reason:     "Contains gluten (see 'contains' statement)",
	Confidence: 1.0,
}

// Input is the per-call state shared by every rule in the chain.
type Input struct {
	Profile   match.TextProfile
	Segments  [][]string
	SafeFlour bool
}

// Rule is one link of the decision chain. Evaluate returns ok=false when the
// rule has no opinion and the next rule should run.
type Rule interface {
	Name() string
	Evaluate(in *Input) (result AnalysisResult, ok bool)
}

type containsStatementRule struct{}

func (containsStatementRule) Name() string { return "contains_statement" }

func (containsStatementRule) Evaluate(in *Input) (AnalysisResult, bool) {
	if !anyVariant(in.Profile, containsStatement) {
		return AnalysisResult{}, false
	}
	return AnalysisResult{
		IsGlutenFree:       false,
		Verdict:            VerdictContainsGluten,
		Message:            MessageAllergenClaim,
		FlaggedIngredients: []IngredientRule{AllergenStatement},
	}, true
}

type glutenFreeClaimRule struct{}

func (glutenFreeClaimRule) Name() string { return "gluten_free_claim" }

func (glutenFreeClaimRule) Evaluate(in *Input) (AnalysisResult, bool) {
	if !anyVariant(in.Profile, glutenFreeClaim) {
		return AnalysisResult{}, false
	}
	return AnalysisResult{
		IsGlutenFree:       true,
		Verdict:            VerdictGlutenFree,
		Message:            MessageGlutenFreeClaim,
		FlaggedIngredients: []IngredientRule{},
	}, true
}

type compiledRule struct {
	rule IngredientRule
	term match.Term
}

// vocabularyRule flags every entry of one vocabulary found in the text.
type vocabularyRule struct {
	name    string
	entries []compiledRule
	// genericFlour enables the safe-flour exception for the bare "flour" entry.
	genericFlour bool
}

func newVocabularyRule(name string, rules []IngredientRule, genericFlour bool) vocabularyRule {
	entries := make([]compiledRule, 0, len(rules))
	for _, rule := range rules {
		entries = append(entries, compiledRule{rule: rule, term: match.NewTerm(rule.Name)})
	}
	return vocabularyRule{name: name, entries: entries, genericFlour: genericFlour}
}

func (r vocabularyRule) Name() string { return r.name }

func (r vocabularyRule) Evaluate(in *Input) (AnalysisResult, bool) {
	flagged := r.Match(in)
	if len(flagged) == 0 {
		return AnalysisResult{}, false
	}
	return Aggregate(flagged), true
}

// Match returns the matching entries in vocabulary order.
func (r vocabularyRule) Match(in *Input) []IngredientRule {
	var flagged []IngredientRule
	for _, entry := range r.entries {
		if r.genericFlour && in.SafeFlour && entry.rule.Name == "flour" {
			continue
		}
		if entry.term.MatchAny(in.Segments) {
			flagged = append(flagged, entry.rule)
		}
	}
	return flagged
}

type noGlutenRule struct{}

func (noGlutenRule) Name() string { return "no_gluten_detected" }

func (noGlutenRule) Evaluate(*Input) (AnalysisResult, bool) {
	return Aggregate(nil), true
}

func anyVariant(profile match.TextProfile, pattern *regexp.Regexp) bool {
	for _, variant := range profile.Variants {
		if pattern.MatchString(variant) {
			return true
		}
	}
	return false
}
