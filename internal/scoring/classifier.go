package scoring

import (
	"fmt"

	"gluten-check/internal/match"
)

// Classifier decides whether an ingredient list is gluten-free. It holds
// only immutable state and is safe for concurrent use.
type Classifier struct {
	vocab Vocabulary
	rules []Rule
}

// NewClassifier validates vocab and builds the decision chain:
// contains-statement, gluten-free claim, definite vocabulary, ambiguous
// vocabulary, then the no-gluten default.
func NewClassifier(vocab Vocabulary) (*Classifier, error) {
	vocab = vocab.normalized()
	if err := vocab.Validate(); err != nil {
		return nil, fmt.Errorf("classifier: %w", err)
	}
	return &Classifier{
		vocab: vocab,
		rules: []Rule{
			containsStatementRule{},
			glutenFreeClaimRule{},
			newVocabularyRule("definite_ingredients", vocab.Gluten, true),
			newVocabularyRule("ambiguous_ingredients", vocab.Ambiguous, false),
			noGlutenRule{},
		},
	}, nil
}

// NewDefaultClassifier builds a classifier over the embedded vocabulary.
func NewDefaultClassifier() (*Classifier, error) {
	vocab, err := DefaultVocabulary()
	if err != nil {
		return nil, err
	}
	return NewClassifier(vocab)
}

// Classify runs the decision chain over text. It never fails; empty text is
// reported as containing no gluten ingredients.
func (c *Classifier) Classify(text string) AnalysisResult {
	in := c.prepare(text)
	for _, rule := range c.rules {
		if result, ok := rule.Evaluate(in); ok {
			return result
		}
	}
	return Aggregate(nil)
}

// Trace is like Classify but also names the rule that decided.
func (c *Classifier) Trace(text string) (AnalysisResult, string) {
	in := c.prepare(text)
	for _, rule := range c.rules {
		if result, ok := rule.Evaluate(in); ok {
			return result, rule.Name()
		}
	}
	return Aggregate(nil), ""
}

func (c *Classifier) prepare(text string) *Input {
	profile := match.NormalizeText(text)
	segments := profile.Segments()
	return &Input{
		Profile:   profile,
		Segments:  segments,
		SafeFlour: match.ContainsAnySubstring(segments, c.vocab.SafeFlours),
	}
}

// Vocabulary returns a copy of the loaded vocabulary.
func (c *Classifier) Vocabulary() Vocabulary {
	return c.vocab.Clone()
}

// RuleNames lists the decision chain in evaluation order.
func (c *Classifier) RuleNames() []string {
	names := make([]string, 0, len(c.rules))
	for _, rule := range c.rules {
		names = append(names, rule.Name())
	}
	return names
}
