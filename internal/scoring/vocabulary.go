package scoring

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed vocabulary.json
var defaultVocabulary []byte

// IngredientRule is one curated vocabulary entry. Name is the lowercase
// canonical form and identifies the rule.
type IngredientRule struct {
	Name       string  `json:"name" yaml:"name"`
	Reason     string  `json:"reason" yaml:"reason"`
	Confidence float64 `json:"confidence" yaml:"confidence"`
}

// Vocabulary holds the definite and ambiguous gluten sources plus the
// safe-flour exceptions. It is read-only once handed to a Classifier.
type Vocabulary struct {
	Gluten     []IngredientRule `json:"gluten_ingredients" yaml:"gluten_ingredients"`
	Ambiguous  []IngredientRule `json:"ambiguous_ingredients" yaml:"ambiguous_ingredients"`
	SafeFlours []string         `json:"safe_flours" yaml:"safe_flours"`
}

// DefaultVocabulary returns the vocabulary compiled into the binary.
func DefaultVocabulary() (Vocabulary, error) {
	return parseVocabulary(defaultVocabulary, false)
}

// LoadVocabulary reads a vocabulary file. YAML is used for .yaml/.yml
// files, JSON for everything else.
func LoadVocabulary(path string) (Vocabulary, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return Vocabulary{}, fmt.Errorf("read vocabulary: %w", err)
	}
	ext := strings.ToLower(filepath.Ext(path))
	return parseVocabulary(data, ext == ".yaml" || ext == ".yml")
}

func parseVocabulary(data []byte, isYAML bool) (Vocabulary, error) {
	var vocab Vocabulary
	if isYAML {
		if err := yaml.Unmarshal(data, &vocab); err != nil {
			return Vocabulary{}, fmt.Errorf("unmarshal vocabulary yaml: %w", err)
		}
	} else {
		if err := json.Unmarshal(data, &vocab); err != nil {
			return Vocabulary{}, fmt.Errorf("unmarshal vocabulary: %w", err)
		}
	}
	vocab = vocab.normalized()
	if err := vocab.Validate(); err != nil {
		return Vocabulary{}, err
	}
	return vocab, nil
}

// Validate rejects vocabularies the classifier cannot use.
func (v Vocabulary) Validate() error {
	if len(v.Gluten) == 0 {
		return errors.New("vocabulary: gluten ingredients missing")
	}
	if err := validateRules("gluten_ingredients", v.Gluten); err != nil {
		return err
	}
	if err := validateRules("ambiguous_ingredients", v.Ambiguous); err != nil {
		return err
	}
	for i, flour := range v.SafeFlours {
		if flour == "" {
			return fmt.Errorf("vocabulary: safe_flours[%d] is empty", i)
		}
	}
	return nil
}

func validateRules(list string, rules []IngredientRule) error {
	seen := make(map[string]struct{}, len(rules))
	for i, rule := range rules {
		if rule.Name == "" {
			return fmt.Errorf("vocabulary: %s[%d] has no name", list, i)
		}
		if rule.Confidence < 0 || rule.Confidence > 1 {
			return fmt.Errorf("vocabulary: %s %q confidence %.2f outside [0,1]", list, rule.Name, rule.Confidence)
		}
		if _, ok := seen[rule.Name]; ok {
			return fmt.Errorf("vocabulary: %s %q listed twice", list, rule.Name)
		}
		seen[rule.Name] = struct{}{}
	}
	return nil
}

func (v Vocabulary) normalized() Vocabulary {
	out := Vocabulary{
		Gluten:     normalizeRules(v.Gluten),
		Ambiguous:  normalizeRules(v.Ambiguous),
		SafeFlours: make([]string, len(v.SafeFlours)),
	}
	for i, flour := range v.SafeFlours {
		out.SafeFlours[i] = normalizeName(flour)
	}
	return out
}

func normalizeRules(rules []IngredientRule) []IngredientRule {
	out := make([]IngredientRule, len(rules))
	for i, rule := range rules {
		out[i] = IngredientRule{
			Name:       normalizeName(rule.Name),
			Reason:     strings.TrimSpace(rule.Reason),
			Confidence: rule.Confidence,
		}
	}
	return out
}

func normalizeName(name string) string {
	return strings.Join(strings.Fields(strings.ToLower(name)), " ")
}

// Clone returns a deep copy.
func (v Vocabulary) Clone() Vocabulary {
	return Vocabulary{
		Gluten:     append([]IngredientRule(nil), v.Gluten...),
		Ambiguous:  append([]IngredientRule(nil), v.Ambiguous...),
		SafeFlours: append([]string(nil), v.SafeFlours...),
	}
}
