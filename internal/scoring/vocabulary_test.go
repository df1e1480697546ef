package scoring

import (
	"encoding/json"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

func TestDefaultVocabulary(t *testing.T) {
	vocab, err := DefaultVocabulary()
	if err != nil {
		t.Fatalf("default vocabulary: %v", err)
	}
	if len(vocab.Gluten) != 20 {
		t.Fatalf("expected 20 gluten ingredients got %d", len(vocab.Gluten))
	}
	if len(vocab.Ambiguous) != 6 {
		t.Fatalf("expected 6 ambiguous ingredients got %d", len(vocab.Ambiguous))
	}
	if vocab.Gluten[0].Name != "wheat" || vocab.Gluten[0].Confidence != 1.0 {
		t.Fatalf("unexpected first entry %+v", vocab.Gluten[0])
	}
	if vocab.Gluten[19].Name != "soy sauce" || vocab.Gluten[19].Confidence != 0.7 {
		t.Fatalf("unexpected last entry %+v", vocab.Gluten[19])
	}
	for _, flour := range vocab.SafeFlours {
		if flour == "oat flour" {
			t.Fatalf("oat flour must not be a safe flour")
		}
	}
}

func TestLoadVocabularyJSONAndYAML(t *testing.T) {
	jsonPath := tempJSON(t, map[string]any{
		"gluten_ingredients": []map[string]any{
			{"name": " Wheat ", "reason": "grain", "confidence": 1.0},
			{"name": "Brewer's   Yeast", "reason": "barley", "confidence": 0.8},
		},
		"ambiguous_ingredients": []map[string]any{
			{"name": "dextrin", "reason": "maybe", "confidence": 0.5},
		},
		"safe_flours": []string{"Rice Flour"},
	})

	yamlPath := filepath.Join(t.TempDir(), "vocabulary.yaml")
	yamlData := strings.Join([]string{
		"gluten_ingredients:",
		"  - name: wheat",
		"    reason: grain",
		"    confidence: 1.0",
		"  - name: brewer's yeast",
		"    reason: barley",
		"    confidence: 0.8",
		"ambiguous_ingredients:",
		"  - name: dextrin",
		"    reason: maybe",
		"    confidence: 0.5",
		"safe_flours:",
		"  - rice flour",
	}, "\n")
	if err := os.WriteFile(yamlPath, []byte(yamlData), 0o644); err != nil {
		t.Fatalf("write yaml: %v", err)
	}

	fromJSON, err := LoadVocabulary(jsonPath)
	if err != nil {
		t.Fatalf("load json: %v", err)
	}
	fromYAML, err := LoadVocabulary(yamlPath)
	if err != nil {
		t.Fatalf("load yaml: %v", err)
	}
	if !reflect.DeepEqual(fromJSON, fromYAML) {
		t.Fatalf("json and yaml differ\njson: %+v\nyaml: %+v", fromJSON, fromYAML)
	}
	if fromJSON.Gluten[1].Name != "brewer's yeast" {
		t.Fatalf("expected collapsed lowercase name got %q", fromJSON.Gluten[1].Name)
	}
}

func TestLoadVocabularyErrors(t *testing.T) {
	tests := []struct {
		name  string
		value any
		want  string
	}{
		{"no gluten list", map[string]any{"safe_flours": []string{"rice flour"}}, "gluten ingredients missing"},
		{"empty name", map[string]any{
			"gluten_ingredients": []map[string]any{{"name": "  ", "confidence": 1.0}},
		}, "has no name"},
		{"confidence out of range", map[string]any{
			"gluten_ingredients": []map[string]any{{"name": "wheat", "confidence": 1.5}},
		}, "outside [0,1]"},
		{"duplicate", map[string]any{
			"gluten_ingredients": []map[string]any{{"name": "wheat", "confidence": 1}, {"name": "WHEAT", "confidence": 1}},
		}, "listed twice"},
		{"empty safe flour", map[string]any{
			"gluten_ingredients": []map[string]any{{"name": "wheat", "confidence": 1}},
			"safe_flours":        []string{""},
		}, "safe_flours[0]"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := LoadVocabulary(tempJSON(t, tc.value))
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("expected error containing %q got %v", tc.want, err)
			}
		})
	}

	if _, err := LoadVocabulary(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Fatalf("expected error for missing file")
	}
}

func tempJSON(t *testing.T, value any) string {
	t.Helper()
	f, err := os.CreateTemp(t.TempDir(), "vocabulary-*.json")
	if err != nil {
		t.Fatalf("temp file: %v", err)
	}
	data, err := json.Marshal(value)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if _, err := f.Write(data); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	return f.Name()
}
