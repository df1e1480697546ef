package match

import (
	"reflect"
	"testing"
)

func TestNormalizeText(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		variants []string
	}{
		{"lowercase only", "Water, Sugar, Wheat Flour", []string{"water, sugar, wheat flour"}},
		{"despaced variant", "W H E A T starch", []string{"w h e a t starch", "wheat starch"}},
		{"ligature folded", "Enriched ﬂour", []string{"enriched flour"}},
		{"curly apostrophe", "Brewer’s Yeast", []string{"brewer's yeast"}},
		{"control chars dropped", "salt\x00, sugar\r\nrye", []string{"salt, sugar\n\nrye"}},
		{"empty", "", []string{""}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			profile := NormalizeText(tc.input)
			if profile.Original != tc.input {
				t.Fatalf("expected original %q got %q", tc.input, profile.Original)
			}
			if !reflect.DeepEqual(profile.Variants, tc.variants) {
				t.Fatalf("expected variants %q got %q", tc.variants, profile.Variants)
			}
		})
	}
}

func TestDespace(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"w h e a t", "wheat"},
		{"r y e flour", "rye flour"},
		{"a bread", "a bread"},
		{"vitamin b 12", "vitamin b 12"},
		{"wheat", "wheat"},
	}
	for _, tc := range tests {
		if got := Despace(tc.input); got != tc.expected {
			t.Fatalf("Despace(%q): expected %q got %q", tc.input, tc.expected, got)
		}
	}
}

func TestSegments(t *testing.T) {
	got := Segments("water, enriched flour (wheat flour; niacin)\nsalt,,")
	expected := []string{"water", "enriched flour", "wheat flour", "niacin", "", "salt", "", ""}
	if !reflect.DeepEqual(got, expected) {
		t.Fatalf("expected %q got %q", expected, got)
	}

	if got := Segments(""); !reflect.DeepEqual(got, []string{""}) {
		t.Fatalf("expected single empty segment got %q", got)
	}
}
