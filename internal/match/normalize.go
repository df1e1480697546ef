package match

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

var (
	segmentSplitter = regexp.MustCompile(`[,;\n()]`)
	// Runs of single letters separated by one space, e.g. "w h e a t".
	spacedLetters = regexp.MustCompile(`\b\pL(?: \pL)+\b`)

	quoteFolder = strings.NewReplacer("‘", "'", "’", "'", "ʼ", "'")
)

// TextProfile captures the comparable views of one ingredient text.
type TextProfile struct {
	Original string
	// Variants always starts with the lowercase view; the de-spaced view
	// follows only when it differs.
	Variants []string
}

// NormalizeText lowercases the input and derives the OCR-tolerant variants.
func NormalizeText(input string) TextProfile {
	lower := strings.ToLower(cleanText(input))
	variants := []string{lower}
	if despaced := Despace(lower); despaced != lower {
		variants = append(variants, despaced)
	}
	return TextProfile{Original: input, Variants: variants}
}

// Despace joins runs of single letters that OCR split apart ("w h e a t" -> "wheat").
func Despace(text string) string {
	return spacedLetters.ReplaceAllStringFunc(text, func(run string) string {
		return strings.ReplaceAll(run, " ", "")
	})
}

// Segments splits a normalized variant into trimmed candidate phrases. Empty
// segments are kept; they never match anything.
func Segments(text string) []string {
	parts := segmentSplitter.Split(text, -1)
	out := make([]string, len(parts))
	for i, part := range parts {
		out[i] = strings.TrimSpace(part)
	}
	return out
}

// Segments returns the segments of every variant, in variant order.
func (p TextProfile) Segments() [][]string {
	out := make([][]string, 0, len(p.Variants))
	for _, variant := range p.Variants {
		out = append(out, Segments(variant))
	}
	return out
}

func cleanText(in string) string {
	out := norm.NFKC.String(in)
	out = quoteFolder.Replace(out)
	return strings.Map(func(r rune) rune {
		if r == '\n' || r == '\t' {
			return r
		}
		if r == '\r' {
			return '\n'
		}
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, out)
}
