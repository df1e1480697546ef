// Package ocr turns product label photos into ingredient text. Recognition
// itself is delegated to an Extractor implementation such as the Tesseract
// engine in the tesseract subpackage.
package ocr

import (
	"context"
	"errors"
	"strings"
)

var (
	// ErrNoImage is returned when the request carries no image payload.
	ErrNoImage = errors.New("no image provided")
	// ErrInvalidImage is returned when the payload cannot be decoded as an image.
	ErrInvalidImage = errors.New("invalid image data")
	// ErrDisabled is returned by callers when no extractor is configured.
	ErrDisabled = errors.New("ocr disabled")
)

// Extraction is the collaborator-facing outcome of one OCR call. A failed
// extraction always has Success=false and a non-empty Error, so it can be
// told apart from a successful extraction that found no text.
type Extraction struct {
	Success bool   `json:"success"`
	Text    string `json:"text,omitempty"`
	// Confidence is on the 0-100 scale reported by Tesseract.
	Confidence float64 `json:"confidence,omitempty"`
	Error      string  `json:"error,omitempty"`
	Width      int     `json:"width,omitempty"`
	Height     int     `json:"height,omitempty"`
}

// Failed builds the failure form of an Extraction from err.
func Failed(err error) Extraction {
	msg := "ocr failed"
	if err != nil {
		msg = err.Error()
	}
	return Extraction{Success: false, Error: msg}
}

// Extractor recognizes text in an encoded image.
type Extractor interface {
	Name() string
	ExtractText(ctx context.Context, image []byte) (Extraction, error)
}

// CleanText applies the post-recognition fixes for label text: surrounding
// whitespace is trimmed and the pipe glyph Tesseract emits for a capital I
// is replaced.
func CleanText(text string) string {
	text = strings.TrimSpace(text)
	return strings.ReplaceAll(text, "|", "I")
}
