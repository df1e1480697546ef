// Package tesseract implements ocr.Extractor on top of the gosseract client.
package tesseract

import (
	"context"
	"fmt"

	"github.com/otiai10/gosseract/v2"
	"github.com/sirupsen/logrus"

	"gluten-check/internal/ocr"
)

// fallbackConfidence is reported when Tesseract returns text but no word boxes.
const fallbackConfidence = 90

// Config controls recognition.
type Config struct {
	Languages  []string
	Preprocess ocr.PreprocessOptions
}

// Engine runs Tesseract on preprocessed label photos. A fresh client is
// created per call so the engine is safe for concurrent use.
type Engine struct {
	clientFactory func() *gosseract.Client
	languages     []string
	preprocess    ocr.PreprocessOptions
}

// New constructs a Tesseract-backed extractor.
func New(cfg Config) *Engine {
	langs := cfg.Languages
	if len(langs) == 0 {
		langs = []string{"eng"}
	}
	opts := cfg.Preprocess
	if opts == (ocr.PreprocessOptions{}) {
		opts = ocr.DefaultPreprocessOptions()
	}
	return &Engine{
		clientFactory: gosseract.NewClient,
		languages:     append([]string(nil), langs...),
		preprocess:    opts,
	}
}

func (e *Engine) Name() string { return "tesseract" }

type recognition struct {
	extraction ocr.Extraction
	err        error
}

// ExtractText preprocesses the image and recognizes its text. The cgo call
// cannot be interrupted; when ctx ends first the result is discarded.
func (e *Engine) ExtractText(ctx context.Context, image []byte) (ocr.Extraction, error) {
	if err := ctx.Err(); err != nil {
		return ocr.Failed(err), err
	}
	prepared, err := ocr.Preprocess(image, e.preprocess)
	if err != nil {
		logrus.WithError(err).Error("failed to decode image")
		return ocr.Failed(err), err
	}
	logrus.WithFields(logrus.Fields{
		"width":  prepared.Width,
		"height": prepared.Height,
		"format": prepared.Format,
	}).Info("processing image")

	done := make(chan recognition, 1)
	go func() {
		extraction, err := e.recognize(prepared)
		done <- recognition{extraction: extraction, err: err}
	}()

	select {
	case <-ctx.Done():
		return ocr.Failed(ctx.Err()), ctx.Err()
	case res := <-done:
		if res.err != nil {
			logrus.WithError(res.err).Error("ocr processing error")
			return ocr.Failed(res.err), res.err
		}
		res.extraction.Width = prepared.Width
		res.extraction.Height = prepared.Height
		logrus.WithField("confidence", res.extraction.Confidence).Info("ocr processing completed")
		return res.extraction, nil
	}
}

func (e *Engine) recognize(prepared *ocr.Prepared) (ocr.Extraction, error) {
	client := e.clientFactory()
	defer client.Close()

	if err := client.SetLanguage(e.languages...); err != nil {
		return ocr.Extraction{}, fmt.Errorf("set languages: %w", err)
	}
	if err := client.SetPageSegMode(gosseract.PSM_SINGLE_BLOCK); err != nil {
		return ocr.Extraction{}, fmt.Errorf("set page segmentation: %w", err)
	}
	if err := client.SetVariable(gosseract.SettableVariable("preserve_interword_spaces"), "1"); err != nil {
		return ocr.Extraction{}, fmt.Errorf("set preserve_interword_spaces: %w", err)
	}
	if err := client.SetImageFromBytes(prepared.PNG); err != nil {
		return ocr.Extraction{}, fmt.Errorf("set image: %w", err)
	}
	text, err := client.Text()
	if err != nil {
		return ocr.Extraction{}, fmt.Errorf("recognize text: %w", err)
	}

	return ocr.Extraction{
		Success:    true,
		Text:       ocr.CleanText(text),
		Confidence: meanWordConfidence(client),
	}, nil
}

func meanWordConfidence(client *gosseract.Client) float64 {
	boxes, err := client.GetBoundingBoxes(gosseract.RIL_WORD)
	if err != nil || len(boxes) == 0 {
		return fallbackConfidence
	}
	var sum float64
	for _, box := range boxes {
		sum += box.Confidence
	}
	return sum / float64(len(boxes))
}
