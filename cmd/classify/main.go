package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"gluten-check/internal/api"
	"gluten-check/internal/ocr"
	"gluten-check/internal/ocr/tesseract"
	"gluten-check/internal/scoring"
	"gluten-check/internal/util"
)

// report is printed for every classified input.
type report struct {
	Source    string                  `json:"source"`
	OCR       *ocr.Extraction         `json:"ocr,omitempty"`
	Analysis  *scoring.AnalysisResult `json:"analysis,omitempty"`
	DecidedBy string                  `json:"decided_by,omitempty"`
	Error     string                  `json:"error,omitempty"`
}

type multiFlag []string

func (m *multiFlag) String() string {
	return strings.Join(*m, ",")
}

func (m *multiFlag) Set(value string) error {
	*m = append(*m, value)
	return nil
}

func main() {
	util.ConfigureLogging(os.Getenv("LOG_LEVEL"), os.Getenv("LOG_FORMAT"))
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, nil))
}

// run executes the CLI and returns the process exit code. newExtractor may
// be nil, in which case images go through Tesseract.
func run(args []string, stdin io.Reader, stdout io.Writer, newExtractor func(langs []string) ocr.Extractor) int {
	fs := flag.NewFlagSet("classify", flag.ContinueOnError)
	var (
		text       = fs.String("text", "", "Ingredient text to classify")
		files      multiFlag
		images     multiFlag
		vocabPath  = fs.String("vocab", "", "Vocabulary override (JSON or YAML)")
		langs      = fs.String("lang", "eng", "Tesseract languages, '+' separated")
		ocrTimeout = fs.Duration("ocr-timeout", 30*time.Second, "Per-image OCR timeout")
	)
	fs.Var(&files, "file", "Text file with ingredients (repeatable)")
	fs.Var(&images, "image", "Label photo to OCR and classify (repeatable)")
	fs.SetOutput(os.Stderr)
	if err := fs.Parse(args); err != nil {
		return 2
	}

	vocab, err := scoring.DefaultVocabulary()
	if *vocabPath != "" {
		vocab, err = scoring.LoadVocabulary(*vocabPath)
	}
	if err != nil {
		logrus.Errorf("load vocabulary: %v", err)
		return 1
	}
	classifier, err := scoring.NewClassifier(vocab)
	if err != nil {
		logrus.Errorf("build classifier: %v", err)
		return 1
	}

	var reports []report
	failed := false
	classify := func(source, input string) {
		if strings.TrimSpace(input) == "" {
			reports = append(reports, report{Source: source, Error: api.ErrMissingIngredients.Error()})
			failed = true
			return
		}
		result, decidedBy := classifier.Trace(input)
		reports = append(reports, report{Source: source, Analysis: &result, DecidedBy: decidedBy})
	}

	if *text != "" {
		classify("text", *text)
	}
	for _, path := range files {
		data, err := os.ReadFile(path)
		if err != nil {
			reports = append(reports, report{Source: path, Error: fmt.Sprintf("read file: %v", err)})
			failed = true
			continue
		}
		classify(path, string(data))
	}
	if len(images) > 0 {
		if newExtractor == nil {
			newExtractor = func(langs []string) ocr.Extractor {
				return tesseract.New(tesseract.Config{Languages: langs})
			}
		}
		extractor := newExtractor(strings.Split(*langs, "+"))
		for _, path := range images {
			rep, ok := scanImage(extractor, classifier, path, *ocrTimeout)
			reports = append(reports, rep)
			failed = failed || !ok
		}
	}
	if *text == "" && len(files) == 0 && len(images) == 0 {
		data, err := io.ReadAll(stdin)
		if err != nil {
			logrus.Errorf("read stdin: %v", err)
			return 1
		}
		classify("stdin", string(data))
	}

	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	var payload any = reports
	if len(reports) == 1 {
		payload = reports[0]
	}
	if err := enc.Encode(payload); err != nil {
		logrus.Errorf("write output: %v", err)
		return 1
	}
	if failed {
		return 1
	}
	return 0
}

func scanImage(extractor ocr.Extractor, classifier *scoring.Classifier, path string, timeout time.Duration) (report, bool) {
	data, err := os.ReadFile(path)
	if err != nil {
		return report{Source: path, Error: fmt.Sprintf("read image: %v", err)}, false
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	extraction, err := extractor.ExtractText(ctx, data)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			err = fmt.Errorf("ocr timed out after %s: %w", timeout, err)
		}
		failure := ocr.Failed(err)
		return report{Source: path, OCR: &failure, Error: err.Error()}, false
	}
	if strings.TrimSpace(extraction.Text) == "" {
		return report{Source: path, OCR: &extraction, Error: "no text recognized in image"}, false
	}
	result, decidedBy := classifier.Trace(extraction.Text)
	return report{Source: path, OCR: &extraction, Analysis: &result, DecidedBy: decidedBy}, true
}
