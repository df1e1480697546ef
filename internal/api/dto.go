package api

import (
	"time"

	"gluten-check/internal/ocr"
	"gluten-check/internal/scoring"
	"gluten-check/internal/store"
)

// AnalyzeRequest is the body of POST /analyze. A pointer distinguishes a
// missing field from an explicit value.
type AnalyzeRequest struct {
	IngredientsText *string `json:"ingredients_text"`
}

// OCRRequest carries a base64 image, optionally as a data URL.
type OCRRequest struct {
	Image string `json:"image"`
}

// BatchItem is one entry of a batch analysis request.
type BatchItem struct {
	ID              string  `json:"id"`
	IngredientsText *string `json:"ingredients_text"`
}

// BatchAnalyzeRequest is the body of POST /api/analyze/batch.
type BatchAnalyzeRequest struct {
	Items []BatchItem `json:"items"`
}

// BatchResultDTO is the outcome for one batch item. Exactly one of Result
// and Error is set.
type BatchResultDTO struct {
	ID         string                  `json:"id"`
	Result     *scoring.AnalysisResult `json:"result,omitempty"`
	Error      string                  `json:"error,omitempty"`
	AnalysisID string                  `json:"analysis_id,omitempty"`
}

// BatchAnalyzeResponse keeps items in request order.
type BatchAnalyzeResponse struct {
	Items []BatchResultDTO `json:"items"`
}

// ScanResponse is returned by POST /api/scan.
type ScanResponse struct {
	OCR        ocr.Extraction          `json:"ocr"`
	Analysis   *scoring.AnalysisResult `json:"analysis,omitempty"`
	AnalysisID string                  `json:"analysis_id,omitempty"`
	Error      string                  `json:"error,omitempty"`
}

// IngredientDTO mirrors one flagged ingredient in history responses.
type IngredientDTO struct {
	Name       string  `json:"name"`
	Reason     string  `json:"reason"`
	Confidence float64 `json:"confidence"`
}

// AnalysisRecordDTO is the API form of a stored analysis.
type AnalysisRecordDTO struct {
	ID                 string          `json:"id"`
	RequestID          string          `json:"request_id,omitempty"`
	Source             string          `json:"source"`
	InputText          string          `json:"input_text"`
	IsGlutenFree       bool            `json:"is_gluten_free"`
	Verdict            string          `json:"verdict"`
	Message            string          `json:"message"`
	DecidedBy          string          `json:"decided_by,omitempty"`
	FlaggedIngredients []IngredientDTO `json:"flagged_ingredients"`
	OCRConfidence      float64         `json:"ocr_confidence,omitempty"`
	ProcessingTimeMs   int64           `json:"processing_time_ms"`
	CreatedAt          time.Time       `json:"created_at"`
}

// AnalysesResponse is the paginated response for GET /api/analyses.
type AnalysesResponse struct {
	Items []AnalysisRecordDTO `json:"items"`
	Total int64               `json:"total"`
}

// FromModel converts a store.Analysis into the DTO representation.
func FromModel(a store.Analysis) AnalysisRecordDTO {
	flagged := a.Flagged()
	items := make([]IngredientDTO, 0, len(flagged))
	for _, f := range flagged {
		items = append(items, IngredientDTO{Name: f.Name, Reason: f.Reason, Confidence: f.Confidence})
	}
	return AnalysisRecordDTO{
		ID:                 a.ID,
		RequestID:          a.RequestID,
		Source:             a.Source,
		InputText:          a.InputText,
		IsGlutenFree:       a.IsGlutenFree,
		Verdict:            a.Verdict,
		Message:            a.Message,
		DecidedBy:          a.DecidedBy,
		FlaggedIngredients: items,
		OCRConfidence:      round2(a.OCRConfidence),
		ProcessingTimeMs:   a.ProcessingTimeMs,
		CreatedAt:          a.CreatedAt,
	}
}

// toModel builds the persisted form of one classification.
func toModel(source, text string, result scoring.AnalysisResult) store.Analysis {
	row := store.Analysis{
		Source:       source,
		InputText:    text,
		IsGlutenFree: result.IsGlutenFree,
		Verdict:      string(result.Verdict),
		Message:      result.Message,
	}
	flagged := make([]store.FlaggedIngredient, 0, len(result.FlaggedIngredients))
	for _, rule := range result.FlaggedIngredients {
		flagged = append(flagged, store.FlaggedIngredient{
			Name:       rule.Name,
			Reason:     rule.Reason,
			Confidence: rule.Confidence,
		})
	}
	row.SetFlagged(flagged)
	return row
}

func round2(v float64) float64 {
	return float64(int(v*100+0.5)) / 100
}
