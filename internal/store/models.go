package store

import (
	"encoding/json"
	"strings"
	"time"
)

const (
	SourceText  = "text"
	SourceOCR   = "ocr"
	SourceBatch = "batch"
)

// FlaggedIngredient is the persisted form of one flagged vocabulary entry.
type FlaggedIngredient struct {
	Name       string  `json:"name"`
	Reason     string  `json:"reason"`
	Confidence float64 `json:"confidence"`
}

// Analysis is one classified ingredient text kept for history and export.
type Analysis struct {
	ID               string `gorm:"primaryKey;size:36"`
	RequestID        string `gorm:"size:32;index"`
	Source           string `gorm:"size:16;index"`
	InputText        string `gorm:"type:text"`
	IsGlutenFree     bool   `gorm:"index"`
	Verdict          string `gorm:"size:32;index"`
	Message          string `gorm:"size:255"`
	DecidedBy        string `gorm:"size:64"`
	FlaggedJSON      string `gorm:"type:text"`
	OCRConfidence    float64
	ProcessingTimeMs int64
	CreatedAt        time.Time `gorm:"autoCreateTime;index"`
}

// SetFlagged persists the flagged ingredients as JSON.
func (a *Analysis) SetFlagged(items []FlaggedIngredient) {
	if items == nil {
		a.FlaggedJSON = "[]"
		return
	}
	payload, _ := json.Marshal(items)
	a.FlaggedJSON = string(payload)
}

// Flagged returns the decoded flagged ingredients, never nil.
func (a *Analysis) Flagged() []FlaggedIngredient {
	out := []FlaggedIngredient{}
	if strings.TrimSpace(a.FlaggedJSON) == "" {
		return out
	}
	if err := json.Unmarshal([]byte(a.FlaggedJSON), &out); err != nil {
		return []FlaggedIngredient{}
	}
	return out
}
