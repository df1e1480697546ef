package api

import (
	"encoding/csv"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"gluten-check/internal/store"
)

const (
	defaultPageSize = 100
	maxPageSize     = 1000
)

func (s *Server) handleListAnalyses(c *gin.Context) {
	if s.db == nil {
		s.renderError(c, http.StatusServiceUnavailable, ErrHistoryDisabled)
		return
	}
	page, _ := strconv.Atoi(c.Query("page"))
	if page < 0 {
		page = 0
	}
	pageSize, _ := strconv.Atoi(c.Query("pageSize"))
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	pageSize = min(pageSize, maxPageSize)

	rows, total, err := s.db.ListAnalyses(store.AnalysisQuery{
		Query:   c.Query("q"),
		Verdict: c.Query("verdict"),
		Source:  c.Query("source"),
		Sort:    c.Query("sort"),
		Offset:  page * pageSize,
		Limit:   pageSize,
	})
	if err != nil {
		s.renderError(c, http.StatusInternalServerError, err)
		return
	}
	dtos := make([]AnalysisRecordDTO, 0, len(rows))
	for _, row := range rows {
		dtos = append(dtos, FromModel(row))
	}
	c.JSON(http.StatusOK, AnalysesResponse{Items: dtos, Total: total})
}

func (s *Server) handleGetAnalysis(c *gin.Context) {
	if s.db == nil {
		s.renderError(c, http.StatusServiceUnavailable, ErrHistoryDisabled)
		return
	}
	id := strings.TrimSpace(c.Param("id"))
	if id == "" {
		s.renderError(c, http.StatusBadRequest, errors.New("identifier is required"))
		return
	}
	row, err := s.db.GetAnalysis(id)
	if errors.Is(err, store.ErrNotFound) {
		s.renderError(c, http.StatusNotFound, fmt.Errorf("%w: %s", err, id))
		return
	}
	if err != nil {
		s.renderError(c, http.StatusInternalServerError, err)
		return
	}
	c.JSON(http.StatusOK, FromModel(*row))
}

func (s *Server) handleExportCSV(c *gin.Context) {
	if s.db == nil {
		s.renderError(c, http.StatusServiceUnavailable, ErrHistoryDisabled)
		return
	}
	rows, _, err := s.db.ListAnalyses(store.AnalysisQuery{
		Verdict: c.Query("verdict"),
		Source:  c.Query("source"),
		Limit:   -1,
	})
	if err != nil {
		s.renderError(c, http.StatusInternalServerError, err)
		return
	}

	c.Header("Content-Disposition", "attachment; filename=gluten-check-export.csv")
	c.Header("Content-Type", "text/csv")

	writer := csv.NewWriter(c.Writer)
	headers := []string{"id", "created_at", "source", "verdict", "is_gluten_free", "message", "flagged_ingredients", "max_confidence", "ocr_confidence", "processing_time_ms", "input_text"}
	if err := writer.Write(headers); err != nil {
		return
	}
	for _, row := range rows {
		dto := FromModel(row)
		names := make([]string, 0, len(dto.FlaggedIngredients))
		maxConfidence := 0.0
		for _, f := range dto.FlaggedIngredients {
			names = append(names, f.Name)
			maxConfidence = max(maxConfidence, f.Confidence)
		}
		line := []string{
			dto.ID,
			dto.CreatedAt.UTC().Format(time.RFC3339),
			dto.Source,
			dto.Verdict,
			strconv.FormatBool(dto.IsGlutenFree),
			dto.Message,
			strings.Join(names, "|"),
			fmt.Sprintf("%.2f", maxConfidence),
			fmt.Sprintf("%.2f", dto.OCRConfidence),
			strconv.FormatInt(dto.ProcessingTimeMs, 10),
			dto.InputText,
		}
		if err := writer.Write(line); err != nil {
			return
		}
	}
	writer.Flush()
}
