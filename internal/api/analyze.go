package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"gluten-check/internal/ocr"
	"gluten-check/internal/scoring"
	"gluten-check/internal/store"
	"gluten-check/internal/util"
)

// ingredientsText returns the request text or ErrMissingIngredients when
// the field is absent or blank.
func ingredientsText(value *string) (string, error) {
	if value == nil || strings.TrimSpace(*value) == "" {
		return "", ErrMissingIngredients
	}
	return *value, nil
}

func (s *Server) handleAnalyze(c *gin.Context) {
	var req AnalyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.renderError(c, http.StatusBadRequest, ErrMissingIngredients)
		return
	}
	text, err := ingredientsText(req.IngredientsText)
	if err != nil {
		s.renderError(c, http.StatusBadRequest, err)
		return
	}

	timer := util.StartTimer()
	requestID := requestIDFrom(c)
	result, decidedBy := s.classifier.Trace(text)
	id := s.record(requestID, recordInput{
		source:    store.SourceText,
		text:      text,
		result:    result,
		decidedBy: decidedBy,
		elapsed:   timer.Elapsed(),
	})
	if id != "" {
		c.Header("X-Analysis-ID", id)
	}
	c.JSON(http.StatusOK, result)
}

func (s *Server) handleOCR(c *gin.Context) {
	if s.extractor == nil {
		c.JSON(http.StatusServiceUnavailable, ocr.Failed(ocr.ErrDisabled))
		return
	}
	extraction, status := s.extract(c)
	c.JSON(status, extraction)
}

func (s *Server) handleScan(c *gin.Context) {
	if s.extractor == nil {
		c.JSON(http.StatusServiceUnavailable, ScanResponse{OCR: ocr.Failed(ocr.ErrDisabled)})
		return
	}
	timer := util.StartTimer()
	extraction, status := s.extract(c)
	if status != http.StatusOK {
		c.JSON(status, ScanResponse{OCR: extraction})
		return
	}
	// A blank read would otherwise classify as gluten-free.
	if strings.TrimSpace(extraction.Text) == "" {
		c.JSON(http.StatusUnprocessableEntity, ScanResponse{
			OCR:   extraction,
			Error: "no text recognized in image",
		})
		return
	}

	result, decidedBy := s.classifier.Trace(extraction.Text)
	requestID := requestIDFrom(c)
	id := s.record(requestID, recordInput{
		source:        store.SourceOCR,
		text:          extraction.Text,
		result:        result,
		decidedBy:     decidedBy,
		ocrConfidence: extraction.Confidence,
		elapsed:       timer.Elapsed(),
	})
	c.JSON(http.StatusOK, ScanResponse{OCR: extraction, Analysis: &result, AnalysisID: id})
}

// extract decodes the request image and runs the extractor under the OCR
// timeout. The returned status is the HTTP status to answer with.
func (s *Server) extract(c *gin.Context) (ocr.Extraction, int) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, s.maxImageBytes)
	var req OCRRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return ocr.Extraction{Error: fmt.Sprintf("image payload exceeds %d bytes", tooLarge.Limit)}, http.StatusRequestEntityTooLarge
		}
		return ocr.Extraction{Error: "No image provided"}, http.StatusBadRequest
	}
	image, err := ocr.DecodeBase64Image(req.Image)
	if errors.Is(err, ocr.ErrNoImage) {
		return ocr.Extraction{Error: "No image provided"}, http.StatusBadRequest
	}
	if err != nil {
		logrus.WithError(err).WithField("request_id", requestIDFrom(c)).Warn("decode image payload")
		return ocr.Failed(err), http.StatusInternalServerError
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), s.ocrTimeout)
	defer cancel()

	timer := util.StartTimer()
	extraction, err := s.extractor.ExtractText(ctx, image)
	if err != nil {
		logrus.WithError(err).WithFields(logrus.Fields{
			"request_id": requestIDFrom(c),
			"engine":     s.extractor.Name(),
		}).Error("ocr extraction failed")
		if errors.Is(err, ocr.ErrNoImage) {
			return ocr.Extraction{Error: "No image provided"}, http.StatusBadRequest
		}
		failed := ocr.Failed(err)
		if extraction.Error != "" {
			failed.Error = extraction.Error
		}
		return failed, http.StatusInternalServerError
	}
	logrus.WithFields(logrus.Fields{
		"request_id":  requestIDFrom(c),
		"engine":      s.extractor.Name(),
		"confidence":  extraction.Confidence,
		"duration_ms": timer.ElapsedMs(),
	}).Info("ocr extraction completed")
	return extraction, http.StatusOK
}

type recordInput struct {
	source        string
	text          string
	result        scoring.AnalysisResult
	decidedBy     string
	ocrConfidence float64
	elapsed       time.Duration
}

// record logs, persists and broadcasts one classification. Persistence
// failures never change the response; the returned ID is empty when the
// analysis was not stored.
func (s *Server) record(requestID string, in recordInput) string {
	logrus.WithFields(logrus.Fields{
		"request_id": requestID,
		"source":     in.source,
		"verdict":    in.result.Verdict,
		"decided_by": in.decidedBy,
		"flagged":    len(in.result.FlaggedIngredients),
		"duration":   in.elapsed,
	}).Info("ingredients analyzed")

	row := toModel(in.source, in.text, in.result)
	row.RequestID = requestID
	row.DecidedBy = in.decidedBy
	row.OCRConfidence = in.ocrConfidence
	row.ProcessingTimeMs = in.elapsed.Milliseconds()
	if row.CreatedAt.IsZero() {
		row.CreatedAt = time.Now().UTC()
	}

	if s.db != nil {
		if err := s.db.SaveAnalysis(&row); err != nil {
			logrus.WithError(err).WithField("request_id", requestID).Warn("save analysis")
			row.ID = ""
		}
	}

	dto := FromModel(row)
	s.notifier.Broadcast(AnalysisEvent{
		Type:      "analysis",
		RequestID: requestID,
		Analysis:  &dto,
	})
	return row.ID
}
