package api

import (
	"errors"
	"fmt"
	"net/http"
	"runtime"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"gluten-check/internal/store"
	"gluten-check/internal/util"
)

// MaxBatchItems bounds one batch request.
const MaxBatchItems = 500

var errEmptyBatch = errors.New("items must not be empty")

func (s *Server) handleAnalyzeBatch(c *gin.Context) {
	var req BatchAnalyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.renderError(c, http.StatusBadRequest, fmt.Errorf("invalid batch request: %w", err))
		return
	}
	if len(req.Items) == 0 {
		s.renderError(c, http.StatusBadRequest, errEmptyBatch)
		return
	}
	if len(req.Items) > MaxBatchItems {
		s.renderError(c, http.StatusBadRequest, fmt.Errorf("too many items: %d (max %d)", len(req.Items), MaxBatchItems))
		return
	}

	timer := util.StartTimer()
	requestID := requestIDFrom(c)
	results := make([]BatchResultDTO, len(req.Items))

	g, gctx := errgroup.WithContext(c.Request.Context())
	g.SetLimit(workerCount(len(req.Items)))
	for i := range req.Items {
		g.Go(func() error {
			if gctx.Err() != nil {
				return gctx.Err()
			}
			item := req.Items[i]
			results[i] = BatchResultDTO{ID: item.ID}

			text, err := ingredientsText(item.IngredientsText)
			if err != nil {
				results[i].Error = err.Error()
				return nil
			}
			itemTimer := util.StartTimer()
			result, decidedBy := s.classifier.Trace(text)
			results[i].Result = &result
			results[i].AnalysisID = s.record(requestID, recordInput{
				source:    store.SourceBatch,
				text:      text,
				result:    result,
				decidedBy: decidedBy,
				elapsed:   itemTimer.Elapsed(),
			})
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		logrus.WithError(err).WithField("request_id", requestID).Warn("batch analysis interrupted")
		s.renderError(c, http.StatusServiceUnavailable, err)
		return
	}

	processed := 0
	for _, r := range results {
		if r.Result != nil {
			processed++
		}
	}
	logrus.WithFields(logrus.Fields{
		"request_id":  requestID,
		"items":       len(results),
		"processed":   processed,
		"duration_ms": timer.ElapsedMs(),
	}).Info("batch analyzed")
	s.notifier.Broadcast(AnalysisEvent{
		Type:      "batch",
		RequestID: requestID,
		Processed: processed,
		Total:     len(results),
		Message:   fmt.Sprintf("batch analyzed: %d of %d items classified", processed, len(results)),
	})
	c.JSON(http.StatusOK, BatchAnalyzeResponse{Items: results})
}

func workerCount(items int) int {
	return max(min(runtime.NumCPU(), items), 1)
}
