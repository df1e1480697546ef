package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"gluten-check/internal/ocr"
	"gluten-check/internal/scoring"
	"gluten-check/internal/store"
)

var (
	// ErrMissingIngredients is returned when a request has no ingredient text.
	ErrMissingIngredients = errors.New("Missing ingredients_text parameter")
	// ErrHistoryDisabled is returned by history routes when no store is configured.
	ErrHistoryDisabled = errors.New("analysis history disabled")
)

const (
	defaultOCRTimeout    = 30 * time.Second
	defaultMaxImageBytes = 16 << 20
)

// Config defines server dependencies.
type Config struct {
	DBPath         string
	DisableHistory bool
	SilentDB       bool
	VocabularyPath string
	// Extractor is optional; a nil extractor disables the OCR routes.
	Extractor      ocr.Extractor
	OCRTimeout     time.Duration
	// MaxImageBytes caps OCR request bodies. Zero means 16 MiB.
	MaxImageBytes  int64
	AllowedOrigins []string
}

// Server wires HTTP handlers with persistence and classification.
type Server struct {
	db             *store.Database
	classifier     *scoring.Classifier
	vocabularyPath string
	extractor      ocr.Extractor
	ocrTimeout     time.Duration
	maxImageBytes  int64
	allowedOrigins []string
	notifier       *AnalysisNotifier
	requestIDs     *requestIDs
}

// NewServer constructs the API server.
func NewServer(cfg Config) (*Server, error) {
	vocab, err := loadVocabulary(cfg.VocabularyPath)
	if err != nil {
		return nil, err
	}
	classifier, err := scoring.NewClassifier(vocab)
	if err != nil {
		return nil, err
	}
	logrus.WithFields(logrus.Fields{
		"gluten":      len(vocab.Gluten),
		"ambiguous":   len(vocab.Ambiguous),
		"safe_flours": len(vocab.SafeFlours),
		"source":      vocabularySource(cfg.VocabularyPath),
	}).Info("vocabulary loaded")

	var db *store.Database
	if cfg.DisableHistory {
		logrus.Info("analysis history disabled via configuration")
	} else {
		if strings.TrimSpace(cfg.DBPath) == "" {
			return nil, errors.New("db path required")
		}
		db, err = store.Open(cfg.DBPath, cfg.SilentDB)
		if err != nil {
			return nil, err
		}
	}

	if cfg.Extractor == nil {
		logrus.Info("OCR disabled - no extractor configured")
	} else {
		logrus.WithField("engine", cfg.Extractor.Name()).Info("OCR enabled")
	}

	timeout := cfg.OCRTimeout
	if timeout <= 0 {
		timeout = defaultOCRTimeout
	}
	maxImageBytes := cfg.MaxImageBytes
	if maxImageBytes <= 0 {
		maxImageBytes = defaultMaxImageBytes
	}

	return &Server{
		db:             db,
		classifier:     classifier,
		vocabularyPath: cfg.VocabularyPath,
		extractor:      cfg.Extractor,
		ocrTimeout:     timeout,
		maxImageBytes:  maxImageBytes,
		allowedOrigins: cfg.AllowedOrigins,
		notifier:       NewAnalysisNotifier(),
		requestIDs:     newRequestIDs(),
	}, nil
}

func loadVocabulary(path string) (scoring.Vocabulary, error) {
	if strings.TrimSpace(path) == "" {
		return scoring.DefaultVocabulary()
	}
	vocab, err := scoring.LoadVocabulary(path)
	if err != nil {
		return scoring.Vocabulary{}, fmt.Errorf("vocabulary %s: %w", path, err)
	}
	return vocab, nil
}

func vocabularySource(path string) string {
	if strings.TrimSpace(path) == "" {
		return "embedded"
	}
	return path
}

// Close releases the history store.
func (s *Server) Close() error {
	return s.db.Close()
}

// Router configures gin routes.
func (s *Server) Router() (*gin.Engine, error) {
	r := gin.Default()
	r.Use(s.requestIDs.middleware())

	corsCfg := cors.DefaultConfig()
	if len(s.allowedOrigins) == 0 {
		corsCfg.AllowAllOrigins = true
	} else {
		corsCfg.AllowCredentials = true
		corsCfg.AllowOrigins = s.allowedOrigins
	}
	corsCfg.AllowHeaders = []string{"Origin", "Content-Type", "Accept", requestIDHeader}
	corsCfg.ExposeHeaders = []string{requestIDHeader}
	corsCfg.AllowMethods = []string{"GET", "POST", "OPTIONS"}
	r.Use(cors.New(corsCfg))

	r.POST("/analyze", s.handleAnalyze)
	r.GET("/api/healthz", s.handleHealth)
	r.GET("/api/config", s.handleConfig)

	api := r.Group("/api")
	{
		api.POST("/analyze", s.handleAnalyze)
		api.POST("/analyze/batch", s.handleAnalyzeBatch)
		api.POST("/ocr", s.handleOCR)
		api.POST("/scan", s.handleScan)
		api.GET("/vocabulary", s.handleVocabulary)
		api.GET("/analyses", s.handleListAnalyses)
		api.GET("/analyses/:id", s.handleGetAnalysis)
		api.GET("/export.csv", s.handleExportCSV)
		api.GET("/stream", s.handleStream)
	}

	return r, nil
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) handleConfig(c *gin.Context) {
	vocab := s.classifier.Vocabulary()
	resp := gin.H{
		"vocabulary_source":     vocabularySource(s.vocabularyPath),
		"gluten_ingredients":    len(vocab.Gluten),
		"ambiguous_ingredients": len(vocab.Ambiguous),
		"safe_flours":           len(vocab.SafeFlours),
		"rules":                 s.classifier.RuleNames(),
		"likely_threshold":      scoring.LikelyGlutenThreshold,
		"ocr_enabled":           s.extractor != nil,
		"ocr_timeout":           s.ocrTimeout.String(),
		"ocr_max_image_bytes":   s.maxImageBytes,
		"history_enabled":       s.db != nil,
		"stream_clients":        s.notifier.Clients(),
	}
	if s.extractor != nil {
		resp["ocr_engine"] = s.extractor.Name()
	}
	if s.db != nil {
		counts, err := s.db.CountByVerdict()
		if err != nil {
			s.renderError(c, http.StatusInternalServerError, err)
			return
		}
		resp["verdict_counts"] = counts
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) handleVocabulary(c *gin.Context) {
	c.JSON(http.StatusOK, s.classifier.Vocabulary())
}

func (s *Server) handleStream(c *gin.Context) {
	upgrader := websocket.Upgrader{
		HandshakeTimeout:  5 * time.Second,
		EnableCompression: true,
		CheckOrigin: func(r *http.Request) bool {
			if len(s.allowedOrigins) == 0 {
				return true
			}
			origin := strings.TrimSpace(r.Header.Get("Origin"))
			for _, allowed := range s.allowedOrigins {
				if strings.EqualFold(origin, allowed) {
					return true
				}
			}
			return false
		},
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logrus.WithError(err).Warn("upgrade websocket")
		return
	}

	client := s.notifier.Register(conn)
	logrus.WithField("remote", conn.RemoteAddr().String()).Info("analysis websocket connected")
	defer s.notifier.Unregister(client)

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if !websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logrus.WithField("remote", conn.RemoteAddr().String()).Info("analysis websocket closed")
			} else {
				logrus.WithError(err).Warn("analysis websocket unexpected close")
			}
			break
		}
	}
}

func (s *Server) renderError(c *gin.Context, status int, err error) {
	c.JSON(status, gin.H{"error": err.Error()})
}
