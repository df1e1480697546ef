package main

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"gluten-check/internal/api"
	"gluten-check/internal/ocr/tesseract"
	"gluten-check/internal/util"
)

func main() {
	util.ConfigureLogging(os.Getenv("LOG_LEVEL"), os.Getenv("LOG_FORMAT"))

	baseDir, err := os.Getwd()
	if err != nil {
		logrus.Fatalf("determine working directory: %v", err)
	}

	disableHistory := envBool("DISABLE_HISTORY")
	dbPath := filepath.Join(baseDir, "data", "gluten-check.db")
	if override := strings.TrimSpace(os.Getenv("GLUTEN_DB_PATH")); override != "" {
		dbPath = override
	}
	if !disableHistory {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
			logrus.Fatalf("create data directory: %v", err)
		}
	}

	ocrTimeout := 30 * time.Second
	if timeout := strings.TrimSpace(os.Getenv("OCR_TIMEOUT")); timeout != "" {
		if d, err := time.ParseDuration(timeout); err == nil && d > 0 {
			ocrTimeout = d
		} else {
			logrus.Warnf("ignoring OCR_TIMEOUT %q", timeout)
		}
	}

	var maxImageBytes int64
	if v := strings.TrimSpace(os.Getenv("OCR_MAX_BYTES")); v != "" {
		if parsed, err := strconv.ParseInt(v, 10, 64); err == nil && parsed > 0 {
			maxImageBytes = parsed
		} else {
			logrus.Warnf("ignoring OCR_MAX_BYTES %q", v)
		}
	}

	cfg := api.Config{
		DBPath:         dbPath,
		DisableHistory: disableHistory,
		SilentDB:       !strings.EqualFold(strings.TrimSpace(os.Getenv("LOG_LEVEL")), "debug"),
		VocabularyPath: strings.TrimSpace(os.Getenv("VOCABULARY_PATH")),
		OCRTimeout:     ocrTimeout,
		MaxImageBytes:  maxImageBytes,
		AllowedOrigins: splitList(os.Getenv("ALLOWED_ORIGINS")),
	}

	if envBool("DISABLE_OCR") {
		logrus.Info("OCR disabled via configuration")
	} else {
		cfg.Extractor = tesseract.New(tesseract.Config{
			Languages: splitList(strings.ReplaceAll(os.Getenv("OCR_LANGUAGES"), "+", ",")),
		})
	}

	server, err := api.NewServer(cfg)
	if err != nil {
		logrus.Fatalf("create server: %v", err)
	}
	defer func() {
		if cerr := server.Close(); cerr != nil {
			logrus.WithError(cerr).Warn("close database")
		}
	}()

	router, err := server.Router()
	if err != nil {
		logrus.Fatalf("configure router: %v", err)
	}

	port := strings.TrimSpace(os.Getenv("PORT"))
	if port == "" {
		port = "8080"
	}

	logrus.Infof("starting gluten-check server on :%s", port)
	if err := router.Run(":" + port); err != nil {
		logrus.Fatalf("server exited: %v", err)
	}
}

func envBool(key string) bool {
	switch strings.ToLower(strings.TrimSpace(os.Getenv(key))) {
	case "1", "true", "yes":
		return true
	}
	return false
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
