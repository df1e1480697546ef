package store

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// ErrNotFound is returned when an analysis does not exist.
var ErrNotFound = errors.New("analysis not found")

// Database wraps the GORM DB handle and exposes repository helpers.
type Database struct {
	gorm *gorm.DB
	mu   sync.Mutex
}

// Open initializes the SQLite-backed database at the provided path.
func Open(path string, silent bool) (*Database, error) {
	cfg := &gorm.Config{}
	if silent {
		cfg.Logger = logger.Default.LogMode(logger.Silent)
	}
	db, err := gorm.Open(sqlite.Open(path), cfg)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.AutoMigrate(&Analysis{}); err != nil {
		return nil, fmt.Errorf("auto migrate: %w", err)
	}
	if err := db.Exec("PRAGMA journal_mode=WAL").Error; err != nil {
		logrus.WithError(err).Warn("enable WAL mode")
	}
	if err := db.Exec("PRAGMA synchronous=NORMAL").Error; err != nil {
		logrus.WithError(err).Warn("set synchronous pragma")
	}
	if err := applyIndexes(db); err != nil {
		return nil, fmt.Errorf("apply indexes: %w", err)
	}
	return &Database{gorm: db}, nil
}

// Close closes the underlying database connection.
func (d *Database) Close() error {
	if d == nil {
		return nil
	}
	sqlDB, err := d.gorm.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// SaveAnalysis inserts a new analysis, assigning an ID when none is set.
func (d *Database) SaveAnalysis(a *Analysis) error {
	if d == nil {
		return errors.New("database is nil")
	}
	if a == nil {
		return errors.New("analysis is nil")
	}
	if strings.TrimSpace(a.ID) == "" {
		a.ID = uuid.NewString()
	}
	if a.FlaggedJSON == "" {
		a.SetFlagged(nil)
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.gorm.Create(a).Error
}

// GetAnalysis fetches an analysis by ID.
func (d *Database) GetAnalysis(id string) (*Analysis, error) {
	var row Analysis
	if err := d.gorm.Where("id = ?", strings.TrimSpace(id)).First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &row, nil
}

// AnalysisQuery encapsulates filters and pagination for listing analyses.
type AnalysisQuery struct {
	Query   string
	Verdict string
	Source  string
	Sort    string
	Offset  int
	Limit   int
}

// ListAnalyses returns paginated analyses applying optional filters.
func (d *Database) ListAnalyses(opts AnalysisQuery) ([]Analysis, int64, error) {
	var total int64
	base := d.gorm.Model(&Analysis{})
	if q := strings.TrimSpace(opts.Query); q != "" {
		like := fmt.Sprintf("%%%s%%", strings.ToLower(q))
		base = base.Where("LOWER(input_text) LIKE ? OR LOWER(flagged_json) LIKE ?", like, like)
	}
	if verdict := strings.TrimSpace(opts.Verdict); verdict != "" {
		base = base.Where("verdict = ?", strings.ToLower(verdict))
	}
	if source := strings.TrimSpace(opts.Source); source != "" {
		base = base.Where("source = ?", strings.ToLower(source))
	}

	if err := base.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	queryBuilder := base.Order(orderForSort(opts.Sort)).Offset(opts.Offset)
	if opts.Limit > 0 {
		queryBuilder = queryBuilder.Limit(opts.Limit)
	}

	var rows []Analysis
	if err := queryBuilder.Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

func orderForSort(sort string) string {
	switch strings.ToLower(strings.TrimSpace(sort)) {
	case "created_asc":
		return "analyses.created_at ASC, analyses.id ASC"
	case "duration_desc":
		return "analyses.processing_time_ms DESC, analyses.created_at DESC"
	default:
		return "analyses.created_at DESC, analyses.id DESC"
	}
}

// CountByVerdict returns the number of stored analyses per verdict.
func (d *Database) CountByVerdict() (map[string]int64, error) {
	var rows []struct {
		Verdict string
		Total   int64
	}
	if err := d.gorm.Model(&Analysis{}).
		Select("verdict, COUNT(*) AS total").
		Group("verdict").
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	out := make(map[string]int64, len(rows))
	for _, row := range rows {
		out[row.Verdict] = row.Total
	}
	return out, nil
}

func applyIndexes(db *gorm.DB) error {
	stmts := []string{
		"CREATE INDEX IF NOT EXISTS idx_analyses_verdict_created ON analyses(verdict, created_at)",
		"CREATE INDEX IF NOT EXISTS idx_analyses_source_created ON analyses(source, created_at)",
	}
	for _, stmt := range stmts {
		if err := db.Exec(stmt).Error; err != nil {
			return err
		}
	}
	return nil
}
