// Package history keeps a small sqlite record of past scans.
package history

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/rohunvora/anti-slop-lib-sub000/internal/engine"
)

// Run is one recorded scan.
type Run struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	CreatedAt  time.Time `gorm:"index" json:"createdAt"`
	Command    string    `gorm:"size:32" json:"command"`
	Catalog    string    `gorm:"size:32" json:"catalog"`
	Files      int       `json:"files"`
	Graded     int       `json:"graded"`
	Errors     int       `json:"errors"`
	MeanScore  int       `json:"meanScore"`
	MaxScore   int       `json:"maxScore"`
	Grade      string    `gorm:"size:1" json:"grade"`
	WorstGrade string    `gorm:"size:1" json:"worstGrade"`
	WorstFile  string    `json:"worstFile,omitempty"`
	Critical   int       `json:"critical"`
	Warning    int       `json:"warning"`
	Info       int       `json:"info"`
	Passed     bool      `json:"passed"`

	Results []FileRecord `gorm:"constraint:OnDelete:CASCADE" json:"results,omitempty"`
}

// FileRecord is the per-file row of a Run.
type FileRecord struct {
	ID     uint   `gorm:"primaryKey" json:"-"`
	RunID  uint   `gorm:"index" json:"-"`
	Path   string `json:"path"`
	Status string `gorm:"size:16" json:"status"`
	Score  int    `json:"score"`
	Grade  string `gorm:"size:1" json:"grade,omitempty"`
	Error  string `json:"error,omitempty"`
}

type Options struct {
	Path     string
	LogLevel string // silent, error, warn, info
}

// Store wraps a sqlite database opened with a single connection.
type Store struct {
	db   *gorm.DB
	path string
}

var ErrClosed = errors.New("history store is closed")

func gormLevel(s string) gormlogger.LogLevel {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "silent":
		return gormlogger.Silent
	case "error":
		return gormlogger.Error
	case "info":
		return gormlogger.Info
	default:
		return gormlogger.Warn
	}
}

// Open creates the parent directory, opens the database and migrates it.
func Open(opts Options) (*Store, error) {
	if strings.TrimSpace(opts.Path) == "" {
		return nil, errors.New("history path is empty")
	}
	if dir := filepath.Dir(opts.Path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create history dir %s: %w", dir, err)
		}
	}

	db, err := gorm.Open(sqlite.Open(opts.Path), &gorm.Config{
		Logger:                 gormlogger.Default.LogMode(gormLevel(opts.LogLevel)),
		SkipDefaultTransaction: true,
	})
	if err != nil {
		return nil, fmt.Errorf("open history %s: %w", opts.Path, err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("history sql.DB: %w", err)
	}
	// sqlite pragmas are per connection; one connection keeps them in force.
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)
	sqlDB.SetConnMaxLifetime(time.Hour)

	for _, p := range []string{
		"PRAGMA journal_mode = WAL;",
		"PRAGMA synchronous = NORMAL;",
		"PRAGMA foreign_keys = ON;",
	} {
		if err := db.Exec(p).Error; err != nil {
			_ = sqlDB.Close()
			return nil, fmt.Errorf("history pragma %q: %w", p, err)
		}
	}
	if err := db.AutoMigrate(&Run{}, &FileRecord{}); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("migrate history: %w", err)
	}
	return &Store{db: db, path: opts.Path}, nil
}

func (s *Store) Path() string { return s.path }

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	s.db = nil
	return sqlDB.Close()
}

// NewRun flattens a batch into a Run ready to Record.
func NewRun(command, catalog string, passed bool, agg engine.Aggregate, files []engine.FileResult) Run {
	run := Run{
		CreatedAt:  time.Now().UTC(),
		Command:    command,
		Catalog:    catalog,
		Files:      agg.Files,
		Graded:     agg.Graded,
		Errors:     agg.Errors,
		MeanScore:  agg.MeanScore,
		MaxScore:   agg.MaxScore,
		Grade:      string(agg.Grade),
		WorstGrade: string(agg.WorstGrade),
		WorstFile:  agg.WorstFile,
		Critical:   agg.Summary.Critical,
		Warning:    agg.Summary.Warning,
		Info:       agg.Summary.Info,
		Passed:     passed,
	}
	for _, f := range files {
		rec := FileRecord{Path: f.Path, Status: string(f.Status), Error: f.Error}
		if f.Result != nil {
			rec.Score = f.Result.Score
			rec.Grade = string(f.Result.Grade)
		}
		run.Results = append(run.Results, rec)
	}
	return run
}

// Record inserts run and its file rows in one transaction and returns the
// new run ID.
func (s *Store) Record(run Run) (uint, error) {
	if s == nil || s.db == nil {
		return 0, ErrClosed
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now().UTC()
	}
	err := s.db.Transaction(func(tx *gorm.DB) error {
		return tx.Create(&run).Error
	})
	if err != nil {
		return 0, fmt.Errorf("record run: %w", err)
	}
	return run.ID, nil
}

// Recent returns up to limit runs, newest first, without file rows.
func (s *Store) Recent(limit int) ([]Run, error) {
	if s == nil || s.db == nil {
		return nil, ErrClosed
	}
	if limit <= 0 {
		limit = 20
	}
	var runs []Run
	if err := s.db.Order("created_at DESC, id DESC").Limit(limit).Find(&runs).Error; err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	return runs, nil
}

// Get loads one run with its file rows.
func (s *Store) Get(id uint) (Run, error) {
	if s == nil || s.db == nil {
		return Run{}, ErrClosed
	}
	var run Run
	err := s.db.Preload("Results", func(db *gorm.DB) *gorm.DB {
		return db.Order("path ASC")
	}).First(&run, id).Error
	if err != nil {
		return Run{}, fmt.Errorf("load run %d: %w", id, err)
	}
	return run, nil
}

// Prune keeps the newest keep runs and deletes the rest. keep <= 0 is a
// no-op.
func (s *Store) Prune(keep int) (int64, error) {
	if s == nil || s.db == nil {
		return 0, ErrClosed
	}
	if keep <= 0 {
		return 0, nil
	}
	var ids []uint
	err := s.db.Model(&Run{}).
		Order("created_at DESC, id DESC").
		Pluck("id", &ids).Error
	if err != nil {
		return 0, fmt.Errorf("find stale runs: %w", err)
	}
	if len(ids) <= keep {
		return 0, nil
	}
	stale := ids[keep:]
	var removed int64
	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("run_id IN ?", stale).Delete(&FileRecord{}).Error; err != nil {
			return err
		}
		res := tx.Where("id IN ?", stale).Delete(&Run{})
		removed = res.RowsAffected
		return res.Error
	})
	if err != nil {
		return 0, fmt.Errorf("prune runs: %w", err)
	}
	return removed, nil
}
