package runlog

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"
)

// Store is the local run ledger: one row per ingestion run plus one row per
// uploaded object. The object rows carry payload digests, which is what makes
// re-runs over overlapping ranges skip byte-identical uploads.
type Store struct {
	db *gorm.DB
}

type runModel struct {
	ID          int64  `gorm:"column:id;primaryKey"`
	RunID       string `gorm:"column:run_id;uniqueIndex"`
	StartedAt   int64  `gorm:"column:started_at"`
	FinishedAt  int64  `gorm:"column:finished_at"`
	Instruments int    `gorm:"column:instruments"`
	Skipped     int    `gorm:"column:skipped"`
	Buckets     int    `gorm:"column:buckets"`
	Written     int    `gorm:"column:written"`
	Identical   int    `gorm:"column:identical"`
	Failed      int    `gorm:"column:failed"`
}

func (runModel) TableName() string { return "ingest_runs" }

type objectModel struct {
	ID        int64  `gorm:"column:id;primaryKey"`
	Key       string `gorm:"column:object_key;uniqueIndex"`
	Digest    string `gorm:"column:digest;index"`
	Size      int    `gorm:"column:size"`
	Buckets   int    `gorm:"column:buckets"`
	RunID     string `gorm:"column:run_id;index"`
	WrittenAt int64  `gorm:"column:written_at"`
}

func (objectModel) TableName() string { return "ingest_objects" }

func Open(path string) (*Store, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("runlog: database path is empty")
	}
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", path)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, err
	}
	if err := db.AutoMigrate(&runModel{}, &objectModel{}); err != nil {
		return nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// SeenObject reports whether the key is already recorded with the same digest.
func (s *Store) SeenObject(ctx context.Context, key, digest string) (bool, error) {
	if s == nil || s.db == nil {
		return false, fmt.Errorf("runlog: store not initialized")
	}
	var model objectModel
	err := s.db.WithContext(ctx).Where("object_key = ?", key).First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, nil
		}
		return false, err
	}
	return model.Digest == digest, nil
}

// RecordObject upserts the ledger row for one uploaded object. A re-upload of
// the same key replaces the previous row.
func (s *Store) RecordObject(ctx context.Context, runID, key, digest string, size int, buckets int) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("runlog: store not initialized")
	}
	model := objectModel{
		Key:       key,
		Digest:    digest,
		Size:      size,
		Buckets:   buckets,
		RunID:     runID,
		WrittenAt: time.Now().UnixMilli(),
	}
	return s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "object_key"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"digest", "size", "buckets", "run_id", "written_at",
			}),
		}).
		Create(&model).Error
}

// RunSummary is the per-run row persisted at the end of a cycle.
type RunSummary struct {
	RunID       string
	StartedAt   time.Time
	FinishedAt  time.Time
	Instruments int
	Skipped     int
	Buckets     int
	Written     int
	Identical   int
	Failed      int
}

func (s *Store) RecordRun(ctx context.Context, sum RunSummary) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("runlog: store not initialized")
	}
	model := runModel{
		RunID:       sum.RunID,
		StartedAt:   sum.StartedAt.UnixMilli(),
		FinishedAt:  sum.FinishedAt.UnixMilli(),
		Instruments: sum.Instruments,
		Skipped:     sum.Skipped,
		Buckets:     sum.Buckets,
		Written:     sum.Written,
		Identical:   sum.Identical,
		Failed:      sum.Failed,
	}
	return s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "run_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"started_at", "finished_at", "instruments", "skipped",
				"buckets", "written", "identical", "failed",
			}),
		}).
		Create(&model).Error
}

// RecentRuns returns the latest runs, newest first.
func (s *Store) RecentRuns(ctx context.Context, limit int) ([]RunSummary, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("runlog: store not initialized")
	}
	if limit <= 0 || limit > 500 {
		limit = 20
	}
	var models []runModel
	if err := s.db.WithContext(ctx).
		Order("started_at DESC, id DESC").
		Limit(limit).
		Find(&models).Error; err != nil {
		return nil, err
	}
	out := make([]RunSummary, 0, len(models))
	for _, m := range models {
		out = append(out, RunSummary{
			RunID:       m.RunID,
			StartedAt:   time.UnixMilli(m.StartedAt),
			FinishedAt:  time.UnixMilli(m.FinishedAt),
			Instruments: m.Instruments,
			Skipped:     m.Skipped,
			Buckets:     m.Buckets,
			Written:     m.Written,
			Identical:   m.Identical,
			Failed:      m.Failed,
		})
	}
	return out, nil
}
