// Package gormstore persists executed action records for reporting.
package gormstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	storemodel "tickbot/internal/store/model"

	"gorm.io/datatypes"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type actionRecordModel = storemodel.ActionRecordModel

// ActionRecord is the read-side view of one executed action.
type ActionRecord struct {
	ID         int64  `json:"id"`
	Action     string `json:"action"`
	Success    bool   `json:"success"`
	DurationMs int64  `json:"duration_ms"`
	Detail     string `json:"detail,omitempty"`
	CreatedAt  int64  `json:"created_at"`
}

// ActionTotal aggregates outcomes per action for the report chart.
type ActionTotal struct {
	Action    string `json:"action"`
	Successes int64  `json:"successes"`
	Errors    int64  `json:"errors"`
}

// GormStore implements action history storage using Gorm + SQLite.
type GormStore struct {
	db *gorm.DB
}

// NewGormStore opens (or creates) the SQLite file at path.
func NewGormStore(path string) (*GormStore, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("gorm store: db path cannot be empty")
	}
	if err := ensureDir(path); err != nil {
		return nil, err
	}
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&cache=shared", path)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:                                   logger.Default.LogMode(logger.Silent),
		DisableForeignKeyConstraintWhenMigrating: true,
	})
	if err != nil {
		return nil, err
	}
	if err := db.AutoMigrate(&actionRecordModel{}); err != nil {
		return nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	// SQLite + WAL: allow a small amount of parallelism for concurrent HTTP
	// reads while keeping lock contention low.
	sqlDB.SetMaxOpenConns(2)
	sqlDB.SetMaxIdleConns(2)
	return &GormStore{db: db}, nil
}

// Close closes the underlying database connection.
func (s *GormStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// SQLDB exposes the underlying *sql.DB for shared connections.
func (s *GormStore) SQLDB() (*sql.DB, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("gorm store not initialized")
	}
	return s.db.DB()
}

// RecordAction appends one executed action.
func (s *GormStore) RecordAction(ctx context.Context, action string, success bool, durationMs int64, detail string) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("gorm store not initialized")
	}
	rec := actionRecordModel{
		Action:        action,
		DurationMs:    durationMs,
		CreatedAtUnix: time.Now().Unix(),
	}
	if success {
		rec.Success = 1
	}
	if detail != "" {
		if raw, err := json.Marshal(map[string]string{"error": detail}); err == nil {
			rec.Detail = datatypes.JSON(raw)
		}
	}
	return s.db.WithContext(ctx).Create(&rec).Error
}

// RecentActions returns the newest records first.
func (s *GormStore) RecentActions(ctx context.Context, limit int) ([]ActionRecord, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("gorm store not initialized")
	}
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	var rows []actionRecordModel
	if err := s.db.WithContext(ctx).Order("id DESC").Limit(limit).Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]ActionRecord, 0, len(rows))
	for _, row := range rows {
		out = append(out, ActionRecord{
			ID:         row.ID,
			Action:     row.Action,
			Success:    row.Success == 1,
			DurationMs: row.DurationMs,
			Detail:     detailError(row.Detail),
			CreatedAt:  row.CreatedAtUnix,
		})
	}
	return out, nil
}

// ActionTotals aggregates success and error counts per action.
func (s *GormStore) ActionTotals(ctx context.Context) ([]ActionTotal, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("gorm store not initialized")
	}
	type row struct {
		Action  string
		Success int
		Total   int64
	}
	var rows []row
	err := s.db.WithContext(ctx).
		Model(&actionRecordModel{}).
		Select("action, success, COUNT(*) AS total").
		Group("action").Group("success").
		Order("action").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	byAction := make(map[string]*ActionTotal)
	var order []string
	for _, r := range rows {
		tot, ok := byAction[r.Action]
		if !ok {
			tot = &ActionTotal{Action: r.Action}
			byAction[r.Action] = tot
			order = append(order, r.Action)
		}
		if r.Success == 1 {
			tot.Successes += r.Total
		} else {
			tot.Errors += r.Total
		}
	}
	out := make([]ActionTotal, 0, len(order))
	for _, action := range order {
		out = append(out, *byAction[action])
	}
	return out, nil
}

func detailError(raw datatypes.JSON) string {
	if len(raw) == 0 {
		return ""
	}
	var m map[string]string
	if err := json.Unmarshal(raw, &m); err != nil {
		return ""
	}
	return m["error"]
}

func ensureDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "" || dir == "." {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}
