// Package store wires the persistence backends into the engine's archive
// hook.
package store

import (
	"context"

	"tickbot/internal/agent/engine"
	"tickbot/internal/store/agentlog"
	"tickbot/internal/store/gormstore"
)

// Archive persists the activity stream and action history into one SQLite
// file. The log side and the action side share the Gorm connection pool so
// the file only sees one writer.
type Archive struct {
	Logs    *agentlog.Store
	Actions *gormstore.GormStore
}

var _ engine.Archive = (*Archive)(nil)

// NewArchive opens the action store at dbPath and binds the log archive to
// the same connection.
func NewArchive(dbPath string) (*Archive, error) {
	actions, err := gormstore.NewGormStore(dbPath)
	if err != nil {
		return nil, err
	}
	sqlDB, err := actions.SQLDB()
	if err != nil {
		actions.Close()
		return nil, err
	}
	logs := &agentlog.Store{}
	if err := logs.UseExternalDB(sqlDB); err != nil {
		actions.Close()
		return nil, err
	}
	return &Archive{Logs: logs, Actions: actions}, nil
}

// AppendLog archives one log entry.
func (a *Archive) AppendLog(ctx context.Context, e engine.LogEntry) error {
	return a.Logs.Append(ctx, e)
}

// RecordAction archives one executed action.
func (a *Archive) RecordAction(ctx context.Context, action string, success bool, durationMs int64, detail string) error {
	return a.Actions.RecordAction(ctx, action, success, durationMs, detail)
}

// Close releases the shared connection once.
func (a *Archive) Close() error {
	if a == nil {
		return nil
	}
	_ = a.Logs.Close()
	return a.Actions.Close()
}
