package model

import (
	"gorm.io/datatypes"
)

// ActionRecordModel is one executed catalog action, kept for reporting.
type ActionRecordModel struct {
	ID            int64          `gorm:"column:id;primaryKey"`
	Action        string         `gorm:"column:action;index"`
	Success       int            `gorm:"column:success;index"`
	DurationMs    int64          `gorm:"column:duration_ms"`
	Detail        datatypes.JSON `gorm:"column:detail"`
	CreatedAtUnix int64          `gorm:"column:created_at;index"`
}

// TableName binds the model to its table.
func (ActionRecordModel) TableName() string { return "agent_actions" }
