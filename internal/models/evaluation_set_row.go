package models

import (
	"time"

	"gorm.io/datatypes"
)

// EvaluationSetRow is the persistent-store shape of an evaluation set.
// Questions are stored as a single JSON document; the row store never
// addresses individual results.
type EvaluationSetRow struct {
	ID                    string            `gorm:"type:uuid;primaryKey" json:"id"`
	Name                  string            `gorm:"size:160;not null" json:"name"`
	Owner                 *string           `gorm:"size:128;index" json:"owner"`
	Models                datatypes.JSONMap `gorm:"type:json" json:"models"`
	SystemMessage         string            `gorm:"type:text" json:"system_message"`
	EvaluateAutomatically bool              `json:"evaluate_automatically"`
	Questions             datatypes.JSON    `gorm:"type:json" json:"questions"`
	CreatedAt             time.Time         `json:"created_at"`
	UpdatedAt             time.Time         `json:"updated_at"`
}

// TableName keeps the table name stable regardless of struct renames.
func (EvaluationSetRow) TableName() string {
	return "evaluation_sets"
}
