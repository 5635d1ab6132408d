package repository

import (
	"assessment_backend/internal/model"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type AccessRepository struct {
	DB *gorm.DB
}

func NewAccessRepository(db *gorm.DB) *AccessRepository {
	return &AccessRepository{DB: db}
}

// Find returns the access row for (client, tool), or nil when none
// exists (implicit pending).
func (r *AccessRepository) Find(clientID uint, toolID string) (*model.ToolAccess, error) {
	var row model.ToolAccess
	err := r.DB.Where("client_id = ? AND tool_id = ?", clientID, toolID).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

// Upsert writes the access row keyed by (client_id, tool_id).
func (r *AccessRepository) Upsert(row *model.ToolAccess) error {
	return r.DB.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "client_id"}, {Name: "tool_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"status", "unlocked_at", "unlocked_by", "locked_by", "lock_reason", "updated_at",
		}),
	}).Create(row).Error
}

func (r *AccessRepository) ListByClient(clientID uint) ([]model.ToolAccess, error) {
	var rows []model.ToolAccess
	err := r.DB.Where("client_id = ?", clientID).Find(&rows).Error
	return rows, err
}
