package repository

import (
	"assessment_backend/internal/model"
	"encoding/json"
	"errors"

	"gorm.io/gorm"
)

type ResponseRepository struct {
	DB *gorm.DB
}

func NewResponseRepository(db *gorm.DB) *ResponseRepository {
	return &ResponseRepository{DB: db}
}

// FindActiveDraft returns the single in-flight DRAFT or EDIT_DRAFT row
// for the attempt, or nil when the client has no open attempt. Lookups
// ride the (client_id, tool_id) composite index.
func (r *ResponseRepository) FindActiveDraft(clientID uint, toolID string) (*model.ToolResponse, error) {
	var row model.ToolResponse
	err := r.DB.
		Where("client_id = ? AND tool_id = ? AND status IN ?", clientID, toolID,
			[]model.ResponseStatus{model.StatusDraft, model.StatusEditDraft}).
		Order("updated_at desc").
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

// FindLatestCompleted returns the COMPLETED row flagged latest, or nil.
func (r *ResponseRepository) FindLatestCompleted(clientID uint, toolID string) (*model.ToolResponse, error) {
	var row model.ToolResponse
	err := r.DB.
		Where("client_id = ? AND tool_id = ? AND status = ? AND is_latest = ?",
			clientID, toolID, model.StatusCompleted, true).
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *ResponseRepository) HasCompleted(clientID uint, toolID string) (bool, error) {
	var count int64
	err := r.DB.Model(&model.ToolResponse{}).
		Where("client_id = ? AND tool_id = ? AND status = ?", clientID, toolID, model.StatusCompleted).
		Count(&count).Error
	return count > 0, err
}

func (r *ResponseRepository) Create(row *model.ToolResponse) error {
	return r.DB.Create(row).Error
}

func (r *ResponseRepository) UpdatePayload(id uint, payload json.RawMessage, schemaVersion string) error {
	return r.DB.Model(&model.ToolResponse{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"payload":        payload,
			"schema_version": schemaVersion,
		}).Error
}

// CompleteAttempt demotes any previous latest COMPLETED row and appends
// the new COMPLETED row inside one transaction, preserving the single
// is_latest invariant.
func (r *ResponseRepository) CompleteAttempt(row *model.ToolResponse) error {
	return r.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&model.ToolResponse{}).
			Where("client_id = ? AND tool_id = ? AND status = ? AND is_latest = ?",
				row.ClientID, row.ToolID, model.StatusCompleted, true).
			Update("is_latest", false).Error; err != nil {
			return err
		}
		row.Status = model.StatusCompleted
		row.IsLatest = true
		return tx.Create(row).Error
	})
}

// DeleteDrafts removes every DRAFT/EDIT_DRAFT row for the attempt.
func (r *ResponseRepository) DeleteDrafts(clientID uint, toolID string, statuses ...model.ResponseStatus) error {
	if len(statuses) == 0 {
		statuses = []model.ResponseStatus{model.StatusDraft, model.StatusEditDraft}
	}
	return r.DB.
		Where("client_id = ? AND tool_id = ? AND status IN ?", clientID, toolID, statuses).
		Delete(&model.ToolResponse{}).Error
}
