package service

import (
	"assessment_backend/internal/model"
	"assessment_backend/internal/util"
	"assessment_backend/pkg/logger"
	"context"
	"encoding/json"
	"strings"
	"time"

	"go.uber.org/zap"
)

// ResponseStore is the durable attempt-row store.
type ResponseStore interface {
	FindActiveDraft(clientID uint, toolID string) (*model.ToolResponse, error)
	FindLatestCompleted(clientID uint, toolID string) (*model.ToolResponse, error)
	HasCompleted(clientID uint, toolID string) (bool, error)
	Create(row *model.ToolResponse) error
	UpdatePayload(id uint, payload json.RawMessage, schemaVersion string) error
	CompleteAttempt(row *model.ToolResponse) error
	DeleteDrafts(clientID uint, toolID string, statuses ...model.ResponseStatus) error
}

// DraftStore is the ephemeral per-attempt field cache.
type DraftStore interface {
	Get(ctx context.Context, toolID string, clientID uint) (*model.DraftBlob, error)
	Save(ctx context.Context, toolID string, clientID uint, blob *model.DraftBlob) error
	Delete(ctx context.Context, toolID string, clientID uint) error
}

// ResumeState is what a page render needs to restore an attempt.
type ResumeState struct {
	Fields   map[string]string `json:"fields,omitempty"`
	LastPage int               `json:"lastPage"`
	EditMode bool              `json:"editMode"`
}

// SessionService drives the multi-page attempt state machine: it merges
// the draft cache with the row store, owns the save and final-submission
// pipelines, and keeps the two stores reconciled.
type SessionService struct {
	registry  *ToolRegistry
	responses ResponseStore
	drafts    DraftStore
	scoring   *ScoringService
	insight   *InsightService
}

func NewSessionService(registry *ToolRegistry, responses ResponseStore, drafts DraftStore, scoring *ScoringService, insight *InsightService) *SessionService {
	return &SessionService{
		registry:  registry,
		responses: responses,
		drafts:    drafts,
		scoring:   scoring,
		insight:   insight,
	}
}

// GetExistingData merges the active draft row with the draft-cache blob,
// cache values winning on collision (the cache is fresher). Returns nil
// when neither source has data.
func (s *SessionService) GetExistingData(ctx context.Context, clientID uint, toolID string) (map[string]string, error) {
	if s.registry.Get(toolID) == nil {
		return nil, util.NotFound("unknown tool %q", toolID)
	}

	row, err := s.responses.FindActiveDraft(clientID, toolID)
	if err != nil {
		return nil, util.StoreUnavailable(err)
	}

	blob, err := s.drafts.Get(ctx, toolID, clientID)
	if err != nil {
		return nil, util.StoreUnavailable(err)
	}

	merged := make(map[string]string)
	if row != nil && len(row.Payload) > 0 {
		var stored map[string]string
		if err := json.Unmarshal(row.Payload, &stored); err != nil {
			logger.Log.Warn("unreadable draft payload, falling back to cache",
				zap.Uint("row", row.ID), zap.Error(err))
		} else {
			for k, v := range stored {
				merged[k] = v
			}
		}
	}
	if blob != nil {
		for k, v := range blob.Fields {
			merged[k] = v
		}
	}

	if len(merged) == 0 {
		return nil, nil
	}
	return merged, nil
}

// Resume returns the merged field state plus draft bookkeeping for a render.
func (s *SessionService) Resume(ctx context.Context, clientID uint, toolID string) (*ResumeState, error) {
	fields, err := s.GetExistingData(ctx, clientID, toolID)
	if err != nil {
		return nil, err
	}

	state := &ResumeState{Fields: fields}

	blob, err := s.drafts.Get(ctx, toolID, clientID)
	if err != nil {
		return nil, util.StoreUnavailable(err)
	}
	if blob != nil {
		state.LastPage = blob.LastPage
	}

	row, err := s.responses.FindActiveDraft(clientID, toolID)
	if err != nil {
		return nil, util.StoreUnavailable(err)
	}
	state.EditMode = row != nil && row.Status == model.StatusEditDraft

	return state, nil
}

// SavePageData merges one page's fields into the draft cache, mirrors the
// merged blob into the single draft row for the attempt, and fires the
// tool's post-save hook. Hook failures never abort the save.
func (s *SessionService) SavePageData(ctx context.Context, clientID uint, toolID string, page int, formData map[string]string) error {
	tool := s.registry.Get(toolID)
	if tool == nil {
		return util.NotFound("unknown tool %q", toolID)
	}
	if page < 1 || page > tool.Pages {
		return util.Validation("page %d out of range for %s (1-%d)", page, toolID, tool.Pages)
	}

	fields := stripMetadata(formData)

	blob, err := s.drafts.Get(ctx, toolID, clientID)
	if err != nil {
		return util.StoreUnavailable(err)
	}
	if blob == nil {
		blob = &model.DraftBlob{Fields: make(map[string]string)}
	}
	for k, v := range fields {
		blob.Fields[k] = v
	}
	blob.LastPage = page
	blob.LastUpdate = time.Now()

	if err := s.drafts.Save(ctx, toolID, clientID, blob); err != nil {
		return util.StoreUnavailable(err)
	}

	// Re-read so the mirrored row always reflects the full merged state.
	merged, err := s.drafts.Get(ctx, toolID, clientID)
	if err != nil {
		return util.StoreUnavailable(err)
	}

	payload, err := json.Marshal(merged.Fields)
	if err != nil {
		return err
	}

	row, err := s.responses.FindActiveDraft(clientID, toolID)
	if err != nil {
		return util.StoreUnavailable(err)
	}

	if row == nil {
		row = &model.ToolResponse{
			ClientID:      clientID,
			ToolID:        toolID,
			Status:        model.StatusDraft,
			Payload:       payload,
			SchemaVersion: util.SchemaVersion,
		}
		if err := s.responses.Create(row); err != nil {
			return util.StoreUnavailable(err)
		}
	} else {
		// One row per attempt; later pages (and edit mode) overwrite it.
		if err := s.responses.UpdatePayload(row.ID, payload, util.SchemaVersion); err != nil {
			return util.StoreUnavailable(err)
		}
	}

	if tool.PostSaveHook != nil {
		if err := tool.PostSaveHook(ctx, clientID, page, merged.Fields); err != nil {
			logger.Log.Warn("post-save hook failed",
				zap.String("tool", toolID), zap.Uint("client", clientID), zap.Error(err))
		}
	}

	return nil
}

// EnterEditMode seeds an EDIT_DRAFT row from the latest COMPLETED
// attempt. A no-op when an edit is already in progress.
func (s *SessionService) EnterEditMode(ctx context.Context, clientID uint, toolID string) error {
	if s.registry.Get(toolID) == nil {
		return util.NotFound("unknown tool %q", toolID)
	}

	existing, err := s.responses.FindActiveDraft(clientID, toolID)
	if err != nil {
		return util.StoreUnavailable(err)
	}
	if existing != nil && existing.Status == model.StatusEditDraft {
		return nil
	}

	completed, err := s.responses.FindLatestCompleted(clientID, toolID)
	if err != nil {
		return util.StoreUnavailable(err)
	}
	if completed == nil {
		return util.NoData("no completed attempt to edit for %s", toolID)
	}

	var envelope model.CompletedPayload
	if err := json.Unmarshal(completed.Payload, &envelope); err != nil {
		return util.Validation("completed payload for %s is unreadable", toolID)
	}

	payload, err := json.Marshal(envelope.Responses)
	if err != nil {
		return err
	}

	row := &model.ToolResponse{
		ClientID:      clientID,
		ToolID:        toolID,
		Status:        model.StatusEditDraft,
		Payload:       payload,
		SchemaVersion: util.SchemaVersion,
	}
	if err := s.responses.Create(row); err != nil {
		return util.StoreUnavailable(err)
	}

	return nil
}

// CancelEdit discards the EDIT_DRAFT row and cached state, leaving the
// prior COMPLETED row untouched.
func (s *SessionService) CancelEdit(ctx context.Context, clientID uint, toolID string) error {
	tool := s.registry.Get(toolID)
	if tool == nil {
		return util.NotFound("unknown tool %q", toolID)
	}

	if err := s.responses.DeleteDrafts(clientID, toolID, model.StatusEditDraft); err != nil {
		return util.StoreUnavailable(err)
	}
	s.discardEphemeral(ctx, tool, clientID)
	return nil
}

// StartFresh discards any draft or edit state for a clean retake.
func (s *SessionService) StartFresh(ctx context.Context, clientID uint, toolID string) error {
	tool := s.registry.Get(toolID)
	if tool == nil {
		return util.NotFound("unknown tool %q", toolID)
	}

	if err := s.responses.DeleteDrafts(clientID, toolID); err != nil {
		return util.StoreUnavailable(err)
	}
	s.discardEphemeral(ctx, tool, clientID)
	return nil
}

// ProcessFinalSubmission scores the merged answers, collects syntheses,
// writes one COMPLETED row, and clears all draft state for the attempt.
func (s *SessionService) ProcessFinalSubmission(ctx context.Context, clientID uint, toolID string) (*model.CompletedPayload, error) {
	tool := s.registry.Get(toolID)
	if tool == nil {
		return nil, util.NotFound("unknown tool %q", toolID)
	}

	merged, err := s.GetExistingData(ctx, clientID, toolID)
	if err != nil {
		return nil, err
	}
	if merged == nil {
		return nil, util.NoData("no data found for %s submission", toolID)
	}

	answers := extractAnswers(merged)

	envelope := &model.CompletedPayload{
		Responses:     answers,
		Timestamp:     time.Now(),
		SchemaVersion: util.SchemaVersion,
	}

	if tool.Scored {
		hierarchy, err := s.scoring.CalculateScores(answers, tool.Subdomains, tool.DomainLabels)
		if err != nil {
			return nil, err
		}
		envelope.Scoring = hierarchy

		insights, syntheses := s.insight.RunFinalSyntheses(ctx, tool, clientID, hierarchy)
		envelope.Insights = insights
		envelope.Syntheses = syntheses
	}

	payload, err := json.Marshal(envelope)
	if err != nil {
		return nil, err
	}

	row := &model.ToolResponse{
		ClientID:      clientID,
		ToolID:        toolID,
		Payload:       payload,
		SchemaVersion: util.SchemaVersion,
	}
	if err := s.responses.CompleteAttempt(row); err != nil {
		return nil, util.StoreUnavailable(err)
	}

	// The attempt is durable; cleanup failures are logged, not surfaced.
	if err := s.responses.DeleteDrafts(clientID, toolID); err != nil {
		logger.Log.Warn("failed to clear draft rows after submission",
			zap.String("tool", toolID), zap.Uint("client", clientID), zap.Error(err))
	}
	s.discardEphemeral(ctx, tool, clientID)

	return envelope, nil
}

func (s *SessionService) discardEphemeral(ctx context.Context, tool *Tool, clientID uint) {
	if err := s.drafts.Delete(ctx, tool.ID, clientID); err != nil {
		logger.Log.Warn("failed to clear draft cache",
			zap.String("tool", tool.ID), zap.Uint("client", clientID), zap.Error(err))
	}
	if s.insight != nil {
		if err := s.insight.ClearAttempt(ctx, tool, clientID); err != nil {
			logger.Log.Warn("failed to clear insight cache",
				zap.String("tool", tool.ID), zap.Uint("client", clientID), zap.Error(err))
		}
	}
}

func stripMetadata(formData map[string]string) map[string]string {
	fields := make(map[string]string, len(formData))
	for k, v := range formData {
		fields[k] = v
	}
	for _, key := range util.MetadataKeys {
		delete(fields, key)
	}
	return fields
}

// extractAnswers drops metadata and label-only fields before scoring and
// persistence.
func extractAnswers(merged map[string]string) map[string]string {
	answers := stripMetadata(merged)
	for k := range answers {
		if strings.HasSuffix(k, util.LabelFieldSuffix) {
			delete(answers, k)
		}
	}
	return answers
}
