package service

import (
	"assessment_backend/internal/model"
	"assessment_backend/internal/util"
	"assessment_backend/pkg/logger"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// AccessStore persists progression-gate rows.
type AccessStore interface {
	Find(clientID uint, toolID string) (*model.ToolAccess, error)
	Upsert(row *model.ToolAccess) error
	ListByClient(clientID uint) ([]model.ToolAccess, error)
}

// CompletionStore answers whether a prerequisite tool has a COMPLETED row.
type CompletionStore interface {
	HasCompleted(clientID uint, toolID string) (bool, error)
}

// AccessService is the progression gate: explicit unlocks win, explicit
// locks are sticky until an admin lifts them, and everything else falls
// through to prerequisite logic over the tool order.
type AccessService struct {
	registry    *ToolRegistry
	access      AccessStore
	completions CompletionStore
}

func NewAccessService(registry *ToolRegistry, access AccessStore, completions CompletionStore) *AccessService {
	return &AccessService{
		registry:    registry,
		access:      access,
		completions: completions,
	}
}

// CanAccessTool decides whether the client may enter the tool. Denial is
// a structured decision, not an error. A prerequisite-satisfied pending
// state is promoted to a persisted system unlock on the way through.
func (s *AccessService) CanAccessTool(clientID uint, toolID string) (model.AccessDecision, error) {
	tool := s.registry.Get(toolID)
	if tool == nil {
		return model.AccessDecision{}, util.NotFound("unknown tool %q", toolID)
	}

	record, err := s.access.Find(clientID, toolID)
	if err != nil {
		return model.AccessDecision{}, util.StoreUnavailable(err)
	}

	decision, autoUnlock, err := s.evaluate(clientID, tool, record)
	if err != nil {
		return model.AccessDecision{}, err
	}

	if autoUnlock {
		if err := s.writeUnlock(clientID, tool, model.SystemActor, fmt.Sprintf("prerequisites satisfied for %s", tool.Name)); err != nil {
			// The decision stands; persisting the unlock is best effort.
			logger.Log.Warn("failed to persist auto-unlock",
				zap.Uint("client", clientID), zap.String("tool", toolID), zap.Error(err))
		}
	}

	return decision, nil
}

// evaluate computes the gate decision without writing anything.
func (s *AccessService) evaluate(clientID uint, tool *Tool, record *model.ToolAccess) (model.AccessDecision, bool, error) {
	if record != nil {
		switch record.Status {
		case model.AccessUnlocked:
			return model.AccessDecision{Allowed: true}, false, nil
		case model.AccessLocked:
			reason := record.LockReason
			if reason == "" {
				reason = "locked by administrator"
			}
			return model.AccessDecision{Allowed: false, Reason: reason}, false, nil
		}
		// Pending rows fall through to prerequisite logic, same as no row.
	}

	if tool.Order == 1 {
		return model.AccessDecision{Allowed: true}, true, nil
	}

	prereq := s.registry.ByOrder(tool.Order - 1)
	done, err := s.completions.HasCompleted(clientID, prereq.ID)
	if err != nil {
		return model.AccessDecision{}, false, util.StoreUnavailable(err)
	}
	if done {
		return model.AccessDecision{Allowed: true}, true, nil
	}

	return model.AccessDecision{
		Allowed: false,
		Reason:  fmt.Sprintf("complete %s first", prereq.Name),
	}, false, nil
}

// AdminUnlockTool lifts any lock and records the acting admin.
func (s *AccessService) AdminUnlockTool(clientID uint, toolID, actor, reason string) error {
	tool := s.registry.Get(toolID)
	if tool == nil {
		return util.NotFound("unknown tool %q", toolID)
	}
	if reason == "" {
		reason = "unlocked by administrator"
	}
	return s.writeUnlock(clientID, tool, actor, reason)
}

// AdminLockTool locks the tool regardless of prerequisite state. The
// lock is sticky: CanAccessTool honors it even after prerequisites are
// later satisfied, until an explicit unlock.
func (s *AccessService) AdminLockTool(clientID uint, toolID, actor, reason string) error {
	tool := s.registry.Get(toolID)
	if tool == nil {
		return util.NotFound("unknown tool %q", toolID)
	}
	if reason == "" {
		reason = "locked by administrator"
	}

	row := &model.ToolAccess{
		ClientID:      clientID,
		ToolID:        toolID,
		Status:        model.AccessLocked,
		Prerequisites: s.prerequisitesJSON(tool),
		LockedBy:      actor,
		LockReason:    reason,
	}
	if err := s.access.Upsert(row); err != nil {
		return util.StoreUnavailable(err)
	}
	return nil
}

// InitializeStudent bulk-creates gate rows for every registered tool:
// the first tool unlocked by the system, the rest explicitly pending.
func (s *AccessService) InitializeStudent(clientID uint) error {
	for _, tool := range s.registry.All() {
		existing, err := s.access.Find(clientID, tool.ID)
		if err != nil {
			return util.StoreUnavailable(err)
		}
		if existing != nil {
			continue
		}

		if tool.Order == 1 {
			if err := s.writeUnlock(clientID, tool, model.SystemActor, "first tool is always available"); err != nil {
				return err
			}
			continue
		}

		row := &model.ToolAccess{
			ClientID:      clientID,
			ToolID:        tool.ID,
			Status:        model.AccessPending,
			Prerequisites: s.prerequisitesJSON(tool),
		}
		if err := s.access.Upsert(row); err != nil {
			return util.StoreUnavailable(err)
		}
	}
	return nil
}

// GetStudentAccess lists the effective gate state for every registered
// tool without mutating anything.
func (s *AccessService) GetStudentAccess(clientID uint) ([]model.ToolAccessView, error) {
	rows, err := s.access.ListByClient(clientID)
	if err != nil {
		return nil, util.StoreUnavailable(err)
	}
	byTool := make(map[string]*model.ToolAccess, len(rows))
	for i := range rows {
		byTool[rows[i].ToolID] = &rows[i]
	}

	views := make([]model.ToolAccessView, 0, len(s.registry.All()))
	for _, tool := range s.registry.All() {
		record := byTool[tool.ID]

		decision, _, err := s.evaluate(clientID, tool, record)
		if err != nil {
			return nil, err
		}

		view := model.ToolAccessView{
			ToolID:  tool.ID,
			Name:    tool.Name,
			Order:   tool.Order,
			Status:  model.AccessPending,
			Allowed: decision.Allowed,
			Reason:  decision.Reason,
		}
		if record != nil {
			view.Status = record.Status
			view.UnlockedAt = record.UnlockedAt
			view.LockedBy = record.LockedBy
		}
		views = append(views, view)
	}

	return views, nil
}

func (s *AccessService) writeUnlock(clientID uint, tool *Tool, actor, reason string) error {
	now := time.Now()
	row := &model.ToolAccess{
		ClientID:      clientID,
		ToolID:        tool.ID,
		Status:        model.AccessUnlocked,
		Prerequisites: s.prerequisitesJSON(tool),
		UnlockedAt:    &now,
		UnlockedBy:    actor,
	}
	if err := s.access.Upsert(row); err != nil {
		return util.StoreUnavailable(err)
	}
	logger.Log.Info("tool unlocked",
		zap.Uint("client", clientID), zap.String("tool", tool.ID),
		zap.String("actor", actor), zap.String("reason", reason))
	return nil
}

func (s *AccessService) prerequisitesJSON(tool *Tool) json.RawMessage {
	if tool.Order <= 1 {
		return json.RawMessage(`[]`)
	}
	prereq := s.registry.ByOrder(tool.Order - 1)
	data, _ := json.Marshal([]string{prereq.ID})
	return data
}
