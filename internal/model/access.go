package model

import (
	"encoding/json"
	"time"
)

type AccessStatus string

const (
	AccessPending  AccessStatus = "pending"
	AccessUnlocked AccessStatus = "unlocked"
	AccessLocked   AccessStatus = "locked"
)

// SystemActor is recorded on access rows written by auto-unlock.
const SystemActor = "system"

// ToolAccess is the progression-gate row for one (client, tool) pair.
// A missing or pending row means the gate falls through to prerequisite
// logic; an explicit lock is sticky until an admin lifts it.
// swagger:model ToolAccess
type ToolAccess struct {
	BaseModel
	ClientID      uint            `gorm:"uniqueIndex:idx_access_client_tool;not null" json:"clientId"`
	ToolID        string          `gorm:"uniqueIndex:idx_access_client_tool;size:50;not null" json:"toolId"`
	Status        AccessStatus    `gorm:"size:20;not null;default:'pending'" json:"status"`
	Prerequisites json.RawMessage `gorm:"type:json" json:"prerequisites,omitempty"`
	UnlockedAt    *time.Time      `json:"unlockedAt,omitempty"`
	UnlockedBy    string          `gorm:"size:100" json:"unlockedBy,omitempty"`
	LockedBy      string          `gorm:"size:100" json:"lockedBy,omitempty"`
	LockReason    string          `gorm:"size:255" json:"lockReason,omitempty"`
}

func (ToolAccess) TableName() string {
	return "tool_access"
}

// AccessDecision is the structured answer to "may this client enter this
// tool". Denial is data, not an error.
type AccessDecision struct {
	Allowed bool   `json:"allowed"`
	Reason  string `json:"reason,omitempty"`
}

// ToolAccessView is one row of the per-client progression listing.
type ToolAccessView struct {
	ToolID     string       `json:"toolId"`
	Name       string       `json:"name"`
	Order      int          `json:"order"`
	Status     AccessStatus `json:"status"`
	Allowed    bool         `json:"allowed"`
	Reason     string       `json:"reason,omitempty"`
	UnlockedAt *time.Time   `json:"unlockedAt,omitempty"`
	LockedBy   string       `json:"lockedBy,omitempty"`
}
