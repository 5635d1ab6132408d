package model

import (
	"encoding/json"
	"time"
)

type ResponseStatus string

const (
	StatusDraft     ResponseStatus = "DRAFT"
	StatusEditDraft ResponseStatus = "EDIT_DRAFT"
	StatusCompleted ResponseStatus = "COMPLETED"
)

// ToolResponse is one attempt row: an in-progress draft, an edit draft
// seeded from a completed attempt, or a completed submission.
//
// Invariant: per (clientId, toolId) at most one COMPLETED row carries
// IsLatest=true. DRAFT/EDIT_DRAFT rows are always treated as latest for
// resumption regardless of the flag.
// swagger:model ToolResponse
type ToolResponse struct {
	BaseModel
	ClientID      uint            `gorm:"index:idx_client_tool;not null" json:"clientId"`
	ToolID        string          `gorm:"index:idx_client_tool;size:50;not null" json:"toolId"`
	Status        ResponseStatus  `gorm:"size:20;not null" json:"status"`
	Payload       json.RawMessage `gorm:"type:json" json:"payload"`
	SchemaVersion string          `gorm:"size:10" json:"schemaVersion"`
	IsLatest      bool            `gorm:"default:false" json:"isLatest"`
}

func (ToolResponse) TableName() string {
	return "tool_responses"
}

// DraftBlob is the ephemeral per-attempt field state cached in Redis
// under "{toolId}_draft_{clientId}".
type DraftBlob struct {
	Fields     map[string]string `json:"fields"`
	LastPage   int               `json:"lastPage"`
	LastUpdate time.Time         `json:"lastUpdate"`
}

// CompletedPayload is the envelope written into a COMPLETED row for
// scored tools. Unscored tools persist only responses and bookkeeping.
type CompletedPayload struct {
	Responses     map[string]string `json:"responses"`
	Scoring       *ScoreHierarchy   `json:"scoring,omitempty"`
	Insights      *InsightSet       `json:"insights,omitempty"`
	Syntheses     *SynthesisSet     `json:"syntheses,omitempty"`
	Timestamp     time.Time         `json:"timestamp"`
	SchemaVersion string            `json:"schemaVersion"`
}

type InsightSet struct {
	Subdomains map[string]*SubdomainInsight `json:"subdomains"`
}

type SynthesisSet struct {
	Domain1 *DomainSynthesis  `json:"domain1"`
	Domain2 *DomainSynthesis  `json:"domain2"`
	Overall *OverallSynthesis `json:"overall"`
}
