package service

import (
	"assessment_backend/internal/model"
	"context"
	"fmt"
)

// PostSaveHook is the optional per-tool side effect fired after a page
// save. Failures are logged by the caller and never abort the save.
type PostSaveHook func(ctx context.Context, clientID uint, page int, fields map[string]string) error

// Tool describes one registered self-assessment tool. Optional
// capabilities are explicit fields (nil = absent), validated once at
// registration; nothing is discovered by reflection.
type Tool struct {
	ID           string
	Name         string
	Order        int // 1-based progression position
	Pages        int
	Scored       bool
	DomainLabels [2]string
	Subdomains   []model.SubdomainConfig
	PostSaveHook PostSaveHook
}

// SubdomainForPage returns the subdomain mapped to a page, or nil.
func (t *Tool) SubdomainForPage(page int) *model.SubdomainConfig {
	for i := range t.Subdomains {
		if t.Subdomains[i].Page == page {
			return &t.Subdomains[i]
		}
	}
	return nil
}

// SubdomainKeys returns the subdomain keys in registration order.
func (t *Tool) SubdomainKeys() []string {
	keys := make([]string, len(t.Subdomains))
	for i, cfg := range t.Subdomains {
		keys[i] = cfg.Key
	}
	return keys
}

// ToolRegistry is the explicit tool table built once at startup and
// passed by dependency injection.
type ToolRegistry struct {
	byID    map[string]*Tool
	ordered []*Tool
}

func NewToolRegistry(tools ...*Tool) (*ToolRegistry, error) {
	r := &ToolRegistry{byID: make(map[string]*Tool, len(tools))}
	byOrder := make(map[int]*Tool, len(tools))

	for _, t := range tools {
		if t.ID == "" {
			return nil, fmt.Errorf("tool with empty id")
		}
		if _, dup := r.byID[t.ID]; dup {
			return nil, fmt.Errorf("duplicate tool id %q", t.ID)
		}
		if _, dup := byOrder[t.Order]; dup {
			return nil, fmt.Errorf("duplicate tool order %d", t.Order)
		}
		if t.Pages < 1 {
			return nil, fmt.Errorf("tool %q has no pages", t.ID)
		}
		if t.Scored {
			if len(t.Subdomains) != subdomainCount {
				return nil, fmt.Errorf("scored tool %q needs %d subdomains, has %d", t.ID, subdomainCount, len(t.Subdomains))
			}
			perDomain := map[int]int{}
			for _, cfg := range t.Subdomains {
				perDomain[cfg.Domain]++
			}
			if perDomain[0] != domainSize || perDomain[1] != domainSize {
				return nil, fmt.Errorf("scored tool %q needs %d subdomains per domain", t.ID, domainSize)
			}
		}
		r.byID[t.ID] = t
		byOrder[t.Order] = t
	}

	for order := 1; order <= len(tools); order++ {
		t, ok := byOrder[order]
		if !ok {
			return nil, fmt.Errorf("tool orders must be contiguous from 1, missing %d", order)
		}
		r.ordered = append(r.ordered, t)
	}

	return r, nil
}

// Get returns the tool by id, or nil.
func (r *ToolRegistry) Get(id string) *Tool {
	return r.byID[id]
}

// ByOrder returns the tool at a 1-based position, or nil.
func (r *ToolRegistry) ByOrder(order int) *Tool {
	if order < 1 || order > len(r.ordered) {
		return nil
	}
	return r.ordered[order-1]
}

// All returns the tools in progression order.
func (r *ToolRegistry) All() []*Tool {
	return r.ordered
}

// DefaultTools builds the grounding tool family. The grounding
// assessment is the scored entry point; the follow-on tools unlock
// sequentially behind it.
func DefaultTools(insight *InsightService) []*Tool {
	grounding := &Tool{
		ID:           "grounding-1",
		Name:         "Grounding Assessment",
		Order:        1,
		Pages:        8,
		Scored:       true,
		DomainLabels: [2]string{"Internal Grounding", "External Grounding"},
		Subdomains: []model.SubdomainConfig{
			{Key: "identity", Label: "Identity", Domain: 0, Page: 2, TextField: "identity_reflection"},
			{Key: "beliefs", Label: "Beliefs", Domain: 0, Page: 3, TextField: "beliefs_reflection"},
			{Key: "resilience", Label: "Resilience", Domain: 0, Page: 4, TextField: "resilience_reflection"},
			{Key: "relationships", Label: "Relationships", Domain: 1, Page: 5, TextField: "relationships_reflection"},
			{Key: "resources", Label: "Resources", Domain: 1, Page: 6, TextField: "resources_reflection"},
			{Key: "action", Label: "Action", Domain: 1, Page: 7, TextField: "action_reflection"},
		},
	}
	if insight != nil {
		grounding.PostSaveHook = func(ctx context.Context, clientID uint, page int, fields map[string]string) error {
			return insight.OnPageSaved(ctx, grounding, clientID, page, fields)
		}
	}

	alignment := &Tool{
		ID:    "alignment-1",
		Name:  "Values Alignment",
		Order: 2,
		Pages: 5,
	}

	integration := &Tool{
		ID:    "integration-1",
		Name:  "Integration Plan",
		Order: 3,
		Pages: 4,
	}

	return []*Tool{grounding, alignment, integration}
}
