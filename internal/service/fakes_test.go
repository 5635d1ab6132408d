package service

import (
	"assessment_backend/internal/model"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
)

// fakeResponseStore is an in-memory ResponseStore.
type fakeResponseStore struct {
	mu     sync.Mutex
	nextID uint
	rows   []*model.ToolResponse
}

func newFakeResponseStore() *fakeResponseStore {
	return &fakeResponseStore{nextID: 1}
}

func (f *fakeResponseStore) FindActiveDraft(clientID uint, toolID string) (*model.ToolResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, row := range f.rows {
		if row.ClientID == clientID && row.ToolID == toolID &&
			(row.Status == model.StatusDraft || row.Status == model.StatusEditDraft) {
			copied := *row
			return &copied, nil
		}
	}
	return nil, nil
}

func (f *fakeResponseStore) FindLatestCompleted(clientID uint, toolID string) (*model.ToolResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, row := range f.rows {
		if row.ClientID == clientID && row.ToolID == toolID &&
			row.Status == model.StatusCompleted && row.IsLatest {
			copied := *row
			return &copied, nil
		}
	}
	return nil, nil
}

func (f *fakeResponseStore) HasCompleted(clientID uint, toolID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, row := range f.rows {
		if row.ClientID == clientID && row.ToolID == toolID && row.Status == model.StatusCompleted {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeResponseStore) Create(row *model.ToolResponse) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	copied := *row
	copied.ID = f.nextID
	row.ID = f.nextID
	f.nextID++
	f.rows = append(f.rows, &copied)
	return nil
}

func (f *fakeResponseStore) UpdatePayload(id uint, payload json.RawMessage, schemaVersion string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, row := range f.rows {
		if row.ID == id {
			row.Payload = payload
			row.SchemaVersion = schemaVersion
			return nil
		}
	}
	return errors.New("row not found")
}

func (f *fakeResponseStore) CompleteAttempt(row *model.ToolResponse) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.rows {
		if existing.ClientID == row.ClientID && existing.ToolID == row.ToolID &&
			existing.Status == model.StatusCompleted {
			existing.IsLatest = false
		}
	}
	copied := *row
	copied.ID = f.nextID
	row.ID = f.nextID
	f.nextID++
	copied.Status = model.StatusCompleted
	copied.IsLatest = true
	f.rows = append(f.rows, &copied)
	return nil
}

func (f *fakeResponseStore) DeleteDrafts(clientID uint, toolID string, statuses ...model.ResponseStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(statuses) == 0 {
		statuses = []model.ResponseStatus{model.StatusDraft, model.StatusEditDraft}
	}
	match := func(s model.ResponseStatus) bool {
		for _, status := range statuses {
			if s == status {
				return true
			}
		}
		return false
	}
	kept := f.rows[:0]
	for _, row := range f.rows {
		if row.ClientID == clientID && row.ToolID == toolID && match(row.Status) {
			continue
		}
		kept = append(kept, row)
	}
	f.rows = kept
	return nil
}

func (f *fakeResponseStore) countByStatus(status model.ResponseStatus) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, row := range f.rows {
		if row.Status == status {
			n++
		}
	}
	return n
}

// fakeDraftStore is an in-memory DraftStore.
type fakeDraftStore struct {
	mu    sync.Mutex
	blobs map[string]*model.DraftBlob
}

func newFakeDraftStore() *fakeDraftStore {
	return &fakeDraftStore{blobs: make(map[string]*model.DraftBlob)}
}

func (f *fakeDraftStore) key(toolID string, clientID uint) string {
	return fmt.Sprintf("%s_draft_%d", toolID, clientID)
}

func (f *fakeDraftStore) Get(ctx context.Context, toolID string, clientID uint) (*model.DraftBlob, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	blob, ok := f.blobs[f.key(toolID, clientID)]
	if !ok {
		return nil, nil
	}
	copied := model.DraftBlob{
		Fields:     make(map[string]string, len(blob.Fields)),
		LastPage:   blob.LastPage,
		LastUpdate: blob.LastUpdate,
	}
	for k, v := range blob.Fields {
		copied.Fields[k] = v
	}
	return &copied, nil
}

func (f *fakeDraftStore) Save(ctx context.Context, toolID string, clientID uint, blob *model.DraftBlob) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.blobs[f.key(toolID, clientID)] = blob
	return nil
}

func (f *fakeDraftStore) Delete(ctx context.Context, toolID string, clientID uint) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.blobs, f.key(toolID, clientID))
	return nil
}

// fakeInsightCache is an in-memory InsightCache.
type fakeInsightCache struct {
	mu       sync.Mutex
	insights map[string]*model.SubdomainInsight
}

func newFakeInsightCache() *fakeInsightCache {
	return &fakeInsightCache{insights: make(map[string]*model.SubdomainInsight)}
}

func (f *fakeInsightCache) key(toolID string, clientID uint, sub string) string {
	return fmt.Sprintf("insight:%s:%d:%s", toolID, clientID, sub)
}

func (f *fakeInsightCache) Get(ctx context.Context, toolID string, clientID uint, subdomainKey string) (*model.SubdomainInsight, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.insights[f.key(toolID, clientID, subdomainKey)], nil
}

func (f *fakeInsightCache) Set(ctx context.Context, toolID string, clientID uint, subdomainKey string, insight *model.SubdomainInsight) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.insights[f.key(toolID, clientID, subdomainKey)] = insight
	return nil
}

func (f *fakeInsightCache) Clear(ctx context.Context, toolID string, clientID uint, subdomainKeys []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, sub := range subdomainKeys {
		delete(f.insights, f.key(toolID, clientID, sub))
	}
	return nil
}

func (f *fakeInsightCache) size() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.insights)
}

// fakeEnricher scripts the enrichment collaborator per level.
type fakeEnricher struct {
	mu             sync.Mutex
	subdomainCalls int

	subdomainFn func(req SubdomainRequest) (*model.SubdomainInsight, error)
	domainFn    func(req DomainRequest) (*model.DomainSynthesis, error)
	overallFn   func(req OverallRequest) (*model.OverallSynthesis, error)
}

func (f *fakeEnricher) SubdomainInsight(ctx context.Context, req SubdomainRequest) (*model.SubdomainInsight, error) {
	f.mu.Lock()
	f.subdomainCalls++
	f.mu.Unlock()
	if f.subdomainFn != nil {
		return f.subdomainFn(req)
	}
	return nil, errors.New("enrichment unavailable")
}

func (f *fakeEnricher) DomainSynthesis(ctx context.Context, req DomainRequest) (*model.DomainSynthesis, error) {
	if f.domainFn != nil {
		return f.domainFn(req)
	}
	return nil, errors.New("enrichment unavailable")
}

func (f *fakeEnricher) OverallSynthesis(ctx context.Context, req OverallRequest) (*model.OverallSynthesis, error) {
	if f.overallFn != nil {
		return f.overallFn(req)
	}
	return nil, errors.New("enrichment unavailable")
}

func (f *fakeEnricher) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.subdomainCalls
}

// fakeAccessStore is an in-memory AccessStore.
type fakeAccessStore struct {
	mu   sync.Mutex
	rows map[string]*model.ToolAccess
}

func newFakeAccessStore() *fakeAccessStore {
	return &fakeAccessStore{rows: make(map[string]*model.ToolAccess)}
}

func (f *fakeAccessStore) key(clientID uint, toolID string) string {
	return fmt.Sprintf("%d|%s", clientID, toolID)
}

func (f *fakeAccessStore) Find(clientID uint, toolID string) (*model.ToolAccess, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	row, ok := f.rows[f.key(clientID, toolID)]
	if !ok {
		return nil, nil
	}
	copied := *row
	return &copied, nil
}

func (f *fakeAccessStore) Upsert(row *model.ToolAccess) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	copied := *row
	f.rows[f.key(row.ClientID, row.ToolID)] = &copied
	return nil
}

func (f *fakeAccessStore) ListByClient(clientID uint) ([]model.ToolAccess, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.ToolAccess
	for _, row := range f.rows {
		if row.ClientID == clientID {
			out = append(out, *row)
		}
	}
	return out, nil
}

// fakeCompletionStore answers HasCompleted from a set.
type fakeCompletionStore struct {
	mu        sync.Mutex
	completed map[string]bool
}

func newFakeCompletionStore() *fakeCompletionStore {
	return &fakeCompletionStore{completed: make(map[string]bool)}
}

func (f *fakeCompletionStore) markCompleted(clientID uint, toolID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.completed[fmt.Sprintf("%d|%s", clientID, toolID)] = true
}

func (f *fakeCompletionStore) HasCompleted(clientID uint, toolID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.completed[fmt.Sprintf("%d|%s", clientID, toolID)], nil
}
