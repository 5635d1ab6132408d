package service

import (
	"assessment_backend/internal/model"
	"assessment_backend/pkg/logger"
	"assessment_backend/pkg/monitoring"
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

// minSynthesisLen is the shortest summary/overview accepted from the
// enrichment service before the fallback takes over.
const minSynthesisLen = 20

// minFreeTextLen is the signal threshold below which a page's free text
// is not worth enriching.
const minFreeTextLen = 10

// InsightCache stores per-subdomain enrichment results for one attempt.
type InsightCache interface {
	Get(ctx context.Context, toolID string, clientID uint, subdomainKey string) (*model.SubdomainInsight, error)
	Set(ctx context.Context, toolID string, clientID uint, subdomainKey string, insight *model.SubdomainInsight) error
	Clear(ctx context.Context, toolID string, clientID uint, subdomainKeys []string) error
}

type insightTask struct {
	clientID uint
	toolID   string
	key      string
	req      SubdomainRequest
	done     *sync.WaitGroup
}

// InsightService dispatches per-subdomain enrichment onto a worker pool
// so page saves never wait on the external service, tracks outstanding
// tasks per attempt, and assembles the final syntheses with a
// deterministic score-derived fallback. Nothing on this path ever
// surfaces an error to a save or submit.
type InsightService struct {
	enricher Enricher
	cache    InsightCache

	queue       chan insightTask
	workers     int
	workerWG    sync.WaitGroup
	callTimeout time.Duration
	flushWait   time.Duration

	mu      sync.Mutex
	pending map[string]*sync.WaitGroup
}

func NewInsightService(enricher Enricher, cache InsightCache, workers, queueSize int, callTimeout, flushWait time.Duration) *InsightService {
	return &InsightService{
		enricher:    enricher,
		cache:       cache,
		queue:       make(chan insightTask, queueSize),
		workers:     workers,
		callTimeout: callTimeout,
		flushWait:   flushWait,
		pending:     make(map[string]*sync.WaitGroup),
	}
}

// Start launches the worker pool.
func (s *InsightService) Start() {
	for i := 0; i < s.workers; i++ {
		s.workerWG.Add(1)
		go s.worker()
	}
}

// Stop drains the queue and waits for in-flight enrichment to finish.
func (s *InsightService) Stop() {
	close(s.queue)
	s.workerWG.Wait()
}

func attemptKey(toolID string, clientID uint) string {
	return fmt.Sprintf("%s:%d", toolID, clientID)
}

// OnPageSaved checks whether the saved page maps to a subdomain with
// enough free-text signal and, on an insight-cache miss, dispatches an
// enrichment task. Every failure here is logged and swallowed; the save
// already succeeded.
func (s *InsightService) OnPageSaved(ctx context.Context, tool *Tool, clientID uint, page int, fields map[string]string) error {
	cfg := tool.SubdomainForPage(page)
	if cfg == nil {
		return nil
	}

	text := strings.TrimSpace(fields[cfg.TextField])
	if len(text) < minFreeTextLen {
		logger.Log.Debug("skipping enrichment, insufficient signal",
			zap.String("tool", tool.ID), zap.String("subdomain", cfg.Key))
		return nil
	}

	cached, err := s.cache.Get(ctx, tool.ID, clientID, cfg.Key)
	if err != nil {
		logger.Log.Warn("insight cache read failed", zap.Error(err),
			zap.String("tool", tool.ID), zap.String("subdomain", cfg.Key))
		return nil
	}
	if cached != nil {
		// Back/forward navigation over an already enriched page.
		return nil
	}

	task := insightTask{
		clientID: clientID,
		toolID:   tool.ID,
		key:      cfg.Key,
		req: SubdomainRequest{
			ToolID:         tool.ID,
			ClientID:       clientID,
			SubdomainKey:   cfg.Key,
			SubdomainLabel: cfg.Label,
			FreeText:       text,
			Aspects:        bestEffortAspects(fields, cfg.Key),
		},
		done: s.track(tool.ID, clientID),
	}

	select {
	case s.queue <- task:
		monitoring.EnrichmentQueueDepth.Inc()
	default:
		task.done.Done()
		logger.Log.Warn("enrichment queue full, dropping task",
			zap.String("tool", tool.ID), zap.String("subdomain", cfg.Key))
	}

	return nil
}

func (s *InsightService) track(toolID string, clientID uint) *sync.WaitGroup {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := attemptKey(toolID, clientID)
	wg, ok := s.pending[key]
	if !ok {
		wg = &sync.WaitGroup{}
		s.pending[key] = wg
	}
	wg.Add(1)
	return wg
}

func (s *InsightService) worker() {
	defer s.workerWG.Done()

	for task := range s.queue {
		monitoring.EnrichmentQueueDepth.Dec()

		ctx, cancel := context.WithTimeout(context.Background(), s.callTimeout)
		insight, err := s.enricher.SubdomainInsight(ctx, task.req)
		cancel()

		switch {
		case err != nil:
			monitoring.EnrichmentCalls.WithLabelValues("subdomain", "error").Inc()
			logger.Log.Warn("subdomain enrichment failed", zap.Error(err),
				zap.String("tool", task.toolID), zap.String("subdomain", task.key))
		case strings.TrimSpace(insight.Insight) == "":
			monitoring.EnrichmentCalls.WithLabelValues("subdomain", "invalid").Inc()
			logger.Log.Warn("subdomain enrichment returned empty insight",
				zap.String("tool", task.toolID), zap.String("subdomain", task.key))
		default:
			monitoring.EnrichmentCalls.WithLabelValues("subdomain", "ok").Inc()
			cacheCtx, cacheCancel := context.WithTimeout(context.Background(), 5*time.Second)
			if err := s.cache.Set(cacheCtx, task.toolID, task.clientID, task.key, insight); err != nil {
				logger.Log.Warn("insight cache write failed", zap.Error(err))
			}
			cacheCancel()
		}

		task.done.Done()
	}
}

// Flush waits for the attempt's outstanding enrichment tasks, up to the
// configured bound. Submission proceeds with whatever is cached after that.
func (s *InsightService) Flush(toolID string, clientID uint) {
	s.mu.Lock()
	wg := s.pending[attemptKey(toolID, clientID)]
	s.mu.Unlock()

	if wg == nil {
		return
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(s.flushWait):
		logger.Log.Warn("timed out waiting for enrichment tasks",
			zap.String("tool", toolID), zap.Uint("client", clientID))
	}
}

// RunFinalSyntheses awaits outstanding subdomain tasks, gathers the
// cached insights, and produces the two domain syntheses plus the
// overall synthesis. It always returns usable content: an invalid or
// failed enrichment result is replaced by the deterministic fallback.
func (s *InsightService) RunFinalSyntheses(ctx context.Context, tool *Tool, clientID uint, hierarchy *model.ScoreHierarchy) (*model.InsightSet, *model.SynthesisSet) {
	s.Flush(tool.ID, clientID)

	insights := &model.InsightSet{Subdomains: make(map[string]*model.SubdomainInsight, len(tool.Subdomains))}
	for _, cfg := range tool.Subdomains {
		cached, err := s.cache.Get(ctx, tool.ID, clientID, cfg.Key)
		if err != nil {
			logger.Log.Warn("insight cache read failed during synthesis", zap.Error(err),
				zap.String("subdomain", cfg.Key))
			continue
		}
		if cached != nil {
			insights.Subdomains[cfg.Key] = cached
		}
	}

	syntheses := &model.SynthesisSet{
		Domain1: s.domainSynthesis(ctx, tool, 0, hierarchy, insights),
		Domain2: s.domainSynthesis(ctx, tool, 1, hierarchy, insights),
	}
	syntheses.Overall = s.overallSynthesis(ctx, hierarchy, syntheses.Domain1, syntheses.Domain2)

	return insights, syntheses
}

func (s *InsightService) domainSynthesis(ctx context.Context, tool *Tool, domain int, hierarchy *model.ScoreHierarchy, insights *model.InsightSet) *model.DomainSynthesis {
	req := DomainRequest{
		Label: tool.DomainLabels[domain],
		Score: hierarchy.Domains[domain],
	}
	for _, sub := range hierarchy.Subdomains {
		if sub.Domain == domain {
			req.Subdomains = append(req.Subdomains, sub)
			req.Insights = append(req.Insights, insights.Subdomains[sub.Key])
		}
	}

	callCtx, cancel := context.WithTimeout(ctx, s.callTimeout)
	defer cancel()

	result, err := s.enricher.DomainSynthesis(callCtx, req)
	if err != nil {
		monitoring.EnrichmentCalls.WithLabelValues("domain", "error").Inc()
		logger.Log.Warn("domain synthesis failed, using fallback", zap.Error(err),
			zap.String("domain", req.Label))
		return fallbackDomainSynthesis(hierarchy.Domains[domain], req.Subdomains)
	}
	if !validDomainSynthesis(result) {
		monitoring.EnrichmentCalls.WithLabelValues("domain", "invalid").Inc()
		logger.Log.Warn("domain synthesis failed validation, using fallback",
			zap.String("domain", req.Label))
		return fallbackDomainSynthesis(hierarchy.Domains[domain], req.Subdomains)
	}

	monitoring.EnrichmentCalls.WithLabelValues("domain", "ok").Inc()
	return result
}

func (s *InsightService) overallSynthesis(ctx context.Context, hierarchy *model.ScoreHierarchy, d1, d2 *model.DomainSynthesis) *model.OverallSynthesis {
	callCtx, cancel := context.WithTimeout(ctx, s.callTimeout)
	defer cancel()

	result, err := s.enricher.OverallSynthesis(callCtx, OverallRequest{
		Hierarchy: hierarchy,
		Domain1:   d1,
		Domain2:   d2,
	})
	if err != nil {
		monitoring.EnrichmentCalls.WithLabelValues("overall", "error").Inc()
		logger.Log.Warn("overall synthesis failed, using fallback", zap.Error(err))
		return fallbackOverallSynthesis(hierarchy)
	}
	if !validOverallSynthesis(result) {
		monitoring.EnrichmentCalls.WithLabelValues("overall", "invalid").Inc()
		logger.Log.Warn("overall synthesis failed validation, using fallback")
		return fallbackOverallSynthesis(hierarchy)
	}

	monitoring.EnrichmentCalls.WithLabelValues("overall", "ok").Inc()
	return result
}

// ClearAttempt drops the attempt's cached insights after completion or
// cancellation.
func (s *InsightService) ClearAttempt(ctx context.Context, tool *Tool, clientID uint) error {
	s.mu.Lock()
	delete(s.pending, attemptKey(tool.ID, clientID))
	s.mu.Unlock()

	return s.cache.Clear(ctx, tool.ID, clientID, tool.SubdomainKeys())
}

func validDomainSynthesis(result *model.DomainSynthesis) bool {
	return result != nil &&
		len(strings.TrimSpace(result.Summary)) >= minSynthesisLen &&
		len(result.KeyThemes) > 0 &&
		strings.TrimSpace(result.PriorityFocus) != ""
}

func validOverallSynthesis(result *model.OverallSynthesis) bool {
	return result != nil &&
		len(strings.TrimSpace(result.Overview)) >= minSynthesisLen &&
		len(result.NextSteps) > 0
}

// bestEffortAspects pulls whatever aspect values are already in the form
// for the enrichment context. Validation happens at scoring time, not here.
func bestEffortAspects(fields map[string]string, key string) model.AspectScores {
	var scores model.AspectScores
	scores.Belief = bestEffortInt(fields, key, model.AspectBelief)
	scores.Behavior = bestEffortInt(fields, key, model.AspectBehavior)
	scores.Feeling = bestEffortInt(fields, key, model.AspectFeeling)
	scores.Consequence = bestEffortInt(fields, key, model.AspectConsequence)
	return scores
}

func bestEffortInt(fields map[string]string, key, aspect string) int {
	var n int
	fmt.Sscanf(strings.TrimSpace(fields[fmt.Sprintf("%s_%s", key, aspect)]), "%d", &n)
	return n
}

// fallbackDomainSynthesis builds usable narrative from the numbers alone.
func fallbackDomainSynthesis(domain model.DomainScore, subdomains []model.SubdomainScore) *model.DomainSynthesis {
	sorted := make([]model.SubdomainScore, len(subdomains))
	copy(sorted, subdomains)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Quotient > sorted[j].Quotient })

	themes := make([]string, 0, len(sorted))
	for _, sub := range sorted {
		themes = append(themes, fmt.Sprintf("%s scored %d (%s)", sub.Label, sub.Quotient, sub.Band))
	}

	var focus string
	if len(sorted) > 0 {
		focus = sorted[0].Label
	}

	return &model.DomainSynthesis{
		Summary: fmt.Sprintf("%s shows a quotient of %d (%s). The pattern across its subdomains is %s: %s.",
			domain.Label, domain.Quotient, domain.Band,
			strings.ToLower(strings.ReplaceAll(domain.Gap.Classification, "_", " ")),
			domain.Gap.Recommendation),
		KeyThemes:     themes,
		PriorityFocus: focus,
	}
}

func fallbackOverallSynthesis(hierarchy *model.ScoreHierarchy) *model.OverallSynthesis {
	highest := hierarchy.Subdomains[0]
	for _, sub := range hierarchy.Subdomains[1:] {
		if sub.Quotient > highest.Quotient {
			highest = sub
		}
	}

	d1 := hierarchy.Domains[0]
	d2 := hierarchy.Domains[1]

	return &model.OverallSynthesis{
		Overview: fmt.Sprintf("Overall quotient %d (%s), combining %s at %d and %s at %d.",
			hierarchy.Overall.Quotient, hierarchy.Overall.Band,
			d1.Label, d1.Quotient, d2.Label, d2.Quotient),
		Integration: fmt.Sprintf("%s concentrates around %s; %s concentrates around %s.",
			d1.Label, d1.Gap.HighestSubdomain, d2.Label, d2.Gap.HighestSubdomain),
		CoreWork: fmt.Sprintf("Begin with %s, the highest-scoring subdomain at %d.", highest.Label, highest.Quotient),
		NextSteps: []string{
			fmt.Sprintf("Review the %s subdomain in detail.", highest.Label),
			d1.Gap.Recommendation,
			d2.Gap.Recommendation,
		},
	}
}
