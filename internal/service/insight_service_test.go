package service

import (
	"assessment_backend/internal/model"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type insightHarness struct {
	svc      *InsightService
	cache    *fakeInsightCache
	enricher *fakeEnricher
	tool     *Tool
}

func newInsightHarness(t *testing.T) *insightHarness {
	t.Helper()

	cache := newFakeInsightCache()
	enricher := &fakeEnricher{}

	svc := NewInsightService(enricher, cache, 1, 8, 100*time.Millisecond, 200*time.Millisecond)
	svc.Start()
	t.Cleanup(svc.Stop)

	return &insightHarness{
		svc:      svc,
		cache:    cache,
		enricher: enricher,
		tool:     DefaultTools(nil)[0],
	}
}

func testHierarchy(t *testing.T) *model.ScoreHierarchy {
	t.Helper()
	hierarchy, err := NewScoringService().CalculateScores(uniformResponses(-2), testConfigs(), testDomainLabels)
	require.NoError(t, err)
	return hierarchy
}

func TestOnPageSavedSkipsShortText(t *testing.T) {
	h := newInsightHarness(t)

	err := h.svc.OnPageSaved(context.Background(), h.tool, 7, 2, map[string]string{
		"identity_reflection": "too short",
	})
	require.NoError(t, err)

	h.svc.Flush(h.tool.ID, 7)
	assert.Equal(t, 0, h.enricher.calls())
	assert.Equal(t, 0, h.cache.size())
}

func TestOnPageSavedSkipsNonSubdomainPage(t *testing.T) {
	h := newInsightHarness(t)

	err := h.svc.OnPageSaved(context.Background(), h.tool, 7, 1, map[string]string{
		"identity_reflection": strings.Repeat("meaningful reflection ", 3),
	})
	require.NoError(t, err)

	h.svc.Flush(h.tool.ID, 7)
	assert.Equal(t, 0, h.enricher.calls())
}

func TestOnPageSavedSkipsCacheHit(t *testing.T) {
	h := newInsightHarness(t)
	ctx := context.Background()

	require.NoError(t, h.cache.Set(ctx, h.tool.ID, 7, "identity", &model.SubdomainInsight{
		Insight: "already enriched",
	}))

	err := h.svc.OnPageSaved(ctx, h.tool, 7, 2, map[string]string{
		"identity_reflection": "a reflection long enough to qualify for enrichment",
	})
	require.NoError(t, err)

	h.svc.Flush(h.tool.ID, 7)
	assert.Equal(t, 0, h.enricher.calls())
}

func TestOnPageSavedEnrichesAndCaches(t *testing.T) {
	h := newInsightHarness(t)
	ctx := context.Background()

	h.enricher.subdomainFn = func(req SubdomainRequest) (*model.SubdomainInsight, error) {
		assert.Equal(t, "identity", req.SubdomainKey)
		assert.Equal(t, uint(7), req.ClientID)
		return &model.SubdomainInsight{
			Pattern:    "avoidance",
			Insight:    "a generated narrative insight",
			RootBelief: "not enough",
			Action:     "name the pattern when it appears",
		}, nil
	}

	err := h.svc.OnPageSaved(ctx, h.tool, 7, 2, map[string]string{
		"identity_reflection": "a reflection long enough to qualify for enrichment",
		"identity_belief":     "-2",
	})
	require.NoError(t, err)

	h.svc.Flush(h.tool.ID, 7)

	cached, err := h.cache.Get(ctx, h.tool.ID, 7, "identity")
	require.NoError(t, err)
	require.NotNil(t, cached)
	assert.Equal(t, "a generated narrative insight", cached.Insight)
	assert.Equal(t, 1, h.enricher.calls())
}

func TestWorkerDiscardsEmptyInsight(t *testing.T) {
	h := newInsightHarness(t)
	ctx := context.Background()

	h.enricher.subdomainFn = func(req SubdomainRequest) (*model.SubdomainInsight, error) {
		return &model.SubdomainInsight{Insight: "   "}, nil
	}

	err := h.svc.OnPageSaved(ctx, h.tool, 7, 2, map[string]string{
		"identity_reflection": "a reflection long enough to qualify for enrichment",
	})
	require.NoError(t, err)

	h.svc.Flush(h.tool.ID, 7)
	assert.Equal(t, 0, h.cache.size())
}

func TestDomainSynthesisFallbackOnEmptyResult(t *testing.T) {
	h := newInsightHarness(t)
	hierarchy := testHierarchy(t)

	h.enricher.domainFn = func(req DomainRequest) (*model.DomainSynthesis, error) {
		return &model.DomainSynthesis{Summary: "", KeyThemes: []string{}, PriorityFocus: ""}, nil
	}

	_, syntheses := h.svc.RunFinalSyntheses(context.Background(), h.tool, 7, hierarchy)

	require.NotNil(t, syntheses.Domain1)
	assert.GreaterOrEqual(t, len(syntheses.Domain1.Summary), minSynthesisLen)
	assert.NotEmpty(t, syntheses.Domain1.KeyThemes)
	assert.NotEmpty(t, syntheses.Domain1.PriorityFocus)
}

func TestSynthesesFallbackOnEnricherError(t *testing.T) {
	h := newInsightHarness(t)
	hierarchy := testHierarchy(t)

	insights, syntheses := h.svc.RunFinalSyntheses(context.Background(), h.tool, 7, hierarchy)

	require.NotNil(t, insights)
	require.NotNil(t, syntheses.Domain1)
	require.NotNil(t, syntheses.Domain2)
	require.NotNil(t, syntheses.Overall)

	assert.Contains(t, syntheses.Domain1.Summary, "Internal Grounding")
	assert.Contains(t, syntheses.Domain2.Summary, "External Grounding")
	assert.NotEmpty(t, syntheses.Overall.Overview)
	assert.NotEmpty(t, syntheses.Overall.NextSteps)
	assert.NotEmpty(t, syntheses.Overall.CoreWork)
}

func TestValidSynthesisPassesThrough(t *testing.T) {
	h := newInsightHarness(t)
	hierarchy := testHierarchy(t)

	h.enricher.domainFn = func(req DomainRequest) (*model.DomainSynthesis, error) {
		return &model.DomainSynthesis{
			Summary:       "A considered narrative summary of this domain's pattern.",
			KeyThemes:     []string{"self-trust", "follow-through"},
			PriorityFocus: "Identity",
		}, nil
	}
	h.enricher.overallFn = func(req OverallRequest) (*model.OverallSynthesis, error) {
		return &model.OverallSynthesis{
			Overview:  "An integrated view across both domains of the assessment.",
			NextSteps: []string{"revisit the identity reflection"},
		}, nil
	}

	_, syntheses := h.svc.RunFinalSyntheses(context.Background(), h.tool, 7, hierarchy)

	assert.Equal(t, []string{"self-trust", "follow-through"}, syntheses.Domain1.KeyThemes)
	assert.Equal(t, "An integrated view across both domains of the assessment.", syntheses.Overall.Overview)
}

func TestRunFinalSynthesesCollectsCachedInsights(t *testing.T) {
	h := newInsightHarness(t)
	ctx := context.Background()
	hierarchy := testHierarchy(t)

	require.NoError(t, h.cache.Set(ctx, h.tool.ID, 7, "beliefs", &model.SubdomainInsight{
		Insight: "cached from a page save",
	}))

	insights, _ := h.svc.RunFinalSyntheses(ctx, h.tool, 7, hierarchy)

	require.Contains(t, insights.Subdomains, "beliefs")
	assert.Equal(t, "cached from a page save", insights.Subdomains["beliefs"].Insight)
	assert.NotContains(t, insights.Subdomains, "identity")
}

func TestClearAttemptDropsCachedInsights(t *testing.T) {
	h := newInsightHarness(t)
	ctx := context.Background()

	for _, key := range h.tool.SubdomainKeys() {
		require.NoError(t, h.cache.Set(ctx, h.tool.ID, 7, key, &model.SubdomainInsight{Insight: "x"}))
	}
	require.Equal(t, 6, h.cache.size())

	require.NoError(t, h.svc.ClearAttempt(ctx, h.tool, 7))
	assert.Equal(t, 0, h.cache.size())
}

func TestFallbackDomainSynthesisOrdersThemesByQuotient(t *testing.T) {
	subdomains := []model.SubdomainScore{
		{Key: "a", Label: "Alpha", Quotient: 40, Band: model.BandModerate},
		{Key: "b", Label: "Bravo", Quotient: 90, Band: model.BandCritical},
		{Key: "c", Label: "Charlie", Quotient: 60, Band: model.BandHigh},
	}
	domain := model.DomainScore{
		Label:    "Internal Grounding",
		Quotient: 63,
		Band:     model.BandHigh,
		Gap: model.GapAnalysis{
			HighestSubdomain: "b",
			Classification:   model.GapHighlyFocused,
			Recommendation:   gapRecommendations[model.GapHighlyFocused],
		},
	}

	result := fallbackDomainSynthesis(domain, subdomains)

	require.Len(t, result.KeyThemes, 3)
	assert.Contains(t, result.KeyThemes[0], "Bravo")
	assert.Equal(t, "Bravo", result.PriorityFocus)
	assert.Contains(t, result.Summary, "Internal Grounding")
}
