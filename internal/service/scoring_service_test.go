package service

import (
	"assessment_backend/internal/model"
	"assessment_backend/internal/util"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfigs() []model.SubdomainConfig {
	return []model.SubdomainConfig{
		{Key: "identity", Label: "Identity", Domain: 0, Page: 2, TextField: "identity_reflection"},
		{Key: "beliefs", Label: "Beliefs", Domain: 0, Page: 3, TextField: "beliefs_reflection"},
		{Key: "resilience", Label: "Resilience", Domain: 0, Page: 4, TextField: "resilience_reflection"},
		{Key: "relationships", Label: "Relationships", Domain: 1, Page: 5, TextField: "relationships_reflection"},
		{Key: "resources", Label: "Resources", Domain: 1, Page: 6, TextField: "resources_reflection"},
		{Key: "action", Label: "Action", Domain: 1, Page: 7, TextField: "action_reflection"},
	}
}

var testDomainLabels = [2]string{"Internal Grounding", "External Grounding"}

func fillAspects(responses map[string]string, key string, belief, behavior, feeling, consequence int) {
	responses[key+"_belief"] = fmt.Sprintf("%d", belief)
	responses[key+"_behavior"] = fmt.Sprintf("%d", behavior)
	responses[key+"_feeling"] = fmt.Sprintf("%d", feeling)
	responses[key+"_consequence"] = fmt.Sprintf("%d", consequence)
}

func uniformResponses(value int) map[string]string {
	responses := make(map[string]string)
	for _, cfg := range testConfigs() {
		fillAspects(responses, cfg.Key, value, value, value, value)
	}
	return responses
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, 100.0, Normalize(-3))
	assert.Equal(t, 0.0, Normalize(3))
	assert.Equal(t, 50.0, Normalize(0))

	// Monotonic decreasing across the range.
	prev := Normalize(-3)
	for r := -2.5; r <= 3; r += 0.5 {
		cur := Normalize(r)
		assert.Less(t, cur, prev)
		prev = cur
	}
}

func TestCalculateScoresAllWorst(t *testing.T) {
	svc := NewScoringService()

	hierarchy, err := svc.CalculateScores(uniformResponses(-3), testConfigs(), testDomainLabels)
	require.NoError(t, err)

	require.Len(t, hierarchy.Subdomains, 6)
	for _, sub := range hierarchy.Subdomains {
		assert.Equal(t, 100, sub.Quotient)
		assert.Equal(t, model.BandCritical, sub.Band)
		assert.Equal(t, model.PatternAligned, sub.Divergence.Pattern)
	}
	assert.Equal(t, 100, hierarchy.Domains[0].Quotient)
	assert.Equal(t, 100, hierarchy.Domains[1].Quotient)
	assert.Equal(t, 100, hierarchy.Overall.Quotient)
	assert.Equal(t, model.BandCritical, hierarchy.Overall.Band)
}

func TestCalculateScoresAllBest(t *testing.T) {
	svc := NewScoringService()

	hierarchy, err := svc.CalculateScores(uniformResponses(3), testConfigs(), testDomainLabels)
	require.NoError(t, err)

	for _, sub := range hierarchy.Subdomains {
		assert.Equal(t, 0, sub.Quotient)
		assert.Equal(t, model.BandMinimal, sub.Band)
	}
	assert.Equal(t, 0, hierarchy.Overall.Quotient)
	assert.Equal(t, model.BandMinimal, hierarchy.Overall.Band)
}

func TestCalculateScoresSplitDomains(t *testing.T) {
	svc := NewScoringService()

	responses := make(map[string]string)
	for _, cfg := range testConfigs() {
		if cfg.Domain == 0 {
			fillAspects(responses, cfg.Key, -3, -3, -3, -3)
		} else {
			fillAspects(responses, cfg.Key, 3, 3, 3, 3)
		}
	}

	hierarchy, err := svc.CalculateScores(responses, testConfigs(), testDomainLabels)
	require.NoError(t, err)

	assert.Equal(t, 100, hierarchy.Domains[0].Quotient)
	assert.Equal(t, 0, hierarchy.Domains[1].Quotient)
	assert.Equal(t, 50, hierarchy.Overall.Quotient)
	assert.Equal(t, model.BandModerate, hierarchy.Overall.Band)
	assert.Equal(t, "Internal Grounding", hierarchy.Domains[0].Label)
	assert.Equal(t, "External Grounding", hierarchy.Domains[1].Label)
}

func TestCalculateScoresRejectsZero(t *testing.T) {
	svc := NewScoringService()

	responses := uniformResponses(-2)
	responses["identity_belief"] = "0"

	_, err := svc.CalculateScores(responses, testConfigs(), testDomainLabels)
	require.Error(t, err)
	assert.True(t, util.IsKind(err, util.KindValidation))
}

func TestCalculateScoresRejectsMissingAspect(t *testing.T) {
	svc := NewScoringService()

	responses := uniformResponses(1)
	delete(responses, "action_feeling")

	_, err := svc.CalculateScores(responses, testConfigs(), testDomainLabels)
	require.Error(t, err)
	assert.True(t, util.IsKind(err, util.KindValidation))
	assert.Contains(t, err.Error(), "action_feeling")
}

func TestCalculateScoresRejectsNonInteger(t *testing.T) {
	svc := NewScoringService()

	responses := uniformResponses(1)
	responses["beliefs_behavior"] = "often"

	_, err := svc.CalculateScores(responses, testConfigs(), testDomainLabels)
	require.Error(t, err)
	assert.True(t, util.IsKind(err, util.KindValidation))
}

func TestCalculateScoresRejectsOutOfRange(t *testing.T) {
	svc := NewScoringService()

	responses := uniformResponses(1)
	responses["resources_consequence"] = "4"

	_, err := svc.CalculateScores(responses, testConfigs(), testDomainLabels)
	require.Error(t, err)
	assert.True(t, util.IsKind(err, util.KindValidation))
}

func TestDivergencePatterns(t *testing.T) {
	tests := []struct {
		belief, behavior int
		gap              int
		pattern          string
	}{
		{-3, 1, 4, model.PatternBeliefDrivesDysfunction},
		{1, -2, 3, model.PatternBehaviorExceedsBelief},
		{2, 1, 1, model.PatternSlightMisalignment},
		{2, 2, 0, model.PatternAligned},
		{-1, -1, 0, model.PatternAligned},
	}

	for _, tt := range tests {
		d := divergence(tt.belief, tt.behavior)
		assert.Equal(t, tt.gap, d.Gap, "belief=%d behavior=%d", tt.belief, tt.behavior)
		assert.Equal(t, tt.pattern, d.Pattern, "belief=%d behavior=%d", tt.belief, tt.behavior)
	}
}

func TestAnalyzeGapClassification(t *testing.T) {
	members := func(quotients ...int) []model.SubdomainScore {
		out := make([]model.SubdomainScore, len(quotients))
		for i, q := range quotients {
			out[i] = model.SubdomainScore{Key: fmt.Sprintf("sub%d", i), Quotient: q}
		}
		return out
	}

	diffuse := analyzeGap(members(60, 60, 60), 60)
	assert.Equal(t, model.GapDiffuse, diffuse.Classification)
	assert.Equal(t, 0.0, diffuse.Gap)

	focused := analyzeGap(members(70, 60, 50), 60)
	assert.Equal(t, model.GapFocused, focused.Classification)
	assert.Equal(t, 10.0, focused.Gap)
	assert.Equal(t, "sub0", focused.HighestSubdomain)

	concentrated := analyzeGap(members(80, 60, 40), 60)
	assert.Equal(t, model.GapHighlyFocused, concentrated.Classification)
	assert.Equal(t, 20.0, concentrated.Gap)
	assert.NotEmpty(t, concentrated.Recommendation)
}

func TestBandBoundaries(t *testing.T) {
	tests := []struct {
		quotient int
		band     string
	}{
		{100, model.BandCritical},
		{80, model.BandCritical},
		{79, model.BandHigh},
		{60, model.BandHigh},
		{59, model.BandModerate},
		{40, model.BandModerate},
		{39, model.BandLow},
		{20, model.BandLow},
		{19, model.BandMinimal},
		{0, model.BandMinimal},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.band, BandFor(tt.quotient), "quotient=%d", tt.quotient)
	}
}

func TestCalculateScoresWrongConfigCount(t *testing.T) {
	svc := NewScoringService()

	_, err := svc.CalculateScores(uniformResponses(1), testConfigs()[:4], testDomainLabels)
	require.Error(t, err)
	assert.True(t, util.IsKind(err, util.KindValidation))
}
