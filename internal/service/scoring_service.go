package service

import (
	"assessment_backend/internal/model"
	"assessment_backend/internal/util"
	"fmt"
	"math"
	"strconv"
	"strings"
)

const (
	subdomainCount = 6
	domainSize     = 3

	scoreMin = -3
	scoreMax = 3
)

var gapRecommendations = map[string]string{
	model.GapDiffuse:       "Problems are spread evenly across this domain. Work all three subdomains together rather than singling one out.",
	model.GapFocused:       "One subdomain carries a meaningfully larger share of the problem. Start there while keeping the others in view.",
	model.GapHighlyFocused: "The difficulty in this domain is concentrated in a single subdomain. Target it directly before broadening out.",
}

// ScoringService converts raw per-aspect answers into the four-level
// score hierarchy. It is pure and stateless; any malformed aspect score
// fails the whole call with no partial result.
type ScoringService struct{}

func NewScoringService() *ScoringService {
	return &ScoringService{}
}

// Normalize maps a raw bipolar average in [-3,3] onto a 0-100 problem
// score: -3 -> 100, +3 -> 0. Linear and monotonic decreasing.
func Normalize(r float64) float64 {
	return ((3 - r) / 6) * 100
}

func (s *ScoringService) CalculateScores(responses map[string]string, configs []model.SubdomainConfig, domainLabels [2]string) (*model.ScoreHierarchy, error) {
	if len(configs) != subdomainCount {
		return nil, util.Validation("expected %d subdomain configs, got %d", subdomainCount, len(configs))
	}

	subdomains := make([]model.SubdomainScore, 0, subdomainCount)
	for _, cfg := range configs {
		aspects, err := extractAspects(responses, cfg.Key)
		if err != nil {
			return nil, err
		}

		raw := float64(aspects.Belief+aspects.Behavior+aspects.Feeling+aspects.Consequence) / 4
		quotient := int(math.Round(Normalize(raw)))

		subdomains = append(subdomains, model.SubdomainScore{
			Key:        cfg.Key,
			Label:      cfg.Label,
			Domain:     cfg.Domain,
			Aspects:    aspects,
			RawAverage: raw,
			Quotient:   quotient,
			Band:       BandFor(quotient),
			Divergence: divergence(aspects.Belief, aspects.Behavior),
		})
	}

	var hierarchy model.ScoreHierarchy
	hierarchy.Subdomains = subdomains

	for d := 0; d < 2; d++ {
		members := make([]model.SubdomainScore, 0, domainSize)
		for _, sub := range subdomains {
			if sub.Domain == d {
				members = append(members, sub)
			}
		}

		sum := 0
		for _, sub := range members {
			sum += sub.Quotient
		}
		avg := float64(sum) / float64(len(members))
		quotient := int(math.Round(avg))

		hierarchy.Domains[d] = model.DomainScore{
			Index:    d,
			Label:    domainLabels[d],
			Quotient: quotient,
			Band:     BandFor(quotient),
			Gap:      analyzeGap(members, avg),
		}
	}

	overall := int(math.Round(float64(hierarchy.Domains[0].Quotient+hierarchy.Domains[1].Quotient) / 2))
	hierarchy.Overall = model.OverallScore{
		Quotient: overall,
		Band:     BandFor(overall),
	}

	return &hierarchy, nil
}

// extractAspects parses the four aspect answers for one subdomain.
// Valid values are integers in [-3,-1] or [1,3]; zero is rejected.
func extractAspects(responses map[string]string, key string) (model.AspectScores, error) {
	var scores model.AspectScores
	targets := map[string]*int{
		model.AspectBelief:      &scores.Belief,
		model.AspectBehavior:    &scores.Behavior,
		model.AspectFeeling:     &scores.Feeling,
		model.AspectConsequence: &scores.Consequence,
	}

	for _, aspect := range model.Aspects {
		field := fmt.Sprintf("%s_%s", key, aspect)
		raw, ok := responses[field]
		if !ok {
			return scores, util.Validation("missing score for %s", field)
		}
		n, err := strconv.Atoi(strings.TrimSpace(raw))
		if err != nil {
			return scores, util.Validation("invalid score for %s: %q is not an integer", field, raw)
		}
		if n == 0 {
			return scores, util.Validation("invalid score for %s: zero is outside the bipolar range", field)
		}
		if n < scoreMin || n > scoreMax {
			return scores, util.Validation("invalid score for %s: %d is out of range [-3,3]", field, n)
		}
		*targets[aspect] = n
	}

	return scores, nil
}

// divergence measures how far stated belief and reported behavior pull
// apart within one subdomain.
func divergence(belief, behavior int) model.Divergence {
	gap := belief - behavior
	if gap < 0 {
		gap = -gap
	}

	var pattern string
	switch {
	case gap >= 2 && belief < behavior:
		pattern = model.PatternBeliefDrivesDysfunction
	case gap >= 2:
		pattern = model.PatternBehaviorExceedsBelief
	case gap == 1:
		pattern = model.PatternSlightMisalignment
	default:
		pattern = model.PatternAligned
	}

	return model.Divergence{Gap: gap, Pattern: pattern}
}

// analyzeGap locates the worst subdomain in a domain and classifies how
// concentrated the domain's problem is around it.
func analyzeGap(members []model.SubdomainScore, domainAverage float64) model.GapAnalysis {
	highest := members[0]
	for _, sub := range members[1:] {
		if sub.Quotient > highest.Quotient {
			highest = sub
		}
	}

	gap := float64(highest.Quotient) - domainAverage

	var classification string
	switch {
	case gap < 5:
		classification = model.GapDiffuse
	case gap <= 15:
		classification = model.GapFocused
	default:
		classification = model.GapHighlyFocused
	}

	return model.GapAnalysis{
		HighestSubdomain: highest.Key,
		HighestScore:     highest.Quotient,
		DomainAverage:    domainAverage,
		Gap:              gap,
		Classification:   classification,
		Recommendation:   gapRecommendations[classification],
	}
}

// BandFor maps a quotient onto its interpretation band (display only).
func BandFor(quotient int) string {
	switch {
	case quotient >= 80:
		return model.BandCritical
	case quotient >= 60:
		return model.BandHigh
	case quotient >= 40:
		return model.BandModerate
	case quotient >= 20:
		return model.BandLow
	default:
		return model.BandMinimal
	}
}
