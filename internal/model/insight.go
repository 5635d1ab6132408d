package model

// SubdomainInsight is the enrichment result cached per
// (tool, client, subdomain) while an attempt is in flight.
type SubdomainInsight struct {
	Pattern    string `json:"pattern"`
	Insight    string `json:"insight"`
	RootBelief string `json:"rootBelief"`
	Action     string `json:"action"`
}

// DomainSynthesis aggregates one domain's three subdomain insights.
type DomainSynthesis struct {
	Summary       string   `json:"summary"`
	KeyThemes     []string `json:"keyThemes"`
	PriorityFocus string   `json:"priorityFocus"`
}

// OverallSynthesis is the cross-domain narrative written on submission.
type OverallSynthesis struct {
	Overview    string   `json:"overview"`
	Integration string   `json:"integration"`
	CoreWork    string   `json:"coreWork"`
	NextSteps   []string `json:"nextSteps"`
}
