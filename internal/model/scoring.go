package model

// Aspect names scored for every subdomain. Scores are bipolar integers
// in [-3,-1] or [1,3]; zero is not a valid answer.
const (
	AspectBelief      = "belief"
	AspectBehavior    = "behavior"
	AspectFeeling     = "feeling"
	AspectConsequence = "consequence"
)

var Aspects = []string{AspectBelief, AspectBehavior, AspectFeeling, AspectConsequence}

// Gap classifications describe how concentrated a domain's problem is.
const (
	GapDiffuse       = "DIFFUSE"
	GapFocused       = "FOCUSED"
	GapHighlyFocused = "HIGHLY_FOCUSED"
)

// Belief/behavior divergence patterns.
const (
	PatternBeliefDrivesDysfunction = "BELIEF_DRIVES_DYSFUNCTION"
	PatternBehaviorExceedsBelief   = "BEHAVIOR_EXCEEDS_BELIEF"
	PatternSlightMisalignment      = "SLIGHT_MISALIGNMENT"
	PatternAligned                 = "ALIGNED"
)

// Interpretation bands for display. Higher quotient = more problematic.
const (
	BandCritical = "CRITICAL"
	BandHigh     = "HIGH"
	BandModerate = "MODERATE"
	BandLow      = "LOW"
	BandMinimal  = "MINIMAL"
)

// SubdomainConfig ties a scored subdomain to its form fields and domain.
type SubdomainConfig struct {
	Key       string `json:"key"`
	Label     string `json:"label"`
	Domain    int    `json:"domain"` // 0 or 1
	Page      int    `json:"page"`
	TextField string `json:"textField"`
}

type AspectScores struct {
	Belief      int `json:"belief"`
	Behavior    int `json:"behavior"`
	Feeling     int `json:"feeling"`
	Consequence int `json:"consequence"`
}

type Divergence struct {
	Gap     int    `json:"gap"`
	Pattern string `json:"pattern"`
}

type SubdomainScore struct {
	Key        string       `json:"key"`
	Label      string       `json:"label"`
	Domain     int          `json:"domain"`
	Aspects    AspectScores `json:"aspects"`
	RawAverage float64      `json:"rawAverage"`
	Quotient   int          `json:"quotient"`
	Band       string       `json:"band"`
	Divergence Divergence   `json:"divergence"`
}

type GapAnalysis struct {
	HighestSubdomain string  `json:"highestSubdomain"`
	HighestScore     int     `json:"highestScore"`
	DomainAverage    float64 `json:"domainAverage"`
	Gap              float64 `json:"gap"`
	Classification   string  `json:"classification"`
	Recommendation   string  `json:"recommendation"`
}

type DomainScore struct {
	Index    int         `json:"index"` // 0 or 1
	Label    string      `json:"label"`
	Quotient int         `json:"quotient"`
	Band     string      `json:"band"`
	Gap      GapAnalysis `json:"gap"`
}

type OverallScore struct {
	Quotient int    `json:"quotient"`
	Band     string `json:"band"`
}

// ScoreHierarchy is the full four-level scoring result for one attempt.
type ScoreHierarchy struct {
	Subdomains []SubdomainScore `json:"subdomains"`
	Domains    [2]DomainScore   `json:"domains"`
	Overall    OverallScore     `json:"overall"`
}
