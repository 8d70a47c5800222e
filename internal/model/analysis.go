package model

import "time"

// Backend identifiers used for provider preference and result attribution.
const (
	BackendOpenAI   = "openai"
	BackendDeepSeek = "deepseek"
	BackendLocal    = "local"

	// PreferenceAuto lets the chain pick in default priority order;
	// PreferenceAll and its alias PreferenceBoth request a comparative
	// run of both remote backends.
	PreferenceAuto = "auto"
	PreferenceAll  = "all"
	PreferenceBoth = "both"
)

// AnalysisRequest is the caller's input for a trade analysis.
type AnalysisRequest struct {
	Query    string `json:"query" binding:"required"`
	Symbol   string `json:"symbol" binding:"required,instrument"`
	Provider string `json:"provider,omitempty"`
	Compare  bool   `json:"compare,omitempty"`
}

// AnalysisContext is the market snapshot handed to every analysis backend.
type AnalysisContext struct {
	RequestID  string
	Query      string
	Instrument Instrument
	Quote      *Quote
	Indicators *IndicatorSnapshot
}

// AnalysisResult is the structured outcome of one backend's analysis.
type AnalysisResult struct {
	Narrative        string    `json:"narrative"`
	Recommendation   string    `json:"recommendation"`
	Confidence       int       `json:"confidence"`
	SupportLevel     float64   `json:"support_level"`
	ResistanceLevel  float64   `json:"resistance_level"`
	EntryLevel       float64   `json:"entry_level"`
	StopLoss         float64   `json:"stop_loss"`
	TakeProfit       float64   `json:"take_profit"`
	RiskRewardRatio  string    `json:"risk_reward_ratio"`
	TechnicalSummary string    `json:"technical_summary"`
	Catalysts        []string  `json:"catalysts"`
	Horizon          string    `json:"horizon"`
	SourceBackend    string    `json:"source_backend"`
	FallbackUsed     bool      `json:"fallback_used,omitempty"`
	GeneratedAt      time.Time `json:"generated_at"`
}

// ComparativeResult pairs two independent analyses with a consensus score.
// Secondary and the agreement fields are unset when only one backend
// produced a result.
type ComparativeResult struct {
	Primary              *AnalysisResult `json:"primary"`
	Secondary            *AnalysisResult `json:"secondary,omitempty"`
	AgreementScore       *int            `json:"agreement_score,omitempty"`
	RecommendationsAgree *bool           `json:"recommendations_agree,omitempty"`
	ConfidenceDelta      *int            `json:"confidence_delta,omitempty"`
	Summary              string          `json:"summary"`
}
