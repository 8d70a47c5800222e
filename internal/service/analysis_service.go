package service

import (
	"context"
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/yourorg/market-analysis/internal/model"
)

// AnalysisBackend is one interchangeable analysis engine in the chain.
type AnalysisBackend interface {
	ID() string
	Analyze(ctx context.Context, actx *model.AnalysisContext) (*model.AnalysisResult, error)
}

// AnalysisConfig tunes the analysis orchestrator.
type AnalysisConfig struct {
	BackendTimeout time.Duration
}

// AnalysisOutcome is the union returned by Analyze: exactly one of Single
// or Comparative is set, depending on the requested mode.
type AnalysisOutcome struct {
	Single      *model.AnalysisResult    `json:"single,omitempty"`
	Comparative *model.ComparativeResult `json:"comparative,omitempty"`
}

// AnalysisService orchestrates the analysis backend chain: single mode with
// failover, and comparative mode running the two remote backends
// concurrently with a consensus score.
type AnalysisService struct {
	remotes []AnalysisBackend
	local   AnalysisBackend
	market  *MarketDataService
	cfg     AnalysisConfig
	logger  *zap.Logger
}

// NewAnalysisService creates the analysis orchestrator. remotes are the
// remote backends in default priority order; local is the guaranteed
// last-resort backend.
func NewAnalysisService(remotes []AnalysisBackend, local AnalysisBackend, market *MarketDataService, cfg AnalysisConfig, logger *zap.Logger) *AnalysisService {
	if cfg.BackendTimeout <= 0 {
		cfg.BackendTimeout = 30 * time.Second
	}
	return &AnalysisService{
		remotes: remotes,
		local:   local,
		market:  market,
		cfg:     cfg,
		logger:  logger,
	}
}

// Analyze validates the request, acquires the market snapshot and runs the
// backend chain in the requested mode. Caller-input errors are rejected
// before any provider or backend is invoked.
func (s *AnalysisService) Analyze(ctx context.Context, req *model.AnalysisRequest) (*AnalysisOutcome, error) {
	if strings.TrimSpace(req.Query) == "" {
		return nil, ErrEmptyQuery
	}
	ins, ok := model.LookupInstrument(req.Symbol)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownSymbol, req.Symbol)
	}
	preference := req.Provider
	if preference == "" {
		preference = model.PreferenceAuto
	}
	if !s.knownPreference(preference) {
		return nil, fmt.Errorf("%w: %s", ErrUnknownBackend, preference)
	}

	actx, err := s.buildContext(ctx, ins, req.Query)
	if err != nil {
		return nil, err
	}

	if req.Compare || preference == model.PreferenceAll || preference == model.PreferenceBoth {
		comparative, err := s.analyzeComparative(ctx, actx)
		if err != nil {
			return nil, err
		}
		return &AnalysisOutcome{Comparative: comparative}, nil
	}

	result, err := s.analyzeSingle(ctx, actx, preference)
	if err != nil {
		return nil, err
	}
	return &AnalysisOutcome{Single: result}, nil
}

func (s *AnalysisService) knownPreference(preference string) bool {
	switch preference {
	case model.PreferenceAuto, model.PreferenceAll, model.PreferenceBoth, s.local.ID():
		return true
	}
	for _, b := range s.remotes {
		if b.ID() == preference {
			return true
		}
	}
	return false
}

// buildContext assembles the market snapshot handed to every backend. The
// quote is guaranteed by the acquisition layer; indicators are best effort
// and may be absent.
func (s *AnalysisService) buildContext(ctx context.Context, ins model.Instrument, query string) (*model.AnalysisContext, error) {
	quote, err := s.market.GetQuote(ctx, ins.Symbol)
	if err != nil {
		return nil, err
	}

	indicators, err := s.market.GetIndicators(ctx, ins.Symbol, "")
	if err != nil {
		s.logger.Warn("Proceeding without indicators",
			zap.String("symbol", ins.Symbol),
			zap.Error(err))
		indicators = nil
	}

	return &model.AnalysisContext{
		RequestID:  uuid.NewString(),
		Query:      query,
		Instrument: ins,
		Quote:      quote,
		Indicators: indicators,
	}, nil
}

// analyzeSingle tries backends strictly in order and stops at the first
// success. The order is [preferred, remaining defaults, local]; the result
// is flagged as a fallback when the winner was not the first attempt.
func (s *AnalysisService) analyzeSingle(ctx context.Context, actx *model.AnalysisContext, preference string) (*model.AnalysisResult, error) {
	backends := s.chainOrder(preference)

	attempts := make([]chainAttempt[*model.AnalysisResult], len(backends))
	for i, b := range backends {
		backend := b
		attempts[i] = chainAttempt[*model.AnalysisResult]{
			name: backend.ID(),
			run: func(ctx context.Context) (*model.AnalysisResult, error) {
				return backend.Analyze(ctx, actx)
			},
		}
	}

	result, idx, err := runChain(ctx, attempts, nil, s.cfg.BackendTimeout)
	if err != nil {
		// The local backend never fails, so an exhausted chain means a
		// bug rather than an upstream condition. Surface it.
		s.logger.Error("Analysis backend chain exhausted",
			zap.String("symbol", actx.Instrument.Symbol),
			zap.String("request_id", actx.RequestID),
			zap.Error(err))
		return nil, err
	}

	if idx > 0 {
		result.FallbackUsed = true
		s.logger.Info("Analysis served by fallback backend",
			zap.String("backend", result.SourceBackend),
			zap.String("request_id", actx.RequestID))
	}
	return result, nil
}

// chainOrder builds the ordered backend list for single mode, deduplicated,
// always ending with the local backend.
func (s *AnalysisService) chainOrder(preference string) []AnalysisBackend {
	ordered := make([]AnalysisBackend, 0, len(s.remotes)+1)
	seen := make(map[string]bool)

	appendBackend := func(b AnalysisBackend) {
		if b != nil && !seen[b.ID()] {
			ordered = append(ordered, b)
			seen[b.ID()] = true
		}
	}

	if preference != model.PreferenceAuto {
		if preference == s.local.ID() {
			appendBackend(s.local)
		}
		for _, b := range s.remotes {
			if b.ID() == preference {
				appendBackend(b)
			}
		}
	}
	for _, b := range s.remotes {
		appendBackend(b)
	}
	appendBackend(s.local)
	return ordered
}

// analyzeComparative runs the two highest-priority remote backends
// concurrently with independent failure isolation and merges the results.
// When both fail the local backend serves a sole result with no comparison.
func (s *AnalysisService) analyzeComparative(ctx context.Context, actx *model.AnalysisContext) (*model.ComparativeResult, error) {
	if len(s.remotes) < 2 {
		return s.localOnly(ctx, actx, "comparative mode requires two remote backends")
	}
	pair := s.remotes[:2]

	results := make([]*model.AnalysisResult, len(pair))
	errs := make([]error, len(pair))

	var wg sync.WaitGroup
	for i, b := range pair {
		wg.Add(1)
		go func(i int, backend AnalysisBackend) {
			defer wg.Done()
			attemptCtx, cancel := context.WithTimeout(ctx, s.cfg.BackendTimeout)
			defer cancel()
			results[i], errs[i] = backend.Analyze(attemptCtx, actx)
		}(i, b)
	}
	wg.Wait()

	// A cancelled run returns no partial comparison.
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	for i, err := range errs {
		if err != nil {
			s.logger.Warn("Backend excluded from comparison",
				zap.String("backend", pair[i].ID()),
				zap.String("request_id", actx.RequestID),
				zap.Error(err))
		}
	}

	switch {
	case results[0] != nil && results[1] != nil:
		return s.compare(results[0], results[1]), nil
	case results[0] != nil:
		return soleResult(results[0], fmt.Sprintf("No comparison: %s failed.", pair[1].ID())), nil
	case results[1] != nil:
		return soleResult(results[1], fmt.Sprintf("No comparison: %s failed.", pair[0].ID())), nil
	default:
		return s.localOnly(ctx, actx, "both remote backends failed")
	}
}

func (s *AnalysisService) localOnly(ctx context.Context, actx *model.AnalysisContext, reason string) (*model.ComparativeResult, error) {
	result, err := s.local.Analyze(ctx, actx)
	if err != nil {
		return nil, fmt.Errorf("local backend failed: %w", err)
	}
	return soleResult(result, fmt.Sprintf("No comparison possible (%s); local analysis only.", reason)), nil
}

// soleResult wraps a single analysis as a comparative result with the
// agreement fields absent.
func soleResult(result *model.AnalysisResult, summary string) *model.ComparativeResult {
	return &model.ComparativeResult{
		Primary: result,
		Summary: summary,
	}
}

// compare scores the agreement between two independent analyses.
func (s *AnalysisService) compare(primary, secondary *model.AnalysisResult) *model.ComparativeResult {
	score := 0

	agree := recommendationsAgree(primary.Recommendation, secondary.Recommendation)
	if agree {
		score += 50
	}

	delta := primary.Confidence - secondary.Confidence
	if delta < 0 {
		delta = -delta
	}
	if delta <= 2 {
		score += 25
		if delta <= 1 {
			score += 15
		}
	}

	if math.Abs(primary.EntryLevel-secondary.EntryLevel) < 0.01 {
		score += 10
	}

	return &model.ComparativeResult{
		Primary:              primary,
		Secondary:            secondary,
		AgreementScore:       &score,
		RecommendationsAgree: &agree,
		ConfidenceDelta:      &delta,
		Summary:              consensusSummary(score),
	}
}

// normalizeRecommendation reduces a free-text recommendation to its
// BUY/SELL/HOLD core by case-insensitive substring match.
func normalizeRecommendation(recommendation string) string {
	upper := strings.ToUpper(recommendation)
	for _, core := range []string{"BUY", "SELL", "HOLD"} {
		if strings.Contains(upper, core) {
			return core
		}
	}
	return ""
}

func recommendationsAgree(a, b string) bool {
	na, nb := normalizeRecommendation(a), normalizeRecommendation(b)
	return na != "" && na == nb
}

func consensusSummary(score int) string {
	switch {
	case score >= 80:
		return "High consensus between backends; signals are strongly aligned."
	case score >= 60:
		return "Moderate consensus; directions broadly agree with some divergence."
	case score >= 40:
		return "Partial consensus; treat the signal with caution."
	default:
		return "Low consensus between backends - recommend further analysis."
	}
}
