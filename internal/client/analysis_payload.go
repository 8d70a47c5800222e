package client

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/yourorg/market-analysis/internal/model"
)

const analysisSystemPrompt = `You are a professional market analyst. Respond with a single JSON object and nothing else. The object must have exactly these fields:
{
  "narrative": string,
  "recommendation": string ("BUY", "SELL" or "HOLD", optionally qualified),
  "confidence": integer 1-10,
  "support_level": number,
  "resistance_level": number,
  "entry_level": number,
  "stop_loss": number,
  "take_profit": number,
  "risk_reward_ratio": string,
  "technical_summary": string,
  "catalysts": array of strings,
  "horizon": string
}`

// buildAnalysisPrompt renders the market snapshot and the caller's question
// into the user prompt shared by both remote backends.
func buildAnalysisPrompt(actx *model.AnalysisContext) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Instrument: %s (%s)\n", actx.Instrument.Symbol, actx.Instrument.Name)
	if q := actx.Quote; q != nil {
		fmt.Fprintf(&b, "Price: %.5f (change %+.5f, %+.2f%%)\n", q.Price, q.Change, q.ChangePercent)
		if q.High24h > 0 || q.Low24h > 0 {
			fmt.Fprintf(&b, "24h range: %.5f - %.5f\n", q.Low24h, q.High24h)
		}
	}
	if ind := actx.Indicators; ind != nil {
		fmt.Fprintf(&b, "RSI(14): %.2f\n", ind.RSI)
		fmt.Fprintf(&b, "MACD: %.5f signal %.5f histogram %.5f\n",
			ind.MACD.MACD, ind.MACD.Signal, ind.MACD.Histogram)
		fmt.Fprintf(&b, "VWAP: %.5f\n", ind.VWAP)
		fmt.Fprintf(&b, "Bollinger: upper %.5f middle %.5f lower %.5f\n",
			ind.Bollinger.Upper, ind.Bollinger.Middle, ind.Bollinger.Lower)
		fmt.Fprintf(&b, "Fibonacci: 61.8%% %.5f, 50%% %.5f, 38.2%% %.5f\n",
			ind.Fibonacci.Level618, ind.Fibonacci.Level50, ind.Fibonacci.Level382)
	}
	fmt.Fprintf(&b, "\nQuestion: %s\n", actx.Query)

	return b.String()
}

type analysisPayload struct {
	Narrative        string   `json:"narrative"`
	Recommendation   string   `json:"recommendation"`
	Confidence       int      `json:"confidence"`
	SupportLevel     float64  `json:"support_level"`
	ResistanceLevel  float64  `json:"resistance_level"`
	EntryLevel       float64  `json:"entry_level"`
	StopLoss         float64  `json:"stop_loss"`
	TakeProfit       float64  `json:"take_profit"`
	RiskRewardRatio  string   `json:"risk_reward_ratio"`
	TechnicalSummary string   `json:"technical_summary"`
	Catalysts        []string `json:"catalysts"`
	Horizon          string   `json:"horizon"`
}

// parseAnalysisPayload decodes and validates a backend's JSON response.
// A response that is not valid JSON or violates the schema is a hard
// failure for that backend, never a partial result.
func parseAnalysisPayload(raw, backend string) (*model.AnalysisResult, error) {
	cleaned := stripCodeFence(raw)

	var payload analysisPayload
	if err := json.Unmarshal([]byte(cleaned), &payload); err != nil {
		return nil, fmt.Errorf("%s returned malformed JSON: %w", backend, err)
	}

	if strings.TrimSpace(payload.Narrative) == "" {
		return nil, fmt.Errorf("%s response missing narrative", backend)
	}
	if strings.TrimSpace(payload.Recommendation) == "" {
		return nil, fmt.Errorf("%s response missing recommendation", backend)
	}
	if payload.Confidence < 1 || payload.Confidence > 10 {
		return nil, fmt.Errorf("%s response confidence %d out of range", backend, payload.Confidence)
	}

	return &model.AnalysisResult{
		Narrative:        payload.Narrative,
		Recommendation:   payload.Recommendation,
		Confidence:       payload.Confidence,
		SupportLevel:     payload.SupportLevel,
		ResistanceLevel:  payload.ResistanceLevel,
		EntryLevel:       payload.EntryLevel,
		StopLoss:         payload.StopLoss,
		TakeProfit:       payload.TakeProfit,
		RiskRewardRatio:  payload.RiskRewardRatio,
		TechnicalSummary: payload.TechnicalSummary,
		Catalysts:        payload.Catalysts,
		Horizon:          payload.Horizon,
		SourceBackend:    backend,
		GeneratedAt:      time.Now().UTC(),
	}, nil
}

// stripCodeFence removes a surrounding markdown code fence, which chat
// models emit even when asked for bare JSON.
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
