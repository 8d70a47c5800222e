package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/yourorg/market-analysis/internal/model"
)

// LocalAnalyst is the deterministic rule-based analysis backend. It never
// calls a remote system and never fails, which is what lets the backend
// chain guarantee a result.
type LocalAnalyst struct{}

// NewLocalAnalyst creates the local heuristic backend.
func NewLocalAnalyst() *LocalAnalyst { return &LocalAnalyst{} }

// ID identifies the backend in chain ordering and result attribution.
func (a *LocalAnalyst) ID() string { return model.BackendLocal }

// Analyze produces a rule-based analysis from the market snapshot.
func (a *LocalAnalyst) Analyze(_ context.Context, actx *model.AnalysisContext) (*model.AnalysisResult, error) {
	price := actx.Instrument.Baseline
	change := 0.0
	if actx.Quote != nil {
		price = actx.Quote.Price
		change = actx.Quote.Change
	}

	bullishSignals, bearishSignals, signalNotes := a.countSignals(actx, price)

	recommendation, direction := a.recommend(bullishSignals, bearishSignals, change)

	// Confidence 5-8, one point per corroborating signal beyond the base.
	strongest := bullishSignals
	if bearishSignals > strongest {
		strongest = bearishSignals
	}
	confidence := 5 + strongest
	if confidence > 8 {
		confidence = 8
	}

	support := price * 0.995
	resistance := price * 1.005
	entry := price * (1 + 0.001*direction)
	stop := entry * (1 - 0.01*direction)
	target := entry * (1 + 0.0275*direction)
	riskReward := "1:2.75"
	if direction == 0 {
		// No directional edge: keep levels symmetric around price.
		entry = price
		stop = price * 0.99
		target = price * 1.025
		riskReward = "1:2.5"
	}

	return &model.AnalysisResult{
		Narrative:        a.narrative(actx, price, recommendation, signalNotes),
		Recommendation:   recommendation,
		Confidence:       confidence,
		SupportLevel:     support,
		ResistanceLevel:  resistance,
		EntryLevel:       entry,
		StopLoss:         stop,
		TakeProfit:       target,
		RiskRewardRatio:  riskReward,
		TechnicalSummary: strings.Join(signalNotes, "; "),
		Catalysts:        a.catalysts(actx.Instrument.Category),
		Horizon:          "intraday to 3 sessions",
		SourceBackend:    a.ID(),
		GeneratedAt:      time.Now().UTC(),
	}, nil
}

// countSignals tallies corroborating bullish and bearish signals from the
// indicator snapshot.
func (a *LocalAnalyst) countSignals(actx *model.AnalysisContext, price float64) (bullish, bearish int, notes []string) {
	ind := actx.Indicators
	if ind == nil {
		return 0, 0, []string{"no indicator data available"}
	}

	if ind.MACD.Histogram > 0 {
		bullish++
		notes = append(notes, "MACD histogram positive")
	} else if ind.MACD.Histogram < 0 {
		bearish++
		notes = append(notes, "MACD histogram negative")
	}

	if ind.VWAP > 0 {
		if price > ind.VWAP {
			bullish++
			notes = append(notes, "price above VWAP")
		} else if price < ind.VWAP {
			bearish++
			notes = append(notes, "price below VWAP")
		}
	}

	switch {
	case ind.RSI < 30:
		bullish++
		notes = append(notes, fmt.Sprintf("RSI oversold at %.1f", ind.RSI))
	case ind.RSI > 70:
		bearish++
		notes = append(notes, fmt.Sprintf("RSI overbought at %.1f", ind.RSI))
	default:
		notes = append(notes, fmt.Sprintf("RSI neutral at %.1f", ind.RSI))
	}

	return bullish, bearish, notes
}

// recommend maps the signal tally onto a recommendation and trade direction
// (+1 long, -1 short, 0 flat).
func (a *LocalAnalyst) recommend(bullish, bearish int, change float64) (string, float64) {
	switch {
	case bullish >= 2 && bullish > bearish:
		return "BUY", 1
	case bearish >= 2 && bearish > bullish:
		return "SELL", -1
	case bullish == bearish && bullish > 0:
		return "WAIT - mixed signals", 0
	case change > 0:
		return "HOLD - mild bullish bias", 0
	case change < 0:
		return "HOLD - mild bearish bias", 0
	default:
		return "HOLD", 0
	}
}

func (a *LocalAnalyst) narrative(actx *model.AnalysisContext, price float64, recommendation string, notes []string) string {
	ins := actx.Instrument

	var flavor string
	switch ins.Category {
	case model.CategoryMetal:
		flavor = "Precious metals remain sensitive to real yields and dollar strength."
	case model.CategoryCurrency:
		flavor = "The pair trades on rate differentials and near-term macro prints."
	case model.CategoryIndex:
		flavor = "Index direction is driven by breadth and the heavyweight constituents."
	default:
		flavor = "Momentum and liquidity conditions dominate short-term moves."
	}

	return fmt.Sprintf("%s is trading at %.5f. %s Technical picture: %s. Rule-based assessment: %s.",
		ins.Symbol, price, flavor, strings.Join(notes, ", "), recommendation)
}

func (a *LocalAnalyst) catalysts(category model.InstrumentCategory) []string {
	switch category {
	case model.CategoryMetal:
		return []string{"US real yields", "DXY moves", "central bank gold demand"}
	case model.CategoryCurrency:
		return []string{"rate decisions", "CPI and jobs prints", "risk sentiment"}
	case model.CategoryIndex:
		return []string{"earnings season", "Fed guidance", "sector rotation"}
	default:
		return []string{"liquidity shifts", "macro headlines"}
	}
}
