package client

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourorg/market-analysis/internal/model"
)

const validPayload = `{
	"narrative": "Gold is consolidating above support.",
	"recommendation": "BUY on dips",
	"confidence": 7,
	"support_level": 2340.5,
	"resistance_level": 2365.0,
	"entry_level": 2352.0,
	"stop_loss": 2329.0,
	"take_profit": 2410.0,
	"risk_reward_ratio": "1:2.5",
	"technical_summary": "RSI neutral, MACD turning positive",
	"catalysts": ["FOMC minutes", "real yields"],
	"horizon": "1-3 days"
}`

func TestParseAnalysisPayload(t *testing.T) {
	result, err := parseAnalysisPayload(validPayload, model.BackendOpenAI)
	require.NoError(t, err)

	assert.Equal(t, "BUY on dips", result.Recommendation)
	assert.Equal(t, 7, result.Confidence)
	assert.Equal(t, 2352.0, result.EntryLevel)
	assert.Equal(t, model.BackendOpenAI, result.SourceBackend)
	assert.Len(t, result.Catalysts, 2)
}

func TestParseAnalysisPayloadStripsCodeFence(t *testing.T) {
	fenced := "```json\n" + validPayload + "\n```"
	result, err := parseAnalysisPayload(fenced, model.BackendDeepSeek)
	require.NoError(t, err)
	assert.Equal(t, model.BackendDeepSeek, result.SourceBackend)
}

func TestParseAnalysisPayloadHardFailures(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"not JSON", "the market looks bullish today"},
		{"empty object", "{}"},
		{"missing recommendation", `{"narrative": "x", "confidence": 5}`},
		{"confidence out of range", `{"narrative": "x", "recommendation": "BUY", "confidence": 14}`},
		{"confidence below range", `{"narrative": "x", "recommendation": "BUY", "confidence": 0}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parseAnalysisPayload(tt.raw, model.BackendOpenAI)
			assert.Error(t, err)
		})
	}
}

func TestProviderSymbolMapping(t *testing.T) {
	assert.Equal(t, "XAU/USD", twelveDataSymbol("XAUUSD"))
	assert.Equal(t, "SPX500", twelveDataSymbol("SPX500"))
	assert.Equal(t, "OANDA:EUR_USD", finnhubSymbol("EURUSD"))
	assert.Equal(t, "US30", finnhubSymbol("US30"))
}
