package model

// InstrumentCategory groups symbols that share analysis heuristics
// and presentation rules.
type InstrumentCategory string

const (
	CategoryMetal    InstrumentCategory = "metal"
	CategoryCurrency InstrumentCategory = "currency"
	CategoryCrypto   InstrumentCategory = "crypto"
	CategoryIndex    InstrumentCategory = "index"
)

// Instrument describes one tradable symbol from the fixed instrument set.
type Instrument struct {
	Symbol    string             `json:"symbol"`
	Name      string             `json:"name"`
	Category  InstrumentCategory `json:"category"`
	Precision int32              `json:"precision"`

	// Baseline and Volatility calibrate the synthetic fallback generator.
	// Placeholder calibration, replaceable without touching any consumer.
	Baseline   float64 `json:"-"`
	Volatility float64 `json:"-"`
}

// Instruments is the fixed set of symbols the service trades in, in
// display order.
var Instruments = []Instrument{
	{Symbol: "XAUUSD", Name: "Gold / US Dollar", Category: CategoryMetal, Precision: 2, Baseline: 2350.00, Volatility: 0.0012},
	{Symbol: "XAGUSD", Name: "Silver / US Dollar", Category: CategoryMetal, Precision: 2, Baseline: 28.40, Volatility: 0.0018},
	{Symbol: "EURUSD", Name: "Euro / US Dollar", Category: CategoryCurrency, Precision: 4, Baseline: 1.0850, Volatility: 0.0004},
	{Symbol: "GBPUSD", Name: "British Pound / US Dollar", Category: CategoryCurrency, Precision: 4, Baseline: 1.2700, Volatility: 0.0005},
	{Symbol: "USDJPY", Name: "US Dollar / Japanese Yen", Category: CategoryCurrency, Precision: 2, Baseline: 155.20, Volatility: 0.0005},
	{Symbol: "AUDUSD", Name: "Australian Dollar / US Dollar", Category: CategoryCurrency, Precision: 4, Baseline: 0.6650, Volatility: 0.0006},
	{Symbol: "USDCHF", Name: "US Dollar / Swiss Franc", Category: CategoryCurrency, Precision: 4, Baseline: 0.9050, Volatility: 0.0004},
	{Symbol: "BTCUSD", Name: "Bitcoin / US Dollar", Category: CategoryCrypto, Precision: 2, Baseline: 67500.00, Volatility: 0.0040},
	{Symbol: "US30", Name: "Dow Jones Industrial Average", Category: CategoryIndex, Precision: 2, Baseline: 39500.00, Volatility: 0.0010},
	{Symbol: "SPX500", Name: "S&P 500 Index", Category: CategoryIndex, Precision: 2, Baseline: 5300.00, Volatility: 0.0010},
}

var instrumentsBySymbol = func() map[string]Instrument {
	m := make(map[string]Instrument, len(Instruments))
	for _, ins := range Instruments {
		m[ins.Symbol] = ins
	}
	return m
}()

// LookupInstrument returns the instrument for a symbol, or false when the
// symbol is not part of the fixed set.
func LookupInstrument(symbol string) (Instrument, bool) {
	ins, ok := instrumentsBySymbol[symbol]
	return ins, ok
}

// AllSymbols returns the symbols of the fixed instrument set in display order.
func AllSymbols() []string {
	symbols := make([]string, len(Instruments))
	for i, ins := range Instruments {
		symbols[i] = ins.Symbol
	}
	return symbols
}
