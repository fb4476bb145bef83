package app

import (
	"time"

	"botwatch/clients/notifier"
)

// Alert is the notification record kept by the alert center.
type Alert = notifier.Alert

// Position is one open position as reported by the bot.
type Position struct {
	ID         string  `json:"id"`
	Symbol     string  `json:"symbol"`
	Side       string  `json:"side"`
	Size       float64 `json:"size"`
	EntryPrice float64 `json:"entry_price"`
	MarkPrice  float64 `json:"mark_price"`
	PnL        float64 `json:"pnl"`
	PnLPercent float64 `json:"pnl_percent"`
	Leverage   int     `json:"leverage"`
	MarginUsed float64 `json:"margin_used"`
	StopLoss   float64 `json:"stop_loss,omitempty"`
	TakeProfit float64 `json:"take_profit,omitempty"`
	Timestamp  string  `json:"timestamp"`
}

// Trade is one completed trade in the bounded history.
type Trade struct {
	ID            string  `json:"id"`
	Symbol        string  `json:"symbol"`
	Side          string  `json:"side"`
	Size          float64 `json:"size"`
	EntryPrice    float64 `json:"entry_price"`
	ExitPrice     float64 `json:"exit_price"`
	PnL           float64 `json:"pnl"`
	PnLPercent    float64 `json:"pnl_percent"`
	Leverage      int     `json:"leverage"`
	Duration      int     `json:"duration"` // seconds
	Timestamp     string  `json:"timestamp"`
	ExitTimestamp string  `json:"exit_timestamp"`
	ExitReason    string  `json:"exit_reason"` // 'tp', 'sl', 'manual', 'signal'
}

// Signal is one trading signal produced by the bot.
type Signal struct {
	Symbol       string  `json:"symbol"`
	Action       string  `json:"action"` // 'buy', 'sell', 'hold'
	Confidence   float64 `json:"confidence"`
	Correlation  float64 `json:"correlation"`
	Volatility   float64 `json:"volatility"`
	ExpectedMove float64 `json:"expected_move"`
	EntryPrice   float64 `json:"entry_price"`
	StopLoss     float64 `json:"stop_loss"`
	TakeProfit   float64 `json:"take_profit"`
	Timestamp    string  `json:"timestamp"`
}

// VolatilityReading is a per-symbol volatility measurement with its display
// classification.
type VolatilityReading struct {
	Value float64 `json:"value"`
	Level string  `json:"level"`
	Color string  `json:"color"`
}

// Volatility classification thresholds (percent range of the 24h candle).
const (
	volatilityMediumFrom  = 2.0
	volatilityHighFrom    = 5.0
	volatilityExtremeFrom = 10.0
)

// VolatilityLevelFor categorizes a volatility value.
func VolatilityLevelFor(v float64) string {
	switch {
	case v < volatilityMediumFrom:
		return "Low"
	case v < volatilityHighFrom:
		return "Medium"
	case v < volatilityExtremeFrom:
		return "High"
	default:
		return "Extreme"
	}
}

// PriceReading is a per-symbol ticker snapshot.
type PriceReading struct {
	Last      float64 `json:"last"`
	Bid       float64 `json:"bid"`
	Ask       float64 `json:"ask"`
	High24h   float64 `json:"high_24h"`
	Low24h    float64 `json:"low_24h"`
	Volume24h float64 `json:"volume_24h"`
	Change24h float64 `json:"change_24h"`
	Timestamp string  `json:"timestamp"`
}

// Performance holds the bot's account and trading statistics. Updates arrive
// as partial payloads and are merged field by field; see PerformanceDelta.
type Performance struct {
	TotalPnL        float64 `json:"total_pnl"`
	DailyPnL        float64 `json:"daily_pnl"`
	WeeklyPnL       float64 `json:"weekly_pnl"`
	MonthlyPnL      float64 `json:"monthly_pnl"`
	WinRate         float64 `json:"win_rate"`
	ProfitFactor    float64 `json:"profit_factor"`
	SharpeRatio     float64 `json:"sharpe_ratio"`
	MaxDrawdown     float64 `json:"max_drawdown"`
	CurrentDrawdown float64 `json:"current_drawdown"`
	TotalTrades     int     `json:"total_trades"`
	WinningTrades   int     `json:"winning_trades"`
	LosingTrades    int     `json:"losing_trades"`
	AvgWin          float64 `json:"avg_win"`
	AvgLoss         float64 `json:"avg_loss"`
	BestTrade       float64 `json:"best_trade"`
	WorstTrade      float64 `json:"worst_trade"`
	ROI             float64 `json:"roi"`
	Balance         float64 `json:"balance"`
	Equity          float64 `json:"equity"`
	MarginUsed      float64 `json:"margin_used"`
	FreeMargin      float64 `json:"free_margin"`
	MarginLevel     float64 `json:"margin_level"`
}

// PerformanceDelta is a partial performance update. Nil fields keep their
// previous value; the bot may send any subset of keys.
type PerformanceDelta struct {
	TotalPnL        *float64 `json:"total_pnl"`
	DailyPnL        *float64 `json:"daily_pnl"`
	WeeklyPnL       *float64 `json:"weekly_pnl"`
	MonthlyPnL      *float64 `json:"monthly_pnl"`
	WinRate         *float64 `json:"win_rate"`
	ProfitFactor    *float64 `json:"profit_factor"`
	SharpeRatio     *float64 `json:"sharpe_ratio"`
	MaxDrawdown     *float64 `json:"max_drawdown"`
	CurrentDrawdown *float64 `json:"current_drawdown"`
	TotalTrades     *int     `json:"total_trades"`
	WinningTrades   *int     `json:"winning_trades"`
	LosingTrades    *int     `json:"losing_trades"`
	AvgWin          *float64 `json:"avg_win"`
	AvgLoss         *float64 `json:"avg_loss"`
	BestTrade       *float64 `json:"best_trade"`
	WorstTrade      *float64 `json:"worst_trade"`
	ROI             *float64 `json:"roi"`
	Balance         *float64 `json:"balance"`
	Equity          *float64 `json:"equity"`
	MarginUsed      *float64 `json:"margin_used"`
	FreeMargin      *float64 `json:"free_margin"`
	MarginLevel     *float64 `json:"margin_level"`
}

// DashboardUpdate is the composite snapshot pushed by the bot. Lists and maps
// replace the previous state wholesale; performance merges partially.
type DashboardUpdate struct {
	Positions   []Position                   `json:"positions"`
	Performance *PerformanceDelta            `json:"performance"`
	Volatility  map[string]VolatilityReading `json:"volatility"`
	Prices      map[string]PriceReading      `json:"prices"`
	Signals     []Signal                     `json:"signals"`
	EquityCurve []float64                    `json:"equity_curve"`
	Timestamp   time.Time                    `json:"timestamp"`
}

// PositionDelta is an incremental update to a single open position.
type PositionDelta struct {
	ID         string   `json:"id"`
	MarkPrice  *float64 `json:"mark_price"`
	PnL        *float64 `json:"pnl"`
	PnLPercent *float64 `json:"pnl_percent"`
	Size       *float64 `json:"size"`
}

// OutboundMessage is one client-to-server command frame.
type OutboundMessage struct {
	Type    string         `json:"type"`
	Stream  string         `json:"stream,omitempty"`
	Command string         `json:"command,omitempty"`
	Params  map[string]any `json:"params,omitempty"`
}

// RiskLevel classifies the account's current exposure.
type RiskLevel string

const (
	RiskLow    RiskLevel = "low"
	RiskMedium RiskLevel = "medium"
	RiskHigh   RiskLevel = "high"
)
