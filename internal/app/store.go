package app

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

const tradeHistoryCapacity = 1000

// Store holds the latest known state of the trading bot. Composite updates
// replace lists and maps wholesale; performance merges field by field so the
// bot can push sparse payloads.
type Store struct {
	logger *zap.Logger

	mu          sync.RWMutex
	positions   []Position
	performance Performance
	volatility  map[string]VolatilityReading
	prices      map[string]PriceReading
	signals     []Signal
	equityCurve []float64
	trades      *ring[Trade]
	lastUpdate  time.Time
}

func NewStore(logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{
		logger:      logger,
		volatility:  make(map[string]VolatilityReading),
		prices:      make(map[string]PriceReading),
		trades:      newRing[Trade](tradeHistoryCapacity),
		performance: Performance{MarginLevel: 100},
	}
}

// ApplyUpdate merges a composite snapshot into the store. Absent sections
// leave the previous state untouched.
func (s *Store) ApplyUpdate(u DashboardUpdate) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if u.Positions != nil {
		s.positions = u.Positions
	}
	if u.Volatility != nil {
		s.volatility = u.Volatility
	}
	if u.Prices != nil {
		s.prices = u.Prices
	}
	if u.Signals != nil {
		s.signals = u.Signals
	}
	if u.EquityCurve != nil {
		s.equityCurve = u.EquityCurve
	}
	if u.Performance != nil {
		s.mergePerformance(u.Performance)
	}
	if !u.Timestamp.IsZero() {
		s.lastUpdate = u.Timestamp
	} else {
		s.lastUpdate = time.Now()
	}
}

func (s *Store) mergePerformance(d *PerformanceDelta) {
	p := &s.performance
	setF := func(dst *float64, src *float64) {
		if src != nil {
			*dst = *src
		}
	}
	setI := func(dst *int, src *int) {
		if src != nil {
			*dst = *src
		}
	}
	setF(&p.TotalPnL, d.TotalPnL)
	setF(&p.DailyPnL, d.DailyPnL)
	setF(&p.WeeklyPnL, d.WeeklyPnL)
	setF(&p.MonthlyPnL, d.MonthlyPnL)
	setF(&p.WinRate, d.WinRate)
	setF(&p.ProfitFactor, d.ProfitFactor)
	setF(&p.SharpeRatio, d.SharpeRatio)
	setF(&p.MaxDrawdown, d.MaxDrawdown)
	setF(&p.CurrentDrawdown, d.CurrentDrawdown)
	setI(&p.TotalTrades, d.TotalTrades)
	setI(&p.WinningTrades, d.WinningTrades)
	setI(&p.LosingTrades, d.LosingTrades)
	setF(&p.AvgWin, d.AvgWin)
	setF(&p.AvgLoss, d.AvgLoss)
	setF(&p.BestTrade, d.BestTrade)
	setF(&p.WorstTrade, d.WorstTrade)
	setF(&p.ROI, d.ROI)
	setF(&p.Balance, d.Balance)
	setF(&p.Equity, d.Equity)
	setF(&p.MarginUsed, d.MarginUsed)
	setF(&p.FreeMargin, d.FreeMargin)
	setF(&p.MarginLevel, d.MarginLevel)
}

// ApplyPositionDelta patches one open position in place. Unknown IDs are
// logged and ignored.
func (s *Store) ApplyPositionDelta(d PositionDelta) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.positions {
		if s.positions[i].ID != d.ID {
			continue
		}
		p := &s.positions[i]
		if d.MarkPrice != nil {
			p.MarkPrice = *d.MarkPrice
		}
		if d.PnL != nil {
			p.PnL = *d.PnL
		}
		if d.PnLPercent != nil {
			p.PnLPercent = *d.PnLPercent
		}
		if d.Size != nil {
			p.Size = *d.Size
		}
		s.lastUpdate = time.Now()
		return
	}
	s.logger.Debug("position delta for unknown position", zap.String("id", d.ID))
}

// AppendTrade records a completed trade, evicting the oldest once the
// history is full.
func (s *Store) AppendTrade(t Trade) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.trades.push(t)
}

func (s *Store) Positions() []Position {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Position, len(s.positions))
	copy(out, s.positions)
	return out
}

func (s *Store) Performance() Performance {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.performance
}

func (s *Store) Volatility() map[string]VolatilityReading {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]VolatilityReading, len(s.volatility))
	for k, v := range s.volatility {
		out[k] = v
	}
	return out
}

func (s *Store) Prices() map[string]PriceReading {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]PriceReading, len(s.prices))
	for k, v := range s.prices {
		out[k] = v
	}
	return out
}

func (s *Store) Signals() []Signal {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Signal, len(s.signals))
	copy(out, s.signals)
	return out
}

func (s *Store) EquityCurve() []float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]float64, len(s.equityCurve))
	copy(out, s.equityCurve)
	return out
}

// Trades returns up to limit completed trades, newest first. limit <= 0
// returns the full history.
func (s *Store) Trades(limit int) []Trade {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.trades.newestFirst(limit)
}

func (s *Store) TradeCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.trades.len()
}

func (s *Store) LastUpdate() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastUpdate
}

// TotalUnrealizedPnL sums the pnl of all open positions.
func (s *Store) TotalUnrealizedPnL() float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var total float64
	for i := range s.positions {
		total += s.positions[i].PnL
	}
	return total
}

// PortfolioHeat is the share of margin in use, as a percentage. Zero when
// no margin figures are known yet.
func (s *Store) PortfolioHeat() float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	denom := s.performance.MarginUsed + s.performance.FreeMargin
	if denom <= 0 {
		return 0
	}
	return s.performance.MarginUsed / denom * 100
}

// Risk thresholds for margin level (percent) and drawdown (percent).
const (
	marginLevelHighBelow   = 150.0
	marginLevelMediumBelow = 300.0
	drawdownHighAbove      = 15.0
	drawdownMediumAbove    = 10.0
)

// Risk classifies the account's exposure from margin level and drawdown.
func (s *Store) Risk() RiskLevel {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p := s.performance
	switch {
	case p.MarginLevel < marginLevelHighBelow || p.CurrentDrawdown > drawdownHighAbove:
		return RiskHigh
	case p.MarginLevel < marginLevelMediumBelow || p.CurrentDrawdown > drawdownMediumAbove:
		return RiskMedium
	default:
		return RiskLow
	}
}
