package models

import (
	"time"

	"gorm.io/gorm"
)

// TradeStatus is the lifecycle state of a trade.
type TradeStatus string

const (
	StatusPlan  TradeStatus = "plan"
	StatusOpen  TradeStatus = "open"
	StatusClose TradeStatus = "close"
)

// ExitType records whether a trade (or level) exited via stop-loss or take-profit.
type ExitType string

const (
	ExitSL ExitType = "sl"
	ExitTP ExitType = "tp"
)

// Trade represents a journaled trading operation. A trade starts as a plan,
// is opened when its entry price trades, and is closed by its exit levels.
// Direction (long/short) is never stored; it is derived from the stop-loss
// price relative to the entry price.
type Trade struct {
	gorm.Model
	Ticker         string      `json:"ticker"`
	Status         TradeStatus `json:"status" gorm:"default:plan"`
	Amount         float64     `json:"amount"`
	Units          int         `json:"units"`
	RemainingUnits int         `json:"remaining_units"`

	// Entry
	EntryPrice  float64    `json:"entry_price"`
	DatePlanned time.Time  `json:"date_planned"`
	DateActual  *time.Time `json:"date_actual,omitempty"`

	// Exit
	ExitDate  *time.Time `json:"exit_date,omitempty"`
	ExitType  *ExitType  `json:"exit_type,omitempty"`
	ExitPrice *float64   `json:"exit_price,omitempty"`

	PaperTrade bool `json:"paper_trade"`
	IsLayered  bool `json:"is_layered"`

	StrategyID *uint `json:"strategy_id,omitempty"`
	UserID     uint  `json:"user_id"`

	ExitLevels []ExitLevel `json:"exit_levels" gorm:"constraint:OnDelete:CASCADE"`
}

// LevelsOfType returns the trade's exit levels of the given type, in slice order.
func (t *Trade) LevelsOfType(levelType LevelType) []*ExitLevel {
	var out []*ExitLevel
	for i := range t.ExitLevels {
		if t.ExitLevels[i].LevelType == levelType {
			out = append(out, &t.ExitLevels[i])
		}
	}
	return out
}

// PendingLevels returns the trade's pending exit levels, optionally filtered
// by type. Pass an empty LevelType for all pending levels.
func (t *Trade) PendingLevels(levelType LevelType) []*ExitLevel {
	var out []*ExitLevel
	for i := range t.ExitLevels {
		l := &t.ExitLevels[i]
		if l.Status != LevelPending {
			continue
		}
		if levelType != "" && l.LevelType != levelType {
			continue
		}
		out = append(out, l)
	}
	return out
}

// HitLevels returns the trade's hit exit levels.
func (t *Trade) HitLevels() []*ExitLevel {
	var out []*ExitLevel
	for i := range t.ExitLevels {
		if t.ExitLevels[i].Status == LevelHit {
			out = append(out, &t.ExitLevels[i])
		}
	}
	return out
}

// FindLevel returns the exit level with the given id, or nil.
func (t *Trade) FindLevel(levelID uint) *ExitLevel {
	for i := range t.ExitLevels {
		if t.ExitLevels[i].ID == levelID {
			return &t.ExitLevels[i]
		}
	}
	return nil
}

// StopLoss returns the price of the first stop-loss level, hit or pending.
// For a simple trade this is the trade's single stop-loss price.
func (t *Trade) StopLoss() (float64, bool) {
	best := (*ExitLevel)(nil)
	for i := range t.ExitLevels {
		l := &t.ExitLevels[i]
		if l.LevelType != LevelSL || l.Status == LevelCancelled {
			continue
		}
		if best == nil || l.OrderIndex < best.OrderIndex {
			best = l
		}
	}
	if best == nil {
		return 0, false
	}
	return best.Price, true
}

// TakeProfit returns the price of the first take-profit level, hit or pending.
func (t *Trade) TakeProfit() (float64, bool) {
	best := (*ExitLevel)(nil)
	for i := range t.ExitLevels {
		l := &t.ExitLevels[i]
		if l.LevelType != LevelTP || l.Status == LevelCancelled {
			continue
		}
		if best == nil || l.OrderIndex < best.OrderIndex {
			best = l
		}
	}
	if best == nil {
		return 0, false
	}
	return best.Price, true
}
