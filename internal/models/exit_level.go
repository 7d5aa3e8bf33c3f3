package models

import (
	"time"

	"gorm.io/gorm"
)

// LevelType distinguishes stop-loss levels from take-profit levels.
type LevelType string

const (
	LevelSL LevelType = "sl"
	LevelTP LevelType = "tp"
)

// LevelStatus is the lifecycle state of an exit level.
type LevelStatus string

const (
	LevelPending   LevelStatus = "pending"
	LevelHit       LevelStatus = "hit"
	LevelCancelled LevelStatus = "cancelled"
)

// ExitLevel is a single price threshold belonging to a trade. A simple trade
// carries one SL and one TP level at 100%; a layered trade splits each type
// across multiple levels whose percentages sum to 100%.
type ExitLevel struct {
	gorm.Model
	TradeID    uint        `json:"trade_id" gorm:"index"`
	LevelType  LevelType   `json:"level_type"`
	Price      float64     `json:"price"`
	UnitsPct   float64     `json:"units_pct"`
	OrderIndex int         `json:"order_index"`
	Status     LevelStatus `json:"status" gorm:"default:pending"`

	// Set only when the level is hit.
	HitDate     *time.Time `json:"hit_date,omitempty"`
	UnitsClosed *int       `json:"units_closed,omitempty"`

	// Only meaningful on TP levels: when this level fires, all pending SL
	// levels move to the trade's entry price.
	MoveSLToBreakeven bool `json:"move_sl_to_breakeven"`
}
