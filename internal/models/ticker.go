package models

import "gorm.io/gorm"

// Ticker represents a tradable stock or asset tracked by the journal.
type Ticker struct {
	gorm.Model
	Symbol     string   `json:"symbol" gorm:"uniqueIndex"`
	Name       string   `json:"name"`
	Bias       string   `json:"bias,omitempty"`    // "long", "short" or "neutral"
	Horizon    string   `json:"horizon,omitempty"` // free-form holding horizon
	Beta       string   `json:"beta,omitempty"`    // "low", "medium" or "high"
	StrategyID *uint    `json:"strategy_id,omitempty"`
	Trades     []Trade  `json:"-" gorm:"foreignKey:Ticker;references:Symbol"`
}
