package models

import (
	"time"

	"gorm.io/gorm"
)

// PriceBar is one daily OHLCV bar for a ticker. High and low are required for
// threshold detection; a bar missing either is skipped by the scanner.
type PriceBar struct {
	gorm.Model
	Ticker string    `json:"ticker" gorm:"uniqueIndex:idx_price_bars_ticker_date"`
	Date   time.Time `json:"date" gorm:"uniqueIndex:idx_price_bars_ticker_date"`
	Open   *float64  `json:"open,omitempty"`
	High   *float64  `json:"high,omitempty"`
	Low    *float64  `json:"low,omitempty"`
	Close  *float64  `json:"close,omitempty"`
	Volume *float64  `json:"volume,omitempty"`
}

// HasRange reports whether the bar carries both a high and a low.
func (b *PriceBar) HasRange() bool {
	return b.High != nil && b.Low != nil
}
