package journal

import (
	"fmt"
	"time"

	"trade-journal-go/internal/models"
)

// Alert is one human-readable detection finding for a trade.
type Alert struct {
	TradeID    uint      `json:"trade_id"`
	Ticker     string    `json:"ticker"`
	HitType    string    `json:"hit_type"` // "entry", "sl", "tp", "conflict"
	HitDate    time.Time `json:"hit_date"`
	HitPrice   float64   `json:"hit_price,omitempty"`
	PaperTrade bool      `json:"paper_trade"`
	AutoClosed bool      `json:"auto_closed"`
	Message    string    `json:"message"`
}

// BatchReport summarizes one detection batch.
type BatchReport struct {
	RunID         string   `json:"run_id"`
	AutoOpened    int      `json:"auto_opened"`
	AutoClosed    int      `json:"auto_closed"`
	PartialClosed int      `json:"partial_closed"`
	Conflicts     int      `json:"conflicts"`
	Alerts        []Alert  `json:"alerts"`
	Errors        []string `json:"errors,omitempty"`
}

func hitLabel(kind HitKind) string {
	if kind == HitSL {
		return "Stop Loss"
	}
	return "Take Profit"
}

func entryAlert(trade *models.Trade, hitDate time.Time, autoOpened bool) Alert {
	var message string
	if autoOpened {
		message = fmt.Sprintf("%s: entry price %.2f traded on %s. Trade auto-opened.",
			trade.Ticker, trade.EntryPrice, hitDate.Format("2006-01-02"))
	} else {
		message = fmt.Sprintf("%s: entry price %.2f traded on %s. Consider opening the trade.",
			trade.Ticker, trade.EntryPrice, hitDate.Format("2006-01-02"))
	}
	return Alert{
		TradeID:    trade.ID,
		Ticker:     trade.Ticker,
		HitType:    "entry",
		HitDate:    hitDate,
		HitPrice:   trade.EntryPrice,
		PaperTrade: trade.PaperTrade,
		Message:    message,
	}
}

func conflictAlert(trade *models.Trade, hit *SimpleHit) Alert {
	return Alert{
		TradeID:    trade.ID,
		Ticker:     trade.Ticker,
		HitType:    "conflict",
		HitDate:    hit.Date,
		PaperTrade: trade.PaperTrade,
		Message: fmt.Sprintf("%s: Both SL and TP hit on %s. Manual resolution required.",
			trade.Ticker, hit.Date.Format("2006-01-02")),
	}
}

func simpleHitAlert(trade *models.Trade, hit *SimpleHit, autoClosed bool) Alert {
	var message string
	if autoClosed {
		message = fmt.Sprintf("%s: %s hit on %s. Trade auto-closed at $%.2f.",
			trade.Ticker, hitLabel(hit.Kind), hit.Date.Format("2006-01-02"), hit.Price)
	} else {
		message = fmt.Sprintf("%s: %s hit on %s at $%.2f. Consider closing manually.",
			trade.Ticker, hitLabel(hit.Kind), hit.Date.Format("2006-01-02"), hit.Price)
	}
	return Alert{
		TradeID:    trade.ID,
		Ticker:     trade.Ticker,
		HitType:    string(hit.Kind),
		HitDate:    hit.Date,
		HitPrice:   hit.Price,
		PaperTrade: trade.PaperTrade,
		AutoClosed: autoClosed,
		Message:    message,
	}
}

func levelHitAlert(trade *models.Trade, hit LevelHit, applied bool) Alert {
	kind := HitTP
	if hit.Level.LevelType == models.LevelSL {
		kind = HitSL
	}
	var message string
	if applied {
		message = fmt.Sprintf("%s: %s level %d hit on %s at $%.2f, closed %d units.",
			trade.Ticker, hitLabel(kind), hit.Level.OrderIndex, hit.Date.Format("2006-01-02"), hit.Level.Price, hit.Units)
	} else {
		message = fmt.Sprintf("%s: %s level %d hit on %s at $%.2f would close %d units. Consider closing manually.",
			trade.Ticker, hitLabel(kind), hit.Level.OrderIndex, hit.Date.Format("2006-01-02"), hit.Level.Price, hit.Units)
	}
	return Alert{
		TradeID:    trade.ID,
		Ticker:     trade.Ticker,
		HitType:    string(kind),
		HitDate:    hit.Date,
		HitPrice:   hit.Level.Price,
		PaperTrade: trade.PaperTrade,
		AutoClosed: applied,
		Message:    message,
	}
}
