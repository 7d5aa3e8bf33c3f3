package main

import (
	"encoding/json"
	"net/http"

	"trade-journal-go/internal/journal"
	"trade-journal-go/internal/models"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// APIHandler holds dependencies for the API endpoints.
type APIHandler struct {
	log *zap.Logger
	db  *gorm.DB
}

// NewAPIHandler creates a new APIHandler.
func NewAPIHandler(log *zap.Logger, db *gorm.DB) *APIHandler {
	return &APIHandler{log: log, db: db}
}

// TradeView is a trade enriched with the journal's calculated fields.
type TradeView struct {
	models.Trade
	IsLong    bool    `json:"is_long"`
	RiskAbs   float64 `json:"risk_abs"`
	ProfitAbs float64 `json:"profit_abs"`
}

func newTradeView(trade models.Trade) TradeView {
	view := TradeView{Trade: trade, IsLong: journal.IsLong(&trade)}
	if sl, ok := trade.StopLoss(); ok {
		view.RiskAbs = (sl - trade.EntryPrice) * float64(trade.Units)
	}
	if tp, ok := trade.TakeProfit(); ok {
		view.ProfitAbs = (tp - trade.EntryPrice) * float64(trade.Units)
	}
	return view
}

// TradesHandler returns all journaled trades, most recent plan first.
func (h *APIHandler) TradesHandler(w http.ResponseWriter, r *http.Request) {
	var trades []models.Trade
	if err := h.db.Preload("ExitLevels").Order("date_planned desc").Find(&trades).Error; err != nil {
		h.log.Error("Failed to get trades from database", zap.Error(err))
		http.Error(w, "Failed to get trades", http.StatusInternalServerError)
		return
	}

	views := make([]TradeView, 0, len(trades))
	for _, trade := range trades {
		views = append(views, newTradeView(trade))
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(views)
}

// StatsDetail holds calculated statistics for a set of closed trades.
type StatsDetail struct {
	TotalTrades      int64   `json:"total_trades"`
	ProfitableTrades int64   `json:"profitable_trades"`
	WinRate          float64 `json:"win_rate"`
	TotalProfit      float64 `json:"total_profit"`
}

// StatsResponse is the structure for the /api/stats endpoint.
type StatsResponse struct {
	Paper StatsDetail `json:"paper"`
	Real  StatsDetail `json:"real"`
}

// StatsHandler calculates realized results over closed trades.
func (h *APIHandler) StatsHandler(w http.ResponseWriter, r *http.Request) {
	var closed []models.Trade
	if err := h.db.Where("status = ?", models.StatusClose).Find(&closed).Error; err != nil {
		h.log.Error("Failed to get trades for statistics", zap.Error(err))
		http.Error(w, "Failed to calculate statistics", http.StatusInternalServerError)
		return
	}

	var response StatsResponse
	for _, trade := range closed {
		if trade.ExitPrice == nil {
			continue
		}

		profit := (*trade.ExitPrice - trade.EntryPrice) * float64(trade.Units)
		if !journal.IsLong(&trade) {
			profit = -profit
		}

		detail := &response.Real
		if trade.PaperTrade {
			detail = &response.Paper
		}
		detail.TotalTrades++
		if profit > 0 {
			detail.ProfitableTrades++
		}
		detail.TotalProfit += profit
	}

	if response.Paper.TotalTrades > 0 {
		response.Paper.WinRate = float64(response.Paper.ProfitableTrades) / float64(response.Paper.TotalTrades)
	}
	if response.Real.TotalTrades > 0 {
		response.Real.WinRate = float64(response.Real.ProfitableTrades) / float64(response.Real.TotalTrades)
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response)
}

// TickersHandler returns all tracked tickers.
func (h *APIHandler) TickersHandler(w http.ResponseWriter, r *http.Request) {
	var tickers []models.Ticker
	if err := h.db.Order("symbol").Find(&tickers).Error; err != nil {
		h.log.Error("Failed to get tickers from database", zap.Error(err))
		http.Error(w, "Failed to get tickers", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(tickers)
}

// StrategiesHandler returns all strategies.
func (h *APIHandler) StrategiesHandler(w http.ResponseWriter, r *http.Request) {
	var strategies []models.Strategy
	if err := h.db.Order("name").Find(&strategies).Error; err != nil {
		h.log.Error("Failed to get strategies from database", zap.Error(err))
		http.Error(w, "Failed to get strategies", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(strategies)
}
