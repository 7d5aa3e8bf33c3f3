package journal

import (
	"time"

	"trade-journal-go/internal/models"
)

// TradePlan carries everything needed to journal a new trade. When Levels is
// empty, a standard 100% SL+TP pair is created from StopLoss/TakeProfit.
type TradePlan struct {
	Ticker      string
	EntryPrice  float64
	StopLoss    float64
	TakeProfit  float64
	Units       int
	DatePlanned time.Time
	Levels      []LevelSpec
	StrategyID  *uint
	UserID      uint
	PaperTrade  bool
}

// NewTrade creates a trade in plan status with its full exit-level set.
func NewTrade(plan TradePlan) (*models.Trade, error) {
	trade := &models.Trade{
		Ticker:         plan.Ticker,
		Status:         models.StatusPlan,
		Amount:         plan.EntryPrice * float64(plan.Units),
		Units:          plan.Units,
		RemainingUnits: plan.Units,
		EntryPrice:     plan.EntryPrice,
		DatePlanned:    plan.DatePlanned,
		PaperTrade:     plan.PaperTrade,
		StrategyID:     plan.StrategyID,
		UserID:         plan.UserID,
	}

	specs := plan.Levels
	if len(specs) == 0 {
		specs = SimpleLevelSpecs(plan.StopLoss, plan.TakeProfit)
	}
	if _, err := CreateLevels(trade, specs); err != nil {
		return nil, err
	}
	trade.IsLayered = len(trade.ExitLevels) > 2
	return trade, nil
}

// TradeUpdate enumerates the trade fields a manual update may change. Nil
// means "leave unchanged"; a non-nil pointer carries the new value.
type TradeUpdate struct {
	Status      *models.TradeStatus
	EntryPrice  *float64
	Units       *int
	DatePlanned *time.Time
	DateActual  *time.Time
	ExitDate    *time.Time
	ExitType    *models.ExitType
	ExitPrice   *float64
	StrategyID  *uint
	PaperTrade  *bool
}

// ApplyUpdate applies a manual update to the trade, enforcing the lifecycle:
// plan → open → close, no transition out of close, no skipping open. Opening
// defaults the actual date to now; closing requires an exit price and type
// (from the update or already on the trade), defaults the exit date to now,
// and cancels any levels still pending.
func ApplyUpdate(trade *models.Trade, update TradeUpdate, now time.Time) error {
	if update.Status != nil {
		if err := applyTransition(trade, update, now); err != nil {
			return err
		}
	}

	if update.EntryPrice != nil {
		trade.EntryPrice = *update.EntryPrice
	}
	if update.Units != nil {
		closed := trade.Units - trade.RemainingUnits
		trade.Units = *update.Units
		trade.RemainingUnits = *update.Units - closed
	}
	if update.DatePlanned != nil {
		trade.DatePlanned = *update.DatePlanned
	}
	if update.DateActual != nil {
		trade.DateActual = update.DateActual
	}
	if update.ExitDate != nil {
		trade.ExitDate = update.ExitDate
	}
	if update.ExitType != nil {
		trade.ExitType = update.ExitType
	}
	if update.ExitPrice != nil {
		trade.ExitPrice = update.ExitPrice
	}
	if update.StrategyID != nil {
		trade.StrategyID = update.StrategyID
	}
	if update.PaperTrade != nil {
		trade.PaperTrade = *update.PaperTrade
	}

	if update.EntryPrice != nil || update.Units != nil {
		trade.Amount = trade.EntryPrice * float64(trade.Units)
	}
	return nil
}

func applyTransition(trade *models.Trade, update TradeUpdate, now time.Time) error {
	current := trade.Status
	next := *update.Status

	switch {
	case current == models.StatusClose:
		return validationErrorf("cannot change status of a closed trade")

	case current == models.StatusPlan && next == models.StatusClose:
		return validationErrorf("cannot close a trade that is not open, open it first")

	case current == models.StatusPlan && next == models.StatusOpen:
		trade.Status = models.StatusOpen
		if update.DateActual == nil {
			date := now
			trade.DateActual = &date
		}

	case current == models.StatusOpen && next == models.StatusClose:
		exitPrice := trade.ExitPrice
		if update.ExitPrice != nil {
			exitPrice = update.ExitPrice
		}
		exitType := trade.ExitType
		if update.ExitType != nil {
			exitType = update.ExitType
		}
		if exitPrice == nil {
			return validationErrorf("exit_price is required when closing a trade")
		}
		if exitType == nil {
			return validationErrorf("exit_type is required when closing a trade")
		}

		trade.Status = models.StatusClose
		if update.ExitDate == nil && trade.ExitDate == nil {
			date := now
			trade.ExitDate = &date
		}
		CancelPending(trade)

	case next == current:
		// No-op transition.

	default:
		return validationErrorf("illegal status transition from '%s' to '%s'", current, next)
	}
	return nil
}

// OpenAtEntry transitions a plan trade to open at the detected entry hit
// date. Used by the engine when a paper trade's entry price trades.
func OpenAtEntry(trade *models.Trade, hitDate time.Time) error {
	if trade.Status != models.StatusPlan {
		return validationErrorf("cannot open trade %d: status is '%s', expected 'plan'", trade.ID, trade.Status)
	}
	date := hitDate
	trade.Status = models.StatusOpen
	trade.DateActual = &date
	return nil
}
