package journal

import (
	"math"
	"time"

	"trade-journal-go/internal/models"
)

// UnitsForLevel converts a level's percentage allocation into a concrete unit
// count, floored at 1 unit and capped at the trade's remaining position.
// Percentages are always computed against the original total units, not the
// shrinking remainder, so layered percentages stay stable regardless of
// processing order.
func UnitsForLevel(trade *models.Trade, level *models.ExitLevel) int {
	return unitsToClose(trade.Units, level.UnitsPct, trade.RemainingUnits)
}

func unitsToClose(totalUnits int, unitsPct float64, remainingUnits int) int {
	units := int(math.Round(float64(totalUnits) * unitsPct))
	if units < 1 {
		units = 1
	}
	if units > remainingUnits {
		units = remainingUnits
	}
	return units
}

// ApplyClose marks the level hit on the given date, closing its computed unit
// count against the trade. An optional override replaces the level's recorded
// price (manual correction). When a breakeven-flagged TP level fires, every
// still-pending SL level moves to the trade's entry price. Once remaining
// units reach zero the trade is settled and closed.
func ApplyClose(trade *models.Trade, level *models.ExitLevel, hitDate time.Time, overridePrice *float64) error {
	units := UnitsForLevel(trade, level)

	if err := markLevelHit(level, hitDate, units); err != nil {
		return err
	}
	if overridePrice != nil {
		level.Price = *overridePrice
	}

	trade.RemainingUnits -= units

	if level.MoveSLToBreakeven && level.LevelType == models.LevelTP {
		for _, sl := range trade.PendingLevels(models.LevelSL) {
			sl.Price = trade.EntryPrice
		}
	}

	if trade.RemainingUnits <= 0 {
		settle(trade)
	}
	return nil
}

// settle performs final settlement: weighted exit price across all hit
// levels, exit date from the latest hit, exit type by closed-unit majority
// (ties go to take-profit), status close, and cancellation of any levels that
// were never reached.
func settle(trade *models.Trade) {
	hitLevels := trade.HitLevels()

	var totalClosed, tpUnits, slUnits int
	var weighted float64
	var exitDate time.Time

	for _, level := range hitLevels {
		if level.UnitsClosed == nil {
			continue
		}
		closed := *level.UnitsClosed
		totalClosed += closed
		weighted += level.Price * float64(closed)
		if level.LevelType == models.LevelTP {
			tpUnits += closed
		} else {
			slUnits += closed
		}
		if level.HitDate != nil && level.HitDate.After(exitDate) {
			exitDate = *level.HitDate
		}
	}

	if totalClosed > 0 {
		exitPrice := weighted / float64(totalClosed)
		trade.ExitPrice = &exitPrice
	}
	if !exitDate.IsZero() {
		date := exitDate
		trade.ExitDate = &date
	}

	exitType := models.ExitSL
	if tpUnits >= slUnits {
		exitType = models.ExitTP
	}
	trade.ExitType = &exitType

	trade.Status = models.StatusClose
	CancelPending(trade)
}
