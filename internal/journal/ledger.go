package journal

import (
	"math"
	"time"

	"trade-journal-go/internal/models"
)

// pctTolerance is the floating tolerance when checking that a level type's
// percentages sum to 100%.
const pctTolerance = 0.001

// LevelSpec describes one exit level to create on a trade.
type LevelSpec struct {
	LevelType         models.LevelType `json:"level_type"`
	Price             float64          `json:"price"`
	UnitsPct          float64          `json:"units_pct"`
	MoveSLToBreakeven bool             `json:"move_sl_to_breakeven"`
}

// SimpleLevelSpecs builds the standard two-level set for a non-layered trade:
// one stop-loss and one take-profit, each closing 100% of the position.
func SimpleLevelSpecs(stopLoss, takeProfit float64) []LevelSpec {
	return []LevelSpec{
		{LevelType: models.LevelSL, Price: stopLoss, UnitsPct: 1.0},
		{LevelType: models.LevelTP, Price: takeProfit, UnitsPct: 1.0},
	}
}

// CreateLevels validates the given specs and attaches them to the trade as
// pending exit levels. For each level type present, the percentages must sum
// to 100% within tolerance. Order indexes are assigned per type, in input
// order, starting at 1.
func CreateLevels(trade *models.Trade, specs []LevelSpec) ([]*models.ExitLevel, error) {
	if err := validatePercentages(specs); err != nil {
		return nil, err
	}

	tpIndex := 0
	slIndex := 0
	start := len(trade.ExitLevels)

	for _, spec := range specs {
		var orderIndex int
		if spec.LevelType == models.LevelTP {
			tpIndex++
			orderIndex = tpIndex
		} else {
			slIndex++
			orderIndex = slIndex
		}

		trade.ExitLevels = append(trade.ExitLevels, models.ExitLevel{
			TradeID:           trade.ID,
			LevelType:         spec.LevelType,
			Price:             spec.Price,
			UnitsPct:          spec.UnitsPct,
			OrderIndex:        orderIndex,
			Status:            models.LevelPending,
			MoveSLToBreakeven: spec.MoveSLToBreakeven,
		})
	}

	created := make([]*models.ExitLevel, 0, len(specs))
	for i := start; i < len(trade.ExitLevels); i++ {
		created = append(created, &trade.ExitLevels[i])
	}
	return created, nil
}

func validatePercentages(specs []LevelSpec) error {
	var tpSum, slSum float64
	var hasTP, hasSL bool

	for _, spec := range specs {
		if spec.LevelType == models.LevelTP {
			tpSum += spec.UnitsPct
			hasTP = true
		} else {
			slSum += spec.UnitsPct
			hasSL = true
		}
	}

	if hasTP && math.Abs(tpSum-1.0) > pctTolerance {
		return validationErrorf("take profit levels must sum to 100%%, got %.1f%%", tpSum*100)
	}
	if hasSL && math.Abs(slSum-1.0) > pctTolerance {
		return validationErrorf("stop loss levels must sum to 100%%, got %.1f%%", slSum*100)
	}
	return nil
}

// MarkHit transitions a pending level to hit, recording the hit date and the
// number of units it closed.
func MarkHit(trade *models.Trade, levelID uint, hitDate time.Time, unitsClosed int) (*models.ExitLevel, error) {
	level := trade.FindLevel(levelID)
	if level == nil {
		return nil, validationErrorf("exit level with id %d not found on trade %d", levelID, trade.ID)
	}
	if err := markLevelHit(level, hitDate, unitsClosed); err != nil {
		return nil, err
	}
	return level, nil
}

func markLevelHit(level *models.ExitLevel, hitDate time.Time, unitsClosed int) error {
	switch level.Status {
	case models.LevelHit:
		return validationErrorf("exit level %d is already hit", level.ID)
	case models.LevelCancelled:
		return validationErrorf("exit level %d is cancelled", level.ID)
	}

	date := hitDate
	units := unitsClosed
	level.Status = models.LevelHit
	level.HitDate = &date
	level.UnitsClosed = &units
	return nil
}

// RevertHit resets a hit level back to pending and restores the units it had
// closed to the trade. Only legal while the owning trade is still open.
func RevertHit(trade *models.Trade, levelID uint) error {
	level := trade.FindLevel(levelID)
	if level == nil {
		return validationErrorf("exit level with id %d not found on trade %d", levelID, trade.ID)
	}
	if level.Status != models.LevelHit {
		return validationErrorf("cannot revert level %d: status is '%s', expected 'hit'", level.ID, level.Status)
	}
	if trade.Status != models.StatusOpen {
		return validationErrorf("cannot revert level on trade %d: trade status is '%s', expected 'open'", trade.ID, trade.Status)
	}

	if level.UnitsClosed != nil {
		trade.RemainingUnits += *level.UnitsClosed
	}
	level.Status = models.LevelPending
	level.HitDate = nil
	level.UnitsClosed = nil
	return nil
}

// CancelPending transitions every pending level on the trade to cancelled.
// Used when a trade fully closes and levels remain unprocessed.
func CancelPending(trade *models.Trade) []*models.ExitLevel {
	cancelled := trade.PendingLevels("")
	for _, level := range cancelled {
		level.Status = models.LevelCancelled
	}
	return cancelled
}

// ReplaceLevels removes the trade's pending levels (hit levels are preserved
// for audit history) and creates the given specs in their place. Passing an
// empty spec list removes layered mode. The removed pending levels are
// returned so the caller can delete their stored rows; the boolean reports
// whether the trade is layered afterwards (more than a single SL+TP pair).
func ReplaceLevels(trade *models.Trade, specs []LevelSpec) (created, removed []*models.ExitLevel, layered bool, err error) {
	if len(specs) > 0 {
		if err := validatePercentages(specs); err != nil {
			return nil, nil, trade.IsLayered, err
		}
	}

	kept := trade.ExitLevels[:0:0]
	for i := range trade.ExitLevels {
		level := trade.ExitLevels[i]
		if level.Status == models.LevelPending {
			removedCopy := level
			removed = append(removed, &removedCopy)
			continue
		}
		kept = append(kept, level)
	}
	trade.ExitLevels = kept

	if len(specs) > 0 {
		created, err = CreateLevels(trade, specs)
		if err != nil {
			return nil, removed, trade.IsLayered, err
		}
	}

	remaining := 0
	for i := range trade.ExitLevels {
		if trade.ExitLevels[i].Status != models.LevelCancelled {
			remaining++
		}
	}
	layered = remaining > 2
	trade.IsLayered = layered
	return created, removed, layered, nil
}
