package journal

import (
	"sort"
	"time"

	"trade-journal-go/internal/models"
)

// IsLong reports whether the trade is a long position. Direction is derived,
// never stored: a stop-loss below the entry price protects against a drop
// (long), a stop-loss above it protects against a rise (short). A trade with
// only take-profit levels falls back to the symmetric rule on its first TP.
func IsLong(trade *models.Trade) bool {
	if sl, ok := trade.StopLoss(); ok {
		return sl < trade.EntryPrice
	}
	if tp, ok := trade.TakeProfit(); ok {
		return tp > trade.EntryPrice
	}
	return true
}

// FindEntryHit scans bars in ascending date order for the first bar on which
// the trade's entry price traded: for a long the bar's low reaching down to
// the entry, for a short the bar's high reaching up to it. Bars before the
// planned date or missing a high/low are skipped. Returns the hit date, or
// false when the entry has not traded yet.
func FindEntryHit(trade *models.Trade, bars []models.PriceBar) (time.Time, bool) {
	long := IsLong(trade)

	for i := range bars {
		bar := &bars[i]
		if !bar.HasRange() || bar.Date.Before(trade.DatePlanned) {
			continue
		}
		if long && *bar.Low <= trade.EntryPrice {
			return bar.Date, true
		}
		if !long && *bar.High >= trade.EntryPrice {
			return bar.Date, true
		}
	}
	return time.Time{}, false
}

// HitKind classifies the outcome of a simple SL/TP bar check.
type HitKind string

const (
	HitSL HitKind = "sl"
	HitTP HitKind = "tp"

	// HitBoth means SL and TP both traded within the same bar. Intrabar
	// ordering is unknowable from daily data, so no exit price can be
	// determined and the trade requires manual resolution.
	HitBoth HitKind = "both"
)

// SimpleHit is the first SL/TP threshold crossing found for a non-layered
// trade. Price is zero when Kind is HitBoth.
type SimpleHit struct {
	Kind  HitKind
	Date  time.Time
	Price float64
}

// Conflict reports whether the hit is ambiguous and must not auto-close.
func (h *SimpleHit) Conflict() bool {
	return h.Kind == HitBoth
}

// checkSimpleBar evaluates one bar against the trade's stop-loss and
// take-profit prices under the directional rule.
func checkSimpleBar(bar *models.PriceBar, long bool, slPrice, tpPrice float64, hasSL, hasTP bool) (HitKind, bool) {
	var slHit, tpHit bool
	if long {
		slHit = hasSL && *bar.Low <= slPrice
		tpHit = hasTP && *bar.High >= tpPrice
	} else {
		slHit = hasSL && *bar.High >= slPrice
		tpHit = hasTP && *bar.Low <= tpPrice
	}

	switch {
	case slHit && tpHit:
		return HitBoth, true
	case slHit:
		return HitSL, true
	case tpHit:
		return HitTP, true
	}
	return "", false
}

// FindSimpleHit scans bars from the trade's actual open date for the first
// SL or TP crossing on a non-layered trade. Returns nil when no threshold has
// traded. A same-bar SL+TP crossing is returned as a conflict.
func FindSimpleHit(trade *models.Trade, bars []models.PriceBar) *SimpleHit {
	if trade.Status != models.StatusOpen || trade.DateActual == nil {
		return nil
	}

	long := IsLong(trade)
	slPrice, hasSL := trade.StopLoss()
	tpPrice, hasTP := trade.TakeProfit()

	for i := range bars {
		bar := &bars[i]
		if !bar.HasRange() || bar.Date.Before(*trade.DateActual) {
			continue
		}

		kind, ok := checkSimpleBar(bar, long, slPrice, tpPrice, hasSL, hasTP)
		if !ok {
			continue
		}

		hit := &SimpleHit{Kind: kind, Date: bar.Date}
		switch kind {
		case HitSL:
			hit.Price = slPrice
		case HitTP:
			hit.Price = tpPrice
		}
		return hit
	}
	return nil
}

// LevelHit is one detected crossing of a pending exit level. Units is the
// unit count the level would close given the running remainder at detection
// time.
type LevelHit struct {
	Level *models.ExitLevel
	Date  time.Time
	Units int
}

// FindLayeredHits scans bars from the trade's actual open date and returns
// every pending-level crossing, in the order it would be applied: bars in
// ascending date order, and within a bar levels in ascending
// (level type, order index) order. The pass is side-effect free — it mutates
// neither the trade nor its levels — so detection stays idempotent and can be
// re-run against unchanged history without producing new work. Scanning stops
// once the running remainder reaches zero.
func FindLayeredHits(trade *models.Trade, bars []models.PriceBar) []LevelHit {
	if trade.Status != models.StatusOpen || trade.DateActual == nil {
		return nil
	}

	pending := trade.PendingLevels("")
	sort.SliceStable(pending, func(i, j int) bool {
		if pending[i].LevelType != pending[j].LevelType {
			return pending[i].LevelType < pending[j].LevelType
		}
		return pending[i].OrderIndex < pending[j].OrderIndex
	})

	long := IsLong(trade)
	remaining := trade.RemainingUnits
	taken := make([]bool, len(pending))

	var hits []LevelHit
	for i := range bars {
		if remaining <= 0 {
			break
		}
		bar := &bars[i]
		if !bar.HasRange() || bar.Date.Before(*trade.DateActual) {
			continue
		}

		for pos, level := range pending {
			if remaining <= 0 {
				break
			}
			if taken[pos] || !levelTraded(bar, long, level) {
				continue
			}

			units := unitsToClose(trade.Units, level.UnitsPct, remaining)
			hits = append(hits, LevelHit{Level: level, Date: bar.Date, Units: units})
			remaining -= units
			taken[pos] = true
		}
	}
	return hits
}

// levelTraded applies the directional high/low rule for the level's own type.
func levelTraded(bar *models.PriceBar, long bool, level *models.ExitLevel) bool {
	if long {
		if level.LevelType == models.LevelSL {
			return *bar.Low <= level.Price
		}
		return *bar.High >= level.Price
	}
	if level.LevelType == models.LevelSL {
		return *bar.High >= level.Price
	}
	return *bar.Low <= level.Price
}

// ApplyLayeredHits applies a detection pass's candidates in order. Unit
// counts are recomputed against the live trade as each close lands, which
// yields the same totals as the detection pass because the order is
// identical.
func ApplyLayeredHits(trade *models.Trade, hits []LevelHit) error {
	for _, hit := range hits {
		if err := ApplyClose(trade, hit.Level, hit.Date, nil); err != nil {
			return err
		}
		if trade.Status == models.StatusClose {
			break
		}
	}
	return nil
}
