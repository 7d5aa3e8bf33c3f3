package journal

import (
	"testing"

	"trade-journal-go/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func bar(n int, high, low float64) models.PriceBar {
	h, l := high, low
	return models.PriceBar{Ticker: "ASML", Date: day(n), High: &h, Low: &l}
}

func blindBar(n int) models.PriceBar {
	return models.PriceBar{Ticker: "ASML", Date: day(n)}
}

func TestIsLong(t *testing.T) {
	long := newSimpleTrade(t, 100, 95, 110)
	assert.True(t, IsLong(long))

	short := newSimpleTrade(t, 100, 105, 90)
	assert.False(t, IsLong(short))

	t.Run("FallsBackToTakeProfitWhenNoStop", func(t *testing.T) {
		trade := &models.Trade{EntryPrice: 100, Units: 10, RemainingUnits: 10}
		_, err := CreateLevels(trade, []LevelSpec{
			{LevelType: models.LevelTP, Price: 90, UnitsPct: 1.0},
		})
		require.NoError(t, err)
		assert.False(t, IsLong(trade))
	})
}

func TestFindEntryHit(t *testing.T) {
	testCases := []struct {
		name        string
		stopLoss    float64
		takeProfit  float64
		bars        []models.PriceBar
		expectHit   bool
		expectedDay int
	}{
		{
			name:     "Long entry on first touch of the low",
			stopLoss: 95, takeProfit: 110,
			bars:      []models.PriceBar{bar(2, 108, 103), bar(3, 106, 99), bar(4, 104, 98)},
			expectHit: true, expectedDay: 3,
		},
		{
			name:     "Short entry on first touch of the high",
			stopLoss: 105, takeProfit: 90,
			bars:      []models.PriceBar{bar(2, 98, 94), bar(3, 101, 96)},
			expectHit: true, expectedDay: 3,
		},
		{
			name:     "No hit while price stays away",
			stopLoss: 95, takeProfit: 110,
			bars:      []models.PriceBar{bar(2, 108, 103), bar(3, 109, 104)},
			expectHit: false,
		},
		{
			name:     "Bars without a range are skipped",
			stopLoss: 95, takeProfit: 110,
			bars:      []models.PriceBar{blindBar(2), bar(3, 105, 99)},
			expectHit: true, expectedDay: 3,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			trade := newSimpleTrade(t, 100, tc.stopLoss, tc.takeProfit)
			trade.Status = models.StatusPlan
			trade.DateActual = nil

			hitDate, ok := FindEntryHit(trade, tc.bars)

			assert.Equal(t, tc.expectHit, ok)
			if tc.expectHit {
				assert.Equal(t, day(tc.expectedDay), hitDate)
			}
		})
	}

	t.Run("IgnoresBarsBeforePlannedDate", func(t *testing.T) {
		trade := newSimpleTrade(t, 100, 95, 110)
		trade.Status = models.StatusPlan
		trade.DateActual = nil
		trade.DatePlanned = day(5)

		_, ok := FindEntryHit(trade, []models.PriceBar{bar(2, 105, 99)})
		assert.False(t, ok)
	})
}

func TestFindSimpleHit(t *testing.T) {
	testCases := []struct {
		name          string
		stopLoss      float64
		takeProfit    float64
		bars          []models.PriceBar
		expectNil     bool
		expectedKind  HitKind
		expectedDay   int
		expectedPrice float64
	}{
		{
			name:     "Long stop loss on the low",
			stopLoss: 95, takeProfit: 110,
			bars:         []models.PriceBar{bar(2, 102, 97), bar(3, 99, 94)},
			expectedKind: HitSL, expectedDay: 3, expectedPrice: 95,
		},
		{
			name:     "Long take profit on the high",
			stopLoss: 95, takeProfit: 110,
			bars:         []models.PriceBar{bar(2, 104, 99), bar(3, 112, 99)},
			expectedKind: HitTP, expectedDay: 3, expectedPrice: 110,
		},
		{
			name:     "Short stop loss on the high",
			stopLoss: 105, takeProfit: 90,
			bars:         []models.PriceBar{bar(2, 106, 97)},
			expectedKind: HitSL, expectedDay: 2, expectedPrice: 105,
		},
		{
			name:     "Short take profit on the low",
			stopLoss: 105, takeProfit: 90,
			bars:         []models.PriceBar{bar(2, 101, 89)},
			expectedKind: HitTP, expectedDay: 2, expectedPrice: 90,
		},
		{
			name:     "Same bar SL and TP is a conflict",
			stopLoss: 105, takeProfit: 90,
			bars:         []models.PriceBar{bar(2, 106, 88)},
			expectedKind: HitBoth, expectedDay: 2, expectedPrice: 0,
		},
		{
			name:     "No thresholds traded",
			stopLoss: 95, takeProfit: 110,
			bars:      []models.PriceBar{bar(2, 104, 99), bar(3, 105, 98)},
			expectNil: true,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			trade := newSimpleTrade(t, 100, tc.stopLoss, tc.takeProfit)

			hit := FindSimpleHit(trade, tc.bars)

			if tc.expectNil {
				assert.Nil(t, hit)
				return
			}
			require.NotNil(t, hit)
			assert.Equal(t, tc.expectedKind, hit.Kind)
			assert.Equal(t, day(tc.expectedDay), hit.Date)
			assert.Equal(t, tc.expectedPrice, hit.Price)
			assert.Equal(t, tc.expectedKind == HitBoth, hit.Conflict())
		})
	}

	t.Run("NotOpenTradeReturnsNil", func(t *testing.T) {
		trade := newSimpleTrade(t, 100, 95, 110)
		trade.Status = models.StatusPlan

		assert.Nil(t, FindSimpleHit(trade, []models.PriceBar{bar(2, 99, 94)}))
	})
}

func TestFindLayeredHits(t *testing.T) {
	t.Run("SingleLevelHit", func(t *testing.T) {
		trade := newLayeredLongTrade(t)
		bars := []models.PriceBar{bar(2, 112, 99)}

		hits := FindLayeredHits(trade, bars)

		require.Len(t, hits, 1)
		assert.Equal(t, 110.0, hits[0].Level.Price)
		assert.Equal(t, day(2), hits[0].Date)
		assert.Equal(t, 50, hits[0].Units)
	})

	t.Run("DetectionIsSideEffectFree", func(t *testing.T) {
		trade := newLayeredLongTrade(t)
		bars := []models.PriceBar{bar(2, 112, 99)}

		FindLayeredHits(trade, bars)

		assert.Equal(t, 100, trade.RemainingUnits)
		assert.Empty(t, trade.HitLevels())
		assert.Equal(t, models.StatusOpen, trade.Status)

		// Re-running the scan yields the same single candidate.
		again := FindLayeredHits(trade, bars)
		require.Len(t, again, 1)
		assert.Equal(t, 110.0, again[0].Level.Price)
	})

	t.Run("GapThroughHitsMultipleLevelsSameBar", func(t *testing.T) {
		trade := newLayeredLongTrade(t)
		require.NoError(t, ApplyClose(trade, &trade.ExitLevels[0], day(2), nil)) // TP1 already done
		bars := []models.PriceBar{bar(3, 135, 99)}

		hits := FindLayeredHits(trade, bars)

		require.Len(t, hits, 2)
		assert.Equal(t, 120.0, hits[0].Level.Price)
		assert.Equal(t, 30, hits[0].Units)
		assert.Equal(t, 130.0, hits[1].Level.Price)
		assert.Equal(t, 20, hits[1].Units)
	})

	t.Run("StopsOnceRemainderExhausted", func(t *testing.T) {
		trade := newLayeredLongTrade(t)
		trade.RemainingUnits = 60
		bars := []models.PriceBar{bar(2, 135, 99)}

		hits := FindLayeredHits(trade, bars)

		// TP1 takes 50, TP2 takes the last 10, TP3 gets nothing.
		require.Len(t, hits, 2)
		assert.Equal(t, 50, hits[0].Units)
		assert.Equal(t, 10, hits[1].Units)
	})

	t.Run("StopLevelsOrderBeforeTakeProfitsWithinBar", func(t *testing.T) {
		trade := newLayeredLongTrade(t)
		bars := []models.PriceBar{bar(2, 112, 94)} // SL@95 and TP1@110 both trade

		hits := FindLayeredHits(trade, bars)

		require.Len(t, hits, 1)
		// SL is 100%: it consumes the whole remainder before TP1 is reached.
		assert.Equal(t, models.LevelSL, hits[0].Level.LevelType)
		assert.Equal(t, 100, hits[0].Units)
	})

	t.Run("ShortLayeredDirection", func(t *testing.T) {
		trade := &models.Trade{
			Status:         models.StatusOpen,
			EntryPrice:     100,
			Units:          100,
			RemainingUnits: 100,
			IsLayered:      true,
		}
		actual := day(1)
		trade.DateActual = &actual
		_, err := CreateLevels(trade, []LevelSpec{
			{LevelType: models.LevelTP, Price: 90, UnitsPct: 0.5},
			{LevelType: models.LevelTP, Price: 80, UnitsPct: 0.5},
			{LevelType: models.LevelSL, Price: 105, UnitsPct: 1.0},
		})
		require.NoError(t, err)

		hits := FindLayeredHits(trade, []models.PriceBar{bar(2, 101, 89)})

		require.Len(t, hits, 1)
		assert.Equal(t, 90.0, hits[0].Level.Price)
	})
}

func TestApplyLayeredHits(t *testing.T) {
	trade := newLayeredLongTrade(t)
	bars := []models.PriceBar{bar(2, 112, 99), bar(3, 135, 99)}

	hits := FindLayeredHits(trade, bars)
	require.Len(t, hits, 3)
	require.NoError(t, ApplyLayeredHits(trade, hits))

	assert.Equal(t, 0, trade.RemainingUnits)
	assert.Equal(t, models.StatusClose, trade.Status)
	require.NotNil(t, trade.ExitPrice)
	assert.InDelta(t, 117.0, *trade.ExitPrice, 0.0001)
	require.NotNil(t, trade.ExitDate)
	assert.Equal(t, day(3), *trade.ExitDate)

	// A rescan of the same history produces no further work.
	assert.Empty(t, FindLayeredHits(trade, bars))
}
