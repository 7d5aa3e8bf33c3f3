package store

import (
	"errors"
	"testing"
	"time"

	"trade-journal-go/internal/journal"
	"trade-journal-go/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// setupStore creates a Store on a fresh in-memory database.
func setupStore(t *testing.T) *Store {
	t.Helper()

	// Use a new, non-shared in-memory database for each test to ensure isolation.
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)

	err = db.AutoMigrate(&models.Strategy{}, &models.Ticker{}, &models.Trade{}, &models.ExitLevel{}, &models.PriceBar{})
	require.NoError(t, err)

	return NewStore(db)
}

func testDate(n int) time.Time {
	return time.Date(2024, time.January, n, 0, 0, 0, 0, time.UTC)
}

func openTrade(userID uint) *models.Trade {
	return &models.Trade{
		Ticker:         "ASML",
		Status:         models.StatusOpen,
		EntryPrice:     100,
		Amount:         10000,
		Units:          100,
		RemainingUnits: 100,
		DatePlanned:    testDate(1),
		PaperTrade:     true,
		UserID:         userID,
		ExitLevels: []models.ExitLevel{
			{LevelType: models.LevelSL, Price: 95, UnitsPct: 1.0, OrderIndex: 1, Status: models.LevelPending},
			{LevelType: models.LevelTP, Price: 110, UnitsPct: 1.0, OrderIndex: 1, Status: models.LevelPending},
		},
	}
}

func TestTradesByStatus(t *testing.T) {
	s := setupStore(t)
	require.NoError(t, s.SaveTrade(openTrade(1)))

	planned := openTrade(1)
	planned.Status = models.StatusPlan
	require.NoError(t, s.SaveTrade(planned))

	otherUser := openTrade(2)
	require.NoError(t, s.SaveTrade(otherUser))

	trades, err := s.TradesByStatus(1, models.StatusOpen)

	require.NoError(t, err)
	require.Len(t, trades, 1)
	assert.Equal(t, uint(1), trades[0].UserID)
	// Exit levels come back with the aggregate.
	require.Len(t, trades[0].ExitLevels, 2)
	assert.Equal(t, models.LevelPending, trades[0].ExitLevels[0].Status)

	empty, err := s.TradesByStatus(1, models.StatusClose)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestSaveTradePersistsLevelMutations(t *testing.T) {
	s := setupStore(t)
	trade := openTrade(1)
	require.NoError(t, s.SaveTrade(trade))

	hitDate := testDate(3)
	units := 100
	trade.ExitLevels[1].Status = models.LevelHit
	trade.ExitLevels[1].HitDate = &hitDate
	trade.ExitLevels[1].UnitsClosed = &units
	trade.RemainingUnits = 0
	trade.Status = models.StatusClose
	require.NoError(t, s.SaveTrade(trade))

	reloaded, err := s.TradeByID(trade.ID)

	require.NoError(t, err)
	assert.Equal(t, models.StatusClose, reloaded.Status)
	assert.Equal(t, 0, reloaded.RemainingUnits)

	hit := reloaded.HitLevels()
	require.Len(t, hit, 1)
	assert.Equal(t, 110.0, hit[0].Price)
	require.NotNil(t, hit[0].UnitsClosed)
	assert.Equal(t, 100, *hit[0].UnitsClosed)
}

func TestDeleteLevels(t *testing.T) {
	s := setupStore(t)
	trade := openTrade(1)
	require.NoError(t, s.SaveTrade(trade))

	require.NoError(t, s.DeleteLevels([]uint{trade.ExitLevels[0].ID}))

	reloaded, err := s.TradeByID(trade.ID)
	require.NoError(t, err)
	require.Len(t, reloaded.ExitLevels, 1)
	assert.Equal(t, models.LevelTP, reloaded.ExitLevels[0].LevelType)

	assert.NoError(t, s.DeleteLevels(nil))
}

func TestBarsAndUpsert(t *testing.T) {
	s := setupStore(t)

	open1, high1, low1 := 100.0, 103.0, 99.0
	high2, low2 := 104.5, 101.0
	require.NoError(t, s.UpsertBars([]models.PriceBar{
		{Ticker: "ASML", Date: testDate(3), High: &high2, Low: &low2},
		{Ticker: "ASML", Date: testDate(2), Open: &open1, High: &high1, Low: &low1},
		{Ticker: "NVDA", Date: testDate(2), High: &high1, Low: &low1},
	}))

	t.Run("OrderedFromDate", func(t *testing.T) {
		bars, err := s.Bars("ASML", testDate(1))

		require.NoError(t, err)
		require.Len(t, bars, 2)
		assert.Equal(t, testDate(2), bars[0].Date)
		assert.Equal(t, testDate(3), bars[1].Date)

		later, err := s.Bars("ASML", testDate(3))
		require.NoError(t, err)
		require.Len(t, later, 1)
	})

	t.Run("ConflictUpdatesExistingRow", func(t *testing.T) {
		newHigh, newLow := 106.0, 98.5
		require.NoError(t, s.UpsertBars([]models.PriceBar{
			{Ticker: "ASML", Date: testDate(2), High: &newHigh, Low: &newLow},
		}))

		bars, err := s.Bars("ASML", testDate(2))
		require.NoError(t, err)
		require.Len(t, bars, 2)
		require.NotNil(t, bars[0].High)
		assert.Equal(t, 106.0, *bars[0].High)
		// The stale open is overwritten too, not merged.
		assert.Nil(t, bars[0].Open)
	})

	t.Run("BarBounds", func(t *testing.T) {
		earliest, latest, err := s.BarBounds("ASML")

		require.NoError(t, err)
		assert.Equal(t, testDate(2), earliest)
		assert.Equal(t, testDate(3), latest)

		none, _, err := s.BarBounds("MISSING")
		require.NoError(t, err)
		assert.True(t, none.IsZero())
	})
}

func TestUserIDs(t *testing.T) {
	s := setupStore(t)
	require.NoError(t, s.SaveTrade(openTrade(1)))
	require.NoError(t, s.SaveTrade(openTrade(1)))
	require.NoError(t, s.SaveTrade(openTrade(7)))

	closed := openTrade(9)
	closed.Status = models.StatusClose
	require.NoError(t, s.SaveTrade(closed))

	ids, err := s.UserIDs()

	require.NoError(t, err)
	assert.ElementsMatch(t, []uint{1, 7}, ids)
}

func TestTransactionRollsBackOnError(t *testing.T) {
	s := setupStore(t)

	err := s.Transaction(func(tx journal.TradeStore) error {
		if err := tx.SaveTrade(openTrade(1)); err != nil {
			return err
		}
		return errors.New("batch failed")
	})

	require.Error(t, err)
	trades, err := s.TradesByStatus(1, models.StatusOpen)
	require.NoError(t, err)
	assert.Empty(t, trades)
}
