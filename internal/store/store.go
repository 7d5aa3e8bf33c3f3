package store

import (
	"fmt"
	"time"

	"trade-journal-go/internal/journal"
	"trade-journal-go/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Store is the gorm-backed persistence layer. It loads trade aggregates with
// their exit levels populated and commits the engine's mutations; all
// detection logic stays in the journal package.
type Store struct {
	db *gorm.DB
}

// ensure Store satisfies the engine's persistence contract
var _ journal.TradeStore = (*Store)(nil)

// NewStore creates a Store on the given gorm connection.
func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

// TradesByStatus returns a user's trades in the given status, exit levels
// included.
func (s *Store) TradesByStatus(userID uint, status models.TradeStatus) ([]*models.Trade, error) {
	var trades []*models.Trade
	err := s.db.
		Preload("ExitLevels").
		Where("user_id = ? AND status = ?", userID, status).
		Order("id").
		Find(&trades).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load %s trades: %w", status, err)
	}
	return trades, nil
}

// TradeByID returns one trade aggregate, or gorm.ErrRecordNotFound.
func (s *Store) TradeByID(tradeID uint) (*models.Trade, error) {
	var trade models.Trade
	err := s.db.Preload("ExitLevels").First(&trade, tradeID).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load trade %d: %w", tradeID, err)
	}
	return &trade, nil
}

// SaveTrade persists the trade and its exit levels.
func (s *Store) SaveTrade(trade *models.Trade) error {
	err := s.db.Session(&gorm.Session{FullSaveAssociations: true}).Save(trade).Error
	if err != nil {
		return fmt.Errorf("failed to save trade %d: %w", trade.ID, err)
	}
	return nil
}

// DeleteLevels removes exit level rows, e.g. pending levels dropped by a
// level replacement.
func (s *Store) DeleteLevels(levelIDs []uint) error {
	if len(levelIDs) == 0 {
		return nil
	}
	if err := s.db.Delete(&models.ExitLevel{}, levelIDs).Error; err != nil {
		return fmt.Errorf("failed to delete exit levels: %w", err)
	}
	return nil
}

// Bars returns a ticker's daily bars from the given date onward, ascending.
func (s *Store) Bars(ticker string, from time.Time) ([]models.PriceBar, error) {
	var bars []models.PriceBar
	err := s.db.
		Where("ticker = ? AND date >= ?", ticker, from).
		Order("date").
		Find(&bars).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load bars for %s: %w", ticker, err)
	}
	return bars, nil
}

// UpsertBars inserts bars, updating the OHLCV columns of any bar already
// stored for the same ticker and date.
func (s *Store) UpsertBars(bars []models.PriceBar) error {
	if len(bars) == 0 {
		return nil
	}
	err := s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "ticker"}, {Name: "date"}},
		DoUpdates: clause.AssignmentColumns([]string{"open", "high", "low", "close", "volume"}),
	}).Create(&bars).Error
	if err != nil {
		return fmt.Errorf("failed to upsert price bars: %w", err)
	}
	return nil
}

// BarBounds returns the earliest and latest stored bar dates for a ticker.
// Both are zero when no bars are stored.
func (s *Store) BarBounds(ticker string) (earliest, latest time.Time, err error) {
	type bounds struct {
		Earliest *time.Time
		Latest   *time.Time
	}
	var b bounds
	err = s.db.Model(&models.PriceBar{}).
		Select("MIN(date) AS earliest, MAX(date) AS latest").
		Where("ticker = ?", ticker).
		Scan(&b).Error
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("failed to load bar bounds for %s: %w", ticker, err)
	}
	if b.Earliest != nil {
		earliest = *b.Earliest
	}
	if b.Latest != nil {
		latest = *b.Latest
	}
	return earliest, latest, nil
}

// UserIDs returns the distinct user ids owning trades that may need
// evaluation (plan or open).
func (s *Store) UserIDs() ([]uint, error) {
	var ids []uint
	err := s.db.Model(&models.Trade{}).
		Where("status IN ?", []models.TradeStatus{models.StatusPlan, models.StatusOpen}).
		Distinct().
		Pluck("user_id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list user ids: %w", err)
	}
	return ids, nil
}

// Transaction runs fn against a transactional view of the store. Any error
// rolls back every mutation fn made, keeping a detection batch atomic.
func (s *Store) Transaction(fn func(journal.TradeStore) error) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		return fn(NewStore(tx))
	})
}
