package journal

import (
	"context"
	"fmt"
	"time"

	"trade-journal-go/internal/config"
	"trade-journal-go/internal/models"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// TradeStore is the persistence collaborator: it loads fully-populated trade
// aggregates (exit levels included) and price bars, and durably commits the
// mutations the engine makes. The engine performs no storage I/O itself.
type TradeStore interface {
	TradesByStatus(userID uint, status models.TradeStatus) ([]*models.Trade, error)
	SaveTrade(trade *models.Trade) error
	Bars(ticker string, from time.Time) ([]models.PriceBar, error)
	UpsertBars(bars []models.PriceBar) error
	UserIDs() ([]uint, error)
	Transaction(fn func(TradeStore) error) error
}

// BarSource supplies ordered daily OHLC bars for a ticker from a given date
// onward, e.g. from a market-data provider.
type BarSource interface {
	GetBars(ctx context.Context, symbol string, from time.Time) ([]models.PriceBar, error)
}

// Engine runs detection batches over the journal: entry hits open planned
// paper trades, SL/TP hits close open ones, and everything else becomes an
// advisory alert.
type Engine struct {
	logger  *zap.Logger
	cfg     *config.Config
	store   TradeStore
	source  BarSource
	metrics *Metrics

	StartTime time.Time
}

// NewEngine creates a new detection engine. source may be nil, in which case
// the engine relies on bars already present in the store.
func NewEngine(logger *zap.Logger, cfg *config.Config, store TradeStore, source BarSource, metrics *Metrics) *Engine {
	return &Engine{
		logger:    logger,
		cfg:       cfg,
		store:     store,
		source:    source,
		metrics:   metrics,
		StartTime: time.Now(),
	}
}

// Run starts the periodic detection loop. Each tick processes one batch per
// user. A non-positive tick interval disables the loop after a single pass.
func (e *Engine) Run(ctx context.Context) {
	e.logger.Info("Starting detection loop",
		zap.Int("tick_interval_seconds", e.cfg.Detection.TickInterval))

	e.processAllUsers(ctx)

	if e.cfg.Detection.TickInterval <= 0 {
		e.logger.Info("Tick interval disabled, detection loop exiting after one pass.")
		return
	}

	interval := time.Duration(e.cfg.Detection.TickInterval) * time.Second
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			e.logger.Info("Stopping detection loop...")
			return
		case <-ticker.C:
			e.processAllUsers(ctx)
		}
	}
}

func (e *Engine) processAllUsers(ctx context.Context) {
	userIDs, err := e.store.UserIDs()
	if err != nil {
		e.logger.Error("Failed to list users with trades", zap.Error(err))
		return
	}

	for _, userID := range userIDs {
		if ctx.Err() != nil {
			return
		}
		if _, err := e.ProcessBatch(ctx, userID); err != nil {
			e.logger.Error("Detection batch failed", zap.Uint("user_id", userID), zap.Error(err))
		}
	}
}

// ProcessBatch runs one detection batch for a user: every plan trade is
// checked for an entry hit first (auto-opening paper trades), then every open
// trade — including ones opened moments earlier in the same batch — is
// checked for SL/TP hits. The whole batch commits atomically; a failure rolls
// back every mutation. One trade's error never aborts the rest of the batch.
func (e *Engine) ProcessBatch(ctx context.Context, userID uint) (*BatchReport, error) {
	report := &BatchReport{RunID: uuid.NewString()}
	l := e.logger.With(zap.String("run_id", report.RunID), zap.Uint("user_id", userID))
	l.Info("Starting detection batch")

	if err := e.refreshBars(ctx, userID); err != nil {
		// Detection still runs against whatever history the store holds.
		l.Warn("Failed to refresh price bars", zap.Error(err))
	}

	err := e.store.Transaction(func(tx TradeStore) error {
		if err := e.processPlanTrades(tx, userID, report, l); err != nil {
			return err
		}
		return e.processOpenTrades(tx, userID, report, l)
	})
	if err != nil {
		return nil, fmt.Errorf("detection batch failed: %w", err)
	}

	e.metrics.Observe(report)
	l.Info("Detection batch complete",
		zap.Int("auto_opened", report.AutoOpened),
		zap.Int("auto_closed", report.AutoClosed),
		zap.Int("partial_closed", report.PartialClosed),
		zap.Int("conflicts", report.Conflicts),
		zap.Int("alerts", len(report.Alerts)),
		zap.Int("errors", len(report.Errors)),
	)
	return report, nil
}

// refreshBars pulls fresh daily bars from the provider for every ticker with
// a trade awaiting evaluation, starting at the earliest date any of its
// trades needs.
func (e *Engine) refreshBars(ctx context.Context, userID uint) error {
	if e.source == nil || !e.cfg.Detection.FetchBars {
		return nil
	}

	from := make(map[string]time.Time)
	for _, status := range []models.TradeStatus{models.StatusPlan, models.StatusOpen} {
		trades, err := e.store.TradesByStatus(userID, status)
		if err != nil {
			return err
		}
		for _, trade := range trades {
			start := trade.DatePlanned
			if trade.Status == models.StatusOpen && trade.DateActual != nil {
				start = *trade.DateActual
			}
			if existing, ok := from[trade.Ticker]; !ok || start.Before(existing) {
				from[trade.Ticker] = start
			}
		}
	}

	for ticker, start := range from {
		bars, err := e.source.GetBars(ctx, ticker, start)
		if err != nil {
			return fmt.Errorf("fetching bars for %s: %w", ticker, err)
		}
		if err := e.store.UpsertBars(bars); err != nil {
			return fmt.Errorf("storing bars for %s: %w", ticker, err)
		}
	}
	return nil
}

func (e *Engine) processPlanTrades(tx TradeStore, userID uint, report *BatchReport, l *zap.Logger) error {
	trades, err := tx.TradesByStatus(userID, models.StatusPlan)
	if err != nil {
		return fmt.Errorf("loading plan trades: %w", err)
	}

	for _, trade := range trades {
		if err := e.checkEntry(tx, trade, report); err != nil {
			l.Warn("Entry detection failed for trade",
				zap.Uint("trade_id", trade.ID), zap.String("ticker", trade.Ticker), zap.Error(err))
			report.Errors = append(report.Errors, fmt.Sprintf("trade %d: %v", trade.ID, err))
		}
	}
	return nil
}

func (e *Engine) checkEntry(tx TradeStore, trade *models.Trade, report *BatchReport) error {
	bars, err := tx.Bars(trade.Ticker, trade.DatePlanned)
	if err != nil {
		return err
	}

	hitDate, ok := FindEntryHit(trade, bars)
	if !ok {
		return nil
	}

	if !trade.PaperTrade {
		report.Alerts = append(report.Alerts, entryAlert(trade, hitDate, false))
		return nil
	}

	if err := OpenAtEntry(trade, hitDate); err != nil {
		return err
	}
	if err := tx.SaveTrade(trade); err != nil {
		return err
	}
	report.AutoOpened++
	report.Alerts = append(report.Alerts, entryAlert(trade, hitDate, true))
	return nil
}

func (e *Engine) processOpenTrades(tx TradeStore, userID uint, report *BatchReport, l *zap.Logger) error {
	trades, err := tx.TradesByStatus(userID, models.StatusOpen)
	if err != nil {
		return fmt.Errorf("loading open trades: %w", err)
	}

	for _, trade := range trades {
		if err := e.checkExits(tx, trade, report); err != nil {
			l.Warn("Exit detection failed for trade",
				zap.Uint("trade_id", trade.ID), zap.String("ticker", trade.Ticker), zap.Error(err))
			report.Errors = append(report.Errors, fmt.Sprintf("trade %d: %v", trade.ID, err))
		}
	}
	return nil
}

func (e *Engine) checkExits(tx TradeStore, trade *models.Trade, report *BatchReport) error {
	if trade.DateActual == nil {
		return nil
	}
	bars, err := tx.Bars(trade.Ticker, *trade.DateActual)
	if err != nil {
		return err
	}

	if trade.IsLayered {
		return e.checkLayeredExits(tx, trade, bars, report)
	}
	return e.checkSimpleExit(tx, trade, bars, report)
}

func (e *Engine) checkSimpleExit(tx TradeStore, trade *models.Trade, bars []models.PriceBar, report *BatchReport) error {
	hit := FindSimpleHit(trade, bars)
	if hit == nil {
		return nil
	}

	if hit.Conflict() {
		// Ambiguous intrabar ordering: never auto-close, not even a paper trade.
		report.Conflicts++
		report.Alerts = append(report.Alerts, conflictAlert(trade, hit))
		return nil
	}

	if !trade.PaperTrade {
		report.Alerts = append(report.Alerts, simpleHitAlert(trade, hit, false))
		return nil
	}

	if err := e.autoCloseSimple(trade, hit); err != nil {
		return err
	}
	if err := tx.SaveTrade(trade); err != nil {
		return err
	}
	report.AutoClosed++
	report.Alerts = append(report.Alerts, simpleHitAlert(trade, hit, true))
	return nil
}

// autoCloseSimple closes a non-layered paper trade through its exit level of
// the hit type, so the level history and the trade's exit fields stay
// consistent. The 100% allocation drives remaining units to zero, which
// settles and closes the trade.
func (e *Engine) autoCloseSimple(trade *models.Trade, hit *SimpleHit) error {
	levelType := models.LevelTP
	if hit.Kind == HitSL {
		levelType = models.LevelSL
	}

	pending := trade.PendingLevels(levelType)
	if len(pending) == 0 {
		return validationErrorf("no pending %s level on trade %d to close against", levelType, trade.ID)
	}
	return ApplyClose(trade, pending[0], hit.Date, nil)
}

func (e *Engine) checkLayeredExits(tx TradeStore, trade *models.Trade, bars []models.PriceBar, report *BatchReport) error {
	hits := FindLayeredHits(trade, bars)
	if len(hits) == 0 {
		return nil
	}

	if !trade.PaperTrade {
		for _, hit := range hits {
			report.Alerts = append(report.Alerts, levelHitAlert(trade, hit, false))
		}
		return nil
	}

	if err := ApplyLayeredHits(trade, hits); err != nil {
		return err
	}
	if err := tx.SaveTrade(trade); err != nil {
		return err
	}

	for _, hit := range hits {
		report.Alerts = append(report.Alerts, levelHitAlert(trade, hit, true))
	}
	if trade.Status == models.StatusClose {
		report.AutoClosed++
	} else {
		report.PartialClosed++
	}
	return nil
}
