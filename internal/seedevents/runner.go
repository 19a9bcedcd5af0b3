package seedevents

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/beewell/momentum/internal/adapters/store"
	app "github.com/beewell/momentum/internal/app"
	"github.com/beewell/momentum/internal/domain/model"
	"github.com/beewell/momentum/pkg/logger"
)

// Run seeds synthetic events into the store and optionally replays the
// score calculation over the generated range.
func Run(ctx context.Context, cfg *Config) error {
	if cfg.NumUsers < 1 || cfg.Days < 1 {
		return errors.New("users and days must be positive")
	}

	if err := logger.Init(); err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	if cfg.Verbose {
		logger.SetLevel(slog.LevelDebug)
	}
	log := logger.Named("seed")

	st, err := store.Open(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer func() {
		_ = st.Close()
	}()

	end := model.Day(time.Now().UTC())
	start := end.AddDate(0, 0, -(cfg.Days - 1))

	log.Info(ctx, "seeding events",
		logger.Int("users", cfg.NumUsers),
		logger.Int("days", cfg.Days),
		logger.String("from", model.FormatDate(start)),
		logger.String("to", model.FormatDate(end)),
	)

	total := 0
	for i := 0; i < cfg.NumUsers; i++ {
		gen := newGenerator()
		for d := 0; d < cfg.Days; d++ {
			day := start.AddDate(0, 0, d)
			for _, ev := range gen.eventsForDay(day, cfg.Days-1-d, cfg.Days) {
				if err := st.InsertEvent(ctx, ev); err != nil {
					return fmt.Errorf("insert event: %w", err)
				}
				total++
			}
		}
		log.Debug(ctx, "user seeded", logger.String("userID", gen.userID))
	}
	log.Info(ctx, "events seeded", logger.Int("total", total))

	if !cfg.Calculate {
		return nil
	}
	return calculateRange(ctx, st, start, end, log)
}

// calculateRange replays the daily batch calculation oldest-first so
// each day's scores blend the previous ones.
func calculateRange(ctx context.Context, st *store.Store, start, end time.Time, log logger.Logger) error {
	svc := app.New(st, app.WithLogger(log.Named("service")))
	if err := svc.Start(ctx); err != nil {
		return fmt.Errorf("start service: %w", err)
	}
	defer svc.Stop(ctx)

	for day := start; !day.After(end); day = day.AddDate(0, 0, 1) {
		report, err := svc.CalculateAll(ctx, day, nil)
		if err != nil {
			return fmt.Errorf("calculate %s: %w", model.FormatDate(day), err)
		}
		log.Info(ctx, "day calculated",
			logger.String("date", report.Date),
			logger.Int("users", report.TotalUsers),
			logger.Int("failed", report.Failed),
		)
	}
	return nil
}
