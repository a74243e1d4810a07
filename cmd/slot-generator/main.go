package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/25f1002229/schedula-backend/internal/config"
	"github.com/25f1002229/schedula-backend/internal/db"
	"github.com/25f1002229/schedula-backend/internal/scheduling"
	"github.com/25f1002229/schedula-backend/internal/timeutil"
	"github.com/25f1002229/schedula-backend/pkg/logging"
)

// slot-generator keeps a rolling horizon of bookable slots ahead of the
// current date by expanding every doctor's availability patterns. Runs that
// hit already-generated dates are cheap: the generator skips them.
func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Default().Error("config load error", "error", err)
		os.Exit(1)
	}

	logger := logging.New(cfg.LogLevel)
	logger.Info("slot-generator starting up",
		"env", cfg.Env, "interval", cfg.WorkerInterval, "horizon_days", cfg.HorizonDays)

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pgCtx, cancelPg := context.WithTimeout(rootCtx, 10*time.Second)
	pgPool, err := db.ConnectPostgres(pgCtx, cfg.PostgresDSN)
	cancelPg()
	if err != nil {
		logger.Error("postgres connection error", "error", err)
		os.Exit(1)
	}
	defer pgPool.Close()
	logger.Info("connected to Postgres")

	store := scheduling.NewPgStore(pgPool)
	slots := scheduling.NewSlotService(store, nil)

	w := &worker{
		store:       store,
		slots:       slots,
		horizonDays: cfg.HorizonDays,
		logger:      logger,
	}

	// Run once at startup so a fresh deployment has slots immediately.
	w.runOnce(rootCtx)

	ticker := time.NewTicker(cfg.WorkerInterval)
	defer ticker.Stop()

	for {
		select {
		case <-rootCtx.Done():
			logger.Info("shutdown signal received, stopping slot-generator")
			return
		case <-ticker.C:
			w.runOnce(rootCtx)
		}
	}
}

type worker struct {
	store       scheduling.Store
	slots       *scheduling.SlotService
	horizonDays int
	logger      *logging.Logger
}

func (w *worker) runOnce(ctx context.Context) {
	runCtx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	start := time.Now()

	doctors, err := w.store.Doctors().List(runCtx)
	if err != nil {
		w.logger.Error("list doctors", "error", err)
		return
	}

	today := time.Now().UTC()
	req := scheduling.GenerateSlotsRequest{
		StartDate: timeutil.FormatDate(today),
		EndDate:   timeutil.FormatDate(today.AddDate(0, 0, w.horizonDays)),
		Mode:      scheduling.ModeStream,
	}

	var created, skipped int
	for _, d := range doctors {
		res, err := w.slots.GenerateSlots(runCtx, d.ID, req)
		if err != nil {
			w.logger.Error("generate slots", "doctor_id", d.ID, "error", err)
			continue
		}
		created += res.Created
		skipped += res.Skipped
	}

	w.logger.Info("generation run complete",
		"doctors", len(doctors), "created", created, "skipped", skipped,
		"duration", time.Since(start))
}
