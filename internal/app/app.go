package app

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"rhetenor/internal/config"
	"rhetenor/internal/ingest"
	"rhetenor/internal/logger"
	"rhetenor/internal/market"
	"rhetenor/internal/objstore"
	"rhetenor/internal/store/runlog"
	"rhetenor/internal/universe"
)

// App runs one watermark-to-now ingestion cycle: resolve the universe, find
// where storage left off, fetch and merge everything newer, drop the
// still-forming minute, upload the rest.
type App struct {
	cfg        *config.Config
	loc        *time.Location
	universeFn func(ctx context.Context) (map[string]universe.Metadata, error)
	coord      *ingest.Coordinator
	gateway    objstore.Gateway
	ledger     *runlog.Store
	stopSource func()
}

func New(cfg *config.Config, opts ...BuilderOption) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("nil config")
	}
	logger.SetLevel(cfg.App.LogLevel)
	return NewBuilder(cfg, opts...).Build(context.Background())
}

func (a *App) Close() {
	if a == nil {
		return
	}
	if a.stopSource != nil {
		a.stopSource()
	}
	if a.ledger != nil {
		if err := a.ledger.Close(); err != nil {
			logger.Warnf("app: closing run ledger: %v", err)
		}
	}
}

// Run executes a single cycle and returns the report. A universe failure is
// fatal, nothing can be fetched without the instrument list. Everything
// downstream degrades per unit instead.
func (a *App) Run(ctx context.Context) (*ingest.RunReport, error) {
	if a == nil || a.cfg == nil {
		return nil, fmt.Errorf("app not initialized")
	}
	report := &ingest.RunReport{
		RunID:     uuid.NewString(),
		StartedAt: time.Now(),
	}
	logger.Infof("app: run %s starting (env=%s)", report.RunID, a.cfg.App.Env)

	codes, err := a.resolveUniverse(ctx)
	if err != nil {
		return nil, err
	}
	report.Instruments = len(codes)

	after, err := a.resolveWatermark(ctx)
	if err != nil {
		return nil, err
	}
	report.From = after

	buckets, skips, err := a.coord.Fill(ctx, codes, after)
	if err != nil {
		return nil, err
	}
	report.Skips = skips

	window := market.DefaultCompletenessWindow
	if a.cfg.Ingest.CompletenessWindow > 0 {
		window = time.Duration(a.cfg.Ingest.CompletenessWindow) * time.Second
	}
	kept, dropped := market.DropForming(buckets, time.Now().In(a.loc), window)
	report.Buckets = len(kept)
	if dropped != nil {
		ts := dropped.Time
		report.Withheld = &ts
	}
	if len(kept) > 0 {
		report.To = kept[len(kept)-1].Time
	}

	writer := ingest.NewWriter(a.gateway, a.cfg.Storage.Prefix, a.cfg.Storage.DayBatch, a.manifest(), report.RunID)
	report.Stats = writer.Write(ctx, kept)
	report.FinishedAt = time.Now()

	a.recordRun(ctx, report)
	report.Log()
	return report, nil
}

func (a *App) resolveUniverse(ctx context.Context) ([]string, error) {
	meta, err := a.universeFn(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading instrument universe: %w", err)
	}
	flag := a.cfg.Universe.Flag()
	codes := make([]string, 0, len(meta))
	for code, m := range meta {
		if flag != "" && !m.HasFlag(flag) {
			continue
		}
		codes = append(codes, code)
	}
	sort.Strings(codes)
	if len(codes) == 0 {
		return nil, fmt.Errorf("universe: no instruments carry flag %q", flag)
	}
	logger.Infof("app: universe has %d instruments (flag=%s, total=%d)", len(codes), flag, len(meta))
	return codes, nil
}

func (a *App) resolveWatermark(ctx context.Context) (time.Time, error) {
	mark, ok, err := ingest.ResolveWatermark(ctx, a.gateway, a.loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("resolving watermark: %w", err)
	}
	if !ok {
		days := a.cfg.Ingest.BackfillDays
		if days <= 0 {
			days = 7
		}
		mark = a.coord.Snapshot().AddDate(0, 0, -days)
		logger.Infof("app: no stored objects yet, backfilling from %s", mark.Format(market.TimestampLayout))
		return mark, nil
	}
	logger.Infof("app: watermark at %s", mark.Format(market.TimestampLayout))
	return mark, nil
}

func (a *App) manifest() ingest.Manifest {
	if a.ledger == nil {
		return nil
	}
	return a.ledger
}

func (a *App) recordRun(ctx context.Context, report *ingest.RunReport) {
	if a.ledger == nil {
		return
	}
	sum := runlog.RunSummary{
		RunID:       report.RunID,
		StartedAt:   report.StartedAt,
		FinishedAt:  report.FinishedAt,
		Instruments: report.Instruments,
		Skipped:     len(report.Skips),
		Buckets:     report.Buckets,
		Written:     len(report.Stats.Written),
		Identical:   len(report.Stats.Identical),
		Failed:      len(report.Stats.Failures),
	}
	if err := a.ledger.RecordRun(ctx, sum); err != nil {
		logger.Warnf("app: recording run summary: %v", err)
	}
}
