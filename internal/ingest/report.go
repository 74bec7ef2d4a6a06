package ingest

import (
	"time"

	"rhetenor/internal/logger"
	"rhetenor/internal/market"
)

// RunReport aggregates what one fill-and-write cycle actually did, including
// every per-unit skip that older tooling used to swallow silently.
type RunReport struct {
	RunID      string
	StartedAt  time.Time
	FinishedAt time.Time
	From       time.Time
	To         time.Time

	Instruments int
	Skips       []InstrumentSkip
	Buckets     int
	Withheld    *time.Time

	Stats WriteStats
}

// Log emits the run summary through the standard logger.
func (r *RunReport) Log() {
	logger.Infof("run %s: instruments=%d skipped=%d buckets=%d written=%d identical=%d failed=%d elapsed=%s",
		r.RunID, r.Instruments, len(r.Skips), r.Buckets,
		len(r.Stats.Written), len(r.Stats.Identical), len(r.Stats.Failures),
		r.FinishedAt.Sub(r.StartedAt).Round(time.Millisecond))
	if r.Withheld != nil {
		logger.Infof("run %s: withheld still-forming bucket %s", r.RunID, r.Withheld.Format(market.TimestampLayout))
	}
	for _, skip := range r.Skips {
		logger.Warnf("run %s: instrument %s skipped: %s", r.RunID, skip.Code, skip.Reason)
	}
	for _, fail := range r.Stats.Failures {
		logger.Warnf("run %s: key %s failed: %s", r.RunID, fail.Key, fail.Reason)
	}
}
