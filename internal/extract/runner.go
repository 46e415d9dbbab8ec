package extract

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/lherman-cs/go-rosbag2/internal/recording"
)

// Result is the outcome of one recording within a run.
type Result struct {
	Recording string
	Summary   *Summary
	Err       error
}

// Runner drains the bags directory. Runs never overlap, a trigger firing while a
// run is in progress waits for it.
type Runner struct {
	bagsDir      string
	processedDir string
	extractor    *Extractor
	logger       *zap.Logger

	mu sync.Mutex
}

func NewRunner(bagsDir, processedDir string, extractor *Extractor, logger *zap.Logger) *Runner {
	return &Runner{
		bagsDir:      bagsDir,
		processedDir: processedDir,
		extractor:    extractor,
		logger:       logger,
	}
}

// RunOnce processes every recording currently in the bags directory, in name
// order. A failed recording is logged and the run moves on to the next one; only
// failing to list the bags directory or a cancelled ctx stops the run.
func (r *Runner) RunOnce(ctx context.Context) ([]Result, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	recordings, err := recording.Discover(r.bagsDir)
	if err != nil {
		return nil, err
	}

	runID := uuid.New().String()
	logger := r.logger.With(zap.String("run_id", runID))
	logger.Info("Starting run", zap.String("bags_dir", r.bagsDir), zap.Int("recordings", len(recordings)))

	started := time.Now()
	results := make([]Result, 0, len(recordings))
	for _, rec := range recordings {
		if err := ctx.Err(); err != nil {
			return results, err
		}

		summary, err := r.extractor.Extract(ctx, runID, rec, r.processedDir)
		if err != nil {
			logger.Error("Failed to process recording", zap.String("recording", rec.Name), zap.Error(err))
		}
		results = append(results, Result{Recording: rec.Name, Summary: summary, Err: err})
	}

	logger.Info("Finished run", zap.Int("recordings", len(results)), zap.Duration("elapsed", time.Since(started)))
	return results, nil
}
