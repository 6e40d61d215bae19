package scheduler

import (
	"context"
	"errors"

	"github.com/rs/zerolog"
	"github.com/trogers1052/stock-analysis-service/internal/models"
)

// Reanalyzer runs a batch over the whole portfolio
type Reanalyzer interface {
	TriggerReanalysis(ctx context.Context) (*models.BatchResult, error)
}

// ReanalysisJob periodically rescores every tracked stock
type ReanalysisJob struct {
	reanalyzer Reanalyzer
	log        zerolog.Logger
}

// NewReanalysisJob creates the job
func NewReanalysisJob(reanalyzer Reanalyzer, log zerolog.Logger) *ReanalysisJob {
	return &ReanalysisJob{
		reanalyzer: reanalyzer,
		log:        log.With().Str("job", "reanalysis").Logger(),
	}
}

// Name returns the job name
func (j *ReanalysisJob) Name() string {
	return "reanalysis"
}

// Run triggers a batch. A tick that lands while a batch is running is
// dropped.
func (j *ReanalysisJob) Run(ctx context.Context) error {
	result, err := j.reanalyzer.TriggerReanalysis(ctx)
	if errors.Is(err, models.ErrBatchInProgress) {
		j.log.Info().Msg("Previous batch still running, skipping this tick")
		return nil
	}
	if err != nil {
		return err
	}

	j.log.Info().
		Int("succeeded", result.Succeeded).
		Int("failed", result.Failed).
		Int("skipped", result.Skipped).
		Msg("Scheduled reanalysis finished")
	return nil
}
