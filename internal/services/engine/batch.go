package engine

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"sentinel/internal/domain/analysis"
	"sentinel/internal/domain/profile"
	"sentinel/internal/metrics"
	"sentinel/pkg/errors"
	"sentinel/pkg/logger"
)

type item struct {
	index      int
	identifier string
}

// AnalyzeBatch fetches and analyzes every identifier with at most
// MaxConcurrency pipelines in flight. It returns once every identifier has a
// terminal outcome, in submission order.
//
// Canceling ctx stops dispatching; items already handed to a worker finish
// normally and the rest fail at stage pending with kind canceled.
func (e *Engine) AnalyzeBatch(
	ctx context.Context,
	identifiers []string,
	platform profile.Platform,
	fetcher profile.Fetcher,
) *analysis.BatchJob {
	job := &analysis.BatchJob{
		ID:          uuid.NewString(),
		Platform:    platform,
		Identifiers: append([]string(nil), identifiers...),
		Status:      analysis.BatchRunning,
		StartedAt:   time.Now().UTC(),
	}
	log := e.log.With("batch_id", job.ID, "platform", platform)

	// In-flight items must not observe the caller's cancellation
	work := errors.WithBatchID(context.WithoutCancel(ctx), job.ID)

	e.tracker.AddBreadcrumb(work, "batch started", "batch", errors.LevelInfo, map[string]interface{}{
		"batch_id": job.ID,
		"items":    len(identifiers),
	})
	log.Infow("Batch started", "items", len(identifiers), "max_concurrency", e.cfg.MaxConcurrency)

	workers := e.cfg.MaxConcurrency
	if len(identifiers) < workers {
		workers = len(identifiers)
	}

	jobs := make(chan item)
	results := make(chan analysis.ItemOutcome, len(identifiers))

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for it := range jobs {
				results <- e.runItem(work, log, job.ID, it, platform, fetcher)
			}
		}()
	}

	dispatched := e.dispatch(ctx, jobs, identifiers)
	close(jobs)
	wg.Wait()
	close(results)

	outcomes := make([]analysis.ItemOutcome, 0, len(identifiers))
	for out := range results {
		outcomes = append(outcomes, out)
	}
	for i := dispatched; i < len(identifiers); i++ {
		outcomes = append(outcomes, canceledOutcome(platform, i, identifiers[i], ctx.Err()))
	}
	sort.Slice(outcomes, func(i, j int) bool {
		return outcomes[i].Index < outcomes[j].Index
	})

	job.Outcomes = outcomes
	job.Summary = Summarize(outcomes, e.cfg.TopIndicators)
	job.Status = analysis.BatchCompleted
	if dispatched < len(identifiers) {
		job.Status = analysis.BatchCanceled
	}
	job.FinishedAt = time.Now().UTC()

	metrics.RecordBatch(platform.String(), string(job.Status), job.FinishedAt.Sub(job.StartedAt), job.Summary.Done, job.Summary.Failed)
	log.Infow("Batch finished",
		"status", job.Status,
		"done", job.Summary.Done,
		"failed", job.Summary.Failed,
		"fake", job.Summary.FakeCount,
		"duration", job.FinishedAt.Sub(job.StartedAt),
	)

	if err := e.publisher.PublishBatchCompleted(work, job); err != nil {
		log.Warnw("Failed to publish batch completion", "error", err)
	}

	return job
}

// dispatch hands identifiers to workers in order and returns how many were sent
func (e *Engine) dispatch(ctx context.Context, jobs chan<- item, identifiers []string) int {
	for i, id := range identifiers {
		if ctx.Err() != nil {
			return i
		}
		select {
		case jobs <- item{index: i, identifier: id}:
		case <-ctx.Done():
			return i
		}
	}
	return len(identifiers)
}

// runItem drives one identifier to a terminal outcome. It never panics.
func (e *Engine) runItem(
	ctx context.Context,
	log *logger.Logger,
	batchID string,
	it item,
	platform profile.Platform,
	fetcher profile.Fetcher,
) (out analysis.ItemOutcome) {
	metrics.InFlight.Inc()
	defer metrics.InFlight.Dec()

	out = analysis.ItemOutcome{Index: it.index, Identifier: it.identifier, Stage: analysis.StagePending}
	stage := analysis.StagePending

	defer func() {
		if r := recover(); r != nil {
			err := errors.Wrapf(errors.ErrInternal, "panic during %s: %v", stage, r)
			log.ErrorWithContext(ctx, err, map[string]string{
				"batch_id":   batchID,
				"identifier": it.identifier,
				"stage":      string(stage),
			})
			out = e.failed(ctx, log, platform, out, analysis.NewErrorRecord(it.identifier, stage, err))
		}
	}()

	username, err := profile.ParseIdentifier(it.identifier, platform)
	if err != nil {
		return e.failed(ctx, log, platform, out, analysis.NewErrorRecord(it.identifier, stage, err))
	}

	stage = analysis.StageFetching
	rec, err := e.fetch(ctx, fetcher, username, platform)
	if err != nil {
		return e.failed(ctx, log, platform, out, analysis.NewErrorRecord(it.identifier, stage, err))
	}

	rep, errRec := e.analyze(ctx, it.identifier, rec)
	if errRec != nil {
		return e.failed(ctx, log, platform, out, errRec)
	}

	e.record(rep)
	if err := e.publisher.PublishProfileAnalyzed(ctx, batchID, rep); err != nil {
		log.Warnw("Failed to publish report", "identifier", it.identifier, "error", err)
	}

	out.Stage = analysis.StageDone
	out.Report = rep
	return out
}

// fetch calls the fetch capability and normalizes what comes back.
// Errors outside the fetch taxonomy are treated as transient.
func (e *Engine) fetch(
	ctx context.Context,
	fetcher profile.Fetcher,
	username string,
	platform profile.Platform,
) (*profile.RawProfileRecord, error) {
	if fetcher == nil {
		return nil, errors.Wrap(errors.ErrInvalidInput, "no fetch capability configured")
	}

	start := time.Now()
	rec, err := fetcher.Fetch(ctx, username, platform)
	latency := time.Since(start)

	if err != nil {
		if analysis.KindOf(err) == analysis.KindInternal {
			err = errors.Wrapf(errors.ErrTransient, "%v", err)
		}
		metrics.RecordFetch(platform.String(), string(analysis.KindOf(err)), latency)
		return nil, errors.Wrapf(err, "fetch %s", username)
	}
	metrics.RecordFetch(platform.String(), "success", latency)

	if rec == nil {
		return nil, errors.Wrapf(errors.ErrMalformedInput, "fetch %s returned no record", username)
	}
	if rec.Platform == "" {
		// the fetcher owns rec
		filled := *rec
		filled.Platform = platform
		rec = &filled
	}
	if rec.Platform != platform {
		return nil, errors.Wrapf(errors.ErrMalformedInput, "fetch %s returned a %s record", username, rec.Platform)
	}
	return rec, nil
}

func (e *Engine) failed(
	ctx context.Context,
	log *logger.Logger,
	platform profile.Platform,
	out analysis.ItemOutcome,
	errRec *analysis.ErrorRecord,
) analysis.ItemOutcome {
	metrics.RecordStageFailure(platform.String(), string(errRec.Stage), string(errRec.Kind))
	e.tracker.AddBreadcrumb(ctx, "item failed", "batch", errors.LevelWarning, map[string]interface{}{
		"identifier": errRec.Identifier,
		"stage":      string(errRec.Stage),
		"kind":       string(errRec.Kind),
	})
	log.Warnw("Item failed",
		"index", out.Index,
		"identifier", errRec.Identifier,
		"stage", errRec.Stage,
		"kind", errRec.Kind,
		"error", errRec.Message,
	)

	out.Stage = analysis.StageFailed
	out.Report = nil
	out.Error = errRec
	return out
}

func canceledOutcome(platform profile.Platform, index int, identifier string, cause error) analysis.ItemOutcome {
	err := errors.ErrCanceled
	if cause != nil {
		err = errors.Wrapf(errors.ErrCanceled, "batch canceled before dispatch: %v", cause)
	}
	metrics.RecordStageFailure(platform.String(), string(analysis.StagePending), string(analysis.KindCanceled))
	return analysis.ItemOutcome{
		Index:      index,
		Identifier: identifier,
		Stage:      analysis.StageFailed,
		Error:      analysis.NewErrorRecord(identifier, analysis.StagePending, err),
	}
}
