package engine

import (
	"context"

	"sentinel/internal/adapters/errors/noop"
	"sentinel/internal/domain/analysis"
	"sentinel/internal/domain/profile"
	"sentinel/internal/events"
	"sentinel/internal/metrics"
	"sentinel/internal/services/extraction"
	"sentinel/internal/services/indicators"
	"sentinel/internal/services/report"
	"sentinel/internal/services/scoring"
	"sentinel/pkg/errors"
	"sentinel/pkg/logger"
)

const (
	DefaultMaxConcurrency = 5
	DefaultTopIndicators  = 5
)

// Publisher receives completed reports and batches
type Publisher interface {
	PublishProfileAnalyzed(ctx context.Context, batchID string, report *analysis.AnalysisReport) error
	PublishBatchCompleted(ctx context.Context, job *analysis.BatchJob) error
}

// Config tunes batch execution. Zero values take the defaults; a negative
// TopIndicators turns the batch's top indicator list off.
type Config struct {
	MaxConcurrency int
	TopIndicators  int
}

// Deps are the collaborators of the engine. Publisher, Tracker and Logger are optional.
type Deps struct {
	Extractor *extraction.Extractor
	Evaluator *indicators.Evaluator
	Scorer    *scoring.Scorer
	Assembler *report.Assembler
	Publisher Publisher
	Tracker   errors.Tracker
	Logger    *logger.Logger
}

// Engine runs the per-profile pipeline: extract, evaluate, score, assemble.
// All collaborators are read-only after construction, so one engine serves
// any number of concurrent calls.
type Engine struct {
	extractor *extraction.Extractor
	evaluator *indicators.Evaluator
	scorer    *scoring.Scorer
	assembler *report.Assembler
	publisher Publisher
	tracker   errors.Tracker
	log       *logger.Logger
	cfg       Config
}

// New creates an engine
func New(deps Deps, cfg Config) (*Engine, error) {
	if deps.Extractor == nil || deps.Evaluator == nil || deps.Scorer == nil || deps.Assembler == nil {
		return nil, errors.Wrap(errors.ErrInvalidInput, "engine requires extractor, evaluator, scorer and assembler")
	}
	if cfg.MaxConcurrency <= 0 {
		cfg.MaxConcurrency = DefaultMaxConcurrency
	}
	switch {
	case cfg.TopIndicators == 0:
		cfg.TopIndicators = DefaultTopIndicators
	case cfg.TopIndicators < 0:
		cfg.TopIndicators = 0
	}

	e := &Engine{
		extractor: deps.Extractor,
		evaluator: deps.Evaluator,
		scorer:    deps.Scorer,
		assembler: deps.Assembler,
		publisher: deps.Publisher,
		tracker:   deps.Tracker,
		log:       deps.Logger,
		cfg:       cfg,
	}
	if e.publisher == nil {
		e.publisher = events.NoopPublisher{}
	}
	if e.tracker == nil {
		e.tracker = noop.New()
	}
	if e.log == nil {
		e.log = logger.Get()
	}
	e.log = e.log.With("component", "engine")

	return e, nil
}

// MaxConcurrency returns the per-batch worker bound
func (e *Engine) MaxConcurrency() int {
	return e.cfg.MaxConcurrency
}

// AnalyzeOne scores a single, already fetched record.
// The returned error is always an *analysis.ErrorRecord.
func (e *Engine) AnalyzeOne(ctx context.Context, rec *profile.RawProfileRecord) (*analysis.AnalysisReport, error) {
	id := identifierOf(rec)

	rep, errRec := e.analyze(ctx, id, rec)
	if errRec != nil {
		metrics.RecordStageFailure(platformOf(rec), string(errRec.Stage), string(errRec.Kind))
		return nil, errRec
	}

	e.record(rep)
	if err := e.publisher.PublishProfileAnalyzed(ctx, "", rep); err != nil {
		e.log.Warnw("Failed to publish report", "identifier", id, "error", err)
	}
	return rep, nil
}

// analyze is the CPU-bound part of the pipeline. Panics are recovered into an
// internal error at the stage that raised them.
func (e *Engine) analyze(ctx context.Context, id string, rec *profile.RawProfileRecord) (rep *analysis.AnalysisReport, errRec *analysis.ErrorRecord) {
	stage := analysis.StageExtracting

	defer func() {
		if r := recover(); r != nil {
			err := errors.Wrapf(errors.ErrInternal, "panic during %s: %v", stage, r)
			e.log.ErrorWithContext(ctx, err, map[string]string{
				"identifier": id,
				"stage":      string(stage),
			})
			rep, errRec = nil, analysis.NewErrorRecord(id, stage, err)
		}
	}()

	v, err := e.extractor.Extract(ctx, rec)
	if err != nil {
		return nil, analysis.NewErrorRecord(id, stage, err)
	}

	stage = analysis.StageScoring
	found := e.evaluator.Evaluate(v)
	score := e.scorer.Score(v)

	return e.assembler.Assemble(rec.Meta(), v, found, score), nil
}

func (e *Engine) record(rep *analysis.AnalysisReport) {
	platform := rep.Profile.Platform.String()
	metrics.RecordAnalysis(platform, string(rep.Score.Source), rep.Score.Probability, rep.Score.IsFake)
	for _, ind := range rep.Indicators {
		metrics.RecordIndicator(ind.Name, ind.Severity.String())
	}
}

func identifierOf(rec *profile.RawProfileRecord) string {
	if rec == nil {
		return ""
	}
	return rec.Username
}

func platformOf(rec *profile.RawProfileRecord) string {
	if rec == nil {
		return ""
	}
	return rec.Platform.String()
}
