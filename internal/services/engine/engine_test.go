package engine

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sentinel/internal/domain/analysis"
	"sentinel/internal/domain/profile"
	"sentinel/internal/services/extraction"
	"sentinel/internal/services/indicators"
	"sentinel/internal/services/report"
	"sentinel/internal/services/scoring"
	"sentinel/internal/testsupport"
	"sentinel/pkg/errors"
)

type recordingPublisher struct {
	mu      sync.Mutex
	reports []string
	batches []*analysis.BatchJob
}

func (p *recordingPublisher) PublishProfileAnalyzed(_ context.Context, _ string, rep *analysis.AnalysisReport) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.reports = append(p.reports, rep.Profile.Username)
	return nil
}

func (p *recordingPublisher) PublishBatchCompleted(_ context.Context, job *analysis.BatchJob) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.batches = append(p.batches, job)
	return nil
}

type explodingImages struct{}

func (explodingImages) ScoreImage(_ context.Context, url string) (float64, error) {
	if strings.Contains(url, "explode") {
		panic("decoder crashed")
	}
	return 0.3, nil
}

type recordingTracker struct {
	mu          sync.Mutex
	breadcrumbs []string
	batchIDs    []string
}

func (r *recordingTracker) CaptureError(context.Context, error, map[string]string) error { return nil }

func (r *recordingTracker) AddBreadcrumb(ctx context.Context, message string, _ string, _ errors.Level, _ map[string]interface{}) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id, _ := errors.BatchIDFrom(ctx)
	r.breadcrumbs = append(r.breadcrumbs, message)
	r.batchIDs = append(r.batchIDs, id)
}

func (r *recordingTracker) Flush(context.Context) error { return nil }

func testDeps(t *testing.T, pub Publisher) Deps {
	t.Helper()

	log := testsupport.Logger(t)
	baseline, err := report.DefaultBaseline()
	require.NoError(t, err)

	evaluator := indicators.NewEvaluator()
	return Deps{
		Extractor: extraction.NewExtractor(nil, explodingImages{}, log),
		Evaluator: evaluator,
		Scorer:    scoring.NewScorer(nil, evaluator, 0.5, log),
		Assembler: report.NewAssembler(baseline, func() time.Time { return testsupport.FixedNow }),
		Publisher: pub,
		Logger:    log,
	}
}

func newEngine(t *testing.T, cfg Config, pub Publisher) *Engine {
	t.Helper()

	e, err := New(testDeps(t, pub), cfg)
	require.NoError(t, err)
	return e
}

func fixtureFetcher(fail map[string]error) profile.FetcherFunc {
	return func(_ context.Context, username string, platform profile.Platform) (*profile.RawProfileRecord, error) {
		if err, ok := fail[username]; ok {
			return nil, err
		}
		if strings.HasPrefix(username, "bot") {
			return testsupport.NewBot(platform, username).Build(), nil
		}
		return testsupport.NewRecord(platform, username).DailyPosts(30).Build(), nil
	}
}

func identifiers(n int) []string {
	ids := make([]string, n)
	for i := range ids {
		ids[i] = fmt.Sprintf("user%d", i+1)
	}
	return ids
}

func TestNew_RequiresCollaborators(t *testing.T) {
	_, err := New(Deps{}, Config{})
	assert.True(t, errors.Is(err, errors.ErrInvalidInput))
}

func TestAnalyzeBatch_OneRateLimitedItem(t *testing.T) {
	pub := &recordingPublisher{}
	e := newEngine(t, Config{MaxConcurrency: 3}, pub)

	fetcher := fixtureFetcher(map[string]error{
		"user4": errors.Wrap(errors.ErrRateLimited, "429 from upstream"),
	})

	ids := identifiers(10)
	job := e.AnalyzeBatch(context.Background(), ids, profile.PlatformTwitter, fetcher)

	require.Len(t, job.Outcomes, 10)
	assert.NotEmpty(t, job.ID)
	assert.Equal(t, analysis.BatchCompleted, job.Status)
	assert.Equal(t, ids, job.Identifiers)

	for i, out := range job.Outcomes {
		assert.Equal(t, i, out.Index)
		assert.Equal(t, ids[i], out.Identifier)
		if i == 3 {
			assert.Equal(t, analysis.StageFailed, out.Stage)
			require.NotNil(t, out.Error)
			assert.Equal(t, analysis.KindRateLimited, out.Error.Kind)
			assert.Equal(t, analysis.StageFetching, out.Error.Stage)
			assert.Nil(t, out.Report)
			continue
		}
		assert.True(t, out.Done(), "item %d should be done", i)
		assert.Nil(t, out.Error)
	}

	assert.Equal(t, 10, job.Summary.Total)
	assert.Equal(t, 9, job.Summary.Done)
	assert.Equal(t, 1, job.Summary.Failed)
	assert.Equal(t, 1, job.Summary.ErrorCount)
	assert.Equal(t, 1, job.Summary.ErrorsByKind[analysis.KindRateLimited])

	assert.Len(t, pub.reports, 9)
	require.Len(t, pub.batches, 1)
	assert.Equal(t, job.ID, pub.batches[0].ID)
}

func TestAnalyzeBatch_ClassifiesFetchResults(t *testing.T) {
	e := newEngine(t, Config{MaxConcurrency: 2}, nil)

	fetcher := profile.FetcherFunc(func(_ context.Context, username string, platform profile.Platform) (*profile.RawProfileRecord, error) {
		switch username {
		case "missing":
			return nil, errors.Wrap(errors.ErrNotFound, "404")
		case "flaky":
			return nil, errors.New("connection reset by peer")
		case "empty":
			return nil, nil
		case "elsewhere":
			return testsupport.NewRecord(profile.PlatformInstagram, username).Build(), nil
		case "noplatform":
			rec := testsupport.NewRecord(platform, username).Build()
			rec.Platform = ""
			return rec, nil
		}
		return testsupport.NewRecord(platform, username).Build(), nil
	})

	ids := []string{"missing", "flaky", "empty", "elsewhere", "noplatform", "   "}
	job := e.AnalyzeBatch(context.Background(), ids, profile.PlatformTwitter, fetcher)
	require.Len(t, job.Outcomes, len(ids))

	kinds := make([]analysis.ErrorKind, 0, len(ids))
	stages := make([]analysis.Stage, 0, len(ids))
	for _, out := range job.Outcomes {
		if out.Error == nil {
			kinds = append(kinds, "")
			stages = append(stages, out.Stage)
			continue
		}
		kinds = append(kinds, out.Error.Kind)
		stages = append(stages, out.Error.Stage)
	}

	assert.Equal(t, []analysis.ErrorKind{
		analysis.KindNotFound,
		analysis.KindTransient,
		analysis.KindMalformedInput,
		analysis.KindMalformedInput,
		"",
		analysis.KindMalformedInput,
	}, kinds)
	assert.Equal(t, []analysis.Stage{
		analysis.StageFetching,
		analysis.StageFetching,
		analysis.StageFetching,
		analysis.StageFetching,
		analysis.StageDone,
		analysis.StagePending,
	}, stages)

	assert.Equal(t, profile.PlatformTwitter, job.Outcomes[4].Report.Profile.Platform)
}

func TestAnalyzeBatch_PanicIsIsolated(t *testing.T) {
	e := newEngine(t, Config{MaxConcurrency: 2}, nil)

	fetcher := profile.FetcherFunc(func(_ context.Context, username string, platform profile.Platform) (*profile.RawProfileRecord, error) {
		b := testsupport.NewRecord(platform, username)
		if username == "user2" {
			b.Picture("https://cdn.example.com/explode.png")
		}
		return b.Build(), nil
	})

	job := e.AnalyzeBatch(context.Background(), identifiers(3), profile.PlatformTwitter, fetcher)
	require.Len(t, job.Outcomes, 3)

	assert.True(t, job.Outcomes[0].Done())
	assert.True(t, job.Outcomes[2].Done())

	failed := job.Outcomes[1]
	require.NotNil(t, failed.Error)
	assert.Equal(t, analysis.KindInternal, failed.Error.Kind)
	assert.Equal(t, analysis.StageExtracting, failed.Error.Stage)
	assert.Contains(t, failed.Error.Message, "decoder crashed")
}

func TestAnalyzeBatch_BoundsConcurrency(t *testing.T) {
	e := newEngine(t, Config{MaxConcurrency: 3}, nil)

	var current, peak int32
	fetcher := profile.FetcherFunc(func(_ context.Context, username string, platform profile.Platform) (*profile.RawProfileRecord, error) {
		n := atomic.AddInt32(&current, 1)
		defer atomic.AddInt32(&current, -1)
		for {
			p := atomic.LoadInt32(&peak)
			if n <= p || atomic.CompareAndSwapInt32(&peak, p, n) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		return testsupport.NewRecord(platform, username).Build(), nil
	})

	job := e.AnalyzeBatch(context.Background(), identifiers(12), profile.PlatformTwitter, fetcher)

	assert.Equal(t, 12, job.Summary.Done)
	assert.LessOrEqual(t, atomic.LoadInt32(&peak), int32(3))
	assert.GreaterOrEqual(t, atomic.LoadInt32(&peak), int32(1))
}

func TestAnalyzeBatch_CanceledBeforeStart(t *testing.T) {
	e := newEngine(t, Config{}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var calls int32
	fetcher := profile.FetcherFunc(func(_ context.Context, username string, platform profile.Platform) (*profile.RawProfileRecord, error) {
		atomic.AddInt32(&calls, 1)
		return testsupport.NewRecord(platform, username).Build(), nil
	})

	job := e.AnalyzeBatch(ctx, identifiers(4), profile.PlatformTwitter, fetcher)

	assert.Equal(t, analysis.BatchCanceled, job.Status)
	assert.Zero(t, atomic.LoadInt32(&calls))
	require.Len(t, job.Outcomes, 4)
	for i, out := range job.Outcomes {
		assert.Equal(t, i, out.Index)
		assert.Equal(t, analysis.StageFailed, out.Stage)
		assert.Equal(t, analysis.KindCanceled, out.Error.Kind)
		assert.Equal(t, analysis.StagePending, out.Error.Stage)
	}
	assert.Equal(t, 4, job.Summary.ErrorsByKind[analysis.KindCanceled])
}

func TestAnalyzeBatch_CancelLetsInFlightFinish(t *testing.T) {
	e := newEngine(t, Config{MaxConcurrency: 1}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	fetcher := profile.FetcherFunc(func(fctx context.Context, username string, platform profile.Platform) (*profile.RawProfileRecord, error) {
		if username == "user1" {
			cancel()
			time.Sleep(10 * time.Millisecond)
			assert.NoError(t, fctx.Err())
		}
		return testsupport.NewRecord(platform, username).Build(), nil
	})

	job := e.AnalyzeBatch(ctx, identifiers(5), profile.PlatformTwitter, fetcher)

	assert.Equal(t, analysis.BatchCanceled, job.Status)
	require.Len(t, job.Outcomes, 5)
	assert.True(t, job.Outcomes[0].Done())
	for _, out := range job.Outcomes[2:] {
		require.NotNil(t, out.Error)
		assert.Equal(t, analysis.KindCanceled, out.Error.Kind)
	}
	assert.Equal(t, 5, job.Summary.Done+job.Summary.Failed)
}

func TestAnalyzeBatch_Empty(t *testing.T) {
	e := newEngine(t, Config{}, nil)

	job := e.AnalyzeBatch(context.Background(), nil, profile.PlatformFacebook, fixtureFetcher(nil))

	assert.Equal(t, analysis.BatchCompleted, job.Status)
	assert.Empty(t, job.Outcomes)
	assert.Zero(t, job.Summary.Total)
}

func TestAnalyzeOne(t *testing.T) {
	pub := &recordingPublisher{}
	e := newEngine(t, Config{}, pub)

	rep, err := e.AnalyzeOne(context.Background(), testsupport.NewBot(profile.PlatformTwitter, "bot123").Build())
	require.NoError(t, err)

	assert.Equal(t, "bot123", rep.Profile.Username)
	assert.True(t, rep.Score.IsFake)
	assert.Equal(t, analysis.SourceHeuristicFallback, rep.Score.Source)
	assert.NotEmpty(t, rep.Indicators)
	assert.Equal(t, []string{"bot123"}, pub.reports)
}

func TestAnalyzeOne_MalformedRecord(t *testing.T) {
	e := newEngine(t, Config{}, nil)

	rec := testsupport.NewRecord(profile.PlatformTwitter, "").Build()
	rep, err := e.AnalyzeOne(context.Background(), rec)

	assert.Nil(t, rep)
	var errRec *analysis.ErrorRecord
	require.True(t, errors.As(err, &errRec))
	assert.Equal(t, analysis.KindMalformedInput, errRec.Kind)
	assert.Equal(t, analysis.StageExtracting, errRec.Stage)
	assert.True(t, errors.Is(err, errors.ErrMalformedInput))

	_, err = e.AnalyzeOne(context.Background(), nil)
	assert.True(t, errors.Is(err, errors.ErrMalformedInput))
}

func TestSummarize(t *testing.T) {
	done := func(i int, p float64, fake bool, names ...string) analysis.ItemOutcome {
		inds := make([]analysis.Indicator, 0, len(names))
		for _, n := range names {
			inds = append(inds, analysis.Indicator{Name: n, Severity: analysis.SeverityLow})
		}
		return analysis.ItemOutcome{
			Index: i,
			Stage: analysis.StageDone,
			Report: &analysis.AnalysisReport{
				Score:      analysis.ScoreResult{Probability: p, IsFake: fake},
				Indicators: inds,
			},
		}
	}
	failed := analysis.ItemOutcome{
		Index: 3,
		Stage: analysis.StageFailed,
		Error: analysis.NewErrorRecord("x", analysis.StageFetching, errors.ErrNotFound),
	}

	outcomes := []analysis.ItemOutcome{
		done(0, 0.9, true, "b", "a"),
		done(1, 0.8, true, "b", "c"),
		done(2, 0.1, false, "a"),
		failed,
	}

	s := Summarize(outcomes, 2)

	assert.Equal(t, 4, s.Total)
	assert.Equal(t, 3, s.Done)
	assert.Equal(t, 1, s.Failed)
	assert.Equal(t, 2, s.FakeCount)
	assert.Equal(t, 1, s.AuthenticCount)
	assert.InDelta(t, 0.6, s.AverageProbability, 1e-9)
	assert.Equal(t, map[analysis.ErrorKind]int{analysis.KindNotFound: 1}, s.ErrorsByKind)
	assert.Equal(t, []analysis.IndicatorCount{{Name: "a", Count: 2}, {Name: "b", Count: 2}}, s.TopIndicators)

	assert.Empty(t, Summarize(outcomes, 0).TopIndicators)
}

func TestAnalyzeBatch_ContextCarriesBatchID(t *testing.T) {
	tracker := &recordingTracker{}
	deps := testDeps(t, nil)
	deps.Tracker = tracker
	e, err := New(deps, Config{MaxConcurrency: 2})
	require.NoError(t, err)

	var mu sync.Mutex
	var fetchIDs []string
	fetcher := profile.FetcherFunc(func(ctx context.Context, username string, platform profile.Platform) (*profile.RawProfileRecord, error) {
		id, _ := errors.BatchIDFrom(ctx)
		mu.Lock()
		fetchIDs = append(fetchIDs, id)
		mu.Unlock()
		if username == "ghost" {
			return nil, errors.ErrNotFound
		}
		return testsupport.NewRecord(platform, username).Build(), nil
	})

	job := e.AnalyzeBatch(context.Background(), []string{"alice", "ghost"}, profile.PlatformTwitter, fetcher)

	assert.Equal(t, []string{job.ID, job.ID}, fetchIDs)
	assert.Equal(t, []string{"batch started", "item failed"}, tracker.breadcrumbs)
	assert.Equal(t, []string{job.ID, job.ID}, tracker.batchIDs)
}

func TestAnalyzeBatch_DoesNotMutateFetchedRecord(t *testing.T) {
	e := newEngine(t, Config{}, nil)

	shared := testsupport.NewRecord("", "alice").Build()
	fetcher := profile.FetcherFunc(func(context.Context, string, profile.Platform) (*profile.RawProfileRecord, error) {
		return shared, nil
	})

	job := e.AnalyzeBatch(context.Background(), []string{"alice"}, profile.PlatformInstagram, fetcher)

	require.True(t, job.Outcomes[0].Done())
	assert.Equal(t, profile.PlatformInstagram, job.Outcomes[0].Report.Profile.Platform)
	assert.Equal(t, profile.Platform(""), shared.Platform)
}

func TestNew_TopIndicatorsDefaults(t *testing.T) {
	assert.Equal(t, DefaultTopIndicators, newEngine(t, Config{}, nil).cfg.TopIndicators)
	assert.Equal(t, 2, newEngine(t, Config{TopIndicators: 2}, nil).cfg.TopIndicators)
	assert.Equal(t, 0, newEngine(t, Config{TopIndicators: -1}, nil).cfg.TopIndicators, "negative disables the list")
}
