package analysis

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"sentinel/pkg/errors"
)

func TestRiskLevelFor_PartitionsUnitInterval(t *testing.T) {
	rank := map[RiskLevel]int{RiskVeryLow: 0, RiskLow: 1, RiskMedium: 2, RiskHigh: 3, RiskVeryHigh: 4}

	prev := -1
	for i := 0; i <= 1000; i++ {
		level := RiskLevelFor(float64(i) / 1000)
		r, ok := rank[level]
		assert.True(t, ok)
		assert.GreaterOrEqual(t, r, prev, "bucketing must be monotonic")
		prev = r
	}

	assert.Equal(t, RiskVeryLow, RiskLevelFor(0))
	assert.Equal(t, RiskLow, RiskLevelFor(0.2))
	assert.Equal(t, RiskMedium, RiskLevelFor(0.4))
	assert.Equal(t, RiskHigh, RiskLevelFor(0.7))
	assert.Equal(t, RiskVeryHigh, RiskLevelFor(0.9))
	assert.Equal(t, RiskVeryHigh, RiskLevelFor(1))
}

func TestKindOf(t *testing.T) {
	assert.Equal(t, KindRateLimited, KindOf(errors.Wrap(errors.ErrRateLimited, "fetch")))
	assert.Equal(t, KindNotFound, KindOf(errors.ErrNotFound))
	assert.Equal(t, KindMalformedInput, KindOf(errors.NewValidationError("username", "is required", "")))
	assert.Equal(t, KindInternal, KindOf(errors.New("boom")))
	assert.Equal(t, ErrorKind(""), KindOf(nil))
}

func TestErrorRecord(t *testing.T) {
	rec := NewErrorRecord("alice", StageFetching, errors.Wrap(errors.ErrAuth, "fetch alice"))

	assert.Equal(t, KindAuthError, rec.Kind)
	assert.True(t, errors.Is(rec, errors.ErrAuth))
	assert.Contains(t, rec.Error(), "alice failed at fetching (auth_error)")
}

func TestSeverityRank(t *testing.T) {
	assert.Greater(t, SeverityHigh.Rank(), SeverityMedium.Rank())
	assert.Greater(t, SeverityMedium.Rank(), SeverityLow.Rank())
	assert.Equal(t, 0, Severity("bogus").Rank())
}
