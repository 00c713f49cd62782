package prioritizer

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type fakeScorer struct {
	assessment RiskAssessment
	err        error
}

func (f *fakeScorer) Score(ctx context.Context, address string) (RiskAssessment, error) {
	return f.assessment, f.err
}

func TestAssessOfflineDeterministic(t *testing.T) {
	p := New(nil, time.Second, false)

	first := p.Assess(context.Background(), "0xdeadbeef")
	second := p.Assess(context.Background(), "0xdeadbeef")
	assert.Equal(t, first, second)

	assert.GreaterOrEqual(t, first.Risk, 0)
	assert.LessOrEqual(t, first.Risk, 100)
	assert.GreaterOrEqual(t, first.Depth, 1)
	assert.LessOrEqual(t, first.Depth, 3)
	assert.Contains(t, []PriorityTier{TierHigh, TierMedium, TierLow}, first.Priority)
}

func TestAssessScorerFailureFallsBack(t *testing.T) {
	p := New(&fakeScorer{err: errors.New("timeout")}, time.Second, false)

	got := p.Assess(context.Background(), "0xabc")
	assert.Equal(t, safeDefault, got)
}

func TestAssessMalformedResultFallsBack(t *testing.T) {
	p := New(&fakeScorer{assessment: RiskAssessment{Priority: "Whatever", Risk: 250, Depth: 9}}, time.Second, false)

	got := p.Assess(context.Background(), "0xabc")
	assert.Equal(t, safeDefault, got)
}

func TestAssessScorerSuccess(t *testing.T) {
	want := RiskAssessment{Priority: TierHigh, Risk: 88, Depth: 3}
	p := New(&fakeScorer{assessment: want}, time.Second, false)

	got := p.Assess(context.Background(), "0xabc")
	assert.Equal(t, want, got)
}
