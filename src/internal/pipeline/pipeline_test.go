package pipeline

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/admi-n/nonce-Excavator/src/internal/decision"
	"github.com/admi-n/nonce-Excavator/src/internal/prioritizer"
	"github.com/admi-n/nonce-Excavator/src/internal/scanner"
)

type fakeScanStore struct {
	mu        sync.Mutex
	createErr error
	statuses  []string
}

func (f *fakeScanStore) CreateScan(_ context.Context, id, target, status string) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.statuses = append(f.statuses, status)
	return nil
}

func (f *fakeScanStore) UpdateScanStatus(_ context.Context, id, status, errMsg string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.statuses = append(f.statuses, status)
	return nil
}

func (f *fakeScanStore) history() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.statuses...)
}

type fakeAssessor struct{}

func (fakeAssessor) Assess(context.Context, string) prioritizer.RiskAssessment {
	return prioritizer.RiskAssessment{Priority: prioritizer.TierHigh, Risk: 90, Depth: 3}
}

type fakeDecider struct{ action decision.Action }

func (f fakeDecider) Decide(context.Context, decision.State) decision.Decision {
	return decision.Decision{Action: f.action, Reasoning: "test", Confidence: 90}
}

type fakeScanner struct {
	finding *scanner.Finding
	err     error
}

func (f fakeScanner) Scan(context.Context, string) (*scanner.Finding, error) {
	return f.finding, f.err
}

type fakeSink struct {
	mu    sync.Mutex
	err   error
	count int
}

func (f *fakeSink) Persist(context.Context, string, string, int, string, string, int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.count++
	return f.err
}

func newTestPipeline(st *fakeScanStore, sc fakeScanner, sink *fakeSink, action decision.Action) *Pipeline {
	return NewPipeline(Config{
		Store:   st,
		Assess:  fakeAssessor{},
		Policy:  fakeDecider{action: action},
		Scanner: sc,
		Sink:    sink,
	})
}

func TestCreateScanCompletesWithFinding(t *testing.T) {
	st := &fakeScanStore{}
	sink := &fakeSink{}
	finding := &scanner.Finding{Address: "0xaaa", Kind: scanner.KindWeakNonce, Severity: 70, Detail: "low entropy"}

	p := newTestPipeline(st, fakeScanner{finding: finding}, sink, decision.ActionScan)

	handle, err := p.CreateScan(context.Background(), "0xaaa")
	require.NoError(t, err)
	assert.NotEmpty(t, handle.ID)
	assert.Equal(t, StatusPending, handle.Status)

	p.Wait()

	result, ok := p.GetScan(handle.ID)
	require.True(t, ok)
	assert.Equal(t, StatusCompleted, result.Status)
	require.NotNil(t, result.Finding)
	assert.Equal(t, scanner.KindWeakNonce, result.Finding.Kind)
	assert.Equal(t, decision.ActionScan, result.Decision.Action)
	assert.Equal(t, 1, sink.count)

	// 状态机经过 pending → processing → completed
	assert.Equal(t, []string{"pending", "processing", "completed"}, st.history())
}

func TestCreateScanSkipDecision(t *testing.T) {
	st := &fakeScanStore{}
	p := newTestPipeline(st, fakeScanner{}, &fakeSink{}, decision.ActionSkip)

	handle, err := p.CreateScan(context.Background(), "0xaaa")
	require.NoError(t, err)
	p.Wait()

	result, _ := p.GetScan(handle.ID)
	assert.Equal(t, StatusCompleted, result.Status)
	assert.Nil(t, result.Finding)
}

func TestCreateScanScannerErrorFails(t *testing.T) {
	st := &fakeScanStore{}
	p := newTestPipeline(st, fakeScanner{err: errors.New("source down")}, &fakeSink{}, decision.ActionScan)

	handle, err := p.CreateScan(context.Background(), "0xaaa")
	require.NoError(t, err)
	p.Wait()

	result, _ := p.GetScan(handle.ID)
	assert.Equal(t, StatusFailed, result.Status)
	assert.Contains(t, result.Error, "source down")
}

func TestCreateScanPersistenceErrorFails(t *testing.T) {
	st := &fakeScanStore{}
	sink := &fakeSink{err: errors.New("db full")}
	finding := &scanner.Finding{Address: "0xaaa", Kind: scanner.KindNonceReuse, Severity: 95}

	p := newTestPipeline(st, fakeScanner{finding: finding}, sink, decision.ActionDeepScan)

	handle, err := p.CreateScan(context.Background(), "0xaaa")
	require.NoError(t, err)
	p.Wait()

	result, _ := p.GetScan(handle.ID)
	assert.Equal(t, StatusFailed, result.Status)
	assert.Contains(t, result.Error, "db full")
}

func TestCreateScanRegistrationError(t *testing.T) {
	st := &fakeScanStore{createErr: errors.New("insert failed")}
	p := newTestPipeline(st, fakeScanner{}, &fakeSink{}, decision.ActionScan)

	_, err := p.CreateScan(context.Background(), "0xaaa")
	assert.Error(t, err)
}

func TestCreateScanEmptyTarget(t *testing.T) {
	p := newTestPipeline(&fakeScanStore{}, fakeScanner{}, &fakeSink{}, decision.ActionScan)
	_, err := p.CreateScan(context.Background(), "")
	assert.Error(t, err)
}

func TestGetScanUnknownID(t *testing.T) {
	p := newTestPipeline(&fakeScanStore{}, fakeScanner{}, &fakeSink{}, decision.ActionScan)
	_, ok := p.GetScan("nope")
	assert.False(t, ok)
}
