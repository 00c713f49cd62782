package decision

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/admi-n/nonce-Excavator/src/internal/prioritizer"
)

type fakeModel struct {
	response string
	err      error
	prompts  []string
}

func (f *fakeModel) Generate(_ context.Context, prompt string) (string, error) {
	f.prompts = append(f.prompts, prompt)
	if f.err != nil {
		return "", f.err
	}
	return f.response, nil
}

func TestFallbackTable(t *testing.T) {
	cases := []struct {
		name       string
		priority   prioritizer.PriorityTier
		risk       int
		action     Action
		confidence int
	}{
		{"high above threshold", prioritizer.TierHigh, 71, ActionDeepScan, 98},
		{"high at threshold stays scan", prioritizer.TierHigh, 70, ActionScan, 95},
		{"high low risk", prioritizer.TierHigh, 10, ActionScan, 95},
		{"medium above threshold", prioritizer.TierMedium, 61, ActionScan, 85},
		{"medium at threshold skips", prioritizer.TierMedium, 60, ActionSkip, 80},
		{"medium low risk", prioritizer.TierMedium, 0, ActionSkip, 80},
		{"low above threshold", prioritizer.TierLow, 81, ActionScan, 75},
		{"low at threshold skips", prioritizer.TierLow, 80, ActionSkip, 90},
		{"low low risk", prioritizer.TierLow, 5, ActionSkip, 90},
	}

	policy := NewPolicy(nil, false)
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			d := policy.Decide(context.Background(), State{
				Address:  "0xabc",
				Priority: tc.priority,
				Risk:     tc.risk,
				Depth:    2,
			})
			assert.Equal(t, tc.action, d.Action)
			assert.Equal(t, tc.confidence, d.Confidence)
			assert.NotEmpty(t, d.Reasoning)
		})
	}
}

func TestDecideWithModel(t *testing.T) {
	model := &fakeModel{
		response: `{"action": "deep_scan", "reasoning": "historical nonce reuse on this address", "confidence": 92}`,
	}
	policy := NewPolicy(model, false)

	d := policy.Decide(context.Background(), State{
		Address:  "0xdef",
		Priority: prioritizer.TierLow,
		Risk:     10,
		Depth:    1,
	})

	assert.Equal(t, ActionDeepScan, d.Action)
	assert.Equal(t, 92, d.Confidence)
	assert.Equal(t, "historical nonce reuse on this address", d.Reasoning)
	require.Len(t, model.prompts, 1)
	assert.Contains(t, model.prompts[0], "0xdef")
}

func TestDecideModelResponseWithProse(t *testing.T) {
	model := &fakeModel{
		response: "Based on the state I recommend scanning.\n```json\n{\"action\": \"scan\", \"reasoning\": \"elevated risk\", \"confidence\": 88}\n```\nLet me know if you need more detail.",
	}
	policy := NewPolicy(model, false)

	d := policy.Decide(context.Background(), State{
		Address:  "0x123",
		Priority: prioritizer.TierMedium,
		Risk:     50,
		Depth:    2,
	})

	assert.Equal(t, ActionScan, d.Action)
	assert.Equal(t, 88, d.Confidence)
}

func TestDecideModelErrorFallsBack(t *testing.T) {
	model := &fakeModel{err: errors.New("connection refused")}
	policy := NewPolicy(model, false)

	d := policy.Decide(context.Background(), State{
		Address:  "0x123",
		Priority: prioritizer.TierHigh,
		Risk:     90,
		Depth:    3,
	})

	// 规则表：High 且 risk > 70
	assert.Equal(t, ActionDeepScan, d.Action)
	assert.Equal(t, 98, d.Confidence)
}

func TestDecideMalformedResponseFallsBack(t *testing.T) {
	model := &fakeModel{response: "I cannot decide without more information."}
	policy := NewPolicy(model, false)

	d := policy.Decide(context.Background(), State{
		Address:  "0x123",
		Priority: prioritizer.TierMedium,
		Risk:     30,
		Depth:    1,
	})

	assert.Equal(t, ActionSkip, d.Action)
	assert.Equal(t, 80, d.Confidence)
}

func TestDecideUnknownActionFallsBack(t *testing.T) {
	model := &fakeModel{
		response: `{"action": "quarantine", "reasoning": "looks bad", "confidence": 99}`,
	}
	policy := NewPolicy(model, false)

	d := policy.Decide(context.Background(), State{
		Address:  "0x123",
		Priority: prioritizer.TierLow,
		Risk:     85,
		Depth:    1,
	})

	assert.Equal(t, ActionScan, d.Action)
	assert.Equal(t, 75, d.Confidence)
}

func TestParseActionNormalization(t *testing.T) {
	for raw, want := range map[string]Action{
		"skip":      ActionSkip,
		"Scan":      ActionScan,
		"SCAN":      ActionScan,
		"deep_scan": ActionDeepScan,
		"deep-scan": ActionDeepScan,
		"DeepScan":  ActionDeepScan,
		" scan ":    ActionScan,
	} {
		got, err := parseAction(raw)
		require.NoError(t, err, raw)
		assert.Equal(t, want, got, raw)
	}

	_, err := parseAction("explode")
	assert.Error(t, err)
}
