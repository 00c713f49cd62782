package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractObjectDirect(t *testing.T) {
	p := NewParser()

	obj, err := p.ExtractObject(`{"action":"scan","reasoning":"ok","confidence":90}`)
	require.NoError(t, err)
	assert.Contains(t, obj, `"action"`)
}

func TestExtractObjectMarkdownFence(t *testing.T) {
	p := NewParser()
	response := "Here is my analysis:\n```json\n{\"action\":\"skip\",\"reasoning\":\"low risk\",\"confidence\":80}\n```\nHope this helps."

	obj, err := p.ExtractObject(response)
	require.NoError(t, err)
	assert.Contains(t, obj, `"skip"`)
}

func TestExtractObjectEmbeddedInProse(t *testing.T) {
	p := NewParser()
	response := `Sure! Based on the state I would respond {"action":"deep_scan","reasoning":"high risk {nested} braces","confidence":97} — let me know.`

	obj, err := p.ExtractObject(response)
	require.NoError(t, err)
	assert.Contains(t, obj, `"deep_scan"`)
}

func TestExtractObjectNone(t *testing.T) {
	p := NewParser()

	_, err := p.ExtractObject("no structured content here")
	assert.ErrorIs(t, err, ErrNoJSON)

	_, err = p.ExtractObject("unbalanced { \"action\": ")
	assert.ErrorIs(t, err, ErrNoJSON)
}

func TestParseDecision(t *testing.T) {
	p := NewParser()

	d, err := p.ParseDecision(`noise {"action":"scan","reasoning":"medium risk","confidence":85} noise`)
	require.NoError(t, err)
	assert.Equal(t, "scan", d.Action)
	assert.Equal(t, "medium risk", d.Reasoning)
	assert.EqualValues(t, 85, *d.Confidence)
}

func TestParseDecisionMissingFields(t *testing.T) {
	p := NewParser()

	cases := []string{
		`{"reasoning":"x","confidence":85}`,
		`{"action":"scan","confidence":85}`,
		`{"action":"scan","reasoning":"x"}`,
		`{"action":"scan","reasoning":"x","confidence":150}`,
	}
	for _, c := range cases {
		_, err := p.ParseDecision(c)
		assert.Error(t, err, c)
	}
}

func TestParseScore(t *testing.T) {
	p := NewParser()

	s, err := p.ParseScore("```\n{\"priority\":\"High\",\"risk\":88,\"depth\":3}\n```")
	require.NoError(t, err)
	assert.Equal(t, "High", s.Priority)
	assert.EqualValues(t, 88, *s.Risk)
	assert.Equal(t, 3, *s.Depth)
}

func TestParseScoreInvalid(t *testing.T) {
	p := NewParser()

	_, err := p.ParseScore(`{"priority":"High","risk":88,"depth":7}`)
	assert.Error(t, err)
	_, err = p.ParseScore(`{"priority":"High","depth":2}`)
	assert.Error(t, err)
}
