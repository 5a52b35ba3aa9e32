package llm

import (
	"context"
	"errors"
	"testing"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cleo-screening/pkg"
)

// fakeModel returns a canned response regardless of the prompt.
type fakeModel struct {
	content string
	err     error
}

func (f *fakeModel) Generate(context.Context, []*schema.Message, ...model.Option) (*schema.Message, error) {
	if f.err != nil {
		return nil, f.err
	}
	return schema.AssistantMessage(f.content, nil), nil
}

func (f *fakeModel) Stream(context.Context, []*schema.Message, ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	return nil, errors.New("streaming not supported")
}

func TestClassifierNormalizesLabel(t *testing.T) {
	ctx := context.Background()
	c, err := NewChatClassifier(ctx, &fakeModel{content: " PASS. "})
	require.NoError(t, err)

	label, err := c.Classify(ctx, "Are you 18?", "yes I am", []string{"PASS", "FAIL"})
	require.NoError(t, err)
	assert.Equal(t, "PASS", label)
}

func TestClassifierRejectsUnknownLabel(t *testing.T) {
	ctx := context.Background()
	c, err := NewChatClassifier(ctx, &fakeModel{content: "maybe"})
	require.NoError(t, err)

	_, err = c.Classify(ctx, "Are you 18?", "dunno", []string{"PASS", "FAIL"})
	assert.Error(t, err)
}

func TestClassifierPropagatesModelFailure(t *testing.T) {
	ctx := context.Background()
	c, err := NewChatClassifier(ctx, &fakeModel{err: errors.New("rate limited")})
	require.NoError(t, err)

	_, err = c.Classify(ctx, "q", "a", []string{"yes", "no"})
	assert.Error(t, err)
}

func TestExtractorReturnsValue(t *testing.T) {
	ctx := context.Background()
	e, err := NewChatExtractor(ctx, &fakeModel{content: "jane@example.com"})
	require.NoError(t, err)

	value, err := e.Extract(ctx, "email", "my email is jane@example.com thanks")
	require.NoError(t, err)
	assert.Equal(t, "jane@example.com", value)
}

func TestExtractorNoneMeansEmpty(t *testing.T) {
	ctx := context.Background()
	e, err := NewChatExtractor(ctx, &fakeModel{content: "NONE"})
	require.NoError(t, err)

	value, err := e.Extract(ctx, "email", "I like turtles")
	require.NoError(t, err)
	assert.Empty(t, value)
}

func TestExtractorUnknownKind(t *testing.T) {
	ctx := context.Background()
	e, err := NewChatExtractor(ctx, &fakeModel{content: "x"})
	require.NoError(t, err)

	_, err = e.Extract(ctx, "shoe_size", "44")
	assert.Error(t, err)
}

func TestScorerParsesAndClamps(t *testing.T) {
	ctx := context.Background()
	rules := map[string]pkg.ScoringRule{
		"Q1": {Rule: "years * 3", Score: 10},
		"Q2": {Rule: "yes -> 5", Score: 5},
	}
	s, err := NewChatScorer(ctx, &fakeModel{content: "```json\n{\"Q1\": 99, \"Q2\": -3, \"Q3\": 1}\n```"})
	require.NoError(t, err)

	scores, err := s.Score(ctx, map[string]string{"Q1": "a", "Q2": "b"}, rules)
	require.NoError(t, err)
	assert.Equal(t, 10.0, scores["Q1"])
	assert.Equal(t, 0.0, scores["Q2"])
	_, ok := scores["Q3"]
	assert.False(t, ok)
}

func TestScorerMalformedResponse(t *testing.T) {
	ctx := context.Background()
	s, err := NewChatScorer(ctx, &fakeModel{content: "I'd rate these answers quite highly!"})
	require.NoError(t, err)

	_, err = s.Score(ctx, map[string]string{"Q1": "a"}, map[string]pkg.ScoringRule{"Q1": {Score: 5}})
	assert.Error(t, err)
}

func TestTrimJSONFences(t *testing.T) {
	assert.Equal(t, `{"a":1}`, trimJSONFences("```json\n{\"a\":1}\n```"))
	assert.Equal(t, `{"a":1}`, trimJSONFences(`{"a":1}`))
}
