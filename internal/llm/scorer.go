package llm

import (
	"context"
	"fmt"

	"github.com/bytedance/sonic"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"

	"cleo-screening/pkg"
)

const scorerSystemTemplate = `You score a job applicant's screening answers against per-question scoring rules.

For every question, apply its rule to the applicant's answer and produce a numeric score.
A score must never exceed the rule's maximum and never go below zero.

Return ONLY a JSON object mapping each question text, verbatim, to its numeric score:
{{"<question>": <score>, ...}}

No explanations, no markdown fences, only the JSON object.`

const scorerUserTemplate = `Scoring rules (question -> rule and maximum score):
{rules}

Applicant answers (question -> answer):
{answers}

JSON scores:`

// ChatScorer scores screening answers with the chat model.
type ChatScorer struct {
	chain compose.Runnable[map[string]any, *schema.Message]
}

func NewChatScorer(ctx context.Context, cm model.BaseChatModel) (*ChatScorer, error) {
	template := prompt.FromMessages(schema.FString,
		schema.SystemMessage(scorerSystemTemplate),
		schema.UserMessage(scorerUserTemplate),
	)

	chain, err := compose.NewChain[map[string]any, *schema.Message]().
		AppendChatTemplate(template).
		AppendChatModel(cm).
		Compile(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to compile scorer chain: %w", err)
	}
	return &ChatScorer{chain: chain}, nil
}

// Score returns a per-question score map. Scores outside a rule's
// range are clamped; a malformed model response is an error, which the
// flow turns into zero scores.
func (s *ChatScorer) Score(ctx context.Context, answers map[string]string, rules map[string]pkg.ScoringRule) (map[string]float64, error) {
	rulesJSON, err := sonic.MarshalString(rules)
	if err != nil {
		return nil, fmt.Errorf("failed to encode scoring rules: %w", err)
	}
	answersJSON, err := sonic.MarshalString(answers)
	if err != nil {
		return nil, fmt.Errorf("failed to encode answers: %w", err)
	}

	out, err := s.chain.Invoke(ctx, map[string]any{
		"rules":   rulesJSON,
		"answers": answersJSON,
	})
	if err != nil {
		return nil, fmt.Errorf("scorer model call failed: %w", err)
	}

	var scores map[string]float64
	if err := sonic.UnmarshalString(trimJSONFences(out.Content), &scores); err != nil {
		return nil, fmt.Errorf("failed to parse scorer response: %w", err)
	}

	for question, score := range scores {
		rule, ok := rules[question]
		if !ok {
			delete(scores, question)
			continue
		}
		if score < 0 {
			scores[question] = 0
		}
		if score > rule.Score {
			scores[question] = rule.Score
		}
	}
	return scores, nil
}
