package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"
)

const classifierSystemTemplate = `You are a strict answer classifier for a job application screening conversation.

You are given a question, the applicant's answer, and a fixed list of allowed labels.
Pick the single label that best describes the answer.

RULES:
1. Respond with exactly one label from the allowed list and nothing else.
2. Do not explain, do not punctuate, do not invent new labels.
3. Interpret the answer generously: "yep", "sure", "of course" all mean yes.`

const classifierUserTemplate = `Question: {question}
Answer: {answer}
Allowed labels: {allowed}

Label:`

// ChatClassifier classifies an applicant answer into one of a fixed
// set of labels using the chat model.
type ChatClassifier struct {
	chain compose.Runnable[map[string]any, *schema.Message]
}

func NewChatClassifier(ctx context.Context, cm model.BaseChatModel) (*ChatClassifier, error) {
	template := prompt.FromMessages(schema.FString,
		schema.SystemMessage(classifierSystemTemplate),
		schema.UserMessage(classifierUserTemplate),
	)

	chain, err := compose.NewChain[map[string]any, *schema.Message]().
		AppendChatTemplate(template).
		AppendChatModel(cm).
		Compile(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to compile classifier chain: %w", err)
	}
	return &ChatClassifier{chain: chain}, nil
}

// Classify returns one of the allowed labels, or an error when the
// model call fails or returns something outside the set. Callers
// define their own fallback label for that case.
func (c *ChatClassifier) Classify(ctx context.Context, question, answer string, allowed []string) (string, error) {
	out, err := c.chain.Invoke(ctx, map[string]any{
		"question": question,
		"answer":   answer,
		"allowed":  strings.Join(allowed, ", "),
	})
	if err != nil {
		return "", fmt.Errorf("classifier model call failed: %w", err)
	}

	got := strings.ToLower(strings.Trim(out.Content, ".\"' \t\r\n"))
	for _, label := range allowed {
		if got == strings.ToLower(label) {
			return label, nil
		}
	}
	return "", fmt.Errorf("classifier returned %q, not in allowed set", out.Content)
}
