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

// extractionGuides describe, per field kind, what to pull out of the
// applicant's message.
var extractionGuides = map[string]string{
	"name":       "the applicant's full name, title-cased",
	"email":      "the email address, lowercased, with no surrounding text",
	"phone":      "the phone number exactly as written, digits and separators only",
	"address":    "the complete postal address on a single line",
	"experience": "a short comma-separated list of jobs or roles mentioned",
	"education":  "the highest education level mentioned, as a short phrase",
}

const extractorSystemTemplate = `You extract one field from a chat message sent by a job applicant.

Extract {guide}.

RULES:
1. Return only the extracted value, nothing else.
2. If the message does not contain the field, return exactly NONE.`

const extractorUserTemplate = `Message: {text}

Value:`

// ChatExtractor pulls structured field values out of free-form
// applicant messages.
type ChatExtractor struct {
	chain compose.Runnable[map[string]any, *schema.Message]
}

func NewChatExtractor(ctx context.Context, cm model.BaseChatModel) (*ChatExtractor, error) {
	template := prompt.FromMessages(schema.FString,
		schema.SystemMessage(extractorSystemTemplate),
		schema.UserMessage(extractorUserTemplate),
	)

	chain, err := compose.NewChain[map[string]any, *schema.Message]().
		AppendChatTemplate(template).
		AppendChatModel(cm).
		Compile(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to compile extractor chain: %w", err)
	}
	return &ChatExtractor{chain: chain}, nil
}

// Extract returns the value for the given kind, or "" when the message
// does not contain it. An unknown kind or a failed model call is an
// error; callers fall back to the raw message text.
func (e *ChatExtractor) Extract(ctx context.Context, kind, text string) (string, error) {
	guide, ok := extractionGuides[kind]
	if !ok {
		return "", fmt.Errorf("unknown extraction kind: %s", kind)
	}

	out, err := e.chain.Invoke(ctx, map[string]any{
		"guide": guide,
		"text":  text,
	})
	if err != nil {
		return "", fmt.Errorf("extractor model call failed: %w", err)
	}

	value := strings.TrimSpace(out.Content)
	if value == "" || strings.EqualFold(value, "NONE") {
		return "", nil
	}
	return value, nil
}
