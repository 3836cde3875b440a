package agent

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hamza/chilltutor/internal/observability"
	"github.com/hamza/chilltutor/internal/state"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/schema"
)

// Responder generates the user-facing reply from the full session state.
type Responder struct {
	Model   llms.Model
	Prompts *PromptManager
	Logger  *observability.Logger
}

func NewResponder(model llms.Model, prompts *PromptManager, logger *observability.Logger) *Responder {
	return &Responder{Model: model, Prompts: prompts, Logger: logger}
}

// Respond renders the session for the responder chain and appends the reply
// to the transcript.
func (r *Responder) Respond(ctx context.Context, chatID string, sess state.Session) (state.Session, string, error) {
	systemPrompt, err := r.Prompts.ResponderPrompt()
	if err != nil {
		return sess, "", err
	}

	stateJSON, err := json.MarshalIndent(sess.Document(), "", "  ")
	if err != nil {
		return sess, "", fmt.Errorf("render session: %w", err)
	}

	messages := []llms.MessageContent{
		{
			Role:  schema.ChatMessageTypeSystem,
			Parts: []llms.ContentPart{llms.TextPart(systemPrompt)},
		},
		{
			Role:  schema.ChatMessageTypeHuman,
			Parts: []llms.ContentPart{llms.TextPart(fmt.Sprintf("Here is the current state:\n\n%s", stateJSON))},
		},
	}

	resp, err := r.Model.GenerateContent(ctx, messages)
	if err != nil {
		return sess, "", fmt.Errorf("responder chain: %w", err)
	}
	reply := resp.Choices[0].Content
	r.Logger.LogLLM(chatID, "", "responder", reply)

	working := sess.Clone()
	working.Messages = append(working.Messages, state.Message{Role: "assistant", Content: reply})
	return working, reply, nil
}
