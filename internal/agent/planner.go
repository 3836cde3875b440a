package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/hamza/chilltutor/internal/observability"
	"github.com/hamza/chilltutor/internal/plan"
	"github.com/hamza/chilltutor/internal/state"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/schema"
)

// Planner asks the planning model for the next learning steps and parses
// the textual plan it returns. The model is the only non-deterministic
// piece; everything after its raw response is the deterministic parser.
type Planner struct {
	Model   llms.Model
	Prompts *PromptManager
	Logger  *observability.Logger
}

func NewPlanner(model llms.Model, prompts *PromptManager, logger *observability.Logger) *Planner {
	return &Planner{Model: model, Prompts: prompts, Logger: logger}
}

// Plan generates and parses the next plan, recording it on the session
// (the previous plan shifts down). The parsed steps are returned for the
// executor; malformed fragments in the response have already been dropped
// by the parser.
func (p *Planner) Plan(ctx context.Context, chatID string, sess state.Session) (state.Session, []plan.Step, error) {
	systemPrompt, err := p.Prompts.PlannerPrompt()
	if err != nil {
		return sess, nil, err
	}

	messages := []llms.MessageContent{
		{
			Role:  schema.ChatMessageTypeSystem,
			Parts: []llms.ContentPart{llms.TextPart(systemPrompt)},
		},
		{
			Role:  schema.ChatMessageTypeHuman,
			Parts: []llms.ContentPart{llms.TextPart(renderPlannerState(sess))},
		},
	}

	resp, err := p.Model.GenerateContent(ctx, messages)
	if err != nil {
		return sess, nil, fmt.Errorf("planner chain: %w", err)
	}
	raw := resp.Choices[0].Content
	p.Logger.LogLLM(chatID, "", "planner", raw)

	steps := plan.Parse(raw)

	working := sess.Clone()
	working.PreviousPlan = working.CurrentPlan

	desc := ""
	if len(steps) > 0 {
		desc = steps[0].Description
	}
	working.CurrentPlan = state.PlanRecord{Description: desc, Steps: steps}

	p.Logger.LogPlan(chatID, desc, len(steps))
	return working, steps, nil
}

// renderPlannerState renders the fields the planner prompt expects, each as
// a titled JSON block.
func renderPlannerState(sess state.Session) string {
	var b strings.Builder
	b.WriteString("Here is the current state:\n\n")
	writeSection(&b, "Current Topic ID", sess.CurrentTopicID)
	writeSection(&b, "Topics", sess.Topics)
	writeSection(&b, "Flashcard States", sess.FlashcardStates)
	writeSection(&b, "Score", sess.Score)
	writeSection(&b, "Quiz State", sess.QuizState)
	writeSection(&b, "User", sess.User)
	writeSection(&b, "Messages", sess.Messages)
	writeSection(&b, "Hard Flashcards", sess.HardFlashcards)
	return b.String()
}

func writeSection(b *strings.Builder, title string, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		data = []byte("null")
	}
	fmt.Fprintf(b, "%s:\n%s\n\n", title, data)
}
