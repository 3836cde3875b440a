package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/hamza/chilltutor/internal/observability"
	"github.com/hamza/chilltutor/internal/state"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/schema"
)

// The two hard preconditions of evaluation. Both indicate a corrupted
// session rather than malformed planner text, so they propagate to the
// caller instead of being skipped.
var (
	ErrNoActiveFlashcard = errors.New("no active flashcard in session")
	ErrNoUserAnswer      = errors.New("active flashcard has no recorded answer")
)

// Evaluator scores the learner's latest answer against the active
// flashcard's marking criteria via the evaluator chain.
type Evaluator struct {
	Model   llms.Model
	Prompts *PromptManager
	Logger  *observability.Logger
}

func NewEvaluator(model llms.Model, prompts *PromptManager, logger *observability.Logger) *Evaluator {
	return &Evaluator{Model: model, Prompts: prompts, Logger: logger}
}

// Evaluate marks the latest answer on the active flashcard, stores the
// verdict on the card and bumps the score tally. On any error the caller's
// session is returned unchanged.
func (e *Evaluator) Evaluate(ctx context.Context, chatID string, sess state.Session) (state.Session, error) {
	working := sess.Clone()

	idx := working.ActiveIndex()
	if idx < 0 {
		return sess, ErrNoActiveFlashcard
	}
	card := &working.FlashcardStates[idx]
	if len(card.UserAnswers) == 0 {
		return sess, ErrNoUserAnswer
	}
	answer := card.UserAnswers[len(card.UserAnswers)-1]

	systemPrompt, err := e.Prompts.EvaluatorPrompt()
	if err != nil {
		return sess, err
	}

	human := fmt.Sprintf(`Please evaluate this student answer:

Question: %s

Marking Criteria:
%s

Student Answer:
%s

Return your evaluation as a JSON object with:
- result: "correct" (score >= 0.8), "partial" (0.3 <= score < 0.8), or "incorrect" (score < 0.3)
- score: a number between 0.0 and 1.0
- feedback: positive reinforcement, the points covered, areas for improvement, and GCSE-specific guidance`,
		card.Question, card.MarkingCriteria, answer)

	messages := []llms.MessageContent{
		{
			Role:  schema.ChatMessageTypeSystem,
			Parts: []llms.ContentPart{llms.TextPart(systemPrompt)},
		},
		{
			Role:  schema.ChatMessageTypeHuman,
			Parts: []llms.ContentPart{llms.TextPart(human)},
		},
	}

	resp, err := e.Model.GenerateContent(ctx, messages)
	if err != nil {
		return sess, fmt.Errorf("evaluator chain: %w", err)
	}
	raw := resp.Choices[0].Content
	e.Logger.LogLLM(chatID, "", "evaluator", raw)

	evaluation, err := parseEvaluation(raw)
	if err != nil {
		return sess, fmt.Errorf("evaluator output: %w", err)
	}

	card.Evaluation = &evaluation
	working.Score.TotalAttempts++
	switch evaluation.Result {
	case state.VerdictCorrect:
		working.Score.Correct++
	case state.VerdictIncorrect:
		working.Score.Incorrect++
	}

	e.Logger.LogEvaluation(chatID, card.ID, string(evaluation.Result), evaluation.Score)
	return working, nil
}

// parseEvaluation decodes the model's JSON verdict, tolerating code fences
// and surrounding prose by extracting the outermost object.
func parseEvaluation(raw string) (state.Evaluation, error) {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start == -1 || end < start {
		return state.Evaluation{}, fmt.Errorf("no JSON object in %q", truncate(raw, 80))
	}

	var ev state.Evaluation
	if err := json.Unmarshal([]byte(raw[start:end+1]), &ev); err != nil {
		return state.Evaluation{}, err
	}

	switch ev.Result {
	case state.VerdictCorrect, state.VerdictPartial, state.VerdictIncorrect:
	default:
		return state.Evaluation{}, fmt.Errorf("unknown verdict %q", ev.Result)
	}
	return ev, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
