package agent

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/hamza/chilltutor/internal/governance"
	"github.com/hamza/chilltutor/internal/observability"
	"github.com/hamza/chilltutor/internal/plan"
	"github.com/hamza/chilltutor/internal/state"
	"github.com/hamza/chilltutor/internal/store"
)

// toolName enumerates the closed set of tools the executor dispatches. The
// planner is free text and may name anything; names outside this set are
// logged no-ops, never errors.
type toolName string

const (
	toolBulkSetState       toolName = "bulk_set_state"
	toolPopulateFlashcards toolName = "populate_flashcards"
)

// FlashcardRepository is the repository collaborator the populator queries.
type FlashcardRepository interface {
	FlashcardsByTopic(topicID int64) ([]store.FlashcardRecord, error)
}

// Executor applies a parsed plan's steps to a session.
type Executor struct {
	Repo   FlashcardRepository
	Policy governance.PolicyEngine
	Logger *observability.Logger
}

func NewExecutor(repo FlashcardRepository, policy governance.PolicyEngine, logger *observability.Logger) *Executor {
	return &Executor{Repo: repo, Policy: policy, Logger: logger}
}

// Execute runs steps in order against a working copy of sess, so later
// steps observe earlier steps' effects. Execution never fails: unknown
// tools and policy-denied steps are skipped with a diagnostic.
func (e *Executor) Execute(ctx context.Context, chatID string, sess state.Session, steps []plan.Step) state.Session {
	working := sess.Clone()

	for _, step := range steps {
		if denied, reason := e.denied(ctx, chatID, step); denied {
			log.Printf("agent: step %s denied by policy: %s", step.ID, reason)
			e.Logger.LogDiagnostic(chatID, "executor", fmt.Sprintf("step %s denied: %s", step.ID, reason))
			continue
		}

		e.Logger.LogStep(chatID, step.ID, step.Tool)

		switch toolName(step.Tool) {
		case toolBulkSetState:
			working = e.bulkSetState(working, step)
		case toolPopulateFlashcards:
			working = e.populate(working, step)
		default:
			log.Printf("agent: unknown tool %q in step %s, skipping", step.Tool, step.ID)
		}
	}
	return working
}

func (e *Executor) denied(ctx context.Context, chatID string, step plan.Step) (bool, string) {
	if e.Policy == nil {
		return false, ""
	}
	res, err := e.Policy.Evaluate(ctx, governance.Request{
		Tool:      step.Tool,
		Fields:    stepFields(step),
		Arguments: renderInput(step.Input),
		ChatID:    chatID,
	})
	if err != nil {
		// A broken policy engine fails open with a warning: plans must
		// keep executing.
		log.Printf("agent: policy evaluation for step %s: %v", step.ID, err)
		return false, ""
	}
	return res.Effect == governance.EffectDeny, res.Reason
}

// bulkSetState routes the step's arguments through state reconciliation and
// folds the merged values back by direct field replacement.
func (e *Executor) bulkSetState(working state.Session, step plan.Step) state.Session {
	updates := make([]state.Update, 0, len(step.Input))
	for _, p := range step.Input {
		updates = append(updates, state.Update{Field: p.Key, Value: p.Value})
	}

	doc := working.Document()
	for _, u := range state.Reconcile(doc, updates) {
		if err := working.Set(u.Field, u.Value); err != nil {
			log.Printf("agent: apply field %s from step %s: %v", u.Field, step.ID, err)
		}
	}
	return working
}

// populate rebuilds the flashcard queue for the step's topic argument. The
// queue is only replaced when the repository returns cards, so a bad topic
// id never wipes an in-progress quiz.
func (e *Executor) populate(working state.Session, step plan.Step) state.Session {
	topicID, ok := topicArgument(step.Input)
	if !ok {
		log.Printf("agent: step %s has no usable topic id, skipping", step.ID)
		return working
	}

	cards, err := PopulateFlashcards(e.Repo, topicID)
	if err != nil {
		log.Printf("agent: populate flashcards in step %s: %v", step.ID, err)
		return working
	}
	if len(cards) > 0 {
		working.FlashcardStates = cards
	}
	return working
}

// topicArgument extracts the topic identifier: a "topic_id" key when
// present, otherwise the first argument's value.
func topicArgument(input []plan.Pair) (int64, bool) {
	for _, p := range input {
		if p.Key == "topic_id" {
			return toTopicID(p.Value)
		}
	}
	if len(input) > 0 {
		return toTopicID(input[0].Value)
	}
	return 0, false
}

func toTopicID(v any) (int64, bool) {
	switch n := v.(type) {
	case float64:
		return int64(n), true
	case int64:
		return n, true
	case int:
		return int64(n), true
	case string:
		var id int64
		if _, err := fmt.Sscanf(n, "%d", &id); err == nil {
			return id, true
		}
	}
	return 0, false
}

func stepFields(step plan.Step) []string {
	fields := make([]string, 0, len(step.Input))
	for _, p := range step.Input {
		field, _, _ := strings.Cut(p.Key, ".")
		fields = append(fields, field)
	}
	return fields
}

func renderInput(input []plan.Pair) string {
	parts := make([]string, 0, len(input))
	for _, p := range input {
		parts = append(parts, fmt.Sprintf("%s=%v", p.Key, p.Value))
	}
	return strings.Join(parts, "; ")
}
