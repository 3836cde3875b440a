// Package agent runs the tutoring pipeline: plan the next learning steps,
// execute them against the session state, then mark or respond.
package agent

import (
	"context"
	"fmt"

	"github.com/hamza/chilltutor/internal/governance"
	"github.com/hamza/chilltutor/internal/observability"
	"github.com/hamza/chilltutor/internal/state"
	"github.com/tmc/langchaingo/llms"
)

// Orchestrator wires one conversational turn end to end:
// planner -> executor -> (evaluator ->)? responder.
type Orchestrator struct {
	Planner   *Planner
	Executor  *Executor
	Evaluator *Evaluator
	Responder *Responder
	Logger    *observability.Logger
}

func NewOrchestrator(model llms.Model, repo FlashcardRepository, policy governance.PolicyEngine, prompts *PromptManager, logger *observability.Logger) *Orchestrator {
	return &Orchestrator{
		Planner:   NewPlanner(model, prompts, logger),
		Executor:  NewExecutor(repo, policy, logger),
		Evaluator: NewEvaluator(model, prompts, logger),
		Responder: NewResponder(model, prompts, logger),
		Logger:    logger,
	}
}

// Turn processes one user message and returns the updated session plus the
// reply text. The session is threaded by value: on success the returned
// session replaces the caller's snapshot atomically, on error the caller's
// snapshot is returned untouched. Callers must serialize turns per chat.
func (o *Orchestrator) Turn(ctx context.Context, chatID string, sess state.Session, userText string) (state.Session, string, error) {
	working := sess.Clone()
	working.Messages = append(working.Messages, state.Message{Role: "human", Content: userText})

	observability.SetStatus(observability.RolePlanning, chatID)
	working, steps, err := o.Planner.Plan(ctx, chatID, working)
	if err != nil {
		observability.SetStatus(observability.RoleIdle, "")
		return sess, "", fmt.Errorf("generate plan: %w", err)
	}

	observability.SetStatus(observability.RoleExecuting, chatID)
	working = o.Executor.Execute(ctx, chatID, working, steps)

	branch := RouteQuiz(working.QuizState)
	o.Logger.LogRoute(chatID, string(branch))

	if branch == BranchEvaluation {
		observability.SetStatus(observability.RoleEvaluating, chatID)
		working, err = o.Evaluator.Evaluate(ctx, chatID, working)
		if err != nil {
			observability.SetStatus(observability.RoleIdle, "")
			return sess, "", fmt.Errorf("evaluate answer: %w", err)
		}
	}

	observability.SetStatus(observability.RoleResponding, chatID)
	working, reply, err := o.Responder.Respond(ctx, chatID, working)
	observability.SetStatus(observability.RoleIdle, "")
	if err != nil {
		return sess, "", fmt.Errorf("generate response: %w", err)
	}
	return working, reply, nil
}
