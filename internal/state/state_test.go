package state

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQuizState_DecodesBothForms(t *testing.T) {
	var obj QuizState
	require.NoError(t, json.Unmarshal([]byte(`{"state": "awaiting_answer", "progress": 2}`), &obj))
	assert.Equal(t, "awaiting_answer", obj.State)
	assert.Equal(t, float64(2), obj.Progress)

	var bare QuizState
	require.NoError(t, json.Unmarshal([]byte(`"awaiting_evaluation"`), &bare))
	assert.Equal(t, "awaiting_evaluation", bare.State)
	assert.Nil(t, bare.Progress)
}

func TestSession_DocumentRoundTrip(t *testing.T) {
	topicID := int64(2)
	sess := Session{
		CurrentTopicID: &topicID,
		QuizState:      QuizState{State: QuizAwaitingAnswer},
		Score:          Score{Correct: 1, TotalAttempts: 2},
		FlashcardStates: []Flashcard{
			{ID: 1, Status: StatusActive, Question: "What is binary?"},
		},
		Extra: map[string]any{"session": map[string]any{"intent": "start_quizzing"}},
	}

	doc := sess.Document()
	assert.Equal(t, float64(2), doc["current_topic_id"])
	assert.Equal(t, map[string]any{"intent": "start_quizzing"}, doc["session"])

	qs := doc["quiz_state"].(map[string]any)
	assert.Equal(t, QuizAwaitingAnswer, qs["state"])

	cards := doc["flashcard_states"].([]any)
	require.Len(t, cards, 1)
	assert.Equal(t, "active", cards[0].(map[string]any)["status"])
}

func TestSession_SetTypedFields(t *testing.T) {
	var sess Session

	require.NoError(t, sess.Set("quiz_state", map[string]any{"state": "awaiting_evaluation"}))
	assert.Equal(t, QuizAwaitingEvaluation, sess.QuizState.State)

	require.NoError(t, sess.Set("quiz_state", "awaiting_answer"))
	assert.Equal(t, QuizAwaitingAnswer, sess.QuizState.State)

	require.NoError(t, sess.Set("current_topic_id", float64(3)))
	require.NotNil(t, sess.CurrentTopicID)
	assert.Equal(t, int64(3), *sess.CurrentTopicID)

	require.NoError(t, sess.Set("flashcard_states", []any{
		map[string]any{"id": float64(1), "status": "active", "user_answers": []any{"an answer"}},
	}))
	require.Len(t, sess.FlashcardStates, 1)
	assert.Equal(t, StatusActive, sess.FlashcardStates[0].Status)
	assert.Equal(t, []string{"an answer"}, sess.FlashcardStates[0].UserAnswers)

	require.NoError(t, sess.Set("score", map[string]any{"correct": float64(2), "total_attempts": float64(3)}))
	assert.Equal(t, Score{Correct: 2, TotalAttempts: 3}, sess.Score)
}

func TestSession_SetUnknownFieldGoesToExtra(t *testing.T) {
	var sess Session
	require.NoError(t, sess.Set("session", map[string]any{"intent": "start_quizzing"}))
	assert.Equal(t, map[string]any{"intent": "start_quizzing"}, sess.Extra["session"])

	// Opaque fields ride back out through the document view.
	assert.Equal(t, map[string]any{"intent": "start_quizzing"}, sess.Document()["session"])
}

func TestSession_CloneIsIndependent(t *testing.T) {
	topicID := int64(1)
	sess := Session{
		CurrentTopicID: &topicID,
		FlashcardStates: []Flashcard{
			{ID: 1, Status: StatusActive, UserAnswers: []string{"first"}},
		},
		Messages: []Message{{Role: "human", Content: "hi"}},
		Extra:    map[string]any{"session": map[string]any{"intent": "chat"}},
	}

	clone := sess.Clone()
	clone.FlashcardStates[0].UserAnswers[0] = "changed"
	clone.FlashcardStates[0].Status = StatusQueued
	*clone.CurrentTopicID = 9
	clone.Messages[0].Content = "bye"
	clone.Extra["session"].(map[string]any)["intent"] = "changed"

	assert.Equal(t, "first", sess.FlashcardStates[0].UserAnswers[0])
	assert.Equal(t, StatusActive, sess.FlashcardStates[0].Status)
	assert.Equal(t, int64(1), *sess.CurrentTopicID)
	assert.Equal(t, "hi", sess.Messages[0].Content)
	assert.Equal(t, "chat", sess.Extra["session"].(map[string]any)["intent"])
}

func TestSession_ActiveIndex(t *testing.T) {
	assert.Equal(t, -1, Session{}.ActiveIndex())

	sess := Session{FlashcardStates: []Flashcard{
		{ID: 1, Status: StatusActive},
		{ID: 2, Status: StatusQueued},
	}}
	assert.Equal(t, 0, sess.ActiveIndex())

	sess.FlashcardStates[0].Status = StatusQueued
	assert.Equal(t, -1, sess.ActiveIndex())
}
