package agent

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/hamza/chilltutor/internal/store"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"
)

// fakeModel is a canned llms.Model for chain tests. With responses set it
// plays them back in order; otherwise every call returns response.
type fakeModel struct {
	response  string
	responses []string
	err       error
	calls     int

	lastMessages []llms.MessageContent
}

func (f *fakeModel) GenerateContent(ctx context.Context, messages []llms.MessageContent, _ ...llms.CallOption) (*llms.ContentResponse, error) {
	f.lastMessages = messages
	if f.err != nil {
		return nil, f.err
	}
	content := f.response
	if f.calls < len(f.responses) {
		content = f.responses[f.calls]
	}
	f.calls++
	return &llms.ContentResponse{
		Choices: []*llms.ContentChoice{{Content: content}},
	}, nil
}

func (f *fakeModel) Call(ctx context.Context, prompt string, _ ...llms.CallOption) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return f.response, nil
}

// fakeRepo serves flashcard records from memory.
type fakeRepo struct {
	records map[int64][]store.FlashcardRecord
	err     error
}

func (f *fakeRepo) FlashcardsByTopic(topicID int64) ([]store.FlashcardRecord, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.records[topicID], nil
}

// writePrompts drops minimal prompt files into a temp dir and returns a
// PromptManager over it.
func writePrompts(t *testing.T) *PromptManager {
	t.Helper()
	dir := t.TempDir()
	files := map[string]string{
		"planner.md":   "You are the learning session orchestrator.",
		"evaluator.md": "You mark GCSE answers.",
		"persona.md":   "You are a friendly tutor.",
		"responder.md": "Respond based on the session state.",
	}
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0644))
	}
	return NewPromptManager(dir)
}
