package observability

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"
)

// EventType defines the category of the log event.
type EventType string

const (
	EventTypePlan       EventType = "plan"
	EventTypeStep       EventType = "step"
	EventTypeToolCall   EventType = "tool_call"
	EventTypeRoute      EventType = "route"
	EventTypeEvaluation EventType = "evaluation"
	EventTypeDiagnostic EventType = "diagnostic"
	EventTypeHeartbeat  EventType = "heartbeat"
	EventTypeLLM        EventType = "llm"
)

// Event represents a structured log entry.
type Event struct {
	Type      EventType `json:"type"`
	ChatID    string    `json:"chat_id,omitempty"`
	ThreadID  string    `json:"thread_id,omitempty"`
	Data      any       `json:"data"`
	Timestamp time.Time `json:"timestamp"`
}

// Logger handles structured logging.
type Logger struct {
	llmLogPath string
	maxSize    int64
}

func NewLogger() *Logger {
	return &Logger{
		llmLogPath: filepath.Join("logs", "llm.jsonl"),
		maxSize:    10 * 1024 * 1024, // 10MB
	}
}

// Log emits a structured JSON event to stdout. Safe on a nil receiver so
// core stages can run without a logger wired in.
func (l *Logger) Log(evt Event) {
	if l == nil {
		return
	}
	if evt.Timestamp.IsZero() {
		evt.Timestamp = time.Now()
	}
	data, err := json.Marshal(evt)
	if err != nil {
		fmt.Printf("{\"error\": \"failed to marshal event: %v\"}\n", err)
		return
	}
	fmt.Println(string(data))

	if evt.Type == EventTypeLLM {
		l.writeToFile(data)
	}
}

func (l *Logger) writeToFile(data []byte) {
	if err := os.MkdirAll(filepath.Dir(l.llmLogPath), 0755); err != nil {
		log.Printf("failed to create log directory: %v", err)
		return
	}

	// Check size before writing
	info, err := os.Stat(l.llmLogPath)
	if err == nil && info.Size() > l.maxSize {
		l.rotateLogs()
	}

	f, err := os.OpenFile(l.llmLogPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		log.Printf("failed to open log file: %v", err)
		return
	}
	defer f.Close()

	if _, err := f.Write(append(data, '\n')); err != nil {
		log.Printf("failed to write to log file: %v", err)
	}
}

func (l *Logger) rotateLogs() {
	// Simple rotation: keep one .old file
	oldPath := l.llmLogPath + ".old"
	_ = os.Remove(oldPath)
	_ = os.Rename(l.llmLogPath, oldPath)
}

// Helper methods for common events

func (l *Logger) LogPlan(chatID, description string, stepCount int) {
	l.Log(Event{
		Type:   EventTypePlan,
		ChatID: chatID,
		Data: map[string]any{
			"description": description,
			"steps":       stepCount,
		},
	})
}

func (l *Logger) LogStep(chatID, stepID, tool string) {
	l.Log(Event{
		Type:   EventTypeStep,
		ChatID: chatID,
		Data: map[string]string{
			"step_id": stepID,
			"tool":    tool,
		},
	})
}

func (l *Logger) LogRoute(chatID, branch string) {
	l.Log(Event{
		Type:   EventTypeRoute,
		ChatID: chatID,
		Data:   map[string]string{"branch": branch},
	})
}

func (l *Logger) LogEvaluation(chatID string, flashcardID int64, result string, score float64) {
	l.Log(Event{
		Type:   EventTypeEvaluation,
		ChatID: chatID,
		Data: map[string]any{
			"flashcard_id": flashcardID,
			"result":       result,
			"score":        score,
		},
	})
}

func (l *Logger) LogDiagnostic(chatID, stage, detail string) {
	l.Log(Event{
		Type:   EventTypeDiagnostic,
		ChatID: chatID,
		Data: map[string]string{
			"stage":  stage,
			"detail": detail,
		},
	})
}

func (l *Logger) LogHeartbeat() {
	l.Log(Event{
		Type: EventTypeHeartbeat,
		Data: map[string]string{"status": "alive"},
	})
}

func (l *Logger) LogLLM(chatID, threadID string, stage string, response string) {
	l.Log(Event{
		Type:     EventTypeLLM,
		ChatID:   chatID,
		ThreadID: threadID,
		Data: map[string]any{
			"stage":    stage,
			"response": response,
		},
	})
}
