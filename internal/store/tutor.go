// Package store is the SQLite-backed tutor repository: topics, flashcards
// and the conversation transcript.
package store

import (
	"database/sql"

	_ "github.com/glebarez/go-sqlite"
)

type TutorStore struct {
	DB *sql.DB
}

func NewTutorStore(dbPath string) (*TutorStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}

	// Create tables if not exist
	queries := []string{
		`CREATE TABLE IF NOT EXISTS topics (
			id INTEGER PRIMARY KEY,
			name TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS flashcards (
			id INTEGER PRIMARY KEY,
			topic_id INTEGER NOT NULL REFERENCES topics(id),
			question TEXT NOT NULL,
			marking_criteria TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS transcript (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			chat_id TEXT,
			role TEXT,
			content TEXT,
			timestamp DATETIME DEFAULT CURRENT_TIMESTAMP
		);`,
	}
	for _, q := range queries {
		_, err = db.Exec(q)
		if err != nil {
			return nil, err
		}
	}

	return &TutorStore{DB: db}, nil
}

func (s *TutorStore) Close() error {
	return s.DB.Close()
}

// Topics returns all topics in id order.
func (s *TutorStore) Topics() ([]Topic, error) {
	rows, err := s.DB.Query(`SELECT id, name FROM topics ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var topics []Topic
	for rows.Next() {
		var t Topic
		if err := rows.Scan(&t.ID, &t.Name); err != nil {
			return nil, err
		}
		topics = append(topics, t)
	}
	return topics, rows.Err()
}

// FlashcardsByTopic returns all flashcards under a topic in id order. The
// order is stable: the populator turns it into the session queue as-is.
func (s *TutorStore) FlashcardsByTopic(topicID int64) ([]FlashcardRecord, error) {
	query := `SELECT id, topic_id, question, marking_criteria FROM flashcards WHERE topic_id = ? ORDER BY id`
	rows, err := s.DB.Query(query, topicID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var cards []FlashcardRecord
	for rows.Next() {
		var c FlashcardRecord
		if err := rows.Scan(&c.ID, &c.TopicID, &c.Question, &c.MarkingCriteria); err != nil {
			return nil, err
		}
		cards = append(cards, c)
	}
	return cards, rows.Err()
}

// AddTranscript appends one message to a chat's transcript.
func (s *TutorStore) AddTranscript(chatID string, role string, content string) error {
	query := `INSERT INTO transcript (chat_id, role, content) VALUES (?, ?, ?)`
	_, err := s.DB.Exec(query, chatID, role, content)
	return err
}

// Transcript returns the last limit messages for a chat in chronological
// order.
func (s *TutorStore) Transcript(chatID string, limit int) ([]TranscriptEntry, error) {
	query := `SELECT role, content FROM transcript WHERE chat_id = ? ORDER BY timestamp DESC, id DESC LIMIT ?`
	rows, err := s.DB.Query(query, chatID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []TranscriptEntry
	for rows.Next() {
		var e TranscriptEntry
		if err := rows.Scan(&e.Role, &e.Content); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Reverse to get chronological order
	for i, j := 0, len(entries)-1; i < j; i, j = i+1, j-1 {
		entries[i], entries[j] = entries[j], entries[i]
	}
	return entries, nil
}

// TranscriptEntry is one stored transcript message.
type TranscriptEntry struct {
	Role    string
	Content string
}
