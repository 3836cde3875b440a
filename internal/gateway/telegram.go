package gateway

import (
	"context"
	"fmt"
	"log"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/google/uuid"

	"github.com/hamza/chilltutor/internal/agent"
	"github.com/hamza/chilltutor/internal/state"
	"github.com/hamza/chilltutor/internal/store"
)

// conversation is the per-chat slot. The mutex serializes turns so a fast
// second message cannot race the session snapshot of the first.
type conversation struct {
	mu       sync.Mutex
	threadID string
	session  state.Session
}

type TelegramGateway struct {
	Bot          *tgbotapi.BotAPI
	Orchestrator *agent.Orchestrator
	Store        *store.TutorStore

	mu            sync.Mutex
	conversations map[int64]*conversation
}

func NewTelegramGateway(token string, orch *agent.Orchestrator, st *store.TutorStore) (*TelegramGateway, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, err
	}

	log.Printf("Authorized on account %s", bot.Self.UserName)

	return &TelegramGateway{
		Bot:           bot,
		Orchestrator:  orch,
		Store:         st,
		conversations: make(map[int64]*conversation),
	}, nil
}

// conversationFor returns the chat's slot, creating a fresh session seeded
// with the topic catalogue on first contact.
func (tg *TelegramGateway) conversationFor(chatID int64) (*conversation, error) {
	tg.mu.Lock()
	defer tg.mu.Unlock()

	if conv, ok := tg.conversations[chatID]; ok {
		return conv, nil
	}
	sess, err := tg.freshSession()
	if err != nil {
		return nil, err
	}
	conv := &conversation{
		threadID: uuid.NewString(),
		session:  sess,
	}
	tg.conversations[chatID] = conv
	return conv, nil
}

func (tg *TelegramGateway) freshSession() (state.Session, error) {
	records, err := tg.Store.Topics()
	if err != nil {
		return state.Session{}, fmt.Errorf("loading topics: %w", err)
	}
	topics := make([]state.Topic, 0, len(records))
	for _, r := range records {
		topics = append(topics, state.Topic{ID: r.ID, Name: r.Name})
	}
	return state.New(topics), nil
}

func (tg *TelegramGateway) Start() error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := tg.Bot.GetUpdatesChan(u)

	for update := range updates {
		if update.Message == nil {
			continue
		}

		log.Printf("[%s] %s", update.Message.From.UserName, update.Message.Text)

		response := tg.handle(update.Message.Chat.ID, update.Message.Text)
		if response == "" {
			continue
		}

		msg := tgbotapi.NewMessage(update.Message.Chat.ID, response)
		if _, err := tg.Bot.Send(msg); err != nil {
			log.Printf("Error sending reply to %d: %v", update.Message.Chat.ID, err)
		}
	}
	return nil
}

func (tg *TelegramGateway) handle(chatID int64, text string) string {
	conv, err := tg.conversationFor(chatID)
	if err != nil {
		log.Printf("Error opening conversation %d: %v", chatID, err)
		return "I couldn't load the topic list. Please try again in a moment."
	}

	conv.mu.Lock()
	defer conv.mu.Unlock()

	switch text {
	case "/start":
		return "Hey! I'm your GCSE revision buddy. Tell me which topic you'd like to practise and we'll run through some flashcards together."
	case "/reset":
		sess, err := tg.freshSession()
		if err != nil {
			log.Printf("Error resetting conversation %d: %v", chatID, err)
			return "Reset failed, your session is unchanged."
		}
		conv.session = sess
		conv.threadID = uuid.NewString()
		return "Fresh start! Which topic shall we revise?"
	}

	chatKey := fmt.Sprintf("%d", chatID)
	if err := tg.Store.AddTranscript(chatKey, "user", text); err != nil {
		log.Printf("Error recording transcript for %d: %v", chatID, err)
	}

	ctx := context.Background()
	sess, reply, err := tg.Orchestrator.Turn(ctx, conv.threadID, conv.session, text)
	if err != nil {
		log.Printf("Error running turn for %d: %v", chatID, err)
		return "I'm having trouble thinking right now..."
	}
	conv.session = sess

	if err := tg.Store.AddTranscript(chatKey, "assistant", reply); err != nil {
		log.Printf("Error recording transcript for %d: %v", chatID, err)
	}
	return reply
}

func (tg *TelegramGateway) Send(chatID string, text string) error {
	id := 0
	fmt.Sscanf(chatID, "%d", &id)
	if id == 0 {
		return fmt.Errorf("invalid chat ID: %s", chatID)
	}

	msg := tgbotapi.NewMessage(int64(id), text)
	msg.ParseMode = "Markdown"
	_, err := tg.Bot.Send(msg)
	return err
}

func (tg *TelegramGateway) Stop() error {
	tg.Bot.StopReceivingUpdates()
	return nil
}
