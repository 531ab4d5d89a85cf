package view

import (
	"context"
	"slices"
	"sync"

	"pulasafe/internal/inflight"
	"pulasafe/internal/models"
	"pulasafe/internal/service"
)

// ChatAccessor is the subset of service.MessagingService a Chat drives.
type ChatAccessor interface {
	FetchHistory(ctx context.Context, sess *models.Session, counterpartID string) ([]models.Message, error)
	SendMessage(ctx context.Context, sess *models.Session, in service.SendMessageInput) (*models.Message, error)
}

// Topic is the alert context a conversation was opened from. It is copied
// onto every message sent in the chat.
type Topic struct {
	AlertType   *string
	Location    *string
	AvatarURL   *string
	AvatarColor *string
}

// Chat is the history with one counterpart.
type Chat struct {
	messages    ChatAccessor
	session     func() *models.Session
	counterpart string
	topic       Topic
	busy        *inflight.Local

	mu      sync.Mutex
	history []models.Message
}

func NewChat(messages ChatAccessor, session func() *models.Session, counterpartID string, topic Topic) *Chat {
	return &Chat{
		messages:    messages,
		session:     session,
		counterpart: counterpartID,
		topic:       topic,
		busy:        inflight.NewLocal(),
	}
}

// Load replaces the history with a fresh fetch.
func (c *Chat) Load(ctx context.Context) ([]models.Message, error) {
	release, err := c.busy.Acquire(ctx, "load_history", c.counterpart)
	if err != nil {
		return nil, err
	}
	defer release()

	history, err := c.messages.FetchHistory(ctx, c.session(), c.counterpart)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.history = history
	return slices.Clone(history), nil
}

// Send posts text and appends the stored row. Blank text sends nothing and
// returns nil, nil.
func (c *Chat) Send(ctx context.Context, text string) (*models.Message, error) {
	release, err := c.busy.Acquire(ctx, "send_message", c.counterpart)
	if err != nil {
		return nil, err
	}
	defer release()

	msg, err := c.messages.SendMessage(ctx, c.session(), service.SendMessageInput{
		ReceiverID:  c.counterpart,
		Text:        text,
		AlertType:   c.topic.AlertType,
		Location:    c.topic.Location,
		AvatarURL:   c.topic.AvatarURL,
		AvatarColor: c.topic.AvatarColor,
	})
	if err != nil || msg == nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.history = append(c.history, *msg)
	return msg, nil
}

// Messages returns the loaded history, oldest first.
func (c *Chat) Messages() []models.Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.history)
}
