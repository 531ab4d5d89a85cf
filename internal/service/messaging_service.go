package service

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"pulasafe/internal/featureflags"
	"pulasafe/internal/models"
	"pulasafe/internal/repository"

	"github.com/google/uuid"
)

// TimeLayout renders message times like a 12-hour locale time string.
const TimeLayout = "3:04:05 PM"

// MessagingService reads and sends direct messages.
type MessagingService struct {
	messages repository.MessageRepository
	flags    *featureflags.Manager
	loc      *time.Location
}

func NewMessagingService(messages repository.MessageRepository, flags *featureflags.Manager) *MessagingService {
	return &MessagingService{messages: messages, flags: flags, loc: time.Local}
}

// WithLocation sets the zone message times are rendered in.
func (s *MessagingService) WithLocation(loc *time.Location) *MessagingService {
	s.loc = loc
	return s
}

// SendMessageInput is a message to a counterpart. The optional fields are
// the alert context carried over from the conversation.
type SendMessageInput struct {
	ReceiverID  string
	Text        string
	AlertType   *string
	Location    *string
	AvatarURL   *string
	AvatarColor *string
}

// FormatTime renders t the way conversation rows show it.
func (s *MessagingService) FormatTime(t time.Time) string {
	return t.In(s.loc).Format(TimeLayout)
}

// accountID parses an account ID. The repository builds filter expressions from
// these, so anything but a UUID is rejected.
func accountID(raw, msg string) (string, error) {
	id, err := uuid.Parse(strings.TrimSpace(raw))
	if err != nil {
		return "", models.NewValidationError(msg)
	}
	return id.String(), nil
}

// ListConversations returns one entry per visible message, newest first.
func (s *MessagingService) ListConversations(ctx context.Context, sess *models.Session) ([]models.ConversationEntry, error) {
	if err := requireSession(sess); err != nil {
		return nil, err
	}
	if _, err := accountID(sess.User.ID, "Invalid session user"); err != nil {
		return nil, err
	}
	ctx = asUser(ctx, sess)
	messages, err := s.messages.ListForUser(ctx, sess.User.ID)
	if err != nil {
		slog.ErrorContext(ctx, "failed to load messages", slog.String("error", err.Error()))
		return nil, models.NewBackendError("Could not load messages. Please try again.", err)
	}

	me := sess.User.ID
	entries := make([]models.ConversationEntry, 0, len(messages))
	for _, m := range messages {
		name := "Other User"
		if m.SenderID == me {
			name = "You"
		}
		unread := 0
		if !m.IsRead && m.ReceiverID == me {
			unread = 1
		}
		entries = append(entries, models.ConversationEntry{
			MessageID:     m.ID,
			CounterpartID: m.CounterpartOf(me),
			Name:          name,
			LastMessage:   m.Text,
			Time:          s.FormatTime(m.CreatedAt),
			SentAt:        m.CreatedAt,
			UnreadCount:   unread,
			AlertType:     m.AlertType,
			Location:      m.Location,
			Avatar:        m.AvatarURL,
			AvatarColor:   m.AvatarColor,
		})
	}
	return entries, nil
}

// DedupeByCounterpart folds newest-first entries to one row per counterpart,
// keeping the newest message and summing unread counts.
func DedupeByCounterpart(entries []models.ConversationEntry) []models.ConversationEntry {
	out := make([]models.ConversationEntry, 0, len(entries))
	index := make(map[string]int, len(entries))
	for _, e := range entries {
		if i, ok := index[e.CounterpartID]; ok {
			out[i].UnreadCount += e.UnreadCount
			continue
		}
		index[e.CounterpartID] = len(out)
		out = append(out, e)
	}
	return out
}

// FetchHistory returns the conversation with counterpartID, oldest first.
func (s *MessagingService) FetchHistory(ctx context.Context, sess *models.Session, counterpartID string) ([]models.Message, error) {
	if err := requireSession(sess); err != nil {
		return nil, err
	}
	if strings.TrimSpace(counterpartID) == "" {
		return nil, models.NewValidationError("Conversation is required")
	}
	counterpartID, err := accountID(counterpartID, "Invalid conversation")
	if err != nil {
		return nil, err
	}
	me, err := accountID(sess.User.ID, "Invalid session user")
	if err != nil {
		return nil, err
	}
	ctx = asUser(ctx, sess)
	legacy := s.flags.Enabled(featureflags.LegacyHistoryFilter, me)
	messages, err := s.messages.History(ctx, me, counterpartID, legacy)
	if err != nil {
		slog.ErrorContext(ctx, "failed to load chat history", slog.String("counterpart_id", counterpartID), slog.String("error", err.Error()))
		return nil, models.NewBackendError("Could not load chat history. Please try again.", err)
	}
	return messages, nil
}

// SendMessage inserts a message and returns the stored row. Blank text is a
// no-op and returns nil, nil.
func (s *MessagingService) SendMessage(ctx context.Context, sess *models.Session, in SendMessageInput) (*models.Message, error) {
	if strings.TrimSpace(in.Text) == "" {
		return nil, nil
	}
	if err := requireSession(sess); err != nil {
		return nil, err
	}
	if strings.TrimSpace(in.ReceiverID) == "" {
		return nil, models.NewValidationError("Recipient is required")
	}
	receiver, err := accountID(in.ReceiverID, "Invalid recipient")
	if err != nil {
		return nil, err
	}
	if _, err := accountID(sess.User.ID, "Invalid session user"); err != nil {
		return nil, err
	}

	ctx = asUser(ctx, sess)
	msg, err := s.messages.Create(ctx, models.MessageInsert{
		SenderID:    sess.User.ID,
		ReceiverID:  receiver,
		Text:        in.Text,
		AlertType:   in.AlertType,
		Location:    in.Location,
		AvatarURL:   in.AvatarURL,
		AvatarColor: in.AvatarColor,
	})
	if err != nil {
		slog.ErrorContext(ctx, "failed to send message", slog.String("error", err.Error()))
		return nil, models.NewBackendError("Failed to send message", err)
	}
	return msg, nil
}
