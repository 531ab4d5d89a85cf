package models

import "time"

// Message is a direct message between two users.
type Message struct {
	ID          int64     `gorm:"primaryKey" json:"id"`
	SenderID    string    `gorm:"type:uuid;not null;index" json:"sender_id"`
	ReceiverID  string    `gorm:"type:uuid;not null;index" json:"receiver_id"`
	Text        string    `gorm:"type:text;not null" json:"text"`
	CreatedAt   time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
	IsRead      bool      `gorm:"not null;default:false" json:"is_read"`
	AlertType   *string   `json:"alert_type"`
	Location    *string   `json:"location"`
	AvatarURL   *string   `json:"avatar_url"`
	AvatarColor *string   `json:"avatar_color"`
}

// CounterpartOf returns the other party of the message as seen by userID.
func (m *Message) CounterpartOf(userID string) string {
	if m.SenderID == userID {
		return m.ReceiverID
	}
	return m.SenderID
}

// MessageInsert is the row written to the messages table.
type MessageInsert struct {
	SenderID    string  `json:"sender_id"`
	ReceiverID  string  `json:"receiver_id"`
	Text        string  `json:"text"`
	AlertType   *string `json:"alert_type,omitempty"`
	Location    *string `json:"location,omitempty"`
	AvatarURL   *string `json:"avatar_url,omitempty"`
	AvatarColor *string `json:"avatar_color,omitempty"`
}

// ConversationEntry is a display row of the messaging inbox.
type ConversationEntry struct {
	MessageID     int64     `json:"message_id"`
	CounterpartID string    `json:"counterpart_id"`
	Name          string    `json:"name"`
	LastMessage   string    `json:"last_message"`
	Time          string    `json:"time"`
	SentAt        time.Time `json:"sent_at"`
	UnreadCount   int       `json:"unread_count"`
	AlertType     *string   `json:"alert_type,omitempty"`
	Location      *string   `json:"location,omitempty"`
	Avatar        *string   `json:"avatar,omitempty"`
	AvatarColor   *string   `json:"avatar_color,omitempty"`
}
