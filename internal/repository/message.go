package repository

import (
	"context"
	"fmt"

	"pulasafe/internal/backend"
	"pulasafe/internal/models"
	"pulasafe/internal/observability"
)

// MessageRepository defines the interface for direct message operations
type MessageRepository interface {
	ListForUser(ctx context.Context, userID string) ([]models.Message, error)
	History(ctx context.Context, userID, counterpartID string, legacy bool) ([]models.Message, error)
	Create(ctx context.Context, in models.MessageInsert) (*models.Message, error)
}

type messageRepository struct {
	client *backend.Client
	log    *observability.RepoLogger
}

func NewMessageRepository(client *backend.Client) MessageRepository {
	return &messageRepository{client: client, log: observability.NewRepoLogger(TableMessages)}
}

// ListForUser returns every message the user sent or received, newest first.
func (r *messageRepository) ListForUser(ctx context.Context, userID string) ([]models.Message, error) {
	messages := []models.Message{}
	err := r.client.From(TableMessages).
		Select("*").
		Or(fmt.Sprintf("sender_id.eq.%s,receiver_id.eq.%s", userID, userID)).
		Order("created_at", false).
		Execute(ctx, &messages)
	if err != nil {
		r.log.LogError(ctx, err, "list")
		return nil, err
	}
	r.log.LogRead(ctx, map[string]interface{}{"count": len(messages)})
	return messages, nil
}

// History returns the conversation between userID and counterpartID, oldest
// first. With legacy set only messages received by counterpartID are returned.
func (r *messageRepository) History(ctx context.Context, userID, counterpartID string, legacy bool) ([]models.Message, error) {
	q := r.client.From(TableMessages).Select("*")
	if legacy {
		q = q.Eq("receiver_id", counterpartID)
	} else {
		q = q.Or(fmt.Sprintf("and(sender_id.eq.%s,receiver_id.eq.%s),and(sender_id.eq.%s,receiver_id.eq.%s)",
			userID, counterpartID, counterpartID, userID))
	}

	messages := []models.Message{}
	if err := q.Order("created_at", true).Execute(ctx, &messages); err != nil {
		r.log.LogError(ctx, err, "history")
		return nil, err
	}
	r.log.LogRead(ctx, map[string]interface{}{"counterpart_id": counterpartID, "count": len(messages), "legacy": legacy})
	return messages, nil
}

func (r *messageRepository) Create(ctx context.Context, in models.MessageInsert) (*models.Message, error) {
	var msg models.Message
	if err := r.client.From(TableMessages).Single().Insert(ctx, in, &msg); err != nil {
		r.log.LogError(ctx, err, "create")
		return nil, err
	}
	r.log.LogCreate(ctx, map[string]interface{}{"message_id": msg.ID, "receiver_id": msg.ReceiverID})
	return &msg, nil
}
