package service

import (
	"context"
	"testing"
	"time"

	"pulasafe/internal/featureflags"
	"pulasafe/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const otherUser = "22222222-2222-4222-8222-222222222222"

func strPtr(s string) *string { return &s }

func newMessaging(repo *messageRepoStub, flags string) *MessagingService {
	return NewMessagingService(repo, featureflags.NewManager(flags)).WithLocation(time.UTC)
}

func TestMessagingService_ListConversations(t *testing.T) {
	me := testSession().User.ID
	at := time.Date(2025, 3, 14, 15, 4, 5, 0, time.UTC)
	var gotUser string
	repo := &messageRepoStub{listForUserFn: func(_ context.Context, userID string) ([]models.Message, error) {
		gotUser = userID
		return []models.Message{
			{ID: 3, SenderID: otherUser, ReceiverID: me, Text: "Are you safe?", CreatedAt: at, IsRead: false, AlertType: strPtr("Fire")},
			{ID: 2, SenderID: me, ReceiverID: otherUser, Text: "On my way", CreatedAt: at.Add(-time.Hour), IsRead: false},
			{ID: 1, SenderID: otherUser, ReceiverID: me, Text: "hello", CreatedAt: at.Add(-2 * time.Hour), IsRead: true},
		}, nil
	}}

	entries, err := newMessaging(repo, "").ListConversations(context.Background(), testSession())
	require.NoError(t, err)
	assert.Equal(t, me, gotUser)
	require.Len(t, entries, 3)

	assert.Equal(t, "Other User", entries[0].Name)
	assert.Equal(t, otherUser, entries[0].CounterpartID)
	assert.Equal(t, "3:04:05 PM", entries[0].Time)
	assert.Equal(t, 1, entries[0].UnreadCount)
	assert.Equal(t, "Fire", *entries[0].AlertType)

	assert.Equal(t, "You", entries[1].Name)
	assert.Equal(t, otherUser, entries[1].CounterpartID)
	assert.Equal(t, 0, entries[1].UnreadCount, "own unread messages do not count")

	assert.Equal(t, 0, entries[2].UnreadCount)
}

func TestMessagingService_ListConversationsErrors(t *testing.T) {
	repo := &messageRepoStub{listForUserFn: func(context.Context, string) ([]models.Message, error) {
		return nil, errBackendDown
	}}
	svc := newMessaging(repo, "")

	_, err := svc.ListConversations(context.Background(), testSession())
	assertBackendError(t, err)

	_, err = svc.ListConversations(context.Background(), nil)
	assertCode(t, err, models.CodeUnauthorized)
}

func TestDedupeByCounterpart(t *testing.T) {
	entries := []models.ConversationEntry{
		{MessageID: 5, CounterpartID: "a", UnreadCount: 1},
		{MessageID: 4, CounterpartID: "b", UnreadCount: 0},
		{MessageID: 3, CounterpartID: "a", UnreadCount: 1},
		{MessageID: 2, CounterpartID: "a", UnreadCount: 0},
	}

	got := DedupeByCounterpart(entries)
	require.Len(t, got, 2)
	assert.Equal(t, int64(5), got[0].MessageID)
	assert.Equal(t, 2, got[0].UnreadCount)
	assert.Equal(t, int64(4), got[1].MessageID)
}

func TestMessagingService_FetchHistory(t *testing.T) {
	tests := []struct {
		name       string
		flags      string
		wantLegacy bool
	}{
		{"pairwise by default", "", false},
		{"legacy filter flag", "legacy_history_filter=on", true},
		{"flag off", "legacy_history_filter=off", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotLegacy bool
			var gotCounterpart string
			repo := &messageRepoStub{historyFn: func(_ context.Context, _ string, cp string, legacy bool) ([]models.Message, error) {
				gotLegacy = legacy
				gotCounterpart = cp
				return []models.Message{{ID: 1}, {ID: 2}}, nil
			}}

			msgs, err := newMessaging(repo, tt.flags).FetchHistory(context.Background(), testSession(), " "+otherUser+" ")
			require.NoError(t, err)
			assert.Len(t, msgs, 2)
			assert.Equal(t, tt.wantLegacy, gotLegacy)
			assert.Equal(t, otherUser, gotCounterpart)
		})
	}
}

func TestMessagingService_FetchHistoryValidation(t *testing.T) {
	repo := &messageRepoStub{historyFn: func(context.Context, string, string, bool) ([]models.Message, error) {
		t.Error("history must not be queried")
		return nil, nil
	}}
	svc := newMessaging(repo, "")

	tests := []struct {
		name        string
		sess        *models.Session
		counterpart string
	}{
		{"blank counterpart", testSession(), "  "},
		{"not a uuid", testSession(), "peer"},
		{"filter grammar", testSession(), "x,receiver_id.neq.nobody),and(sender_id.neq.me"},
		{"session user not a uuid", &models.Session{AccessToken: "t", User: models.User{ID: "me"}}, otherUser},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.FetchHistory(context.Background(), tt.sess, tt.counterpart)
			assertValidationError(t, err)
		})
	}
}

func TestMessagingService_SendBlankIsNoop(t *testing.T) {
	repo := &messageRepoStub{createFn: func(context.Context, models.MessageInsert) (*models.Message, error) {
		t.Fatal("create must not be called")
		return nil, nil
	}}

	msg, err := newMessaging(repo, "").SendMessage(context.Background(), nil, SendMessageInput{Text: "   "})
	assert.NoError(t, err)
	assert.Nil(t, msg)
}

func TestMessagingService_SendCarriesContext(t *testing.T) {
	var got models.MessageInsert
	repo := &messageRepoStub{createFn: func(_ context.Context, in models.MessageInsert) (*models.Message, error) {
		got = in
		return &models.Message{ID: 10, SenderID: in.SenderID, ReceiverID: in.ReceiverID, Text: in.Text}, nil
	}}

	msg, err := newMessaging(repo, "").SendMessage(context.Background(), testSession(), SendMessageInput{
		ReceiverID:  otherUser,
		Text:        "Stay indoors",
		AlertType:   strPtr("Flooding"),
		Location:    strPtr("Gaborone"),
		AvatarColor: strPtr("#4285F4"),
	})
	require.NoError(t, err)
	assert.Equal(t, int64(10), msg.ID)
	assert.Equal(t, testSession().User.ID, got.SenderID)
	assert.Equal(t, otherUser, got.ReceiverID)
	assert.Equal(t, "Flooding", *got.AlertType)
	assert.Equal(t, "Gaborone", *got.Location)
	assert.Nil(t, got.AvatarURL)
	assert.Equal(t, "#4285F4", *got.AvatarColor)
}

func TestMessagingService_SendErrors(t *testing.T) {
	repo := &messageRepoStub{createFn: func(context.Context, models.MessageInsert) (*models.Message, error) {
		return nil, errBackendDown
	}}
	svc := newMessaging(repo, "")

	_, err := svc.SendMessage(context.Background(), nil, SendMessageInput{ReceiverID: otherUser, Text: "hi"})
	assertCode(t, err, models.CodeUnauthorized)

	_, err = svc.SendMessage(context.Background(), testSession(), SendMessageInput{Text: "hi"})
	assertValidationError(t, err)

	_, err = svc.SendMessage(context.Background(), testSession(), SendMessageInput{ReceiverID: "x),and(sender_id.neq.me", Text: "hi"})
	assertValidationError(t, err)

	_, err = svc.SendMessage(context.Background(), testSession(), SendMessageInput{ReceiverID: otherUser, Text: "hi"})
	assertBackendError(t, err)
}
