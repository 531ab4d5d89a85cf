package server

import (
	"pulasafe/internal/models"
	"pulasafe/internal/service"

	"github.com/gofiber/fiber/v2"
)

// GetConversations handles GET /api/messages. With ?dedupe=true the list
// has one row per counterpart.
func (s *Server) GetConversations(c *fiber.Ctx) error {
	entries, err := s.svc.Messaging.ListConversations(c.UserContext(), session(c))
	if err != nil {
		return models.Respond(c, err)
	}
	if c.QueryBool("dedupe") {
		entries = service.DedupeByCounterpart(entries)
	}
	return c.JSON(entries)
}

// GetHistory handles GET /api/messages/:counterpartId
func (s *Server) GetHistory(c *fiber.Ctx) error {
	counterpart, err := parseUserID(c, "counterpartId")
	if err != nil {
		return nil
	}
	messages, err := s.svc.Messaging.FetchHistory(c.UserContext(), session(c), counterpart)
	if err != nil {
		return models.Respond(c, err)
	}
	if messages == nil {
		messages = []models.Message{}
	}
	return c.JSON(messages)
}

type sendMessageRequest struct {
	Text        string  `json:"text"`
	AlertType   *string `json:"alert_type"`
	Location    *string `json:"location"`
	AvatarURL   *string `json:"avatar_url"`
	AvatarColor *string `json:"avatar_color"`
}

// SendMessage handles POST /api/messages/:counterpartId. Blank text sends
// nothing and answers 204.
func (s *Server) SendMessage(c *fiber.Ctx) error {
	counterpart, err := parseUserID(c, "counterpartId")
	if err != nil {
		return nil
	}
	var req sendMessageRequest
	if err := parseBody(c, &req); err != nil {
		return nil
	}

	msg, err := s.svc.Messaging.SendMessage(c.UserContext(), session(c), service.SendMessageInput{
		ReceiverID:  counterpart,
		Text:        req.Text,
		AlertType:   req.AlertType,
		Location:    req.Location,
		AvatarURL:   req.AvatarURL,
		AvatarColor: req.AvatarColor,
	})
	if err != nil {
		return models.Respond(c, err)
	}
	if msg == nil {
		return c.SendStatus(fiber.StatusNoContent)
	}
	return c.Status(fiber.StatusCreated).JSON(msg)
}
