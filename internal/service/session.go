// Package service holds the data accessors screens and the gateway call into.
package service

import (
	"context"
	"log/slog"

	"pulasafe/internal/backend"
	"pulasafe/internal/models"
	"pulasafe/internal/observability"
)

// asUser binds the session's token and user to ctx. A nil session leaves ctx
// anonymous, so calls fall back to the API key.
func asUser(ctx context.Context, sess *models.Session) context.Context {
	if sess == nil {
		return ctx
	}
	ctx = backend.WithAccessToken(ctx, sess.AccessToken)
	return observability.WithUserID(ctx, sess.User.ID)
}

func requireSession(sess *models.Session) error {
	if sess == nil || sess.User.ID == "" || sess.AccessToken == "" {
		return models.NewUnauthorizedError("Please sign in to continue")
	}
	return nil
}

// compensation undoes side effects of a multi-step write when a later step fails.
type compensation struct {
	steps []compensationStep
}

type compensationStep struct {
	name string
	undo func(context.Context) error
}

func (c *compensation) record(name string, undo func(context.Context) error) {
	c.steps = append(c.steps, compensationStep{name: name, undo: undo})
}

// run undoes recorded steps newest first. Failures are logged, not returned.
func (c *compensation) run(ctx context.Context) {
	ctx = context.WithoutCancel(ctx)
	for i := len(c.steps) - 1; i >= 0; i-- {
		s := c.steps[i]
		if err := s.undo(ctx); err != nil {
			slog.ErrorContext(ctx, "compensating action failed", slog.String("step", s.name), slog.String("error", err.Error()))
		}
	}
	c.steps = nil
}
