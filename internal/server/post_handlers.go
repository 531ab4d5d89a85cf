package server

import (
	"io"

	"pulasafe/internal/models"
	"pulasafe/internal/service"

	"github.com/gofiber/fiber/v2"
)

// GetCategories handles GET /api/categories. It always answers 200; the
// source field says whether the built-in set was used.
func (s *Server) GetCategories(c *fiber.Ctx) error {
	result := s.svc.Categories.ListCategories(c.UserContext(), session(c))
	return c.JSON(fiber.Map{
		"source":     result.Source,
		"categories": result.Categories,
		"tabs":       service.FilterTabs(result),
	})
}

// GetPosts handles GET /api/posts?category=
func (s *Server) GetPosts(c *fiber.Ctx) error {
	posts, err := s.svc.Feed.ListPosts(c.UserContext(), session(c), c.Query("category", models.AllCategories))
	if err != nil {
		return models.Respond(c, err)
	}
	if posts == nil {
		posts = []models.Post{}
	}
	return c.JSON(posts)
}

// CreatePost handles POST /api/posts (multipart: text, category, location, photo)
func (s *Server) CreatePost(c *fiber.Ctx) error {
	ctx := c.UserContext()
	sess := session(c)

	in := service.CreatePostInput{
		Text:     c.FormValue("text"),
		Location: c.FormValue("location"),
	}

	if name := c.FormValue("category"); name != "" {
		category, ok := service.FindCategory(s.svc.Categories.ListCategories(ctx, sess), name)
		if !ok {
			return models.RespondWithError(c, fiber.StatusBadRequest, models.NewValidationError("Unknown category"))
		}
		in.Category = category
	}

	if fh, err := c.FormFile("photo"); err == nil {
		f, err := fh.Open()
		if err != nil {
			return models.RespondWithError(c, fiber.StatusBadRequest, models.NewValidationError("Could not read photo"))
		}
		data, err := io.ReadAll(f)
		_ = f.Close()
		if err != nil {
			return models.RespondWithError(c, fiber.StatusBadRequest, models.NewValidationError("Could not read photo"))
		}
		in.Photo = &service.PhotoInput{Data: data, ContentType: fh.Header.Get(fiber.HeaderContentType)}
	}

	post, err := s.svc.Feed.CreatePost(ctx, sess, in)
	if err != nil {
		return models.Respond(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(post)
}

// ToggleLike handles POST /api/posts/:id/like
func (s *Server) ToggleLike(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	post, err := s.svc.Feed.ToggleLikeByID(c.UserContext(), session(c), id)
	if err != nil {
		return models.Respond(c, err)
	}
	return c.JSON(post)
}

// DeletePost handles DELETE /api/posts/:id
func (s *Server) DeletePost(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	if err := s.svc.Feed.DeletePostByID(c.UserContext(), session(c), id); err != nil {
		return models.Respond(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}
