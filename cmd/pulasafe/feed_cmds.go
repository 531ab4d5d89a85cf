package main

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"pulasafe/internal/models"
	"pulasafe/internal/service"
	"pulasafe/internal/view"

	"github.com/spf13/cobra"
)

func newCategoriesCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "categories",
		Short: "List incident categories",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			res := a.categories.ListCategories(cmd.Context(), a.session())
			return a.emit(res, func(w io.Writer) {
				tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
				for _, c := range res.Categories {
					fmt.Fprintf(tw, "%s\t%s\n", c.Name, c.Color)
				}
				_ = tw.Flush()
				if res.Source == models.CategorySourceFallback {
					fmt.Fprintln(w, "(offline: built-in categories)")
				}
			})
		},
	}
}

func newFeedCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "feed [category]",
		Short: "Show the newest posts, optionally for one category",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			filter := models.AllCategories
			if len(args) == 1 {
				filter = args[0]
			}
			posts, err := view.NewFeed(a.feed, a.session).Refresh(cmd.Context(), filter)
			if err != nil {
				return a.readFailed(err, "No posts to show.")
			}
			return a.emit(posts, func(w io.Writer) {
				printPosts(w, posts)
			})
		},
	}
}

func printPosts(w io.Writer, posts []models.Post) {
	if len(posts) == 0 {
		fmt.Fprintln(w, "No posts yet.")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tCATEGORY\tLOCATION\tPOSTED\tLIKES\tTEXT")
	for _, p := range posts {
		likes := strconv.Itoa(p.LikesCount)
		if p.LikedByCurrentUser {
			likes += "*"
		}
		text := p.Text
		if p.HasPhoto {
			text += " [photo]"
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\n",
			p.ID, p.Category, p.Location, p.CreatedAt.Local().Format("Jan 2 15:04"), likes, text)
	}
	_ = tw.Flush()
}

func newPostCmd(a *app) *cobra.Command {
	var text, category, location, photoPath string
	cmd := &cobra.Command{
		Use:   "post",
		Short: "Report an incident",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			in := service.CreatePostInput{Text: text, Location: location}

			if category != "" {
				c, ok := service.FindCategory(a.categories.ListCategories(ctx, a.session()), category)
				if !ok {
					return models.NewValidationError(fmt.Sprintf("Unknown category %q", category))
				}
				in.Category = c
			}

			if photoPath != "" {
				data, err := os.ReadFile(photoPath)
				if err != nil {
					return fmt.Errorf("read photo: %w", err)
				}
				in.Photo = &service.PhotoInput{Data: data, ContentType: http.DetectContentType(data)}
			}

			post, err := view.NewFeed(a.feed, a.session).Create(ctx, in)
			if err != nil {
				return err
			}
			return a.emit(post, func(w io.Writer) {
				fmt.Fprintf(w, "Posted #%d", post.ID)
				if photoPath != "" && !post.HasPhoto {
					fmt.Fprint(w, " (photo upload failed, posted without it)")
				}
				fmt.Fprintln(w)
			})
		},
	}
	cmd.Flags().StringVar(&text, "text", "", "What is happening")
	cmd.Flags().StringVar(&category, "category", "", "Category name (default Other)")
	cmd.Flags().StringVar(&location, "location", "", "Where it is happening")
	cmd.Flags().StringVar(&photoPath, "photo", "", "Path to a photo to attach")
	return cmd
}

// loadedFeed returns a feed with the "all" listing fetched so posts can be
// acted on by ID.
func loadedFeed(cmd *cobra.Command, a *app) (*view.Feed, error) {
	feed := view.NewFeed(a.feed, a.session)
	if _, err := feed.Refresh(cmd.Context(), models.AllCategories); err != nil {
		return nil, err
	}
	return feed, nil
}

func postID(arg string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimPrefix(arg, "#"), 10, 64)
	if err != nil || id <= 0 {
		return 0, models.NewValidationError("Invalid post ID")
	}
	return id, nil
}

func newLikeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "like <post-id>",
		Short: "Like a post, or unlike it if already liked",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := postID(args[0])
			if err != nil {
				return err
			}
			feed, err := loadedFeed(cmd, a)
			if err != nil {
				return err
			}
			post, err := feed.ToggleLike(cmd.Context(), id)
			if err != nil {
				return err
			}
			return a.emit(post, func(w io.Writer) {
				verb := "Unliked"
				if post.LikedByCurrentUser {
					verb = "Liked"
				}
				fmt.Fprintf(w, "%s #%d (%d likes)\n", verb, post.ID, post.LikesCount)
			})
		},
	}
}

func newDeleteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <post-id>",
		Short: "Delete a post and its photo",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := postID(args[0])
			if err != nil {
				return err
			}
			feed, err := loadedFeed(cmd, a)
			if err != nil {
				return err
			}
			if err := feed.Delete(cmd.Context(), id); err != nil {
				return err
			}
			return a.emit(map[string]any{"deleted": id, "at": time.Now().UTC()}, func(w io.Writer) {
				fmt.Fprintf(w, "Deleted #%d\n", id)
			})
		},
	}
}
