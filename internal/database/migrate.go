package database

import (
	"context"
	"fmt"
	"log/slog"

	"pulasafe/internal/models"
	"pulasafe/internal/observability"

	"gorm.io/gorm"
)

// PostsViewName is the per-viewer aggregate the feed reads from.
const PostsViewName = "posts_with_comment_counts"

// The viewer comes from the JWT claims PostgREST places on the connection.
// Comments are not stored yet, so comments_count is always zero.
const postsViewSQL = `CREATE OR REPLACE VIEW ` + PostsViewName + ` AS
SELECT
	p.*,
	COALESCE(l.likes_count, 0) AS likes_count,
	0 AS comments_count,
	EXISTS (
		SELECT 1 FROM post_likes pl
		WHERE pl.post_id = p.id
		AND pl.user_id = (NULLIF(current_setting('request.jwt.claims', true), '')::json ->> 'sub')::uuid
	) AS liked_by_current_user
FROM posts p
LEFT JOIN (
	SELECT post_id, COUNT(*)::int AS likes_count FROM post_likes GROUP BY post_id
) l ON l.post_id = p.id`

// Models lists every table the sync layer reads or writes, in dependency order.
func Models() []interface{} {
	return []interface{}{
		&models.Profile{},
		&models.Category{},
		&models.Post{},
		&models.PostLike{},
		&models.Message{},
	}
}

// Migrate creates or updates the tables, then the feed view on postgres.
func Migrate(ctx context.Context, db *gorm.DB) error {
	done := observability.TrackQuery("migrate", "all")
	defer done()

	if err := db.WithContext(ctx).AutoMigrate(Models()...); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}
	if err := EnsureViews(ctx, db); err != nil {
		return err
	}

	observability.GlobalLogger.InfoContext(ctx, "database migration completed")
	return nil
}

// EnsureViews (re)creates the feed view. Dialects other than postgres have no
// JWT claims to read, so they are skipped.
func EnsureViews(ctx context.Context, db *gorm.DB) error {
	if db.Dialector.Name() != "postgres" {
		observability.GlobalLogger.InfoContext(ctx, "skipping view creation",
			slog.String("view", PostsViewName),
			slog.String("dialect", db.Dialector.Name()),
		)
		return nil
	}
	if err := db.WithContext(ctx).Exec(postsViewSQL).Error; err != nil {
		return fmt.Errorf("failed to create view %s: %w", PostsViewName, err)
	}
	return nil
}

// TableStatus reports whether a table exists.
type TableStatus struct {
	Table  string
	Exists bool
}

// Status lists every managed table and whether it exists.
func Status(ctx context.Context, db *gorm.DB) ([]TableStatus, error) {
	migrator := db.WithContext(ctx).Migrator()
	out := make([]TableStatus, 0, len(Models()))
	for _, m := range Models() {
		stmt := &gorm.Statement{DB: db}
		if err := stmt.Parse(m); err != nil {
			return nil, fmt.Errorf("failed to parse model: %w", err)
		}
		out = append(out, TableStatus{
			Table:  stmt.Schema.Table,
			Exists: migrator.HasTable(m),
		})
	}
	return out, nil
}
