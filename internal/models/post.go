// Package models contains data structures for the application's domain models.
package models

import (
	"strings"
	"time"
)

// AllCategories is the feed filter sentinel that disables category filtering.
const AllCategories = "all"

// Defaults applied to a new post when the author leaves a field empty.
const (
	DefaultCategoryName  = "Other"
	DefaultCategoryColor = "#8e44ad"
	DefaultLocation      = "Unknown Location"
)

// Post is an incident report on the community feed.
//
// The engagement fields are not stored on the posts table; they come from the
// posts_with_comment_counts view and are computed per viewer.
type Post struct {
	ID            int64     `gorm:"primaryKey" json:"id"`
	UserID        *string   `gorm:"type:uuid;index" json:"user_id,omitempty"`
	Text          string    `gorm:"type:text;not null" json:"text"`
	Category      string    `gorm:"not null;default:Other" json:"category"`
	CategoryColor string    `gorm:"not null;default:'#8e44ad'" json:"category_color"`
	Location      string    `json:"location"`
	CreatedAt     time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
	HasPhoto      bool      `gorm:"not null;default:false" json:"has_photo"`
	PhotoURL      *string   `json:"photo_url"`
	// LikesCount is computed by the view
	LikesCount int `gorm:"->;-:migration" json:"likes_count"`
	// CommentsCount is computed by the view
	CommentsCount int `gorm:"->;-:migration" json:"comments_count"`
	// LikedByCurrentUser is computed by the view for the requesting user
	LikedByCurrentUser bool `gorm:"->;-:migration" json:"liked_by_current_user"`
}

// PhotoConsistent reports whether HasPhoto agrees with PhotoURL.
func (p *Post) PhotoConsistent() bool {
	return p.HasPhoto == (p.PhotoURL != nil)
}

// MatchesCategory reports whether the post belongs in the listing for filter.
func (p *Post) MatchesCategory(filter string) bool {
	if IsAllCategories(filter) {
		return true
	}
	return strings.EqualFold(p.Category, filter)
}

// IsAllCategories reports whether filter selects every category.
func IsAllCategories(filter string) bool {
	f := strings.TrimSpace(filter)
	return f == "" || strings.EqualFold(f, AllCategories)
}

// PostInsert is the row written to the posts table.
type PostInsert struct {
	UserID        string  `json:"user_id,omitempty"`
	Text          string  `json:"text"`
	Category      string  `json:"category"`
	CategoryColor string  `json:"category_color"`
	Location      string  `json:"location"`
	HasPhoto      bool    `json:"has_photo"`
	PhotoURL      *string `json:"photo_url"`
}

// PostLike records that a user liked a post. One row per (post, user).
type PostLike struct {
	ID        int64     `gorm:"primaryKey" json:"id,omitempty"`
	PostID    int64     `gorm:"not null;uniqueIndex:idx_post_likes_post_user" json:"post_id"`
	UserID    string    `gorm:"type:uuid;not null;uniqueIndex:idx_post_likes_post_user" json:"user_id"`
	Post      *Post     `gorm:"foreignKey:PostID;constraint:OnDelete:CASCADE" json:"-"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at,omitempty"`
}
