package models

// Category is an incident category used for feed filtering and post creation.
type Category struct {
	ID    int64  `gorm:"primaryKey" json:"id"`
	Name  string `gorm:"not null;uniqueIndex" json:"name"`
	Color string `gorm:"not null" json:"color"`
}

// CategorySource tells where a category set came from.
type CategorySource string

const (
	CategorySourceRemote   CategorySource = "remote"
	CategorySourceFallback CategorySource = "fallback"
)

// CategoryResult is a category set tagged with its origin. Consumers render
// both sources the same way.
type CategoryResult struct {
	Source     CategorySource `json:"source"`
	Categories []Category     `json:"categories"`
}

// FilterTab is one entry of the feed filter bar.
type FilterTab struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// FallbackCategories returns the built-in category set used when the backend
// cannot be reached. A fresh slice is returned on every call.
func FallbackCategories() []Category {
	return []Category{
		{ID: 1, Name: "Flooding", Color: "#4285F4"},
		{ID: 2, Name: "Fire", Color: "#EA4335"},
		{ID: 3, Name: "Power Outage", Color: "#FBBC05"},
		{ID: 4, Name: "Infrastructure", Color: "#34A853"},
		{ID: 5, Name: "Other", Color: "#8e44ad"},
	}
}
