package models

// Profile holds the public details of a user.
type Profile struct {
	ID          string  `gorm:"type:uuid;primaryKey" json:"id"`
	FullName    string  `json:"full_name"`
	Email       string  `gorm:"index" json:"email"`
	PhoneNumber string  `json:"phone_number"`
	AvatarURL   *string `json:"avatar_url"`
}
