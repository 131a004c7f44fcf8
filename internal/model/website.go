package model

import "time"

type Website struct {
	ID          int64  `json:"id"`
	Title       string `json:"title"`
	URL         string `json:"url"`
	Description string `json:"description,omitempty"`
	Icon        string `json:"icon,omitempty"`

	// CategoryID is nil for "mine" entries, which are private to their owner.
	CategoryID *int64 `json:"categoryId"`
	// UserID is nil for legacy rows created without an owner.
	UserID *int64 `json:"userId"`

	IsPublic  bool      `json:"isPublic"`
	Clicks    int64     `json:"clicks"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`

	Category *Category `json:"category,omitempty"`
}

// OwnedBy reports whether userID owns the website.
func (w *Website) OwnedBy(userID int64) bool {
	return w.UserID != nil && *w.UserID == userID
}

// WebsiteInput is the accepted body of a create request.
type WebsiteInput struct {
	Title       string `json:"title"`
	URL         string `json:"url"`
	Description string `json:"description"`
	Icon        string `json:"icon"`
	CategoryID  *int64 `json:"categoryId"`
	IsPublic    *bool  `json:"isPublic"`
}

// WebsitePatch is the accepted body of an update request. Nil fields are
// left unchanged.
type WebsitePatch struct {
	Title       *string `json:"title"`
	URL         *string `json:"url"`
	Description *string `json:"description"`
	Icon        *string `json:"icon"`
	CategoryID  *int64  `json:"categoryId"`
	IsPublic    *bool   `json:"isPublic"`
}
