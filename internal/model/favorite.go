package model

import "time"

// Favorite records that a user starred a website. At most one row exists
// per (UserID, WebsiteID).
type Favorite struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"userId"`
	WebsiteID int64     `json:"websiteId"`
	CreatedAt time.Time `json:"createdAt"`
}
