// Package model defines the records stored and served by the API.
package model

import (
	"encoding/json"
	"time"
)

// Reserved category values. The "Other" category is created on first use
// and receives the websites of deleted categories.
const (
	ReservedCategoryName      = "Other"
	ReservedCategoryIcon      = "📦"
	ReservedCategorySortOrder = 9999
)

// The per-caller "Mine" entry prepended to category listings.
const (
	MineCategoryID        int64 = -1
	MineCategoryName            = "Mine"
	MineCategoryIcon            = "★"
	MineCategorySortOrder       = -1
)

type Category struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Icon      string    `json:"icon,omitempty"`
	SortOrder int       `json:"sortOrder"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// CategoryView is one entry of a category listing: either a row from the
// categories table (PersistedCategory) or the synthetic MineCategory.
// The unexported marker method closes the set of variants to this package.
type CategoryView interface {
	ViewID() int64
	isCategoryView()
}

// PersistedCategory is a stored category as it appears in a listing.
type PersistedCategory struct {
	Category
}

func (c PersistedCategory) ViewID() int64 { return c.ID }
func (PersistedCategory) isCategoryView() {}

// MineCategory is never stored. It groups the caller's private websites
// and favorites and is only produced for authenticated callers.
type MineCategory struct{}

func (MineCategory) ViewID() int64  { return MineCategoryID }
func (MineCategory) isCategoryView() {}

func (MineCategory) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		ID        int64  `json:"id"`
		Name      string `json:"name"`
		Icon      string `json:"icon"`
		SortOrder int    `json:"sortOrder"`
		Virtual   bool   `json:"virtual"`
	}{
		ID:        MineCategoryID,
		Name:      MineCategoryName,
		Icon:      MineCategoryIcon,
		SortOrder: MineCategorySortOrder,
		Virtual:   true,
	})
}

// CategoryInput is the accepted body of a create request.
type CategoryInput struct {
	Name      string `json:"name"`
	Icon      string `json:"icon"`
	SortOrder int    `json:"sortOrder"`
}

// CategoryPatch is the accepted body of an update request. Nil fields are
// left unchanged.
type CategoryPatch struct {
	Name      *string `json:"name"`
	Icon      *string `json:"icon"`
	SortOrder *int    `json:"sortOrder"`
}
