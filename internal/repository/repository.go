// Package repository declares the storage contracts used by the service
// layer. The sqlite subpackage implements all of them on one *sql.DB.
package repository

import (
	"context"

	"github.com/sakif/navigation/internal/model"
)

// TxManager runs fn inside a transaction. Repository calls made with the
// context passed to fn join that transaction. fn's error rolls it back.
type TxManager interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

type CategoryRepository interface {
	Create(ctx context.Context, category *model.Category) error
	GetByID(ctx context.Context, id int64) (*model.Category, error)
	GetByName(ctx context.Context, name string) (*model.Category, error)
	List(ctx context.Context) ([]model.Category, error)
	Update(ctx context.Context, category *model.Category) error
	Delete(ctx context.Context, id int64) error

	// GetOrCreate returns the category named c.Name, inserting c first if
	// none exists. Safe under concurrent first use.
	GetOrCreate(ctx context.Context, c model.Category) (*model.Category, error)
}

// WebsiteFilter selects websites for a listing.
type WebsiteFilter struct {
	CategoryID  *int64 // nil: any category
	PublicOnly  bool
	NewestFirst bool // ORDER BY created_at DESC; otherwise storage order
}

type WebsiteRepository interface {
	Create(ctx context.Context, website *model.Website) error
	GetByID(ctx context.Context, id int64) (*model.Website, error)
	List(ctx context.Context, filter WebsiteFilter) ([]model.Website, error)
	ListPrivateByOwner(ctx context.Context, userID int64) ([]model.Website, error)
	ListFavoritedBy(ctx context.Context, userID int64) ([]model.Website, error)
	Update(ctx context.Context, website *model.Website) error
	Delete(ctx context.Context, id int64) error
	IncrementClicks(ctx context.Context, id int64) error

	// ReassignCategory moves every website in category from to category to
	// and returns how many moved.
	ReassignCategory(ctx context.Context, from, to int64) (int64, error)
	// ExistsInCategory reports whether a website with url is filed under
	// categoryID.
	ExistsInCategory(ctx context.Context, categoryID int64, url string) (bool, error)
}

type FavoriteRepository interface {
	// Add inserts the pair; an existing pair is left as is.
	Add(ctx context.Context, userID, websiteID int64) error
	// Remove deletes the pair if present.
	Remove(ctx context.Context, userID, websiteID int64) error
	Exists(ctx context.Context, userID, websiteID int64) (bool, error)
	DeleteByWebsite(ctx context.Context, websiteID int64) (int64, error)
}
