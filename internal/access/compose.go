package access

import (
	"sort"

	"github.com/sakif/navigation/internal/apperror"
	"github.com/sakif/navigation/internal/auth"
	"github.com/sakif/navigation/internal/model"
	"github.com/sakif/navigation/internal/repository"
)

// ComposeCategories orders persisted categories by sortOrder (then id) and,
// for an authenticated caller, prepends the Mine entry. The input slice is
// not modified.
func ComposeCategories(caller *auth.Caller, persisted []model.Category) []model.CategoryView {
	sorted := make([]model.Category, len(persisted))
	copy(sorted, persisted)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].SortOrder != sorted[j].SortOrder {
			return sorted[i].SortOrder < sorted[j].SortOrder
		}
		return sorted[i].ID < sorted[j].ID
	})

	views := make([]model.CategoryView, 0, len(sorted)+1)
	if caller != nil {
		views = append(views, model.MineCategory{})
	}
	for _, c := range sorted {
		views = append(views, model.PersistedCategory{Category: c})
	}
	return views
}

// WebsiteQuery describes which websites a listing returns.
type WebsiteQuery struct {
	// Mine selects the caller's private websites plus their favorites;
	// Filter is unused in that case.
	Mine    bool
	OwnerID int64

	Filter repository.WebsiteFilter
}

// ResolveWebsiteQuery turns an optional categoryId filter into a query.
//
// The Mine id (-1) requires authentication. Otherwise non-admins only see
// public websites and admins see everything. Only the unfiltered listing
// is ordered newest first; a category listing keeps storage order.
func ResolveWebsiteQuery(caller *auth.Caller, categoryID *int64) (WebsiteQuery, error) {
	if categoryID != nil && *categoryID == model.MineCategoryID {
		if caller == nil {
			return WebsiteQuery{}, apperror.Unauthorized("sign in to see your websites")
		}
		return WebsiteQuery{Mine: true, OwnerID: caller.ID}, nil
	}

	filter := repository.WebsiteFilter{
		PublicOnly: !caller.IsAdmin(),
	}
	if categoryID != nil {
		id := *categoryID
		filter.CategoryID = &id
	} else {
		filter.NewestFirst = true
	}
	return WebsiteQuery{Filter: filter}, nil
}

// MergeMine joins the caller's own private websites with their favorites.
// Each id appears once; on a collision the owned entry wins and keeps its
// position, owned entries first.
func MergeMine(owned, favorites []model.Website) []model.Website {
	seen := make(map[int64]struct{}, len(owned)+len(favorites))
	merged := make([]model.Website, 0, len(owned)+len(favorites))

	for _, list := range [][]model.Website{owned, favorites} {
		for _, w := range list {
			if _, dup := seen[w.ID]; dup {
				continue
			}
			seen[w.ID] = struct{}{}
			merged = append(merged, w)
		}
	}
	return merged
}
