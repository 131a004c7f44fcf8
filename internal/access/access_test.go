package access

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/navigation/internal/apperror"
	"github.com/sakif/navigation/internal/auth"
	"github.com/sakif/navigation/internal/model"
)

func ptr[T any](v T) *T { return &v }

var (
	guest      = &auth.Caller{ID: 10, Username: "g", Role: auth.RoleGuest}
	user       = &auth.Caller{ID: 1, Username: "u", Role: auth.RoleUser}
	otherUser  = &auth.Caller{ID: 2, Username: "o", Role: auth.RoleUser}
	premium    = &auth.Caller{ID: 3, Username: "p", Role: auth.RolePremium}
	admin      = &auth.Caller{ID: 4, Username: "a", Role: auth.RoleAdmin}
	superAdmin = &auth.Caller{ID: 5, Username: "s", Role: auth.RoleSuperAdmin}
)

func privateOwnedBy(id int64) *model.Website {
	return &model.Website{ID: 99, UserID: ptr(id), IsPublic: false}
}

// =========================================================================
// ROLE GATES
// =========================================================================

func TestRequireRole(t *testing.T) {
	tests := []struct {
		name    string
		caller  *auth.Caller
		need    auth.Role
		wantErr error
	}{
		{"anonymous is unauthorized", nil, auth.RoleUser, apperror.ErrUnauthorized},
		{"guest below user is forbidden", guest, auth.RoleUser, apperror.ErrForbidden},
		{"user meets user", user, auth.RoleUser, nil},
		{"premium meets user", premium, auth.RoleUser, nil},
		{"premium below admin", premium, auth.RoleAdmin, apperror.ErrForbidden},
		{"admin meets admin", admin, auth.RoleAdmin, nil},
		{"super admin meets admin", superAdmin, auth.RoleAdmin, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := RequireRole(tt.caller, tt.need)
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.True(t, errors.Is(err, tt.wantErr), "got %v, want %v", err, tt.wantErr)
		})
	}
}

// =========================================================================
// READ SINGLE WEBSITE
// =========================================================================

func TestCanReadWebsite(t *testing.T) {
	public := &model.Website{ID: 1, IsPublic: true}
	private := privateOwnedBy(user.ID)
	ownerless := &model.Website{ID: 2, IsPublic: false}

	assert.NoError(t, CanReadWebsite(nil, public), "anyone reads public")
	assert.NoError(t, CanReadWebsite(user, private), "owner reads own private")
	assert.NoError(t, CanReadWebsite(admin, private), "admin reads any private")
	assert.NoError(t, CanReadWebsite(superAdmin, ownerless))

	assert.ErrorIs(t, CanReadWebsite(nil, private), apperror.ErrForbidden, "existence is not hidden")
	assert.ErrorIs(t, CanReadWebsite(otherUser, private), apperror.ErrForbidden)
	assert.ErrorIs(t, CanReadWebsite(premium, private), apperror.ErrForbidden)
	assert.ErrorIs(t, CanReadWebsite(user, ownerless), apperror.ErrForbidden)
}

// =========================================================================
// MUTATE WEBSITE
// =========================================================================

func TestCanMutateWebsite(t *testing.T) {
	own := privateOwnedBy(user.ID)

	assert.NoError(t, CanMutateWebsite(user, own))
	assert.NoError(t, CanMutateWebsite(admin, own))
	assert.NoError(t, CanMutateWebsite(superAdmin, &model.Website{ID: 5}))

	assert.ErrorIs(t, CanMutateWebsite(otherUser, own), apperror.ErrForbidden)
	assert.ErrorIs(t, CanMutateWebsite(nil, own), apperror.ErrUnauthorized)

	// A guest-role owner still lacks the user rank needed to mutate.
	guestOwned := privateOwnedBy(guest.ID)
	assert.ErrorIs(t, CanMutateWebsite(guest, guestOwned), apperror.ErrForbidden)
}

// =========================================================================
// VISIBILITY DERIVATION
// =========================================================================

func TestDeriveVisibility(t *testing.T) {
	tests := []struct {
		name         string
		caller       *auth.Caller
		requested    *int64
		wantCategory *int64
		wantPublic   bool
	}{
		{"user with category is forced mine", user, ptr(int64(5)), nil, false},
		{"user without category", user, nil, nil, false},
		{"premium with category is forced mine", premium, ptr(int64(5)), nil, false},
		{"admin with real category is public", admin, ptr(int64(5)), ptr(int64(5)), true},
		{"super admin with real category is public", superAdmin, ptr(int64(8)), ptr(int64(8)), true},
		{"admin with mine id is private", admin, ptr(model.MineCategoryID), nil, false},
		{"admin without category is private", admin, nil, nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DeriveVisibility(tt.caller, tt.requested)
			assert.Equal(t, tt.wantCategory, got.CategoryID)
			assert.Equal(t, tt.wantPublic, got.IsPublic)
		})
	}
}

func TestDeriveVisibility_DoesNotAliasInput(t *testing.T) {
	requested := int64(5)
	got := DeriveVisibility(admin, &requested)
	requested = 6

	require.NotNil(t, got.CategoryID)
	assert.Equal(t, int64(5), *got.CategoryID)
}

func TestStripPrivilegedFields(t *testing.T) {
	patch := model.WebsitePatch{
		Title:      ptr("new"),
		CategoryID: ptr(int64(3)),
		IsPublic:   ptr(true),
	}

	stripped := StripPrivilegedFields(user, patch)
	assert.Nil(t, stripped.CategoryID)
	assert.Nil(t, stripped.IsPublic)
	require.NotNil(t, stripped.Title)
	assert.Equal(t, "new", *stripped.Title)

	kept := StripPrivilegedFields(admin, patch)
	assert.Equal(t, patch, kept)
}

// =========================================================================
// COMPOSITION
// =========================================================================

func TestComposeCategories(t *testing.T) {
	persisted := []model.Category{
		{ID: 1, Name: "Other", SortOrder: 9999},
		{ID: 2, Name: "AI", SortOrder: 1},
		{ID: 3, Name: "Tools", SortOrder: 0},
		{ID: 4, Name: "Docs", SortOrder: 1},
	}

	t.Run("anonymous gets persisted only, sorted", func(t *testing.T) {
		views := ComposeCategories(nil, persisted)
		require.Len(t, views, 4)
		assert.Equal(t, []int64{3, 2, 4, 1}, viewIDs(views))
	})

	t.Run("authenticated gets Mine first", func(t *testing.T) {
		views := ComposeCategories(guest, persisted)
		require.Len(t, views, 5)
		_, isMine := views[0].(model.MineCategory)
		assert.True(t, isMine)
		assert.Equal(t, []int64{-1, 3, 2, 4, 1}, viewIDs(views))
	})

	t.Run("input is not reordered", func(t *testing.T) {
		ComposeCategories(nil, persisted)
		assert.Equal(t, int64(1), persisted[0].ID)
	})
}

func viewIDs(views []model.CategoryView) []int64 {
	ids := make([]int64, len(views))
	for i, v := range views {
		ids[i] = v.ViewID()
	}
	return ids
}

func TestResolveWebsiteQuery(t *testing.T) {
	t.Run("mine requires auth", func(t *testing.T) {
		_, err := ResolveWebsiteQuery(nil, ptr(model.MineCategoryID))
		assert.ErrorIs(t, err, apperror.ErrUnauthorized)
	})

	t.Run("mine for caller", func(t *testing.T) {
		q, err := ResolveWebsiteQuery(user, ptr(model.MineCategoryID))
		require.NoError(t, err)
		assert.True(t, q.Mine)
		assert.Equal(t, user.ID, q.OwnerID)
	})

	t.Run("anonymous unfiltered", func(t *testing.T) {
		q, err := ResolveWebsiteQuery(nil, nil)
		require.NoError(t, err)
		assert.False(t, q.Mine)
		assert.True(t, q.Filter.PublicOnly)
		assert.True(t, q.Filter.NewestFirst)
		assert.Nil(t, q.Filter.CategoryID)
	})

	t.Run("user by category keeps storage order", func(t *testing.T) {
		q, err := ResolveWebsiteQuery(user, ptr(int64(7)))
		require.NoError(t, err)
		assert.True(t, q.Filter.PublicOnly)
		assert.False(t, q.Filter.NewestFirst)
		require.NotNil(t, q.Filter.CategoryID)
		assert.Equal(t, int64(7), *q.Filter.CategoryID)
	})

	t.Run("admin sees private too", func(t *testing.T) {
		q, err := ResolveWebsiteQuery(admin, nil)
		require.NoError(t, err)
		assert.False(t, q.Filter.PublicOnly)
	})
}

func TestMergeMine(t *testing.T) {
	owned := []model.Website{{ID: 1, Title: "own-1"}, {ID: 2, Title: "own-2"}}
	favorites := []model.Website{{ID: 3, Title: "fav-3"}, {ID: 2, Title: "fav-2"}, {ID: 3, Title: "fav-3-again"}}

	merged := MergeMine(owned, favorites)

	require.Len(t, merged, 3)
	assert.Equal(t, "own-1", merged[0].Title)
	assert.Equal(t, "own-2", merged[1].Title, "owned entry wins on collision")
	assert.Equal(t, "fav-3", merged[2].Title)
}

func TestMergeMine_Empty(t *testing.T) {
	merged := MergeMine(nil, nil)
	assert.NotNil(t, merged)
	assert.Empty(t, merged)
}
