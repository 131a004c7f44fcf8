package service

import (
	"context"
	"log/slog"
	"os"
	"sort"
	"testing"

	"github.com/sakif/navigation/internal/apperror"
	"github.com/sakif/navigation/internal/auth"
	"github.com/sakif/navigation/internal/model"
	"github.com/sakif/navigation/internal/repository"
)

// =========================================================================
// IN-MEMORY STORE
// =========================================================================
//
// fakeStore implements the three repositories and TxManager over maps.
// RunInTx snapshots the maps and restores them when fn fails, so tests
// can check that multi-step writes roll back together.

type favoriteRow struct {
	userID, websiteID int64
	seq               int
}

type fakeStore struct {
	categories map[int64]model.Category
	websites   map[int64]model.Website
	favorites  []favoriteRow

	nextCategoryID int64
	nextWebsiteID  int64
	nextSeq        int

	// Injected failures.
	failWebsiteDelete error
	failReassign      error
	failWebsiteCreate error
	txCalls           int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		categories: make(map[int64]model.Category),
		websites:   make(map[int64]model.Website),
	}
}

var (
	_ repository.CategoryRepository = (*fakeCategories)(nil)
	_ repository.WebsiteRepository  = (*fakeWebsites)(nil)
	_ repository.FavoriteRepository = (*fakeFavorites)(nil)
	_ repository.TxManager          = (*fakeStore)(nil)
)

func (f *fakeStore) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	f.txCalls++

	categories := make(map[int64]model.Category, len(f.categories))
	for k, v := range f.categories {
		categories[k] = v
	}
	websites := make(map[int64]model.Website, len(f.websites))
	for k, v := range f.websites {
		websites[k] = v
	}
	favorites := append([]favoriteRow(nil), f.favorites...)
	nextCat, nextWeb := f.nextCategoryID, f.nextWebsiteID

	if err := fn(ctx); err != nil {
		f.categories, f.websites, f.favorites = categories, websites, favorites
		f.nextCategoryID, f.nextWebsiteID = nextCat, nextWeb
		return err
	}
	return nil
}

// ----- categories -----

type fakeCategories struct{ *fakeStore }

func (f fakeCategories) Create(_ context.Context, c *model.Category) error {
	for _, existing := range f.categories {
		if existing.Name == c.Name {
			return apperror.Conflict("category", "duplicate name")
		}
	}
	f.nextCategoryID++
	c.ID = f.nextCategoryID
	f.categories[c.ID] = *c
	return nil
}

func (f fakeCategories) GetByID(_ context.Context, id int64) (*model.Category, error) {
	c, ok := f.categories[id]
	if !ok {
		return nil, apperror.NotFound("category", id)
	}
	return &c, nil
}

func (f fakeCategories) GetByName(_ context.Context, name string) (*model.Category, error) {
	for _, c := range f.categories {
		if c.Name == name {
			return &c, nil
		}
	}
	return nil, &apperror.AppError{Err: apperror.ErrNotFound, Message: "no category " + name}
}

func (f fakeCategories) List(_ context.Context) ([]model.Category, error) {
	out := make([]model.Category, 0, len(f.categories))
	for _, c := range f.categories {
		out = append(out, c)
	}
	// Deliberately by id only; ordering by sortOrder is the service's job.
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f fakeCategories) Update(_ context.Context, c *model.Category) error {
	if _, ok := f.categories[c.ID]; !ok {
		return apperror.NotFound("category", c.ID)
	}
	for _, existing := range f.categories {
		if existing.Name == c.Name && existing.ID != c.ID {
			return apperror.Conflict("category", "duplicate name")
		}
	}
	f.categories[c.ID] = *c
	return nil
}

func (f fakeCategories) Delete(_ context.Context, id int64) error {
	if _, ok := f.categories[id]; !ok {
		return apperror.NotFound("category", id)
	}
	for _, w := range f.websites {
		if w.CategoryID != nil && *w.CategoryID == id {
			return apperror.Conflict("category", "still referenced")
		}
	}
	delete(f.categories, id)
	return nil
}

func (f fakeCategories) GetOrCreate(ctx context.Context, c model.Category) (*model.Category, error) {
	if existing, err := f.GetByName(ctx, c.Name); err == nil {
		return existing, nil
	}
	if err := f.Create(ctx, &c); err != nil {
		return nil, err
	}
	return &c, nil
}

// ----- websites -----

type fakeWebsites struct{ *fakeStore }

func (f fakeWebsites) withCategory(w model.Website) model.Website {
	if w.CategoryID != nil {
		if c, ok := f.categories[*w.CategoryID]; ok {
			w.Category = &c
		}
	}
	return w
}

func (f fakeWebsites) Create(_ context.Context, w *model.Website) error {
	if f.failWebsiteCreate != nil {
		return f.failWebsiteCreate
	}
	if w.CategoryID != nil {
		if _, ok := f.categories[*w.CategoryID]; !ok {
			return apperror.ValidationFailed("categoryId", "category does not exist")
		}
	}
	f.nextWebsiteID++
	w.ID = f.nextWebsiteID
	w.Clicks = 0
	stored := *w
	stored.Category = nil
	f.websites[w.ID] = stored
	return nil
}

func (f fakeWebsites) GetByID(_ context.Context, id int64) (*model.Website, error) {
	w, ok := f.websites[id]
	if !ok {
		return nil, apperror.NotFound("website", id)
	}
	w = f.withCategory(w)
	return &w, nil
}

func (f fakeWebsites) sorted(keep func(model.Website) bool, newestFirst bool) []model.Website {
	out := make([]model.Website, 0)
	for _, w := range f.websites {
		if keep(w) {
			out = append(out, f.withCategory(w))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if newestFirst {
			return out[i].ID > out[j].ID
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func (f fakeWebsites) List(_ context.Context, filter repository.WebsiteFilter) ([]model.Website, error) {
	return f.sorted(func(w model.Website) bool {
		if filter.PublicOnly && !w.IsPublic {
			return false
		}
		if filter.CategoryID != nil && (w.CategoryID == nil || *w.CategoryID != *filter.CategoryID) {
			return false
		}
		return true
	}, filter.NewestFirst), nil
}

func (f fakeWebsites) ListPrivateByOwner(_ context.Context, userID int64) ([]model.Website, error) {
	return f.sorted(func(w model.Website) bool {
		return !w.IsPublic && w.OwnedBy(userID)
	}, true), nil
}

func (f fakeWebsites) ListFavoritedBy(_ context.Context, userID int64) ([]model.Website, error) {
	rows := make([]favoriteRow, 0)
	for _, r := range f.favorites {
		if r.userID == userID {
			rows = append(rows, r)
		}
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].seq > rows[j].seq })

	out := make([]model.Website, 0, len(rows))
	for _, r := range rows {
		if w, ok := f.websites[r.websiteID]; ok {
			out = append(out, f.withCategory(w))
		}
	}
	return out, nil
}

func (f fakeWebsites) Update(_ context.Context, w *model.Website) error {
	if _, ok := f.websites[w.ID]; !ok {
		return apperror.NotFound("website", w.ID)
	}
	stored := *w
	stored.Category = nil
	f.websites[w.ID] = stored
	return nil
}

func (f fakeWebsites) Delete(_ context.Context, id int64) error {
	if f.failWebsiteDelete != nil {
		return f.failWebsiteDelete
	}
	if _, ok := f.websites[id]; !ok {
		return apperror.NotFound("website", id)
	}
	delete(f.websites, id)
	return nil
}

func (f fakeWebsites) IncrementClicks(_ context.Context, id int64) error {
	w, ok := f.websites[id]
	if !ok {
		return apperror.NotFound("website", id)
	}
	w.Clicks++
	f.websites[id] = w
	return nil
}

func (f fakeWebsites) ReassignCategory(_ context.Context, from, to int64) (int64, error) {
	if f.failReassign != nil {
		return 0, f.failReassign
	}
	var n int64
	for id, w := range f.websites {
		if w.CategoryID != nil && *w.CategoryID == from {
			target := to
			w.CategoryID = &target
			f.websites[id] = w
			n++
		}
	}
	return n, nil
}

func (f fakeWebsites) ExistsInCategory(_ context.Context, categoryID int64, url string) (bool, error) {
	for _, w := range f.websites {
		if w.CategoryID != nil && *w.CategoryID == categoryID && w.URL == url {
			return true, nil
		}
	}
	return false, nil
}

// ----- favorites -----

type fakeFavorites struct{ *fakeStore }

func (f fakeFavorites) Add(_ context.Context, userID, websiteID int64) error {
	if _, ok := f.websites[websiteID]; !ok {
		return apperror.NotFound("website", websiteID)
	}
	for _, r := range f.favorites {
		if r.userID == userID && r.websiteID == websiteID {
			return nil
		}
	}
	f.nextSeq++
	f.fakeStore.favorites = append(f.fakeStore.favorites, favoriteRow{userID, websiteID, f.nextSeq})
	return nil
}

func (f fakeFavorites) Remove(_ context.Context, userID, websiteID int64) error {
	kept := f.favorites[:0:0]
	for _, r := range f.favorites {
		if r.userID != userID || r.websiteID != websiteID {
			kept = append(kept, r)
		}
	}
	f.fakeStore.favorites = kept
	return nil
}

func (f fakeFavorites) Exists(_ context.Context, userID, websiteID int64) (bool, error) {
	for _, r := range f.favorites {
		if r.userID == userID && r.websiteID == websiteID {
			return true, nil
		}
	}
	return false, nil
}

func (f fakeFavorites) DeleteByWebsite(_ context.Context, websiteID int64) (int64, error) {
	var n int64
	kept := f.favorites[:0:0]
	for _, r := range f.favorites {
		if r.websiteID == websiteID {
			n++
			continue
		}
		kept = append(kept, r)
	}
	f.fakeStore.favorites = kept
	return n, nil
}

// =========================================================================
// TEST HELPERS
// =========================================================================

func ptr[T any](v T) *T { return &v }

var (
	user      = &auth.Caller{ID: 1, Username: "alice", Role: auth.RoleUser}
	otherUser = &auth.Caller{ID: 2, Username: "bob", Role: auth.RoleUser}
	guest     = &auth.Caller{ID: 3, Username: "guest", Role: auth.RoleGuest}
	admin     = &auth.Caller{ID: 9, Username: "root", Role: auth.RoleAdmin}
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

type services struct {
	store      *fakeStore
	categories *CategoryService
	websites   *WebsiteService
	favorites  *FavoriteService
	imports    *ImportService
}

func newTestServices(t *testing.T) services {
	t.Helper()
	store := newFakeStore()
	cats, webs, favs := fakeCategories{store}, fakeWebsites{store}, fakeFavorites{store}
	logger := testLogger()
	return services{
		store:      store,
		categories: NewCategoryService(cats, webs, store, logger),
		websites:   NewWebsiteService(webs, cats, favs, store, logger),
		favorites:  NewFavoriteService(favs, webs, logger),
		imports:    NewImportService(cats, webs, store, logger),
	}
}

// seedCategory inserts a category straight into the store.
func (s services) seedCategory(t *testing.T, name string, sortOrder int) model.Category {
	t.Helper()
	c := model.Category{Name: name, SortOrder: sortOrder}
	if err := (fakeCategories{s.store}).Create(context.Background(), &c); err != nil {
		t.Fatalf("seeding category: %v", err)
	}
	return c
}

// seedWebsite inserts a website straight into the store.
func (s services) seedWebsite(t *testing.T, w model.Website) model.Website {
	t.Helper()
	if w.Title == "" {
		w.Title = "site"
	}
	if w.URL == "" {
		w.URL = "https://site.dev"
	}
	if err := (fakeWebsites{s.store}).Create(context.Background(), &w); err != nil {
		t.Fatalf("seeding website: %v", err)
	}
	return w
}
