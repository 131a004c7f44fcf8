package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"github.com/sakif/navigation/internal/apperror"
	"github.com/sakif/navigation/internal/model"
	"github.com/sakif/navigation/internal/repository"
)

// Websites implements repository.WebsiteRepository.
type Websites struct {
	db *DB
}

var _ repository.WebsiteRepository = (*Websites)(nil)

// Every read joins the website's category so responses can embed it.
var websiteColumns = []string{
	"w.id", "w.title", "w.url", "w.description", "w.icon",
	"w.category_id", "w.user_id", "w.is_public", "w.clicks",
	"w.created_at", "w.updated_at",
	"c.name", "c.icon", "c.sort_order", "c.created_at", "c.updated_at",
}

func (r *Websites) selectWebsites() sq.SelectBuilder {
	return psql.Select(websiteColumns...).
		From("websites w").
		LeftJoin("categories c ON c.id = w.category_id")
}

func scanWebsite(row interface{ Scan(...any) error }) (model.Website, error) {
	var (
		w          model.Website
		categoryID sql.NullInt64
		userID     sql.NullInt64
		catName    sql.NullString
		catIcon    sql.NullString
		catSort    sql.NullInt64
		catCreated sql.NullTime
		catUpdated sql.NullTime
	)

	err := row.Scan(
		&w.ID, &w.Title, &w.URL, &w.Description, &w.Icon,
		&categoryID, &userID, &w.IsPublic, &w.Clicks,
		&w.CreatedAt, &w.UpdatedAt,
		&catName, &catIcon, &catSort, &catCreated, &catUpdated,
	)
	if err != nil {
		return w, err
	}

	w.CategoryID = int64Ptr(categoryID)
	w.UserID = int64Ptr(userID)
	if categoryID.Valid && catName.Valid {
		w.Category = &model.Category{
			ID:        categoryID.Int64,
			Name:      catName.String,
			Icon:      catIcon.String,
			SortOrder: int(catSort.Int64),
			CreatedAt: catCreated.Time,
			UpdatedAt: catUpdated.Time,
		}
	}
	return w, nil
}

func (r *Websites) list(ctx context.Context, b sq.SelectBuilder) ([]model.Website, error) {
	rows, err := r.db.query(ctx, b)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	websites := make([]model.Website, 0)
	for rows.Next() {
		w, err := scanWebsite(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning website row: %w", err)
		}
		websites = append(websites, w)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating websites: %w", err)
	}
	return websites, nil
}

// Create inserts website and fills in its id, clicks and timestamps.
func (r *Websites) Create(ctx context.Context, website *model.Website) error {
	ts := now()
	website.CreatedAt = ts
	website.UpdatedAt = ts
	website.Clicks = 0

	res, err := r.db.exec(ctx, psql.Insert("websites").
		Columns("title", "url", "description", "icon", "category_id", "user_id",
			"is_public", "clicks", "created_at", "updated_at").
		Values(website.Title, website.URL, website.Description, website.Icon,
			nullableInt64(website.CategoryID), nullableInt64(website.UserID),
			website.IsPublic, 0, website.CreatedAt, website.UpdatedAt))
	if err != nil {
		if isForeignKeyViolation(err) {
			return apperror.ValidationFailed("categoryId", "category does not exist")
		}
		return fmt.Errorf("sqlite: creating website: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("sqlite: reading website id: %w", err)
	}
	website.ID = id
	return nil
}

func (r *Websites) GetByID(ctx context.Context, id int64) (*model.Website, error) {
	row, err := r.db.queryRow(ctx, r.selectWebsites().Where(sq.Eq{"w.id": id}))
	if err != nil {
		return nil, fmt.Errorf("sqlite: getting website %d: %w", id, err)
	}

	w, err := scanWebsite(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("website", id)
		}
		return nil, fmt.Errorf("sqlite: getting website %d: %w", id, err)
	}
	return &w, nil
}

// List applies filter. Without NewestFirst no ORDER BY is emitted and rows
// come back in storage order.
func (r *Websites) List(ctx context.Context, filter repository.WebsiteFilter) ([]model.Website, error) {
	b := r.selectWebsites()
	if filter.PublicOnly {
		b = b.Where(sq.Eq{"w.is_public": true})
	}
	if filter.CategoryID != nil {
		b = b.Where(sq.Eq{"w.category_id": *filter.CategoryID})
	}
	if filter.NewestFirst {
		b = b.OrderBy("w.created_at DESC", "w.id DESC")
	}

	websites, err := r.list(ctx, b)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing websites: %w", err)
	}
	return websites, nil
}

// ListPrivateByOwner returns userID's private websites, newest first.
func (r *Websites) ListPrivateByOwner(ctx context.Context, userID int64) ([]model.Website, error) {
	websites, err := r.list(ctx, r.selectWebsites().
		Where(sq.Eq{"w.user_id": userID, "w.is_public": false}).
		OrderBy("w.created_at DESC", "w.id DESC"))
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing private websites of user %d: %w", userID, err)
	}
	return websites, nil
}

// ListFavoritedBy returns the websites userID favorited, most recently
// favorited first, regardless of visibility.
func (r *Websites) ListFavoritedBy(ctx context.Context, userID int64) ([]model.Website, error) {
	websites, err := r.list(ctx, r.selectWebsites().
		Join("user_website_favorites f ON f.website_id = w.id").
		Where(sq.Eq{"f.user_id": userID}).
		OrderBy("f.created_at DESC", "f.id DESC"))
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing favorites of user %d: %w", userID, err)
	}
	return websites, nil
}

// Update writes every mutable column of website.
func (r *Websites) Update(ctx context.Context, website *model.Website) error {
	website.UpdatedAt = now()

	res, err := r.db.exec(ctx, psql.Update("websites").
		Set("title", website.Title).
		Set("url", website.URL).
		Set("description", website.Description).
		Set("icon", website.Icon).
		Set("category_id", nullableInt64(website.CategoryID)).
		Set("is_public", website.IsPublic).
		Set("updated_at", website.UpdatedAt).
		Where(sq.Eq{"id": website.ID}))
	if err != nil {
		if isForeignKeyViolation(err) {
			return apperror.ValidationFailed("categoryId", "category does not exist")
		}
		return fmt.Errorf("sqlite: updating website %d: %w", website.ID, err)
	}

	return requireAffected(res, "website", website.ID)
}

func (r *Websites) Delete(ctx context.Context, id int64) error {
	res, err := r.db.exec(ctx, psql.Delete("websites").Where(sq.Eq{"id": id}))
	if err != nil {
		return fmt.Errorf("sqlite: deleting website %d: %w", id, err)
	}
	return requireAffected(res, "website", id)
}

func (r *Websites) IncrementClicks(ctx context.Context, id int64) error {
	res, err := r.db.exec(ctx, psql.Update("websites").
		Set("clicks", sq.Expr("clicks + 1")).
		Where(sq.Eq{"id": id}))
	if err != nil {
		return fmt.Errorf("sqlite: incrementing clicks of website %d: %w", id, err)
	}
	return requireAffected(res, "website", id)
}

func (r *Websites) ReassignCategory(ctx context.Context, from, to int64) (int64, error) {
	res, err := r.db.exec(ctx, psql.Update("websites").
		Set("category_id", to).
		Set("updated_at", now()).
		Where(sq.Eq{"category_id": from}))
	if err != nil {
		return 0, fmt.Errorf("sqlite: moving websites from category %d to %d: %w", from, to, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	return n, nil
}

func (r *Websites) ExistsInCategory(ctx context.Context, categoryID int64, url string) (bool, error) {
	row, err := r.db.queryRow(ctx, psql.Select("1").
		From("websites").
		Where(sq.Eq{"category_id": categoryID, "url": url}).
		Limit(1))
	if err != nil {
		return false, fmt.Errorf("sqlite: checking website %q: %w", url, err)
	}

	var one int
	if err := row.Scan(&one); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("sqlite: checking website %q: %w", url, err)
	}
	return true, nil
}
