package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"github.com/sakif/navigation/internal/apperror"
	"github.com/sakif/navigation/internal/repository"
)

// Favorites implements repository.FavoriteRepository on the
// user_website_favorites table.
type Favorites struct {
	db *DB
}

var _ repository.FavoriteRepository = (*Favorites)(nil)

func (r *Favorites) Add(ctx context.Context, userID, websiteID int64) error {
	_, err := r.db.exec(ctx, psql.Insert("user_website_favorites").
		Columns("user_id", "website_id", "created_at").
		Values(userID, websiteID, now()).
		Suffix("ON CONFLICT (user_id, website_id) DO NOTHING"))
	if err != nil {
		if isForeignKeyViolation(err) {
			return apperror.NotFound("website", websiteID)
		}
		return fmt.Errorf("sqlite: adding favorite (user=%d, website=%d): %w", userID, websiteID, err)
	}
	return nil
}

func (r *Favorites) Remove(ctx context.Context, userID, websiteID int64) error {
	_, err := r.db.exec(ctx, psql.Delete("user_website_favorites").
		Where(sq.Eq{"user_id": userID, "website_id": websiteID}))
	if err != nil {
		return fmt.Errorf("sqlite: removing favorite (user=%d, website=%d): %w", userID, websiteID, err)
	}
	return nil
}

func (r *Favorites) Exists(ctx context.Context, userID, websiteID int64) (bool, error) {
	row, err := r.db.queryRow(ctx, psql.Select("1").
		From("user_website_favorites").
		Where(sq.Eq{"user_id": userID, "website_id": websiteID}))
	if err != nil {
		return false, fmt.Errorf("sqlite: checking favorite: %w", err)
	}

	var one int
	if err := row.Scan(&one); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("sqlite: checking favorite (user=%d, website=%d): %w", userID, websiteID, err)
	}
	return true, nil
}

func (r *Favorites) DeleteByWebsite(ctx context.Context, websiteID int64) (int64, error) {
	res, err := r.db.exec(ctx, psql.Delete("user_website_favorites").
		Where(sq.Eq{"website_id": websiteID}))
	if err != nil {
		return 0, fmt.Errorf("sqlite: deleting favorites of website %d: %w", websiteID, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	return n, nil
}
