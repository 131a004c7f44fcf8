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

// Categories implements repository.CategoryRepository.
type Categories struct {
	db *DB
}

var _ repository.CategoryRepository = (*Categories)(nil)

var categoryColumns = []string{"id", "name", "icon", "sort_order", "created_at", "updated_at"}

func scanCategory(row interface{ Scan(...any) error }, c *model.Category) error {
	return row.Scan(&c.ID, &c.Name, &c.Icon, &c.SortOrder, &c.CreatedAt, &c.UpdatedAt)
}

// Create inserts category and fills in its id and timestamps. A duplicate
// name is a Conflict.
func (r *Categories) Create(ctx context.Context, category *model.Category) error {
	ts := now()
	category.CreatedAt = ts
	category.UpdatedAt = ts

	res, err := r.db.exec(ctx, psql.Insert("categories").
		Columns("name", "icon", "sort_order", "created_at", "updated_at").
		Values(category.Name, category.Icon, category.SortOrder, category.CreatedAt, category.UpdatedAt))
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.Conflict("category", fmt.Sprintf("name %q already exists", category.Name))
		}
		return fmt.Errorf("sqlite: creating category: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("sqlite: reading category id: %w", err)
	}
	category.ID = id
	return nil
}

func (r *Categories) GetByID(ctx context.Context, id int64) (*model.Category, error) {
	row, err := r.db.queryRow(ctx, psql.Select(categoryColumns...).
		From("categories").
		Where(sq.Eq{"id": id}))
	if err != nil {
		return nil, fmt.Errorf("sqlite: getting category %d: %w", id, err)
	}

	var c model.Category
	if err := scanCategory(row, &c); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("category", id)
		}
		return nil, fmt.Errorf("sqlite: getting category %d: %w", id, err)
	}
	return &c, nil
}

func (r *Categories) GetByName(ctx context.Context, name string) (*model.Category, error) {
	row, err := r.db.queryRow(ctx, psql.Select(categoryColumns...).
		From("categories").
		Where(sq.Eq{"name": name}))
	if err != nil {
		return nil, fmt.Errorf("sqlite: getting category %q: %w", name, err)
	}

	var c model.Category
	if err := scanCategory(row, &c); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, &apperror.AppError{
				Err:     apperror.ErrNotFound,
				Message: fmt.Sprintf("category not found with name %q", name),
			}
		}
		return nil, fmt.Errorf("sqlite: getting category %q: %w", name, err)
	}
	return &c, nil
}

// List returns every category ordered by sort_order, then id.
func (r *Categories) List(ctx context.Context) ([]model.Category, error) {
	rows, err := r.db.query(ctx, psql.Select(categoryColumns...).
		From("categories").
		OrderBy("sort_order ASC", "id ASC"))
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing categories: %w", err)
	}
	defer rows.Close()

	categories := make([]model.Category, 0)
	for rows.Next() {
		var c model.Category
		if err := scanCategory(rows, &c); err != nil {
			return nil, fmt.Errorf("sqlite: scanning category row: %w", err)
		}
		categories = append(categories, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating categories: %w", err)
	}
	return categories, nil
}

func (r *Categories) Update(ctx context.Context, category *model.Category) error {
	category.UpdatedAt = now()

	res, err := r.db.exec(ctx, psql.Update("categories").
		Set("name", category.Name).
		Set("icon", category.Icon).
		Set("sort_order", category.SortOrder).
		Set("updated_at", category.UpdatedAt).
		Where(sq.Eq{"id": category.ID}))
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.Conflict("category", fmt.Sprintf("name %q already exists", category.Name))
		}
		return fmt.Errorf("sqlite: updating category %d: %w", category.ID, err)
	}

	return requireAffected(res, "category", category.ID)
}

func (r *Categories) Delete(ctx context.Context, id int64) error {
	res, err := r.db.exec(ctx, psql.Delete("categories").Where(sq.Eq{"id": id}))
	if err != nil {
		if isForeignKeyViolation(err) {
			return apperror.Conflict("category", "websites still reference this category")
		}
		return fmt.Errorf("sqlite: deleting category %d: %w", id, err)
	}

	return requireAffected(res, "category", id)
}

// GetOrCreate inserts c unless a category with the same name exists, then
// reads the row back. ON CONFLICT DO NOTHING makes concurrent first calls
// converge on a single row instead of racing a check-then-insert.
func (r *Categories) GetOrCreate(ctx context.Context, c model.Category) (*model.Category, error) {
	ts := now()
	_, err := r.db.exec(ctx, psql.Insert("categories").
		Columns("name", "icon", "sort_order", "created_at", "updated_at").
		Values(c.Name, c.Icon, c.SortOrder, ts, ts).
		Suffix("ON CONFLICT (name) DO NOTHING"))
	if err != nil {
		return nil, fmt.Errorf("sqlite: ensuring category %q: %w", c.Name, err)
	}

	return r.GetByName(ctx, c.Name)
}

// requireAffected maps "no row matched" to NotFound.
func requireAffected(res sql.Result, resource string, id int64) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if n == 0 {
		return apperror.NotFound(resource, id)
	}
	return nil
}
