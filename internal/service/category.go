package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/sakif/navigation/internal/access"
	"github.com/sakif/navigation/internal/apperror"
	"github.com/sakif/navigation/internal/auth"
	"github.com/sakif/navigation/internal/model"
	"github.com/sakif/navigation/internal/repository"
)

// CategoryService manages categories. Reads are open to everyone; writes
// need an admin.
type CategoryService struct {
	categories repository.CategoryRepository
	websites   repository.WebsiteRepository
	tx         repository.TxManager
	logger     *slog.Logger
}

func NewCategoryService(
	categories repository.CategoryRepository,
	websites repository.WebsiteRepository,
	tx repository.TxManager,
	logger *slog.Logger,
) *CategoryService {
	return &CategoryService{
		categories: categories,
		websites:   websites,
		tx:         tx,
		logger:     logger,
	}
}

// List returns the categories caller sees: the persisted ones ordered by
// sortOrder, preceded by the virtual Mine entry when caller is signed in.
func (s *CategoryService) List(ctx context.Context, caller *auth.Caller) ([]model.CategoryView, error) {
	categories, err := s.categories.List(ctx)
	if err != nil {
		s.logger.Error("failed to list categories", slog.String("error", err.Error()))
		return nil, fmt.Errorf("listing categories: %w", err)
	}
	return access.ComposeCategories(caller, categories), nil
}

// GetByID returns the category, or nil without an error when it does not
// exist.
func (s *CategoryService) GetByID(ctx context.Context, id int64) (*model.Category, error) {
	category, err := s.categories.GetByID(ctx, id)
	if err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("getting category %d: %w", id, err)
	}
	return category, nil
}

func (s *CategoryService) Create(ctx context.Context, caller *auth.Caller, in model.CategoryInput) (*model.Category, error) {
	if err := access.RequireAdmin(caller); err != nil {
		return nil, err
	}

	name, err := requireText("name", "category name", in.Name, MaxCategoryNameLength)
	if err != nil {
		return nil, err
	}
	icon, err := checkLength("icon", "category icon", in.Icon, MaxCategoryIconLength)
	if err != nil {
		return nil, err
	}

	category := &model.Category{Name: name, Icon: icon, SortOrder: in.SortOrder}
	if err := s.categories.Create(ctx, category); err != nil {
		return nil, fmt.Errorf("creating category: %w", err)
	}

	s.logger.Info("category created",
		slog.Int64("id", category.ID),
		slog.String("name", category.Name),
		slog.Int64("by", caller.ID),
	)
	return category, nil
}

// Update applies the non-nil fields of patch.
func (s *CategoryService) Update(ctx context.Context, caller *auth.Caller, id int64, patch model.CategoryPatch) (*model.Category, error) {
	if err := access.RequireAdmin(caller); err != nil {
		return nil, err
	}

	category, err := s.categories.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if patch.Name != nil {
		name, err := requireText("name", "category name", *patch.Name, MaxCategoryNameLength)
		if err != nil {
			return nil, err
		}
		if category.Name == model.ReservedCategoryName && name != category.Name {
			return nil, apperror.Conflict("category", "the reserved category cannot be renamed")
		}
		category.Name = name
	}
	if patch.Icon != nil {
		icon, err := checkLength("icon", "category icon", *patch.Icon, MaxCategoryIconLength)
		if err != nil {
			return nil, err
		}
		category.Icon = icon
	}
	if patch.SortOrder != nil {
		category.SortOrder = *patch.SortOrder
	}

	if err := s.categories.Update(ctx, category); err != nil {
		return nil, fmt.Errorf("updating category %d: %w", id, err)
	}

	s.logger.Info("category updated", slog.Int64("id", id), slog.Int64("by", caller.ID))
	return category, nil
}

// Delete removes a category. Its websites move to the reserved "Other"
// category, which is created on first use. The move and the delete commit
// together. "Other" itself cannot be deleted.
func (s *CategoryService) Delete(ctx context.Context, caller *auth.Caller, id int64) error {
	if err := access.RequireAdmin(caller); err != nil {
		return err
	}

	category, err := s.categories.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if category.Name == model.ReservedCategoryName {
		return apperror.Conflict("category", "the reserved category cannot be deleted")
	}

	var moved int64
	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		other, err := s.categories.GetOrCreate(ctx, model.Category{
			Name:      model.ReservedCategoryName,
			Icon:      model.ReservedCategoryIcon,
			SortOrder: model.ReservedCategorySortOrder,
		})
		if err != nil {
			return fmt.Errorf("ensuring reserved category: %w", err)
		}

		moved, err = s.websites.ReassignCategory(ctx, id, other.ID)
		if err != nil {
			return fmt.Errorf("reassigning websites: %w", err)
		}

		return s.categories.Delete(ctx, id)
	})
	if err != nil {
		s.logger.Error("failed to delete category",
			slog.Int64("id", id),
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("deleting category %d: %w", id, err)
	}

	s.logger.Info("category deleted",
		slog.Int64("id", id),
		slog.Int64("websites_moved", moved),
		slog.Int64("by", caller.ID),
	)
	return nil
}
