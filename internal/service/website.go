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

// WebsiteService manages website links, their visibility and click counts.
type WebsiteService struct {
	websites   repository.WebsiteRepository
	categories repository.CategoryRepository
	favorites  repository.FavoriteRepository
	tx         repository.TxManager
	logger     *slog.Logger
}

func NewWebsiteService(
	websites repository.WebsiteRepository,
	categories repository.CategoryRepository,
	favorites repository.FavoriteRepository,
	tx repository.TxManager,
	logger *slog.Logger,
) *WebsiteService {
	return &WebsiteService{
		websites:   websites,
		categories: categories,
		favorites:  favorites,
		tx:         tx,
		logger:     logger,
	}
}

// List returns the websites caller may see, optionally narrowed to one
// category. categoryID -1 selects the caller's own private websites plus
// the ones they favorited.
func (s *WebsiteService) List(ctx context.Context, caller *auth.Caller, categoryID *int64) ([]model.Website, error) {
	q, err := access.ResolveWebsiteQuery(caller, categoryID)
	if err != nil {
		return nil, err
	}

	if q.Mine {
		owned, err := s.websites.ListPrivateByOwner(ctx, q.OwnerID)
		if err != nil {
			return nil, fmt.Errorf("listing own websites: %w", err)
		}
		favorites, err := s.websites.ListFavoritedBy(ctx, q.OwnerID)
		if err != nil {
			return nil, fmt.Errorf("listing favorited websites: %w", err)
		}
		return access.MergeMine(owned, favorites), nil
	}

	websites, err := s.websites.List(ctx, q.Filter)
	if err != nil {
		s.logger.Error("failed to list websites", slog.String("error", err.Error()))
		return nil, fmt.Errorf("listing websites: %w", err)
	}
	return websites, nil
}

// GetByID returns the website, or nil without an error when it does not
// exist. A private website the caller may not read is Forbidden.
func (s *WebsiteService) GetByID(ctx context.Context, caller *auth.Caller, id int64) (*model.Website, error) {
	website, err := s.websites.GetByID(ctx, id)
	if err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("getting website %d: %w", id, err)
	}

	if err := access.CanReadWebsite(caller, website); err != nil {
		return nil, err
	}
	return website, nil
}

// Create adds a website owned by caller. Where it lands is derived from the
// caller's role; a requested isPublic is ignored.
func (s *WebsiteService) Create(ctx context.Context, caller *auth.Caller, in model.WebsiteInput) (*model.Website, error) {
	if err := access.RequireUser(caller); err != nil {
		return nil, err
	}

	website := &model.Website{}
	if err := applyWebsiteFields(website, &in.Title, &in.URL, &in.Description, &in.Icon); err != nil {
		return nil, err
	}

	placement := access.DeriveVisibility(caller, in.CategoryID)
	if err := s.checkCategory(ctx, placement.CategoryID); err != nil {
		return nil, err
	}
	website.CategoryID = placement.CategoryID
	website.IsPublic = placement.IsPublic
	owner := caller.ID
	website.UserID = &owner

	if err := s.websites.Create(ctx, website); err != nil {
		s.logger.Error("failed to create website",
			slog.String("url", website.URL),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("creating website: %w", err)
	}

	s.logger.Info("website created",
		slog.Int64("id", website.ID),
		slog.Int64("owner", owner),
		slog.Bool("public", website.IsPublic),
	)
	return s.reload(ctx, website)
}

// Update applies patch for the owner or an admin. Non-admins cannot move a
// website or change its visibility; those fields are dropped. An admin
// patch that names a category re-derives the placement.
func (s *WebsiteService) Update(ctx context.Context, caller *auth.Caller, id int64, patch model.WebsitePatch) (*model.Website, error) {
	website, err := s.websites.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := access.CanMutateWebsite(caller, website); err != nil {
		return nil, err
	}

	patch = access.StripPrivilegedFields(caller, patch)
	if err := applyWebsiteFields(website, patch.Title, patch.URL, patch.Description, patch.Icon); err != nil {
		return nil, err
	}

	if patch.CategoryID != nil {
		placement := access.DeriveVisibility(caller, patch.CategoryID)
		if err := s.checkCategory(ctx, placement.CategoryID); err != nil {
			return nil, err
		}
		website.CategoryID = placement.CategoryID
		website.IsPublic = placement.IsPublic
	}

	if err := s.websites.Update(ctx, website); err != nil {
		return nil, fmt.Errorf("updating website %d: %w", id, err)
	}

	s.logger.Info("website updated", slog.Int64("id", id), slog.Int64("by", caller.ID))
	return s.reload(ctx, website)
}

// Delete removes the website and every favorite pointing at it in one
// transaction.
func (s *WebsiteService) Delete(ctx context.Context, caller *auth.Caller, id int64) error {
	website, err := s.websites.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := access.CanMutateWebsite(caller, website); err != nil {
		return err
	}

	var dropped int64
	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		var err error
		if dropped, err = s.favorites.DeleteByWebsite(ctx, id); err != nil {
			return fmt.Errorf("deleting favorites: %w", err)
		}
		return s.websites.Delete(ctx, id)
	})
	if err != nil {
		s.logger.Error("failed to delete website",
			slog.Int64("id", id),
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("deleting website %d: %w", id, err)
	}

	s.logger.Info("website deleted",
		slog.Int64("id", id),
		slog.Int64("favorites_removed", dropped),
		slog.Int64("by", caller.ID),
	)
	return nil
}

// Click counts one visit. Anyone may click, including anonymous callers.
func (s *WebsiteService) Click(ctx context.Context, id int64) error {
	if err := s.websites.IncrementClicks(ctx, id); err != nil {
		return fmt.Errorf("recording click on website %d: %w", id, err)
	}
	return nil
}

// checkCategory turns an unknown category into a validation error before
// anything is written.
func (s *WebsiteService) checkCategory(ctx context.Context, id *int64) error {
	if id == nil {
		return nil
	}
	if _, err := s.categories.GetByID(ctx, *id); err != nil {
		if isNotFound(err) {
			return apperror.ValidationFailed("categoryId", fmt.Sprintf("category %d does not exist", *id))
		}
		return fmt.Errorf("checking category %d: %w", *id, err)
	}
	return nil
}

// reload reads the website back so the response embeds its category.
func (s *WebsiteService) reload(ctx context.Context, website *model.Website) (*model.Website, error) {
	fresh, err := s.websites.GetByID(ctx, website.ID)
	if err != nil {
		return nil, fmt.Errorf("reloading website %d: %w", website.ID, err)
	}
	return fresh, nil
}

// applyWebsiteFields validates and copies the non-nil text fields onto w.
// Title and URL may not be blanked.
func applyWebsiteFields(w *model.Website, title, url, description, icon *string) error {
	if title != nil {
		v, err := requireText("title", "title", *title, MaxWebsiteTitleLength)
		if err != nil {
			return err
		}
		w.Title = v
	}
	if url != nil {
		v, err := requireText("url", "url", *url, MaxWebsiteURLLength)
		if err != nil {
			return err
		}
		w.URL = v
	}
	if description != nil {
		w.Description = *description
	}
	if icon != nil {
		v, err := checkLength("icon", "icon", *icon, MaxWebsiteIconLength)
		if err != nil {
			return err
		}
		w.Icon = v
	}
	return nil
}
