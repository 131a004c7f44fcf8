package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/sakif/navigation/internal/access"
	"github.com/sakif/navigation/internal/auth"
	"github.com/sakif/navigation/internal/repository"
)

// FavoriteService records which websites a user has starred. The user is
// always the caller.
type FavoriteService struct {
	favorites repository.FavoriteRepository
	websites  repository.WebsiteRepository
	logger    *slog.Logger
}

func NewFavoriteService(
	favorites repository.FavoriteRepository,
	websites repository.WebsiteRepository,
	logger *slog.Logger,
) *FavoriteService {
	return &FavoriteService{favorites: favorites, websites: websites, logger: logger}
}

// Add stars websiteID for caller. The website must exist; its visibility
// is not checked. Starring twice is a no-op.
func (s *FavoriteService) Add(ctx context.Context, caller *auth.Caller, websiteID int64) error {
	if err := access.RequireUser(caller); err != nil {
		return err
	}
	if _, err := s.websites.GetByID(ctx, websiteID); err != nil {
		return err
	}

	if err := s.favorites.Add(ctx, caller.ID, websiteID); err != nil {
		return fmt.Errorf("adding favorite: %w", err)
	}

	s.logger.Info("favorite added",
		slog.Int64("user", caller.ID),
		slog.Int64("website", websiteID),
	)
	return nil
}

// Remove unstars websiteID. Removing a missing favorite succeeds.
func (s *FavoriteService) Remove(ctx context.Context, caller *auth.Caller, websiteID int64) error {
	if err := access.RequireUser(caller); err != nil {
		return err
	}
	if err := s.favorites.Remove(ctx, caller.ID, websiteID); err != nil {
		return fmt.Errorf("removing favorite: %w", err)
	}

	s.logger.Info("favorite removed",
		slog.Int64("user", caller.ID),
		slog.Int64("website", websiteID),
	)
	return nil
}

func (s *FavoriteService) IsFavorite(ctx context.Context, caller *auth.Caller, websiteID int64) (bool, error) {
	if err := access.RequireUser(caller); err != nil {
		return false, err
	}
	ok, err := s.favorites.Exists(ctx, caller.ID, websiteID)
	if err != nil {
		return false, fmt.Errorf("checking favorite: %w", err)
	}
	return ok, nil
}
