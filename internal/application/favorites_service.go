package application

import (
	"context"

	"github.com/oksasatya/adhunt/internal/domain/errs"
	"github.com/oksasatya/adhunt/internal/domain/policy"
	repo "github.com/oksasatya/adhunt/internal/domain/repository"
)

// FavoritesService maintains the user/advertisement favorites set. Any
// authenticated user may favorite any existing advertisement, whatever its
// status.
type FavoritesService struct {
	Favorites repo.FavoriteRepository
}

func NewFavoritesService(favorites repo.FavoriteRepository) *FavoritesService {
	return &FavoritesService{Favorites: favorites}
}

// Add fails with errs.ErrAlreadyFavorited for a repeated pair. The store's
// uniqueness constraint decides concurrent duplicates.
func (s *FavoritesService) Add(ctx context.Context, actor policy.Actor, advertisementID int64) error {
	if !actor.Authenticated() {
		return errs.ErrUnauthorized
	}
	return s.Favorites.Add(ctx, actor.UserID, advertisementID)
}

func (s *FavoritesService) Remove(ctx context.Context, actor policy.Actor, advertisementID int64) error {
	if !actor.Authenticated() {
		return errs.ErrUnauthorized
	}
	return s.Favorites.Remove(ctx, actor.UserID, advertisementID)
}
