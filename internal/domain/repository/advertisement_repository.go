package repository

import (
	"context"
	"io"

	"github.com/oksasatya/adhunt/internal/domain/entity"
)

// AdvertisementFilter narrows List. Empty fields do not filter.
type AdvertisementFilter struct {
	Status      entity.Status
	AuthorID    string
	FavoritedBy string
}

// AdvertisementRepository persists advertisements together with their images.
// List returns newest first.
type AdvertisementRepository interface {
	// Create stores ad and ad.Images, filling in generated IDs and timestamps.
	Create(ctx context.Context, ad *entity.Advertisement) error
	GetByID(ctx context.Context, id int64) (*entity.Advertisement, error)
	List(ctx context.Context, f AdvertisementFilter) ([]entity.Advertisement, error)
	// UpdateContent writes title, description, price and status atomically.
	// When replaceImages is set the stored images are swapped for ad.Images and
	// the previous images are returned.
	UpdateContent(ctx context.Context, ad *entity.Advertisement, replaceImages bool) ([]entity.Image, error)
	SetStatus(ctx context.Context, id int64, status entity.Status) (*entity.Advertisement, error)
	// Delete removes the advertisement, its images and favorite links, and
	// returns the removed images.
	Delete(ctx context.Context, id int64) ([]entity.Image, error)
}

// FavoriteRepository is the user/advertisement favorites set.
type FavoriteRepository interface {
	// Add returns errs.ErrAlreadyFavorited for an existing pair and
	// errs.ErrNotFound when the advertisement does not exist.
	Add(ctx context.Context, userID string, advertisementID int64) error
	// Remove returns errs.ErrNotFound when the pair does not exist.
	Remove(ctx context.Context, userID string, advertisementID int64) error
	// FavoritedAmong reports which of ids the user has favorited.
	FavoritedAmong(ctx context.Context, userID string, ids []int64) (map[int64]bool, error)
}

// ImageStorage stores image blobs and returns their public URL.
type ImageStorage interface {
	Put(ctx context.Context, key, contentType string, r io.Reader) (string, error)
	Delete(ctx context.Context, key string) error
}
