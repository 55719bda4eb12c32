// Package memory implements the persistence ports in process memory. It backs
// STORE_DRIVER=memory and the service tests. One mutex guards all three
// aggregates so cascades and uniqueness checks are atomic.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/oksasatya/adhunt/internal/domain/entity"
	"github.com/oksasatya/adhunt/internal/domain/errs"
	"github.com/oksasatya/adhunt/internal/domain/repository"
)

type favoriteKey struct {
	userID string
	adID   int64
}

type Store struct {
	mu        sync.RWMutex
	users     map[string]entity.User
	ads       map[int64]entity.Advertisement
	favorites map[favoriteKey]time.Time
	nextAdID  int64
	nextImgID int64
	now       func() time.Time
}

func NewStore() *Store {
	return &Store{
		users:     make(map[string]entity.User),
		ads:       make(map[int64]entity.Advertisement),
		favorites: make(map[favoriteKey]time.Time),
		now:       time.Now,
	}
}

func (s *Store) Users() *UserRepository                   { return &UserRepository{s: s} }
func (s *Store) Advertisements() *AdvertisementRepository { return &AdvertisementRepository{s: s} }
func (s *Store) Favorites() *FavoriteRepository           { return &FavoriteRepository{s: s} }

// FavoriteCount returns the number of stored favorite links.
func (s *Store) FavoriteCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.favorites)
}

func copyAd(ad entity.Advertisement) entity.Advertisement {
	ad.Images = append([]entity.Image(nil), ad.Images...)
	return ad
}

// ---- users ----

type UserRepository struct{ s *Store }

func (r *UserRepository) Create(_ context.Context, u *entity.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, existing := range r.s.users {
		if strings.EqualFold(existing.Email, u.Email) {
			return errs.ErrDuplicateEmail
		}
		if existing.Phone == u.Phone {
			return errs.ErrDuplicatePhone
		}
	}
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	now := r.s.now()
	u.CreatedAt, u.UpdatedAt = now, now
	r.s.users[u.ID] = *u
	return nil
}

func (r *UserRepository) GetByID(_ context.Context, id string) (*entity.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	u, ok := r.s.users[id]
	if !ok {
		return nil, errs.ErrNotFound
	}
	return &u, nil
}

func (r *UserRepository) GetByEmail(_ context.Context, email string) (*entity.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, u := range r.s.users {
		if strings.EqualFold(u.Email, email) {
			return &u, nil
		}
	}
	return nil, errs.ErrNotFound
}

func (r *UserRepository) EmailTaken(_ context.Context, email, excludeID string) (bool, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for id, u := range r.s.users {
		if id != excludeID && strings.EqualFold(u.Email, email) {
			return true, nil
		}
	}
	return false, nil
}

func (r *UserRepository) PhoneTaken(_ context.Context, phone, excludeID string) (bool, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for id, u := range r.s.users {
		if id != excludeID && u.Phone == phone {
			return true, nil
		}
	}
	return false, nil
}

func (r *UserRepository) Update(_ context.Context, u *entity.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	current, ok := r.s.users[u.ID]
	if !ok {
		return errs.ErrNotFound
	}
	for id, other := range r.s.users {
		if id == u.ID {
			continue
		}
		if strings.EqualFold(other.Email, u.Email) {
			return errs.ErrDuplicateEmail
		}
		if other.Phone == u.Phone {
			return errs.ErrDuplicatePhone
		}
	}
	current.Email = u.Email
	current.Phone = u.Phone
	current.FirstName = u.FirstName
	current.LastName = u.LastName
	current.MiddleName = u.MiddleName
	current.UpdatedAt = r.s.now()
	r.s.users[u.ID] = current
	*u = current
	return nil
}

func (r *UserRepository) UpdatePassword(_ context.Context, id, hash string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[id]
	if !ok {
		return errs.ErrNotFound
	}
	u.PasswordHash = hash
	u.UpdatedAt = r.s.now()
	r.s.users[id] = u
	return nil
}

func (r *UserRepository) SetRole(_ context.Context, id string, role entity.Role) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[id]
	if !ok {
		return errs.ErrNotFound
	}
	u.Role = role
	u.UpdatedAt = r.s.now()
	r.s.users[id] = u
	return nil
}

// ---- advertisements ----

type AdvertisementRepository struct{ s *Store }

func (r *AdvertisementRepository) stampImages(adID int64, images []entity.Image, at time.Time) []entity.Image {
	out := make([]entity.Image, len(images))
	for i, img := range images {
		r.s.nextImgID++
		img.ID = r.s.nextImgID
		img.AdvertisementID = adID
		img.Position = i
		img.CreatedAt = at
		out[i] = img
	}
	return out
}

func (r *AdvertisementRepository) Create(_ context.Context, ad *entity.Advertisement) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.users[ad.AuthorID]; !ok {
		return errs.ErrNotFound
	}
	r.s.nextAdID++
	now := r.s.now()
	ad.ID = r.s.nextAdID
	ad.CreatedAt, ad.UpdatedAt = now, now
	ad.Images = r.stampImages(ad.ID, ad.Images, now)
	r.s.ads[ad.ID] = copyAd(*ad)
	return nil
}

func (r *AdvertisementRepository) GetByID(_ context.Context, id int64) (*entity.Advertisement, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	ad, ok := r.s.ads[id]
	if !ok {
		return nil, errs.ErrNotFound
	}
	out := copyAd(ad)
	return &out, nil
}

func (r *AdvertisementRepository) List(_ context.Context, f repository.AdvertisementFilter) ([]entity.Advertisement, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := make([]entity.Advertisement, 0)
	for _, ad := range r.s.ads {
		if f.Status != "" && ad.Status != f.Status {
			continue
		}
		if f.AuthorID != "" && ad.AuthorID != f.AuthorID {
			continue
		}
		if f.FavoritedBy != "" {
			if _, ok := r.s.favorites[favoriteKey{f.FavoritedBy, ad.ID}]; !ok {
				continue
			}
		}
		out = append(out, copyAd(ad))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (r *AdvertisementRepository) UpdateContent(_ context.Context, ad *entity.Advertisement, replaceImages bool) ([]entity.Image, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	current, ok := r.s.ads[ad.ID]
	if !ok {
		return nil, errs.ErrNotFound
	}
	now := r.s.now()
	current.Title = ad.Title
	current.Description = ad.Description
	current.Price = ad.Price
	current.Status = ad.Status
	current.UpdatedAt = now
	var removed []entity.Image
	if replaceImages {
		removed = current.Images
		current.Images = r.stampImages(ad.ID, ad.Images, now)
	}
	r.s.ads[ad.ID] = current
	*ad = copyAd(current)
	return removed, nil
}

func (r *AdvertisementRepository) SetStatus(_ context.Context, id int64, status entity.Status) (*entity.Advertisement, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	ad, ok := r.s.ads[id]
	if !ok {
		return nil, errs.ErrNotFound
	}
	ad.Status = status
	ad.UpdatedAt = r.s.now()
	r.s.ads[id] = ad
	out := copyAd(ad)
	return &out, nil
}

func (r *AdvertisementRepository) Delete(_ context.Context, id int64) ([]entity.Image, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	ad, ok := r.s.ads[id]
	if !ok {
		return nil, errs.ErrNotFound
	}
	delete(r.s.ads, id)
	for k := range r.s.favorites {
		if k.adID == id {
			delete(r.s.favorites, k)
		}
	}
	return ad.Images, nil
}

// ---- favorites ----

type FavoriteRepository struct{ s *Store }

func (r *FavoriteRepository) Add(_ context.Context, userID string, advertisementID int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.ads[advertisementID]; !ok {
		return errs.ErrNotFound
	}
	k := favoriteKey{userID, advertisementID}
	if _, ok := r.s.favorites[k]; ok {
		return errs.ErrAlreadyFavorited
	}
	r.s.favorites[k] = r.s.now()
	return nil
}

func (r *FavoriteRepository) Remove(_ context.Context, userID string, advertisementID int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	k := favoriteKey{userID, advertisementID}
	if _, ok := r.s.favorites[k]; !ok {
		return errs.ErrNotFound
	}
	delete(r.s.favorites, k)
	return nil
}

func (r *FavoriteRepository) FavoritedAmong(_ context.Context, userID string, ids []int64) (map[int64]bool, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := make(map[int64]bool, len(ids))
	for _, id := range ids {
		if _, ok := r.s.favorites[favoriteKey{userID, id}]; ok {
			out[id] = true
		}
	}
	return out, nil
}

var (
	_ repository.UserRepository          = (*UserRepository)(nil)
	_ repository.AdvertisementRepository = (*AdvertisementRepository)(nil)
	_ repository.FavoriteRepository      = (*FavoriteRepository)(nil)
)
