package application

import (
	"context"
	"errors"
	"time"

	"github.com/oksasatya/adhunt/internal/domain/entity"
	"github.com/oksasatya/adhunt/internal/domain/errs"
	"github.com/oksasatya/adhunt/internal/domain/policy"
	repo "github.com/oksasatya/adhunt/internal/domain/repository"
)

// AuthorView is the public profile embedded in advertisement views.
type AuthorView struct {
	Email       string `json:"email"`
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	MiddleName  string `json:"middle_name"`
	PhoneNumber string `json:"phone_number"`
	Role        string `json:"role"`
}

type ImageView struct {
	ID    int64  `json:"id"`
	Image string `json:"image"`
}

type AdvertisementView struct {
	ID          int64       `json:"id"`
	Title       string      `json:"title"`
	Description string      `json:"description"`
	Price       string      `json:"price"`
	Status      string      `json:"status"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
	Author      *AuthorView `json:"author"`
	Images      []ImageView `json:"images"`
	IsFavorite  bool        `json:"is_favorite"`
}

func NewAuthorView(u *entity.User) *AuthorView {
	if u == nil {
		return nil
	}
	return &AuthorView{
		Email:       u.Email,
		FirstName:   u.FirstName,
		LastName:    u.LastName,
		MiddleName:  u.MiddleName,
		PhoneNumber: u.Phone,
		Role:        u.Role.String(),
	}
}

// QueryService builds the role-scoped advertisement views.
type QueryService struct {
	Ads          repo.AdvertisementRepository
	Users        repo.UserRepository
	FavoriteRepo repo.FavoriteRepository
}

func NewQueryService(ads repo.AdvertisementRepository, users repo.UserRepository, favorites repo.FavoriteRepository) *QueryService {
	return &QueryService{Ads: ads, Users: users, FavoriteRepo: favorites}
}

// PublicList returns active advertisements for any viewer.
func (q *QueryService) PublicList(ctx context.Context, actor policy.Actor) ([]AdvertisementView, error) {
	return q.list(ctx, actor, repo.AdvertisementFilter{Status: entity.StatusActive})
}

// Mine returns the actor's own advertisements in every status.
func (q *QueryService) Mine(ctx context.Context, actor policy.Actor) ([]AdvertisementView, error) {
	if !actor.Authenticated() {
		return nil, errs.ErrUnauthorized
	}
	return q.list(ctx, actor, repo.AdvertisementFilter{AuthorID: actor.UserID})
}

// ModerationQueue returns pending advertisements to moderators.
func (q *QueryService) ModerationQueue(ctx context.Context, actor policy.Actor) ([]AdvertisementView, error) {
	if !actor.Authenticated() {
		return nil, errs.ErrUnauthorized
	}
	if !policy.CanPerform(actor, policy.ActionModerate, nil) {
		return nil, errs.ErrForbidden
	}
	return q.list(ctx, actor, repo.AdvertisementFilter{Status: entity.StatusPending})
}

// Favorites returns the advertisements the actor has favorited.
func (q *QueryService) Favorites(ctx context.Context, actor policy.Actor) ([]AdvertisementView, error) {
	if !actor.Authenticated() {
		return nil, errs.ErrUnauthorized
	}
	return q.list(ctx, actor, repo.AdvertisementFilter{FavoritedBy: actor.UserID})
}

// Detail returns one advertisement, or errs.ErrNotFound when the actor may
// not view it.
func (q *QueryService) Detail(ctx context.Context, actor policy.Actor, id int64) (*AdvertisementView, error) {
	ad, err := q.Ads.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !policy.CanPerform(actor, policy.ActionView, ad) {
		return nil, errs.ErrNotFound
	}
	return q.Project(ctx, actor, ad)
}

// Project renders a single advertisement for actor.
func (q *QueryService) Project(ctx context.Context, actor policy.Actor, ad *entity.Advertisement) (*AdvertisementView, error) {
	views, err := q.project(ctx, actor, []entity.Advertisement{*ad})
	if err != nil {
		return nil, err
	}
	return &views[0], nil
}

func (q *QueryService) list(ctx context.Context, actor policy.Actor, f repo.AdvertisementFilter) ([]AdvertisementView, error) {
	ads, err := q.Ads.List(ctx, f)
	if err != nil {
		return nil, err
	}
	return q.project(ctx, actor, ads)
}

func (q *QueryService) project(ctx context.Context, actor policy.Actor, ads []entity.Advertisement) ([]AdvertisementView, error) {
	favorited := map[int64]bool{}
	if actor.Authenticated() && len(ads) > 0 {
		ids := make([]int64, len(ads))
		for i := range ads {
			ids[i] = ads[i].ID
		}
		var err error
		if favorited, err = q.FavoriteRepo.FavoritedAmong(ctx, actor.UserID, ids); err != nil {
			return nil, err
		}
	}

	authors := map[string]*AuthorView{}
	out := make([]AdvertisementView, 0, len(ads))
	for i := range ads {
		ad := &ads[i]
		author, ok := authors[ad.AuthorID]
		if !ok {
			u, err := q.Users.GetByID(ctx, ad.AuthorID)
			if err != nil && !errors.Is(err, errs.ErrNotFound) {
				return nil, err
			}
			author = NewAuthorView(u)
			authors[ad.AuthorID] = author
		}
		images := make([]ImageView, 0, len(ad.Images))
		for _, img := range ad.Images {
			images = append(images, ImageView{ID: img.ID, Image: img.URL})
		}
		out = append(out, AdvertisementView{
			ID:          ad.ID,
			Title:       ad.Title,
			Description: ad.Description,
			Price:       ad.Price.StringFixed(2),
			Status:      ad.Status.String(),
			CreatedAt:   ad.CreatedAt,
			UpdatedAt:   ad.UpdatedAt,
			Author:      author,
			Images:      images,
			IsFavorite:  favorited[ad.ID],
		})
	}
	return out, nil
}
