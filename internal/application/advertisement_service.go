package application

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/gif"  // register GIF
	_ "image/jpeg" // register JPEG
	_ "image/png"  // register PNG
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	_ "golang.org/x/image/webp" // register WebP

	"github.com/oksasatya/adhunt/internal/domain/entity"
	"github.com/oksasatya/adhunt/internal/domain/errs"
	"github.com/oksasatya/adhunt/internal/domain/policy"
	repo "github.com/oksasatya/adhunt/internal/domain/repository"
	"github.com/oksasatya/adhunt/pkg/validation"
)

const maxTitleLength = 200

var imageFormats = map[string]struct{ contentType, ext string }{
	"jpeg": {"image/jpeg", ".jpg"},
	"png":  {"image/png", ".png"},
	"gif":  {"image/gif", ".gif"},
	"webp": {"image/webp", ".webp"},
}

// ImageUpload is one uploaded file as received from the client.
type ImageUpload struct {
	Filename string
	Data     []byte
}

type CreateInput struct {
	Title       string
	Description string
	Price       string
	Images      []ImageUpload
}

// UpdateInput is a partial edit. Nil fields keep their value; an empty
// Images slice keeps the current images, a non-empty one replaces them all.
type UpdateInput struct {
	Title       *string
	Description *string
	Price       *string
	Images      []ImageUpload
}

// AdvertisementService is the lifecycle engine: it applies creation, edits,
// moderation decisions and deletion after the policy allows them.
type AdvertisementService struct {
	Ads      repo.AdvertisementRepository
	Users    repo.UserRepository
	Storage  repo.ImageStorage
	Notifier Emitter
	Logger   *logrus.Logger

	MaxImageBytes int64
	MaxImages     int
}

func NewAdvertisementService(ads repo.AdvertisementRepository, users repo.UserRepository, storage repo.ImageStorage, notifier Emitter, logger *logrus.Logger, maxImageBytes int64, maxImages int) *AdvertisementService {
	if notifier == nil {
		notifier = DisabledNotifier{}
	}
	return &AdvertisementService{
		Ads:           ads,
		Users:         users,
		Storage:       storage,
		Notifier:      notifier,
		Logger:        logger,
		MaxImageBytes: maxImageBytes,
		MaxImages:     maxImages,
	}
}

// Create stores a new advertisement owned by actor. Status is always pending.
func (s *AdvertisementService) Create(ctx context.Context, actor policy.Actor, in CreateInput) (*entity.Advertisement, error) {
	if !actor.Authenticated() {
		return nil, errs.ErrUnauthorized
	}
	ad := &entity.Advertisement{Status: entity.StatusPending, AuthorID: actor.UserID}
	fields := errs.FieldErrors{}
	s.applyContent(ad, &in.Title, &in.Description, &in.Price, fields, true)
	prepared := s.inspectImages(in.Images, fields)
	if err := fields.OrNil(); err != nil {
		return nil, err
	}

	images, err := s.upload(ctx, prepared)
	if err != nil {
		return nil, err
	}
	ad.Images = images
	if err := s.Ads.Create(ctx, ad); err != nil {
		s.discard(ctx, images)
		return nil, fmt.Errorf("create advertisement: %w", err)
	}
	adsCreated.Add(1)
	if s.Logger != nil {
		s.Logger.WithFields(logrus.Fields{"advertisement_id": ad.ID, "author_id": ad.AuthorID}).Info("advertisement created")
	}

	s.Notifier.Emit(ad, actor.Email)
	return ad, nil
}

// Update edits an advertisement on behalf of its author and sends it back to
// review, whether or not anything changed.
func (s *AdvertisementService) Update(ctx context.Context, actor policy.Actor, id int64, in UpdateInput) (*entity.Advertisement, error) {
	ad, err := s.Ads.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !policy.CanPerform(actor, policy.ActionEdit, ad) {
		return nil, errs.ErrForbidden
	}

	fields := errs.FieldErrors{}
	s.applyContent(ad, in.Title, in.Description, in.Price, fields, false)
	prepared := s.inspectImages(in.Images, fields)
	if err := fields.OrNil(); err != nil {
		return nil, err
	}

	replace := len(prepared) > 0
	if replace {
		if ad.Images, err = s.upload(ctx, prepared); err != nil {
			return nil, err
		}
	}
	ad.Status = entity.StatusPending
	fresh := ad.Images
	removed, err := s.Ads.UpdateContent(ctx, ad, replace)
	if err != nil {
		if replace {
			s.discard(ctx, fresh)
		}
		return nil, fmt.Errorf("update advertisement %d: %w", id, err)
	}
	s.discard(ctx, removed)
	return ad, nil
}

// Moderate sets an advertisement to active or rejected. Moderators may
// re-decide at any time.
func (s *AdvertisementService) Moderate(ctx context.Context, actor policy.Actor, id int64, status string) (*entity.Advertisement, error) {
	if !policy.CanPerform(actor, policy.ActionModerate, nil) {
		return nil, errs.ErrForbidden
	}
	target, err := entity.ParseStatus(status)
	if err != nil || !target.IsModerationTarget() {
		return nil, errs.WithFields(errs.ErrInvalidStatus, errs.Field("status", "must be one of: active, rejected"))
	}
	ad, err := s.Ads.SetStatus(ctx, id, target)
	if err != nil {
		return nil, err
	}
	adsModerated.Add(1)
	if s.Logger != nil {
		s.Logger.WithFields(logrus.Fields{"advertisement_id": id, "status": target, "moderator_id": actor.UserID}).Info("advertisement moderated")
	}
	return ad, nil
}

// Delete removes an advertisement with its images and favorite links.
func (s *AdvertisementService) Delete(ctx context.Context, actor policy.Actor, id int64) error {
	ad, err := s.Ads.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if !policy.CanPerform(actor, policy.ActionDelete, ad) {
		return errs.ErrForbidden
	}
	removed, err := s.Ads.Delete(ctx, id)
	if err != nil {
		return err
	}
	adsDeleted.Add(1)
	s.discard(ctx, removed)
	return nil
}

// applyContent validates and copies the given fields onto ad. With required
// set, nil and blank values are errors.
func (s *AdvertisementService) applyContent(ad *entity.Advertisement, title, description, price *string, fields errs.FieldErrors, required bool) {
	if title != nil || required {
		t := ""
		if title != nil {
			t = strings.TrimSpace(*title)
		}
		switch {
		case t == "":
			fields.Add("title", "is required")
		case utf8.RuneCountInString(t) > maxTitleLength:
			fields.Add("title", fmt.Sprintf("must be at most %d characters", maxTitleLength))
		default:
			ad.Title = t
		}
	}
	if description != nil || required {
		d := ""
		if description != nil {
			d = strings.TrimSpace(*description)
		}
		if d == "" {
			fields.Add("description", "is required")
		} else {
			ad.Description = d
		}
	}
	if price != nil || required {
		p := ""
		if price != nil {
			p = strings.TrimSpace(*price)
		}
		if p == "" {
			fields.Add("price", "is required")
			return
		}
		v, err := validation.ParseMoney(p)
		if err != nil {
			fields.Add("price", err.Error())
			return
		}
		ad.Price = v
	}
}

type preparedImage struct {
	data        []byte
	contentType string
	ext         string
}

func (s *AdvertisementService) inspectImages(uploads []ImageUpload, fields errs.FieldErrors) []preparedImage {
	if s.MaxImages > 0 && len(uploads) > s.MaxImages {
		fields.Add("images", fmt.Sprintf("at most %d images are allowed", s.MaxImages))
		return nil
	}
	out := make([]preparedImage, 0, len(uploads))
	for _, u := range uploads {
		p, err := s.inspectImage(u)
		if err != nil {
			fields.Add("images", fmt.Sprintf("%s: %v", u.Filename, err))
			return nil
		}
		out = append(out, p)
	}
	return out
}

// inspectImage accepts only data that decodes as a supported image format.
func (s *AdvertisementService) inspectImage(u ImageUpload) (preparedImage, error) {
	if len(u.Data) == 0 {
		return preparedImage{}, errors.New("empty file")
	}
	if s.MaxImageBytes > 0 && int64(len(u.Data)) > s.MaxImageBytes {
		return preparedImage{}, fmt.Errorf("file exceeds %d bytes", s.MaxImageBytes)
	}
	_, format, err := image.DecodeConfig(bytes.NewReader(u.Data))
	if err != nil {
		return preparedImage{}, errors.New("not a valid image")
	}
	f, ok := imageFormats[format]
	if !ok {
		return preparedImage{}, fmt.Errorf("unsupported image format %q", format)
	}
	return preparedImage{data: u.Data, contentType: f.contentType, ext: f.ext}, nil
}

// upload stores every image or none.
func (s *AdvertisementService) upload(ctx context.Context, prepared []preparedImage) ([]entity.Image, error) {
	images := make([]entity.Image, 0, len(prepared))
	for i, p := range prepared {
		key := "advertisements/" + uuid.NewString() + p.ext
		url, err := s.Storage.Put(ctx, key, p.contentType, bytes.NewReader(p.data))
		if err != nil {
			s.discard(ctx, images)
			return nil, fmt.Errorf("store image: %w", err)
		}
		images = append(images, entity.Image{URL: url, ObjectKey: key, Position: i})
	}
	return images, nil
}

// discard deletes blobs best-effort.
func (s *AdvertisementService) discard(ctx context.Context, images []entity.Image) {
	for _, img := range images {
		if img.ObjectKey == "" {
			continue
		}
		if err := s.Storage.Delete(context.WithoutCancel(ctx), img.ObjectKey); err != nil && s.Logger != nil {
			s.Logger.WithError(err).WithField("object_key", img.ObjectKey).Warn("delete image blob failed")
		}
	}
}
