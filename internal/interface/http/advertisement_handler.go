package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/adhunt/internal/application"
	"github.com/oksasatya/adhunt/internal/domain/errs"
	"github.com/oksasatya/adhunt/internal/domain/policy"
	"github.com/oksasatya/adhunt/internal/interface/middleware"
	"github.com/oksasatya/adhunt/pkg/response"
	"github.com/oksasatya/adhunt/pkg/validation"
)

const imagesField = "images"

type AdvertisementHandler struct {
	Ads       *application.AdvertisementService
	Queries   *application.QueryService
	Favorites *application.FavoritesService
	Logger    *logrus.Logger
}

func NewAdvertisementHandler(ads *application.AdvertisementService, queries *application.QueryService, favorites *application.FavoritesService, logger *logrus.Logger) *AdvertisementHandler {
	return &AdvertisementHandler{Ads: ads, Queries: queries, Favorites: favorites, Logger: logger}
}

// amount is a price as sent by the client: a JSON string or number, or a
// form value.
type amount string

func (a *amount) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*a = amount(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*a = amount(n.String())
	return nil
}

func (a *amount) ptr() *string {
	if a == nil {
		return nil
	}
	s := string(*a)
	return &s
}

type createAdRequest struct {
	Title       string `json:"title" form:"title" binding:"required"`
	Description string `json:"description" form:"description" binding:"required"`
	Price       amount `json:"price" form:"price" binding:"required,money"`
}

// updateAdRequest is a partial edit; absent fields stay nil.
type updateAdRequest struct {
	Title       *string `json:"title" form:"title"`
	Description *string `json:"description" form:"description"`
	Price       *amount `json:"price" form:"price" binding:"omitempty,money"`
}

// moderateRequest is validated by the service so that a non-moderator gets
// 403 before any status check.
type moderateRequest struct {
	Status string `json:"status"`
}

func pathID(c *gin.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, errs.ErrNotFound
	}
	return id, nil
}

// bindBody binds a JSON, urlencoded or multipart body into obj. An empty
// body binds nothing and only runs the struct validation.
func bindBody(c *gin.Context, obj any) error {
	var err error
	switch c.ContentType() {
	case binding.MIMEJSON, binding.MIMEPOSTForm, binding.MIMEMultipartPOSTForm:
		err = c.ShouldBind(obj)
		if errors.Is(err, io.EOF) {
			err = binding.Validator.ValidateStruct(obj)
		}
	default:
		if c.Request.ContentLength != 0 {
			return errs.Field("payload", "unsupported content type "+strconv.Quote(c.ContentType()))
		}
		err = binding.Validator.ValidateStruct(obj)
	}
	if err != nil {
		return errs.FieldErrors(validation.ToDetails(err))
	}
	return nil
}

// readUploads collects the images files. Each is read up to one byte past
// the size limit so the service can reject oversize files without buffering
// them whole.
func (h *AdvertisementHandler) readUploads(c *gin.Context) ([]application.ImageUpload, error) {
	form, err := c.MultipartForm()
	if errors.Is(err, http.ErrNotMultipart) {
		return nil, nil
	}
	if err != nil {
		return nil, errs.Field("payload", "invalid multipart form")
	}
	files := form.File[imagesField]
	out := make([]application.ImageUpload, 0, len(files))
	for _, fh := range files {
		data, err := h.readFile(fh)
		if err != nil {
			return nil, fmt.Errorf("read upload %q: %w", fh.Filename, err)
		}
		out = append(out, application.ImageUpload{Filename: fh.Filename, Data: data})
	}
	return out, nil
}

func (h *AdvertisementHandler) readFile(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()
	var r io.Reader = f
	if h.Ads.MaxImageBytes > 0 {
		r = io.LimitReader(f, h.Ads.MaxImageBytes+1)
	}
	return io.ReadAll(r)
}

func (h *AdvertisementHandler) view(c *gin.Context, status int, message string, build func() (*application.AdvertisementView, error)) {
	v, err := build()
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	response.Success(c, status, v, message, nil)
}

func (h *AdvertisementHandler) list(c *gin.Context, build func() ([]application.AdvertisementView, error)) {
	views, err := build()
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	response.List(c, views, "advertisements", map[string]any{"count": len(views)})
}

// List GET /api/advertisements
func (h *AdvertisementHandler) List(c *gin.Context) {
	h.list(c, func() ([]application.AdvertisementView, error) {
		return h.Queries.PublicList(c.Request.Context(), middleware.ActorFrom(c))
	})
}

// Mine GET /api/advertisements/my
func (h *AdvertisementHandler) Mine(c *gin.Context) {
	h.list(c, func() ([]application.AdvertisementView, error) {
		return h.Queries.Mine(c.Request.Context(), middleware.ActorFrom(c))
	})
}

// ModerationQueue GET /api/advertisements/moderate
func (h *AdvertisementHandler) ModerationQueue(c *gin.Context) {
	h.list(c, func() ([]application.AdvertisementView, error) {
		return h.Queries.ModerationQueue(c.Request.Context(), middleware.ActorFrom(c))
	})
}

// FavoritesList GET /api/advertisements/favorites
func (h *AdvertisementHandler) FavoritesList(c *gin.Context) {
	h.list(c, func() ([]application.AdvertisementView, error) {
		return h.Queries.Favorites(c.Request.Context(), middleware.ActorFrom(c))
	})
}

// Detail GET /api/advertisements/:id
func (h *AdvertisementHandler) Detail(c *gin.Context) {
	h.view(c, http.StatusOK, "advertisement", func() (*application.AdvertisementView, error) {
		id, err := pathID(c)
		if err != nil {
			return nil, err
		}
		return h.Queries.Detail(c.Request.Context(), middleware.ActorFrom(c), id)
	})
}

// Create POST /api/advertisements (multipart: title, description, price, images[];
// or JSON without images). A status field is ignored.
func (h *AdvertisementHandler) Create(c *gin.Context) {
	h.view(c, http.StatusCreated, "advertisement created", func() (*application.AdvertisementView, error) {
		var req createAdRequest
		if err := bindBody(c, &req); err != nil {
			return nil, err
		}
		uploads, err := h.readUploads(c)
		if err != nil {
			return nil, err
		}
		ctx, actor := c.Request.Context(), middleware.ActorFrom(c)
		ad, err := h.Ads.Create(ctx, actor, application.CreateInput{
			Title:       req.Title,
			Description: req.Description,
			Price:       string(req.Price),
			Images:      uploads,
		})
		if err != nil {
			return nil, err
		}
		return h.Queries.Project(ctx, actor, ad)
	})
}

// Update PUT /api/advertisements/:id. The advertisement goes back to pending.
func (h *AdvertisementHandler) Update(c *gin.Context) {
	h.view(c, http.StatusOK, "advertisement updated", func() (*application.AdvertisementView, error) {
		id, err := pathID(c)
		if err != nil {
			return nil, err
		}
		var req updateAdRequest
		if err := bindBody(c, &req); err != nil {
			return nil, err
		}
		uploads, err := h.readUploads(c)
		if err != nil {
			return nil, err
		}
		ctx, actor := c.Request.Context(), middleware.ActorFrom(c)
		ad, err := h.Ads.Update(ctx, actor, id, application.UpdateInput{
			Title:       req.Title,
			Description: req.Description,
			Price:       req.Price.ptr(),
			Images:      uploads,
		})
		if err != nil {
			return nil, err
		}
		return h.Queries.Project(ctx, actor, ad)
	})
}

// Delete DELETE /api/advertisements/:id
func (h *AdvertisementHandler) Delete(c *gin.Context) {
	id, err := pathID(c)
	if err == nil {
		err = h.Ads.Delete(c.Request.Context(), middleware.ActorFrom(c), id)
	}
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	response.NoContent(c)
}

// Moderate POST /api/advertisements/moderate/:id {"status": "active"|"rejected"}
func (h *AdvertisementHandler) Moderate(c *gin.Context) {
	h.view(c, http.StatusOK, "advertisement moderated", func() (*application.AdvertisementView, error) {
		id, err := pathID(c)
		if err != nil {
			return nil, err
		}
		ctx, actor := c.Request.Context(), middleware.ActorFrom(c)
		var req moderateRequest
		if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
			if !policy.CanPerform(actor, policy.ActionModerate, nil) {
				return nil, errs.ErrForbidden
			}
			return nil, errs.FieldErrors(validation.ToDetails(err))
		}
		ad, err := h.Ads.Moderate(ctx, actor, id, req.Status)
		if err != nil {
			return nil, err
		}
		return h.Queries.Project(ctx, actor, ad)
	})
}

// AddFavorite POST /api/advertisements/favorites/:id
func (h *AdvertisementHandler) AddFavorite(c *gin.Context) {
	id, err := pathID(c)
	if err == nil {
		err = h.Favorites.Add(c.Request.Context(), middleware.ActorFrom(c), id)
	}
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	response.Success[any](c, http.StatusCreated, map[string]any{"advertisement_id": id}, "added to favorites", nil)
}

// RemoveFavorite DELETE /api/advertisements/favorites/:id
func (h *AdvertisementHandler) RemoveFavorite(c *gin.Context) {
	id, err := pathID(c)
	if err == nil {
		err = h.Favorites.Remove(c.Request.Context(), middleware.ActorFrom(c), id)
	}
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	response.NoContent(c)
}
