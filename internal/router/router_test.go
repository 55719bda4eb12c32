package router

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	"image/png"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oksasatya/adhunt/internal/application"
	"github.com/oksasatya/adhunt/internal/infrastructure/memory"
	"github.com/oksasatya/adhunt/internal/infrastructure/objectstore"
	"github.com/oksasatya/adhunt/internal/interface/middleware"
	"github.com/oksasatya/adhunt/pkg/helpers"
)

const strongPassword = "Corr3ct-Horse-Battery"

type envelope struct {
	Status  int               `json:"status"`
	Success bool              `json:"success"`
	Message string            `json:"message"`
	Data    json.RawMessage   `json:"data"`
	Error   map[string]string `json:"error"`
}

type adView struct {
	ID         int64  `json:"id"`
	Title      string `json:"title"`
	Price      string `json:"price"`
	Status     string `json:"status"`
	IsFavorite bool   `json:"is_favorite"`
	Author     struct {
		Email string `json:"email"`
	} `json:"author"`
	Images []struct {
		Image string `json:"image"`
	} `json:"images"`
}

type api struct {
	t        *testing.T
	engine   *gin.Engine
	identity *application.IdentityService
	store    *memory.Store
	images   *objectstore.Memory
}

func newAPI(t *testing.T) *api {
	t.Helper()
	gin.SetMode(gin.TestMode)
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	store := memory.NewStore()
	images := objectstore.NewMemory("")
	jwt := helpers.NewJWTManager("access", "refresh", 15*time.Minute, time.Hour)
	identity := application.NewIdentityService(store.Users(), jwt, rdb, logger)

	deps := Deps{
		Identity: identity,
		Ads: application.NewAdvertisementService(store.Advertisements(), store.Users(), images,
			application.DisabledNotifier{}, logger, 1<<20, 5),
		Queries:   application.NewQueryService(store.Advertisements(), store.Users(), store.Favorites()),
		Favorites: application.NewFavoritesService(store.Favorites()),
		JWT:       jwt,
		Cookies:   helpers.NewCookie("", false),
		Logger:    logger,
	}

	engine := gin.New()
	engine.Use(middleware.RequestIDMiddleware())
	reg := NewRegistry(engine)
	InitModulesWith(reg, deps)
	reg.RegisterAll()
	return &api{t: t, engine: engine, identity: identity, store: store, images: images}
}

func (a *api) do(req *http.Request, token string) (int, envelope) {
	a.t.Helper()
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	a.engine.ServeHTTP(w, req)
	var env envelope
	if w.Body.Len() > 0 {
		require.NoError(a.t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	}
	return w.Code, env
}

func (a *api) json(method, path, token string, body any) (int, envelope) {
	a.t.Helper()
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(a.t, err)
		r = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, r)
	req.Header.Set("Content-Type", "application/json")
	return a.do(req, token)
}

func (a *api) form(method, path, token string, fields map[string]string, withImage bool) (int, envelope) {
	a.t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(a.t, mw.WriteField(k, v))
	}
	if withImage {
		part, err := mw.CreateFormFile("images", "photo.png")
		require.NoError(a.t, err)
		require.NoError(a.t, png.Encode(part, image.NewRGBA(image.Rect(0, 0, 2, 2))))
	}
	require.NoError(a.t, mw.Close())
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return a.do(req, token)
}

func (a *api) register(email, phone string) string {
	a.t.Helper()
	code, env := a.json(http.MethodPost, "/api/register", "", map[string]any{
		"email":        email,
		"password":     strongPassword,
		"first_name":   "Test",
		"last_name":    "User",
		"phone_number": phone,
		"role":         "moderator",
	})
	require.Equal(a.t, http.StatusCreated, code, env.Message)
	var tokens struct {
		Access  string `json:"access"`
		Refresh string `json:"refresh"`
	}
	require.NoError(a.t, json.Unmarshal(env.Data, &tokens))
	require.NotEmpty(a.t, tokens.Access)
	require.NotEmpty(a.t, tokens.Refresh)
	return tokens.Access
}

func (a *api) moderator() string {
	a.t.Helper()
	ctx := context.Background()
	_, _, err := a.identity.EnsureModerator(ctx, application.RegisterInput{
		Email: "mod@x.com", Password: strongPassword, FirstName: "Mod", LastName: "Erator", Phone: "+15550009999",
	})
	require.NoError(a.t, err)
	code, env := a.json(http.MethodPost, "/api/token", "", map[string]string{"email": "mod@x.com", "password": strongPassword})
	require.Equal(a.t, http.StatusOK, code)
	var tokens struct {
		Access string `json:"access"`
	}
	require.NoError(a.t, json.Unmarshal(env.Data, &tokens))
	return tokens.Access
}

func decodeAd(t *testing.T, env envelope) adView {
	t.Helper()
	var v adView
	require.NoError(t, json.Unmarshal(env.Data, &v))
	return v
}

func (a *api) list(path, token string) []adView {
	a.t.Helper()
	code, env := a.json(http.MethodGet, path, token, nil)
	require.Equal(a.t, http.StatusOK, code, env.Message)
	var views []adView
	require.NoError(a.t, json.Unmarshal(env.Data, &views))
	return views
}

func ids(views []adView) []int64 {
	out := make([]int64, 0, len(views))
	for _, v := range views {
		out = append(out, v.ID)
	}
	return out
}

func TestScenario_PublishEditRepublish(t *testing.T) {
	a := newAPI(t)
	alice := a.register("a@x.com", "+15550000001")
	mod := a.moderator()

	code, env := a.form(http.MethodPost, "/api/advertisements", alice,
		map[string]string{"title": "Bike", "description": "red", "price": "100", "status": "active"}, true)
	require.Equal(t, http.StatusCreated, code, env.Error)
	ad := decodeAd(t, env)
	assert.Equal(t, "pending", ad.Status)
	assert.Equal(t, "100.00", ad.Price)
	assert.Equal(t, "a@x.com", ad.Author.Email)
	require.Len(t, ad.Images, 1)
	assert.Equal(t, 1, a.images.Len())

	assert.NotContains(t, ids(a.list("/api/advertisements", "")), ad.ID)
	assert.Contains(t, ids(a.list("/api/advertisements/moderate", mod)), ad.ID)

	code, env = a.json(http.MethodPost, fmt.Sprintf("/api/advertisements/moderate/%d", ad.ID), mod, map[string]string{"status": "active"})
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "active", decodeAd(t, env).Status)

	public := a.list("/api/advertisements", "")
	require.Contains(t, ids(public), ad.ID)
	assert.Equal(t, "active", public[0].Status)

	code, env = a.form(http.MethodPut, fmt.Sprintf("/api/advertisements/%d", ad.ID), alice, map[string]string{"price": "90"}, false)
	require.Equal(t, http.StatusOK, code, env.Error)
	edited := decodeAd(t, env)
	assert.Equal(t, "pending", edited.Status)
	assert.Equal(t, "90.00", edited.Price)
	assert.Len(t, edited.Images, 1, "an edit without images keeps them")

	assert.NotContains(t, ids(a.list("/api/advertisements", "")), ad.ID)
	assert.Contains(t, ids(a.list("/api/advertisements/my", alice)), ad.ID)
}

func TestScenario_FavoriteThenAuthorDeletes(t *testing.T) {
	a := newAPI(t)
	alice := a.register("a@x.com", "+15550000001")
	bob := a.register("b@x.com", "+15550000002")

	code, env := a.form(http.MethodPost, "/api/advertisements", alice,
		map[string]string{"title": "Lamp", "description": "old", "price": "5.5"}, true)
	require.Equal(t, http.StatusCreated, code)
	ad := decodeAd(t, env)
	path := fmt.Sprintf("/api/advertisements/favorites/%d", ad.ID)

	code, _ = a.json(http.MethodPost, path, bob, nil)
	assert.Equal(t, http.StatusCreated, code)
	code, _ = a.json(http.MethodPost, path, bob, nil)
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, 1, a.store.FavoriteCount())

	favs := a.list("/api/advertisements/favorites", bob)
	require.Equal(t, []int64{ad.ID}, ids(favs))
	assert.True(t, favs[0].IsFavorite)

	code, _ = a.json(http.MethodDelete, fmt.Sprintf("/api/advertisements/%d", ad.ID), bob, nil)
	assert.Equal(t, http.StatusForbidden, code)

	code, _ = a.json(http.MethodDelete, fmt.Sprintf("/api/advertisements/%d", ad.ID), alice, nil)
	assert.Equal(t, http.StatusNoContent, code)
	assert.Empty(t, a.list("/api/advertisements/favorites", bob))
	assert.Zero(t, a.store.FavoriteCount())
	assert.Zero(t, a.images.Len())

	code, _ = a.json(http.MethodDelete, path, bob, nil)
	assert.Equal(t, http.StatusNotFound, code)
}

func TestModeration_Guards(t *testing.T) {
	a := newAPI(t)
	alice := a.register("a@x.com", "+15550000001")
	mod := a.moderator()

	code, env := a.form(http.MethodPost, "/api/advertisements", alice,
		map[string]string{"title": "Desk", "description": "oak", "price": "20"}, false)
	require.Equal(t, http.StatusCreated, code)
	ad := decodeAd(t, env)
	path := fmt.Sprintf("/api/advertisements/moderate/%d", ad.ID)

	code, _ = a.json(http.MethodPost, path, alice, map[string]string{"status": "active"})
	assert.Equal(t, http.StatusForbidden, code)
	code, _ = a.json(http.MethodGet, "/api/advertisements/moderate", alice, nil)
	assert.Equal(t, http.StatusForbidden, code)

	for _, status := range []string{"pending", "archived", ""} {
		code, env = a.json(http.MethodPost, path, mod, map[string]string{"status": status})
		assert.Equal(t, http.StatusBadRequest, code, status)
		assert.Contains(t, env.Error, "status")
	}

	code, _ = a.json(http.MethodPost, "/api/advertisements/moderate/9999", mod, map[string]string{"status": "active"})
	assert.Equal(t, http.StatusNotFound, code)

	code, _ = a.json(http.MethodPut, fmt.Sprintf("/api/advertisements/%d", ad.ID), mod, nil)
	assert.Equal(t, http.StatusForbidden, code, "moderators cannot edit others' ads")

	// still pending, so hidden from anonymous callers and visible to the moderator
	code, _ = a.json(http.MethodGet, fmt.Sprintf("/api/advertisements/%d", ad.ID), "", nil)
	assert.Equal(t, http.StatusNotFound, code)
	code, _ = a.json(http.MethodGet, fmt.Sprintf("/api/advertisements/%d", ad.ID), mod, nil)
	assert.Equal(t, http.StatusOK, code)
}

func TestRegister_Validation(t *testing.T) {
	a := newAPI(t)
	a.register("a@x.com", "+15550000001")

	code, env := a.json(http.MethodPost, "/api/register", "", map[string]string{
		"email": "a@X.com", "password": strongPassword, "first_name": "A", "last_name": "B", "phone_number": "+15550000001",
	})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Contains(t, env.Error, "email")
	assert.Contains(t, env.Error, "phone_number")

	code, env = a.json(http.MethodPost, "/api/register", "", map[string]string{
		"email": "c@x.com", "password": "12345678", "first_name": "A", "last_name": "B", "phone_number": "+15550000003",
	})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Contains(t, env.Error, "password")

	code, env = a.json(http.MethodPost, "/api/register", "", map[string]string{"email": "nope"})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Contains(t, env.Error, "email")
	assert.Contains(t, env.Error, "phone_number")
}

func TestProfile_RoleIsReadOnly(t *testing.T) {
	a := newAPI(t)
	alice := a.register("a@x.com", "+15550000001")

	code, env := a.json(http.MethodPut, "/api/profile", alice, map[string]string{"first_name": "Alicia", "role": "moderator"})
	require.Equal(t, http.StatusOK, code, env.Error)

	code, env = a.json(http.MethodGet, "/api/profile", alice, nil)
	require.Equal(t, http.StatusOK, code)
	var profile application.AuthorView
	require.NoError(t, json.Unmarshal(env.Data, &profile))
	assert.Equal(t, "Alicia", profile.FirstName)
	assert.Equal(t, "user", profile.Role)
}

func TestChangePassword_AndLogin(t *testing.T) {
	a := newAPI(t)
	alice := a.register("a@x.com", "+15550000001")
	const next = "Another-Str0ng-One"

	code, env := a.json(http.MethodPost, "/api/profile/change-password", alice, map[string]string{
		"old_password": "wrong", "new_password": next, "confirm_password": next,
	})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Contains(t, env.Error, "old_password")

	code, env = a.json(http.MethodPost, "/api/profile/change-password", alice, map[string]string{
		"old_password": strongPassword, "new_password": next, "confirm_password": next + "x",
	})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Contains(t, env.Error, "confirm_password")

	code, _ = a.json(http.MethodPost, "/api/profile/change-password", alice, map[string]string{
		"old_password": strongPassword, "new_password": next, "confirm_password": next,
	})
	assert.Equal(t, http.StatusOK, code)

	code, _ = a.json(http.MethodPost, "/api/token", "", map[string]string{"email": "a@x.com", "password": strongPassword})
	assert.Equal(t, http.StatusUnauthorized, code)
	code, _ = a.json(http.MethodPost, "/api/token", "", map[string]string{"email": "a@x.com", "password": next})
	assert.Equal(t, http.StatusOK, code)
}

func TestAuthRequired(t *testing.T) {
	a := newAPI(t)
	for _, r := range []struct{ method, path string }{
		{http.MethodPost, "/api/advertisements"},
		{http.MethodGet, "/api/advertisements/my"},
		{http.MethodGet, "/api/advertisements/favorites"},
		{http.MethodGet, "/api/profile"},
	} {
		code, _ := a.json(r.method, r.path, "", nil)
		assert.Equal(t, http.StatusUnauthorized, code, r.path)
	}
}

func TestLogout_EndsSession(t *testing.T) {
	a := newAPI(t)
	alice := a.register("a@x.com", "+15550000001")

	code, _ := a.json(http.MethodPost, "/api/logout", alice, nil)
	require.Equal(t, http.StatusOK, code)
	code, _ = a.json(http.MethodGet, "/api/profile", alice, nil)
	assert.Equal(t, http.StatusUnauthorized, code)
}

func TestHealthz(t *testing.T) {
	a := newAPI(t)
	w := httptest.NewRecorder()
	a.engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestEdit_JSONBodyApplies(t *testing.T) {
	a := newAPI(t)
	alice := a.register("a@x.com", "+15550000001")
	mod := a.moderator()

	code, env := a.json(http.MethodPost, "/api/advertisements", alice,
		map[string]any{"title": "Bike", "description": "red", "price": 100})
	require.Equal(t, http.StatusCreated, code, env.Error)
	ad := decodeAd(t, env)
	assert.Equal(t, "100.00", ad.Price)
	code, _ = a.json(http.MethodPost, fmt.Sprintf("/api/advertisements/moderate/%d", ad.ID), mod, map[string]string{"status": "active"})
	require.Equal(t, http.StatusOK, code)

	path := fmt.Sprintf("/api/advertisements/%d", ad.ID)
	code, env = a.json(http.MethodPut, path, alice, map[string]string{"price": "90", "title": "Bicycle"})
	require.Equal(t, http.StatusOK, code, env.Error)
	edited := decodeAd(t, env)
	assert.Equal(t, "Bicycle", edited.Title)
	assert.Equal(t, "90.00", edited.Price)
	assert.Equal(t, "pending", edited.Status)

	code, env = a.json(http.MethodPut, path, alice, map[string]string{"price": "-1"})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Contains(t, env.Error, "price")

	req := httptest.NewRequest(http.MethodPut, path, strings.NewReader("title=Trike"))
	req.Header.Set("Content-Type", "text/plain")
	code, env = a.do(req, alice)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Contains(t, env.Error, "payload")

	code, env = a.json(http.MethodGet, path, alice, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "Bicycle", decodeAd(t, env).Title)
}

func TestModerate_RejectsPaddedStatusAndBadJSON(t *testing.T) {
	a := newAPI(t)
	alice := a.register("a@x.com", "+15550000001")
	mod := a.moderator()

	code, env := a.form(http.MethodPost, "/api/advertisements", alice,
		map[string]string{"title": "Desk", "description": "oak", "price": "20"}, false)
	require.Equal(t, http.StatusCreated, code)
	path := fmt.Sprintf("/api/advertisements/moderate/%d", decodeAd(t, env).ID)

	code, env = a.json(http.MethodPost, path, mod, map[string]string{"status": " active "})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Contains(t, env.Error, "status")

	bad := func(token string) (int, envelope) {
		req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(`{"status":`))
		req.Header.Set("Content-Type", "application/json")
		return a.do(req, token)
	}
	code, env = bad(mod)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Contains(t, env.Error, "payload")
	code, _ = bad(alice)
	assert.Equal(t, http.StatusForbidden, code)
}

func TestPasswordOverBcryptLimit(t *testing.T) {
	a := newAPI(t)
	long := strings.Repeat("Zq9-", 20)

	code, env := a.json(http.MethodPost, "/api/register", "", map[string]string{
		"email": "c@x.com", "password": long, "first_name": "A", "last_name": "B", "phone_number": "+15550000003",
	})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Contains(t, env.Error, "password")

	alice := a.register("a@x.com", "+15550000001")
	code, env = a.json(http.MethodPost, "/api/profile/change-password", alice, map[string]string{
		"old_password": strongPassword, "new_password": long, "confirm_password": long,
	})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Contains(t, env.Error, "new_password")
}

func TestList_EmptyIsArray(t *testing.T) {
	a := newAPI(t)
	code, env := a.json(http.MethodGet, "/api/advertisements", "", nil)
	require.Equal(t, http.StatusOK, code)
	assert.JSONEq(t, `[]`, string(env.Data))
}
