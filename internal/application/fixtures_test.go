package application

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/oksasatya/adhunt/internal/domain/entity"
	"github.com/oksasatya/adhunt/internal/domain/policy"
	"github.com/oksasatya/adhunt/internal/infrastructure/memory"
	"github.com/oksasatya/adhunt/internal/infrastructure/objectstore"
)

// MockEmitter records advisories.
type MockEmitter struct {
	mock.Mock
}

func (m *MockEmitter) Emit(ad *entity.Advertisement, authorEmail string) {
	m.Called(ad, authorEmail)
}

type fixture struct {
	store     *memory.Store
	blobs     *objectstore.Memory
	emitter   *MockEmitter
	ads       *AdvertisementService
	query     *QueryService
	favorites *FavoritesService
}

func quietLogger() *logrus.Logger {
	l, _ := test.NewNullLogger()
	return l
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memory.NewStore()
	blobs := objectstore.NewMemory("")
	em := new(MockEmitter)
	em.On("Emit", mock.Anything, mock.Anything).Maybe()
	return &fixture{
		store:     store,
		blobs:     blobs,
		emitter:   em,
		ads:       NewAdvertisementService(store.Advertisements(), store.Users(), blobs, em, quietLogger(), 1<<20, 5),
		query:     NewQueryService(store.Advertisements(), store.Users(), store.Favorites()),
		favorites: NewFavoritesService(store.Favorites()),
	}
}

// user stores a user directly, skipping password hashing.
func (f *fixture) user(t *testing.T, email, phone string, role entity.Role) policy.Actor {
	t.Helper()
	u := &entity.User{Email: email, Phone: phone, FirstName: "F", LastName: "L", Role: role, PasswordHash: "x"}
	require.NoError(t, f.store.Users().Create(context.Background(), u))
	return policy.ActorFor(u)
}

func (f *fixture) createAd(t *testing.T, author policy.Actor, title, price string, images ...ImageUpload) *entity.Advertisement {
	t.Helper()
	ad, err := f.ads.Create(context.Background(), author, CreateInput{
		Title: title, Description: title + " for sale", Price: price, Images: images,
	})
	require.NoError(t, err)
	return ad
}

func pngUpload(t *testing.T, name string) ImageUpload {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 2, 2))
	img.Set(0, 0, color.RGBA{R: 255, A: 255})
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return ImageUpload{Filename: name, Data: buf.Bytes()}
}

func strPtr(s string) *string { return &s }
