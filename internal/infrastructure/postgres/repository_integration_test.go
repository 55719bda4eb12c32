package postgres

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/oksasatya/adhunt/internal/domain/entity"
	"github.com/oksasatya/adhunt/internal/domain/errs"
	"github.com/oksasatya/adhunt/internal/domain/repository"
)

// setupPool returns a migrated pool. TEST_DATABASE_URL points at an existing
// database; otherwise INTEGRATION_TESTS=1 starts a throwaway container.
func setupPool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	ctx := context.Background()
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		if os.Getenv("INTEGRATION_TESTS") != "1" {
			t.Skip("set INTEGRATION_TESTS=1 or TEST_DATABASE_URL to run postgres tests")
		}
		ctr, err := tcpostgres.Run(ctx, "postgres:16-alpine",
			tcpostgres.WithDatabase("adhunt"),
			tcpostgres.WithUsername("adhunt"),
			tcpostgres.WithPassword("adhunt"),
			testcontainers.WithWaitStrategy(
				wait.ForLog("database system is ready to accept connections").
					WithOccurrence(2).
					WithStartupTimeout(60*time.Second)),
		)
		require.NoError(t, err)
		t.Cleanup(func() { _ = testcontainers.TerminateContainer(ctr) })
		dsn, err = ctr.ConnectionString(ctx, "sslmode=disable")
		require.NoError(t, err)
	}

	logger := logrus.New()
	logger.SetOutput(os.Stderr)
	require.NoError(t, Migrate(dsn, "../../../db/migrations", logger))

	pool, err := NewPool(ctx, dsn, 5, 1, time.Minute)
	require.NoError(t, err)
	t.Cleanup(pool.Close)
	_, err = pool.Exec(ctx, `TRUNCATE favorite_advertisements, advertisement_images, advertisements, users CASCADE`)
	require.NoError(t, err)
	return pool
}

func newUser(t *testing.T, users *UserRepository, email, phone string) *entity.User {
	t.Helper()
	u := &entity.User{Email: email, Phone: phone, FirstName: "F", LastName: "L", Role: entity.RoleUser, PasswordHash: "x"}
	require.NoError(t, users.Create(context.Background(), u))
	return u
}

func TestPostgres_UserUniqueness(t *testing.T) {
	pool := setupPool(t)
	users := NewUserRepository(pool)
	ctx := context.Background()

	u := newUser(t, users, "a@x.com", "+100")
	assert.NotEmpty(t, u.ID)

	err := users.Create(ctx, &entity.User{Email: "A@X.COM", Phone: "+200", Role: entity.RoleUser})
	assert.ErrorIs(t, err, errs.ErrDuplicateEmail)
	err = users.Create(ctx, &entity.User{Email: "b@x.com", Phone: "+100", Role: entity.RoleUser})
	assert.ErrorIs(t, err, errs.ErrDuplicatePhone)

	taken, err := users.EmailTaken(ctx, "A@x.com", u.ID)
	require.NoError(t, err)
	assert.False(t, taken)

	_, err = users.GetByID(ctx, "not-a-uuid")
	assert.ErrorIs(t, err, errs.ErrNotFound)

	require.NoError(t, users.SetRole(ctx, u.ID, entity.RoleModerator))
	got, err := users.GetByEmail(ctx, "A@X.com")
	require.NoError(t, err)
	assert.Equal(t, entity.RoleModerator, got.Role)
}

func TestPostgres_PhoneWidth(t *testing.T) {
	pool := setupPool(t)
	users := NewUserRepository(pool)
	ctx := context.Background()

	// E.164 allows + and 15 digits
	u := newUser(t, users, "long@x.com", "+123456789012345")
	got, err := users.GetByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "+123456789012345", got.Phone)

	err = users.Create(ctx, &entity.User{Email: "longer@x.com", Phone: "+1234567890123456", Role: entity.RoleUser, PasswordHash: "x"})
	assert.ErrorIs(t, err, errs.ErrValidation)
}

func TestPostgres_AdvertisementLifecycle(t *testing.T) {
	pool := setupPool(t)
	users := NewUserRepository(pool)
	ads := NewAdvertisementRepository(pool)
	favs := NewFavoriteRepository(pool)
	ctx := context.Background()

	author := newUser(t, users, "a@x.com", "+100")
	other := newUser(t, users, "b@x.com", "+200")

	ad := &entity.Advertisement{
		Title:       "Bike",
		Description: "red",
		Price:       decimal.RequireFromString("99.5"),
		Status:      entity.StatusPending,
		AuthorID:    author.ID,
		Images:      []entity.Image{{URL: "u1", ObjectKey: "k1"}, {URL: "u2", ObjectKey: "k2"}},
	}
	require.NoError(t, ads.Create(ctx, ad))
	require.Len(t, ad.Images, 2)

	got, err := ads.GetByID(ctx, ad.ID)
	require.NoError(t, err)
	assert.Equal(t, "99.50", got.Price.StringFixed(2))
	assert.Equal(t, "k1", got.Images[0].ObjectKey)

	active, err := ads.List(ctx, repository.AdvertisementFilter{Status: entity.StatusActive})
	require.NoError(t, err)
	assert.Empty(t, active)

	moderated, err := ads.SetStatus(ctx, ad.ID, entity.StatusActive)
	require.NoError(t, err)
	assert.Equal(t, entity.StatusActive, moderated.Status)

	ad.Title = "Bike v2"
	ad.Images = []entity.Image{{URL: "u3", ObjectKey: "k3"}}
	removed, err := ads.UpdateContent(ctx, ad, true)
	require.NoError(t, err)
	assert.Len(t, removed, 2)
	assert.Equal(t, "Bike v2", ad.Title)
	require.Len(t, ad.Images, 1)

	require.NoError(t, favs.Add(ctx, other.ID, ad.ID))
	assert.ErrorIs(t, favs.Add(ctx, other.ID, ad.ID), errs.ErrAlreadyFavorited)
	assert.ErrorIs(t, favs.Add(ctx, other.ID, ad.ID+1000), errs.ErrNotFound)

	marked, err := favs.FavoritedAmong(ctx, other.ID, []int64{ad.ID})
	require.NoError(t, err)
	assert.True(t, marked[ad.ID])

	favorites, err := ads.List(ctx, repository.AdvertisementFilter{FavoritedBy: other.ID})
	require.NoError(t, err)
	assert.Len(t, favorites, 1)

	removed, err = ads.Delete(ctx, ad.ID)
	require.NoError(t, err)
	assert.Len(t, removed, 1)
	assert.ErrorIs(t, favs.Remove(ctx, other.ID, ad.ID), errs.ErrNotFound)
	_, err = ads.Delete(ctx, ad.ID)
	assert.ErrorIs(t, err, errs.ErrNotFound)
}

func TestPostgres_ConcurrentFavoriteStoresOnce(t *testing.T) {
	pool := setupPool(t)
	users := NewUserRepository(pool)
	ads := NewAdvertisementRepository(pool)
	favs := NewFavoriteRepository(pool)
	ctx := context.Background()

	u := newUser(t, users, "a@x.com", "+100")
	ad := &entity.Advertisement{Title: "t", Price: decimal.Zero, Status: entity.StatusActive, AuthorID: u.ID}
	require.NoError(t, ads.Create(ctx, ad))

	var wg sync.WaitGroup
	results := make(chan error, 10)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results <- favs.Add(ctx, u.ID, ad.ID)
		}()
	}
	wg.Wait()
	close(results)

	var ok int
	for err := range results {
		if err == nil {
			ok++
			continue
		}
		assert.ErrorIs(t, err, errs.ErrAlreadyFavorited)
	}
	assert.Equal(t, 1, ok)

	var count int
	require.NoError(t, pool.QueryRow(ctx, `SELECT count(*) FROM favorite_advertisements`).Scan(&count))
	assert.Equal(t, 1, count)
}
