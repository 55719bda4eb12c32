package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/oksasatya/adhunt/internal/domain/repository"
)

type FavoriteRepository struct {
	pool *pgxpool.Pool
}

func NewFavoriteRepository(pool *pgxpool.Pool) *FavoriteRepository {
	return &FavoriteRepository{pool: pool}
}

// Add leans on the (user_id, advertisement_id) primary key: a concurrent
// duplicate fails with a unique violation, a missing advertisement with a
// foreign key violation.
func (r *FavoriteRepository) Add(ctx context.Context, userID string, advertisementID int64) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO favorite_advertisements (user_id, advertisement_id)
		VALUES ($1, $2)
	`, userID, advertisementID)
	return translate(err)
}

func (r *FavoriteRepository) Remove(ctx context.Context, userID string, advertisementID int64) error {
	res, err := r.pool.Exec(ctx, `
		DELETE FROM favorite_advertisements WHERE user_id = $1 AND advertisement_id = $2
	`, userID, advertisementID)
	if err != nil {
		return translate(err)
	}
	if res.RowsAffected() == 0 {
		return translate(pgx.ErrNoRows)
	}
	return nil
}

func (r *FavoriteRepository) FavoritedAmong(ctx context.Context, userID string, ids []int64) (map[int64]bool, error) {
	out := make(map[int64]bool, len(ids))
	if userID == "" || len(ids) == 0 {
		return out, nil
	}
	rows, err := r.pool.Query(ctx, `
		SELECT advertisement_id FROM favorite_advertisements
		WHERE user_id = $1 AND advertisement_id = ANY($2)
	`, userID, ids)
	if err != nil {
		return nil, translate(err)
	}
	defer rows.Close()
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out[id] = true
	}
	return out, rows.Err()
}

var _ repository.FavoriteRepository = (*FavoriteRepository)(nil)
