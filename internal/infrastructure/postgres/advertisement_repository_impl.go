package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/oksasatya/adhunt/internal/domain/entity"
	"github.com/oksasatya/adhunt/internal/domain/repository"
)

// price travels as text in both directions so numeric(10,2) keeps its scale.
const adColumns = `id, title, description, price::text, status, author_id, created_at, updated_at`

type AdvertisementRepository struct {
	pool *pgxpool.Pool
}

func NewAdvertisementRepository(pool *pgxpool.Pool) *AdvertisementRepository {
	return &AdvertisementRepository{pool: pool}
}

func scanAd(row pgx.Row) (*entity.Advertisement, error) {
	ad := &entity.Advertisement{}
	var price, status string
	if err := row.Scan(&ad.ID, &ad.Title, &ad.Description, &price, &status, &ad.AuthorID,
		&ad.CreatedAt, &ad.UpdatedAt); err != nil {
		return nil, translate(err)
	}
	p, err := decimal.NewFromString(price)
	if err != nil {
		return nil, fmt.Errorf("advertisement %d price: %w", ad.ID, err)
	}
	s, err := entity.ParseStatus(status)
	if err != nil {
		return nil, fmt.Errorf("advertisement %d: %w", ad.ID, err)
	}
	ad.Price, ad.Status = p, s
	return ad, nil
}

func insertImages(ctx context.Context, q querier, adID int64, images []entity.Image) ([]entity.Image, error) {
	out := make([]entity.Image, 0, len(images))
	for i, img := range images {
		img.AdvertisementID = adID
		img.Position = i
		err := q.QueryRow(ctx, `
			INSERT INTO advertisement_images (advertisement_id, url, object_key, position)
			VALUES ($1, $2, $3, $4)
			RETURNING id, created_at
		`, adID, img.URL, img.ObjectKey, img.Position).Scan(&img.ID, &img.CreatedAt)
		if err != nil {
			return nil, translate(err)
		}
		out = append(out, img)
	}
	return out, nil
}

// loadImages fetches images for ads and attaches them in position order.
func loadImages(ctx context.Context, q querier, ads []entity.Advertisement) error {
	if len(ads) == 0 {
		return nil
	}
	ids := make([]int64, len(ads))
	index := make(map[int64]int, len(ads))
	for i := range ads {
		ids[i] = ads[i].ID
		index[ads[i].ID] = i
		ads[i].Images = []entity.Image{}
	}
	rows, err := q.Query(ctx, `
		SELECT id, advertisement_id, url, object_key, position, created_at
		FROM advertisement_images
		WHERE advertisement_id = ANY($1)
		ORDER BY advertisement_id, position, id
	`, ids)
	if err != nil {
		return translate(err)
	}
	defer rows.Close()
	for rows.Next() {
		var img entity.Image
		if err := rows.Scan(&img.ID, &img.AdvertisementID, &img.URL, &img.ObjectKey, &img.Position, &img.CreatedAt); err != nil {
			return err
		}
		i := index[img.AdvertisementID]
		ads[i].Images = append(ads[i].Images, img)
	}
	return rows.Err()
}

func (r *AdvertisementRepository) Create(ctx context.Context, ad *entity.Advertisement) error {
	return inTx(ctx, r.pool, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx, `
			INSERT INTO advertisements (title, description, price, status, author_id)
			VALUES ($1, $2, $3::numeric, $4, $5)
			RETURNING id, created_at, updated_at
		`, ad.Title, ad.Description, ad.Price.StringFixed(2), ad.Status.String(), ad.AuthorID).
			Scan(&ad.ID, &ad.CreatedAt, &ad.UpdatedAt)
		if err != nil {
			return translate(err)
		}
		images, err := insertImages(ctx, tx, ad.ID, ad.Images)
		if err != nil {
			return err
		}
		ad.Images = images
		return nil
	})
}

func (r *AdvertisementRepository) GetByID(ctx context.Context, id int64) (*entity.Advertisement, error) {
	ad, err := scanAd(r.pool.QueryRow(ctx, `SELECT `+adColumns+` FROM advertisements WHERE id = $1`, id))
	if err != nil {
		return nil, err
	}
	one := []entity.Advertisement{*ad}
	if err := loadImages(ctx, r.pool, one); err != nil {
		return nil, err
	}
	return &one[0], nil
}

func (r *AdvertisementRepository) List(ctx context.Context, f repository.AdvertisementFilter) ([]entity.Advertisement, error) {
	var (
		where []string
		args  []any
	)
	if f.Status != "" {
		args = append(args, f.Status.String())
		where = append(where, fmt.Sprintf("a.status = $%d", len(args)))
	}
	if f.AuthorID != "" {
		args = append(args, f.AuthorID)
		where = append(where, fmt.Sprintf("a.author_id = $%d", len(args)))
	}
	if f.FavoritedBy != "" {
		args = append(args, f.FavoritedBy)
		where = append(where, fmt.Sprintf(
			"EXISTS (SELECT 1 FROM favorite_advertisements fa WHERE fa.advertisement_id = a.id AND fa.user_id = $%d)", len(args)))
	}
	sql := `SELECT a.id, a.title, a.description, a.price::text, a.status, a.author_id, a.created_at, a.updated_at
		FROM advertisements a`
	if len(where) > 0 {
		sql += " WHERE " + strings.Join(where, " AND ")
	}
	sql += " ORDER BY a.created_at DESC, a.id DESC"

	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, translate(err)
	}
	ads := make([]entity.Advertisement, 0)
	for rows.Next() {
		ad, err := scanAd(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		ads = append(ads, *ad)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if err := loadImages(ctx, r.pool, ads); err != nil {
		return nil, err
	}
	return ads, nil
}

func (r *AdvertisementRepository) UpdateContent(ctx context.Context, ad *entity.Advertisement, replaceImages bool) ([]entity.Image, error) {
	var removed []entity.Image
	err := inTx(ctx, r.pool, func(tx pgx.Tx) error {
		updated, err := scanAd(tx.QueryRow(ctx, `
			UPDATE advertisements
			SET title = $1, description = $2, price = $3::numeric, status = $4, updated_at = now()
			WHERE id = $5
			RETURNING `+adColumns,
			ad.Title, ad.Description, ad.Price.StringFixed(2), ad.Status.String(), ad.ID))
		if err != nil {
			return err
		}
		current := []entity.Advertisement{*updated}
		if err := loadImages(ctx, tx, current); err != nil {
			return err
		}
		if replaceImages {
			removed = current[0].Images
			if _, err := tx.Exec(ctx, `DELETE FROM advertisement_images WHERE advertisement_id = $1`, ad.ID); err != nil {
				return translate(err)
			}
			images, err := insertImages(ctx, tx, ad.ID, ad.Images)
			if err != nil {
				return err
			}
			current[0].Images = images
		}
		*ad = current[0]
		return nil
	})
	if err != nil {
		return nil, err
	}
	return removed, nil
}

func (r *AdvertisementRepository) SetStatus(ctx context.Context, id int64, status entity.Status) (*entity.Advertisement, error) {
	ad, err := scanAd(r.pool.QueryRow(ctx, `
		UPDATE advertisements SET status = $1, updated_at = now()
		WHERE id = $2
		RETURNING `+adColumns, status.String(), id))
	if err != nil {
		return nil, err
	}
	one := []entity.Advertisement{*ad}
	if err := loadImages(ctx, r.pool, one); err != nil {
		return nil, err
	}
	return &one[0], nil
}

// Delete relies on ON DELETE CASCADE for images and favorites.
func (r *AdvertisementRepository) Delete(ctx context.Context, id int64) ([]entity.Image, error) {
	var removed []entity.Image
	err := inTx(ctx, r.pool, func(tx pgx.Tx) error {
		ads := []entity.Advertisement{{ID: id}}
		if err := loadImages(ctx, tx, ads); err != nil {
			return err
		}
		res, err := tx.Exec(ctx, `DELETE FROM advertisements WHERE id = $1`, id)
		if err != nil {
			return translate(err)
		}
		if res.RowsAffected() == 0 {
			return translate(pgx.ErrNoRows)
		}
		removed = ads[0].Images
		return nil
	})
	if err != nil {
		return nil, err
	}
	return removed, nil
}

var _ repository.AdvertisementRepository = (*AdvertisementRepository)(nil)
