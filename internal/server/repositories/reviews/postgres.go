package reviews

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/yelpcamp/internal/common"
	"github.com/dmitrijs2005/yelpcamp/internal/dbx"
	"github.com/dmitrijs2005/yelpcamp/internal/server/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) ListByCampground(ctx context.Context, campgroundID string) ([]models.Review, error) {
	query :=
		`SELECT r.id, r.campground_id, r.body, r.rating, r.author_id, u.username, r.created_at
		 FROM reviews r
		 JOIN users u ON u.id = r.author_id
		 WHERE r.campground_id = $1
		 ORDER BY r.created_at
		 `

	rows, err := r.db.QueryContext(ctx, query, campgroundID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var result []models.Review
	for rows.Next() {
		var rv models.Review
		if err := rows.Scan(&rv.ID, &rv.CampgroundID, &rv.Body, &rv.Rating, &rv.AuthorID, &rv.AuthorName, &rv.CreatedAt); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		result = append(result, rv)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return result, nil
}

// Get loads a review only when it belongs to the given campground, so a
// review id pasted under another campground's path does not resolve.
func (r *PostgresRepository) Get(ctx context.Context, campgroundID, id string) (*models.Review, error) {
	query :=
		`SELECT r.id, r.campground_id, r.body, r.rating, r.author_id, u.username, r.created_at
		 FROM reviews r
		 JOIN users u ON u.id = r.author_id
		 WHERE r.id = $1 AND r.campground_id = $2
		 `

	rv := &models.Review{}
	err := r.db.QueryRowContext(ctx, query, id, campgroundID).
		Scan(&rv.ID, &rv.CampgroundID, &rv.Body, &rv.Rating, &rv.AuthorID, &rv.AuthorName, &rv.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return rv, nil
}

func (r *PostgresRepository) Create(ctx context.Context, review *models.Review) (*models.Review, error) {
	query :=
		`INSERT INTO reviews (campground_id, body, rating, author_id)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id, created_at
		 `

	err := r.db.QueryRowContext(ctx, query, review.CampgroundID, review.Body, review.Rating, review.AuthorID).
		Scan(&review.ID, &review.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return review, nil
}

func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM reviews WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}

	return nil
}
