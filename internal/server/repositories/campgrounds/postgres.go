package campgrounds

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

// List returns every campground, newest first, with its images.
func (r *PostgresRepository) List(ctx context.Context) ([]*models.Campground, error) {
	query :=
		`SELECT c.id, c.title, c.price, c.description, c.location, c.lng, c.lat,
		        c.author_id, u.username, c.created_at, i.filename, i.url
		 FROM campgrounds c
		 JOIN users u ON u.id = c.author_id
		 LEFT JOIN campground_images i ON i.campground_id = c.id
		 ORDER BY c.created_at DESC, c.id, i.position
		 `

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var result []*models.Campground
	var current *models.Campground

	for rows.Next() {
		c := &models.Campground{}
		var lng, lat float64
		var filename, url sql.NullString

		err := rows.Scan(&c.ID, &c.Title, &c.Price, &c.Description, &c.Location, &lng, &lat,
			&c.AuthorID, &c.AuthorName, &c.CreatedAt, &filename, &url)
		if err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}

		if current == nil || current.ID != c.ID {
			c.Geometry = models.NewPoint(lng, lat)
			result = append(result, c)
			current = c
		}

		if filename.Valid {
			current.Images = append(current.Images, models.Image{Filename: filename.String, URL: url.String})
		}
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return result, nil
}

func (r *PostgresRepository) Get(ctx context.Context, id string) (*models.Campground, error) {
	query :=
		`SELECT c.id, c.title, c.price, c.description, c.location, c.lng, c.lat,
		        c.author_id, u.username, c.created_at
		 FROM campgrounds c
		 JOIN users u ON u.id = c.author_id
		 WHERE c.id = $1
		 `

	c := &models.Campground{}
	var lng, lat float64

	err := r.db.QueryRowContext(ctx, query, id).Scan(&c.ID, &c.Title, &c.Price, &c.Description,
		&c.Location, &lng, &lat, &c.AuthorID, &c.AuthorName, &c.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	c.Geometry = models.NewPoint(lng, lat)

	images, err := r.images(ctx, id)
	if err != nil {
		return nil, err
	}
	c.Images = images

	return c, nil
}

func (r *PostgresRepository) images(ctx context.Context, campgroundID string) ([]models.Image, error) {
	query :=
		`SELECT filename, url FROM campground_images
		 WHERE campground_id = $1
		 ORDER BY position
		 `

	rows, err := r.db.QueryContext(ctx, query, campgroundID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var images []models.Image
	for rows.Next() {
		var img models.Image
		if err := rows.Scan(&img.Filename, &img.URL); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		images = append(images, img)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return images, nil
}

// Create inserts the campground row and its images. Run it inside
// dbx.WithTx when both must land together.
func (r *PostgresRepository) Create(ctx context.Context, c *models.Campground) (*models.Campground, error) {
	query :=
		`INSERT INTO campgrounds (title, price, description, location, lng, lat, author_id)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING id, created_at
		 `

	err := r.db.QueryRowContext(ctx, query, c.Title, c.Price, c.Description, c.Location,
		c.Geometry.Lng(), c.Geometry.Lat(), c.AuthorID).Scan(&c.ID, &c.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	if err := r.AddImages(ctx, c.ID, c.Images); err != nil {
		return nil, err
	}

	return c, nil
}

// Update rewrites the editable fields. author_id is never updated.
func (r *PostgresRepository) Update(ctx context.Context, c *models.Campground) error {
	query :=
		`UPDATE campgrounds
		 SET title = $1, price = $2, description = $3, location = $4, lng = $5, lat = $6
		 WHERE id = $7
		 `

	res, err := r.db.ExecContext(ctx, query, c.Title, c.Price, c.Description, c.Location,
		c.Geometry.Lng(), c.Geometry.Lat(), c.ID)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}

	return expectAffected(res)
}

// Delete removes the campground; images and reviews go with it via
// ON DELETE CASCADE.
func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	query := `DELETE FROM campgrounds WHERE id = $1`

	res, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}

	return expectAffected(res)
}

func (r *PostgresRepository) AddImages(ctx context.Context, campgroundID string, images []models.Image) error {
	query :=
		`INSERT INTO campground_images (campground_id, filename, url)
		 VALUES ($1, $2, $3)
		 `

	for _, img := range images {
		if _, err := r.db.ExecContext(ctx, query, campgroundID, img.Filename, img.URL); err != nil {
			return fmt.Errorf("db error: %w", err)
		}
	}

	return nil
}

func (r *PostgresRepository) DeleteImages(ctx context.Context, campgroundID string, filenames []string) error {
	query := `DELETE FROM campground_images WHERE campground_id = $1 AND filename = $2`

	for _, f := range filenames {
		if _, err := r.db.ExecContext(ctx, query, campgroundID, f); err != nil {
			return fmt.Errorf("db error: %w", err)
		}
	}

	return nil
}

func expectAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}
	return nil
}
