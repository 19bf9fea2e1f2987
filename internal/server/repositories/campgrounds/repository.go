package campgrounds

import (
	"context"

	"github.com/dmitrijs2005/yelpcamp/internal/server/models"
)

type Repository interface {
	List(ctx context.Context) ([]*models.Campground, error)
	Get(ctx context.Context, id string) (*models.Campground, error)
	Create(ctx context.Context, c *models.Campground) (*models.Campground, error)
	Update(ctx context.Context, c *models.Campground) error
	Delete(ctx context.Context, id string) error
	AddImages(ctx context.Context, campgroundID string, images []models.Image) error
	DeleteImages(ctx context.Context, campgroundID string, filenames []string) error
}
