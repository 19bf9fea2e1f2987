package reviews

import (
	"context"

	"github.com/dmitrijs2005/yelpcamp/internal/server/models"
)

type Repository interface {
	ListByCampground(ctx context.Context, campgroundID string) ([]models.Review, error)
	Get(ctx context.Context, campgroundID, id string) (*models.Review, error)
	Create(ctx context.Context, review *models.Review) (*models.Review, error)
	Delete(ctx context.Context, id string) error
}
