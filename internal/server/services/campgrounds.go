package services

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dmitrijs2005/yelpcamp/internal/common"
	"github.com/dmitrijs2005/yelpcamp/internal/dbx"
	"github.com/dmitrijs2005/yelpcamp/internal/logging"
	"github.com/dmitrijs2005/yelpcamp/internal/server/auth"
	"github.com/dmitrijs2005/yelpcamp/internal/server/geocode"
	"github.com/dmitrijs2005/yelpcamp/internal/server/images"
	"github.com/dmitrijs2005/yelpcamp/internal/server/models"
	"github.com/dmitrijs2005/yelpcamp/internal/server/repositories/repomanager"
)

// CampgroundService owns campground lifecycle, including the hosted images
// that belong to each campground.
type CampgroundService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	geocoder    geocode.Geocoder
	images      images.Host
	logger      logging.Logger
}

func NewCampgroundService(db *sql.DB, m repomanager.RepositoryManager, g geocode.Geocoder, h images.Host, l logging.Logger) *CampgroundService {
	return &CampgroundService{
		db:          db,
		repomanager: m,
		geocoder:    g,
		images:      h,
		logger:      l.With("module", "campgrounds"),
	}
}

func (s *CampgroundService) List(ctx context.Context) ([]*models.Campground, error) {
	return s.repomanager.Campgrounds(s.db).List(ctx)
}

// Get returns the campground with its reviews.
func (s *CampgroundService) Get(ctx context.Context, id string) (*models.Campground, error) {
	if err := validID(id); err != nil {
		return nil, err
	}

	c, err := s.repomanager.Campgrounds(s.db).Get(ctx, id)
	if err != nil {
		return nil, err
	}

	reviews, err := s.repomanager.Reviews(s.db).ListByCampground(ctx, id)
	if err != nil {
		return nil, err
	}
	c.Reviews = reviews

	return c, nil
}

// Authorize loads the campground and checks that actor may change it.
func (s *CampgroundService) Authorize(ctx context.Context, actor *models.User, id string) (*models.Campground, error) {
	if err := validID(id); err != nil {
		return nil, err
	}

	c, err := s.repomanager.Campgrounds(s.db).Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := auth.Authorize(actor, c); err != nil {
		return c, err
	}
	return c, nil
}

// Create geocodes the location, uploads images and stores the campground
// with author as its immutable owner.
func (s *CampgroundService) Create(ctx context.Context, author *models.User, in CampgroundInput, uploads []Upload) (*models.Campground, error) {
	if author == nil {
		return nil, common.ErrorUnauthenticated
	}

	in, err := in.validate()
	if err != nil {
		return nil, err
	}

	place, err := s.geocoder.Forward(ctx, in.Location)
	if err != nil {
		return nil, err
	}

	imgs, err := s.upload(ctx, uploads)
	if err != nil {
		return nil, err
	}

	c := &models.Campground{
		Title:       in.Title,
		Price:       *in.Price,
		Description: in.Description,
		Location:    in.Location,
		Geometry:    place.Geometry,
		Images:      imgs,
		AuthorID:    author.ID,
		AuthorName:  author.UserName,
	}

	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		_, err := s.repomanager.Campgrounds(tx).Create(ctx, c)
		return err
	})
	if err != nil {
		s.discard(ctx, imgs)
		return nil, fmt.Errorf("error creating campground: %w", err)
	}

	return c, nil
}

// Update changes the editable fields of a campground owned by actor, adds
// uploaded images and removes the images named in deleteImages.
func (s *CampgroundService) Update(ctx context.Context, actor *models.User, id string, in CampgroundInput, uploads []Upload, deleteImages []string) (*models.Campground, error) {
	c, err := s.Authorize(ctx, actor, id)
	if err != nil {
		return c, err
	}

	in, err = in.validate()
	if err != nil {
		return c, err
	}

	if in.Location != c.Location {
		place, err := s.geocoder.Forward(ctx, in.Location)
		if err != nil {
			return c, err
		}
		c.Geometry = place.Geometry
	}

	added, err := s.upload(ctx, uploads)
	if err != nil {
		return c, err
	}

	removed := ownedImages(c.Images, deleteImages)

	c.Title = in.Title
	c.Price = *in.Price
	c.Description = in.Description
	c.Location = in.Location

	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Campgrounds(tx)
		if err := repo.Update(ctx, c); err != nil {
			return err
		}
		if err := repo.AddImages(ctx, c.ID, added); err != nil {
			return err
		}
		return repo.DeleteImages(ctx, c.ID, removed)
	})
	if err != nil {
		s.discard(ctx, added)
		return c, fmt.Errorf("error updating campground: %w", err)
	}

	c.Images = keepImages(append(c.Images, added...), removed)
	for _, key := range removed {
		s.deleteHosted(ctx, key)
	}

	return c, nil
}

// Delete removes a campground owned by actor together with its reviews and
// hosted images.
func (s *CampgroundService) Delete(ctx context.Context, actor *models.User, id string) error {
	c, err := s.Authorize(ctx, actor, id)
	if err != nil {
		return err
	}

	if err := s.repomanager.Campgrounds(s.db).Delete(ctx, c.ID); err != nil {
		return err
	}

	for _, img := range c.Images {
		s.deleteHosted(ctx, img.Filename)
	}
	return nil
}

func (s *CampgroundService) upload(ctx context.Context, uploads []Upload) ([]models.Image, error) {
	var done []models.Image
	for _, u := range uploads {
		img, err := s.uploadOne(ctx, u)
		if err != nil {
			s.discard(ctx, done)
			return nil, err
		}
		done = append(done, img)
	}
	return done, nil
}

func (s *CampgroundService) uploadOne(ctx context.Context, u Upload) (models.Image, error) {
	f, err := u.Open()
	if err != nil {
		return models.Image{}, fmt.Errorf("error opening upload: %w", err)
	}
	defer f.Close()

	return s.images.Upload(ctx, u.Name, u.ContentType, f)
}

// discard removes images that were uploaded for a write that failed.
func (s *CampgroundService) discard(ctx context.Context, imgs []models.Image) {
	for _, img := range imgs {
		s.deleteHosted(ctx, img.Filename)
	}
}

func (s *CampgroundService) deleteHosted(ctx context.Context, key string) {
	if err := s.images.Delete(context.WithoutCancel(ctx), key); err != nil {
		s.logger.Warn(ctx, "hosted image not deleted", "key", key, "error", err)
	}
}

// ownedImages keeps the requested filenames that belong to the campground.
func ownedImages(have []models.Image, requested []string) []string {
	owned := make(map[string]bool, len(have))
	for _, img := range have {
		owned[img.Filename] = true
	}

	var out []string
	for _, f := range requested {
		if owned[f] {
			out = append(out, f)
			delete(owned, f)
		}
	}
	return out
}

func keepImages(imgs []models.Image, removed []string) []models.Image {
	if len(removed) == 0 {
		return imgs
	}
	gone := make(map[string]bool, len(removed))
	for _, f := range removed {
		gone[f] = true
	}

	out := imgs[:0]
	for _, img := range imgs {
		if !gone[img.Filename] {
			out = append(out, img)
		}
	}
	return out
}
