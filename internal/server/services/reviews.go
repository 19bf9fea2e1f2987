package services

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dmitrijs2005/yelpcamp/internal/common"
	"github.com/dmitrijs2005/yelpcamp/internal/server/auth"
	"github.com/dmitrijs2005/yelpcamp/internal/server/models"
	"github.com/dmitrijs2005/yelpcamp/internal/server/repositories/repomanager"
)

type ReviewService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
}

func NewReviewService(db *sql.DB, m repomanager.RepositoryManager) *ReviewService {
	return &ReviewService{db: db, repomanager: m}
}

// Create adds a review by author to an existing campground.
func (s *ReviewService) Create(ctx context.Context, author *models.User, campgroundID string, in ReviewInput) (*models.Review, error) {
	if author == nil {
		return nil, common.ErrorUnauthenticated
	}
	if err := validID(campgroundID); err != nil {
		return nil, err
	}

	if _, err := s.repomanager.Campgrounds(s.db).Get(ctx, campgroundID); err != nil {
		return nil, err
	}

	in, err := in.validate()
	if err != nil {
		return nil, err
	}

	r, err := s.repomanager.Reviews(s.db).Create(ctx, &models.Review{
		CampgroundID: campgroundID,
		Body:         in.Body,
		Rating:       *in.Rating,
		AuthorID:     author.ID,
		AuthorName:   author.UserName,
	})
	if err != nil {
		return nil, fmt.Errorf("error creating review: %w", err)
	}
	return r, nil
}

// Delete removes a review of campgroundID written by actor.
func (s *ReviewService) Delete(ctx context.Context, actor *models.User, campgroundID, reviewID string) error {
	if err := validID(campgroundID); err != nil {
		return err
	}
	if err := validID(reviewID); err != nil {
		return err
	}

	repo := s.repomanager.Reviews(s.db)
	r, err := repo.Get(ctx, campgroundID, reviewID)
	if err != nil {
		return err
	}

	if err := auth.Authorize(actor, r); err != nil {
		return err
	}

	return repo.Delete(ctx, r.ID)
}
