package web

import (
	"net/http"

	"github.com/dmitrijs2005/yelpcamp/internal/server/flash"
	"github.com/dmitrijs2005/yelpcamp/internal/server/services"
	"github.com/dmitrijs2005/yelpcamp/internal/server/session"
	"github.com/go-chi/chi/v5"
)

const (
	msgReviewCreated = "Created new review!"
	msgReviewDeleted = "Successfully deleted review"
)

func (s *Server) createReview(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	rating, err := services.ParseRating(r.PostFormValue("review[rating]"))
	if err == nil {
		in := services.ReviewInput{Body: r.PostFormValue("review[body]"), Rating: rating}
		_, err = s.reviews.Create(r.Context(), session.CurrentUser(r.Context()), id, in)
	}
	if err != nil {
		if s.invalid(w, r, err, campgroundPath(id)) {
			return
		}
		s.fail(w, r, err)
		return
	}

	flash.Push(r, flash.Success, msgReviewCreated)
	http.Redirect(w, r, campgroundPath(id), http.StatusFound)
}

func (s *Server) deleteReview(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	err := s.reviews.Delete(r.Context(), session.CurrentUser(r.Context()), id, chi.URLParam(r, "reviewId"))
	if err != nil {
		if s.refused(w, r, err, campgroundPath(id)) {
			return
		}
		s.fail(w, r, err)
		return
	}

	flash.Push(r, flash.Success, msgReviewDeleted)
	http.Redirect(w, r, campgroundPath(id), http.StatusFound)
}
