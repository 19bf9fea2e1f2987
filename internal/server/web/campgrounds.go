package web

import (
	"errors"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/dmitrijs2005/yelpcamp/internal/common"
	"github.com/dmitrijs2005/yelpcamp/internal/server/flash"
	"github.com/dmitrijs2005/yelpcamp/internal/server/services"
	"github.com/dmitrijs2005/yelpcamp/internal/server/session"
	"github.com/go-chi/chi/v5"
)

const (
	msgCampgroundMissing = "Cannot find that campground!"
	msgCampgroundCreated = "Successfully made a new campground!"
	msgCampgroundUpdated = "Successfully updated campground!"
	msgCampgroundDeleted = "Successfully deleted campground"
)

func campgroundPath(id string) string {
	return "/campgrounds/" + id
}

func campgroundForm(r *http.Request) (services.CampgroundInput, error) {
	price, err := services.ParsePrice(r.PostFormValue("campground[price]"))
	if err != nil {
		return services.CampgroundInput{}, err
	}
	return services.CampgroundInput{
		Title:       r.PostFormValue("campground[title]"),
		Location:    r.PostFormValue("campground[location]"),
		Description: r.PostFormValue("campground[description]"),
		Price:       price,
	}, nil
}

func formUploads(r *http.Request) []services.Upload {
	if r.MultipartForm == nil {
		return nil
	}
	var uploads []services.Upload
	for _, fh := range r.MultipartForm.File["image"] {
		if fh.Size == 0 && fh.Filename == "" {
			continue
		}
		uploads = append(uploads, services.Upload{
			Name:        fh.Filename,
			ContentType: fh.Header.Get("Content-Type"),
			Open:        openPart(fh),
		})
	}
	return uploads
}

func openPart(fh *multipart.FileHeader) func() (io.ReadCloser, error) {
	return func() (io.ReadCloser, error) { return fh.Open() }
}

func (s *Server) listCampgrounds(w http.ResponseWriter, r *http.Request) {
	list, err := s.campgrounds.List(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.render(w, r, "campgrounds/index", "All Campgrounds", list)
}

func (s *Server) newCampground(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, "campgrounds/new", "New Campground", nil)
}

func (s *Server) createCampground(w http.ResponseWriter, r *http.Request) {
	user := session.CurrentUser(r.Context())

	in, err := campgroundForm(r)
	if err != nil {
		if !s.invalid(w, r, err, "/campgrounds/new") {
			s.fail(w, r, err)
		}
		return
	}

	c, err := s.campgrounds.Create(r.Context(), user, in, formUploads(r))
	if err != nil {
		if s.invalid(w, r, err, "/campgrounds/new") {
			return
		}
		s.fail(w, r, err)
		return
	}

	flash.Push(r, flash.Success, msgCampgroundCreated)
	http.Redirect(w, r, campgroundPath(c.ID), http.StatusFound)
}

func (s *Server) showCampground(w http.ResponseWriter, r *http.Request) {
	c, err := s.campgrounds.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		if s.missingCampground(w, r, err) {
			return
		}
		s.fail(w, r, err)
		return
	}
	s.render(w, r, "campgrounds/show", c.Title, c)
}

func (s *Server) editCampground(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	c, err := s.campgrounds.Authorize(r.Context(), session.CurrentUser(r.Context()), id)
	if err != nil {
		if s.missingCampground(w, r, err) || s.refused(w, r, err, campgroundPath(id)) {
			return
		}
		s.fail(w, r, err)
		return
	}
	s.render(w, r, "campgrounds/edit", "Edit Campground", c)
}

func (s *Server) updateCampground(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	user := session.CurrentUser(r.Context())

	var deleteImages []string
	if r.MultipartForm != nil {
		deleteImages = r.MultipartForm.Value["deleteImages[]"]
	} else {
		deleteImages = r.PostForm["deleteImages[]"]
	}

	in, err := campgroundForm(r)
	if err != nil {
		if !s.invalid(w, r, err, campgroundPath(id)+"/edit") {
			s.fail(w, r, err)
		}
		return
	}

	c, err := s.campgrounds.Update(r.Context(), user, id, in, formUploads(r), deleteImages)
	if err != nil {
		if s.refused(w, r, err, campgroundPath(id)) || s.invalid(w, r, err, campgroundPath(id)+"/edit") {
			return
		}
		s.fail(w, r, err)
		return
	}

	flash.Push(r, flash.Success, msgCampgroundUpdated)
	http.Redirect(w, r, campgroundPath(c.ID), http.StatusFound)
}

func (s *Server) deleteCampground(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := s.campgrounds.Delete(r.Context(), session.CurrentUser(r.Context()), id); err != nil {
		if s.refused(w, r, err, campgroundPath(id)) {
			return
		}
		s.fail(w, r, err)
		return
	}

	flash.Push(r, flash.Success, msgCampgroundDeleted)
	http.Redirect(w, r, "/campgrounds", http.StatusFound)
}

// missingCampground handles a lookup that found nothing on a page view by
// sending the visitor back to the index.
func (s *Server) missingCampground(w http.ResponseWriter, r *http.Request, err error) bool {
	if !errors.Is(err, common.ErrorNotFound) {
		return false
	}
	flash.Push(r, flash.Error, msgCampgroundMissing)
	http.Redirect(w, r, "/campgrounds", http.StatusFound)
	return true
}

// refused handles an ownership failure: nothing was changed and the
// visitor is sent to fallback.
func (s *Server) refused(w http.ResponseWriter, r *http.Request, err error, fallback string) bool {
	if !errors.Is(err, common.ErrorForbidden) {
		return false
	}
	flash.Push(r, flash.Error, msgForbidden)
	http.Redirect(w, r, fallback, http.StatusFound)
	return true
}

// invalid handles rejected form input: the problems are flashed and the
// visitor is sent back to the form at target.
func (s *Server) invalid(w http.ResponseWriter, r *http.Request, err error, target string) bool {
	var ve *common.ValidationError
	if !errors.As(err, &ve) {
		return false
	}
	flash.Push(r, flash.Error, ve.Error())
	http.Redirect(w, r, target, http.StatusFound)
	return true
}
