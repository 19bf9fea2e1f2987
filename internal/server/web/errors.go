package web

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/dmitrijs2005/yelpcamp/internal/common"
	"github.com/gorilla/csrf"
)

const (
	msgNotFound     = "Page Not Found"
	msgGeneric      = "Something went wrong..."
	msgForbidden    = "You do not have permission to do that!"
	msgUnauthorized = "You must be signed in first!"
	msgBadCSRF      = "Invalid or missing form token"
)

// StatusError attaches an explicit status and user-safe message to err.
type StatusError struct {
	Status  int
	Message string
	Err     error
}

func (e *StatusError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%d %s: %v", e.Status, e.Message, e.Err)
	}
	return fmt.Sprintf("%d %s", e.Status, e.Message)
}

func (e *StatusError) Unwrap() error { return e.Err }

// classify derives the response status and the message shown to the user.
// Anything unrecognised becomes a generic server error.
func classify(err error) (int, string) {
	var se *StatusError
	if errors.As(err, &se) {
		status, msg := se.Status, se.Message
		if status == 0 {
			status = http.StatusInternalServerError
		}
		if msg == "" {
			msg = msgGeneric
		}
		return status, msg
	}

	var ve *common.ValidationError
	switch {
	case errors.Is(err, common.ErrorNotFound):
		return http.StatusNotFound, msgNotFound
	case errors.As(err, &ve):
		return http.StatusBadRequest, ve.Error()
	case errors.Is(err, common.ErrorValidation):
		return http.StatusBadRequest, "Invalid input"
	case errors.Is(err, common.ErrorForbidden):
		return http.StatusForbidden, msgForbidden
	case errors.Is(err, common.ErrorUnauthenticated):
		return http.StatusUnauthorized, msgUnauthorized
	}
	return http.StatusInternalServerError, msgGeneric
}

// fail is the only place a failure response is written.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	ctx := r.Context()
	status, msg := classify(err)

	if status >= http.StatusInternalServerError {
		s.logger.Error(ctx, "request failed", "method", r.Method, "path", r.URL.Path, "error", err)
	} else {
		s.logger.Debug(ctx, "request rejected", "status", status, "path", r.URL.Path, "error", err)
	}

	if s.renderer == nil {
		http.Error(w, msg, status)
		return
	}
	if rerr := s.renderer.Render(w, status, "error", s.view(r, msg, ErrorPage{Status: status, Message: msg})); rerr != nil {
		s.logger.Error(ctx, "rendering error page", "error", rerr)
		http.Error(w, msg, status)
	}
}

func (s *Server) notFound(w http.ResponseWriter, r *http.Request) {
	s.fail(w, r, &StatusError{Status: http.StatusNotFound, Message: msgNotFound, Err: common.ErrorNotFound})
}

func (s *Server) csrfFailed(w http.ResponseWriter, r *http.Request) {
	s.fail(w, r, &StatusError{Status: http.StatusForbidden, Message: msgBadCSRF, Err: csrf.FailureReason(r)})
}
