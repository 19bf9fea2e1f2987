package web

import (
	"net/http"
	"time"

	"github.com/dmitrijs2005/yelpcamp/internal/server/flash"
	"github.com/dmitrijs2005/yelpcamp/internal/server/session"
	"github.com/go-chi/chi/v5/middleware"
)

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		s.logger.Info(r.Context(), "request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", status,
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}

// requireLogin sends anonymous visitors to the login page. For GET requests
// the original path is remembered so login can return there.
func (s *Server) requireLogin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if session.CurrentUser(r.Context()) != nil {
			next.ServeHTTP(w, r)
			return
		}

		if sess := session.FromContext(r.Context()); sess != nil && r.Method == http.MethodGet {
			sess.SetReturnTo(r.URL.RequestURI())
		}
		flash.Push(r, flash.Error, msgUnauthorized)
		http.Redirect(w, r, "/login", http.StatusFound)
	})
}
