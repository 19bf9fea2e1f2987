package web

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/dmitrijs2005/yelpcamp/internal/common"
	"github.com/dmitrijs2005/yelpcamp/internal/server/flash"
	"github.com/dmitrijs2005/yelpcamp/internal/server/models"
	"github.com/dmitrijs2005/yelpcamp/internal/server/services"
	"github.com/dmitrijs2005/yelpcamp/internal/server/session"
)

const (
	msgWelcome     = "Welcome to Yelp Camp!"
	msgWelcomeBack = "welcome back!"
	msgGoodbye     = "Goodbye!"
	msgBadLogin    = "Password or username is incorrect"
)

func (s *Server) home(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, "home", "Home", nil)
}

func (s *Server) registerForm(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, "users/register", "Register", nil)
}

func (s *Server) register(w http.ResponseWriter, r *http.Request) {
	in := services.RegisterInput{
		Username: r.PostFormValue("username"),
		Email:    r.PostFormValue("email"),
		Password: r.PostFormValue("password"),
	}

	u, err := s.users.Register(r.Context(), in)
	if err != nil {
		if s.invalid(w, r, err, "/register") {
			return
		}
		s.fail(w, r, err)
		return
	}

	s.signIn(r, u)
	flash.Push(r, flash.Success, msgWelcome)
	http.Redirect(w, r, "/campgrounds", http.StatusFound)
}

func (s *Server) loginForm(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, "users/login", "Login", nil)
}

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	u, err := s.users.Login(r.Context(), r.PostFormValue("username"), r.PostFormValue("password"))
	if err != nil {
		if errors.Is(err, common.ErrorBadCredentials) || errors.Is(err, common.ErrorValidation) {
			flash.Push(r, flash.Error, msgBadLogin)
			http.Redirect(w, r, "/login", http.StatusFound)
			return
		}
		s.fail(w, r, err)
		return
	}

	target := "/campgrounds"
	if sess := session.FromContext(r.Context()); sess != nil {
		if p := sess.TakeReturnTo(); localPath(p) {
			target = p
		}
	}

	s.signIn(r, u)
	flash.Push(r, flash.Success, msgWelcomeBack)
	http.Redirect(w, r, target, http.StatusFound)
}

func (s *Server) logout(w http.ResponseWriter, r *http.Request) {
	if sess := session.FromContext(r.Context()); sess != nil {
		sess.Logout()
		s.sessions.Regenerate(r)
	}
	flash.Push(r, flash.Success, msgGoodbye)
	http.Redirect(w, r, "/campgrounds", http.StatusFound)
}

// fakeUser registers a fixed demo account. It is only routed outside
// production.
func (s *Server) fakeUser(w http.ResponseWriter, r *http.Request) {
	u, err := s.users.Register(r.Context(), services.RegisterInput{
		Username: "gkub",
		Email:    "gkub@gkub.ca",
		Password: "monkeys",
	})
	if err != nil {
		s.fail(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(u)
}

// signIn binds u to a fresh session id.
func (s *Server) signIn(r *http.Request, u *models.User) {
	sess := session.FromContext(r.Context())
	if sess == nil {
		return
	}
	s.sessions.Regenerate(r)
	sess.Login(u.ID)
}

// localPath accepts only same-site absolute paths as redirect targets.
func localPath(p string) bool {
	return strings.HasPrefix(p, "/") && !strings.HasPrefix(p, "//") && !strings.HasPrefix(p, "/\\")
}
