package web

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"

	"github.com/dmitrijs2005/yelpcamp/internal/common"
	"github.com/dmitrijs2005/yelpcamp/internal/logging"
	"github.com/dmitrijs2005/yelpcamp/internal/server/auth"
	"github.com/dmitrijs2005/yelpcamp/internal/server/models"
	"github.com/dmitrijs2005/yelpcamp/internal/server/sanitize"
	"github.com/dmitrijs2005/yelpcamp/internal/server/secure"
	"github.com/dmitrijs2005/yelpcamp/internal/server/services"
	"github.com/dmitrijs2005/yelpcamp/internal/server/session"
	"github.com/stretchr/testify/require"
)

const (
	campID   = "4b3f1c2e-8d7a-4e21-9f0b-6a5c4d3e2f10"
	reviewID = "9a8b7c6d-5e4f-4a3b-8c2d-1e0f9a8b7c6d"
	ownerID  = "11111111-1111-4111-8111-111111111111"
	otherID  = "22222222-2222-4222-8222-222222222222"
	password = "monkeys"
)

type fakeUserService struct {
	mu    sync.Mutex
	users map[string]*models.User
}

func newFakeUserService() *fakeUserService {
	return &fakeUserService{users: map[string]*models.User{
		"owner": {ID: ownerID, UserName: "owner", Email: "owner@example.com"},
		"other": {ID: otherID, UserName: "other", Email: "other@example.com"},
	}}
}

func (f *fakeUserService) Register(ctx context.Context, in services.RegisterInput) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.users[in.Username]; ok {
		return nil, common.NewValidationError("A user with the given username is already registered")
	}
	u := &models.User{ID: "33333333-3333-4333-8333-333333333333", UserName: in.Username, Email: in.Email}
	f.users[in.Username] = u
	return u, nil
}

func (f *fakeUserService) Login(ctx context.Context, username, pw string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[username]
	if !ok || pw != password {
		return nil, common.ErrorBadCredentials
	}
	return u, nil
}

func (f *fakeUserService) GetByID(ctx context.Context, id string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.ID == id {
			return u, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (f *fakeUserService) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.users)
}

type fakeCampgroundService struct {
	mu        sync.Mutex
	camps     map[string]*models.Campground
	updates   int
	deletes   int
	listPanic any
}

func newFakeCampgroundService() *fakeCampgroundService {
	return &fakeCampgroundService{camps: map[string]*models.Campground{
		campID: {
			ID:          campID,
			Title:       "Misty Bay",
			Location:    "Tofino, BC",
			Description: "Quiet spot",
			Price:       12.5,
			Geometry:    models.NewPoint(-125.9, 49.15),
			AuthorID:    ownerID,
			AuthorName:  "owner",
			Reviews: []models.Review{
				{ID: reviewID, CampgroundID: campID, Body: "Lovely", Rating: 4, AuthorID: ownerID, AuthorName: "owner"},
			},
		},
	}}
}

func (f *fakeCampgroundService) load(id string) (*models.Campground, error) {
	c, ok := f.camps[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	cp := *c
	return &cp, nil
}

func (f *fakeCampgroundService) List(ctx context.Context) ([]*models.Campground, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listPanic != nil {
		panic(f.listPanic)
	}
	var out []*models.Campground
	for id := range f.camps {
		c, _ := f.load(id)
		out = append(out, c)
	}
	return out, nil
}

func (f *fakeCampgroundService) Get(ctx context.Context, id string) (*models.Campground, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.load(id)
}

func (f *fakeCampgroundService) Authorize(ctx context.Context, actor *models.User, id string) (*models.Campground, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, err := f.load(id)
	if err != nil {
		return nil, err
	}
	if err := auth.Authorize(actor, c); err != nil {
		return nil, err
	}
	return c, nil
}

func (f *fakeCampgroundService) Create(ctx context.Context, author *models.User, in services.CampgroundInput, uploads []services.Upload) (*models.Campground, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if in.Title == "" {
		return nil, common.NewValidationError(`"title" is required`)
	}
	c := &models.Campground{ID: "55555555-5555-4555-8555-555555555555", Title: in.Title, Location: in.Location, AuthorID: author.ID}
	f.camps[c.ID] = c
	return c, nil
}

func (f *fakeCampgroundService) Update(ctx context.Context, actor *models.User, id string, in services.CampgroundInput, uploads []services.Upload, deleteImages []string) (*models.Campground, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.camps[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	if err := auth.Authorize(actor, c); err != nil {
		return nil, err
	}
	c.Title = in.Title
	c.Location = in.Location
	c.Description = in.Description
	f.updates++
	cp := *c
	return &cp, nil
}

func (f *fakeCampgroundService) Delete(ctx context.Context, actor *models.User, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.camps[id]
	if !ok {
		return common.ErrorNotFound
	}
	if err := auth.Authorize(actor, c); err != nil {
		return err
	}
	delete(f.camps, id)
	f.deletes++
	return nil
}

func (f *fakeCampgroundService) title(id string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if c, ok := f.camps[id]; ok {
		return c.Title
	}
	return ""
}

type fakeReviewService struct {
	mu      sync.Mutex
	camps   *fakeCampgroundService
	created []services.ReviewInput
	deleted []string
}

func (f *fakeReviewService) Create(ctx context.Context, author *models.User, campgroundID string, in services.ReviewInput) (*models.Review, error) {
	if _, err := f.camps.Get(ctx, campgroundID); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.created = append(f.created, in)
	return &models.Review{ID: "66666666-6666-4666-8666-666666666666", CampgroundID: campgroundID, AuthorID: author.ID}, nil
}

func (f *fakeReviewService) Delete(ctx context.Context, actor *models.User, campgroundID, id string) error {
	c, err := f.camps.Get(ctx, campgroundID)
	if err != nil {
		return err
	}
	for i := range c.Reviews {
		if c.Reviews[i].ID != id {
			continue
		}
		if err := auth.Authorize(actor, &c.Reviews[i]); err != nil {
			return err
		}
		f.mu.Lock()
		f.deleted = append(f.deleted, id)
		f.mu.Unlock()
		return nil
	}
	return common.ErrorNotFound
}

// harness drives the full router and keeps cookies between requests like
// a browser would.
type harness struct {
	t       *testing.T
	handler http.Handler
	users   *fakeUserService
	camps   *fakeCampgroundService
	reviews *fakeReviewService
	policy  *secure.Policy
	cookies map[string]*http.Cookie
}

func newHarness(t *testing.T, opts Options) *harness {
	t.Helper()

	users := newFakeUserService()
	camps := newFakeCampgroundService()
	reviews := &fakeReviewService{camps: camps}
	policy := secure.NewPolicy(secure.Options{Production: opts.Production})

	renderer, err := NewTemplateRenderer()
	require.NoError(t, err)

	if opts.SecretKey == "" {
		opts.SecretKey = "test-secret"
	}
	l := logging.Nop()
	sessions := session.NewManager(session.NewMemoryStore(), users, session.Options{Secret: []byte(opts.SecretKey)}, l)

	srv := NewServer(opts, Deps{
		Logger:      l,
		Users:       users,
		Campgrounds: camps,
		Reviews:     reviews,
		Sessions:    sessions,
		Stages: Stages{
			Sanitizer: sanitize.New(l),
			Security:  policy.Stage(),
		},
		Renderer: renderer,
	})

	return &harness{
		t:       t,
		handler: srv.Router(),
		users:   users,
		camps:   camps,
		reviews: reviews,
		policy:  policy,
		cookies: map[string]*http.Cookie{},
	}
}

func (h *harness) do(req *http.Request) *httptest.ResponseRecorder {
	h.t.Helper()
	for _, c := range h.cookies {
		req.AddCookie(c)
	}

	w := httptest.NewRecorder()
	h.handler.ServeHTTP(w, req)

	for _, c := range w.Result().Cookies() {
		if c.MaxAge < 0 {
			delete(h.cookies, c.Name)
			continue
		}
		h.cookies[c.Name] = c
	}
	return w
}

func (h *harness) get(path string) *httptest.ResponseRecorder {
	return h.do(httptest.NewRequest(http.MethodGet, path, nil))
}

func (h *harness) post(path string, form url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return h.do(req)
}

func (h *harness) login(username string) *httptest.ResponseRecorder {
	h.t.Helper()
	w := h.post("/login", url.Values{"username": {username}, "password": {password}})
	require.Equal(h.t, http.StatusFound, w.Code)
	return w
}
