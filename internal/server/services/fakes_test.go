package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/yelpcamp/internal/common"
	"github.com/dmitrijs2005/yelpcamp/internal/dbx"
	"github.com/dmitrijs2005/yelpcamp/internal/server/geocode"
	"github.com/dmitrijs2005/yelpcamp/internal/server/models"
	"github.com/dmitrijs2005/yelpcamp/internal/server/repositories/campgrounds"
	"github.com/dmitrijs2005/yelpcamp/internal/server/repositories/reviews"
	"github.com/dmitrijs2005/yelpcamp/internal/server/repositories/users"
)

const (
	campID   = "8c6f3c1e-3a43-4a6e-9d0b-6d3f0b7c5a11"
	reviewID = "1b2f9d5e-7c1a-4f7e-8a55-0c1e2d3f4a5b"
	ownerID  = "0f6e1a7c-2b3d-4e5f-9a8b-7c6d5e4f3a2b"
	otherID  = "a1b2c3d4-e5f6-4a7b-8c9d-0e1f2a3b4c5d"
)

var (
	owner = &models.User{ID: ownerID, UserName: "owner"}
	other = &models.User{ID: otherID, UserName: "other"}
)

func newSQLMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db, mock
}

type fakeUsersRepo struct {
	mu     sync.Mutex
	byName map[string]*models.User
	err    error
}

func (f *fakeUsersRepo) Create(ctx context.Context, u *models.User) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	if f.byName == nil {
		f.byName = map[string]*models.User{}
	}
	if _, ok := f.byName[u.UserName]; ok {
		return nil, common.ErrorAlreadyExists
	}
	u.ID = fmt.Sprintf("00000000-0000-4000-8000-%012d", len(f.byName)+1)
	f.byName[u.UserName] = u
	return u, nil
}

func (f *fakeUsersRepo) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if u, ok := f.byName[username]; ok {
		return u, nil
	}
	return nil, common.ErrorNotFound
}

func (f *fakeUsersRepo) GetByID(ctx context.Context, id string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.byName {
		if u.ID == id {
			return u, nil
		}
	}
	return nil, common.ErrorNotFound
}

type fakeCampgroundsRepo struct {
	items     map[string]*models.Campground
	createErr error
	updateErr error
	deleted   []string
	added     []models.Image
	removed   []string
}

func (f *fakeCampgroundsRepo) List(ctx context.Context) ([]*models.Campground, error) {
	var out []*models.Campground
	for _, c := range f.items {
		out = append(out, c)
	}
	return out, nil
}

func (f *fakeCampgroundsRepo) Get(ctx context.Context, id string) (*models.Campground, error) {
	c, ok := f.items[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	cp := *c
	cp.Images = append([]models.Image(nil), c.Images...)
	return &cp, nil
}

func (f *fakeCampgroundsRepo) Create(ctx context.Context, c *models.Campground) (*models.Campground, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	c.ID = campID
	if f.items == nil {
		f.items = map[string]*models.Campground{}
	}
	f.items[c.ID] = c
	return c, nil
}

func (f *fakeCampgroundsRepo) Update(ctx context.Context, c *models.Campground) error {
	if f.updateErr != nil {
		return f.updateErr
	}
	stored := f.items[c.ID]
	cp := *c
	cp.AuthorID = stored.AuthorID
	cp.Images = stored.Images
	f.items[c.ID] = &cp
	return nil
}

func (f *fakeCampgroundsRepo) Delete(ctx context.Context, id string) error {
	if _, ok := f.items[id]; !ok {
		return common.ErrorNotFound
	}
	delete(f.items, id)
	f.deleted = append(f.deleted, id)
	return nil
}

func (f *fakeCampgroundsRepo) AddImages(ctx context.Context, id string, imgs []models.Image) error {
	f.added = append(f.added, imgs...)
	f.items[id].Images = append(f.items[id].Images, imgs...)
	return nil
}

func (f *fakeCampgroundsRepo) DeleteImages(ctx context.Context, id string, filenames []string) error {
	f.removed = append(f.removed, filenames...)
	return nil
}

type fakeReviewsRepo struct {
	items   map[string]*models.Review
	deleted []string
}

func (f *fakeReviewsRepo) ListByCampground(ctx context.Context, campgroundID string) ([]models.Review, error) {
	var out []models.Review
	for _, r := range f.items {
		if r.CampgroundID == campgroundID {
			out = append(out, *r)
		}
	}
	return out, nil
}

func (f *fakeReviewsRepo) Get(ctx context.Context, campgroundID, id string) (*models.Review, error) {
	r, ok := f.items[id]
	if !ok || r.CampgroundID != campgroundID {
		return nil, common.ErrorNotFound
	}
	return r, nil
}

func (f *fakeReviewsRepo) Create(ctx context.Context, r *models.Review) (*models.Review, error) {
	r.ID = reviewID
	if f.items == nil {
		f.items = map[string]*models.Review{}
	}
	f.items[r.ID] = r
	return r, nil
}

func (f *fakeReviewsRepo) Delete(ctx context.Context, id string) error {
	delete(f.items, id)
	f.deleted = append(f.deleted, id)
	return nil
}

type fakeRepoManager struct {
	u *fakeUsersRepo
	c *fakeCampgroundsRepo
	r *fakeReviewsRepo
}

func newFakeRepoManager() *fakeRepoManager {
	return &fakeRepoManager{u: &fakeUsersRepo{}, c: &fakeCampgroundsRepo{}, r: &fakeReviewsRepo{}}
}

func (m *fakeRepoManager) RunMigrations(context.Context, *sql.DB) error   { return nil }
func (m *fakeRepoManager) MigrationStatus(context.Context, *sql.DB) error { return nil }
func (m *fakeRepoManager) Users(db dbx.DBTX) users.Repository             { return m.u }
func (m *fakeRepoManager) Campgrounds(db dbx.DBTX) campgrounds.Repository { return m.c }
func (m *fakeRepoManager) Reviews(db dbx.DBTX) reviews.Repository         { return m.r }

type fakeGeocoder struct {
	calls []string
	err   error
}

func (g *fakeGeocoder) Forward(ctx context.Context, q string) (*geocode.Place, error) {
	g.calls = append(g.calls, q)
	if g.err != nil {
		return nil, g.err
	}
	return &geocode.Place{Name: q, Geometry: models.NewPoint(-119.5, 37.8)}, nil
}

type fakeHost struct {
	uploaded []string
	deleted  []string
	failOn   string
}

func (h *fakeHost) Upload(ctx context.Context, name, contentType string, body io.Reader) (models.Image, error) {
	if name == h.failOn {
		return models.Image{}, common.ErrorUpstream
	}
	key := "campgrounds/" + name
	h.uploaded = append(h.uploaded, key)
	return models.Image{URL: "http://img/" + key, Filename: key}, nil
}

func (h *fakeHost) Delete(ctx context.Context, key string) error {
	h.deleted = append(h.deleted, key)
	if strings.Contains(key, "sticky") {
		return errors.New("host down")
	}
	return nil
}

func upload(name string) Upload {
	return Upload{
		Name:        name,
		ContentType: "image/jpeg",
		Open: func() (io.ReadCloser, error) {
			return io.NopCloser(strings.NewReader("data")), nil
		},
	}
}

func ptr[T any](v T) *T { return &v }
