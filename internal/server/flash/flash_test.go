package flash

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dmitrijs2005/yelpcamp/internal/logging"
	"github.com/dmitrijs2005/yelpcamp/internal/server/pipeline"
	"github.com/dmitrijs2005/yelpcamp/internal/server/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newChain() *pipeline.Chain {
	m := session.NewManager(session.NewMemoryStore(), nil, session.Options{Secret: []byte("k")}, logging.Nop())
	return pipeline.New(nil, m, Stage())
}

func do(chain *pipeline.Chain, cookies []*http.Cookie, h http.HandlerFunc) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	w := httptest.NewRecorder()
	chain.Then(h).ServeHTTP(w, req)
	return w
}

func TestFlash_ShownOnNextRequestOnly(t *testing.T) {
	chain := newChain()

	w := do(chain, nil, func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, FromContext(r.Context()).Empty())
		Push(r, Success, "Welcome back!")
		Push(r, Error, "Cannot find that campground!")
		http.Redirect(w, r, "/campgrounds", http.StatusFound)
	})
	cookies := w.Result().Cookies()
	require.NotEmpty(t, cookies)

	var got Messages
	do(chain, cookies, func(w http.ResponseWriter, r *http.Request) {
		got = FromContext(r.Context())
	})
	assert.Equal(t, []string{"Welcome back!"}, got.Success)
	assert.Equal(t, []string{"Cannot find that campground!"}, got.Error)

	do(chain, cookies, func(w http.ResponseWriter, r *http.Request) {
		got = FromContext(r.Context())
	})
	assert.True(t, got.Empty())
}

func TestFlash_PushedDuringRenderWaitsForNextRequest(t *testing.T) {
	chain := newChain()

	w := do(chain, nil, func(w http.ResponseWriter, r *http.Request) {
		Push(r, Success, "later")
		assert.Empty(t, FromContext(r.Context()).Success)
	})

	var got Messages
	do(chain, w.Result().Cookies(), func(w http.ResponseWriter, r *http.Request) {
		got = FromContext(r.Context())
	})
	assert.Equal(t, []string{"later"}, got.Success)
}

func TestFlash_NoSessionIsNoop(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	Push(r, Success, "dropped")
	assert.Nil(t, Drain(r, Success))
	assert.True(t, FromContext(r.Context()).Empty())
}
