package web

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dmitrijs2005/yelpcamp/internal/common"
	"github.com/dmitrijs2005/yelpcamp/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantMsg    string
	}{
		{"not found", fmt.Errorf("get: %w", common.ErrorNotFound), http.StatusNotFound, msgNotFound},
		{"validation problems", common.NewValidationError(`"title" is required`, `"price" is required`), http.StatusBadRequest, `"title" is required, "price" is required`},
		{"bare validation", common.ErrorValidation, http.StatusBadRequest, "Invalid input"},
		{"forbidden", common.ErrorForbidden, http.StatusForbidden, msgForbidden},
		{"unauthenticated", common.ErrorUnauthenticated, http.StatusUnauthorized, msgUnauthorized},
		{"upstream", fmt.Errorf("geocode: %w", common.ErrorUpstream), http.StatusInternalServerError, msgGeneric},
		{"internal", fmt.Errorf("%w: panic: boom", common.ErrorInternal), http.StatusInternalServerError, msgGeneric},
		{"unknown", errors.New("db error: connection refused"), http.StatusInternalServerError, msgGeneric},
		{"explicit", &StatusError{Status: http.StatusTeapot, Message: "short and stout"}, http.StatusTeapot, "short and stout"},
		{"explicit defaults", &StatusError{Err: errors.New("x")}, http.StatusInternalServerError, msgGeneric},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, msg := classify(tt.err)
			assert.Equal(t, tt.wantStatus, status)
			assert.Equal(t, tt.wantMsg, msg)
		})
	}
}

func TestFail_HidesInternalDetail(t *testing.T) {
	renderer, err := NewTemplateRenderer()
	require.NoError(t, err)
	srv := NewServer(Options{}, Deps{Logger: logging.Nop(), Renderer: renderer})

	w := httptest.NewRecorder()
	srv.fail(w, httptest.NewRequest(http.MethodGet, "/", nil), errors.New("pq: password authentication failed"))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), msgGeneric)
	assert.NotContains(t, w.Body.String(), "password authentication")
}

func TestFail_PlainTextWithoutRenderer(t *testing.T) {
	srv := NewServer(Options{}, Deps{Logger: logging.Nop()})

	w := httptest.NewRecorder()
	srv.fail(w, httptest.NewRequest(http.MethodGet, "/", nil), common.ErrorNotFound)

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, msgNotFound+"\n", w.Body.String())
}
