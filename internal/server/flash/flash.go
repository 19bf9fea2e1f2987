// Package flash carries one-shot messages across a redirect. Messages are
// pushed into the session and drained into the request context by Stage on
// the next request, so each message is shown exactly once.
package flash

import (
	"context"
	"net/http"

	"github.com/dmitrijs2005/yelpcamp/internal/server/pipeline"
	"github.com/dmitrijs2005/yelpcamp/internal/server/session"
)

const (
	Success = "success"
	Error   = "error"
)

// Messages is what templates see for the current request.
type Messages struct {
	Success []string
	Error   []string
}

func (m Messages) Empty() bool {
	return len(m.Success) == 0 && len(m.Error) == 0
}

type ctxKey struct{}

// Push stores a message for the next request that drains its category.
// It is a no-op when the request carries no session.
func Push(r *http.Request, category, text string) {
	if s := session.FromContext(r.Context()); s != nil {
		s.Push(category, text)
	}
}

// Drain removes and returns the messages in category.
func Drain(r *http.Request, category string) []string {
	if s := session.FromContext(r.Context()); s != nil {
		return s.Drain(category)
	}
	return nil
}

// Stage drains the success and error categories into the request context.
// It must run after the session stage.
func Stage() pipeline.Stage {
	return pipeline.Func("flash", func(w http.ResponseWriter, r *http.Request) (http.ResponseWriter, *http.Request, error) {
		msgs := Messages{
			Success: Drain(r, Success),
			Error:   Drain(r, Error),
		}
		return w, r.WithContext(context.WithValue(r.Context(), ctxKey{}, msgs)), nil
	})
}

// FromContext returns the messages drained for this request.
func FromContext(ctx context.Context) Messages {
	m, _ := ctx.Value(ctxKey{}).(Messages)
	return m
}
