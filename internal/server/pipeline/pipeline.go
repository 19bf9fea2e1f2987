// Package pipeline runs the global request stages in a fixed order before
// route dispatch.
//
// Each Stage may replace the ResponseWriter and the Request it hands on,
// or stop the chain by returning an error. A stopped request goes to the
// chain's error handler unless the error is ErrHandled, meaning the stage
// already wrote a complete response.
package pipeline

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/dmitrijs2005/yelpcamp/internal/common"
)

// ErrHandled stops the chain without invoking the error handler.
var ErrHandled = errors.New("response already written")

type Stage interface {
	Name() string
	Enter(w http.ResponseWriter, r *http.Request) (http.ResponseWriter, *http.Request, error)
}

// Finisher is implemented by writers that must run code once the request
// is over even if nothing was written.
type Finisher interface {
	Finish()
}

type ErrorHandler func(w http.ResponseWriter, r *http.Request, err error)

type stageFunc struct {
	name string
	fn   func(w http.ResponseWriter, r *http.Request) (http.ResponseWriter, *http.Request, error)
}

func (s stageFunc) Name() string { return s.name }

func (s stageFunc) Enter(w http.ResponseWriter, r *http.Request) (http.ResponseWriter, *http.Request, error) {
	return s.fn(w, r)
}

// Func adapts a plain function into a named Stage.
func Func(name string, fn func(w http.ResponseWriter, r *http.Request) (http.ResponseWriter, *http.Request, error)) Stage {
	return stageFunc{name: name, fn: fn}
}

// Header returns a stage that only sets response headers.
func Header(name string, set func(h http.Header)) Stage {
	return Func(name, func(w http.ResponseWriter, r *http.Request) (http.ResponseWriter, *http.Request, error) {
		set(w.Header())
		return w, r, nil
	})
}

type Chain struct {
	stages  []Stage
	onError ErrorHandler
}

func New(onError ErrorHandler, stages ...Stage) *Chain {
	return &Chain{stages: stages, onError: onError}
}

// Names lists the stages in execution order.
func (c *Chain) Names() []string {
	names := make([]string, len(c.stages))
	for i, s := range c.stages {
		names[i] = s.Name()
	}
	return names
}

// Then returns a handler running every stage and then next. A panic in a
// stage or in next is reported to the error handler as a wrapped
// common.ErrorInternal before the finishers run.
func (c *Chain) Then(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var finishers []Finisher
		defer func() {
			for i := len(finishers) - 1; i >= 0; i-- {
				finishers[i].Finish()
			}
		}()
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			if rec == http.ErrAbortHandler {
				panic(rec)
			}
			c.fail(w, r, fmt.Errorf("%w: panic: %v", common.ErrorInternal, rec))
		}()

		for _, s := range c.stages {
			nw, nr, err := s.Enter(w, r)

			if nw != nil && nw != w {
				w = nw
				if f, ok := nw.(Finisher); ok {
					finishers = append(finishers, f)
				}
			}
			if nr != nil {
				r = nr
			}

			if err != nil {
				if !errors.Is(err, ErrHandled) {
					c.fail(w, r, err)
				}
				return
			}
		}

		next.ServeHTTP(w, r)
	})
}

func (c *Chain) fail(w http.ResponseWriter, r *http.Request, err error) {
	if c.onError == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	c.onError(w, r, err)
}

// Middleware adapts the chain to the func(http.Handler) http.Handler shape
// used by routers.
func (c *Chain) Middleware(next http.Handler) http.Handler {
	return c.Then(next)
}
