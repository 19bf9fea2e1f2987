package web

import (
	"net/http"
	"strings"

	"github.com/dmitrijs2005/yelpcamp/internal/server/pipeline"
	"github.com/go-chi/chi/v5"
)

const (
	methodField    = "_method"
	overrideHeader = "X-HTTP-Method-Override"
)

var overridable = map[string]bool{
	http.MethodPut:    true,
	http.MethodPatch:  true,
	http.MethodDelete: true,
}

// MethodOverride lets HTML forms, which can only POST, reach PUT, PATCH
// and DELETE routes. The target method is taken from the _method query
// parameter, the X-HTTP-Method-Override header or the _method form field,
// in that order. Any other value is ignored.
func MethodOverride() pipeline.Stage {
	return pipeline.Func("method-override", func(w http.ResponseWriter, r *http.Request) (http.ResponseWriter, *http.Request, error) {
		if r.Method != http.MethodPost {
			return w, r, nil
		}

		m := overrideMethod(r)
		if !overridable[m] {
			return w, r, nil
		}

		r2 := new(http.Request)
		*r2 = *r
		r2.Method = m
		// a parent router has already fixed the method it dispatches on
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			rctx.RouteMethod = m
		}
		return w, r2, nil
	})
}

func overrideMethod(r *http.Request) string {
	if m := r.URL.Query().Get(methodField); m != "" {
		return strings.ToUpper(m)
	}
	if m := r.Header.Get(overrideHeader); m != "" {
		return strings.ToUpper(m)
	}
	return strings.ToUpper(r.PostFormValue(methodField))
}
