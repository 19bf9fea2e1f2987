// Package sanitize rewrites request input keys that the persistence layer
// could read as query operators: a leading '$' and any '.' in a key (or in
// one bracketed segment of a key such as campground[$gt]) are replaced.
// Values are never changed.
package sanitize

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime"
	"net/http"
	"net/url"
	"sort"
	"strings"

	"github.com/dmitrijs2005/yelpcamp/internal/logging"
)

const (
	DefaultReplacement = "_"
	defaultMaxMemory   = 32 << 20
)

// Key returns key with every operator-like character replaced by repl.
func Key(key, repl string) string {
	if !strings.ContainsAny(key, "$.") {
		return key
	}

	var b strings.Builder
	b.Grow(len(key))
	segmentStart := true
	for _, c := range key {
		switch {
		case c == '.', c == '$' && segmentStart:
			b.WriteString(repl)
		default:
			b.WriteRune(c)
		}
		segmentStart = c == '['
	}
	return b.String()
}

// Values rewrites the keys of v in place, merging values of keys that
// collide after the rewrite. It reports whether anything changed. It serves
// url.Values as well as the file map of a multipart form.
func Values[M ~map[string][]T, T any](v M, repl string) bool {
	var dirty []string
	for k := range v {
		if Key(k, repl) != k {
			dirty = append(dirty, k)
		}
	}
	sort.Strings(dirty)

	for _, k := range dirty {
		nk := Key(k, repl)
		v[nk] = append(v[nk], v[k]...)
		delete(v, k)
	}
	return len(dirty) > 0
}

// Query rewrites the keys of a raw query string, keeping pair order and
// leaving every value byte-identical.
func Query(raw, repl string) string {
	if raw == "" {
		return raw
	}

	pairs := strings.Split(raw, "&")
	changed := false
	for i, p := range pairs {
		k, v, hasValue := strings.Cut(p, "=")

		uk, err := url.QueryUnescape(k)
		if err != nil {
			uk = k
		}
		nk := Key(uk, repl)
		if nk == uk {
			continue
		}

		pairs[i] = url.QueryEscape(nk)
		if hasValue {
			pairs[i] += "=" + v
		}
		changed = true
	}

	if !changed {
		return raw
	}
	return strings.Join(pairs, "&")
}

type frame struct {
	object bool
	n      int
}

// JSON rewrites object keys at any depth of a JSON document, keeping key
// order. The input is returned untouched when no key needs a rewrite.
func JSON(data []byte, repl string) ([]byte, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var (
		buf     bytes.Buffer
		stack   []frame
		changed bool
	)

	for {
		tok, err := dec.Token()
		if err == io.EOF {
			if len(stack) > 0 {
				return nil, io.ErrUnexpectedEOF
			}
			break
		}
		if err != nil {
			return nil, err
		}

		if d, ok := tok.(json.Delim); ok && (d == '}' || d == ']') {
			stack = stack[:len(stack)-1]
			buf.WriteByte(byte(d))
			continue
		}

		isKey := false
		if n := len(stack); n > 0 {
			top := &stack[n-1]
			switch {
			case top.object && top.n%2 == 1:
				buf.WriteByte(':')
			case top.n > 0:
				buf.WriteByte(',')
			}
			isKey = top.object && top.n%2 == 0
			top.n++
		}

		switch v := tok.(type) {
		case json.Delim:
			buf.WriteByte(byte(v))
			stack = append(stack, frame{object: v == '{'})
		case string:
			if isKey {
				if nk := Key(v, repl); nk != v {
					v = nk
					changed = true
				}
			}
			if err := writeString(&buf, v); err != nil {
				return nil, err
			}
		case json.Number:
			buf.WriteString(v.String())
		case bool:
			if v {
				buf.WriteString("true")
			} else {
				buf.WriteString("false")
			}
		case nil:
			buf.WriteString("null")
		}
	}

	if !changed {
		return data, nil
	}
	return buf.Bytes(), nil
}

func writeString(buf *bytes.Buffer, s string) error {
	enc := json.NewEncoder(buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(s); err != nil {
		return err
	}
	// Encode terminates every value with a newline
	buf.Truncate(buf.Len() - 1)
	return nil
}

type Option func(*Sanitizer)

// WithReplacement sets the placeholder. A replacement that would itself
// be rewritten is ignored.
func WithReplacement(repl string) Option {
	return func(s *Sanitizer) {
		if repl != "" && !strings.ContainsAny(repl, "$.") {
			s.replacement = repl
		}
	}
}

func WithMaxMemory(n int64) Option {
	return func(s *Sanitizer) { s.maxMemory = n }
}

// Sanitizer is the first request stage. It parses the query and body
// eagerly so that every later reader sees rewritten keys only.
type Sanitizer struct {
	replacement string
	maxMemory   int64
	logger      logging.Logger
}

func New(l logging.Logger, opts ...Option) *Sanitizer {
	s := &Sanitizer{
		replacement: DefaultReplacement,
		maxMemory:   defaultMaxMemory,
		logger:      l.With("module", "sanitize"),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

func (s *Sanitizer) Name() string { return "sanitize" }

// Enter implements pipeline.Stage. It never fails the request: input that
// cannot be parsed is passed on as is for the handler to reject.
func (s *Sanitizer) Enter(w http.ResponseWriter, r *http.Request) (http.ResponseWriter, *http.Request, error) {
	ctx := r.Context()

	if q := Query(r.URL.RawQuery, s.replacement); q != r.URL.RawQuery {
		s.logger.Warn(ctx, "rewrote query keys", "path", r.URL.Path)
		r.URL.RawQuery = q
	}

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))

	var err error
	switch mediaType {
	case "multipart/form-data":
		err = r.ParseMultipartForm(s.maxMemory)
	case "application/json":
		s.rewriteJSON(ctx, w, r)
		err = r.ParseForm()
	default:
		err = r.ParseForm()
	}
	if err != nil {
		s.logger.Debug(ctx, "request input not parsed", "error", err)
	}

	changed := Values(r.Form, s.replacement)
	changed = Values(r.PostForm, s.replacement) || changed
	if r.MultipartForm != nil {
		changed = Values(r.MultipartForm.Value, s.replacement) || changed
		changed = Values(r.MultipartForm.File, s.replacement) || changed
	}
	if changed {
		s.logger.Warn(ctx, "rewrote form keys", "path", r.URL.Path)
	}

	return w, r, nil
}

// rewriteJSON reads at most maxMemory bytes of body. A body that is too
// large or fails to read is handed on so that its reader reports the error.
func (s *Sanitizer) rewriteJSON(ctx context.Context, w http.ResponseWriter, r *http.Request) {
	if r.Body == nil || r.Body == http.NoBody {
		return
	}

	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.maxMemory))
	_ = r.Body.Close()
	if err != nil {
		s.logger.Debug(ctx, "reading json body", "error", err)
		r.Body = io.NopCloser(io.MultiReader(bytes.NewReader(data), errReader{err}))
		return
	}

	out, err := JSON(data, s.replacement)
	if err != nil {
		out = data
	} else if !bytes.Equal(out, data) {
		s.logger.Warn(ctx, "rewrote json keys", "path", r.URL.Path)
	}

	r.Body = io.NopCloser(bytes.NewReader(out))
	r.ContentLength = int64(len(out))
}

type errReader struct{ err error }

func (e errReader) Read([]byte) (int, error) { return 0, e.err }
