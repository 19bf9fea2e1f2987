package session

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/dmitrijs2005/yelpcamp/internal/common"
	"github.com/dmitrijs2005/yelpcamp/internal/logging"
	"github.com/dmitrijs2005/yelpcamp/internal/server/models"
)

const (
	DefaultCookieName = "session"
	DefaultTTL        = 7 * 24 * time.Hour
	DefaultTouchAfter = 24 * time.Hour
	idBytes           = 32
)

// Session outcomes reported through Options.OnOutcome.
const (
	OutcomeIssued    = "issued"
	OutcomeResumed   = "resumed"
	OutcomeAnonymous = "anonymous"
)

type ctxKey int

const (
	sessionKey ctxKey = iota
	userKey
)

// PrincipalResolver loads the user a session refers to.
type PrincipalResolver interface {
	GetByID(ctx context.Context, id string) (*models.User, error)
}

type Options struct {
	CookieName string
	TTL        time.Duration
	// TouchAfter is the minimum time since the last renewal before a
	// resumed session gets its expiry extended.
	TouchAfter time.Duration
	Secure     bool
	Secret     []byte
	// OnOutcome, when set, is told how each request got its session.
	OnOutcome func(outcome string)
}

// Manager is the session and identity stage: it resumes or issues the
// session, resolves the current user and persists changes before the
// response headers are written.
type Manager struct {
	store  Store
	users  PrincipalResolver
	opts   Options
	logger logging.Logger
	now    func() time.Time
}

func NewManager(store Store, users PrincipalResolver, opts Options, l logging.Logger) *Manager {
	if opts.CookieName == "" {
		opts.CookieName = DefaultCookieName
	}
	if opts.TTL <= 0 {
		opts.TTL = DefaultTTL
	}
	if opts.TouchAfter <= 0 {
		opts.TouchAfter = DefaultTouchAfter
	}
	return &Manager{
		store:  store,
		users:  users,
		opts:   opts,
		logger: l.With("module", "session"),
		now:    time.Now,
	}
}

func (m *Manager) Name() string { return "session" }

// Enter implements pipeline.Stage.
func (m *Manager) Enter(w http.ResponseWriter, r *http.Request) (http.ResponseWriter, *http.Request, error) {
	ctx := r.Context()

	sess, persistent := m.resume(ctx, r)
	user := m.resolve(ctx, sess)

	ctx = context.WithValue(ctx, sessionKey, sess)
	ctx = context.WithValue(ctx, userKey, user)
	r = r.WithContext(ctx)

	cw := &commitWriter{ResponseWriter: w}
	cw.commit = func() { m.commit(context.WithoutCancel(ctx), cw.Header(), sess, persistent) }

	return cw, r, nil
}

// resume loads the session named by the cookie, or issues a new one. The
// second result is false when the store failed and the session will not be
// persisted for this request.
func (m *Manager) resume(ctx context.Context, r *http.Request) (*Session, bool) {
	now := m.now()

	if c, err := r.Cookie(m.opts.CookieName); err == nil {
		if id, err := parseID(c.Value, m.opts.Secret); err == nil {
			sess, err := m.store.Load(ctx, id)
			switch {
			case err == nil && !sess.Expired(now):
				sess.touch(now, m.opts.TTL, m.opts.TouchAfter)
				m.report(OutcomeResumed)
				return sess, true
			case err == nil, errors.Is(err, common.ErrorNotFound):
				// lapsed or unknown: fall through to a fresh session
			default:
				m.logger.Warn(ctx, "session store unavailable, continuing anonymously", "error", err)
				m.report(OutcomeAnonymous)
				return m.issue(now), false
			}
		} else {
			m.logger.Debug(ctx, "rejected session cookie", "error", err)
		}
	}

	m.report(OutcomeIssued)
	return m.issue(now), true
}

func (m *Manager) report(outcome string) {
	if m.opts.OnOutcome != nil {
		m.opts.OnOutcome(outcome)
	}
}

func (m *Manager) issue(now time.Time) *Session {
	id, err := common.MakeRandToken(idBytes)
	if err != nil {
		panic(err)
	}
	return newSession(id, now, m.opts.TTL)
}

// resolve returns the principal the session refers to. A principal that no
// longer exists makes the session anonymous; lookup failures are logged
// and also treated as anonymous.
func (m *Manager) resolve(ctx context.Context, sess *Session) *models.User {
	userID := sess.Principal()
	if userID == "" || m.users == nil {
		return nil
	}

	user, err := m.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			sess.Logout()
		} else {
			m.logger.Error(ctx, "resolving session principal", "error", err)
		}
		return nil
	}

	return user
}

func (m *Manager) commit(ctx context.Context, h http.Header, sess *Session, persistent bool) {
	isNew, dirty, touched, stale := sess.pending()

	if !persistent {
		return
	}

	for _, id := range stale {
		if err := m.store.Delete(ctx, id); err != nil {
			m.logger.Warn(ctx, "deleting replaced session", "error", err)
		}
	}

	var err error
	switch {
	case isNew:
		err = m.store.Save(ctx, sess)
	case dirty || touched:
		// the record may have been ended by a concurrent request
		err = m.store.Replace(ctx, sess)
	default:
		return
	}

	if errors.Is(err, common.ErrorNotFound) {
		m.logger.Warn(ctx, "discarding changes to an ended session")
		return
	}
	if err != nil {
		m.logger.Error(ctx, "saving session", "error", err)
		return
	}

	if isNew || touched {
		m.setCookie(h, sess)
	}
}

func (m *Manager) setCookie(h http.Header, sess *Session) {
	value, err := signID(sess.ID, m.opts.Secret)
	if err != nil {
		m.logger.Error(context.Background(), "signing session cookie", "error", err)
		return
	}

	c := &http.Cookie{
		Name:     m.opts.CookieName,
		Value:    value,
		Path:     "/",
		Expires:  m.now().Add(m.opts.TTL),
		MaxAge:   int(m.opts.TTL.Seconds()),
		HttpOnly: true,
		Secure:   m.opts.Secure,
		SameSite: http.SameSiteLaxMode,
	}
	h.Add("Set-Cookie", c.String())
}

// Regenerate moves the request's session to a new id, discarding the old
// record on commit. Call it when the principal changes.
func (m *Manager) Regenerate(r *http.Request) {
	sess := FromContext(r.Context())
	if sess == nil {
		return
	}
	id, err := common.MakeRandToken(idBytes)
	if err != nil {
		panic(err)
	}
	sess.regenerate(id)
}

// FromContext returns the request's session, or nil outside the stage.
func FromContext(ctx context.Context) *Session {
	s, _ := ctx.Value(sessionKey).(*Session)
	return s
}

// CurrentUser returns the authenticated principal, or nil when anonymous.
func CurrentUser(ctx context.Context) *models.User {
	u, _ := ctx.Value(userKey).(*models.User)
	return u
}

// WithUser replaces the principal visible to later handlers in the same
// request, e.g. right after login.
func WithUser(ctx context.Context, u *models.User) context.Context {
	return context.WithValue(ctx, userKey, u)
}

// commitWriter persists the session right before the first header or body
// byte goes out, or when the request finishes without writing anything.
type commitWriter struct {
	http.ResponseWriter
	commit func()
	once   sync.Once
}

func (w *commitWriter) WriteHeader(code int) {
	w.once.Do(w.commit)
	w.ResponseWriter.WriteHeader(code)
}

func (w *commitWriter) Write(b []byte) (int, error) {
	w.once.Do(w.commit)
	return w.ResponseWriter.Write(b)
}

func (w *commitWriter) Finish() {
	w.once.Do(w.commit)
}

func (w *commitWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}

func (w *commitWriter) Flush() {
	w.once.Do(w.commit)
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}
