package web

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"net/http"
	"strconv"
	"sync/atomic"
	"time"

	loginpage "github.com/MamBoota/LoginPage"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/template/django/v3"
	"github.com/goliatone/go-print"
	"github.com/google/uuid"
	"github.com/puzpuzpuz/xsync/v3"
)

//go:embed views
var viewsFS embed.FS

// DefaultCookieName holds the visitor id
const DefaultCookieName = "loginpage_visitor"

// DefaultVisitorTTL is how long an idle visitor keeps its flow
const DefaultVisitorTTL = 30 * time.Minute

// View names
const (
	ViewLayout        = "layout"
	ViewLogin         = "login"
	ViewTwoFactor     = "two_factor"
	ViewAuthenticated = "authenticated"
)

// FlowFactory builds the flow of a new visitor
type FlowFactory func() *loginpage.Flow

// Option customizes a Handler
type Option func(*Handler)

// WithCookieName overrides the visitor cookie name
func WithCookieName(name string) Option {
	return func(h *Handler) {
		if name != "" {
			h.cookieName = name
		}
	}
}

// WithVisitorTTL sets how long an idle visitor keeps its flow
func WithVisitorTTL(ttl time.Duration) Option {
	return func(h *Handler) {
		if ttl > 0 {
			h.ttl = ttl
		}
	}
}

// WithClock injects a custom clock (useful for tests).
func WithClock(clock func() time.Time) Option {
	return func(h *Handler) {
		if clock != nil {
			h.now = clock
		}
	}
}

// WithDebug dumps the view data of every render
func WithDebug(debug bool) Option {
	return func(h *Handler) {
		h.debug = debug
	}
}

// WithCSRFKey sets the key signing form tokens. A random key is used
// when none is given.
func WithCSRFKey(key []byte) Option {
	return func(h *Handler) {
		h.csrfKey = key
	}
}

// WithCSRFExpiration bounds the age of form tokens
func WithCSRFExpiration(d time.Duration) Option {
	return func(h *Handler) {
		if d > 0 {
			h.csrfExpiration = d
		}
	}
}

// WithLogger overrides the handler logger
func WithLogger(logger loginpage.Logger) Option {
	return func(h *Handler) {
		if logger != nil {
			h.logger = logger
		}
	}
}

type visitor struct {
	flow     *loginpage.Flow
	lastSeen atomicTime
}

// Handler renders the login flow as HTML pages. Every visitor owns one
// flow, keyed by a cookie.
type Handler struct {
	newFlow        FlowFactory
	visitors       *xsync.MapOf[string, *visitor]
	cookieName     string
	ttl            time.Duration
	csrf           *csrfGuard
	csrfKey        []byte
	csrfExpiration time.Duration
	now            func() time.Time
	debug          bool
	logger         loginpage.Logger
}

// New returns a handler creating visitor flows with factory
func New(factory FlowFactory, opts ...Option) *Handler {
	if factory == nil {
		panic("LOGIN: web handler configuration: FlowFactory is required.")
	}

	h := &Handler{
		newFlow:        factory,
		visitors:       xsync.NewMapOf[string, *visitor](),
		cookieName:     DefaultCookieName,
		ttl:            DefaultVisitorTTL,
		csrfExpiration: DefaultCSRFExpiration,
		now:            time.Now,
		logger:         loginpage.DefaultLogger(),
	}

	for _, opt := range opts {
		if opt != nil {
			opt(h)
		}
	}

	guard, err := newCSRFGuard(h.csrfKey, h.csrfExpiration, h.now)
	if err != nil {
		panic(err)
	}
	h.csrf = guard

	return h
}

// NewEngine returns the django view engine over the embedded templates
func NewEngine() (*django.Engine, error) {
	sub, err := fs.Sub(viewsFS, "views")
	if err != nil {
		return nil, fmt.Errorf("unable to scope embedded views: %w", err)
	}
	return django.NewFileSystem(http.FS(sub), ".html"), nil
}

// App returns a fiber app with the views engine and routes registered
func (h *Handler) App() (*fiber.App, error) {
	engine, err := NewEngine()
	if err != nil {
		return nil, err
	}

	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		Views:                 engine,
	})
	h.Register(app)

	return app, nil
}

// Register mounts the page routes on router
func (h *Handler) Register(router fiber.Router) {
	router.Get("/", h.show)
	router.Post("/login", h.protect, h.login)
	router.Post("/2fa", h.protect, h.verify)
	router.Post("/2fa/resend", h.protect, h.resend)
	router.Post("/back", h.protect, h.back)
	router.Post("/restart", h.protect, h.restart)
}

// Visitors returns the number of live visitor flows
func (h *Handler) Visitors() int {
	return h.visitors.Size()
}

// Sweep closes the flows of visitors idle longer than the TTL. It returns
// how many were removed.
func (h *Handler) Sweep() int {
	cutoff := h.now().Add(-h.ttl)
	removed := 0

	h.visitors.Range(func(id string, v *visitor) bool {
		if v.lastSeen.Load().Before(cutoff) {
			if _, ok := h.visitors.LoadAndDelete(id); ok {
				v.flow.Close()
				removed++
			}
		}
		return true
	})

	if removed > 0 {
		h.logger.Debug("swept %d idle visitors", removed)
	}
	return removed
}

// RunSweeper calls Sweep on every interval until ctx is done
func (h *Handler) RunSweeper(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			h.Sweep()
		}
	}
}

// Close tears down every visitor flow
func (h *Handler) Close() {
	h.visitors.Range(func(id string, v *visitor) bool {
		h.visitors.Delete(id)
		v.flow.Close()
		return true
	})
}

func (h *Handler) show(c *fiber.Ctx) error {
	id, flow := h.flowFor(c)

	switch flow.Step() {
	case loginpage.StepTwoFactor:
		return h.render(c, ViewTwoFactor, id, flow, twoFactorData(flow))
	case loginpage.StepAuthenticated:
		return h.render(c, ViewAuthenticated, id, flow, map[string]any{})
	default:
		return h.render(c, ViewLogin, id, flow, loginData(flow))
	}
}

// protect rejects state changing requests without a valid form token
func (h *Handler) protect(c *fiber.Ctx) error {
	id := c.Cookies(h.cookieName)

	err := ErrCSRFTokenMismatch
	if id != "" {
		err = h.csrf.verify(id, csrfToken(c))
	}

	if err != nil {
		h.logger.Debug("rejected %s %s: %v", c.Method(), c.Path(), err)
		return c.Status(fiber.StatusForbidden).SendString(err.Error())
	}

	return c.Next()
}

func (h *Handler) login(c *fiber.Ctx) error {
	_, flow := h.flowFor(c)

	form := flow.LoginForm()
	if form == nil {
		return h.redirect(c)
	}

	form.SetEmail(c.FormValue("email"))
	form.SetPassword(c.FormValue("password"))

	if err := flow.SubmitLogin(c.UserContext()); err != nil {
		h.logger.Debug("login submit: %v", err)
	}

	return h.redirect(c)
}

func (h *Handler) verify(c *fiber.Ctx) error {
	_, flow := h.flowFor(c)

	form := flow.TwoFactorForm()
	if form == nil {
		return h.redirect(c)
	}

	for i := 0; i < loginpage.CodeLength; i++ {
		form.Input(i, c.FormValue("d"+strconv.Itoa(i)))
	}

	if err := flow.SubmitCode(c.UserContext()); err != nil {
		h.logger.Debug("code submit: %v", err)
	}

	return h.redirect(c)
}

func (h *Handler) resend(c *fiber.Ctx) error {
	_, flow := h.flowFor(c)

	if err := flow.RequestNewCode(c.UserContext()); err != nil {
		h.logger.Debug("request new code: %v", err)
	}

	return h.redirect(c)
}

func (h *Handler) back(c *fiber.Ctx) error {
	_, flow := h.flowFor(c)

	if err := flow.Back(c.UserContext()); err != nil {
		h.logger.Debug("back: %v", err)
	}

	return h.redirect(c)
}

func (h *Handler) restart(c *fiber.Ctx) error {
	if id := c.Cookies(h.cookieName); id != "" {
		if v, ok := h.visitors.LoadAndDelete(id); ok {
			v.flow.Close()
		}
	}
	c.ClearCookie(h.cookieName)
	return h.redirect(c)
}

func (h *Handler) redirect(c *fiber.Ctx) error {
	return c.Redirect("/", fiber.StatusSeeOther)
}

func (h *Handler) flowFor(c *fiber.Ctx) (string, *loginpage.Flow) {
	now := h.now()

	if id := c.Cookies(h.cookieName); id != "" {
		if v, ok := h.visitors.Load(id); ok {
			v.lastSeen.Store(now)
			return id, v.flow
		}
	}

	id := uuid.NewString()
	v := &visitor{flow: h.newFlow()}
	v.lastSeen.Store(now)
	h.visitors.Store(id, v)

	c.Cookie(&fiber.Cookie{
		Name:     h.cookieName,
		Value:    id,
		Path:     "/",
		HTTPOnly: true,
		SameSite: fiber.CookieSameSiteLaxMode,
	})

	h.logger.Debug("new visitor %s", id)
	return id, v.flow
}

func (h *Handler) render(c *fiber.Ctx, view, visitorID string, flow *loginpage.Flow, data map[string]any) error {
	token, err := h.csrf.issue(visitorID)
	if err != nil {
		return fmt.Errorf("unable to issue csrf token: %w", err)
	}

	data["csrf_token"] = token
	data["title"] = "Log in"
	data["step"] = string(flow.Step())
	data["toasts"] = flow.Notifier().Toasts()

	if h.debug {
		h.logger.Debug("render %s:\n%s", view, print.MaybePrettyJSON(data))
	}

	return c.Render(view, data, ViewLayout)
}

func loginData(flow *loginpage.Flow) map[string]any {
	form := flow.LoginForm()
	if form == nil {
		return map[string]any{}
	}

	view := form.Snapshot()
	return map[string]any{
		"email":          view.Email,
		"email_error":    view.Errors.Get(loginpage.FieldEmail),
		"password_error": view.Errors.Get(loginpage.FieldPassword),
		"server_error":   view.ServerError,
		"offline":        view.Offline,
		"can_submit":     view.CanSubmit,
	}
}

func twoFactorData(flow *loginpage.Flow) map[string]any {
	form := flow.TwoFactorForm()
	if form == nil {
		return map[string]any{}
	}

	view := form.Snapshot()
	return map[string]any{
		"code":              view.Code[:],
		"seconds_left":      view.SecondsLeft,
		"expired":           view.Expired,
		"invalid":           view.Invalid,
		"can_submit":        view.CanSubmit,
		"show_request_code": view.ShowRequestCode,
		"server_error":      view.Error,
	}
}

type atomicTime struct {
	nanos atomic.Int64
}

func (t *atomicTime) Store(v time.Time) {
	t.nanos.Store(v.UnixNano())
}

func (t *atomicTime) Load() time.Time {
	return time.Unix(0, t.nanos.Load())
}
