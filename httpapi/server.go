package httpapi

import (
	"context"
	"errors"

	loginpage "github.com/MamBoota/LoginPage"
	"github.com/gofiber/fiber/v2"
	"github.com/goliatone/go-print"
)

// Route paths relative to the prefix
const (
	DefaultPrefix = "/api"
	RouteLogin    = "/login"
	RouteVerify   = "/2fa/verify"
	RouteResend   = "/2fa/resend"
	RouteHealth   = "/health"
)

// ServerOption customizes a Server
type ServerOption func(*Server)

// WithPrefix mounts the routes under prefix
func WithPrefix(prefix string) ServerOption {
	return func(s *Server) {
		s.prefix = prefix
	}
}

// WithDebug enables payload dumps in the logs
func WithDebug(debug bool) ServerOption {
	return func(s *Server) {
		s.debug = debug
	}
}

// WithServerLogger overrides the server logger
func WithServerLogger(logger loginpage.Logger) ServerOption {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithTokenParser exposes RouteSession, guarded by parser
func WithTokenParser(parser TokenParser) ServerOption {
	return func(s *Server) {
		if parser != nil {
			s.tokens = parser
		}
	}
}

// Server exposes an API implementation as JSON routes
type Server struct {
	api    loginpage.API
	tokens TokenParser
	prefix string
	debug  bool
	logger loginpage.Logger
}

// NewServer returns a server backed by api
func NewServer(api loginpage.API, opts ...ServerOption) *Server {
	s := &Server{
		api:    api,
		prefix: DefaultPrefix,
		logger: loginpage.DefaultLogger(),
	}

	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}

	return s
}

// Register mounts the routes on router
func (s *Server) Register(router fiber.Router) {
	group := router.Group(s.prefix)

	group.Get(RouteHealth, s.health)
	group.Post(RouteLogin, s.login)
	group.Post(RouteVerify, s.verify)
	group.Post(RouteResend, s.resend)

	if s.tokens != nil {
		group.Get(RouteSession, RequireSession(SessionConfig{Parser: s.tokens}), s.session)
	}
}

// App returns a fiber app with the routes registered
func (s *Server) App() *fiber.App {
	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
	})
	s.Register(app)
	return app
}

func (s *Server) health(c *fiber.Ctx) error {
	return c.JSON(HealthResponse{Status: "ok"})
}

func (s *Server) login(c *fiber.Ctx) error {
	payload := new(LoginRequest)
	if err := c.BodyParser(payload); err != nil {
		s.logger.Error("login parse payload: %v", err)
		return writeError(c, fiber.StatusBadRequest, MessageInvalidPayload, nil)
	}

	if err := payload.Validate(); err != nil {
		s.logger.Debug("login validate payload: %v", err)
		return writeError(c, fiber.StatusBadRequest, MessageInvalidPayload, fieldErrors(err))
	}

	session, err := s.api.Login(c.UserContext(), payload.Email, payload.Password)
	if err != nil {
		return s.failure(c, "login", err)
	}

	if s.debug {
		s.logger.Debug("login session:\n%s", print.MaybePrettyJSON(session))
	}

	return c.JSON(session)
}

func (s *Server) verify(c *fiber.Ctx) error {
	payload := new(VerifyRequest)
	if err := c.BodyParser(payload); err != nil {
		s.logger.Error("verify parse payload: %v", err)
		return writeError(c, fiber.StatusBadRequest, MessageInvalidPayload, nil)
	}

	if err := payload.Validate(); err != nil {
		s.logger.Debug("verify validate payload: %v", err)
		return writeError(c, fiber.StatusBadRequest, MessageInvalidPayload, fieldErrors(err))
	}

	if err := s.api.VerifyTwoFactor(c.UserContext(), payload.Code); err != nil {
		return s.failure(c, "verify", err)
	}

	return c.JSON(SuccessResponse{Success: true})
}

func (s *Server) resend(c *fiber.Ctx) error {
	if err := s.api.RequestNewCode(c.UserContext()); err != nil {
		return s.failure(c, "resend", err)
	}
	return c.JSON(SuccessResponse{Success: true})
}

func (s *Server) failure(c *fiber.Ctx, op string, err error) error {
	status := statusFor(err)
	s.logger.Error("%s failed (%d): %v", op, status, err)
	return writeError(c, status, loginpage.ErrorMessage(err), nil)
}

func statusFor(err error) int {
	if status := loginpage.StatusCode(err); status > 0 {
		return status
	}

	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return fiber.StatusRequestTimeout
	default:
		return fiber.StatusInternalServerError
	}
}

func writeError(c *fiber.Ctx, status int, message string, fields map[string]string) error {
	return c.Status(status).JSON(ErrorResponse{
		Error:  message,
		Fields: fields,
	})
}
