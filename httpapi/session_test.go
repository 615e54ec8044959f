package httpapi_test

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	loginpage "github.com/MamBoota/LoginPage"
	"github.com/MamBoota/LoginPage/httpapi"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSessionApp(t *testing.T, issuer *loginpage.TokenIssuer) (*fiber.App, *loginpage.MockAPI) {
	t.Helper()
	api := newMock(t, loginpage.WithMockTokenIssuer(issuer))
	server := httpapi.NewServer(api,
		httpapi.WithTokenParser(api.Tokens()),
		httpapi.WithServerLogger(nopLogger{}),
	)
	return server.App(), api
}

func getSession(t *testing.T, app *fiber.App, authorization string) (int, map[string]any) {
	t.Helper()

	req := httptest.NewRequest(http.MethodGet, "/api/session", nil)
	if authorization != "" {
		req.Header.Set(fiber.HeaderAuthorization, authorization)
	}

	res, err := app.Test(req, -1)
	require.NoError(t, err)
	defer res.Body.Close()

	raw, err := io.ReadAll(res.Body)
	require.NoError(t, err)

	out := map[string]any{}
	require.NoError(t, json.Unmarshal(raw, &out))
	return res.StatusCode, out
}

func loginToken(t *testing.T, app *fiber.App) string {
	t.Helper()
	status, body := doJSON(t, app, http.MethodPost, "/api/login",
		`{"email":"test@mail.com","password":"password"}`)
	require.Equal(t, http.StatusOK, status)
	token, _ := body["token"].(string)
	require.NotEmpty(t, token)
	return token
}

func TestSessionRoute(t *testing.T) {
	app, _ := newSessionApp(t, loginpage.NewTokenIssuer([]byte("session-test-key"), time.Minute))
	token := loginToken(t, app)

	status, body := getSession(t, app, "Bearer "+token)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, loginpage.DemoUserID, body["user_id"])
	assert.Equal(t, loginpage.MFAPending, body["mfa"])
	assert.NotEmpty(t, body["expires_at"])

	status, _ = getSession(t, app, "bearer "+token)
	assert.Equal(t, http.StatusOK, status, "scheme is case insensitive")
}

func TestSessionRouteRejections(t *testing.T) {
	app, _ := newSessionApp(t, loginpage.NewTokenIssuer([]byte("session-test-key"), time.Minute))

	status, body := getSession(t, app, "")
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, httpapi.ErrTokenMissingOrMalformed.Error(), body["error"])

	status, _ = getSession(t, app, "Basic dXNlcjpwYXNz")
	assert.Equal(t, http.StatusBadRequest, status)

	status, body = getSession(t, app, "Bearer not-a-jwt")
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "Invalid or expired token", body["error"])

	other := loginpage.NewTokenIssuer([]byte("some-other-key"), time.Minute)
	forged, err := other.Issue(loginpage.DemoUserID)
	require.NoError(t, err)

	status, _ = getSession(t, app, "Bearer "+forged)
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestSessionRouteExpiredToken(t *testing.T) {
	now := time.Now()
	issuer := loginpage.NewTokenIssuer([]byte("session-test-key"), time.Minute,
		loginpage.WithTokenClock(func() time.Time { return now }),
	)
	app, _ := newSessionApp(t, issuer)
	token := loginToken(t, app)

	now = now.Add(2 * time.Minute)

	status, body := getSession(t, app, "Bearer "+token)
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, loginpage.ErrTokenExpired.Message, body["error"])
}

func TestSessionRouteNeedsParser(t *testing.T) {
	app, _ := newTestApp(t)

	req := httptest.NewRequest(http.MethodGet, "/api/session", nil)
	res, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, res.StatusCode)
}

func TestRequireSessionOptions(t *testing.T) {
	issuer := loginpage.NewTokenIssuer([]byte("session-test-key"), time.Minute)

	app := fiber.New(fiber.Config{DisableStartupMessage: true})
	app.Get("/private",
		httpapi.RequireSession(httpapi.SessionConfig{
			Parser: issuer,
			Skip: func(c *fiber.Ctx) bool {
				return c.Query("skip") == "1"
			},
			ErrorHandler: func(c *fiber.Ctx, err error) error {
				return c.Status(fiber.StatusTeapot).SendString(err.Error())
			},
		}),
		func(c *fiber.Ctx) error {
			if claims, ok := httpapi.ClaimsFromContext(c); ok {
				return c.SendString(claims.Subject)
			}
			return c.SendString("anonymous")
		},
	)

	res, err := app.Test(httptest.NewRequest(http.MethodGet, "/private", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusTeapot, res.StatusCode)

	res, err = app.Test(httptest.NewRequest(http.MethodGet, "/private?skip=1", nil), -1)
	require.NoError(t, err)
	raw, _ := io.ReadAll(res.Body)
	assert.Equal(t, "anonymous", string(raw))

	token, err := issuer.Issue("42")
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodGet, "/private", nil)
	req.Header.Set(fiber.HeaderAuthorization, "Bearer "+token)
	res, err = app.Test(req, -1)
	require.NoError(t, err)
	raw, _ = io.ReadAll(res.Body)
	assert.Equal(t, "42", string(raw))

	assert.Panics(t, func() {
		httpapi.RequireSession(httpapi.SessionConfig{})
	})
}
