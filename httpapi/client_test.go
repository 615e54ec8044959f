package httpapi_test

import (
	"context"
	"errors"
	"net/http"
	"sync/atomic"
	"testing"
	"time"

	loginpage "github.com/MamBoota/LoginPage"
	"github.com/MamBoota/LoginPage/httpapi"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fiberTransport routes client requests into a fiber app without a listener
type fiberTransport struct {
	app      *fiber.App
	failures atomic.Int32
	calls    atomic.Int32
}

func (f *fiberTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	f.calls.Add(1)
	if f.failures.Load() > 0 {
		f.failures.Add(-1)
		return nil, errors.New("connection refused")
	}
	return f.app.Test(req, -1)
}

func newTestClient(t *testing.T, opts ...httpapi.ClientOption) (*httpapi.Client, *fiberTransport) {
	t.Helper()
	app, _ := newTestApp(t)
	transport := &fiberTransport{app: app}

	base := []httpapi.ClientOption{
		httpapi.WithHTTPClient(&http.Client{Transport: transport}),
		httpapi.WithClientLogger(nopLogger{}),
	}
	return httpapi.NewClient("http://loginpage.test/", append(base, opts...)...), transport
}

func TestClientRoundTrip(t *testing.T) {
	client, _ := newTestClient(t)
	ctx := context.Background()

	require.NoError(t, client.Health(ctx))

	session, err := client.Login(ctx, loginpage.DemoEmail, loginpage.DemoPassword)
	require.NoError(t, err)
	assert.Equal(t, loginpage.DemoUserID, session.ID)
	assert.NotEmpty(t, session.Token)

	require.NoError(t, client.VerifyTwoFactor(ctx, loginpage.DemoCode))
	require.NoError(t, client.RequestNewCode(ctx))
}

func TestClientDecodesFailures(t *testing.T) {
	client, _ := newTestClient(t)
	ctx := context.Background()

	_, err := client.Login(ctx, loginpage.DemoEmail, "wrong-one")
	require.Error(t, err)
	assert.Equal(t, loginpage.MessageInvalidCredentials, loginpage.ErrorMessage(err))
	assert.True(t, httpapi.IsUnauthorized(err))

	err = client.VerifyTwoFactor(ctx, "000000")
	assert.Equal(t, loginpage.MessageInvalidCode, loginpage.ErrorMessage(err))

	err = client.VerifyTwoFactor(ctx, "abc")
	require.Error(t, err)
	assert.Equal(t, http.StatusBadRequest, loginpage.StatusCode(err))
	assert.False(t, httpapi.IsUnauthorized(err))
	assert.False(t, loginpage.IsNetworkError(err))
}

func TestClientTransportFailure(t *testing.T) {
	client, transport := newTestClient(t)
	transport.failures.Store(1)

	err := client.RequestNewCode(context.Background())
	require.Error(t, err)
	assert.Equal(t, loginpage.MessageNetworkError, loginpage.ErrorMessage(err))
	assert.True(t, loginpage.IsNetworkError(err))
	assert.Equal(t, int32(1), transport.calls.Load(), "no retries by default")
}

func TestClientRetriesTransportFailures(t *testing.T) {
	client, transport := newTestClient(t, httpapi.WithRetries(2, time.Millisecond))
	transport.failures.Store(2)

	require.NoError(t, client.RequestNewCode(context.Background()))
	assert.Equal(t, int32(3), transport.calls.Load())
}

func TestClientDoesNotRetryRejections(t *testing.T) {
	client, transport := newTestClient(t, httpapi.WithRetries(3, time.Millisecond))

	err := client.VerifyTwoFactor(context.Background(), "000000")
	require.Error(t, err)
	assert.Equal(t, int32(1), transport.calls.Load())
}

func TestClientDrivesFlow(t *testing.T) {
	client, _ := newTestClient(t)

	flow := loginpage.NewFlow(client,
		loginpage.WithFlowLogger(nopLogger{}),
		loginpage.WithFlowTwoFactorOptions(loginpage.WithManualTicks()),
	)
	defer flow.Close()

	form := flow.LoginForm()
	form.SetEmail(loginpage.DemoEmail)
	form.SetPassword(loginpage.DemoPassword)
	require.NoError(t, flow.SubmitLogin(context.Background()))
	require.Equal(t, loginpage.StepTwoFactor, flow.Step())

	flow.TwoFactorForm().Paste(loginpage.DemoCode)
	require.NoError(t, flow.SubmitCode(context.Background()))
	assert.Equal(t, loginpage.StepAuthenticated, flow.Step())
}
