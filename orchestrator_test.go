package loginpage_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/MamBoota/LoginPage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var demoCreds = loginpage.Credentials{Email: loginpage.DemoEmail, Password: loginpage.DemoPassword}

func TestOrchestratorLoginFailureOnline(t *testing.T) {
	api := &MockAuthAPI{}
	rejection := loginpage.NewAPIError(loginpage.MessageInvalidCredentials)
	api.On("Login", mock.Anything, "a@b.co", "wrong1").Return(loginpage.Session{}, rejection).Once()

	o := loginpage.NewOrchestrator(api, loginpage.WithOrchestratorLogger(nopLogger{}))

	var got error
	_, err := o.Login(context.Background(), loginpage.Credentials{Email: "a@b.co", Password: "wrong1"}, loginpage.Hooks{
		OnSuccess: func() { t.Fatal("unexpected success") },
		OnError:   func(err error) { got = err },
	})

	require.Error(t, err)
	assert.Equal(t, "Invalid email or password", o.ErrorMessage())
	assert.True(t, o.HasError())
	assert.Same(t, rejection, got)
	assert.False(t, o.IsLoading())
	api.AssertExpectations(t)
}

func TestOrchestratorLoginFailureOffline(t *testing.T) {
	api := &MockAuthAPI{}
	rejection := loginpage.NewAPIError(loginpage.MessageInvalidCredentials)
	api.On("Login", mock.Anything, mock.Anything, mock.Anything).Return(loginpage.Session{}, rejection).Once()

	conn := &MockConnectivity{online: false}
	o := loginpage.NewOrchestrator(api,
		loginpage.WithConnectivity(conn),
		loginpage.WithOrchestratorLogger(nopLogger{}),
	)

	var got error
	_, err := o.Login(context.Background(), demoCreds, loginpage.Hooks{
		OnError: func(err error) { got = err },
	})

	require.Error(t, err)
	assert.Equal(t, loginpage.OfflineMessage, o.ErrorMessage())
	assert.Same(t, rejection, got, "hook receives the original failure")
	assert.False(t, o.IsOnline())
}

func TestOrchestratorLoginFailureWithoutMessage(t *testing.T) {
	api := &MockAuthAPI{}
	api.On("Login", mock.Anything, mock.Anything, mock.Anything).Return(loginpage.Session{}, errors.New("")).Once()

	o := loginpage.NewOrchestrator(api, loginpage.WithOrchestratorLogger(nopLogger{}))

	_, err := o.Login(context.Background(), demoCreds, loginpage.Hooks{})
	require.Error(t, err)
	assert.Equal(t, loginpage.DefaultErrorMessage, o.ErrorMessage())
}

func TestOrchestratorLoginSuccessClearsError(t *testing.T) {
	api := &MockAuthAPI{}
	api.On("Login", mock.Anything, mock.Anything, mock.Anything).
		Return(loginpage.Session{}, loginpage.NewAPIError(loginpage.MessageInvalidCredentials)).Once()
	api.On("Login", mock.Anything, mock.Anything, mock.Anything).
		Return(loginpage.Session{ID: loginpage.DemoUserID}, nil).Once()

	o := loginpage.NewOrchestrator(api, loginpage.WithOrchestratorLogger(nopLogger{}))

	_, _ = o.Login(context.Background(), demoCreds, loginpage.Hooks{})
	require.True(t, o.HasError())

	succeeded := false
	session, err := o.Login(context.Background(), demoCreds, loginpage.Hooks{
		OnSuccess: func() { succeeded = true },
	})

	require.NoError(t, err)
	assert.True(t, succeeded)
	assert.Equal(t, loginpage.DemoUserID, session.ID)
	assert.Empty(t, o.ErrorMessage())
	api.AssertExpectations(t)
}

func TestOrchestratorVerifyTwoFactor(t *testing.T) {
	api := &MockAuthAPI{}
	api.On("VerifyTwoFactor", mock.Anything, "000000").Return(loginpage.NewAPIError(loginpage.MessageInvalidCode)).Once()
	api.On("VerifyTwoFactor", mock.Anything, "123456").Return(nil).Once()

	o := loginpage.NewOrchestrator(api, loginpage.WithOrchestratorLogger(nopLogger{}))

	err := o.VerifyTwoFactor(context.Background(), "000000", loginpage.Hooks{})
	require.Error(t, err)
	assert.Equal(t, loginpage.MessageInvalidCode, o.ErrorMessage())

	succeeded := false
	err = o.VerifyTwoFactor(context.Background(), "123456", loginpage.Hooks{OnSuccess: func() { succeeded = true }})
	require.NoError(t, err)
	assert.True(t, succeeded)
	assert.False(t, o.HasError())
	api.AssertExpectations(t)
}

func TestOrchestratorResetErrorIsIdempotent(t *testing.T) {
	api := &MockAuthAPI{}
	api.On("Login", mock.Anything, mock.Anything, mock.Anything).
		Return(loginpage.Session{}, loginpage.NewAPIError(loginpage.MessageInvalidCredentials)).Once()

	o := loginpage.NewOrchestrator(api, loginpage.WithOrchestratorLogger(nopLogger{}))
	_, _ = o.Login(context.Background(), demoCreds, loginpage.Hooks{})

	assert.NotPanics(t, func() {
		o.ResetError()
		assert.Empty(t, o.ErrorMessage())
		o.ResetError()
		assert.Empty(t, o.ErrorMessage())
	})
}

func TestOrchestratorRejectsConcurrentLogin(t *testing.T) {
	api := &MockAuthAPI{}
	release := make(chan struct{})
	started := make(chan struct{})
	api.On("Login", mock.Anything, mock.Anything, mock.Anything).
		Run(func(mock.Arguments) {
			close(started)
			<-release
		}).
		Return(loginpage.Session{ID: loginpage.DemoUserID}, nil).Once()

	o := loginpage.NewOrchestrator(api, loginpage.WithOrchestratorLogger(nopLogger{}))

	done := make(chan error, 1)
	go func() {
		_, err := o.Login(context.Background(), demoCreds, loginpage.Hooks{})
		done <- err
	}()

	<-started
	assert.True(t, o.IsLoading())

	_, err := o.Login(context.Background(), demoCreds, loginpage.Hooks{})
	assert.ErrorIs(t, err, loginpage.ErrCallInFlight)

	close(release)
	require.NoError(t, <-done)
	assert.False(t, o.IsLoading())
	api.AssertExpectations(t)
}

func TestOrchestratorDropsResultsAfterClose(t *testing.T) {
	api := &MockAuthAPI{}
	release := make(chan struct{})
	started := make(chan struct{})
	api.On("VerifyTwoFactor", mock.Anything, "123456").
		Run(func(mock.Arguments) {
			close(started)
			<-release
		}).
		Return(loginpage.NewAPIError(loginpage.MessageInvalidCode)).Once()

	o := loginpage.NewOrchestrator(api, loginpage.WithOrchestratorLogger(nopLogger{}))

	hookCalled := make(chan struct{}, 2)
	done := make(chan error, 1)
	go func() {
		done <- o.VerifyTwoFactor(context.Background(), "123456", loginpage.Hooks{
			OnSuccess: func() { hookCalled <- struct{}{} },
			OnError:   func(error) { hookCalled <- struct{}{} },
		})
	}()

	<-started
	o.Close()
	close(release)

	select {
	case err := <-done:
		assert.ErrorIs(t, err, loginpage.ErrClosed)
	case <-time.After(time.Second):
		t.Fatal("verification did not settle")
	}

	assert.Len(t, hookCalled, 0)
	assert.Empty(t, o.ErrorMessage(), "late failure is not applied")

	_, err := o.Login(context.Background(), demoCreds, loginpage.Hooks{})
	assert.ErrorIs(t, err, loginpage.ErrClosed)
	api.AssertNotCalled(t, "Login", mock.Anything, mock.Anything, mock.Anything)
}

func TestNewOrchestratorRequiresAPI(t *testing.T) {
	assert.Panics(t, func() {
		loginpage.NewOrchestrator(nil)
	})
}

func TestOrchestratorInvalidateDropsInFlightResult(t *testing.T) {
	api := &MockAuthAPI{}
	releaseFirst := make(chan struct{})
	releaseSecond := make(chan struct{})
	started := make(chan string, 2)
	api.On("VerifyTwoFactor", mock.Anything, "111111").
		Run(func(mock.Arguments) {
			started <- "111111"
			<-releaseFirst
		}).
		Return(loginpage.NewAPIError(loginpage.MessageInvalidCode)).Once()
	api.On("VerifyTwoFactor", mock.Anything, "222222").
		Run(func(mock.Arguments) {
			started <- "222222"
			<-releaseSecond
		}).
		Return(nil).Once()

	o := loginpage.NewOrchestrator(api, loginpage.WithOrchestratorLogger(nopLogger{}))

	hookCalled := make(chan struct{}, 2)
	first := make(chan error, 1)
	go func() {
		first <- o.VerifyTwoFactor(context.Background(), "111111", loginpage.Hooks{
			OnSuccess: func() { hookCalled <- struct{}{} },
			OnError:   func(error) { hookCalled <- struct{}{} },
		})
	}()

	require.Equal(t, "111111", <-started)
	require.True(t, o.IsLoading())

	o.Invalidate()
	assert.False(t, o.IsLoading(), "a detached call does not hold the loading flag")

	succeeded := make(chan struct{}, 1)
	second := make(chan error, 1)
	go func() {
		second <- o.VerifyTwoFactor(context.Background(), "222222", loginpage.Hooks{
			OnSuccess: func() { succeeded <- struct{}{} },
		})
	}()
	require.Equal(t, "222222", <-started)

	close(releaseFirst)
	select {
	case err := <-first:
		assert.ErrorIs(t, err, loginpage.ErrCallSuperseded)
	case <-time.After(time.Second):
		t.Fatal("first verification did not settle")
	}

	assert.Len(t, hookCalled, 0)
	assert.Empty(t, o.ErrorMessage(), "superseded failure is not applied")
	assert.True(t, o.IsLoading(), "second call is still pending")

	close(releaseSecond)
	require.NoError(t, <-second)
	assert.Len(t, succeeded, 1)
	assert.False(t, o.IsLoading())
	api.AssertExpectations(t)
}

func TestOrchestratorInvalidateClearsError(t *testing.T) {
	api := &MockAuthAPI{}
	api.On("VerifyTwoFactor", mock.Anything, "000000").Return(loginpage.NewAPIError(loginpage.MessageInvalidCode)).Once()

	o := loginpage.NewOrchestrator(api, loginpage.WithOrchestratorLogger(nopLogger{}))
	require.Error(t, o.VerifyTwoFactor(context.Background(), "000000", loginpage.Hooks{}))
	require.True(t, o.HasError())

	o.Invalidate()
	assert.False(t, o.HasError())
	assert.False(t, o.IsLoading())

	assert.NotPanics(t, o.Invalidate)
	api.AssertExpectations(t)
}
