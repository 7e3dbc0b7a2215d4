package security

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuelReschke/StudyOn/internal/pkg/billing"
	"github.com/ManuelReschke/StudyOn/internal/pkg/billing/billingtest"
)

const refreshPattern = "POST /token/refresh"

func TestLogin(t *testing.T) {
	srv := billingtest.NewServer(t)
	auth := NewAuthenticator(srv.BillingClient(), nil)
	ctx := context.Background()

	id, err := auth.Login(ctx, billingtest.AdminEmail, billingtest.Password)
	require.NoError(t, err)
	assert.Equal(t, billingtest.AdminEmail, id.Email)
	assert.True(t, id.IsAdmin())
	assert.NotEmpty(t, id.APIToken)
	assert.NotEmpty(t, id.RefreshToken)

	_, err = auth.Login(ctx, billingtest.UserEmail, "bad-password")
	require.ErrorIs(t, err, billing.ErrAuthenticationFailed)
	assert.Equal(t, MsgBadCredentials, LoginMessage(err))

	srv.Fail("POST /auth", 503)
	_, err = auth.Login(ctx, billingtest.UserEmail, billingtest.Password)
	require.ErrorIs(t, err, billing.ErrServiceUnavailable)
	assert.Equal(t, MsgServiceUnavailable, LoginMessage(err))
}

func TestRegisterThenLogin(t *testing.T) {
	srv := billingtest.NewServer(t)
	auth := NewAuthenticator(srv.BillingClient(), nil)
	ctx := context.Background()

	registered, err := auth.Register(ctx, "new@studyon.com", "secret123")
	require.NoError(t, err)
	assert.Equal(t, "new@studyon.com", registered.Email)

	id, err := auth.Login(ctx, "new@studyon.com", "secret123")
	require.NoError(t, err)
	assert.Equal(t, registered.Email, id.Email)
	assert.Equal(t, []string{RoleUser}, id.Roles)

	_, err = auth.Register(ctx, "new@studyon.com", "secret123")
	require.Error(t, err)
	assert.Equal(t, MsgUserExists, RegisterMessage(err))
}

func TestResolveValidTokenDoesNotRefresh(t *testing.T) {
	srv := billingtest.NewServer(t)
	auth := NewAuthenticator(srv.BillingClient(), nil)
	tokens := srv.IssueTokens(billingtest.UserEmail, time.Hour)

	id, refreshed, err := auth.Resolve(context.Background(), tokens.Token, tokens.RefreshToken)
	require.NoError(t, err)
	assert.False(t, refreshed)
	assert.Equal(t, tokens.Token, id.APIToken)
	assert.Equal(t, tokens.RefreshToken, id.RefreshToken)
	assert.Zero(t, srv.Calls(refreshPattern))
}

func TestResolveWithinSkewDoesNotRefresh(t *testing.T) {
	srv := billingtest.NewServer(t)
	auth := NewAuthenticator(srv.BillingClient(), nil)
	tokens := srv.IssueTokens(billingtest.UserEmail, -5*time.Second)

	_, refreshed, err := auth.Resolve(context.Background(), tokens.Token, tokens.RefreshToken)
	require.NoError(t, err)
	assert.False(t, refreshed)
	assert.Zero(t, srv.Calls(refreshPattern))
}

func TestResolveRefreshesExpiredToken(t *testing.T) {
	srv := billingtest.NewServer(t)
	auth := NewAuthenticator(srv.BillingClient(), nil)
	tokens := srv.IssueTokens(billingtest.UserEmail, -time.Minute)

	id, refreshed, err := auth.Resolve(context.Background(), tokens.Token, tokens.RefreshToken)
	require.NoError(t, err)
	assert.True(t, refreshed)
	assert.NotEqual(t, tokens.Token, id.APIToken)
	assert.NotEqual(t, tokens.RefreshToken, id.RefreshToken)
	assert.Equal(t, billingtest.UserEmail, id.Email)
	assert.True(t, id.ExpiresAt.After(time.Now()))
	assert.Equal(t, 1, srv.Calls(refreshPattern))
}

func TestResolveUsesClock(t *testing.T) {
	srv := billingtest.NewServer(t)
	tokens := srv.IssueTokens(billingtest.UserEmail, time.Hour)
	later := func() time.Time { return time.Now().Add(2 * time.Hour) }
	auth := NewAuthenticator(srv.BillingClient(), nil, WithClock(later))

	_, refreshed, err := auth.Resolve(context.Background(), tokens.Token, tokens.RefreshToken)
	require.NoError(t, err)
	assert.True(t, refreshed)
}

func TestResolveRefreshFailure(t *testing.T) {
	tests := []struct {
		name    string
		prepare func(srv *billingtest.Server) billing.Tokens
	}{
		{
			name: "billing down",
			prepare: func(srv *billingtest.Server) billing.Tokens {
				srv.Fail(refreshPattern, 500)
				return srv.IssueTokens(billingtest.UserEmail, -time.Minute)
			},
		},
		{
			name: "unknown refresh token",
			prepare: func(srv *billingtest.Server) billing.Tokens {
				return billing.Tokens{Token: srv.IssueToken(billingtest.UserEmail, -time.Minute), RefreshToken: "stale"}
			},
		},
		{
			name: "no refresh token",
			prepare: func(srv *billingtest.Server) billing.Tokens {
				return billing.Tokens{Token: srv.IssueToken(billingtest.UserEmail, -time.Minute)}
			},
		},
		{
			name: "garbage access token",
			prepare: func(*billingtest.Server) billing.Tokens {
				return billing.Tokens{Token: "not-a-token", RefreshToken: "x"}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := billingtest.NewServer(t)
			auth := NewAuthenticator(srv.BillingClient(), nil)
			tokens := tt.prepare(srv)

			id, refreshed, err := auth.Resolve(context.Background(), tokens.Token, tokens.RefreshToken)
			require.Error(t, err)
			assert.Nil(t, id)
			assert.False(t, refreshed)
			assert.Equal(t, billing.KindServiceUnavailable, billing.KindOf(err))
		})
	}
}

// slowRefresher blocks RefreshToken until release is closed.
type slowRefresher struct {
	srv     *billingtest.Server
	calls   atomic.Int32
	entered chan struct{}
	release chan struct{}
	once    sync.Once
}

func (s *slowRefresher) Authenticate(ctx context.Context, creds billing.Credentials) (*billing.Tokens, error) {
	return s.srv.BillingClient().Authenticate(ctx, creds)
}

func (s *slowRefresher) Register(ctx context.Context, creds billing.Credentials) (*billing.Tokens, error) {
	return s.srv.BillingClient().Register(ctx, creds)
}

func (s *slowRefresher) RefreshToken(ctx context.Context, refreshToken string) (*billing.Tokens, error) {
	s.calls.Add(1)
	s.once.Do(func() { close(s.entered) })
	<-s.release
	return s.srv.BillingClient().RefreshToken(ctx, refreshToken)
}

func TestResolveSerializesConcurrentRefreshes(t *testing.T) {
	srv := billingtest.NewServer(t)
	fake := &slowRefresher{srv: srv, entered: make(chan struct{}), release: make(chan struct{})}
	auth := NewAuthenticator(fake, nil)
	tokens := srv.IssueTokens(billingtest.UserEmail, -time.Minute)

	const n = 8
	var wg sync.WaitGroup
	results := make([]*Identity, n)
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], _, errs[i] = auth.Resolve(context.Background(), tokens.Token, tokens.RefreshToken)
		}(i)
	}

	<-fake.entered
	time.Sleep(100 * time.Millisecond)
	close(fake.release)
	wg.Wait()

	assert.Equal(t, int32(1), fake.calls.Load())
	assert.Equal(t, 1, srv.Calls(refreshPattern))
	for i := 0; i < n; i++ {
		require.NoError(t, errs[i])
		assert.Equal(t, results[0].APIToken, results[i].APIToken)
	}
}
