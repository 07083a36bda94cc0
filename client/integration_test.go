package client_test

import (
	"context"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/jrsteele09/go-session-server/auth"
	"github.com/jrsteele09/go-session-server/client"
	"github.com/jrsteele09/go-session-server/internal/config"
	"github.com/jrsteele09/go-session-server/server"
	"github.com/jrsteele09/go-session-server/sessions"
	"github.com/jrsteele09/go-session-server/token"
	"github.com/jrsteele09/go-session-server/users"
	fakeuserrepo "github.com/jrsteele09/go-session-server/users/repofake"
)

const (
	accessSecretStr  = "access-secret-1234"
	refreshSecretStr = "refresh-secret-5678"
	testUserEmail    = "jane.doe@example.com"
	testUserPassword = "Password123"
)

type testConfig struct {
	config.EnvVars
}

func (testConfig) GetAccessTokenSecret() string { return accessSecretStr }

func (testConfig) GetRefreshTokenSecret() string { return refreshSecretStr }

func (testConfig) GetAccessTokenExpiry() time.Duration { return 15 * time.Minute }

func (testConfig) GetRefreshTokenExpiry() time.Duration { return 7 * 24 * time.Hour }

func TestClientAgainstRealServer(t *testing.T) {
	srv, err := server.New(testConfig{}, auth.Repos{
		Users:    fakeuserrepo.NewFakeUserRepo(),
		Sessions: sessions.NewInMemoryRepo(),
	})
	require.NoError(t, err)

	ts := httptest.NewServer(srv)
	t.Cleanup(ts.Close)

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)

	c, err := client.New(ts.URL, client.WithHTTPClient(&http.Client{Jar: jar, Timeout: 10 * time.Second}))
	require.NoError(t, err)

	ctx := context.Background()

	user, err := c.Signup(ctx, "Jane Doe", testUserEmail, testUserPassword)
	require.NoError(t, err)
	require.Equal(t, testUserEmail, user.Email)

	profile, err := c.Profile(ctx)
	require.NoError(t, err)
	require.Equal(t, user.ID, profile.ID)

	// Poison the jar with an expired access token. The next profile call
	// is rejected, transparently renewed through the still-valid refresh
	// cookie, and replayed.
	past := time.Now().Add(-time.Hour)
	pastCodec, err := token.NewCodec(accessSecretStr, token.WithNowFunc(func() time.Time { return past }))
	require.NoError(t, err)
	expired, err := pastCodec.Issue(user.ID, users.RoleCustomer, 15*time.Minute)
	require.NoError(t, err)

	u, err := url.Parse(ts.URL)
	require.NoError(t, err)
	jar.SetCookies(u, []*http.Cookie{{Name: "accessToken", Value: expired, Path: "/"}})

	profile, err = c.Profile(ctx)
	require.NoError(t, err)
	require.Equal(t, user.ID, profile.ID)
	require.False(t, c.LoggedOut())

	// Logout clears the cookies and the local state; further calls fail
	// fast without hitting the renewal endpoint.
	c.Logout(ctx)
	require.True(t, c.LoggedOut())

	_, err = c.Profile(ctx)
	require.ErrorIs(t, err, client.ErrLoggedOut)

	// A fresh login resets the client.
	user, err = c.Login(ctx, testUserEmail, testUserPassword)
	require.NoError(t, err)

	profile, err = c.Profile(ctx)
	require.NoError(t, err)
	require.Equal(t, user.ID, profile.ID)
}
