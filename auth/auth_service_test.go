package auth_test

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"

	"github.com/jrsteele09/go-session-server/auth"
	"github.com/jrsteele09/go-session-server/sessions"
	"github.com/jrsteele09/go-session-server/token"
	"github.com/jrsteele09/go-session-server/users"
	fakeuserrepo "github.com/jrsteele09/go-session-server/users/repofake"
)

const (
	accessSecretStr  = "access-secret-1234"
	refreshSecretStr = "refresh-secret-5678"
	testUserName     = "John Doe"
	testUserEmail    = "john.doe@example.com"
	testUserPassword = "Password123"
)

// testFixture holds all test dependencies
type testFixture struct {
	userRepo     *fakeuserrepo.FakeUserRepo
	sessionRepo  *countingSessionRepo
	accessCodec  *token.Codec
	refreshCodec *token.Codec
	service      *auth.Service
}

// countingSessionRepo wraps a Repo and counts Get calls, so tests can
// assert that expired tokens are rejected before any store lookup.
type countingSessionRepo struct {
	sessions.Repo
	gets int
}

func (r *countingSessionRepo) Get(ctx context.Context, principalID string) (string, error) {
	r.gets++
	return r.Repo.Get(ctx, principalID)
}

// failingSessionRepo simulates a backing store outage.
type failingSessionRepo struct{}

func (failingSessionRepo) Put(ctx context.Context, principalID, renewalToken string, ttl time.Duration) error {
	return errors.New("connection refused")
}

func (failingSessionRepo) Get(ctx context.Context, principalID string) (string, error) {
	return "", errors.New("connection refused")
}

func (failingSessionRepo) Delete(ctx context.Context, principalID string) error {
	return errors.New("connection refused")
}

// setupTestFixture creates a new test fixture with all dependencies
func setupTestFixture(t *testing.T, options ...auth.ServiceOption) *testFixture {
	t.Helper()

	ur := fakeuserrepo.NewFakeUserRepo()
	sr := &countingSessionRepo{Repo: sessions.NewInMemoryRepo()}

	accessCodec, err := token.NewCodec(accessSecretStr)
	require.NoError(t, err)
	refreshCodec, err := token.NewCodec(refreshSecretStr)
	require.NoError(t, err)

	service, err := auth.NewService(auth.Repos{Users: ur, Sessions: sr}, accessCodec, refreshCodec, options...)
	require.NoError(t, err)

	return &testFixture{
		userRepo:     ur,
		sessionRepo:  sr,
		accessCodec:  accessCodec,
		refreshCodec: refreshCodec,
		service:      service,
	}
}

// signupTestUser registers the standard test user
func (f *testFixture) signupTestUser(t *testing.T) (*users.User, *auth.Credentials) {
	t.Helper()

	user, creds, err := f.service.Signup(context.Background(), testUserName, testUserEmail, testUserPassword)
	require.NoError(t, err)
	require.NotNil(t, user)
	require.NotNil(t, creds)
	return user, creds
}

func TestSignupIssuesWorkingCredentialPair(t *testing.T) {
	f := setupTestFixture(t)
	ctx := context.Background()

	user, creds := f.signupTestUser(t)
	require.Equal(t, users.RoleCustomer, user.Role)
	require.NotEmpty(t, user.ID)

	// The access token authorizes immediately.
	authorized, err := f.service.Authorize(ctx, creds.AccessToken)
	require.NoError(t, err)
	require.Equal(t, user.ID, authorized.ID)

	// The refresh token just issued exchanges for a fresh access token.
	accessToken, err := f.service.Refresh(ctx, creds.RefreshToken)
	require.NoError(t, err)

	authorized, err = f.service.Authorize(ctx, accessToken)
	require.NoError(t, err)
	require.Equal(t, user.ID, authorized.ID)
}

func TestSignupDuplicateEmail(t *testing.T) {
	f := setupTestFixture(t)
	f.signupTestUser(t)

	_, _, err := f.service.Signup(context.Background(), "Other Name", testUserEmail, testUserPassword)
	require.ErrorIs(t, err, auth.AlreadyExistsErr)
}

func TestSignupWeakPassword(t *testing.T) {
	f := setupTestFixture(t)

	_, _, err := f.service.Signup(context.Background(), testUserName, testUserEmail, "weak")
	require.ErrorIs(t, err, auth.InvalidCredentialsErr)
}

func TestLoginBadCredentials(t *testing.T) {
	f := setupTestFixture(t)
	f.signupTestUser(t)
	ctx := context.Background()

	_, _, err := f.service.Login(ctx, testUserEmail, "WrongPassword1")
	require.ErrorIs(t, err, auth.InvalidCredentialsErr)

	_, _, err = f.service.Login(ctx, "unknown@example.com", testUserPassword)
	require.ErrorIs(t, err, auth.InvalidCredentialsErr)
}

func TestSecondLoginSupersedesFirstRefreshToken(t *testing.T) {
	f := setupTestFixture(t)
	ctx := context.Background()

	user, _ := f.signupTestUser(t)

	// First device logs in, store holds its refresh token.
	_, firstDevice, err := f.service.Login(ctx, testUserEmail, testUserPassword)
	require.NoError(t, err)

	// Second device logs in, superseding the first device's token.
	_, secondDevice, err := f.service.Login(ctx, testUserEmail, testUserPassword)
	require.NoError(t, err)
	require.NotEqual(t, firstDevice.RefreshToken, secondDevice.RefreshToken)

	// The first device's refresh token verifies but no longer matches the
	// stored value, so its next refresh attempt is rejected.
	_, err = f.service.Refresh(ctx, firstDevice.RefreshToken)
	require.ErrorIs(t, err, auth.UnauthenticatedErr)

	// The second device keeps working, and the stored value is unchanged.
	_, err = f.service.Refresh(ctx, secondDevice.RefreshToken)
	require.NoError(t, err)

	stored, err := f.sessionRepo.Get(ctx, user.ID)
	require.NoError(t, err)
	require.Equal(t, secondDevice.RefreshToken, stored)
}

func TestRefreshExpiredTokenSkipsStoreLookup(t *testing.T) {
	f := setupTestFixture(t)

	// A refresh token issued eight days ago is past its seven day window.
	past := time.Now().Add(-8 * 24 * time.Hour)
	pastCodec, err := token.NewCodec(refreshSecretStr, token.WithNowFunc(func() time.Time { return past }))
	require.NoError(t, err)

	expired, err := pastCodec.Issue("user-1", users.RoleCustomer, 7*24*time.Hour)
	require.NoError(t, err)

	before := f.sessionRepo.gets
	_, err = f.service.Refresh(context.Background(), expired)
	require.ErrorIs(t, err, token.ErrExpired)
	require.Equal(t, before, f.sessionRepo.gets, "expired token must be rejected before any store lookup")
}

func TestRefreshRejectsForgedToken(t *testing.T) {
	f := setupTestFixture(t)
	ctx := context.Background()

	user, _ := f.signupTestUser(t)

	// An access token presented at the refresh endpoint is signed with the
	// wrong class secret.
	accessToken, err := f.accessCodec.Issue(user.ID, users.RoleCustomer, time.Minute)
	require.NoError(t, err)

	_, err = f.service.Refresh(ctx, accessToken)
	require.ErrorIs(t, err, token.ErrSignatureInvalid)

	_, err = f.service.Refresh(ctx, "garbage")
	require.ErrorIs(t, err, token.ErrMalformed)
}

func TestRefreshDoesNotRotateRefreshToken(t *testing.T) {
	f := setupTestFixture(t)
	ctx := context.Background()

	user, creds := f.signupTestUser(t)

	// Refresh twice; the same refresh token stays authoritative throughout.
	_, err := f.service.Refresh(ctx, creds.RefreshToken)
	require.NoError(t, err)
	_, err = f.service.Refresh(ctx, creds.RefreshToken)
	require.NoError(t, err)

	stored, err := f.sessionRepo.Get(ctx, user.ID)
	require.NoError(t, err)
	require.Equal(t, creds.RefreshToken, stored)
}

func TestLogoutInvalidatesRefreshToken(t *testing.T) {
	f := setupTestFixture(t)
	ctx := context.Background()

	_, creds := f.signupTestUser(t)

	f.service.Logout(ctx, creds.RefreshToken)

	_, err := f.service.Refresh(ctx, creds.RefreshToken)
	require.ErrorIs(t, err, auth.UnauthenticatedErr)

	// Logout is idempotent and tolerates garbage.
	f.service.Logout(ctx, creds.RefreshToken)
	f.service.Logout(ctx, "garbage")
	f.service.Logout(ctx, "")
}

func TestAuthorizeExpiredAccessToken(t *testing.T) {
	f := setupTestFixture(t)

	past := time.Now().Add(-time.Hour)
	pastCodec, err := token.NewCodec(accessSecretStr, token.WithNowFunc(func() time.Time { return past }))
	require.NoError(t, err)

	expired, err := pastCodec.Issue("user-1", users.RoleCustomer, 15*time.Minute)
	require.NoError(t, err)

	_, err = f.service.Authorize(context.Background(), expired)
	require.ErrorIs(t, err, token.ErrExpired)
}

func TestAuthorizePrincipalDeletedAfterIssuance(t *testing.T) {
	f := setupTestFixture(t)
	ctx := context.Background()

	user, creds := f.signupTestUser(t)

	f.userRepo.Delete(user.ID)

	_, err := f.service.Authorize(ctx, creds.AccessToken)
	require.ErrorIs(t, err, auth.PrincipalNotFoundErr)
}

func TestStoreOutageIsNotUnauthenticated(t *testing.T) {
	ur := fakeuserrepo.NewFakeUserRepo()

	accessCodec, err := token.NewCodec(accessSecretStr)
	require.NoError(t, err)
	refreshCodec, err := token.NewCodec(refreshSecretStr)
	require.NoError(t, err)

	service, err := auth.NewService(auth.Repos{Users: ur, Sessions: failingSessionRepo{}}, accessCodec, refreshCodec)
	require.NoError(t, err)

	ctx := context.Background()

	_, _, err = service.Signup(ctx, testUserName, testUserEmail, testUserPassword)
	require.ErrorIs(t, err, auth.StoreUnavailableErr)
	require.NotErrorIs(t, err, auth.UnauthenticatedErr)

	// A verifiable refresh token against a down store is a 5xx class
	// failure, not a logout.
	refreshToken, err := refreshCodec.Issue("user-1", users.RoleCustomer, 7*24*time.Hour)
	require.NoError(t, err)

	_, err = service.Refresh(ctx, refreshToken)
	require.ErrorIs(t, err, auth.StoreUnavailableErr)
	require.NotErrorIs(t, err, auth.UnauthenticatedErr)
}
