package auth

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/jrsteele09/go-session-server/sessions"
	"github.com/jrsteele09/go-session-server/token"
	"github.com/jrsteele09/go-session-server/users"
)

const (
	defaultAccessTokenExpiry  = 15 * time.Minute
	defaultRefreshTokenExpiry = 7 * 24 * time.Hour
	defaultStoreTimeout       = 3 * time.Second
)

// Credentials is the pair issued on login: a short-lived access token used
// on every privileged call, and a long-lived refresh token exchanged for
// new access tokens.
type Credentials struct {
	AccessToken  string
	RefreshToken string
}

// Repos holds all repository dependencies for the Service
type Repos struct {
	Users    users.UserRepo // External user directory
	Sessions sessions.Repo  // Per-principal refresh token store
}

// Service issues and rotates credential pairs. The session store is the
// single source of truth for whether a refresh token is still alive:
// exactly one refresh token is authoritative per principal, and each
// login supersedes the previous one.
type Service struct {
	repos              Repos
	accessCodec        *token.Codec     // Signs and verifies access tokens
	refreshCodec       *token.Codec     // Signs and verifies refresh tokens
	accessTokenExpiry  time.Duration
	refreshTokenExpiry time.Duration
	storeTimeout       time.Duration    // Bound on session store I/O
	nowTime            func() time.Time // nowTime function (injectable for testing)
}

// ServiceOption defines a function type to modify the Service instance.
type ServiceOption func(*Service)

// WithNowTime sets the now time function (primarily for testing)
func WithNowTime(nowFunc func() time.Time) ServiceOption {
	return func(s *Service) {
		s.nowTime = nowFunc
	}
}

// WithTokenExpiry overrides the default access and refresh token lifetimes.
func WithTokenExpiry(accessTokenExpiry, refreshTokenExpiry time.Duration) ServiceOption {
	return func(s *Service) {
		s.accessTokenExpiry = accessTokenExpiry
		s.refreshTokenExpiry = refreshTokenExpiry
	}
}

// WithStoreTimeout overrides the bound placed on session store operations.
func WithStoreTimeout(timeout time.Duration) ServiceOption {
	return func(s *Service) {
		s.storeTimeout = timeout
	}
}

// NewService initializes a new Service with required dependencies.
// Optional configuration can be provided via options (e.g., WithNowTime for testing).
func NewService(repos Repos, accessCodec, refreshCodec *token.Codec, options ...ServiceOption) (*Service, error) {
	if repos.Users == nil {
		return nil, errors.New("[NewService] Users repo is required")
	}
	if repos.Sessions == nil {
		return nil, errors.New("[NewService] Sessions repo is required")
	}
	if accessCodec == nil {
		return nil, errors.New("[NewService] accessCodec is required")
	}
	if refreshCodec == nil {
		return nil, errors.New("[NewService] refreshCodec is required")
	}

	service := &Service{
		repos:              repos,
		accessCodec:        accessCodec,
		refreshCodec:       refreshCodec,
		accessTokenExpiry:  defaultAccessTokenExpiry,
		refreshTokenExpiry: defaultRefreshTokenExpiry,
		storeTimeout:       defaultStoreTimeout,
		nowTime:            time.Now,
	}

	for _, opt := range options {
		opt(service)
	}

	return service, nil
}

// AccessTokenExpiry returns the configured access token lifetime.
func (s *Service) AccessTokenExpiry() time.Duration { return s.accessTokenExpiry }

// RefreshTokenExpiry returns the configured refresh token lifetime.
func (s *Service) RefreshTokenExpiry() time.Duration { return s.refreshTokenExpiry }

// Signup registers a new user in the directory and logs them in.
func (s *Service) Signup(ctx context.Context, name, email, password string) (*users.User, *Credentials, error) {
	if err := users.ValidatePasswordStrength(password); err != nil {
		return nil, nil, errors.Wrap(InvalidCredentialsErr, err.Error())
	}

	if _, err := s.repos.Users.GetByEmail(email); err == nil {
		return nil, nil, AlreadyExistsErr
	} else if !errors.Is(err, users.ErrNotFound) {
		return nil, nil, errors.Wrap(err, "[Service.Signup] GetByEmail")
	}

	passwordHash, err := users.HashPassword(password)
	if err != nil {
		return nil, nil, errors.Wrap(err, "[Service.Signup] HashPassword")
	}

	user, err := s.repos.Users.Create(&users.User{
		Name:         name,
		Email:        email,
		PasswordHash: passwordHash,
		Role:         users.RoleCustomer,
		DateJoined:   s.nowTime(),
	})
	if err != nil {
		return nil, nil, errors.Wrap(err, "[Service.Signup] Create")
	}

	creds, err := s.issueCredentials(ctx, user)
	if err != nil {
		return nil, nil, err
	}
	return user, creds, nil
}

// Login checks the credentials and issues a fresh credential pair. Storing
// the new refresh token supersedes any refresh token issued to a previous
// session for this principal, which will stop matching on its next refresh.
func (s *Service) Login(ctx context.Context, email, password string) (*users.User, *Credentials, error) {
	user, err := s.repos.Users.GetByEmail(email)
	if errors.Is(err, users.ErrNotFound) {
		return nil, nil, InvalidCredentialsErr
	}
	if err != nil {
		return nil, nil, errors.Wrap(err, "[Service.Login] GetByEmail")
	}

	if !users.CheckPasswordHash(password, user.PasswordHash) {
		return nil, nil, InvalidCredentialsErr
	}

	creds, err := s.issueCredentials(ctx, user)
	if err != nil {
		return nil, nil, err
	}
	return user, creds, nil
}

// Refresh exchanges a valid refresh token for a new access token. The
// presented token must verify AND be the literal value currently on record
// for its principal; an absent or different stored value means the token
// was superseded by a later login or invalidated by logout. The refresh
// token itself is not rotated here - it stays authoritative until the next
// login or logout.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (string, error) {
	claims, err := s.refreshCodec.Verify(refreshToken)
	if err != nil {
		return "", err
	}

	storeCtx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()

	stored, err := s.repos.Sessions.Get(storeCtx, claims.PrincipalID)
	if errors.Is(err, sessions.ErrNotFound) {
		return "", UnauthenticatedErr
	}
	if err != nil {
		return "", errors.Wrap(StoreUnavailableErr, err.Error())
	}
	if stored != refreshToken {
		return "", UnauthenticatedErr
	}

	accessToken, err := s.accessCodec.Issue(claims.PrincipalID, claims.Role, s.accessTokenExpiry)
	if err != nil {
		return "", errors.Wrap(err, "[Service.Refresh] Issue access token")
	}
	return accessToken, nil
}

// Logout invalidates the principal's stored refresh token. It is
// best-effort and idempotent: an absent or unverifiable token and store
// failures are all swallowed, since the client-visible contract of logout
// is "you are now logged out regardless".
func (s *Service) Logout(ctx context.Context, refreshToken string) {
	claims, err := s.refreshCodec.Verify(refreshToken)
	if err != nil {
		return
	}

	storeCtx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()

	_ = s.repos.Sessions.Delete(storeCtx, claims.PrincipalID)
}

// Authorize verifies an access token and resolves the principal it was
// issued to. Expired tokens are reported with token.ErrExpired in the
// error chain, distinct from other rejections, so calling middleware
// knows a refresh is worth attempting only in that case. A directory miss
// after a valid token means the principal was deleted since issuance.
func (s *Service) Authorize(ctx context.Context, accessToken string) (*users.User, error) {
	claims, err := s.accessCodec.Verify(accessToken)
	if err != nil {
		return nil, err
	}

	user, err := s.repos.Users.GetByID(claims.PrincipalID)
	if errors.Is(err, users.ErrNotFound) {
		return nil, PrincipalNotFoundErr
	}
	if err != nil {
		return nil, errors.Wrap(err, "[Service.Authorize] GetByID")
	}
	return user, nil
}

func (s *Service) issueCredentials(ctx context.Context, user *users.User) (*Credentials, error) {
	accessToken, err := s.accessCodec.Issue(user.ID, user.Role, s.accessTokenExpiry)
	if err != nil {
		return nil, errors.Wrap(err, "[Service.issueCredentials] Issue access token")
	}

	refreshToken, err := s.refreshCodec.Issue(user.ID, user.Role, s.refreshTokenExpiry)
	if err != nil {
		return nil, errors.Wrap(err, "[Service.issueCredentials] Issue refresh token")
	}

	storeCtx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()

	if err := s.repos.Sessions.Put(storeCtx, user.ID, refreshToken, s.refreshTokenExpiry); err != nil {
		return nil, errors.Wrap(StoreUnavailableErr, err.Error())
	}

	return &Credentials{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
	}, nil
}
