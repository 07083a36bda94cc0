package token

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/jrsteele09/go-session-server/users"
	"github.com/pkg/errors"
)

// Claims is the verified payload of a credential.
type Claims struct {
	PrincipalID string
	Role        users.Role
	IssuedAt    time.Time
	ExpiresAt   time.Time
}

// Codec signs and verifies one class of credential (access or renewal).
// Each class gets its own symmetric secret so a leaked secret cannot be
// used to forge credentials of the other class. Verification is pure:
// it never touches any store.
type Codec struct {
	secret  []byte
	nowFunc func() time.Time
}

// CodecOption defines a function type to modify a Codec instance.
type CodecOption func(*Codec)

// WithNowFunc sets the now time function (primarily for testing)
func WithNowFunc(now func() time.Time) CodecOption {
	return func(c *Codec) {
		c.nowFunc = now
	}
}

// NewCodec creates a codec for a single credential class.
func NewCodec(secret string, options ...CodecOption) (*Codec, error) {
	if secret == "" {
		return nil, errors.New("[NewCodec] secret is required")
	}

	c := &Codec{
		secret:  []byte(secret),
		nowFunc: time.Now,
	}

	for _, opt := range options {
		opt(c)
	}

	return c, nil
}

// Issue creates a signed, self-contained credential for the principal,
// valid for the given lifetime.
func (c *Codec) Issue(principalID string, role users.Role, lifetime time.Duration) (string, error) {
	if principalID == "" {
		return "", errors.New("[Codec.Issue] principalID is required")
	}

	now := c.nowFunc()
	claims := jwt.MapClaims{
		"sub":  principalID,
		"role": string(role),
		"iat":  now.Unix(),
		"exp":  now.Add(lifetime).Unix(),
		"jti":  uuid.New().String(),
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.secret)
	if err != nil {
		return "", errors.Wrap(err, "[Codec.Issue] failed to sign token")
	}
	return signed, nil
}

// Verify parses and validates a credential issued by this codec. Rejections
// carry one of ErrMalformed, ErrSignatureInvalid or ErrExpired in their
// chain so callers can branch on the reason.
func (c *Codec) Verify(raw string) (*Claims, error) {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(c.nowFunc),
		jwt.WithExpirationRequired(),
	)

	parsed, err := parser.Parse(raw, func(t *jwt.Token) (any, error) {
		return c.secret, nil
	})
	if err != nil {
		return nil, rejection(err)
	}

	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return nil, errors.Wrap(ErrMalformed, "unexpected claims type")
	}

	sub, _ := claims["sub"].(string)
	if sub == "" {
		return nil, errors.Wrap(ErrMalformed, "missing sub claim")
	}
	role, _ := claims["role"].(string)
	iat, _ := claims["iat"].(float64)
	exp, _ := claims["exp"].(float64)

	return &Claims{
		PrincipalID: sub,
		Role:        users.Role(role),
		IssuedAt:    time.Unix(int64(iat), 0),
		ExpiresAt:   time.Unix(int64(exp), 0),
	}, nil
}

// rejection maps jwt parser errors onto the codec's error taxonomy.
func rejection(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return errors.Wrap(ErrExpired, err.Error())
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return errors.Wrap(ErrSignatureInvalid, err.Error())
	default:
		return errors.Wrap(ErrMalformed, err.Error())
	}
}
