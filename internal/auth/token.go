package auth

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"

	"github.com/behnamfe76/gatekeeper/internal/domain"
)

var (
	// ErrTokenExpired is returned when the token's expiry is not in the future.
	ErrTokenExpired = errors.New("token expired")
	// ErrInvalidToken is returned for bad signatures and malformed tokens.
	ErrInvalidToken = errors.New("invalid token")
	// ErrVerificationFailed covers every other verification failure.
	ErrVerificationFailed = errors.New("token verification failed")
	// ErrInvalidClaims is returned by Issue for claims Verify would refuse.
	ErrInvalidClaims = errors.New("invalid token claims")
)

// Claims is the identity payload embedded in every token.
type Claims struct {
	SubjectID int64       `json:"userId"`
	Email     string      `json:"email"`
	Role      domain.Role `json:"role"`
}

func (c Claims) valid() bool {
	return c.SubjectID > 0 && c.Email != "" && c.Role.Valid()
}

type tokenClaims struct {
	Claims
	jwt.RegisteredClaims
}

// TokenCodec issues and verifies HS256 bearer tokens. It is safe for
// concurrent use; nothing in it changes after construction.
type TokenCodec struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
	parser *jwt.Parser
}

// CodecOption customizes a TokenCodec.
type CodecOption func(*TokenCodec)

// WithClock replaces the time source used for issuing and verifying.
func WithClock(now func() time.Time) CodecOption {
	return func(tc *TokenCodec) {
		tc.now = now
	}
}

// NewTokenCodec builds a codec for the given secret and token lifetime.
func NewTokenCodec(secret string, ttl time.Duration, opts ...CodecOption) (*TokenCodec, error) {
	if secret == "" {
		return nil, errors.New("token secret must not be empty")
	}
	if ttl <= 0 {
		return nil, fmt.Errorf("token ttl must be positive, got %s", ttl)
	}
	tc := &TokenCodec{secret: []byte(secret), ttl: ttl, now: time.Now}
	for _, opt := range opts {
		opt(tc)
	}
	tc.parser = jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithStrictDecoding(),
		jwt.WithTimeFunc(tc.now),
	)
	return tc, nil
}

// TTL returns the configured token lifetime.
func (tc *TokenCodec) TTL() time.Duration {
	return tc.ttl
}

// Issue signs claims into a token that expires ttl from now.
func (tc *TokenCodec) Issue(claims Claims) (string, time.Time, error) {
	if !claims.valid() {
		return "", time.Time{}, ErrInvalidClaims
	}
	// JWT dates have second precision; truncate so exp-iat is exactly ttl.
	issuedAt := tc.now().Truncate(time.Second)
	expiresAt := issuedAt.Add(tc.ttl)

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, &tokenClaims{
		Claims: claims,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(claims.SubjectID, 10),
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	})
	signed, err := token.SignedString(tc.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return signed, expiresAt, nil
}

// Verify checks the signature and expiry of raw and returns its claims.
// A token stays valid until it expires even if the account behind it is gone.
func (tc *TokenCodec) Verify(raw string) (Claims, error) {
	parsed := &tokenClaims{}
	if _, err := tc.parser.ParseWithClaims(raw, parsed, tc.key); err != nil {
		return Claims{}, classify(err)
	}

	if !parsed.Claims.valid() {
		return Claims{}, ErrInvalidToken
	}
	return parsed.Claims, nil
}

func (tc *TokenCodec) key(*jwt.Token) (interface{}, error) {
	return tc.secret, nil
}

func classify(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return ErrTokenExpired
	case errors.Is(err, jwt.ErrTokenMalformed),
		errors.Is(err, jwt.ErrTokenSignatureInvalid),
		errors.Is(err, jwt.ErrTokenUnverifiable),
		errors.Is(err, jwt.ErrTokenRequiredClaimMissing):
		return ErrInvalidToken
	default:
		return fmt.Errorf("%w: %v", ErrVerificationFailed, err)
	}
}
