package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrTokenInvalid covers malformed, mis-signed and otherwise unacceptable tokens.
	ErrTokenInvalid = errors.New("invalid token")
	// ErrTokenExpired is returned for well-formed, correctly signed tokens past their expiry.
	ErrTokenExpired = errors.New("token expired")
)

// TokenClaims is what a verified session token binds.
type TokenClaims struct {
	AccountID string
	ExpiresAt time.Time
}

// TokenIssuer signs and verifies bearer tokens.
type TokenIssuer interface {
	Sign(accountID string, ttl time.Duration) (string, time.Time, error)
	Verify(token string) (TokenClaims, error)
}

type sessionClaims struct {
	jwt.RegisteredClaims
	AccountID string `json:"adminId"`
}

// JWTIssuer issues HS256 JSON web tokens.
type JWTIssuer struct {
	secret []byte
	issuer string
	now    func() time.Time
}

func NewJWTIssuer(secret, issuer string) *JWTIssuer {
	return &JWTIssuer{
		secret: []byte(secret),
		issuer: issuer,
		now:    time.Now,
	}
}

// WithClock returns a copy of the issuer that reads time from now.
func (i *JWTIssuer) WithClock(now func() time.Time) *JWTIssuer {
	cp := *i
	cp.now = now
	return &cp
}

func (i *JWTIssuer) Sign(accountID string, ttl time.Duration) (string, time.Time, error) {
	if strings.TrimSpace(accountID) == "" {
		return "", time.Time{}, errors.New("account id is required")
	}
	issuedAt := i.now()
	expiresAt := issuedAt.Add(ttl)

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, sessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   accountID,
			Issuer:    i.issuer,
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		AccountID: accountID,
	})

	signed, err := token.SignedString(i.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return signed, expiresAt, nil
}

func (i *JWTIssuer) Verify(token string) (TokenClaims, error) {
	claims := &sessionClaims{}
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(i.now),
	}
	if i.issuer != "" {
		opts = append(opts, jwt.WithIssuer(i.issuer))
	}

	parsed, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return i.secret, nil
	}, opts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return TokenClaims{}, ErrTokenExpired
		}
		return TokenClaims{}, ErrTokenInvalid
	}
	if !parsed.Valid || claims.AccountID == "" || claims.AccountID != claims.Subject {
		return TokenClaims{}, ErrTokenInvalid
	}

	return TokenClaims{
		AccountID: claims.AccountID,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}

var _ TokenIssuer = (*JWTIssuer)(nil)
