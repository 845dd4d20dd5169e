// Package token issues and verifies the two credential kinds: signed JWT
// access tokens and opaque hashed refresh tokens.
package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/iliyamo/auth-service/internal/auth"
)

// AccessClaims is the payload of an access token: the standard registered
// claims (sub = user id, exp, iat) plus the username for display purposes.
type AccessClaims struct {
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// Codec signs and verifies access tokens with a symmetric key. The key and
// algorithm are fixed at construction; there is no ambient global state.
type Codec struct {
	secret []byte
	method jwt.SigningMethod
	ttl    time.Duration
}

// NewCodec builds a codec for the given HMAC algorithm ("HS256", "HS384",
// "HS512"). Other algorithms are rejected because the key is symmetric.
func NewCodec(secret, alg string, ttl time.Duration) (*Codec, error) {
	if secret == "" {
		return nil, errors.New("token: signing secret is required")
	}
	method := jwt.GetSigningMethod(alg)
	if _, ok := method.(*jwt.SigningMethodHMAC); !ok {
		return nil, fmt.Errorf("token: unsupported signing algorithm %q", alg)
	}
	return &Codec{secret: []byte(secret), method: method, ttl: ttl}, nil
}

// TTL returns the configured access-token lifetime.
func (c *Codec) TTL() time.Duration { return c.ttl }

// Issue signs an access token for the user expiring at now+ttl and returns
// the token string together with its expiry instant.
func (c *Codec) Issue(userID, username string, now time.Time) (string, time.Time, error) {
	exp := now.Add(c.ttl)
	claims := AccessClaims{
		Username: username,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	signed, err := jwt.NewWithClaims(c.method, claims).SignedString(c.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, exp, nil
}

// Verify parses and validates a signed access token. It returns
// auth.ErrTokenExpired for a well-formed token past its expiry and
// auth.ErrTokenInvalid for everything else: bad signature, wrong algorithm,
// missing subject, or a missing exp claim (a token without an expiry is
// invalid by construction, not non-expiring).
func (c *Codec) Verify(raw string) (*AccessClaims, error) {
	claims := &AccessClaims{}
	tok, err := jwt.ParseWithClaims(raw, claims,
		func(t *jwt.Token) (interface{}, error) { return c.secret, nil },
		jwt.WithValidMethods([]string{c.method.Alg()}),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, auth.ErrTokenExpired
		}
		return nil, auth.ErrTokenInvalid
	}
	if !tok.Valid || claims.Subject == "" {
		return nil, auth.ErrTokenInvalid
	}
	return claims, nil
}
