// Package tokenx issues and verifies the signed, scoped tokens used for
// authentication. Every token carries a subject (the user's email), issue and
// expiry timestamps, and a scope tag that binds the token to exactly one use
// (API access, refresh, or email confirmation).
package tokenx

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Scope tags. A token minted with one scope is never accepted where another
// is expected, regardless of signature validity.
const (
	ScopeAccess            = "access"
	ScopeRefresh           = "refresh"
	ScopeEmailConfirmation = "email_confirmation"
)

// Default token TTLs. These are overridable via configuration.
const (
	DefaultAccessTTL  = 30 * time.Minute
	DefaultRefreshTTL = 7 * 24 * time.Hour
	DefaultEmailTTL   = 7 * 24 * time.Hour
)

var (
	// ErrInvalidToken covers malformed, tampered and expired tokens alike.
	// Callers must not be able to tell those cases apart.
	ErrInvalidToken = errors.New("tokenx: invalid or expired token")

	// ErrScopeMismatch reports a structurally valid token presented with the
	// wrong scope (e.g. a refresh token used against an access endpoint).
	ErrScopeMismatch = errors.New("tokenx: token scope mismatch")
)

// Claims is the claim set embedded in every token.
type Claims struct {
	jwt.RegisteredClaims

	// Scope restricts what the token may be used for.
	Scope string `json:"scope"`
}

// Codec signs and verifies tokens with a single server-held HMAC secret and a
// single algorithm, both fixed at construction. Verification pins the
// configured algorithm, so a token offering a different "alg" header is
// rejected outright.
type Codec struct {
	secret []byte
	method jwt.SigningMethod
}

// hmacMethods are the algorithms a Codec may be configured with.
var hmacMethods = map[string]jwt.SigningMethod{
	"HS256": jwt.SigningMethodHS256,
	"HS384": jwt.SigningMethodHS384,
	"HS512": jwt.SigningMethodHS512,
}

// NewCodec builds a Codec from the configured algorithm name and secret.
func NewCodec(algorithm, secret string) (*Codec, error) {
	method, ok := hmacMethods[algorithm]
	if !ok {
		return nil, fmt.Errorf("tokenx: unsupported algorithm %q", algorithm)
	}
	if secret == "" {
		return nil, errors.New("tokenx: empty signing secret")
	}
	return &Codec{secret: []byte(secret), method: method}, nil
}

// Issue mints a signed token for subject with the given scope and lifetime.
// The random jti keeps tokens minted within the same second distinct, which
// refresh rotation depends on.
func (c *Codec) Issue(subject, scope string, ttl time.Duration) (string, error) {
	now := time.Now().UTC()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        newJTI(),
		},
		Scope: scope,
	}
	return jwt.NewWithClaims(c.method, claims).SignedString(c.secret)
}

// newJTI returns a URL-safe random identifier for the "jti" claim.
func newJTI() string {
	var b [16]byte
	_, _ = rand.Read(b[:])
	return base64.RawURLEncoding.EncodeToString(b[:])
}

// Decode verifies the token's signature and expiry, then checks the scope
// claim against expectedScope. An empty expectedScope skips the scope check.
//
// Signature, structure and expiry failures all surface as ErrInvalidToken so
// that callers cannot leak why a token was rejected.
func (c *Codec) Decode(token, expectedScope string) (Claims, error) {
	parser := jwt.NewParser(jwt.WithValidMethods([]string{c.method.Alg()}))

	var claims Claims
	parsed, err := parser.ParseWithClaims(token, &claims, func(t *jwt.Token) (any, error) {
		return c.secret, nil
	})
	if err != nil || !parsed.Valid {
		return Claims{}, ErrInvalidToken
	}

	if expectedScope != "" && claims.Scope != expectedScope {
		return Claims{}, ErrScopeMismatch
	}
	return claims, nil
}
