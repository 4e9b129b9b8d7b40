package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// AuthClaims is the read surface the rest of the package (and the bearer
// guard) uses to inspect a decoded token.
type AuthClaims interface {
	Subject() string
	UserEmail() string
	Expires() time.Time
	IssuedAt() time.Time
}

// TokenClaims is the concrete claim set carried by every token this package
// issues: subject id, subject email, expiry, issued-at. Callers never set
// expiry themselves; the token service derives it from configured durations.
type TokenClaims struct {
	jwt.RegisteredClaims
	Email string `json:"email,omitempty"`
}

var _ AuthClaims = (*TokenClaims)(nil)

// Subject returns the subject claim, the user's uuid in string form.
func (c *TokenClaims) Subject() string {
	return c.RegisteredClaims.Subject
}

// UserEmail returns the email claim.
func (c *TokenClaims) UserEmail() string {
	return c.Email
}

// Expires returns the expiration time
func (c *TokenClaims) Expires() time.Time {
	if c.RegisteredClaims.ExpiresAt != nil {
		return c.RegisteredClaims.ExpiresAt.Time
	}
	return time.Time{}
}

// IssuedAt returns the issued at time
func (c *TokenClaims) IssuedAt() time.Time {
	if c.RegisteredClaims.IssuedAt != nil {
		return c.RegisteredClaims.IssuedAt.Time
	}
	return time.Time{}
}
