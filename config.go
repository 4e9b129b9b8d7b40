package auth

import (
	"errors"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
)

// Config carries the process-wide, read-only auth settings. It is passed
// explicitly into each component at construction; nothing in this package
// reads global state.
type Config struct {
	// SigningKey signs access and activation tokens.
	SigningKey string
	// RefreshSigningKey signs refresh tokens. Must differ from SigningKey so
	// a refresh token cannot be replayed as an access token.
	RefreshSigningKey string
	// Issuer is stamped into every token and enforced on decode when set.
	Issuer string

	AccessTokenTTL        time.Duration
	RefreshTokenTTL       time.Duration
	ActivationTokenTTL    time.Duration
	PasswordResetTokenTTL time.Duration

	// BaseURL plus APIPrefix anchor the activation URL embedded in
	// invitation emails.
	BaseURL   string
	APIPrefix string

	// AuthScheme and ContextKey feed the bearer guard middleware.
	AuthScheme string
	ContextKey string
}

// Defaults mirrored from the deployed service configuration.
const (
	DefaultAccessTokenTTL     = 15 * time.Minute
	DefaultRefreshTokenTTL    = 7 * 24 * time.Hour
	DefaultActivationTokenTTL = 7 * 24 * time.Hour
	DefaultPasswordResetTTL   = 24 * time.Hour
	DefaultAPIPrefix          = "/api"
	DefaultAuthScheme         = "Bearer"
	DefaultContextKey         = "user"
)

// WithDefaults fills zero-valued optional fields.
func (c Config) WithDefaults() Config {
	if c.AccessTokenTTL == 0 {
		c.AccessTokenTTL = DefaultAccessTokenTTL
	}
	if c.RefreshTokenTTL == 0 {
		c.RefreshTokenTTL = DefaultRefreshTokenTTL
	}
	if c.ActivationTokenTTL == 0 {
		c.ActivationTokenTTL = DefaultActivationTokenTTL
	}
	if c.PasswordResetTokenTTL == 0 {
		c.PasswordResetTokenTTL = DefaultPasswordResetTTL
	}
	if c.APIPrefix == "" {
		c.APIPrefix = DefaultAPIPrefix
	}
	if c.AuthScheme == "" {
		c.AuthScheme = DefaultAuthScheme
	}
	if c.ContextKey == "" {
		c.ContextKey = DefaultContextKey
	}
	return c
}

// Validate will run validation rules
func (c Config) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.SigningKey, validation.Required, validation.Length(16, 0)),
		validation.Field(&c.RefreshSigningKey,
			validation.Required,
			validation.Length(16, 0),
			validation.By(validateDistinctKey(c.SigningKey)),
		),
		validation.Field(&c.BaseURL, validation.Required, is.URL),
	)
}

func validateDistinctKey(other string) validation.RuleFunc {
	return func(value any) error {
		s, _ := value.(string)
		if s != "" && s == other {
			return errors.New("refresh signing key must differ from the access signing key")
		}
		return nil
	}
}
