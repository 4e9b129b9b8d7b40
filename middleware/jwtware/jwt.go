package jwtware

import (
	"errors"
	"strings"
	"time"

	"github.com/goliatone/go-router"
)

var (
	defaultTokenLookup = "header:" + router.HeaderAuthorization

	// ErrJWTMissingOrMalformed is returned when no bearer credential can be
	// extracted from the request.
	ErrJWTMissingOrMalformed = errors.New("missing or malformed JWT")
)

// AuthClaims mirrors the claim surface of the auth package without creating
// an import cycle.
type AuthClaims interface {
	Subject() string
	UserEmail() string
	Expires() time.Time
	IssuedAt() time.Time
}

// TokenValidator validates a raw token and returns its claims. The auth
// package's token service satisfies it through auth.ValidatorFor.
type TokenValidator interface {
	Validate(tokenString string) (AuthClaims, error)
}

// Config drives the bearer extraction guard.
type Config struct {
	// Filter skips the guard for matching requests.
	Filter func(router.Context) bool
	// SuccessHandler runs after the token validated; defaults to ctx.Next.
	SuccessHandler router.HandlerFunc
	// ErrorHandler maps extraction/validation failures to a response.
	ErrorHandler router.ErrorHandler
	// ContextKey is where validated claims are stored on the request.
	ContextKey string
	// TokenLookup is a comma-separated list of sources, e.g.
	// "header:Authorization,param:token".
	TokenLookup string
	// AuthScheme is the expected Authorization scheme, matched
	// case-insensitively. Defaults to Bearer.
	AuthScheme string
	// TokenValidator is required; it performs the liveness check.
	TokenValidator TokenValidator
}

// New returns a middleware that extracts a bearer token, validates it, and
// stores the claims under ContextKey. It rejects requests with a missing
// header, a non-bearer scheme, an empty credential, or a dead token.
func New(config ...Config) router.MiddlewareFunc {
	return func(hf router.HandlerFunc) router.HandlerFunc {
		cfg := getDefaultConfig(config...)
		return func(ctx router.Context) error {
			if cfg.Filter != nil && cfg.Filter(ctx) {
				return ctx.Next()
			}

			raw, err := ExtractRawToken(ctx, cfg.getExtractors())
			if err != nil {
				return cfg.ErrorHandler(ctx, err)
			}

			claims, err := cfg.TokenValidator.Validate(raw)
			if err != nil {
				return cfg.ErrorHandler(ctx, err)
			}

			ctx.Locals(cfg.ContextKey, claims)

			return cfg.SuccessHandler(ctx)
		}
	}
}

// ExtractRawToken runs the extractors in order until one yields a token.
func ExtractRawToken(ctx router.Context, extractors []TokenExtractor) (string, error) {
	var raw string
	var err error

	for _, extractor := range extractors {
		raw, err = extractor(ctx)
		if raw != "" && err == nil {
			break
		}
	}

	return raw, err
}

func getDefaultConfig(config ...Config) (cfg Config) {
	if len(config) > 0 {
		cfg = config[0]
	}

	if cfg.SuccessHandler == nil {
		cfg.SuccessHandler = func(ctx router.Context) error {
			return ctx.Next()
		}
	}

	if cfg.ErrorHandler == nil {
		cfg.ErrorHandler = func(c router.Context, err error) error {
			if errors.Is(err, ErrJWTMissingOrMalformed) {
				return c.Status(router.StatusBadRequest).SendString(ErrJWTMissingOrMalformed.Error())
			}
			return c.Status(router.StatusUnauthorized).SendString("Invalid or expired token")
		}
	}

	if cfg.TokenValidator == nil {
		panic("AUTH: JWT middleware configuration: TokenValidator is required.")
	}

	if cfg.ContextKey == "" {
		cfg.ContextKey = "user"
	}

	if cfg.TokenLookup == "" {
		cfg.TokenLookup = defaultTokenLookup
	}

	if cfg.AuthScheme == "" {
		cfg.AuthScheme = "Bearer"
	}

	return cfg
}

func (cfg *Config) getExtractors() []TokenExtractor {
	return GetExtractors(cfg.TokenLookup, cfg.AuthScheme)
}

// TokenExtractor pulls a raw token out of a request context.
type TokenExtractor func(c router.Context) (string, error)

// GetExtractors parses a token lookup string into extractor functions.
func GetExtractors(tokenLookup string, authSchemes ...string) []TokenExtractor {
	extractors := make([]TokenExtractor, 0)

	authScheme := "Bearer"
	if len(authSchemes) > 0 {
		authScheme = authSchemes[0]
	}

	// header:Authorization,cookie:jwt,query:auth_token,param:token
	rootParts := strings.Split(tokenLookup, ",")
	for _, rootPart := range rootParts {
		parts := strings.Split(strings.TrimSpace(rootPart), ":")
		if len(parts) < 2 {
			continue
		}

		for i, el := range parts {
			parts[i] = strings.TrimSpace(el)
		}

		switch parts[0] {
		case "header":
			extractors = append(extractors, tokenFromHeader(parts[1], authScheme))
		case "query":
			extractors = append(extractors, tokenFromQuery(parts[1]))
		case "param":
			extractors = append(extractors, tokenFromParam(parts[1]))
		case "cookie":
			extractors = append(extractors, tokenFromCookie(parts[1]))
		}
	}

	return extractors
}

// tokenFromHeaderValue does the syntactic work of the bearer scheme check:
// case-insensitive scheme match, a whitespace separator, then a non-empty
// credential. Without the separator requirement "Bearerxyz" would pass as
// scheme "Bearer" with credential "xyz".
func tokenFromHeaderValue(value, authScheme string) (string, error) {
	authScheme = strings.TrimSpace(authScheme)
	if authScheme == "" {
		return "", ErrJWTMissingOrMalformed
	}

	l := len(authScheme)
	if len(value) <= l+1 || !strings.EqualFold(value[:l], authScheme) {
		return "", ErrJWTMissingOrMalformed
	}

	if value[l] != ' ' && value[l] != '\t' {
		return "", ErrJWTMissingOrMalformed
	}

	token := strings.TrimSpace(value[l:])
	if token == "" {
		return "", ErrJWTMissingOrMalformed
	}

	return token, nil
}

// tokenFromHeader returns a function that extracts the token from the request header.
func tokenFromHeader(header string, authScheme string) TokenExtractor {
	return func(c router.Context) (string, error) {
		return tokenFromHeaderValue(c.GetString(header, ""), authScheme)
	}
}

// tokenFromQuery returns a function that extracts the token from the query string.
func tokenFromQuery(param string) TokenExtractor {
	return func(c router.Context) (string, error) {
		token := c.Query(param, "")
		if token == "" {
			return "", ErrJWTMissingOrMalformed
		}
		return token, nil
	}
}

// tokenFromParam returns a function that extracts the token from a url path segment.
func tokenFromParam(param string) TokenExtractor {
	return func(c router.Context) (string, error) {
		token := c.Param(param)
		if token == "" {
			return "", ErrJWTMissingOrMalformed
		}
		return token, nil
	}
}

// tokenFromCookie returns a function that extracts the token from the named cookie.
func tokenFromCookie(name string) TokenExtractor {
	return func(c router.Context) (string, error) {
		token := c.Cookies(name)
		if token == "" {
			return "", ErrJWTMissingOrMalformed
		}
		return token, nil
	}
}
