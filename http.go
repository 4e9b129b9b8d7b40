package auth

import (
	"github.com/goliatone/go-router"

	"github.com/learnit/go-auth/middleware/jwtware"
)

// ProtectedRoute returns the bearer-guard middleware wired to this package's
// access token verification. Handlers behind it can recover the claims with
// ClaimsFromContext.
func ProtectedRoute(auther *Auther, cfg Config, errorHandler router.ErrorHandler) router.MiddlewareFunc {
	cfg = cfg.WithDefaults()
	return jwtware.New(jwtware.Config{
		ErrorHandler:   errorHandler,
		ContextKey:     cfg.ContextKey,
		AuthScheme:     cfg.AuthScheme,
		TokenValidator: validatorAdapter{ValidatorFor(auther.AccessTokens())},
	})
}

// ClaimsFromContext recovers the claims the guard stored on the request.
func ClaimsFromContext(c router.Context, contextKey string) (AuthClaims, error) {
	stored := c.Locals(contextKey)
	if stored == nil {
		return nil, ErrTokenMalformed
	}

	claims, ok := stored.(jwtware.AuthClaims)
	if !ok {
		return nil, ErrTokenMalformed
	}

	return claims, nil
}

// validatorAdapter bridges the package-local TokenValidator to the mirror
// interface the middleware declares to avoid an import cycle.
type validatorAdapter struct {
	inner TokenValidator
}

func (v validatorAdapter) Validate(tokenString string) (jwtware.AuthClaims, error) {
	claims, err := v.inner.Validate(tokenString)
	if err != nil {
		return nil, err
	}
	return claims, nil
}
