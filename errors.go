package auth

import (
	"strings"

	goerrors "github.com/goliatone/go-errors"
	repository "github.com/goliatone/go-repository-bun"
)

// TextCodeTokenExpired marks tokens whose signature verified but whose exp
// claim is in the past.
const TextCodeTokenExpired = "TOKEN_EXPIRED"

// TextCodeWeakPassword marks passwords rejected by the complexity policy.
const TextCodeWeakPassword = "WEAK_PASSWORD"

// ErrInvalidCredentials is returned on any login failure, regardless of
// whether the email or the password was wrong.
var ErrInvalidCredentials = goerrors.New("incorrect email or password", goerrors.CategoryAuth).
	WithTextCode("INVALID_CREDENTIALS").
	WithCode(goerrors.CodeUnauthorized)

// ErrInactiveAccount is returned when credentials verify but the account is
// not in the active status.
var ErrInactiveAccount = goerrors.New("account is not active", goerrors.CategoryAuth).
	WithTextCode("INACTIVE_ACCOUNT").
	WithCode(goerrors.CodeUnauthorized)

// ErrTokenExpired is returned for tokens past their exp claim.
var ErrTokenExpired = goerrors.New("token has expired", goerrors.CategoryAuth).
	WithTextCode(TextCodeTokenExpired).
	WithCode(goerrors.CodeUnauthorized)

// ErrTokenMalformed is returned for tokens that fail signature verification
// or claim parsing. Kept distinct from ErrTokenExpired even where callers
// surface both uniformly.
var ErrTokenMalformed = goerrors.New("token is malformed", goerrors.CategoryAuth).
	WithTextCode("TOKEN_MALFORMED").
	WithCode(goerrors.CodeUnauthorized)

// ErrIdentityNotFound is returned when a referenced account does not exist.
var ErrIdentityNotFound = goerrors.New("identity not found", goerrors.CategoryNotFound).
	WithTextCode("IDENTITY_NOT_FOUND").
	WithCode(goerrors.CodeNotFound)

// ErrInvitationNotFound is returned when activation cannot locate the
// invitation matching the token's email claim.
var ErrInvitationNotFound = goerrors.New("invitation not found", goerrors.CategoryNotFound).
	WithTextCode("INVITATION_NOT_FOUND").
	WithCode(goerrors.CodeNotFound)

// ErrEmailTaken is returned when a create or invite collides with an
// existing email. The store's uniqueness constraint is authoritative; we do
// not pre-check then trust.
var ErrEmailTaken = goerrors.New("email already registered", goerrors.CategoryConflict).
	WithTextCode("EMAIL_TAKEN").
	WithCode(goerrors.CodeConflict)

// ErrNoEmptyString rejects empty password input before hashing.
var ErrNoEmptyString = goerrors.New("value must not be empty", goerrors.CategoryBadInput)

// ErrMismatchedHashAndPassword is the internal bcrypt mismatch marker.
// Callers translate it to ErrInvalidCredentials at the boundary.
var ErrMismatchedHashAndPassword = goerrors.New("password hash mismatch", goerrors.CategoryAuth)

// IsTokenExpiredError will check for expired tokens
func IsTokenExpiredError(err error) bool {
	if err == nil {
		return false
	}
	if goerrors.Is(err, ErrTokenExpired) {
		return true
	}
	return strings.Contains(err.Error(), "token is expired") ||
		strings.Contains(err.Error(), "token has expired")
}

// IsMalformedError will check for error message
func IsMalformedError(err error) bool {
	if err == nil {
		return false
	}
	if goerrors.Is(err, ErrTokenMalformed) {
		return true
	}
	return strings.Contains(err.Error(), "token is malformed") ||
		strings.Contains(err.Error(), "missing or malformed JWT")
}

// IsUniqueViolation detects uniqueness constraint failures. The repository
// layer maps driver errors into rich errors, so the library predicate and
// its DUPLICATE_KEY marker are checked first; the raw driver substrings
// cover errors that bypassed the repository (sqlite in tests, postgres in
// deployments).
func IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}

	if repository.IsConstraintViolation(err) {
		return true
	}

	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) && richErr.TextCode == "DUPLICATE_KEY" {
		return true
	}

	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint failed") ||
		strings.Contains(msg, "duplicate key value violates unique constraint") ||
		strings.Contains(msg, "sqlstate 23505")
}
