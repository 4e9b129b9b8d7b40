package auth

import (
	"unicode"

	goerrors "github.com/goliatone/go-errors"
)

// Password complexity rules, checked in order; validation reports the first
// unmet rule.
const (
	passwordRuleDigit     = "password must contain at least one digit"
	passwordRuleLowercase = "password must contain at least one lowercase letter"
	passwordRuleUppercase = "password must contain at least one uppercase letter"
)

// ValidatePassword enforces the activation password policy. It returns a
// WeakPassword error naming the first violated rule, or nil.
func ValidatePassword(password string) error {
	var hasDigit, hasLower, hasUpper bool
	for _, r := range password {
		switch {
		case unicode.IsDigit(r):
			hasDigit = true
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsUpper(r):
			hasUpper = true
		}
	}

	rule := ""
	switch {
	case !hasDigit:
		rule = passwordRuleDigit
	case !hasLower:
		rule = passwordRuleLowercase
	case !hasUpper:
		rule = passwordRuleUppercase
	default:
		return nil
	}

	return goerrors.New(rule, goerrors.CategoryValidation).
		WithTextCode(TextCodeWeakPassword).
		WithCode(goerrors.CodeBadRequest)
}

// IsWeakPasswordError reports whether err came from the complexity policy.
func IsWeakPasswordError(err error) bool {
	var richErr *goerrors.Error
	if !goerrors.As(err, &richErr) {
		return false
	}
	return richErr.TextCode == TextCodeWeakPassword
}
