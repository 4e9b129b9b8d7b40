package auth

import (
	"context"
	"fmt"
)

// Logger is the minimal logging surface every component accepts.
type Logger interface {
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Warn(format string, args ...any)
	Error(format string, args ...any)
}

// Identity holds the attributes of an authenticated account.
type Identity interface {
	ID() string
	Email() string
	Role() string
	Status() UserStatus
}

// Session is the token pair handed out after a successful login.
type Session struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
}

// Mailer dispatches account notifications. Delivery is best-effort; the
// invitation and recovery flows never fail because mail did not go out.
type Mailer interface {
	SendInvitationEmail(ctx context.Context, toEmail, activationURL string) error
	SendPasswordResetEmail(ctx context.Context, toEmail, resetURL string) error
}

// Authenticator holds methods to deal with authentication.
type Authenticator interface {
	Authenticate(ctx context.Context, email, password string) (Identity, error)
	IdentityFromToken(ctx context.Context, token string) (Identity, error)
	IssueSession(ctx context.Context, identity Identity) (Session, error)
	Refresh(ctx context.Context, refreshToken string) (string, error)
}

type defLogger struct{}

func (d defLogger) Error(format string, args ...any) {
	fmt.Printf("[ERR] AUTH "+newline(format), args...)
}

func (d defLogger) Warn(format string, args ...any) {
	fmt.Printf("[WRN] AUTH "+newline(format), args...)
}

func (d defLogger) Info(format string, args ...any) {
	fmt.Printf("[INF] AUTH "+newline(format), args...)
}

func (d defLogger) Debug(format string, args ...any) {
	fmt.Printf("[DBG] AUTH "+newline(format), args...)
}

func newline(s string) string {
	if len(s) > 0 && s[len(s)-1] != '\n' {
		s += "\n"
	}
	return s
}
