package auth

import (
	"context"
	"fmt"
	"strings"
)

// ActivationURL builds the link embedded in invitation emails. The token
// rides as a path segment: {base_url}{api_prefix}/users/activate/{token}.
func ActivationURL(cfg Config, token string) string {
	return tokenURL(cfg, "/users/activate/", token)
}

// PasswordResetURL builds the link embedded in password recovery emails:
// {base_url}{api_prefix}/users/password-reset/{token}.
func PasswordResetURL(cfg Config, token string) string {
	return tokenURL(cfg, "/users/password-reset/", token)
}

func tokenURL(cfg Config, path, token string) string {
	base := strings.TrimSuffix(cfg.BaseURL, "/")
	prefix := cfg.APIPrefix
	if prefix != "" && !strings.HasPrefix(prefix, "/") {
		prefix = "/" + prefix
	}
	return fmt.Sprintf("%s%s%s%s", base, prefix, path, token)
}

type noopMailer struct{}

func (noopMailer) SendInvitationEmail(context.Context, string, string) error {
	return nil
}

func (noopMailer) SendPasswordResetEmail(context.Context, string, string) error {
	return nil
}

// NewLogMailer returns a Mailer that prints the notification, a stand-in
// until a real delivery backend is configured.
func NewLogMailer(logger Logger) Mailer {
	if logger == nil {
		logger = defLogger{}
	}
	return logMailer{logger: logger}
}

type logMailer struct {
	logger Logger
}

func (m logMailer) SendInvitationEmail(ctx context.Context, toEmail, activationURL string) error {
	m.logger.Info("====== SENDING INVITATION EMAIL =======")
	m.logger.Info("to: %s", toEmail)
	m.logger.Info("link: %s", activationURL)
	return nil
}

func (m logMailer) SendPasswordResetEmail(ctx context.Context, toEmail, resetURL string) error {
	m.logger.Info("====== SENDING PASSWORD RESET EMAIL =======")
	m.logger.Info("to: %s", toEmail)
	m.logger.Info("link: %s", resetURL)
	return nil
}

func normalizeMailer(m Mailer) Mailer {
	if m == nil {
		return noopMailer{}
	}
	return m
}
