package auth

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
)

// InitializePasswordResetMessage starts password recovery for an email
// address.
type InitializePasswordResetMessage struct {
	Email      string `json:"email"`
	OnResponse func(resp *InitializePasswordResetResponse)
}

func (e InitializePasswordResetMessage) Type() string { return "password.reset.initialize" }

// InitializePasswordResetResponse reports the reset link that was
// dispatched. Both fields are empty when the email matched no account.
type InitializePasswordResetResponse struct {
	User     *User
	ResetURL string
}

// InitializePasswordResetHandler mints a short-lived reset token for a known
// account and mails the recovery link. An email that matches no account
// succeeds without sending anything, so the endpoint does not reveal which
// addresses are registered.
type InitializePasswordResetHandler struct {
	repo        RepositoryManager
	resetTokens TokenService
	mailer      Mailer
	cfg         Config
	activity    ActivitySink
	logger      Logger
}

// NewInitializePasswordResetHandler creates a handler with sane defaults.
// Reset tokens are signed with the access-purpose secret, like activation
// tokens.
func NewInitializePasswordResetHandler(repo RepositoryManager, cfg Config) *InitializePasswordResetHandler {
	cfg = cfg.WithDefaults()
	return &InitializePasswordResetHandler{
		repo:        repo,
		resetTokens: NewTokenService([]byte(cfg.SigningKey), cfg.Issuer),
		mailer:      noopMailer{},
		cfg:         cfg,
		activity:    noopActivitySink{},
		logger:      defLogger{},
	}
}

// WithMailer sets the notification backend.
func (h *InitializePasswordResetHandler) WithMailer(m Mailer) *InitializePasswordResetHandler {
	h.mailer = normalizeMailer(m)
	return h
}

// WithActivitySink sets the sink used to emit reset events.
func (h *InitializePasswordResetHandler) WithActivitySink(sink ActivitySink) *InitializePasswordResetHandler {
	h.activity = normalizeActivitySink(sink)
	return h
}

// WithLogger overrides the logger used by the handler.
func (h *InitializePasswordResetHandler) WithLogger(logger Logger) *InitializePasswordResetHandler {
	if logger != nil {
		h.logger = logger
	}
	return h
}

// WithTokenService replaces the reset token service, mostly for tests.
func (h *InitializePasswordResetHandler) WithTokenService(ts TokenService) *InitializePasswordResetHandler {
	if ts != nil {
		h.resetTokens = ts
	}
	return h
}

func (h *InitializePasswordResetHandler) Execute(ctx context.Context, event InitializePasswordResetMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during password reset initialization",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *InitializePasswordResetHandler) execute(ctx context.Context, event InitializePasswordResetMessage) error {
	if event.Email == "" {
		return goerrors.New("password reset email is required", goerrors.CategoryBadInput)
	}

	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	user, err := h.repo.Users().GetByEmail(ctx, event.Email)
	if err != nil {
		// An unknown address gets the same answer as a known one.
		if goerrors.Is(err, ErrIdentityNotFound) {
			if event.OnResponse != nil {
				event.OnResponse(&InitializePasswordResetResponse{})
			}
			return nil
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "password reset lookup failed")
	}

	token, err := h.resetTokens.Encode(user.ID.String(), user.Email, h.cfg.PasswordResetTokenTTL)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to build password reset token")
	}

	resp := &InitializePasswordResetResponse{
		User:     user,
		ResetURL: PasswordResetURL(h.cfg, token),
	}

	// Dispatch is fire and forget: the user can simply request another link
	// if delivery fails.
	go func(toEmail, url string) {
		if err := h.mailer.SendPasswordResetEmail(context.WithoutCancel(ctx), toEmail, url); err != nil {
			h.logger.Warn("password reset email to %s failed to dispatch: %v", toEmail, err)
		}
	}(user.Email, resp.ResetURL)

	h.recordActivity(ctx, resp)

	if event.OnResponse != nil {
		event.OnResponse(resp)
	}

	return nil
}

func (h *InitializePasswordResetHandler) recordActivity(ctx context.Context, resp *InitializePasswordResetResponse) {
	if resp == nil || resp.User == nil {
		return
	}

	event := ActivityEvent{
		EventType:  ActivityEventResetRequested,
		UserID:     resp.User.ID.String(),
		Email:      resp.User.Email,
		Metadata:   map[string]any{},
		OccurredAt: time.Now(),
	}

	if err := normalizeActivitySink(h.activity).Record(ctx, event); err != nil {
		h.logger.Warn("activity sink error during password reset initialization: %v", err)
	}
}
