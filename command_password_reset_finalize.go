package auth

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// FinalizePasswordResetMessage completes recovery: the bearer of a valid
// reset token sets a new password.
type FinalizePasswordResetMessage struct {
	Token      string `json:"token"`
	Password   string `json:"password"`
	OnResponse func(resp *FinalizePasswordResetResponse)
}

func (e FinalizePasswordResetMessage) Type() string { return "password.reset.finalize" }

// FinalizePasswordResetResponse reports the account whose password changed.
type FinalizePasswordResetResponse struct {
	User *User
}

// FinalizePasswordResetHandler consumes a reset token, validates the new
// password against policy, and stores its hash. Every failure leaves the
// stored credentials untouched.
type FinalizePasswordResetHandler struct {
	repo        RepositoryManager
	resetTokens TokenService
	activity    ActivitySink
	logger      Logger
	now         func() time.Time
}

// NewFinalizePasswordResetHandler creates a handler with sane defaults.
func NewFinalizePasswordResetHandler(repo RepositoryManager, cfg Config) *FinalizePasswordResetHandler {
	cfg = cfg.WithDefaults()
	return &FinalizePasswordResetHandler{
		repo:        repo,
		resetTokens: NewTokenService([]byte(cfg.SigningKey), cfg.Issuer),
		activity:    noopActivitySink{},
		logger:      defLogger{},
		now:         time.Now,
	}
}

// WithActivitySink sets the sink used to emit reset events.
func (h *FinalizePasswordResetHandler) WithActivitySink(sink ActivitySink) *FinalizePasswordResetHandler {
	h.activity = normalizeActivitySink(sink)
	return h
}

// WithLogger overrides the logger used by the handler.
func (h *FinalizePasswordResetHandler) WithLogger(logger Logger) *FinalizePasswordResetHandler {
	if logger != nil {
		h.logger = logger
	}
	return h
}

// WithTokenService replaces the reset token service, mostly for tests.
func (h *FinalizePasswordResetHandler) WithTokenService(ts TokenService) *FinalizePasswordResetHandler {
	if ts != nil {
		h.resetTokens = ts
	}
	return h
}

// WithClock injects a custom clock (useful for tests).
func (h *FinalizePasswordResetHandler) WithClock(clock func() time.Time) *FinalizePasswordResetHandler {
	if clock != nil {
		h.now = clock
	}
	return h
}

func (h *FinalizePasswordResetHandler) Execute(ctx context.Context, event FinalizePasswordResetMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during password reset finalization",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *FinalizePasswordResetHandler) execute(ctx context.Context, event FinalizePasswordResetMessage) error {
	claims, err := h.resetTokens.Decode(event.Token)
	if err != nil {
		return err
	}

	subjectID, err := uuid.Parse(claims.Subject())
	if err != nil {
		return ErrTokenMalformed
	}

	// Policy runs before any store mutation.
	if err := ValidatePassword(event.Password); err != nil {
		return err
	}

	passwordHash, err := HashPassword(event.Password)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to hash password")
	}

	resp := &FinalizePasswordResetResponse{}

	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	err = h.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		user, err := h.repo.Users().GetByUserIDTx(ctx, tx, subjectID)
		if err != nil {
			// A token whose subject no longer resolves is an invalid token.
			if goerrors.Is(err, ErrIdentityNotFound) {
				return ErrTokenMalformed
			}
			return err
		}

		// The token was minted for a specific address; if the account's email
		// changed since, the token no longer names its holder.
		if user.Email != claims.UserEmail() {
			return ErrTokenMalformed
		}

		if !user.IsActive() {
			return ErrInactiveAccount
		}

		if err := h.repo.Users().SetPasswordTx(ctx, tx, user.ID, passwordHash); err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to store reset password")
		}
		user.PasswordHash = passwordHash

		resp.User = user
		return nil
	})

	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return richErr
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "password reset transaction failed")
	}

	h.recordActivity(ctx, resp)

	if event.OnResponse != nil {
		event.OnResponse(resp)
	}

	return nil
}

func (h *FinalizePasswordResetHandler) recordActivity(ctx context.Context, resp *FinalizePasswordResetResponse) {
	if resp == nil || resp.User == nil {
		return
	}

	event := ActivityEvent{
		EventType:  ActivityEventResetCompleted,
		UserID:     resp.User.ID.String(),
		Email:      resp.User.Email,
		Metadata:   map[string]any{},
		OccurredAt: h.now(),
	}

	if err := normalizeActivitySink(h.activity).Record(ctx, event); err != nil {
		h.logger.Warn("activity sink error during password reset finalization: %v", err)
	}
}
