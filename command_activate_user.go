package auth

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// ActivateUserMessage finalizes an invited account: the bearer of a valid
// activation token sets their real password and profile.
type ActivateUserMessage struct {
	Token      string            `json:"token"`
	Password   string            `json:"password"`
	Profile    UserProfileUpdate `json:"profile"`
	OnResponse func(resp *ActivateUserResponse)
}

func (e ActivateUserMessage) Type() string { return "user.activate" }

// ActivateUserResponse reports the finalized records.
type ActivateUserResponse struct {
	User       *User
	Invitation *Invitation
}

// ActivateUserHandler consumes an activation token, validates and stores the
// new password, flips the account to active, and accepts the invitation.
// Every failure leaves both records untouched.
type ActivateUserHandler struct {
	repo             RepositoryManager
	activationTokens TokenService
	stateMachine     UserStateMachine
	activity         ActivitySink
	logger           Logger
	now              func() time.Time
}

// NewActivateUserHandler creates a handler with sane defaults.
func NewActivateUserHandler(repo RepositoryManager, cfg Config) *ActivateUserHandler {
	cfg = cfg.WithDefaults()
	return &ActivateUserHandler{
		repo:             repo,
		activationTokens: NewTokenService([]byte(cfg.SigningKey), cfg.Issuer),
		stateMachine:     NewUserStateMachine(repo.Users()),
		activity:         noopActivitySink{},
		logger:           defLogger{},
		now:              time.Now,
	}
}

// WithActivitySink sets the sink used to emit activation events.
func (h *ActivateUserHandler) WithActivitySink(sink ActivitySink) *ActivateUserHandler {
	h.activity = normalizeActivitySink(sink)
	return h
}

// WithLogger overrides the logger used by the handler.
func (h *ActivateUserHandler) WithLogger(logger Logger) *ActivateUserHandler {
	if logger != nil {
		h.logger = logger
	}
	return h
}

// WithTokenService replaces the activation token service, mostly for tests.
func (h *ActivateUserHandler) WithTokenService(ts TokenService) *ActivateUserHandler {
	if ts != nil {
		h.activationTokens = ts
	}
	return h
}

// WithClock injects a custom clock (useful for tests).
func (h *ActivateUserHandler) WithClock(clock func() time.Time) *ActivateUserHandler {
	if clock != nil {
		h.now = clock
		h.stateMachine = NewUserStateMachine(h.repo.Users(), WithStateMachineClock(clock))
	}
	return h
}

func (h *ActivateUserHandler) Execute(ctx context.Context, event ActivateUserMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during account activation",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *ActivateUserHandler) execute(ctx context.Context, event ActivateUserMessage) error {
	claims, err := h.activationTokens.Decode(event.Token)
	if err != nil {
		h.recordFailure(ctx, "", event.Token, err)
		return err
	}

	subjectID, err := uuid.Parse(claims.Subject())
	if err != nil {
		return ErrTokenMalformed
	}

	// Policy runs before any store mutation.
	if err := ValidatePassword(event.Password); err != nil {
		h.recordFailure(ctx, claims.UserEmail(), "", err)
		return err
	}

	passwordHash, err := HashPassword(event.Password)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to hash password")
	}

	resp := &ActivateUserResponse{}

	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	err = h.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		user, err := h.repo.Users().GetByUserIDTx(ctx, tx, subjectID)
		if err != nil {
			return err
		}

		// Activation is single use: once the account left pending, the
		// token cannot reset the password again.
		if !user.IsPending() {
			return ErrInvalidTransition
		}

		invitation, err := h.repo.Invitations().GetByEmailTx(ctx, tx, claims.UserEmail())
		if err != nil {
			return err
		}

		event.Profile.Apply(user)
		if _, err := h.repo.Users().UpdateTx(ctx, tx, user); err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to update user profile")
		}

		if err := h.repo.Users().SetPasswordTx(ctx, tx, user.ID, passwordHash); err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to store activation password")
		}
		user.PasswordHash = passwordHash

		user, err = h.stateMachine.TransitionTx(ctx, tx, user, UserStatusActive)
		if err != nil {
			return err
		}

		invitation, err = h.repo.Invitations().MarkAcceptedTx(ctx, tx, invitation.ID, h.now())
		if err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to accept invitation")
		}

		resp.User = user
		resp.Invitation = invitation
		return nil
	})

	if err != nil {
		h.recordFailure(ctx, claims.UserEmail(), "", err)
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return richErr
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "account activation transaction failed")
	}

	h.recordActivity(ctx, resp)

	if event.OnResponse != nil {
		event.OnResponse(resp)
	}

	return nil
}

func (h *ActivateUserHandler) recordActivity(ctx context.Context, resp *ActivateUserResponse) {
	if resp == nil || resp.User == nil {
		return
	}

	event := ActivityEvent{
		EventType:  ActivityEventAccountActivated,
		UserID:     resp.User.ID.String(),
		Email:      resp.User.Email,
		Metadata:   map[string]any{"invitation_id": resp.Invitation.ID.String()},
		OccurredAt: h.now(),
	}

	if err := normalizeActivitySink(h.activity).Record(ctx, event); err != nil {
		h.logger.Warn("activity sink error during activation: %v", err)
	}
}

func (h *ActivateUserHandler) recordFailure(ctx context.Context, email, token string, cause error) {
	metadata := map[string]any{"error": cause.Error()}
	if token != "" {
		metadata["token_present"] = true
	}

	event := ActivityEvent{
		EventType:  ActivityEventActivationFailure,
		Email:      email,
		Metadata:   metadata,
		OccurredAt: h.now(),
	}

	if err := normalizeActivitySink(h.activity).Record(ctx, event); err != nil {
		h.logger.Warn("activity sink error during activation: %v", err)
	}
}
