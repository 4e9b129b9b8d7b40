package auth

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/uptrace/bun"
)

// InviteUserMessage carries an admin's request to onboard a new account.
type InviteUserMessage struct {
	Email       string     `json:"email"`
	FirstName   string     `json:"first_name"`
	LastName    string     `json:"last_name"`
	Role        string     `json:"role"`
	DateOfBirth *time.Time `json:"date_of_birth"`
	Phone       string     `json:"phone_number"`
	OnResponse  func(resp *InviteUserResponse)
}

func (e InviteUserMessage) Type() string { return "user.invite" }

// InviteUserResponse reports the created records and the activation link
// that was dispatched.
type InviteUserResponse struct {
	User          *User
	Invitation    *Invitation
	ActivationURL string
}

// InviteUserHandler creates a pending account plus its invitation row, mints
// a long-lived activation token, and dispatches the invitation email.
type InviteUserHandler struct {
	repo             RepositoryManager
	activationTokens TokenService
	mailer           Mailer
	cfg              Config
	activity         ActivitySink
	logger           Logger
}

// NewInviteUserHandler creates a handler with sane defaults. The activation
// token is signed with the access-purpose secret, per the deployed scheme.
func NewInviteUserHandler(repo RepositoryManager, cfg Config) *InviteUserHandler {
	cfg = cfg.WithDefaults()
	return &InviteUserHandler{
		repo:             repo,
		activationTokens: NewTokenService([]byte(cfg.SigningKey), cfg.Issuer),
		mailer:           noopMailer{},
		cfg:              cfg,
		activity:         noopActivitySink{},
		logger:           defLogger{},
	}
}

// WithMailer sets the notification backend.
func (h *InviteUserHandler) WithMailer(m Mailer) *InviteUserHandler {
	h.mailer = normalizeMailer(m)
	return h
}

// WithActivitySink sets the sink used to emit invitation events.
func (h *InviteUserHandler) WithActivitySink(sink ActivitySink) *InviteUserHandler {
	h.activity = normalizeActivitySink(sink)
	return h
}

// WithLogger overrides the logger used by the handler.
func (h *InviteUserHandler) WithLogger(logger Logger) *InviteUserHandler {
	if logger != nil {
		h.logger = logger
	}
	return h
}

// WithTokenService replaces the activation token service, mostly for tests.
func (h *InviteUserHandler) WithTokenService(ts TokenService) *InviteUserHandler {
	if ts != nil {
		h.activationTokens = ts
	}
	return h
}

func (h *InviteUserHandler) Execute(ctx context.Context, event InviteUserMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during user invitation",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *InviteUserHandler) execute(ctx context.Context, event InviteUserMessage) error {
	if event.Email == "" {
		return goerrors.New("invitation email is required", goerrors.CategoryBadInput)
	}

	role := event.Role
	if role == "" {
		role = RoleStudent
	}
	if !IsValidRole(role) {
		return goerrors.New("unknown role for invited user", goerrors.CategoryBadInput).
			WithMetadata(map[string]any{"role": role})
	}

	resp := &InviteUserResponse{}

	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	err := h.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		user := &User{
			Email:        event.Email,
			FirstName:    event.FirstName,
			LastName:     event.LastName,
			Role:         role,
			Status:       UserStatusPending,
			DateOfBirth:  event.DateOfBirth,
			Phone:        event.Phone,
			PasswordHash: RandomPasswordHash(),
		}

		// The unique index on email is the arbiter for concurrent invites;
		// CreateTx maps the violation to ErrEmailTaken.
		user, err := h.repo.Users().CreateTx(ctx, tx, user)
		if err != nil {
			return err
		}

		invitation := &Invitation{
			UserID: &user.ID,
			Email:  user.Email,
			Status: InvitationActive,
		}

		invitation, err = h.repo.Invitations().CreateTx(ctx, tx, invitation)
		if err != nil {
			return err
		}

		resp.User = user
		resp.Invitation = invitation
		return nil
	})

	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return richErr
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "user invitation transaction failed")
	}

	token, err := h.activationTokens.Encode(resp.User.ID.String(), resp.User.Email, h.cfg.ActivationTokenTTL)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to build activation token")
	}

	resp.ActivationURL = ActivationURL(h.cfg, token)

	// Dispatch is fire and forget: the invitation stands even if delivery
	// fails, and an admin can re-send the link.
	go func(toEmail, url string) {
		if err := h.mailer.SendInvitationEmail(context.WithoutCancel(ctx), toEmail, url); err != nil {
			h.logger.Warn("invitation email to %s failed to dispatch: %v", toEmail, err)
		}
	}(resp.User.Email, resp.ActivationURL)

	h.recordActivity(ctx, resp)

	if event.OnResponse != nil {
		event.OnResponse(resp)
	}

	return nil
}

func (h *InviteUserHandler) recordActivity(ctx context.Context, resp *InviteUserResponse) {
	if resp == nil || resp.User == nil {
		return
	}

	event := ActivityEvent{
		EventType:  ActivityEventInvitationSent,
		UserID:     resp.User.ID.String(),
		Email:      resp.User.Email,
		Metadata:   map[string]any{"invitation_id": resp.Invitation.ID.String()},
		OccurredAt: time.Now(),
	}

	if err := normalizeActivitySink(h.activity).Record(ctx, event); err != nil {
		h.logger.Warn("activity sink error during invitation: %v", err)
	}
}
