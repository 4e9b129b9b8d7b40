package auth

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/uptrace/bun"
)

// RegisterUserMessage carries a self-service sign-up. Unlike invited
// accounts, a registered account picks its password up front and comes out
// active.
type RegisterUserMessage struct {
	Email       string     `json:"email"`
	Password    string     `json:"password"`
	FirstName   string     `json:"first_name"`
	LastName    string     `json:"last_name"`
	DateOfBirth *time.Time `json:"date_of_birth"`
	Phone       string     `json:"phone_number"`
	OnResponse  func(resp *RegisterUserResponse)
}

func (e RegisterUserMessage) Type() string { return "user.register" }

// RegisterUserResponse reports the created account and its first session.
type RegisterUserResponse struct {
	User    *User
	Session Session
}

// RegisterUserHandler creates an active account from a self-service sign-up
// and issues its first token pair.
type RegisterUserHandler struct {
	repo     RepositoryManager
	auther   *Auther
	activity ActivitySink
	logger   Logger
}

// NewRegisterUserHandler creates a handler with sane defaults.
func NewRegisterUserHandler(repo RepositoryManager, cfg Config) *RegisterUserHandler {
	cfg = cfg.WithDefaults()
	return &RegisterUserHandler{
		repo:     repo,
		auther:   NewAuthenticator(repo.Users(), cfg),
		activity: noopActivitySink{},
		logger:   defLogger{},
	}
}

// WithAuthenticator replaces the session issuer, mostly for tests.
func (h *RegisterUserHandler) WithAuthenticator(auther *Auther) *RegisterUserHandler {
	if auther != nil {
		h.auther = auther
	}
	return h
}

// WithActivitySink sets the sink used to emit registration events.
func (h *RegisterUserHandler) WithActivitySink(sink ActivitySink) *RegisterUserHandler {
	h.activity = normalizeActivitySink(sink)
	return h
}

// WithLogger overrides the logger used by the handler.
func (h *RegisterUserHandler) WithLogger(logger Logger) *RegisterUserHandler {
	if logger != nil {
		h.logger = logger
	}
	return h
}

func (h *RegisterUserHandler) Execute(ctx context.Context, event RegisterUserMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during user registration",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *RegisterUserHandler) execute(ctx context.Context, event RegisterUserMessage) error {
	if event.Email == "" {
		return goerrors.New("registration email is required", goerrors.CategoryBadInput)
	}

	// Policy runs before any store mutation.
	if err := ValidatePassword(event.Password); err != nil {
		return err
	}

	passwordHash, err := HashPassword(event.Password)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to hash password")
	}

	resp := &RegisterUserResponse{}

	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	err = h.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		user := &User{
			Email:        event.Email,
			FirstName:    event.FirstName,
			LastName:     event.LastName,
			Role:         RoleStudent,
			Status:       UserStatusActive,
			DateOfBirth:  event.DateOfBirth,
			Phone:        event.Phone,
			PasswordHash: passwordHash,
		}

		// The unique index on email arbitrates concurrent sign-ups;
		// CreateTx maps the violation to ErrEmailTaken.
		user, err := h.repo.Users().CreateTx(ctx, tx, user)
		if err != nil {
			return err
		}

		resp.User = user
		return nil
	})

	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return richErr
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "user registration transaction failed")
	}

	session, err := h.auther.IssueSession(ctx, NewIdentityFromUser(resp.User))
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to issue session for registered user")
	}
	resp.Session = session

	h.recordActivity(ctx, resp)

	if event.OnResponse != nil {
		event.OnResponse(resp)
	}

	return nil
}

func (h *RegisterUserHandler) recordActivity(ctx context.Context, resp *RegisterUserResponse) {
	if resp == nil || resp.User == nil {
		return
	}

	event := ActivityEvent{
		EventType:  ActivityEventAccountRegistered,
		UserID:     resp.User.ID.String(),
		Email:      resp.User.Email,
		Metadata:   map[string]any{},
		OccurredAt: time.Now(),
	}

	if err := normalizeActivitySink(h.activity).Record(ctx, event); err != nil {
		h.logger.Warn("activity sink error during registration: %v", err)
	}
}
