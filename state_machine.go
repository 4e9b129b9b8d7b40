package auth

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/uptrace/bun"
)

// ErrInvalidTransition is returned when a requested status change is not allowed.
var ErrInvalidTransition = goerrors.New("invalid user state transition", goerrors.CategoryValidation).
	WithTextCode("INVALID_USER_STATE_TRANSITION").
	WithCode(goerrors.CodeBadRequest)

// UserStateMachine centralizes which lifecycle moves a user record may make.
// Activation (pending to active) is the only transition driven by this
// package; the remaining edges exist for admin tooling built on top.
type UserStateMachine interface {
	Transition(ctx context.Context, user *User, target UserStatus) (*User, error)
	TransitionTx(ctx context.Context, tx bun.IDB, user *User, target UserStatus) (*User, error)
	CurrentStatus(user *User) UserStatus
}

// StateMachineOption customizes state machine construction.
type StateMachineOption func(*userStateMachine)

// WithStateMachineClock injects a custom clock (useful for tests).
func WithStateMachineClock(clock func() time.Time) StateMachineOption {
	return func(sm *userStateMachine) {
		if clock != nil {
			sm.now = clock
		}
	}
}

// WithStateMachineLogger overrides the default logger.
func WithStateMachineLogger(logger Logger) StateMachineOption {
	return func(sm *userStateMachine) {
		if logger != nil {
			sm.logger = logger
		}
	}
}

// NewUserStateMachine returns the default implementation backed by the provided repository.
func NewUserStateMachine(users Users, opts ...StateMachineOption) UserStateMachine {
	sm := &userStateMachine{
		users: users,
		transitions: map[UserStatus]map[UserStatus]struct{}{
			UserStatusPending: {
				UserStatusActive:  {},
				UserStatusDeleted: {},
			},
			UserStatusActive: {
				UserStatusDeleted: {},
				UserStatusExpired: {},
			},
		},
		now:    time.Now,
		logger: defLogger{},
	}

	for _, opt := range opts {
		if opt != nil {
			opt(sm)
		}
	}

	return sm
}

type userStateMachine struct {
	users       Users
	transitions map[UserStatus]map[UserStatus]struct{}
	now         func() time.Time
	logger      Logger
}

func (sm *userStateMachine) Transition(ctx context.Context, user *User, target UserStatus) (*User, error) {
	return sm.TransitionTx(ctx, nil, user, target)
}

func (sm *userStateMachine) TransitionTx(ctx context.Context, tx bun.IDB, user *User, target UserStatus) (*User, error) {
	if user == nil {
		return nil, goerrors.New("user is required for a state transition", goerrors.CategoryBadInput)
	}

	user.EnsureStatus()
	from := user.Status

	if from == target {
		return user, nil
	}

	allowed, ok := sm.transitions[from]
	if !ok {
		return nil, ErrInvalidTransition
	}
	if _, ok := allowed[target]; !ok {
		return nil, ErrInvalidTransition
	}

	var opts []StatusUpdateOption
	if target == UserStatusActive {
		now := sm.now()
		opts = append(opts, WithActivationTime(now))
	}

	var updated *User
	var err error
	if tx != nil {
		updated, err = sm.users.UpdateStatusTx(ctx, tx, user.ID, target, opts...)
	} else {
		updated, err = sm.users.UpdateStatus(ctx, user.ID, target, opts...)
	}
	if err != nil {
		sm.logger.Error("state transition from %s to %s failed to persist: %v", from, target, err)
		return nil, err
	}

	return updated, nil
}

func (sm *userStateMachine) CurrentStatus(user *User) UserStatus {
	if user == nil {
		return ""
	}
	user.EnsureStatus()
	return user.Status
}
