package auth_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	auth "github.com/learnit/go-auth"
)

func pendingInvitee(email string) (*auth.User, *auth.Invitation) {
	userID := uuid.New()
	user := &auth.User{
		ID:           userID,
		Email:        email,
		PasswordHash: auth.RandomPasswordHash(),
		Role:         auth.RoleStudent,
		Status:       auth.UserStatusPending,
	}
	invitation := &auth.Invitation{
		ID:     uuid.New(),
		UserID: &userID,
		Email:  email,
		Status: auth.InvitationActive,
	}
	return user, invitation
}

func activationToken(t *testing.T, cfg auth.Config, user *auth.User) string {
	t.Helper()

	token, err := auth.NewTokenService([]byte(cfg.SigningKey), cfg.Issuer).
		Encode(user.ID.String(), user.Email, cfg.ActivationTokenTTL)
	require.NoError(t, err)
	return token
}

func TestActivateUserHappyPath(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig()
	repo := newMockRepoManager()
	sink := &capturingSink{}

	user, invitation := pendingInvitee("newcomer@example.com")
	now := time.Date(2025, 3, 2, 9, 0, 0, 0, time.UTC)

	activated := &auth.User{
		ID:          user.ID,
		Email:       user.Email,
		Status:      auth.UserStatusActive,
		ActivatedAt: &now,
	}
	accepted := &auth.Invitation{
		ID:         invitation.ID,
		Email:      invitation.Email,
		Status:     auth.InvitationAccepted,
		AcceptedAt: &now,
	}

	repo.users.On("GetByUserIDTx", mock.Anything, mock.Anything, user.ID).
		Return(user, nil).Once()
	repo.invitations.On("GetByEmailTx", mock.Anything, mock.Anything, user.Email).
		Return(invitation, nil).Once()
	repo.users.On("UpdateTx", mock.Anything, mock.Anything, mock.Anything).
		Return(nil, nil).Once()
	repo.users.On("SetPasswordTx", mock.Anything, mock.Anything, user.ID, mock.Anything).
		Return(nil).Once()
	repo.users.On("UpdateStatusTx", mock.Anything, mock.Anything, user.ID, auth.UserStatusActive).
		Return(activated, nil).Once()
	repo.invitations.On("MarkAcceptedTx", mock.Anything, mock.Anything, invitation.ID, now).
		Return(accepted, nil).Once()

	handler := auth.NewActivateUserHandler(repo, cfg).
		WithActivitySink(sink).
		WithClock(func() time.Time { return now })

	firstName := "Pat"
	var resp *auth.ActivateUserResponse
	err := handler.Execute(ctx, auth.ActivateUserMessage{
		Token:    activationToken(t, cfg, user),
		Password: "Sup3rSecret",
		Profile:  auth.UserProfileUpdate{FirstName: &firstName},
		OnResponse: func(r *auth.ActivateUserResponse) {
			resp = r
		},
	})
	require.NoError(t, err)
	require.NotNil(t, resp)

	assert.Equal(t, auth.UserStatusActive, resp.User.Status)
	require.NotNil(t, resp.User.ActivatedAt)
	assert.Equal(t, auth.InvitationAccepted, resp.Invitation.Status)
	require.NotNil(t, resp.Invitation.AcceptedAt)

	assert.Contains(t, sink.eventTypes(), auth.ActivityEventAccountActivated)
	repo.users.AssertExpectations(t)
	repo.invitations.AssertExpectations(t)
}

func TestActivateUserStoresTheChosenPassword(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig()
	repo := newMockRepoManager()

	user, invitation := pendingInvitee("newcomer@example.com")
	password := "Sup3rSecret"

	var storedHash string
	repo.users.On("GetByUserIDTx", mock.Anything, mock.Anything, user.ID).
		Return(user, nil).Once()
	repo.invitations.On("GetByEmailTx", mock.Anything, mock.Anything, user.Email).
		Return(invitation, nil).Once()
	repo.users.On("UpdateTx", mock.Anything, mock.Anything, mock.Anything).
		Return(nil, nil).Once()
	repo.users.On("SetPasswordTx", mock.Anything, mock.Anything, user.ID, mock.Anything).
		Run(func(args mock.Arguments) {
			storedHash = args.String(3)
		}).
		Return(nil).Once()
	repo.users.On("UpdateStatusTx", mock.Anything, mock.Anything, user.ID, auth.UserStatusActive).
		Return(&auth.User{ID: user.ID, Email: user.Email, Status: auth.UserStatusActive}, nil).Once()
	repo.invitations.On("MarkAcceptedTx", mock.Anything, mock.Anything, invitation.ID, mock.Anything).
		Return(invitation, nil).Once()

	handler := auth.NewActivateUserHandler(repo, cfg)

	err := handler.Execute(ctx, auth.ActivateUserMessage{
		Token:    activationToken(t, cfg, user),
		Password: password,
	})
	require.NoError(t, err)

	require.NotEmpty(t, storedHash)
	assert.NoError(t, auth.ComparePasswordAndHash(password, storedHash))
}

func TestActivateUserWeakPasswordLeavesStoreUntouched(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig()
	repo := newMockRepoManager()
	sink := &capturingSink{}

	user, _ := pendingInvitee("newcomer@example.com")

	handler := auth.NewActivateUserHandler(repo, cfg).WithActivitySink(sink)

	tests := []struct {
		name     string
		password string
		rule     string
	}{
		{"missing digit", "NoDigitsHere", "digit"},
		{"missing lowercase", "ALLCAPS123", "lowercase"},
		{"missing uppercase", "nocaps123", "uppercase"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := handler.Execute(ctx, auth.ActivateUserMessage{
				Token:    activationToken(t, cfg, user),
				Password: tt.password,
			})
			require.Error(t, err)
			assert.True(t, auth.IsWeakPasswordError(err))
			assert.Contains(t, err.Error(), tt.rule)
		})
	}

	assert.Zero(t, repo.txCalls)
	assert.Contains(t, sink.eventTypes(), auth.ActivityEventActivationFailure)
}

func TestActivateUserExpiredToken(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig()
	repo := newMockRepoManager()
	sink := &capturingSink{}

	user, _ := pendingInvitee("newcomer@example.com")

	// Mint the token a year back so its validity window has long lapsed.
	past := time.Now().Add(-365 * 24 * time.Hour)
	stale := auth.NewTokenService([]byte(cfg.SigningKey), cfg.Issuer,
		auth.WithTokenClock(func() time.Time { return past }))
	token, err := stale.Encode(user.ID.String(), user.Email, cfg.ActivationTokenTTL)
	require.NoError(t, err)

	handler := auth.NewActivateUserHandler(repo, cfg).WithActivitySink(sink)

	err = handler.Execute(ctx, auth.ActivateUserMessage{
		Token:    token,
		Password: "Sup3rSecret",
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, auth.ErrTokenExpired)
	assert.Zero(t, repo.txCalls)
	assert.Contains(t, sink.eventTypes(), auth.ActivityEventActivationFailure)
}

func TestActivateUserMalformedToken(t *testing.T) {
	ctx := context.Background()
	repo := newMockRepoManager()

	handler := auth.NewActivateUserHandler(repo, testConfig())

	err := handler.Execute(ctx, auth.ActivateUserMessage{
		Token:    "garbage",
		Password: "Sup3rSecret",
	})
	require.Error(t, err)
	assert.True(t, auth.IsMalformedError(err))
	assert.Zero(t, repo.txCalls)
}

func TestActivateUserMissingInvitation(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig()
	repo := newMockRepoManager()

	user, _ := pendingInvitee("newcomer@example.com")

	repo.users.On("GetByUserIDTx", mock.Anything, mock.Anything, user.ID).
		Return(user, nil).Once()
	repo.invitations.On("GetByEmailTx", mock.Anything, mock.Anything, user.Email).
		Return(nil, auth.ErrInvitationNotFound).Once()

	handler := auth.NewActivateUserHandler(repo, cfg)

	err := handler.Execute(ctx, auth.ActivateUserMessage{
		Token:    activationToken(t, cfg, user),
		Password: "Sup3rSecret",
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, auth.ErrInvitationNotFound)
	repo.users.AssertNotCalled(t, "SetPasswordTx", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestActivateUserUnknownAccount(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig()
	repo := newMockRepoManager()

	user, _ := pendingInvitee("newcomer@example.com")

	repo.users.On("GetByUserIDTx", mock.Anything, mock.Anything, user.ID).
		Return(nil, auth.ErrIdentityNotFound).Once()

	handler := auth.NewActivateUserHandler(repo, cfg)

	err := handler.Execute(ctx, auth.ActivateUserMessage{
		Token:    activationToken(t, cfg, user),
		Password: "Sup3rSecret",
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, auth.ErrIdentityNotFound)
}

func TestActivateUserMessageType(t *testing.T) {
	assert.Equal(t, "user.activate", auth.ActivateUserMessage{}.Type())
}
