package auth

import goerrors "github.com/goliatone/go-errors"

// UserStatus is the lifecycle state of an account.
type UserStatus = string

const (
	// UserStatusPending is an invited account awaiting activation
	UserStatusPending UserStatus = "pending"
	// UserStatusActive is a fully usable account
	UserStatusActive UserStatus = "active"
	// UserStatusDeleted is a removed account
	UserStatusDeleted UserStatus = "deleted"
	// UserStatusExpired is an account whose access lapsed
	UserStatusExpired UserStatus = "expired"
)

// InvitationStatus is the lifecycle state of an invitation.
type InvitationStatus = string

const (
	// InvitationActive is an outstanding invitation
	InvitationActive InvitationStatus = "active"
	// InvitationAccepted means the invited user finished activation
	InvitationAccepted InvitationStatus = "accepted"
	// InvitationCanceled is a revoked invitation
	InvitationCanceled InvitationStatus = "canceled"
)

// statusAuthError maps non-active statuses to the error returned when the
// account tries to authenticate.
func statusAuthError(status UserStatus) error {
	switch status {
	case UserStatusActive, "":
		return nil
	case UserStatusPending, UserStatusDeleted, UserStatusExpired:
		return ErrInactiveAccount
	default:
		return goerrors.New("user has an unknown status", goerrors.CategoryAuth).
			WithTextCode("INVALID_USER_STATUS").
			WithMetadata(map[string]any{"status": status})
	}
}
