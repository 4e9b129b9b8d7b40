package auth

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// User is the account record backing every identity in the system.
type User struct {
	bun.BaseModel `bun:"table:users,alias:usr"`
	ID            uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	Email         string     `bun:"email,notnull,unique" json:"email,omitempty"`
	FirstName     string     `bun:"first_name" json:"first_name,omitempty"`
	LastName      string     `bun:"last_name" json:"last_name,omitempty"`
	PasswordHash  string     `bun:"password_hash,notnull" json:"-"`
	Role          UserRole   `bun:"user_role,notnull" json:"user_role,omitempty"`
	Status        UserStatus `bun:"status,notnull" json:"status,omitempty"`
	DateOfBirth   *time.Time `bun:"date_of_birth,nullzero" json:"date_of_birth,omitempty"`
	Phone         string     `bun:"phone_number" json:"phone_number,omitempty"`
	ActivatedAt   *time.Time `bun:"activated_at,nullzero" json:"activated_at,omitempty"`
	CreatedAt     *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt     *time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
}

// EnsureStatus backfills the zero value so records created before the status
// column existed behave as active accounts.
func (u *User) EnsureStatus() {
	if u.Status == "" {
		u.Status = UserStatusActive
	}
}

// IsActive reports whether the account can authenticate.
func (u *User) IsActive() bool {
	u.EnsureStatus()
	return u.Status == UserStatusActive
}

// IsPending reports whether the account still awaits activation.
func (u *User) IsPending() bool {
	return u.Status == UserStatusPending
}

// UserProfileUpdate carries the optional fields an activation or profile edit
// may overwrite. Only non-nil fields are applied; there is deliberately no
// open-ended map variant.
type UserProfileUpdate struct {
	FirstName   *string    `json:"first_name,omitempty"`
	LastName    *string    `json:"last_name,omitempty"`
	DateOfBirth *time.Time `json:"date_of_birth,omitempty"`
	Phone       *string    `json:"phone_number,omitempty"`
}

// Apply copies the present fields onto the user record.
func (p UserProfileUpdate) Apply(u *User) {
	if u == nil {
		return
	}
	if p.FirstName != nil {
		u.FirstName = *p.FirstName
	}
	if p.LastName != nil {
		u.LastName = *p.LastName
	}
	if p.DateOfBirth != nil {
		u.DateOfBirth = p.DateOfBirth
	}
	if p.Phone != nil {
		u.Phone = *p.Phone
	}
}

// Invitation tracks an admin-issued onboarding request for a pending user.
type Invitation struct {
	bun.BaseModel `bun:"table:invitations,alias:inv"`
	ID            uuid.UUID        `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	UserID        *uuid.UUID       `bun:"user_id,notnull" json:"user_id,omitempty"`
	User          *User            `bun:"rel:has-one,join:user_id=id" json:"user,omitempty"`
	Email         string           `bun:"email,notnull,unique" json:"email,omitempty"`
	Status        InvitationStatus `bun:"status,notnull" json:"status,omitempty"`
	AcceptedAt    *time.Time       `bun:"accepted_at,nullzero" json:"accepted_at,omitempty"`
	CreatedAt     *time.Time       `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt     *time.Time       `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
}

// MarkAccepted returns an update record flipping the invitation to accepted.
func MarkAccepted(id uuid.UUID, now time.Time) *Invitation {
	inv := &Invitation{}
	inv.ID = id
	inv.Status = InvitationAccepted
	inv.AcceptedAt = &now
	return inv
}
