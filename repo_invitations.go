package auth

import (
	"context"
	"time"

	repository "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Invitations is the store surface for invitation records.
type Invitations interface {
	repository.Repository[*Invitation]

	GetByEmail(ctx context.Context, email string) (*Invitation, error)
	GetByEmailTx(ctx context.Context, tx bun.IDB, email string) (*Invitation, error)

	Create(ctx context.Context, record *Invitation, criteria ...repository.InsertCriteria) (*Invitation, error)
	CreateTx(ctx context.Context, tx bun.IDB, record *Invitation, criteria ...repository.InsertCriteria) (*Invitation, error)

	MarkAccepted(ctx context.Context, id uuid.UUID, acceptedAt time.Time) (*Invitation, error)
	MarkAcceptedTx(ctx context.Context, tx bun.IDB, id uuid.UUID, acceptedAt time.Time) (*Invitation, error)
}

type invitations struct {
	repository.Repository[*Invitation]
	db *bun.DB
}

var _ Invitations = (*invitations)(nil)

// NewInvitationsRepository builds the bun-backed invitation store.
func NewInvitationsRepository(db *bun.DB) Invitations {
	repo := repository.NewRepository[*Invitation](db, repository.ModelHandlers[*Invitation]{
		NewRecord: func() *Invitation { return &Invitation{} },
		GetID: func(record *Invitation) uuid.UUID {
			if record == nil {
				return uuid.Nil
			}
			return record.ID
		},
		SetID: func(record *Invitation, id uuid.UUID) {
			if record != nil {
				record.ID = id
			}
		},
		GetIdentifier: func() string {
			return "email"
		},
	})

	return &invitations{
		Repository: repo,
		db:         db,
	}
}

func (r *invitations) GetByEmail(ctx context.Context, email string) (*Invitation, error) {
	return r.GetByEmailTx(ctx, r.db, email)
}

func (r *invitations) GetByEmailTx(ctx context.Context, tx bun.IDB, email string) (*Invitation, error) {
	record := &Invitation{}
	err := tx.NewSelect().Model(record).
		Where("?TableAlias.email = ?", email).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, ErrInvitationNotFound
		}
		return nil, err
	}
	return record, nil
}

func (r *invitations) Create(ctx context.Context, record *Invitation, criteria ...repository.InsertCriteria) (*Invitation, error) {
	return r.CreateTx(ctx, r.db, record, criteria...)
}

func (r *invitations) CreateTx(ctx context.Context, tx bun.IDB, record *Invitation, criteria ...repository.InsertCriteria) (*Invitation, error) {
	if record != nil {
		if record.ID == uuid.Nil {
			record.ID = uuid.New()
		}
		if record.Status == "" {
			record.Status = InvitationActive
		}
	}

	created, err := r.Repository.CreateTx(ctx, tx, record, criteria...)
	if err != nil {
		if IsUniqueViolation(err) {
			return nil, ErrEmailTaken
		}
		return nil, err
	}
	return created, nil
}

func (r *invitations) MarkAccepted(ctx context.Context, id uuid.UUID, acceptedAt time.Time) (*Invitation, error) {
	return r.MarkAcceptedTx(ctx, r.db, id, acceptedAt)
}

func (r *invitations) MarkAcceptedTx(ctx context.Context, tx bun.IDB, id uuid.UUID, acceptedAt time.Time) (*Invitation, error) {
	record := MarkAccepted(id, acceptedAt)
	return r.Repository.UpdateTx(ctx, tx, record, repository.UpdateByID(id.String()))
}
