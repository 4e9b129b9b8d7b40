package auth_test

import (
	"context"
	"database/sql"
	"sync"
	"testing"
	"time"

	repository "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/uptrace/bun"

	auth "github.com/learnit/go-auth"
)

// MockUsers implements auth.Users. The embedded interface covers the
// repository methods a given test never touches.
type MockUsers struct {
	mock.Mock
	auth.Users
}

func (m *MockUsers) GetByEmail(ctx context.Context, email string) (*auth.User, error) {
	args := m.Called(ctx, email)
	user, _ := args.Get(0).(*auth.User)
	return user, args.Error(1)
}

func (m *MockUsers) GetByEmailTx(ctx context.Context, tx bun.IDB, email string) (*auth.User, error) {
	args := m.Called(ctx, tx, email)
	user, _ := args.Get(0).(*auth.User)
	return user, args.Error(1)
}

func (m *MockUsers) GetByUserID(ctx context.Context, id uuid.UUID) (*auth.User, error) {
	args := m.Called(ctx, id)
	user, _ := args.Get(0).(*auth.User)
	return user, args.Error(1)
}

func (m *MockUsers) GetByUserIDTx(ctx context.Context, tx bun.IDB, id uuid.UUID) (*auth.User, error) {
	args := m.Called(ctx, tx, id)
	user, _ := args.Get(0).(*auth.User)
	return user, args.Error(1)
}

// CreateTx echoes the record back when the expectation returns a nil user,
// so tests can mutate it through Run and still see the handler's input.
func (m *MockUsers) CreateTx(ctx context.Context, tx bun.IDB, record *auth.User, criteria ...repository.InsertCriteria) (*auth.User, error) {
	args := m.Called(ctx, tx, record)
	if user, ok := args.Get(0).(*auth.User); ok && user != nil {
		return user, args.Error(1)
	}
	if args.Error(1) != nil {
		return nil, args.Error(1)
	}
	return record, nil
}

func (m *MockUsers) UpdateTx(ctx context.Context, tx bun.IDB, record *auth.User, criteria ...repository.UpdateCriteria) (*auth.User, error) {
	args := m.Called(ctx, tx, record)
	if user, ok := args.Get(0).(*auth.User); ok && user != nil {
		return user, args.Error(1)
	}
	if args.Error(1) != nil {
		return nil, args.Error(1)
	}
	return record, nil
}

func (m *MockUsers) UpdateStatus(ctx context.Context, id uuid.UUID, status auth.UserStatus, opts ...auth.StatusUpdateOption) (*auth.User, error) {
	args := m.Called(ctx, id, status)
	user, _ := args.Get(0).(*auth.User)
	return user, args.Error(1)
}

func (m *MockUsers) UpdateStatusTx(ctx context.Context, tx bun.IDB, id uuid.UUID, status auth.UserStatus, opts ...auth.StatusUpdateOption) (*auth.User, error) {
	args := m.Called(ctx, tx, id, status)
	user, _ := args.Get(0).(*auth.User)
	return user, args.Error(1)
}

func (m *MockUsers) SetPassword(ctx context.Context, id uuid.UUID, passwordHash string) error {
	args := m.Called(ctx, id, passwordHash)
	return args.Error(0)
}

func (m *MockUsers) SetPasswordTx(ctx context.Context, tx bun.IDB, id uuid.UUID, passwordHash string) error {
	args := m.Called(ctx, tx, id, passwordHash)
	return args.Error(0)
}

// MockInvitations implements auth.Invitations.
type MockInvitations struct {
	mock.Mock
	auth.Invitations
}

func (m *MockInvitations) GetByEmail(ctx context.Context, email string) (*auth.Invitation, error) {
	args := m.Called(ctx, email)
	inv, _ := args.Get(0).(*auth.Invitation)
	return inv, args.Error(1)
}

func (m *MockInvitations) GetByEmailTx(ctx context.Context, tx bun.IDB, email string) (*auth.Invitation, error) {
	args := m.Called(ctx, tx, email)
	inv, _ := args.Get(0).(*auth.Invitation)
	return inv, args.Error(1)
}

func (m *MockInvitations) CreateTx(ctx context.Context, tx bun.IDB, record *auth.Invitation, criteria ...repository.InsertCriteria) (*auth.Invitation, error) {
	args := m.Called(ctx, tx, record)
	if inv, ok := args.Get(0).(*auth.Invitation); ok && inv != nil {
		return inv, args.Error(1)
	}
	if args.Error(1) != nil {
		return nil, args.Error(1)
	}
	return record, nil
}

func (m *MockInvitations) MarkAcceptedTx(ctx context.Context, tx bun.IDB, id uuid.UUID, acceptedAt time.Time) (*auth.Invitation, error) {
	args := m.Called(ctx, tx, id, acceptedAt)
	inv, _ := args.Get(0).(*auth.Invitation)
	return inv, args.Error(1)
}

// mockRepoManager wires the mocks into an auth.RepositoryManager. RunInTx
// hands the callback a zero bun.Tx; the mocks never touch it.
type mockRepoManager struct {
	users       *MockUsers
	invitations *MockInvitations
	txCalls     int
	txErr       error
}

func newMockRepoManager() *mockRepoManager {
	return &mockRepoManager{
		users:       &MockUsers{},
		invitations: &MockInvitations{},
	}
}

func (m *mockRepoManager) Validate() error { return nil }
func (m *mockRepoManager) MustValidate()   {}

func (m *mockRepoManager) RunInTx(ctx context.Context, opts *sql.TxOptions, f func(ctx context.Context, tx bun.Tx) error) error {
	m.txCalls++
	if m.txErr != nil {
		return m.txErr
	}
	return f(ctx, bun.Tx{})
}

func (m *mockRepoManager) Users() auth.Users             { return m.users }
func (m *mockRepoManager) Invitations() auth.Invitations { return m.invitations }

var _ auth.RepositoryManager = (*mockRepoManager)(nil)

// capturingSink records every activity event it sees.
type capturingSink struct {
	events []auth.ActivityEvent
}

func (c *capturingSink) Record(ctx context.Context, event auth.ActivityEvent) error {
	c.events = append(c.events, event)
	return nil
}

func (c *capturingSink) eventTypes() []auth.ActivityEventType {
	types := make([]auth.ActivityEventType, 0, len(c.events))
	for _, event := range c.events {
		types = append(types, event.EventType)
	}
	return types
}

// captureMailer records dispatched notifications and signals delivery, so
// tests can wait out the fire-and-forget goroutine.
type captureMailer struct {
	mu         sync.Mutex
	invites    []capturedMail
	resets     []capturedMail
	dispatched chan struct{}
}

type capturedMail struct {
	toEmail string
	url     string
}

func newCaptureMailer() *captureMailer {
	return &captureMailer{dispatched: make(chan struct{}, 4)}
}

func (m *captureMailer) SendInvitationEmail(ctx context.Context, toEmail, activationURL string) error {
	m.mu.Lock()
	m.invites = append(m.invites, capturedMail{toEmail: toEmail, url: activationURL})
	m.mu.Unlock()
	m.dispatched <- struct{}{}
	return nil
}

func (m *captureMailer) SendPasswordResetEmail(ctx context.Context, toEmail, resetURL string) error {
	m.mu.Lock()
	m.resets = append(m.resets, capturedMail{toEmail: toEmail, url: resetURL})
	m.mu.Unlock()
	m.dispatched <- struct{}{}
	return nil
}

func (m *captureMailer) waitForDispatch(t *testing.T) {
	t.Helper()
	select {
	case <-m.dispatched:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for mail dispatch")
	}
}

func (m *captureMailer) sentInvites() []capturedMail {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]capturedMail(nil), m.invites...)
}

func (m *captureMailer) sentResets() []capturedMail {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]capturedMail(nil), m.resets...)
}

func testConfig() auth.Config {
	return auth.Config{
		SigningKey:        "test-signing-key-0123456789",
		RefreshSigningKey: "test-refresh-key-0123456789",
		Issuer:            "learnit-test",
		BaseURL:           "https://app.example.com",
	}.WithDefaults()
}
