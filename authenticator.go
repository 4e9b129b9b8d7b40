package auth

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
)

// Auther implements the session authenticator: credential verification,
// token issuance, current-identity resolution, and refresh.
type Auther struct {
	users           Users
	accessTokens    TokenService
	refreshTokens   TokenService
	accessTokenTTL  time.Duration
	refreshTokenTTL time.Duration
	logger          Logger
	activitySink    ActivitySink
}

// NewAuthenticator returns a new Auther wired from the explicit config.
// Access and refresh tokens are signed with distinct secrets so neither can
// stand in for the other.
func NewAuthenticator(users Users, cfg Config) *Auther {
	cfg = cfg.WithDefaults()

	return &Auther{
		users:           users,
		accessTokens:    NewTokenService([]byte(cfg.SigningKey), cfg.Issuer),
		refreshTokens:   NewTokenService([]byte(cfg.RefreshSigningKey), cfg.Issuer),
		accessTokenTTL:  cfg.AccessTokenTTL,
		refreshTokenTTL: cfg.RefreshTokenTTL,
		logger:          defLogger{},
		activitySink:    noopActivitySink{},
	}
}

// WithLogger overrides the default logger.
func (s *Auther) WithLogger(logger Logger) *Auther {
	if logger != nil {
		s.logger = logger
	}
	return s
}

// WithActivitySink configures an ActivitySink for emitting auth events.
func (s *Auther) WithActivitySink(sink ActivitySink) *Auther {
	s.activitySink = normalizeActivitySink(sink)
	return s
}

// WithTokenServices replaces the token services, mostly for tests that need
// a fixed clock.
func (s *Auther) WithTokenServices(access, refresh TokenService) *Auther {
	if access != nil {
		s.accessTokens = access
	}
	if refresh != nil {
		s.refreshTokens = refresh
	}
	return s
}

// AccessTokens exposes the access/activation-purpose token service.
func (s *Auther) AccessTokens() TokenService {
	return s.accessTokens
}

// RefreshTokens exposes the refresh-purpose token service.
func (s *Auther) RefreshTokens() TokenService {
	return s.refreshTokens
}

// Authenticate verifies the email/password pair against the credential
// store. Unknown email and wrong password are indistinguishable to the
// caller: both return ErrInvalidCredentials.
func (s *Auther) Authenticate(ctx context.Context, email, password string) (Identity, error) {
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if goerrors.Is(err, ErrIdentityNotFound) {
			s.emitAuthEvent(ctx, ActivityEventLoginFailure, "", email, map[string]any{
				"reason": "unknown email",
			})
			return nil, ErrInvalidCredentials
		}
		s.logger.Error("authenticate lookup error: %v", err)
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to retrieve user during authentication")
	}

	if err := ComparePasswordAndHash(password, user.PasswordHash); err != nil {
		if goerrors.Is(err, ErrMismatchedHashAndPassword) {
			s.emitAuthEvent(ctx, ActivityEventLoginFailure, user.ID.String(), email, map[string]any{
				"reason": "password mismatch",
			})
			return nil, ErrInvalidCredentials
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to compare password hash")
	}

	if err := statusAuthError(user.Status); err != nil {
		s.logger.Warn("login blocked due to user status: %s", user.Status)
		s.emitAuthEvent(ctx, ActivityEventLoginFailure, user.ID.String(), email, map[string]any{
			"reason": "inactive account",
			"status": user.Status,
		})
		return nil, err
	}

	s.emitAuthEvent(ctx, ActivityEventLoginSuccess, user.ID.String(), email, nil)

	return NewIdentityFromUser(user), nil
}

// IdentityFromToken resolves the account behind an access token. Tokens are
// not invalidated when an account disappears, so a decoded token can still
// miss: that surfaces as ErrIdentityNotFound.
func (s *Auther) IdentityFromToken(ctx context.Context, token string) (Identity, error) {
	claims, err := s.accessTokens.Decode(token)
	if err != nil {
		return nil, err
	}

	id, err := uuid.Parse(claims.Subject())
	if err != nil {
		return nil, ErrTokenMalformed
	}

	user, err := s.users.GetByUserID(ctx, id)
	if err != nil {
		return nil, err
	}

	return NewIdentityFromUser(user), nil
}

// IssueSession mints the access/refresh token pair for an identity.
func (s *Auther) IssueSession(ctx context.Context, identity Identity) (Session, error) {
	if identity == nil {
		return Session{}, goerrors.New("identity is required", goerrors.CategoryBadInput)
	}

	access, err := s.accessTokens.Encode(identity.ID(), identity.Email(), s.accessTokenTTL)
	if err != nil {
		return Session{}, err
	}

	refresh, err := s.refreshTokens.Encode(identity.ID(), identity.Email(), s.refreshTokenTTL)
	if err != nil {
		return Session{}, err
	}

	return Session{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    "bearer",
	}, nil
}

// Refresh validates a refresh token and mints a fresh access token. The
// subject must still resolve to a live account whose email matches the
// claim; drift since issuance invalidates the token.
func (s *Auther) Refresh(ctx context.Context, refreshToken string) (string, error) {
	claims, err := s.refreshTokens.Decode(refreshToken)
	if err != nil {
		return "", err
	}

	id, err := uuid.Parse(claims.Subject())
	if err != nil {
		return "", ErrTokenMalformed
	}

	user, err := s.users.GetByUserID(ctx, id)
	if err != nil {
		// A refresh token whose subject no longer resolves is treated as an
		// invalid token, same as an email-claim mismatch.
		if goerrors.Is(err, ErrIdentityNotFound) {
			return "", ErrTokenMalformed
		}
		return "", err
	}

	if user.Email != claims.UserEmail() {
		s.logger.Warn("refresh token email claim does not match account %s", user.ID)
		return "", ErrTokenMalformed
	}

	if err := statusAuthError(user.Status); err != nil {
		return "", err
	}

	access, err := s.accessTokens.Encode(user.ID.String(), user.Email, s.accessTokenTTL)
	if err != nil {
		return "", err
	}

	s.emitAuthEvent(ctx, ActivityEventSessionRefreshed, user.ID.String(), user.Email, nil)

	return access, nil
}

func (s *Auther) emitAuthEvent(ctx context.Context, eventType ActivityEventType, userID, email string, metadata map[string]any) {
	sink := normalizeActivitySink(s.activitySink)
	event := ActivityEvent{
		EventType:  eventType,
		UserID:     userID,
		Email:      email,
		Metadata:   metadata,
		OccurredAt: time.Now(),
	}

	if event.Metadata == nil {
		event.Metadata = map[string]any{}
	}

	if err := sink.Record(ctx, event); err != nil {
		s.logger.Warn("activity sink record error: %v", err)
	}
}

var _ Authenticator = (*Auther)(nil)
