package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/rl1809/shop-admin/internal/core/domain"
	"github.com/rl1809/shop-admin/internal/port"
)

type session struct {
	identity  domain.Identity
	expiresAt time.Time
}

// IdentityService signs users in and out and broadcasts every auth-state
// change to its subscribers.
type IdentityService struct {
	users    port.UserRepository
	hasher   port.PasswordHasher
	tokens   port.TokenIssuer
	verifier port.FederatedVerifier
	opts     options

	mu       sync.RWMutex
	sessions map[string]session
	subs     map[uint64]func(domain.AuthState)
	nextSub  uint64
}

// NewIdentityService wires the identity ports. verifier may be nil, which
// disables federated sign-in.
func NewIdentityService(users port.UserRepository, hasher port.PasswordHasher, tokens port.TokenIssuer, verifier port.FederatedVerifier, opts ...Option) *IdentityService {
	return &IdentityService{
		users:    users,
		hasher:   hasher,
		tokens:   tokens,
		verifier: verifier,
		opts:     buildOptions(opts),
		sessions: make(map[string]session),
		subs:     make(map[uint64]func(domain.AuthState)),
	}
}

func (s *IdentityService) Register(ctx context.Context, req domain.RegisterRequest) (*domain.Session, error) {
	if err := validateStruct(req); err != nil {
		return nil, err
	}
	email := normalizeEmail(req.Email)

	if _, err := s.users.FindByEmail(ctx, email); err == nil {
		return nil, &domain.AuthError{Reason: "email already registered"}
	} else if !errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("find user: %w", err)
	}

	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	now := s.opts.now()
	user := &domain.User{
		ID:           uuid.NewString(),
		Email:        email,
		DisplayName:  strings.TrimSpace(req.Name),
		PasswordHash: hash,
		Provider:     domain.ProviderPassword,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, domain.ErrUserExists) {
			return nil, &domain.AuthError{Reason: "email already registered"}
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	return s.startSession(*user)
}

func (s *IdentityService) SignInWithPassword(ctx context.Context, req domain.LoginRequest) (*domain.Session, error) {
	if err := validateStruct(req); err != nil {
		return nil, err
	}

	user, err := s.users.FindByEmail(ctx, normalizeEmail(req.Email))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, &domain.AuthError{Reason: "invalid email or password"}
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	if user.PasswordHash == "" || !s.hasher.Verify(req.Password, user.PasswordHash) {
		return nil, &domain.AuthError{Reason: "invalid email or password"}
	}

	return s.startSession(*user)
}

// SignInFederated trusts the external provider for the email address and
// creates a local user the first time it is seen.
func (s *IdentityService) SignInFederated(ctx context.Context, req domain.FederatedLoginRequest) (*domain.Session, error) {
	if err := validateStruct(req); err != nil {
		return nil, err
	}
	if s.verifier == nil {
		return nil, &domain.AuthError{Reason: "federated sign-in is not configured"}
	}

	profile, err := s.verifier.Verify(ctx, req.IDToken)
	if err != nil {
		var aerr *domain.AuthError
		if errors.As(err, &aerr) {
			return nil, err
		}
		return nil, &domain.AuthError{Reason: err.Error()}
	}
	if profile.Email == "" || !profile.EmailVerified {
		return nil, &domain.AuthError{Reason: "provider did not confirm the email address"}
	}
	email := normalizeEmail(profile.Email)

	user, err := s.users.FindByEmail(ctx, email)
	switch {
	case err == nil:
	case errors.Is(err, domain.ErrNotFound):
		now := s.opts.now()
		user = &domain.User{
			ID:          uuid.NewString(),
			Email:       email,
			DisplayName: profile.Name,
			PhotoURL:    profile.Picture,
			Provider:    req.Provider,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		if err := s.users.Create(ctx, user); err != nil {
			return nil, fmt.Errorf("create user: %w", err)
		}
	default:
		return nil, fmt.Errorf("find user: %w", err)
	}

	return s.startSession(*user)
}

// SignOut ends a session. Unknown sessions are ignored.
func (s *IdentityService) SignOut(_ context.Context, sessionID string) {
	s.mu.Lock()
	_, ok := s.sessions[sessionID]
	delete(s.sessions, sessionID)
	s.mu.Unlock()

	if ok {
		s.notify(domain.AuthState{SessionID: sessionID})
	}
}

// Authenticate resolves a session token to the signed-in identity.
func (s *IdentityService) Authenticate(_ context.Context, token string) (*domain.Identity, string, error) {
	claims, err := s.tokens.Parse(token)
	if err != nil {
		return nil, "", &domain.AuthError{Reason: "invalid or expired token"}
	}

	s.mu.RLock()
	sess, ok := s.sessions[claims.SessionID]
	s.mu.RUnlock()
	if !ok || !sess.expiresAt.After(s.opts.now()) {
		return nil, "", &domain.AuthError{Reason: "session has ended"}
	}

	identity := sess.identity
	return &identity, claims.SessionID, nil
}

// Subscribe registers fn for auth-state changes. The returned function
// removes the subscription and may be called more than once.
func (s *IdentityService) Subscribe(fn func(domain.AuthState)) func() {
	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.subs, id)
			s.mu.Unlock()
		})
	}
}

func (s *IdentityService) startSession(user domain.User) (*domain.Session, error) {
	sessionID := uuid.NewString()
	token, expiresAt, err := s.tokens.Issue(user, sessionID)
	if err != nil {
		return nil, fmt.Errorf("issue token: %w", err)
	}
	identity := user.Identity()

	now := s.opts.now()
	s.mu.Lock()
	for id, sess := range s.sessions {
		if !sess.expiresAt.After(now) {
			delete(s.sessions, id)
		}
	}
	s.sessions[sessionID] = session{identity: identity, expiresAt: expiresAt}
	s.mu.Unlock()

	s.opts.logger.Info("user signed in", "uid", user.ID, "provider", user.Provider)
	s.notify(domain.AuthState{Identity: &identity, SessionID: sessionID})

	return &domain.Session{
		Token:     token,
		SessionID: sessionID,
		ExpiresAt: expiresAt,
		Identity:  identity,
	}, nil
}

func (s *IdentityService) notify(state domain.AuthState) {
	s.mu.RLock()
	subs := make([]func(domain.AuthState), 0, len(s.subs))
	for _, fn := range s.subs {
		subs = append(subs, fn)
	}
	s.mu.RUnlock()

	for _, fn := range subs {
		fn(state)
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
