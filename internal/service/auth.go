package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	cerrors "github.com/connectbuy/catalog/internal/errors"
	"github.com/connectbuy/catalog/internal/store"
	"github.com/google/uuid"
	"github.com/lestrrat-go/jwx/v3/jwa"
	"github.com/lestrrat-go/jwx/v3/jwt"
	"golang.org/x/crypto/bcrypt"
)

// TokenDto is the issued bearer token payload.
type TokenDto struct {
	Token     string `json:"token"`
	TokenType string `json:"token_type"`
	ExpiresIn int64  `json:"expires_in"`
}

// AuthService issues, refreshes, revokes and verifies API bearer tokens.
type AuthService interface {
	// Login checks the credentials and issues a token.
	// Returns ErrInvalidCredentials on any failure; the caller must not be
	// able to distinguish an unknown email from a wrong password.
	Login(ctx context.Context, email, password string) (*TokenDto, error)

	// Logout revokes the given token.
	Logout(ctx context.Context, token string) error

	// Refresh revokes the given token and issues a replacement for the same
	// principal.
	Refresh(ctx context.Context, token string) (*TokenDto, error)

	// Verify checks the token and returns the owning user ID.
	// Returns ErrInvalidToken if the token is malformed, expired or revoked.
	Verify(ctx context.Context, token string) (int64, error)
}

// Auth implements AuthService with HS256-signed JWTs and an in-memory
// revocation list keyed by token ID.
type Auth struct {
	users  store.UserStore
	secret []byte
	issuer string
	ttl    time.Duration

	mu      sync.Mutex
	revoked map[string]time.Time
}

// NewAuth creates a new AuthService.
func NewAuth(users store.UserStore, secret []byte, issuer string, ttl time.Duration) *Auth {
	return &Auth{
		users:   users,
		secret:  secret,
		issuer:  issuer,
		ttl:     ttl,
		revoked: make(map[string]time.Time),
	}
}

// Login checks the credentials and issues a token.
func (s *Auth) Login(ctx context.Context, email, password string) (*TokenDto, error) {
	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, cerrors.ErrUserNotFound) {
			return nil, cerrors.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to fetch user by email: %w", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, cerrors.ErrInvalidCredentials
	}
	return s.issue(user.ID)
}

// Logout revokes the given token.
func (s *Auth) Logout(_ context.Context, token string) error {
	parsed, err := s.parse(token)
	if err != nil {
		return err
	}
	s.revoke(parsed)
	return nil
}

// Refresh revokes the given token and issues a replacement.
func (s *Auth) Refresh(_ context.Context, token string) (*TokenDto, error) {
	parsed, err := s.parse(token)
	if err != nil {
		return nil, err
	}
	userID, err := subjectID(parsed)
	if err != nil {
		return nil, err
	}
	s.revoke(parsed)
	return s.issue(userID)
}

// Verify checks the token and returns the owning user ID.
func (s *Auth) Verify(_ context.Context, token string) (int64, error) {
	parsed, err := s.parse(token)
	if err != nil {
		return 0, err
	}
	return subjectID(parsed)
}

// issue signs a fresh token for the user.
func (s *Auth) issue(userID int64) (*TokenDto, error) {
	now := time.Now()
	token, err := jwt.NewBuilder().
		Subject(strconv.FormatInt(userID, 10)).
		Issuer(s.issuer).
		JwtID(uuid.NewString()).
		IssuedAt(now).
		Expiration(now.Add(s.ttl)).
		Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build token: %w", err)
	}
	signed, err := jwt.Sign(token, jwt.WithKey(jwa.HS256(), s.secret))
	if err != nil {
		return nil, fmt.Errorf("failed to sign token: %w", err)
	}
	return &TokenDto{
		Token:     string(signed),
		TokenType: "bearer",
		ExpiresIn: int64(s.ttl.Seconds()),
	}, nil
}

// parse verifies the signature, issuer and expiry, and rejects revoked tokens.
func (s *Auth) parse(token string) (jwt.Token, error) {
	parsed, err := jwt.Parse([]byte(token),
		jwt.WithKey(jwa.HS256(), s.secret),
		jwt.WithIssuer(s.issuer),
		jwt.WithValidate(true),
	)
	if err != nil {
		return nil, cerrors.ErrInvalidToken
	}
	if jti, ok := parsed.JwtID(); ok {
		s.mu.Lock()
		_, isRevoked := s.revoked[jti]
		s.mu.Unlock()
		if isRevoked {
			return nil, cerrors.ErrInvalidToken
		}
	}
	return parsed, nil
}

// revoke adds the token's ID to the denylist and drops entries whose tokens
// have expired on their own.
func (s *Auth) revoke(token jwt.Token) {
	jti, ok := token.JwtID()
	if !ok {
		return
	}
	exp, ok := token.Expiration()
	if !ok {
		exp = time.Now().Add(s.ttl)
	}

	now := time.Now()
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, expiry := range s.revoked {
		if expiry.Before(now) {
			delete(s.revoked, id)
		}
	}
	s.revoked[jti] = exp
}

func subjectID(token jwt.Token) (int64, error) {
	subject, ok := token.Subject()
	if !ok {
		return 0, cerrors.ErrInvalidToken
	}
	id, err := strconv.ParseInt(subject, 10, 64)
	if err != nil {
		return 0, cerrors.ErrInvalidToken
	}
	return id, nil
}
