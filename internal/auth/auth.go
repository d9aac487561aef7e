// Package auth handles account registration and stateless JWT sessions. The
// rest of the application never sees tokens: the HTTP middleware resolves
// the bearer token to an owner id and passes it down explicitly.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"fintrack/internal/core"
	"fintrack/internal/log"
	"fintrack/internal/store"
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrInvalidToken       = errors.New("invalid or expired token")
	ErrEmailTaken         = errors.New("email already registered")
)

type Service struct {
	store    store.UserStore
	secret   []byte
	tokenTTL time.Duration
	logger   *log.Logger
}

func NewService(s store.UserStore, secret string, tokenTTL time.Duration, logger *log.Logger) *Service {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &Service{
		store:    s,
		secret:   []byte(secret),
		tokenTTL: tokenTTL,
		logger:   logger.WithComponent(log.ComponentAuth),
	}
}

// Register creates an account with a bcrypt-hashed password.
func (s *Service) Register(ctx context.Context, email, name, password string) (core.User, error) {
	var missing []string
	if strings.TrimSpace(email) == "" {
		missing = append(missing, "email")
	}
	if password == "" {
		missing = append(missing, "password")
	}
	if len(missing) > 0 {
		return core.User{}, core.NewValidationError(missing...)
	}
	if len(password) < 8 {
		return core.User{}, core.NewValidationError("password of at least 8 characters")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return core.User{}, fmt.Errorf("hash password: %w", err)
	}

	user := core.User{
		Email:        strings.ToLower(strings.TrimSpace(email)),
		Name:         name,
		PasswordHash: string(hash),
	}
	id, err := s.store.CreateUser(ctx, user)
	if errors.Is(err, store.ErrDuplicateEmail) {
		return core.User{}, ErrEmailTaken
	}
	if err != nil {
		return core.User{}, fmt.Errorf("create user: %w", err)
	}
	user.ID = id
	user.PasswordHash = ""

	s.logger.InfoContext(ctx, "Registered user", log.FieldOwnerID, id)
	return user, nil
}

// Login verifies credentials and returns the account plus a signed token.
// Wrong email and wrong password are indistinguishable to the caller.
func (s *Service) Login(ctx context.Context, email, password string) (core.User, string, error) {
	user, err := s.store.UserByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if errors.Is(err, store.ErrNotFound) {
		return core.User{}, "", ErrInvalidCredentials
	}
	if err != nil {
		return core.User{}, "", fmt.Errorf("lookup user: %w", err)
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return core.User{}, "", ErrInvalidCredentials
	}

	token, err := s.TokenFor(user.ID)
	if err != nil {
		return core.User{}, "", err
	}
	user.PasswordHash = ""
	return user, token, nil
}

// TokenFor signs a session token for an already-authenticated owner.
func (s *Service) TokenFor(ownerID int64) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   strconv.FormatInt(ownerID, 10),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.tokenTTL)),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// ParseToken validates a signed token and returns the owner id it carries.
func (s *Service) ParseToken(tokenString string) (int64, error) {
	var claims jwt.RegisteredClaims
	token, err := jwt.ParseWithClaims(tokenString, &claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil || !token.Valid {
		return 0, ErrInvalidToken
	}

	ownerID, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil || ownerID <= 0 {
		return 0, ErrInvalidToken
	}
	return ownerID, nil
}
