package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"fintrack/internal/core"
	"fintrack/internal/store/memory"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func newTestService() *Service {
	return NewService(memory.New(), testSecret, time.Hour, nil)
}

func TestRegisterAndLogin(t *testing.T) {
	s := newTestService()
	ctx := context.Background()

	user, err := s.Register(ctx, "Alice@Example.com", "Alice", "correct horse")
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	if user.ID == 0 {
		t.Error("Register() did not assign an id")
	}
	if user.Email != "alice@example.com" {
		t.Errorf("Email = %q, want lowercased", user.Email)
	}
	if user.PasswordHash != "" {
		t.Error("Register() leaked the password hash")
	}

	loggedIn, token, err := s.Login(ctx, "alice@example.com", "correct horse")
	if err != nil {
		t.Fatalf("Login() error = %v", err)
	}
	if loggedIn.ID != user.ID || loggedIn.PasswordHash != "" {
		t.Errorf("Login() user = %+v, want id %d without hash", loggedIn, user.ID)
	}

	ownerID, err := s.ParseToken(token)
	if err != nil {
		t.Fatalf("ParseToken() error = %v", err)
	}
	if ownerID != user.ID {
		t.Errorf("ParseToken() owner = %d, want %d", ownerID, user.ID)
	}
}

func TestRegisterValidation(t *testing.T) {
	s := newTestService()
	ctx := context.Background()

	if _, err := s.Register(ctx, "", "", ""); !core.IsValidation(err) {
		t.Errorf("Register(empty) error = %v, want ValidationError", err)
	}
	if _, err := s.Register(ctx, "a@b.com", "A", "short"); !core.IsValidation(err) {
		t.Errorf("Register(short password) error = %v, want ValidationError", err)
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	s := newTestService()
	ctx := context.Background()

	if _, err := s.Register(ctx, "a@b.com", "A", "password1"); err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	if _, err := s.Register(ctx, "A@B.com", "B", "password2"); !errors.Is(err, ErrEmailTaken) {
		t.Errorf("Register(duplicate) error = %v, want ErrEmailTaken", err)
	}
}

func TestLoginWrongCredentials(t *testing.T) {
	s := newTestService()
	ctx := context.Background()

	if _, err := s.Register(ctx, "a@b.com", "A", "password1"); err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	if _, _, err := s.Login(ctx, "a@b.com", "wrong"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("Login(bad password) error = %v, want ErrInvalidCredentials", err)
	}
	if _, _, err := s.Login(ctx, "nobody@b.com", "password1"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("Login(unknown email) error = %v, want ErrInvalidCredentials", err)
	}
}

func TestParseTokenRejectsGarbageAndExpired(t *testing.T) {
	s := newTestService()
	ctx := context.Background()

	if _, err := s.ParseToken("not.a.token"); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("ParseToken(garbage) error = %v, want ErrInvalidToken", err)
	}

	// A token signed with a different secret must not validate.
	other := NewService(memory.New(), "another-secret-another-secret-32b", time.Hour, nil)
	if _, err := other.Register(ctx, "a@b.com", "A", "password1"); err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	_, token, err := other.Login(ctx, "a@b.com", "password1")
	if err != nil {
		t.Fatalf("Login() error = %v", err)
	}
	if _, err := s.ParseToken(token); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("ParseToken(wrong secret) error = %v, want ErrInvalidToken", err)
	}

	// Expired immediately.
	expired := NewService(memory.New(), testSecret, -time.Minute, nil)
	if _, err := expired.Register(ctx, "e@b.com", "E", "password1"); err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	_, token, err = expired.Login(ctx, "e@b.com", "password1")
	if err != nil {
		t.Fatalf("Login() error = %v", err)
	}
	if _, err := s.ParseToken(token); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("ParseToken(expired) error = %v, want ErrInvalidToken", err)
	}
}
