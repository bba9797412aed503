package auth

import (
	"context"
	"errors"
	"testing"

	"github.com/vladislavdragonenkov/mall/internal/domain"
	"github.com/vladislavdragonenkov/mall/internal/storage/memory"
)

func newService(t *testing.T) (*Service, domain.CustomerRepository) {
	t.Helper()
	customers := memory.NewCustomerRepository(memory.NewStore())
	return NewService(customers, "test-secret", nil), customers
}

func TestRegisterAndLogin(t *testing.T) {
	svc, _ := newService(t)

	customer, err := svc.Register(context.Background(), "alice", "s3cret", "alice@example.com", "")
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if customer.ID == 0 {
		t.Fatal("customer id must be assigned")
	}
	if customer.PasswordHash == "s3cret" {
		t.Fatal("password must not be stored in plain text")
	}

	token, logged, err := svc.Login(context.Background(), "alice", "s3cret")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if token == "" {
		t.Fatal("expected non-empty token")
	}
	if logged.ID != customer.ID {
		t.Fatalf("unexpected customer: %+v", logged)
	}
}

func TestUpdateProfile(t *testing.T) {
	svc, _ := newService(t)

	customer, err := svc.Register(context.Background(), "alice", "s3cret", "old@example.com", "111")
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	updated, err := svc.UpdateProfile(context.Background(), customer.ID, "new@example.com", "222")
	if err != nil {
		t.Fatalf("update profile: %v", err)
	}
	if updated.Email != "new@example.com" || updated.Phone != "222" {
		t.Fatalf("profile not applied: %+v", updated)
	}
	if updated.Username != "alice" {
		t.Fatalf("username must not change, got %s", updated.Username)
	}

	stored, err := svc.Profile(context.Background(), customer.ID)
	if err != nil {
		t.Fatalf("profile: %v", err)
	}
	if stored.Email != "new@example.com" || stored.Phone != "222" {
		t.Fatalf("profile not persisted: %+v", stored)
	}

	// Пароль переживает смену контактов.
	if _, _, err := svc.Login(context.Background(), "alice", "s3cret"); err != nil {
		t.Fatalf("login after profile update: %v", err)
	}
}

func TestUpdateProfile_UnknownCustomer(t *testing.T) {
	svc, _ := newService(t)

	if _, err := svc.UpdateProfile(context.Background(), 404, "x@example.com", ""); !errors.Is(err, domain.ErrCustomerNotFound) {
		t.Fatalf("expected ErrCustomerNotFound, got %v", err)
	}
}

func TestLogin_WrongPassword(t *testing.T) {
	svc, _ := newService(t)

	if _, err := svc.Register(context.Background(), "alice", "s3cret", "", ""); err != nil {
		t.Fatalf("register: %v", err)
	}

	if _, _, err := svc.Login(context.Background(), "alice", "wrong"); !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	if _, _, err := svc.Login(context.Background(), "nobody", "s3cret"); !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Fatalf("unknown user must look like bad credentials, got %v", err)
	}
}

func TestRegister_DuplicateUsername(t *testing.T) {
	svc, _ := newService(t)

	if _, err := svc.Register(context.Background(), "alice", "s3cret", "", ""); err != nil {
		t.Fatalf("register: %v", err)
	}
	if _, err := svc.Register(context.Background(), "alice", "other", "", ""); !errors.Is(err, domain.ErrUsernameTaken) {
		t.Fatalf("expected ErrUsernameTaken, got %v", err)
	}
}

func TestParseToken(t *testing.T) {
	svc, _ := newService(t)

	customer, err := svc.Register(context.Background(), "admin", "s3cret", "", "")
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	token, _, err := svc.Login(context.Background(), "admin", "s3cret")
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	claims, err := svc.ParseToken(token)
	if err != nil {
		t.Fatalf("parse token: %v", err)
	}
	if claims.Username != "admin" {
		t.Fatalf("unexpected username claim: %s", claims.Username)
	}
	id, err := claims.CustomerID()
	if err != nil {
		t.Fatalf("customer id: %v", err)
	}
	if id != customer.ID {
		t.Fatalf("expected subject %d, got %d", customer.ID, id)
	}
}

func TestParseToken_WrongSecret(t *testing.T) {
	svc, customers := newService(t)

	if _, err := svc.Register(context.Background(), "alice", "s3cret", "", ""); err != nil {
		t.Fatalf("register: %v", err)
	}
	token, _, err := svc.Login(context.Background(), "alice", "s3cret")
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	other := NewService(customers, "another-secret", nil)
	if _, err := other.ParseToken(token); err == nil {
		t.Fatal("token signed with a different secret must not validate")
	}
}
