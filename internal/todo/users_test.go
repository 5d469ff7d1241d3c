package todo

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"gorm.io/gorm"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	return db
}

func TestRegisterAndFind(t *testing.T) {
	ctx := context.Background()
	users := NewUserStore(openTestDB(t))

	created, err := users.Register(ctx, "alice", "digest-a")
	if err != nil {
		t.Fatalf("Register returned error: %v", err)
	}
	if created.ID == 0 {
		t.Fatal("expected a fresh identifier to be assigned")
	}

	byName, err := users.FindByUsername(ctx, "alice")
	if err != nil {
		t.Fatalf("FindByUsername returned error: %v", err)
	}
	if byName.ID != created.ID || byName.PasswordHash != "digest-a" {
		t.Fatalf("unexpected user: %+v", byName)
	}

	byID, err := users.FindByID(ctx, created.ID)
	if err != nil {
		t.Fatalf("FindByID returned error: %v", err)
	}
	if byID.Username != "alice" {
		t.Fatalf("unexpected username: %q", byID.Username)
	}
}

func TestRegisterDuplicateUsername(t *testing.T) {
	ctx := context.Background()
	users := NewUserStore(openTestDB(t))

	if _, err := users.Register(ctx, "alice", "digest-a"); err != nil {
		t.Fatalf("first Register returned error: %v", err)
	}

	_, err := users.Register(ctx, "alice", "digest-b")
	if !errors.Is(err, ErrDuplicateUsername) {
		t.Fatalf("expected ErrDuplicateUsername, got %v", err)
	}
}

func TestFindByUsernameIsCaseSensitive(t *testing.T) {
	ctx := context.Background()
	users := NewUserStore(openTestDB(t))

	if _, err := users.Register(ctx, "Alice", "digest-a"); err != nil {
		t.Fatalf("Register returned error: %v", err)
	}

	if _, err := users.FindByUsername(ctx, "alice"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for different case, got %v", err)
	}
}

func TestFindMissingUser(t *testing.T) {
	ctx := context.Background()
	users := NewUserStore(openTestDB(t))

	if _, err := users.FindByUsername(ctx, "nobody"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := users.FindByID(ctx, 12345); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
