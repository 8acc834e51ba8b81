package sqlite

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/sakif/connection-points/internal/apperror"
	"github.com/sakif/connection-points/internal/model"
	"github.com/sakif/connection-points/internal/repository"
)

// createTestUser creates a user and fails the test if it errors.
func createTestUser(t *testing.T, db *DB, name, email string) *model.User {
	t.Helper()
	user := &model.User{
		Email:       email,
		Name:        name,
		DisplayName: name,
		CreateDate:  testTime(),
		Password:    "$2a$10$hash",
	}
	if err := db.CreateUser(context.Background(), user); err != nil {
		t.Fatalf("failed to create test user: %v", err)
	}
	return user
}

// =========================================================================
// CREATE TESTS
// =========================================================================

func TestUserCreate(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	user := &model.User{Email: "bob@example.com", Name: "bob", Password: "hash"}
	if err := db.CreateUser(ctx, user); err != nil {
		t.Fatalf("CreateUser() error = %v", err)
	}
	if user.CreateDate.IsZero() {
		t.Error("CreateUser() did not set CreateDate")
	}

	got, err := db.GetUserByEmail(ctx, "bob@example.com")
	if err != nil {
		t.Fatalf("GetUserByEmail() error = %v", err)
	}
	if got.Name != "bob" || got.Password != "hash" {
		t.Errorf("GetUserByEmail() = %+v", got)
	}
	if got.Parties == nil || len(got.Parties) != 0 {
		t.Errorf("Parties = %v, want empty non-nil slice", got.Parties)
	}
}

func TestUserCreate_DuplicateEmail(t *testing.T) {
	db := newTestDB(t)
	createTestUser(t, db, "bob", "bob@example.com")

	err := db.CreateUser(context.Background(), &model.User{Email: "bob@example.com", Name: "robert", Password: "x"})
	if !errors.Is(err, apperror.ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}

	got, err := db.GetUserByEmail(context.Background(), "bob@example.com")
	if err != nil {
		t.Fatalf("GetUserByEmail() error = %v", err)
	}
	if got.Name != "bob" {
		t.Errorf("existing row overwritten, name = %q", got.Name)
	}
}

func TestUserCreate_ZeroRowsAffected(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectExec(`INSERT INTO users`).WillReturnResult(sqlmock.NewResult(0, 0))

	err := db.CreateUser(context.Background(), &model.User{Email: "a@b.c", Name: "a", Password: "x"})
	if !errors.Is(err, apperror.ErrConflict) {
		t.Errorf("expected ErrConflict, got %v", err)
	}
}

// =========================================================================
// LOOKUP TESTS
// =========================================================================

func TestUserGetByEmail_NotFound(t *testing.T) {
	db := newTestDB(t)

	_, err := db.GetUserByEmail(context.Background(), "nobody@example.com")
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestUserGetByName(t *testing.T) {
	db := newTestDB(t)
	createTestUser(t, db, "alice", "alice@example.com")
	createTestUser(t, db, "bob", "bob@example.com")

	got, err := db.GetUserByName(context.Background(), "bob")
	if err != nil {
		t.Fatalf("GetUserByName() error = %v", err)
	}
	if got.Email != "bob@example.com" {
		t.Errorf("GetUserByName() email = %q", got.Email)
	}

	_, err = db.GetUserByName(context.Background(), "carol")
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

// =========================================================================
// LIST TESTS
// =========================================================================

func TestListUsers_Empty(t *testing.T) {
	db := newTestDB(t)

	page, err := db.ListUsers(context.Background(), repository.ListOptions{})
	if err != nil {
		t.Fatalf("ListUsers() error = %v", err)
	}
	if len(page.Items) != 0 || page.Next != "" {
		t.Errorf("ListUsers() = %+v, want empty last page", page)
	}
}

func TestListUsers_Pagination(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		name := fmt.Sprintf("user%d", i)
		createTestUser(t, db, name, name+"@example.com")
	}

	var seen []string
	opts := repository.ListOptions{Limit: 2}
	for pages := 0; ; pages++ {
		if pages > 5 {
			t.Fatal("pagination did not terminate")
		}
		page, err := db.ListUsers(ctx, opts)
		if err != nil {
			t.Fatalf("ListUsers() error = %v", err)
		}
		if len(page.Items) > 2 {
			t.Fatalf("page has %d items, limit 2", len(page.Items))
		}
		for _, u := range page.Items {
			seen = append(seen, u.Email)
		}
		if page.Next == "" {
			break
		}
		opts.After = page.Next
	}

	if len(seen) != 5 {
		t.Fatalf("saw %d users, want 5: %v", len(seen), seen)
	}
	for i := 1; i < len(seen); i++ {
		if seen[i-1] >= seen[i] {
			t.Errorf("users not in email order: %v", seen)
		}
	}
}

func TestListUsers_ExactPageHasNoCursor(t *testing.T) {
	db := newTestDB(t)
	createTestUser(t, db, "a", "a@example.com")
	createTestUser(t, db, "b", "b@example.com")

	page, err := db.ListUsers(context.Background(), repository.ListOptions{Limit: 2})
	if err != nil {
		t.Fatalf("ListUsers() error = %v", err)
	}
	if len(page.Items) != 2 {
		t.Errorf("got %d items, want 2", len(page.Items))
	}
	if page.Next != "" {
		t.Errorf("Next = %q on the last page", page.Next)
	}
}

// =========================================================================
// UPDATE TESTS
// =========================================================================

func TestUpdatePassword(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	createTestUser(t, db, "bob", "bob@example.com")

	if err := db.UpdatePassword(ctx, "bob@example.com", "newhash"); err != nil {
		t.Fatalf("UpdatePassword() error = %v", err)
	}
	got, err := db.GetUserByEmail(ctx, "bob@example.com")
	if err != nil {
		t.Fatalf("GetUserByEmail() error = %v", err)
	}
	if got.Password != "newhash" {
		t.Errorf("Password = %q, want newhash", got.Password)
	}
}

func TestUpdatePassword_NotFound(t *testing.T) {
	db := newTestDB(t)

	err := db.UpdatePassword(context.Background(), "ghost@example.com", "x")
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestAddParty(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	createTestUser(t, db, "bob", "bob@example.com")

	for _, id := range []string{"p1", "p2", "p1"} {
		if err := db.AddParty(ctx, "bob@example.com", id); err != nil {
			t.Fatalf("AddParty(%s) error = %v", id, err)
		}
	}

	got, err := db.GetUserByEmail(ctx, "bob@example.com")
	if err != nil {
		t.Fatalf("GetUserByEmail() error = %v", err)
	}
	if len(got.Parties) != 2 || got.Parties[0] != "p1" || got.Parties[1] != "p2" {
		t.Errorf("Parties = %v, want [p1 p2]", got.Parties)
	}
	if !got.MemberOf("p2") {
		t.Error("MemberOf(p2) = false")
	}
}

func TestAddParty_UnknownUser(t *testing.T) {
	db := newTestDB(t)

	err := db.AddParty(context.Background(), "ghost@example.com", "p1")
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}
