package forumbindingstore_test

import (
	"errors"
	"testing"

	forumbindingstore "github.com/dalemusser/coursediscuss/internal/app/store/forumbindings"
	"github.com/dalemusser/coursediscuss/internal/app/system/indexes"
	"github.com/dalemusser/coursediscuss/internal/testutil"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
)

func TestStore_InsertAndGet(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := forumbindingstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if _, err := store.Insert(ctx, 12, 340); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	fb, err := store.Get(ctx, 12)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if fb.ForumID != 340 {
		t.Errorf("ForumID: got %d, want %d", fb.ForumID, 340)
	}
	if fb.CreatedAt.IsZero() {
		t.Error("expected CreatedAt to be set")
	}
}

func TestStore_Get_NotFound(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := forumbindingstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	_, err := store.Get(ctx, 99)
	if !errors.Is(err, forumbindingstore.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestStore_Insert_DuplicateCourse(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	if err := indexes.EnsureAll(ctx, db); err != nil {
		t.Fatalf("EnsureAll failed: %v", err)
	}
	store := forumbindingstore.New(db)

	if _, err := store.Insert(ctx, 5, 1); err != nil {
		t.Fatalf("first Insert failed: %v", err)
	}
	_, err := store.Insert(ctx, 5, 2)
	if err == nil {
		t.Fatal("expected duplicate key error on second insert")
	}
	if !wafflemongo.IsDup(err) {
		t.Errorf("expected duplicate key error, got %v", err)
	}

	fb, err := store.Get(ctx, 5)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if fb.ForumID != 1 {
		t.Errorf("ForumID: got %d, want %d", fb.ForumID, 1)
	}
}

func TestStore_DeleteByCourse(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := forumbindingstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if _, err := store.Insert(ctx, 7, 70); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	if err := store.DeleteByCourse(ctx, 7); err != nil {
		t.Fatalf("DeleteByCourse failed: %v", err)
	}
	if _, err := store.Get(ctx, 7); !errors.Is(err, forumbindingstore.ErrNotFound) {
		t.Errorf("expected ErrNotFound after delete, got %v", err)
	}

	// deleting again is a no-op
	if err := store.DeleteByCourse(ctx, 7); err != nil {
		t.Errorf("second DeleteByCourse: got %v, want nil", err)
	}
}
