package storage

import (
	"errors"
	"path/filepath"
	"testing"
)

func TestSQLiteStoreCRUD(t *testing.T) {
	path := filepath.Join(t.TempDir(), "blobs.db")
	store, err := OpenSQLite(path)
	if err != nil {
		t.Fatalf("OpenSQLite() error = %v", err)
	}
	defer store.Close()

	if _, err := store.Get("missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get(missing) error = %v, want ErrNotFound", err)
	}

	if err := store.Put("session", []byte(`{"session_id":"s1"}`)); err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	value, err := store.Get("session")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if string(value) != `{"session_id":"s1"}` {
		t.Errorf("Get() = %q", value)
	}

	// Overwrite under the same key.
	if err := store.Put("session", []byte(`{"session_id":"s2"}`)); err != nil {
		t.Fatalf("Put() overwrite error = %v", err)
	}
	value, _ = store.Get("session")
	if string(value) != `{"session_id":"s2"}` {
		t.Errorf("Get() after overwrite = %q", value)
	}

	if err := store.Delete("session"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := store.Get("session"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get() after delete error = %v, want ErrNotFound", err)
	}

	// Deleting an absent key is not an error.
	if err := store.Delete("session"); err != nil {
		t.Errorf("Delete() on absent key error = %v", err)
	}
}

func TestSQLiteStoreSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "blobs.db")

	store, err := OpenSQLite(path)
	if err != nil {
		t.Fatalf("OpenSQLite() error = %v", err)
	}
	if err := store.Put("bookmarks", []byte(`[]`)); err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	store.Close()

	reopened, err := OpenSQLite(path)
	if err != nil {
		t.Fatalf("OpenSQLite() reopen error = %v", err)
	}
	defer reopened.Close()

	value, err := reopened.Get("bookmarks")
	if err != nil {
		t.Fatalf("Get() after reopen error = %v", err)
	}
	if string(value) != `[]` {
		t.Errorf("Get() after reopen = %q", value)
	}
}

func TestMemoryStore(t *testing.T) {
	store := NewMemoryStore()

	if _, err := store.Get("k"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get() error = %v, want ErrNotFound", err)
	}

	original := []byte("value")
	store.Put("k", original)
	original[0] = 'X'

	stored, err := store.Get("k")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if string(stored) != "value" {
		t.Errorf("Get() = %q, caller mutation leaked into the store", stored)
	}

	stored[0] = 'Y'
	again, _ := store.Get("k")
	if string(again) != "value" {
		t.Error("mutating a returned blob should not affect the store")
	}

	store.Delete("k")
	if _, err := store.Get("k"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get() after delete error = %v, want ErrNotFound", err)
	}
}
