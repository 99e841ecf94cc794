package store

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestMemoryStoreGetAfterSet(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	created := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	rec := &Record{
		UID:         "u1",
		Email:       "ada@example.com",
		DisplayName: "Ada",
		PhoneNumber: "+911234567890",
		Profile:     &Profile{Version: ProfileVersion, Name: "Ada", VerifiedPhone: "+911234567890"},
		CreatedAt:   created,
		LastLogin:   created,
	}
	if err := s.Set(ctx, rec); err != nil {
		t.Fatalf("Set: %v", err)
	}

	got, err := s.Get(ctx, "u1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.DisplayName != "Ada" || got.PhoneNumber != "+911234567890" {
		t.Errorf("unexpected record: %+v", got)
	}
	if got.Profile == nil || got.Profile.VerifiedPhone != "+911234567890" {
		t.Errorf("profile extension not round-tripped: %+v", got.Profile)
	}

	// Returned record must be a copy; mutating it must not leak into the store.
	got.DisplayName = "Mallory"
	got.Profile.Name = "Mallory"
	again, err := s.Get(ctx, "u1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if again.DisplayName != "Ada" || again.Profile.Name != "Ada" {
		t.Errorf("store leaked caller mutation: %+v", again)
	}
}

func TestMemoryStoreNotFound(t *testing.T) {
	s := NewMemoryStore()
	if _, err := s.Get(context.Background(), "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Get of missing uid: got %v, want ErrNotFound", err)
	}
	if err := s.Touch(context.Background(), "missing", time.Now()); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Touch of missing uid: got %v, want ErrNotFound", err)
	}
}

func TestMemoryStoreTouchUpdatesOnlyLastLogin(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	created := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	if err := s.Set(ctx, &Record{UID: "u1", DisplayName: "Ada", CreatedAt: created, LastLogin: created}); err != nil {
		t.Fatalf("Set: %v", err)
	}

	later := created.Add(48 * time.Hour)
	if err := s.Touch(ctx, "u1", later); err != nil {
		t.Fatalf("Touch: %v", err)
	}

	got, err := s.Get(ctx, "u1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !got.LastLogin.Equal(later) {
		t.Errorf("LastLogin = %v, want %v", got.LastLogin, later)
	}
	if !got.CreatedAt.Equal(created) {
		t.Errorf("CreatedAt changed by Touch: %v", got.CreatedAt)
	}
	if got.DisplayName != "Ada" {
		t.Errorf("DisplayName changed by Touch: %q", got.DisplayName)
	}
}
