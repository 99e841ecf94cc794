// Package store persists user profile records keyed by the identity
// provider's stable user identifier. Writes replace the full record;
// partial updates are the caller's responsibility to merge.
package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when no record exists for the requested uid.
var ErrNotFound = errors.New("record not found")

// Profile is the structured extension attached to an identity. It replaces
// the older convention of stashing a JSON blob inside the display-name
// field. Version is bumped on schema changes; version 1 carries the
// resolved name and the verified phone number.
type Profile struct {
	Version       int    `json:"version"`
	Name          string `json:"name"`
	VerifiedPhone string `json:"verifiedPhone,omitempty"`
}

// ProfileVersion is the current Profile schema version.
const ProfileVersion = 1

// Record is a persisted user profile.
type Record struct {
	UID         string
	Email       string
	DisplayName string
	PhoneNumber string
	PhotoURL    string
	Profile     *Profile
	CreatedAt   time.Time
	LastLogin   time.Time
}

// Store is the profile persistence contract. Implementations must provide
// read-after-write consistency for a single uid.
type Store interface {
	// Get returns the record for uid, or ErrNotFound.
	Get(ctx context.Context, uid string) (*Record, error)

	// Set writes the full record, replacing any existing one.
	Set(ctx context.Context, rec *Record) error

	// Touch refreshes only the last-login timestamp of an existing record.
	Touch(ctx context.Context, uid string, t time.Time) error
}
