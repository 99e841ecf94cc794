// Package auth gates access to the live session behind the external
// identity provider and a phone-verification requirement. The Gate owns the
// derived authorization state the shell mounts views from.
package auth

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/lumen-labs/lumen/pkg/store"
)

// Identity is a signed-in visitor as reported by the identity provider.
type Identity struct {
	UID         string
	Email       string
	DisplayName string
	PhoneNumber string
	PhotoURL    string

	// Profile is the optional structured extension record attached to the
	// identity. Providers that predate it instead embed a JSON blob in
	// DisplayName; ResolveName understands both.
	Profile *store.Profile
}

// Credential is an opaque phone credential minted by the verification
// provider and linked to the current identity.
type Credential struct {
	ChallengeID string
	PhoneNumber string
}

// Provider is the external identity collaborator. Observe delivers
// identity-state changes strictly in order: each signed-in event carries the
// identity, each signed-out event carries nil, and no two signed-in events
// arrive without an intervening signed-out for the same session.
type Provider interface {
	// Observe registers fn for identity-state changes and returns a
	// synchronous, idempotent cancel func. The current state is delivered
	// as the first event.
	Observe(fn func(*Identity)) (cancel func())

	SignOut(ctx context.Context) error

	// LinkPhoneCredential attaches a verified phone credential to the
	// currently signed-in identity.
	LinkPhoneCredential(ctx context.Context, cred Credential) error

	// UpdateProfile replaces the structured extension record on the
	// currently signed-in identity.
	UpdateProfile(ctx context.Context, profile store.Profile) error
}

// legacyProfile is the JSON shape some providers stash inside the raw
// display-name field.
type legacyProfile struct {
	Name          string `json:"name"`
	VerifiedPhone string `json:"verifiedPhone"`
}

// ResolveName derives the display name and any pre-verified phone number
// for an identity. Preference order: the structured profile extension, the
// legacy JSON blob embedded in the display name, the plain display name,
// the local part of the email, then "User". Parse failures fall through the
// chain; the result name is never empty.
func ResolveName(id *Identity) (name, phone string) {
	if id == nil {
		return "User", ""
	}

	if id.Profile != nil {
		name = id.Profile.Name
		phone = id.Profile.VerifiedPhone
	} else if raw := strings.TrimSpace(id.DisplayName); strings.HasPrefix(raw, "{") {
		var legacy legacyProfile
		if err := json.Unmarshal([]byte(raw), &legacy); err == nil {
			name = legacy.Name
			phone = legacy.VerifiedPhone
		}
	}

	if name == "" {
		name = plainName(id)
	}
	return name, phone
}

// plainName is the fallback chain without any structured source.
func plainName(id *Identity) string {
	if name := strings.TrimSpace(id.DisplayName); name != "" {
		return name
	}
	if at := strings.Index(id.Email, "@"); at > 0 {
		return id.Email[:at]
	}
	return "User"
}
