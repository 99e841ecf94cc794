package auth

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/lumen-labs/lumen/pkg/store"
)

// IdentityClaims are the claims carried by a provider-issued ID token.
type IdentityClaims struct {
	Email       string         `json:"email,omitempty"`
	Name        string         `json:"name,omitempty"`
	Picture     string         `json:"picture,omitempty"`
	PhoneNumber string         `json:"phone_number,omitempty"`
	Profile     *store.Profile `json:"profile,omitempty"`
	jwt.RegisteredClaims
}

// TokenVerifier validates provider-issued ID tokens and maps them to
// identities. HS256 only; the shared secret comes from configuration.
type TokenVerifier struct {
	audience string
	issuer   string
	secret   []byte
}

func NewTokenVerifier(audience, issuer, secret string) *TokenVerifier {
	return &TokenVerifier{audience: audience, issuer: issuer, secret: []byte(secret)}
}

// Verify parses and validates an ID token, returning the identity it names.
func (v *TokenVerifier) Verify(tokenString string) (*Identity, error) {
	var claims IdentityClaims
	token, err := jwt.ParseWithClaims(tokenString, &claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return v.secret, nil
	},
		jwt.WithExpirationRequired(),
		jwt.WithAudience(v.audience),
		jwt.WithIssuer(v.issuer),
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Name}),
	)
	if err != nil {
		return nil, fmt.Errorf("validating id token: %w", err)
	}
	if !token.Valid {
		return nil, errors.New("invalid id token")
	}
	if claims.Subject == "" {
		return nil, errors.New("id token missing subject")
	}

	return &Identity{
		UID:         claims.Subject,
		Email:       claims.Email,
		DisplayName: claims.Name,
		PhoneNumber: claims.PhoneNumber,
		PhotoURL:    claims.Picture,
		Profile:     claims.Profile,
	}, nil
}

// TokenProvider is a Provider backed by ID tokens: a sign-in presents a
// token, sign-out clears it, and observers see each transition in order.
type TokenProvider struct {
	verifier *TokenVerifier

	mu        sync.Mutex
	identity  *Identity
	observers map[uuid.UUID]func(*Identity)
	order     []uuid.UUID
}

func NewTokenProvider(verifier *TokenVerifier) *TokenProvider {
	return &TokenProvider{
		verifier:  verifier,
		observers: make(map[uuid.UUID]func(*Identity)),
	}
}

// SignInWithToken validates the token and delivers the signed-in event.
func (p *TokenProvider) SignInWithToken(_ context.Context, tokenString string) error {
	id, err := p.verifier.Verify(tokenString)
	if err != nil {
		return err
	}
	p.setIdentity(id)
	return nil
}

func (p *TokenProvider) SignOut(context.Context) error {
	p.setIdentity(nil)
	return nil
}

// Observe registers fn and immediately delivers the current state, per the
// provider contract.
func (p *TokenProvider) Observe(fn func(*Identity)) (cancel func()) {
	handle := uuid.New()
	p.mu.Lock()
	p.observers[handle] = fn
	p.order = append(p.order, handle)
	current := p.identity
	p.mu.Unlock()

	fn(current)

	var once sync.Once
	return func() {
		once.Do(func() {
			p.mu.Lock()
			delete(p.observers, handle)
			for i, h := range p.order {
				if h == handle {
					p.order = append(p.order[:i], p.order[i+1:]...)
					break
				}
			}
			p.mu.Unlock()
		})
	}
}

func (p *TokenProvider) LinkPhoneCredential(_ context.Context, cred Credential) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.identity == nil {
		return errors.New("no signed-in identity to link credential to")
	}
	p.identity.PhoneNumber = cred.PhoneNumber
	return nil
}

func (p *TokenProvider) UpdateProfile(_ context.Context, profile store.Profile) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.identity == nil {
		return errors.New("no signed-in identity to update")
	}
	prof := profile
	p.identity.Profile = &prof
	return nil
}

func (p *TokenProvider) setIdentity(id *Identity) {
	p.mu.Lock()
	p.identity = id
	fns := make([]func(*Identity), 0, len(p.order))
	for _, h := range p.order {
		if fn, ok := p.observers[h]; ok {
			fns = append(fns, fn)
		}
	}
	p.mu.Unlock()

	for _, fn := range fns {
		fn(id)
	}
}
