// Package verify implements the phone-verification sub-flow: collect a
// number, send a challenge through the verification provider behind a
// one-shot anti-automation widget, then exchange the code for a credential
// linked to the current identity.
package verify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/lumen-labs/lumen/pkg/auth"
	"github.com/lumen-labs/lumen/pkg/store"
)

// Step is the flow's current state.
type Step int

const (
	StepNumber Step = iota // collecting the phone number
	StepCode               // collecting the 6-character code
	StepDone               // credential linked, record persisted
)

func (s Step) String() string {
	switch s {
	case StepNumber:
		return "collecting-number"
	case StepCode:
		return "collecting-code"
	case StepDone:
		return "complete"
	default:
		return "unknown"
	}
}

var (
	ErrFlowComplete   = errors.New("verification flow already complete")
	ErrWrongStep      = errors.New("submission does not match the current step")
	ErrWidgetConsumed = errors.New("anti-automation widget already consumed")
)

// Widget is a single-use anti-automation challenge. Token may be called
// once; a widget that backed a failed send must be discarded, not reused.
type Widget interface {
	Token() (string, error)
}

// WidgetFactory mints fresh widgets. The flow obtains a replacement after
// every failed send.
type WidgetFactory func() (Widget, error)

// Provider is the external phone-verification collaborator.
type Provider interface {
	// SendCode requests a challenge for the normalized phone number. The
	// widget token proves the anti-automation step. The returned challenge
	// identifier is valid for exactly one verification attempt.
	SendCode(ctx context.Context, phone, widgetToken string) (challengeID string, err error)

	// Confirm exchanges (challenge identifier, code) for a phone credential.
	Confirm(ctx context.Context, challengeID, code string) (auth.Credential, error)
}

// Linker is the slice of the identity provider the flow needs.
type Linker interface {
	LinkPhoneCredential(ctx context.Context, cred auth.Credential) error
	UpdateProfile(ctx context.Context, profile store.Profile) error
}

type numberSubmission struct {
	Phone string `validate:"required,len=10,numeric"`
}

type codeSubmission struct {
	Code string `validate:"required,len=6"`
}

var validate = validator.New()

// timeNow is swapped out by tests.
var timeNow = time.Now

// Flow is one verification attempt's state machine. It is not safe for
// concurrent submissions; the UI drives it from a single event path.
type Flow struct {
	provider      Provider
	linker        Linker
	store         store.Store
	widgets       WidgetFactory
	countryPrefix string
	displayName   string
	uid           string
	onComplete    func(phone string)
	logger        *slog.Logger

	mu          sync.Mutex
	step        Step
	widget      Widget
	phone       string // normalized, set on successful send
	challengeID string
	lastErr     string
}

// Config wires a Flow's collaborators.
type Config struct {
	Provider      Provider
	Linker        Linker
	Store         store.Store
	Widgets       WidgetFactory
	CountryPrefix string
	UID           string
	DisplayName   string
	OnComplete    func(phone string)
}

// NewFlow creates a flow in StepNumber with a freshly minted widget.
func NewFlow(cfg Config) (*Flow, error) {
	w, err := cfg.Widgets()
	if err != nil {
		return nil, fmt.Errorf("creating anti-automation widget: %w", err)
	}
	return &Flow{
		provider:      cfg.Provider,
		linker:        cfg.Linker,
		store:         cfg.Store,
		widgets:       cfg.Widgets,
		countryPrefix: cfg.CountryPrefix,
		uid:           cfg.UID,
		displayName:   cfg.DisplayName,
		onComplete:    cfg.OnComplete,
		logger:        slog.Default().With("component", "verify"),
		widget:        w,
	}, nil
}

// Step reports the current state.
func (f *Flow) Step() Step {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.step
}

// LastError is the user-facing message from the most recent failure.
func (f *Flow) LastError() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastErr
}

// CanSubmitNumber reports whether raw input qualifies for submission:
// exactly ten digits after sanitation.
func (f *Flow) CanSubmitNumber(raw string) bool {
	return len(SanitizePhone(raw)) == phoneDigits
}

// CanSubmitCode reports whether a code qualifies: exactly six characters.
func (f *Flow) CanSubmitCode(code string) bool {
	return len(code) == 6
}

// SubmitNumber sanitizes and normalizes the number, then requests a
// challenge. On success the flow moves to StepCode and retains the
// challenge identifier. On failure the widget is discarded and recreated
// and the flow stays in StepNumber.
func (f *Flow) SubmitNumber(ctx context.Context, raw string) error {
	f.mu.Lock()
	if f.step == StepDone {
		f.mu.Unlock()
		return ErrFlowComplete
	}
	if f.step != StepNumber {
		f.mu.Unlock()
		return ErrWrongStep
	}
	widget := f.widget
	f.mu.Unlock()

	if widget == nil {
		return f.fail(ErrWidgetConsumed, true)
	}

	digits := SanitizePhone(raw)
	if err := validate.Struct(numberSubmission{Phone: digits}); err != nil {
		return f.fail(fmt.Errorf("phone number must be exactly %d digits", phoneDigits), false)
	}
	phone := NormalizePhone(f.countryPrefix, digits)

	token, err := widget.Token()
	if err != nil {
		return f.fail(fmt.Errorf("anti-automation check failed: %w", err), true)
	}

	challengeID, err := f.provider.SendCode(ctx, phone, token)
	if err != nil {
		// The widget is single-use and the challenge is dead; both are
		// replaced before another attempt is accepted.
		return f.fail(fmt.Errorf("sending verification code: %w", err), true)
	}

	f.mu.Lock()
	f.step = StepCode
	f.phone = phone
	f.challengeID = challengeID
	f.lastErr = ""
	f.mu.Unlock()
	return nil
}

// SubmitCode exchanges the code for a credential, links it, embeds the
// verified phone into the profile extension, and persists the merged
// record. Any failure keeps the flow in StepCode with no automatic retry.
func (f *Flow) SubmitCode(ctx context.Context, code string) error {
	f.mu.Lock()
	if f.step == StepDone {
		f.mu.Unlock()
		return ErrFlowComplete
	}
	if f.step != StepCode {
		f.mu.Unlock()
		return ErrWrongStep
	}
	challengeID := f.challengeID
	phone := f.phone
	f.mu.Unlock()

	if err := validate.Struct(codeSubmission{Code: code}); err != nil {
		return f.fail(errors.New("verification code must be exactly 6 characters"), false)
	}

	cred, err := f.provider.Confirm(ctx, challengeID, code)
	if err != nil {
		return f.fail(fmt.Errorf("verifying code: %w", err), false)
	}

	if err := f.linker.LinkPhoneCredential(ctx, cred); err != nil {
		return f.fail(fmt.Errorf("linking phone credential: %w", err), false)
	}

	profile := store.Profile{
		Version:       store.ProfileVersion,
		Name:          f.displayName,
		VerifiedPhone: phone,
	}
	if err := f.linker.UpdateProfile(ctx, profile); err != nil {
		return f.fail(fmt.Errorf("updating identity profile: %w", err), false)
	}

	if err := f.persistVerified(ctx, phone, profile); err != nil {
		return f.fail(err, false)
	}

	f.mu.Lock()
	f.step = StepDone
	f.lastErr = ""
	done := f.onComplete
	f.mu.Unlock()

	f.logger.Info("phone verification complete", "uid", f.uid)
	if done != nil {
		done(phone)
	}
	return nil
}

// persistVerified merges the verified phone into the stored record,
// preserving createdAt and any fields the flow does not own.
func (f *Flow) persistVerified(ctx context.Context, phone string, profile store.Profile) error {
	rec, err := f.store.Get(ctx, f.uid)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("reading record for merge: %w", err)
		}
		now := timeNow()
		rec = &store.Record{UID: f.uid, DisplayName: f.displayName, CreatedAt: now, LastLogin: now}
	}
	rec.PhoneNumber = phone
	rec.Profile = &profile
	if rec.DisplayName == "" {
		rec.DisplayName = f.displayName
	}
	if err := f.store.Set(ctx, rec); err != nil {
		return fmt.Errorf("persisting verified record: %w", err)
	}
	return nil
}

// fail records the user-facing error and, when the anti-automation widget
// was consumed by the attempt, replaces it with a fresh one.
func (f *Flow) fail(err error, replaceWidget bool) error {
	f.mu.Lock()
	f.lastErr = err.Error()
	if replaceWidget {
		f.challengeID = ""
		w, werr := f.widgets()
		if werr != nil {
			f.widget = nil
			f.mu.Unlock()
			f.logger.Error("widget replacement failed", "error", werr)
			return errors.Join(err, werr)
		}
		f.widget = w
	}
	f.mu.Unlock()
	return err
}
