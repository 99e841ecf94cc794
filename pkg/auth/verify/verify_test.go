package verify

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/lumen-labs/lumen/pkg/auth"
	"github.com/lumen-labs/lumen/pkg/store"
)

type fakeVerifyProvider struct {
	sendErr    error
	confirmErr error

	sentPhone  string
	sentToken  string
	sendCalls  int
	challenges int
}

func (p *fakeVerifyProvider) SendCode(_ context.Context, phone, widgetToken string) (string, error) {
	p.sendCalls++
	p.sentPhone = phone
	p.sentToken = widgetToken
	if p.sendErr != nil {
		return "", p.sendErr
	}
	p.challenges++
	return "challenge-1", nil
}

func (p *fakeVerifyProvider) Confirm(_ context.Context, challengeID, code string) (auth.Credential, error) {
	if p.confirmErr != nil {
		return auth.Credential{}, p.confirmErr
	}
	return auth.Credential{ChallengeID: challengeID, PhoneNumber: p.sentPhone}, nil
}

type fakeLinker struct {
	linkErr error
	linked  *auth.Credential
	profile *store.Profile
}

func (l *fakeLinker) LinkPhoneCredential(_ context.Context, cred auth.Credential) error {
	if l.linkErr != nil {
		return l.linkErr
	}
	l.linked = &cred
	return nil
}

func (l *fakeLinker) UpdateProfile(_ context.Context, profile store.Profile) error {
	l.profile = &profile
	return nil
}

type countingWidget struct {
	id     int
	tokens int
}

func (w *countingWidget) Token() (string, error) {
	w.tokens++
	if w.tokens > 1 {
		return "", ErrWidgetConsumed
	}
	return "token", nil
}

func newTestFlow(t *testing.T, provider Provider, linker Linker, st store.Store, onComplete func(string)) (*Flow, *[]*countingWidget) {
	t.Helper()
	var minted []*countingWidget
	flow, err := NewFlow(Config{
		Provider:      provider,
		Linker:        linker,
		Store:         st,
		CountryPrefix: "91",
		UID:           "u1",
		DisplayName:   "Ada",
		OnComplete:    onComplete,
		Widgets: func() (Widget, error) {
			w := &countingWidget{id: len(minted)}
			minted = append(minted, w)
			return w, nil
		},
	})
	if err != nil {
		t.Fatalf("NewFlow: %v", err)
	}
	return flow, &minted
}

func TestFlowHappyPath(t *testing.T) {
	provider := &fakeVerifyProvider{}
	linker := &fakeLinker{}
	st := store.NewMemoryStore()
	var completed string
	flow, _ := newTestFlow(t, provider, linker, st, func(phone string) { completed = phone })

	if flow.Step() != StepNumber {
		t.Fatalf("initial step = %v, want collecting-number", flow.Step())
	}
	if err := flow.SubmitNumber(context.Background(), "(123) 456-7890"); err != nil {
		t.Fatalf("SubmitNumber: %v", err)
	}
	if provider.sentPhone != "+911234567890" {
		t.Errorf("sent phone = %q, want normalized +911234567890", provider.sentPhone)
	}
	if flow.Step() != StepCode {
		t.Fatalf("step after send = %v, want collecting-code", flow.Step())
	}

	if err := flow.SubmitCode(context.Background(), "654321"); err != nil {
		t.Fatalf("SubmitCode: %v", err)
	}
	if flow.Step() != StepDone {
		t.Fatalf("step after confirm = %v, want complete", flow.Step())
	}
	if completed != "+911234567890" {
		t.Errorf("completion callback phone = %q", completed)
	}
	if linker.linked == nil || linker.linked.ChallengeID != "challenge-1" {
		t.Errorf("credential not linked: %+v", linker.linked)
	}
	if linker.profile == nil || linker.profile.VerifiedPhone != "+911234567890" {
		t.Errorf("profile extension not updated: %+v", linker.profile)
	}

	rec, err := st.Get(context.Background(), "u1")
	if err != nil {
		t.Fatalf("Get persisted record: %v", err)
	}
	if rec.PhoneNumber != "+911234567890" {
		t.Errorf("persisted phone = %q", rec.PhoneNumber)
	}
	if rec.Profile == nil || rec.Profile.Version != store.ProfileVersion {
		t.Errorf("persisted profile = %+v", rec.Profile)
	}
}

func TestFlowRejectsShortNumber(t *testing.T) {
	provider := &fakeVerifyProvider{}
	flow, _ := newTestFlow(t, provider, &fakeLinker{}, store.NewMemoryStore(), nil)

	if flow.CanSubmitNumber("12345") {
		t.Error("CanSubmitNumber accepted five digits")
	}
	if err := flow.SubmitNumber(context.Background(), "12345"); err == nil {
		t.Fatal("SubmitNumber accepted five digits")
	}
	if provider.sendCalls != 0 {
		t.Errorf("provider called %d times for invalid input", provider.sendCalls)
	}
	if flow.Step() != StepNumber {
		t.Errorf("step = %v, want collecting-number", flow.Step())
	}
	if flow.LastError() == "" {
		t.Error("LastError empty after rejection")
	}
}

func TestFlowSendFailureReplacesWidget(t *testing.T) {
	provider := &fakeVerifyProvider{sendErr: errors.New("quota exceeded")}
	flow, minted := newTestFlow(t, provider, &fakeLinker{}, store.NewMemoryStore(), nil)

	if err := flow.SubmitNumber(context.Background(), "1234567890"); err == nil {
		t.Fatal("SubmitNumber succeeded despite send failure")
	}
	if flow.Step() != StepNumber {
		t.Fatalf("step = %v, want collecting-number after send failure", flow.Step())
	}
	if len(*minted) != 2 {
		t.Fatalf("widgets minted = %d, want fresh widget after failed send", len(*minted))
	}

	// The retry must use the replacement widget, not the consumed one.
	provider.sendErr = nil
	if err := flow.SubmitNumber(context.Background(), "1234567890"); err != nil {
		t.Fatalf("retry SubmitNumber: %v", err)
	}
	if (*minted)[0].tokens != 1 || (*minted)[1].tokens != 1 {
		t.Errorf("widget consumption = %d,%d; each widget must be used once",
			(*minted)[0].tokens, (*minted)[1].tokens)
	}
}

func TestFlowWrongCodeStaysInCodeStep(t *testing.T) {
	provider := &fakeVerifyProvider{}
	flow, minted := newTestFlow(t, provider, &fakeLinker{}, store.NewMemoryStore(), nil)
	if err := flow.SubmitNumber(context.Background(), "1234567890"); err != nil {
		t.Fatalf("SubmitNumber: %v", err)
	}

	provider.confirmErr = errors.New("invalid code")
	if err := flow.SubmitCode(context.Background(), "000000"); err == nil {
		t.Fatal("SubmitCode succeeded with rejected code")
	}
	if flow.Step() != StepCode {
		t.Fatalf("step = %v, want collecting-code after confirm failure", flow.Step())
	}
	if len(*minted) != 1 {
		t.Errorf("widgets minted = %d; confirm failure must not burn a widget", len(*minted))
	}

	provider.confirmErr = nil
	if err := flow.SubmitCode(context.Background(), "654321"); err != nil {
		t.Fatalf("retry SubmitCode: %v", err)
	}
}

func TestFlowStepGuards(t *testing.T) {
	flow, _ := newTestFlow(t, &fakeVerifyProvider{}, &fakeLinker{}, store.NewMemoryStore(), nil)

	if err := flow.SubmitCode(context.Background(), "654321"); !errors.Is(err, ErrWrongStep) {
		t.Errorf("SubmitCode in number step = %v, want ErrWrongStep", err)
	}

	if err := flow.SubmitNumber(context.Background(), "1234567890"); err != nil {
		t.Fatalf("SubmitNumber: %v", err)
	}
	if err := flow.SubmitNumber(context.Background(), "1234567890"); !errors.Is(err, ErrWrongStep) {
		t.Errorf("second SubmitNumber = %v, want ErrWrongStep", err)
	}

	if err := flow.SubmitCode(context.Background(), "654321"); err != nil {
		t.Fatalf("SubmitCode: %v", err)
	}
	if err := flow.SubmitCode(context.Background(), "654321"); !errors.Is(err, ErrFlowComplete) {
		t.Errorf("SubmitCode after completion = %v, want ErrFlowComplete", err)
	}
	if err := flow.SubmitNumber(context.Background(), "1234567890"); !errors.Is(err, ErrFlowComplete) {
		t.Errorf("SubmitNumber after completion = %v, want ErrFlowComplete", err)
	}
}

func TestFlowMergePreservesCreatedAt(t *testing.T) {
	st := store.NewMemoryStore()
	created := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	if err := st.Set(context.Background(), &store.Record{
		UID:         "u1",
		Email:       "ada@example.com",
		DisplayName: "Ada",
		CreatedAt:   created,
		LastLogin:   created,
	}); err != nil {
		t.Fatalf("seed record: %v", err)
	}

	flow, _ := newTestFlow(t, &fakeVerifyProvider{}, &fakeLinker{}, st, nil)
	if err := flow.SubmitNumber(context.Background(), "1234567890"); err != nil {
		t.Fatalf("SubmitNumber: %v", err)
	}
	if err := flow.SubmitCode(context.Background(), "654321"); err != nil {
		t.Fatalf("SubmitCode: %v", err)
	}

	rec, err := st.Get(context.Background(), "u1")
	if err != nil {
		t.Fatalf("Get merged record: %v", err)
	}
	if !rec.CreatedAt.Equal(created) {
		t.Errorf("CreatedAt changed by merge: %v -> %v", created, rec.CreatedAt)
	}
	if rec.Email != "ada@example.com" {
		t.Errorf("merge dropped email: %q", rec.Email)
	}
	if rec.PhoneNumber != "+911234567890" {
		t.Errorf("merged phone = %q", rec.PhoneNumber)
	}
}

func TestCanSubmit(t *testing.T) {
	flow, _ := newTestFlow(t, &fakeVerifyProvider{}, &fakeLinker{}, store.NewMemoryStore(), nil)

	if !flow.CanSubmitNumber("(123) 456-7890") {
		t.Error("CanSubmitNumber rejected a formatted ten-digit number")
	}
	if flow.CanSubmitNumber("123456789") {
		t.Error("CanSubmitNumber accepted nine digits")
	}
	if !flow.CanSubmitCode("abc123") {
		t.Error("CanSubmitCode rejected a six-character code")
	}
	if flow.CanSubmitCode("12345") {
		t.Error("CanSubmitCode accepted five characters")
	}
}
