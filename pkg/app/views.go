package app

import (
	"context"
	"fmt"

	"github.com/lumen-labs/lumen/pkg/auth/verify"
	"github.com/lumen-labs/lumen/pkg/camera"
	"github.com/lumen-labs/lumen/pkg/dispatch"
	"github.com/lumen-labs/lumen/pkg/live"
)

// View is one mountable top-level surface. Exactly one view is mounted at
// a time; Unmount must release everything Mount acquired.
type View interface {
	Mount(ctx context.Context) error
	Unmount()
}

// FuncView adapts plain functions to View. Either func may be nil.
type FuncView struct {
	OnMount   func(ctx context.Context) error
	OnUnmount func()
}

func (v *FuncView) Mount(ctx context.Context) error {
	if v.OnMount == nil {
		return nil
	}
	return v.OnMount(ctx)
}

func (v *FuncView) Unmount() {
	if v.OnUnmount != nil {
		v.OnUnmount()
	}
}

// VerifyView owns one phone-verification attempt. A fresh flow (and with
// it a fresh anti-automation widget) is created on every mount.
type VerifyView struct {
	NewFlow func() (*verify.Flow, error)
	flow    *verify.Flow
}

func (v *VerifyView) Mount(context.Context) error {
	flow, err := v.NewFlow()
	if err != nil {
		return fmt.Errorf("starting verification flow: %w", err)
	}
	v.flow = flow
	return nil
}

func (v *VerifyView) Unmount() {
	v.flow = nil
}

// Flow exposes the active verification flow to the UI, nil when unmounted.
func (v *VerifyView) Flow() *verify.Flow {
	return v.flow
}

// SessionView binds the live session surface: it connects the session,
// attaches the tool-call dispatcher, and hands the camera surface to the
// render layer. Unmount detaches before closing so no tool-call event can
// land after teardown.
type SessionView struct {
	Connect    func(ctx context.Context) (*live.Session, error)
	Dispatcher *dispatch.Dispatcher
	Camera     *camera.Manager

	session *live.Session
	detach  func()
}

func (v *SessionView) Mount(ctx context.Context) error {
	session, err := v.Connect(ctx)
	if err != nil {
		return fmt.Errorf("connecting live session: %w", err)
	}
	v.session = session
	v.detach = v.Dispatcher.Attach(session)
	return nil
}

func (v *SessionView) Unmount() {
	if v.detach != nil {
		v.detach()
		v.detach = nil
	}
	if v.session != nil {
		_ = v.session.Close()
		v.session = nil
	}
	if v.Camera != nil {
		v.Camera.Release()
	}
}

// Session exposes the live session to the UI, nil when unmounted.
func (v *SessionView) Session() *live.Session {
	return v.session
}
