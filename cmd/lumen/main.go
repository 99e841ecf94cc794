package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/lumen-labs/lumen/internal/dotenv"
	"github.com/lumen-labs/lumen/pkg/app"
	"github.com/lumen-labs/lumen/pkg/auth"
	"github.com/lumen-labs/lumen/pkg/auth/verify"
	"github.com/lumen-labs/lumen/pkg/camera"
	"github.com/lumen-labs/lumen/pkg/config"
	"github.com/lumen-labs/lumen/pkg/dispatch"
	"github.com/lumen-labs/lumen/pkg/live"
	"github.com/lumen-labs/lumen/pkg/store"
)

func main() {
	if err := run(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "lumen:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	if err := dotenv.Load(".env"); err != nil {
		return err
	}

	cfg, err := config.LoadFromEnv()
	if err != nil {
		return err
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	slog.SetDefault(logger)

	var profiles store.Store
	if cfg.DatabaseURL != "" {
		pg, err := store.NewPostgresStore(ctx, cfg.DatabaseURL)
		if err != nil {
			return err
		}
		defer pg.Close()
		profiles = pg
	} else {
		logger.Warn("no database configured, using in-memory profile store")
		profiles = store.NewMemoryStore()
	}

	provider := auth.NewTokenProvider(auth.NewTokenVerifier(
		cfg.TokenAudience, cfg.TokenIssuer, cfg.TokenSecret))
	gate := auth.NewGate(provider, profiles)

	liveClient, err := live.NewClient(cfg.LiveBaseURL, cfg.GeminiAPIKey)
	if err != nil {
		return err
	}

	dispatcher := dispatch.New()
	surface := &camera.Surface{}
	cameras := camera.NewManager(defaultDevice{}, surface)
	verifier := verify.NewHTTPProvider(cfg.VerifyBaseURL, nil)

	shell := app.New(gate, app.Views{
		SignIn: &app.FuncView{
			OnMount: func(context.Context) error {
				logger.Info("awaiting sign-in")
				return nil
			},
		},
		Verify: &app.VerifyView{
			NewFlow: func() (*verify.Flow, error) {
				id := gate.Identity()
				if id == nil {
					return nil, fmt.Errorf("verification requires a signed-in identity")
				}
				return verify.NewFlow(verify.Config{
					Provider:      verifier,
					Linker:        provider,
					Store:         profiles,
					Widgets:       verify.TokenWidgetFactory,
					CountryPrefix: cfg.CountryPrefix,
					UID:           id.UID,
					DisplayName:   gate.DisplayName(),
					OnComplete:    gate.VerificationComplete,
				})
			},
		},
		Session: &app.SessionView{
			Connect: func(ctx context.Context) (*live.Session, error) {
				return liveClient.Connect(ctx, dispatch.SessionConfig(
					cfg.Model, cfg.Voice, cfg.ResponseModalities()))
			},
			Dispatcher: dispatcher,
			Camera:     cameras,
		},
	})

	shell.Initialize(ctx)
	defer shell.Teardown()

	if cameras.ToggleAvailable(cfg.RuntimeDescriptor) {
		logger.Info("handheld runtime detected, camera toggle enabled")
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(stop)

	select {
	case sig := <-stop:
		logger.Info("shutting down", "signal", sig.String())
	case <-ctx.Done():
	}
	return nil
}

// defaultDevice is the placeholder capture device for runtimes without a
// camera bridge; acquisition reports the device as unavailable.
type defaultDevice struct{}

func (defaultDevice) Acquire(context.Context, camera.Constraints) (*camera.Stream, error) {
	return nil, fmt.Errorf("no capture device bridge available on this runtime")
}
