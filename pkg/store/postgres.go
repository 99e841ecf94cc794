package store

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

//go:embed migrations/*.sql
var migrations embed.FS

// PostgresStore implements Store on Postgres via the pgx stdlib driver.
type PostgresStore struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewPostgresStore opens a connection pool against databaseURL and runs the
// embedded migrations.
func NewPostgresStore(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	logger := slog.Default().With("component", "store")

	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	goose.SetBaseFS(migrations)
	if err := goose.SetDialect("postgres"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting migration dialect: %w", err)
	}
	if err := goose.UpContext(ctx, db, "migrations"); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	logger.Info("postgres store initialized")
	return &PostgresStore{db: db, logger: logger}, nil
}

func (s *PostgresStore) Get(ctx context.Context, uid string) (*Record, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT uid, email, display_name, phone_number, photo_url, profile, created_at, last_login
		FROM users WHERE uid = $1`, uid)

	var rec Record
	var profileRaw []byte
	err := row.Scan(&rec.UID, &rec.Email, &rec.DisplayName, &rec.PhoneNumber,
		&rec.PhotoURL, &profileRaw, &rec.CreatedAt, &rec.LastLogin)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("reading record %q: %w", uid, err)
	}

	if len(profileRaw) > 0 {
		var p Profile
		if err := json.Unmarshal(profileRaw, &p); err != nil {
			// A malformed extension blob is not fatal; the name-resolution
			// chain in the gate handles an absent profile.
			s.logger.Warn("discarding malformed profile extension", "uid", uid, "error", err)
		} else {
			rec.Profile = &p
		}
	}
	return &rec, nil
}

func (s *PostgresStore) Set(ctx context.Context, rec *Record) error {
	var profileRaw []byte
	if rec.Profile != nil {
		var err error
		profileRaw, err = json.Marshal(rec.Profile)
		if err != nil {
			return fmt.Errorf("encoding profile extension: %w", err)
		}
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (uid, email, display_name, phone_number, photo_url, profile, created_at, last_login)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (uid) DO UPDATE SET
			email = EXCLUDED.email,
			display_name = EXCLUDED.display_name,
			phone_number = EXCLUDED.phone_number,
			photo_url = EXCLUDED.photo_url,
			profile = EXCLUDED.profile,
			last_login = EXCLUDED.last_login`,
		rec.UID, rec.Email, rec.DisplayName, rec.PhoneNumber, rec.PhotoURL,
		profileRaw, rec.CreatedAt, rec.LastLogin)
	if err != nil {
		return fmt.Errorf("writing record %q: %w", rec.UID, err)
	}
	return nil
}

func (s *PostgresStore) Touch(ctx context.Context, uid string, t time.Time) error {
	res, err := s.db.ExecContext(ctx, `UPDATE users SET last_login = $2 WHERE uid = $1`, uid, t)
	if err != nil {
		return fmt.Errorf("touching record %q: %w", uid, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("touching record %q: %w", uid, err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// Close releases the underlying connection pool.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}
