package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lucasvrm/previso/internal/infra/session"
)

// ErrSessionNotFound is returned when a profile has no stored session.
var ErrSessionNotFound = errors.New("session not found")

type sessionRow struct {
	Profile   string       `db:"profile"`
	Token     string       `db:"token"`
	ExpiresAt sql.NullTime `db:"expires_at"`
	UpdatedAt time.Time    `db:"updated_at"`
}

// SessionRepo stores one CLI session per profile. It implements
// session.Provider.
type SessionRepo struct {
	db      *DB
	profile string
}

// NewSessionRepo creates a repository bound to profile.
func NewSessionRepo(db *DB, profile string) *SessionRepo {
	if profile == "" {
		profile = "default"
	}
	return &SessionRepo{db: db, profile: profile}
}

// Save upserts the credential for the bound profile.
func (r *SessionRepo) Save(ctx context.Context, cred *session.Credential) error {
	var expires sql.NullTime
	if !cred.ExpiresAt.IsZero() {
		expires = sql.NullTime{Time: cred.ExpiresAt, Valid: true}
	}

	_, err := r.db.NamedExecContext(ctx, `
		INSERT INTO sessions (profile, token, expires_at, updated_at)
		VALUES (:profile, :token, :expires_at, now())
		ON CONFLICT (profile) DO UPDATE
		SET token = EXCLUDED.token, expires_at = EXCLUDED.expires_at, updated_at = now()`,
		sessionRow{Profile: r.profile, Token: cred.Token, ExpiresAt: expires},
	)
	if err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

// Lookup returns the stored credential, or ErrSessionNotFound.
func (r *SessionRepo) Lookup(ctx context.Context) (*session.Credential, error) {
	var row sessionRow
	err := r.db.GetContext(ctx, &row,
		`SELECT profile, token, expires_at, updated_at FROM sessions WHERE profile = $1`,
		r.profile,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	cred := &session.Credential{Token: row.Token}
	if row.ExpiresAt.Valid {
		cred.ExpiresAt = row.ExpiresAt.Time
	}
	return cred, nil
}

// Credential implements session.Provider. A missing or expired session is
// reported as no credential.
func (r *SessionRepo) Credential(ctx context.Context) (*session.Credential, error) {
	cred, err := r.Lookup(ctx)
	if errors.Is(err, ErrSessionNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if cred.Expired(time.Now()) {
		return nil, nil
	}
	return cred, nil
}

// Clear deletes the stored session for the bound profile.
func (r *SessionRepo) Clear(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM sessions WHERE profile = $1`, r.profile); err != nil {
		return fmt.Errorf("failed to clear session: %w", err)
	}
	return nil
}
