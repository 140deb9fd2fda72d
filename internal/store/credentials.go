package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// SaveCredential deactivates any previous credential rows and stores a
// new active one. The catalog client keeps at most one live credential.
func (s *Store) SaveCredential(ctx context.Context, token string, issuedAt, expiresAt time.Time) (*Credential, error) {
	if token == "" {
		return nil, errors.New("save credential: token required")
	}

	if _, err := s.execWithRetry(ctx,
		"UPDATE access_credentials SET active = 0 WHERE active = 1"); err != nil {
		return nil, fmt.Errorf("deactivate credentials: %w", err)
	}

	res, err := s.execWithRetry(ctx, `
		INSERT INTO access_credentials (token, issued_at, expires_at, active)
		VALUES (?, ?, ?, 1)`,
		token, timestamp(issuedAt), timestamp(expiresAt))
	if err != nil {
		return nil, fmt.Errorf("save credential: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("save credential: %w", err)
	}

	return &Credential{
		ID:        id,
		Token:     token,
		IssuedAt:  issuedAt.UTC(),
		ExpiresAt: expiresAt.UTC(),
		Active:    true,
	}, nil
}

// ActiveCredential returns the current live credential, or ErrNotFound.
func (s *Store) ActiveCredential(ctx context.Context) (*Credential, error) {
	var (
		cred      Credential
		issuedAt  string
		expiresAt string
	)
	err := s.db.QueryRowContext(ensureContext(ctx), `
		SELECT id, token, issued_at, expires_at, active
		FROM access_credentials WHERE active = 1
		ORDER BY id DESC LIMIT 1`).Scan(&cred.ID, &cred.Token, &issuedAt, &expiresAt, &cred.Active)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query active credential: %w", err)
	}

	if cred.IssuedAt, err = parseTimestamp(issuedAt); err != nil {
		return nil, err
	}
	if cred.ExpiresAt, err = parseTimestamp(expiresAt); err != nil {
		return nil, err
	}
	return &cred, nil
}

// DiscardCredential marks the given credential inactive, typically after
// an auth rejection past its expiry.
func (s *Store) DiscardCredential(ctx context.Context, id int64) error {
	_, err := s.execWithRetry(ctx,
		"UPDATE access_credentials SET active = 0 WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("discard credential %d: %w", id, err)
	}
	return nil
}
