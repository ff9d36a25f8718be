// Package ruleconfig is the Postgres-backed configuration store behind
// C5's AlertRule lookup and C6's NotificationChannel lookup: alert rules,
// notification channels, high-priority persons, and notification contacts,
// persisted the way the teacher's internal/data repositories persist
// cameras — plain database/sql + lib/pq, no ORM.
package ruleconfig

import (
	"context"
	"database/sql"
	"errors"

	"github.com/faceguard/core/internal/crypto"
)

var ErrNotFound = errors.New("ruleconfig: record not found")

// DBTX is satisfied by both *sql.DB and *sql.Tx, mirroring
// internal/data.DBTX so callers can run multi-statement changes (e.g.
// replacing a rule's notification channel list) inside a transaction.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// Store owns all five configuration tables. encryptionKey is the 32-byte
// AES-256 key used to seal channel credentials (SMTP password, Twilio auth
// token, webhook HMAC secret) at rest; it never leaves this package.
type Store struct {
	DB            DBTX
	encryptionKey []byte
}

func NewStore(db DBTX, encryptionKey []byte) *Store {
	return &Store{DB: db, encryptionKey: encryptionKey}
}

func rowNotFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

// sealSecret is a thin convenience layer over crypto.EncryptGCM: it packs
// a one-byte nonce length, a one-byte tag length, then nonce|tag|ciphertext
// into one bytea column value, using channelID as additional authenticated data so
// a secret copied between rows fails to decrypt.
func (s *Store) sealSecret(channelID, plaintext string) ([]byte, error) {
	if plaintext == "" {
		return nil, nil
	}
	nonce, ciphertext, tag, err := crypto.EncryptGCM(s.encryptionKey, []byte(plaintext), []byte(channelID))
	if err != nil {
		return nil, err
	}
	out := make([]byte, 0, len(nonce)+len(tag)+len(ciphertext))
	out = append(out, byte(len(nonce)), byte(len(tag)))
	out = append(out, nonce...)
	out = append(out, tag...)
	out = append(out, ciphertext...)
	return out, nil
}

func (s *Store) openSecret(channelID string, sealed []byte) (string, error) {
	if len(sealed) < 2 {
		return "", nil
	}
	nonceLen, tagLen := int(sealed[0]), int(sealed[1])
	rest := sealed[2:]
	if len(rest) < nonceLen+tagLen {
		return "", crypto.ErrDecryption
	}
	nonce := rest[:nonceLen]
	tag := rest[nonceLen : nonceLen+tagLen]
	ciphertext := rest[nonceLen+tagLen:]
	plaintext, err := crypto.DecryptGCM(s.encryptionKey, nonce, ciphertext, tag, []byte(channelID))
	if err != nil {
		return "", err
	}
	return string(plaintext), nil
}
