package middleware

import (
	"context"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrIdempotencyConflict = errors.New("idempotency key reused with different content")

// IdempotencyStore lets mutation handlers replay a stored response when a
// client retries with the same Idempotency-Key. A key is scoped to one
// tenant, user and endpoint; reusing it for a different request body is a
// conflict, never a replay.
type IdempotencyStore struct {
	db *pgxpool.Pool
}

func NewIdempotencyStore(db *pgxpool.Pool) *IdempotencyStore {
	return &IdempotencyStore{db: db}
}

// RequestHash fingerprints the request content a key must stay bound to.
func RequestHash(payload []byte) string {
	sum := sha256.Sum256(payload)
	return base64.RawURLEncoding.EncodeToString(sum[:])
}

// Check looks the key up. found reports a stored response to replay;
// ErrIdempotencyConflict means the key exists for different content.
func (s *IdempotencyStore) Check(ctx context.Context, tenantID, userID, endpoint, key, requestHash string) (response json.RawMessage, found bool, err error) {
	if s == nil || s.db == nil {
		return nil, false, nil
	}

	const query = `
    SELECT request_hash, response_json FROM idempotency_keys
    WHERE tenant_id = $1 AND user_id = $2 AND endpoint = $3 AND key = $4
  `
	var storedHash string
	err = s.db.QueryRow(ctx, query, tenantID, userID, endpoint, key).Scan(&storedHash, &response)
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		return nil, false, nil
	case err != nil:
		return nil, false, err
	case storedHash != requestHash:
		return nil, false, ErrIdempotencyConflict
	}
	return response, true, nil
}

// Save records the response for later replays. The upsert only touches rows
// whose stored hash matches, so a concurrent writer with different content
// cannot clobber the pair; losing that race surfaces as a conflict.
func (s *IdempotencyStore) Save(ctx context.Context, tenantID, userID, endpoint, key, requestHash string, response json.RawMessage) error {
	if s == nil || s.db == nil {
		return nil
	}

	const query = `
    INSERT INTO idempotency_keys (tenant_id, user_id, endpoint, key, request_hash, response_json)
    VALUES ($1, $2, $3, $4, $5, $6)
    ON CONFLICT (tenant_id, user_id, key, endpoint)
    DO UPDATE SET response_json = EXCLUDED.response_json
    WHERE idempotency_keys.request_hash = EXCLUDED.request_hash
    RETURNING 1
  `
	var one int
	err := s.db.QueryRow(ctx, query, tenantID, userID, endpoint, key, requestHash, response).Scan(&one)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrIdempotencyConflict
	}
	return err
}
