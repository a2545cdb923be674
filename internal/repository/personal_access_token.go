package repository

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"debtster-collection/internal/domain"
)

type PersonalAccessTokenRepository struct {
	db *sql.DB
}

func NewPersonalAccessTokenRepository(db *sql.DB) *PersonalAccessTokenRepository {
	return &PersonalAccessTokenRepository{db: db}
}

// HashToken returns the stored form of the secret part of a token.
func HashToken(secret string) string {
	sum := sha256.Sum256([]byte(secret))
	return hex.EncodeToString(sum[:])
}

// SplitToken separates an "<id>|<secret>" token. Tokens without an id prefix
// return a nil id.
func SplitToken(plain string) (*int64, string) {
	idx := strings.Index(plain, "|")
	if idx <= 0 {
		return nil, plain
	}
	id, err := strconv.ParseInt(plain[:idx], 10, 64)
	if err != nil {
		return nil, plain
	}
	return &id, plain[idx+1:]
}

// FindTokenByPlainToken resolves a bearer token to an unexpired access token.
func (r *PersonalAccessTokenRepository) FindTokenByPlainToken(ctx context.Context, plainToken string) (*domain.PersonalAccessToken, error) {
	plainToken = strings.TrimSpace(plainToken)
	if plainToken == "" {
		return nil, errors.New("empty token")
	}

	id, secret := SplitToken(plainToken)
	hash := HashToken(secret)
	now := time.Now()

	var (
		pat domain.PersonalAccessToken
		row *sql.Row
	)
	if id != nil {
		row = r.db.QueryRowContext(ctx, `
			SELECT id, token, tokenable_id, tenant_id, abilities, expires_at
			FROM personal_access_tokens
			WHERE id = $1 AND token = $2
			  AND (expires_at IS NULL OR expires_at > $3)
		`, *id, hash, now)
	} else {
		row = r.db.QueryRowContext(ctx, `
			SELECT id, token, tokenable_id, tenant_id, abilities, expires_at
			FROM personal_access_tokens
			WHERE token = $1
			  AND (expires_at IS NULL OR expires_at > $2)
			ORDER BY created_at DESC
			LIMIT 1
		`, hash, now)
	}

	err := row.Scan(&pat.ID, &pat.TokenHash, &pat.UserID, &pat.TenantID, &pat.Abilities, &pat.ExpiresAt)
	if isNoRows(err) {
		return nil, ErrNotFound
	}
	if err != nil {
		log.Printf("[TOKEN] lookup error: %v", err)
		return nil, fmt.Errorf("token lookup: %w", err)
	}

	return &pat, nil
}
