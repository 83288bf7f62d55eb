package repository

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/telenexus/gateway-server-go/internal/model"
)

type APIKeyRepository interface {
	FindByID(ctx context.Context, id string) (*model.APIKey, error)
	FindByKeyHash(ctx context.Context, keyHash string) (*model.APIKey, error)
	FindByUserID(ctx context.Context, userID string) ([]model.APIKey, error)
	CountActiveByUserID(ctx context.Context, userID string) (int, error)
	Create(ctx context.Context, params model.CreateAPIKeyParams) (*model.APIKey, error)
	Revoke(ctx context.Context, id, userID string) (bool, error)
	TouchLastUsed(ctx context.Context, id string) error
}

type apiKeyRepo struct {
	db *sqlx.DB
}

func NewAPIKeyRepository(db *sqlx.DB) APIKeyRepository {
	return &apiKeyRepo{db: db}
}

func (r *apiKeyRepo) FindByID(ctx context.Context, id string) (*model.APIKey, error) {
	var key model.APIKey
	err := r.db.GetContext(ctx, &key, `SELECT * FROM api_keys WHERE id = $1`, id)
	return HandleNotFound(&key, err)
}

func (r *apiKeyRepo) FindByKeyHash(ctx context.Context, keyHash string) (*model.APIKey, error) {
	var key model.APIKey
	err := r.db.GetContext(ctx, &key, `SELECT * FROM api_keys WHERE key_hash = $1`, keyHash)
	return HandleNotFound(&key, err)
}

func (r *apiKeyRepo) FindByUserID(ctx context.Context, userID string) ([]model.APIKey, error) {
	var keys []model.APIKey
	err := r.db.SelectContext(ctx, &keys, `
		SELECT * FROM api_keys
		WHERE user_id = $1
		ORDER BY created_at DESC
	`, userID)
	return keys, err
}

func (r *apiKeyRepo) CountActiveByUserID(ctx context.Context, userID string) (int, error) {
	var count int
	err := r.db.GetContext(ctx, &count, `
		SELECT COUNT(*) FROM api_keys WHERE user_id = $1 AND is_active = TRUE
	`, userID)
	return count, err
}

func (r *apiKeyRepo) Create(ctx context.Context, params model.CreateAPIKeyParams) (*model.APIKey, error) {
	var key model.APIKey
	err := r.db.GetContext(ctx, &key, `
		INSERT INTO api_keys (id, user_id, name, key_hash, key_masked, scopes, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, TRUE)
		RETURNING *
	`, params.ID, params.UserID, params.Name, params.KeyHash, params.KeyMasked,
		pq.StringArray(params.Scopes))
	if err != nil {
		return nil, err
	}
	return &key, nil
}

// Revoke is one-way: a revoked key stays revoked.
func (r *apiKeyRepo) Revoke(ctx context.Context, id, userID string) (bool, error) {
	result, err := r.db.ExecContext(ctx, `
		UPDATE api_keys SET is_active = FALSE
		WHERE id = $1 AND user_id = $2
	`, id, userID)
	if err != nil {
		return false, err
	}
	affected, err := result.RowsAffected()
	return affected > 0, err
}

func (r *apiKeyRepo) TouchLastUsed(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE api_keys SET last_used = $2 WHERE id = $1
	`, id, time.Now())
	return err
}
