package repository

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/telenexus/gateway-server-go/internal/model"
)

type BotpressBindingRepository interface {
	FindByInstanceID(ctx context.Context, instanceID string) (*model.BotpressBinding, error)
	Upsert(ctx context.Context, params model.UpsertBotpressBindingParams) (*model.BotpressBinding, error)
	Update(ctx context.Context, instanceID string, params model.UpdateBotpressBindingParams) (*model.BotpressBinding, error)
	Delete(ctx context.Context, instanceID string) (bool, error)
	TouchLastRelay(ctx context.Context, instanceID string) error
}

type botpressBindingRepo struct {
	db *sqlx.DB
}

func NewBotpressBindingRepository(db *sqlx.DB) BotpressBindingRepository {
	return &botpressBindingRepo{db: db}
}

func (r *botpressBindingRepo) FindByInstanceID(ctx context.Context, instanceID string) (*model.BotpressBinding, error) {
	var binding model.BotpressBinding
	err := r.db.GetContext(ctx, &binding, `
		SELECT * FROM botpress_bindings WHERE instance_id = $1
	`, instanceID)
	return HandleNotFound(&binding, err)
}

// Upsert enforces the at-most-one-binding-per-instance invariant at the
// database level.
func (r *botpressBindingRepo) Upsert(ctx context.Context, params model.UpsertBotpressBindingParams) (*model.BotpressBinding, error) {
	var binding model.BotpressBinding
	err := r.db.GetContext(ctx, &binding, `
		INSERT INTO botpress_bindings (id, instance_id, webhook_url, auth_token, is_active)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (instance_id) DO UPDATE SET
			webhook_url = EXCLUDED.webhook_url,
			auth_token = EXCLUDED.auth_token,
			is_active = EXCLUDED.is_active,
			updated_at = NOW()
		RETURNING *
	`, params.ID, params.InstanceID, params.WebhookURL, params.AuthToken, params.IsActive)
	if err != nil {
		return nil, err
	}
	return &binding, nil
}

func (r *botpressBindingRepo) Update(ctx context.Context, instanceID string, params model.UpdateBotpressBindingParams) (*model.BotpressBinding, error) {
	var binding model.BotpressBinding
	err := r.db.GetContext(ctx, &binding, `
		UPDATE botpress_bindings SET
			webhook_url = COALESCE($2, webhook_url),
			auth_token = COALESCE($3, auth_token),
			is_active = COALESCE($4, is_active),
			updated_at = NOW()
		WHERE instance_id = $1
		RETURNING *
	`, instanceID, params.WebhookURL, params.AuthToken, params.IsActive)
	return HandleNotFound(&binding, err)
}

func (r *botpressBindingRepo) Delete(ctx context.Context, instanceID string) (bool, error) {
	result, err := r.db.ExecContext(ctx, `
		DELETE FROM botpress_bindings WHERE instance_id = $1
	`, instanceID)
	if err != nil {
		return false, err
	}
	affected, err := result.RowsAffected()
	return affected > 0, err
}

func (r *botpressBindingRepo) TouchLastRelay(ctx context.Context, instanceID string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE botpress_bindings SET last_relay = $2 WHERE instance_id = $1
	`, instanceID, time.Now())
	return err
}
