package repository

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/telenexus/gateway-server-go/internal/model"
)

type WebhookRepository interface {
	FindByID(ctx context.Context, id string) (*model.Webhook, error)
	FindByInstanceID(ctx context.Context, instanceID string) ([]model.Webhook, error)
	FindActiveByInstanceAndEvent(ctx context.Context, instanceID, event string) ([]model.Webhook, error)
	CountActiveByUserID(ctx context.Context, userID string) (int, error)
	Create(ctx context.Context, params model.CreateWebhookParams) (*model.Webhook, error)
	Delete(ctx context.Context, id, userID string) (bool, error)
	TouchLastTriggered(ctx context.Context, id string) error
}

type webhookRepo struct {
	db *sqlx.DB
}

func NewWebhookRepository(db *sqlx.DB) WebhookRepository {
	return &webhookRepo{db: db}
}

func (r *webhookRepo) FindByID(ctx context.Context, id string) (*model.Webhook, error) {
	var wh model.Webhook
	err := r.db.GetContext(ctx, &wh, `SELECT * FROM webhooks WHERE id = $1`, id)
	return HandleNotFound(&wh, err)
}

func (r *webhookRepo) FindByInstanceID(ctx context.Context, instanceID string) ([]model.Webhook, error) {
	var webhooks []model.Webhook
	err := r.db.SelectContext(ctx, &webhooks, `
		SELECT * FROM webhooks
		WHERE instance_id = $1
		ORDER BY created_at DESC
	`, instanceID)
	return webhooks, err
}

func (r *webhookRepo) FindActiveByInstanceAndEvent(ctx context.Context, instanceID, event string) ([]model.Webhook, error) {
	var webhooks []model.Webhook
	err := r.db.SelectContext(ctx, &webhooks, `
		SELECT * FROM webhooks
		WHERE instance_id = $1 AND is_active = TRUE AND $2 = ANY(events)
	`, instanceID, event)
	return webhooks, err
}

func (r *webhookRepo) CountActiveByUserID(ctx context.Context, userID string) (int, error) {
	var count int
	err := r.db.GetContext(ctx, &count, `
		SELECT COUNT(*) FROM webhooks WHERE user_id = $1 AND is_active = TRUE
	`, userID)
	return count, err
}

func (r *webhookRepo) Create(ctx context.Context, params model.CreateWebhookParams) (*model.Webhook, error) {
	var wh model.Webhook
	err := r.db.GetContext(ctx, &wh, `
		INSERT INTO webhooks (id, instance_id, user_id, url, events, is_active)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING *
	`, params.ID, params.InstanceID, params.UserID, params.URL,
		pq.StringArray(params.Events), params.IsActive)
	if err != nil {
		return nil, err
	}
	return &wh, nil
}

func (r *webhookRepo) Delete(ctx context.Context, id, userID string) (bool, error) {
	result, err := r.db.ExecContext(ctx, `
		DELETE FROM webhooks WHERE id = $1 AND user_id = $2
	`, id, userID)
	if err != nil {
		return false, err
	}
	affected, err := result.RowsAffected()
	return affected > 0, err
}

func (r *webhookRepo) TouchLastTriggered(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE webhooks SET last_triggered = $2 WHERE id = $1
	`, id, time.Now())
	return err
}
