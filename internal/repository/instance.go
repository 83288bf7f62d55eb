package repository

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/telenexus/gateway-server-go/internal/database"
	"github.com/telenexus/gateway-server-go/internal/model"
)

type InstanceRepository interface {
	FindByID(ctx context.Context, id string) (*model.Instance, error)
	FindByUserID(ctx context.Context, userID string) ([]model.Instance, error)
	CountByUserID(ctx context.Context, userID string) (int, error)
	CountByUserIDAndStatus(ctx context.Context, userID string, status model.InstanceStatus) (int, error)
	Create(ctx context.Context, params model.CreateInstanceParams) (*model.Instance, error)
	SetConnecting(ctx context.Context, id, pairingPayload string) error
	SetConnected(ctx context.Context, id, phoneNumber string) error
	SetDisconnected(ctx context.Context, id string) error
	SetPairingPayload(ctx context.Context, id, pairingPayload string) error
	DeleteCascade(ctx context.Context, id string) (bool, error)
	ExpireStuckConnecting(ctx context.Context, olderThan time.Time) (int64, error)
}

type instanceRepo struct {
	db *sqlx.DB
}

func NewInstanceRepository(db *sqlx.DB) InstanceRepository {
	return &instanceRepo{db: db}
}

func (r *instanceRepo) FindByID(ctx context.Context, id string) (*model.Instance, error) {
	var inst model.Instance
	err := r.db.GetContext(ctx, &inst, `SELECT * FROM instances WHERE id = $1`, id)
	return HandleNotFound(&inst, err)
}

func (r *instanceRepo) FindByUserID(ctx context.Context, userID string) ([]model.Instance, error) {
	var instances []model.Instance
	err := r.db.SelectContext(ctx, &instances, `
		SELECT * FROM instances
		WHERE user_id = $1
		ORDER BY created_at DESC
	`, userID)
	return instances, err
}

func (r *instanceRepo) CountByUserID(ctx context.Context, userID string) (int, error) {
	var count int
	err := r.db.GetContext(ctx, &count, `
		SELECT COUNT(*) FROM instances WHERE user_id = $1
	`, userID)
	return count, err
}

func (r *instanceRepo) CountByUserIDAndStatus(ctx context.Context, userID string, status model.InstanceStatus) (int, error) {
	var count int
	err := r.db.GetContext(ctx, &count, `
		SELECT COUNT(*) FROM instances WHERE user_id = $1 AND status = $2
	`, userID, status)
	return count, err
}

func (r *instanceRepo) Create(ctx context.Context, params model.CreateInstanceParams) (*model.Instance, error) {
	var inst model.Instance
	err := r.db.GetContext(ctx, &inst, `
		INSERT INTO instances
			(id, user_id, name, description, instance_type, status, session_token)
		VALUES ($1, $2, $3, $4, $5, 'disconnected', $6)
		RETURNING *
	`, params.ID, params.UserID, params.Name, params.Description,
		params.InstanceType, params.SessionToken)
	if err != nil {
		return nil, err
	}
	return &inst, nil
}

func (r *instanceRepo) SetConnecting(ctx context.Context, id, pairingPayload string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE instances SET
			status = 'connecting',
			pairing_payload = $2,
			phone_number = NULL,
			updated_at = $3
		WHERE id = $1
	`, id, pairingPayload, time.Now())
	return err
}

func (r *instanceRepo) SetConnected(ctx context.Context, id, phoneNumber string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE instances SET
			status = 'connected',
			phone_number = $2,
			pairing_payload = NULL,
			updated_at = $3
		WHERE id = $1
	`, id, phoneNumber, time.Now())
	return err
}

func (r *instanceRepo) SetDisconnected(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE instances SET
			status = 'disconnected',
			phone_number = NULL,
			pairing_payload = NULL,
			updated_at = $2
		WHERE id = $1
	`, id, time.Now())
	return err
}

func (r *instanceRepo) SetPairingPayload(ctx context.Context, id, pairingPayload string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE instances SET
			pairing_payload = $2,
			updated_at = $3
		WHERE id = $1
	`, id, pairingPayload, time.Now())
	return err
}

// DeleteCascade removes an instance together with its webhooks, delivery
// records and bot binding in a single transaction.
func (r *instanceRepo) DeleteCascade(ctx context.Context, id string) (bool, error) {
	var deleted bool
	err := database.WithTx(ctx, r.db, func(tx *sqlx.Tx) error {
		for _, query := range []string{
			`DELETE FROM webhooks WHERE instance_id = $1`,
			`DELETE FROM delivery_records WHERE instance_id = $1`,
			`DELETE FROM botpress_bindings WHERE instance_id = $1`,
		} {
			if _, err := tx.ExecContext(ctx, query, id); err != nil {
				return err
			}
		}

		result, err := tx.ExecContext(ctx, `DELETE FROM instances WHERE id = $1`, id)
		if err != nil {
			return err
		}
		affected, err := result.RowsAffected()
		if err != nil {
			return err
		}
		deleted = affected > 0
		return nil
	})
	return deleted, err
}

// ExpireStuckConnecting reverts instances that never completed their link
// back to disconnected. Run by the cleanup job.
func (r *instanceRepo) ExpireStuckConnecting(ctx context.Context, olderThan time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx, `
		UPDATE instances SET
			status = 'disconnected',
			phone_number = NULL,
			pairing_payload = NULL,
			updated_at = NOW()
		WHERE status = 'connecting' AND updated_at < $1
	`, olderThan)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
