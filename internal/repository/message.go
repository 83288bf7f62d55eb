package repository

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/telenexus/gateway-server-go/internal/model"
)

type DeliveryRecordRepository interface {
	FindByID(ctx context.Context, id string) (*model.DeliveryRecord, error)
	FindByInstanceID(ctx context.Context, instanceID string, limit, offset int) ([]model.DeliveryRecord, error)
	CountByInstanceIDs(ctx context.Context, instanceIDs []string) (int, error)
	CountByInstanceIDsSince(ctx context.Context, instanceIDs []string, since time.Time) (int, error)
	Create(ctx context.Context, params model.CreateDeliveryRecordParams) (*model.DeliveryRecord, error)
	MarkSent(ctx context.Context, id string) error
	MarkFailed(ctx context.Context, id string, errorMsg string) error
}

type deliveryRecordRepo struct {
	db *sqlx.DB
}

func NewDeliveryRecordRepository(db *sqlx.DB) DeliveryRecordRepository {
	return &deliveryRecordRepo{db: db}
}

func (r *deliveryRecordRepo) FindByID(ctx context.Context, id string) (*model.DeliveryRecord, error) {
	var rec model.DeliveryRecord
	err := r.db.GetContext(ctx, &rec, `SELECT * FROM delivery_records WHERE id = $1`, id)
	return HandleNotFound(&rec, err)
}

func (r *deliveryRecordRepo) FindByInstanceID(ctx context.Context, instanceID string, limit, offset int) ([]model.DeliveryRecord, error) {
	var recs []model.DeliveryRecord
	err := r.db.SelectContext(ctx, &recs, `
		SELECT * FROM delivery_records
		WHERE instance_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`, instanceID, limit, offset)
	return recs, err
}

func (r *deliveryRecordRepo) CountByInstanceIDs(ctx context.Context, instanceIDs []string) (int, error) {
	if len(instanceIDs) == 0 {
		return 0, nil
	}
	query, args, err := sqlx.In(`SELECT COUNT(*) FROM delivery_records WHERE instance_id IN (?)`, instanceIDs)
	if err != nil {
		return 0, err
	}
	var count int
	err = r.db.GetContext(ctx, &count, r.db.Rebind(query), args...)
	return count, err
}

func (r *deliveryRecordRepo) CountByInstanceIDsSince(ctx context.Context, instanceIDs []string, since time.Time) (int, error) {
	if len(instanceIDs) == 0 {
		return 0, nil
	}
	query, args, err := sqlx.In(`
		SELECT COUNT(*) FROM delivery_records
		WHERE instance_id IN (?) AND created_at >= ?
	`, instanceIDs, since)
	if err != nil {
		return 0, err
	}
	var count int
	err = r.db.GetContext(ctx, &count, r.db.Rebind(query), args...)
	return count, err
}

func (r *deliveryRecordRepo) Create(ctx context.Context, params model.CreateDeliveryRecordParams) (*model.DeliveryRecord, error) {
	var rec model.DeliveryRecord
	err := r.db.GetContext(ctx, &rec, `
		INSERT INTO delivery_records
			(id, instance_id, phone_number, message, message_type, direction, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING *
	`, params.ID, params.InstanceID, params.PhoneNumber, params.Message,
		params.MessageType, params.Direction, params.Status)
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func (r *deliveryRecordRepo) MarkSent(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE delivery_records SET status = 'sent'
		WHERE id = $1 AND status = 'queued'
	`, id)
	return err
}

func (r *deliveryRecordRepo) MarkFailed(ctx context.Context, id string, errorMsg string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE delivery_records SET
			status = 'failed',
			error_message = $2
		WHERE id = $1 AND status = 'queued'
	`, id, errorMsg)
	return err
}
