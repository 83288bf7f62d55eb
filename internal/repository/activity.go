package repository

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/telenexus/gateway-server-go/internal/model"
)

type ActivityLogRepository interface {
	FindByUserID(ctx context.Context, userID string, instanceID *string, limit int) ([]model.ActivityLog, error)
	Create(ctx context.Context, params model.CreateActivityLogParams) error
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

type activityLogRepo struct {
	db *sqlx.DB
}

func NewActivityLogRepository(db *sqlx.DB) ActivityLogRepository {
	return &activityLogRepo{db: db}
}

func (r *activityLogRepo) FindByUserID(ctx context.Context, userID string, instanceID *string, limit int) ([]model.ActivityLog, error) {
	var logs []model.ActivityLog
	if instanceID != nil {
		err := r.db.SelectContext(ctx, &logs, `
			SELECT * FROM activity_logs
			WHERE user_id = $1 AND instance_id = $2
			ORDER BY created_at DESC
			LIMIT $3
		`, userID, *instanceID, limit)
		return logs, err
	}
	err := r.db.SelectContext(ctx, &logs, `
		SELECT * FROM activity_logs
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`, userID, limit)
	return logs, err
}

func (r *activityLogRepo) Create(ctx context.Context, params model.CreateActivityLogParams) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO activity_logs (id, user_id, instance_id, action, details, ip_address)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, params.ID, params.UserID, params.InstanceID, params.Action,
		params.Details, params.IPAddress)
	return err
}

func (r *activityLogRepo) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx, `
		DELETE FROM activity_logs WHERE created_at < $1
	`, cutoff)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
