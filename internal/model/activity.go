package model

import (
	"encoding/json"
	"time"
)

type ActivityLog struct {
	ID         string           `db:"id" json:"id"`
	UserID     string           `db:"user_id" json:"user_id"`
	InstanceID *string          `db:"instance_id" json:"instance_id,omitempty"`
	Action     string           `db:"action" json:"action"`
	Details    *json.RawMessage `db:"details" json:"details,omitempty"`
	IPAddress  *string          `db:"ip_address" json:"ip_address,omitempty"`
	CreatedAt  time.Time        `db:"created_at" json:"created_at"`
}

type CreateActivityLogParams struct {
	ID         string
	UserID     string
	InstanceID *string
	Action     string
	Details    *json.RawMessage
	IPAddress  *string
}
