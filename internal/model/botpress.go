package model

import (
	"time"
)

// BotpressBinding relays inbound traffic for one instance to an automation
// backend and accepts its replies. At most one binding per instance.
type BotpressBinding struct {
	ID         string     `db:"id" json:"id"`
	InstanceID string     `db:"instance_id" json:"instance_id"`
	WebhookURL string     `db:"webhook_url" json:"webhook_url"`
	AuthToken  *string    `db:"auth_token" json:"-"`
	IsActive   bool       `db:"is_active" json:"is_active"`
	CreatedAt  time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time  `db:"updated_at" json:"updated_at"`
	LastRelay  *time.Time `db:"last_relay" json:"last_relay,omitempty"`
}

type UpsertBotpressBindingParams struct {
	ID         string
	InstanceID string
	WebhookURL string
	AuthToken  *string
	IsActive   bool
}

type UpdateBotpressBindingParams struct {
	WebhookURL *string
	AuthToken  *string
	IsActive   *bool
}
