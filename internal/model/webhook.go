package model

import (
	"time"

	"github.com/lib/pq"
)

type Webhook struct {
	ID            string         `db:"id" json:"id"`
	InstanceID    string         `db:"instance_id" json:"instance_id"`
	UserID        string         `db:"user_id" json:"-"`
	URL           string         `db:"url" json:"url"`
	Events        pq.StringArray `db:"events" json:"events"`
	IsActive      bool           `db:"is_active" json:"is_active"`
	CreatedAt     time.Time      `db:"created_at" json:"created_at"`
	LastTriggered *time.Time     `db:"last_triggered" json:"last_triggered,omitempty"`
}

type CreateWebhookParams struct {
	ID         string
	InstanceID string
	UserID     string
	URL        string
	Events     []string
	IsActive   bool
}
