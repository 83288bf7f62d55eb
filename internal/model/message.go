package model

import (
	"time"
)

// DeliveryRecord is one dispatched (or received) message. Immutable after
// creation except for the queued -> sent/failed status transition.
type DeliveryRecord struct {
	ID           string           `db:"id" json:"id"`
	InstanceID   string           `db:"instance_id" json:"instance_id"`
	PhoneNumber  string           `db:"phone_number" json:"phone_number"`
	Message      string           `db:"message" json:"message"`
	MessageType  string           `db:"message_type" json:"message_type"`
	Direction    MessageDirection `db:"direction" json:"direction"`
	Status       DeliveryStatus   `db:"status" json:"status"`
	ErrorMessage *string          `db:"error_message" json:"error_message,omitempty"`
	CreatedAt    time.Time        `db:"created_at" json:"created_at"`
}

type CreateDeliveryRecordParams struct {
	ID          string
	InstanceID  string
	PhoneNumber string
	Message     string
	MessageType string
	Direction   MessageDirection
	Status      DeliveryStatus
}
