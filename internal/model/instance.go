package model

import (
	"time"
)

// Instance is one logical binding between the gateway and an external
// chat-channel account. PhoneNumber is set exactly while the instance is
// connected; PairingPayload exists only while connecting.
type Instance struct {
	ID             string         `db:"id" json:"id"`
	UserID         string         `db:"user_id" json:"user_id"`
	Name           string         `db:"name" json:"name"`
	Description    *string        `db:"description" json:"description,omitempty"`
	InstanceType   InstanceType   `db:"instance_type" json:"instance_type"`
	Status         InstanceStatus `db:"status" json:"status"`
	PhoneNumber    *string        `db:"phone_number" json:"phone_number,omitempty"`
	PairingPayload *string        `db:"pairing_payload" json:"-"`
	SessionToken   string         `db:"session_token" json:"-"`
	CreatedAt      time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time      `db:"updated_at" json:"updated_at"`
}

type CreateInstanceParams struct {
	ID           string
	UserID       string
	Name         string
	Description  *string
	InstanceType InstanceType
	SessionToken string
}
