// Package channel abstracts the external chat-channel provider. The core
// only depends on this interface; the real transport lives elsewhere.
package channel

import (
	"context"

	"github.com/telenexus/gateway-server-go/internal/composer"
)

// Pairing is the artifact a user presents to the channel provider to link
// an instance.
type Pairing struct {
	Code      string `json:"code"`
	QRPayload string `json:"qr_payload"`
}

// Provider is the channel provider adapter. Implementations must honor the
// context deadline; the dispatch engine bounds every call.
type Provider interface {
	// Pair issues a fresh pairing payload for an instance.
	Pair(ctx context.Context, instanceID, sessionToken string) (*Pairing, error)

	// Send delivers a composed message to a phone number. Billing and
	// interactive messages are rendered to provider-native payloads by the
	// implementation; validation has already happened upstream.
	Send(ctx context.Context, phoneNumber string, msg *composer.Message) error
}
