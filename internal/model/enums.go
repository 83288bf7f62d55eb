package model

type InstanceStatus string

const (
	InstanceStatusDisconnected InstanceStatus = "disconnected"
	InstanceStatusConnecting   InstanceStatus = "connecting"
	InstanceStatusConnected    InstanceStatus = "connected"
)

type InstanceType string

const (
	InstanceTypeStandard InstanceType = "standard"
	InstanceTypeBotpress InstanceType = "botpress"
)

type MessageDirection string

const (
	DirectionOutgoing MessageDirection = "outgoing"
	DirectionIncoming MessageDirection = "incoming"
)

type DeliveryStatus string

const (
	DeliveryStatusQueued DeliveryStatus = "queued"
	DeliveryStatusSent   DeliveryStatus = "sent"
	DeliveryStatusFailed DeliveryStatus = "failed"
)

// API key permission scopes
const (
	ScopeSendMessage    = "send_message"
	ScopeReceiveMessage = "receive_message"
)

// Webhook event names
const (
	EventMessageSent          = "message.sent"
	EventMessageReceived      = "message.received"
	EventInstanceConnected    = "instance.connected"
	EventInstanceDisconnected = "instance.disconnected"
)

// KnownEvents lists every event a webhook may subscribe to.
var KnownEvents = []string{
	EventMessageSent,
	EventMessageReceived,
	EventInstanceConnected,
	EventInstanceDisconnected,
}

// KnownScopes lists every permission an API key may carry.
var KnownScopes = []string{ScopeSendMessage, ScopeReceiveMessage}
