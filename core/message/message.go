package message

import (
	"reflect"
	"time"

	"github.com/google/uuid"
)

// Envelope wraps a message with transport metadata.
// Subscriptions declared on the wrapped message type receive the unwrapped payload.
type Envelope interface {
	Payload() any
}

// MessageEnvelope is the default Envelope implementation.
type MessageEnvelope struct {
	ID        string            `json:"id"`         // Unique identifier for the envelope
	Name      string            `json:"name"`       // Message type name (e.g., "OrderPlaced")
	Headers   map[string]string `json:"headers"`    // Transport metadata
	Message   any               `json:"message"`    // Wrapped message
	CreatedAt time.Time         `json:"created_at"` // When the envelope was created
}

// NewEnvelope wraps msg into a MessageEnvelope with auto-generated ID and timestamp.
// The name is derived from the message type.
//
// Example:
//
//	env := message.NewEnvelope(OrderPlaced{OrderID: "42"}, map[string]string{"source": "kafka"})
//	// env.Name will be "OrderPlaced"
func NewEnvelope(msg any, headers map[string]string) *MessageEnvelope {
	if headers == nil {
		headers = make(map[string]string)
	}

	return &MessageEnvelope{
		ID:        uuid.New().String(),
		Name:      Name(msg),
		Headers:   headers,
		Message:   msg,
		CreatedAt: time.Now(),
	}
}

// Payload returns the wrapped message.
func (e *MessageEnvelope) Payload() any {
	return e.Message
}

// envelopeType is the reflect.Type of the Envelope interface.
var envelopeType = reflect.TypeFor[Envelope]()

// EnvelopeType returns the reflect.Type of the Envelope interface.
func EnvelopeType() reflect.Type {
	return envelopeType
}

// TypeOf returns the reflect.Type for T, including interface types.
func TypeOf[T any]() reflect.Type {
	return reflect.TypeFor[T]()
}

// Name returns the bare type name of a message, unwrapping pointer types.
// Unnamed types fall back to their string representation.
func Name(v any) string {
	if v == nil {
		return "<nil>"
	}
	return TypeName(reflect.TypeOf(v))
}

// TypeName returns the bare name of t, unwrapping pointer types.
func TypeName(t reflect.Type) string {
	if t == nil {
		return "<nil>"
	}

	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}

	if t.Name() != "" {
		return t.Name()
	}
	return t.String()
}
