// Package message defines how published values are identified and matched
// against subscription filters.
//
// A message is any non-nil Go value. A filter type T accepts a message M when
// M is assignable to T: the same type, or an interface implemented by M.
// Interfaces therefore act as the ancestor types of a message hierarchy:
//
//	type Event interface{ EventName() string }
//
//	type OrderPlaced struct{ OrderID string }
//
//	func (OrderPlaced) EventName() string { return "order.placed" }
//
//	v, ok := message.Match(OrderPlaced{}, message.TypeOf[Event]()) // ok == true
//
// # Envelopes
//
// Values implementing Envelope carry another message. When a filter does not
// accept the envelope itself but accepts its payload, Match returns the payload:
//
//	env := message.NewEnvelope(OrderPlaced{OrderID: "42"}, nil)
//	v, _ := message.Match(env, message.TypeOf[OrderPlaced]()) // v is OrderPlaced
//	v, _ = message.Match(env, message.TypeOf[message.Envelope]()) // v is env
package message
