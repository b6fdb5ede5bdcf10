package message

import "reflect"

// Match reports whether v is accepted by a subscription filtered on filter.
// It returns the value to deliver: v itself when its dynamic type is assignable
// to filter, or the envelope payload when only the payload matches.
func Match(v any, filter reflect.Type) (any, bool) {
	if v == nil || filter == nil {
		return nil, false
	}

	if reflect.TypeOf(v).AssignableTo(filter) {
		return v, true
	}

	if env, ok := v.(Envelope); ok {
		payload := env.Payload()
		if payload != nil && reflect.TypeOf(payload).AssignableTo(filter) {
			return payload, true
		}
	}

	return nil, false
}

// MatchType is the type-level form of Match. payload is the dynamic type of
// the envelope payload, or nil when t is not an envelope.
// The second result reports whether the payload (not the envelope) matched.
func MatchType(t, payload, filter reflect.Type) (matched, unwrapped bool) {
	if t == nil || filter == nil {
		return false, false
	}
	if t.AssignableTo(filter) {
		return true, false
	}
	if payload != nil && payload.AssignableTo(filter) {
		return true, true
	}
	return false, false
}

// PayloadType returns the dynamic type of the envelope payload carried by v,
// or nil when v is not an envelope.
func PayloadType(v any) reflect.Type {
	env, ok := v.(Envelope)
	if !ok {
		return nil
	}
	payload := env.Payload()
	if payload == nil {
		return nil
	}
	return reflect.TypeOf(payload)
}

// Related reports whether a sequence declared with element type elem can carry
// values accepted by filter: either type is assignable to the other, or the
// elements are envelopes whose payloads may match.
func Related(elem, filter reflect.Type) bool {
	if elem == nil || filter == nil {
		return false
	}
	if elem.AssignableTo(filter) || filter.AssignableTo(elem) {
		return true
	}
	return elem.Implements(envelopeType)
}

// IsNil reports whether v is nil or holds a typed nil value.
func IsNil(v any) bool {
	if v == nil {
		return true
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan, reflect.Interface:
		return rv.IsNil()
	default:
		return false
	}
}
