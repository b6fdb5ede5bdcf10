package bus

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrConfiguration is matched by every *ConfigurationError.
	ErrConfiguration = errors.New("bus: invalid configuration")

	// ErrSubscriberFailed is matched by every *SubscriberError.
	ErrSubscriberFailed = errors.New("bus: subscriber failed")

	// ErrDispatchFailed is matched by every *DispatchError.
	ErrDispatchFailed = errors.New("bus: dispatch failed")

	// ErrStreamFault is matched by every *StreamFault.
	ErrStreamFault = errors.New("bus: stream faulted")

	// ErrRegistryBuilt is returned when subscribing after the bus has been built.
	ErrRegistryBuilt = errors.New("bus: registry already built")

	// ErrNilMessage is returned when publishing nil.
	ErrNilMessage = errors.New("bus: nil message")

	// ErrRepublishDepthExceeded is returned when return-value republishing nests deeper than configured.
	ErrRepublishDepthExceeded = errors.New("bus: republish depth exceeded")

	// ErrSubscriberPanicked wraps a panic recovered from a subscriber.
	ErrSubscriberPanicked = errors.New("bus: subscriber panicked")

	// ErrServiceNotFound is returned when a scope has no value of the requested type.
	ErrServiceNotFound = errors.New("bus: service not found")

	// ErrAmbiguousService is returned when a scope has several values of the requested type.
	ErrAmbiguousService = errors.New("bus: ambiguous service")

	// ErrHealthcheckFailed is matched by every error returned from Healthcheck.
	ErrHealthcheckFailed = errors.New("bus: healthcheck failed")

	// ErrNoSubscriptions is reported by Healthcheck when nothing is subscribed.
	ErrNoSubscriptions = errors.New("bus: no subscriptions registered")
)

// ConfigurationError reports an invalid subscription or an unresolvable dependency.
type ConfigurationError struct {
	Subscription string
	Reason       string
	Err          error
}

func (e *ConfigurationError) Error() string {
	var b strings.Builder
	b.WriteString("bus: configuration error")
	if e.Subscription != "" {
		fmt.Fprintf(&b, " in %q", e.Subscription)
	}
	if e.Reason != "" {
		b.WriteString(": ")
		b.WriteString(e.Reason)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *ConfigurationError) Unwrap() []error {
	return nonNil(ErrConfiguration, e.Err)
}

// SubscriberError is a failure raised by a single subscriber invocation.
type SubscriberError struct {
	Subscription string
	MessageType  string
	Err          error
}

func (e *SubscriberError) Error() string {
	return fmt.Sprintf("bus: subscriber %q failed handling %s: %v", e.Subscription, e.MessageType, e.Err)
}

func (e *SubscriberError) Unwrap() []error {
	return nonNil(ErrSubscriberFailed, e.Err)
}

// DispatchError aggregates every failure of one publish call.
// It is returned only after all started invocations have finished.
type DispatchError struct {
	PublishID string
	Errors    []error
}

func (e *DispatchError) Error() string {
	if len(e.Errors) == 1 {
		return fmt.Sprintf("bus: dispatch %s failed: %v", e.PublishID, e.Errors[0])
	}

	msgs := make([]string, len(e.Errors))
	for i, err := range e.Errors {
		msgs[i] = err.Error()
	}
	return fmt.Sprintf("bus: dispatch %s failed with %d errors: %s",
		e.PublishID, len(e.Errors), strings.Join(msgs, "; "))
}

func (e *DispatchError) Unwrap() []error {
	return nonNil(append([]error{ErrDispatchFailed}, e.Errors...)...)
}

// StreamFault is the failure of one stream subscriber. It affects only that
// subscriber's pending handle.
type StreamFault struct {
	Subscription string
	StreamID     string
	Err          error
}

func (e *StreamFault) Error() string {
	return fmt.Sprintf("bus: stream %s faulted in %q: %v", e.StreamID, e.Subscription, e.Err)
}

func (e *StreamFault) Unwrap() []error {
	return nonNil(ErrStreamFault, e.Err)
}

func nonNil(errs ...error) []error {
	out := make([]error, 0, len(errs))
	for _, err := range errs {
		if err != nil {
			out = append(out, err)
		}
	}
	return out
}
