// Package logger provides slog attribute helpers shared by the bus packages.
//
// Every helper returns a slog.Attr with a fixed key, so log lines emitted by the
// dispatcher, the stream providers and user middleware can be queried uniformly.
// Helpers that take optional values return an empty Attr for nil or empty input,
// which slog drops, so callers never need nil checks:
//
//	log.ErrorContext(ctx, "subscriber failed",
//		logger.PublishID(bus.PublishID(ctx)),
//		logger.Subscription(name),
//		logger.MessageType(msg),
//		logger.Duration(time.Since(start)),
//		logger.Error(err),
//	)
//
// # Messaging Attributes
//
//   - MessageType: dynamic type name of a message, pointers unwrapped
//   - Subscription: subscription name
//   - PublishID: identifier of a publish call
//   - StreamID: identifier of a stream created from a provider
//   - Depth: republish depth of a dispatch
//
// # Generic Attributes
//
//   - Error, Errors: a single failure, or every failure of a dispatch
//   - Panic, Stack: a recovered panic value and where it happened
//   - Duration, Elapsed: invocation timing
//   - Component, Result, Count: log source, outcome and counters
package logger
