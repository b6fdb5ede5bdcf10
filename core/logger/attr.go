package logger

import (
	"log/slog"
	"runtime"
	"strconv"
	"time"

	"github.com/dmitrymomot/msgbus/core/message"
)

// Attribute helpers use the empty Attr pattern for nil safety.
// This allows calls like log.Info("msg", logger.Error(err)) without explicit nil checks,
// following the principle of making zero values useful.

// ============================================================================
// Error Handling
// ============================================================================

// Errors groups multiple non-nil errors under the key "errors".
// Uses index-based keys to preserve error order. Returns empty Attr for all nil errors.
func Errors(errs ...error) slog.Attr {
	count := 0
	for _, err := range errs {
		if err != nil {
			count++
		}
	}
	if count == 0 {
		return slog.Attr{}
	}

	as := make([]slog.Attr, 0, count)
	for i, err := range errs {
		if err != nil {
			as = append(as, slog.Any(strconv.Itoa(i), err))
		}
	}
	return slog.Attr{Key: "errors", Value: slog.GroupValue(as...)}
}

// Error creates an attribute for a single error under the key "error".
// Returns empty Attr for nil errors, enabling safe usage without nil checks.
func Error(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.Any("error", err)
}

// Panic creates an attribute for a recovered panic value.
func Panic(v any) slog.Attr {
	if v == nil {
		return slog.Attr{}
	}
	return slog.Any("panic", v)
}

// ============================================================================
// Performance and Timing
// ============================================================================

// Duration creates an attribute for a duration.
func Duration(d time.Duration) slog.Attr {
	return slog.Duration("duration", d)
}

// Elapsed calculates and logs the duration since the start time.
func Elapsed(start time.Time) slog.Attr {
	return slog.Duration("elapsed", time.Since(start))
}

// ============================================================================
// Messaging
// ============================================================================

// MessageType creates an attribute with the dynamic type of a message.
// Pointer types are unwrapped, so *OrderPlaced and OrderPlaced log the same name.
func MessageType(msg any) slog.Attr {
	if msg == nil {
		return slog.Attr{}
	}
	return slog.String("message_type", message.Name(msg))
}

// Subscription creates an attribute for a subscription name.
func Subscription(name string) slog.Attr {
	if name == "" {
		return slog.Attr{}
	}
	return slog.String("subscription", name)
}

// PublishID creates an attribute for the identifier of a publish call.
func PublishID(id string) slog.Attr {
	if id == "" {
		return slog.Attr{}
	}
	return slog.String("publish_id", id)
}

// StreamID creates an attribute for a stream identifier.
func StreamID(id string) slog.Attr {
	if id == "" {
		return slog.Attr{}
	}
	return slog.String("stream_id", id)
}

// Depth creates an attribute for the republish depth of a dispatch.
func Depth(n int) slog.Attr {
	return slog.Int("depth", n)
}

// ============================================================================
// Generic Metadata
// ============================================================================

// Component creates an attribute for component names.
func Component(name string) slog.Attr {
	return slog.String("component", name)
}

// Result creates an attribute for operation results (success/failure/pending).
func Result(result string) slog.Attr {
	return slog.String("result", result)
}

// Count creates a generic counter attribute.
func Count(key string, n int) slog.Attr {
	return slog.Int(key, n)
}

// ============================================================================
// Debugging
// ============================================================================

// Stack captures and returns the current stack trace.
func Stack() slog.Attr {
	const size = 64 << 10
	buf := make([]byte, size)
	buf = buf[:runtime.Stack(buf, false)]
	return slog.String("stack", string(buf))
}
