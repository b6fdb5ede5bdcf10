package bus

import (
	"context"
	"time"
)

type publishIDCtx struct{}

func withPublishID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, publishIDCtx{}, id)
}

// PublishID extracts the identifier of the publish call being dispatched.
// Returns empty string if not present.
func PublishID(ctx context.Context) string {
	if id, ok := ctx.Value(publishIDCtx{}).(string); ok {
		return id
	}
	return ""
}

type subscriptionNameCtx struct{}

func withSubscriptionName(ctx context.Context, name string) context.Context {
	return context.WithValue(ctx, subscriptionNameCtx{}, name)
}

// SubscriptionName extracts the name of the subscription being invoked.
// Returns empty string if not present.
func SubscriptionName(ctx context.Context) string {
	if name, ok := ctx.Value(subscriptionNameCtx{}).(string); ok {
		return name
	}
	return ""
}

type startProcessingAt struct{}

func withStartProcessingTime(ctx context.Context, t time.Time) context.Context {
	return context.WithValue(ctx, startProcessingAt{}, t)
}

// StartProcessingTime extracts the time the current invocation started.
// Returns zero time if not present.
func StartProcessingTime(ctx context.Context) time.Time {
	if t, ok := ctx.Value(startProcessingAt{}).(time.Time); ok {
		return t
	}
	return time.Time{}
}

type depthCtx struct{}

func withDepth(ctx context.Context, depth int) context.Context {
	return context.WithValue(ctx, depthCtx{}, depth)
}

// Depth returns how many return-value republishes led to the current dispatch.
// A top-level publish has depth 0.
func Depth(ctx context.Context) int {
	if d, ok := ctx.Value(depthCtx{}).(int); ok {
		return d
	}
	return 0
}

type scopeCtx struct{}

// ContextWithScope attaches a dependency scope used by scoped subscribers
// for publishes made with the returned context.
func ContextWithScope(ctx context.Context, scope Scope) context.Context {
	return context.WithValue(ctx, scopeCtx{}, scope)
}

// ScopeFrom extracts the scope attached with ContextWithScope.
// Returns nil if not present.
func ScopeFrom(ctx context.Context) Scope {
	if s, ok := ctx.Value(scopeCtx{}).(Scope); ok {
		return s
	}
	return nil
}

type dependencyCtx struct{}

func withDependency(ctx context.Context, dep any) context.Context {
	return context.WithValue(ctx, dependencyCtx{}, dep)
}

func dependency(ctx context.Context) any {
	return ctx.Value(dependencyCtx{})
}
