// Package async provides futures for running work in the background and
// coordinating its completion.
//
// # Core Types
//
// Future[T] holds the result of a computation started with Go. ExecFuture holds
// the outcome of a computation that only returns an error, started with Exec.
// Both expose Await, AwaitContext, AwaitWithTimeout, IsComplete and Done.
//
// # Usage
//
//	future := async.Go(ctx, func(ctx context.Context) (User, error) {
//		return repo.Find(ctx, id)
//	})
//
//	// Do other work...
//
//	user, err := future.Await()
//
// Error-only work takes a parameter, which keeps loop variables out of closures:
//
//	handles := make([]*async.ExecFuture, 0, len(streams))
//	for _, s := range streams {
//		handles = append(handles, async.Exec(ctx, s, consume))
//	}
//	err := async.ExecAll(handles...)
//
// # Coordination Utilities
//
//   - ExecAll waits for every future and joins all errors
//   - ExecAny returns as soon as the first future completes
//
// # Error Handling
//
//   - ErrTimeout: returned when AwaitWithTimeout exceeds its duration
//   - ErrNoFutures: returned when ExecAny is called with no futures
//
// Panics inside a computation are recovered and reported as its error.
//
// # Context Support
//
// If the context is canceled before the computation starts, the future completes
// immediately with the context's error and the function is never called.
// AwaitContext stops waiting when its context is done but does not stop the
// computation itself.
package async
