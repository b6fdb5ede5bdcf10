// Package bus is an in-process publish/subscribe dispatcher.
//
// Components publish messages (commands, events, queries) and the bus invokes
// every subscription whose filter type accepts them. A filter type T accepts a
// message when the message is assignable to T, so an interface subscription
// receives every message implementing it.
//
// # Subscribing
//
// Subscriptions are declared with typed constructors and registered before the
// first publish. The registry is frozen by Build or by the first publish;
// later registration fails with ErrRegistryBuilt.
//
//	b, _ := bus.New(bus.WithMessageTypes(message.TypeOf[Event]()))
//
//	_ = b.Subscribe(
//	    bus.NewSubscriber(func(ctx context.Context, e Event) error { ... }),
//	    bus.NewBatchSubscriber(func(ctx context.Context, orders []OrderPlaced) error { ... }),
//	    bus.NewReplier(func(ctx context.Context, q GetQuote) (Quote, error) { ... }),
//	    bus.NewStreamSubscriber(func(ctx context.Context, s *stream.Typed[Command]) error { ... }),
//	)
//
// Values implementing Service contribute all their subscriptions at once with
// SubscribeService. Scoped constructors take an extra dependency resolved per
// publish from a Scope (see ContextWithScope and WithScope).
//
// # Publishing
//
//   - Publish and PublishAsync deliver a single message
//   - PublishBatch and PublishBatchAsync deliver a batch: element subscriptions
//     are invoked per element, batch subscriptions once with the whole batch
//   - PublishStream starts stream subscribers on a stream.Provider and returns
//     a pending handle per subscriber; PublishSequence wraps it for slices
//
// # Scheduling
//
// Matching subscriptions run in registration order, split into runs: each
// Exclusive subscription runs alone, consecutive non-exclusive subscriptions
// run concurrently. Over a batch a subscription is invoked sequentially in
// batch order, or concurrently when Parallel, bounded by MaxDegreeOfParallelism.
//
// # Results
//
// Non-nil subscriber results pass through a chain of ReturnValueHandler.
// Values of a type registered with WithMessageTypes (and envelopes) are
// republished, slices of them element by element. Other values are returned
// to the publisher. Publish calls made by republishing run one level deeper,
// see Depth and WithMaxRepublishDepth.
//
// # Errors
//
// A failing subscriber never stops its siblings. After all started
// invocations finish, the publisher receives a *DispatchError holding one
// *SubscriberError per failure; partial results are discarded. Panics are
// recovered as errors wrapping ErrSubscriberPanicked. Stream subscribers fail
// only their own handle, with a *StreamFault.
package bus
