// Package stream distributes an asynchronously produced sequence of messages
// to several independently paced consumers.
//
// A Provider owns the sequence. Each consumer gets its own Stream, created with
// a filter type; the stream receives only the pushed messages its filter accepts
// (see message.Match), in push order. Envelopes whose payload matches the filter
// are delivered unwrapped.
//
// # Usage
//
//	p := stream.NewProvider[Event]()
//
//	s, err := p.CreateStream(message.TypeOf[OrderPlaced]())
//	if err != nil {
//		return err
//	}
//
//	go func() {
//		orders := stream.As[OrderPlaced](s)
//		for order := range orders.All(ctx) {
//			fmt.Println(order.OrderID)
//		}
//	}()
//
//	_ = p.Push(ctx, OrderPlaced{OrderID: "1"})
//	_ = p.Push(ctx, OrderCancelled{OrderID: "1"}) // not delivered to s
//	p.Complete()
//
// # Back-pressure
//
// Every stream buffers at most WithBufferSize messages (default 1). Push
// suspends until every matching stream has accepted the message, so the
// slowest consumer sets the pace. Streams whose filter rejects a message
// never slow its delivery.
//
// # Lifecycle
//
// A stream starts Active and ends in exactly one terminal state:
//
//   - Completed: the provider completed and the consumer read every message;
//     Next returns io.EOF
//   - Aborted: the provider or the consumer aborted; Next returns an error
//     wrapping ErrAborted
//   - Faulted: the consumer reported a failure with Fault; siblings are unaffected
//
// Done is closed on entering any terminal state. Pushes after Abort are
// ignored; pushes after Complete fail with ErrCompleted.
package stream
