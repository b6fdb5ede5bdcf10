package stream

import "errors"

var (
	// ErrCompleted is returned when pushing to or creating a stream on a completed provider.
	ErrCompleted = errors.New("stream: provider completed")

	// ErrAborted is reported by streams aborted by the provider or the consumer.
	ErrAborted = errors.New("stream: aborted")

	// ErrElementType is returned when a value or filter does not fit the provider element type.
	ErrElementType = errors.New("stream: element type mismatch")

	// ErrConsumerReturned is the abort reason used when a consumer stops reading before the stream ends.
	ErrConsumerReturned = errors.New("stream: consumer returned before end of stream")

	errFaulted = errors.New("stream: faulted")
)
