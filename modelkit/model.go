package modelkit

import "context"

// Model is the abstraction the chat loop drives. SendRequest submits the
// full conversation plus tool set and returns a channel of response chunks.
//
// The returned channel is finite and non-restartable: the producer closes
// it when the response is complete or after delivering a ChunkError. Chunk
// order matches the order the provider emitted text and tool calls.
// Producers must honor ctx cancellation and close the channel promptly.
type Model interface {
	// ID returns the model identifier (e.g. "gpt-5.2-mini").
	ID() string

	// SendRequest starts a response stream. An error return means the
	// request could not be started at all; errors after the stream begins
	// are delivered in-band as a ChunkError.
	SendRequest(ctx context.Context, req Request) (<-chan Chunk, error)
}
