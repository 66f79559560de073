// Package modelkit defines the model abstraction consumed by the chat loop.
//
// A Model accepts a message history plus a tool set and produces a finite,
// non-restartable stream of response chunks: text fragments interleaved with
// tool-call requests, in the order the underlying provider emitted them.
// The package also carries the model catalog (tiered model metadata used by
// the router) and a live adapter backed by gollm.
//
// The chat loop treats a Model as a black box. Anything that can send a
// Request and deliver Chunks on a channel satisfies the contract, which is
// how the tests drive the loop with scripted fakes.
package modelkit
