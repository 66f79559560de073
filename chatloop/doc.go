// Package chatloop implements the bounded multi-round tool-calling loop.
//
// A Loop drives a conversation between an abstract model and a set of
// registered tools: each round it sends the full conversation plus the
// tool set to the model, streams text fragments to the output sink as they
// arrive, collects tool-call requests, runs each request through the
// confirmation gate, and appends the results before the next round. The
// loop ends when a round produces zero tool calls, when the round budget
// is exhausted, or when the run context is cancelled.
//
// # Architecture
//
//   - Conversation: append-only message log with invariant-checked
//     tool-result appends (one result per call ID, in request order).
//   - Registry: ordered mapping from tool name to descriptor (schema,
//     optional confirmation, invoke function).
//   - Gate: the boundary that looks up a tool, runs its confirmation step
//     through the Approver, and converts every tool-side fault into a
//     Failure outcome. Nothing a tool does can abort a round.
//   - Loop: the round state machine. Only model transport errors are fatal
//     to a run; everything else is fed back into the conversation.
//
// # Quick Start
//
//	reg := chatloop.NewRegistry()
//	tools.RegisterAll(reg, tools.NewLocalWorkspace(dir), tools.DefaultOptions())
//
//	loop := chatloop.New(model, reg, approver, chatloop.WithLogger(logger))
//	if err := loop.Run(ctx, "Summarize TODOs in this repo", sink); err != nil {
//	    log.Fatal(err)
//	}
package chatloop
