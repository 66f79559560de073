package chatloop

import (
	"io"
	"sync"
)

// OutputSink receives incremental text output from the loop. Fragments
// arrive in emission order; the sink sees each text chunk as soon as the
// model produces it, not buffered per round.
type OutputSink interface {
	Append(text string)
}

// SinkFunc adapts a function to the OutputSink interface.
type SinkFunc func(text string)

func (f SinkFunc) Append(text string) { f(text) }

// WriterSink streams output to an io.Writer.
type WriterSink struct {
	mu sync.Mutex
	w  io.Writer
}

// NewWriterSink creates a sink over w.
func NewWriterSink(w io.Writer) *WriterSink {
	return &WriterSink{w: w}
}

func (s *WriterSink) Append(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	io.WriteString(s.w, text)
}
