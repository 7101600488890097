package sink

import (
	"github.com/google/uuid"

	"github.com/banshee-data/fliplane/internal/datatype"
	"github.com/banshee-data/fliplane/internal/flow"
)

// NIO is a buffer that latches a fault flag on its first reception. The
// flag stays set across frames until Clear, or until the frame that set it
// is discarded and nothing else has been buffered.
type NIO[T datatype.Value] struct {
	Buffer[T]
	latched bool
}

// NewNIO returns a latching buffer with one input per connector.
func NewNIO[T datatype.Value](name string, filterID, variantID uuid.UUID, inputs ...flow.Connector) *NIO[T] {
	n := &NIO[T]{}
	n.init(n, name, filterID, variantID, inputs)
	return n
}

func (n *NIO[T]) Proceed(ctx flow.Context) error {
	n.latch(ctx)
	return n.Buffer.Proceed(ctx)
}

func (n *NIO[T]) ProceedGroup(ev flow.GroupEvent) error {
	n.latch(ev.Context)
	return n.Buffer.ProceedGroup(ev)
}

func (n *NIO[T]) latch(ctx flow.Context) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if !n.latched {
		n.latched = true
		n.Tracef(flow.VerbosityLow, "NIO latched at frame %d", ctx.Counter)
	}
}

// IsNIO reports whether the latch is set.
func (n *NIO[T]) IsNIO() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.latched
}

// Clear empties the buffer and resets the latch.
func (n *NIO[T]) Clear() {
	n.Buffer.Clear()
	n.mu.Lock()
	n.latched = false
	n.mu.Unlock()
}

func (n *NIO[T]) Discard(counter int) {
	n.Buffer.Discard(counter)
	n.mu.Lock()
	n.latched = len(n.records) > 0
	n.mu.Unlock()
}
