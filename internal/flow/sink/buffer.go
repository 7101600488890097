// Package sink provides terminal filters that keep what they receive until
// the host collects it.
package sink

import (
	"sync"

	"github.com/google/uuid"

	"github.com/banshee-data/fliplane/internal/datatype"
	"github.com/banshee-data/fliplane/internal/flow"
)

// Record is one firing of a buffer: the frame context and one value per
// input, in input declaration order.
type Record[T datatype.Value] struct {
	Context flow.Context
	Values  []T
}

// Buffer appends every value it receives to an ordered list. With a single
// input it fires per value; with several inputs they form group 1 and the
// buffer records once per frame when all of them have arrived.
type Buffer[T datatype.Value] struct {
	flow.Base
	ins []*flow.In[T]

	mu      sync.Mutex
	records []Record[T]
}

// NewBuffer returns a buffer with one input per connector. Connector groups
// are assigned by the buffer.
func NewBuffer[T datatype.Value](name string, filterID, variantID uuid.UUID, inputs ...flow.Connector) *Buffer[T] {
	b := &Buffer[T]{}
	b.init(b, name, filterID, variantID, inputs)
	return b
}

func (b *Buffer[T]) init(self flow.Filter, name string, filterID, variantID uuid.UUID, inputs []flow.Connector) {
	b.Init(self, name, filterID, variantID)
	for _, c := range inputs {
		if len(inputs) > 1 {
			c.Group = 1
		}
		b.ins = append(b.ins, flow.NewIn[T](&b.Base, c))
	}
}

// Input returns the i-th input connector.
func (b *Buffer[T]) Input(i int) *flow.In[T] { return b.ins[i] }

func (b *Buffer[T]) Proceed(ctx flow.Context) error {
	b.add(Record[T]{Context: ctx, Values: []T{b.ins[0].Value()}})
	return nil
}

func (b *Buffer[T]) ProceedGroup(ev flow.GroupEvent) error {
	values := make([]T, len(b.ins))
	for i, in := range b.ins {
		values[i], _ = in.Get(ev)
	}
	b.add(Record[T]{Context: ev.Context, Values: values})
	return nil
}

func (b *Buffer[T]) add(r Record[T]) {
	b.mu.Lock()
	b.records = append(b.records, r)
	b.mu.Unlock()
	b.Tracef(flow.VerbosityHigh, "buffered frame %d (%d records)", r.Context.Counter, b.Len())
}

// Results returns the buffered records in arrival order without clearing.
func (b *Buffer[T]) Results() []Record[T] {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]Record[T](nil), b.records...)
}

// Values returns every buffered value, flattened in arrival order.
func (b *Buffer[T]) Values() []T {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []T
	for _, r := range b.records {
		out = append(out, r.Values...)
	}
	return out
}

func (b *Buffer[T]) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.records)
}

// Clear empties the buffer.
func (b *Buffer[T]) Clear() {
	b.mu.Lock()
	b.records = nil
	b.mu.Unlock()
}

// Discard drops the records of a failed frame.
func (b *Buffer[T]) Discard(counter int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	kept := b.records[:0]
	for _, r := range b.records {
		if r.Context.Counter != counter {
			kept = append(kept, r)
		}
	}
	b.records = kept
}
