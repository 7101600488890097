package flow

import (
	"fmt"

	"github.com/banshee-data/fliplane/internal/datatype"
)

// Pipe is a filter output: a single-producer channel that holds the latest
// value and context and notifies its subscribers synchronously. Subscribers
// are typed, so signalling never needs a runtime type check.
type Pipe[T datatype.Value] struct {
	conn  Connector
	owner *Base
	value T
	ctx   Context
	subs  []*In[T]
}

// NewPipe declares an output on b. The connector's Type defaults to the
// kind of T.
func NewPipe[T datatype.Value](b *Base, c Connector) *Pipe[T] {
	var zero T
	if c.Type == datatype.Invalid {
		c.Type = zero.Kind()
	}
	p := &Pipe[T]{conn: c, owner: b}
	if c.Type != zero.Kind() {
		b.declError(c, fmt.Errorf("declared %s but carries %T (%s)", c.Type, zero, zero.Kind()))
	}
	b.declareOutput(p)
	return p
}

// Signal overwrites the pipe's value and context, then runs every subscriber
// in registration order. It returns once all downstream work for the value
// has finished; the first error stops the traversal.
func (p *Pipe[T]) Signal(v T, ctx Context) error {
	p.value = v
	p.ctx = ctx
	if traceEnabled() {
		tracef("signal %s.%s counter=%d subscribers=%d", p.owner.NameInGraph(), p.conn.Name, ctx.Counter, len(p.subs))
	}
	for _, in := range p.subs {
		if err := in.deliver(v, ctx); err != nil {
			return err
		}
	}
	return nil
}

// Value returns the last signalled value.
func (p *Pipe[T]) Value() T { return p.value }

// Context returns the context of the last signalled value.
func (p *Pipe[T]) Context() Context { return p.ctx }

func (p *Pipe[T]) Connector() Connector { return p.conn }
func (p *Pipe[T]) Owner() *Base         { return p.owner }
func (p *Pipe[T]) Subscribers() int     { return len(p.subs) }

func (p *Pipe[T]) accepts(in InPort) error {
	if want := in.Connector().Type; want != p.conn.Type {
		return fmt.Errorf("pipe carries %s, connector expects %s", p.conn.Type, want)
	}
	if _, ok := in.(*In[T]); !ok {
		return fmt.Errorf("pipe carries %T, connector has a different value representation", p.value)
	}
	return nil
}

func (p *Pipe[T]) subscribe(in InPort) {
	p.subs = append(p.subs, in.(*In[T]))
}

func (p *Pipe[T]) reset() {
	var zero T
	p.value = zero
	p.ctx = Context{}
	p.subs = nil
}

type held[T datatype.Value] struct {
	value T
	ctx   Context
}

// In is a typed filter input.
type In[T datatype.Value] struct {
	conn  Connector
	owner *Base
	src   *Pipe[T]
	group int
	slot  int
	held  map[int]held[T]
}

// NewIn declares an input on b. The connector's Type defaults to the kind of T.
func NewIn[T datatype.Value](b *Base, c Connector) *In[T] {
	var zero T
	if c.Type == datatype.Invalid {
		c.Type = zero.Kind()
	}
	in := &In[T]{conn: c, owner: b}
	if c.Type != zero.Kind() {
		b.declError(c, fmt.Errorf("declared %s but accepts %T (%s)", c.Type, zero, zero.Kind()))
	}
	b.declareInput(in)
	return in
}

func (in *In[T]) deliver(v T, ctx Context) error {
	if in.group == 0 {
		return in.owner.proceed(ctx)
	}
	in.held[ctx.Counter] = held[T]{value: v, ctx: ctx}
	return in.owner.arrive(in.group, in.slot, ctx)
}

// Value returns the latest value on the connected pipe. Inside a group
// handler use Get, which returns the value belonging to the firing frame.
func (in *In[T]) Value() T {
	if in.src == nil {
		var zero T
		return zero
	}
	return in.src.value
}

// Context returns the latest context on the connected pipe.
func (in *In[T]) Context() Context {
	if in.src == nil {
		return Context{}
	}
	return in.src.ctx
}

// Get returns the value this input received for the frame of ev. The value
// is only valid for the duration of the group handler.
func (in *In[T]) Get(ev GroupEvent) (T, Context) {
	h, ok := in.held[ev.Counter]
	if !ok {
		var zero T
		return zero, Context{}
	}
	return h.value, h.ctx
}

func (in *In[T]) Connector() Connector { return in.conn }
func (in *In[T]) Owner() *Base         { return in.owner }
func (in *In[T]) Wired() bool          { return in.src != nil }
func (in *In[T]) Group() int           { return in.group }

func (in *In[T]) bind(src OutPort, group, slot int) {
	in.src = src.(*Pipe[T])
	in.group = group
	in.slot = slot
	if group != 0 {
		in.held = make(map[int]held[T])
	}
}

func (in *In[T]) unbind() {
	in.src = nil
	in.group = 0
	in.slot = 0
	in.held = nil
}

func (in *In[T]) release(counter int) {
	delete(in.held, counter)
}

func (in *In[T]) setSlot(slot int) { in.slot = slot }
