package bridge

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/banshee-data/fliplane/internal/datatype"
	"github.com/banshee-data/fliplane/internal/flow"
)

// Source heads a sub-graph: it has no inputs and a single output carrying T.
// Values enter only through Inject, normally via Graph.Push.
type Source[T datatype.Value] struct {
	flow.Base
	out *flow.Pipe[T]
}

// NewSource returns the bridge source for the data type of T.
func NewSource[T datatype.Value]() (*Source[T], error) {
	var zero T
	p, err := PairFor(zero.Kind())
	if err != nil {
		return nil, err
	}
	return newSource[T](p), nil
}

func newSource[T datatype.Value](p Pair) *Source[T] {
	f := &Source[T]{}
	f.Init(f, p.Type.String()+"Source", p.SourceID, p.SourceID)
	f.out = flow.NewPipe[T](&f.Base, flow.Connector{ID: p.SourceOut, Type: p.Type, Name: "out"})
	return f
}

// Output is the source's only connector.
func (f *Source[T]) Output() *flow.Pipe[T] { return f.out }

// Inject signals v downstream. v must be a T.
func (f *Source[T]) Inject(v any, ctx flow.Context) error {
	t, ok := v.(T)
	if !ok {
		var zero T
		return fmt.Errorf("%s bridge expects %T, got %T", zero.Kind(), zero, v)
	}
	return f.out.Signal(t, ctx)
}

type graft struct {
	graph  *flow.Graph
	source uuid.UUID
}

// Sink terminates a sub-graph: it has a single input carrying T and no
// outputs. It keeps the last value it received and forwards every value to
// the sources grafted onto it.
type Sink[T datatype.Value] struct {
	flow.Base
	in        *flow.In[T]
	last      T
	ctx       flow.Context
	has       bool
	grafts    []graft
	forwarded []*flow.Graph
}

// NewSink returns the bridge sink for the data type of T.
func NewSink[T datatype.Value]() (*Sink[T], error) {
	var zero T
	p, err := PairFor(zero.Kind())
	if err != nil {
		return nil, err
	}
	return newSink[T](p), nil
}

func newSink[T datatype.Value](p Pair) *Sink[T] {
	f := &Sink[T]{}
	f.Init(f, p.Type.String()+"Sink", p.SinkID, p.SinkID)
	f.in = flow.NewIn[T](&f.Base, flow.Connector{ID: p.SinkIn, Type: p.Type, Name: "in"})
	return f
}

// Input is the sink's only connector.
func (f *Sink[T]) Input() *flow.In[T] { return f.in }

func (f *Sink[T]) Proceed(ctx flow.Context) error {
	f.last = f.in.Value()
	f.ctx = ctx
	f.has = true
	f.forwarded = f.forwarded[:0]
	for _, g := range f.grafts {
		if err := g.graph.Push(ctx, flow.Input{Source: g.source, Value: f.last}); err != nil {
			opsf("%s: grafted graph %s failed frame %d", f.NameInGraph(), g.graph.ID(), ctx.Counter)
			return err
		}
		f.forwarded = append(f.forwarded, g.graph)
	}
	return nil
}

// Last returns the most recent value, its context, and whether any value has
// been received since construction or the last reset.
func (f *Sink[T]) Last() (T, flow.Context, bool) {
	return f.last, f.ctx, f.has
}

// Discard drops the held value for a failed frame and rolls the frame back
// in every grafted graph that already accepted it.
func (f *Sink[T]) Discard(counter int) {
	if !f.has || f.ctx.Counter != counter {
		return
	}
	for _, g := range f.forwarded {
		g.Discard(counter)
	}
	f.clear()
}

func (f *Sink[T]) Reset() { f.clear() }

func (f *Sink[T]) clear() {
	var zero T
	f.last = zero
	f.ctx = flow.Context{}
	f.has = false
	f.forwarded = f.forwarded[:0]
}

func (f *Sink[T]) targets() []*flow.Graph {
	out := make([]*flow.Graph, len(f.grafts))
	for i, g := range f.grafts {
		out[i] = g.graph
	}
	return out
}

// grafter is implemented by every Sink instantiation.
type grafter interface {
	targets() []*flow.Graph
}

// reaches reports whether sink sits in from or in any graph reachable from
// it through existing grafts.
func reaches(from *flow.Graph, sink flow.Filter) bool {
	seen := map[*flow.Graph]bool{}
	stack := []*flow.Graph{from}
	for len(stack) > 0 {
		g := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if seen[g] {
			continue
		}
		seen[g] = true
		if own, ok := g.Filter(sink.FilterBase().Instance()); ok && own == sink {
			return true
		}
		for _, f := range g.Order() {
			if gr, ok := f.(grafter); ok {
				stack = append(stack, gr.targets()...)
			}
		}
	}
	return false
}

// Graft forwards every value reaching sink into the bridge source placed as
// instance source in target. The target frame runs inside the traversal of
// the sink's frame, so a failure downstream of the source fails both, and a
// later failure in the sink's graph rolls the target frame back. Grafts that
// would lead back into the sink's graph are rejected.
func Graft[T datatype.Value](sink *Sink[T], target *flow.Graph, source uuid.UUID) error {
	f, ok := target.Filter(source)
	if !ok {
		return fmt.Errorf("%w: %s", flow.ErrUnknownSource, source)
	}
	if _, ok := f.(*Source[T]); !ok {
		var zero T
		return &flow.WiringError{
			Reason:   flow.ReasonTypeMismatch,
			Instance: f.FilterBase().NameInGraph(),
			Detail:   fmt.Sprintf("graft target is not a %s bridge source", zero.Kind()),
		}
	}
	if reaches(target, sink) {
		return &flow.WiringError{Reason: flow.ReasonCycle, Instance: sink.NameInGraph(), Detail: "graft leads back into the sink's own graph"}
	}
	sink.grafts = append(sink.grafts, graft{graph: target, source: source})
	diagf("grafted %s onto %s in graph %s", sink.NameInGraph(), f.FilterBase().NameInGraph(), target.ID())
	return nil
}

// Register adds every bridge source and sink kind to reg.
func Register(reg *flow.Registry) error {
	for _, p := range Pairs() {
		src, snk, err := factories(p)
		if err != nil {
			return err
		}
		for _, r := range []flow.Registration{
			{FilterID: p.SourceID, VariantID: p.SourceID, Name: p.Type.String() + "Source", Component: "bridge",
				Description: "injects " + p.Type.String() + " values into a sub-graph", New: src},
			{FilterID: p.SinkID, VariantID: p.SinkID, Name: p.Type.String() + "Sink", Component: "bridge",
				Description: "hands " + p.Type.String() + " values across a graph boundary", New: snk},
		} {
			if err := reg.Register(r); err != nil {
				return err
			}
		}
	}
	return nil
}

func factories(p Pair) (flow.Factory, flow.Factory, error) {
	switch p.Type {
	case datatype.Double:
		return pairFactories[datatype.Doublearray](p)
	case datatype.Line:
		return pairFactories[datatype.LineModel](p)
	case datatype.PointList:
		return pairFactories[datatype.Points](p)
	case datatype.Blob:
		return pairFactories[datatype.Blobs](p)
	case datatype.Sample:
		return pairFactories[datatype.SampleFrame](p)
	case datatype.HoughPPCandidate:
		return pairFactories[datatype.HoughCandidates](p)
	case datatype.SeamFinding:
		return pairFactories[datatype.SeamFindings](p)
	case datatype.StartEndInfo:
		return pairFactories[datatype.StartEndInfos](p)
	case datatype.SurfaceInfo:
		return pairFactories[datatype.Surface](p)
	case datatype.ImageFrame:
		return pairFactories[datatype.Image](p)
	case datatype.PoorPenetrationCandidate:
		return pairFactories[datatype.PenetrationCandidates](p)
	}
	return nil, nil, &flow.MissingBridgeError{DataType: p.Type}
}

func pairFactories[T datatype.Value](p Pair) (flow.Factory, flow.Factory, error) {
	return func() flow.Filter { return newSource[T](p) },
		func() flow.Filter { return newSink[T](p) },
		nil
}
