package flow

import (
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/banshee-data/fliplane/internal/timeutil"
)

// Option configures a graph at build time.
type Option func(*options)

type options struct {
	maxInFlight int
	clock       timeutil.Clock
	timing      bool
	verbosity   *Verbosity
	id          uuid.UUID
}

// WithMaxInFlight sets how many frame counters a group keeps pending before
// evicting the oldest incomplete ones. Zero disables eviction.
func WithMaxInFlight(n int) Option {
	return func(o *options) { o.maxInFlight = n }
}

// WithClock sets the clock used for handler timing.
func WithClock(c timeutil.Clock) Option {
	return func(o *options) { o.clock = c }
}

// WithTiming records handler timing for every filter regardless of verbosity.
func WithTiming(enabled bool) Option {
	return func(o *options) { o.timing = enabled }
}

// WithDefaultVerbosity applies v to every filter whose Verbosity parameter was
// not configured explicitly.
func WithDefaultVerbosity(v Verbosity) Option {
	return func(o *options) { o.verbosity = &v }
}

// WithID sets the graph identifier. A random one is used otherwise.
func WithID(id uuid.UUID) Option {
	return func(o *options) { o.id = id }
}

type link struct {
	from, out, to, in uuid.UUID
	outPort           OutPort
	inPort            InPort
	group             int
	explicitGroup     bool
}

// Builder assembles a graph. Nothing is wired until Build validates the
// whole topology.
type Builder struct {
	opts    options
	filters []Filter
	byID    map[uuid.UUID]Filter
	links   []link
	errs    []error
}

// NewBuilder returns an empty builder.
func NewBuilder(opts ...Option) *Builder {
	b := &Builder{
		opts: options{maxInFlight: DefaultMaxInFlight, clock: timeutil.RealClock{}},
		byID: make(map[uuid.UUID]Filter),
	}
	for _, opt := range opts {
		opt(&b.opts)
	}
	return b
}

// Add places f in the graph under a fresh instance identifier.
func (b *Builder) Add(f Filter) uuid.UUID {
	return b.AddAs(uuid.New(), f)
}

// AddAs places f in the graph under the given instance identifier.
func (b *Builder) AddAs(id uuid.UUID, f Filter) uuid.UUID {
	base := f.FilterBase()
	switch {
	case base.self == nil:
		b.errs = append(b.errs, &WiringError{Reason: ReasonDeclaration, Instance: base.name, Detail: "filter was not initialised"})
	case base.graph != nil || base.state == StateDisposed:
		b.errs = append(b.errs, &WiringError{Reason: ReasonForeignFilter, Instance: base.name})
		return id
	}
	if _, dup := b.byID[id]; dup {
		b.errs = append(b.errs, &WiringError{Reason: ReasonDuplicate, Instance: base.name, Detail: "instance " + id.String()})
		return id
	}
	for _, other := range b.filters {
		if other == f {
			b.errs = append(b.errs, &WiringError{Reason: ReasonDuplicate, Instance: base.name, Detail: "filter added twice"})
			return id
		}
	}
	base.instance = id
	b.byID[id] = f
	b.filters = append(b.filters, f)
	return id
}

// Connect wires an output connector to an input connector by identifier,
// using the input connector's declared group.
func (b *Builder) Connect(from, out, to, in uuid.UUID) {
	b.links = append(b.links, link{from: from, out: out, to: to, in: in})
}

// ConnectGroup is Connect with an explicit group number.
func (b *Builder) ConnectGroup(from, out, to, in uuid.UUID, group int) {
	b.links = append(b.links, link{from: from, out: out, to: to, in: in, group: group, explicitGroup: true})
}

// Link wires two ports directly, using the input's declared group.
func (b *Builder) Link(out OutPort, in InPort) {
	b.links = append(b.links, link{outPort: out, inPort: in})
}

// LinkGroup is Link with an explicit group number.
func (b *Builder) LinkGroup(out OutPort, in InPort, group int) {
	b.links = append(b.links, link{outPort: out, inPort: in, group: group, explicitGroup: true})
}

type edge struct {
	out   OutPort
	in    InPort
	group int
}

// Build validates and wires the graph. On any failure every added filter is
// disposed, nil is returned, and the error matches ErrGraphWiring.
func (b *Builder) Build() (*Graph, error) {
	errs := append([]error(nil), b.errs...)
	for _, f := range b.filters {
		errs = append(errs, f.FilterBase().declErrs...)
	}

	edges := make([]edge, 0, len(b.links))
	consumers := make(map[InPort]bool)
	for _, l := range b.links {
		e, err := b.resolve(l)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		inBase := e.in.Owner()
		if consumers[e.in] {
			errs = append(errs, &WiringError{Reason: ReasonMultipleProducers, Instance: inBase.name, Connector: e.in.Connector().Name})
			continue
		}
		if err := e.out.accepts(e.in); err != nil {
			errs = append(errs, &WiringError{
				Reason:    ReasonTypeMismatch,
				Instance:  inBase.name,
				Connector: e.in.Connector().Name,
				Detail:    fmt.Sprintf("from %s.%s", e.out.Owner().name, e.out.Connector().Name),
				Err:       err,
			})
			continue
		}
		consumers[e.in] = true
		edges = append(edges, e)
	}

	for _, f := range b.filters {
		base := f.FilterBase()
		for _, in := range base.inputs {
			if c := in.Connector(); c.Mode == Mandatory && !consumers[in] {
				errs = append(errs, &WiringError{Reason: ReasonUnwiredMandatory, Instance: base.name, Connector: c.Name})
			}
		}
	}

	order, depth, err := b.topology(edges)
	if err != nil {
		errs = append(errs, err)
	}

	if len(errs) == 0 {
		errs = b.wire(edges)
	}
	if len(errs) > 0 {
		for _, f := range b.filters {
			if base := f.FilterBase(); base.graph == nil && base.self != nil {
				base.dispose()
			}
		}
		err := errors.Join(errs...)
		opsf("graph build failed: %v", err)
		return nil, err
	}

	id := b.opts.id
	if id == uuid.Nil {
		id = uuid.New()
	}
	g := &Graph{
		id:      id,
		filters: make(map[uuid.UUID]Filter, len(order)),
		order:   order,
		depth:   depth,
		window:  b.opts.maxInFlight,
	}
	for i, f := range order {
		base := f.FilterBase()
		base.graph = g
		base.index = i
		base.clock = b.opts.clock
		base.timing = b.opts.timing
		base.window = b.opts.maxInFlight
		if b.opts.verbosity != nil && !base.verbositySet {
			base.params.set(ParamVerbosity, int(*b.opts.verbosity))
			base.verbosity = *b.opts.verbosity
		}
		base.state = StateActive
		g.filters[base.instance] = f
		if inj, ok := f.(Injector); ok && len(base.inputs) == 0 {
			g.sources = append(g.sources, inj)
		}
	}
	diagf("built graph %s: %d filters, %d pipes, depth %d", g.id, len(order), len(edges), depth)
	return g, nil
}

func (b *Builder) resolve(l link) (edge, error) {
	if l.outPort != nil {
		out, in := l.outPort, l.inPort
		if in == nil {
			return edge{}, &WiringError{Reason: ReasonDanglingConnector, Instance: out.Owner().name, Connector: out.Connector().Name}
		}
		for _, base := range []*Base{out.Owner(), in.Owner()} {
			if f, ok := b.byID[base.instance]; !ok || f.FilterBase() != base {
				return edge{}, &WiringError{Reason: ReasonUnknownInstance, Instance: base.name, Detail: "filter not added to builder"}
			}
		}
		return edge{out: out, in: in, group: groupOf(l, in)}, nil
	}

	from, ok := b.byID[l.from]
	if !ok {
		return edge{}, &WiringError{Reason: ReasonUnknownInstance, Detail: "sender " + l.from.String()}
	}
	to, ok := b.byID[l.to]
	if !ok {
		return edge{}, &WiringError{Reason: ReasonUnknownInstance, Detail: "receiver " + l.to.String()}
	}
	out := from.FilterBase().output(l.out)
	if out == nil {
		return edge{}, &WiringError{Reason: ReasonDanglingConnector, Instance: from.FilterBase().name, Connector: l.out.String()}
	}
	in := to.FilterBase().input(l.in)
	if in == nil {
		return edge{}, &WiringError{Reason: ReasonDanglingConnector, Instance: to.FilterBase().name, Connector: l.in.String()}
	}
	return edge{out: out, in: in, group: groupOf(l, in)}, nil
}

func groupOf(l link, in InPort) int {
	if l.explicitGroup {
		return l.group
	}
	return in.Connector().Group
}

// topology orders filters with Kahn's algorithm, preserving insertion order
// among independent filters, and returns the longest path length.
func (b *Builder) topology(edges []edge) ([]Filter, int, error) {
	pos := make(map[*Base]int, len(b.filters))
	for i, f := range b.filters {
		pos[f.FilterBase()] = i
	}
	indegree := make([]int, len(b.filters))
	next := make([][]int, len(b.filters))
	for _, e := range edges {
		from, to := pos[e.out.Owner()], pos[e.in.Owner()]
		next[from] = append(next[from], to)
		indegree[to]++
	}

	level := make([]int, len(b.filters))
	queue := make([]int, 0, len(b.filters))
	for i, d := range indegree {
		if d == 0 {
			queue = append(queue, i)
			level[i] = 1
		}
	}
	order := make([]Filter, 0, len(b.filters))
	depth := 0
	for len(queue) > 0 {
		i := queue[0]
		queue = queue[1:]
		order = append(order, b.filters[i])
		if level[i] > depth {
			depth = level[i]
		}
		for _, j := range next[i] {
			if level[i]+1 > level[j] {
				level[j] = level[i] + 1
			}
			indegree[j]--
			if indegree[j] == 0 {
				queue = append(queue, j)
			}
		}
	}
	if len(order) != len(b.filters) {
		var names []string
		for i, d := range indegree {
			if d > 0 {
				names = append(names, b.filters[i].FilterBase().name)
			}
		}
		return nil, 0, &WiringError{Reason: ReasonCycle, Detail: fmt.Sprintf("filters %v", names)}
	}
	return order, depth, nil
}

// wire attaches every validated edge and checks that each filter can handle
// what it receives.
func (b *Builder) wire(edges []edge) []error {
	for _, e := range edges {
		e.in.bind(e.out, e.group, 0)
		e.out.subscribe(e.in)
	}
	var errs []error
	for _, f := range b.filters {
		base := f.FilterBase()
		if err := base.buildGroups(); err != nil {
			errs = append(errs, err)
		}
		var ungrouped bool
		for _, in := range base.inputs {
			if in.Wired() && in.Group() == 0 {
				ungrouped = true
			}
		}
		if _, ok := f.(Proceeder); ungrouped && !ok {
			errs = append(errs, &WiringError{Reason: ReasonMissingHandler, Instance: base.name, Detail: "ungrouped input without Proceed"})
		}
		if _, ok := f.(GroupProceeder); len(base.groupIDs) > 0 && !ok {
			errs = append(errs, &WiringError{Reason: ReasonMissingHandler, Instance: base.name, Detail: "grouped input without ProceedGroup"})
		}
		if base.state < StateWired {
			base.state = StateWired
		}
	}
	return errs
}

// Input is one value injected by the host into a source filter.
type Input struct {
	Source uuid.UUID
	Value  any
}

// Graph is a validated, wired set of filters. All host interaction goes
// through its methods, which are serialised so that configuration never
// overlaps a frame.
type Graph struct {
	mu       sync.Mutex
	id       uuid.UUID
	filters  map[uuid.UUID]Filter
	order    []Filter
	sources  []Injector
	depth    int
	window   int
	disposed bool
	frames   int
	failed   int
}

func (g *Graph) ID() uuid.UUID { return g.id }

// Order returns the filters in processing order.
func (g *Graph) Order() []Filter { return append([]Filter(nil), g.order...) }

// Depth is the number of filters on the longest path through the graph.
func (g *Graph) Depth() int { return g.depth }

// Filter returns the filter placed under instance.
func (g *Graph) Filter(instance uuid.UUID) (Filter, bool) {
	f, ok := g.filters[instance]
	return f, ok
}

// Sources returns the filters that accept host input, in processing order.
func (g *Graph) Sources() []Injector { return append([]Injector(nil), g.sources...) }

// Push drives one frame through the graph. Each input is injected into its
// source in turn and the call returns when the whole reachable subgraph has
// processed it. If any filter fails, the remaining inputs are skipped, state
// held for the frame is dropped, Discarder filters roll back their results
// for the counter, and the ProcessingError is returned.
func (g *Graph) Push(ctx Context, inputs ...Input) (err error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.disposed {
		return ErrGraphDisposed
	}

	defer func() {
		if r := recover(); r != nil {
			err = &ProcessingError{Counter: ctx.Counter, Err: fmt.Errorf("panic: %v", r)}
		}
		g.frames++
		if err != nil {
			g.failed++
			g.discard(ctx.Counter)
			opsf("graph %s: frame %d failed: %v", g.id, ctx.Counter, err)
		}
	}()

	for _, in := range inputs {
		src, err := g.source(in.Source)
		if err != nil {
			return err
		}
		if err := src.Inject(in.Value, ctx); err != nil {
			var pe *ProcessingError
			if !errors.As(err, &pe) {
				base := src.FilterBase()
				err = &ProcessingError{Filter: base.NameInGraph(), Instance: base.instance, Counter: ctx.Counter, Err: err}
			}
			return err
		}
	}
	return nil
}

func (g *Graph) source(id uuid.UUID) (Injector, error) {
	if id == uuid.Nil {
		if len(g.sources) == 1 {
			return g.sources[0], nil
		}
		return nil, fmt.Errorf("%w: graph has %d sources, input must name one", ErrUnknownSource, len(g.sources))
	}
	for _, s := range g.sources {
		if s.FilterBase().instance == id {
			return s, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownSource, id)
}

// Discard rolls back a frame that completed in this graph but failed in the
// graph feeding it. The frame is recounted as failed.
func (g *Graph) Discard(counter int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.disposed {
		return
	}
	g.failed++
	g.discard(counter)
	opsf("graph %s: frame %d discarded by upstream failure", g.id, counter)
}

func (g *Graph) discard(counter int) {
	for _, f := range g.order {
		f.FilterBase().dropFrame(counter)
		if d, ok := f.(Discarder); ok {
			d.Discard(counter)
		}
	}
}

// Configure reconfigures one filter between frames.
func (g *Graph) Configure(instance uuid.UUID, values map[string]any) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.disposed {
		return ErrGraphDisposed
	}
	f, ok := g.filters[instance]
	if !ok {
		return fmt.Errorf("configure: %w: %s", ErrUnknownFilter, instance)
	}
	return f.FilterBase().Configure(values)
}

// Flush drops pending group state for every frame counter up to and
// including counter, returning the number of records dropped.
func (g *Graph) Flush(counter int) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	n := 0
	for _, f := range g.order {
		n += f.FilterBase().flush(counter)
	}
	if n > 0 {
		opsf("graph %s: flushed %d incomplete groups up to frame %d", g.id, n, counter)
	}
	return n
}

// Reset drops all pending group state and resets filters that carry state
// across frames.
func (g *Graph) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.reset()
}

func (g *Graph) reset() {
	for _, f := range g.order {
		f.FilterBase().resetGroups()
		if r, ok := f.(Resetter); ok {
			r.Reset()
		}
	}
}

// Arm forwards a sequence notification to every Armer in processing order.
// A sequence start also resets the graph.
func (g *Graph) Arm(state ArmState) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.disposed {
		return ErrGraphDisposed
	}
	if state == ArmSequenceStart {
		g.reset()
	}
	for _, f := range g.order {
		if a, ok := f.(Armer); ok {
			if err := a.Arm(state); err != nil {
				return fmt.Errorf("arm %s: %w", f.FilterBase().NameInGraph(), err)
			}
		}
	}
	return nil
}

// Paint asks every Painter, in processing order, to draw into its own layer.
func (g *Graph) Paint(c Canvas) {
	g.mu.Lock()
	defer g.mu.Unlock()
	for _, f := range g.order {
		if p, ok := f.(Painter); ok {
			p.Paint(c.Layer(f.FilterBase().NameInGraph()))
		}
	}
}

// FilterStats is the timing summary of one filter.
type FilterStats struct {
	Instance uuid.UUID `json:"instance"`
	Name     string    `json:"name"`
	Stats
}

// Stats returns timing statistics for every filter in processing order.
func (g *Graph) Stats() []FilterStats {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]FilterStats, 0, len(g.order))
	for _, f := range g.order {
		base := f.FilterBase()
		out = append(out, FilterStats{Instance: base.instance, Name: base.NameInGraph(), Stats: base.Stats()})
	}
	return out
}

// Frames returns how many frames were pushed and how many of them failed.
func (g *Graph) Frames() (total, failed int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.frames, g.failed
}

// Dispose tears the graph down. Filters cannot be reused afterwards.
func (g *Graph) Dispose() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.disposed {
		return
	}
	for _, f := range g.order {
		f.FilterBase().dispose()
	}
	g.disposed = true
	diagf("disposed graph %s", g.id)
}
