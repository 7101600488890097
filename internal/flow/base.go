package flow

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/banshee-data/fliplane/internal/timeutil"
)

// Filter is a processing node. Concrete filters embed Base, which provides
// FilterBase, and implement one or more of the capability interfaces below.
type Filter interface {
	FilterBase() *Base
}

// Proceeder fires once for every value arriving on an ungrouped input.
type Proceeder interface {
	Proceed(ctx Context) error
}

// GroupProceeder fires once per frame counter when every member input of a
// group has received its value.
type GroupProceeder interface {
	ProceedGroup(ev GroupEvent) error
}

// ParameterSetter is called after Configure has bound new parameter values.
// Returning an error rolls the values back.
type ParameterSetter interface {
	SetParameter() error
}

// Painter draws the filter's last result into an overlay layer.
type Painter interface {
	Paint(l Layer)
}

// Discarder rolls back per-frame results when a frame fails.
type Discarder interface {
	Discard(counter int)
}

// Resetter clears state carried across frames.
type Resetter interface {
	Reset()
}

// Armer receives sequence notifications from the host.
type Armer interface {
	Arm(state ArmState) error
}

// Injector is implemented by source filters that accept values from the host.
type Injector interface {
	Filter
	Inject(v any, ctx Context) error
}

// GroupEvent identifies a completed group.
type GroupEvent struct {
	Group   int
	Counter int
	Context Context
}

// State is the lifecycle position of a filter.
type State int

const (
	StateConstructed State = iota
	StateConfigured
	StateWired
	StateActive
	StateDisposed
)

func (s State) String() string {
	switch s {
	case StateConstructed:
		return "constructed"
	case StateConfigured:
		return "configured"
	case StateWired:
		return "wired"
	case StateActive:
		return "active"
	case StateDisposed:
		return "disposed"
	}
	return "unknown"
}

// Stats accumulates handler wall time. Durations include synchronous
// downstream work triggered by the handler's own signals.
type Stats struct {
	Calls      int           `json:"calls"`
	Total      time.Duration `json:"total"`
	Min        time.Duration `json:"min"`
	Max        time.Duration `json:"max"`
	MinCounter int           `json:"min_counter"`
	MaxCounter int           `json:"max_counter"`
	Evicted    int           `json:"evicted"`
}

// Mean returns the average handler time.
func (s Stats) Mean() time.Duration {
	if s.Calls == 0 {
		return 0
	}
	return s.Total / time.Duration(s.Calls)
}

func (s *Stats) observe(d time.Duration, counter int) {
	if s.Calls == 0 || d < s.Min {
		s.Min, s.MinCounter = d, counter
	}
	if s.Calls == 0 || d > s.Max {
		s.Max, s.MaxCounter = d, counter
	}
	s.Calls++
	s.Total += d
}

// Base carries the state every filter shares: identity, connectors,
// parameters, group synchronizers, lifecycle and timing.
type Base struct {
	self      Filter
	filterID  uuid.UUID
	variantID uuid.UUID
	instance  uuid.UUID
	name      string

	inputs   []InPort
	outputs  []OutPort
	declErrs []error

	params       Parameters
	verbosity    Verbosity
	verbositySet bool

	groups   map[int]*groupState
	groupIDs []int

	graph  *Graph
	index  int
	state  State
	clock  timeutil.Clock
	timing bool
	window int
	stats  Stats
}

// Init sets the identity of a filter and declares the base parameters. It must
// be called from the filter constructor before any connector is declared.
func (b *Base) Init(self Filter, name string, filterID, variantID uuid.UUID) {
	b.self = self
	b.name = name
	b.filterID = filterID
	b.variantID = variantID
	b.clock = timeutil.RealClock{}
	b.window = DefaultMaxInFlight
	b.verbosity = VerbosityLow
	b.params.owner = name
	b.params.declare(ParamSpec{Name: ParamVerbosity, Type: ParamEnum, Default: int(VerbosityLow), Enum: verbosityNames[:]})
}

func (b *Base) FilterBase() *Base { return b }

// FilterID identifies the filter kind.
func (b *Base) FilterID() uuid.UUID { return b.filterID }

// VariantID identifies the configuration variant of the kind.
func (b *Base) VariantID() uuid.UUID { return b.variantID }

// Instance identifies this filter within its graph.
func (b *Base) Instance() uuid.UUID { return b.instance }

func (b *Base) Name() string { return b.name }

// SetName changes the display name. Used by graph descriptions.
func (b *Base) SetName(name string) {
	b.name = name
	b.params.owner = name
}

// NameInGraph returns the display name qualified with the processing index.
func (b *Base) NameInGraph() string {
	if b.graph == nil {
		return b.name
	}
	return fmt.Sprintf("%s[%d]", b.name, b.index)
}

// Index is the filter's position in the validated topological order.
func (b *Base) Index() int { return b.index }

func (b *Base) State() State { return b.state }

func (b *Base) Verbosity() Verbosity { return b.verbosity }

// Params exposes the declared parameter set.
func (b *Base) Params() *Parameters { return &b.params }

// Stats returns the timing statistics collected so far.
func (b *Base) Stats() Stats {
	s := b.stats
	for _, id := range b.groupIDs {
		s.Evicted += b.groups[id].evicted
	}
	return s
}

// Inputs returns the declared input connectors in declaration order.
func (b *Base) Inputs() []Connector {
	out := make([]Connector, len(b.inputs))
	for i, in := range b.inputs {
		out[i] = in.Connector()
	}
	return out
}

// Outputs returns the declared output connectors in declaration order.
func (b *Base) Outputs() []Connector {
	out := make([]Connector, len(b.outputs))
	for i, p := range b.outputs {
		out[i] = p.Connector()
	}
	return out
}

// DeclareInt adds an integer parameter.
func (b *Base) DeclareInt(name string, def int) {
	b.params.declare(ParamSpec{Name: name, Type: ParamInt, Default: def})
}

// DeclareDouble adds a floating point parameter.
func (b *Base) DeclareDouble(name string, def float64) {
	b.params.declare(ParamSpec{Name: name, Type: ParamDouble, Default: def})
}

// DeclareString adds a string parameter.
func (b *Base) DeclareString(name string, def string) {
	b.params.declare(ParamSpec{Name: name, Type: ParamString, Default: def})
}

// DeclareBool adds a boolean parameter.
func (b *Base) DeclareBool(name string, def bool) {
	b.params.declare(ParamSpec{Name: name, Type: ParamBool, Default: def})
}

// DeclareEnum adds an enumerated parameter whose default is values[def].
func (b *Base) DeclareEnum(name string, def int, values ...string) {
	b.params.declare(ParamSpec{Name: name, Type: ParamEnum, Default: def, Enum: values})
}

// Configure binds named parameter values. Values are converted to the
// declared types; if any value fails, nothing is applied. Configure must not
// run while a frame is in flight; hosts go through Graph.Configure once the
// graph is active.
func (b *Base) Configure(values map[string]any) error {
	if b.state == StateDisposed {
		return fmt.Errorf("%s: configure: %w", b.name, ErrGraphDisposed)
	}
	prev := b.params.snapshot()
	if err := b.params.apply(values); err != nil {
		return err
	}
	b.verbosity = Verbosity(b.params.EnumIndex(ParamVerbosity))
	if s, ok := b.self.(ParameterSetter); ok {
		if err := s.SetParameter(); err != nil {
			b.params.restore(prev)
			b.verbosity = Verbosity(b.params.EnumIndex(ParamVerbosity))
			return &ParameterConversionError{Filter: b.name, Err: err}
		}
	}
	if _, ok := values[ParamVerbosity]; ok {
		b.verbositySet = true
	}
	if b.state == StateConstructed {
		b.state = StateConfigured
	}
	diagf("configured %s (%d values)", b.NameInGraph(), len(values))
	return nil
}

// Tracef writes filter telemetry to the trace stream when the filter's
// verbosity is at least level.
func (b *Base) Tracef(level Verbosity, format string, args ...interface{}) {
	if b.verbosity < level || !traceEnabled() {
		return
	}
	tracef("%s: "+format, append([]interface{}{b.NameInGraph()}, args...)...)
}

func (b *Base) declareInput(in InPort) {
	b.checkConnectorID(in.Connector())
	b.inputs = append(b.inputs, in)
}

func (b *Base) declareOutput(p OutPort) {
	b.checkConnectorID(p.Connector())
	b.outputs = append(b.outputs, p)
}

func (b *Base) checkConnectorID(c Connector) {
	if c.ID == uuid.Nil {
		b.declError(c, errors.New("connector has no identifier"))
		return
	}
	for _, in := range b.inputs {
		if in.Connector().ID == c.ID {
			b.declError(c, errors.New("connector identifier declared twice"))
			return
		}
	}
	for _, p := range b.outputs {
		if p.Connector().ID == c.ID {
			b.declError(c, errors.New("connector identifier declared twice"))
			return
		}
	}
}

func (b *Base) declError(c Connector, err error) {
	b.declErrs = append(b.declErrs, &WiringError{
		Reason:    ReasonDeclaration,
		Instance:  b.name,
		Connector: c.Name,
		Err:       err,
	})
}

func (b *Base) input(id uuid.UUID) InPort {
	for _, in := range b.inputs {
		if in.Connector().ID == id {
			return in
		}
	}
	return nil
}

func (b *Base) output(id uuid.UUID) OutPort {
	for _, p := range b.outputs {
		if p.Connector().ID == id {
			return p
		}
	}
	return nil
}

// buildGroups collects wired inputs into their groups and assigns member
// slots in declaration order.
func (b *Base) buildGroups() error {
	b.groups = make(map[int]*groupState)
	b.groupIDs = b.groupIDs[:0]
	for _, in := range b.inputs {
		if !in.Wired() || in.Group() == 0 {
			continue
		}
		g, ok := b.groups[in.Group()]
		if !ok {
			g = newGroupState(in.Group())
			b.groups[in.Group()] = g
			b.groupIDs = append(b.groupIDs, in.Group())
		}
		if len(g.members) == maxGroupMembers {
			return &WiringError{
				Reason:   ReasonGroupTooLarge,
				Instance: b.name,
				Detail:   fmt.Sprintf("group %d exceeds %d members", in.Group(), maxGroupMembers),
			}
		}
		in.setSlot(len(g.members))
		g.add(in)
	}
	sort.Ints(b.groupIDs)
	return nil
}

func (b *Base) proceed(ctx Context) error {
	p, ok := b.self.(Proceeder)
	if !ok {
		return nil
	}
	return b.run(ctx, func() error { return p.Proceed(ctx) })
}

func (b *Base) arrive(group, slot int, ctx Context) error {
	g := b.groups[group]
	complete, duplicate, stale := g.arrive(slot, ctx.Counter, b.window)
	if duplicate {
		g.release(ctx.Counter)
		opsf("%s: group %d already fired for frame %d, arrival dropped",
			b.NameInGraph(), group, ctx.Counter)
		return nil
	}
	for _, c := range stale {
		g.release(c)
		opsf("%s: dropped incomplete group %d for frame %d (newest %d, window %d)",
			b.NameInGraph(), group, c, g.newest, b.window)
	}
	if !complete {
		return nil
	}
	defer g.release(ctx.Counter)

	gp, ok := b.self.(GroupProceeder)
	if !ok {
		return nil
	}
	ev := GroupEvent{Group: group, Counter: ctx.Counter, Context: ctx}
	return b.run(ctx, func() error { return gp.ProceedGroup(ev) })
}

// run invokes a handler with timing and wraps failures into a
// ProcessingError naming the innermost failing filter.
func (b *Base) run(ctx Context, handler func() error) error {
	timed := b.timing || b.verbosity >= VerbosityMax
	var start time.Time
	if timed {
		start = b.clock.Now()
	}
	err := handler()
	if timed {
		b.stats.observe(b.clock.Since(start), ctx.Counter)
	}
	if err == nil {
		return nil
	}
	var pe *ProcessingError
	if errors.As(err, &pe) {
		return err
	}
	return &ProcessingError{Filter: b.NameInGraph(), Instance: b.instance, Counter: ctx.Counter, Err: err}
}

// dropFrame releases all group state held for counter.
func (b *Base) dropFrame(counter int) {
	for _, id := range b.groupIDs {
		b.groups[id].drop(counter)
	}
}

// flush releases group state for every counter up to and including counter.
func (b *Base) flush(counter int) int {
	n := 0
	for _, id := range b.groupIDs {
		n += b.groups[id].flush(counter)
	}
	return n
}

func (b *Base) resetGroups() {
	for _, id := range b.groupIDs {
		b.groups[id].reset()
	}
}

func (b *Base) dispose() {
	for _, in := range b.inputs {
		in.unbind()
	}
	for _, p := range b.outputs {
		p.reset()
	}
	b.groups = nil
	b.groupIDs = nil
	b.graph = nil
	b.state = StateDisposed
}
