package flow

import (
	"bytes"
	"errors"
	"image/color"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/fliplane/internal/datatype"
	"github.com/banshee-data/fliplane/internal/timeutil"
)

func chain(t *testing.T, opts ...Option) (*Graph, *testSource, *testPass, *testCollect) {
	t.Helper()
	src, pass, sink := newTestSource(), newTestPass(), newTestCollect()
	b := NewBuilder(opts...)
	b.Add(src)
	b.Add(pass)
	b.Add(sink)
	b.Link(src.out, pass.in)
	b.Link(pass.out, sink.in)
	g, err := b.Build()
	require.NoError(t, err)
	return g, src, pass, sink
}

func TestPassthroughChain(t *testing.T) {
	g, src, pass, sink := chain(t)

	require.NoError(t, push(g, 1, 3.14))

	assert.Equal(t, []collected{{Counter: 1, Values: []float64{3.14}}}, sink.got)
	assert.Equal(t, 1, pass.calls)
	assert.Equal(t, 3, g.Depth())
	assert.Equal(t, []Filter{src, pass, sink}, g.Order())
	assert.Equal(t, 1, pass.Index())
	assert.Equal(t, "pass[1]", pass.NameInGraph())
	assert.Equal(t, StateActive, sink.State())
	assert.Equal(t, 3.14, pass.out.Value().Data[0])
	assert.Equal(t, 1, pass.out.Context().Counter)
}

func TestFanOutNotifiesInRegistrationOrder(t *testing.T) {
	src := newTestSource()
	sinks := make([]*testCollect, 3)
	b := NewBuilder()
	b.Add(src)
	for i := range sinks {
		sinks[i] = newTestCollect()
		sinks[i].SetName(string(rune('a' + i)))
		b.Add(sinks[i])
	}
	// Register in reverse so the order differs from insertion order.
	for i := len(sinks) - 1; i >= 0; i-- {
		b.Link(src.out, sinks[i].in)
	}
	g, err := b.Build()
	require.NoError(t, err)

	require.NoError(t, push(g, 1, 1))

	for _, s := range sinks {
		require.Len(t, s.got, 1)
	}
	assert.Equal(t, 3, src.out.Subscribers())
	assert.Same(t, sinks[2].in, src.out.subs[0])
	assert.Same(t, sinks[0].in, src.out.subs[2])
}

func TestGroupFiresOncePerCounter(t *testing.T) {
	srcA, srcB, join := newTestSource(), newTestSource(), newTestJoin()
	b := NewBuilder()
	idA := b.Add(srcA)
	idB := b.Add(srcB)
	b.Add(join)
	b.Link(srcA.out, join.a)
	b.Link(srcB.out, join.b)
	g, err := b.Build()
	require.NoError(t, err)

	ctx := Context{Counter: 5}
	require.NoError(t, g.Push(ctx, Input{Source: idA, Value: datatype.NewDoublearray(1, 2)}))
	assert.Empty(t, join.events, "group must not fire with one of two inputs")
	assert.Equal(t, 1, join.groups[1].arrived(5))

	require.NoError(t, g.Push(ctx, Input{Source: idB, Value: datatype.NewDoublearray(10, 20)}))
	want := []joinEvent{{Counter: 5, A: []float64{1, 2}, B: []float64{10, 20}}}
	if diff := cmp.Diff(want, join.events); diff != "" {
		t.Errorf("group events mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, 0, join.groups[1].arrived(5), "record is removed after firing")
	assert.Empty(t, join.a.held, "held values are released after firing")

	// Signalling again for the same counter is dropped, not re-recorded.
	require.NoError(t, g.Push(ctx, Input{Source: idB, Value: datatype.NewDoublearray(0, 0)}))
	assert.Len(t, join.events, 1)
	assert.Equal(t, 0, join.groups[1].arrived(5))
	assert.Empty(t, join.b.held)
}

func TestRepushedCounterDoesNotRefireGroup(t *testing.T) {
	// One source fans out through two passes into both join members, so a
	// single push completes the group.
	src, left, right, join := newTestSource(), newTestPass(), newTestPass(), newTestJoin()
	b := NewBuilder(WithMaxInFlight(2))
	b.Add(src)
	b.Add(left)
	b.Add(right)
	b.Add(join)
	b.Link(src.out, left.in)
	b.Link(src.out, right.in)
	b.Link(left.out, join.a)
	b.Link(right.out, join.b)
	g, err := b.Build()
	require.NoError(t, err)

	var ops bytes.Buffer
	SetLogWriters(&ops, nil, nil)
	t.Cleanup(func() { SetLogWriters(nil, nil, nil) })

	require.NoError(t, push(g, 5, 1))
	require.NoError(t, push(g, 5, 2))
	want := []joinEvent{{Counter: 5, A: []float64{1}, B: []float64{1}}}
	if diff := cmp.Diff(want, join.events); diff != "" {
		t.Errorf("group events mismatch (-want +got):\n%s", diff)
	}
	assert.Contains(t, ops.String(), "group 1 already fired for frame 5")
	assert.Empty(t, join.a.held)
	assert.Empty(t, join.b.held)

	// Completed counters are forgotten once they leave the window.
	require.NoError(t, push(g, 6, 6))
	require.NoError(t, push(g, 7, 7))
	assert.Len(t, join.events, 3)
	assert.NotContains(t, join.groups[1].fired, 5)
	assert.Contains(t, join.groups[1].fired, 7)

	// Reset clears the record so a new run may reuse counters.
	g.Reset()
	require.NoError(t, push(g, 7, 70))
	require.Len(t, join.events, 4)
	assert.Equal(t, []float64{70}, join.events[3].A)
}

func TestGroupArrivalIsIdempotent(t *testing.T) {
	srcA, srcB, join := newTestSource(), newTestSource(), newTestJoin()
	b := NewBuilder()
	idA := b.Add(srcA)
	idB := b.Add(srcB)
	b.Add(join)
	b.Link(srcA.out, join.a)
	b.Link(srcB.out, join.b)
	g, err := b.Build()
	require.NoError(t, err)

	ctx := Context{Counter: 9}
	require.NoError(t, g.Push(ctx, Input{Source: idA, Value: datatype.NewDoublearray(1)}))
	require.NoError(t, g.Push(ctx, Input{Source: idA, Value: datatype.NewDoublearray(2)}))
	assert.Equal(t, 1, join.groups[1].arrived(9))
	assert.Empty(t, join.events)

	require.NoError(t, g.Push(ctx, Input{Source: idB, Value: datatype.NewDoublearray(3)}))
	require.Len(t, join.events, 1)
	assert.Equal(t, []float64{2}, join.events[0].A, "last write wins")
}

func TestGroupsAreScopedByCounter(t *testing.T) {
	srcA, srcB, join := newTestSource(), newTestSource(), newTestJoin()
	b := NewBuilder()
	idA := b.Add(srcA)
	idB := b.Add(srcB)
	b.Add(join)
	b.Link(srcA.out, join.a)
	b.Link(srcB.out, join.b)
	g, err := b.Build()
	require.NoError(t, err)

	require.NoError(t, g.Push(Context{Counter: 1}, Input{Source: idA, Value: datatype.NewDoublearray(1)}))
	require.NoError(t, g.Push(Context{Counter: 2}, Input{Source: idA, Value: datatype.NewDoublearray(2)}))
	require.NoError(t, g.Push(Context{Counter: 2}, Input{Source: idB, Value: datatype.NewDoublearray(20)}))
	require.NoError(t, g.Push(Context{Counter: 1}, Input{Source: idB, Value: datatype.NewDoublearray(10)}))

	want := []joinEvent{
		{Counter: 2, A: []float64{2}, B: []float64{20}},
		{Counter: 1, A: []float64{1}, B: []float64{10}},
	}
	assert.Equal(t, want, join.events)
}

func TestIncompleteGroupsAreEvicted(t *testing.T) {
	srcA, srcB, join := newTestSource(), newTestSource(), newTestJoin()
	b := NewBuilder(WithMaxInFlight(2))
	idA := b.Add(srcA)
	idB := b.Add(srcB)
	b.Add(join)
	b.Link(srcA.out, join.a)
	b.Link(srcB.out, join.b)
	g, err := b.Build()
	require.NoError(t, err)

	var ops bytes.Buffer
	SetLogWriters(&ops, nil, nil)
	t.Cleanup(func() { SetLogWriters(nil, nil, nil) })

	require.NoError(t, g.Push(Context{Counter: 1}, Input{Source: idA, Value: datatype.NewDoublearray(1)}))
	require.NoError(t, g.Push(Context{Counter: 2}, Input{Source: idA, Value: datatype.NewDoublearray(2)}))
	require.NoError(t, g.Push(Context{Counter: 3}, Input{Source: idA, Value: datatype.NewDoublearray(3)}))

	assert.Equal(t, 1, join.Stats().Evicted)
	assert.Equal(t, 0, join.groups[1].arrived(1))
	assert.NotContains(t, join.a.held, 1)
	assert.Contains(t, ops.String(), "dropped incomplete group 1 for frame 1")

	// The late member for counter 1 is dropped instead of completing.
	require.NoError(t, g.Push(Context{Counter: 1}, Input{Source: idB, Value: datatype.NewDoublearray(10)}))
	assert.Empty(t, join.events)
	assert.Equal(t, 2, join.Stats().Evicted)
	assert.NotContains(t, join.b.held, 1)

	// Frames inside the window still complete.
	require.NoError(t, g.Push(Context{Counter: 3}, Input{Source: idB, Value: datatype.NewDoublearray(30)}))
	require.Len(t, join.events, 1)
	assert.Equal(t, joinEvent{Counter: 3, A: []float64{3}, B: []float64{30}}, join.events[0])
}

func TestFlushDropsPendingGroups(t *testing.T) {
	srcA, srcB, join := newTestSource(), newTestSource(), newTestJoin()
	b := NewBuilder(WithMaxInFlight(0))
	idA := b.Add(srcA)
	b.Add(srcB)
	b.Add(join)
	b.Link(srcA.out, join.a)
	b.Link(srcB.out, join.b)
	g, err := b.Build()
	require.NoError(t, err)

	for c := 1; c <= 20; c++ {
		require.NoError(t, g.Push(Context{Counter: c}, Input{Source: idA, Value: datatype.NewDoublearray(1)}))
	}
	assert.Len(t, join.groups[1].pending, 20, "no eviction without a window")
	assert.Equal(t, 15, g.Flush(15))
	assert.Len(t, join.groups[1].pending, 5)
	assert.Len(t, join.a.held, 5)
}

func TestOptionalInputMayStayUnwired(t *testing.T) {
	srcA, srcB, srcC, join := newTestSource(), newTestSource(), newTestSource(), newTestJoin()

	t.Run("unwired optional is not a member", func(t *testing.T) {
		b := NewBuilder()
		idA := b.Add(srcA)
		idB := b.Add(srcB)
		b.Add(join)
		b.Link(srcA.out, join.a)
		b.Link(srcB.out, join.b)
		g, err := b.Build()
		require.NoError(t, err)
		assert.False(t, join.c.Wired())
		require.NoError(t, g.Push(Context{Counter: 1},
			Input{Source: idA, Value: datatype.NewDoublearray(1)},
			Input{Source: idB, Value: datatype.NewDoublearray(2)}))
		assert.Len(t, join.events, 1)
	})

	t.Run("wired optional joins the group", func(t *testing.T) {
		join := newTestJoin()
		srcA, srcB := newTestSource(), newTestSource()
		b := NewBuilder()
		idA := b.Add(srcA)
		idB := b.Add(srcB)
		idC := b.Add(srcC)
		b.Add(join)
		b.Link(srcA.out, join.a)
		b.Link(srcB.out, join.b)
		b.Link(srcC.out, join.c)
		g, err := b.Build()
		require.NoError(t, err)
		require.NoError(t, g.Push(Context{Counter: 1},
			Input{Source: idA, Value: datatype.NewDoublearray(1)},
			Input{Source: idB, Value: datatype.NewDoublearray(2)}))
		assert.Empty(t, join.events)
		require.NoError(t, g.Push(Context{Counter: 1}, Input{Source: idC, Value: datatype.NewDoublearray(3)}))
		assert.Len(t, join.events, 1)
	})
}

func TestBuildRejectsTypeMismatch(t *testing.T) {
	src, lines := newTestSource(), newTestLineSink()
	b := NewBuilder()
	srcID := b.Add(src)
	linesID := b.Add(lines)
	b.Connect(srcID, connSourceOut, linesID, connLineIn)

	g, err := b.Build()
	require.Error(t, err)
	assert.Nil(t, g)
	assert.ErrorIs(t, err, ErrGraphWiring)
	var we *WiringError
	require.True(t, errors.As(err, &we))
	assert.Equal(t, ReasonTypeMismatch, we.Reason)
	assert.Equal(t, StateDisposed, src.State())
	assert.Equal(t, StateDisposed, lines.State())
	assert.Zero(t, src.out.Subscribers())
}

func TestBuildValidation(t *testing.T) {
	tests := []struct {
		name   string
		setup  func(b *Builder)
		reason WiringReason
	}{
		{
			name: "cycle",
			setup: func(b *Builder) {
				p1, p2 := newTestPass(), newTestPass()
				b.Add(p1)
				b.Add(p2)
				b.Link(p1.out, p2.in)
				b.Link(p2.out, p1.in)
			},
			reason: ReasonCycle,
		},
		{
			name: "self loop",
			setup: func(b *Builder) {
				p := newTestPass()
				b.Add(p)
				b.Link(p.out, p.in)
			},
			reason: ReasonCycle,
		},
		{
			name: "unwired mandatory input",
			setup: func(b *Builder) {
				b.Add(newTestCollect())
			},
			reason: ReasonUnwiredMandatory,
		},
		{
			name: "input with two producers",
			setup: func(b *Builder) {
				s1, s2, c := newTestSource(), newTestSource(), newTestCollect()
				b.Add(s1)
				b.Add(s2)
				b.Add(c)
				b.Link(s1.out, c.in)
				b.Link(s2.out, c.in)
			},
			reason: ReasonMultipleProducers,
		},
		{
			name: "dangling connector",
			setup: func(b *Builder) {
				s, c := newTestSource(), newTestCollect()
				sid := b.Add(s)
				cid := b.Add(c)
				b.Connect(sid, uuid.New(), cid, connCollectIn)
			},
			reason: ReasonDanglingConnector,
		},
		{
			name: "unknown instance",
			setup: func(b *Builder) {
				s := newTestSource()
				sid := b.Add(s)
				b.Connect(sid, connSourceOut, uuid.New(), connCollectIn)
			},
			reason: ReasonUnknownInstance,
		},
		{
			name: "port of a filter not in the builder",
			setup: func(b *Builder) {
				s, c := newTestSource(), newTestCollect()
				b.Add(c)
				b.Link(s.out, c.in)
			},
			reason: ReasonUnknownInstance,
		},
		{
			name: "ungrouped input without Proceed",
			setup: func(b *Builder) {
				s, j := newTestSource(), newTestJoin()
				s2 := newTestSource()
				b.Add(s)
				b.Add(s2)
				b.Add(j)
				b.LinkGroup(s.out, j.a, 0)
				b.Link(s2.out, j.b)
			},
			reason: ReasonMissingHandler,
		},
		{
			name: "duplicate instance id",
			setup: func(b *Builder) {
				id := uuid.New()
				b.AddAs(id, newTestSource())
				b.AddAs(id, newTestSource())
			},
			reason: ReasonDuplicate,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := NewBuilder()
			tt.setup(b)
			g, err := b.Build()
			assert.Nil(t, g)
			require.ErrorIs(t, err, ErrGraphWiring)
			assert.Contains(t, err.Error(), string(tt.reason))
		})
	}
}

func TestConnectorDeclarationErrors(t *testing.T) {
	f := &testCollect{}
	f.Init(f, "broken", testCollectID, testVariantID)
	NewIn[datatype.Doublearray](&f.Base, Connector{ID: connCollectIn, Name: "a"})
	NewIn[datatype.Doublearray](&f.Base, Connector{ID: connCollectIn, Name: "b", Mode: Optional})
	NewPipe[datatype.Doublearray](&f.Base, Connector{ID: connPassOut, Name: "c", Type: datatype.Line})

	b := NewBuilder()
	b.Add(f)
	_, err := b.Build()
	require.ErrorIs(t, err, ErrGraphWiring)
	assert.Contains(t, err.Error(), "connector identifier declared twice")
	assert.Contains(t, err.Error(), "declared Line")
}

func TestFilterBelongsToOneGraph(t *testing.T) {
	g, src, _, _ := chain(t)
	b := NewBuilder()
	b.Add(src)
	_, err := b.Build()
	require.ErrorIs(t, err, ErrGraphWiring)
	assert.Contains(t, err.Error(), string(ReasonForeignFilter))
	assert.Equal(t, StateActive, src.State(), "failed build must not touch the other graph")
	require.NoError(t, push(g, 1, 1))
}

func TestProcessingErrorAbortsOnlyThatFrame(t *testing.T) {
	g, _, pass, sink := chain(t)
	pass.failNegative = true

	var ops bytes.Buffer
	SetLogWriters(&ops, nil, nil)
	t.Cleanup(func() { SetLogWriters(nil, nil, nil) })

	require.NoError(t, push(g, 1, 1))
	err := push(g, 2, -1)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrProcessing)
	assert.ErrorIs(t, err, errNegative)
	var pe *ProcessingError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, 2, pe.Counter)
	assert.Equal(t, "pass[1]", pe.Filter)
	assert.Equal(t, pass.Instance(), pe.Instance)
	assert.Contains(t, ops.String(), "frame 2 failed")

	require.NoError(t, push(g, 3, 3))
	assert.Equal(t, []collected{
		{Counter: 1, Values: []float64{1}},
		{Counter: 3, Values: []float64{3}},
	}, sink.got)
	total, failed := g.Frames()
	assert.Equal(t, 3, total)
	assert.Equal(t, 1, failed)
}

func TestFailedFrameIsDiscarded(t *testing.T) {
	// source -> collect and source -> failing pass: the collect sink sees the
	// value before the pass fails, and must drop it again.
	src, pass, early := newTestSource(), newTestPass(), newTestCollect()
	pass.failNegative = true
	b := NewBuilder()
	b.Add(src)
	b.Add(early)
	b.Add(pass)
	b.Link(src.out, early.in)
	b.Link(src.out, pass.in)
	late := newTestCollect()
	b.Add(late)
	b.Link(pass.out, late.in)
	g, err := b.Build()
	require.NoError(t, err)

	require.Error(t, push(g, 7, -5))
	assert.Empty(t, early.got)
	assert.Empty(t, late.got)
}

func TestPanicBecomesProcessingError(t *testing.T) {
	g, _, _, sink := chain(t)
	err := push(g, 4, 666)
	require.ErrorIs(t, err, ErrProcessing)
	assert.Contains(t, err.Error(), "panic: devil")
	require.NoError(t, push(g, 5, 5))
	assert.Len(t, sink.got, 1)
}

func TestPushSourceSelection(t *testing.T) {
	srcA, srcB, join := newTestSource(), newTestSource(), newTestJoin()
	b := NewBuilder()
	b.Add(srcA)
	b.Add(srcB)
	b.Add(join)
	b.Link(srcA.out, join.a)
	b.Link(srcB.out, join.b)
	g, err := b.Build()
	require.NoError(t, err)

	assert.Len(t, g.Sources(), 2)
	assert.ErrorIs(t, push(g, 1, 1), ErrUnknownSource)
	assert.ErrorIs(t, g.Push(Context{}, Input{Source: uuid.New()}), ErrUnknownSource)
	err = g.Push(Context{}, Input{Source: srcA.Instance(), Value: datatype.LineModel{}})
	assert.ErrorIs(t, err, ErrProcessing, "boundary type check fails the frame")
}

func TestConfigureBetweenFrames(t *testing.T) {
	g, _, pass, sink := chain(t)

	require.NoError(t, g.Configure(pass.Instance(), map[string]any{"Mode": "scale", "Gain": 2.0}))
	require.NoError(t, push(g, 1, 1.5))
	assert.Equal(t, []float64{3}, sink.got[0].Values)

	err := g.Configure(pass.Instance(), map[string]any{"Gain": "fast"})
	require.ErrorIs(t, err, ErrParameterConversion)
	assert.Equal(t, 2.0, pass.Params().Double("Gain"))

	assert.ErrorIs(t, g.Configure(uuid.New(), nil), ErrUnknownFilter)
}

func TestTimingUsesClock(t *testing.T) {
	clock := timeutil.NewSteppingClock(time.Unix(0, 0), time.Millisecond)
	g, _, pass, sink := chain(t, WithClock(clock), WithTiming(true))
	require.NoError(t, push(g, 1, 1))
	require.NoError(t, push(g, 2, 1))

	stats := sink.Stats()
	assert.Equal(t, 2, stats.Calls)
	assert.Equal(t, time.Millisecond, stats.Max)
	assert.Equal(t, 2*time.Millisecond, stats.Total)
	assert.Equal(t, 1, stats.MinCounter)
	assert.Equal(t, time.Millisecond, stats.Mean())

	// The pass handler's time includes the synchronous downstream call.
	assert.Equal(t, 2*time.Millisecond, pass.Stats().Max)

	all := g.Stats()
	require.Len(t, all, 3)
	assert.Equal(t, "collect[2]", all[2].Name)
	assert.Zero(t, all[0].Calls, "sources are not timed")
}

func TestVerbosityDefaults(t *testing.T) {
	src, pass, sink := newTestSource(), newTestPass(), newTestCollect()
	require.NoError(t, pass.Configure(map[string]any{ParamVerbosity: "none"}))
	b := NewBuilder(WithDefaultVerbosity(VerbosityMax))
	b.Add(src)
	b.Add(pass)
	b.Add(sink)
	b.Link(src.out, pass.in)
	b.Link(pass.out, sink.in)
	_, err := b.Build()
	require.NoError(t, err)

	assert.Equal(t, VerbosityNone, pass.Verbosity())
	assert.Equal(t, VerbosityMax, sink.Verbosity())
	assert.Equal(t, "max", sink.Params().Enum(ParamVerbosity))
}

func TestArmResetAndDispose(t *testing.T) {
	g, _, _, sink := chain(t)
	require.NoError(t, g.Arm(ArmSequenceStart))
	require.NoError(t, g.Arm(ArmSeamStart))
	assert.Equal(t, []ArmState{ArmSequenceStart, ArmSeamStart}, sink.armed)
	assert.Equal(t, 1, sink.resets)

	g.Reset()
	assert.Equal(t, 2, sink.resets)

	g.Dispose()
	assert.Equal(t, StateDisposed, sink.State())
	assert.ErrorIs(t, push(g, 1, 1), ErrGraphDisposed)
	assert.ErrorIs(t, g.Arm(ArmSeamEnd), ErrGraphDisposed)
	g.Dispose()
}

type recordingCanvas struct{ layers []string }

func (c *recordingCanvas) Layer(name string) Layer {
	c.layers = append(c.layers, name)
	return nopLayer{}
}

type nopLayer struct{}

func (nopLayer) Point(x, y float64, c color.Color)          {}
func (nopLayer) Line(x0, y0, x1, y1 float64, c color.Color) {}
func (nopLayer) Text(x, y float64, s string, c color.Color) {}

func TestPaintVisitsPaintersInOrder(t *testing.T) {
	g, _, _, sink := chain(t)
	c := &recordingCanvas{}
	g.Paint(c)
	assert.Equal(t, []string{"collect[2]"}, c.layers)
	assert.Equal(t, 1, sink.painted)
}

func TestTraceLogging(t *testing.T) {
	var trace bytes.Buffer
	SetLogWriters(nil, nil, &trace)
	t.Cleanup(func() { SetLogWriters(nil, nil, nil) })

	g, _, pass, _ := chain(t)
	require.NoError(t, pass.Configure(map[string]any{ParamVerbosity: "high"}))
	pass.Tracef(VerbosityHigh, "value %d", 42)
	pass.Tracef(VerbosityMax, "hidden")
	require.NoError(t, push(g, 1, 1))

	out := trace.String()
	assert.Contains(t, out, "pass[1]: value 42")
	assert.NotContains(t, out, "hidden")
	assert.True(t, strings.Contains(out, "signal source[0].out counter=1"))
}
