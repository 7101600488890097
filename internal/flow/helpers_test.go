package flow

import (
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/banshee-data/fliplane/internal/datatype"
)

var (
	testSourceID  = uuid.MustParse("6a0f8f6e-2a55-4d6b-9f0e-0d3b7a61c001")
	testPassID    = uuid.MustParse("6a0f8f6e-2a55-4d6b-9f0e-0d3b7a61c002")
	testJoinID    = uuid.MustParse("6a0f8f6e-2a55-4d6b-9f0e-0d3b7a61c003")
	testCollectID = uuid.MustParse("6a0f8f6e-2a55-4d6b-9f0e-0d3b7a61c004")
	testLineID    = uuid.MustParse("6a0f8f6e-2a55-4d6b-9f0e-0d3b7a61c005")
	testVariantID = uuid.MustParse("6a0f8f6e-2a55-4d6b-9f0e-0d3b7a61c0ff")

	connSourceOut  = uuid.MustParse("11111111-0000-4000-8000-000000000001")
	connPassIn     = uuid.MustParse("11111111-0000-4000-8000-000000000002")
	connPassOut    = uuid.MustParse("11111111-0000-4000-8000-000000000003")
	connJoinA      = uuid.MustParse("11111111-0000-4000-8000-000000000004")
	connJoinB      = uuid.MustParse("11111111-0000-4000-8000-000000000005")
	connJoinOut    = uuid.MustParse("11111111-0000-4000-8000-000000000006")
	connCollectIn  = uuid.MustParse("11111111-0000-4000-8000-000000000007")
	connLineIn     = uuid.MustParse("11111111-0000-4000-8000-000000000008")
	connJoinOption = uuid.MustParse("11111111-0000-4000-8000-000000000009")
)

type testSource struct {
	Base
	out *Pipe[datatype.Doublearray]
}

func newTestSource() *testSource {
	f := &testSource{}
	f.Init(f, "source", testSourceID, testVariantID)
	f.out = NewPipe[datatype.Doublearray](&f.Base, Connector{ID: connSourceOut, Name: "out"})
	return f
}

func (f *testSource) Inject(v any, ctx Context) error {
	d, ok := v.(datatype.Doublearray)
	if !ok {
		return fmt.Errorf("source expects Doublearray, got %T", v)
	}
	return f.out.Signal(d, ctx)
}

var errNegative = errors.New("negative input")

// testPass forwards its input. It fails on a negative first element when
// failNegative is set and panics on the sentinel value 666.
type testPass struct {
	Base
	in           *In[datatype.Doublearray]
	out          *Pipe[datatype.Doublearray]
	calls        int
	failNegative bool
}

func newTestPass() *testPass {
	f := &testPass{}
	f.Init(f, "pass", testPassID, testVariantID)
	f.DeclareDouble("Gain", 1)
	f.DeclareInt("Offset", 0)
	f.DeclareEnum("Mode", 0, "copy", "scale")
	f.DeclareBool("Enabled", true)
	f.DeclareString("Label", "")
	f.in = NewIn[datatype.Doublearray](&f.Base, Connector{ID: connPassIn, Name: "in"})
	f.out = NewPipe[datatype.Doublearray](&f.Base, Connector{ID: connPassOut, Name: "out"})
	return f
}

func (f *testPass) Proceed(ctx Context) error {
	f.calls++
	v := f.in.Value()
	if f.failNegative && len(v.Data) > 0 && v.Data[0] < 0 {
		return errNegative
	}
	if len(v.Data) > 0 && v.Data[0] == 666 {
		panic("devil")
	}
	out := v.Clone()
	if f.Params().Enum("Mode") == "scale" {
		for i := range out.Data {
			out.Data[i] *= f.Params().Double("Gain")
		}
	}
	return f.out.Signal(out, ctx)
}

type joinEvent struct {
	Counter int
	A, B    []float64
}

// testJoin is a two-input group filter with an optional third member.
type testJoin struct {
	Base
	a, b, c *In[datatype.Doublearray]
	out     *Pipe[datatype.Doublearray]
	events  []joinEvent
}

func newTestJoin() *testJoin {
	f := &testJoin{}
	f.Init(f, "join", testJoinID, testVariantID)
	f.a = NewIn[datatype.Doublearray](&f.Base, Connector{ID: connJoinA, Name: "a", Group: 1})
	f.b = NewIn[datatype.Doublearray](&f.Base, Connector{ID: connJoinB, Name: "b", Group: 1})
	f.c = NewIn[datatype.Doublearray](&f.Base, Connector{ID: connJoinOption, Name: "c", Group: 1, Mode: Optional})
	f.out = NewPipe[datatype.Doublearray](&f.Base, Connector{ID: connJoinOut, Name: "sum"})
	return f
}

func (f *testJoin) ProceedGroup(ev GroupEvent) error {
	a, _ := f.a.Get(ev)
	b, _ := f.b.Get(ev)
	f.events = append(f.events, joinEvent{Counter: ev.Counter, A: a.Data, B: b.Data})
	sum := make([]float64, len(a.Data))
	for i := range sum {
		sum[i] = a.Data[i] + b.Data[i]
	}
	return f.out.Signal(datatype.NewDoublearray(sum...), ev.Context)
}

type collected struct {
	Counter int
	Values  []float64
}

// testCollect records every value it receives and rolls back failed frames.
type testCollect struct {
	Base
	in      *In[datatype.Doublearray]
	got     []collected
	resets  int
	armed   []ArmState
	painted int
}

func newTestCollect() *testCollect {
	f := &testCollect{}
	f.Init(f, "collect", testCollectID, testVariantID)
	f.in = NewIn[datatype.Doublearray](&f.Base, Connector{ID: connCollectIn, Name: "in"})
	return f
}

func (f *testCollect) Proceed(ctx Context) error {
	v := f.in.Value()
	f.got = append(f.got, collected{Counter: ctx.Counter, Values: append([]float64(nil), v.Data...)})
	return nil
}

func (f *testCollect) Discard(counter int) {
	kept := f.got[:0]
	for _, c := range f.got {
		if c.Counter != counter {
			kept = append(kept, c)
		}
	}
	f.got = kept
}

func (f *testCollect) Reset() { f.resets++ }

func (f *testCollect) Arm(state ArmState) error {
	f.armed = append(f.armed, state)
	return nil
}

func (f *testCollect) Paint(l Layer) {
	f.painted++
	l.Text(0, 0, f.Name(), nil)
}

type testLineSink struct {
	Base
	in *In[datatype.LineModel]
}

func newTestLineSink() *testLineSink {
	f := &testLineSink{}
	f.Init(f, "lines", testLineID, testVariantID)
	f.in = NewIn[datatype.LineModel](&f.Base, Connector{ID: connLineIn, Name: "line"})
	return f
}

func (f *testLineSink) Proceed(Context) error { return nil }

func testRegistry() *Registry {
	reg := NewRegistry()
	for _, r := range []Registration{
		{FilterID: testSourceID, Name: "source", Component: "test", New: func() Filter { return newTestSource() }},
		{FilterID: testPassID, Name: "pass", Component: "test", New: func() Filter { return newTestPass() }},
		{FilterID: testJoinID, Name: "join", Component: "test", New: func() Filter { return newTestJoin() }},
		{FilterID: testCollectID, Name: "collect", Component: "test", New: func() Filter { return newTestCollect() }},
		{FilterID: testLineID, Name: "lines", Component: "test", New: func() Filter { return newTestLineSink() }},
	} {
		if err := reg.Register(r); err != nil {
			panic(err)
		}
	}
	return reg
}

func push(g *Graph, counter int, values ...float64) error {
	return g.Push(Context{Counter: counter}, Input{Value: datatype.NewDoublearray(values...)})
}
