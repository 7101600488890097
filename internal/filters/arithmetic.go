package filters

import (
	"fmt"
	"math"

	"github.com/banshee-data/fliplane/internal/datatype"
	"github.com/banshee-data/fliplane/internal/flow"
)

var operations = []string{"add", "subtract", "multiply", "divide", "modulo", "max", "min", "a_ge_b", "b_ge_a", "norm"}

// Arithmetic combines two Double inputs element by element once both have
// arrived for a frame. A single element input is broadcast against the
// other. Each result carries the lower rank of its operands; division or
// modulo by zero yields 0 with bad rank and comparisons yield 0 or 1 with
// full rank.
type Arithmetic struct {
	flow.Base
	A   *flow.In[datatype.Doublearray]
	B   *flow.In[datatype.Doublearray]
	Out *flow.Pipe[datatype.Doublearray]
}

func NewArithmetic() *Arithmetic {
	f := &Arithmetic{}
	f.Init(f, "Arithmetic", ArithmeticID, arithmeticVariant)
	f.DeclareEnum("Operation", 0, operations...)
	f.A = flow.NewIn[datatype.Doublearray](&f.Base, flow.Connector{ID: ArithmeticA, Name: "data_a", Group: 1})
	f.B = flow.NewIn[datatype.Doublearray](&f.Base, flow.Connector{ID: ArithmeticB, Name: "data_b", Group: 1})
	f.Out = flow.NewPipe[datatype.Doublearray](&f.Base, flow.Connector{ID: ArithmeticOut, Name: "data"})
	return f
}

func (f *Arithmetic) ProceedGroup(ev flow.GroupEvent) error {
	a, _ := f.A.Get(ev)
	b, _ := f.B.Get(ev)

	n := a.Len()
	switch {
	case a.Len() == b.Len():
	case a.Len() == 1:
		n = b.Len()
	case b.Len() == 1:
	default:
		return fmt.Errorf("length mismatch: %d and %d", a.Len(), b.Len())
	}

	op := f.Params().Enum("Operation")
	out := datatype.Doublearray{Data: make([]float64, n), Rank: make([]int, n)}
	for i := 0; i < n; i++ {
		av, ar := element(a, i)
		bv, br := element(b, i)
		out.Data[i], out.Rank[i] = apply(op, av, bv, min(ar, br))
	}
	return f.Out.Signal(out, ev.Context)
}

func element(a datatype.Doublearray, i int) (float64, int) {
	if a.Len() == 1 {
		i = 0
	}
	rank := datatype.MaxRank
	if i < len(a.Rank) {
		rank = a.Rank[i]
	}
	return a.Data[i], rank
}

func apply(op string, a, b float64, rank int) (float64, int) {
	switch op {
	case "add":
		return a + b, rank
	case "subtract":
		return a - b, rank
	case "multiply":
		return a * b, rank
	case "divide":
		if b == 0 {
			return 0, datatype.BadRank
		}
		return a / b, rank
	case "modulo":
		if b == 0 {
			return 0, datatype.BadRank
		}
		return math.Mod(a, b), rank
	case "max":
		return math.Max(a, b), rank
	case "min":
		return math.Min(a, b), rank
	case "a_ge_b":
		return boolValue(a >= b), datatype.MaxRank
	case "b_ge_a":
		return boolValue(b >= a), datatype.MaxRank
	case "norm":
		return math.Hypot(a, b), rank
	}
	return 0, datatype.BadRank
}

func boolValue(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
