package filters

import (
	"fmt"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/banshee-data/fliplane/internal/datatype"
	"github.com/banshee-data/fliplane/internal/flow"
)

// Temporal low pass kinds, in enum order.
var lowPassTypes = []string{"mean", "median", "min", "max"}

// TemporalLowPass smooths a stream of Double values across frames. Every
// ranked element joins a window of the last FilterLength elements and is
// replaced by the window's mean, median, minimum or maximum. Elements with
// bad rank pass through and do not enter the window.
type TemporalLowPass struct {
	flow.Base
	In  *flow.In[datatype.Doublearray]
	Out *flow.Pipe[datatype.Doublearray]

	window []float64
	sorted []float64
}

func NewTemporalLowPass() *TemporalLowPass {
	f := &TemporalLowPass{}
	f.Init(f, "TemporalLowPass", TemporalLowPassID, temporalLowPassVariant)
	f.DeclareInt("FilterLength", 3)
	f.DeclareEnum("LowPassType", 0, lowPassTypes...)
	f.In = flow.NewIn[datatype.Doublearray](&f.Base, flow.Connector{ID: TemporalLowPassIn, Name: "value"})
	f.Out = flow.NewPipe[datatype.Doublearray](&f.Base, flow.Connector{ID: TemporalLowPassOut, Name: "filtered"})
	return f
}

func (f *TemporalLowPass) SetParameter() error {
	if n := f.Params().Int("FilterLength"); n < 1 {
		return fmt.Errorf("filter length %d must be at least 1", n)
	}
	f.Reset()
	return nil
}

func (f *TemporalLowPass) Proceed(ctx flow.Context) error {
	in := f.In.Value()
	out := in.Clone()
	length := f.Params().Int("FilterLength")
	kind := f.Params().Enum("LowPassType")
	for i, v := range in.Data {
		if i < len(in.Rank) && in.Rank[i] == datatype.BadRank {
			continue
		}
		f.window = append(f.window, v)
		if len(f.window) > length {
			f.window = f.window[len(f.window)-length:]
		}
		out.Data[i] = f.reduce(kind)
	}
	return f.Out.Signal(out, ctx)
}

func (f *TemporalLowPass) reduce(kind string) float64 {
	switch kind {
	case "median":
		f.sorted = append(f.sorted[:0], f.window...)
		sort.Float64s(f.sorted)
		// Upper middle for even windows.
		return f.sorted[len(f.sorted)/2]
	case "min":
		return floats.Min(f.window)
	case "max":
		return floats.Max(f.window)
	default:
		return stat.Mean(f.window, nil)
	}
}

// Reset forgets the window.
func (f *TemporalLowPass) Reset() {
	f.window = f.window[:0]
}

func (f *TemporalLowPass) Arm(state flow.ArmState) error {
	if state == flow.ArmSeamStart {
		f.Reset()
	}
	return nil
}
