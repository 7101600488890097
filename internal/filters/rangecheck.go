package filters

import (
	"fmt"
	"image/color"

	"github.com/banshee-data/fliplane/internal/datatype"
	"github.com/banshee-data/fliplane/internal/flow"
)

// RangeCheck forwards its input and, when any ranked element lies outside
// [Min, Max], additionally signals the offending elements on its NIO output.
type RangeCheck struct {
	flow.Base
	In  *flow.In[datatype.Doublearray]
	Out *flow.Pipe[datatype.Doublearray]
	NIO *flow.Pipe[datatype.Doublearray]

	last      datatype.Doublearray
	offending []int
}

func NewRangeCheck() *RangeCheck {
	f := &RangeCheck{}
	f.Init(f, "RangeCheck", RangeCheckID, rangeCheckVariant)
	f.DeclareDouble("Min", 0)
	f.DeclareDouble("Max", 1)
	f.In = flow.NewIn[datatype.Doublearray](&f.Base, flow.Connector{ID: RangeCheckIn, Name: "data"})
	f.Out = flow.NewPipe[datatype.Doublearray](&f.Base, flow.Connector{ID: RangeCheckOut, Name: "data"})
	f.NIO = flow.NewPipe[datatype.Doublearray](&f.Base, flow.Connector{ID: RangeCheckNIO, Name: "nio"})
	return f
}

func (f *RangeCheck) SetParameter() error {
	lo, hi := f.Params().Double("Min"), f.Params().Double("Max")
	if lo > hi {
		return fmt.Errorf("min %g exceeds max %g", lo, hi)
	}
	return nil
}

func (f *RangeCheck) Proceed(ctx flow.Context) error {
	in := f.In.Value()
	lo, hi := f.Params().Double("Min"), f.Params().Double("Max")

	f.last = in
	f.offending = f.offending[:0]
	var bad datatype.Doublearray
	for i, v := range in.Data {
		if i < len(in.Rank) && in.Rank[i] == datatype.BadRank {
			continue
		}
		if v < lo || v > hi {
			f.offending = append(f.offending, i)
			bad.Data = append(bad.Data, v)
			bad.Rank = append(bad.Rank, datatype.MaxRank)
		}
	}

	if err := f.Out.Signal(in, ctx); err != nil {
		return err
	}
	if len(f.offending) == 0 {
		return nil
	}
	f.Tracef(flow.VerbosityMedium, "frame %d: %d values outside [%g, %g]", ctx.Counter, len(f.offending), lo, hi)
	return f.NIO.Signal(bad, ctx.WithResult(flow.AnalysisErrOutOfTolerance))
}

var outOfRange = color.RGBA{R: 255, A: 255}

func (f *RangeCheck) Paint(l flow.Layer) {
	for _, i := range f.offending {
		l.Point(float64(i), f.last.Data[i], outOfRange)
	}
}
