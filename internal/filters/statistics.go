package filters

import (
	"fmt"
	"image/color"

	"gonum.org/v1/gonum/stat"

	"github.com/banshee-data/fliplane/internal/datatype"
	"github.com/banshee-data/fliplane/internal/flow"
)

// Statistics reduces the ranked elements of a Double value to their mean and
// standard deviation. A value without ranked elements yields zeros with bad
// rank.
type Statistics struct {
	flow.Base
	In     *flow.In[datatype.Doublearray]
	Mean   *flow.Pipe[datatype.Doublearray]
	StdDev *flow.Pipe[datatype.Doublearray]

	values     []float64
	mean, std  float64
	lastFrame  int
	lastRanked bool
}

func NewStatistics() *Statistics {
	f := &Statistics{}
	f.Init(f, "Statistics", StatisticsID, statisticsVariant)
	f.In = flow.NewIn[datatype.Doublearray](&f.Base, flow.Connector{ID: StatisticsIn, Name: "data"})
	f.Mean = flow.NewPipe[datatype.Doublearray](&f.Base, flow.Connector{ID: StatisticsMean, Name: "mean"})
	f.StdDev = flow.NewPipe[datatype.Doublearray](&f.Base, flow.Connector{ID: StatisticsStdDev, Name: "stddev"})
	return f
}

func (f *Statistics) Proceed(ctx flow.Context) error {
	in := f.In.Value()
	f.values = f.values[:0]
	for i, v := range in.Data {
		if i < len(in.Rank) && in.Rank[i] == datatype.BadRank {
			continue
		}
		f.values = append(f.values, v)
	}

	rank := datatype.MaxRank
	f.mean, f.std = 0, 0
	switch len(f.values) {
	case 0:
		rank = datatype.BadRank
	case 1:
		f.mean = f.values[0]
	default:
		f.mean, f.std = stat.MeanStdDev(f.values, nil)
	}
	f.lastFrame = ctx.Counter
	f.lastRanked = rank != datatype.BadRank

	mean := datatype.Doublearray{Data: []float64{f.mean}, Rank: []int{rank}}
	std := datatype.Doublearray{Data: []float64{f.std}, Rank: []int{rank}}
	if err := f.Mean.Signal(mean, ctx); err != nil {
		return err
	}
	return f.StdDev.Signal(std, ctx)
}

func (f *Statistics) Paint(l flow.Layer) {
	if !f.lastRanked {
		return
	}
	l.Text(0, 0, fmt.Sprintf("frame %d: mean %.3f sd %.3f", f.lastFrame, f.mean, f.std), color.White)
}
