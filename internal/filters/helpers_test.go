package filters

import (
	"image/color"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/banshee-data/fliplane/internal/datatype"
	"github.com/banshee-data/fliplane/internal/flow"
	"github.com/banshee-data/fliplane/internal/flow/bridge"
	"github.com/banshee-data/fliplane/internal/flow/sink"
)

// harness wires a bridge source into in and a result buffer behind every
// output of f.
func harness[T datatype.Value](t *testing.T, f flow.Filter, in *flow.In[T], outs ...*flow.Pipe[datatype.Doublearray]) (*flow.Graph, []*sink.Buffer[datatype.Doublearray]) {
	t.Helper()
	src, err := bridge.NewSource[T]()
	require.NoError(t, err)

	b := flow.NewBuilder()
	b.Add(src)
	b.Add(f)
	b.Link(src.Output(), in)
	bufs := make([]*sink.Buffer[datatype.Doublearray], len(outs))
	for i, out := range outs {
		bufs[i] = NewResultBuffer()
		b.Add(bufs[i])
		b.Link(out, bufs[i].Input(0))
	}
	g, err := b.Build()
	require.NoError(t, err)
	return g, bufs
}

func push(g *flow.Graph, counter int, v datatype.Value) error {
	return g.Push(flow.Context{Counter: counter}, flow.Input{Value: v})
}

// data flattens the buffered values of buf.
func data(buf *sink.Buffer[datatype.Doublearray]) []float64 {
	var out []float64
	for _, v := range buf.Values() {
		out = append(out, v.Data...)
	}
	return out
}

type recordingLayer struct {
	points [][2]float64
	texts  []string
}

func (l *recordingLayer) Point(x, y float64, _ color.Color) { l.points = append(l.points, [2]float64{x, y}) }
func (l *recordingLayer) Line(_, _, _, _ float64, _ color.Color) {}
func (l *recordingLayer) Text(_, _ float64, s string, _ color.Color) { l.texts = append(l.texts, s) }
