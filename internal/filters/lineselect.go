package filters

import (
	"fmt"

	"github.com/banshee-data/fliplane/internal/datatype"
	"github.com/banshee-data/fliplane/internal/flow"
)

// LineSelect extracts one profile of a Line value.
type LineSelect struct {
	flow.Base
	In  *flow.In[datatype.LineModel]
	Out *flow.Pipe[datatype.Doublearray]
}

func NewLineSelect() *LineSelect {
	f := &LineSelect{}
	f.Init(f, "LineSelect", LineSelectID, lineSelectVariant)
	f.DeclareInt("Index", 0)
	f.In = flow.NewIn[datatype.LineModel](&f.Base, flow.Connector{ID: LineSelectIn, Name: "line"})
	f.Out = flow.NewPipe[datatype.Doublearray](&f.Base, flow.Connector{ID: LineSelectOut, Name: "profile"})
	return f
}

func (f *LineSelect) Proceed(ctx flow.Context) error {
	line := f.In.Value()
	idx := f.Params().Int("Index")
	if idx < 0 || idx >= len(line.Profiles) {
		return fmt.Errorf("line index %d out of range [0, %d)", idx, len(line.Profiles))
	}
	return f.Out.Signal(line.Profiles[idx], ctx)
}
