package filters

import (
	"github.com/google/uuid"

	"github.com/banshee-data/fliplane/internal/datatype"
	"github.com/banshee-data/fliplane/internal/flow"
)

// Passthrough forwards its input value and context unchanged.
type Passthrough[T datatype.Value] struct {
	flow.Base
	In  *flow.In[T]
	Out *flow.Pipe[T]
}

// NewPassthrough returns a passthrough of kind filterID with the given
// connector identifiers.
func NewPassthrough[T datatype.Value](filterID, variantID, in, out uuid.UUID) *Passthrough[T] {
	f := &Passthrough[T]{}
	f.Init(f, "Passthrough", filterID, variantID)
	f.In = flow.NewIn[T](&f.Base, flow.Connector{ID: in, Name: "in"})
	f.Out = flow.NewPipe[T](&f.Base, flow.Connector{ID: out, Name: "out"})
	return f
}

// NewDoublePassthrough returns the registered Double passthrough.
func NewDoublePassthrough() *Passthrough[datatype.Doublearray] {
	return NewPassthrough[datatype.Doublearray](PassthroughID, passthroughVariant, PassthroughIn, PassthroughOut)
}

func (f *Passthrough[T]) Proceed(ctx flow.Context) error {
	return f.Out.Signal(f.In.Value(), ctx)
}
