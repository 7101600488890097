package filters

import (
	"errors"

	"gonum.org/v1/gonum/dsp/fourier"

	"github.com/banshee-data/fliplane/internal/datatype"
	"github.com/banshee-data/fliplane/internal/flow"
)

var errEmptyInput = errors.New("empty input")

// LowPassFFT removes every frequency above Cutoff from a Double sequence.
// A negative cutoff disables filtering and the input is forwarded as is.
type LowPassFFT struct {
	flow.Base
	In  *flow.In[datatype.Doublearray]
	Out *flow.Pipe[datatype.Doublearray]

	fft   *fourier.FFT
	coeff []complex128
}

func NewLowPassFFT() *LowPassFFT {
	f := &LowPassFFT{}
	f.Init(f, "LowPassFFT", LowPassFFTID, lowPassFFTVariant)
	f.DeclareInt("Cutoff", -1)
	f.In = flow.NewIn[datatype.Doublearray](&f.Base, flow.Connector{ID: LowPassFFTIn, Name: "data"})
	f.Out = flow.NewPipe[datatype.Doublearray](&f.Base, flow.Connector{ID: LowPassFFTOut, Name: "filtered"})
	return f
}

func (f *LowPassFFT) Proceed(ctx flow.Context) error {
	in := f.In.Value()
	if in.Len() == 0 {
		return errEmptyInput
	}
	cutoff := f.Params().Int("Cutoff")
	if cutoff < 0 {
		return f.Out.Signal(in, ctx)
	}

	out := in.Clone()
	out.Data = f.filter(in.Data, cutoff)
	f.Tracef(flow.VerbosityHigh, "frame %d: cutoff %d over %d samples", ctx.Counter, cutoff, len(in.Data))
	return f.Out.Signal(out, ctx)
}

func (f *LowPassFFT) filter(seq []float64, cutoff int) []float64 {
	n := len(seq)
	if f.fft == nil {
		f.fft = fourier.NewFFT(n)
	} else if f.fft.Len() != n {
		f.fft.Reset(n)
	}
	if len(f.coeff) != n/2+1 {
		f.coeff = make([]complex128, n/2+1)
	}
	coeff := f.fft.Coefficients(f.coeff, seq)
	for k := cutoff + 1; k < len(coeff); k++ {
		coeff[k] = 0
	}
	out := f.fft.Sequence(nil, coeff)
	scale := 1 / float64(n)
	for i := range out {
		out[i] *= scale
	}
	return out
}
