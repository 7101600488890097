// Package filters is the library of processing filters shipped with the
// engine. Every kind is registered under a fixed identifier so graph
// descriptions can refer to it.
package filters

import (
	"github.com/banshee-data/fliplane/internal/datatype"
	"github.com/banshee-data/fliplane/internal/flow"
	"github.com/banshee-data/fliplane/internal/flow/sink"
)

// NewResultBuffer returns the registered Double result buffer.
func NewResultBuffer() *sink.Buffer[datatype.Doublearray] {
	return sink.NewBuffer[datatype.Doublearray]("ResultBuffer", ResultBufferID, resultBufferVariant,
		flow.Connector{ID: ResultBufferIn, Name: "result"})
}

// NewNIOBuffer returns the registered Double fault latch.
func NewNIOBuffer() *sink.NIO[datatype.Doublearray] {
	return sink.NewNIO[datatype.Doublearray]("NIOBuffer", NIOBufferID, nioBufferVariant,
		flow.Connector{ID: NIOBufferIn, Name: "nio"})
}

// Registrations lists every filter kind of the library.
func Registrations() []flow.Registration {
	return []flow.Registration{
		{FilterID: PassthroughID, VariantID: passthroughVariant, Name: "Passthrough", Component: "utility",
			Description: "forwards a Double value unchanged",
			New:         func() flow.Filter { return NewDoublePassthrough() }},
		{FilterID: LowPassFFTID, VariantID: lowPassFFTVariant, Name: "LowPassFFT", Component: "signal",
			Description: "removes frequencies above Cutoff",
			New:         func() flow.Filter { return NewLowPassFFT() }},
		{FilterID: TemporalLowPassID, VariantID: temporalLowPassVariant, Name: "TemporalLowPass", Component: "signal",
			Description: "smooths values across frames",
			New:         func() flow.Filter { return NewTemporalLowPass() }},
		{FilterID: ArithmeticID, VariantID: arithmeticVariant, Name: "Arithmetic", Component: "utility",
			Description: "combines two Double inputs element by element",
			New:         func() flow.Filter { return NewArithmetic() }},
		{FilterID: StatisticsID, VariantID: statisticsVariant, Name: "Statistics", Component: "signal",
			Description: "mean and standard deviation of a Double value",
			New:         func() flow.Filter { return NewStatistics() }},
		{FilterID: RangeCheckID, VariantID: rangeCheckVariant, Name: "RangeCheck", Component: "results",
			Description: "flags values outside [Min, Max]",
			New:         func() flow.Filter { return NewRangeCheck() }},
		{FilterID: LineSelectID, VariantID: lineSelectVariant, Name: "LineSelect", Component: "utility",
			Description: "extracts one profile of a Line value",
			New:         func() flow.Filter { return NewLineSelect() }},
		{FilterID: ResultBufferID, VariantID: resultBufferVariant, Name: "ResultBuffer", Component: "results",
			Description: "buffers Double results until cleared",
			New:         func() flow.Filter { return NewResultBuffer() }},
		{FilterID: NIOBufferID, VariantID: nioBufferVariant, Name: "NIOBuffer", Component: "results",
			Description: "buffers Double results and latches a fault flag",
			New:         func() flow.Filter { return NewNIOBuffer() }},
	}
}

// Register adds every filter kind of the library to reg.
func Register(reg *flow.Registry) error {
	for _, r := range Registrations() {
		if err := reg.Register(r); err != nil {
			return err
		}
	}
	return nil
}
