package flow

// ResultType classifies the analysis outcome carried along with a value.
type ResultType int

const (
	AnalysisOK ResultType = iota
	AnalysisErrBadImage
	AnalysisErrNoSeam
	AnalysisErrOutOfTolerance
	AnalysisErrNotValid
)

func (r ResultType) String() string {
	switch r {
	case AnalysisOK:
		return "AnalysisOK"
	case AnalysisErrBadImage:
		return "BadImage"
	case AnalysisErrNoSeam:
		return "NoSeam"
	case AnalysisErrOutOfTolerance:
		return "OutOfTolerance"
	case AnalysisErrNotValid:
		return "NotValid"
	}
	return "Unknown"
}

// Trafo is the image-to-sensor offset accumulated by ROI-cutting filters.
type Trafo struct {
	DX int `json:"dx"`
	DY int `json:"dy"`
}

// Apply shifts a point by the offset.
func (t Trafo) Apply(x, y int) (int, int) { return x + t.DX, y + t.DY }

// Compose returns the offset of applying t then o.
func (t Trafo) Compose(o Trafo) Trafo { return Trafo{DX: t.DX + o.DX, DY: t.DY + o.DY} }

// Context travels with every value on a pipe. Counter identifies the
// acquisition cycle and scopes all per-frame state in the graph.
type Context struct {
	Counter  int        `json:"counter"`
	Position int64      `json:"position"`
	Trafo    Trafo      `json:"trafo"`
	Result   ResultType `json:"result"`
}

// WithResult returns a copy of c carrying r.
func (c Context) WithResult(r ResultType) Context {
	c.Result = r
	return c
}

// ArmState is the sequence notification a host sends between frames.
type ArmState int

const (
	ArmSeamStart ArmState = iota
	ArmSeamEnd
	ArmSequenceStart
	ArmSequenceEnd
)
