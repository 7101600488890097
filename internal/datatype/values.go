package datatype

// Value is implemented by every type a pipe can carry.
type Value interface {
	Kind() DataType
}

// Rank bounds. Each element of an array value carries a confidence rank in
// [BadRank, MaxRank].
const (
	BadRank = 0
	MaxRank = 255
)

// Doublearray is a ranked array of scalars, the payload of Double pipes.
type Doublearray struct {
	Data []float64 `json:"data"`
	Rank []int     `json:"rank"`
}

// NewDoublearray returns values with full rank.
func NewDoublearray(values ...float64) Doublearray {
	rank := make([]int, len(values))
	for i := range rank {
		rank[i] = MaxRank
	}
	return Doublearray{Data: append([]float64(nil), values...), Rank: rank}
}

func (Doublearray) Kind() DataType { return Double }

// Len returns the number of elements.
func (a Doublearray) Len() int { return len(a.Data) }

// Clone returns a deep copy. Values received from a pipe must be cloned before
// being retained past the handler that received them.
func (a Doublearray) Clone() Doublearray {
	return Doublearray{
		Data: append([]float64(nil), a.Data...),
		Rank: append([]int(nil), a.Rank...),
	}
}

// SampleFrame is a block of raw sensor samples, the payload of Sample pipes.
type SampleFrame struct {
	Data []float64 `json:"data"`
	Rank []int     `json:"rank"`
}

func (SampleFrame) Kind() DataType { return Sample }

// LineModel holds one or more laser line profiles.
type LineModel struct {
	Profiles []Doublearray `json:"profiles"`
}

func (LineModel) Kind() DataType { return Line }

// Point is a 2D image coordinate.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Points is an ordered, ranked point list.
type Points struct {
	Points []Point `json:"points"`
	Rank   []int   `json:"rank"`
}

func (Points) Kind() DataType { return PointList }

// BlobItem is a connected region found in an image.
type BlobItem struct {
	XMin     int     `json:"x_min"`
	XMax     int     `json:"x_max"`
	YMin     int     `json:"y_min"`
	YMax     int     `json:"y_max"`
	Area     int     `json:"area"`
	Centroid Point   `json:"centroid"`
	Mean     float64 `json:"mean"`
}

// Blobs is the payload of Blob pipes.
type Blobs struct {
	Blobs []BlobItem `json:"blobs"`
	Rank  []int      `json:"rank"`
}

func (Blobs) Kind() DataType { return Blob }

// HoughCandidate describes a poor-penetration candidate found by a Hough line
// search.
type HoughCandidate struct {
	Lines       int     `json:"lines"`
	LeftLine    Point   `json:"left_line"`
	RightLine   Point   `json:"right_line"`
	MeanWidth   float64 `json:"mean_width"`
	Orientation float64 `json:"orientation"`
}

// HoughCandidates is the payload of HoughPPCandidate pipes.
type HoughCandidates struct {
	Candidates []HoughCandidate `json:"candidates"`
	Rank       []int            `json:"rank"`
}

func (HoughCandidates) Kind() DataType { return HoughPPCandidate }

// SeamEdge is a single seam position result.
type SeamEdge struct {
	Left      int `json:"left"`
	Right     int `json:"right"`
	Algorithm int `json:"algorithm"`
	Quality   int `json:"quality"`
}

// SeamFindings is the payload of SeamFinding pipes.
type SeamFindings struct {
	Findings []SeamEdge `json:"findings"`
	Rank     []int      `json:"rank"`
}

func (SeamFindings) Kind() DataType { return SeamFinding }

// ImageState classifies what a start/end detection saw in the image.
type ImageState int

const (
	ImageStateInvalid ImageState = iota
	ImageStateOnlyBackground
	ImageStateOnlyMaterial
	ImageStateFullEdgeVisible
	ImageStateOnlyLeftEdgeVisible
	ImageStateOnlyRightEdgeVisible
)

// FittedLine is y = M*x + Q in image coordinates.
type FittedLine struct {
	M float64 `json:"m"`
	Q float64 `json:"q"`
}

// Y evaluates the line at x.
func (l FittedLine) Y(x float64) float64 { return l.M*x + l.Q }

// StartEnd holds the result of a start/end-of-material detection.
type StartEnd struct {
	State        ImageState `json:"state"`
	LeftEdge     FittedLine `json:"left_edge"`
	RightEdge    FittedLine `json:"right_edge"`
	IsTopDark    bool       `json:"is_top_dark"`
	IsBottomDark bool       `json:"is_bottom_dark"`
}

// StartEndInfos is the payload of StartEndInfo pipes.
type StartEndInfos struct {
	Infos []StartEnd `json:"infos"`
	Rank  []int      `json:"rank"`
}

func (StartEndInfos) Kind() DataType { return StartEndInfo }

// SurfaceTile is the texture analysis of one tile of a surface.
type SurfaceTile struct {
	Row      int     `json:"row"`
	Col      int     `json:"col"`
	Mean     float64 `json:"mean"`
	Variance float64 `json:"variance"`
	MinMax   float64 `json:"min_max"`
	Gradient float64 `json:"gradient"`
	Defect   bool    `json:"defect"`
}

// Surface is the payload of SurfaceInfo pipes.
type Surface struct {
	Tiles []SurfaceTile `json:"tiles"`
	Rank  []int         `json:"rank"`
}

func (Surface) Kind() DataType { return SurfaceInfo }

// Image is a single 8-bit grey image, the payload of ImageFrame pipes.
type Image struct {
	Width  int    `json:"width"`
	Height int    `json:"height"`
	Pixels []byte `json:"pixels"`
}

func (Image) Kind() DataType { return ImageFrame }

// At returns the pixel at (x, y). Out-of-range coordinates yield 0.
func (im Image) At(x, y int) byte {
	if x < 0 || y < 0 || x >= im.Width || y >= im.Height {
		return 0
	}
	return im.Pixels[y*im.Width+x]
}

// PenetrationCandidate is a region suspected of insufficient weld penetration.
type PenetrationCandidate struct {
	XMin     int     `json:"x_min"`
	XMax     int     `json:"x_max"`
	YMin     int     `json:"y_min"`
	YMax     int     `json:"y_max"`
	Width    int     `json:"width"`
	Length   int     `json:"length"`
	Gradient float64 `json:"gradient"`
	Mean     float64 `json:"mean"`
}

// PenetrationCandidates is the payload of PoorPenetrationCandidate pipes.
type PenetrationCandidates struct {
	Candidates []PenetrationCandidate `json:"candidates"`
	Rank       []int                  `json:"rank"`
}

func (PenetrationCandidates) Kind() DataType { return PoorPenetrationCandidate }
