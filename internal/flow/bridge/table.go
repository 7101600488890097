package bridge

import (
	"errors"
	"sort"

	"github.com/google/uuid"

	"github.com/banshee-data/fliplane/internal/datatype"
	"github.com/banshee-data/fliplane/internal/flow"
)

// Role is the side of a boundary a bridge filter sits on.
type Role int

const (
	RoleSource Role = iota + 1
	RoleSink
)

func (r Role) String() string {
	switch r {
	case RoleSource:
		return "source"
	case RoleSink:
		return "sink"
	default:
		return "unknown"
	}
}

// Pair holds the fixed identifiers of one bridge pair. External graph
// descriptions reference these values literally; they must never change.
type Pair struct {
	Type      datatype.DataType
	SourceID  uuid.UUID
	SourceOut uuid.UUID
	SinkID    uuid.UUID
	SinkIn    uuid.UUID
}

var pairs = map[datatype.DataType]Pair{
	datatype.Double: {
		Type:      datatype.Double,
		SourceID:  uuid.MustParse("7770b9a6-ca04-46a7-b27c-33df27344ad4"),
		SourceOut: uuid.MustParse("4518f390-cc81-46a4-a156-8b3ea1c20445"),
		SinkID:    uuid.MustParse("488967c8-02f2-4a18-b88d-7f2c5b9749b4"),
		SinkIn:    uuid.MustParse("d6a0e4fb-69d7-4e81-b03f-6be8a2721898"),
	},
	datatype.Line: {
		Type:      datatype.Line,
		SourceID:  uuid.MustParse("5685257d-9af0-4f3d-adf4-2d17d1141312"),
		SourceOut: uuid.MustParse("141c060c-5199-47f3-85ed-f6af0e41bdae"),
		SinkID:    uuid.MustParse("e108a053-874e-4942-b415-c2004a654282"),
		SinkIn:    uuid.MustParse("842d4193-29aa-4ffc-a5fc-34ddc4beba6e"),
	},
	datatype.PointList: {
		Type:      datatype.PointList,
		SourceID:  uuid.MustParse("55971812-0b2e-4202-bfbd-e7821a9044f6"),
		SourceOut: uuid.MustParse("32291f45-1404-465c-9ae1-dbc16a1b8b1b"),
		SinkID:    uuid.MustParse("316ead65-82b3-4dff-bed9-09a694c4eebb"),
		SinkIn:    uuid.MustParse("d5b8c49e-e0e8-4950-9103-2fa75cf38947"),
	},
	datatype.Blob: {
		Type:      datatype.Blob,
		SourceID:  uuid.MustParse("59674f26-488c-4ab5-a160-8debf4928f40"),
		SourceOut: uuid.MustParse("41426ece-c5bc-40f7-b4db-6e37f619cf61"),
		SinkID:    uuid.MustParse("b50e317b-9895-4d0e-a547-8d8ce9cdaf3f"),
		SinkIn:    uuid.MustParse("473fc1e0-fa7c-4c02-98b0-03817ffec000"),
	},
	datatype.Sample: {
		Type:      datatype.Sample,
		SourceID:  uuid.MustParse("21950067-eb43-4a7b-9707-5080b2153733"),
		SourceOut: uuid.MustParse("ffbfd648-cfbe-4d73-a865-334e03f17622"),
		SinkID:    uuid.MustParse("f1a572c8-8e30-4792-83bc-7508d21a533d"),
		SinkIn:    uuid.MustParse("e75ee2dc-b502-4689-9d03-dd76bd974677"),
	},
	datatype.HoughPPCandidate: {
		Type:      datatype.HoughPPCandidate,
		SourceID:  uuid.MustParse("622b871c-c1ce-466c-89cc-376927571926"),
		SourceOut: uuid.MustParse("90139941-316b-4f29-88b0-c43968d3db75"),
		SinkID:    uuid.MustParse("eff5a773-c29c-42c7-b804-dcafe5414dee"),
		SinkIn:    uuid.MustParse("09472554-7eb3-432f-a616-c61f1e689ce8"),
	},
	datatype.SeamFinding: {
		Type:      datatype.SeamFinding,
		SourceID:  uuid.MustParse("18ece4c7-b1f5-4cf5-8b9d-4de7971a1d6d"),
		SourceOut: uuid.MustParse("7de924d0-26a0-4184-90b8-ae277eeeba8d"),
		SinkID:    uuid.MustParse("17b929b2-30ec-4c67-b0e3-4f319d05e50b"),
		SinkIn:    uuid.MustParse("b7350d0c-c764-457a-a036-ba6a3230f707"),
	},
	datatype.StartEndInfo: {
		Type:      datatype.StartEndInfo,
		SourceID:  uuid.MustParse("7c4c7bfa-39f1-498b-89bb-f3802b9f2f2a"),
		SourceOut: uuid.MustParse("9e365509-6768-409e-92cc-ea034559eac1"),
		SinkID:    uuid.MustParse("9d9a9a12-e51f-4921-a802-b0c90f516310"),
		SinkIn:    uuid.MustParse("59da1b19-40bd-400b-85ff-dc618c0df4b2"),
	},
	datatype.SurfaceInfo: {
		Type:      datatype.SurfaceInfo,
		SourceID:  uuid.MustParse("a8f73f37-b83d-4d6c-9cfc-4e38a53e8b7b"),
		SourceOut: uuid.MustParse("0b3914f4-eb83-481f-a2f4-7cc6febef63f"),
		SinkID:    uuid.MustParse("c11907fa-2f1e-4d43-b4ba-0a88fed95d17"),
		SinkIn:    uuid.MustParse("87744671-3de8-4127-9d9d-c599616bd3ed"),
	},
	datatype.ImageFrame: {
		Type:      datatype.ImageFrame,
		SourceID:  uuid.MustParse("8310c333-20a2-4a91-a9f9-e72199d0604b"),
		SourceOut: uuid.MustParse("1ddd80d8-b6ce-4d5d-930e-8130cb5ad701"),
		SinkID:    uuid.MustParse("3f59b49e-7fa3-4fa8-9317-e21947b26bd8"),
		SinkIn:    uuid.MustParse("61333117-7d5d-4854-b157-1ca9a9e130dc"),
	},
	datatype.PoorPenetrationCandidate: {
		Type:      datatype.PoorPenetrationCandidate,
		SourceID:  uuid.MustParse("c260999e-c556-4c58-917d-f6dde7b79fc7"),
		SourceOut: uuid.MustParse("984c290d-5a5b-4411-b7b1-02bccc74e665"),
		SinkID:    uuid.MustParse("523ce7df-d6a8-44da-8263-a0d500307e3c"),
		SinkIn:    uuid.MustParse("24eba152-df9d-4a61-8816-fef92901b0b0"),
	},
}

// PairFor returns the bridge pair for dt.
func PairFor(dt datatype.DataType) (Pair, error) {
	p, ok := pairs[dt]
	if !ok {
		return Pair{}, &flow.MissingBridgeError{DataType: dt}
	}
	return p, nil
}

// Pairs returns every bridge pair ordered by data type identifier.
func Pairs() []Pair {
	out := make([]Pair, 0, len(pairs))
	for _, p := range pairs {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Type < out[j].Type })
	return out
}

// Require checks that every listed data type can cross a boundary.
func Require(types ...datatype.DataType) error {
	var errs []error
	for _, dt := range types {
		if _, err := PairFor(dt); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Identify reports whether filterID is a bridge kind and which pair and role
// it belongs to.
func Identify(filterID uuid.UUID) (Pair, Role, bool) {
	for _, p := range pairs {
		switch filterID {
		case p.SourceID:
			return p, RoleSource, true
		case p.SinkID:
			return p, RoleSink, true
		}
	}
	return Pair{}, 0, false
}

// IsSource reports whether filterID is a bridge source kind.
func IsSource(filterID uuid.UUID) bool {
	_, r, ok := Identify(filterID)
	return ok && r == RoleSource
}

// IsSink reports whether filterID is a bridge sink kind.
func IsSink(filterID uuid.UUID) bool {
	_, r, ok := Identify(filterID)
	return ok && r == RoleSink
}
