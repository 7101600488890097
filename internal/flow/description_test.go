package flow

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/fliplane/internal/datatype"
)

var (
	instSource  = uuid.MustParse("aaaaaaaa-0000-4000-8000-000000000001")
	instPass    = uuid.MustParse("aaaaaaaa-0000-4000-8000-000000000002")
	instCollect = uuid.MustParse("aaaaaaaa-0000-4000-8000-000000000003")
)

const chainJSON = `{
  "name": "chain",
  "instances": [
    {"id": "aaaaaaaa-0000-4000-8000-000000000001", "filter_id": "6a0f8f6e-2a55-4d6b-9f0e-0d3b7a61c001", "name": "in"},
    {"id": "aaaaaaaa-0000-4000-8000-000000000002", "filter_id": "6a0f8f6e-2a55-4d6b-9f0e-0d3b7a61c002", "name": "double",
     "parameters": {"Mode": "scale", "Gain": 2, "Verbosity": "none"}},
    {"id": "aaaaaaaa-0000-4000-8000-000000000003", "filter_id": "6a0f8f6e-2a55-4d6b-9f0e-0d3b7a61c004", "name": "out"}
  ],
  "pipes": [
    {"sender": "aaaaaaaa-0000-4000-8000-000000000001", "sender_connector": "11111111-0000-4000-8000-000000000001",
     "receiver": "aaaaaaaa-0000-4000-8000-000000000002", "receiver_connector": "11111111-0000-4000-8000-000000000002"},
    {"sender": "aaaaaaaa-0000-4000-8000-000000000002", "sender_connector": "11111111-0000-4000-8000-000000000003",
     "receiver": "aaaaaaaa-0000-4000-8000-000000000003", "receiver_connector": "11111111-0000-4000-8000-000000000007"}
  ]
}`

const chainYAML = `name: chain
instances:
  - id: aaaaaaaa-0000-4000-8000-000000000001
    filter_id: 6a0f8f6e-2a55-4d6b-9f0e-0d3b7a61c001
    name: in
  - id: aaaaaaaa-0000-4000-8000-000000000002
    filter_id: 6a0f8f6e-2a55-4d6b-9f0e-0d3b7a61c002
    name: double
    parameters:
      Mode: scale
      Gain: 2
      Verbosity: none
  - id: aaaaaaaa-0000-4000-8000-000000000003
    filter_id: 6a0f8f6e-2a55-4d6b-9f0e-0d3b7a61c004
    name: out
pipes:
  - sender: aaaaaaaa-0000-4000-8000-000000000001
    sender_connector: 11111111-0000-4000-8000-000000000001
    receiver: aaaaaaaa-0000-4000-8000-000000000002
    receiver_connector: 11111111-0000-4000-8000-000000000002
  - sender: aaaaaaaa-0000-4000-8000-000000000002
    sender_connector: 11111111-0000-4000-8000-000000000003
    receiver: aaaaaaaa-0000-4000-8000-000000000003
    receiver_connector: 11111111-0000-4000-8000-000000000007
`

func TestDecodeDescriptionFormats(t *testing.T) {
	fromJSON, err := DecodeDescription(strings.NewReader(chainJSON), FormatJSON)
	require.NoError(t, err)
	fromYAML, err := DecodeDescription(strings.NewReader(chainYAML), FormatYAML)
	require.NoError(t, err)

	// JSON numbers decode as float64 and YAML integers as int; both convert
	// to the declared parameter type, so compare the wiring only.
	ignoreParams := cmp.Transformer("noParams", func(i Instance) Instance {
		i.Parameters = nil
		return i
	})
	if diff := cmp.Diff(fromJSON, fromYAML, ignoreParams); diff != "" {
		t.Errorf("JSON and YAML descriptions differ (-json +yaml):\n%s", diff)
	}
	require.Len(t, fromJSON.Instances, 3)
	assert.Equal(t, testPassID, fromJSON.Instances[1].FilterID)
	inst, ok := fromJSON.Instance(instCollect)
	require.True(t, ok)
	assert.Equal(t, "out", inst.Name)
}

func TestDecodeDescriptionRejectsUnknownMembers(t *testing.T) {
	_, err := DecodeDescription(strings.NewReader(`{"instances": [], "pipes": [], "colour": "red"}`), FormatJSON)
	assert.Error(t, err)
	_, err = DecodeDescription(strings.NewReader("instances: []\ncolour: red\n"), FormatYAML)
	assert.Error(t, err)
}

func TestBuildDescription(t *testing.T) {
	for _, tc := range []struct {
		name   string
		doc    string
		format Format
	}{
		{"json", chainJSON, FormatJSON},
		{"yaml", chainYAML, FormatYAML},
	} {
		t.Run(tc.name, func(t *testing.T) {
			desc, err := DecodeDescription(strings.NewReader(tc.doc), tc.format)
			require.NoError(t, err)
			g, err := BuildDescription(testRegistry(), desc)
			require.NoError(t, err)

			require.NoError(t, g.Push(Context{Counter: 1}, Input{Source: instSource, Value: datatype.NewDoublearray(1.5)}))
			f, ok := g.Filter(instCollect)
			require.True(t, ok)
			assert.Equal(t, []collected{{Counter: 1, Values: []float64{3}}}, f.(*testCollect).got)

			pass, _ := g.Filter(instPass)
			assert.Equal(t, "double", pass.FilterBase().Name())
			assert.Equal(t, VerbosityNone, pass.FilterBase().Verbosity())
		})
	}
}

func TestBuildDescriptionFailures(t *testing.T) {
	t.Run("unknown filter kind", func(t *testing.T) {
		desc := Description{Instances: []Instance{{ID: uuid.New(), FilterID: uuid.New(), Name: "ghost"}}}
		g, err := BuildDescription(testRegistry(), desc)
		assert.Nil(t, g)
		assert.ErrorIs(t, err, ErrGraphWiring)
		assert.ErrorIs(t, err, ErrUnknownFilter)
	})

	t.Run("bad parameter", func(t *testing.T) {
		desc := Description{Instances: []Instance{{ID: uuid.New(), FilterID: testPassID, Parameters: map[string]any{"Gain": "lots"}}}}
		g, err := BuildDescription(testRegistry(), desc)
		assert.Nil(t, g)
		assert.ErrorIs(t, err, ErrParameterConversion)
	})

	t.Run("type mismatch", func(t *testing.T) {
		src, lines := uuid.New(), uuid.New()
		desc := Description{
			Instances: []Instance{{ID: src, FilterID: testSourceID}, {ID: lines, FilterID: testLineID}},
			Pipes:     []PipeLink{{Sender: src, SenderConnector: connSourceOut, Receiver: lines, ReceiverConnector: connLineIn}},
		}
		g, err := BuildDescription(testRegistry(), desc)
		assert.Nil(t, g)
		assert.ErrorIs(t, err, ErrGraphWiring)
	})

	t.Run("explicit group", func(t *testing.T) {
		a, b, j := uuid.New(), uuid.New(), uuid.New()
		zero := 0
		desc := Description{
			Instances: []Instance{{ID: a, FilterID: testSourceID}, {ID: b, FilterID: testSourceID}, {ID: j, FilterID: testJoinID}},
			Pipes: []PipeLink{
				{Sender: a, SenderConnector: connSourceOut, Receiver: j, ReceiverConnector: connJoinA, Group: &zero},
				{Sender: b, SenderConnector: connSourceOut, Receiver: j, ReceiverConnector: connJoinB},
			},
		}
		_, err := BuildDescription(testRegistry(), desc)
		require.ErrorIs(t, err, ErrGraphWiring)
		assert.Contains(t, err.Error(), string(ReasonMissingHandler))
	})
}

func TestEncodeDescriptionRoundTrip(t *testing.T) {
	desc, err := DecodeDescription(strings.NewReader(chainJSON), FormatJSON)
	require.NoError(t, err)

	for _, format := range []Format{FormatJSON, FormatYAML} {
		var buf bytes.Buffer
		require.NoError(t, EncodeDescription(&buf, desc, format))
		back, err := DecodeDescription(&buf, format)
		require.NoError(t, err)
		assert.Equal(t, desc.Pipes, back.Pipes)
		assert.Equal(t, len(desc.Instances), len(back.Instances))
	}
}

func TestLoadDescription(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "chain.yaml")
	require.NoError(t, os.WriteFile(path, []byte(chainYAML), 0o644))

	desc, err := LoadDescription(path)
	require.NoError(t, err)
	assert.Equal(t, "chain", desc.Name)

	bad := filepath.Join(dir, "chain.txt")
	require.NoError(t, os.WriteFile(bad, []byte(chainYAML), 0o644))
	_, err = LoadDescription(bad)
	assert.Error(t, err)

	_, err = LoadDescription(filepath.Join(dir, "missing.json"))
	assert.Error(t, err)
}
