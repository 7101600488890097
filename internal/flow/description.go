package flow

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-json-experiment/json"
	"github.com/go-json-experiment/json/jsontext"
	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

// Description is the data form of a graph: filter instances resolved through
// a Registry and pipes resolved by connector identifier.
type Description struct {
	ID        uuid.UUID  `json:"id,omitzero" yaml:"id,omitempty"`
	Name      string     `json:"name,omitempty" yaml:"name,omitempty"`
	Instances []Instance `json:"instances" yaml:"instances"`
	Pipes     []PipeLink `json:"pipes" yaml:"pipes"`
}

// Instance places one filter kind in a graph.
type Instance struct {
	ID         uuid.UUID      `json:"id" yaml:"id"`
	FilterID   uuid.UUID      `json:"filter_id" yaml:"filter_id"`
	Name       string         `json:"name,omitempty" yaml:"name,omitempty"`
	Parameters map[string]any `json:"parameters,omitempty" yaml:"parameters,omitempty"`
}

// PipeLink connects a sender output connector to a receiver input connector.
// A nil Group uses the receiver connector's declared group.
type PipeLink struct {
	Sender            uuid.UUID `json:"sender" yaml:"sender"`
	SenderConnector   uuid.UUID `json:"sender_connector" yaml:"sender_connector"`
	Receiver          uuid.UUID `json:"receiver" yaml:"receiver"`
	ReceiverConnector uuid.UUID `json:"receiver_connector" yaml:"receiver_connector"`
	Group             *int      `json:"group,omitempty" yaml:"group,omitempty"`
}

// Instance returns the instance with the given identifier.
func (d *Description) Instance(id uuid.UUID) (Instance, bool) {
	for _, inst := range d.Instances {
		if inst.ID == id {
			return inst, true
		}
	}
	return Instance{}, false
}

// Format is a description encoding.
type Format int

const (
	FormatJSON Format = iota
	FormatYAML
)

// FormatForPath picks the encoding from a file extension.
func FormatForPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	}
	return FormatJSON, fmt.Errorf("graph description must be .json, .yaml or .yml, got %q", filepath.Ext(path))
}

// DecodeDescription reads a description. JSON input with unknown members is
// rejected.
func DecodeDescription(r io.Reader, format Format) (Description, error) {
	var desc Description
	data, err := io.ReadAll(r)
	if err != nil {
		return desc, fmt.Errorf("read graph description: %w", err)
	}
	switch format {
	case FormatYAML:
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&desc); err != nil {
			return desc, fmt.Errorf("parse graph description YAML: %w", err)
		}
	default:
		if err := json.Unmarshal(data, &desc, json.RejectUnknownMembers(true)); err != nil {
			return desc, fmt.Errorf("parse graph description JSON: %w", err)
		}
	}
	return desc, nil
}

// EncodeDescription writes a description.
func EncodeDescription(w io.Writer, desc Description, format Format) error {
	if format == FormatYAML {
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(desc); err != nil {
			return fmt.Errorf("encode graph description YAML: %w", err)
		}
		return enc.Close()
	}
	if err := json.MarshalWrite(w, desc, jsontext.WithIndent("  ")); err != nil {
		return fmt.Errorf("encode graph description JSON: %w", err)
	}
	return nil
}

// LoadDescription reads a description file. The file must be under 1MB.
func LoadDescription(path string) (Description, error) {
	cleanPath := filepath.Clean(path)
	format, err := FormatForPath(cleanPath)
	if err != nil {
		return Description{}, err
	}
	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return Description{}, fmt.Errorf("failed to stat graph description: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024 // 1MB
	if fileInfo.Size() > maxFileSize {
		return Description{}, fmt.Errorf("graph description too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}
	f, err := os.Open(cleanPath)
	if err != nil {
		return Description{}, fmt.Errorf("failed to open graph description: %w", err)
	}
	defer f.Close()
	return DecodeDescription(f, format)
}

// BuildDescription instantiates, configures and wires every instance of desc.
// Any failure disposes the instances created so far and returns a nil graph.
func BuildDescription(reg *Registry, desc Description, opts ...Option) (*Graph, error) {
	b := NewBuilder(append([]Option{WithID(desc.ID)}, opts...)...)
	var created []Filter
	fail := func(err error) (*Graph, error) {
		for _, f := range created {
			f.FilterBase().dispose()
		}
		opsf("graph %q: %v", desc.Name, err)
		return nil, err
	}

	for _, inst := range desc.Instances {
		f, err := reg.New(inst.FilterID)
		if err != nil {
			return fail(&WiringError{Reason: ReasonUnknownFilter, Instance: inst.Name, Err: err})
		}
		created = append(created, f)
		base := f.FilterBase()
		if inst.Name != "" {
			base.SetName(inst.Name)
		}
		if len(inst.Parameters) > 0 {
			if err := base.Configure(inst.Parameters); err != nil {
				return fail(err)
			}
		}
		id := inst.ID
		if id == uuid.Nil {
			id = uuid.New()
		}
		b.AddAs(id, f)
	}
	for _, p := range desc.Pipes {
		if p.Group != nil {
			b.ConnectGroup(p.Sender, p.SenderConnector, p.Receiver, p.ReceiverConnector, *p.Group)
			continue
		}
		b.Connect(p.Sender, p.SenderConnector, p.Receiver, p.ReceiverConnector)
	}
	return b.Build()
}
