package flow

import (
	"github.com/google/uuid"

	"github.com/banshee-data/fliplane/internal/datatype"
)

// ConnectionMode states whether an input must be wired.
type ConnectionMode int

const (
	Mandatory ConnectionMode = iota
	Optional
)

func (m ConnectionMode) String() string {
	if m == Optional {
		return "optional"
	}
	return "mandatory"
}

// Connector is the declaration of a typed port on a filter. Group is the
// default input group used when the wiring does not name one; group 0 means
// ungrouped (the filter's Proceed handler fires on every arrival).
type Connector struct {
	ID    uuid.UUID         `json:"id"`
	Type  datatype.DataType `json:"type"`
	Name  string            `json:"name"`
	Tag   string            `json:"tag,omitempty"`
	Group int               `json:"group"`
	Mode  ConnectionMode    `json:"mode"`
}

// OutPort is the type-erased view of a filter output (a Pipe).
type OutPort interface {
	Connector() Connector
	Owner() *Base
	Subscribers() int

	accepts(in InPort) error
	subscribe(in InPort)
	reset()
}

// InPort is the type-erased view of a filter input.
type InPort interface {
	Connector() Connector
	Owner() *Base
	Wired() bool
	Group() int

	bind(src OutPort, group, slot int)
	unbind()
	release(counter int)
	setSlot(slot int)
}
