// Package datatype holds the registry of wire-compatible value kinds that a
// pipe may carry, together with the Go representation of each kind.
//
// Identifiers are part of the wire contract: external graph descriptions
// reference them literally, so a registered identifier never changes meaning.
// New kinds may be added with Register.
package datatype

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

// DataType identifies a wire value kind.
type DataType uint16

// Built-in kinds. The numeric values are stable across releases.
const (
	Invalid                  DataType = 0
	Double                   DataType = 1
	Line                     DataType = 2
	PointList                DataType = 3
	Blob                     DataType = 4
	Sample                   DataType = 5
	HoughPPCandidate         DataType = 6
	SeamFinding              DataType = 7
	StartEndInfo             DataType = 8
	SurfaceInfo              DataType = 9
	ImageFrame               DataType = 10
	PoorPenetrationCandidate DataType = 11
)

var (
	// ErrConflict is returned when a registration would change the meaning of
	// an existing identifier or name.
	ErrConflict = errors.New("datatype: conflicting registration")
	// ErrUnknown is returned when a name or identifier has no registry entry.
	ErrUnknown = errors.New("datatype: unknown data type")
)

// Entry describes one registered kind.
type Entry struct {
	ID   DataType `json:"id"`
	Name string   `json:"name"`
}

var (
	mu     sync.RWMutex
	byID   = map[DataType]string{}
	byName = map[string]DataType{}
)

func init() {
	for _, e := range []Entry{
		{Double, "Double"},
		{Line, "Line"},
		{PointList, "PointList"},
		{Blob, "Blob"},
		{Sample, "Sample"},
		{HoughPPCandidate, "HoughPPCandidate"},
		{SeamFinding, "SeamFinding"},
		{StartEndInfo, "StartEndInfo"},
		{SurfaceInfo, "SurfaceInfo"},
		{ImageFrame, "ImageFrame"},
		{PoorPenetrationCandidate, "PoorPenetrationCandidate"},
	} {
		byID[e.ID] = e.Name
		byName[e.Name] = e.ID
	}
}

// Register adds a new kind. Registering an identical (id, name) pair again is
// a no-op; any registration that would rebind an existing id or name fails
// with ErrConflict.
func Register(id DataType, name string) error {
	if id == Invalid {
		return fmt.Errorf("%w: identifier 0 is reserved", ErrConflict)
	}
	if name == "" {
		return fmt.Errorf("%w: empty name for id %d", ErrConflict, id)
	}

	mu.Lock()
	defer mu.Unlock()

	if existing, ok := byID[id]; ok {
		if existing == name {
			return nil
		}
		return fmt.Errorf("%w: id %d already bound to %q", ErrConflict, id, existing)
	}
	if existing, ok := byName[name]; ok {
		return fmt.Errorf("%w: name %q already bound to id %d", ErrConflict, name, existing)
	}
	byID[id] = name
	byName[name] = id
	return nil
}

// Lookup returns the symbolic name of id.
func Lookup(id DataType) (string, bool) {
	mu.RLock()
	defer mu.RUnlock()
	name, ok := byID[id]
	return name, ok
}

// Parse resolves a symbolic name to its identifier.
func Parse(name string) (DataType, error) {
	mu.RLock()
	defer mu.RUnlock()
	if id, ok := byName[name]; ok {
		return id, nil
	}
	return Invalid, fmt.Errorf("%w: %q", ErrUnknown, name)
}

// All returns every registered kind ordered by identifier.
func All() []Entry {
	mu.RLock()
	entries := make([]Entry, 0, len(byID))
	for id, name := range byID {
		entries = append(entries, Entry{ID: id, Name: name})
	}
	mu.RUnlock()

	sort.Slice(entries, func(i, j int) bool { return entries[i].ID < entries[j].ID })
	return entries
}

// Registered reports whether id has a registry entry.
func (d DataType) Registered() bool {
	_, ok := Lookup(d)
	return ok
}

func (d DataType) String() string {
	if name, ok := Lookup(d); ok {
		return name
	}
	return fmt.Sprintf("DataType(%d)", uint16(d))
}

// MarshalText renders the symbolic name so descriptions stay readable.
func (d DataType) MarshalText() ([]byte, error) {
	name, ok := Lookup(d)
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnknown, uint16(d))
	}
	return []byte(name), nil
}

// UnmarshalText accepts a symbolic name.
func (d *DataType) UnmarshalText(b []byte) error {
	id, err := Parse(string(b))
	if err != nil {
		return err
	}
	*d = id
	return nil
}
