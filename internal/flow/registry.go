package flow

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"
)

// Factory creates a fresh, unconfigured filter instance.
type Factory func() Filter

// Registration describes one filter kind.
type Registration struct {
	FilterID    uuid.UUID `json:"filter_id"`
	VariantID   uuid.UUID `json:"variant_id"`
	Name        string    `json:"name"`
	Component   string    `json:"component"`
	Description string    `json:"description"`
	New         Factory   `json:"-"`
}

// Registry maps filter kind identifiers to factories. It is populated
// explicitly at process start.
type Registry struct {
	mu        sync.RWMutex
	factories map[uuid.UUID]Registration
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[uuid.UUID]Registration)}
}

// Register adds a filter kind. A kind may only be registered once.
func (r *Registry) Register(reg Registration) error {
	if reg.FilterID == uuid.Nil {
		return errors.New("register: filter id is required")
	}
	if reg.New == nil {
		return fmt.Errorf("register %s: factory is required", reg.Name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.factories[reg.FilterID]; ok {
		return fmt.Errorf("register %s: %w: %s already registered as %s", reg.Name, ErrDuplicateRegistration, reg.FilterID, existing.Name)
	}
	r.factories[reg.FilterID] = reg
	return nil
}

// Lookup returns the registration for filterID.
func (r *Registry) Lookup(filterID uuid.UUID) (Registration, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	reg, ok := r.factories[filterID]
	return reg, ok
}

// New creates a filter of kind filterID.
func (r *Registry) New(filterID uuid.UUID) (Filter, error) {
	reg, ok := r.Lookup(filterID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownFilter, filterID)
	}
	f := reg.New()
	if got := f.FilterBase().FilterID(); got != filterID {
		return nil, fmt.Errorf("factory for %s produced filter kind %s", filterID, got)
	}
	return f, nil
}

// List returns all registrations ordered by component and name.
func (r *Registry) List() []Registration {
	r.mu.RLock()
	out := make([]Registration, 0, len(r.factories))
	for _, reg := range r.factories {
		out = append(out, reg)
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].Component != out[j].Component {
			return out[i].Component < out[j].Component
		}
		return out[i].Name < out[j].Name
	})
	return out
}
