// Package registry derives and caches the parameter and unit metadata of each
// formula in a formulas.Library.
package registry

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/banshee-data/stemvolume/internal/formulas"
	"github.com/banshee-data/stemvolume/internal/units"
)

var (
	// ErrUnknownFormula is returned for ids outside the library's range.
	ErrUnknownFormula = errors.New("unknown formula id")
	// ErrNotImplemented is returned for ids without a published implementation.
	ErrNotImplemented = errors.New("formula not implemented")
	// ErrMalformedDoc is returned when a formula's documentation does not
	// follow the authoring convention.
	ErrMalformedDoc = errors.New("malformed formula documentation")
)

// Parameter names.
const (
	Diameter = "D"
	Height   = "H"
)

// Descriptor is the static metadata of one formula.
type Descriptor struct {
	ID              int
	Name            string
	Parameters      []string
	ParameterUnits  []string
	OutputUnit      string
	ScientificNames []string
	Country         string
}

// Unit returns the unit declared for the named parameter and whether the
// formula takes that parameter at all.
func (d Descriptor) Unit(param string) (string, bool) {
	for i, p := range d.Parameters {
		if p == param {
			return d.ParameterUnits[i], true
		}
	}
	return "", false
}

type entry struct {
	desc Descriptor
	err  error
}

// Registry describes formulas on first request and caches the outcome,
// including failures, for the life of the process.
type Registry struct {
	lib *formulas.Library

	mu    sync.RWMutex
	cache map[int]entry
}

// New creates a registry over the given library.
func New(lib *formulas.Library) *Registry {
	return &Registry{lib: lib, cache: make(map[int]entry)}
}

// Library returns the library the registry describes.
func (r *Registry) Library() *formulas.Library { return r.lib }

// Describe returns the descriptor for the formula with the given id.
// Errors are configuration errors: the formula cannot be evaluated.
func (r *Registry) Describe(id int) (Descriptor, error) {
	r.mu.RLock()
	e, ok := r.cache[id]
	r.mu.RUnlock()
	if ok {
		return e.desc, e.err
	}

	desc, err := r.describe(id)

	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.cache[id]; ok {
		return e.desc, e.err
	}
	r.cache[id] = entry{desc: desc, err: err}
	return desc, err
}

func (r *Registry) describe(id int) (Descriptor, error) {
	if id < 1 || id > r.lib.Count() {
		return Descriptor{}, fmt.Errorf("%w: %d", ErrUnknownFormula, id)
	}
	f, ok := r.lib.Lookup(id)
	if !ok {
		return Descriptor{}, fmt.Errorf("%s: %w", formulas.Name(id), ErrNotImplemented)
	}
	desc, err := ParseDoc(f.Doc)
	if err != nil {
		return Descriptor{}, fmt.Errorf("%s: %w", formulas.Name(id), err)
	}
	desc.ID = id
	desc.Name = formulas.Name(id)
	return desc, nil
}

// Warm describes every id of the library and returns the configuration
// errors keyed by formula id. Call it before sharing the registry between
// goroutines so that later calls only read the cache.
func (r *Registry) Warm() map[int]error {
	excluded := make(map[int]error)
	for _, id := range r.lib.IDs() {
		if _, err := r.Describe(id); err != nil {
			excluded[id] = err
		}
	}
	return excluded
}

// Available returns the descriptors of every formula that described
// successfully, ordered by id.
func (r *Registry) Available() []Descriptor {
	var out []Descriptor
	for _, id := range r.lib.IDs() {
		if d, err := r.Describe(id); err == nil {
			out = append(out, d)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Validate checks the structural invariants of a descriptor.
func Validate(d Descriptor) error {
	if n := len(d.Parameters); n < 1 || n > 2 {
		return fmt.Errorf("%w: %d parameters, want 1 or 2", ErrMalformedDoc, n)
	}
	if len(d.Parameters) != len(d.ParameterUnits) {
		return fmt.Errorf("%w: %d parameters but %d units", ErrMalformedDoc, len(d.Parameters), len(d.ParameterUnits))
	}
	seen := make(map[string]bool, 2)
	for i, p := range d.Parameters {
		if seen[p] {
			return fmt.Errorf("%w: parameter %s listed twice", ErrMalformedDoc, p)
		}
		seen[p] = true
		u := d.ParameterUnits[i]
		switch p {
		case Diameter:
			if !units.IsValidLength(u) {
				return fmt.Errorf("parameter D: %w: %q (valid: %s)", units.ErrUnknownUnit, u, units.GetValidLengthUnitsString())
			}
		case Height:
			if !units.IsValidHeight(u) {
				return fmt.Errorf("parameter H: %w: %q (valid: dm, m)", units.ErrUnknownUnit, u)
			}
		default:
			return fmt.Errorf("%w: unknown parameter %q", ErrMalformedDoc, p)
		}
	}
	if !units.IsValidVolume(d.OutputUnit) {
		return fmt.Errorf("output: %w: %q (valid: %s)", units.ErrUnknownUnit, d.OutputUnit, units.GetValidVolumeUnitsString())
	}
	if len(d.ScientificNames) == 0 {
		return fmt.Errorf("%w: no Species line", ErrMalformedDoc)
	}
	return nil
}
