// Package formulas holds the library of published stem volume regression
// formulas, indexed by their stable id.
//
// Every formula is a pure function of diameter and/or height. The units it
// expects and the unit it returns are documented on the formula itself using a
// fixed convention that internal/registry parses once at startup:
//
//	Species: Picea abies (Norway spruce)
//	Country: Austria
//
//	Args:
//	    D: Diameter at breast height in dm.
//	    H: Tree height in dm.
//
//	Returns:
//	    V: Stem volume in dm3.
package formulas

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
)

// Count is the number of formula ids in the published collection. Ids run
// from 1 to Count inclusive whether or not an implementation exists.
const Count = 230

// NamePrefix is the prefix of every formula name.
const NamePrefix = "stem_volume_formula_"

var (
	// ErrOutOfRange is returned by a formula whose input lies outside the
	// domain it was fitted on or defined for.
	ErrOutOfRange = errors.New("input out of range")
	// ErrArity is returned when a formula is called with the wrong number
	// of arguments.
	ErrArity = errors.New("wrong number of arguments")
)

// Func evaluates a formula. args are positional in the order documented in
// the formula's Args block, already converted into the documented units.
type Func func(args []float64) (float64, error)

// Formula is one entry of the library.
type Formula struct {
	ID   int
	Doc  string
	Eval Func
}

// Name returns the canonical name of the formula with the given id.
func Name(id int) string {
	return NamePrefix + strconv.Itoa(id)
}

// Library is an immutable id-indexed collection of formulas.
type Library struct {
	count    int
	formulas map[int]Formula
}

// NewLibrary builds a library covering ids 1..count from the given formulas.
// Ids outside that range or given twice are rejected.
func NewLibrary(count int, fs ...Formula) (*Library, error) {
	lib := &Library{count: count, formulas: make(map[int]Formula, len(fs))}
	for _, f := range fs {
		if f.ID < 1 || f.ID > count {
			return nil, fmt.Errorf("formula id %d outside 1..%d", f.ID, count)
		}
		if _, dup := lib.formulas[f.ID]; dup {
			return nil, fmt.Errorf("formula id %d registered twice", f.ID)
		}
		if f.Eval == nil {
			return nil, fmt.Errorf("formula id %d has no implementation", f.ID)
		}
		lib.formulas[f.ID] = f
	}
	return lib, nil
}

// Count returns the number of ids the library covers.
func (l *Library) Count() int { return l.count }

// Lookup returns the formula with the given id. ok is false for ids with no
// published implementation.
func (l *Library) Lookup(id int) (Formula, bool) {
	f, ok := l.formulas[id]
	return f, ok
}

// IDs returns every id covered by the library in ascending order, including
// ids without an implementation.
func (l *Library) IDs() []int {
	ids := make([]int, l.count)
	for i := range ids {
		ids[i] = i + 1
	}
	return ids
}

// Implemented returns the ids that have an implementation, ascending.
func (l *Library) Implemented() []int {
	ids := make([]int, 0, len(l.formulas))
	for id := range l.formulas {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

var defaultLibrary *Library

func init() {
	lib, err := NewLibrary(Count, published...)
	if err != nil {
		panic(err)
	}
	defaultLibrary = lib
}

// Default returns the built-in library of published formulas.
func Default() *Library { return defaultLibrary }

// one adapts a diameter-only function to Func.
func one(f func(D float64) (float64, error)) Func {
	return func(args []float64) (float64, error) {
		if len(args) != 1 {
			return 0, fmt.Errorf("%w: got %d, want 1", ErrArity, len(args))
		}
		return f(args[0])
	}
}

// two adapts a diameter and height function to Func.
func two(f func(D, H float64) (float64, error)) Func {
	return func(args []float64) (float64, error) {
		if len(args) != 2 {
			return 0, fmt.Errorf("%w: got %d, want 2", ErrArity, len(args))
		}
		return f(args[0], args[1])
	}
}

// positive rejects non-positive inputs to formulas that take their logarithm.
func positive(name string, v float64) error {
	if v <= 0 {
		return fmt.Errorf("%w: %s=%g must be positive", ErrOutOfRange, name, v)
	}
	return nil
}
