package lattice

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// OrdinalPrefix is the canonical attribute-name prefix that encodes a source
// column ordinal, as in "col3".
const OrdinalPrefix = "col"

// ErrUnresolvedColumnOrdinal is returned when an attribute name does not
// carry a source column ordinal.
var ErrUnresolvedColumnOrdinal = errors.New("lattice: unresolved column ordinal")

// Binding describes one input attribute of an invocation: its display name
// and the ordinal of the source column it was projected from.
type Binding struct {
	Name    string
	Ordinal int
}

// CanonicalName returns the canonical attribute name for a source ordinal.
func CanonicalName(ordinal int) string {
	return OrdinalPrefix + strconv.Itoa(ordinal)
}

// ParseOrdinal recovers the source column ordinal from a canonical name.
func ParseOrdinal(name string) (int, error) {
	digits, ok := strings.CutPrefix(name, OrdinalPrefix)
	if !ok || digits == "" {
		return 0, fmt.Errorf("%w: %q", ErrUnresolvedColumnOrdinal, name)
	}

	for _, r := range digits {
		if r < '0' || r > '9' {
			return 0, fmt.Errorf("%w: %q", ErrUnresolvedColumnOrdinal, name)
		}
	}

	ordinal, err := strconv.Atoi(digits)
	if err != nil {
		return 0, fmt.Errorf("%w: %q: %w", ErrUnresolvedColumnOrdinal, name, err)
	}

	return ordinal, nil
}

// BindingsFromNames builds bindings from canonical names, failing on the
// first name that does not encode an ordinal.
func BindingsFromNames(names []string) ([]Binding, error) {
	bindings := make([]Binding, len(names))

	for i, name := range names {
		ordinal, err := ParseOrdinal(name)
		if err != nil {
			return nil, fmt.Errorf("attribute %d: %w", i, err)
		}

		bindings[i] = Binding{Name: name, Ordinal: ordinal}
	}

	return bindings, nil
}

// PositionalBindings binds names to ordinals 0..n-1.
func PositionalBindings(names []string) []Binding {
	bindings := make([]Binding, len(names))

	for i, name := range names {
		bindings[i] = Binding{Name: name, Ordinal: i}
	}

	return bindings
}

// Names returns the display names of bindings.
func Names(bindings []Binding) []string {
	names := make([]string, len(bindings))

	for i, b := range bindings {
		names[i] = b.Name
	}

	return names
}
