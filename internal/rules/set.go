package rules

import (
	"fmt"
)

// Set is an immutable, ordered snapshot of field definitions. Its order is
// the output column order.
type Set struct {
	defs []Definition
}

// NewSet builds a snapshot from defs. Each entry needs a name and a type and
// names must be unique; anything else is left to fail at extraction time.
func NewSet(defs []Definition) (Set, error) {
	seen := make(map[string]struct{}, len(defs))
	out := make([]Definition, 0, len(defs))

	for i, def := range defs {
		if def.Name == "" {
			return Set{}, &RuleError{Reason: fmt.Sprintf("entry %d: missing name", i)}
		}
		if def.Type == "" {
			return Set{}, &RuleError{Field: def.Name, Reason: "missing type"}
		}
		if _, dup := seen[def.Name]; dup {
			return Set{}, &RuleError{Field: def.Name, Reason: "duplicate name"}
		}
		seen[def.Name] = struct{}{}
		out = append(out, cloneDefinition(def))
	}

	return Set{defs: out}, nil
}

// Len returns the number of definitions
func (s Set) Len() int {
	return len(s.defs)
}

// Definitions returns a copy of the definitions in order
func (s Set) Definitions() []Definition {
	out := make([]Definition, len(s.defs))
	for i, def := range s.defs {
		out[i] = cloneDefinition(def)
	}
	return out
}

// Names returns the field names in column order
func (s Set) Names() []string {
	names := make([]string, len(s.defs))
	for i, def := range s.defs {
		names[i] = def.Name
	}
	return names
}

// Lookup returns the definition called name
func (s Set) Lookup(name string) (Definition, bool) {
	for _, def := range s.defs {
		if def.Name == name {
			return cloneDefinition(def), true
		}
	}
	return Definition{}, false
}

// Fields converts every definition into its typed variant, stopping at the
// first malformed one.
func (s Set) Fields() ([]Field, error) {
	fields := make([]Field, 0, len(s.defs))
	for _, def := range s.defs {
		f, err := def.Field()
		if err != nil {
			return nil, err
		}
		fields = append(fields, f)
	}
	return fields, nil
}

// With returns a new set with def appended
func (s Set) With(def Definition) (Set, error) {
	defs := append(s.Definitions(), def)
	return NewSet(defs)
}

// Without returns a new set lacking the definition called name, and whether
// it was present.
func (s Set) Without(name string) (Set, bool) {
	out := make([]Definition, 0, len(s.defs))
	found := false
	for _, def := range s.defs {
		if def.Name == name {
			found = true
			continue
		}
		out = append(out, cloneDefinition(def))
	}
	return Set{defs: out}, found
}

func cloneDefinition(def Definition) Definition {
	if def.CheckedValue != nil {
		v := *def.CheckedValue
		def.CheckedValue = &v
	}
	if def.UncheckedValue != nil {
		v := *def.UncheckedValue
		def.UncheckedValue = &v
	}
	return def
}
