package retry

import (
	"errors"
	"fmt"
)

// Marker disables retries for the method or type it is attached to, and for
// everything that inherits from that type. The reason is informational.
type Marker struct {
	Reason string
}

// ExclusionPolicy reports whether a test identity must never be retried
type ExclusionPolicy interface {
	Excluded(id TestIdentity) bool
}

// ExclusionFunc adapts a plain function to ExclusionPolicy
type ExclusionFunc func(id TestIdentity) bool

func (f ExclusionFunc) Excluded(id TestIdentity) bool { return f(id) }

type typeDecl struct {
	name   string
	parent string
	marker *Marker
}

type methodDecl struct {
	id     TestIdentity
	marker *Marker
}

// Catalog collects the declared test type hierarchy and the markers attached
// to it. Build turns it into an immutable lookup table.
type Catalog struct {
	types   []typeDecl
	methods []methodDecl
}

// NewCatalog creates an empty catalog
func NewCatalog() *Catalog {
	return &Catalog{}
}

// Type declares a test type. An empty parent makes it a root.
func (c *Catalog) Type(name, parent string, marker *Marker) *Catalog {
	c.types = append(c.types, typeDecl{name: name, parent: parent, marker: marker})
	return c
}

// Method declares a test method on an already declared type
func (c *Catalog) Method(typeName, method string, marker *Marker) *Catalog {
	c.methods = append(c.methods, methodDecl{
		id:     TestIdentity{Type: typeName, Method: method},
		marker: marker,
	})
	return c
}

// Build validates the declarations and resolves, for every type, the nearest
// marker along its ancestry
func (c *Catalog) Build() (*Exclusions, error) {
	decls := make(map[string]typeDecl, len(c.types))
	var problems []error

	for _, t := range c.types {
		if t.name == "" {
			problems = append(problems, errors.New("type declared without a name"))
			continue
		}
		if _, dup := decls[t.name]; dup {
			problems = append(problems, fmt.Errorf("type %q declared twice", t.name))
			continue
		}
		decls[t.name] = t
	}
	for _, t := range decls {
		if t.parent != "" {
			if _, ok := decls[t.parent]; !ok {
				problems = append(problems, fmt.Errorf("type %q extends unknown type %q", t.name, t.parent))
			}
		}
	}
	if len(problems) > 0 {
		return nil, errors.Join(problems...)
	}

	ex := &Exclusions{
		types:   make(map[string]*Marker, len(decls)),
		parents: make(map[string]string, len(decls)),
		methods: make(map[TestIdentity]*Marker),
	}
	for name, t := range decls {
		ex.parents[name] = t.parent
	}

	const (
		visiting = 1
		done     = 2
	)
	state := make(map[string]int, len(decls))

	var resolve func(name string) error
	resolve = func(name string) error {
		switch state[name] {
		case done:
			return nil
		case visiting:
			return fmt.Errorf("inheritance cycle through type %q", name)
		}
		state[name] = visiting

		t := decls[name]
		marker := t.marker
		if t.parent != "" {
			if err := resolve(t.parent); err != nil {
				return err
			}
			if marker == nil {
				marker = ex.types[t.parent]
			}
		}
		ex.types[name] = marker
		state[name] = done
		return nil
	}

	for _, t := range c.types {
		if err := resolve(t.name); err != nil {
			return nil, err
		}
	}

	for _, m := range c.methods {
		if _, ok := decls[m.id.Type]; !ok {
			problems = append(problems, fmt.Errorf("method %s declared on unknown type", m.id))
			continue
		}
		if _, dup := ex.methods[m.id]; dup {
			problems = append(problems, fmt.Errorf("method %s declared twice", m.id))
			continue
		}
		ex.methods[m.id] = m.marker
	}
	if len(problems) > 0 {
		return nil, errors.Join(problems...)
	}

	return ex, nil
}

// Exclusions is the resolved, read-only exclusion table. A nil *Exclusions
// excludes nothing.
type Exclusions struct {
	types   map[string]*Marker
	parents map[string]string
	methods map[TestIdentity]*Marker
}

// Excluded reports whether id carries a marker on the method or on any
// ancestor of its declaring type. A method inherited from an ancestor keeps
// the ancestor's method marker unless the type redeclares it. Unknown
// identities are not excluded.
func (e *Exclusions) Excluded(id TestIdentity) bool {
	_, ok := e.marker(id)
	return ok
}

// Reason returns the reason of the marker that excludes id
func (e *Exclusions) Reason(id TestIdentity) (string, bool) {
	m, ok := e.marker(id)
	if !ok {
		return "", false
	}
	return m.Reason, true
}

func (e *Exclusions) marker(id TestIdentity) (*Marker, bool) {
	if e == nil {
		return nil, false
	}
	for typ := id.Type; typ != ""; typ = e.parents[typ] {
		m, declared := e.methods[TestIdentity{Type: typ, Method: id.Method}]
		if m != nil {
			return m, true
		}
		if declared {
			break
		}
	}
	if m := e.types[id.Type]; m != nil {
		return m, true
	}
	return nil, false
}
