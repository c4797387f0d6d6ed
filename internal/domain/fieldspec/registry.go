package fieldspec

import (
	"fmt"

	"github.com/dbpedia/lookup/internal/domain"
)

// Registry is the per-deployment, read-only table of field definitions.
type Registry struct {
	fields []FieldSpec
	byName map[string]int
}

// NewRegistry validates field uniqueness and builds a registry in declaration order.
func NewRegistry(fields []FieldSpec) (*Registry, error) {
	r := &Registry{
		fields: make([]FieldSpec, 0, len(fields)),
		byName: make(map[string]int, len(fields)),
	}
	for _, f := range fields {
		if f.name == "" {
			return nil, fmt.Errorf("%w: unnamed field", domain.ErrInvalidSchema)
		}
		if _, dup := r.byName[f.name]; dup {
			return nil, fmt.Errorf("%w: duplicate field %q", domain.ErrInvalidSchema, f.name)
		}
		r.byName[f.name] = len(r.fields)
		r.fields = append(r.fields, f)
	}
	return r, nil
}

// Fields returns the field definitions in declaration order.
func (r *Registry) Fields() []FieldSpec {
	out := make([]FieldSpec, len(r.fields))
	copy(out, r.fields)
	return out
}

// Lookup returns the definition of a field by name.
func (r *Registry) Lookup(name string) (FieldSpec, bool) {
	i, ok := r.byName[name]
	if !ok {
		return FieldSpec{}, false
	}
	return r.fields[i], true
}

// TypeOf resolves the value type of a field: the explicit type wins,
// then the registered definition, then Text.
func (r *Registry) TypeOf(name string, explicit ValueType) ValueType {
	if explicit != "" {
		return explicit
	}
	if r != nil {
		if f, ok := r.Lookup(name); ok {
			return f.valueType
		}
	}
	return Text
}

// Types maps every field name to its value type.
func (r *Registry) Types() map[string]ValueType {
	out := make(map[string]ValueType, len(r.fields))
	for _, f := range r.fields {
		out[f.name] = f.valueType
	}
	return out
}

// Len returns the number of registered fields.
func (r *Registry) Len() int { return len(r.fields) }
