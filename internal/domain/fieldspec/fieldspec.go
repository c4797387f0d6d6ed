package fieldspec

import (
	"fmt"
	"strings"
)

// ValueType is the encoding of a field inside the index.
type ValueType string

// Value type constants.
const (
	Text         ValueType = "text"
	String       ValueType = "string"
	Stored       ValueType = "stored"
	StoredSorted ValueType = "stored_sorted"
	Numeric      ValueType = "numeric"
	URI          ValueType = "uri"
	NGram        ValueType = "ngram"
)

// IDField is the identity field written on every document.
const IDField = "id"

var reservedNames = map[string]bool{
	"score": true,
}

// ParseValueType parses a type name case-insensitively. Empty input yields Text.
func ParseValueType(s string) (ValueType, error) {
	if s == "" {
		return Text, nil
	}
	vt := ValueType(strings.ToLower(strings.TrimSpace(s)))
	if !vt.IsValid() {
		return "", fmt.Errorf("unknown value type %q", s)
	}
	return vt, nil
}

// IsValid reports whether vt is a known value type.
func (vt ValueType) IsValid() bool {
	switch vt {
	case Text, String, Stored, StoredSorted, Numeric, URI, NGram:
		return true
	}
	return false
}

// Searchable reports whether values of this type are indexed for matching.
func (vt ValueType) Searchable() bool {
	return vt != Stored
}

// Options carries the optional attributes of a FieldSpec.
type Options struct {
	Weight            float64
	Tokenize          bool
	Exact             bool
	Required          bool
	AllowPartialMatch bool
	Highlight         bool
	QueryByDefault    bool
	Aliases           []string
}

// FieldSpec is an immutable field definition shared by the indexer and the searcher.
type FieldSpec struct {
	name              string
	valueType         ValueType
	weight            float64
	tokenize          bool
	exact             bool
	required          bool
	allowPartialMatch bool
	highlight         bool
	queryByDefault    bool
	aliases           []string
}

// New validates and creates a FieldSpec.
func New(name string, vt ValueType, opts Options) (FieldSpec, error) {
	if name == "" {
		return FieldSpec{}, fmt.Errorf("field name is required")
	}
	if reservedNames[name] {
		return FieldSpec{}, fmt.Errorf("field name %q is reserved", name)
	}
	if vt == "" {
		vt = Text
	}
	if !vt.IsValid() {
		return FieldSpec{}, fmt.Errorf("invalid value type %q for %q", vt, name)
	}
	if opts.Weight < 0 {
		return FieldSpec{}, fmt.Errorf("weight of %q must not be negative", name)
	}
	for _, a := range opts.Aliases {
		if a == "" {
			return FieldSpec{}, fmt.Errorf("empty alias for %q", name)
		}
	}
	return Reconstruct(name, vt, opts), nil
}

// Reconstruct creates a FieldSpec without validation.
func Reconstruct(name string, vt ValueType, opts Options) FieldSpec {
	var aliases []string
	if len(opts.Aliases) > 0 {
		aliases = make([]string, len(opts.Aliases))
		copy(aliases, opts.Aliases)
	}
	return FieldSpec{
		name:              name,
		valueType:         vt,
		weight:            opts.Weight,
		tokenize:          opts.Tokenize,
		exact:             opts.Exact,
		required:          opts.Required,
		allowPartialMatch: opts.AllowPartialMatch,
		highlight:         opts.Highlight,
		queryByDefault:    opts.QueryByDefault,
		aliases:           aliases,
	}
}

func (f FieldSpec) Name() string            { return f.name }
func (f FieldSpec) ValueType() ValueType    { return f.valueType }
func (f FieldSpec) Weight() float64         { return f.weight }
func (f FieldSpec) Tokenize() bool          { return f.tokenize }
func (f FieldSpec) IsExact() bool           { return f.exact }
func (f FieldSpec) IsRequired() bool        { return f.required }
func (f FieldSpec) AllowPartialMatch() bool { return f.allowPartialMatch }
func (f FieldSpec) Highlight() bool         { return f.highlight }
func (f FieldSpec) QueryByDefault() bool    { return f.queryByDefault }

// Aliases returns a copy of the alias list.
func (f FieldSpec) Aliases() []string {
	if len(f.aliases) == 0 {
		return nil
	}
	out := make([]string, len(f.aliases))
	copy(out, f.aliases)
	return out
}

// Options returns the attributes of f, suitable for Reconstruct.
func (f FieldSpec) Options() Options {
	return Options{
		Weight:            f.weight,
		Tokenize:          f.tokenize,
		Exact:             f.exact,
		Required:          f.required,
		AllowPartialMatch: f.allowPartialMatch,
		Highlight:         f.highlight,
		QueryByDefault:    f.queryByDefault,
		Aliases:           f.Aliases(),
	}
}
