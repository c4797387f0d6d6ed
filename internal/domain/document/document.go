package document

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/dbpedia/lookup/internal/domain/fieldspec"
)

// Document is the unit of upsert: an identity plus an ordered multimap of
// field values. It is owned by a single writer during an index run.
type Document struct {
	id     string
	order  []string
	values map[string][]string
	types  map[string]fieldspec.ValueType
}

// New creates an empty document carrying only its identity field.
func New(id string) *Document {
	return &Document{
		id:     id,
		values: make(map[string][]string),
		types:  make(map[string]fieldspec.ValueType),
	}
}

// ID returns the document identity.
func (d *Document) ID() string { return d.id }

// Append adds value to field unless an identical value is already present.
// Numeric fields are single-valued: a new value replaces the old one.
// Returns false when the document did not change.
func (d *Document) Append(field string, vt fieldspec.ValueType, value string) bool {
	if field == fieldspec.IDField {
		return false
	}
	if d.Has(field, value) {
		return false
	}
	if _, seen := d.values[field]; !seen {
		d.order = append(d.order, field)
	}
	d.types[field] = vt
	if vt == fieldspec.Numeric {
		d.values[field] = []string{value}
		return true
	}
	d.values[field] = append(d.values[field], value)
	return true
}

// Has reports whether field already holds value.
func (d *Document) Has(field, value string) bool {
	for _, v := range d.values[field] {
		if v == value {
			return true
		}
	}
	return false
}

// Values returns a copy of the values of field.
func (d *Document) Values(field string) []string {
	vs := d.values[field]
	if len(vs) == 0 {
		return nil
	}
	out := make([]string, len(vs))
	copy(out, vs)
	return out
}

// Type returns the value type recorded for field, Text if unknown.
func (d *Document) Type(field string) fieldspec.ValueType {
	if vt, ok := d.types[field]; ok {
		return vt
	}
	return fieldspec.Text
}

// Fields returns field names in first-write order, excluding the identity field.
func (d *Document) Fields() []string {
	out := make([]string, len(d.order))
	copy(out, d.order)
	return out
}

// Len returns the number of stored values across all fields.
func (d *Document) Len() int {
	n := 0
	for _, vs := range d.values {
		n += len(vs)
	}
	return n
}

// Clone returns a deep copy.
func (d *Document) Clone() *Document {
	c := New(d.id)
	c.order = append([]string(nil), d.order...)
	for k, vs := range d.values {
		c.values[k] = append([]string(nil), vs...)
	}
	for k, vt := range d.types {
		c.types[k] = vt
	}
	return c
}

// ParseNumeric parses a numeric field literal into its canonical decimal form.
func ParseNumeric(raw string) (int64, error) {
	n, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("numeric value %q: %w", raw, err)
	}
	return n, nil
}
