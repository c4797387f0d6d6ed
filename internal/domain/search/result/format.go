package result

import "strings"

// Format is the response serialization requested by a search.
type Format string

// Output formats.
const (
	FormatXML      Format = "XML"
	FormatJSON     Format = "JSON"
	FormatJSONFull Format = "JSON_FULL"
	FormatJSONRaw  Format = "JSON_RAW"
)

// ParseFormat parses a format name case-insensitively. Unknown names yield XML.
func ParseFormat(s string) Format {
	switch f := Format(strings.ToUpper(strings.TrimSpace(s))); f {
	case FormatJSON, FormatJSONFull, FormatJSONRaw:
		return f
	}
	return FormatXML
}

// EnvelopeKey returns the top-level key wrapping the record list.
func (f Format) EnvelopeKey() string {
	if f == FormatXML {
		return "result"
	}
	return "docs"
}

// IsJSON reports whether the format serializes as JSON.
func (f Format) IsJSON() bool { return f != FormatXML }
