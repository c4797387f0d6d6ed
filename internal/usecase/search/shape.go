package search

import (
	"html"
	"strings"

	"github.com/dbpedia/lookup/internal/domain/fieldspec"
	"github.com/dbpedia/lookup/internal/domain/search/result"
)

var (
	markToBold = strings.NewReplacer("<mark>", "<b>", "</mark>", "</b>")
	stripBold  = strings.NewReplacer("<b>", "", "</b>", "")
)

// fragmentSeparator is the ellipsis the engine puts around partial fragments.
const fragmentSeparator = "…"

// Shape renders ranked documents as records of the requested format.
// Fields flagged for highlighting among the queried fields carry their
// highlighted fragment: in place of the value for JSON, next to it for
// JSON_FULL.
func Shape(docs []result.ScoredDocument, queried []fieldspec.FieldSpec, f result.Format) result.Envelope {
	highlight := make(map[string]bool)
	for _, q := range queried {
		if q.Highlight() {
			highlight[q.Name()] = true
		}
	}

	env := result.Envelope{Format: f, Records: make([]result.Record, 0, len(docs))}
	for _, d := range docs {
		env.Records = append(env.Records, shapeRecord(d, highlight, f))
	}
	return env
}

func shapeRecord(d result.ScoredDocument, highlight map[string]bool, f result.Format) result.Record {
	names := d.FieldNames()
	rec := result.Record{Fields: make([]result.Field, 0, len(names)+1)}

	// Identity first, score last.
	if vals := d.Values(fieldspec.IDField); len(vals) > 0 {
		rec.Fields = append(rec.Fields, shapeField(fieldspec.IDField, vals, nil, false, f))
	}
	for _, name := range names {
		if name == fieldspec.IDField || name == result.FieldScore {
			continue
		}
		rec.Fields = append(rec.Fields, shapeField(name, d.Values(name), d.Fragments(name), highlight[name], f))
	}
	rec.Fields = append(rec.Fields, result.Field{
		Name:   result.FieldScore,
		Values: []result.Value{{Text: result.FormatScore(d.Score())}},
	})
	return rec
}

func shapeField(name string, vals, fragments []string, highlight bool, f result.Format) result.Field {
	out := result.Field{Name: name, Values: make([]result.Value, 0, len(vals))}
	for _, v := range vals {
		val := result.Value{Text: v}
		if highlight {
			hl, ok := highlightValue(v, fragments)
			switch f {
			case result.FormatJSON:
				if ok {
					val.Text = hl
				}
			case result.FormatJSONFull:
				if ok {
					val.Highlight = hl
				} else {
					val.Highlight = v
				}
			}
		}
		val.Full = f == result.FormatJSONFull
		out.Values = append(out.Values, val)
	}
	return out
}

// highlightValue finds the fragment produced for value and returns value
// with the matched terms wrapped in <b> tags.
func highlightValue(value string, fragments []string) (string, bool) {
	for _, frag := range fragments {
		frag = strings.TrimSuffix(strings.TrimPrefix(frag, fragmentSeparator), fragmentSeparator)
		marked := html.UnescapeString(markToBold.Replace(frag))
		plain := stripBold.Replace(marked)
		if plain == "" || marked == plain {
			continue
		}
		if i := strings.Index(value, plain); i >= 0 {
			return value[:i] + marked + value[i+len(plain):], true
		}
	}
	return "", false
}
