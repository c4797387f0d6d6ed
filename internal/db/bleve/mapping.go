package bleve

import (
	"fmt"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/keyword"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"
	"github.com/blevesearch/bleve/v2/mapping"

	"github.com/dbpedia/lookup/internal/domain/fieldspec"
)

// numericTextSuffix names the stored-only companion of a numeric field.
const numericTextSuffix = "__text"

// NewIndexMapping builds the bleve mapping for a set of typed fields.
// Undeclared fields are indexed dynamically as stored text.
func NewIndexMapping(types map[string]fieldspec.ValueType) (*mapping.IndexMappingImpl, error) {
	im := bleve.NewIndexMapping()
	if err := addCustomAnalysis(im); err != nil {
		return nil, fmt.Errorf("custom analysis: %w", err)
	}
	im.DefaultAnalyzer = standard.Name
	im.StoreDynamic = true
	im.IndexDynamic = true

	dm := bleve.NewDocumentMapping()
	dm.Dynamic = true

	idField := bleve.NewTextFieldMapping()
	idField.Analyzer = keyword.Name
	idField.Store = true
	idField.IncludeInAll = false
	idField.IncludeTermVectors = false
	dm.AddFieldMappingsAt(fieldspec.IDField, idField)

	for name, vt := range types {
		if name == fieldspec.IDField {
			continue
		}
		dm.AddFieldMappingsAt(name, fieldMapping(vt))
		if vt == fieldspec.Numeric {
			dm.AddFieldMappingsAt(name+numericTextSuffix, numericTextMapping())
		}
	}
	im.DefaultMapping = dm
	return im, nil
}

func fieldMapping(vt fieldspec.ValueType) *mapping.FieldMapping {
	if vt == fieldspec.Numeric {
		fm := bleve.NewNumericFieldMapping()
		fm.Store = false
		fm.Index = true
		fm.DocValues = true
		fm.IncludeInAll = false
		return fm
	}

	fm := bleve.NewTextFieldMapping()
	fm.Store = true
	fm.IncludeInAll = false
	fm.IncludeTermVectors = true
	switch vt {
	case fieldspec.String:
		fm.Analyzer = stringAnalyzerName
	case fieldspec.URI:
		fm.Analyzer = uriAnalyzerName
	case fieldspec.NGram:
		fm.Analyzer = ngramAnalyzerName
	case fieldspec.Stored:
		fm.Index = false
		fm.IncludeTermVectors = false
	case fieldspec.StoredSorted:
		fm.Analyzer = keyword.Name
		fm.DocValues = true
		fm.IncludeTermVectors = false
	default:
		fm.Analyzer = standard.Name
	}
	return fm
}

func numericTextMapping() *mapping.FieldMapping {
	fm := bleve.NewTextFieldMapping()
	fm.Index = false
	fm.Store = true
	fm.IncludeInAll = false
	fm.IncludeTermVectors = false
	fm.DocValues = false
	return fm
}
