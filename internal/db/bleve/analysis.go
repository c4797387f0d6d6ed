package bleve

import (
	"bytes"

	"github.com/blevesearch/bleve/v2/analysis"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/custom"
	"github.com/blevesearch/bleve/v2/analysis/token/lowercase"
	"github.com/blevesearch/bleve/v2/analysis/token/ngram"
	"github.com/blevesearch/bleve/v2/analysis/token/porter"
	"github.com/blevesearch/bleve/v2/analysis/tokenizer/single"
	"github.com/blevesearch/bleve/v2/analysis/tokenizer/unicode"
	"github.com/blevesearch/bleve/v2/mapping"
	"github.com/blevesearch/bleve/v2/registry"
)

// Analyzer and token filter names registered on every index mapping.
const (
	trimFilterName  = "lookup_trim"
	ngramFilterName = "lookup_ngram_3_5"

	stringAnalyzerName = "lookup_string"
	uriAnalyzerName    = "lookup_uri"
	ngramAnalyzerName  = "lookup_ngram"
)

func init() {
	registry.RegisterTokenFilter(trimFilterName, func(map[string]interface{}, *registry.Cache) (analysis.TokenFilter, error) {
		return trimFilter{}, nil
	})
}

// trimFilter strips surrounding whitespace from tokens and drops empty ones.
type trimFilter struct{}

func (trimFilter) Filter(input analysis.TokenStream) analysis.TokenStream {
	out := input[:0]
	for _, tok := range input {
		tok.Term = bytes.TrimSpace(tok.Term)
		if len(tok.Term) > 0 {
			out = append(out, tok)
		}
	}
	return out
}

func addCustomAnalysis(im *mapping.IndexMappingImpl) error {
	if err := im.AddCustomTokenFilter(ngramFilterName, map[string]interface{}{
		"type": ngram.Name,
		"min":  3.0,
		"max":  5.0,
	}); err != nil {
		return err
	}
	analyzers := map[string]map[string]interface{}{
		stringAnalyzerName: {
			"type":          custom.Name,
			"tokenizer":     single.Name,
			"token_filters": []string{lowercase.Name, trimFilterName},
		},
		uriAnalyzerName: {
			"type":          custom.Name,
			"tokenizer":     single.Name,
			"token_filters": []string{trimFilterName},
		},
		ngramAnalyzerName: {
			"type":          custom.Name,
			"tokenizer":     unicode.Name,
			"token_filters": []string{lowercase.Name, ngramFilterName, porter.Name},
		},
	}
	for name, cfg := range analyzers {
		if err := im.AddCustomAnalyzer(name, cfg); err != nil {
			return err
		}
	}
	return nil
}
