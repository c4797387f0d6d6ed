package chi

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/dbpedia/lookup/internal/domain/fieldspec"
	"github.com/dbpedia/lookup/internal/domain/search/result"
	"github.com/dbpedia/lookup/internal/domain/search/settings"
	searchuc "github.com/dbpedia/lookup/internal/usecase/search"
)

// Search request parameters.
const (
	paramQuery       = "query"
	paramQueryString = "QueryString"
	paramJoin        = "join"

	paramExactMatchBoost   = "exactMatchBoost"
	paramPrefixMatchBoost  = "prefixMatchBoost"
	paramFuzzyMatchBoost   = "fuzzyMatchBoost"
	paramFuzzyEditDistance = "fuzzyEditDistance"
	paramFuzzyPrefixLength = "fuzzyPrefixLength"
	paramMaxResults        = "maxResults"
	paramMinScore          = "minScore"
	paramMinRelevanceScore = "minRelevanceScore"
	paramFormat            = "format"
)

// Per-field override suffixes, appended to the field name.
const (
	suffixWeight            = "Weight"
	suffixRequired          = "Required"
	suffixExact             = "Exact"
	suffixTokenize          = "Tokenize"
	suffixHighlight         = "Highlight"
	suffixAllowPartialMatch = "AllowPartialMatch"
)

// parseSearchRequest maps request parameters onto a search request.
// Malformed numbers and booleans keep the configured value.
func parseSearchRequest(form url.Values, registry *fieldspec.Registry) searchuc.Request {
	query, hasQuery := firstDecoded(form, paramQueryString, paramQuery)
	join, _ := firstDecoded(form, paramJoin)

	req := searchuc.Request{
		Join:     join,
		Settings: parseSettings(form),
	}

	for _, f := range registry.Fields() {
		name := f.Name()
		value, ok := "", false
		if hasQuery && f.QueryByDefault() {
			value, ok = query, true
		}

		if v, present := lookup(form, name); present {
			value, ok = decode(v), true
		} else {
			for _, alias := range f.Aliases() {
				if v, present := lookup(form, alias); present {
					value, ok = v, true
					break
				}
			}
		}

		if !ok {
			continue
		}
		req.Queries = append(req.Queries, searchuc.FieldQuery{
			Field:    name,
			Value:    value,
			Override: parseOverride(form, name),
		})
	}
	return req
}

func parseOverride(form url.Values, field string) fieldspec.Override {
	return fieldspec.Override{
		Weight:            floatParam(form, field+suffixWeight),
		Required:          boolParam(form, field+suffixRequired),
		Exact:             boolParam(form, field+suffixExact),
		Tokenize:          boolParam(form, field+suffixTokenize),
		Highlight:         boolParam(form, field+suffixHighlight),
		AllowPartialMatch: boolParam(form, field+suffixAllowPartialMatch),
	}
}

func parseSettings(form url.Values) settings.Override {
	o := settings.Override{
		ExactMatchBoost:   floatParam(form, paramExactMatchBoost),
		PrefixMatchBoost:  floatParam(form, paramPrefixMatchBoost),
		FuzzyMatchBoost:   floatParam(form, paramFuzzyMatchBoost),
		FuzzyEditDistance: intParam(form, paramFuzzyEditDistance),
		FuzzyPrefixLength: intParam(form, paramFuzzyPrefixLength),
		MaxResults:        intParam(form, paramMaxResults),
		MinScore:          floatParam(form, paramMinRelevanceScore),
	}
	if v := floatParam(form, paramMinScore); v != nil {
		o.MinScore = v
	}
	if v, ok := lookup(form, paramFormat); ok {
		f := result.ParseFormat(v)
		o.Format = &f
	}
	return o
}

func lookup(form url.Values, key string) (string, bool) {
	vs, ok := form[key]
	if !ok || len(vs) == 0 {
		return "", false
	}
	return vs[0], true
}

// firstDecoded returns the first present parameter among keys, decoded once more.
func firstDecoded(form url.Values, keys ...string) (string, bool) {
	for _, k := range keys {
		if v, ok := lookup(form, k); ok {
			return decode(v), true
		}
	}
	return "", false
}

// decode applies one more round of URL decoding. Values that do not
// decode are returned unchanged.
func decode(v string) string {
	d, err := url.QueryUnescape(v)
	if err != nil {
		return v
	}
	return d
}

// boolParam is true only for "true" in any case.
func boolParam(form url.Values, key string) *bool {
	v, ok := lookup(form, key)
	if !ok {
		return nil
	}
	b := strings.EqualFold(strings.TrimSpace(v), "true")
	return &b
}

func floatParam(form url.Values, key string) *float64 {
	v, ok := lookup(form, key)
	if !ok {
		return nil
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil {
		return nil
	}
	return &f
}

func intParam(form url.Values, key string) *int {
	v, ok := lookup(form, key)
	if !ok {
		return nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return nil
	}
	return &n
}
