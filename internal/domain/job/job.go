package job

import (
	"fmt"
	"strings"

	"github.com/dbpedia/lookup/internal/domain"
	"github.com/dbpedia/lookup/internal/domain/fieldspec"
)

// Mode selects the triple source of a job.
type Mode string

// Index modes.
const (
	// ModeSPARQL runs each binding query against a remote SPARQL endpoint.
	ModeSPARQL Mode = "INDEX_SPARQL_ENDPOINT"
	// ModeParquet reads each binding from parquet files under the data path.
	// The binding query is a file glob relative to the data path.
	ModeParquet Mode = "INDEX_PARQUET"
)

// ValuesPlaceholder is replaced by a VALUES clause restricting document keys.
const ValuesPlaceholder = "#VALUES#"

// DefaultCommitInterval is the number of bindings between commits.
const DefaultCommitInterval = 1000000

// Binding maps the result of one query onto one document field.
type Binding struct {
	FieldName        string
	DocumentVariable string
	Query            string
	Type             fieldspec.ValueType
}

// Job is a validated index job configuration.
type Job struct {
	Version        string
	Bindings       []Binding
	Mode           Mode
	SPARQLEndpoint string
	DataPath       string
	CleanIndex     bool
	CommitInterval int
	keys           []string
}

// Validate checks the job for completeness and applies defaults.
func (j *Job) Validate() error {
	if len(j.Bindings) == 0 {
		return fmt.Errorf("%w: no index fields", domain.ErrInvalidJob)
	}
	if j.Mode == "" {
		if j.SPARQLEndpoint != "" {
			j.Mode = ModeSPARQL
		} else {
			j.Mode = ModeParquet
		}
	}
	switch j.Mode {
	case ModeSPARQL:
		if j.SPARQLEndpoint == "" {
			return fmt.Errorf("%w: sparqlEndpoint is required for %s", domain.ErrInvalidJob, j.Mode)
		}
	case ModeParquet:
		if j.DataPath == "" {
			return fmt.Errorf("%w: dataPath is required for %s", domain.ErrInvalidJob, j.Mode)
		}
	default:
		return fmt.Errorf("%w: unknown index mode %q", domain.ErrInvalidJob, j.Mode)
	}
	for i, b := range j.Bindings {
		if b.FieldName == "" {
			return fmt.Errorf("%w: indexFields[%d].fieldName is required", domain.ErrInvalidJob, i)
		}
		if b.DocumentVariable == "" {
			return fmt.Errorf("%w: indexFields[%d].documentVariable is required", domain.ErrInvalidJob, i)
		}
		if b.Query == "" {
			return fmt.Errorf("%w: indexFields[%d].query is required", domain.ErrInvalidJob, i)
		}
		if b.Type != "" && !b.Type.IsValid() {
			return fmt.Errorf("%w: indexFields[%d].type %q", domain.ErrInvalidJob, i, b.Type)
		}
	}
	if j.CommitInterval <= 0 {
		j.CommitInterval = DefaultCommitInterval
	}
	return nil
}

// WithKeys returns a copy of the job restricted to the given document keys.
// Every #VALUES# placeholder becomes "VALUES ?var { <k1> <k2> }", or is
// removed when keys is empty.
func (j Job) WithKeys(keys []string) Job {
	out := j
	out.keys = nil
	for _, k := range keys {
		if k = strings.TrimSpace(k); k != "" {
			out.keys = append(out.keys, k)
		}
	}
	out.Bindings = make([]Binding, len(j.Bindings))
	for i, b := range j.Bindings {
		clause := ""
		if len(out.keys) > 0 {
			var sb strings.Builder
			for _, k := range out.keys {
				sb.WriteString("<" + k + "> ")
			}
			clause = fmt.Sprintf("VALUES ?%s { %s}", b.DocumentVariable, sb.String())
		}
		b.Query = strings.ReplaceAll(b.Query, ValuesPlaceholder, clause)
		out.Bindings[i] = b
	}
	return out
}

// Keys returns the key restriction, nil when unrestricted.
func (j Job) Keys() []string {
	if len(j.keys) == 0 {
		return nil
	}
	return append([]string(nil), j.keys...)
}

// Triple is one (documentKey, fieldName, value) binding. A nil Value is unbound.
type Triple struct {
	Key   string
	Field string
	Type  fieldspec.ValueType
	Value *string
}

// NewTriple builds a bound triple.
func NewTriple(key string, b Binding, value string) Triple {
	return Triple{Key: key, Field: b.FieldName, Type: b.Type, Value: &value}
}
