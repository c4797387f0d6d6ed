package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/dbpedia/lookup/internal/domain"
	"github.com/dbpedia/lookup/internal/domain/fieldspec"
	"github.com/dbpedia/lookup/internal/domain/job"
)

// JobConfig is the YAML form of an index job.
type JobConfig struct {
	Version        string          `yaml:"version"`
	IndexFields    []BindingConfig `yaml:"indexFields"`
	IndexMode      string          `yaml:"indexMode"`
	SPARQLEndpoint string          `yaml:"sparqlEndpoint"`
	DataPath       string          `yaml:"dataPath"`
	CleanIndex     bool            `yaml:"cleanIndex"`
	CommitInterval int             `yaml:"commitInterval"`
}

// BindingConfig maps one query onto one document field.
type BindingConfig struct {
	FieldName        string `yaml:"fieldName"`
	DocumentVariable string `yaml:"documentVariable"`
	Query            string `yaml:"query"`
	Type             string `yaml:"type"`
}

// ParseJob decodes and validates an index job. Errors wrap ErrInvalidJob.
func ParseJob(data []byte) (job.Job, error) {
	data = expandEnvVars(data)

	var jc JobConfig
	if err := yaml.Unmarshal(data, &jc); err != nil {
		return job.Job{}, fmt.Errorf("%w: parse: %v", domain.ErrInvalidJob, err)
	}

	j := job.Job{
		Version:        jc.Version,
		Mode:           job.Mode(jc.IndexMode),
		SPARQLEndpoint: jc.SPARQLEndpoint,
		DataPath:       jc.DataPath,
		CleanIndex:     jc.CleanIndex,
		CommitInterval: jc.CommitInterval,
		Bindings:       make([]job.Binding, 0, len(jc.IndexFields)),
	}
	for i, bc := range jc.IndexFields {
		b := job.Binding{
			FieldName:        bc.FieldName,
			DocumentVariable: bc.DocumentVariable,
			Query:            bc.Query,
		}
		if bc.Type != "" {
			vt, err := fieldspec.ParseValueType(bc.Type)
			if err != nil {
				return job.Job{}, fmt.Errorf("%w: indexFields[%d]: %v", domain.ErrInvalidJob, i, err)
			}
			b.Type = vt
		}
		j.Bindings = append(j.Bindings, b)
	}

	if err := j.Validate(); err != nil {
		return job.Job{}, err
	}
	return j, nil
}

// LoadJob reads an index job from a YAML file. A relative dataPath is
// resolved against the file's directory.
func LoadJob(path string) (job.Job, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return job.Job{}, fmt.Errorf("read job %s: %w", path, err)
	}
	j, err := ParseJob(data)
	if err != nil {
		return job.Job{}, err
	}
	if j.DataPath != "" && !filepath.IsAbs(j.DataPath) {
		j.DataPath = filepath.Join(filepath.Dir(path), j.DataPath)
	}
	return j, nil
}
