package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/dbpedia/lookup/internal/boost"
	"github.com/dbpedia/lookup/internal/domain/fieldspec"
	"github.com/dbpedia/lookup/internal/domain/search/result"
	"github.com/dbpedia/lookup/internal/domain/search/settings"
)

// Config holds the lookup server configuration.
type Config struct {
	HTTP    HTTPConfig    `yaml:"http"`
	Auth    AuthConfig    `yaml:"auth"`
	Index   IndexConfig   `yaml:"index"`
	Search  SearchConfig  `yaml:"search"`
	Fields  []FieldConfig `yaml:"fields"`
	Cache   CacheConfig   `yaml:"cache"`
	Indexer IndexerConfig `yaml:"indexer"`
	Logging LoggingConfig `yaml:"logging"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// AuthConfig holds API authentication settings. Keys guard the index endpoints.
type AuthConfig struct {
	APIKeys []string `yaml:"api_keys"`
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
	MaxUploadMB     int `yaml:"max_upload_mb"`
}

// IndexConfig holds index location and ranking bounds.
type IndexConfig struct {
	Path            string `yaml:"path"`
	JoinBound       int    `yaml:"join_bound"`
	BoostCandidates int    `yaml:"boost_candidates"`
}

// SearchConfig holds the default query settings.
type SearchConfig struct {
	ExactMatchBoost   float64 `yaml:"exact_match_boost"`
	PrefixMatchBoost  float64 `yaml:"prefix_match_boost"`
	FuzzyMatchBoost   float64 `yaml:"fuzzy_match_boost"`
	FuzzyEditDistance *int    `yaml:"fuzzy_edit_distance"`
	FuzzyPrefixLength *int    `yaml:"fuzzy_prefix_length"`
	MaxResults        *int    `yaml:"max_results"`
	MaxResultsCap     int     `yaml:"max_results_cap"`
	MinScore          float64 `yaml:"min_score"`
	Format            string  `yaml:"format"`
	FormatTemplate    string  `yaml:"format_template"`
	BoostFormula      string  `yaml:"boost_formula"`
}

// FieldConfig declares one searchable field.
type FieldConfig struct {
	Name              string   `yaml:"name"`
	Type              string   `yaml:"type"`
	Weight            *float64 `yaml:"weight"`
	Tokenize          bool     `yaml:"tokenize"`
	Exact             bool     `yaml:"exact"`
	Required          bool     `yaml:"required"`
	AllowPartialMatch bool     `yaml:"allow_partial_match"`
	Highlight         bool     `yaml:"highlight"`
	QueryByDefault    bool     `yaml:"query_by_default"`
	Aliases           []string `yaml:"aliases"`
}

// CacheConfig holds the optional redis response cache settings.
type CacheConfig struct {
	Enabled          bool     `yaml:"enabled"`
	Addrs            []string `yaml:"addrs"`
	Password         string   `yaml:"password"`
	DB               int      `yaml:"db"`
	Namespace        string   `yaml:"namespace"`
	TTLSec           int      `yaml:"ttl_sec"`
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
}

// IndexerConfig holds index job settings.
type IndexerConfig struct {
	LogInterval       int `yaml:"log_interval"`
	MaxBufferedDocs   int `yaml:"max_buffered_docs"`
	SPARQLParallelism int `yaml:"sparql_parallelism"`
	SPARQLTimeoutSec  int `yaml:"sparql_timeout_sec"`
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	return LoadFile(findConfigPath(env))
}

// LoadFile reads configuration from an explicit path.
func LoadFile(configPath string) (Config, error) {
	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}
	return Parse(data)
}

// Parse decodes, defaults and validates configuration bytes.
func Parse(data []byte) (Config, error) {
	// Substitute env variables of the form ${VAR}
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// MustLoad loads configuration or panics.
func MustLoad(env string) Config {
	cfg, err := Load(env)
	if err != nil {
		panic(err)
	}
	return cfg
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

func intPtr(v int) *int { return &v }

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.HTTP.Port == 0 {
		c.HTTP.Port = 8082
	}
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 30
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.HTTP.MaxUploadMB <= 0 {
		c.HTTP.MaxUploadMB = 16
	}
	if c.Index.Path == "" {
		c.Index.Path = "index"
	}
	if c.Index.JoinBound <= 0 {
		c.Index.JoinBound = 10000
	}
	if c.Index.BoostCandidates <= 0 {
		c.Index.BoostCandidates = 1000
	}
	if c.Search.FuzzyEditDistance == nil {
		c.Search.FuzzyEditDistance = intPtr(1)
	}
	if c.Search.FuzzyPrefixLength == nil {
		c.Search.FuzzyPrefixLength = intPtr(2)
	}
	if c.Search.MaxResults == nil {
		c.Search.MaxResults = intPtr(100)
	}
	if c.Search.Format == "" {
		c.Search.Format = string(result.FormatXML)
	}
	for i := range c.Fields {
		if c.Fields[i].Weight == nil {
			w := 1.0
			c.Fields[i].Weight = &w
		}
	}
	if c.Cache.TTLSec <= 0 {
		c.Cache.TTLSec = 300
	}
	if c.Cache.ReadinessTimeout <= 0 {
		c.Cache.ReadinessTimeout = 10
	}
	if c.Indexer.LogInterval <= 0 {
		c.Indexer.LogInterval = 100000
	}
	if c.Indexer.SPARQLParallelism <= 0 {
		c.Indexer.SPARQLParallelism = 1
	}
	if c.Indexer.SPARQLTimeoutSec <= 0 {
		c.Indexer.SPARQLTimeoutSec = 1800
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	if len(c.Fields) == 0 {
		return fmt.Errorf("fields must declare at least one field")
	}
	if _, err := c.Registry(); err != nil {
		return err
	}
	if c.Search.MaxResultsCap < 0 {
		return fmt.Errorf("search.max_results_cap must not be negative, got %d", c.Search.MaxResultsCap)
	}
	switch result.Format(strings.ToUpper(c.Search.Format)) {
	case result.FormatXML, result.FormatJSON, result.FormatJSONFull, result.FormatJSONRaw:
		// ok
	default:
		return fmt.Errorf("search.format must be XML, JSON, JSON_FULL or JSON_RAW, got %q", c.Search.Format)
	}
	if c.Search.BoostFormula != "" {
		if _, err := boost.Compile(c.Search.BoostFormula); err != nil {
			return fmt.Errorf("search.boost_formula: %w", err)
		}
	}
	if c.Cache.Enabled && len(c.Cache.Addrs) == 0 {
		return fmt.Errorf("cache.addrs is required when the cache is enabled")
	}
	return nil
}

// Registry builds the field registry from the field declarations.
func (c *Config) Registry() (*fieldspec.Registry, error) {
	fields := make([]fieldspec.FieldSpec, 0, len(c.Fields))
	for i, fc := range c.Fields {
		vt, err := fieldspec.ParseValueType(fc.Type)
		if err != nil {
			return nil, fmt.Errorf("fields[%d]: %w", i, err)
		}
		var weight float64 = 1
		if fc.Weight != nil {
			weight = *fc.Weight
		}
		f, err := fieldspec.New(fc.Name, vt, fieldspec.Options{
			Weight:            weight,
			Tokenize:          fc.Tokenize,
			Exact:             fc.Exact,
			Required:          fc.Required,
			AllowPartialMatch: fc.AllowPartialMatch,
			Highlight:         fc.Highlight,
			QueryByDefault:    fc.QueryByDefault,
			Aliases:           fc.Aliases,
		})
		if err != nil {
			return nil, fmt.Errorf("fields[%d]: %w", i, err)
		}
		fields = append(fields, f)
	}
	reg, err := fieldspec.NewRegistry(fields)
	if err != nil {
		return nil, fmt.Errorf("fields: %w", err)
	}
	return reg, nil
}

// Defaults returns the default query settings.
func (s SearchConfig) Defaults() settings.Defaults {
	d := settings.Defaults{
		ExactMatchBoost:  s.ExactMatchBoost,
		PrefixMatchBoost: s.PrefixMatchBoost,
		FuzzyMatchBoost:  s.FuzzyMatchBoost,
		MaxResultsCap:    s.MaxResultsCap,
		MinScore:         s.MinScore,
		Format:           result.ParseFormat(s.Format),
	}
	if s.FuzzyEditDistance != nil {
		d.FuzzyEditDistance = *s.FuzzyEditDistance
	}
	if s.FuzzyPrefixLength != nil {
		d.FuzzyPrefixLength = *s.FuzzyPrefixLength
	}
	if s.MaxResults != nil {
		d.MaxResults = *s.MaxResults
	}
	return d
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	// 1. Check ./config/
	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// 2. Check relative to the source file
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	// 3. Fallback to ./config/
	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1]) // strip ${ and }
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
