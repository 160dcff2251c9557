package profiles

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"golang.org/x/text/unicode/norm"
	"gopkg.in/yaml.v3"

	"github.com/joseph-ayodele/cte-extractor/constants"
	"github.com/joseph-ayodele/cte-extractor/internal/common"
	"github.com/joseph-ayodele/cte-extractor/internal/core"
	"github.com/joseph-ayodele/cte-extractor/internal/core/fields"
	"github.com/joseph-ayodele/cte-extractor/internal/core/filter"
)

// Profile is a saved batch configuration: which fields to extract and which
// post-processing to apply.
type Profile struct {
	Fields              []string `json:"fields,omitempty" yaml:"fields,omitempty"`
	Debug               bool     `json:"debug,omitempty" yaml:"debug,omitempty"`
	ExcludeIssuerRegion bool     `json:"exclude_issuer_region,omitempty" yaml:"exclude_issuer_region,omitempty"`
	OriginRegionOnly    bool     `json:"origin_region_only,omitempty" yaml:"origin_region_only,omitempty"`
	Region              string   `json:"region,omitempty" yaml:"region,omitempty"`
	ComputeTax          bool     `json:"compute_tax,omitempty" yaml:"compute_tax,omitempty"`
}

// Request converts the profile into a processor request.
func (p Profile) Request(origin string) core.Request {
	return core.Request{
		Fields: p.Fields,
		Debug:  p.Debug,
		Filters: filter.Options{
			ExcludeIssuerRegion: p.ExcludeIssuerRegion,
			OriginRegionOnly:    p.OriginRegionOnly,
			Region:              constants.Region(p.Region),
		},
		ComputeTax: p.ComputeTax,
		Origin:     origin,
	}
}

// Service loads and validates profiles against a schema generated from the
// lookup-path table.
type Service struct {
	schema *jsonschema.Schema
	logger *slog.Logger
}

// NewService compiles the profile schema for table.
func NewService(table *fields.Table, logger *slog.Logger) (*Service, error) {
	if logger == nil {
		logger = slog.Default()
	}
	b, err := json.Marshal(Schema(table))
	if err != nil {
		return nil, fmt.Errorf("marshal schema: %w", err)
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("profile.json", bytes.NewReader(b)); err != nil {
		return nil, fmt.Errorf("add schema: %w", err)
	}
	schema, err := compiler.Compile("profile.json")
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	return &Service{schema: schema, logger: logger}, nil
}

// Schema returns the JSON Schema for profiles over table's field names.
func Schema(table *fields.Table) map[string]any {
	names := table.Names()
	enum := make([]any, len(names))
	for i, n := range names {
		enum[i] = NormalizeName(n)
	}
	regions := constants.RegionsAsStringSlice()
	regionEnum := make([]any, len(regions))
	for i, r := range regions {
		regionEnum[i] = r
	}
	return map[string]any{
		"$schema":              "https://json-schema.org/draft/2020-12/schema",
		"type":                 "object",
		"additionalProperties": false,
		"properties": map[string]any{
			"fields": map[string]any{
				"type":        "array",
				"items":       map[string]any{"enum": enum},
				"uniqueItems": true,
			},
			"debug":                 map[string]any{"type": "boolean"},
			"exclude_issuer_region": map[string]any{"type": "boolean"},
			"origin_region_only":    map[string]any{"type": "boolean"},
			"region":                map[string]any{"enum": regionEnum},
			"compute_tax":           map[string]any{"type": "boolean"},
		},
	}
}

// NormalizeName puts a field name in NFC form so decomposed accents (as typed on
// some systems) match the table.
func NormalizeName(name string) string {
	return norm.NFC.String(strings.TrimSpace(name))
}

// LoadFile reads a profile from a .json, .yaml or .yml file.
func (s *Service) LoadFile(path string) (*Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read profile: %w", err)
	}
	var p *Profile
	switch ext := constants.NormalizeExt(filepath.Ext(path)); ext {
	case "yaml", "yml":
		p, err = s.ParseYAML(data)
	case "json":
		p, err = s.ParseJSON(data)
	default:
		return nil, fmt.Errorf("%w: unsupported profile extension %q", common.ErrInvalidInput, ext)
	}
	if err != nil {
		return nil, err
	}
	s.logger.Info("profile.load.ok", "path", path, "fields", len(p.Fields))
	return p, nil
}

// ParseYAML decodes a YAML profile and validates it like a JSON one.
func (s *Service) ParseYAML(data []byte) (*Profile, error) {
	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, invalid("decode yaml profile", err)
	}
	if doc == nil {
		doc = map[string]any{}
	}
	b, err := json.Marshal(doc)
	if err != nil {
		return nil, invalid("convert yaml profile", err)
	}
	return s.ParseJSON(b)
}

// ParseJSON decodes, normalizes and validates a JSON profile.
func (s *Service) ParseJSON(data []byte) (*Profile, error) {
	var doc any
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, invalid("decode json profile", err)
	}
	normalize(doc)
	if err := s.schema.Validate(doc); err != nil {
		return nil, invalid("profile does not match schema", err)
	}

	b, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("marshal profile: %w", err)
	}
	var p Profile
	if err := json.Unmarshal(b, &p); err != nil {
		return nil, invalid("decode profile", err)
	}
	return &p, nil
}

func normalize(doc any) {
	obj, ok := doc.(map[string]any)
	if !ok {
		return
	}
	if list, ok := obj["fields"].([]any); ok {
		for i, v := range list {
			if s, ok := v.(string); ok {
				list[i] = NormalizeName(s)
			}
		}
	}
	if r, ok := obj["region"].(string); ok {
		obj["region"] = strings.ToUpper(strings.TrimSpace(r))
	}
}

func invalid(msg string, err error) error {
	return common.NewAppError(common.CodeValidation, msg, fmt.Errorf("%w: %w", common.ErrValidation, err))
}
