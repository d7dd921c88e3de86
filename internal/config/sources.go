package config

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	lev "github.com/agnivade/levenshtein"
	"gopkg.in/yaml.v3"

	"peerdata/internal"
	"peerdata/internal/table"
)

//go:embed sources.yaml
var defaultSources []byte

var ErrUnknownColumn = errors.New("unknown canonical column")

// Targets is one or more canonical column names. YAML accepts a scalar or a list.
type Targets []string

func (t *Targets) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		*t = Targets{node.Value}
		return nil
	case yaml.SequenceNode:
		var list []string
		if err := node.Decode(&list); err != nil {
			return err
		}
		*t = list
		return nil
	default:
		return fmt.Errorf("line %d: field target must be a column name or a list of names", node.Line)
	}
}

type SourceConfig struct {
	Name     internal.Source    `yaml:"name"`
	Path     string             `yaml:"path"`
	Encoding string             `yaml:"encoding"`
	Filter   string             `yaml:"filter"`
	Fields   map[string]Targets `yaml:"fields"`

	mapping  map[string][]internal.Column
	encoding table.Encoding
}

// Mapping returns raw field name -> canonical columns. Only valid after Validate.
func (s SourceConfig) Mapping() map[string][]internal.Column {
	return s.mapping
}

func (s SourceConfig) InputEncoding() table.Encoding {
	if s.encoding == "" {
		return table.UTF8
	}
	return s.encoding
}

type DeriveConfig struct {
	AllowList           string            `yaml:"allow_list"`
	AllowListColumn     string            `yaml:"allow_list_column"`
	AllowListEncoding   string            `yaml:"allow_list_encoding"`
	Countries           string            `yaml:"countries"`
	CountriesEncoding   string            `yaml:"countries_encoding"`
	PublicNetworkMarker string            `yaml:"public_network_marker"`
	URLColumns          []string          `yaml:"url_columns"`
	CountryColumns      []string          `yaml:"country_columns"`
	CountryOverrides    map[string]string `yaml:"country_overrides"`

	urlColumns     []internal.Column
	countryColumns []internal.Column
}

func (d DeriveConfig) URLCols() []internal.Column     { return d.urlColumns }
func (d DeriveConfig) CountryCols() []internal.Column { return d.countryColumns }

type Sources struct {
	Priority []internal.Source `yaml:"priority"`
	Sources  []SourceConfig    `yaml:"sources"`
	Derive   DeriveConfig      `yaml:"derive"`
}

// LoadSources reads the mapping tables from path, or the embedded defaults when path is empty.
func LoadSources(path string) (*Sources, error) {
	data := defaultSources
	if strings.TrimSpace(path) != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read sources config: %w", err)
		}
		data = raw
	}
	return ParseSources(data)
}

func ParseSources(data []byte) (*Sources, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var s Sources
	if err := dec.Decode(&s); err != nil {
		return nil, fmt.Errorf("failed to parse sources config: %w", err)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

func (s *Sources) Validate() error {
	if len(s.Priority) == 0 {
		s.Priority = append([]internal.Source(nil), internal.DefaultPriority...)
	}
	seen := map[internal.Source]struct{}{}
	for i := range s.Sources {
		src := &s.Sources[i]
		if strings.TrimSpace(string(src.Name)) == "" {
			return fmt.Errorf("sources[%d]: missing name", i)
		}
		if _, dup := seen[src.Name]; dup {
			return fmt.Errorf("source %s declared twice", src.Name)
		}
		seen[src.Name] = struct{}{}

		enc, err := table.ParseEncoding(src.Encoding)
		if err != nil {
			return fmt.Errorf("source %s: %w", src.Name, err)
		}
		src.encoding = enc

		raws := make([]string, 0, len(src.Fields))
		for raw := range src.Fields {
			raws = append(raws, raw)
		}
		sort.Strings(raws)

		src.mapping = make(map[string][]internal.Column, len(src.Fields))
		for _, raw := range raws {
			for _, name := range src.Fields[raw] {
				col, err := resolveColumn(name)
				if err != nil {
					return fmt.Errorf("source %s field %q: %w", src.Name, raw, err)
				}
				if !col.Mappable() {
					return fmt.Errorf("source %s field %q: column %s is not mappable", src.Name, raw, col)
				}
				src.mapping[raw] = append(src.mapping[raw], col)
			}
		}
	}

	d := &s.Derive
	if d.AllowListColumn == "" {
		d.AllowListColumn = "ASN"
	}
	d.urlColumns = d.urlColumns[:0]
	for _, name := range d.URLColumns {
		col, err := resolveColumn(name)
		if err != nil {
			return fmt.Errorf("derive url_columns: %w", err)
		}
		d.urlColumns = append(d.urlColumns, col)
	}
	d.countryColumns = d.countryColumns[:0]
	for _, name := range d.CountryColumns {
		col, err := resolveColumn(name)
		if err != nil {
			return fmt.Errorf("derive country_columns: %w", err)
		}
		d.countryColumns = append(d.countryColumns, col)
	}
	return nil
}

func (s *Sources) Source(name internal.Source) (SourceConfig, bool) {
	for _, src := range s.Sources {
		if src.Name == name {
			return src, true
		}
	}
	return SourceConfig{}, false
}

func resolveColumn(name string) (internal.Column, error) {
	if col, ok := internal.ColumnByName(name); ok {
		return col, nil
	}
	if guess := closestColumn(name); guess != "" {
		return 0, fmt.Errorf("%w %q (did you mean %q?)", ErrUnknownColumn, name, guess)
	}
	return 0, fmt.Errorf("%w %q", ErrUnknownColumn, name)
}

func closestColumn(name string) string {
	needle := strings.ToLower(name)
	best, bestDist := "", -1
	for _, candidate := range internal.ColumnNames() {
		d := lev.ComputeDistance(needle, strings.ToLower(candidate))
		if bestDist < 0 || d < bestDist {
			best, bestDist = candidate, d
		}
	}
	if bestDist > len(name)/3+1 {
		return ""
	}
	return best
}
