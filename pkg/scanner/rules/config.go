package rules

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"
)

//go:embed default_rules.yaml
var defaultRulesFile []byte

// File is the parsed content of a rules configuration file.
type File struct {
	Rules      []RuleSpec
	Exclusions []string
}

type rawFile struct {
	Rules      []rawRule `yaml:"rules"`
	Exclusions []string  `yaml:"exclusions"`
}

// rawRule accepts both the short keys (regex, entropy) and the long ones
// (pattern, min_entropy).
type rawRule struct {
	ID          string             `yaml:"id"`
	Description string             `yaml:"description"`
	Regex       string             `yaml:"regex"`
	Pattern     string             `yaml:"pattern"`
	Entropy     Optional[float64]  `yaml:"entropy"`
	MinEntropy  Optional[float64]  `yaml:"min_entropy"`
	Keywords    Optional[[]string] `yaml:"keywords"`
	Tags        Optional[[]string] `yaml:"tags"`
}

func (r rawRule) spec(index int) (RuleSpec, error) {
	if r.Regex != "" && r.Pattern != "" {
		return RuleSpec{}, &ConfigError{RuleID: r.ID, Index: index, Reason: "both regex and pattern given"}
	}
	if r.Entropy.Set && r.MinEntropy.Set {
		return RuleSpec{}, &ConfigError{RuleID: r.ID, Index: index, Reason: "both entropy and min_entropy given"}
	}

	spec := RuleSpec{
		ID:          r.ID,
		Description: r.Description,
		Pattern:     r.Regex,
		MinEntropy:  r.Entropy,
		Keywords:    r.Keywords,
		Tags:        r.Tags,
	}
	if r.Pattern != "" {
		spec.Pattern = r.Pattern
	}
	if r.MinEntropy.Set {
		spec.MinEntropy = r.MinEntropy
	}
	return spec, nil
}

// Parse decodes a YAML rules document. Unknown keys are rejected.
func Parse(data []byte) (*File, error) {
	var raw rawFile
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&raw); err != nil && !errors.Is(err, io.EOF) {
		return nil, &ConfigError{Index: -1, Reason: "malformed YAML", Err: err}
	}

	file := &File{
		Rules:      make([]RuleSpec, 0, len(raw.Rules)),
		Exclusions: raw.Exclusions,
	}
	for i, r := range raw.Rules {
		spec, err := r.spec(i)
		if err != nil {
			return nil, err
		}
		file.Rules = append(file.Rules, spec)
	}

	return file, nil
}

// LoadFile reads and parses a rules file from disk.
func LoadFile(path string) (*File, error) {
	log.Debug().Str("file", path).Msg("Loading rules file")
	// #nosec G304 - rules file path is supplied by the user via --rules
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed reading rules file %s: %w", path, err)
	}

	file, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("failed parsing rules file %s: %w", path, err)
	}
	return file, nil
}

// Default returns the embedded default configuration.
func Default() *File {
	file, err := Parse(defaultRulesFile)
	if err != nil {
		log.Fatal().Err(err).Msg("Embedded default rules are invalid, this is a bug")
	}
	return file
}

// Load returns the file at path, or the embedded defaults when path is empty.
func Load(path string) (*File, error) {
	if path == "" {
		log.Debug().Msg("No rules file given, using embedded defaults")
		return Default(), nil
	}
	return LoadFile(path)
}
