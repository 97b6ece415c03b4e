package rules

import (
	"github.com/CompassSecurity/leekscan/internal/cmd/common"
	"github.com/CompassSecurity/leekscan/pkg/scanner"
	"github.com/CompassSecurity/leekscan/pkg/scanner/filter"
	pkgrules "github.com/CompassSecurity/leekscan/pkg/scanner/rules"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

// Summary describes a configuration that compiled successfully.
type Summary struct {
	Rules      int
	Exclusions int
	Warnings   []string
}

var validateRulesFile string

func NewValidateCmd() *cobra.Command {
	validateCmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate a rules configuration file",
		Long: `Load and compile a rules configuration without scanning anything.

Invalid regular expressions, duplicate rule ids and invalid exclusion patterns
are reported as errors and exit with code 1. Rules that are likely to produce
many false positives are reported as warnings.
		`,
		Example: `
# Validate the embedded default rules
leekscan validate

# Validate custom rules
leekscan validate --rules my_rules.yaml
		`,
		Args: cobra.NoArgs,
		Run:  Validate,
	}
	validateCmd.Flags().StringVarP(&validateRulesFile, "rules", "r", "", "Path to a rules YAML file (embedded defaults when empty)")

	return validateCmd
}

func Validate(cmd *cobra.Command, args []string) {
	summary, err := Check(validateRulesFile)
	if err != nil {
		log.Error().Err(err).Msg("Validation failed")
		common.SetExitCode(common.ExitFindings)
		return
	}

	log.Info().Int("rules", summary.Rules).Int("exclusions", summary.Exclusions).Msg("Configuration loaded successfully")
	for _, warning := range summary.Warnings {
		log.Warn().Msg(warning)
	}
	if len(summary.Warnings) == 0 {
		log.Info().Msg("No validation warnings")
	}
}

// Check loads and compiles the rules file at path.
func Check(path string) (*Summary, error) {
	cfg, err := pkgrules.Load(path)
	if err != nil {
		return nil, err
	}
	engine, err := scanner.NewEngineFromFile(cfg, filter.UTF8)
	if err != nil {
		return nil, err
	}
	return &Summary{
		Rules:      engine.Rules.Len(),
		Exclusions: len(engine.Filter.Policy().Patterns()),
		Warnings:   engine.Warnings,
	}, nil
}
