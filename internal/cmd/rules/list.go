package rules

import (
	"fmt"
	"slices"
	"strings"

	"github.com/CompassSecurity/leekscan/pkg/format"
	pkgrules "github.com/CompassSecurity/leekscan/pkg/scanner/rules"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var (
	listRulesFile string
	listTags      []string
)

func NewListCmd() *cobra.Command {
	listCmd := &cobra.Command{
		Use:   "rules",
		Short: "List the detection rules",
		Long:  "Print the detection rules of the embedded defaults or a rules file as YAML.",
		Example: `
# List the default rules
leekscan rules

# List the AWS rules of a custom file
leekscan rules --rules my_rules.yaml --tag aws
		`,
		Args: cobra.NoArgs,
		Run:  List,
	}
	listCmd.Flags().StringVarP(&listRulesFile, "rules", "r", "", "Path to a rules YAML file (embedded defaults when empty)")
	listCmd.Flags().StringSliceVarP(&listTags, "tag", "t", nil, "Only list rules carrying one of these tags")

	return listCmd
}

func List(cmd *cobra.Command, args []string) {
	out, count, err := Render(listRulesFile, listTags)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed listing rules")
	}
	log.Info().Int("rules", count).Msg("Available rules")
	_, _ = fmt.Fprint(cmd.OutOrStdout(), out)
}

// Render returns the selected rule specs as YAML and their number.
func Render(path string, tags []string) (string, int, error) {
	cfg, err := pkgrules.Load(path)
	if err != nil {
		return "", 0, err
	}

	selected := make([]pkgrules.RuleSpec, 0, len(cfg.Rules))
	for _, spec := range cfg.Rules {
		if hasAnyTag(spec, tags) {
			selected = append(selected, spec)
		}
	}

	out, err := format.PrettyPrintYAML(struct {
		Rules []pkgrules.RuleSpec `yaml:"rules"`
	}{Rules: selected})
	if err != nil {
		return "", 0, err
	}
	return out, len(selected), nil
}

func hasAnyTag(spec pkgrules.RuleSpec, tags []string) bool {
	if len(tags) == 0 {
		return true
	}
	specTags, _ := spec.Tags.Get()
	for _, tag := range tags {
		if slices.ContainsFunc(specTags, func(t string) bool { return strings.EqualFold(t, tag) }) {
			return true
		}
	}
	return false
}
