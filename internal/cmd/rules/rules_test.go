package rules

import (
	"os"
	"path/filepath"
	"testing"

	pkgrules "github.com/CompassSecurity/leekscan/pkg/scanner/rules"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func writeRules(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "rules.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestNewValidateCmd(t *testing.T) {
	cmd := NewValidateCmd()
	assert.Equal(t, "validate", cmd.Use)
	assert.NotEmpty(t, cmd.Short)
	assert.NotNil(t, cmd.Flags().Lookup("rules"))
}

func TestNewListCmd(t *testing.T) {
	cmd := NewListCmd()
	assert.Equal(t, "rules", cmd.Use)
	assert.NotNil(t, cmd.Flags().Lookup("rules"))
	assert.NotNil(t, cmd.Flags().Lookup("tag"))
}

func TestCheckDefaults(t *testing.T) {
	summary, err := Check("")
	require.NoError(t, err)

	defaults := pkgrules.Default()
	assert.Equal(t, len(defaults.Rules), summary.Rules)
	assert.Equal(t, len(defaults.Exclusions), summary.Exclusions)
	assert.Empty(t, summary.Warnings)
}

func TestCheckWarnings(t *testing.T) {
	path := writeRules(t, `
rules:
  - id: generic-secret
    description: Anything that looks like a secret
    regex: 'secret\s*=\s*(\S+)'
exclusions:
  - 'glob:**/*.lock'
`)

	summary, err := Check(path)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Rules)
	assert.Equal(t, 1, summary.Exclusions)
	require.Len(t, summary.Warnings, 1)
	assert.Contains(t, summary.Warnings[0], "generic-secret")
}

func TestCheckErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{name: "invalid regex", content: "rules:\n  - id: broken\n    regex: '(unclosed'\n"},
		{name: "duplicate id", content: "rules:\n  - id: a\n    regex: 'x'\n  - id: a\n    regex: 'y'\n"},
		{name: "invalid exclusion", content: "rules:\n  - id: a\n    regex: 'x'\nexclusions:\n  - 'regex:(['\n"},
		{name: "unknown key", content: "rules:\n  - id: a\n    regex: 'x'\n    severity: high\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Check(writeRules(t, tt.content))
			require.Error(t, err)
			var cfgErr *pkgrules.ConfigError
			assert.ErrorAs(t, err, &cfgErr)
		})
	}
}

func TestCheckMissingFile(t *testing.T) {
	_, err := Check(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestRender(t *testing.T) {
	out, count, err := Render("", nil)
	require.NoError(t, err)
	assert.Equal(t, len(pkgrules.Default().Rules), count)
	assert.Contains(t, out, "id: aws-access-key-id")

	var parsed struct {
		Rules []map[string]any `yaml:"rules"`
	}
	require.NoError(t, yaml.Unmarshal([]byte(out), &parsed))
	assert.Len(t, parsed.Rules, count)
}

func TestRenderTagFilter(t *testing.T) {
	path := writeRules(t, `
rules:
  - id: aws-key
    description: AWS
    regex: 'AKIA[0-9A-Z]{16}'
    tags: [aws, cloud]
  - id: slack
    description: Slack
    regex: 'xoxb-[0-9a-z-]+'
    tags: [chat]
  - id: untagged
    description: No tags
    regex: 'x{10}'
    entropy: 0
`)

	out, count, err := Render(path, []string{"AWS"})
	require.NoError(t, err)
	assert.Equal(t, 1, count)
	assert.Contains(t, out, "aws-key")
	assert.NotContains(t, out, "slack")

	out, count, err = Render(path, nil)
	require.NoError(t, err)
	assert.Equal(t, 3, count)
	assert.Contains(t, out, "entropy: 0")
}
