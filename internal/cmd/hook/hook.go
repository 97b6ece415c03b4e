package hook

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/CompassSecurity/leekscan/pkg/format"
	"github.com/go-git/go-git/v5"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

// Script is the pre-commit hook. It fails the commit when the working tree
// contains secrets.
const Script = `#!/bin/sh
# Git pre-commit hook for secret scanning
# Generated by leekscan

echo "Running leekscan..."

if ! leekscan scan --format summary --log-level warn .; then
    echo ""
    echo "Secrets detected in the working tree!"
    echo "Please remove them before committing."
    echo "Use 'git commit --no-verify' to skip this check (not recommended)."
    exit 1
fi

echo "No secrets detected"
exit 0
`

// ErrHookExists is returned when installing over an existing hook without force.
var ErrHookExists = errors.New("pre-commit hook already exists")

var (
	install bool
	force   bool
	repoDir string
)

func NewHookCmd() *cobra.Command {
	hookCmd := &cobra.Command{
		Use:   "hook",
		Short: "Generate a git pre-commit hook",
		Long:  "Print a git pre-commit hook script that runs leekscan before every commit, or install it into a repository.",
		Example: `
# Print the hook script
leekscan hook > .git/hooks/pre-commit && chmod +x .git/hooks/pre-commit

# Install the hook into the repository of the current directory
leekscan hook --install
		`,
		Args: cobra.NoArgs,
		Run:  Hook,
	}
	hookCmd.Flags().BoolVarP(&install, "install", "i", false, "Write the hook into the hooks directory of the repository (core.hooksPath or .git/hooks)")
	hookCmd.Flags().BoolVarP(&force, "force", "", false, "Overwrite an existing pre-commit hook")
	hookCmd.Flags().StringVarP(&repoDir, "repo", "", ".", "Repository to install the hook into")

	return hookCmd
}

func Hook(cmd *cobra.Command, args []string) {
	if !install {
		_, _ = fmt.Fprint(cmd.OutOrStdout(), Script)
		return
	}

	path, err := Install(repoDir, force)
	if err != nil {
		log.Fatal().Err(err).Str("repo", repoDir).Msg("Failed installing pre-commit hook")
	}
	log.Info().Str("file", path).Msg("Installed pre-commit hook")
}

// Install writes the hook into the hooks directory of the repository
// containing dir and returns its path.
func Install(dir string, overwrite bool) (string, error) {
	repo, err := git.PlainOpenWithOptions(dir, &git.PlainOpenOptions{DetectDotGit: true, EnableDotGitCommonDir: true})
	if err != nil {
		return "", fmt.Errorf("failed opening repository: %w", err)
	}
	wt, err := repo.Worktree()
	if err != nil {
		return "", fmt.Errorf("failed opening worktree: %w", err)
	}

	hooksDir, err := HooksDir(repo, wt.Filesystem.Root())
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(hooksDir, format.FileExecutable); err != nil {
		return "", err
	}

	path := filepath.Join(hooksDir, "pre-commit")
	if _, err := os.Stat(path); err == nil && !overwrite {
		return "", fmt.Errorf("%s: %w, use --force to overwrite", path, ErrHookExists)
	}

	if err := os.WriteFile(path, []byte(Script), format.FileExecutable); err != nil {
		return "", err
	}
	// WriteFile keeps the mode of an existing file.
	if err := os.Chmod(path, format.FileExecutable); err != nil {
		return "", err
	}
	return path, nil
}

// HooksDir resolves the directory git runs hooks from. core.hooksPath wins,
// relative values are taken from the worktree root. Otherwise it is the hooks
// directory of the common git dir, which linked worktrees share with the main
// worktree.
func HooksDir(repo *git.Repository, root string) (string, error) {
	cfg, err := repo.Config()
	if err != nil {
		return "", fmt.Errorf("failed reading repository config: %w", err)
	}
	if hooksPath := cfg.Raw.Section("core").Option("hooksPath"); hooksPath != "" {
		if rest, ok := strings.CutPrefix(hooksPath, "~/"); ok {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", err
			}
			hooksPath = filepath.Join(home, rest)
		}
		if !filepath.IsAbs(hooksPath) {
			hooksPath = filepath.Join(root, hooksPath)
		}
		return filepath.Clean(hooksPath), nil
	}

	commonDir, err := commonGitDir(root)
	if err != nil {
		return "", err
	}
	return filepath.Join(commonDir, "hooks"), nil
}

// commonGitDir follows a .git file to the git dir of a linked worktree and
// from there to the common dir named in its commondir file.
func commonGitDir(root string) (string, error) {
	dotGit := filepath.Join(root, git.GitDirName)
	info, err := os.Stat(dotGit)
	if err != nil {
		return "", err
	}
	if info.IsDir() {
		return dotGit, nil
	}

	// #nosec G304 - .git file of the opened repository
	data, err := os.ReadFile(dotGit)
	if err != nil {
		return "", err
	}
	gitDir, ok := strings.CutPrefix(strings.TrimSpace(string(data)), "gitdir:")
	if !ok {
		return "", fmt.Errorf("%s: malformed .git file", dotGit)
	}
	gitDir = strings.TrimSpace(gitDir)
	if !filepath.IsAbs(gitDir) {
		gitDir = filepath.Join(root, gitDir)
	}

	// #nosec G304 - commondir file inside the resolved git dir
	common, err := os.ReadFile(filepath.Join(gitDir, "commondir"))
	if errors.Is(err, os.ErrNotExist) {
		return filepath.Clean(gitDir), nil
	}
	if err != nil {
		return "", err
	}
	commonDir := strings.TrimSpace(string(common))
	if !filepath.IsAbs(commonDir) {
		commonDir = filepath.Join(gitDir, commonDir)
	}
	return filepath.Clean(commonDir), nil
}
