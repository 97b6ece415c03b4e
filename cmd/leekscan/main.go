package main

import (
	"github.com/CompassSecurity/leekscan/internal/cmd/common"
	"github.com/CompassSecurity/leekscan/internal/cmd/hook"
	"github.com/CompassSecurity/leekscan/internal/cmd/rules"
	"github.com/CompassSecurity/leekscan/internal/cmd/scan"
	"github.com/spf13/cobra"
)

func main() {
	common.Run(newRootCmd())
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:     "leekscan",
		Short:   "Scan files and git history for leaked secrets",
		Long:    `Leekscan detects secrets such as API keys, tokens and passwords in source trees and in the lines added by git commits.`,
		Version: common.Version,
		// Usage output on scan errors would hide the log line.
		SilenceUsage: true,
	}

	rootCmd.AddCommand(scan.NewScanCmd())
	rootCmd.AddCommand(rules.NewValidateCmd())
	rootCmd.AddCommand(rules.NewListCmd())
	rootCmd.AddCommand(hook.NewHookCmd())

	common.SetupPersistentPreRun(rootCmd)
	common.AddCommonFlags(rootCmd)

	rootCmd.SetVersionTemplate(`{{.Version}}
`)

	return rootCmd
}
