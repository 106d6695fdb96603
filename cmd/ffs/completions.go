package main

import (
	"os"

	"github.com/spf13/cobra"
)

// writeCompletions serves --completions SHELL by delegating straight
// to cobra's generators; it is the one place this command touches
// shell-completion internals.
func writeCompletions(cmd *cobra.Command, shell string) error {
	switch shell {
	case "bash":
		return cmd.Root().GenBashCompletion(os.Stdout)
	case "zsh":
		return cmd.Root().GenZshCompletion(os.Stdout)
	case "fish":
		return cmd.Root().GenFishCompletion(os.Stdout, true)
	case "powershell":
		return cmd.Root().GenPowerShellCompletion(os.Stdout)
	default:
		return usageErrorf("unknown shell %q for --completions (want bash, zsh, fish, or powershell)", shell)
	}
}
