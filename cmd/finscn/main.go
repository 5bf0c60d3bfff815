package main

import (
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/ludo-technologies/finscn/internal/version"
)

var rootCmd = &cobra.Command{
	Use:   "finscn",
	Short: "Recover try/catch/finally structure and rewrite finally markers",
	Long: `finscn reads compiled method bodies, recovers the nested try/catch/finally
statements from their flat exception tables and rewrites marker calls inside
every finally copy so the code can tell how the finally block was entered.

Features:
  • Try tree recovery from exception table entries
  • Return-exit and throw-exit classification of finally copies
  • Marker call rewriting with slot and type checks
  • Text, JSON and YAML reports`,
	Version:          version.Short(),
	SilenceUsage:     true,
	PersistentPreRun: configureColor,
}

func init() {
	rootCmd.PersistentFlags().Bool("no-color", false, "Disable coloured output")

	rootCmd.AddCommand(NewRewriteCmd())
	rootCmd.AddCommand(NewTreeCmd())
	rootCmd.AddCommand(NewInitCmd())
	rootCmd.AddCommand(NewVersionCmd())
}

// configureColor turns colour off for --no-color and when stdout is not a terminal
func configureColor(cmd *cobra.Command, args []string) {
	noColor, _ := cmd.Flags().GetBool("no-color")
	if noColor || !term.IsTerminal(int(os.Stdout.Fd())) {
		color.NoColor = true
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
