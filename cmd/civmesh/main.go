// Command civmesh solves problems with a civilization of agents.
//
//	civmesh                      # interactive prompt, one problem per line
//	civmesh solve "<problem>"    # solve once and exit
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
)

var (
	configPath string
	verbose    bool
	timeout    time.Duration
	noRender   bool
)

var rootCmd = &cobra.Command{
	Use:   "civmesh",
	Short: "A civilization of agents that plan, delegate and build tools",
	Long: `civmesh hands your problem to a leader agent. The leader plans, invites
helpers, builds and uses tools, and answers once the work is reviewed.

Run without arguments to start the interactive prompt.`,
	SilenceUsage: true,
	Args:         cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runREPL(cmd.Context(), cmd.InOrStdin(), cmd.OutOrStdout())
	},
}

var solveCmd = &cobra.Command{
	Use:   "solve <problem>",
	Short: "Solve one problem and print the answer",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runSolve,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "civmesh.yaml", "Path to the YAML config file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 30*time.Minute, "Time limit per problem")
	rootCmd.PersistentFlags().BoolVar(&noRender, "raw", false, "Print answers without markdown rendering")

	rootCmd.AddCommand(solveCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
