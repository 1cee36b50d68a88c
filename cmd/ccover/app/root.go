package app

import (
	"github.com/spf13/cobra"
)

// NewCcoverCommand creates the root command for the ccover tool.
func NewCcoverCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ccover",
		Short: "Line coverage for a C source file and its test.",
		Long: `ccover builds a C source file together with its test file under gcov
instrumentation, runs the test and reports the line coverage of the source.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.AddCommand(NewRunCommand())

	return cmd
}
