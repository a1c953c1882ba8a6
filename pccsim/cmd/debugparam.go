package cmd

import (
	"fmt"
	"strings"

	"github.com/sarchlab/pcc/pcc"
	"github.com/spf13/cobra"
)

var debugParamCmd = &cobra.Command{
	Use:   "debug-param <param string>",
	Short: "Parse a debug parameter string and print the result.",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := pcc.ParseDebugParams(strings.Join(args, " "), pcc.DebugParams{})
		if err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "usage:\n%s", pcc.DebugUsage())
			return err
		}

		fmt.Fprint(cmd.OutOrStdout(), p.String())

		return nil
	},
}

func init() {
	rootCmd.AddCommand(debugParamCmd)
}
