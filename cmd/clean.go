package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/tanq16/rangefetch/internal/output"
	"github.com/tanq16/rangefetch/internal/utils"
)

func newCleanCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clean [destinationPath]",
		Short: "Remove saved resume metadata for a destination",
		Args:  cobra.MaximumNArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			path := utils.DefaultOutputPath
			if len(args) > 0 {
				path = args[0]
			}
			if err := utils.Clean(path); err != nil {
				output.PrintError(fmt.Sprintf("Error cleaning up metadata: %v", err))
				os.Exit(1)
			}
			output.PrintSuccess(fmt.Sprintf("%s Metadata for %s cleaned up", output.StyleSymbols["pass"], path))
		},
	}
}
