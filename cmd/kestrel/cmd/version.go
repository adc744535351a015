package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kestrel-search/kestrel/pkg/version"
)

func newVersionCmd() *cobra.Command {
	var verbose bool

	cmd := &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			if verbose {
				fmt.Println(version.String())
				return
			}
			fmt.Println(version.Short())
		},
	}

	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Include commit, build date, and Go version")
	return cmd
}
