package root

import (
	"github.com/spf13/cobra"
)

// Exported RootCmd
var RootCmd = &cobra.Command{
	Use:           "detector",
	Short:         "Resource monitoring CLI",
	Long:          "Command line interface for the resource monitoring API: manage monitored URLs and read their scan history.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Optional helper to return the RootCmd
func GetRoot() *cobra.Command {
	return RootCmd
}
