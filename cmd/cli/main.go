package main

import (
	"fmt"
	"os"

	"github.com/crucial707/detector/cmd/cli/auth"
	"github.com/crucial707/detector/cmd/cli/history"
	"github.com/crucial707/detector/cmd/cli/resources"
	"github.com/crucial707/detector/cmd/cli/root"
)

func main() {
	rootCmd := root.GetRoot()
	auth.InitAuth(rootCmd)
	resources.InitResources(rootCmd)
	history.InitHistory(rootCmd)

	// Execute the root Cobra command
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
