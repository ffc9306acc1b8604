package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"banana-slides/internal/version"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the banana-slides version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("banana-slides %s\n", version.Get())
	},
}
