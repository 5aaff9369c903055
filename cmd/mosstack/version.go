package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of mosstack",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("mosstack version 0.2.0")
	},
}
