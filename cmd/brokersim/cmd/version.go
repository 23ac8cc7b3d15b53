package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

const version = "0.3.0"

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Long:  `Display the current version of the brokersim CLI.`,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("brokersim version %s\n", version)
		fmt.Println("A mock broker that simulates realistic order execution")
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
