package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var version = "dev"

var (
	cfgFile string
	noColor bool
)

var rootCmd = &cobra.Command{
	Use:           "jobpilot",
	Short:         "Job posting automation advisor",
	Long:          "jobpilot analyzes job postings for automation potential and recommends matching workflows and agents from a multi-source catalog.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the jobpilot version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("jobpilot version %s\n", version)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default jobpilot.yaml in the working directory)")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(refreshCmd)
	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		printError("%v", err)
		os.Exit(1)
	}
}
