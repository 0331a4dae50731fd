// Package cli implements quotectl, a terminal client of the quote engine API.
package cli

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var rootCmd = &cobra.Command{
	Use:   "quotectl",
	Short: "Query quotes and track cross-chain orders",
	Long: `quotectl talks to a running quote engine.

Examples:
  quotectl quote --in-chain 1 --in native --out-chain 1 --out 0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48 --amount 1000000000000000000
  quotectl quote --in-chain 1 --in native --out-chain 42161 --out native --amount 1000000000000000000 --http
  quotectl status ethereum 0xabc...`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command
func Execute() error {
	err := rootCmd.Execute()
	if err != nil {
		printError(err)
	}
	return err
}

func init() {
	rootCmd.PersistentFlags().String("server", "", "Quote engine base URL (default http://localhost:8080)")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "Output in JSON format")
	_ = viper.BindPFlag("server", rootCmd.PersistentFlags().Lookup("server"))

	rootCmd.AddCommand(quoteCmd, statusCmd)
}

func printError(err error) {
	fmt.Fprintf(os.Stderr, "\n%s %v\n\n", color.RedString("Error:"), err)
}
