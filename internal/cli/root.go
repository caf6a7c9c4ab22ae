// Package cli implements the plenario command tree.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile string
	verbose bool
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "plenario",
	Short: "Plenario - legislative bill monitor for Brazilian chambers",
	Long: `Plenario watches the Câmara dos Deputados and the Senado Federal for
newly filed bills, matches them against a client keyword taxonomy, and
maintains per-chamber and per-client tables of the hits.

A separate pass labels each tracked bill's alignment with the client
organization's mission using a language model.`,
	SilenceErrors: true,
	SilenceUsage:  true,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

// versionCmd represents the version command
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("plenario v0.3.0")
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "plenario.yaml", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	// Bind flags to viper
	_ = viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))

	// Add subcommands
	rootCmd.AddCommand(versionCmd)
}

// initConfig reads in environment variables that match PLENARIO_*
func initConfig() {
	viper.SetEnvPrefix("PLENARIO")
	viper.AutomaticEnv()

	if verbose {
		fmt.Fprintf(os.Stderr, "Using config file: %s\n", cfgFile)
	}
}
