// Package cli provides the command-line interface for Fissio
package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/fissio/fissio/pkg/config"
	"github.com/fissio/fissio/pkg/types"
)

var (
	cfgFile   string
	workDir   string
	verbosity string
	version   string
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "fissio",
	Short: "Split integers by racing factoring algorithms",
	Long: `Fissio factors a positive integer N into two nontrivial factors by racing
several independent factoring algorithms (Pollard's p-1, Pollard's rho) as
concurrent workers and adopting the first valid result. Numbers with small
factors resolve through a sequential trial-division pre-filter; if no factor
is found within the time budget, N is reported as probably prime.`,

	Run: func(cmd *cobra.Command, args []string) {
		if v, _ := cmd.Flags().GetBool("version"); v {
			fmt.Printf("fissio v%s\n", version)
			return
		}
		// If no subcommand, show help
		cmd.Help()
	},
}

// Execute runs the CLI
func Execute(v string) error {
	version = v

	// Initialize the root command explicitly (avoiding init())
	initializeRootCommand()

	return rootCmd.Execute()
}

// initializeRootCommand sets up the root command and its flags.
// This replaces the init() function to make initialization explicit and testable.
func initializeRootCommand() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: fissio.config.json)")
	rootCmd.PersistentFlags().StringVar(&workDir, "dir", ".", "working directory")
	rootCmd.PersistentFlags().StringVarP(&verbosity, "verbosity", "v", "info", "log level (debug, info, warn, error)")

	rootCmd.Flags().Bool("version", false, "Print version information and quit")

	// Add subcommands
	rootCmd.AddCommand(newFactorCmd())
	rootCmd.AddCommand(newInitCmd())
	rootCmd.AddCommand(newVersionCmd())
}

func initConfig() {
	if cfgFile != "" {
		// Use config file from flag
		viper.SetConfigFile(cfgFile)
	} else {
		// Search for config in the working directory
		viper.AddConfigPath(workDir)
		viper.SetConfigName("fissio.config")
		viper.SetConfigType("json")

		// Also try YAML
		viper.SetConfigName("fissio.config")
		viper.SetConfigType("yaml")
	}

	// Read in environment variables
	viper.SetEnvPrefix("FISSIO")
	viper.AutomaticEnv()

	// Read config file
	if err := viper.ReadInConfig(); err == nil {
		if verbosity == "debug" {
			fmt.Println("Using config file:", viper.ConfigFileUsed())
		}
	}
}

// Helper functions

func printSuccess(message string) {
	fmt.Printf("%s %s\n", color.GreenString("[fissio]"), message)
}

func printError(message string) {
	fmt.Fprintf(os.Stderr, "%s %s\n", color.RedString("[fissio]"), message)
}

func printInfo(message string) {
	fmt.Printf("%s %s\n", color.CyanString("[fissio]"), message)
}

func getConfigPath() string {
	if cfgFile != "" {
		return cfgFile
	}
	if used := viper.ConfigFileUsed(); used != "" {
		return used
	}
	return filepath.Join(workDir, "fissio.config.json")
}

// loadConfig returns the config from disk, or the defaults when no config
// file exists.
func loadConfig() (*types.EngineConfig, error) {
	mgr := config.NewManager()

	path := getConfigPath()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return mgr.GetDefaultConfig(), nil
	}
	return mgr.LoadConfig(path)
}
