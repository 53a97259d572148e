// Package main provides the codemap CLI: the matching API server plus
// one-shot ranking, gap and cache commands.
package main

import (
	"fmt"
	"os"

	"github.com/jonathan/codemap/internal/config"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile      string
	outputFormat string
)

var rootCmd = &cobra.Command{
	Use:   config.Name,
	Short: "Match candidate profiles to job postings and report skill gaps",
	Long: "codemap ranks a job corpus against a candidate's assessment profile by embedding similarity " +
		"and classifies each required skill and knowledge area as Achieved, Weak or Missing.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "a config file (default is codemap.yaml in current directory)")
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "output", "o", "text", "output format: text or json")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "verbose/debug output")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "json format for logging")
	rootCmd.PersistentFlags().String("data-dir", "", "directory holding the job corpus CSV files")
	rootCmd.PersistentFlags().String("store", "", "persistence backend: postgres or memory")

	for _, name := range []string{"debug", "json", "data-dir", "store"} {
		if err := viper.BindPFlag(name, rootCmd.PersistentFlags().Lookup(name)); err != nil {
			panic(fmt.Sprintf("failed to bind %s flag: %v", name, err))
		}
	}
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func loadConfig() (*config.Config, error) {
	return config.Load(viper.GetViper(), cfgFile)
}
