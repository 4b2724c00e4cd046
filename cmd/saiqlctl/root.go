package main

import (
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	configPath  string
	dbPath      string
	dialectName string
	outputJSON  bool
)

var rootCmd = &cobra.Command{
	Use:   "saiqlctl",
	Short: "saiqlctl compiles and runs SAIQL queries against a configured backend",
	Long:  "saiqlctl is a thin client over the SAIQL engine: it loads configuration, builds an engine instance, and executes queries or batches against it.",
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to a saiqlctl.yaml config file (defaults to the built-in configuration)")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "override the database path from config")
	rootCmd.PersistentFlags().StringVar(&dialectName, "dialect", "", "override the target SQL dialect from config")
	rootCmd.PersistentFlags().BoolVar(&outputJSON, "json", true, "print results as JSON (set to false for plain text lines)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		logrus.StandardLogger().Fatal(err)
	}
}
