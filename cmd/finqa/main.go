package main

import (
	"fmt"
	"os"

	"balance-sheet-rag/internal/config"
	"balance-sheet-rag/internal/logging"

	"github.com/spf13/cobra"
)

var (
	configPath string
	cfg        *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "finqa",
	Short: "Ask questions about financial reports",
	Long: `finqa ingests annual reports and balance sheets into PostgreSQL and answers
questions about them with retrieved passages, extracted metrics and charts.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := config.Load(configPath)
		if err != nil {
			return err
		}
		if err := loaded.Validate(); err != nil {
			return fmt.Errorf("invalid configuration: %w", err)
		}
		if err := logging.Setup(loaded.Log.Level, loaded.Log.Format, os.Stderr); err != nil {
			return err
		}
		cfg = loaded
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to a YAML config file")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
