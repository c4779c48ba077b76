// Command bureau is a multi-tenant back office for accounting and visitor management.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/jkaninda/bureau/internal/config"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "bureau",
	Short: "Bureau: multi-tenant back office for accounting and visitor management.",
	Long: `Bureau serves several companies from one deployment. Every request is
resolved to a single company and every record it reads or writes is scoped
to that company.`,
	RunE:          runServe, // Default to serve mode.
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", config.DefaultConfigPath(), "path to config file")
	rootCmd.AddCommand(serveCmd, migrateCmd, companyCmd, userCmd, accountingCmd, visitsCmd, versionCmd)
	_ = godotenv.Load()
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}
