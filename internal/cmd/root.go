package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "shop-admin",
	Short: "Shop admin backend: product catalog, orders and sessions",
	Long: `shop-admin serves the product catalog and order management API over
HTTP and gRPC, backed by a versioned key/value state store.

Use "serve" to run the API and "seed" to load a sample catalog.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to config file (default: search ./, ./deploy/, /etc/shop-admin/)")
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
