// Package cli implements the listforge command line: the serve daemon and
// voucher administration.
package cli

import (
	"github.com/spf13/cobra"

	"github.com/listforge/listforge/internal/daemon"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "listforge",
	Short: "AI-assisted Amazon listing builder",
	Long: `listforge turns a product photo into a complete Amazon listing:
identification, category, SEO copy, an imagery plan, optional A+ content
and a promo video script, exported as a ready-to-upload bundle.

Generation stages are metered in credits; credits come from vouchers.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", daemon.DefaultConfigPath(), "path to config.toml")
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
