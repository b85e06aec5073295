// Package cmd defines and implements the CLI commands for the ptc
// executable.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/daWurzl/PTC/pkg/config"
)

var cfgFile string

// newRootCmd creates and configures the root command.
func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ptc",
		Short: "A polite crawler for print-trade tender announcements.",
		Long: `ptc fetches a configured set of tender portal pages, honors each
domain's robots.txt rules and crawl delays, matches page text against the
configured CPV codes and keywords, and writes the matching titles and links
to CSV or JSON.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(*cobra.Command, []string) error {
			if err := config.Init(cfgFile); err != nil {
				return fmt.Errorf("initialize configuration: %w", err)
			}
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./config.yaml)")
	cmd.AddCommand(newCrawlCmd())
	return cmd
}

// Execute is the main entry point.
func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func activeViper() *viper.Viper {
	return viper.GetViper()
}
