// Package cmd provides the CLI commands for the corehttpd example binary.
//
// corehttpd is a thin consumer of the pkg/corehttp library: it wires a
// config file to a running server and demonstrates the embeddable API. It
// is not part of the core itself (spec.md §1 places CLI wrappers out of
// scope as an external collaborator).
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/corehttp/corehttp/internal/config"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "corehttpd",
	Short: "corehttpd - example host process for the embeddable HTTP core",
	Long: `corehttpd hosts the embeddable HTTP/1.1 server core defined in
pkg/corehttp behind a small CLI.

Configuration is loaded from corehttp.yaml in the current directory,
$HOME/.corehttp/, or /etc/corehttp/.

Environment variables can override config values with the CORE_HTTP_ prefix.
Example: CORE_HTTP_SERVER_ADDR=:9090

Commands:
  serve       Start the HTTP server
  version     Print version information`,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./corehttp.yaml)")
}

func initConfig() {
	config.InitViper(cfgFile)
}
