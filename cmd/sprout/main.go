// Command sprout serves and inspects sprout applications.
package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/vango-dev/sprout/internal/errors"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

const banner = `
  ┌─┐┌─┐┬─┐┌─┐┬ ┬┌┬┐
  └─┐├─┘├┬┘│ ││ │ │
  └─┘┴  ┴└─└─┘└─┘ ┴
`

func main() {
	if err := rootCmd().Execute(); err != nil {
		errors.Print(os.Stderr, err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "sprout",
		Short: "Server-driven virtual DOM runtime",
		Long: `sprout renders application trees on the server and streams
minimal binary patches to a thin frontend over a WebSocket.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(
		serveCmd(),
		inspectCmd(),
		versionCmd(),
	)
	return root
}
