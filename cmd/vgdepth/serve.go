package main

import (
	"github.com/spf13/cobra"
	"github.com/vgkit/vgdepth/pkg/serve"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run as a streaming query server",
	Long: `Run vgdepth as a long-lived streaming server that accepts depth queries
via stdin and writes results to stdout using NDJSON format.

The graph is loaded once at startup. Requests are processed until stdin
closes, a "close" request arrives or SIGTERM is received. A bad request is
answered with an error response and does not stop the server.`,
	Annotations: map[string]string{usesConfig: "true"},
	Args:        cobra.NoArgs,
	RunE:        runServe,
}

func init() {
	addGraphFlags(serveCmd)
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	exec, err := newExecutor()
	if err != nil {
		return err
	}

	// Set up signal handling
	ctx, cancel := signalContext()
	defer cancel()

	// Create and run server
	srv := serve.NewServer(exec, cmd.InOrStdin(), cmd.OutOrStdout())
	return srv.Run(ctx)
}
