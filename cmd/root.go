/*
Package cmd implements the command-line interface for the a2a-bridge
services.  All runtime configuration comes from the environment; the CLI
only selects which surface to serve.
*/
package cmd

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "a2a-bridge",
	Short: "Adapter services bridging kagent, Llama Stack and MLflow",
	Long:  longRoot,
}

/*
Execute is the main entry point for the a2a-bridge CLI.
*/
func Execute() error {
	return rootCmd.Execute()
}

var longRoot = `
a2a-bridge exposes an agent over the A2A JSON-RPC protocol, backed by a
Llama Stack model gateway, with optional vector-store retrieval and MLflow
experiment tracking.

Configuration is read from the environment (AGENT_NAME, PORT,
LLAMASTACK_URL, VECTOR_STORE_ID, MLFLOW_TRACKING_URI, ...); malformed
values abort startup.
`
