package cmd

import (
	"context"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/theapemachine/a2a-bridge/pkg/config"
	"github.com/theapemachine/a2a-bridge/pkg/service"
	"github.com/theapemachine/a2a-bridge/pkg/tools"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the bridge server",
	Long:  longServe,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()

		if err != nil {
			return err
		}

		discoveryCtx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
		defer cancel()

		discovered := tools.Discover(discoveryCtx, cfg.MCPServers)

		log.Info("starting bridge",
			"agent", cfg.AgentName,
			"host", cfg.Host,
			"port", cfg.Port,
			"model", cfg.LlamaStackModel,
			"tracking", cfg.TrackingEnabled(),
			"tools", len(discovered),
		)

		srv := service.New(cfg, service.WithTools(tools.Convert(discovered)))

		return srv.Start()
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

var longServe = `
Serve the bridge: the A2A JSON-RPC task endpoint (POST /), agent-card
discovery (GET /.well-known/agent.json), health probes, the /events feed,
and the OpenAI-compatible chat adapter (POST /v1/chat/completions), all on
one listener.
`
