package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/yungbote/neurobridge-assistant/internal/app"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		Long: `Start the HTTP API on $PORT (default 8080).

Background ingestion runs in-process unless TEMPORAL_ADDRESS is set,
in which case documents are handed to 'assistant worker'.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				return a.Serve(ctx)
			})
		},
	}
}
