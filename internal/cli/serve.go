package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/valter-silva-au/kiya/internal/httpapi"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the assistant over HTTP",
	Long: `Start the HTTP API so browser and script clients can chat with the assistant.

Routes: GET /healthz, GET|POST|DELETE /api/messages, DELETE /api/messages/{id},
GET /api/tasks, GET|PUT|DELETE /api/credential, POST /api/speech/stop and
POST /api/speech/mute. The listen address defaults to server.addr.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if Conversation == nil {
			return fmt.Errorf("conversation not initialized")
		}

		addr := serveAddr
		var origins []string
		if Config != nil {
			if addr == "" {
				addr = Config.Server.Addr
			}
			origins = Config.Server.AllowedOrigins
		}
		if addr == "" {
			addr = "127.0.0.1:8080"
		}

		srv := httpapi.NewServer(httpapi.Deps{
			Conversation:   Conversation,
			Tasks:          Tasks,
			Credentials:    Credentials,
			AllowedOrigins: origins,
			Logger:         Logger.With().Str("component", "httpapi").Logger(),
		})

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		fmt.Fprintf(cmd.OutOrStdout(), "Listening on http://%s\n", addr)
		if err := srv.ListenAndServe(ctx, addr); err != nil {
			return fmt.Errorf("serving HTTP: %w", err)
		}
		return nil
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "Listen address (overrides server.addr)")
	rootCmd.AddCommand(serveCmd)
}
