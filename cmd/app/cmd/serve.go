package cmd

import (
	"log/slog"
	"net/http"

	"commander_go/internal/api"

	"github.com/spf13/cobra"

	_ "net/http/pprof" // For pprof profiling
)

var (
	serveAddr  string
	servePprof string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP bridge for external callers",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		if servePprof != "" {
			go func() {
				slog.Info("Pprof server started", slog.String("addr", servePprof))
				if err := http.ListenAndServe(servePprof, nil); err != nil {
					slog.Error("Pprof server failed", slog.Any("error", err))
				}
			}()
		}

		addr := serveAddr
		if addr == "" {
			addr = boot.Config.Server.Addr
		}

		srv := api.NewServer(ctx, boot.Resolver, boot.Batches, boot.Settings, boot.Config.PollInterval())
		return srv.ListenAndServe(ctx, addr)
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default from config)")
	serveCmd.Flags().StringVar(&servePprof, "pprof", "", "also serve pprof on this address, e.g. localhost:6060")
}
