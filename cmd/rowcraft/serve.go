package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/koustreak/rowcraft/internal/server"
	"github.com/spf13/cobra"
)

var serveListen string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the local JSON API",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		st, _, err := connect(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		exp, err := newExporter(ctx)
		if err != nil {
			return err
		}

		addr := serveListen
		if addr == "" {
			addr = cfg.Server.Listen
		}
		return server.New(st, exp, log, cfg.Browse.PageSize).ListenAndServe(ctx, addr)
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveListen, "listen", "", "Address to listen on (default: server.listen)")
	rootCmd.AddCommand(serveCmd)
}
