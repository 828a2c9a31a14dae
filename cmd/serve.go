package cmd

import (
	"github.com/emrgen/coa/internal/config"
	"github.com/emrgen/coa/internal/server"
	"github.com/spf13/cobra"
)

func serveCmd() *cobra.Command {
	var port string

	command := &cobra.Command{
		Use:   "serve",
		Short: "Start the http server and background jobs",
		Run: func(cmd *cobra.Command, args []string) {
			cfg := config.LoadConfig()
			if port != "" {
				cfg.Port = port
			}
			server.NewServer(cfg).Start()
		},
	}

	command.Flags().StringVarP(&port, "port", "p", "", "port to listen on (defaults to PORT)")

	return command
}
