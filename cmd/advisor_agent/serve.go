package main

import (
	"github.com/spf13/cobra"

	"github.com/jonathan/application-advisor/internal/server"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the REST API server",
	Long:  `Start an HTTP server that exposes the advisory turn API, including SSE streaming of replies.`,
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "Port to listen on (overrides config)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	a, err := newApp(cmd.Context(), true)
	if err != nil {
		return err
	}
	defer a.close()

	port := a.cfg.Port
	if servePort != 0 {
		port = servePort
	}

	srv := server.New(server.Config{
		Port:    port,
		Advisor: a.orch,
		Logger:  a.logger,
	})
	return srv.Start()
}
