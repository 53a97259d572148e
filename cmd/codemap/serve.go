package main

import (
	"fmt"

	"github.com/jonathan/codemap/internal/server"
	"github.com/jonathan/codemap/internal/server/ratelimit"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the REST API server",
	Long: `Start an HTTP server exposing ranking, gap classification and readiness.
The job corpus loads in the background; requests that need it return 503 until it is ready.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().Int("port", 0, "Port to listen on (default from config, 8080)")
	if err := viper.BindPFlag("server.port", serveCmd.Flags().Lookup("port")); err != nil {
		panic(fmt.Sprintf("failed to bind port flag: %v", err))
	}
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	a, err := setup(ctx, cmd.OutOrStdout(), appOptions{})
	if err != nil {
		return err
	}
	defer a.close()

	rl := ratelimit.DefaultConfig()
	rl.Enabled = a.cfg.RateLimit.Enabled
	rl.DefaultLimit = a.cfg.RateLimit.DefaultLimit
	rl.DefaultWindow = a.cfg.RateLimit.DefaultWindow
	rl.Whitelist = ratelimit.ParseIPList(a.cfg.RateLimit.Whitelist)
	rl.Blacklist = ratelimit.ParseIPList(a.cfg.RateLimit.Blacklist)

	a.svc.Start(ctx)

	srv := server.New(server.Config{
		Port:            a.cfg.Server.Port,
		ShutdownTimeout: a.cfg.Server.ShutdownTimeout,
		RateLimit:       rl,
	}, a.svc, a.logger)
	return srv.Start(ctx)
}
