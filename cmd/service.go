package cmd

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/nabeeladzan/lxfu/internal/service"
)

var serviceCmd = &cobra.Command{
	Use:   "service",
	Short: "Run the face verification daemon",
	Long: `Run the daemon that owns the camera and the profile store and exposes
verification on the D-Bus system bus. PAM helpers and other clients claim
the device, start a verification and wait for its status signal.

Examples:
  # Run on the system bus
  lxfu service

  # Develop against the session bus with the HTTP API enabled
  lxfu service --session --http`,
	Args: cobra.NoArgs,
	RunE: runService,
}

func init() {
	rootCmd.AddCommand(serviceCmd)

	serviceCmd.Flags().Bool("http", false, "Serve the HTTP introspection API")
	serviceCmd.Flags().Bool("session", false, "Use the session bus instead of the system bus")
}

func runService(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := newLogger()

	opts := service.Options{
		UseSessionBus: mustGetBool(cmd, "session"),
	}
	if mustGetBool(cmd, "http") {
		opts.HTTPAddr = cfg.HTTPAddr
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return service.Run(ctx, cfg, opts, logger)
}
