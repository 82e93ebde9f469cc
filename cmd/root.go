package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/nabeeladzan/lxfu/internal/config"
)

var (
	cfgFile string
	logJSON bool
)

var rootCmd = &cobra.Command{
	Use:   "lxfu",
	Short: "Face verification for Linux login",
	Long: `lxfu enrolls face profiles from a webcam and verifies them for
authentication. It runs as a D-Bus service consumed by a PAM helper and
ships a CLI for enrollment and profile management.`,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initEnv)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Path to a config file (default: standard locations)")
	rootCmd.PersistentFlags().BoolVar(&logJSON, "log-json", false, "Emit logs as JSON")
}

func initEnv() {
	// .env file is optional, don't fail if not found
	_ = godotenv.Load()
}

func loadConfig() (*config.Config, error) {
	return config.Load(cfgFile)
}

func newLogger() *slog.Logger {
	if logJSON {
		return slog.New(slog.NewJSONHandler(os.Stderr, nil))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, nil))
}
