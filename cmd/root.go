package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

// rootCmd represents the base command for the agendahook application
var rootCmd = &cobra.Command{
	Use:   "agendahook",
	Short: "Posts tomorrow's Google Calendar schedule to a chat webhook",
	Long: `agendahook collects tomorrow's events from one or more Google Calendars,
formats them as a short Markdown digest and posts it to a Discord-compatible
webhook.

It can run as:
  - A one-shot CLI command (run), e.g. from cron or a CI job
  - A long-running trigger server (serve) with an optional built-in schedule`,
	SilenceUsage: true,
}

// version will be set by main
var version = "dev"

// Global flags shared by every subcommand.
var (
	configPath string
	logLevel   string
	debugMode  bool
)

// SetVersion sets the version for the root command
func SetVersion(v string) {
	version = v
	rootCmd.Version = v
}

// Execute is the main entry point for the CLI application
func Execute() {
	rootCmd.SetVersionTemplate(`{{printf "agendahook version %s\n" .Version}}`)

	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to the YAML config file (default \"agendahook.yaml\", env AGENDAHOOK_CONFIG)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level override: debug, info, warn, error")
	rootCmd.PersistentFlags().BoolVar(&debugMode, "debug", false, "Enable debug logging (same as --log-level debug)")

	rootCmd.AddCommand(newRunCmd())
	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newAuthCmd())
	rootCmd.AddCommand(newPreviewCmd())
	rootCmd.AddCommand(newVersionCmd())
}
