// Command peaky-minds runs the lead desk: the HTTP API, the operator bot and
// maintenance commands over the record store.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/politifan/school-peaky-minds/internal/application/container"
	"github.com/politifan/school-peaky-minds/internal/application/startup"
	"github.com/politifan/school-peaky-minds/pkg/config"
)

var configPath string

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:           "peaky-minds",
	Short:         "Lead desk for the Peaky Minds school",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if configPath == "" {
			return nil
		}
		if err := config.LoadFile(configPath); err != nil {
			return fmt.Errorf("failed to load config %s: %w", configPath, err)
		}
		return nil
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API, live feed and (when configured) the bot",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withContainer(cmd.Context(), startup.Serve)
	},
}

var botCmd = &cobra.Command{
	Use:   "bot",
	Short: "Run only the operator bot",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withContainer(cmd.Context(), startup.RunBot)
	},
}

// withContainer boots the graph and runs fn until SIGINT or SIGTERM.
func withContainer(parent context.Context, fn func(context.Context, *container.Container) error) error {
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	c, err := startup.Initialize(ctx, os.Stdout)
	if err != nil {
		return err
	}
	defer c.Logger.Close()
	return fn(ctx, c)
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "TOML file with configuration overrides")
	rootCmd.AddCommand(serveCmd, botCmd, exportCmd, whitelistCmd)
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
