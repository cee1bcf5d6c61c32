package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/aretw0/webflow/internal/cli"
	"github.com/aretw0/webflow/internal/config"
	"github.com/aretw0/webflow/internal/demo"
)

var rootCmd = &cobra.Command{
	Use:   "webflow",
	Short: "webflow runs interruptible flows that pause on views and resume on events",
	Long: `webflow executes flow definitions one request at a time: each event moves an
execution forward until it pauses on a view, and the execution is stored until the next event.

Settings come from flags, WEBFLOW_* environment variables or a config file.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	// Persistent flags (available to all commands)
	config.RegisterFlags(rootCmd.PersistentFlags())
}

// newStack resolves the configuration of cmd and wires an engine over the sample flows.
func newStack(cmd *cobra.Command) (*cli.Stack, *config.Config, error) {
	cfg, err := config.Load(cmd.Flags())
	if err != nil {
		return nil, nil, err
	}
	flows, err := demo.Flows()
	if err != nil {
		return nil, nil, err
	}
	stack, err := cli.NewStack(cfg, flows)
	if err != nil {
		return nil, nil, err
	}
	return stack, cfg, nil
}
