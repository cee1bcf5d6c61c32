package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/aretw0/webflow/internal/cli"
	"github.com/aretw0/webflow/internal/config"
	"github.com/aretw0/webflow/internal/demo"
)

// runCmd represents the run command
var runCmd = &cobra.Command{
	Use:   "run <flow>",
	Short: "Run a flow interactively in the console",
	Long: `Launches a flow and drives it from standard input. Each line is an event id
followed by optional key=value parameters; an empty line refreshes the view and
"exit" leaves the execution stored.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		headless, _ := cmd.Flags().GetBool("headless")
		input, _ := cmd.Flags().GetString("context")

		cfg, err := config.Load(cmd.Flags())
		if err != nil {
			fmt.Printf("Error: %v\n", err)
			os.Exit(1)
		}
		flows, err := demo.Flows()
		if err != nil {
			fmt.Printf("Error: %v\n", err)
			os.Exit(1)
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		err = cli.Execute(ctx, cli.RunOptions{
			FlowID:   args[0],
			Headless: headless,
			Context:  input,
			Config:   cfg,
			Input:    os.Stdin,
			Output:   os.Stdout,
		}, flows)
		if err != nil {
			fmt.Printf("Error: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().Bool("headless", false, "Run in headless mode (no prompts, strict IO)")
	runCmd.Flags().String("context", "", "Initial flow input as a JSON object")
}
