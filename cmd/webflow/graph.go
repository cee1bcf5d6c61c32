package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aretw0/webflow/internal/demo"
	"github.com/aretw0/webflow/internal/presentation/graph"
)

// graphCmd represents the graph command
var graphCmd = &cobra.Command{
	Use:   "graph <flow>",
	Short: "Export the flow graph visualization",
	Long: `Outputs a Mermaid diagram (graph TD) of a flow and its inline subflows.
With --execution the states of a stored execution are highlighted.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		executionID, _ := cmd.Flags().GetString("execution")

		flows, err := demo.Flows()
		if err != nil {
			return err
		}
		f, err := flows.GetFlow(args[0])
		if err != nil {
			return err
		}

		var overlay *graph.GraphOverlay
		if executionID != "" {
			stack, _, err := newStack(cmd)
			if err != nil {
				return err
			}
			defer stack.Close()

			snap, err := stack.Engine.Inspect(cmd.Context(), executionID)
			if err != nil {
				return fmt.Errorf("inspect %s: %w", executionID, err)
			}
			overlay = graph.OverlayFromSnapshot(snap)
		}

		fmt.Fprint(cmd.OutOrStdout(), graph.GenerateMermaid(f, overlay))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(graphCmd)
	graphCmd.Flags().String("execution", "", "Highlight the position of a stored execution")
}
