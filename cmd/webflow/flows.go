package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aretw0/webflow/internal/demo"
)

var flowsCmd = &cobra.Command{
	Use:   "flows",
	Short: "List the flows that can be launched",
	RunE: func(cmd *cobra.Command, args []string) error {
		flows, err := demo.Flows()
		if err != nil {
			return err
		}
		for _, id := range flows.IDs() {
			f, _ := flows.GetFlow(id)
			fmt.Fprintf(cmd.OutOrStdout(), "%s\t%d states\n", id, len(f.States()))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(flowsCmd)
}
