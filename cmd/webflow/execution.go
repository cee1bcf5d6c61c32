package main

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var executionCmd = &cobra.Command{
	Use:     "execution",
	Aliases: []string{"exec"},
	Short:   "Manage stored executions",
	Long:    `List, inspect, and remove the paused executions kept by the configured store.`,
}

var executionLsCmd = &cobra.Command{
	Use:   "ls",
	Short: "List all stored executions",
	RunE: func(cmd *cobra.Command, args []string) error {
		stack, _, err := newStack(cmd)
		if err != nil {
			return err
		}
		defer stack.Close()

		ids, err := stack.Engine.List(cmd.Context())
		if err != nil {
			return fmt.Errorf("error listing executions: %w", err)
		}

		out := cmd.OutOrStdout()
		if len(ids) == 0 {
			fmt.Fprintln(out, "No stored executions found.")
			return nil
		}
		fmt.Fprintln(out, "Stored Executions:")
		for _, id := range ids {
			fmt.Fprintln(out, "- "+id)
		}
		return nil
	},
}

var executionInspectCmd = &cobra.Command{
	Use:   "inspect <execution-id>",
	Short: "Inspect the sessions and scopes of an execution",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		format, _ := cmd.Flags().GetString("output")

		stack, _, err := newStack(cmd)
		if err != nil {
			return err
		}
		defer stack.Close()

		snap, err := stack.Engine.Inspect(cmd.Context(), args[0])
		if err != nil {
			return fmt.Errorf("error loading execution '%s': %w", args[0], err)
		}

		var data []byte
		switch format {
		case "json":
			data, err = json.MarshalIndent(snap, "", "  ")
		case "yaml":
			data, err = yaml.Marshal(snap)
		default:
			return fmt.Errorf("unknown output format %q (json or yaml)", format)
		}
		if err != nil {
			return fmt.Errorf("error marshaling execution: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(data))
		return nil
	},
}

var executionRmCmd = &cobra.Command{
	Use:   "rm <execution-id>...",
	Short: "Remove one or more executions",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		stack, _, err := newStack(cmd)
		if err != nil {
			return err
		}
		defer stack.Close()

		out := cmd.OutOrStdout()
		var errs []error
		for _, id := range args {
			if err := stack.Engine.Remove(cmd.Context(), id); err != nil {
				fmt.Fprintf(out, "Error removing '%s': %v\n", id, err)
				errs = append(errs, err)
				continue
			}
			fmt.Fprintf(out, "Removed execution '%s'\n", id)
		}
		return errors.Join(errs...)
	},
}

func init() {
	rootCmd.AddCommand(executionCmd)
	executionCmd.AddCommand(executionLsCmd)
	executionCmd.AddCommand(executionInspectCmd)
	executionCmd.AddCommand(executionRmCmd)

	executionInspectCmd.Flags().StringP("output", "o", "json", "Output format: json or yaml")
}
