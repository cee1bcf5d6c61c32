package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/aretw0/webflow"
	"github.com/aretw0/webflow/internal/config"
	"github.com/aretw0/webflow/pkg/registry"
)

// RunOptions contains all the configuration for the run command.
type RunOptions struct {
	FlowID   string
	Headless bool
	Context  string // Raw JSON object
	Config   *config.Config
	Input    io.Reader
	Output   io.Writer
}

// Execute runs one console session of opts.FlowID until it ends, the input is
// exhausted or ctx is canceled.
func Execute(ctx context.Context, opts RunOptions, flows *registry.Flows) error {
	input, err := parseContext(opts.Context)
	if err != nil {
		return err
	}
	if _, err := flows.GetFlow(opts.FlowID); err != nil {
		return fmt.Errorf("flow %q: %w (available: %v)", opts.FlowID, err, flows.IDs())
	}

	stack, err := NewStack(opts.Config, flows)
	if err != nil {
		return err
	}
	defer func() {
		if err := stack.Close(); err != nil {
			stack.Logger.Warn("Store close failed", "error", err)
		}
	}()

	if !opts.Headless {
		printSystemMessage(opts.Output, "webflow %s, store %s", webflow.Version, opts.Config.Store)
	}

	runner := webflow.NewRunner(opts.Input, opts.Output)
	runner.Headless = opts.Headless
	if err := runner.Run(ctx, stack.Engine, opts.FlowID, input); err != nil {
		return fmt.Errorf("run %s: %w", opts.FlowID, err)
	}
	return nil
}
