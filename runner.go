package webflow

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/aretw0/webflow/pkg/domain"
	"github.com/aretw0/webflow/pkg/ports"
)

// Runner drives one execution from a line-oriented console.
// Each input line is an event id optionally followed by key=value parameters;
// an empty line refreshes the current view.
type Runner struct {
	Input    io.Reader
	Output   io.Writer
	Headless bool
	Renderer ViewRenderer
}

// ViewRenderer turns a view selection into text. The default lists the view name and model.
type ViewRenderer func(sel *domain.ViewSelection) (string, error)

// NewRunner creates a Runner. Input and Output must be set before Run.
func NewRunner(in io.Reader, out io.Writer) *Runner {
	return &Runner{Input: in, Output: out}
}

// Run launches flowID on engine and loops until the flow ends, the input is
// exhausted or the user types exit. An abandoned execution stays stored.
func (r *Runner) Run(ctx context.Context, engine ports.FlowExecutor, flowID string, input map[string]any) error {
	if r.Input == nil {
		return fmt.Errorf("input reader must be set (use os.Stdin)")
	}
	if r.Output == nil {
		return fmt.Errorf("output writer must be set (use os.Stdout)")
	}
	lineReader := bufio.NewReader(r.Input)
	writer := r.Output

	if !r.Headless {
		fmt.Fprintf(writer, "--- webflow: %s ---\n", flowID)
	}

	resp, err := engine.Launch(ctx, flowID, input, nil)
	if err != nil {
		return err
	}

	for {
		if err := r.show(resp.View); err != nil {
			return err
		}
		if !resp.Active {
			if !r.Headless {
				fmt.Fprintln(writer, "--- flow ended ---")
			}
			return nil
		}

		if !r.Headless {
			fmt.Fprintf(writer, "[%s] > ", resp.StateID)
		}
		text, err := lineReader.ReadString('\n')
		if err != nil {
			if !errors.Is(err, io.EOF) {
				return fmt.Errorf("input error: %w", err)
			}
			// A final line without newline is still an event.
			if strings.TrimSpace(text) == "" {
				return nil
			}
		}
		line, err := SanitizeInput(text)
		if err != nil {
			return err
		}
		line = strings.TrimSpace(line)

		if line == "exit" || line == "quit" {
			fmt.Fprintf(writer, "Bye! Execution %s is kept.\n", resp.ExecutionID)
			return nil
		}

		var next *ports.Response
		if line == "" {
			next, err = engine.Refresh(ctx, resp.ExecutionID, nil)
		} else {
			eventID, params := ParseEventLine(line)
			if verr := ValidateEventID(eventID); verr != nil {
				fmt.Fprintf(writer, "%v\n", verr)
				continue
			}
			next, err = engine.Resume(ctx, ports.ResumeRequest{
				ExecutionID: resp.ExecutionID,
				EventID:     eventID,
				StateID:     resp.StateID,
				Params:      params,
			}, domain.NewExternalContext(stringParams(params)))
		}
		if err != nil {
			return err
		}
		resp = next
	}
}

func (r *Runner) show(sel *domain.ViewSelection) error {
	if sel.IsNull() {
		return nil
	}
	render := r.Renderer
	if render == nil {
		render = DefaultViewRenderer
	}
	out, err := render(sel)
	if err != nil {
		return fmt.Errorf("render error: %w", err)
	}
	fmt.Fprintln(r.Output, strings.TrimRight(out, "\n"))
	return nil
}

// DefaultViewRenderer prints the view name followed by the model entries in key order.
func DefaultViewRenderer(sel *domain.ViewSelection) (string, error) {
	var b strings.Builder
	b.WriteString(sel.ViewName)
	if sel.Redirect {
		b.WriteString(" (redirect)")
	}
	keys := make([]string, 0, len(sel.Model))
	for k := range sel.Model {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&b, "\n  %s: %v", k, sel.Model[k])
	}
	return b.String(), nil
}

// ParseEventLine splits "event key=value ..." into an event id and its parameters.
// The event token goes through EventToken; other tokens without '=' are ignored.
func ParseEventLine(line string) (string, map[string]any) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return "", nil
	}
	params := make(map[string]any, len(fields)-1)
	for _, f := range fields[1:] {
		if k, v, ok := strings.Cut(f, "="); ok && k != "" {
			params[k] = v
		}
	}
	return EventToken(fields[0]), params
}

func stringParams(params map[string]any) map[string]string {
	out := make(map[string]string, len(params))
	for k, v := range params {
		out[k] = fmt.Sprint(v)
	}
	return out
}
