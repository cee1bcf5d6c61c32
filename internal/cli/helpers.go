package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"

	"github.com/aretw0/webflow/internal/logging"
)

// createLogger configures the application logger.
// Above debug level only warnings and errors reach Stderr, keeping the console flow readable.
func createLogger(level slog.Level, format string) *slog.Logger {
	if level < slog.LevelWarn && level > slog.LevelDebug {
		level = slog.LevelWarn
	}
	return logging.New(level, logging.WithFormat(logging.Format(format)))
}

// printSystemMessage prints a standardized system message.
func printSystemMessage(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, ">>> %s\n", fmt.Sprintf(format, args...))
}

// parseContext decodes the --context JSON object used as flow input.
func parseContext(raw string) (map[string]any, error) {
	if raw == "" {
		return nil, nil
	}
	var input map[string]any
	if err := json.Unmarshal([]byte(raw), &input); err != nil {
		return nil, fmt.Errorf("error parsing --context JSON: %w", err)
	}
	return input, nil
}
