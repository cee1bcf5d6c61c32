package observability

import (
	"log/slog"

	"github.com/aretw0/webflow/pkg/domain"
	"github.com/aretw0/webflow/pkg/execution"
	"github.com/aretw0/webflow/pkg/flow"
)

// AuditListener logs every lifecycle step at Info level.
func AuditListener(logger *slog.Logger) *execution.Listener {
	return &execution.Listener{
		OnSessionStarted: func(ctx flow.RequestContext, s flow.Session) {
			logger.Info("session_started",
				"execution", ctx.ExecutionKey(),
				"flow", s.Flow().ID(),
				"root", s.IsRoot(),
			)
		},
		OnStateEntered: func(ctx flow.RequestContext, previous, current flow.State) {
			logger.Info("state_entered",
				"execution", ctx.ExecutionKey(),
				"flow", current.Flow().ID(),
				"from", stateID(previous),
				"state", current.ID(),
				"kind", current.Kind(),
			)
		},
		OnEventSignaled: func(ctx flow.RequestContext, ev *domain.Event) {
			logger.Info("event_signaled",
				"execution", ctx.ExecutionKey(),
				"event", ev.ID(),
			)
		},
		OnPaused: func(ctx flow.RequestContext, sel *domain.ViewSelection) {
			view := ""
			if sel != nil {
				view = sel.ViewName
			}
			logger.Info("paused",
				"execution", ctx.ExecutionKey(),
				"state", stateID(ctx.CurrentState()),
				"view", view,
			)
		},
		OnSessionEnded: func(ctx flow.RequestContext, s flow.Session, output map[string]any) {
			logger.Info("session_ended",
				"execution", ctx.ExecutionKey(),
				"flow", s.Flow().ID(),
				"state", stateID(s.State()),
				"output_keys", len(output),
			)
		},
	}
}
