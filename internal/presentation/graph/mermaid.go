package graph

import (
	"fmt"
	"strings"

	"github.com/aretw0/webflow/pkg/execution"
	"github.com/aretw0/webflow/pkg/flow"
)

// Position addresses one state of a flow.
type Position struct {
	FlowID  string
	StateID string
}

// GraphOverlay contains dynamic execution data to visualize on the graph.
type GraphOverlay struct {
	// Suspended are the states of parent sessions waiting on a subflow.
	Suspended []Position
	Current   Position
}

// OverlayFromSnapshot marks the state of every session of an execution.
// The last session is the current one.
func OverlayFromSnapshot(snap *execution.Snapshot) *GraphOverlay {
	if snap == nil || len(snap.Sessions) == 0 {
		return nil
	}
	o := &GraphOverlay{}
	last := len(snap.Sessions) - 1
	for i, s := range snap.Sessions {
		p := Position{FlowID: s.FlowID, StateID: s.StateID}
		if i == last {
			o.Current = p
		} else {
			o.Suspended = append(o.Suspended, p)
		}
	}
	return o
}

// GenerateMermaid produces a Mermaid flowchart for f and its inline flows.
// It applies semantic styling:
// - Action: [Rectangle]
// - View: [/Parallelogram/]
// - Decision: {Rhombus}
// - Subflow: [[Subroutine]]
// - End: ((Circle))
// Inline flows are drawn as subgraphs. Overlay styles are applied if provided.
func GenerateMermaid(f *flow.Flow, overlay *GraphOverlay) string {
	var sb strings.Builder
	sb.WriteString("graph TD\n")

	root := f.ID()
	if start := f.StartState(); start != nil {
		fmt.Fprintf(&sb, "    _start((\" \")) --> %s\n", nodeID(root, root, start.ID()))
	}
	writeStates(&sb, root, f, "    ")

	for _, id := range f.InlineFlowIDs() {
		child := f.InlineFlow(id)
		fmt.Fprintf(&sb, "    subgraph %s [\"%s\"]\n", sanitizeMermaidID("flow_"+id), id)
		writeStates(&sb, root, child, "        ")
		sb.WriteString("    end\n")
	}

	if overlay != nil {
		sb.WriteString("\n    %% Overlay Styles\n")
		// Black text for contrast on light fills in both themes.
		sb.WriteString("    classDef suspended fill:#e1f5fe,stroke:#01579b,stroke-width:2px,color:#000;\n")
		sb.WriteString("    classDef current fill:#ffeb3b,stroke:#fbc02d,stroke-width:4px,color:#000;\n")

		seen := make(map[string]bool)
		for _, p := range overlay.Suspended {
			id := nodeID(root, p.FlowID, p.StateID)
			if p.StateID != "" && !seen[id] {
				seen[id] = true
				fmt.Fprintf(&sb, "    class %s suspended;\n", id)
			}
		}
		if overlay.Current.StateID != "" {
			fmt.Fprintf(&sb, "    class %s current;\n", nodeID(root, overlay.Current.FlowID, overlay.Current.StateID))
		}
	}

	return sb.String()
}

func writeStates(sb *strings.Builder, root string, f *flow.Flow, indent string) {
	for _, s := range f.States() {
		id := nodeID(root, f.ID(), s.ID())

		opener, closer := "[", "]"
		switch s.Kind() {
		case flow.KindView:
			opener, closer = "[/", "/]"
		case flow.KindDecision:
			opener, closer = "{", "}"
		case flow.KindSubflow:
			opener, closer = "[[", "]]"
		case flow.KindEnd:
			opener, closer = "((", "))"
		}
		fmt.Fprintf(sb, "%s%s%s\"%s\"%s\n", indent, id, opener, s.ID(), closer)

		if sub, ok := s.(*flow.SubflowState); ok && sub.Subflow() != nil {
			child := sub.Subflow()
			if f.InlineFlow(child.ID()) != nil {
				if start := child.StartState(); start != nil {
					fmt.Fprintf(sb, "%s%s -.-> %s\n", indent, id, nodeID(root, child.ID(), start.ID()))
				}
			}
		}

		ts, ok := s.(flow.TransitionableState)
		if !ok {
			continue
		}
		for _, t := range ts.Transitions().All() {
			target := t.TargetStateID()
			if target == "" {
				fmt.Fprintf(sb, "%s%%%% %s: dynamic target %s\n", indent, id, escapeLabel(t.Target().String()))
				continue
			}
			to := nodeID(root, f.ID(), target)
			on := t.MatchingCriteria().String()
			if on == "*" {
				fmt.Fprintf(sb, "%s%s --> %s\n", indent, id, to)
				continue
			}
			fmt.Fprintf(sb, "%s%s -- \"%s\" --> %s\n", indent, id, escapeLabel(on), to)
		}
	}
}

// nodeID keeps states of inline flows apart from same-named root states.
func nodeID(root, flowID, stateID string) string {
	if flowID == "" || flowID == root {
		return sanitizeMermaidID(stateID)
	}
	return sanitizeMermaidID(flowID + "__" + stateID)
}

func escapeLabel(s string) string {
	return strings.ReplaceAll(s, "\"", "'")
}

func sanitizeMermaidID(id string) string {
	s := strings.ReplaceAll(id, ".", "_")
	s = strings.ReplaceAll(s, "-", "_")
	s = strings.ReplaceAll(s, "/", "_")
	s = strings.ReplaceAll(s, "\\", "_")
	s = strings.ReplaceAll(s, ":", "_")
	s = strings.ReplaceAll(s, " ", "_")
	return s
}
