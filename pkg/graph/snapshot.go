package graph

import (
	"fmt"

	"github.com/flowgrid/flowgrid/pkg/models"
)

// Snapshot is an indexed, read-only view of a graph frozen at execution start.
// The engine walks the snapshot stored on the execution record, so edits to
// the live workflow never reach in-flight runs.
type Snapshot struct {
	nodes    map[string]*models.Node
	outgoing map[string][]*models.Edge
	trigger  *models.Node
}

// NewSnapshot indexes the given frozen node and edge sets. It expects a graph
// that already passed validation; a snapshot without a trigger node is
// reported as corrupt by the accessors.
func NewSnapshot(nodes []*models.Node, edges []*models.Edge) *Snapshot {
	s := &Snapshot{
		nodes:    make(map[string]*models.Node, len(nodes)),
		outgoing: make(map[string][]*models.Edge),
	}

	for _, node := range nodes {
		s.nodes[node.ID] = node

		if node.Kind == models.NodeKindTrigger {
			s.trigger = node
		}
	}

	for _, edge := range edges {
		s.outgoing[edge.Source] = append(s.outgoing[edge.Source], edge)
	}

	return s
}

// Copy deep-copies nodes and edges for freezing onto an execution record.
func Copy(nodes []*models.Node, edges []*models.Edge) ([]*models.Node, []*models.Edge) {
	frozenNodes := make([]*models.Node, 0, len(nodes))

	for _, node := range nodes {
		clone := *node

		if node.Position != nil {
			position := *node.Position
			clone.Position = &position
		}

		if node.Trigger != nil {
			trigger := *node.Trigger
			clone.Trigger = &trigger
		}

		if node.Action != nil {
			action := *node.Action
			action.Config = copyMap(node.Action.Config)
			clone.Action = &action
		}

		if node.Condition != nil {
			condition := *node.Condition
			clone.Condition = &condition
		}

		frozenNodes = append(frozenNodes, &clone)
	}

	frozenEdges := make([]*models.Edge, 0, len(edges))

	for _, edge := range edges {
		clone := *edge
		frozenEdges = append(frozenEdges, &clone)
	}

	return frozenNodes, frozenEdges
}

func copyMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}

	out := make(map[string]any, len(m))

	for k, v := range m {
		if nested, ok := v.(map[string]any); ok {
			out[k] = copyMap(nested)

			continue
		}

		out[k] = v
	}

	return out
}

// Node returns the node with the given id.
func (s *Snapshot) Node(id string) (*models.Node, error) {
	node, ok := s.nodes[id]
	if !ok {
		return nil, fmt.Errorf("node %s not present in execution snapshot", id)
	}

	return node, nil
}

// EntryNodeID returns the trigger's single successor, where interpretation
// begins.
func (s *Snapshot) EntryNodeID() (string, error) {
	if s.trigger == nil {
		return "", fmt.Errorf("execution snapshot has no trigger node")
	}

	return s.Successor(s.trigger.ID)
}

// Successor returns the target of the node's single outgoing edge.
func (s *Snapshot) Successor(nodeID string) (string, error) {
	edges := s.outgoing[nodeID]
	if len(edges) != 1 {
		return "", fmt.Errorf("node %s has %d outgoing edges, expected 1", nodeID, len(edges))
	}

	return edges[0].Target, nil
}

// BranchTarget returns the target of the condition node's edge labeled with
// the given decision.
func (s *Snapshot) BranchTarget(nodeID string, decision bool) (string, error) {
	branch := models.BranchFalse
	if decision {
		branch = models.BranchTrue
	}

	for _, edge := range s.outgoing[nodeID] {
		if edge.Branch == branch {
			return edge.Target, nil
		}
	}

	return "", fmt.Errorf("condition node %s has no %s branch", nodeID, branch)
}
