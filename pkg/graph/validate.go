package graph

import (
	"github.com/flowgrid/flowgrid/pkg/models"
)

// Validate runs every static check on a workflow definition and returns the
// first failure as a *Error. It is a pure function: saving an invalid draft is
// allowed, but a workflow must pass validation before it can be enabled or
// manually run.
func Validate(workflow *models.Workflow) error {
	trigger, err := findTrigger(workflow)
	if err != nil {
		return err
	}

	nodesByID := make(map[string]*models.Node, len(workflow.Nodes))
	for _, node := range workflow.Nodes {
		nodesByID[node.ID] = node
	}

	outgoing := make(map[string][]*models.Edge)

	for _, edge := range workflow.Edges {
		if _, ok := nodesByID[edge.Source]; !ok {
			return &Error{Kind: ErrDanglingEdge, EdgeID: edge.ID, Detail: "unknown source node " + edge.Source}
		}

		if _, ok := nodesByID[edge.Target]; !ok {
			return &Error{Kind: ErrDanglingEdge, EdgeID: edge.ID, Detail: "unknown target node " + edge.Target}
		}

		outgoing[edge.Source] = append(outgoing[edge.Source], edge)
	}

	if err := checkOutgoing(workflow.Nodes, outgoing); err != nil {
		return err
	}

	if err := checkReachability(workflow.Nodes, outgoing, trigger.ID); err != nil {
		return err
	}

	return checkAcyclic(workflow.Nodes, outgoing)
}

func findTrigger(workflow *models.Workflow) (*models.Node, error) {
	var trigger *models.Node

	for _, node := range workflow.Nodes {
		if node.Kind != models.NodeKindTrigger {
			continue
		}

		if trigger != nil {
			return nil, &Error{Kind: ErrMultipleTriggers, NodeID: node.ID}
		}

		trigger = node
	}

	if trigger == nil {
		return nil, &Error{Kind: ErrMissingTrigger}
	}

	return trigger, nil
}

func checkOutgoing(nodes []*models.Node, outgoing map[string][]*models.Edge) error {
	for _, node := range nodes {
		edges := outgoing[node.ID]

		switch node.Kind {
		case models.NodeKindCondition:
			// Condition nodes need exactly a true edge and a false edge.
			var hasTrue, hasFalse bool

			for _, edge := range edges {
				switch edge.Branch {
				case models.BranchTrue:
					hasTrue = true
				case models.BranchFalse:
					hasFalse = true
				}
			}

			if !hasTrue || !hasFalse || len(edges) != 2 {
				return &Error{Kind: ErrIncompleteBranch, NodeID: node.ID}
			}
		case models.NodeKindEnd:
			if len(edges) != 0 {
				return &Error{Kind: ErrDeadEnd, NodeID: node.ID, Detail: "end node has outgoing edges"}
			}
		default:
			if len(edges) != 1 {
				return &Error{Kind: ErrDeadEnd, NodeID: node.ID}
			}
		}
	}

	return nil
}

func checkReachability(nodes []*models.Node, outgoing map[string][]*models.Edge, triggerID string) error {
	visited := map[string]bool{triggerID: true}
	queue := []string{triggerID}

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		for _, edge := range outgoing[current] {
			if !visited[edge.Target] {
				visited[edge.Target] = true
				queue = append(queue, edge.Target)
			}
		}
	}

	for _, node := range nodes {
		if !visited[node.ID] {
			return &Error{Kind: ErrUnreachableNode, NodeID: node.ID}
		}
	}

	return nil
}

// checkAcyclic runs a depth-first search with an on-stack marker. The
// interpreter relies on the graph being a DAG to guarantee termination, so a
// cycle anywhere in the edge set is rejected up front.
func checkAcyclic(nodes []*models.Node, outgoing map[string][]*models.Edge) error {
	const (
		unvisited = 0
		onStack   = 1
		done      = 2
	)

	state := make(map[string]int, len(nodes))

	var visit func(id string) error

	visit = func(id string) error {
		state[id] = onStack

		for _, edge := range outgoing[id] {
			switch state[edge.Target] {
			case onStack:
				return &Error{Kind: ErrCyclicGraph, NodeID: edge.Target}
			case unvisited:
				if err := visit(edge.Target); err != nil {
					return err
				}
			}
		}

		state[id] = done

		return nil
	}

	for _, node := range nodes {
		if state[node.ID] == unvisited {
			if err := visit(node.ID); err != nil {
				return err
			}
		}
	}

	return nil
}
