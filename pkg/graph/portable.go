package graph

import (
	"encoding/json"
	"fmt"

	"github.com/flowgrid/flowgrid/pkg/models"
)

// The portable graph format is the export/import interchange document:
//
//	{ "nodes": [ {id, type, position, data} ], "edges": [ {id, source, target, sourceHandle?} ] }
//
// Round-tripping a graph through Export and Import reproduces an identical
// node and edge set, ids included.

type PortableNode struct {
	ID       string           `json:"id"`
	Type     models.NodeKind  `json:"type"`
	Position *models.Position `json:"position,omitempty"`
	Data     PortableNodeData `json:"data"`
}

// PortableNodeData carries the node's kind-specific payload. Only the fields
// for the node's own kind are populated; everything else stays omitted.
type PortableNodeData struct {
	Label string `json:"label,omitempty"`

	TriggerType models.TriggerType `json:"trigger_type,omitempty"`
	Cron        string             `json:"cron,omitempty"`
	EventName   string             `json:"event_name,omitempty"`
	EventFilter string             `json:"event_filter,omitempty"`

	Expression string `json:"expression,omitempty"`

	ActionType      string         `json:"action_type,omitempty"`
	Config          map[string]any `json:"config,omitempty"`
	ContinueOnError bool           `json:"continue_on_error,omitempty"`
	TimeoutSeconds  int            `json:"timeout_seconds,omitempty"`
}

type PortableEdge struct {
	ID           string `json:"id"`
	Source       string `json:"source"`
	Target       string `json:"target"`
	SourceHandle string `json:"sourceHandle,omitempty"`
}

type PortableDocument struct {
	Nodes []PortableNode `json:"nodes"`
	Edges []PortableEdge `json:"edges"`
}

// Export serializes a graph into the portable document format.
func Export(nodes []*models.Node, edges []*models.Edge) ([]byte, error) {
	doc := PortableDocument{
		Nodes: make([]PortableNode, 0, len(nodes)),
		Edges: make([]PortableEdge, 0, len(edges)),
	}

	for _, node := range nodes {
		portable := PortableNode{
			ID:       node.ID,
			Type:     node.Kind,
			Position: node.Position,
			Data:     PortableNodeData{Label: node.Label},
		}

		switch node.Kind {
		case models.NodeKindTrigger:
			if node.Trigger != nil {
				portable.Data.TriggerType = node.Trigger.Type
				portable.Data.Cron = node.Trigger.Cron
				portable.Data.EventName = node.Trigger.EventName
				portable.Data.EventFilter = node.Trigger.EventFilter
				portable.Data.Expression = node.Trigger.Expression
			}
		case models.NodeKindAction:
			if node.Action != nil {
				portable.Data.ActionType = node.Action.Type
				portable.Data.Config = node.Action.Config
				portable.Data.ContinueOnError = node.Action.ContinueOnError
				portable.Data.TimeoutSeconds = node.Action.TimeoutSeconds
			}
		case models.NodeKindCondition:
			if node.Condition != nil {
				portable.Data.Expression = node.Condition.Expression
			}
		case models.NodeKindEnd:
		default:
			return nil, fmt.Errorf("cannot export node %s: unknown kind %q", node.ID, node.Kind)
		}

		doc.Nodes = append(doc.Nodes, portable)
	}

	for _, edge := range edges {
		doc.Edges = append(doc.Edges, PortableEdge{
			ID:           edge.ID,
			Source:       edge.Source,
			Target:       edge.Target,
			SourceHandle: edge.Branch,
		})
	}

	return json.MarshalIndent(doc, "", "  ")
}

// Import parses a portable document back into a node and edge set.
func Import(data []byte) ([]*models.Node, []*models.Edge, error) {
	var doc PortableDocument

	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, nil, fmt.Errorf("failed to parse portable graph document: %w", err)
	}

	nodes := make([]*models.Node, 0, len(doc.Nodes))

	for _, portable := range doc.Nodes {
		node := &models.Node{
			ID:       portable.ID,
			Kind:     portable.Type,
			Label:    portable.Data.Label,
			Position: portable.Position,
		}

		switch portable.Type {
		case models.NodeKindTrigger:
			node.Trigger = &models.TriggerSpec{
				Type:        portable.Data.TriggerType,
				Cron:        portable.Data.Cron,
				EventName:   portable.Data.EventName,
				EventFilter: portable.Data.EventFilter,
				Expression:  portable.Data.Expression,
			}
		case models.NodeKindAction:
			node.Action = &models.ActionSpec{
				Type:            portable.Data.ActionType,
				Config:          portable.Data.Config,
				ContinueOnError: portable.Data.ContinueOnError,
				TimeoutSeconds:  portable.Data.TimeoutSeconds,
			}
		case models.NodeKindCondition:
			node.Condition = &models.ConditionSpec{Expression: portable.Data.Expression}
		case models.NodeKindEnd:
		default:
			return nil, nil, fmt.Errorf("cannot import node %s: unknown type %q", portable.ID, portable.Type)
		}

		nodes = append(nodes, node)
	}

	edges := make([]*models.Edge, 0, len(doc.Edges))

	for _, portable := range doc.Edges {
		edges = append(edges, &models.Edge{
			ID:     portable.ID,
			Source: portable.Source,
			Target: portable.Target,
			Branch: portable.SourceHandle,
		})
	}

	return nodes, edges, nil
}
