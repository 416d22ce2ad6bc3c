package graph

import (
	"testing"

	"github.com/flowgrid/flowgrid/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPortable_RoundTrip(t *testing.T) {
	nodes := []*models.Node{
		{
			ID:       "trigger",
			Kind:     models.NodeKindTrigger,
			Label:    "Every morning",
			Position: &models.Position{X: 100, Y: 40},
			Trigger:  &models.TriggerSpec{Type: models.TriggerTypeTime, Cron: "0 9 * * *"},
		},
		{
			ID:        "check",
			Kind:      models.NodeKindCondition,
			Label:     "Budget gate",
			Condition: &models.ConditionSpec{Expression: "project.budget > 10000"},
		},
		{
			ID:    "email",
			Kind:  models.NodeKindAction,
			Label: "Notify owner",
			Action: &models.ActionSpec{
				Type:            "send-email",
				Config:          map[string]any{"to": "{{owner.email}}", "subject": "Budget exceeded"},
				ContinueOnError: true,
				TimeoutSeconds:  30,
			},
		},
		{ID: "end", Kind: models.NodeKindEnd, Label: "Done"},
	}
	edges := []*models.Edge{
		{ID: "e1", Source: "trigger", Target: "check"},
		{ID: "e2", Source: "check", Target: "email", Branch: models.BranchTrue},
		{ID: "e3", Source: "check", Target: "end", Branch: models.BranchFalse},
		{ID: "e4", Source: "email", Target: "end"},
	}

	exported, err := Export(nodes, edges)
	require.NoError(t, err)

	importedNodes, importedEdges, err := Import(exported)
	require.NoError(t, err)

	assert.Equal(t, nodes[0].Trigger, importedNodes[0].Trigger)
	assert.Equal(t, nodes[1].Condition, importedNodes[1].Condition)
	assert.Equal(t, nodes[2].Action, importedNodes[2].Action)
	assert.Equal(t, edges, importedEdges)

	for i, node := range nodes {
		assert.Equal(t, node.ID, importedNodes[i].ID)
		assert.Equal(t, node.Kind, importedNodes[i].Kind)
		assert.Equal(t, node.Label, importedNodes[i].Label)
		assert.Equal(t, node.Position, importedNodes[i].Position)
	}

	// Exporting the imported graph must reproduce the exact same document.
	reExported, err := Export(importedNodes, importedEdges)
	require.NoError(t, err)
	assert.Equal(t, string(exported), string(reExported))
}

func TestImport_RejectsUnknownNodeType(t *testing.T) {
	doc := []byte(`{"nodes": [{"id": "n1", "type": "loop", "data": {}}], "edges": []}`)

	_, _, err := Import(doc)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown type")
}

func TestImport_RejectsMalformedDocument(t *testing.T) {
	_, _, err := Import([]byte(`{"nodes": `))
	require.Error(t, err)
}

func TestSnapshot_Navigation(t *testing.T) {
	workflow := branchingWorkflow()
	nodes, edges := Copy(workflow.Nodes, workflow.Edges)
	snapshot := NewSnapshot(nodes, edges)

	entry, err := snapshot.EntryNodeID()
	require.NoError(t, err)
	assert.Equal(t, "check", entry)

	target, err := snapshot.BranchTarget("check", true)
	require.NoError(t, err)
	assert.Equal(t, "approve", target)

	target, err = snapshot.BranchTarget("check", false)
	require.NoError(t, err)
	assert.Equal(t, "reject", target)

	next, err := snapshot.Successor("approve")
	require.NoError(t, err)
	assert.Equal(t, "end", next)

	_, err = snapshot.Node("ghost")
	assert.Error(t, err)
}

func TestCopy_IsolatesMutations(t *testing.T) {
	workflow := branchingWorkflow()
	workflow.Nodes[2].Action.Config = map[string]any{"status": "approved"}

	nodes, _ := Copy(workflow.Nodes, workflow.Edges)

	// Mutating the live workflow must not leak into the frozen copy.
	workflow.Nodes[2].Action.Config["status"] = "rewritten"
	workflow.Nodes[1].Condition.Expression = "rewritten"

	assert.Equal(t, "approved", nodes[2].Action.Config["status"])
	assert.Equal(t, "amount > 100", nodes[1].Condition.Expression)
}
