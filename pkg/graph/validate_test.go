package graph

import (
	"errors"
	"testing"

	"github.com/flowgrid/flowgrid/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func linearWorkflow() *models.Workflow {
	return &models.Workflow{
		ID:   "wf-linear",
		Name: "Linear workflow",
		Nodes: []*models.Node{
			{ID: "trigger", Kind: models.NodeKindTrigger, Trigger: &models.TriggerSpec{Type: models.TriggerTypeManual}},
			{ID: "notify", Kind: models.NodeKindAction, Action: &models.ActionSpec{Type: "send-email"}},
			{ID: "end", Kind: models.NodeKindEnd},
		},
		Edges: []*models.Edge{
			{ID: "e1", Source: "trigger", Target: "notify"},
			{ID: "e2", Source: "notify", Target: "end"},
		},
	}
}

func branchingWorkflow() *models.Workflow {
	return &models.Workflow{
		ID:   "wf-branching",
		Name: "Branching workflow",
		Nodes: []*models.Node{
			{ID: "trigger", Kind: models.NodeKindTrigger, Trigger: &models.TriggerSpec{Type: models.TriggerTypeManual}},
			{ID: "check", Kind: models.NodeKindCondition, Condition: &models.ConditionSpec{Expression: "amount > 100"}},
			{ID: "approve", Kind: models.NodeKindAction, Action: &models.ActionSpec{Type: "update-status"}},
			{ID: "reject", Kind: models.NodeKindAction, Action: &models.ActionSpec{Type: "send-notification"}},
			{ID: "end", Kind: models.NodeKindEnd},
		},
		Edges: []*models.Edge{
			{ID: "e1", Source: "trigger", Target: "check"},
			{ID: "e2", Source: "check", Target: "approve", Branch: models.BranchTrue},
			{ID: "e3", Source: "check", Target: "reject", Branch: models.BranchFalse},
			{ID: "e4", Source: "approve", Target: "end"},
			{ID: "e5", Source: "reject", Target: "end"},
		},
	}
}

func TestValidate_ValidWorkflows(t *testing.T) {
	assert.NoError(t, Validate(linearWorkflow()))
	assert.NoError(t, Validate(branchingWorkflow()))
}

func TestValidate_MissingTrigger(t *testing.T) {
	workflow := linearWorkflow()
	workflow.Nodes = workflow.Nodes[1:]
	workflow.Edges = workflow.Edges[1:]

	err := Validate(workflow)
	require.Error(t, err)
	assert.True(t, errors.Is(err, &Error{Kind: ErrMissingTrigger}))
}

func TestValidate_MultipleTriggers(t *testing.T) {
	workflow := linearWorkflow()
	workflow.Nodes = append(workflow.Nodes, &models.Node{
		ID:      "trigger2",
		Kind:    models.NodeKindTrigger,
		Trigger: &models.TriggerSpec{Type: models.TriggerTypeManual},
	})

	err := Validate(workflow)
	require.Error(t, err)
	assert.True(t, errors.Is(err, &Error{Kind: ErrMultipleTriggers}))
}

func TestValidate_DanglingEdge(t *testing.T) {
	workflow := linearWorkflow()
	workflow.Edges = append(workflow.Edges, &models.Edge{ID: "bad", Source: "notify", Target: "ghost"})

	err := Validate(workflow)
	require.Error(t, err)
	assert.True(t, errors.Is(err, &Error{Kind: ErrDanglingEdge}))
}

func TestValidate_IncompleteBranch(t *testing.T) {
	workflow := branchingWorkflow()

	// Drop the false branch.
	edges := make([]*models.Edge, 0)

	for _, edge := range workflow.Edges {
		if edge.ID != "e3" {
			edges = append(edges, edge)
		}
	}

	workflow.Edges = edges

	// Reject is now unreachable too, but the branch check fires first.
	err := Validate(workflow)
	require.Error(t, err)
	assert.True(t, errors.Is(err, &Error{Kind: ErrIncompleteBranch}))
}

func TestValidate_DeadEnd(t *testing.T) {
	workflow := linearWorkflow()
	workflow.Edges = workflow.Edges[:1] // notify loses its outgoing edge

	err := Validate(workflow)
	require.Error(t, err)
	assert.True(t, errors.Is(err, &Error{Kind: ErrDeadEnd}))
}

func TestValidate_UnreachableNode(t *testing.T) {
	workflow := linearWorkflow()
	workflow.Nodes = append(workflow.Nodes,
		&models.Node{ID: "orphan", Kind: models.NodeKindAction, Action: &models.ActionSpec{Type: "create-task"}},
	)
	workflow.Edges = append(workflow.Edges, &models.Edge{ID: "e-orphan", Source: "orphan", Target: "end"})

	err := Validate(workflow)
	require.Error(t, err)
	assert.True(t, errors.Is(err, &Error{Kind: ErrUnreachableNode}))
}

func TestValidate_CyclicGraph(t *testing.T) {
	workflow := &models.Workflow{
		ID:   "wf-cycle",
		Name: "Cyclic workflow",
		Nodes: []*models.Node{
			{ID: "trigger", Kind: models.NodeKindTrigger, Trigger: &models.TriggerSpec{Type: models.TriggerTypeManual}},
			{ID: "a", Kind: models.NodeKindAction, Action: &models.ActionSpec{Type: "create-task"}},
			{ID: "b", Kind: models.NodeKindAction, Action: &models.ActionSpec{Type: "update-status"}},
		},
		Edges: []*models.Edge{
			{ID: "e1", Source: "trigger", Target: "a"},
			{ID: "e2", Source: "a", Target: "b"},
			{ID: "e3", Source: "b", Target: "a"},
		},
	}

	err := Validate(workflow)
	require.Error(t, err)
	assert.True(t, errors.Is(err, &Error{Kind: ErrCyclicGraph}))
}

func TestError_Message(t *testing.T) {
	err := &Error{Kind: ErrDanglingEdge, EdgeID: "e9", Detail: "unknown target node x"}
	assert.Equal(t, "invalid workflow graph: dangling_edge (edge e9): unknown target node x", err.Error())
}
