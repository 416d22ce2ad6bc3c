package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWorkflow_TriggerNode(t *testing.T) {
	workflow := &Workflow{
		Nodes: []*Node{
			{ID: "a1", Kind: NodeKindAction},
			{ID: "t1", Kind: NodeKindTrigger, Trigger: &TriggerSpec{Type: TriggerTypeManual}},
			{ID: "e1", Kind: NodeKindEnd},
		},
	}

	trigger := workflow.TriggerNode()
	assert.NotNil(t, trigger)
	assert.Equal(t, "t1", trigger.ID)
}

func TestWorkflow_TriggerNode_Missing(t *testing.T) {
	workflow := &Workflow{
		Nodes: []*Node{{ID: "a1", Kind: NodeKindAction}},
	}

	assert.Nil(t, workflow.TriggerNode())
}

func TestWorkflow_EdgesFrom(t *testing.T) {
	workflow := &Workflow{
		Edges: []*Edge{
			{ID: "e1", Source: "c1", Target: "a1", Branch: BranchTrue},
			{ID: "e2", Source: "c1", Target: "a2", Branch: BranchFalse},
			{ID: "e3", Source: "a1", Target: "end"},
		},
	}

	edges := workflow.EdgesFrom("c1")
	assert.Len(t, edges, 2)

	edges = workflow.EdgesFrom("end")
	assert.Empty(t, edges)
}

func TestExecutionStatus_Terminal(t *testing.T) {
	tests := []struct {
		status   ExecutionStatus
		terminal bool
	}{
		{ExecutionStatusPending, false},
		{ExecutionStatusRunning, false},
		{ExecutionStatusWaiting, false},
		{ExecutionStatusCompleted, true},
		{ExecutionStatusFailed, true},
		{ExecutionStatusCancelled, true},
	}

	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			assert.Equal(t, tt.terminal, tt.status.Terminal())
		})
	}
}
