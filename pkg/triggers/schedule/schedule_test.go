package schedule_test

import (
	"context"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/flowgrid/flowgrid/pkg/models"
	"github.com/flowgrid/flowgrid/pkg/triggers/schedule"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeLister struct {
	workflows []*models.Workflow
}

func (f *fakeLister) Workflows(_ context.Context) ([]*models.Workflow, error) {
	return f.workflows, nil
}

type launchCall struct {
	workflowID  string
	triggeredBy string
	payload     map[string]any
}

type fakeLauncher struct {
	calls []launchCall
}

func (f *fakeLauncher) Launch(_ context.Context, workflow *models.Workflow, triggeredBy string, payload map[string]any) (*models.Execution, error) {
	f.calls = append(f.calls, launchCall{workflowID: workflow.ID, triggeredBy: triggeredBy, payload: payload})

	return &models.Execution{ID: "exec-test", WorkflowID: workflow.ID, Status: models.ExecutionStatusPending}, nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

func cronWorkflow(id, cron string, enabled bool) *models.Workflow {
	return &models.Workflow{
		ID:      id,
		Name:    "Scheduled " + id,
		Enabled: enabled,
		Nodes: []*models.Node{
			{ID: "trigger-1", Kind: models.NodeKindTrigger, Trigger: &models.TriggerSpec{Type: models.TriggerTypeTime, Cron: cron}},
			{ID: "end-1", Kind: models.NodeKindEnd},
		},
		Edges: []*models.Edge{{ID: "e1", Source: "trigger-1", Target: "end-1"}},
	}
}

func TestNewEntry(t *testing.T) {
	now := time.Date(2025, 6, 1, 10, 30, 30, 0, time.UTC)

	entry, err := schedule.NewEntry("wf-1", "*/5 * * * *", now)
	require.NoError(t, err)

	assert.Equal(t, time.Date(2025, 6, 1, 10, 35, 0, 0, time.UTC), entry.NextDueAt)
	assert.False(t, entry.Due(now))
	assert.True(t, entry.Due(now.Add(5*time.Minute)))

	entry.Advance(now.Add(5 * time.Minute))
	assert.Equal(t, time.Date(2025, 6, 1, 10, 40, 0, 0, time.UTC), entry.NextDueAt)
}

func TestNewEntry_InvalidExpression(t *testing.T) {
	_, err := schedule.NewEntry("wf-1", "not a cron", time.Now())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid cron expression")
}

func TestSource_TickFiresDueSchedules(t *testing.T) {
	lister := &fakeLister{workflows: []*models.Workflow{
		cronWorkflow("wf-every-minute", "* * * * *", true),
		cronWorkflow("wf-disabled", "* * * * *", false),
	}}
	launcher := &fakeLauncher{}
	source := schedule.NewSource(lister, launcher, testLogger(), time.Minute)

	now := time.Date(2025, 6, 1, 10, 0, 30, 0, time.UTC)

	// First tick registers the schedule; next due is in the future.
	source.Tick(context.Background(), now)
	assert.Empty(t, launcher.calls)

	// Two minutes later the schedule is due exactly once.
	source.Tick(context.Background(), now.Add(2*time.Minute))
	require.Len(t, launcher.calls, 1)
	assert.Equal(t, "wf-every-minute", launcher.calls[0].workflowID)
	assert.Equal(t, "schedule", launcher.calls[0].triggeredBy)
	assert.Equal(t, "* * * * *", launcher.calls[0].payload["cron"])

	// Immediately ticking again does not refire.
	source.Tick(context.Background(), now.Add(2*time.Minute))
	assert.Len(t, launcher.calls, 1)
}

func TestSource_TickSkipsInvalidCron(t *testing.T) {
	lister := &fakeLister{workflows: []*models.Workflow{
		cronWorkflow("wf-bad", "@@garbage", true),
		cronWorkflow("wf-good", "* * * * *", true),
	}}
	launcher := &fakeLauncher{}
	source := schedule.NewSource(lister, launcher, testLogger(), time.Minute)

	now := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	source.Tick(context.Background(), now)
	source.Tick(context.Background(), now.Add(2*time.Minute))

	// The invalid workflow is skipped without stopping the valid one.
	require.Len(t, launcher.calls, 1)
	assert.Equal(t, "wf-good", launcher.calls[0].workflowID)
}

func TestSource_RemovedWorkflowStopsFiring(t *testing.T) {
	lister := &fakeLister{workflows: []*models.Workflow{
		cronWorkflow("wf-1", "* * * * *", true),
	}}
	launcher := &fakeLauncher{}
	source := schedule.NewSource(lister, launcher, testLogger(), time.Minute)

	now := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	source.Tick(context.Background(), now)

	lister.workflows = nil

	source.Tick(context.Background(), now.Add(2*time.Minute))
	assert.Empty(t, launcher.calls)
}
