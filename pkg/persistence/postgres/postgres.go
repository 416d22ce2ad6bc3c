// Package postgres provides PostgreSQL persistence for workflows, executions,
// and execution logs.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	// Registers the "postgres" database/sql driver.
	_ "github.com/lib/pq"

	"github.com/flowgrid/flowgrid/pkg/models"
	"github.com/flowgrid/flowgrid/pkg/persistence/sqlbase"
)

// Persistence implements the persistence layer for PostgreSQL.
type Persistence struct {
	db            *sql.DB
	logger        *slog.Logger
	workflowRepo  *WorkflowRepository
	executionRepo *ExecutionRepository
}

// NewPersistence connects to PostgreSQL and runs pending schema migrations.
func NewPersistence(ctx context.Context, logger *slog.Logger, databaseURL string) (*Persistence, error) {
	database, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to PostgreSQL database: %w", err)
	}

	err = database.PingContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	migrationManager := sqlbase.NewMigrationManager(logger, database, migrations())

	err = migrationManager.RunMigrations(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &Persistence{
		db:            database,
		logger:        logger,
		workflowRepo:  NewWorkflowRepository(database, logger),
		executionRepo: NewExecutionRepository(database, logger),
	}, nil
}

// Close closes the database connection.
func (p *Persistence) Close(_ context.Context) error {
	if p.db != nil {
		err := p.db.Close()
		if err != nil {
			return fmt.Errorf("failed to close database connection: %w", err)
		}
	}

	return nil
}

// HealthCheck verifies the database connection is healthy.
func (p *Persistence) HealthCheck(ctx context.Context) error {
	err := p.db.PingContext(ctx)
	if err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}

	return nil
}

func (p *Persistence) Workflows(ctx context.Context) ([]*models.Workflow, error) {
	return p.workflowRepo.All(ctx)
}

func (p *Persistence) WorkflowByID(ctx context.Context, id string) (*models.Workflow, error) {
	return p.workflowRepo.ByID(ctx, id)
}

func (p *Persistence) SaveWorkflow(ctx context.Context, workflow *models.Workflow) error {
	return p.workflowRepo.Save(ctx, workflow)
}

func (p *Persistence) DeleteWorkflow(ctx context.Context, id string) error {
	return p.workflowRepo.Delete(ctx, id)
}

func (p *Persistence) CreateExecution(ctx context.Context, execution *models.Execution) error {
	return p.executionRepo.Create(ctx, execution)
}

func (p *Persistence) UpdateExecution(ctx context.Context, execution *models.Execution) error {
	return p.executionRepo.Update(ctx, execution)
}

func (p *Persistence) ExecutionByID(ctx context.Context, id string) (*models.Execution, error) {
	return p.executionRepo.ByID(ctx, id)
}

func (p *Persistence) ExecutionsByWorkflow(ctx context.Context, workflowID string) ([]*models.Execution, error) {
	return p.executionRepo.ByWorkflow(ctx, workflowID)
}

func (p *Persistence) AppendLog(ctx context.Context, executionID string, entry *models.ExecutionLog) error {
	return p.executionRepo.AppendLog(ctx, executionID, entry)
}

func (p *Persistence) Logs(ctx context.Context, executionID string) ([]*models.ExecutionLog, error) {
	return p.executionRepo.Logs(ctx, executionID)
}

func (p *Persistence) DueWaiting(ctx context.Context, now time.Time) ([]*models.Execution, error) {
	return p.executionRepo.DueWaiting(ctx, now)
}
