package web

import (
	"errors"
	"net/http"
	"time"

	"github.com/flowgrid/flowgrid/pkg/eventbus"
	"github.com/flowgrid/flowgrid/pkg/events"
	"github.com/flowgrid/flowgrid/pkg/models"
	"github.com/flowgrid/flowgrid/pkg/registry"
	"github.com/flowgrid/flowgrid/pkg/services"
	"github.com/flowgrid/flowgrid/pkg/triggers"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
)

type APIHandlers struct {
	workflowService  *services.Workflow
	executionService *services.Execution
	launcher         *triggers.Launcher
	publisher        eventbus.EventPublisher
	validator        *validator.Validate
	registry         *registry.Registry
}

func NewAPIHandlers(
	workflowService *services.Workflow,
	executionService *services.Execution,
	launcher *triggers.Launcher,
	publisher eventbus.EventPublisher,
	validator *validator.Validate,
	registry *registry.Registry,
) *APIHandlers {
	return &APIHandlers{
		workflowService:  workflowService,
		executionService: executionService,
		launcher:         launcher,
		publisher:        publisher,
		validator:        validator,
		registry:         registry,
	}
}

func (h *APIHandlers) HealthCheck(c fiber.Ctx) error {
	registryCheck, regOk := h.registry.HealthCheck()
	repositoryCheck, repOk := h.workflowService.HealthCheck(c.Context())

	status := "unhealthy"
	httpStatus := http.StatusInternalServerError

	if regOk && repOk {
		status = "healthy"
		httpStatus = http.StatusOK
	}

	return c.Status(httpStatus).JSON(fiber.Map{
		"status": status,
		"checkers": fiber.Map{
			"registry":   registryCheck,
			"repository": repositoryCheck,
		},
		"timestamp": time.Now().UTC(),
	})
}

func (h *APIHandlers) GetWorkflows(c fiber.Ctx) error {
	workflows, err := h.workflowService.List(c.Context())
	if err != nil {
		return internalError(c, err)
	}

	return c.JSON(fiber.Map{"workflows": workflows})
}

func (h *APIHandlers) GetWorkflow(c fiber.Ctx) error {
	workflow, err := h.workflowService.FetchByID(c.Context(), c.Params("id"))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(workflow)
}

func (h *APIHandlers) CreateWorkflow(c fiber.Ctx) error {
	var req CreateWorkflowRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	created, err := h.workflowService.Create(c.Context(), &models.Workflow{
		Name:        req.Name,
		Description: req.Description,
		Variables:   req.Variables,
		Nodes:       req.Nodes,
		Edges:       req.Edges,
	})
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(created)
}

func (h *APIHandlers) UpdateWorkflow(c fiber.Ctx) error {
	id := c.Params("id")

	var req UpdateWorkflowRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	existing, err := h.workflowService.FetchByID(c.Context(), id)
	if err != nil {
		return handleServiceError(c, err)
	}

	if req.Name != nil {
		existing.Name = *req.Name
	}

	if req.Description != nil {
		existing.Description = *req.Description
	}

	if req.Variables != nil {
		existing.Variables = req.Variables
	}

	if req.Nodes != nil {
		existing.Nodes = req.Nodes
	}

	if req.Edges != nil {
		existing.Edges = req.Edges
	}

	updated, err := h.workflowService.Update(c.Context(), id, existing)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(updated)
}

func (h *APIHandlers) DeleteWorkflow(c fiber.Ctx) error {
	if err := h.workflowService.Delete(c.Context(), c.Params("id")); err != nil {
		return handleServiceError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

// ValidateWorkflow runs the static graph checks and reports the first failure
// without changing anything.
func (h *APIHandlers) ValidateWorkflow(c fiber.Ctx) error {
	err := h.workflowService.Validate(c.Context(), c.Params("id"))
	if err == nil {
		return c.JSON(fiber.Map{"valid": true})
	}

	if services.IsNotFoundError(err) {
		return notFound(c, "workflow not found")
	}

	return c.JSON(fiber.Map{"valid": false, "error": err.Error()})
}

func (h *APIHandlers) EnableWorkflow(c fiber.Ctx) error {
	enabled, err := h.workflowService.Enable(c.Context(), c.Params("id"))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(enabled)
}

func (h *APIHandlers) DisableWorkflow(c fiber.Ctx) error {
	disabled, err := h.workflowService.Disable(c.Context(), c.Params("id"))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(disabled)
}

// RunWorkflow launches a manual execution of an enabled workflow.
func (h *APIHandlers) RunWorkflow(c fiber.Ctx) error {
	var req RunWorkflowRequest
	if len(c.Body()) > 0 {
		if err := c.Bind().JSON(&req); err != nil {
			return badRequest(c, "Invalid JSON format")
		}
	}

	execution, err := h.launcher.RunManual(c.Context(), c.Params("id"), req.Variables)
	if err != nil {
		if errors.Is(err, triggers.ErrWorkflowDisabled) {
			return handleConflict(c, err)
		}

		return handleServiceError(c, err)
	}

	return c.Status(fiber.StatusAccepted).JSON(execution)
}

func (h *APIHandlers) ExportWorkflow(c fiber.Ctx) error {
	document, err := h.workflowService.Export(c.Context(), c.Params("id"))
	if err != nil {
		return handleServiceError(c, err)
	}

	c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)

	return c.Send(document)
}

func (h *APIHandlers) ImportWorkflow(c fiber.Ctx) error {
	var req ImportWorkflowRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	imported, err := h.workflowService.Import(c.Context(), req.Name, []byte(req.Document))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(imported)
}

func (h *APIHandlers) GetWorkflowExecutions(c fiber.Ctx) error {
	executions, err := h.executionService.ListByWorkflow(c.Context(), c.Params("id"))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(fiber.Map{"executions": executions})
}

func (h *APIHandlers) GetExecution(c fiber.Ctx) error {
	execution, err := h.executionService.FetchByID(c.Context(), c.Params("id"))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(execution)
}

func (h *APIHandlers) GetExecutionLogs(c fiber.Ctx) error {
	logs, err := h.executionService.Logs(c.Context(), c.Params("id"))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(fiber.Map{"logs": logs})
}

func (h *APIHandlers) CancelExecution(c fiber.Ctx) error {
	execution, err := h.executionService.RequestCancellation(c.Context(), c.Params("id"))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.Status(fiber.StatusAccepted).JSON(execution)
}

// DeliverEvent publishes an external (name, payload) event onto the bus for
// the trigger subsystem to match asynchronously.
func (h *APIHandlers) DeliverEvent(c fiber.Ctx) error {
	var req DeliverEventRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	event := events.ExternalEventReceived{
		BaseEvent: events.NewBaseEvent(events.ExternalEventReceivedEvent, ""),
		Name:      req.Name,
		Payload:   req.Payload,
		Source:    req.Source,
	}

	if err := h.publisher.Publish(c.Context(), req.Name, event); err != nil {
		return internalError(c, err)
	}

	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{"event_id": event.ID})
}

// GetActions lists the registered action types with their config schemas.
func (h *APIHandlers) GetActions(c fiber.Ctx) error {
	return c.JSON(fiber.Map{"actions": h.registry.AvailableActions()})
}

// Register mounts every route on the app.
func (h *APIHandlers) Register(app *fiber.App) {
	w := app.Group("/workflows")
	w.Get("/", h.GetWorkflows)
	w.Post("/", h.CreateWorkflow)
	w.Post("/import", h.ImportWorkflow)
	w.Get("/:id", h.GetWorkflow)
	w.Patch("/:id", h.UpdateWorkflow)
	w.Delete("/:id", h.DeleteWorkflow)
	w.Post("/:id/validate", h.ValidateWorkflow)
	w.Post("/:id/enable", h.EnableWorkflow)
	w.Post("/:id/disable", h.DisableWorkflow)
	w.Post("/:id/run", h.RunWorkflow)
	w.Get("/:id/export", h.ExportWorkflow)
	w.Get("/:id/executions", h.GetWorkflowExecutions)

	e := app.Group("/executions")
	e.Get("/:id", h.GetExecution)
	e.Get("/:id/logs", h.GetExecutionLogs)
	e.Post("/:id/cancel", h.CancelExecution)

	app.Post("/events", h.DeliverEvent)
	app.Get("/actions", h.GetActions)
	app.Get("/health", h.HealthCheck)
}
