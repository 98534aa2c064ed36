package web

import (
	"context"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"

	"github.com/coinflux/ruleflow/pkg/dispatcher"
	"github.com/coinflux/ruleflow/pkg/models"
	"github.com/coinflux/ruleflow/pkg/persistence"
	"github.com/coinflux/ruleflow/pkg/workflow"
)

type APIHandlers struct {
	repository  *workflow.Repository
	publishing  *workflow.PublishingService
	dispatcher  *dispatcher.Dispatcher
	persistence persistence.Persistence
	validator   *validator.Validate
}

func NewAPIHandlers(
	repository *workflow.Repository,
	publishing *workflow.PublishingService,
	d *dispatcher.Dispatcher,
	p persistence.Persistence,
	validate *validator.Validate,
) *APIHandlers {
	return &APIHandlers{
		repository:  repository,
		publishing:  publishing,
		dispatcher:  d,
		persistence: p,
		validator:   validate,
	}
}

func (h *APIHandlers) GetWorkflows(c fiber.Ctx) error {
	workflows, err := h.repository.FetchAll(c.Context())
	if err != nil {
		return internalError(c, err)
	}

	return c.JSON(fiber.Map{
		"workflows":   workflows,
		"total_count": len(workflows),
	})
}

func (h *APIHandlers) GetWorkflow(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Workflow ID is required")
	}

	found, err := h.repository.FetchByID(c.Context(), id)
	if err != nil {
		return handleWorkflowError(c, err)
	}

	return c.JSON(found)
}

func (h *APIHandlers) CreateWorkflow(c fiber.Ctx) error {
	var req CreateWorkflowRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	if !req.Trigger.IsValid() {
		return badRequest(c, "Unknown trigger kind: "+string(req.Trigger))
	}

	created, err := h.repository.Create(c.Context(), &models.Workflow{
		Name:          req.Name,
		Description:   req.Description,
		Trigger:       req.Trigger,
		TriggerConfig: req.TriggerConfig,
		Priority:      req.Priority,
		VisualState:   req.VisualState,
		CreatedBy:     req.CreatedBy,
	})
	if err != nil {
		return handleWorkflowError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(created)
}

func (h *APIHandlers) UpdateWorkflow(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Workflow ID is required")
	}

	var req UpdateWorkflowRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	name, description := "", ""
	if req.Name != nil {
		name = *req.Name
	}

	if req.Description != nil {
		description = *req.Description
	}

	// Negative means unchanged.
	priority := -1
	if req.Priority != nil {
		priority = *req.Priority
	}

	updated, err := h.repository.UpdateMetadata(c.Context(), id, name, description, priority, req.TriggerConfig)
	if err != nil {
		return handleWorkflowError(c, err)
	}

	return c.JSON(updated)
}

// UpdateWorkflowGraph replaces the editor graph. This bumps the workflow
// version and invalidates the compiled state until the next publish.
func (h *APIHandlers) UpdateWorkflowGraph(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Workflow ID is required")
	}

	var req UpdateGraphRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	updated, err := h.repository.UpdateGraph(c.Context(), id, req.VisualState)
	if err != nil {
		return handleWorkflowError(c, err)
	}

	return c.JSON(updated)
}

func (h *APIHandlers) DeleteWorkflow(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Workflow ID is required")
	}

	if err := h.repository.Delete(c.Context(), id); err != nil {
		return handleWorkflowError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

// ValidateWorkflow compiles the stored graph without changing any state,
// returning the compiler error list the way a publish would.
func (h *APIHandlers) ValidateWorkflow(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Workflow ID is required")
	}

	found, err := h.repository.FetchByID(c.Context(), id)
	if err != nil {
		return handleWorkflowError(c, err)
	}

	compileErrs := h.publishing.Validate(found)

	return c.JSON(fiber.Map{
		"valid":  len(compileErrs) == 0,
		"errors": compileErrs,
	})
}

func (h *APIHandlers) PublishWorkflow(c fiber.Ctx) error {
	return h.lifecycle(c, h.publishing.Publish)
}

func (h *APIHandlers) PauseWorkflow(c fiber.Ctx) error {
	return h.lifecycle(c, h.publishing.Pause)
}

func (h *APIHandlers) ResumeWorkflow(c fiber.Ctx) error {
	return h.lifecycle(c, h.publishing.Resume)
}

func (h *APIHandlers) ArchiveWorkflow(c fiber.Ctx) error {
	return h.lifecycle(c, h.publishing.Archive)
}

func (h *APIHandlers) ActivateWorkflow(c fiber.Ctx) error {
	return h.setActive(c, true)
}

func (h *APIHandlers) DeactivateWorkflow(c fiber.Ctx) error {
	return h.setActive(c, false)
}

// lifecycle runs one state transition and renders the updated workflow.
func (h *APIHandlers) lifecycle(c fiber.Ctx, transition func(ctx context.Context, workflowID string) (*models.Workflow, error)) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Workflow ID is required")
	}

	updated, err := transition(c.Context(), id)
	if err != nil {
		return handleWorkflowError(c, err)
	}

	return c.JSON(updated)
}

func (h *APIHandlers) setActive(c fiber.Ctx, active bool) error {
	return h.lifecycle(c, func(ctx context.Context, workflowID string) (*models.Workflow, error) {
		return h.publishing.SetActive(ctx, workflowID, active)
	})
}

// Dispatch injects a business event and returns the execution report
// synchronously. Dispatch itself never fails; only malformed requests are
// rejected.
func (h *APIHandlers) Dispatch(c fiber.Ctx) error {
	var req DispatchRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	if !req.Trigger.IsValid() {
		return badRequest(c, "Unknown trigger kind: "+string(req.Trigger))
	}

	report := h.dispatcher.Dispatch(c.Context(), req.Trigger, req.Context, req.EntityType, req.EntityID)

	return c.JSON(report)
}

// GetExecutionReports returns the audit trail for one entity.
func (h *APIHandlers) GetExecutionReports(c fiber.Ctx) error {
	entityType := c.Query("entity_type")
	entityID := c.Query("entity_id")

	if entityType == "" || entityID == "" {
		return badRequest(c, "entity_type and entity_id are required")
	}

	reports, err := h.persistence.ExecutionReports(c.Context(), entityType, entityID)
	if err != nil {
		return internalError(c, err)
	}

	return c.JSON(fiber.Map{
		"reports":     reports,
		"total_count": len(reports),
	})
}

func (h *APIHandlers) HealthCheck(c fiber.Ctx) error {
	repositoryCheck, ok := h.repository.HealthCheck(c.Context())

	status := "unhealthy"
	message := "Ruleflow API is unhealthy"
	httpStatus := http.StatusInternalServerError

	if ok {
		status = "healthy"
		message = "Ruleflow API is healthy"
		httpStatus = http.StatusOK
	}

	return c.Status(httpStatus).JSON(fiber.Map{
		"status":  status,
		"message": message,
		"checkers": fiber.Map{
			"repository": repositoryCheck,
		},
		"timestamp": time.Now().UTC(),
	})
}
