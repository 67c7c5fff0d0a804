// Package web provides HTTP handlers and REST API endpoints for clinical
// workflow execution and monitoring.
package web

import (
	"net/http"
	"time"

	"github.com/darinjswilliams/kindrahealth/pkg/engine"
	"github.com/darinjswilliams/kindrahealth/pkg/persistence"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
)

type APIHandlers struct {
	engine    *engine.Engine
	repo      persistence.WorkflowRepository
	validator *validator.Validate
}

func NewAPIHandlers(
	workflowEngine *engine.Engine,
	repo persistence.WorkflowRepository,
	validator *validator.Validate,
) *APIHandlers {
	return &APIHandlers{
		engine:    workflowEngine,
		repo:      repo,
		validator: validator,
	}
}

// ExecuteWorkflow accepts a clinical action plan and starts its execution.
// The response carries the workflow either in its terminal state or paused
// at the approval gate.
func (h *APIHandlers) ExecuteWorkflow(c fiber.Ctx) error {
	var req ExecuteWorkflowRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	workflow, err := h.engine.ExecuteWorkflow(c.Context(), req.Plan(), req.AutoApprove)
	if err != nil {
		return handleEngineError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(workflow.Snapshot())
}

func (h *APIHandlers) GetWorkflows(c fiber.Ctx) error {
	workflows, err := h.repo.All(c.Context())
	if err != nil {
		return internalError(c, err)
	}

	snapshots := make([]any, 0, len(workflows))
	for _, workflow := range workflows {
		snapshots = append(snapshots, workflow.Snapshot())
	}

	return c.JSON(fiber.Map{
		"workflows":   snapshots,
		"total_count": len(snapshots),
	})
}

func (h *APIHandlers) GetWorkflow(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Workflow ID is required")
	}

	workflow, err := h.repo.ByID(c.Context(), id)
	if err != nil {
		return handleEngineError(c, err)
	}

	return c.JSON(workflow.Snapshot())
}

func (h *APIHandlers) GetWorkflowAlerts(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Workflow ID is required")
	}

	workflow, err := h.repo.ByID(c.Context(), id)
	if err != nil {
		return handleEngineError(c, err)
	}

	alerts := workflow.AlertsSnapshot()

	return c.JSON(AlertsResponse{
		WorkflowID: workflow.ID,
		Alerts:     alerts,
		Count:      len(alerts),
	})
}

// ApproveWorkflow applies a physician's approval decision and resumes the
// workflow's held actions.
func (h *APIHandlers) ApproveWorkflow(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Workflow ID is required")
	}

	var req ApproveWorkflowRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	workflow, err := h.engine.ResumeAfterApproval(c.Context(), id, req.ApproverID, req.Modifications)
	if err != nil {
		return handleEngineError(c, err)
	}

	return c.JSON(workflow.Snapshot())
}

func (h *APIHandlers) RejectWorkflow(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Workflow ID is required")
	}

	var req RejectWorkflowRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	workflow, err := h.engine.RejectWorkflow(c.Context(), id, req.RejectedBy, req.Reason)
	if err != nil {
		return handleEngineError(c, err)
	}

	return c.JSON(workflow.Snapshot())
}

func (h *APIHandlers) RetryAction(c fiber.Ctx) error {
	id := c.Params("id")
	actionID := c.Params("actionId")

	if id == "" || actionID == "" {
		return badRequest(c, "Workflow ID and action ID are required")
	}

	action, err := h.engine.RetryAction(c.Context(), id, actionID)
	if err != nil {
		return handleEngineError(c, err)
	}

	return c.JSON(action)
}

func (h *APIHandlers) GetDashboard(c fiber.Ctx) error {
	dashboard, err := h.engine.Dashboard(c.Context())
	if err != nil {
		return internalError(c, err)
	}

	return c.JSON(dashboard)
}

func (h *APIHandlers) HealthCheck(c fiber.Ctx) error {
	status := "healthy"
	message := "Workflow API is healthy"
	httpStatus := http.StatusOK
	repositoryCheck := "ok"

	if err := h.repo.HealthCheck(c.Context()); err != nil {
		status = "unhealthy"
		message = "Workflow API is unhealthy"
		httpStatus = http.StatusInternalServerError
		repositoryCheck = err.Error()
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
