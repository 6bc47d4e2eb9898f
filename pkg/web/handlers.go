package web

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/lensflow/lensflow/pkg/catalog"
	"github.com/lensflow/lensflow/pkg/jobs"
	"github.com/lensflow/lensflow/pkg/models"
	"github.com/lensflow/lensflow/pkg/pipeline"
	"github.com/lensflow/lensflow/pkg/registry"
)

type APIHandlers struct {
	registry  *registry.Registry
	manager   *jobs.Manager
	catalog   catalog.Catalog
	validator *validator.Validate
}

func NewAPIHandlers(
	reg *registry.Registry,
	manager *jobs.Manager,
	cat catalog.Catalog,
	validator *validator.Validate,
) *APIHandlers {
	return &APIHandlers{
		registry:  reg,
		manager:   manager,
		catalog:   cat,
		validator: validator,
	}
}

// Register mounts every API route on the app.
func (h *APIHandlers) Register(app *fiber.App) {
	app.Get("/health", h.HealthCheck)
	app.Get("/capabilities", h.ListCapabilities)

	app.Get("/pipelines", h.ListPipelines)
	app.Post("/pipelines", h.RegisterPipeline)
	app.Post("/pipelines/validate", h.ValidatePipeline)
	app.Get("/pipelines/:id", h.GetPipeline)
	app.Post("/pipelines/:id/run", h.RunPipeline)

	app.Get("/jobs/:id", h.GetJob)
	app.Delete("/jobs/:id", h.CancelJob)
}

func (h *APIHandlers) ListPipelines(c fiber.Ctx) error {
	summaries := h.registry.List()

	return c.JSON(fiber.Map{
		"pipelines": summaries,
		"count":     len(summaries),
	})
}

func (h *APIHandlers) GetPipeline(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Pipeline ID is required")
	}

	def, err := h.registry.Get(id)
	if err != nil {
		if errors.Is(err, registry.ErrPipelineNotFound) {
			return notFound(c, "pipeline not found")
		}

		return internalError(c, err)
	}

	return c.JSON(def)
}

func (h *APIHandlers) RegisterPipeline(c fiber.Ctx) error {
	var req RegisterPipelineRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	def := req.Definition()

	err := h.registry.Register(c.Context(), def)
	if err != nil {
		return handleRegistrationError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(def)
}

// ValidatePipeline dry-runs validation and reports the full error list. It
// never registers anything.
func (h *APIHandlers) ValidatePipeline(c fiber.Ctx) error {
	var req RegisterPipelineRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	validationErrs := pipeline.Validate(req.Definition(), h.catalog)

	return c.JSON(ValidateResponse{
		Valid:  len(validationErrs) == 0,
		Errors: validationErrs.Strings(),
	})
}

func (h *APIHandlers) RunPipeline(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Pipeline ID is required")
	}

	var req RunRequest
	if len(c.Body()) > 0 {
		if err := c.Bind().JSON(&req); err != nil {
			return badRequest(c, "Invalid JSON format")
		}
	}

	job, err := h.manager.Submit(c.Context(), id, req.Payload)
	if err != nil {
		return handleSubmitError(c, err)
	}

	return c.Status(fiber.StatusAccepted).JSON(RunResponse{JobID: job.ID})
}

// GetJob returns the job record. Unknown ids yield status not_found with
// HTTP 200 so pollers keep a single response shape.
func (h *APIHandlers) GetJob(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Job ID is required")
	}

	return c.JSON(h.manager.Status(id))
}

func (h *APIHandlers) CancelJob(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Job ID is required")
	}

	job, err := h.manager.Cancel(id)
	if err != nil {
		if errors.Is(err, jobs.ErrJobNotFound) {
			return notFound(c, "job not found")
		}

		return internalError(c, err)
	}

	return c.JSON(job)
}

func (h *APIHandlers) HealthCheck(c fiber.Ctx) error {
	catalogCheck, catalogOK := h.catalog.HealthCheck()

	storeCheck := "ok"
	storeOK := true

	if err := h.registry.HealthCheck(c.Context()); err != nil {
		storeCheck = err.Error()
		storeOK = false
	}

	status := "unhealthy"
	message := "Lensflow API is unhealthy"
	httpStatus := http.StatusInternalServerError

	if catalogOK && storeOK {
		status = "healthy"
		message = "Lensflow API is healthy"
		httpStatus = http.StatusOK
	}

	return c.Status(httpStatus).JSON(fiber.Map{
		"status":  status,
		"message": message,
		"checkers": fiber.Map{
			"catalog": catalogCheck,
			"store":   storeCheck,
		},
		"timestamp": time.Now().UTC(),
	})
}

// ListCapabilities exposes the registered tool capabilities for discovery.
// Only available when the catalog supports enumeration.
func (h *APIHandlers) ListCapabilities(c fiber.Ctx) error {
	type enumerator interface {
		Capabilities() []models.ToolCapability
	}

	enum, ok := h.catalog.(enumerator)
	if !ok {
		return notFound(c, "capability discovery not supported")
	}

	capabilities := enum.Capabilities()

	return c.JSON(fiber.Map{
		"capabilities": capabilities,
		"count":        len(capabilities),
	})
}
