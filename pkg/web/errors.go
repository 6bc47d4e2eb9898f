package web

import (
	"errors"

	"github.com/gofiber/fiber/v3"
	"github.com/lensflow/lensflow/pkg/jobs"
	"github.com/lensflow/lensflow/pkg/pipeline"
	"github.com/lensflow/lensflow/pkg/registry"
	"github.com/moogar0880/problems"
)

func badRequest(c fiber.Ctx, detail string) error {
	problem := problems.NewStatusProblem(400).
		WithInstance(c.Path()).
		WithType("validation_error").
		WithDetail(detail)

	return c.Status(fiber.StatusBadRequest).JSON(problem)
}

func notFound(c fiber.Ctx, detail string) error {
	problem := problems.NewStatusProblem(404).
		WithInstance(c.Path()).
		WithType("not_found").
		WithDetail(detail)

	return c.Status(fiber.StatusNotFound).JSON(problem)
}

func internalError(c fiber.Ctx, err error) error {
	problem := problems.NewStatusProblem(500).
		WithInstance(c.Path()).
		WithType("internal_error").
		WithError(err)

	return c.Status(fiber.StatusInternalServerError).JSON(problem)
}

// handleRegistrationError maps registry errors onto problem responses:
// validation violations get 422 with the full error list, duplicate ids 409.
func handleRegistrationError(c fiber.Ctx, err error) error {
	var validationErrs pipeline.ValidationErrors
	if errors.As(err, &validationErrs) {
		problem := problems.NewStatusProblem(422).
			WithInstance(c.Path()).
			WithType("pipeline_invalid").
			WithDetail("pipeline definition failed validation")

		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
			"type":   problem.Type,
			"title":  problem.Title,
			"status": problem.Status,
			"detail": problem.Detail,
			"errors": validationErrs.Strings(),
		})
	}

	if errors.Is(err, registry.ErrPipelineExists) {
		problem := problems.NewStatusProblem(409).
			WithInstance(c.Path()).
			WithType("pipeline_exists").
			WithDetail(err.Error())

		return c.Status(fiber.StatusConflict).JSON(problem)
	}

	return internalError(c, err)
}

// handleSubmitError maps job submission errors: unknown pipeline 404, full
// queue 503.
func handleSubmitError(c fiber.Ctx, err error) error {
	if errors.Is(err, registry.ErrPipelineNotFound) {
		return notFound(c, "pipeline not found")
	}

	if errors.Is(err, jobs.ErrQueueFull) {
		problem := problems.NewStatusProblem(503).
			WithInstance(c.Path()).
			WithType("queue_full").
			WithDetail("job queue is full, retry later")

		return c.Status(fiber.StatusServiceUnavailable).JSON(problem)
	}

	return internalError(c, err)
}
