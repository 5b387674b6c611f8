package web

import (
	"errors"

	"github.com/gofiber/fiber/v3"
	"github.com/moogar0880/problems"

	"github.com/dukex/idpflow/pkg/persistence"
	"github.com/dukex/idpflow/pkg/pipeline"
	"github.com/dukex/idpflow/pkg/services"
)

// problem writes an RFC 7807 body for the current request.
func problem(c fiber.Ctx, status int, problemType, detail string) error {
	body := problems.NewStatusProblem(status).
		WithInstance(c.Path()).
		WithType(problemType).
		WithDetail(detail)

	return c.Status(status).JSON(body)
}

func badRequest(c fiber.Ctx, detail string) error {
	return problem(c, fiber.StatusBadRequest, "validation_error", detail)
}

func internalError(c fiber.Ctx, err error) error {
	body := problems.NewStatusProblem(fiber.StatusInternalServerError).
		WithInstance(c.Path()).
		WithType("internal_error").
		WithError(err)

	return c.Status(fiber.StatusInternalServerError).JSON(body)
}

// handleServiceError maps service layer errors to problem responses.
func handleServiceError(c fiber.Ctx, err error) error {
	switch {
	case persistence.IsPipelineNotFound(err):
		return problem(c, fiber.StatusNotFound, "pipeline_not_found", "pipeline not found")
	case errors.Is(err, pipeline.ErrNodeNotFound):
		return problem(c, fiber.StatusNotFound, "node_not_found", "node not found")
	case errors.Is(err, pipeline.ErrEdgeNotFound):
		return problem(c, fiber.StatusNotFound, "edge_not_found", "edge not found")
	case errors.Is(err, pipeline.ErrFieldNotFound):
		return problem(c, fiber.StatusNotFound, "field_not_found", "field not found")
	case services.IsValidationError(err):
		return badRequest(c, err.Error())
	case services.IsConflictError(err):
		return problem(c, fiber.StatusConflict, "conflict", err.Error())
	case services.IsPreconditionError(err):
		return problem(c, fiber.StatusUnprocessableEntity, "precondition_failed", err.Error())
	default:
		return internalError(c, err)
	}
}
