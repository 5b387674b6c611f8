// Package web provides HTTP handlers and REST API endpoints for pipeline management.
package web

import (
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"

	"github.com/dukex/idpflow/pkg/models"
	"github.com/dukex/idpflow/pkg/registry"
	"github.com/dukex/idpflow/pkg/services"
)

// ExportFileName is the attachment name of an extraction result download.
const ExportFileName = "extraction_results.json"

type APIHandlers struct {
	pipelines *services.Pipelines
	activity  *services.Activity
	validator *validator.Validate
	registry  *registry.Registry
}

func NewAPIHandlers(
	pipelines *services.Pipelines,
	activity *services.Activity,
	validator *validator.Validate,
	registry *registry.Registry,
) *APIHandlers {
	return &APIHandlers{
		pipelines: pipelines,
		activity:  activity,
		validator: validator,
		registry:  registry,
	}
}

// RegisterRoutes mounts the pipeline API on router.
func (h *APIHandlers) RegisterRoutes(router fiber.Router) {
	router.Get("/health", h.HealthCheck)
	router.Get("/catalog", h.GetCatalog)
	router.Get("/projects", h.GetProjects)

	p := router.Group("/pipelines")
	p.Get("/", h.GetPipelines)
	p.Post("/", h.CreatePipeline)
	p.Get("/:id", h.GetPipeline)
	p.Delete("/:id", h.DeletePipeline)
	p.Post("/:id/clear", h.ClearPipeline)
	p.Get("/:id/readiness", h.GetReadiness)
	p.Post("/:id/run", h.RunPipeline)
	p.Get("/:id/activity", h.GetActivity)

	p.Post("/:id/nodes", h.AddNode)
	p.Get("/:id/nodes/:nodeId", h.GetNode)
	p.Patch("/:id/nodes/:nodeId", h.UpdateNode)
	p.Delete("/:id/nodes/:nodeId", h.RemoveNode)
	p.Put("/:id/nodes/:nodeId/position", h.MoveNode)
	p.Put("/:id/nodes/:nodeId/file", h.UploadFile)
	p.Patch("/:id/nodes/:nodeId/fields/:fieldId", h.EditField)
	p.Get("/:id/nodes/:nodeId/result", h.ExportResult)
	p.Post("/:id/nodes/:nodeId/test", h.TestNode)

	p.Post("/:id/edges", h.Connect)
	p.Delete("/:id/edges/:edgeId", h.Disconnect)
}

func (h *APIHandlers) HealthCheck(c fiber.Ctx) error {
	registryCheck, regOk := h.registry.HealthCheck()
	repositoryCheck, repOk := h.pipelines.HealthCheck(c.Context())

	status := "unhealthy"
	message := "Pipeline API is unhealthy"
	httpStatus := http.StatusInternalServerError

	if regOk && repOk {
		status = "healthy"
		message = "Pipeline API is healthy"
		httpStatus = http.StatusOK
	}

	return c.Status(httpStatus).JSON(fiber.Map{
		"status":  status,
		"message": message,
		"checkers": fiber.Map{
			"registry":   registryCheck,
			"repository": repositoryCheck,
		},
		"timestamp": time.Now().UTC(),
	})
}

func (h *APIHandlers) GetCatalog(c fiber.Ctx) error {
	return c.JSON(h.pipelines.Catalog())
}

func (h *APIHandlers) GetProjects(c fiber.Ctx) error {
	refs, err := h.pipelines.Projects(c.Context())
	if err != nil {
		return internalError(c, err)
	}

	return c.JSON(refs)
}

func (h *APIHandlers) GetPipelines(c fiber.Ctx) error {
	list, err := h.pipelines.List(c.Context())
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(fiber.Map{
		"pipelines":   list,
		"total_count": len(list),
	})
}

func (h *APIHandlers) CreatePipeline(c fiber.Ctx) error {
	var req CreatePipelineRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	created, err := h.pipelines.Create(c.Context(), req.Name)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(TransformPipelineResponse(created))
}

func (h *APIHandlers) GetPipeline(c fiber.Ctx) error {
	doc, err := h.pipelines.Get(c.Context(), c.Params("id"))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(TransformPipelineResponse(doc))
}

func (h *APIHandlers) DeletePipeline(c fiber.Ctx) error {
	if err := h.pipelines.Delete(c.Context(), c.Params("id")); err != nil {
		return handleServiceError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func (h *APIHandlers) ClearPipeline(c fiber.Ctx) error {
	doc, err := h.pipelines.Clear(c.Context(), c.Params("id"))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(TransformPipelineResponse(doc))
}

func (h *APIHandlers) GetReadiness(c fiber.Ctx) error {
	issues, err := h.pipelines.Readiness(c.Context(), c.Params("id"))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(ReadinessResponse{Ready: len(issues) == 0, Issues: issues})
}

func (h *APIHandlers) RunPipeline(c fiber.Ctx) error {
	result, err := h.pipelines.Run(c.Context(), c.Params("id"))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(result)
}

func (h *APIHandlers) GetActivity(c fiber.Ctx) error {
	id := c.Params("id")

	if _, err := h.pipelines.Get(c.Context(), id); err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(h.activity.Feed(id))
}

func (h *APIHandlers) AddNode(c fiber.Ctx) error {
	var req DropNodeRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	node, err := h.pipelines.AddNode(c.Context(), c.Params("id"), services.DropRequest{
		Type:     req.Type,
		Label:    req.Label,
		Position: models.Position{X: req.Position.X, Y: req.Position.Y},
	})
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(TransformNodeResponse(node))
}

func (h *APIHandlers) GetNode(c fiber.Ctx) error {
	node, err := h.pipelines.Node(c.Context(), c.Params("id"), c.Params("nodeId"))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(TransformNodeResponse(node))
}

func (h *APIHandlers) UpdateNode(c fiber.Ctx) error {
	var req UpdateNodeRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	node, err := h.pipelines.UpdateNode(c.Context(), c.Params("id"), c.Params("nodeId"), req.toService())
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(TransformNodeResponse(node))
}

func (h *APIHandlers) RemoveNode(c fiber.Ctx) error {
	if err := h.pipelines.RemoveNode(c.Context(), c.Params("id"), c.Params("nodeId")); err != nil {
		return handleServiceError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func (h *APIHandlers) MoveNode(c fiber.Ctx) error {
	var req PositionRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	node, err := h.pipelines.MoveNode(c.Context(), c.Params("id"), c.Params("nodeId"),
		models.Position{X: req.X, Y: req.Y})
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(TransformNodeResponse(node))
}

// UploadFile accepts the document as the multipart field "file".
func (h *APIHandlers) UploadFile(c fiber.Ctx) error {
	header, err := c.FormFile("file")
	if err != nil {
		return badRequest(c, "multipart field \"file\" is required")
	}

	f, err := header.Open()
	if err != nil {
		return internalError(c, err)
	}
	defer f.Close()

	node, err := h.pipelines.UploadFile(c.Context(), c.Params("id"), c.Params("nodeId"),
		header.Filename, header.Header.Get(fiber.HeaderContentType), f)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(TransformNodeResponse(node))
}

func (h *APIHandlers) EditField(c fiber.Ctx) error {
	var req EditFieldRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	field, err := h.pipelines.EditField(c.Context(), c.Params("id"), c.Params("nodeId"), c.Params("fieldId"), *req.Value)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(field)
}

// ExportResult downloads the extracted fields as a JSON attachment.
func (h *APIHandlers) ExportResult(c fiber.Ctx) error {
	fields, err := h.pipelines.Result(c.Context(), c.Params("id"), c.Params("nodeId"))
	if err != nil {
		return handleServiceError(c, err)
	}

	c.Attachment(ExportFileName)

	return c.JSON(fields)
}

func (h *APIHandlers) TestNode(c fiber.Ctx) error {
	result, err := h.pipelines.TestNode(c.Context(), c.Params("id"), c.Params("nodeId"))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(result)
}

func (h *APIHandlers) Connect(c fiber.Ctx) error {
	var req ConnectRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	edge, err := h.pipelines.Connect(c.Context(), c.Params("id"), req.Source, req.Target)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(edge)
}

func (h *APIHandlers) Disconnect(c fiber.Ctx) error {
	if err := h.pipelines.Disconnect(c.Context(), c.Params("id"), c.Params("edgeId")); err != nil {
		return handleServiceError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}
