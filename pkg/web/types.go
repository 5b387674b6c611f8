// Package web provides HTTP request and response types for the pipeline API.
package web

import (
	"github.com/dukex/idpflow/pkg/models"
	"github.com/dukex/idpflow/pkg/services"
)

// maskedPassword replaces stored mailbox passwords in responses.
const maskedPassword = "********"

// CreatePipelineRequest represents the request body for creating a new pipeline.
type CreatePipelineRequest struct {
	Name string `json:"name" validate:"required,min=1,max=255"`
}

type PositionRequest struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// DropNodeRequest is the palette drop payload. An empty type is rejected by
// the service, not here.
type DropNodeRequest struct {
	Type     string          `json:"type"     validate:"max=64"`
	Label    string          `json:"label"    validate:"max=120"`
	Position PositionRequest `json:"position"`
}

type CredentialsRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password"`
}

// UpdateNodeRequest represents the request body for updating a node configuration.
// All fields are optional to support partial updates.
type UpdateNodeRequest struct {
	Label       *string             `json:"label,omitempty"       validate:"omitempty,min=1,max=120"`
	Description *string             `json:"description,omitempty" validate:"omitempty,max=2000"`
	Credentials *CredentialsRequest `json:"credentials,omitempty"`
	ProjectID   *string             `json:"project_id,omitempty"  validate:"omitempty,min=1"`
	Endpoint    *string             `json:"endpoint,omitempty"    validate:"omitempty,max=2048"`
}

// EditFieldRequest sets the value of an extracted field. An empty value is allowed.
type EditFieldRequest struct {
	Value *string `json:"value" validate:"required"`
}

type ConnectRequest struct {
	Source string `json:"source" validate:"required"`
	Target string `json:"target" validate:"required"`
}

// ReadinessResponse lists the nodes that would stop a run.
type ReadinessResponse struct {
	Ready  bool                    `json:"ready"`
	Issues []models.ReadinessIssue `json:"issues"`
}

func (r UpdateNodeRequest) toService() services.NodeUpdate {
	update := services.NodeUpdate{
		Label:       r.Label,
		Description: r.Description,
		ProjectID:   r.ProjectID,
		Endpoint:    r.Endpoint,
	}

	if r.Credentials != nil {
		update.Credentials = &models.Credentials{
			Username: r.Credentials.Username,
			Password: r.Credentials.Password,
		}
	}

	return update
}

// TransformNodeResponse hides the mailbox password of connector nodes.
func TransformNodeResponse(node models.Node) models.Node {
	node = node.Clone()

	if settings := node.Config.Connector(); settings != nil && settings.Credentials != nil && settings.Credentials.Password != "" {
		settings.Credentials.Password = maskedPassword
	}

	return node
}

// TransformPipelineResponse applies TransformNodeResponse to every node.
func TransformPipelineResponse(doc models.PipelineDocument) models.PipelineDocument {
	nodes := make([]models.Node, 0, len(doc.Nodes))
	for _, node := range doc.Nodes {
		nodes = append(nodes, TransformNodeResponse(node))
	}

	doc.Nodes = nodes

	return doc
}
