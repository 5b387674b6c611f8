package pipeline

import (
	"fmt"
	"net/url"
	"slices"
	"strings"

	"github.com/dukex/idpflow/pkg/models"
)

// ConfigPatch is a partial configuration update. Nil fields are left untouched.
type ConfigPatch struct {
	Label       *string              `json:"label,omitempty"`
	Description *string              `json:"description,omitempty"`
	Credentials *models.Credentials  `json:"credentials,omitempty"`
	Project     *models.ProjectRef   `json:"selected_project,omitempty"`
	File        *models.UploadedFile `json:"uploaded_file,omitempty"`
	Endpoint    *string              `json:"endpoint,omitempty"`
}

// Get returns a copy of the node configuration.
func (g *Graph) Get(nodeID string) (models.Configuration, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	node := g.index[nodeID]
	if node == nil {
		return models.Configuration{}, nodeError("get configuration", nodeID, ErrNodeNotFound)
	}

	return node.Config.Clone(), nil
}

// Update merges patch into the node configuration. A patch that names a field
// the node kind does not have is rejected as a whole. Replacing the uploaded
// file drops the previous extraction result and resets the node to idle.
func (g *Graph) Update(nodeID string, patch ConfigPatch) (models.Configuration, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	node := g.index[nodeID]
	if node == nil {
		return models.Configuration{}, nodeError("update configuration", nodeID, ErrNodeNotFound)
	}

	if err := validatePatch(node.Kind, patch); err != nil {
		return models.Configuration{}, nodeError("update configuration", nodeID, err)
	}

	cfg := node.Config.Clone()

	if patch.Label != nil {
		cfg.Label = strings.TrimSpace(*patch.Label)
	}

	if patch.Description != nil {
		cfg.Description = *patch.Description
	}

	switch s := cfg.Settings.(type) {
	case *models.ConnectorSettings:
		if patch.Credentials != nil {
			creds := *patch.Credentials
			s.Credentials = &creds
		}
	case *models.DocumentAISettings:
		if patch.Project != nil {
			s.Project = patch.Project.Clone()
		}

		if patch.File != nil {
			file := *patch.File
			s.File = &file
			s.Result = nil
			cfg.Status = models.StatusIdle
			cfg.ErrorMessage = ""
		}
	case *models.IntegrationSettings:
		if patch.Endpoint != nil {
			s.Endpoint = strings.TrimSpace(*patch.Endpoint)
		}
	}

	node.Config = cfg
	g.touch()

	return cfg.Clone(), nil
}

func validatePatch(kind models.NodeKind, patch ConfigPatch) error {
	family := kind.Family()

	if patch.Label != nil && strings.TrimSpace(*patch.Label) == "" {
		return fmt.Errorf("%w: label cannot be empty", ErrInvalidConfiguration)
	}

	if patch.Credentials != nil {
		if family != models.FamilyConnector {
			return fmt.Errorf("%w: %s nodes have no credentials", ErrInvalidConfiguration, kind)
		}

		if patch.Credentials.Username == "" {
			return fmt.Errorf("%w: username is required", ErrInvalidConfiguration)
		}
	}

	if patch.Project != nil {
		if family != models.FamilyDocumentAI {
			return fmt.Errorf("%w: %s nodes have no project", ErrInvalidConfiguration, kind)
		}

		if patch.Project.ID == "" {
			return fmt.Errorf("%w: project id is required", ErrInvalidConfiguration)
		}
	}

	if patch.File != nil {
		if family != models.FamilyDocumentAI {
			return fmt.Errorf("%w: %s nodes have no uploaded file", ErrInvalidConfiguration, kind)
		}

		if patch.File.ID == "" || patch.File.Name == "" {
			return fmt.Errorf("%w: uploaded file needs an id and a name", ErrInvalidConfiguration)
		}
	}

	if patch.Endpoint != nil {
		if kind != models.KindHTTPSPost {
			return fmt.Errorf("%w: %s nodes have no endpoint", ErrInvalidConfiguration, kind)
		}

		if endpoint := strings.TrimSpace(*patch.Endpoint); endpoint != "" {
			u, err := url.Parse(endpoint)
			if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
				return fmt.Errorf("%w: endpoint must be an http(s) URL", ErrInvalidConfiguration)
			}
		}
	}

	return nil
}

// SetStatus records an execution status. The error message is kept only for
// StatusError.
func (g *Graph) SetStatus(nodeID string, status models.NodeStatus, message string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	node := g.index[nodeID]
	if node == nil {
		return nodeError("set status", nodeID, ErrNodeNotFound)
	}

	node.Config.Status = status
	node.Config.ErrorMessage = ""

	if status == models.StatusError {
		node.Config.ErrorMessage = message
	}

	return nil
}

// SetExtractionResult replaces the extracted fields of a document AI node.
// fileID names the document the fields were extracted from; when the node
// holds a different document the write is refused with ErrStaleResult.
func (g *Graph) SetExtractionResult(nodeID, fileID string, fields []models.Field) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	node := g.index[nodeID]
	if node == nil {
		return nodeError("set extraction result", nodeID, ErrNodeNotFound)
	}

	settings := node.Config.DocumentAI()
	if settings == nil {
		return nodeError("set extraction result", nodeID, fmt.Errorf("%w: %s nodes have no extraction result", ErrInvalidConfiguration, node.Kind))
	}

	current := ""
	if settings.File != nil {
		current = settings.File.ID
	}

	if current != fileID {
		return nodeError("set extraction result", nodeID, ErrStaleResult)
	}

	settings.Result = slices.Clone(fields)
	g.touch()

	return nil
}

// EditField changes the value of one extracted field.
func (g *Graph) EditField(nodeID, fieldID, value string) (models.Field, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	node := g.index[nodeID]
	if node == nil {
		return models.Field{}, nodeError("edit field", nodeID, ErrNodeNotFound)
	}

	settings := node.Config.DocumentAI()
	if settings == nil {
		return models.Field{}, nodeError("edit field", nodeID, ErrFieldNotFound)
	}

	for i := range settings.Result {
		if settings.Result[i].ID == fieldID {
			settings.Result[i].Value = value
			g.touch()

			return settings.Result[i], nil
		}
	}

	return models.Field{}, nodeError("edit field", nodeID, fmt.Errorf("%w: %s", ErrFieldNotFound, fieldID))
}

// ResetStatuses sets every node to idle and drops error messages.
func (g *Graph) ResetStatuses() {
	g.mu.Lock()
	defer g.mu.Unlock()

	for _, n := range g.nodes {
		n.Config.Status = models.StatusIdle
		n.Config.ErrorMessage = ""
	}
}
