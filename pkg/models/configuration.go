package models

import (
	"encoding/json"
	"errors"
	"fmt"
	"slices"
)

var ErrSettingsMismatch = errors.New("settings do not match node family")

// Configuration is the editable state of a node. The common part is shared by
// every kind; Settings holds the kind-specific variant.
type Configuration struct {
	Label        string     `json:"label"`
	Description  string     `json:"description,omitempty"`
	Status       NodeStatus `json:"status"`
	ErrorMessage string     `json:"error_message,omitempty"`
	Settings     Settings   `json:"settings"`
}

// Settings is implemented only by the variants in this package.
type Settings interface {
	Family() Family
	cloneSettings() Settings
}

type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type ConnectorSettings struct {
	Credentials *Credentials
}

func (*ConnectorSettings) Family() Family { return FamilyConnector }

func (s *ConnectorSettings) cloneSettings() Settings {
	out := &ConnectorSettings{}
	if s.Credentials != nil {
		creds := *s.Credentials
		out.Credentials = &creds
	}

	return out
}

type DocumentAISettings struct {
	Project *ProjectRef
	File    *UploadedFile
	Result  []Field
}

func (*DocumentAISettings) Family() Family { return FamilyDocumentAI }

func (s *DocumentAISettings) cloneSettings() Settings {
	out := &DocumentAISettings{Result: slices.Clone(s.Result)}
	if s.Project != nil {
		out.Project = s.Project.Clone()
	}

	if s.File != nil {
		file := *s.File
		out.File = &file
	}

	return out
}

// Ready reports whether the node has what it needs to call the extraction
// backend, and lists what is missing otherwise.
func (s *DocumentAISettings) Ready() (bool, []string) {
	var missing []string
	if s.Project == nil || s.Project.ID == "" {
		missing = append(missing, "project")
	}

	if s.File == nil {
		missing = append(missing, "file")
	}

	return len(missing) == 0, missing
}

type IntegrationSettings struct {
	Endpoint string
}

func (*IntegrationSettings) Family() Family { return FamilyIntegration }

func (s *IntegrationSettings) cloneSettings() Settings {
	out := *s

	return &out
}

type ReviewSettings struct{}

func (*ReviewSettings) Family() Family { return FamilyReview }

func (*ReviewSettings) cloneSettings() Settings { return &ReviewSettings{} }

// Clone returns a deep copy of the configuration.
func (c Configuration) Clone() Configuration {
	if c.Settings != nil {
		c.Settings = c.Settings.cloneSettings()
	}

	return c
}

// DocumentAI returns the document AI settings, or nil for other families.
func (c Configuration) DocumentAI() *DocumentAISettings {
	s, _ := c.Settings.(*DocumentAISettings)

	return s
}

func (c Configuration) Connector() *ConnectorSettings {
	s, _ := c.Settings.(*ConnectorSettings)

	return s
}

func (c Configuration) Integration() *IntegrationSettings {
	s, _ := c.Settings.(*IntegrationSettings)

	return s
}

// settingsEnvelope is the wire form of every settings variant.
type settingsEnvelope struct {
	Family      Family        `json:"family"`
	Credentials *Credentials  `json:"credentials,omitempty"`
	Project     *ProjectRef   `json:"selected_project,omitempty"`
	File        *UploadedFile `json:"uploaded_file,omitempty"`
	Result      []Field       `json:"extraction_result,omitempty"`
	Endpoint    string        `json:"endpoint,omitempty"`
}

type configurationJSON struct {
	Label        string            `json:"label"`
	Description  string            `json:"description,omitempty"`
	Status       NodeStatus        `json:"status"`
	ErrorMessage string            `json:"error_message,omitempty"`
	Settings     *settingsEnvelope `json:"settings,omitempty"`
}

func (c Configuration) MarshalJSON() ([]byte, error) {
	out := configurationJSON{
		Label:        c.Label,
		Description:  c.Description,
		Status:       c.Status,
		ErrorMessage: c.ErrorMessage,
	}

	switch s := c.Settings.(type) {
	case *ConnectorSettings:
		out.Settings = &settingsEnvelope{Family: FamilyConnector, Credentials: s.Credentials}
	case *DocumentAISettings:
		out.Settings = &settingsEnvelope{Family: FamilyDocumentAI, Project: s.Project, File: s.File, Result: s.Result}
	case *IntegrationSettings:
		out.Settings = &settingsEnvelope{Family: FamilyIntegration, Endpoint: s.Endpoint}
	case *ReviewSettings:
		out.Settings = &settingsEnvelope{Family: FamilyReview}
	}

	return json.Marshal(out)
}

func (c *Configuration) UnmarshalJSON(data []byte) error {
	var in configurationJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}

	c.Label = in.Label
	c.Description = in.Description
	c.Status = in.Status
	c.ErrorMessage = in.ErrorMessage
	c.Settings = nil

	if in.Settings == nil {
		return nil
	}

	settings, err := in.Settings.decode()
	if err != nil {
		return err
	}

	c.Settings = settings

	return nil
}

func (e *settingsEnvelope) decode() (Settings, error) {
	connector := e.Credentials != nil
	documentAI := e.Project != nil || e.File != nil || len(e.Result) > 0
	integration := e.Endpoint != ""

	switch e.Family {
	case FamilyConnector:
		if documentAI || integration {
			return nil, fmt.Errorf("%w: %s", ErrSettingsMismatch, e.Family)
		}

		return &ConnectorSettings{Credentials: e.Credentials}, nil
	case FamilyDocumentAI:
		if connector || integration {
			return nil, fmt.Errorf("%w: %s", ErrSettingsMismatch, e.Family)
		}

		return &DocumentAISettings{Project: e.Project, File: e.File, Result: e.Result}, nil
	case FamilyIntegration:
		if connector || documentAI {
			return nil, fmt.Errorf("%w: %s", ErrSettingsMismatch, e.Family)
		}

		return &IntegrationSettings{Endpoint: e.Endpoint}, nil
	case FamilyReview:
		if connector || documentAI || integration {
			return nil, fmt.Errorf("%w: %s", ErrSettingsMismatch, e.Family)
		}

		return &ReviewSettings{}, nil
	default:
		return nil, fmt.Errorf("%w: unknown family %q", ErrSettingsMismatch, e.Family)
	}
}
