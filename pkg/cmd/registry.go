// Package cmd provides common initialization functions for command-line applications.
package cmd

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/dukex/idpflow/pkg/extraction"
	"github.com/dukex/idpflow/pkg/nodes/simulate"
	"github.com/dukex/idpflow/pkg/projects"
	"github.com/dukex/idpflow/pkg/protocol"
	"github.com/dukex/idpflow/pkg/registry"
	"github.com/dukex/idpflow/pkg/storage"
)

// BackendConfig locates the extraction backend and shapes the simulated work
// of the nodes without a real backend.
type BackendConfig struct {
	ExtractionURL   string
	ExtractionToken string
	ProjectsURL     string
	SimulatedDelay  time.Duration
	SuccessRate     float64
	HTTPTimeout     time.Duration

	// PostAllowedHosts are the hosts https_post nodes may reach.
	PostAllowedHosts []string
}

// NewDirectory returns the project directory. Projects are served by the
// extraction backend unless a separate URL is set.
func NewDirectory(cfg BackendConfig, logger *slog.Logger) *projects.HTTPDirectory {
	baseURL := cfg.ProjectsURL
	if baseURL == "" {
		baseURL = cfg.ExtractionURL
	}

	return projects.NewHTTPDirectory(baseURL, cfg.ExtractionToken, logger)
}

func NewRegistry(log *slog.Logger, cfg BackendConfig, files storage.Store) *registry.Registry {
	client := &http.Client{Timeout: cfg.HTTPTimeout}

	invoker := extraction.NewHTTPInvoker(cfg.ExtractionURL, log,
		extraction.WithToken(cfg.ExtractionToken),
		extraction.WithHTTPClient(client),
	)

	policy := simulate.Default()
	policy.Delay = cfg.SimulatedDelay
	policy.SuccessRate = cfg.SuccessRate

	reg := registry.NewRegistry(log)
	reg.RegisterDefaultNodes(protocol.Dependencies{
		Logger:     log,
		Invoker:    invoker,
		Files:      files,
		Simulator:  policy,
		HTTPClient: client,

		PostAllowedHosts: cfg.PostAllowedHosts,
	})

	return reg
}
