package projects

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/dukex/idpflow/pkg/models"
)

const (
	DefaultCacheExpiration = 5 * time.Minute
	cacheCleanupInterval   = 10 * time.Minute
	listCacheKey           = "projects:list"
	projectsPath           = "/projects/projects"
)

// HTTPDirectory reads projects from the platform API and caches them.
type HTTPDirectory struct {
	baseURL string
	token   string
	client  *http.Client
	cache   *gocache.Cache
	logger  *slog.Logger
}

func NewHTTPDirectory(baseURL, token string, logger *slog.Logger) *HTTPDirectory {
	return &HTTPDirectory{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		client:  &http.Client{Timeout: 30 * time.Second},
		cache:   gocache.New(DefaultCacheExpiration, cacheCleanupInterval),
		logger:  logger.With("module", "projects"),
	}
}

type schemaEntry struct {
	Type    string `json:"type"`
	Prompt  string `json:"prompt"`
	Enabled bool   `json:"enabled"`
}

type projectPayload struct {
	ID               string                 `json:"id"`
	ProjectName      string                 `json:"project_name"`
	Description      string                 `json:"description"`
	DocumentType     string                 `json:"document_type"`
	ExtractionMode   string                 `json:"extraction_mode"`
	ExtractionSchema map[string]schemaEntry `json:"extraction_schema"`
}

func (p projectPayload) toRef() models.ProjectRef {
	keys := make([]string, 0, len(p.ExtractionSchema))
	for k := range p.ExtractionSchema {
		keys = append(keys, k)
	}

	sort.Strings(keys)

	schema := make([]models.SchemaField, 0, len(keys))
	for _, k := range keys {
		entry := p.ExtractionSchema[k]
		schema = append(schema, models.SchemaField{
			Key:         k,
			Description: entry.Prompt,
			Type:        entry.Type,
			Required:    entry.Enabled,
		})
	}

	return models.ProjectRef{
		ID:             p.ID,
		Name:           p.ProjectName,
		DocumentType:   p.DocumentType,
		ExtractionMode: p.ExtractionMode,
		Schema:         schema,
	}
}

func (d *HTTPDirectory) List(ctx context.Context) ([]models.ProjectRef, error) {
	if cached, ok := d.cache.Get(listCacheKey); ok {
		if refs, ok := cached.([]models.ProjectRef); ok {
			return cloneRefs(refs), nil
		}
	}

	var payload []projectPayload
	if err := d.get(ctx, projectsPath, &payload); err != nil {
		return nil, err
	}

	refs := make([]models.ProjectRef, 0, len(payload))
	for _, p := range payload {
		ref := p.toRef()
		refs = append(refs, ref)
		d.cache.SetDefault(projectKey(ref.ID), ref)
	}

	d.cache.SetDefault(listCacheKey, refs)

	return cloneRefs(refs), nil
}

func (d *HTTPDirectory) Get(ctx context.Context, id string) (models.ProjectRef, error) {
	if cached, ok := d.cache.Get(projectKey(id)); ok {
		if ref, ok := cached.(models.ProjectRef); ok {
			return *ref.Clone(), nil
		}
	}

	var payload projectPayload
	if err := d.get(ctx, projectsPath+"/"+url.PathEscape(id), &payload); err != nil {
		return models.ProjectRef{}, err
	}

	ref := payload.toRef()
	d.cache.SetDefault(projectKey(id), ref)

	return *ref.Clone(), nil
}

// Flush drops every cached project.
func (d *HTTPDirectory) Flush() {
	d.cache.Flush()
}

func (d *HTTPDirectory) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, d.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")

	if d.token != "" {
		req.Header.Set("Authorization", "Bearer "+d.token)
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return ErrProjectNotFound
	case resp.StatusCode >= http.StatusBadRequest:
		d.logger.Warn("Project lookup failed", "path", path, "status_code", resp.StatusCode)

		return fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: failed to decode response: %v", ErrUnavailable, err)
	}

	return nil
}

func projectKey(id string) string {
	return "projects:" + id
}

func cloneRefs(refs []models.ProjectRef) []models.ProjectRef {
	out := make([]models.ProjectRef, 0, len(refs))
	for i := range refs {
		out = append(out, *refs[i].Clone())
	}

	return out
}
