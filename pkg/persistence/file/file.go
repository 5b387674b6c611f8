// Package file provides file-based persistence for pipelines.
package file

import (
	"cmp"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/dukex/idpflow/pkg/models"
	"github.com/dukex/idpflow/pkg/persistence"
)

// Persistence keeps one JSON document per pipeline under <root>/pipelines.
type Persistence struct {
	root string
	mu   sync.RWMutex
}

// NewPersistence creates a new instance of Persistence with the specified root directory.
func NewPersistence(root string) persistence.Persistence {
	return &Persistence{root: strings.Replace(root, "file://", "", 1)}
}

// Close performs any necessary cleanup. For file-based persistence, there is nothing to clean up.
func (fp *Persistence) Close(_ context.Context) error {
	return nil
}

// HealthCheck checks if the file persistence layer is healthy by verifying the root directory exists.
func (fp *Persistence) HealthCheck(_ context.Context) error {
	if _, err := os.Stat(fp.root); os.IsNotExist(err) {
		return os.ErrNotExist
	}

	return nil
}

func (fp *Persistence) Pipelines(_ context.Context) ([]models.PipelineDocument, error) {
	fp.mu.RLock()
	defer fp.mu.RUnlock()

	jsonFiles, err := fs.Glob(os.DirFS(fp.dir()), "*.json")
	if err != nil {
		return nil, fmt.Errorf("failed to list pipeline files: %w", err)
	}

	docs := make([]models.PipelineDocument, 0, len(jsonFiles))

	for _, name := range jsonFiles {
		doc, err := fp.read(filepath.Join(fp.dir(), name))
		if err != nil {
			return nil, fmt.Errorf("failed to load pipeline %s: %w", strings.TrimSuffix(name, ".json"), err)
		}

		docs = append(docs, doc)
	}

	slices.SortFunc(docs, func(a, b models.PipelineDocument) int {
		return cmp.Or(b.CreatedAt.Compare(a.CreatedAt), cmp.Compare(a.ID, b.ID))
	})

	return docs, nil
}

func (fp *Persistence) PipelineByID(_ context.Context, id string) (models.PipelineDocument, error) {
	if err := persistence.ValidatePipelineID(id); err != nil {
		return models.PipelineDocument{}, persistence.NewPipelineError("PipelineByID", id, err)
	}

	fp.mu.RLock()
	defer fp.mu.RUnlock()

	doc, err := fp.read(fp.path(id))
	if errors.Is(err, os.ErrNotExist) {
		return models.PipelineDocument{}, persistence.NewPipelineError("PipelineByID", id, persistence.ErrPipelineNotFound)
	}

	if err != nil {
		return models.PipelineDocument{}, persistence.NewPipelineError("PipelineByID", id, err)
	}

	return doc, nil
}

// SavePipeline writes the document through a temporary file so readers never
// see a partial write.
func (fp *Persistence) SavePipeline(_ context.Context, doc models.PipelineDocument) error {
	if err := persistence.ValidatePipelineID(doc.ID); err != nil {
		return persistence.NewPipelineError("SavePipeline", doc.ID, err)
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return persistence.NewPipelineError("SavePipeline", doc.ID, err)
	}

	fp.mu.Lock()
	defer fp.mu.Unlock()

	if err := os.MkdirAll(fp.dir(), 0750); err != nil {
		return fmt.Errorf("failed to create pipelines directory: %w", err)
	}

	tmp, err := os.CreateTemp(fp.dir(), doc.ID+".*.tmp")
	if err != nil {
		return persistence.NewPipelineError("SavePipeline", doc.ID, err)
	}

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())

		return persistence.NewPipelineError("SavePipeline", doc.ID, err)
	}

	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())

		return persistence.NewPipelineError("SavePipeline", doc.ID, err)
	}

	if err := os.Rename(tmp.Name(), fp.path(doc.ID)); err != nil {
		_ = os.Remove(tmp.Name())

		return persistence.NewPipelineError("SavePipeline", doc.ID, err)
	}

	return nil
}

func (fp *Persistence) DeletePipeline(_ context.Context, id string) error {
	if err := persistence.ValidatePipelineID(id); err != nil {
		return persistence.NewPipelineError("DeletePipeline", id, err)
	}

	fp.mu.Lock()
	defer fp.mu.Unlock()

	err := os.Remove(fp.path(id))
	if errors.Is(err, os.ErrNotExist) {
		return persistence.NewPipelineError("DeletePipeline", id, persistence.ErrPipelineNotFound)
	}

	if err != nil {
		return persistence.NewPipelineError("DeletePipeline", id, err)
	}

	return nil
}

func (fp *Persistence) dir() string {
	return filepath.Join(fp.root, "pipelines")
}

func (fp *Persistence) path(id string) string {
	return filepath.Join(fp.dir(), id+".json")
}

func (fp *Persistence) read(path string) (models.PipelineDocument, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return models.PipelineDocument{}, err
	}

	var doc models.PipelineDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return models.PipelineDocument{}, fmt.Errorf("failed to decode pipeline: %w", err)
	}

	return doc, nil
}
