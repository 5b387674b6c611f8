// Package projects looks up the extraction projects a document AI node can use.
package projects

import (
	"context"
	"errors"
	"slices"
	"sync"

	"github.com/dukex/idpflow/pkg/models"
)

var (
	ErrProjectNotFound = errors.New("project not found")
	ErrUnavailable     = errors.New("project directory unavailable")
)

// Directory lists and resolves extraction projects.
type Directory interface {
	List(ctx context.Context) ([]models.ProjectRef, error)
	Get(ctx context.Context, id string) (models.ProjectRef, error)
}

// MemoryDirectory is a Directory over a fixed set of projects.
type MemoryDirectory struct {
	mu       sync.RWMutex
	projects []models.ProjectRef
}

func NewMemoryDirectory(projects ...models.ProjectRef) *MemoryDirectory {
	d := &MemoryDirectory{}
	d.Reset(projects...)

	return d
}

func (d *MemoryDirectory) List(_ context.Context) ([]models.ProjectRef, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	out := make([]models.ProjectRef, 0, len(d.projects))
	for i := range d.projects {
		out = append(out, *d.projects[i].Clone())
	}

	return out, nil
}

func (d *MemoryDirectory) Get(_ context.Context, id string) (models.ProjectRef, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	for i := range d.projects {
		if d.projects[i].ID == id {
			return *d.projects[i].Clone(), nil
		}
	}

	return models.ProjectRef{}, ErrProjectNotFound
}

// Reset replaces the projects.
func (d *MemoryDirectory) Reset(projects ...models.ProjectRef) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.projects = slices.Clone(projects)
}
