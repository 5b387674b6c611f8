// Package registry keeps the node factories of every catalog kind.
package registry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"github.com/dukex/idpflow/pkg/models"
	"github.com/dukex/idpflow/pkg/protocol"
)

var ErrKindNotRegistered = errors.New("node kind not registered")

// ValidationError lists what a configuration update got wrong for its kind.
type ValidationError struct {
	Kind     models.NodeKind
	Problems []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s configuration: %s", e.Kind, strings.Join(e.Problems, "; "))
}

// CatalogEntry describes one kind for the node palette.
type CatalogEntry struct {
	models.KindInfo

	Description string         `json:"description"`
	Schema      map[string]any `json:"schema"`
}

type Registry struct {
	logger    *slog.Logger
	factories map[models.NodeKind]protocol.NodeFactory
	schemas   map[models.NodeKind]*gojsonschema.Schema
}

func NewRegistry(log *slog.Logger) *Registry {
	return &Registry{
		logger:    log,
		factories: make(map[models.NodeKind]protocol.NodeFactory),
		schemas:   make(map[models.NodeKind]*gojsonschema.Schema),
	}
}

// RegisterNode adds a factory, replacing any earlier one for the same kind.
// It panics when the factory's schema does not compile, which is a
// programming error.
func (r *Registry) RegisterNode(factory protocol.NodeFactory) {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewGoLoader(factory.Schema()))
	if err != nil {
		panic(fmt.Sprintf("invalid schema for node kind %s: %v", factory.Kind(), err))
	}

	r.factories[factory.Kind()] = factory
	r.schemas[factory.Kind()] = schema

	r.logger.Debug("Registered node factory", "kind", factory.Kind())
}

func (r *Registry) Factory(kind models.NodeKind) (protocol.NodeFactory, bool) {
	factory, ok := r.factories[kind]

	return factory, ok
}

// CreateNode returns the executor for a node snapshot.
func (r *Registry) CreateNode(ctx context.Context, node models.Node) (protocol.NodeExecutor, error) {
	factory, ok := r.factories[node.Kind]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrKindNotRegistered, node.Kind)
	}

	return factory.Create(ctx, node)
}

// ValidateConfiguration checks a raw configuration update against the schema
// of kind. Problems are reported in the order gojsonschema finds them.
func (r *Registry) ValidateConfiguration(kind models.NodeKind, update map[string]any) error {
	schema, ok := r.schemas[kind]
	if !ok {
		return fmt.Errorf("%w: %s", ErrKindNotRegistered, kind)
	}

	if update == nil {
		update = map[string]any{}
	}

	result, err := schema.Validate(gojsonschema.NewGoLoader(update))
	if err != nil {
		return fmt.Errorf("failed to validate configuration: %w", err)
	}

	if result.Valid() {
		return nil
	}

	problems := make([]string, 0, len(result.Errors()))
	for _, e := range result.Errors() {
		problems = append(problems, e.String())
	}

	return &ValidationError{Kind: kind, Problems: problems}
}

// Catalog lists the registered kinds in palette order.
func (r *Registry) Catalog() []CatalogEntry {
	entries := make([]CatalogEntry, 0, len(r.factories))

	for _, kind := range models.AllKinds() {
		factory, ok := r.factories[kind]
		if !ok {
			continue
		}

		info, _ := kind.Info()

		entries = append(entries, CatalogEntry{
			KindInfo:    info,
			Description: factory.Description(),
			Schema:      factory.Schema(),
		})
	}

	return entries
}

// HealthCheck reports whether every catalog kind has a factory.
func (r *Registry) HealthCheck() (string, bool) {
	missing := make([]string, 0)

	for _, kind := range models.AllKinds() {
		if _, ok := r.factories[kind]; !ok {
			missing = append(missing, string(kind))
		}
	}

	if len(missing) > 0 {
		return "Registry is missing node kinds: " + strings.Join(missing, ", "), false
	}

	return "Registry is healthy", true
}
