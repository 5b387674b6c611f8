package mocks

import (
	"context"

	"github.com/dukex/idpflow/pkg/models"
	"github.com/stretchr/testify/mock"
)

// MockPersistence is a mock implementation of persistence.Persistence interface.
type MockPersistence struct {
	mock.Mock
}

func (m *MockPersistence) Pipelines(ctx context.Context) ([]models.PipelineDocument, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]models.PipelineDocument), args.Error(1)
}

func (m *MockPersistence) PipelineByID(ctx context.Context, id string) (models.PipelineDocument, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return models.PipelineDocument{}, args.Error(1)
	}

	return args.Get(0).(models.PipelineDocument), args.Error(1)
}

func (m *MockPersistence) SavePipeline(ctx context.Context, doc models.PipelineDocument) error {
	args := m.Called(ctx, doc)

	return args.Error(0)
}

func (m *MockPersistence) DeletePipeline(ctx context.Context, id string) error {
	args := m.Called(ctx, id)

	return args.Error(0)
}

func (m *MockPersistence) HealthCheck(ctx context.Context) error {
	args := m.Called(ctx)

	return args.Error(0)
}

func (m *MockPersistence) Close(ctx context.Context) error {
	args := m.Called(ctx)

	return args.Error(0)
}
