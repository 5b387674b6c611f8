package mocks

import (
	"context"
	"io"

	"github.com/dukex/idpflow/pkg/extraction"
	"github.com/dukex/idpflow/pkg/models"
	"github.com/stretchr/testify/mock"
)

// MockInvoker is a mock implementation of extraction.Invoker interface.
// The document body is read into Body so expectations can assert on it.
type MockInvoker struct {
	mock.Mock

	Body []byte
}

func (m *MockInvoker) Extract(ctx context.Context, req extraction.Request) ([]models.Field, error) {
	if req.File != nil {
		m.Body, _ = io.ReadAll(req.File)
	}

	args := m.Called(ctx, req.ProjectID, req.DocumentType, req.FileName)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]models.Field), args.Error(1)
}
