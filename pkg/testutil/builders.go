package testutil

import (
	"io"
	"log/slog"

	"github.com/dukex/idpflow/pkg/models"
)

// Logger returns a logger that drops everything.
func Logger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// Node builds an idle node of kind with the default label.
func Node(id string, kind models.NodeKind) models.Node {
	return models.Node{
		ID:   id,
		Kind: kind,
		Config: models.Configuration{
			Label:    kind.Label(),
			Status:   models.StatusIdle,
			Settings: kind.NewSettings(),
		},
	}
}

// Project returns an extraction project reference for an invoice schema.
func Project(id string) *models.ProjectRef {
	return &models.ProjectRef{
		ID:             id,
		Name:           "Invoices " + id,
		DocumentType:   "invoice",
		ExtractionMode: "auto",
		Schema: []models.SchemaField{
			{Key: "invoice_number", Type: "string", Required: true},
			{Key: "total_amount", Type: "number", Required: true},
		},
	}
}
