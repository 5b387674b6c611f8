package otelhelper

import (
	"errors"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/dukex/idpflow/pkg/models"
)

const RunStatusKey = "idpflow.run.status"

// RecordRun stores the outcome of a run on its span. A failed run names the
// node that stopped it.
func RecordRun(span trace.Span, result models.RunResult) {
	span.SetAttributes(attribute.String(RunStatusKey, string(result.Status)))

	switch result.Status {
	case models.RunSuccess:
		span.SetStatus(codes.Ok, "")
	case models.RunFailed:
		span.SetAttributes(attribute.String(NodeIDKey, result.FailedNodeID))
		span.RecordError(errors.New(result.Error))
		span.SetStatus(codes.Error, result.Error)
	case models.RunCancelled:
		// unset: a cancelled run is neither ok nor an error
	}
}

// RecordNodeFailure marks a node span failed.
func RecordNodeFailure(span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
