// Package extraction calls the document extraction backend and maps its
// results into display fields.
package extraction

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/dukex/idpflow/pkg/models"
)

const (
	DefaultTimeout = 2 * time.Minute
	extractPath    = "/playground/extract"
	maxErrorBody   = 64 << 10
)

// Request is one document submitted for extraction.
type Request struct {
	ProjectID    string
	DocumentType string
	FileName     string
	File         io.Reader
}

// Invoker submits documents for extraction.
type Invoker interface {
	Extract(ctx context.Context, req Request) ([]models.Field, error)
}

// HTTPInvoker talks to the extraction backend over HTTP.
type HTTPInvoker struct {
	baseURL string
	token   string
	client  *http.Client
	logger  *slog.Logger
}

type Option func(*HTTPInvoker)

func WithToken(token string) Option {
	return func(i *HTTPInvoker) { i.token = token }
}

func WithHTTPClient(client *http.Client) Option {
	return func(i *HTTPInvoker) { i.client = client }
}

func NewHTTPInvoker(baseURL string, logger *slog.Logger, opts ...Option) *HTTPInvoker {
	i := &HTTPInvoker{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: DefaultTimeout},
		logger:  logger.With("module", "extraction"),
	}

	for _, opt := range opts {
		opt(i)
	}

	return i
}

type extractResponse struct {
	FileID           string `json:"file_id"`
	ExtractionResult struct {
		Status        string          `json:"status"`
		ExtractedData json.RawMessage `json:"extracted_data"`
	} `json:"extraction_result"`
}

type errorResponse struct {
	Error  json.RawMessage `json:"error"`
	Detail json.RawMessage `json:"detail"`
}

// Extract uploads the file and returns the extracted fields.
func (i *HTTPInvoker) Extract(ctx context.Context, req Request) ([]models.Field, error) {
	body, contentType, err := encodeRequest(req)
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, i.baseURL+extractPath, body)
	if err != nil {
		return nil, upstreamError("failed to create extraction request: %v", err)
	}

	httpReq.Header.Set("Content-Type", contentType)
	httpReq.Header.Set("Accept", "application/json")

	if i.token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+i.token)
	}

	started := time.Now()

	resp, err := i.client.Do(httpReq)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}

		return nil, upstreamError("Failed to reach extraction service: %v", err)
	}
	defer resp.Body.Close()

	logger := i.logger.With(
		"project_id", req.ProjectID,
		"document_type", strings.ToLower(req.DocumentType),
		"status_code", resp.StatusCode,
		"duration", time.Since(started),
	)

	if resp.StatusCode >= http.StatusBadRequest {
		invErr := decodeError(resp)
		logger.Warn("Extraction failed", "error", invErr.Message)

		return nil, invErr
	}

	var out extractResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, upstreamError("Failed to decode extraction response: %v", err)
	}

	fields, err := MapExtractedData(out.ExtractionResult.ExtractedData)
	if err != nil {
		return nil, upstreamError("Failed to read extraction result: %v", err)
	}

	logger.Info("Extraction completed", "file_id", out.FileID, "fields", len(fields))

	return fields, nil
}

func encodeRequest(req Request) (io.Reader, string, error) {
	if req.File == nil {
		return nil, "", &InvocationError{Kind: ErrValidation, Message: "No document to extract."}
	}

	var buf bytes.Buffer

	w := multipart.NewWriter(&buf)

	if err := w.WriteField("project_id", req.ProjectID); err != nil {
		return nil, "", upstreamError("failed to encode extraction request: %v", err)
	}

	if err := w.WriteField("document_type", strings.ToLower(req.DocumentType)); err != nil {
		return nil, "", upstreamError("failed to encode extraction request: %v", err)
	}

	name := req.FileName
	if name == "" {
		name = "document"
	}

	part, err := w.CreateFormFile("file", name)
	if err != nil {
		return nil, "", upstreamError("failed to encode extraction request: %v", err)
	}

	if _, err := io.Copy(part, req.File); err != nil {
		return nil, "", upstreamError("failed to read document: %v", err)
	}

	if err := w.Close(); err != nil {
		return nil, "", upstreamError("failed to encode extraction request: %v", err)
	}

	return &buf, w.FormDataContentType(), nil
}

func decodeError(resp *http.Response) *InvocationError {
	kind := kindForStatus(resp.StatusCode)
	invErr := &InvocationError{
		Kind:       kind,
		StatusCode: resp.StatusCode,
		Message:    fallbackMessage(kind),
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if err != nil {
		return invErr
	}

	var body errorResponse
	if err := json.Unmarshal(data, &body); err != nil {
		return invErr
	}

	if msg := messageOf(body.Error); msg != "" {
		invErr.Message = msg
	} else if msg := messageOf(body.Detail); msg != "" {
		invErr.Message = msg
	}

	return invErr
}

// messageOf reads a string message, or the first "msg" of a validation detail list.
func messageOf(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}

	var details []struct {
		Msg string `json:"msg"`
	}
	if err := json.Unmarshal(raw, &details); err == nil && len(details) > 0 {
		return details[0].Msg
	}

	return ""
}

var _ Invoker = (*HTTPInvoker)(nil)
