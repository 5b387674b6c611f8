// Package storage keeps documents uploaded to document AI nodes.
package storage

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"github.com/dukex/idpflow/pkg/models"
)

// DefaultMaxSize caps a single upload.
const DefaultMaxSize = 50 << 20

const pdfContentType = "application/pdf"

var pdfMagic = []byte("%PDF-")

var (
	ErrFileNotFound = errors.New("file not found")
	ErrInvalidFile  = errors.New("invalid file")
	ErrFileTooLarge = errors.New("file too large")
)

// Store saves uploaded documents and reads them back.
type Store interface {
	Put(ctx context.Context, name, contentType string, r io.Reader) (models.UploadedFile, error)
	Open(ctx context.Context, file models.UploadedFile) (io.ReadCloser, error)
	Delete(ctx context.Context, file models.UploadedFile) error
}

// DiskStore keeps each upload at <root>/uploads/<id>/<name>.
type DiskStore struct {
	root    string
	maxSize int64
	logger  *slog.Logger
}

func NewDiskStore(root string, logger *slog.Logger) *DiskStore {
	return &DiskStore{
		root:    filepath.Clean(root),
		maxSize: DefaultMaxSize,
		logger:  logger.With("module", "storage"),
	}
}

func (s *DiskStore) Put(_ context.Context, name, contentType string, r io.Reader) (models.UploadedFile, error) {
	name = filepath.Base(filepath.Clean("/" + strings.ReplaceAll(name, `\`, "/")))
	if name == "/" || name == "." {
		return models.UploadedFile{}, fmt.Errorf("%w: missing file name", ErrInvalidFile)
	}

	if !isPDF(name, contentType) {
		return models.UploadedFile{}, fmt.Errorf("%w: %s is not a PDF document", ErrInvalidFile, name)
	}

	br := bufio.NewReader(r)

	head, err := br.Peek(len(pdfMagic))
	if err != nil && !errors.Is(err, io.EOF) {
		return models.UploadedFile{}, fmt.Errorf("failed to read upload: %w", err)
	}

	if !bytes.Equal(head, pdfMagic) {
		return models.UploadedFile{}, fmt.Errorf("%w: %s does not start with a PDF header", ErrInvalidFile, name)
	}

	id := uuid.New().String()
	dir := filepath.Join(s.root, "uploads", id)

	if err := os.MkdirAll(dir, 0750); err != nil {
		return models.UploadedFile{}, fmt.Errorf("failed to create upload directory: %w", err)
	}

	location := filepath.Join(dir, name)

	size, err := s.write(location, br)
	if err != nil {
		_ = os.RemoveAll(dir)

		return models.UploadedFile{}, err
	}

	file := models.UploadedFile{
		ID:          id,
		Name:        name,
		ContentType: pdfContentType,
		Size:        size,
		Location:    location,
		StoredAt:    time.Now().UTC(),
	}

	file.Pages = s.pageCount(location)

	s.logger.Info("Stored upload", "file_id", id, "name", name, "size", size, "pages", file.Pages)

	return file, nil
}

func (s *DiskStore) write(location string, r io.Reader) (int64, error) {
	f, err := os.OpenFile(location, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0640)
	if err != nil {
		return 0, fmt.Errorf("failed to create upload: %w", err)
	}

	size, err := io.Copy(f, io.LimitReader(r, s.maxSize+1))
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}

	if err != nil {
		return 0, fmt.Errorf("failed to write upload: %w", err)
	}

	if size > s.maxSize {
		return 0, fmt.Errorf("%w: limit is %d bytes", ErrFileTooLarge, s.maxSize)
	}

	return size, nil
}

// pageCount returns 0 when the document cannot be parsed.
func (s *DiskStore) pageCount(location string) int {
	f, err := os.Open(location)
	if err != nil {
		return 0
	}
	defer f.Close()

	ctx, err := api.ReadValidateAndOptimize(f, model.NewDefaultConfiguration())
	if err != nil {
		s.logger.Debug("Could not read PDF page count", "location", location, "error", err)

		return 0
	}

	return ctx.PageCount
}

func (s *DiskStore) Open(_ context.Context, file models.UploadedFile) (io.ReadCloser, error) {
	location, err := s.resolve(file)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(location)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrFileNotFound, file.ID)
		}

		return nil, fmt.Errorf("failed to open upload %s: %w", file.ID, err)
	}

	return f, nil
}

func (s *DiskStore) Delete(_ context.Context, file models.UploadedFile) error {
	location, err := s.resolve(file)
	if err != nil {
		return err
	}

	if err := os.RemoveAll(filepath.Dir(location)); err != nil {
		return fmt.Errorf("failed to delete upload %s: %w", file.ID, err)
	}

	return nil
}

// resolve refuses locations outside the uploads directory.
func (s *DiskStore) resolve(file models.UploadedFile) (string, error) {
	uploads := filepath.Join(s.root, "uploads")
	location := filepath.Clean(file.Location)

	rel, err := filepath.Rel(uploads, location)
	if err != nil || rel == "." || strings.HasPrefix(rel, "..") {
		return "", fmt.Errorf("%w: %s", ErrFileNotFound, file.ID)
	}

	return location, nil
}

func isPDF(name, contentType string) bool {
	return strings.EqualFold(filepath.Ext(name), ".pdf") || strings.HasPrefix(contentType, pdfContentType)
}

var _ Store = (*DiskStore)(nil)
