// Package stager persists uploaded diagrams to scratch storage for the lifetime
// of a single request.
package stager

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/neicnordic/bpmn-validator/internal/metrics"
	"github.com/neicnordic/bpmn-validator/internal/validationerrors"
	"github.com/neicnordic/bpmn-validator/model"
	log "github.com/sirupsen/logrus"
)

// Extension is the only file suffix accepted for upload, matched case-sensitively
const Extension = ".bpmn"

type Stager struct {
	dir     string
	maxSize int64
}

// NewStager creates a stager writing into the configured directory, the OS
// temporary directory is used when none is given
func NewStager(options ...func(*Stager)) (*Stager, error) {
	s := &Stager{}

	for _, option := range options {
		option(s)
	}

	if s.dir == "" {
		s.dir = os.TempDir()
	}
	if s.maxSize < 0 {
		return nil, errors.New("maxSize can not be negative")
	}

	fileInfo, err := os.Stat(s.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to stat upload directory: %w", err)
	}
	if !fileInfo.IsDir() {
		return nil, fmt.Errorf("%s is not a directory", s.dir)
	}

	return s, nil
}

// Dir returns the directory uploads are staged in
func (s *Stager) Dir() string {
	return s.dir
}

// Stage validates the claimed filename and writes the content to a new, uniquely
// named file. Nothing is written when the name is rejected, and a partially
// written file is removed before an error is returned.
func (s *Stager) Stage(ctx context.Context, filename string, content io.Reader) (*model.StagedUpload, error) {
	if s == nil {
		return nil, validationerrors.ErrStagerNotInitialized
	}
	if filename == "" || content == nil {
		return nil, validationerrors.ErrNoFile
	}
	if !strings.HasSuffix(filename, Extension) {
		return nil, fmt.Errorf("%w: %q", validationerrors.ErrInvalidExtension, filename)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	id := uuid.NewString()
	stagedPath := filepath.Join(s.dir, "upload-"+id+Extension)

	file, err := os.OpenFile(stagedPath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0600)
	if err != nil {
		return nil, fmt.Errorf("failed to create staged file: %w", err)
	}

	size, err := s.copy(file, content)
	if closeErr := file.Close(); err == nil && closeErr != nil {
		err = fmt.Errorf("failed to close staged file: %w", closeErr)
	}
	if err != nil {
		if removeErr := os.Remove(stagedPath); removeErr != nil {
			log.Errorf("failed to remove partially staged file %s due to: %v", stagedPath, removeErr)
		}

		return nil, err
	}

	metrics.StagedUploads.Inc()

	return &model.StagedUpload{
		ID:         id,
		SourceName: filename,
		Path:       stagedPath,
		Size:       size,
		CreatedAt:  time.Now(),
	}, nil
}

func (s *Stager) copy(dst io.Writer, src io.Reader) (int64, error) {
	if s.maxSize == 0 {
		size, err := io.Copy(dst, src)
		if err != nil {
			return size, fmt.Errorf("failed to write staged file: %w", err)
		}

		return size, nil
	}

	// Read one byte past the limit to detect oversized content
	size, err := io.Copy(dst, io.LimitReader(src, s.maxSize+1))
	if err != nil {
		return size, fmt.Errorf("failed to write staged file: %w", err)
	}
	if size > s.maxSize {
		return size, validationerrors.ErrUploadTooLarge
	}

	return size, nil
}

// Release removes the staged file. It is safe to call more than once and never
// returns an error: failures are logged so they can not replace the response
// being sent to the client.
func (s *Stager) Release(upload *model.StagedUpload) {
	if s == nil || upload == nil {
		return
	}

	if !upload.MarkReleased() {
		return
	}

	metrics.StagedUploads.Dec()

	if err := os.Remove(upload.Path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.WithField("upload", upload.ID).Errorf("failed to remove staged file %s due to: %v", upload.Path, err)
	}
}
