// Package api exposes the validation service over HTTP.
package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/neicnordic/bpmn-validator/internal/metrics"
	"github.com/neicnordic/bpmn-validator/internal/validationerrors"
	"github.com/neicnordic/bpmn-validator/model"
	log "github.com/sirupsen/logrus"
)

const formFileField = "file"

// Stager stages uploads for the duration of a request
type Stager interface {
	Stage(ctx context.Context, filename string, content io.Reader) (*model.StagedUpload, error)
	Release(upload *model.StagedUpload)
}

// Runner lints a staged file
type Runner interface {
	Run(ctx context.Context, path string, timeout time.Duration) (*model.ValidationResult, error)
}

// ValidatorAPI implements the HTTP handlers of the service
type ValidatorAPI struct {
	stager          Stager
	runner          Runner
	timeout         time.Duration
	maxRequestSize  int64
	readinessChecks map[string]func(context.Context) error
}

func NewValidatorAPI(options ...func(*ValidatorAPI)) (*ValidatorAPI, error) {
	impl := &ValidatorAPI{
		readinessChecks: make(map[string]func(context.Context) error),
	}

	for _, option := range options {
		option(impl)
	}

	if impl.stager == nil {
		return nil, errors.New("stager is required")
	}
	if impl.runner == nil {
		return nil, errors.New("runner is required")
	}
	if impl.maxRequestSize < 0 {
		return nil, errors.New("maxRequestSize can not be negative")
	}

	return impl, nil
}

// RegisterRoutes registers all HTTP routes with the given gin engine.
func (api *ValidatorAPI) RegisterRoutes(r *gin.Engine) {
	r.GET("/health", api.HealthGet)
	r.GET("/health/ready", api.HealthReadyGet)
	r.GET("/metrics", gin.WrapH(metrics.Handler()))

	r.POST("/validate", api.ValidatePost)
	r.POST("/validate/raw", api.ValidateRawPost)
}

// HealthGet is the constant liveness signal
// GET /health
func (api *ValidatorAPI) HealthGet(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy"})
}

// HealthStatus represents the readiness check response.
type HealthStatus struct {
	Status   string            `json:"status"`
	Services map[string]string `json:"services,omitempty"`
}

// HealthReadyGet runs the registered readiness checks
// GET /health/ready
func (api *ValidatorAPI) HealthReadyGet(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	status := HealthStatus{Status: "ok", Services: make(map[string]string)}
	for name, check := range api.readinessChecks {
		if err := check(ctx); err != nil {
			log.Warnf("health check: %s failed: %v", name, err)
			status.Services[name] = "error: " + err.Error()
			status.Status = "degraded"

			continue
		}
		status.Services[name] = "ok"
	}

	if status.Status != "ok" {
		c.JSON(http.StatusServiceUnavailable, status)

		return
	}
	c.JSON(http.StatusOK, status)
}

// ValidatePost handles the POST /validate
func (api *ValidatorAPI) ValidatePost(c *gin.Context) {
	result, err := api.validate(c)
	if err != nil {
		api.abortWithError(c, err)

		return
	}

	c.JSON(http.StatusOK, result)
}

// ValidateRawPost handles the POST /validate/raw, which returns the linter
// output as is. A linter exiting non-zero fails the request, the way the
// legacy service reported it.
func (api *ValidatorAPI) ValidateRawPost(c *gin.Context) {
	result, err := api.validate(c)
	if err != nil {
		api.abortWithRawError(c, err)

		return
	}

	if result.ExitCode != 0 {
		api.abortWithRawError(c, linterFailure(result))

		return
	}
	if result.Stderr == "" && len(result.Problems) == 0 {
		c.JSON(http.StatusOK, gin.H{"message": "No errors found"})

		return
	}
	c.JSON(http.StatusOK, gin.H{"errors": result.Stderr, "details": result.Stdout})
}

func linterFailure(result *model.ValidationResult) error {
	if result.Stderr == "" {
		return fmt.Errorf("linter exited with status %d", result.ExitCode)
	}

	return fmt.Errorf("linter exited with status %d: %s", result.ExitCode, strings.TrimSpace(result.Stderr))
}

// validate stages the uploaded file, lints it and releases it again before
// returning, whatever the outcome
func (api *ValidatorAPI) validate(c *gin.Context) (*model.ValidationResult, error) {
	if api.maxRequestSize > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, api.maxRequestSize)
	}

	fileHeader, err := c.FormFile(formFileField)
	if err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			return nil, validationerrors.ErrUploadTooLarge
		}
		log.Debugf("failed to read form file due to: %v", err)

		return nil, validationerrors.ErrNoFile
	}

	file, err := fileHeader.Open()
	if err != nil {
		log.Errorf("failed to open form file due to: %v", err)

		return nil, err
	}
	defer file.Close()

	upload, err := api.stager.Stage(c.Request.Context(), fileHeader.Filename, file)
	if err != nil {
		return nil, err
	}
	defer api.stager.Release(upload)

	logger := log.WithFields(log.Fields{"upload": upload.ID, "filename": upload.SourceName, "size": upload.Size})
	logger.Debug("staged upload")

	result, err := api.runner.Run(c.Request.Context(), upload.Path, api.timeout)
	if err != nil {
		logger.Errorf("failed to validate upload due to: %v", err)

		return nil, err
	}
	logger.Infof("validated upload, status: %s, problems: %d", result.Status, len(result.Problems))

	return result, nil
}

// clientError maps the errors caused by the request itself, or its time budget,
// to a status and message
func clientError(err error) (int, string, bool) {
	switch {
	case errors.Is(err, validationerrors.ErrNoFile):
		return http.StatusBadRequest, "No file provided", true
	case errors.Is(err, validationerrors.ErrInvalidExtension):
		return http.StatusBadRequest, "Invalid file type. Only .bpmn files are allowed", true
	case errors.Is(err, validationerrors.ErrUploadTooLarge):
		return http.StatusRequestEntityTooLarge, "File too large", true
	case errors.Is(err, validationerrors.ErrTimeout):
		return http.StatusRequestTimeout, "Validation timed out", true
	default:
		return 0, "", false
	}
}

func (api *ValidatorAPI) abortWithError(c *gin.Context, err error) {
	if status, message, ok := clientError(err); ok {
		c.AbortWithStatusJSON(status, &model.ErrorResponse{Error: message})

		return
	}

	c.AbortWithStatusJSON(http.StatusInternalServerError, &model.ErrorResponse{
		Error:   "Validation failed",
		Details: "An unexpected error occurred during validation",
		Message: err.Error(),
	})
}

// abortWithRawError answers failures with only the error message
func (api *ValidatorAPI) abortWithRawError(c *gin.Context, err error) {
	if status, message, ok := clientError(err); ok {
		c.AbortWithStatusJSON(status, &model.ErrorResponse{Error: message})

		return
	}

	c.AbortWithStatusJSON(http.StatusInternalServerError, &model.ErrorResponse{Error: err.Error()})
}
