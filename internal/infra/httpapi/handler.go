package httpapi

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"codejudge/internal/app/executor"
	"codejudge/internal/domain/execution"
)

// Evaluator runs jobs on behalf of the HTTP handlers.
type Evaluator interface {
	Evaluate(ctx context.Context, req execution.JobRequest) (execution.Report, error)
	EvaluateSample(ctx context.Context, req executor.SampleRequest) (execution.SampleResult, error)
}

// ProfileLister exposes the registered language profiles.
type ProfileLister interface {
	Profiles() []execution.Profile
}

// Handler serves the judge endpoints.
type Handler struct {
	evaluator Evaluator
	profiles  ProfileLister
	logger    *zap.Logger
}

// NewHandler creates a Handler.
func NewHandler(evaluator Evaluator, profiles ProfileLister, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{evaluator: evaluator, profiles: profiles, logger: logger.Named("http")}
}

// Evaluate handles POST /v1/evaluate.
func (h *Handler) Evaluate(c *gin.Context) {
	var req EvaluateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	report, err := h.evaluator.Evaluate(c.Request.Context(), req.toJobRequest())
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, newReportResponse(report))
}

// RunSample handles POST /v1/run-sample.
func (h *Handler) RunSample(c *gin.Context) {
	var req RunSampleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	result, err := h.evaluator.EvaluateSample(c.Request.Context(), executor.SampleRequest{
		Language:       execution.Language(req.Language),
		Source:         req.SourceCode,
		Input:          req.Input,
		ExpectedOutput: req.ExpectedOutput,
		TimeLimitMs:    req.TimeLimit,
		MemoryLimitMB:  req.MemoryLimit,
	})
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, SampleResponse{
		Input:    result.Input,
		Expected: result.Expected,
		Output:   result.Output,
		Passed:   result.Passed,
		Error:    result.Error,
	})
}

// Languages handles GET /v1/languages.
func (h *Handler) Languages(c *gin.Context) {
	profiles := h.profiles.Profiles()
	resp := make([]LanguageResponse, 0, len(profiles))
	for _, profile := range profiles {
		resp = append(resp, newLanguageResponse(profile))
	}
	c.JSON(http.StatusOK, gin.H{"languages": resp})
}

func (h *Handler) writeError(c *gin.Context, err error) {
	var validation *execution.ValidationError
	switch {
	case errors.As(err, &validation):
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: validation.Error(), Field: validation.Field})
	case errors.Is(err, execution.ErrCancelled):
		h.logger.Info("request abandoned", zap.String("path", c.FullPath()), zap.Error(err))
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{Error: "request cancelled before the job completed"})
	default:
		h.logger.Error("request failed", zap.String("path", c.FullPath()), zap.Error(err))
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
	}
}
