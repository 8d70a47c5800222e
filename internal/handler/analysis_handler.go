package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/yourorg/market-analysis/internal/model"
	"github.com/yourorg/market-analysis/internal/service"
)

// AnalysisHandler exposes the trade analysis operation.
type AnalysisHandler struct {
	analysisService *service.AnalysisService
	logger          *zap.Logger
}

// NewAnalysisHandler creates a new analysis handler.
func NewAnalysisHandler(analysisService *service.AnalysisService, logger *zap.Logger) *AnalysisHandler {
	return &AnalysisHandler{
		analysisService: analysisService,
		logger:          logger,
	}
}

// RegisterValidators installs the custom binding validations used by the
// request models. Must be called once during startup.
func RegisterValidators() error {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return errors.New("unexpected gin validator engine")
	}
	return v.RegisterValidation("instrument", func(fl validator.FieldLevel) bool {
		_, found := model.LookupInstrument(fl.Field().String())
		return found
	})
}

// Analyze handles POST /api/v1/analysis
func (h *AnalysisHandler) Analyze(c *gin.Context) {
	var req model.AnalysisRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	outcome, err := h.analysisService.Analyze(c.Request.Context(), &req)
	if err != nil {
		h.writeAnalysisError(c, err)
		return
	}

	if outcome.Comparative != nil {
		c.JSON(http.StatusOK, outcome.Comparative)
		return
	}
	c.JSON(http.StatusOK, outcome.Single)
}

func (h *AnalysisHandler) writeAnalysisError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrUnknownSymbol),
		errors.Is(err, service.ErrEmptyQuery),
		errors.Is(err, service.ErrUnknownBackend):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		h.logger.Error("Analysis request failed", zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{"error": "analysis backends unavailable"})
	}
}
