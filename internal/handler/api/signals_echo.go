package api

import (
	"time"

	models "ExitPulse/internal/domain/models"
	domrepo "ExitPulse/internal/domain/repository"
	"ExitPulse/internal/usecase"
	xhttp "ExitPulse/pkg/http"
	xlogger "ExitPulse/pkg/logger"
	"ExitPulse/pkg/util"

	"github.com/labstack/echo/v4"
)

// ExitSignalsEchoHandler implements Echo-based HTTP handlers following Clean Architecture.
type ExitSignalsEchoHandler struct {
	logger *xlogger.Logger
	eval   *usecase.EvaluateUseCase
	opt    *usecase.OptimizeUseCase
}

func NewExitSignalsEchoHandler(logger *xlogger.Logger, eval *usecase.EvaluateUseCase, opt *usecase.OptimizeUseCase) *ExitSignalsEchoHandler {
	return &ExitSignalsEchoHandler{logger: logger, eval: eval, opt: opt}
}

func (h *ExitSignalsEchoHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api")
	g.POST("/exit-signal", h.Evaluate)
	g.POST("/exit-signals/portfolio", h.Portfolio)
	g.GET("/signal-stats", h.Stats)
	g.POST("/thresholds/optimize", h.Optimize)
}

func (h *ExitSignalsEchoHandler) Evaluate(c echo.Context) error {
	req := &models.ExitSignalRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	sig, err := h.eval.Evaluate(c.Request().Context(), usecase.EvaluateParams{
		Position:  req.Position.State(),
		Timeframe: domrepo.NormalizeTimeframe(req.TF),
		N:         req.N,
		Overrides: req.Overrides,
	})
	if err != nil {
		h.logger.Error("evaluate usecase error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.SuccessResponse(c, sig)
}

func (h *ExitSignalsEchoHandler) Portfolio(c echo.Context) error {
	start := time.Now()
	req := &models.PortfolioRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	positions := make([]models.PositionState, 0, len(req.Positions))
	for _, p := range req.Positions {
		positions = append(positions, p.State())
	}
	results, err := h.eval.EvaluatePortfolio(c.Request().Context(), usecase.PortfolioParams{
		Positions: positions,
		Timeframe: domrepo.NormalizeTimeframe(req.TF),
		N:         req.N,
		Overrides: req.Overrides,
	})
	if err != nil {
		h.logger.Error("portfolio usecase error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	h.logger.Info("portfolio sweep done",
		xlogger.Int("positions", len(positions)),
		xlogger.Duration("duration_ms", time.Since(start)),
	)
	return xhttp.SuccessResponse(c, results)
}

func (h *ExitSignalsEchoHandler) Stats(c echo.Context) error {
	stats := h.eval.Statistics()
	c.Response().Header().Set(echo.HeaderCacheControl, "private, max-age=15")
	return xhttp.SuccessResponse(c, stats)
}

func (h *ExitSignalsEchoHandler) Optimize(c echo.Context) error {
	req := &models.OptimizeRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	limit := req.Limit
	if limit <= 0 {
		limit = util.ParseIntDefault(c.QueryParam("limit"), 0)
	}
	res, err := h.opt.Optimize(c.Request().Context(), req.Strategy, limit)
	if err != nil {
		h.logger.Error("optimize usecase error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.SuccessResponse(c, res)
}
