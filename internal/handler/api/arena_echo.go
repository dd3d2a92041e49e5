package api

import (
	"time"

	models "ForecastArena/internal/domain/models"
	domrepo "ForecastArena/internal/domain/repository"
	svcmetrics "ForecastArena/internal/service/metrics"
	"ForecastArena/internal/service/ratelimit"
	"ForecastArena/internal/usecase"
	xhttp "ForecastArena/pkg/http"
	xlogger "ForecastArena/pkg/logger"

	"github.com/labstack/echo/v4"
)

// ArenaHandler exposes the benchmark surface over Echo: leaderboards,
// validity, ensemble replay, candles, and run control.
type ArenaHandler struct {
	logger  *xlogger.Logger
	report  *usecase.ReportUseCase
	candles *usecase.CandlesUseCase
	bench   *usecase.BenchmarkService
	rl      *ratelimit.Limiter
}

func NewArenaHandler(logger *xlogger.Logger, report *usecase.ReportUseCase, candles *usecase.CandlesUseCase, bench *usecase.BenchmarkService) *ArenaHandler {
	svcmetrics.Register()
	return &ArenaHandler{
		logger:  logger,
		report:  report,
		candles: candles,
		bench:   bench,
		rl:      ratelimit.New(),
	}
}

func (h *ArenaHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api")
	g.GET("/leaderboard", h.Leaderboard)
	g.GET("/phases", h.Phases)
	g.GET("/validity", h.Validity)
	g.GET("/ensemble", h.Ensemble)
	g.GET("/models", h.Models)
	g.GET("/candles", h.Candles)
	g.POST("/benchmark/run", h.RunBenchmark)
	g.GET("/benchmark/status", h.BenchmarkStatus)
}

func (h *ArenaHandler) Leaderboard(c echo.Context) error {
	req := &models.LeaderboardRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	rows, err := h.report.Leaderboard(c.Request().Context(), domrepo.NormalizeHorizon(req.Horizon), req.Limit)
	if err != nil {
		h.logger.Error("leaderboard usecase error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	c.Response().Header().Set(echo.HeaderCacheControl, "private, max-age=15")
	return xhttp.SuccessResponse(c, rows)
}

func (h *ArenaHandler) Phases(c echo.Context) error {
	ps, err := h.report.Phases()
	if err != nil {
		return xhttp.NotFoundResponse(c, err.Error())
	}
	return xhttp.SuccessResponse(c, ps)
}

func (h *ArenaHandler) Validity(c echo.Context) error {
	req := &models.ValidityRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	mv, err := h.report.Validity(req.ModelID)
	if err != nil {
		return xhttp.NotFoundResponse(c, err.Error())
	}
	return xhttp.SuccessResponse(c, mv)
}

func (h *ArenaHandler) Ensemble(c echo.Context) error {
	req := &models.EnsembleRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	series, err := h.report.EnsembleSeries(domrepo.NormalizeHorizon(req.Horizon), req.Round, req.Membership == "strict")
	if err != nil {
		return xhttp.NotFoundResponse(c, err.Error())
	}
	return xhttp.SuccessResponse(c, series)
}

func (h *ArenaHandler) Models(c echo.Context) error {
	out, err := h.report.Models()
	if err != nil {
		return xhttp.NotFoundResponse(c, err.Error())
	}
	return xhttp.SuccessResponse(c, out)
}

func (h *ArenaHandler) Candles(c echo.Context) error {
	req := &models.CandlesRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	hz := domrepo.NormalizeHorizon(req.Horizon)
	cfg, err := domrepo.ConfigFor(hz)
	if err != nil {
		return xhttp.BadRequestResponse(c, err.Error())
	}
	to := xhttp.ParseTimeDefault(req.To, time.Now().UTC())
	from := xhttp.ParseTimeDefault(req.From, to.Add(-time.Duration(req.N)*cfg.BarSize))
	if !from.Before(to) {
		return xhttp.BadRequestResponse(c, "from must precede to")
	}
	res, err := h.candles.GetCandles(c.Request().Context(), usecase.GetCandlesParams{
		Symbol:  req.Symbol,
		From:    from,
		To:      to,
		Horizon: hz,
		Limit:   req.N,
	})
	if err != nil {
		h.logger.Error("candles usecase error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.SuccessResponse(c, res)
}

func (h *ArenaHandler) RunBenchmark(c echo.Context) error {
	req := &models.RunBenchmarkRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	if !h.rl.Allow(c.RealIP()+":run", 2, 0.2) {
		return xhttp.BadRequestResponse(c, "rate limited")
	}
	id, err := h.bench.Trigger(c.Request().Context(), req.Symbol, req.Rounds, req.Seed)
	if err != nil {
		h.logger.Warn("benchmark trigger refused", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.CreatedResponse(c, map[string]string{"benchmark_id": id})
}

func (h *ArenaHandler) BenchmarkStatus(c echo.Context) error {
	status := map[string]interface{}{"running": h.bench.Running()}
	if res := h.report.Latest(); res != nil {
		status["latest_benchmark_id"] = res.Report.BenchmarkID
		status["latest_generated_at"] = res.Report.GeneratedAt
		status["latest_rounds"] = res.Report.Rounds
	}
	return xhttp.SuccessResponse(c, status)
}
