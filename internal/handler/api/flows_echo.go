package api

import (
	"net/http"
	"time"

	"SectorFlow/internal/domain/models"
	domrepo "SectorFlow/internal/domain/repository"
	"SectorFlow/internal/presenter"
	xhttp "SectorFlow/pkg/http"
	xlogger "SectorFlow/pkg/logger"
	"SectorFlow/pkg/util"

	"github.com/labstack/echo/v4"
)

// FlowSource is the read/trigger surface of the refresh controller.
type FlowSource interface {
	Latest() *models.AggregationResult
	Refreshing() bool
	LastError() string
	Trigger() bool
}

// FlowsEchoHandler serves published money-flow results.
type FlowsEchoHandler struct {
	logger *xlogger.Logger
	source FlowSource
	loc    *time.Location
}

func NewFlowsEchoHandler(logger *xlogger.Logger, source FlowSource, loc *time.Location) *FlowsEchoHandler {
	if loc == nil {
		loc = time.UTC
	}
	return &FlowsEchoHandler{logger: logger, source: source, loc: loc}
}

func (h *FlowsEchoHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", h.Health)

	g := e.Group("/api")
	g.GET("/flows", h.Flows)
	g.GET("/figures", h.Figures)
	g.GET("/status", h.Status)
	g.POST("/refresh", h.Refresh)
}

// Health reports liveness and whether a result has been published.
func (h *FlowsEchoHandler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]interface{}{
		"status": "ok",
		"ready":  h.source.Latest() != nil,
	})
}

func (h *FlowsEchoHandler) Flows(c echo.Context) error {
	req := &models.FlowsRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	w := domrepo.NormalizeWindow(req.Window)

	res := h.source.Latest()
	if res == nil {
		return xhttp.AppErrorResponse(c, xhttp.UnavailableError("no result published yet"))
	}

	c.Response().Header().Set(echo.HeaderCacheControl, "public, max-age=60")
	return xhttp.SuccessResponse(c, models.FlowsResponse{
		Window:      w,
		GeneratedAt: res.GeneratedAt.In(h.loc).Format(util.DisplayLayout),
		Rows:        presenter.SortRows(res.Rows(w), req.Sort),
	})
}

func (h *FlowsEchoHandler) Figures(c echo.Context) error {
	req := &models.FiguresRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	loc := h.loc
	if req.TZ != "" {
		l, err := time.LoadLocation(req.TZ)
		if err != nil {
			return xhttp.AppErrorResponse(c, xhttp.BadRequestErrorf("unknown time zone %q", req.TZ).WithError(err))
		}
		loc = l
	}
	return xhttp.SuccessResponse(c, presenter.BuildFigures(h.source.Latest(), loc))
}

func (h *FlowsEchoHandler) Status(c echo.Context) error {
	resp := models.StatusResponse{
		Refreshing: h.source.Refreshing(),
		LastError:  h.source.LastError(),
	}
	if res := h.source.Latest(); res != nil {
		resp.GeneratedAt = res.GeneratedAt.In(h.loc).Format(util.DisplayLayout)
		resp.Tickers = res.Tickers
	}
	return xhttp.SuccessResponse(c, resp)
}

// Refresh starts a cycle in the background. A cycle already running yields 409.
func (h *FlowsEchoHandler) Refresh(c echo.Context) error {
	if !h.source.Trigger() {
		return xhttp.AppErrorResponse(c, xhttp.ConflictError("refresh already in progress"))
	}
	h.logger.Info("manual refresh triggered", xlogger.String("remote", c.RealIP()))
	return xhttp.AcceptedResponse(c, map[string]bool{"started": true})
}
