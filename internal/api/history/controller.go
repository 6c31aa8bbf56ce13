package history

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/reeler/reeler/internal/history"
	"github.com/reeler/reeler/pkg/logger"
)

var log = logger.Get("HistoryCtrl")

type (
	Service interface {
		ListRecent(limit int) ([]*history.AttemptWithLinks, error)
	}

	// HistoryController exposes the read side of the attempt log.
	HistoryController struct {
		service Service
	}

	listResponse struct {
		Success bool                        `json:"success"`
		History []*history.AttemptWithLinks `json:"history"`
	}

	errorResponse struct {
		Success bool   `json:"success"`
		Error   string `json:"error"`
	}
)

func New(service Service) *HistoryController {
	return &HistoryController{service: service}
}

func (controller *HistoryController) SetRoutes(eg *echo.Group) {
	eg.GET("/", controller.list)
}

// list returns up to ?limit=N of the most recent attempt records
// (default 50), newest first, each with its extracted links.
func (controller *HistoryController) list(ec echo.Context) error {
	limit := history.DefaultListLimit
	if raw := ec.QueryParam("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil {
			limit = parsed
		}
	}

	attempts, err := controller.service.ListRecent(limit)
	if err != nil {
		log.Emit(logger.ERROR, "Failed to fetch download history: %s\n", err.Error())
		return ec.JSON(http.StatusInternalServerError, errorResponse{Success: false, Error: "Failed to fetch download history"})
	}

	return ec.JSON(http.StatusOK, listResponse{Success: true, History: attempts})
}
