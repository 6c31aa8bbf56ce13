package downloads

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/reeler/reeler/internal/extract"
	"github.com/reeler/reeler/internal/history"
	"github.com/reeler/reeler/internal/platform"
	"github.com/reeler/reeler/pkg/logger"
)

var log = logger.Get("Downloads")

type (
	// RateGate admits or rejects an extraction attempt for a client
	// identity, reporting the seconds to wait when rejected.
	RateGate interface {
		Admit(clientID string, now time.Time) (bool, int)
	}

	Extractor interface {
		Extract(ctx context.Context, url string, plat platform.Platform) (*extract.Result, error)
	}

	// HistorySink accepts completed attempts for best-effort
	// persistence; it must never block or fail the request path.
	HistorySink interface {
		Record(attempt history.Attempt, links []history.Link)
	}

	// DownloadsController owns the extraction endpoint: it gates the
	// request through the rate limiter, classifies and validates the
	// URL, runs the extraction engine and assembles the response.
	DownloadsController struct {
		gate      RateGate
		extractor Extractor
		sink      HistorySink
		validate  *validator.Validate
	}
)

func New(gate RateGate, extractor Extractor, sink HistorySink) *DownloadsController {
	return &DownloadsController{
		gate:      gate,
		extractor: extractor,
		sink:      sink,
		validate:  validator.New(),
	}
}

func (controller *DownloadsController) SetRoutes(eg *echo.Group) {
	eg.POST("/", controller.create)
}

func (controller *DownloadsController) create(ec echo.Context) error {
	clientID := ec.RealIP()
	if admitted, retryAfter := controller.gate.Admit(clientID, time.Now()); !admitted {
		return ec.JSON(http.StatusTooManyRequests, newErrorResponse(rateLimitMessage(retryAfter)))
	}

	var request downloadRequest
	if err := ec.Bind(&request); err != nil {
		return ec.JSON(http.StatusBadRequest, newErrorResponse(invalidBodyMessage))
	}

	// Validation runs on the trimmed URL so padded input is tolerated.
	request.URL = strings.TrimSpace(request.URL)
	if err := controller.validate.Struct(&request); err != nil {
		return ec.JSON(http.StatusBadRequest, newErrorResponse(invalidBodyMessage))
	}

	cleanURL := request.URL
	plat, ok := platform.Classify(cleanURL)
	if !ok {
		return ec.JSON(http.StatusBadRequest, newErrorResponse(unrecognizedPlatformMessage))
	}

	if !platform.Validate(cleanURL, plat) {
		return ec.JSON(http.StatusBadRequest, newErrorResponse(malformedURLMessage(plat)))
	}

	log.Emit(logger.INFO, "Processing %s request for: %s\n", plat, cleanURL)
	result, err := controller.extractor.Extract(ec.Request().Context(), cleanURL, plat)
	controller.recordAttempt(cleanURL, plat, clientID, result)

	if err != nil {
		return ec.JSON(http.StatusInternalServerError, newErrorResponse(failureMessage(plat)))
	}

	return ec.JSON(http.StatusOK, newDownloadResponse(result, plat))
}

// recordAttempt hands the completed attempt (successful or not) to the
// history sink. Fire-and-forget: the caller's response is already
// decided by the time this runs.
func (controller *DownloadsController) recordAttempt(url string, plat platform.Platform, clientID string, result *extract.Result) {
	attempt := history.Attempt{
		URL:      url,
		Platform: plat.String(),
		ClientIP: optional(clientID),
		Success:  "false",
	}

	var links []history.Link
	if result != nil && len(result.Links) > 0 {
		attempt.Success = "true"
		attempt.Title = optional(result.Title)
		links = make([]history.Link, len(result.Links))
		for k, v := range result.Links {
			links[k] = history.Link{Label: v.Label, URL: v.URL, Quality: optional(v.Quality)}
		}
	}

	controller.sink.Record(attempt, links)
}

func optional(value string) *string {
	if value == "" {
		return nil
	}

	return &value
}
