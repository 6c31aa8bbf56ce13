package history_test

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	controller "github.com/reeler/reeler/internal/api/history"
	"github.com/reeler/reeler/internal/history"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubService struct {
	attempts []*history.AttemptWithLinks
	err      error
	gotLimit int
}

func (service *stubService) ListRecent(limit int) ([]*history.AttemptWithLinks, error) {
	service.gotLimit = limit
	return service.attempts, service.err
}

func performRequest(service *stubService, target string) *httptest.ResponseRecorder {
	ec := echo.New()
	controller.New(service).SetRoutes(ec.Group("/api/history"))

	req := httptest.NewRequest(http.MethodGet, target, nil)
	rec := httptest.NewRecorder()
	ec.ServeHTTP(rec, req)
	return rec
}

func Test_List(t *testing.T) {
	service := &stubService{attempts: []*history.AttemptWithLinks{
		{Attempt: history.Attempt{ID: 2, URL: "https://youtu.be/b", Platform: "youtube", Success: "true"}},
		{Attempt: history.Attempt{ID: 1, URL: "https://youtu.be/a", Platform: "youtube", Success: "false"}},
	}}

	rec := performRequest(service, "/api/history/?limit=2")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 2, service.gotLimit)

	var body struct {
		Success bool `json:"success"`
		History []struct {
			URL string `json:"url"`
		} `json:"history"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.True(t, body.Success)
	require.Len(t, body.History, 2)
	assert.Equal(t, "https://youtu.be/b", body.History[0].URL)
}

func Test_List_DefaultLimit(t *testing.T) {
	service := &stubService{}
	performRequest(service, "/api/history/")
	assert.Equal(t, history.DefaultListLimit, service.gotLimit)

	performRequest(service, "/api/history/?limit=notanumber")
	assert.Equal(t, history.DefaultListLimit, service.gotLimit)
}

func Test_List_ServiceFailure(t *testing.T) {
	service := &stubService{err: errors.New("connection refused")}

	rec := performRequest(service, "/api/history/")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	var body struct {
		Success bool   `json:"success"`
		Error   string `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.False(t, body.Success)
	assert.Equal(t, "Failed to fetch download history", body.Error)
	assert.NotContains(t, body.Error, "connection refused")
}
