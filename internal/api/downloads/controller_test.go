package downloads_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/reeler/reeler/internal/api/downloads"
	"github.com/reeler/reeler/internal/extract"
	"github.com/reeler/reeler/internal/history"
	"github.com/reeler/reeler/internal/platform"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubGate struct {
	rejected   bool
	retryAfter int
	calls      int
}

func (gate *stubGate) Admit(_ string, _ time.Time) (bool, int) {
	gate.calls++
	return !gate.rejected, gate.retryAfter
}

type stubExtractor struct {
	result  *extract.Result
	err     error
	gotURL  string
	gotPlat platform.Platform
	calls   int
}

func (extractor *stubExtractor) Extract(_ context.Context, url string, plat platform.Platform) (*extract.Result, error) {
	extractor.calls++
	extractor.gotURL = url
	extractor.gotPlat = plat
	return extractor.result, extractor.err
}

type stubSink struct {
	attempts []history.Attempt
	links    [][]history.Link
}

func (sink *stubSink) Record(attempt history.Attempt, links []history.Link) {
	sink.attempts = append(sink.attempts, attempt)
	sink.links = append(sink.links, links)
}

type responseBody struct {
	Success   bool   `json:"success"`
	Title     string `json:"title"`
	Source    string `json:"source"`
	Platform  string `json:"platform"`
	Thumbnail string `json:"thumbnail"`
	Error     string `json:"error"`
	Links     []struct {
		Label   string `json:"label"`
		URL     string `json:"url"`
		Quality string `json:"quality"`
	} `json:"links"`
}

func performRequest(t *testing.T, gate *stubGate, extractor *stubExtractor, sink *stubSink, body string) (*httptest.ResponseRecorder, responseBody) {
	ec := echo.New()
	downloads.New(gate, extractor, sink).SetRoutes(ec.Group("/api/download"))

	req := httptest.NewRequest(http.MethodPost, "/api/download/", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	ec.ServeHTTP(rec, req)

	var parsed responseBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &parsed))
	return rec, parsed
}

func successResult() *extract.Result {
	return &extract.Result{
		Links: []extract.MediaLink{
			{Label: "Video 1080p (mp4)", URL: "https://cdn.example/1080.mp4", Quality: "1080"},
			{Label: "Audio Only (m4a)", URL: "https://cdn.example/a.m4a", Quality: "audio"},
		},
		Title:     "A Video",
		Thumbnail: "https://cdn.example/t.jpg",
		Source:    extract.SourcePrimaryTool,
	}
}

func Test_Create_Success(t *testing.T) {
	gate := &stubGate{}
	extractor := &stubExtractor{result: successResult()}
	sink := &stubSink{}

	rec, body := performRequest(t, gate, extractor, sink, `{"url": "  https://youtu.be/abc123 "}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, body.Success)
	assert.Equal(t, "A Video", body.Title)
	assert.Equal(t, "primary-tool", body.Source)
	assert.Equal(t, "youtube", body.Platform)
	assert.Equal(t, "https://cdn.example/t.jpg", body.Thumbnail)
	require.Len(t, body.Links, 2)
	assert.Equal(t, "Video 1080p (mp4)", body.Links[0].Label)

	// Whitespace is trimmed before the URL reaches the extractor.
	assert.Equal(t, "https://youtu.be/abc123", extractor.gotURL)
	assert.Equal(t, platform.YouTube, extractor.gotPlat)

	require.Len(t, sink.attempts, 1)
	assert.Equal(t, "true", sink.attempts[0].Success)
	assert.Equal(t, "youtube", sink.attempts[0].Platform)
	require.NotNil(t, sink.attempts[0].Title)
	assert.Equal(t, "A Video", *sink.attempts[0].Title)
	assert.Len(t, sink.links[0], 2)
}

func Test_Create_WhitespacePaddedURL(t *testing.T) {
	gate := &stubGate{}
	extractor := &stubExtractor{result: successResult()}
	sink := &stubSink{}

	rec, body := performRequest(t, gate, extractor, sink, `{"url": "  https://youtu.be/abc123 "}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, body.Success)
	assert.Equal(t, 1, extractor.calls)
	assert.Equal(t, "https://youtu.be/abc123", extractor.gotURL)
}

func Test_Create_RateLimited(t *testing.T) {
	gate := &stubGate{rejected: true, retryAfter: 17}
	extractor := &stubExtractor{}
	sink := &stubSink{}

	rec, body := performRequest(t, gate, extractor, sink, `{"url": "https://youtu.be/abc123"}`)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.False(t, body.Success)
	assert.Contains(t, body.Error, "17 seconds")
	assert.Zero(t, extractor.calls, "rate-limited requests must not reach the extractor")
	assert.Empty(t, sink.attempts, "rate-limited requests are not history")
}

func Test_Create_InvalidBody(t *testing.T) {
	tests := []struct {
		summary string
		body    string
	}{
		{"Malformed JSON", `{"url": `},
		{"Missing URL", `{}`},
		{"Blank URL", `{"url": ""}`},
		{"Whitespace-only URL", `{"url": "   "}`},
		{"Not a URL", `{"url": "just some words"}`},
	}

	for _, tt := range tests {
		t.Run(tt.summary, func(t *testing.T) {
			extractor := &stubExtractor{}
			rec, body := performRequest(t, &stubGate{}, extractor, &stubSink{}, tt.body)

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.False(t, body.Success)
			assert.NotEmpty(t, body.Error)
			assert.Zero(t, extractor.calls)
		})
	}
}

func Test_Create_UnrecognizedPlatform(t *testing.T) {
	extractor := &stubExtractor{}
	rec, body := performRequest(t, &stubGate{}, extractor, &stubSink{}, `{"url": "https://vimeo.com/12345"}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, body.Error, "Instagram, YouTube, or TikTok")
	assert.Zero(t, extractor.calls)
}

func Test_Create_MalformedPlatformURL(t *testing.T) {
	extractor := &stubExtractor{}
	rec, body := performRequest(t, &stubGate{}, extractor, &stubSink{}, `{"url": "https://www.instagram.com/someuser/"}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, body.Error, "valid instagram URL")
	assert.Zero(t, extractor.calls)
}

func Test_Create_ExtractionFailure(t *testing.T) {
	gate := &stubGate{}
	extractor := &stubExtractor{err: errors.New("failed to extract youtube media: no media found")}
	sink := &stubSink{}

	rec, body := performRequest(t, gate, extractor, sink, `{"url": "https://youtu.be/abc123"}`)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.False(t, body.Success)
	assert.Contains(t, body.Error, "YouTube")
	assert.NotContains(t, body.Error, "no media found", "internal error text must not leak")

	// Failed attempts are still recorded, without links.
	require.Len(t, sink.attempts, 1)
	assert.Equal(t, "false", sink.attempts[0].Success)
	assert.Empty(t, sink.links[0])
}
