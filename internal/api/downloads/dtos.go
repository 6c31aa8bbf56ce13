package downloads

import (
	"fmt"

	"github.com/reeler/reeler/internal/extract"
	"github.com/reeler/reeler/internal/platform"
)

const (
	invalidBodyMessage          = "❌ Invalid or missing URL."
	unrecognizedPlatformMessage = "❌ Please provide a valid Instagram, YouTube, or TikTok URL."
)

type (
	downloadRequest struct {
		URL string `json:"url" validate:"required,url"`
	}

	linkDto struct {
		Label   string `json:"label"`
		URL     string `json:"url"`
		Quality string `json:"quality,omitempty"`
	}

	// downloadResponse is the wire-level shape for both successful
	// and failed extractions.
	downloadResponse struct {
		Success   bool      `json:"success"`
		Links     []linkDto `json:"links,omitempty"`
		Title     string    `json:"title,omitempty"`
		Source    string    `json:"source,omitempty"`
		Platform  string    `json:"platform,omitempty"`
		Thumbnail string    `json:"thumbnail,omitempty"`
		Error     string    `json:"error,omitempty"`
	}
)

func newDownloadResponse(result *extract.Result, plat platform.Platform) downloadResponse {
	links := make([]linkDto, len(result.Links))
	for k, v := range result.Links {
		links[k] = linkDto{Label: v.Label, URL: v.URL, Quality: v.Quality}
	}

	return downloadResponse{
		Success:   true,
		Links:     links,
		Title:     result.Title,
		Source:    result.Source,
		Platform:  plat.String(),
		Thumbnail: result.Thumbnail,
	}
}

func newErrorResponse(message string) downloadResponse {
	return downloadResponse{Success: false, Error: message}
}

func rateLimitMessage(retryAfterSeconds int) string {
	return fmt.Sprintf("⏰ Rate limit exceeded. Please wait %d seconds.", retryAfterSeconds)
}

func malformedURLMessage(plat platform.Platform) string {
	return fmt.Sprintf("❌ Please provide a valid %s URL.", plat)
}

// failureMessage selects the human-readable explanation shown when
// extraction fails entirely. Deliberately platform-aware: each message
// frames the likely private/deleted/unavailable causes for that
// platform rather than exposing raw internal error text.
func failureMessage(plat platform.Platform) string {
	switch plat {
	case platform.Instagram:
		return "⚠️ Unable to fetch media from Instagram. The post might be private, deleted, or temporarily unavailable."
	case platform.YouTube:
		return "⚠️ Unable to fetch video from YouTube. The video might be private, deleted, age-restricted, or temporarily unavailable."
	case platform.TikTok:
		return "⚠️ Unable to fetch video from TikTok. The video might be private, deleted, or temporarily unavailable."
	}

	return "⚠️ Unable to fetch media. Please try again later."
}
