package extract

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/reeler/reeler/internal/platform"
	"github.com/reeler/reeler/pkg/logger"
)

var scraperLog = logger.Get("InstaScrape")

const (
	instagramEmbedTemplate = "https://www.instagram.com/p/%s/embed/"
	browserUserAgent       = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
)

var (
	shortcodePattern = regexp.MustCompile(`/(?:p|reel|tv)/([a-zA-Z0-9_-]+)`)
	videoURLPattern  = regexp.MustCompile(`"video_url":"([^"]+)"`)
	imageURLPattern  = regexp.MustCompile(`"display_url":"([^"]+)"`)

	// The embed page inlines media URLs inside a JSON blob, so any
	// match carries JSON escape sequences which must be resolved
	// before the URL is usable.
	escapeReplacer = strings.NewReplacer(`\u0026`, "&", `\/`, "/", `\`, "")
)

// instagramScraper is the last-resort resolver for Instagram: it
// fetches the public embed page for a post and pattern-matches the raw
// body for an inlined media URL. Regex over unstructured HTML is
// brittle, which is exactly why this only runs once the primary tool
// has already failed.
type instagramScraper struct {
	client        *http.Client
	embedTemplate string
}

func newInstagramScraper(config Config) *instagramScraper {
	return &instagramScraper{
		client:        &http.Client{Timeout: time.Duration(config.FallbackTimeoutSeconds) * time.Second},
		embedTemplate: instagramEmbedTemplate,
	}
}

func (scraper *instagramScraper) Resolve(ctx context.Context, url string, _ platform.Platform) (*Result, error) {
	shortcode, err := parseShortcode(url)
	if err != nil {
		return nil, err
	}

	embedURL := fmt.Sprintf(scraper.embedTemplate, shortcode)
	scraperLog.Emit(logger.INFO, "Fetching embed page for shortcode %s\n", shortcode)

	request, err := http.NewRequestWithContext(ctx, http.MethodGet, embedURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build embed page request: %w", err)
	}
	request.Header.Set("User-Agent", browserUserAgent)

	response, err := scraper.client.Do(request)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch embed page: %w", err)
	}
	defer response.Body.Close()

	body, err := io.ReadAll(response.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read embed page body: %w", err)
	}

	link, ok := scanEmbedBody(string(body))
	if !ok {
		return nil, ErrNoMedia
	}

	return &Result{
		Links:  []MediaLink{link},
		Title:  "Instagram Media",
		Source: SourceFallbackScrape,
	}, nil
}

// scanEmbedBody looks for an inlined video URL first, and only when no
// video field matches does it settle for an image URL.
func scanEmbedBody(body string) (MediaLink, bool) {
	if match := videoURLPattern.FindStringSubmatch(body); match != nil {
		if url := escapeReplacer.Replace(match[1]); strings.HasPrefix(url, "http") {
			return MediaLink{Label: "Instagram Video", URL: url, Quality: "original"}, true
		}
	}

	if match := imageURLPattern.FindStringSubmatch(body); match != nil {
		if url := escapeReplacer.Replace(match[1]); strings.HasPrefix(url, "http") {
			return MediaLink{Label: "Instagram Image", URL: url, Quality: "original"}, true
		}
	}

	return MediaLink{}, false
}

// parseShortcode extracts the post identifier from the path segment
// following /p/, /reel/ or /tv/.
func parseShortcode(url string) (string, error) {
	match := shortcodePattern.FindStringSubmatch(url)
	if match == nil {
		return "", fmt.Errorf("could not parse shortcode from URL %s", url)
	}

	return match[1], nil
}
