package extract

// Source method tags identifying which resolver produced a result.
const (
	SourcePrimaryTool    = "primary-tool"
	SourceFallbackScrape = "fallback-scrape"
)

type (
	// MediaLink is a single downloadable asset resolved for a request.
	// The URL is always absolute and never empty; Quality carries the
	// numeric video height as a string, the literal "audio" for an
	// audio-only link, or "unknown"/"original" when the resolver
	// cannot be more specific.
	MediaLink struct {
		Label   string `json:"label"`
		URL     string `json:"url"`
		Quality string `json:"quality,omitempty"`
	}

	// Result is the canonical shape produced by a resolver. Links are
	// ordered by quality rank: highest video quality first, then the
	// best audio-only option.
	Result struct {
		Links     []MediaLink
		Title     string
		Thumbnail string
		Source    string
	}
)
