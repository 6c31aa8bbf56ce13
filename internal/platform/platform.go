package platform

import (
	"regexp"
	"strings"
)

// Platform identifies one of the social-media services that media can
// be extracted from. It is derived purely from the textual form of the
// input URL and is never stored as free text.
type Platform int

const (
	Instagram Platform = iota
	YouTube
	TikTok
)

func (p Platform) String() string {
	return []string{
		"instagram",
		"youtube",
		"tiktok",
	}[p]
}

// Shape patterns each platform URL must satisfy before an extraction is
// attempted. These are deliberately stricter than classification: a URL
// can mention a platform's domain without pointing at extractable media
// (e.g. a profile page).
var shapePatterns = map[Platform]*regexp.Regexp{
	Instagram: regexp.MustCompile(`^https?://(www\.)?(instagram\.com|instagr\.am)/(p|reel|tv)/[a-zA-Z0-9_-]+`),
	YouTube:   regexp.MustCompile(`^https?://(www\.)?(youtube\.com/(watch\?v=|embed/|v/)|youtu\.be/)[a-zA-Z0-9_-]+`),
	TikTok:    regexp.MustCompile(`^https?://(www\.)?(tiktok\.com|vm\.tiktok\.com)/`),
}

// Classify maps a raw URL to the platform which owns it by matching the
// platform domains as case-insensitive substrings. The second return is
// false when no platform matches. Surrounding whitespace is tolerated.
func Classify(rawURL string) (Platform, bool) {
	cleanURL := strings.ToLower(strings.TrimSpace(rawURL))

	switch {
	case strings.Contains(cleanURL, "instagram.com") || strings.Contains(cleanURL, "instagr.am"):
		return Instagram, true
	case strings.Contains(cleanURL, "youtube.com") || strings.Contains(cleanURL, "youtu.be"):
		return YouTube, true
	case strings.Contains(cleanURL, "tiktok.com"):
		return TikTok, true
	}

	return 0, false
}

// Validate reports whether the URL satisfies the shape contract for the
// platform provided. This gate exists to reject obviously malformed
// input before spending a tool invocation on it.
func Validate(rawURL string, p Platform) bool {
	pattern, ok := shapePatterns[p]
	if !ok {
		return false
	}

	return pattern.MatchString(strings.TrimSpace(rawURL))
}
