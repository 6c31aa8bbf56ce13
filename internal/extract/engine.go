package extract

import (
	"context"
	"errors"
	"fmt"

	"github.com/reeler/reeler/internal/platform"
	"github.com/reeler/reeler/pkg/logger"
)

var (
	log = logger.Get("Engine")

	// ErrToolUnavailable indicates the external extraction tool could
	// not be run, even after the one-shot install attempt.
	ErrToolUnavailable = errors.New("extraction tool is not available")

	// ErrNoMedia indicates a resolver completed without producing any
	// links. A resolver report of "success" with zero links is folded
	// into this error rather than propagated: an empty success is a
	// failure as far as callers are concerned.
	ErrNoMedia = errors.New("no media found")
)

type (
	Config struct {
		ToolBinaryPath         string `toml:"tool_binary_path" env:"EXTRACT_TOOL_BINARY_PATH" env-default:"yt-dlp"`
		ToolTimeoutSeconds     int    `toml:"tool_timeout_seconds" env:"EXTRACT_TOOL_TIMEOUT_SECONDS" env-default:"30"`
		FallbackTimeoutSeconds int    `toml:"fallback_timeout_seconds" env:"EXTRACT_FALLBACK_TIMEOUT_SECONDS" env-default:"10"`
	}

	// Resolver turns a page URL into direct media links. The primary
	// tool runner and the per-platform scraping fallbacks all sit
	// behind this interface so platform coverage can be extended (and
	// the engine tested) without touching the orchestration below.
	Resolver interface {
		Resolve(ctx context.Context, url string, plat platform.Platform) (*Result, error)
	}

	// Engine orchestrates resolution of a URL: the primary tool is
	// tried first, and on tool failure (or an empty result) the
	// platform's fallback resolver - if one is defined - gets a
	// chance before the failure is surfaced.
	Engine struct {
		primary   Resolver
		fallbacks map[platform.Platform]Resolver
	}
)

// New constructs the production engine: a yt-dlp runner as the primary
// resolver, with the embed-page scraper registered as Instagram's
// fallback.
func New(config Config) *Engine {
	return NewWithResolvers(
		newToolRunner(config),
		map[platform.Platform]Resolver{
			platform.Instagram: newInstagramScraper(config),
		},
	)
}

// NewWithResolvers wires an engine from explicit resolvers.
func NewWithResolvers(primary Resolver, fallbacks map[platform.Platform]Resolver) *Engine {
	return &Engine{primary: primary, fallbacks: fallbacks}
}

// Extract resolves the media links for the URL provided. The returned
// result always contains at least one link; every failure mode
// (tool unavailable, tool crash/timeout, zero links, fallback failure)
// is reported through the error return instead.
func (engine *Engine) Extract(ctx context.Context, url string, plat platform.Platform) (*Result, error) {
	log.Emit(logger.INFO, "Trying %s extraction for %s: %s\n", SourcePrimaryTool, plat, url)

	result, err := engine.primary.Resolve(ctx, url, plat)
	if err == nil && len(result.Links) > 0 {
		log.Emit(logger.SUCCESS, "Extracted %d media link(s) for %s URL\n", len(result.Links), plat)
		return result, nil
	}

	if err == nil {
		err = ErrNoMedia
	}

	fallback, ok := engine.fallbacks[plat]
	if !ok {
		log.Emit(logger.ERROR, "Extraction failed for %s URL %s: %s\n", plat, url, err.Error())
		return nil, fmt.Errorf("failed to extract %s media: %w", plat, err)
	}

	log.Emit(logger.WARNING, "Primary tool failed for %s URL (%s), trying fallback\n", plat, err.Error())
	fallbackResult, fallbackErr := fallback.Resolve(ctx, url, plat)
	if fallbackErr == nil && len(fallbackResult.Links) > 0 {
		log.Emit(logger.SUCCESS, "Fallback extracted %d media link(s) for %s URL\n", len(fallbackResult.Links), plat)
		return fallbackResult, nil
	}

	if fallbackErr == nil {
		fallbackErr = ErrNoMedia
	}

	log.Emit(logger.ERROR, "All extraction methods failed for %s URL %s: %s\n", plat, url, fallbackErr.Error())
	return nil, fmt.Errorf("failed to extract %s media: %w", plat, fallbackErr)
}
