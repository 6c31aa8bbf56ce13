package extract

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"sort"
	"time"

	"github.com/reeler/reeler/internal/platform"
	"github.com/reeler/reeler/pkg/logger"
)

var toolLog = logger.Get("YtDlp")

type (
	// toolRunner resolves media by invoking the external yt-dlp binary
	// in metadata-only mode. No media bytes are ever fetched; the tool
	// dumps a JSON description of the available formats and we pick
	// the download links out of that.
	toolRunner struct {
		binaryPath string
		timeout    time.Duration
		runCommand func(ctx context.Context, name string, args ...string) error
	}

	// toolOutput mirrors the subset of yt-dlp's --dump-json output the
	// runner cares about.
	toolOutput struct {
		Title     string       `json:"title"`
		Thumbnail string       `json:"thumbnail"`
		URL       string       `json:"url"`
		Ext       string       `json:"ext"`
		Formats   []toolFormat `json:"formats"`
	}

	// toolFormat is one candidate media stream: codec classification,
	// resolution height (video) or bitrate (audio), container
	// extension and direct URL.
	toolFormat struct {
		URL    string  `json:"url"`
		Ext    string  `json:"ext"`
		Vcodec string  `json:"vcodec"`
		Acodec string  `json:"acodec"`
		Height int     `json:"height"`
		Abr    float64 `json:"abr"`
	}
)

func newToolRunner(config Config) *toolRunner {
	return &toolRunner{
		binaryPath: config.ToolBinaryPath,
		timeout:    time.Duration(config.ToolTimeoutSeconds) * time.Second,
		runCommand: func(ctx context.Context, name string, args ...string) error {
			return exec.CommandContext(ctx, name, args...).Run()
		},
	}
}

// Resolve runs yt-dlp against the URL under a hard wall-clock timeout.
// Tool crash, non-zero exit, timeout and malformed output are all
// reported as errors; the engine decides whether a fallback applies.
func (runner *toolRunner) Resolve(ctx context.Context, url string, plat platform.Platform) (*Result, error) {
	if err := runner.ensureAvailable(ctx); err != nil {
		return nil, err
	}

	toolCtx, cancel := context.WithTimeout(ctx, runner.timeout)
	defer cancel()

	cmd := exec.CommandContext(toolCtx, runner.binaryPath, "--dump-json", "--no-download", "--no-warnings", url)
	stdout, err := cmd.Output()
	if err != nil {
		if toolCtx.Err() == context.DeadlineExceeded {
			return nil, fmt.Errorf("tool invocation timed out after %s", runner.timeout)
		}

		return nil, fmt.Errorf("tool invocation failed: %s", distillExecError(err))
	}

	var info toolOutput
	if err := json.Unmarshal(bytes.TrimSpace(stdout), &info); err != nil {
		return nil, fmt.Errorf("tool produced malformed output: %w", err)
	}

	return &Result{
		Links:     selectLinks(&info),
		Title:     titleOrDefault(info.Title, plat),
		Thumbnail: info.Thumbnail,
		Source:    SourcePrimaryTool,
	}, nil
}

// ensureAvailable confirms the tool binary is runnable via a version
// probe. If the probe fails, a single install attempt is made before
// re-probing; a second failure marks the tool absent for this call
// only - the process carries on and the next request probes again.
// The probe and install share one deadline, so a wedged install can
// never stall a request beyond the tool timeout.
func (runner *toolRunner) ensureAvailable(parent context.Context) error {
	ctx, cancel := context.WithTimeout(parent, runner.timeout)
	defer cancel()

	if err := runner.runCommand(ctx, runner.binaryPath, "--version"); err == nil {
		return nil
	}

	toolLog.Emit(logger.WARNING, "yt-dlp version probe failed, attempting install...\n")
	if err := runner.runCommand(ctx, "pip", "install", "yt-dlp"); err != nil {
		return fmt.Errorf("%w: install attempt failed: %s", ErrToolUnavailable, distillExecError(err))
	}

	if err := runner.runCommand(ctx, runner.binaryPath, "--version"); err != nil {
		return fmt.Errorf("%w: binary still not runnable after install", ErrToolUnavailable)
	}

	toolLog.Emit(logger.SUCCESS, "yt-dlp installed successfully\n")
	return nil
}

// selectLinks shapes the tool's format descriptors into the ordered
// link list: up to the top 3 video-capable formats by descending
// height (ties keep the tool's output order), then at most one
// audio-only format by descending bitrate. When the output carries no
// formats array but does carry a top-level direct URL, exactly one
// link is emitted from that.
func selectLinks(info *toolOutput) []MediaLink {
	links := make([]MediaLink, 0, 4)

	videoFormats := make([]toolFormat, 0, len(info.Formats))
	audioFormats := make([]toolFormat, 0, len(info.Formats))
	for _, format := range info.Formats {
		if format.URL == "" {
			continue
		}

		if format.Vcodec != "" && format.Vcodec != "none" {
			videoFormats = append(videoFormats, format)
		} else if format.Acodec != "" && format.Acodec != "none" {
			audioFormats = append(audioFormats, format)
		}
	}

	sort.SliceStable(videoFormats, func(i, j int) bool { return videoFormats[i].Height > videoFormats[j].Height })
	if len(videoFormats) > 3 {
		videoFormats = videoFormats[:3]
	}
	for _, format := range videoFormats {
		links = append(links, MediaLink{
			Label:   fmt.Sprintf("Video %sp (%s)", heightLabel(format.Height), extOrDefault(format.Ext, "mp4")),
			URL:     format.URL,
			Quality: qualityLabel(format.Height),
		})
	}

	sort.SliceStable(audioFormats, func(i, j int) bool { return audioFormats[i].Abr > audioFormats[j].Abr })
	if len(audioFormats) > 0 {
		best := audioFormats[0]
		links = append(links, MediaLink{
			Label:   fmt.Sprintf("Audio Only (%s)", extOrDefault(best.Ext, "mp3")),
			URL:     best.URL,
			Quality: "audio",
		})
	}

	if len(links) == 0 && info.URL != "" {
		links = append(links, MediaLink{
			Label:   fmt.Sprintf("Video (%s)", extOrDefault(info.Ext, "mp4")),
			URL:     info.URL,
			Quality: "unknown",
		})
	}

	return links
}

func heightLabel(height int) string {
	if height <= 0 {
		return "Unknown"
	}

	return fmt.Sprint(height)
}

func qualityLabel(height int) string {
	if height <= 0 {
		return "unknown"
	}

	return fmt.Sprint(height)
}

func extOrDefault(ext string, fallback string) string {
	if ext == "" {
		return fallback
	}

	return ext
}

func titleOrDefault(title string, plat platform.Platform) string {
	if title == "" {
		return fmt.Sprintf("%s Video", plat)
	}

	return title
}

// distillExecError pulls the captured stderr out of an ExitError so
// the failure reason we log/propagate is the tool's complaint rather
// than just "exit status 1".
func distillExecError(err error) string {
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) && len(bytes.TrimSpace(exitErr.Stderr)) > 0 {
		return string(bytes.TrimSpace(exitErr.Stderr))
	}

	return err.Error()
}
