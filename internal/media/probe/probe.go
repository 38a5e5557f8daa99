package probe

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"
)

// Result represents the parsed output from an ffprobe inspection.
type Result struct {
	Streams []Stream `json:"streams"`
	Format  Format   `json:"format"`
}

// Stream describes a single stream in the media container.
type Stream struct {
	Index     int    `json:"index"`
	CodecName string `json:"codec_name"`
	CodecType string `json:"codec_type"`
	Duration  string `json:"duration"`
}

// Format captures container-level metadata.
type Format struct {
	Filename   string `json:"filename"`
	Duration   string `json:"duration"`
	FormatName string `json:"format_name"`
}

// Inspect executes ffprobe against path and decodes the JSON response.
func Inspect(ctx context.Context, binary string, path string) (Result, error) {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		binary = "ffprobe"
	}
	path = strings.TrimSpace(path)
	if path == "" {
		return Result{}, errors.New("ffprobe inspect: empty path")
	}

	cmd := exec.CommandContext(ctx, binary, "-v", "error", "-hide_banner", "-show_format", "-show_streams", "-of", "json", "--", path)
	output, err := cmd.Output()
	if err != nil {
		return Result{}, fmt.Errorf("ffprobe inspect: %w", err)
	}
	return Parse(output)
}

// Parse decodes ffprobe JSON output.
func Parse(data []byte) (Result, error) {
	var result Result
	if err := json.Unmarshal(data, &result); err != nil {
		return Result{}, fmt.Errorf("ffprobe parse: %w", err)
	}
	return result, nil
}

// AudioStreamCount returns the number of audio streams discovered.
func (r Result) AudioStreamCount() int {
	count := 0
	for _, stream := range r.Streams {
		if strings.EqualFold(stream.CodecType, "audio") {
			count++
		}
	}
	return count
}

// Duration returns the container duration, falling back to the longest
// stream. ok is false when no usable value is reported.
func (r Result) Duration() (time.Duration, bool) {
	seconds := parseFloat(r.Format.Duration)
	if seconds <= 0 || math.IsNaN(seconds) {
		seconds = 0
		for _, stream := range r.Streams {
			if v := parseFloat(stream.Duration); v > seconds {
				seconds = v
			}
		}
	}
	if seconds <= 0 {
		return 0, false
	}
	return time.Duration(seconds * float64(time.Second)), true
}

func parseFloat(value string) float64 {
	cleaned := strings.TrimSpace(value)
	if cleaned == "" {
		return 0
	}
	if parsed, err := strconv.ParseFloat(cleaned, 64); err == nil {
		return parsed
	}
	return math.NaN()
}

// Prober caches durations for asset addresses that map onto local files.
type Prober struct {
	Binary  string
	Timeout time.Duration
	// Inspect overrides the ffprobe invocation; nil uses Inspect.
	Inspect func(ctx context.Context, binary, path string) (Result, error)

	mu    sync.Mutex
	cache map[string]durationEntry
}

type durationEntry struct {
	d  time.Duration
	ok bool
}

// Duration reports the length of the asset at addr. Remote addresses and
// missing files report ok=false without invoking ffprobe.
func (p *Prober) Duration(addr string) (time.Duration, bool) {
	path, ok := localPath(addr)
	if !ok {
		return 0, false
	}

	p.mu.Lock()
	if entry, hit := p.cache[path]; hit {
		p.mu.Unlock()
		return entry.d, entry.ok
	}
	p.mu.Unlock()

	if _, err := os.Stat(path); err != nil {
		return 0, false
	}

	timeout := p.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	inspect := p.Inspect
	if inspect == nil {
		inspect = Inspect
	}
	var entry durationEntry
	if result, err := inspect(ctx, p.Binary, path); err == nil {
		entry.d, entry.ok = result.Duration()
	}

	p.mu.Lock()
	if p.cache == nil {
		p.cache = make(map[string]durationEntry)
	}
	p.cache[path] = entry
	p.mu.Unlock()
	return entry.d, entry.ok
}

// Exists reports whether addr maps to an existing local file.
func Exists(addr string) bool {
	path, ok := localPath(addr)
	if !ok {
		return false
	}
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

func localPath(addr string) (string, bool) {
	addr = strings.TrimSpace(addr)
	if addr == "" || strings.Contains(addr, "://") && !strings.HasPrefix(addr, "file://") {
		return "", false
	}
	addr = strings.TrimPrefix(addr, "file://")
	if i := strings.IndexByte(addr, '?'); i >= 0 {
		addr = addr[:i]
	}
	return filepath.Clean(addr), true
}
