package content

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"panelreel/internal/scene"
)

// HTTPDoer describes the HTTP client used by HTTPSource.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

const maxDocumentBytes = 8 << 20

// HTTPSource reads snapshots from the authoring backend's REST API.
type HTTPSource struct {
	baseURL string
	token   string
	timeout time.Duration
	client  HTTPDoer
}

// NewHTTPSource constructs a source rooted at baseURL. A nil client uses
// http.DefaultClient; timeout bounds each request when positive.
func NewHTTPSource(baseURL, token string, timeout time.Duration, client HTTPDoer) *HTTPSource {
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPSource{
		baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		token:   strings.TrimSpace(token),
		timeout: timeout,
		client:  client,
	}
}

// FetchScene accepts either a bare cue array or an object with a "cues" field.
func (s *HTTPSource) FetchScene(ctx context.Context, page scene.PageRef) ([]scene.Cue, error) {
	raw, err := s.get(ctx, "scenes", page.Series, page.Volume, page.Chapter, page.PageID)
	if err != nil {
		return nil, err
	}
	trimmed := strings.TrimSpace(string(raw))
	if strings.HasPrefix(trimmed, "[") {
		var cues []scene.Cue
		if err := json.Unmarshal(raw, &cues); err != nil {
			return nil, fmt.Errorf("decode scene %s: %w", page, err)
		}
		return cues, nil
	}
	var doc struct {
		Cues []scene.Cue `json:"cues"`
	}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("decode scene %s: %w", page, err)
	}
	return doc.Cues, nil
}

func (s *HTTPSource) FetchMedia(ctx context.Context, page scene.PageRef) (scene.PageMedia, error) {
	raw, err := s.get(ctx, "media", page.Series, page.Volume, page.Chapter, page.PageID)
	if err != nil {
		return scene.PageMedia{}, err
	}
	var media scene.PageMedia
	if err := json.Unmarshal(raw, &media); err != nil {
		return scene.PageMedia{}, fmt.Errorf("decode media %s: %w", page, err)
	}
	return media, nil
}

func (s *HTTPSource) FetchAudioMap(ctx context.Context, series, volume string) ([]scene.AudioMapEntry, error) {
	raw, err := s.get(ctx, "audio-map", series, volume)
	if err != nil {
		return nil, err
	}
	var entries []scene.AudioMapEntry
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, fmt.Errorf("decode audio map %s/%s: %w", series, volume, err)
	}
	return entries, nil
}

func (s *HTTPSource) ListPages(ctx context.Context, series, volume string) ([]scene.PageRef, error) {
	raw, err := s.get(ctx, "pages", series, volume)
	if err != nil {
		return nil, err
	}
	var pages []scene.PageRef
	if err := json.Unmarshal(raw, &pages); err != nil {
		return nil, fmt.Errorf("decode pages %s/%s: %w", series, volume, err)
	}
	for i := range pages {
		if pages[i].Series == "" {
			pages[i].Series = series
		}
		if pages[i].Volume == "" {
			pages[i].Volume = volume
		}
	}
	return pages, nil
}

func (s *HTTPSource) get(ctx context.Context, kind string, segments ...string) ([]byte, error) {
	if s.baseURL == "" {
		return nil, errors.New("content base url not configured")
	}
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	escaped := make([]string, 0, len(segments))
	for _, seg := range segments {
		escaped = append(escaped, url.PathEscape(seg))
	}
	endpoint := fmt.Sprintf("%s/api/%s/%s", s.baseURL, kind, strings.Join(escaped, "/"))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build %s request: %w", kind, err)
	}
	req.Header.Set("Accept", "application/json")
	if s.token != "" {
		req.Header.Set("Authorization", "Bearer "+s.token)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", kind, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("fetch %s %s: %w", kind, strings.Join(segments, "/"), ErrNotFound)
	}
	if resp.StatusCode >= http.StatusMultipleChoices {
		return nil, fmt.Errorf("fetch %s returned %d", kind, resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxDocumentBytes))
	if err != nil {
		return nil, fmt.Errorf("read %s body: %w", kind, err)
	}
	return body, nil
}
