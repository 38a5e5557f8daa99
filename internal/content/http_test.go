package content_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"panelreel/internal/content"
	"panelreel/internal/scene"
)

var page = scene.PageRef{Series: "moon", Volume: "v1", Chapter: "c1", PageID: "p1"}

func TestHTTPSourceFetchesDocuments(t *testing.T) {
	var auth []string
	mux := http.NewServeMux()
	mux.HandleFunc("/api/scenes/moon/v1/c1/p1", func(w http.ResponseWriter, r *http.Request) {
		auth = append(auth, r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(`{"cues":[{"id":"a","displayOrder":0,"kind":"speechBubble","text":"hi","placement":{"panel":"#p1"}}]}`))
	})
	mux.HandleFunc("/api/scenes/moon/v1/c1/p2", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[{"id":"b","displayOrder":0,"kind":"pause","duration":500}]`))
	})
	mux.HandleFunc("/api/media/moon/v1/c1/p1", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"media":[{"panel":"#p1","type":"image","fileName":"bg.png"}],"sequentialVideoPlayback":true,"ambientAudio":{"fileName":"rain.mp3","volume":0.2}}`))
	})
	mux.HandleFunc("/api/audio-map/moon/v1", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[{"fileName":"calm.mp3","pages":["p1","p2"],"volume":0.5}]`))
	})
	mux.HandleFunc("/api/pages/moon/v1", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[{"chapter":"c1","pageId":"p1"},{"chapter":"c1","pageId":"p2"}]`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	src := content.NewHTTPSource(srv.URL+"/", "secret", time.Second, srv.Client())
	ctx := context.Background()

	cues, err := src.FetchScene(ctx, page)
	if err != nil {
		t.Fatalf("FetchScene: %v", err)
	}
	if len(cues) != 1 || cues[0].ID != "a" || cues[0].Placement.Panel != "#p1" {
		t.Fatalf("unexpected cues: %+v", cues)
	}
	if len(auth) != 1 || auth[0] != "Bearer secret" {
		t.Fatalf("expected bearer token, got %v", auth)
	}

	bare := page
	bare.PageID = "p2"
	cues, err = src.FetchScene(ctx, bare)
	if err != nil || len(cues) != 1 || cues[0].Kind != scene.KindPause {
		t.Fatalf("expected bare array scene, got %+v err=%v", cues, err)
	}

	media, err := src.FetchMedia(ctx, page)
	if err != nil {
		t.Fatalf("FetchMedia: %v", err)
	}
	if !media.SequentialVideoPlayback || media.AmbientAudio == nil || media.AmbientAudio.FileName != "rain.mp3" {
		t.Fatalf("unexpected media: %+v", media)
	}

	entries, err := src.FetchAudioMap(ctx, "moon", "v1")
	if err != nil || len(entries) != 1 || entries[0].Volume != 0.5 {
		t.Fatalf("unexpected audio map: %+v err=%v", entries, err)
	}

	pages, err := src.ListPages(ctx, "moon", "v1")
	if err != nil {
		t.Fatalf("ListPages: %v", err)
	}
	if len(pages) != 2 || pages[1].Series != "moon" || pages[1].Volume != "v1" || pages[1].PageID != "p2" {
		t.Fatalf("unexpected pages: %+v", pages)
	}
}

func TestHTTPSourceErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/media/moon/v1/c1/p1":
			http.Error(w, "boom", http.StatusInternalServerError)
		case "/api/scenes/moon/v1/c1/p1":
			_, _ = w.Write([]byte(`{"cues": [`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	src := content.NewHTTPSource(srv.URL, "", time.Second, nil)
	ctx := context.Background()

	if _, err := src.FetchScene(ctx, page); err == nil {
		t.Fatal("expected decode error for malformed scene")
	}
	if _, err := src.FetchMedia(ctx, page); err == nil || errors.Is(err, content.ErrNotFound) {
		t.Fatalf("expected server error, got %v", err)
	}
	if _, err := src.FetchAudioMap(ctx, "moon", "v9"); !errors.Is(err, content.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestHTTPSourceTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	src := content.NewHTTPSource(srv.URL, "", 50*time.Millisecond, nil)
	if _, err := src.FetchScene(context.Background(), page); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
}
