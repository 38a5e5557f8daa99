package media

import (
	"path"
	"strings"

	"panelreel/internal/config"
	"panelreel/internal/scene"
)

// AssetType selects the asset directory a reference resolves into.
type AssetType string

const (
	AssetImage AssetType = "image"
	AssetVideo AssetType = "video"
	AssetAudio AssetType = "audio"
	AssetVoice AssetType = "voice"
)

// Namespace is the scope a reference resolves against.
type Namespace string

const (
	NamespacePage   Namespace = "page"
	NamespaceVolume Namespace = "volume"
	NamespaceSeries Namespace = "series"
	NamespaceGlobal Namespace = "global"
)

var assetDirs = map[AssetType]string{
	AssetImage: "images",
	AssetVideo: "videos",
	AssetAudio: "audio",
	AssetVoice: "voice",
}

// AssetTypeFor maps an action type onto its asset type.
func AssetTypeFor(t scene.ActionType) AssetType {
	switch t {
	case scene.ActionVideo:
		return AssetVideo
	case scene.ActionBackgroundAudio, scene.ActionAmbientAudio:
		return AssetAudio
	default:
		return AssetImage
	}
}

// Resolver resolves references using the configured templates.
type Resolver struct {
	base           string
	templates      map[Namespace]string
	audioExtension string
}

// NewResolver builds a resolver from the [assets] config section.
func NewResolver(cfg config.Assets) *Resolver {
	ext := strings.TrimPrefix(strings.TrimSpace(cfg.AudioExtension), ".")
	if ext == "" {
		ext = "mp3"
	}
	return &Resolver{
		base: strings.TrimRight(cfg.BaseURL, "/"),
		templates: map[Namespace]string{
			NamespacePage:   cfg.PageTemplate,
			NamespaceVolume: cfg.VolumeTemplate,
			NamespaceSeries: cfg.SeriesTemplate,
			NamespaceGlobal: cfg.GlobalTemplate,
		},
		audioExtension: ext,
	}
}

// Split separates a reference into its namespace and file name.
func Split(ref string) (Namespace, string) {
	ref = strings.TrimSpace(ref)
	for _, ns := range []Namespace{NamespaceVolume, NamespaceSeries, NamespaceGlobal} {
		if rest, ok := strings.CutPrefix(ref, string(ns)+":"); ok {
			return ns, rest
		}
	}
	return NamespacePage, ref
}

// Resolve returns the retrieval address for ref. Empty references resolve
// to "" and absolute addresses pass through unchanged.
func (r *Resolver) Resolve(ref string, kind AssetType, page scene.PageRef) string {
	ns, file := Split(ref)
	if file == "" {
		return ""
	}
	if isAbsolute(file) {
		return file
	}
	dir, ok := assetDirs[kind]
	if !ok {
		dir = string(kind)
	}
	replacer := strings.NewReplacer(
		"{base}", r.base,
		"{series}", page.Series,
		"{volume}", page.Volume,
		"{chapter}", page.Chapter,
		"{page}", page.PageID,
		"{type}", dir,
		"{file}", file,
	)
	out := replacer.Replace(r.templates[ns])
	if strings.Contains(out, "://") {
		return out
	}
	cleaned := path.Clean(out)
	if strings.HasPrefix(out, "/") && !strings.HasPrefix(cleaned, "/") {
		cleaned = "/" + cleaned
	}
	return cleaned
}

// CueAudio returns the audio address for a cue and whether the reference was
// declared explicitly. Cues without an explicit reference fall back to the
// {id}.{ext} convention.
func (r *Resolver) CueAudio(cue scene.Cue, page scene.PageRef) (string, bool) {
	if !cue.HasAudio() {
		return "", false
	}
	if ref := strings.TrimSpace(cue.AudioRef); ref != "" {
		return r.Resolve(ref, AssetVoice, page), true
	}
	if strings.TrimSpace(cue.ID) == "" {
		return "", false
	}
	return r.Resolve(cue.ID+"."+r.audioExtension, AssetVoice, page), false
}

// BaseAddress strips cache-busting query strings and fragments so two
// addresses for the same asset compare equal.
func BaseAddress(addr string) string {
	addr = strings.TrimSpace(addr)
	if i := strings.IndexAny(addr, "?#"); i >= 0 {
		return addr[:i]
	}
	return addr
}

func isAbsolute(ref string) bool {
	return strings.Contains(ref, "://") || strings.HasPrefix(ref, "data:")
}
