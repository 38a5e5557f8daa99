package content

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"panelreel/internal/scene"
)

// Document base names inside the content tree.
const (
	SceneDoc    = "scene"
	MediaDoc    = "media"
	AudioMapDoc = "audio"
	PagesDoc    = "pages"
)

var docExtensions = []string{".json", ".yaml", ".yml"}

// DirSource reads snapshots from a directory tree laid out as
//
//	<root>/<series>/<volume>/audio.{json,yaml}
//	<root>/<series>/<volume>/pages.{json,yaml}        (optional page order)
//	<root>/<series>/<volume>/<chapter>/<page>/scene.{json,yaml}
//	<root>/<series>/<volume>/<chapter>/<page>/media.{json,yaml}
type DirSource struct {
	root string
}

// NewDirSource constructs a source rooted at dir.
func NewDirSource(dir string) *DirSource {
	return &DirSource{root: dir}
}

// Root returns the content root directory.
func (s *DirSource) Root() string { return s.root }

// PageDir returns the directory holding a page's documents.
func (s *DirSource) PageDir(page scene.PageRef) string {
	return filepath.Join(s.root, page.Series, page.Volume, page.Chapter, page.PageID)
}

// VolumeDir returns the directory holding a volume's documents.
func (s *DirSource) VolumeDir(series, volume string) string {
	return filepath.Join(s.root, series, volume)
}

func (s *DirSource) FetchScene(ctx context.Context, page scene.PageRef) ([]scene.Cue, error) {
	path, data, err := readDoc(ctx, s.PageDir(page), SceneDoc)
	if err != nil {
		return nil, err
	}
	if isYAML(path) {
		var node yaml.Node
		if err := yaml.Unmarshal(data, &node); err != nil {
			return nil, fmt.Errorf("decode %s: %w", path, err)
		}
		if len(node.Content) > 0 && node.Content[0].Kind == yaml.SequenceNode {
			var cues []scene.Cue
			if err := node.Decode(&cues); err != nil {
				return nil, fmt.Errorf("decode %s: %w", path, err)
			}
			return cues, nil
		}
		var doc struct {
			Cues []scene.Cue `yaml:"cues"`
		}
		if err := node.Decode(&doc); err != nil {
			return nil, fmt.Errorf("decode %s: %w", path, err)
		}
		return doc.Cues, nil
	}
	if bytes.HasPrefix(bytes.TrimSpace(data), []byte("[")) {
		var cues []scene.Cue
		if err := json.Unmarshal(data, &cues); err != nil {
			return nil, fmt.Errorf("decode %s: %w", path, err)
		}
		return cues, nil
	}
	var doc struct {
		Cues []scene.Cue `json:"cues"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return doc.Cues, nil
}

func (s *DirSource) FetchMedia(ctx context.Context, page scene.PageRef) (scene.PageMedia, error) {
	var media scene.PageMedia
	if err := decodeDoc(ctx, s.PageDir(page), MediaDoc, &media); err != nil {
		return scene.PageMedia{}, err
	}
	return media, nil
}

func (s *DirSource) FetchAudioMap(ctx context.Context, series, volume string) ([]scene.AudioMapEntry, error) {
	var entries []scene.AudioMapEntry
	if err := decodeDoc(ctx, s.VolumeDir(series, volume), AudioMapDoc, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

// ListPages honors an explicit pages document and otherwise walks chapter and
// page directories in natural order, keeping those that hold a scene or media
// document.
func (s *DirSource) ListPages(ctx context.Context, series, volume string) ([]scene.PageRef, error) {
	volDir := s.VolumeDir(series, volume)
	var listed []scene.PageRef
	err := decodeDoc(ctx, volDir, PagesDoc, &listed)
	switch {
	case err == nil:
		for i := range listed {
			listed[i].Series = series
			listed[i].Volume = volume
		}
		return listed, nil
	case !errors.Is(err, ErrNotFound):
		return nil, err
	}

	chapters, err := subdirs(volDir)
	if err != nil {
		return nil, err
	}
	var pages []scene.PageRef
	for _, chapter := range chapters {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		ids, err := subdirs(filepath.Join(volDir, chapter))
		if err != nil {
			return nil, err
		}
		for _, id := range ids {
			ref := scene.PageRef{Series: series, Volume: volume, Chapter: chapter, PageID: id}
			if hasDoc(s.PageDir(ref), SceneDoc) || hasDoc(s.PageDir(ref), MediaDoc) {
				pages = append(pages, ref)
			}
		}
	}
	if len(pages) == 0 {
		return nil, fmt.Errorf("list pages %s/%s: %w", series, volume, ErrNotFound)
	}
	return pages, nil
}

func isYAML(path string) bool {
	ext := filepath.Ext(path)
	return ext == ".yaml" || ext == ".yml"
}

func findDoc(dir, base string) (string, bool) {
	for _, ext := range docExtensions {
		path := filepath.Join(dir, base+ext)
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			return path, true
		}
	}
	return "", false
}

func hasDoc(dir, base string) bool {
	_, ok := findDoc(dir, base)
	return ok
}

func readDoc(ctx context.Context, dir, base string) (string, []byte, error) {
	if err := ctx.Err(); err != nil {
		return "", nil, err
	}
	path, ok := findDoc(dir, base)
	if !ok {
		return "", nil, fmt.Errorf("%s in %s: %w", base, dir, ErrNotFound)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", nil, fmt.Errorf("read %s: %w", path, err)
	}
	return path, data, nil
}

func decodeDoc(ctx context.Context, dir, base string, out any) error {
	path, data, err := readDoc(ctx, dir, base)
	if err != nil {
		return err
	}
	if isYAML(path) {
		err = yaml.Unmarshal(data, out)
	} else {
		err = json.Unmarshal(data, out)
	}
	if err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

func subdirs(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%s: %w", dir, ErrNotFound)
		}
		return nil, fmt.Errorf("read dir %s: %w", dir, err)
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() && !strings.HasPrefix(e.Name(), ".") {
			names = append(names, e.Name())
		}
	}
	slices.SortFunc(names, naturalCompare)
	return names, nil
}

// naturalCompare orders "p2" before "p10".
func naturalCompare(a, b string) int {
	for a != "" && b != "" {
		da, restA := leadingDigits(a)
		db, restB := leadingDigits(b)
		if da != "" && db != "" {
			na, _ := strconv.Atoi(da)
			nb, _ := strconv.Atoi(db)
			if na != nb {
				if na < nb {
					return -1
				}
				return 1
			}
			a, b = restA, restB
			continue
		}
		if a[0] != b[0] {
			if a[0] < b[0] {
				return -1
			}
			return 1
		}
		a, b = a[1:], b[1:]
	}
	return len(a) - len(b)
}

func leadingDigits(s string) (string, string) {
	i := 0
	for i < len(s) && s[i] >= '0' && s[i] <= '9' {
		i++
	}
	return s[:i], s[i:]
}
