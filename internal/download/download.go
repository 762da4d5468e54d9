// Package download saves preview renditions to local files.
package download

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/dhowden/tag"

	"github.com/soundscout/soundscout/api"
	scouterrors "github.com/soundscout/soundscout/pkg/errors"
)

// PreviewStreamer opens a streaming reader over a preview rendition.
type PreviewStreamer interface {
	PreviewReader(ctx context.Context, previewURL string) (io.ReadCloser, int64, error)
}

// Result describes a completed save.
type Result struct {
	Path   string
	Bytes  int64
	Title  string // from embedded tags, when present
	Artist string
}

// Saver streams previews to disk.
type Saver struct {
	streamer PreviewStreamer
	dir      string
}

// NewSaver creates a Saver writing into dir.
func NewSaver(streamer PreviewStreamer, dir string) *Saver {
	return &Saver{streamer: streamer, dir: dir}
}

// Save downloads the sound's best preview rendition into the save directory.
// The filename is derived from the sound's name, sanitized for the
// filesystem. Embedded tags are read back best-effort for the report.
func (s *Saver) Save(ctx context.Context, sound *api.SoundSummary) (Result, error) {
	previewURL := sound.PreviewURL()
	if previewURL == "" {
		return Result{}, scouterrors.ErrNoPreview
	}

	rc, _, err := s.streamer.PreviewReader(ctx, previewURL)
	if err != nil {
		return Result{}, err
	}
	defer rc.Close()

	if s.dir != "" {
		if err := os.MkdirAll(s.dir, 0755); err != nil {
			return Result{}, fmt.Errorf("create download directory: %w", err)
		}
	}

	name := SanitizeFilename(sound.Name) + previewExt(previewURL)
	dest := filepath.Join(s.dir, name)

	f, err := os.Create(dest)
	if err != nil {
		return Result{}, fmt.Errorf("create file %q: %w", dest, err)
	}

	n, err := io.Copy(f, rc)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(dest)
		return Result{}, fmt.Errorf("write file %q: %w", dest, err)
	}

	result := Result{Path: dest, Bytes: n}
	result.Title, result.Artist = readTags(dest)
	return result, nil
}

// readTags pulls embedded metadata from the saved file. Previews are not
// guaranteed to carry tags, so failures are not errors.
func readTags(path string) (title, artist string) {
	f, err := os.Open(path)
	if err != nil {
		return "", ""
	}
	defer f.Close()

	meta, err := tag.ReadFrom(f)
	if err != nil {
		return "", ""
	}
	return meta.Title(), meta.Artist()
}

// SanitizeFilename makes a sound name safe to use as a file name: path
// separators become underscores and overlong names are truncated.
func SanitizeFilename(name string) string {
	name = strings.ReplaceAll(name, "/", "_")
	name = strings.ReplaceAll(name, "\\", "_")
	name = strings.TrimSpace(name)
	if name == "" {
		name = "sound"
	}

	runes := []rune(name)
	if len(runes) > 200 {
		name = string(runes[:200]) + "..."
	}
	return name
}

// previewExt derives the saved file's extension from the preview URL.
func previewExt(previewURL string) string {
	clean := previewURL
	if i := strings.IndexByte(clean, '?'); i >= 0 {
		clean = clean[:i]
	}
	if ext := strings.ToLower(path.Ext(clean)); ext != "" {
		return ext
	}
	return ".mp3"
}
