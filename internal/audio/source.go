package audio

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/faiface/beep"
	"github.com/faiface/beep/mp3"
	"github.com/faiface/beep/vorbis"
	"github.com/faiface/beep/wav"

	"github.com/soundscout/soundscout/api"
	scouterrors "github.com/soundscout/soundscout/pkg/errors"
)

// SupportedFormats returns the preview formats the decoder handles
func SupportedFormats() []string {
	return []string{".mp3", ".ogg", ".wav"}
}

// IsSupported checks if a preview format is supported
func IsSupported(name string) bool {
	ext := strings.ToLower(path.Ext(name))
	for _, format := range SupportedFormats() {
		if ext == format {
			return true
		}
	}
	return false
}

// Source is an open, seekable decoded-PCM view over one preview clip.
// The compressed payload lives entirely in memory, so repositioning the
// decode cursor never touches the network.
type Source struct {
	Streamer beep.StreamSeekCloser
	Format   beep.Format
}

// Duration returns the total clip length derived from the frame count.
func (s *Source) Duration() time.Duration {
	return s.Format.SampleRate.D(s.Streamer.Len())
}

// Close releases the decoder.
func (s *Source) Close() error {
	return s.Streamer.Close()
}

// Decode decodes a compressed payload based on its resource name extension.
func Decode(data []byte, name string) (*Source, error) {
	ext := strings.ToLower(path.Ext(stripQuery(name)))

	rc := &bufferCloser{Reader: bytes.NewReader(data)}

	var (
		streamer beep.StreamSeekCloser
		format   beep.Format
		err      error
	)
	switch ext {
	case ".mp3":
		streamer, format, err = mp3.Decode(rc)
	case ".ogg":
		streamer, format, err = vorbis.Decode(rc)
	case ".wav":
		streamer, format, err = wav.Decode(rc)
	default:
		return nil, fmt.Errorf("%w: %s", scouterrors.ErrUnsupportedFormat, ext)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", scouterrors.ErrUnsupportedFormat, err)
	}

	return &Source{Streamer: streamer, Format: format}, nil
}

// stripQuery drops any URL query suffix so extension sniffing works on
// preview URLs as well as plain filenames.
func stripQuery(name string) string {
	if i := strings.IndexByte(name, '?'); i >= 0 {
		return name[:i]
	}
	return name
}

// bufferCloser adapts an in-memory reader to the decoder interfaces.
type bufferCloser struct {
	*bytes.Reader
}

func (b *bufferCloser) Close() error { return nil }

// Fetcher retrieves a preview payload over the network.
type Fetcher interface {
	FetchPreview(ctx context.Context, previewURL string) ([]byte, error)
}

// Opener opens a Source for a sound.
type Opener interface {
	Open(ctx context.Context, sound *api.SoundSummary) (*Source, error)
}

// PreviewOpener opens sources by fetching the sound's best preview rendition.
type PreviewOpener struct {
	fetcher Fetcher
}

// NewPreviewOpener creates an Opener backed by the given fetcher.
func NewPreviewOpener(f Fetcher) *PreviewOpener {
	return &PreviewOpener{fetcher: f}
}

// Open fetches and decodes the sound's preview.
func (o *PreviewOpener) Open(ctx context.Context, sound *api.SoundSummary) (*Source, error) {
	previewURL := sound.PreviewURL()
	if previewURL == "" {
		return nil, scouterrors.ErrNoPreview
	}

	data, err := o.fetcher.FetchPreview(ctx, previewURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", scouterrors.ErrSourceUnavailable, err)
	}

	return Decode(data, previewURL)
}
