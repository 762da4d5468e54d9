package api

import (
	"context"
	"time"
)

// Previews holds the streamable renditions Freesound publishes for a sound.
type Previews struct {
	HQMP3 string `json:"preview-hq-mp3"`
	LQMP3 string `json:"preview-lq-mp3"`
	HQOGG string `json:"preview-hq-ogg"`
	LQOGG string `json:"preview-lq-ogg"`
}

// SoundSummary is one search result. Immutable once fetched.
type SoundSummary struct {
	ID           int64    `json:"id"`
	Name         string   `json:"name"`
	Username     string   `json:"username"`
	Created      string   `json:"created"`
	Tags         []string `json:"tags"`
	Description  string   `json:"description"`
	License      string   `json:"license"`
	Type         string   `json:"type"`
	Duration     float64  `json:"duration"` // seconds
	Filesize     int64    `json:"filesize"`
	Samplerate   float64  `json:"samplerate"`
	Bitrate      int      `json:"bitrate"`
	Bitdepth     int      `json:"bitdepth"`
	Channels     int      `json:"channels"`
	NumDownloads int      `json:"num_downloads"`
	AvgRating    float64  `json:"avg_rating"`
	NumRatings   int      `json:"num_ratings"`
	Previews     Previews `json:"previews"`
}

// PreviewURL returns the best available preview rendition, HQ MP3 first.
func (s *SoundSummary) PreviewURL() string {
	for _, u := range []string{s.Previews.HQMP3, s.Previews.LQMP3, s.Previews.HQOGG, s.Previews.LQOGG} {
		if u != "" {
			return u
		}
	}
	return ""
}

// ResultPage is an immutable snapshot of one page of search results.
// It is replaced wholesale on navigation, never mutated.
type ResultPage struct {
	Query        string
	Number       int // 1-based
	TotalPages   int
	TotalResults int
	Sounds       []SoundSummary
}

// Len returns the number of results on this page.
func (p *ResultPage) Len() int {
	if p == nil {
		return 0
	}
	return len(p.Sounds)
}

// Sound returns the result at the given 1-based index.
func (p *ResultPage) Sound(index int) (*SoundSummary, bool) {
	if p == nil || index < 1 || index > len(p.Sounds) {
		return nil, false
	}
	return &p.Sounds[index-1], true
}

// Status represents the playback engine state
type Status int

const (
	StatusIdle Status = iota
	StatusLoading
	StatusPlaying
	StatusPaused
	StatusError
)

func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusLoading:
		return "loading"
	case StatusPlaying:
		return "playing"
	case StatusPaused:
		return "paused"
	case StatusError:
		return "error"
	}
	return "unknown"
}

// PlaybackState is a snapshot of the engine. Exactly one live instance is
// owned by the engine; callers always receive copies.
type PlaybackState struct {
	Status   Status
	Sound    *SoundSummary
	Position time.Duration // derived from frames consumed, not wall clock
	Duration time.Duration
	Volume   float64
	Err      error
}

// CommandKind identifies a parsed user intent.
type CommandKind int

const (
	CmdSearch CommandKind = iota
	CmdPlay
	CmdInspect
	CmdDownload
	CmdPageForward
	CmdPageBackward
	CmdGoToPage
	CmdRestart
	CmdQuit
	CmdClearScreen
	CmdSeekRelative
	CmdSeekTo
	CmdTogglePause
	CmdStop
	CmdVolume
)

// Command is a fully decoded user intent. Raw input text is tokenized once
// at the terminal boundary; the core never branches on strings.
type Command struct {
	Kind   CommandKind
	Query  string        // CmdSearch
	Index  int           // CmdPlay/CmdInspect/CmdDownload, 1-based
	Random bool          // CmdPlay/CmdGoToPage: pick uniformly instead of Index/Page
	Page   int           // CmdGoToPage, 1-based
	Delta  time.Duration // CmdSeekRelative, signed
	Tenths int           // CmdSeekTo: target position in tenths of the clip
	Level  float64       // CmdVolume, 0.0-1.0
}

// Snapshot carries the session state resulting from one dispatched command,
// for the terminal layer to render.
type Snapshot struct {
	Page        *ResultPage
	Playback    PlaybackState
	Detail      *SoundSummary
	SavedPath   string
	Message     string
	ClearScreen bool
	Quit        bool
}

// EventType represents types of playback events
type EventType int

const (
	EventClipStarted EventType = iota
	EventClipEnded
	EventPositionUpdate
	EventStateChange
	EventError
)

// Event is a playback notification published by the engine.
type Event struct {
	Type    EventType
	Payload interface{}
}

// Player is the playback engine contract consumed by the session controller.
type Player interface {
	Play(ctx context.Context, sound *SoundSummary) error
	TogglePause() error
	SeekBy(delta time.Duration) error
	SeekTo(pos time.Duration) error
	SetVolume(level float64) error
	Stop()
	State() PlaybackState
}

// SearchClient fetches one page of results from the remote sound library.
type SearchClient interface {
	Search(ctx context.Context, query string, page int) (*ResultPage, error)
}
