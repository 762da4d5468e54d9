package audio

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/faiface/beep"
	"github.com/faiface/beep/effects"
	"github.com/faiface/beep/speaker"

	"github.com/soundscout/soundscout/api"
	scouterrors "github.com/soundscout/soundscout/pkg/errors"
	"github.com/soundscout/soundscout/pkg/events"
)

// Ensure Engine implements Player interface at compile time
var _ api.Player = (*Engine)(nil)

// device abstracts the speaker package so engine tests can run without
// audio hardware.
type device interface {
	Init(sampleRate beep.SampleRate, bufferSize int) error
	Play(s ...beep.Streamer)
	Clear()
	Lock()
	Unlock()
}

type speakerDevice struct{}

func (speakerDevice) Init(sr beep.SampleRate, n int) error { return speaker.Init(sr, n) }
func (speakerDevice) Play(s ...beep.Streamer)              { speaker.Play(s...) }
func (speakerDevice) Clear()                               { speaker.Clear() }
func (speakerDevice) Lock()                                { speaker.Lock() }
func (speakerDevice) Unlock()                              { speaker.Unlock() }

// Engine owns the single active audio stream and its state machine:
// Idle -> Loading -> Playing <-> Paused -> Idle, any -> Error -> Idle.
//
// Lock ordering: the device lock is always taken before e.mu, matching the
// device callback (which runs under the device lock and then takes e.mu).
// e.mu is never held across a blocking fetch or a device call.
type Engine struct {
	opener Opener
	bus    *events.Bus
	out    device

	mu       sync.RWMutex
	status   api.Status
	sound    *api.SoundSummary
	src      *Source
	ctrl     *beep.Ctrl
	vol      *effects.Volume
	lastErr  error
	volLevel float64
	gen      int // invalidates end-of-clip callbacks from superseded streams

	inited     bool
	deviceRate beep.SampleRate
}

// NewEngine creates a playback engine driving the real audio device.
func NewEngine(opener Opener, bus *events.Bus) *Engine {
	return newEngine(opener, bus, speakerDevice{})
}

func newEngine(opener Opener, bus *events.Bus, out device) *Engine {
	return &Engine{
		opener:   opener,
		bus:      bus,
		out:      out,
		status:   api.StatusIdle,
		volLevel: 0.5,
	}
}

// Play starts playback of the sound's preview. Any previously active stream
// is stopped and released first, so at most one source is ever open.
func (e *Engine) Play(ctx context.Context, sound *api.SoundSummary) error {
	if sound == nil {
		return scouterrors.ErrSourceUnavailable
	}

	e.Stop()

	e.mu.Lock()
	e.status = api.StatusLoading
	e.sound = sound
	e.mu.Unlock()
	e.publish(api.Event{Type: api.EventStateChange})

	// Fetch and decode outside any lock; stop/seek from other commands must
	// never stall behind network I/O.
	src, err := e.opener.Open(ctx, sound)
	if err != nil {
		return e.fail(sound, "open", err)
	}

	if err := e.ensureDevice(src.Format.SampleRate); err != nil {
		src.Close()
		return e.fail(sound, "device_init", err)
	}

	var streamer beep.Streamer = src.Streamer
	if src.Format.SampleRate != e.deviceRate {
		streamer = beep.Resample(4, src.Format.SampleRate, e.deviceRate, streamer)
	}

	e.mu.Lock()
	ctrl := &beep.Ctrl{Streamer: streamer}
	vol := &effects.Volume{
		Streamer: ctrl,
		Base:     2,
		Volume:   e.volLevel*2 - 1,
		Silent:   e.volLevel == 0,
	}
	e.src = src
	e.ctrl = ctrl
	e.vol = vol
	e.status = api.StatusPlaying
	e.lastErr = nil
	e.gen++
	gen := e.gen
	e.mu.Unlock()

	e.out.Play(beep.Seq(vol, beep.Callback(func() {
		e.clipEnded(gen)
	})))

	e.publish(api.Event{Type: api.EventClipStarted, Payload: sound})
	return nil
}

// TogglePause flips between Playing and Paused. The source and device stream
// stay attached, so resume continues from the exact paused frame.
func (e *Engine) TogglePause() error {
	e.out.Lock()
	e.mu.Lock()

	if e.ctrl == nil || (e.status != api.StatusPlaying && e.status != api.StatusPaused) {
		e.mu.Unlock()
		e.out.Unlock()
		return scouterrors.ErrStateConflict
	}

	e.ctrl.Paused = !e.ctrl.Paused
	if e.ctrl.Paused {
		e.status = api.StatusPaused
	} else {
		e.status = api.StatusPlaying
	}
	e.mu.Unlock()
	e.out.Unlock()

	e.publish(api.Event{Type: api.EventStateChange})
	return nil
}

// SeekBy repositions the decode cursor relative to the current position.
// The target is clamped to [0, duration]; clamping is never an error.
func (e *Engine) SeekBy(delta time.Duration) error {
	return e.seek(func(streamer beep.StreamSeekCloser, rate beep.SampleRate) int {
		return streamer.Position() + rate.N(delta)
	})
}

// SeekTo repositions the decode cursor to an absolute position, clamped.
func (e *Engine) SeekTo(pos time.Duration) error {
	return e.seek(func(_ beep.StreamSeekCloser, rate beep.SampleRate) int {
		return rate.N(pos)
	})
}

func (e *Engine) seek(target func(beep.StreamSeekCloser, beep.SampleRate) int) error {
	e.out.Lock()
	e.mu.Lock()

	if e.src == nil || (e.status != api.StatusPlaying && e.status != api.StatusPaused) {
		e.mu.Unlock()
		e.out.Unlock()
		return scouterrors.ErrStateConflict
	}

	streamer := e.src.Streamer
	frame := target(streamer, e.src.Format.SampleRate)
	if frame < 0 {
		frame = 0
	}
	if total := streamer.Len(); frame > total {
		frame = total
	}
	err := streamer.Seek(frame)
	sound := e.sound
	e.mu.Unlock()
	e.out.Unlock()

	if err != nil {
		return scouterrors.NewPlaybackError("seek", soundLabel(sound), err)
	}
	e.publish(api.Event{Type: api.EventPositionUpdate})
	return nil
}

// SetVolume sets the output level (0.0 to 1.0). The level survives across
// clips.
func (e *Engine) SetVolume(level float64) error {
	if level < 0 || level > 1 {
		return scouterrors.ErrInvalidVolume
	}

	e.out.Lock()
	e.mu.Lock()
	e.volLevel = level
	if e.vol != nil {
		e.vol.Volume = level*2 - 1
		e.vol.Silent = level == 0
	}
	e.mu.Unlock()
	e.out.Unlock()
	return nil
}

// Stop halts device output and releases the source. It is idempotent, safe
// to call from any state, and guarantees no frames are delivered after it
// returns, so a following Play cannot race a draining stream.
func (e *Engine) Stop() {
	e.out.Clear()

	e.mu.Lock()
	e.gen++
	src := e.src
	e.src = nil
	e.ctrl = nil
	e.vol = nil
	e.sound = nil
	e.lastErr = nil
	changed := e.status != api.StatusIdle
	e.status = api.StatusIdle
	e.mu.Unlock()

	if src != nil {
		src.Close()
	}
	if changed {
		e.publish(api.Event{Type: api.EventStateChange})
	}
}

// State returns a non-blocking snapshot of the current playback state.
func (e *Engine) State() api.PlaybackState {
	e.out.Lock()
	e.mu.RLock()

	state := api.PlaybackState{
		Status: e.status,
		Volume: e.volLevel,
		Err:    e.lastErr,
	}
	if e.sound != nil {
		sound := *e.sound
		state.Sound = &sound
	}
	if e.src != nil {
		state.Position = e.src.Format.SampleRate.D(e.src.Streamer.Position())
		state.Duration = e.src.Duration()
	}

	e.mu.RUnlock()
	e.out.Unlock()
	return state
}

// ensureDevice initializes the output stream once, at the first clip's rate.
// Later clips at other rates are resampled to it. Init takes the device lock
// internally, so it must run outside e.mu to preserve the lock ordering.
func (e *Engine) ensureDevice(rate beep.SampleRate) error {
	e.mu.RLock()
	inited := e.inited
	e.mu.RUnlock()
	if inited {
		return nil
	}

	if err := e.out.Init(rate, rate.N(time.Second/10)); err != nil {
		return scouterrors.NewPlaybackError("speaker_init", "", scouterrors.ErrAudioDevice)
	}

	e.mu.Lock()
	e.inited = true
	e.deviceRate = rate
	e.mu.Unlock()
	return nil
}

// clipEnded runs inside the device callback when a stream drains naturally.
// A stale generation means the stream was superseded by stop or a new play.
func (e *Engine) clipEnded(gen int) {
	e.mu.Lock()
	if gen != e.gen || e.status != api.StatusPlaying {
		e.mu.Unlock()
		return
	}
	src := e.src
	sound := e.sound
	e.src = nil
	e.ctrl = nil
	e.vol = nil
	e.sound = nil
	e.status = api.StatusIdle
	e.mu.Unlock()

	if src != nil {
		src.Close()
	}
	e.publish(api.Event{Type: api.EventClipEnded, Payload: sound})
}

// fail records an Error state for the sound and returns the wrapped cause.
func (e *Engine) fail(sound *api.SoundSummary, op string, err error) error {
	wrapped := scouterrors.NewPlaybackError(op, soundLabel(sound), err)

	e.mu.Lock()
	e.status = api.StatusError
	e.lastErr = wrapped
	e.mu.Unlock()

	e.publish(api.Event{Type: api.EventError, Payload: wrapped})
	return wrapped
}

func (e *Engine) publish(event api.Event) {
	if e.bus != nil {
		e.bus.Publish(event)
	}
}

func soundLabel(sound *api.SoundSummary) string {
	if sound == nil {
		return ""
	}
	if sound.Name != "" {
		return sound.Name
	}
	return strconv.FormatInt(sound.ID, 10)
}
