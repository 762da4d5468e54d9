package audio

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/faiface/beep"

	"github.com/soundscout/soundscout/api"
	scouterrors "github.com/soundscout/soundscout/pkg/errors"
)

// makeWAV builds a 16-bit mono PCM WAV payload of the given length.
func makeWAV(t *testing.T, sampleRate, frames int) []byte {
	t.Helper()

	var data bytes.Buffer
	for i := 0; i < frames; i++ {
		binary.Write(&data, binary.LittleEndian, int16(i%256))
	}

	var buf bytes.Buffer
	buf.WriteString("RIFF")
	binary.Write(&buf, binary.LittleEndian, uint32(36+data.Len()))
	buf.WriteString("WAVE")

	buf.WriteString("fmt ")
	binary.Write(&buf, binary.LittleEndian, uint32(16))
	binary.Write(&buf, binary.LittleEndian, uint16(1)) // PCM
	binary.Write(&buf, binary.LittleEndian, uint16(1)) // mono
	binary.Write(&buf, binary.LittleEndian, uint32(sampleRate))
	binary.Write(&buf, binary.LittleEndian, uint32(sampleRate*2))
	binary.Write(&buf, binary.LittleEndian, uint16(2))
	binary.Write(&buf, binary.LittleEndian, uint16(16))

	buf.WriteString("data")
	binary.Write(&buf, binary.LittleEndian, uint32(data.Len()))
	buf.Write(data.Bytes())

	return buf.Bytes()
}

// mockDevice stands in for the speaker so tests run without audio hardware.
type mockDevice struct {
	mu      sync.Mutex
	streams []beep.Streamer
	inits   int
	rate    beep.SampleRate
	initErr error
}

func (d *mockDevice) Init(sr beep.SampleRate, n int) error {
	if d.initErr != nil {
		return d.initErr
	}
	d.inits++
	d.rate = sr
	return nil
}

func (d *mockDevice) Play(s ...beep.Streamer) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.streams = append(d.streams, s...)
}

func (d *mockDevice) Clear() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.streams = nil
}

func (d *mockDevice) Lock()   { d.mu.Lock() }
func (d *mockDevice) Unlock() { d.mu.Unlock() }

// Drain pulls up to n samples the way the device callback would.
func (d *mockDevice) Drain(n int) {
	d.mu.Lock()
	defer d.mu.Unlock()

	buf := make([][2]float64, 512)
	for n > 0 && len(d.streams) > 0 {
		chunk := len(buf)
		if n < chunk {
			chunk = n
		}
		sn, ok := d.streams[0].Stream(buf[:chunk])
		if !ok && sn == 0 {
			d.streams = d.streams[1:]
			continue
		}
		n -= sn
	}
}

func (d *mockDevice) activeStreams() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.streams)
}

// countingOpener opens WAV-backed sources and tracks how many are open.
type countingOpener struct {
	wav   []byte
	err   error
	open  int
	total int
}

type trackedStreamer struct {
	beep.StreamSeekCloser
	opener *countingOpener
	closed bool
}

func (s *trackedStreamer) Close() error {
	if !s.closed {
		s.closed = true
		s.opener.open--
	}
	return s.StreamSeekCloser.Close()
}

func (o *countingOpener) Open(ctx context.Context, sound *api.SoundSummary) (*Source, error) {
	if o.err != nil {
		return nil, o.err
	}
	src, err := Decode(o.wav, "clip.wav")
	if err != nil {
		return nil, err
	}
	o.total++
	o.open++
	src.Streamer = &trackedStreamer{StreamSeekCloser: src.Streamer, opener: o}
	return src, nil
}

const testRate = 8000

func newTestEngine(t *testing.T, frames int) (*Engine, *countingOpener, *mockDevice) {
	t.Helper()
	opener := &countingOpener{wav: makeWAV(t, testRate, frames)}
	dev := &mockDevice{}
	return newEngine(opener, nil, dev), opener, dev
}

func testSound(id int64, name string) *api.SoundSummary {
	return &api.SoundSummary{
		ID:       id,
		Name:     name,
		Duration: 2.0,
		Previews: api.Previews{HQMP3: "https://example.org/p.mp3"},
	}
}

func TestNewEngine(t *testing.T) {
	engine, _, _ := newTestEngine(t, testRate)

	state := engine.State()
	if state.Status != api.StatusIdle {
		t.Errorf("initial status = %v, want idle", state.Status)
	}
	if state.Volume != 0.5 {
		t.Errorf("initial volume = %f, want 0.5", state.Volume)
	}
	if state.Sound != nil {
		t.Error("initial state should carry no sound")
	}
}

func TestPlay(t *testing.T) {
	engine, opener, dev := newTestEngine(t, 2*testRate)

	sound := testSound(1, "rain on tent")
	if err := engine.Play(context.Background(), sound); err != nil {
		t.Fatalf("Play returned error: %v", err)
	}

	state := engine.State()
	if state.Status != api.StatusPlaying {
		t.Errorf("status = %v, want playing", state.Status)
	}
	if state.Sound == nil || state.Sound.ID != 1 {
		t.Error("state should carry the playing sound")
	}
	if state.Position != 0 {
		t.Errorf("position = %v, want 0", state.Position)
	}
	if state.Duration != 2*time.Second {
		t.Errorf("duration = %v, want 2s", state.Duration)
	}
	if opener.open != 1 {
		t.Errorf("open sources = %d, want 1", opener.open)
	}
	if dev.activeStreams() != 1 {
		t.Errorf("device streams = %d, want 1", dev.activeStreams())
	}
	if dev.inits != 1 {
		t.Errorf("device inits = %d, want 1", dev.inits)
	}
}

func TestPlay_SwitchingSoundsReleasesPrevious(t *testing.T) {
	engine, opener, dev := newTestEngine(t, 2*testRate)

	if err := engine.Play(context.Background(), testSound(1, "a")); err != nil {
		t.Fatalf("Play(a): %v", err)
	}
	if err := engine.Play(context.Background(), testSound(2, "b")); err != nil {
		t.Fatalf("Play(b): %v", err)
	}

	if opener.total != 2 {
		t.Errorf("total opens = %d, want 2", opener.total)
	}
	if opener.open != 1 {
		t.Errorf("open sources = %d, want 1 (at-most-one invariant)", opener.open)
	}
	if dev.activeStreams() != 1 {
		t.Errorf("device streams = %d, want 1", dev.activeStreams())
	}
	if dev.inits != 1 {
		t.Errorf("device inits = %d, want 1 (initialized once, later clips resampled)", dev.inits)
	}

	// Draining must not flip the engine idle via a stale end callback.
	dev.Drain(testRate / 2)
	state := engine.State()
	if state.Status != api.StatusPlaying {
		t.Errorf("status = %v, want playing", state.Status)
	}
	if state.Sound.ID != 2 {
		t.Errorf("playing sound ID = %d, want 2", state.Sound.ID)
	}
}

func TestPlay_SourceError(t *testing.T) {
	engine, opener, _ := newTestEngine(t, testRate)
	opener.err = scouterrors.ErrSourceUnavailable

	err := engine.Play(context.Background(), testSound(1, "a"))
	if !errors.Is(err, scouterrors.ErrSourceUnavailable) {
		t.Fatalf("error = %v, want ErrSourceUnavailable", err)
	}

	state := engine.State()
	if state.Status != api.StatusError {
		t.Errorf("status = %v, want error", state.Status)
	}
	if state.Err == nil {
		t.Error("state.Err should carry the cause")
	}

	engine.Stop()
	state = engine.State()
	if state.Status != api.StatusIdle {
		t.Errorf("status after stop = %v, want idle", state.Status)
	}
	if state.Err != nil {
		t.Error("stop should clear the error")
	}
}

func TestTogglePause(t *testing.T) {
	engine, _, _ := newTestEngine(t, 2*testRate)

	if err := engine.TogglePause(); !errors.Is(err, scouterrors.ErrStateConflict) {
		t.Errorf("TogglePause while idle = %v, want ErrStateConflict", err)
	}

	if err := engine.Play(context.Background(), testSound(1, "a")); err != nil {
		t.Fatalf("Play: %v", err)
	}

	if err := engine.TogglePause(); err != nil {
		t.Fatalf("TogglePause: %v", err)
	}
	if got := engine.State().Status; got != api.StatusPaused {
		t.Errorf("status = %v, want paused", got)
	}

	if err := engine.TogglePause(); err != nil {
		t.Fatalf("TogglePause: %v", err)
	}
	if got := engine.State().Status; got != api.StatusPlaying {
		t.Errorf("status = %v, want playing", got)
	}
}

func TestSeekClamping(t *testing.T) {
	engine, _, _ := newTestEngine(t, 2*testRate) // 2 second clip

	if err := engine.SeekBy(time.Second); !errors.Is(err, scouterrors.ErrStateConflict) {
		t.Errorf("SeekBy while idle = %v, want ErrStateConflict", err)
	}

	if err := engine.Play(context.Background(), testSound(1, "a")); err != nil {
		t.Fatalf("Play: %v", err)
	}

	if err := engine.SeekTo(500 * time.Millisecond); err != nil {
		t.Fatalf("SeekTo: %v", err)
	}
	if got := engine.State().Position; got != 500*time.Millisecond {
		t.Errorf("position = %v, want 500ms", got)
	}

	// Seeking far backwards clamps to zero, not an error.
	if err := engine.SeekBy(-20 * time.Second); err != nil {
		t.Fatalf("SeekBy(-20s): %v", err)
	}
	if got := engine.State().Position; got != 0 {
		t.Errorf("position = %v, want 0", got)
	}

	// Seeking past the end clamps to the duration.
	if err := engine.SeekBy(100 * time.Second); err != nil {
		t.Fatalf("SeekBy(+100s): %v", err)
	}
	state := engine.State()
	if state.Position != state.Duration {
		t.Errorf("position = %v, want duration %v", state.Position, state.Duration)
	}
}

func TestStop(t *testing.T) {
	engine, opener, dev := newTestEngine(t, 2*testRate)

	// Idempotent from idle.
	engine.Stop()
	engine.Stop()

	if err := engine.Play(context.Background(), testSound(1, "a")); err != nil {
		t.Fatalf("Play: %v", err)
	}
	engine.Stop()

	state := engine.State()
	if state.Status != api.StatusIdle {
		t.Errorf("status = %v, want idle", state.Status)
	}
	if state.Sound != nil {
		t.Error("stopped state should carry no sound")
	}
	if opener.open != 0 {
		t.Errorf("open sources = %d, want 0", opener.open)
	}
	if dev.activeStreams() != 0 {
		t.Errorf("device streams = %d, want 0", dev.activeStreams())
	}

	engine.Stop() // still idempotent
}

func TestClipEndsNaturally(t *testing.T) {
	engine, opener, dev := newTestEngine(t, testRate/4) // short clip

	if err := engine.Play(context.Background(), testSound(1, "a")); err != nil {
		t.Fatalf("Play: %v", err)
	}

	dev.Drain(testRate) // more than the clip holds

	state := engine.State()
	if state.Status != api.StatusIdle {
		t.Errorf("status = %v, want idle after natural end", state.Status)
	}
	if opener.open != 0 {
		t.Errorf("open sources = %d, want 0 after natural end", opener.open)
	}
}

func TestStateIsACopy(t *testing.T) {
	engine, _, _ := newTestEngine(t, testRate)

	if err := engine.Play(context.Background(), testSound(1, "original")); err != nil {
		t.Fatalf("Play: %v", err)
	}

	state := engine.State()
	state.Sound.Name = "mutated"

	if engine.State().Sound.Name != "original" {
		t.Error("State should return a copy, not the engine's own sound")
	}
}

func TestSetVolume(t *testing.T) {
	engine, _, _ := newTestEngine(t, testRate)

	tests := []struct {
		name    string
		level   float64
		wantErr bool
	}{
		{"zero volume", 0.0, false},
		{"half volume", 0.5, false},
		{"full volume", 1.0, false},
		{"below zero", -0.1, true},
		{"above one", 1.1, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := engine.SetVolume(tt.level)
			if (err != nil) != tt.wantErr {
				t.Errorf("SetVolume(%f) error = %v, wantErr %v", tt.level, err, tt.wantErr)
			}
		})
	}

	if err := engine.SetVolume(0.8); err != nil {
		t.Fatalf("SetVolume: %v", err)
	}
	if got := engine.State().Volume; got != 0.8 {
		t.Errorf("volume = %f, want 0.8", got)
	}
}
