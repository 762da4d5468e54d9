// Package session implements the top-level command state machine.
package session

import (
	"context"
	"fmt"
	"time"

	"github.com/soundscout/soundscout/api"
	"github.com/soundscout/soundscout/internal/download"
	"github.com/soundscout/soundscout/internal/search"
	scouterrors "github.com/soundscout/soundscout/pkg/errors"
)

// Downloader saves a sound's preview to disk.
type Downloader interface {
	Save(ctx context.Context, sound *api.SoundSummary) (download.Result, error)
}

// Controller consumes one Command at a time, drives the search session and
// the playback engine, and hands back a snapshot for rendering. A failed
// transition never leaves partial state behind: selection is committed only
// after the operation it serves has succeeded.
type Controller struct {
	session    *search.Session
	player     api.Player
	downloader Downloader
}

// NewController wires the command dispatcher.
func NewController(session *search.Session, player api.Player, downloader Downloader) *Controller {
	return &Controller{
		session:    session,
		player:     player,
		downloader: downloader,
	}
}

// Session exposes the underlying search session.
func (c *Controller) Session() *search.Session {
	return c.session
}

// PlayerState reads the engine state without dispatching a command.
func (c *Controller) PlayerState() api.PlaybackState {
	return c.player.State()
}

// Dispatch drives one step of the state machine.
func (c *Controller) Dispatch(ctx context.Context, cmd api.Command) (api.Snapshot, error) {
	switch cmd.Kind {
	case api.CmdSearch:
		page, err := c.session.Search(ctx, cmd.Query)
		if err != nil {
			return c.snapshot(), err
		}
		return c.message("Found %d results for %q", page.TotalResults, page.Query), nil

	case api.CmdPlay:
		index, sound, err := c.session.Resolve(cmd.Index, cmd.Random)
		if err != nil {
			return c.snapshot(), err
		}
		if err := c.player.Play(ctx, sound); err != nil {
			return c.snapshot(), err
		}
		if err := c.session.Select(index); err != nil {
			return c.snapshot(), err
		}
		return c.message("Playing #%d: %s", index, sound.Name), nil

	case api.CmdInspect:
		index, sound, err := c.session.Resolve(cmd.Index, false)
		if err != nil {
			return c.snapshot(), err
		}
		if err := c.session.Select(index); err != nil {
			return c.snapshot(), err
		}
		snap := c.snapshot()
		snap.Detail = sound
		return snap, nil

	case api.CmdDownload:
		index, sound, err := c.session.Resolve(cmd.Index, false)
		if err != nil {
			return c.snapshot(), err
		}
		result, err := c.downloader.Save(ctx, sound)
		if err != nil {
			return c.snapshot(), err
		}
		if err := c.session.Select(index); err != nil {
			return c.snapshot(), err
		}
		snap := c.snapshot()
		snap.Message = saveReport(result)
		snap.SavedPath = result.Path
		return snap, nil

	case api.CmdPageForward:
		if _, err := c.session.PageForward(ctx); err != nil {
			return c.snapshot(), err
		}
		return c.snapshot(), nil

	case api.CmdPageBackward:
		if _, err := c.session.PageBackward(ctx); err != nil {
			return c.snapshot(), err
		}
		return c.snapshot(), nil

	case api.CmdGoToPage:
		var err error
		if cmd.Random {
			_, err = c.session.GoToRandomPage(ctx)
		} else {
			_, err = c.session.GoToPage(ctx, cmd.Page)
		}
		if err != nil {
			return c.snapshot(), err
		}
		return c.snapshot(), nil

	case api.CmdRestart:
		// Playback keeps running: browsing and listening are independent.
		c.session.Reset()
		return c.message("Restarting search"), nil

	case api.CmdQuit:
		if c.player.State().Status != api.StatusIdle {
			c.player.Stop()
		}
		snap := c.snapshot()
		snap.Quit = true
		return snap, nil

	case api.CmdClearScreen:
		snap := c.snapshot()
		snap.ClearScreen = true
		return snap, nil

	case api.CmdSeekRelative:
		if err := c.player.SeekBy(cmd.Delta); err != nil {
			return c.snapshot(), err
		}
		return c.snapshot(), nil

	case api.CmdSeekTo:
		state := c.player.State()
		if state.Duration == 0 {
			return c.snapshot(), scouterrors.ErrStateConflict
		}
		pos := time.Duration(cmd.Tenths) * state.Duration / 10
		if err := c.player.SeekTo(pos); err != nil {
			return c.snapshot(), err
		}
		return c.snapshot(), nil

	case api.CmdTogglePause:
		if err := c.player.TogglePause(); err != nil {
			return c.snapshot(), err
		}
		return c.snapshot(), nil

	case api.CmdStop:
		c.player.Stop()
		return c.message("Playback stopped"), nil

	case api.CmdVolume:
		if err := c.player.SetVolume(cmd.Level); err != nil {
			return c.snapshot(), err
		}
		return c.message("Volume %.0f%%", cmd.Level*100), nil
	}

	return c.snapshot(), fmt.Errorf("%w: kind %d", scouterrors.ErrUnknownCommand, cmd.Kind)
}

func (c *Controller) snapshot() api.Snapshot {
	return api.Snapshot{
		Page:     c.session.Page(),
		Playback: c.player.State(),
	}
}

func (c *Controller) message(format string, args ...interface{}) api.Snapshot {
	snap := c.snapshot()
	snap.Message = fmt.Sprintf(format, args...)
	return snap
}

// saveReport describes a completed download, including any embedded tags the
// saved file carried.
func saveReport(result download.Result) string {
	if result.Title != "" && result.Artist != "" {
		return fmt.Sprintf("Saved %q (%d bytes) — %s by %s", result.Path, result.Bytes, result.Title, result.Artist)
	}
	if result.Title != "" {
		return fmt.Sprintf("Saved %q (%d bytes) — %s", result.Path, result.Bytes, result.Title)
	}
	return fmt.Sprintf("Saved %q (%d bytes)", result.Path, result.Bytes)
}
