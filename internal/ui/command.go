package ui

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/soundscout/soundscout/api"
	scouterrors "github.com/soundscout/soundscout/pkg/errors"
)

// ParseCommand turns one line of browse-mode input into a Command. seekStep
// is the stride for the relative seek keys.
//
//	y N / p N   play result N        y r   play a random result
//	i N         inspect result N     d N   download result N
//	n / b       next / previous page
//	g N         go to page N         g r   go to a random page
//	s           stop                 p     pause toggle
//	0-9         seek to that tenth of the clip
//	+ / -       seek forward / back by one step
//	v N         volume N percent
//	c           clear screen         r     restart search
//	q           quit
func ParseCommand(line string, seekStep time.Duration) (api.Command, error) {
	fields := strings.Fields(strings.ToLower(line))
	if len(fields) == 0 {
		return api.Command{}, scouterrors.ErrUnknownCommand
	}

	verb, args := fields[0], fields[1:]

	switch verb {
	case "y":
		return parseIndexed(api.CmdPlay, args, true)

	case "p":
		if len(args) == 0 {
			return api.Command{Kind: api.CmdTogglePause}, nil
		}
		return parseIndexed(api.CmdPlay, args, false)

	case "i":
		return parseIndexed(api.CmdInspect, args, false)

	case "d":
		return parseIndexed(api.CmdDownload, args, false)

	case "n", "next":
		return bare(api.CmdPageForward, args)

	case "b", "prev":
		return bare(api.CmdPageBackward, args)

	case "g", "go":
		if len(args) != 1 {
			return api.Command{}, fmt.Errorf("%w: g needs a page number or r", scouterrors.ErrUnknownCommand)
		}
		if args[0] == "r" {
			return api.Command{Kind: api.CmdGoToPage, Random: true}, nil
		}
		page, err := strconv.Atoi(args[0])
		if err != nil {
			return api.Command{}, fmt.Errorf("%w: bad page %q", scouterrors.ErrUnknownCommand, args[0])
		}
		return api.Command{Kind: api.CmdGoToPage, Page: page}, nil

	case "s", "stop":
		return bare(api.CmdStop, args)

	case "+":
		return bare(api.CmdSeekRelative, args, withDelta(seekStep))

	case "-":
		return bare(api.CmdSeekRelative, args, withDelta(-seekStep))

	case "v", "vol":
		if len(args) != 1 {
			return api.Command{}, fmt.Errorf("%w: v needs a percentage", scouterrors.ErrUnknownCommand)
		}
		pct, err := strconv.Atoi(args[0])
		if err != nil || pct < 0 || pct > 100 {
			return api.Command{}, fmt.Errorf("%w: bad volume %q", scouterrors.ErrUnknownCommand, args[0])
		}
		return api.Command{Kind: api.CmdVolume, Level: float64(pct) / 100}, nil

	case "c", "clear":
		return bare(api.CmdClearScreen, args)

	case "r", "restart":
		return bare(api.CmdRestart, args)

	case "q", "quit", "exit":
		return bare(api.CmdQuit, args)
	}

	// Single digit: jump to that tenth of the playing clip.
	if len(args) == 0 && len(verb) == 1 && verb[0] >= '0' && verb[0] <= '9' {
		return api.Command{Kind: api.CmdSeekTo, Tenths: int(verb[0] - '0')}, nil
	}

	return api.Command{}, fmt.Errorf("%w: %q", scouterrors.ErrUnknownCommand, verb)
}

// parseIndexed handles verbs that take a result number, optionally accepting
// r for a random pick.
func parseIndexed(kind api.CommandKind, args []string, allowRandom bool) (api.Command, error) {
	if len(args) != 1 {
		return api.Command{}, fmt.Errorf("%w: missing result number", scouterrors.ErrUnknownCommand)
	}
	if allowRandom && args[0] == "r" {
		return api.Command{Kind: kind, Random: true}, nil
	}
	index, err := strconv.Atoi(args[0])
	if err != nil {
		return api.Command{}, fmt.Errorf("%w: bad result number %q", scouterrors.ErrUnknownCommand, args[0])
	}
	return api.Command{Kind: kind, Index: index}, nil
}

func bare(kind api.CommandKind, args []string, opts ...func(*api.Command)) (api.Command, error) {
	if len(args) != 0 {
		return api.Command{}, fmt.Errorf("%w: unexpected arguments", scouterrors.ErrUnknownCommand)
	}
	cmd := api.Command{Kind: kind}
	for _, opt := range opts {
		opt(&cmd)
	}
	return cmd, nil
}

func withDelta(d time.Duration) func(*api.Command) {
	return func(cmd *api.Command) { cmd.Delta = d }
}
