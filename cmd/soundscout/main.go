package main

import (
	"fmt"
	"os"
	"time"

	"github.com/soundscout/soundscout/internal/audio"
	"github.com/soundscout/soundscout/internal/config"
	"github.com/soundscout/soundscout/internal/download"
	"github.com/soundscout/soundscout/internal/freesound"
	"github.com/soundscout/soundscout/internal/search"
	"github.com/soundscout/soundscout/internal/session"
	"github.com/soundscout/soundscout/internal/ui"
	"github.com/soundscout/soundscout/pkg/events"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// Load configuration
	configPath := config.GetConfigPath()
	cfg, err := config.LoadOrCreate(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	apiKey := config.LoadAPIKey()
	if apiKey == "" {
		return fmt.Errorf("no API key: set FREESOUND_API_KEY in the environment or a .env file\n" +
			"(get a key at https://freesound.org/apiv2/apply/)")
	}

	// Wire the search and playback stack
	client := freesound.NewClient(apiKey, freesound.WithPageSize(cfg.PageSize))
	bus := events.NewBus()
	defer bus.Close()

	engine := audio.NewEngine(audio.NewPreviewOpener(client), bus)
	defer engine.Stop()

	if err := engine.SetVolume(cfg.DefaultVolume); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: default volume %.2f out of range, keeping 0.5\n", cfg.DefaultVolume)
	}

	saver := download.NewSaver(client, cfg.DownloadDir)
	controller := session.NewController(search.NewSession(client), engine, saver)

	// Run UI
	seekStep := time.Duration(cfg.SeekStep) * time.Second
	if seekStep <= 0 {
		seekStep = 5 * time.Second
	}
	if err := ui.Run(controller, bus, seekStep, cfg.DefaultQuery); err != nil {
		return fmt.Errorf("run ui: %w", err)
	}

	return nil
}
