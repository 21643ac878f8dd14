package commands

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/smoogipooo/osu--Background-Overlay/internal/api"
	"github.com/smoogipooo/osu--Background-Overlay/internal/capture"
	"github.com/smoogipooo/osu--Background-Overlay/internal/coordinator"
	"github.com/smoogipooo/osu--Background-Overlay/internal/input"
	"github.com/smoogipooo/osu--Background-Overlay/internal/logger"
	"github.com/smoogipooo/osu--Background-Overlay/internal/skin"
	"github.com/smoogipooo/osu--Background-Overlay/internal/skinfile"
	"github.com/smoogipooo/osu--Background-Overlay/internal/wallpaper"
	"github.com/smoogipooo/osu--Background-Overlay/internal/window"
	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Keep the osu! menu background in sync with the wallpaper",
	Long: `Watch the desktop wallpaper and the osu! window and rewrite the active skin's
menu background whenever either changes.

On Windows the wallpaper is read from the user's desktop settings. Elsewhere
set wallpaper_path in the config file.`,
	Example: `  # Run with the default configuration
  bgoverlay run

  # Run with debug logging and the status API on port 7270
  bgoverlay run --log-level debug --status-port 7270

  # Exit straight away instead of waiting for Enter on a fatal error
  bgoverlay run --no-prompt`,
	RunE: runRun,
}

var noPrompt bool

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().BoolVar(&noPrompt, "no-prompt", false, "do not wait for Enter before exiting on a fatal error")
}

func runRun(cmd *cobra.Command, args []string) error {
	fmt.Println("🖼  osu! Background Overlay")
	fmt.Println("==========================")

	configMgr, err := loadConfig()
	if err != nil {
		return err
	}
	cfg := configMgr.Get()
	log := logger.WithComponent("run")
	log.Info().Str("path", configMgr.GetConfigPath()).Str("log_level", cfg.LogLevel).Msg("Configuration loaded")

	sink := logger.NewSink("bgoverlay")

	sink.Log("Determining your wallpaper directory...")
	wallpaperPath, err := wallpaper.Locate(cfg.WallpaperPath)
	if err != nil {
		sink.Log("Failed to determine the operating system wallpaper directory.")
		waitForEnter()
		return err
	}
	log.Info().Str("wallpaper", wallpaperPath).Msg("Wallpaper located")

	watcher, err := wallpaper.NewWatcher(wallpaperPath)
	if err != nil {
		return err
	}
	defer watcher.Close()

	userName, err := skin.CurrentUser()
	if err != nil {
		return err
	}

	backend, err := window.NewBackend()
	if err != nil {
		return fmt.Errorf("failed to initialize window backend: %w", err)
	}
	defer backend.Close()

	capturer, err := capture.New()
	if err != nil {
		return fmt.Errorf("failed to initialize screen capture: %w", err)
	}
	defer capturer.Close()

	keyboard, err := input.NewKeyboard()
	if err != nil {
		return fmt.Errorf("failed to initialize input injection: %w", err)
	}
	defer keyboard.Close()

	tracker := window.NewTracker(window.NewProcessFinder(), backend, sink, window.TrackerOptions{
		Names:         cfg.ProcessNames,
		PollInterval:  cfg.PollInterval,
		SearchBackoff: cfg.SearchBackoff,
	})

	coord := coordinator.New(
		tracker,
		skin.NewResolver(cfg.SkinsDir),
		skinfile.NewGuard(cfg.BackgroundName, cfg.BackupPrefix, cfg.JPEGQuality),
		capturer,
		input.NewInjector(keyboard, cfg.FocusSettle, cfg.KeySettle),
		sink,
		coordinator.Options{UserName: userName, Debounce: cfg.Debounce},
	)
	coord.SetGate(watcher)

	// Window moves run synchronously on the polling goroutine
	tracker.OnChange(func(ctx context.Context) {
		coord.Run(ctx, coordinator.SourceGeometry)
	})

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var wg sync.WaitGroup
	start := func(name string, fn func() error) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := fn(); err != nil && !errors.Is(err, context.Canceled) {
				log.Error().Err(err).Str("task", name).Msg("Task stopped")
			}
		}()
	}

	start("dispatch", func() error { return coord.Dispatch(ctx) })
	start("watcher", func() error {
		return watcher.Run(ctx, func() { coord.Request(coordinator.SourceWallpaper) })
	})
	if cfg.StatusPort > 0 {
		server := api.NewServer(coord, tracker, sink, configMgr)
		start("api", func() error { return server.Serve(ctx, cfg.StatusPort) })
	}

	log.Info().
		Str("user", userName).
		Str("window_backend", backend.Name()).
		Str("capture", capturer.Name()).
		Msg("✅ Running, press Ctrl+C to stop")

	err = tracker.Run(ctx)
	wg.Wait()

	log.Info().Msg("Shutting down gracefully...")
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// waitForEnter holds the console open so the user can read the error
func waitForEnter() {
	if noPrompt {
		return
	}
	fmt.Print("Press Enter to exit.")
	bufio.NewReader(os.Stdin).ReadString('\n')
}
