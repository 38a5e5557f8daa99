package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"panelreel/internal/audio/virtual"
	"panelreel/internal/clientstate"
	"panelreel/internal/config"
	"panelreel/internal/content"
	"panelreel/internal/logging"
	"panelreel/internal/loop"
	"panelreel/internal/media/probe"
	"panelreel/internal/playback"
	"panelreel/internal/remote"
	"panelreel/internal/window"
)

const lockFileName = "panelreel.lock"

type playOptions struct {
	series    string
	volume    string
	page      int
	mode      string
	auto      bool
	dwell     time.Duration
	exitAtEnd bool
	remote    bool
	fresh     bool
}

func newPlayCommand(ctx *commandContext) *cobra.Command {
	var opts playOptions

	cmd := &cobra.Command{
		Use:   "play",
		Short: "Play a volume headlessly",
		Long: "Plays a volume on the wall clock with simulated audio, narrating cues to stdout.\n" +
			"Without --auto, read commands from stdin: next, prev, goto <n>, restart, mute, status, quit.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPlay(cmd, ctx, opts)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&opts.series, "series", "", "Series id (defaults to [content] series)")
	flags.StringVar(&opts.volume, "volume", "", "Volume id (defaults to [content] volume)")
	flags.IntVar(&opts.page, "page", 0, "1-based page to open (defaults to saved progress)")
	flags.StringVar(&opts.mode, "mode", "", "Playback mode override: gated or comic")
	flags.BoolVar(&opts.auto, "auto", false, "Advance to the next page when a page's cues complete")
	flags.DurationVar(&opts.dwell, "dwell", 2*time.Second, "Pause after a completed page before auto-advancing")
	flags.BoolVar(&opts.exitAtEnd, "exit-at-end", false, "Exit after the last page completes (with --auto)")
	flags.BoolVar(&opts.remote, "remote", false, "Start the tooling bridge even if [remote] enabled is false")
	flags.BoolVar(&opts.fresh, "fresh", false, "Ignore saved progress")
	return cmd
}

func runPlay(cmd *cobra.Command, ctx *commandContext, opts playOptions) error {
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return err
	}
	if mode := strings.ToLower(strings.TrimSpace(opts.mode)); mode != "" {
		cfg.Playback.Mode = mode
		if err := cfg.Validate(); err != nil {
			return err
		}
	}
	series, volume, err := ctx.volumeArgs(opts.series, opts.volume)
	if err != nil {
		return err
	}

	runCtx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	lock := flock.New(filepath.Join(cfg.Paths.StateDir, lockFileName))
	locked, err := lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire client state lock: %w", err)
	}
	if !locked {
		return errors.New("another panelreel player is using this state directory")
	}
	defer func() { _ = lock.Unlock() }()

	baseLogger, err := logging.NewFromConfig(cfg)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	runCtx = logging.WithSessionID(runCtx, uuid.NewString())
	logger := logging.WithContext(runCtx, baseLogger)

	store, err := clientstate.Open(cfg)
	if err != nil {
		return fmt.Errorf("open client state: %w", err)
	}
	defer store.Close()

	src, err := content.NewSource(cfg)
	if err != nil {
		return err
	}
	loader := content.NewLoader(src, content.NewCache(), logger)
	pages, err := ctx.pages(runCtx, loader, series, volume)
	if err != nil {
		return err
	}
	start, err := startIndex(runCtx, store, opts, series, volume, len(pages))
	if err != nil {
		return err
	}

	l := loop.New()
	prober := &probe.Prober{}
	device := virtual.New(l, virtual.Options{
		Duration: prober.Duration,
		Missing:  missingLocal,
	})
	pb := playback.New(cfg, l, device, store, logger)

	winOpts := window.OptionsFromContext(pb)
	winOpts.Progress = store
	mgr := window.New(pb, loader, pages, winOpts)

	p := newPlayer(cmd.OutOrStdout(), pb, mgr, cancel)
	p.auto = opts.auto
	p.dwell = opts.dwell
	p.exitAtEnd = opts.exitAtEnd

	if cfg.Content.Watch && cfg.Content.Source == config.SourceDir {
		if err := startWatcher(runCtx, cfg.Content.Dir, loader.Cache(), logger); err != nil {
			logging.WarnWithContext(logger, "content watcher unavailable", "watcher_failed",
				logging.Error(err),
				logging.String(logging.FieldImpact, "edits are picked up only after restart"),
			)
		}
	}

	if cfg.Remote.Enabled || opts.remote {
		bridge := remote.New(pb, mgr, remote.OptionsFromContext(pb))
		if err := bridge.Start(runCtx); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Remote bridge on http://%s/api\n", bridge.Addr())
	}

	if !opts.auto {
		go readCommands(runCtx, cmd.InOrStdin(), l, p)
	}

	logger.Info("playback starting",
		logging.String("volume", series+"/"+volume),
		logging.Int("pages", len(pages)),
		logging.Int(logging.FieldPageIndex, start),
		logging.String("mode", cfg.Playback.Mode),
	)
	l.Post(func() { p.goTo(start) })
	err = l.Run(runCtx)

	// The loop has stopped; teardown runs on this goroutine.
	p.close()
	mgr.Close()
	pb.Close()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// startIndex picks --page, then saved progress, then the first page.
func startIndex(ctx context.Context, store *clientstate.Store, opts playOptions, series, volume string, total int) (int, error) {
	if opts.page > 0 {
		if opts.page > total {
			return 0, fmt.Errorf("page %d out of range (1-%d)", opts.page, total)
		}
		return opts.page - 1, nil
	}
	if opts.fresh {
		return 0, nil
	}
	saved, err := store.LoadProgress(ctx, series, volume)
	if err != nil {
		return 0, fmt.Errorf("load progress: %w", err)
	}
	if saved == nil || saved.PageIndex < 0 || saved.PageIndex >= total {
		return 0, nil
	}
	return saved.PageIndex, nil
}

// missingLocal reports local asset files that do not exist. Remote
// addresses are assumed present.
func missingLocal(addr string) bool {
	if strings.Contains(addr, "://") && !strings.HasPrefix(addr, "file://") {
		return false
	}
	return !probe.Exists(addr)
}

func startWatcher(ctx context.Context, root string, cache *content.Cache, logger *slog.Logger) error {
	w, err := content.NewWatcher(root, cache, content.WatcherOptions{
		Logger: logger,
		OnChange: func(ch content.Change) {
			logger.Info("content changed; reloads on next visit", logging.String("path", ch.Path))
		},
	})
	if err != nil {
		return err
	}
	go func() { _ = w.Run(ctx) }()
	return nil
}

// readCommands posts each input line to the loop until in is exhausted.
func readCommands(ctx context.Context, in io.Reader, sched loop.Scheduler, p *player) {
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return
		}
		line := scanner.Text()
		sched.Post(func() { p.command(line) })
	}
}
