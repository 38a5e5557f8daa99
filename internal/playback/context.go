// Package playback holds the process-scoped collaborators every playback
// component shares.
//
// A Context is constructed once per session with New and torn down with
// Close. Components receive it explicitly; nothing in the playback core
// reaches for package-level state.
package playback

import (
	"log/slog"

	"panelreel/internal/audio"
	"panelreel/internal/config"
	"panelreel/internal/events"
	"panelreel/internal/logging"
	"panelreel/internal/loop"
	"panelreel/internal/media"
	"panelreel/internal/scene"
)

// Context bundles config, scheduler, notification bus, audio manager, media
// resolver and logger.
type Context struct {
	Config   *config.Config
	Sched    loop.Scheduler
	Bus      *events.Bus
	Audio    *audio.Manager
	Resolver *media.Resolver
	Logger   *slog.Logger
	Timing   scene.Timing
}

// New wires a context. store may be nil, in which case the mute flag is not
// persisted.
func New(cfg *config.Config, sched loop.Scheduler, device audio.Device, store audio.MuteStore, logger *slog.Logger) *Context {
	if cfg == nil {
		def := config.Default()
		cfg = &def
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	pb := cfg.Playback
	return &Context{
		Config: cfg,
		Sched:  sched,
		Bus:    events.New(),
		Audio: audio.NewManager(sched, device, audio.Options{
			FadeOut: config.MS(cfg.Audio.FadeOutMS),
			FadeIn:  config.MS(cfg.Audio.FadeInMS),
			Tick:    config.MS(cfg.Audio.TickMS),
			Store:   store,
			Logger:  logger,
		}),
		Resolver: media.NewResolver(cfg.Assets),
		Logger:   logger,
		Timing: scene.Timing{
			Base:    config.MS(pb.TextBaseMS),
			PerWord: config.MS(pb.TextPerWordMS),
			Min:     config.MS(pb.TextMinMS),
		},
	}
}

// Close releases all audio and drops every bus subscriber. It must run on
// the loop.
func (c *Context) Close() {
	c.Audio.Close()
	c.Bus.Close()
}
