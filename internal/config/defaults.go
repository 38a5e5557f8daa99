package config

// Playback modes.
const (
	ModeGated = "gated"
	ModeComic = "comic"
)

// Content sources.
const (
	SourceDir  = "dir"
	SourceHTTP = "http"
)

const (
	defaultStateDir              = "~/.local/share/panelreel"
	defaultLogDir                = "~/.local/share/panelreel/logs"
	defaultContentDir            = "~/comics"
	defaultContentSource         = SourceDir
	defaultRequestTimeout        = 10
	defaultAssetBaseURL          = "/assets"
	defaultPageTemplate          = "{base}/{series}/{volume}/{chapter}/{page}/{type}/{file}"
	defaultVolumeTemplate        = "{base}/{series}/{volume}/shared/{type}/{file}"
	defaultSeriesTemplate        = "{base}/{series}/shared/{type}/{file}"
	defaultGlobalTemplate        = "{base}/global/{type}/{file}"
	defaultAudioExtension        = "mp3"
	defaultPlaybackMode          = ModeGated
	defaultInterCuePauseMS       = 1500
	defaultAudioSafetyMarginMS   = 1000
	defaultAudioSafetyFallbackMS = 5000
	defaultTextBaseMS            = 800
	defaultTextPerWordMS         = 250
	defaultTextMinMS             = 1500
	defaultSyncStopRecheckMS     = 250
	defaultFadeOutMS             = 1000
	defaultFadeInMS              = 1500
	defaultFadeTickMS            = 50
	defaultBackgroundVolume      = 0.5
	defaultAmbientVolume         = 0.35
	defaultWindowRadius          = 1
	defaultExitTransitionMS      = 600
	defaultRemoteBind            = "127.0.0.1:7390"
	defaultLogFormat             = "console"
	defaultLogLevel              = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			StateDir: defaultStateDir,
			LogDir:   defaultLogDir,
		},
		Content: Content{
			Source:         defaultContentSource,
			Dir:            defaultContentDir,
			RequestTimeout: defaultRequestTimeout,
		},
		Assets: Assets{
			BaseURL:        defaultAssetBaseURL,
			PageTemplate:   defaultPageTemplate,
			VolumeTemplate: defaultVolumeTemplate,
			SeriesTemplate: defaultSeriesTemplate,
			GlobalTemplate: defaultGlobalTemplate,
			AudioExtension: defaultAudioExtension,
		},
		Playback: Playback{
			Mode:                  defaultPlaybackMode,
			InterCuePauseMS:       defaultInterCuePauseMS,
			AudioSafetyMarginMS:   defaultAudioSafetyMarginMS,
			AudioSafetyFallbackMS: defaultAudioSafetyFallbackMS,
			TextBaseMS:            defaultTextBaseMS,
			TextPerWordMS:         defaultTextPerWordMS,
			TextMinMS:             defaultTextMinMS,
			SyncStopRecheckMS:     defaultSyncStopRecheckMS,
			ImplicitAudio:         true,
		},
		Audio: Audio{
			FadeOutMS:        defaultFadeOutMS,
			FadeInMS:         defaultFadeInMS,
			TickMS:           defaultFadeTickMS,
			BackgroundVolume: defaultBackgroundVolume,
			AmbientVolume:    defaultAmbientVolume,
		},
		Window: Window{
			Radius:           defaultWindowRadius,
			ExitTransitionMS: defaultExitTransitionMS,
		},
		Remote: Remote{
			Bind:       defaultRemoteBind,
			EnableCORS: true,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
