package config

const (
	defaultStartFrom               = 1
	defaultArtifactsFolder         = "artifacts"
	defaultDatabasePath            = "musicosa.db"
	defaultLogFormat               = "console"
	defaultLogLevel                = "info"
	defaultTieBreak                = TieBreakRandom
	defaultSequenceScope           = SequenceScopeGlobal
	defaultFormsFolder             = "forms"
	defaultEntriesFile             = "entries.csv"
	defaultTemplatesAPIURL         = "http://localhost:3000/templates"
	defaultPresentationsAPIURL     = "http://localhost:3000/presentations"
	defaultGenRetryAttempts        = 3
	defaultScreenshotBinary        = "chromium"
	defaultDownloaderBinary        = "yt-dlp"
	defaultCookiesBrowser          = "firefox"
	defaultVideoBitsFolder         = "video_bits"
	defaultFinalVideoName          = "final"
	defaultPresentationDuration    = 5
	defaultTransitionDuration      = 1
	defaultTransitionType          = "fade"
	defaultDatabasePathEnvironment = "MUSICOSA_DB_PATH"
)

// Tie-break policies accepted in [ranking] tie_break.
const (
	TieBreakRandom         = "random"
	TieBreakAuthorAvgGiven = "author_avg_given"
)

// Sequence scopes accepted in [ranking] sequence_scope.
const (
	SequenceScopeAward  = "award"
	SequenceScopeGlobal = "global"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		StartFrom:       defaultStartFrom,
		ArtifactsFolder: defaultArtifactsFolder,
		DatabasePath:    defaultDatabasePath,
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
		Ranking: Ranking{
			TieBreak:      defaultTieBreak,
			SequenceScope: defaultSequenceScope,
		},
		Stage1: StageOne{
			FormsFolder: defaultFormsFolder,
			EntriesFile: defaultEntriesFile,
		},
		Stage4: StageFour{
			TemplatesAPIURL:     defaultTemplatesAPIURL,
			PresentationsAPIURL: defaultPresentationsAPIURL,
			GenRetryAttempts:    defaultGenRetryAttempts,
			ScreenshotBinary:    defaultScreenshotBinary,
		},
		Stage5: StageFive{
			CookiesBrowser:   defaultCookiesBrowser,
			DownloaderBinary: defaultDownloaderBinary,
		},
		Stage6: StageSix{
			VideoBitsFolder:      defaultVideoBitsFolder,
			FinalVideoName:       defaultFinalVideoName,
			PresentationDuration: defaultPresentationDuration,
			TransitionDuration:   defaultTransitionDuration,
			TransitionType:       defaultTransitionType,
		},
	}
}
