package logging

const (
	// FieldComponent is the standardized structured logging key for component names.
	FieldComponent = "component"
	// FieldPage is the standardized key for page keys (series/volume/chapter/page).
	FieldPage = "page"
	// FieldPageIndex is the standardized key for a page's position in the reading order.
	FieldPageIndex = "page_index"
	// FieldCueID is the standardized key for cue identifiers.
	FieldCueID = "cue_id"
	// FieldCueKind is the standardized key for cue kinds.
	FieldCueKind = "cue_kind"
	// FieldPanel is the standardized key for panel selectors.
	FieldPanel = "panel"
	// FieldChannel is the standardized key for audio channel names.
	FieldChannel = "channel"
	// FieldGeneration is the standardized key for sequencer generations and page epochs.
	FieldGeneration = "generation"
	// FieldAsset is the standardized key for resolved asset addresses.
	FieldAsset = "asset"
	// FieldSessionID is the standardized key for playback session identifiers.
	FieldSessionID = "session_id"
	// FieldEventType classifies a log line for filtering.
	FieldEventType = "event_type"
	// FieldErrorHint carries the suggested next step for a warning or error.
	FieldErrorHint = "error_hint"
	// FieldImpact is the standardized key for user-facing consequence of a warning.
	FieldImpact = "impact"
	// FieldAlert flags warnings or anomalies that should stand out in structured logs.
	FieldAlert = "alert"
)
