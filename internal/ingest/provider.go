// Package ingest holds what the import providers share.
package ingest

// Result holds the outcome of an import.
type Result struct {
	SessionsReceived int `json:"sessions_received"`
	SessionsImported int `json:"sessions_imported"`
	SessionsSkipped  int `json:"sessions_skipped"`

	ExercisesReceived int `json:"exercises_received"`
	SetsReceived      int `json:"sets_received"`
	WarmupSets        int `json:"warmup_sets"`

	Message string `json:"message,omitempty"`
}
