package models

import "time"

// Pipeline event types
const (
	EventRunCompleted = "RUN_COMPLETED"
	EventRunFailed    = "RUN_FAILED"
)

// PipelineEvent represents a Kafka event describing the outcome of a run
type PipelineEvent struct {
	EventType string      `json:"event_type"`
	RunID     string      `json:"run_id"`
	RunDate   string      `json:"run_date"`
	Summary   *RunSummary `json:"summary,omitempty"`
	Error     string      `json:"error,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

// RunSummary counts what a single run changed
type RunSummary struct {
	RunID             string `json:"run_id"`
	RunDate           string `json:"run_date"`
	SymbolsFetched    int    `json:"symbols_fetched"`
	StagedPrices      int    `json:"staged_prices"`
	StagedProfiles    int    `json:"staged_profiles"`
	StagedDates       int    `json:"staged_dates"`
	VersionsAdded     int    `json:"versions_added"`
	VersionsClosed    int    `json:"versions_closed"`
	DatesLoaded       int    `json:"dates_loaded"`
	FactsLoaded       int    `json:"facts_loaded"`
	AttributesWritten int    `json:"attributes_written"`
}
