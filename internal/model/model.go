package model

import "time"

// Occurrence represents a single concrete instance of a calendar event
// (after recurrence expansion and timezone normalization). It is the
// payload carried by every event placed on a view.
type Occurrence struct {
	SourceID string `json:"source_id"` // calendar source ID
	UID      string `json:"uid"`       // iCalendar UID

	// InstanceKey uniquely identifies a single occurrence of a recurring
	// event, derived from the local start time.
	InstanceKey string `json:"instance_key"`

	Summary     string `json:"summary"`
	Description string `json:"description,omitempty"`
	Location    string `json:"location,omitempty"`

	AllDay bool `json:"all_day"`

	// Start / End are in the configured display timezone.
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}
