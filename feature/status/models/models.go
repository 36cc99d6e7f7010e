package models

import (
	"time"

	"record-sync/core/reconcile"
)

// AssociationSummary describes one association of a mapping.
type AssociationSummary struct {
	Name         string   `json:"name"`
	Target       string   `json:"target"`
	Kind         string   `json:"kind"`
	LookupFields []string `json:"lookup_fields"`
	ForeignKey   string   `json:"foreign_key,omitempty"`
}

// MappingSummary is the list view of a mapping.
type MappingSummary struct {
	Name       string `json:"name"`
	LocalType  string `json:"local_type"`
	RemoteType string `json:"remote_type"`
	Strategy   string `json:"strategy"`
	// WindowEnd is the stored upper bound of the last completed cycle.
	// It is null before the first cycle.
	WindowEnd *time.Time `json:"window_end"`
}

// MappingDetail extends MappingSummary with the field layout and the
// report of the last cycle triggered through the API.
type MappingDetail struct {
	MappingSummary
	LookupColumn string                 `json:"lookup_column"`
	Fields       map[string]string      `json:"fields"`
	Associations []AssociationSummary   `json:"associations"`
	LastReport   *reconcile.CycleReport `json:"last_report,omitempty"`
}

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error string `json:"error"`
}
