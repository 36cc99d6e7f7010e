package reconcile

import (
	"encoding/json"
	"fmt"
	"time"
)

// Side identifies one of the two stores of a pairing.
type Side int

const (
	// SideLocal is the relational store owned by this service.
	SideLocal Side = iota + 1
	// SideRemote is the CRM-style API.
	SideRemote
)

// String returns the side name used in logs and reports.
func (s Side) String() string {
	switch s {
	case SideLocal:
		return "local"
	case SideRemote:
		return "remote"
	default:
		return fmt.Sprintf("side(%d)", int(s))
	}
}

// Valid reports whether s is one of the two configured sides.
func (s Side) Valid() bool {
	return s == SideLocal || s == SideRemote
}

// MarshalJSON encodes the side by name.
func (s Side) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// Attributes is a set of field values keyed by field name.
// Depending on context the names are canonical (local schema) or remote.
type Attributes map[string]any

// Clone returns a shallow copy of the attribute set.
func (a Attributes) Clone() Attributes {
	out := make(Attributes, len(a))
	for k, v := range a {
		out[k] = v
	}
	return out
}

// ChangeKey groups the observations of one paired record during a cycle.
// It is never persisted.
type ChangeKey struct {
	// RemoteID is the identity of the record in the remote store.
	RemoteID string `json:"remote_id"`

	// RemoteType is the remote record type name (e.g. "Contact").
	RemoteType string `json:"remote_type"`
}

func (k ChangeKey) String() string {
	return k.RemoteType + "/" + k.RemoteID
}

// Window is the time range a polling cycle scans for changes.
// A zero After means the scan has no lower bound.
type Window struct {
	After  time.Time `json:"after"`
	Before time.Time `json:"before"`
}

// Query is passed to RecordType.All. Adapters apply it server-side.
type Query struct {
	// After and Before bound the last-update timestamp: After < t <= Before.
	// Zero values disable the bound.
	After  time.Time
	Before time.Time

	// Conditions are filter expressions in the adapter's native dialect
	// (SOQL fragments for the remote side, SQL fragments for the local side).
	Conditions []string

	// Match holds equality filters on native field names.
	Match map[string]string
}

// CycleReport summarizes one reconciliation cycle for a mapping.
type CycleReport struct {
	// Mapping is the name of the reconciled mapping.
	Mapping string `json:"mapping"`

	// Window is the scanned time range.
	Window Window `json:"window"`

	// Collected counts distinct change keys observed in the window.
	Collected int `json:"collected"`

	// Unpaired counts local records without a remote identity.
	Unpaired int `json:"unpaired"`

	// Created counts counterparts created by the initializer (including associated records).
	Created int `json:"created"`

	// Updated counts records patched by the synchronizer.
	Updated int `json:"updated"`

	// Removed counts local records removed by the cleaner.
	Removed int `json:"removed"`

	// Skipped counts keys that needed no action or were not authorized.
	Skipped int `json:"skipped"`

	// Failures lists per-record persistence failures.
	Failures []Failure `json:"failures"`

	// Advanced is the window end stored after the cycle.
	Advanced time.Time `json:"advanced"`

	// Duration is the wall time of the cycle.
	Duration time.Duration `json:"duration"`

	// Error is set when the cycle stopped early.
	Error string `json:"error,omitempty"`

	// retryFrom is the earliest last-update timestamp of a failed record.
	retryFrom time.Time
}

func (r *CycleReport) fail(f Failure, observed time.Time) {
	r.Failures = append(r.Failures, f)
	if observed.IsZero() {
		return
	}
	if r.retryFrom.IsZero() || observed.Before(r.retryFrom) {
		r.retryFrom = observed
	}
}
