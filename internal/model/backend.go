package model

import (
	"math"
	"time"
)

// DefaultBackendPriority is the priority of an instance that has never been
// scored.
const DefaultBackendPriority = 100

// BackendInstance is one candidate search backend, keyed by URL.
//
// Priority and SleepUntil are owned by the backend registry; every other
// field is descriptive metadata, of which only Uptime feeds the priority.
type BackendInstance struct {
	// ID is the storage row id. It gives a stable order between instances
	// of equal priority.
	ID int64 `json:"id"`

	// URL is the instance base URL and unique key.
	URL string `json:"url"`

	// Priority orders selection: lower is preferred.
	Priority int `json:"priority"`

	// SleepUntil is the cooldown expiry. The zero value means no cooldown.
	SleepUntil time.Time `json:"sleep_until,omitzero"`

	// Uptime is the observed yearly uptime percentage, nil when unknown.
	Uptime *float64 `json:"uptime,omitempty"`

	Version             string   `json:"version,omitempty"`
	TLSGrade            string   `json:"tls,omitempty"`
	CSPGrade            string   `json:"csp,omitempty"`
	HTMLGrade           string   `json:"html,omitempty"`
	Certificate         string   `json:"certificate,omitempty"`
	IPv6                bool     `json:"ipv6"`
	Country             string   `json:"country,omitempty"`
	NetworkType         string   `json:"network,omitempty"`
	SearchResponseTime  *float64 `json:"search_response_time,omitempty"`
	GoogleResponseTime  *float64 `json:"google_response_time,omitempty"`
	InitialResponseTime *float64 `json:"initial_response_time,omitempty"`
}

// IsAvailable reports whether the instance is out of cooldown at now.
func (b *BackendInstance) IsAvailable(now time.Time) bool {
	return b.SleepUntil.IsZero() || !b.SleepUntil.After(now)
}

// PriorityFromUptime computes 100 - uptime, treating unknown uptime as 0.
// The fractional part is truncated because priority is an integer column.
func PriorityFromUptime(uptime *float64) int {
	if uptime == nil {
		return DefaultBackendPriority
	}
	return int(math.Trunc(DefaultBackendPriority - *uptime))
}
